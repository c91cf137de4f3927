// Package render invokes the external rendering engine and supervises it:
// scene serialization, subprocess launch, timeout enforcement, and artifact
// verification.
package render

import (
	"context"

	"earthtour/internal/animation"
	"earthtour/internal/path"
)

// Result is a successful render.
type Result struct {
	// VideoPath is the absolute path of the artifact on local disk.
	VideoPath string
	// Duration is the animation length in seconds.
	Duration float64
}

// Renderer turns a camera path into a video artifact. Implementations must
// resolve within a bounded time; a render failure is terminal for its job.
type Renderer interface {
	Render(ctx context.Context, cp *path.CameraPath, quality animation.Quality) (Result, error)
}
