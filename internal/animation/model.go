// Package animation defines the request types for flight path animations and
// the synchronous validation step that turns a raw request into a fully
// resolved, renderable one.
package animation

import (
	"time"

	"earthtour/internal/geo"
)

// Quality selects a video quality profile.
type Quality string

const (
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality1440p Quality = "1440p"
	Quality4K    Quality = "4K"
)

// DefaultQuality is used when a request omits the quality field.
const DefaultQuality = Quality1080p

// Profile is the concrete render profile behind a Quality value. Resolutions
// are portrait (9:16) for mobile playback.
type Profile struct {
	Width  int
	Height int
	FPS    int
	// BitrateKbps is passed through to the renderer's encoder settings.
	BitrateKbps int
	// RenderTimeout bounds the renderer subprocess wall clock.
	RenderTimeout time.Duration
}

var profiles = map[Quality]Profile{
	Quality720p:  {Width: 720, Height: 1280, FPS: 30, BitrateKbps: 4000, RenderTimeout: 10 * time.Minute},
	Quality1080p: {Width: 1080, Height: 1920, FPS: 30, BitrateKbps: 8000, RenderTimeout: 20 * time.Minute},
	Quality1440p: {Width: 1440, Height: 2560, FPS: 30, BitrateKbps: 16000, RenderTimeout: 30 * time.Minute},
	Quality4K:    {Width: 2160, Height: 3840, FPS: 30, BitrateKbps: 45000, RenderTimeout: 45 * time.Minute},
}

// ParseQuality validates a quality string. Empty input yields DefaultQuality.
func ParseQuality(s string) (Quality, bool) {
	if s == "" {
		return DefaultQuality, true
	}
	q := Quality(s)
	_, ok := profiles[q]
	return q, ok
}

// Profile returns the render profile for q. Unknown qualities fall back to
// the default profile.
func (q Quality) Profile() Profile {
	if p, ok := profiles[q]; ok {
		return p
	}
	return profiles[DefaultQuality]
}

// Location is a single stop in an animation request. A location is valid iff
// it has a non-empty name or both coordinates.
type Location struct {
	Name string   `json:"name,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether both lat and lon are present.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// AnimationRequest is the raw request body of POST /generate-animation.
type AnimationRequest struct {
	Locations []Location `json:"locations"`
	Quality   string     `json:"quality,omitempty"`
	// Duration is the requested total animation length in seconds. Zero
	// means the planner picks a distance-proportional duration.
	Duration float64 `json:"duration,omitempty"`
}

// ResolvedLocation is a Location with guaranteed coordinates.
type ResolvedLocation struct {
	Name  string    `json:"name,omitempty"`
	Point geo.Point `json:"-"`
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
}

// ResolvedRequest is the validated, fully geocoded form of a request. It is
// immutable once created and snapshotted into the Job record.
type ResolvedRequest struct {
	Locations []ResolvedLocation `json:"locations"`
	Quality   Quality            `json:"quality"`
	Duration  float64            `json:"duration,omitempty"`
}
