package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"earthtour/internal/animation"
	"earthtour/internal/path"
	"earthtour/internal/pkg/errors"
	"earthtour/internal/pkg/logger"
)

// diagnosticLimit caps captured renderer output in error messages.
const diagnosticLimit = 2000

// BlenderConfig configures the Blender subprocess invoker.
type BlenderConfig struct {
	// BlenderPath is the renderer executable.
	BlenderPath string
	// ScriptPath is the Blender Python script driving the render.
	ScriptPath string
	// WorkDir receives scene config files and rendered artifacts.
	WorkDir string
	// Timeout overrides the per-quality render budget when set (dev, tests).
	Timeout time.Duration
}

// Blender renders camera paths by launching Blender headless, handing the
// scene to the render script through a JSON config file.
type Blender struct {
	cfg BlenderConfig
	log *logger.Logger
}

// NewBlender creates the subprocess invoker. WorkDir is created if missing.
func NewBlender(cfg BlenderConfig, log *logger.Logger) (*Blender, error) {
	if cfg.BlenderPath == "" {
		return nil, errors.Internal("blender executable path is required")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "render.init", "creating work directory")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Blender{cfg: cfg, log: log.WithComponent("renderer")}, nil
}

// sceneConfig is the JSON document handed to the render script.
type sceneConfig struct {
	Keyframes   []path.Keyframe `json:"keyframes"`
	Quality     string          `json:"quality"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	FPS         int             `json:"fps"`
	BitrateKbps int             `json:"bitrate_kbps"`
	Duration    float64         `json:"duration"`
}

// Render serializes the camera path, launches the renderer and supervises it.
// The subprocess is killed when the per-quality budget elapses. No retries:
// retry policy, if any, belongs above this layer.
func (b *Blender) Render(ctx context.Context, cp *path.CameraPath, quality animation.Quality) (Result, error) {
	profile := quality.Profile()

	tag := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.NewString()[:8])
	configPath := filepath.Join(b.cfg.WorkDir, fmt.Sprintf("earth_tour_config_%s.json", tag))
	outputPath := filepath.Join(b.cfg.WorkDir, fmt.Sprintf("earth_tour_%s_%s.mp4", tag, quality))

	if err := b.writeSceneConfig(configPath, cp, quality, profile); err != nil {
		return Result{}, err
	}
	defer os.Remove(configPath)

	timeout := profile.RenderTimeout
	if b.cfg.Timeout > 0 {
		timeout = b.cfg.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, b.cfg.BlenderPath,
		"--background",
		"--python", b.cfg.ScriptPath,
		"--",
		"--config", configPath,
		"--output", outputPath,
	)

	// Blender forks encoder helpers that inherit the output pipes. Run the
	// renderer in its own process group and kill the whole group on deadline,
	// otherwise Wait blocks on the pipes until every descendant exits.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	// Backstop for descendants that escaped the group: abandon the pipes a
	// few seconds after the kill instead of waiting for them to close.
	cmd.WaitDelay = 3 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := b.log.FromContext(ctx)
	log.Info("starting render",
		"quality", string(quality),
		"keyframes", len(cp.Keyframes),
		"timeout", timeout.String(),
	)
	start := time.Now()

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		// CommandContext already killed the process.
		return Result{}, errors.Timeout("render").
			WithField("budget", timeout.String()).
			WithField("stderr", tail(stderr.String()))
	}
	if err != nil {
		return Result{}, errors.WrapWithCode(err, errors.CodeInternal, "render.invoke",
			"renderer process failed").
			WithField("stderr", tail(stderr.String()))
	}

	st, statErr := os.Stat(outputPath)
	if statErr != nil || st.Size() == 0 {
		return Result{}, errors.New(errors.CodeInternal,
			"renderer exited cleanly but produced no artifact").
			WithField("output", outputPath)
	}

	log.Info("render completed",
		"output", outputPath,
		"size", st.Size(),
		"render_ms", time.Since(start).Milliseconds(),
	)

	return Result{VideoPath: outputPath, Duration: cp.Duration}, nil
}

func (b *Blender) writeSceneConfig(configPath string, cp *path.CameraPath, quality animation.Quality, profile animation.Profile) error {
	scene := sceneConfig{
		Keyframes:   cp.Keyframes,
		Quality:     string(quality),
		Width:       profile.Width,
		Height:      profile.Height,
		FPS:         profile.FPS,
		BitrateKbps: profile.BitrateKbps,
		Duration:    cp.Duration,
	}

	data, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return errors.Wrap(err, "render.config", "serializing scene config")
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrap(err, "render.config", "writing scene config")
	}
	return nil
}

// tail keeps the last diagnosticLimit bytes of renderer output.
func tail(s string) string {
	if len(s) > diagnosticLimit {
		return s[len(s)-diagnosticLimit:]
	}
	return s
}
