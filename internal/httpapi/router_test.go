package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"earthtour/internal/adapters/storage/localfs"
	"earthtour/internal/animation"
	"earthtour/internal/geo"
	"earthtour/internal/httpapi/handlers"
	"earthtour/internal/job"
	"earthtour/internal/path"
	"earthtour/internal/pkg/errors"
	"earthtour/internal/pkg/logger"
	"earthtour/internal/ports"
	"earthtour/internal/render"
	"earthtour/internal/scheduler"
)

// fakeGeocoder resolves a fixed set of place names.
type fakeGeocoder struct {
	points map[string]geo.Point
	down   bool
}

func (g *fakeGeocoder) Resolve(ctx context.Context, name string) (geo.Point, error) {
	if g.down {
		return geo.Point{}, errors.Upstream("nominatim", "connection refused")
	}
	pt, ok := g.points[strings.ToLower(name)]
	if !ok {
		return geo.Point{}, errors.Newf(errors.CodeNotFound, "no results for %q", name)
	}
	return pt, nil
}

// fakeRenderer produces a tiny artifact without spawning a subprocess.
type fakeRenderer struct {
	dir  string
	gate chan struct{}
	n    atomic.Int32
}

func (f *fakeRenderer) Render(ctx context.Context, cp *path.CameraPath, quality animation.Quality) (render.Result, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return render.Result{}, ctx.Err()
		}
	}
	p := filepath.Join(f.dir, fmt.Sprintf("earth_tour_%d_%s.mp4", f.n.Add(1), quality))
	if err := os.WriteFile(p, []byte("fake mp4 bytes"), 0o644); err != nil {
		return render.Result{}, err
	}
	return render.Result{VideoPath: p, Duration: cp.Duration}, nil
}

type testEnv struct {
	srv      *httptest.Server
	registry *job.Registry
	geocoder *fakeGeocoder
}

func newEnv(t *testing.T, workers, queueCap int, gate chan struct{}) *testEnv {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	gc := &fakeGeocoder{points: map[string]geo.Point{
		"paris": {Lat: 48.8566, Lon: 2.3522},
		"tokyo": {Lat: 35.6762, Lon: 139.6503},
	}}
	registry := job.NewRegistry()
	var sp ports.StorageProvider = localfs.New(t.TempDir())

	sched := scheduler.New(scheduler.Config{Workers: workers, QueueCapacity: queueCap}, scheduler.Deps{
		Registry: registry,
		Planner:  path.New(path.Config{}),
		Renderer: &fakeRenderer{dir: t.TempDir(), gate: gate},
		Storage:  sp,
		Log:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = sched.Stop(stopCtx)
		cancel()
	})

	router := NewRouter(Deps{Handlers: handlers.Deps{
		Validator: animation.NewValidator(gc, log),
		Registry:  registry,
		Scheduler: sched,
		Storage:   sp,
		Log:       log,
	}})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, registry: registry, geocoder: gc}
}

func (e *testEnv) postAnimation(t *testing.T, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+"/generate-animation", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /generate-animation: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func (e *testEnv) getJSON(t *testing.T, p string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + p)
	if err != nil {
		t.Fatalf("GET %s: %v", p, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s response: %v", p, err)
	}
	return resp, decoded
}

func (e *testEnv) pollUntilTerminal(t *testing.T, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := e.getJSON(t, "/job/"+jobID)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET /job/%s = %d", jobID, resp.StatusCode)
		}
		status, _ := body["status"].(string)
		if status == string(job.StatusCompleted) || status == string(job.StatusFailed) {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func errorCode(body map[string]any) string {
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

func TestGenerateAnimationEndToEnd(t *testing.T) {
	env := newEnv(t, 2, 8, nil)

	resp, body := env.postAnimation(t, `{"locations":[{"name":"Paris"},{"name":"Tokyo"}],"quality":"720p"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %v)", resp.StatusCode, body)
	}
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("response carries no job_id: %v", body)
	}
	if body["status"] != string(job.StatusQueued) {
		t.Fatalf("status = %v, want queued", body["status"])
	}

	final := env.pollUntilTerminal(t, jobID)
	if final["status"] != string(job.StatusCompleted) {
		t.Fatalf("final status = %v (error: %v)", final["status"], final["error"])
	}

	videoPath, _ := final["video_path"].(string)
	if !strings.HasPrefix(videoPath, "/videos/") {
		t.Fatalf("video_path = %q, want /videos/ prefix", videoPath)
	}
	if d, _ := final["duration"].(float64); d <= 0 {
		t.Fatalf("duration = %v, want > 0", final["duration"])
	}

	vresp, err := http.Get(env.srv.URL + videoPath)
	if err != nil {
		t.Fatalf("GET %s: %v", videoPath, err)
	}
	defer vresp.Body.Close()
	if vresp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s = %d", videoPath, vresp.StatusCode)
	}
	data, _ := io.ReadAll(vresp.Body)
	if string(data) != "fake mp4 bytes" {
		t.Fatalf("unexpected video body %q", data)
	}
}

func TestGenerateAnimationValidation(t *testing.T) {
	env := newEnv(t, 1, 4, nil)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{"locations":`, "VALIDATION_ERROR"},
		{"one location", `{"locations":[{"name":"Paris"}]}`, "VALIDATION_ERROR"},
		{"unknown quality", `{"locations":[{"name":"Paris"},{"name":"Tokyo"}],"quality":"8K"}`, "VALIDATION_ERROR"},
		{"unknown place", `{"locations":[{"name":"Paris"},{"name":"Atlantis"}]}`, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.postAnimation(t, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body: %v)", resp.StatusCode, body)
			}
			if got := errorCode(body); got != tc.code {
				t.Fatalf("error code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestGeocoderOutageMapsToBadGateway(t *testing.T) {
	env := newEnv(t, 1, 4, nil)
	env.geocoder.down = true

	resp, body := env.postAnimation(t, `{"locations":[{"name":"Paris"},{"name":"Tokyo"}]}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body: %v)", resp.StatusCode, body)
	}
	if got := errorCode(body); got != string(errors.CodeUpstream) {
		t.Fatalf("error code = %q, want %s", got, errors.CodeUpstream)
	}
}

func TestQueueFullMapsToServiceUnavailable(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	env := newEnv(t, 1, 1, gate)

	// Coordinates avoid the geocoder; the worker blocks on the gate.
	body := `{"locations":[{"lat":48.85,"lon":2.35},{"lat":35.67,"lon":139.65}]}`

	resp1, _ := env.postAnimation(t, body)
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("first submit = %d, want 200", resp1.StatusCode)
	}
	// Give the worker a moment to dequeue so the queue slot frees up.
	time.Sleep(50 * time.Millisecond)

	resp2, _ := env.postAnimation(t, body)
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("second submit = %d, want 200", resp2.StatusCode)
	}

	resp3, body3 := env.postAnimation(t, body)
	if resp3.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("third submit = %d, want 503 (body: %v)", resp3.StatusCode, body3)
	}
	if got := errorCode(body3); got != string(errors.CodeUnavailable) {
		t.Fatalf("error code = %q, want %s", got, errors.CodeUnavailable)
	}
	// The refused job record is dropped, so its id must not be pollable.
	if id, ok := body3["job_id"].(string); ok && id != "" {
		t.Fatalf("refused submission leaked a job id %q", id)
	}
}

func TestGetJobNotFound(t *testing.T) {
	env := newEnv(t, 1, 4, nil)

	resp, body := env.getJSON(t, "/job/job_does_not_exist")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if got := errorCode(body); got != string(errors.CodeNotFound) {
		t.Fatalf("error code = %q, want %s", got, errors.CodeNotFound)
	}
}

func TestVideoEndpointGuards(t *testing.T) {
	env := newEnv(t, 1, 4, nil)

	resp, err := http.Get(env.srv.URL + "/videos/unknown.mp4")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown video = %d, want 404", resp.StatusCode)
	}
}

func TestInfoAndHealth(t *testing.T) {
	env := newEnv(t, 1, 4, nil)

	resp, body := env.getJSON(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / = %d", resp.StatusCode)
	}
	if body["name"] != "earthtour" {
		t.Fatalf("name = %v", body["name"])
	}
	if body["status"] != "running" {
		t.Fatalf("status = %v", body["status"])
	}

	hresp, hbody := env.getJSON(t, "/health")
	if hresp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health = %d", hresp.StatusCode)
	}
	if hbody["status"] != "ok" {
		t.Fatalf("health status = %v", hbody["status"])
	}
	if _, ok := hbody["jobs"].(map[string]any); !ok {
		t.Fatalf("health carries no job stats: %v", hbody)
	}
}
