package path

import (
	"math"
	"testing"

	"earthtour/internal/animation"
	"earthtour/internal/geo"
)

func resolved(points ...geo.Point) []animation.ResolvedLocation {
	out := make([]animation.ResolvedLocation, len(points))
	for i, p := range points {
		out[i] = animation.ResolvedLocation{Point: p, Lat: p.Lat, Lon: p.Lon}
	}
	return out
}

var (
	newYork = geo.Point{Lat: 40.7128, Lon: -74.0060}
	paris   = geo.Point{Lat: 48.8566, Lon: 2.3522}
	tokyo   = geo.Point{Lat: 35.6762, Lon: 139.6503}
)

func TestPlanSingleLeg(t *testing.T) {
	p := New(DefaultConfig())

	cp, err := p.Plan(resolved(newYork, paris), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	kfs := cp.Keyframes
	if len(kfs) < 2 {
		t.Fatalf("expected keyframes, got %d", len(kfs))
	}
	if kfs[0].T != 0 {
		t.Errorf("first keyframe must start at t=0, got %f", kfs[0].T)
	}
	if last := kfs[len(kfs)-1]; last.T != cp.Duration {
		t.Errorf("last keyframe t=%f should equal duration %f", last.T, cp.Duration)
	}

	// Endpoints must coincide with the waypoints.
	if d := geo.Distance(geo.Point{Lat: kfs[0].Lat, Lon: kfs[0].Lon}, newYork); d > 0.01 {
		t.Errorf("path does not start at first waypoint (off by %.3f km)", d)
	}
	if last := kfs[len(kfs)-1]; geo.Distance(geo.Point{Lat: last.Lat, Lon: last.Lon}, paris) > 0.01 {
		t.Error("path does not end at last waypoint")
	}
}

func TestPlanRejectsTooFewWaypoints(t *testing.T) {
	p := New(DefaultConfig())
	if _, err := p.Plan(resolved(paris), 0); err == nil {
		t.Error("expected error for a single waypoint")
	}
	if _, err := p.Plan(nil, 0); err == nil {
		t.Error("expected error for no waypoints")
	}
}

func TestPlanMonotonicTime(t *testing.T) {
	p := New(DefaultConfig())
	cp, err := p.Plan(resolved(newYork, paris, tokyo), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	for i := 1; i < len(cp.Keyframes); i++ {
		if cp.Keyframes[i].T <= cp.Keyframes[i-1].T {
			t.Fatalf("keyframe %d: t=%f not after t=%f", i, cp.Keyframes[i].T, cp.Keyframes[i-1].T)
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	p := New(DefaultConfig())

	a, err := p.Plan(resolved(newYork, paris, tokyo), 42)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	b, err := p.Plan(resolved(newYork, paris, tokyo), 42)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(a.Keyframes) != len(b.Keyframes) {
		t.Fatalf("keyframe counts differ: %d vs %d", len(a.Keyframes), len(b.Keyframes))
	}
	for i := range a.Keyframes {
		if a.Keyframes[i] != b.Keyframes[i] {
			t.Fatalf("keyframe %d differs: %+v vs %+v", i, a.Keyframes[i], b.Keyframes[i])
		}
	}
}

// Keyframes must lie on the great circle: distance from leg start plus
// distance to leg end equals the leg distance.
func TestPlanKeyframesOnArc(t *testing.T) {
	p := New(DefaultConfig())
	cp, err := p.Plan(resolved(newYork, tokyo), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	total := geo.Distance(newYork, tokyo)
	for i, kf := range cp.Keyframes {
		pt := geo.Point{Lat: kf.Lat, Lon: kf.Lon}
		sum := geo.Distance(newYork, pt) + geo.Distance(pt, tokyo)
		if math.Abs(sum-total) > 1.0 {
			t.Fatalf("keyframe %d off the arc: %.3f km vs %.3f km", i, sum, total)
		}
	}
}

// Doubling the requested duration (inside the clamp window) must scale all
// timestamps by two while leaving spatial positions unchanged.
func TestPlanDurationScaling(t *testing.T) {
	p := New(DefaultConfig())

	base, err := p.Plan(resolved(newYork, paris, tokyo), 30)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	doubled, err := p.Plan(resolved(newYork, paris, tokyo), 60)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(base.Keyframes) != len(doubled.Keyframes) {
		t.Fatalf("keyframe counts differ: %d vs %d", len(base.Keyframes), len(doubled.Keyframes))
	}
	for i := range base.Keyframes {
		b, d := base.Keyframes[i], doubled.Keyframes[i]
		if math.Abs(d.T-2*b.T) > 1e-9 {
			t.Errorf("keyframe %d: t=%f, want %f", i, d.T, 2*b.T)
		}
		if b.Lat != d.Lat || b.Lon != d.Lon || b.Altitude != d.Altitude {
			t.Errorf("keyframe %d: spatial pose changed with duration", i)
		}
	}
}

func TestPlanDurationClamping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinTotalSeconds = 10
	cfg.MaxTotalSeconds = 120
	p := New(cfg)

	tests := []struct {
		name      string
		requested float64
		want      func(d float64) bool
	}{
		{name: "tiny request clamped up", requested: 1, want: func(d float64) bool { return d == 10 }},
		{name: "huge request clamped down", requested: 10000, want: func(d float64) bool { return d == 120 }},
		{name: "auto duration inside window", requested: 0, want: func(d float64) bool { return d >= 10 && d <= 120 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, err := p.Plan(resolved(newYork, paris), tt.requested)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if !tt.want(cp.Duration) {
				t.Errorf("duration %f outside expectation", cp.Duration)
			}
		})
	}
}

// Longer legs get more keyframes, keeping apparent speed consistent.
func TestPlanSamplingScalesWithDistance(t *testing.T) {
	p := New(DefaultConfig())

	short, err := p.Plan(resolved(geo.Point{Lat: 48, Lon: 2}, geo.Point{Lat: 50, Lon: 4}), 0)
	if err != nil {
		t.Fatalf("Plan short: %v", err)
	}
	long, err := p.Plan(resolved(newYork, tokyo), 0)
	if err != nil {
		t.Fatalf("Plan long: %v", err)
	}

	if len(long.Keyframes) <= len(short.Keyframes) {
		t.Errorf("long leg should have more keyframes: %d vs %d",
			len(long.Keyframes), len(short.Keyframes))
	}
}

func TestPlanHeadingFacesTravel(t *testing.T) {
	p := New(DefaultConfig())

	// Eastward along the equator: heading must be 90° for every keyframe.
	cp, err := p.Plan(resolved(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 40}), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for i, kf := range cp.Keyframes {
		if math.Abs(kf.Heading-90) > 0.01 {
			t.Fatalf("keyframe %d: heading %.2f, want 90", i, kf.Heading)
		}
	}
}

func TestPlanAltitudeDipsAtWaypoints(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg)

	cp, err := p.Plan(resolved(newYork, paris), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	first := cp.Keyframes[0]
	mid := cp.Keyframes[len(cp.Keyframes)/2]
	last := cp.Keyframes[len(cp.Keyframes)-1]

	if first.Altitude >= mid.Altitude || last.Altitude >= mid.Altitude {
		t.Errorf("altitude should dip at waypoints: first=%.1f mid=%.1f last=%.1f",
			first.Altitude, mid.Altitude, last.Altitude)
	}
	wantDip := cfg.OrbitAltitudeKm * cfg.WaypointDipRatio
	if math.Abs(first.Altitude-wantDip) > 0.01 {
		t.Errorf("waypoint altitude %.2f, want %.2f", first.Altitude, wantDip)
	}
}

func TestPlanAntipodalSplit(t *testing.T) {
	p := New(DefaultConfig())

	a := geo.Point{Lat: 10, Lon: 20}
	b := geo.Point{Lat: -10, Lon: -160} // exact antipode of a

	cp, err := p.Plan(resolved(a, b), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	kfs := cp.Keyframes
	if d := geo.Distance(geo.Point{Lat: kfs[0].Lat, Lon: kfs[0].Lon}, a); d > 0.01 {
		t.Errorf("antipodal path must start at first waypoint, off by %.3f km", d)
	}
	if last := kfs[len(kfs)-1]; geo.Distance(geo.Point{Lat: last.Lat, Lon: last.Lon}, b) > 0.01 {
		t.Error("antipodal path must end at last waypoint")
	}

	// The split introduces a heading change partway through.
	headings := map[float64]bool{}
	for _, kf := range kfs {
		headings[kf.Heading] = true
	}
	if len(headings) < 2 {
		t.Error("expected at least two legs (two headings) for an antipodal pair")
	}

	for i := 1; i < len(kfs); i++ {
		if kfs[i].T <= kfs[i-1].T {
			t.Fatalf("keyframe %d: time not increasing across the split", i)
		}
	}
}
