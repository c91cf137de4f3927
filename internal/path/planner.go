// Package path plans timed camera paths along great-circle arcs between
// resolved waypoints. The planner is pure: no I/O, deterministic output for
// identical input.
package path

import (
	"math"

	"earthtour/internal/animation"
	"earthtour/internal/geo"
	"earthtour/internal/pkg/errors"
)

// Keyframe is a timestamped camera pose along the flight path.
type Keyframe struct {
	// T is seconds from animation start, monotonically increasing.
	T   float64 `json:"t"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	// Altitude is the camera height above the surface in kilometers.
	Altitude float64 `json:"altitude"`
	// Heading is degrees clockwise from north, facing travel direction.
	Heading float64 `json:"heading"`
}

// CameraPath is the planned flight path for one job. It is produced once,
// never mutated, and owned by the job that requested it.
type CameraPath struct {
	Keyframes []Keyframe `json:"keyframes"`
	// Duration is the total animation length in seconds.
	Duration float64 `json:"duration"`
}

// Config tunes the planner.
type Config struct {
	// StepDegrees is the target angular step between keyframes. Longer legs
	// get proportionally more keyframes so apparent speed stays constant.
	StepDegrees float64
	// MinKeyframesPerLeg floors the sampling density of short hops.
	MinKeyframesPerLeg int
	// OrbitAltitudeKm is the cruise altitude of the camera.
	OrbitAltitudeKm float64
	// WaypointDipRatio is the fraction of cruise altitude held directly over
	// a waypoint, suggesting descent on approach and ascent on departure.
	WaypointDipRatio float64
	// SecondsPerRadian drives the auto-selected duration from total angular
	// distance, before clamping.
	SecondsPerRadian float64
	// MinTotalSeconds and MaxTotalSeconds clamp the total duration so a
	// short hop and a round-the-world tour both render in bounded time.
	MinTotalSeconds float64
	MaxTotalSeconds float64
	// AntipodalToleranceRad flags legs whose endpoints are this close to
	// antipodal; such legs are split before interpolation.
	AntipodalToleranceRad float64
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		StepDegrees:           1.0,
		MinKeyframesPerLeg:    8,
		OrbitAltitudeKm:       500,
		WaypointDipRatio:      0.7,
		SecondsPerRadian:      20,
		MinTotalSeconds:       10,
		MaxTotalSeconds:       120,
		AntipodalToleranceRad: 0.5 * math.Pi / 180,
	}
}

// Planner converts resolved waypoint sequences into camera paths.
type Planner struct {
	cfg Config
}

// New creates a Planner. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Planner {
	def := DefaultConfig()
	if cfg.StepDegrees <= 0 {
		cfg.StepDegrees = def.StepDegrees
	}
	if cfg.MinKeyframesPerLeg <= 0 {
		cfg.MinKeyframesPerLeg = def.MinKeyframesPerLeg
	}
	if cfg.OrbitAltitudeKm <= 0 {
		cfg.OrbitAltitudeKm = def.OrbitAltitudeKm
	}
	if cfg.WaypointDipRatio <= 0 || cfg.WaypointDipRatio > 1 {
		cfg.WaypointDipRatio = def.WaypointDipRatio
	}
	if cfg.SecondsPerRadian <= 0 {
		cfg.SecondsPerRadian = def.SecondsPerRadian
	}
	if cfg.MinTotalSeconds <= 0 {
		cfg.MinTotalSeconds = def.MinTotalSeconds
	}
	if cfg.MaxTotalSeconds <= cfg.MinTotalSeconds {
		cfg.MaxTotalSeconds = math.Max(def.MaxTotalSeconds, cfg.MinTotalSeconds)
	}
	if cfg.AntipodalToleranceRad <= 0 {
		cfg.AntipodalToleranceRad = def.AntipodalToleranceRad
	}
	return &Planner{cfg: cfg}
}

// leg is one great-circle segment after antipodal splitting.
type leg struct {
	start, end geo.Point
	angular    float64
	heading    float64
}

// Plan builds the camera path visiting the given locations in order.
// requestedDuration, when positive, rescales all leg timings proportionally;
// it is clamped to the configured total-duration window. Zero picks a
// distance-proportional duration inside the same window.
func (p *Planner) Plan(locations []animation.ResolvedLocation, requestedDuration float64) (*CameraPath, error) {
	if len(locations) < 2 {
		return nil, errors.Validation("a camera path needs at least 2 waypoints")
	}

	legs := p.buildLegs(locations)

	totalAngular := 0.0
	for _, l := range legs {
		totalAngular += l.angular
	}
	if totalAngular <= 0 {
		return nil, errors.Validation("waypoints are all coincident")
	}

	total := requestedDuration
	if total <= 0 {
		total = totalAngular * p.cfg.SecondsPerRadian
	}
	total = math.Min(math.Max(total, p.cfg.MinTotalSeconds), p.cfg.MaxTotalSeconds)

	stepRad := p.cfg.StepDegrees * math.Pi / 180

	keyframes := make([]Keyframe, 0, 64)
	elapsed := 0.0
	for i, l := range legs {
		legDur := total * l.angular / totalAngular
		steps := int(math.Ceil(l.angular / stepRad))
		if steps < p.cfg.MinKeyframesPerLeg {
			steps = p.cfg.MinKeyframesPerLeg
		}

		// The first keyframe of every leg after the first coincides with
		// the previous leg's last; skip it to keep t strictly increasing.
		start := 0
		if i > 0 {
			start = 1
		}

		for j := start; j <= steps; j++ {
			f := float64(j) / float64(steps)
			pt := geo.Intermediate(l.start, l.end, f)
			keyframes = append(keyframes, Keyframe{
				T:        elapsed + f*legDur,
				Lat:      pt.Lat,
				Lon:      pt.Lon,
				Altitude: p.altitudeAt(f),
				Heading:  l.heading,
			})
		}
		elapsed += legDur
	}

	// Pin the endpoints against float drift.
	keyframes[0].T = 0
	keyframes[len(keyframes)-1].T = total

	return &CameraPath{Keyframes: keyframes, Duration: total}, nil
}

// buildLegs turns the waypoint sequence into great-circle legs, splitting any
// near-antipodal pair through a deterministic intermediate point (the great
// circle between antipodes is ill-defined).
func (p *Planner) buildLegs(locations []animation.ResolvedLocation) []leg {
	legs := make([]leg, 0, len(locations)-1)
	for i := 1; i < len(locations); i++ {
		a := locations[i-1].Point
		b := locations[i].Point

		if geo.NearAntipodal(a, b, p.cfg.AntipodalToleranceRad) {
			mid := antipodalVia(a, b)
			legs = append(legs, newLeg(a, mid), newLeg(mid, b))
			continue
		}
		legs = append(legs, newLeg(a, b))
	}
	return legs
}

func newLeg(a, b geo.Point) leg {
	return leg{
		start:   a,
		end:     b,
		angular: geo.AngularDistance(a, b),
		heading: geo.InitialBearing(a, b),
	}
}

// antipodalVia picks the intermediate point used to split a near-antipodal
// leg: the mean latitude, a quarter turn east of the start. Any point off the
// degenerate axis works; this one is deterministic.
func antipodalVia(a, b geo.Point) geo.Point {
	lon := a.Lon + 90
	if lon > 180 {
		lon -= 360
	}
	return geo.Point{Lat: (a.Lat + b.Lat) / 2, Lon: lon}
}

// altitudeAt returns the camera altitude at fraction f of a leg: cruise
// altitude mid-leg, dipping toward waypoints at both ends.
func (p *Planner) altitudeAt(f float64) float64 {
	dip := p.cfg.WaypointDipRatio
	return p.cfg.OrbitAltitudeKm * (dip + (1-dip)*math.Sin(math.Pi*f))
}
