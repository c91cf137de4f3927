package animation

import (
	"context"
	"math"

	"earthtour/internal/geo"
	"earthtour/internal/pkg/errors"
	"earthtour/internal/pkg/logger"
)

// coordEpsilon is the tolerance, in degrees, under which two consecutive
// resolved coordinates count as the same point (a zero-length leg).
const coordEpsilon = 1e-6

// Geocoder resolves a place name to a coordinate.
type Geocoder interface {
	Resolve(ctx context.Context, name string) (geo.Point, error)
}

// Validator turns raw animation requests into resolved ones. It runs on the
// request-accepting path, before any Job exists, so bad requests never reach
// the scheduler.
type Validator struct {
	geocoder Geocoder
	log      *logger.Logger
}

// NewValidator creates a Validator backed by the given geocoder.
func NewValidator(geocoder Geocoder, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Validator{geocoder: geocoder, log: log.WithComponent("validator")}
}

// Validate resolves and checks a raw request. Locations with coordinates are
// used byte-identical, never geocoded. Geocoder outages are retried once;
// a second failure surfaces as an upstream error so the client can retry the
// whole request later.
func (v *Validator) Validate(ctx context.Context, req AnimationRequest) (*ResolvedRequest, error) {
	if len(req.Locations) < 2 {
		return nil, errors.Validation("at least 2 locations are required")
	}

	quality, ok := ParseQuality(req.Quality)
	if !ok {
		return nil, errors.Validationf("unknown quality %q (want 720p, 1080p, 1440p or 4K)", req.Quality)
	}

	if req.Duration < 0 {
		return nil, errors.Validation("duration must be positive")
	}

	resolved := make([]ResolvedLocation, 0, len(req.Locations))
	for i, loc := range req.Locations {
		rl, err := v.resolveOne(ctx, i, loc)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rl)
	}

	for i := 1; i < len(resolved); i++ {
		prev, cur := resolved[i-1], resolved[i]
		if math.Abs(prev.Lat-cur.Lat) < coordEpsilon && math.Abs(prev.Lon-cur.Lon) < coordEpsilon {
			return nil, errors.Validationf("locations %d and %d resolve to the same coordinate", i-1, i)
		}
	}

	return &ResolvedRequest{
		Locations: resolved,
		Quality:   quality,
		Duration:  req.Duration,
	}, nil
}

func (v *Validator) resolveOne(ctx context.Context, idx int, loc Location) (ResolvedLocation, error) {
	if loc.HasCoordinates() {
		lat, lon := *loc.Lat, *loc.Lon
		if lat < -90 || lat > 90 {
			return ResolvedLocation{}, errors.Validationf("location %d: latitude %.4f out of range [-90,90]", idx, lat)
		}
		if lon < -180 || lon > 180 {
			return ResolvedLocation{}, errors.Validationf("location %d: longitude %.4f out of range [-180,180]", idx, lon)
		}
		return ResolvedLocation{
			Name:  loc.Name,
			Point: geo.Point{Lat: lat, Lon: lon},
			Lat:   lat,
			Lon:   lon,
		}, nil
	}

	if loc.Lat != nil || loc.Lon != nil {
		return ResolvedLocation{}, errors.Validationf("location %d: latitude and longitude must be provided together", idx)
	}
	if loc.Name == "" {
		return ResolvedLocation{}, errors.Validationf("location %d: name or coordinates required", idx)
	}

	pt, err := v.geocoder.Resolve(ctx, loc.Name)
	if err != nil && errors.IsCode(err, errors.CodeUpstream) {
		// One retry on lookup-service outage. Retry on NotFound would be
		// pointless, the answer will not change.
		v.log.FromContext(ctx).Warn("geocode unavailable, retrying once", "name", loc.Name)
		pt, err = v.geocoder.Resolve(ctx, loc.Name)
	}
	if err != nil {
		if errors.IsNotFound(err) {
			return ResolvedLocation{}, errors.Validationf("location %d: no match for %q", idx, loc.Name)
		}
		return ResolvedLocation{}, errors.Wrap(err, "validate.resolve", "geocoding failed for "+loc.Name)
	}

	return ResolvedLocation{
		Name:  loc.Name,
		Point: pt,
		Lat:   pt.Lat,
		Lon:   pt.Lon,
	}, nil
}
