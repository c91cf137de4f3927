package animation

import (
	"context"
	"testing"

	"earthtour/internal/geo"
	"earthtour/internal/pkg/errors"
)

// fakeGeocoder resolves from a fixed table and counts calls.
type fakeGeocoder struct {
	known map[string]geo.Point
	calls int
	// failuresBeforeSuccess injects upstream errors for the first N calls.
	failuresBeforeSuccess int
}

func (f *fakeGeocoder) Resolve(ctx context.Context, name string) (geo.Point, error) {
	f.calls++
	if f.failuresBeforeSuccess > 0 {
		f.failuresBeforeSuccess--
		return geo.Point{}, errors.Upstream("geocoder", "lookup service unreachable")
	}
	pt, ok := f.known[name]
	if !ok {
		return geo.Point{}, errors.NotFound("location", name)
	}
	return pt, nil
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{known: map[string]geo.Point{
		"New York": {Lat: 40.7128, Lon: -74.0060},
		"Tokyo":    {Lat: 35.6762, Lon: 139.6503},
	}}
}

func floatPtr(v float64) *float64 { return &v }

func TestValidateHappyPath(t *testing.T) {
	gc := newFakeGeocoder()
	v := NewValidator(gc, nil)

	req := AnimationRequest{
		Locations: []Location{
			{Name: "New York"},
			{Lat: floatPtr(48.8566), Lon: floatPtr(2.3522)},
			{Name: "Tokyo"},
		},
		Quality: "1080p",
	}

	resolved, err := v.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(resolved.Locations) != 3 {
		t.Fatalf("expected 3 resolved locations, got %d", len(resolved.Locations))
	}
	if resolved.Quality != Quality1080p {
		t.Errorf("expected quality 1080p, got %s", resolved.Quality)
	}
	// Coordinates given in the request must be used byte-identical.
	if resolved.Locations[1].Lat != 48.8566 || resolved.Locations[1].Lon != 2.3522 {
		t.Errorf("explicit coordinates were altered: %+v", resolved.Locations[1])
	}
	// Only the two named locations hit the geocoder.
	if gc.calls != 2 {
		t.Errorf("expected 2 geocoder calls, got %d", gc.calls)
	}
}

func TestValidateDefaultsQuality(t *testing.T) {
	v := NewValidator(newFakeGeocoder(), nil)

	resolved, err := v.Validate(context.Background(), AnimationRequest{
		Locations: []Location{{Name: "New York"}, {Name: "Tokyo"}},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if resolved.Quality != DefaultQuality {
		t.Errorf("expected default quality, got %s", resolved.Quality)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		req  AnimationRequest
	}{
		{
			name: "single location",
			req:  AnimationRequest{Locations: []Location{{Name: "Tokyo"}}},
		},
		{
			name: "no locations",
			req:  AnimationRequest{},
		},
		{
			name: "unknown quality",
			req: AnimationRequest{
				Locations: []Location{{Name: "New York"}, {Name: "Tokyo"}},
				Quality:   "8K",
			},
		},
		{
			name: "negative duration",
			req: AnimationRequest{
				Locations: []Location{{Name: "New York"}, {Name: "Tokyo"}},
				Duration:  -5,
			},
		},
		{
			name: "lat without lon",
			req: AnimationRequest{
				Locations: []Location{{Lat: floatPtr(10)}, {Name: "Tokyo"}},
			},
		},
		{
			name: "empty location",
			req: AnimationRequest{
				Locations: []Location{{}, {Name: "Tokyo"}},
			},
		},
		{
			name: "latitude out of range",
			req: AnimationRequest{
				Locations: []Location{{Lat: floatPtr(91), Lon: floatPtr(0)}, {Name: "Tokyo"}},
			},
		},
		{
			name: "longitude out of range",
			req: AnimationRequest{
				Locations: []Location{{Lat: floatPtr(0), Lon: floatPtr(181)}, {Name: "Tokyo"}},
			},
		},
		{
			name: "consecutive identical coordinates",
			req: AnimationRequest{
				Locations: []Location{
					{Lat: floatPtr(48.8566), Lon: floatPtr(2.3522)},
					{Lat: floatPtr(48.8566), Lon: floatPtr(2.3522)},
				},
			},
		},
		{
			name: "unknown place name",
			req: AnimationRequest{
				Locations: []Location{{Name: "Atlantis"}, {Name: "Tokyo"}},
			},
		},
	}

	v := NewValidator(newFakeGeocoder(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsValidation(err) {
				t.Errorf("expected VALIDATION_ERROR, got %s: %v", errors.GetCode(err), err)
			}
		})
	}
}

func TestValidateRetriesUpstreamOnce(t *testing.T) {
	gc := newFakeGeocoder()
	gc.failuresBeforeSuccess = 1
	v := NewValidator(gc, nil)

	_, err := v.Validate(context.Background(), AnimationRequest{
		Locations: []Location{{Name: "New York"}, {Name: "Tokyo"}},
	})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	// First name: one failure + one retry; second name: one call.
	if gc.calls != 3 {
		t.Errorf("expected 3 geocoder calls, got %d", gc.calls)
	}
}

func TestValidateUpstreamExhausted(t *testing.T) {
	gc := newFakeGeocoder()
	gc.failuresBeforeSuccess = 2
	v := NewValidator(gc, nil)

	_, err := v.Validate(context.Background(), AnimationRequest{
		Locations: []Location{{Name: "New York"}, {Name: "Tokyo"}},
	})
	if err == nil {
		t.Fatal("expected upstream error")
	}
	if !errors.IsCode(err, errors.CodeUpstream) {
		t.Errorf("expected UPSTREAM_ERROR, got %s", errors.GetCode(err))
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in     string
		want   Quality
		wantOK bool
	}{
		{in: "", want: DefaultQuality, wantOK: true},
		{in: "720p", want: Quality720p, wantOK: true},
		{in: "4K", want: Quality4K, wantOK: true},
		{in: "4k", wantOK: false},
		{in: "240p", wantOK: false},
	}

	for _, tt := range tests {
		t.Run("q="+tt.in, func(t *testing.T) {
			got, ok := ParseQuality(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseQuality(%q) ok=%v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseQuality(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestProfileTimeoutsScaleWithQuality(t *testing.T) {
	if Quality4K.Profile().RenderTimeout <= Quality720p.Profile().RenderTimeout {
		t.Error("4K render budget should exceed 720p")
	}
}
