// Package geocode resolves place names to coordinates against a
// Nominatim-style lookup service, with an optional Redis-backed cache.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"earthtour/internal/geo"
	"earthtour/internal/pkg/errors"
	"earthtour/internal/pkg/logger"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultTimeout bounds a single lookup call.
const DefaultTimeout = 5 * time.Second

// Resolver resolves a place name to a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, name string) (geo.Point, error)
}

// Client is a thin adapter over the Nominatim search API. It performs no
// retries; retry policy belongs to the caller.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
	log       *logger.Logger
}

// NewClient creates a geocoding client. baseURL defaults to the public
// Nominatim instance; timeout defaults to DefaultTimeout.
func NewClient(baseURL, userAgent string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = "earthtour-server"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpc:     &http.Client{Timeout: timeout},
		log:       log.WithComponent("geocoder"),
	}
}

// nominatim returns lat/lon as strings.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve looks up the best match for name. It fails with NOT_FOUND when the
// service has no match and UPSTREAM_ERROR when the service cannot be reached
// or answers garbage.
func (c *Client) Resolve(ctx context.Context, name string) (geo.Point, error) {
	if name == "" {
		return geo.Point{}, errors.Validation("empty location name")
	}

	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return geo.Point{}, errors.Wrap(err, "geocode.resolve", "building lookup request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return geo.Point{}, errors.WrapWithCode(err, errors.CodeUpstream, "geocode.resolve",
			"geocoding service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, errors.Upstream("nominatim",
			fmt.Sprintf("geocoding service returned status %d", resp.StatusCode))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Point{}, errors.WrapWithCode(err, errors.CodeUpstream, "geocode.resolve",
			"invalid geocoding response")
	}

	if len(results) == 0 {
		return geo.Point{}, errors.NotFound("location", name)
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return geo.Point{}, errors.Upstream("nominatim", "non-numeric coordinates in response")
	}

	pt := geo.Point{Lat: lat, Lon: lon}
	c.log.FromContext(ctx).Debug("geocoded location", "name", name, "lat", pt.Lat, "lon", pt.Lon)
	return pt, nil
}
