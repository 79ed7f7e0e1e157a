// Package weather provides an HTTP client for the open-meteo geocoding and
// forecast APIs.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLocationNotFound is returned when geocoding yields no usable candidate.
	ErrLocationNotFound = errors.New("location not found")
	// ErrMalformedResponse is returned when a forecast body cannot be used.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const maxResponseBytes = 1 << 20

// Client is an HTTP client for the geocoding and forecast APIs.
type Client struct {
	geocodingURL string
	weatherURL   string
	httpClient   *http.Client
}

// NewClient creates a new weather client.
func NewClient(geocodingURL, weatherURL string, timeout time.Duration) *Client {
	return &Client{
		geocodingURL: strings.TrimSuffix(geocodingURL, "/"),
		weatherURL:   strings.TrimSuffix(weatherURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Place is the first geocoding candidate for a location.
type Place struct {
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timezone   string  `json:"timezone"`
	Population int64   `json:"population"`
}

// geocodeResponse is the body of GET /v1/search.
type geocodeResponse struct {
	Results *[]geocodeResult `json:"results"`
}

// geocodeResult is one candidate. Coordinates are pointers so that a
// candidate without them is told apart from (0,0).
type geocodeResult struct {
	Name       string   `json:"name"`
	Country    string   `json:"country"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Timezone   string   `json:"timezone"`
	Population int64    `json:"population"`
}

// forecastResponse is the subset of GET /v1/forecast used for validation.
type forecastResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// apiError is the error body returned by open-meteo.
type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Geocode resolves a free-text place name to its first candidate.
func (c *Client) Geocode(ctx context.Context, location string) (*Place, error) {
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	body, err := c.get(ctx, c.geocodingURL+"/v1/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", location, err)
	}

	// Anything but a non-empty results array means the place was not resolved.
	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w: %v", location, ErrLocationNotFound, err)
	}
	if resp.Results == nil || len(*resp.Results) == 0 {
		return nil, fmt.Errorf("geocoding %q: %w", location, ErrLocationNotFound)
	}

	r := (*resp.Results)[0]
	if r.Latitude == nil || r.Longitude == nil {
		return nil, fmt.Errorf("geocoding %q: %w: candidate has no coordinates", location, ErrLocationNotFound)
	}
	return &Place{
		Name:       r.Name,
		Country:    r.Country,
		Latitude:   *r.Latitude,
		Longitude:  *r.Longitude,
		Timezone:   r.Timezone,
		Population: r.Population,
	}, nil
}

// Current returns the raw forecast body with current temperature and wind
// speed at the given coordinates, in the requested temperature unit.
func (c *Client) Current(ctx context.Context, latitude, longitude float64, unit string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,wind_speed_10m")
	q.Set("temperature_unit", unit)

	body, err := c.get(ctx, c.weatherURL+"/v1/forecast?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("forecast: %w: %v", ErrMalformedResponse, err)
	}
	if resp.Current == nil || resp.Current.Temperature == nil || resp.Current.WindSpeed == nil {
		return nil, fmt.Errorf("forecast: %w: missing current conditions", ErrMalformedResponse)
	}

	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp apiError
		if json.Unmarshal(body, &errResp) == nil && errResp.Reason != "" {
			return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, errResp.Reason)
		}
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return body, nil
}
