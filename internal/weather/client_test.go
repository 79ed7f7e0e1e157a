package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parisGeocode = `{"results":[{"name":"Paris","country":"France","latitude":48.85341,"longitude":2.3488,"timezone":"Europe/Paris","population":2138551}]}`

const parisForecast = `{"latitude":48.86,"longitude":2.34,"current":{"time":"2026-10-19T12:00","temperature_2m":14.2,"wind_speed_10m":9.8}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.URL, time.Second)
}

func TestGeocode(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		gotQuery = map[string]string{
			"name":     r.URL.Query().Get("name"),
			"count":    r.URL.Query().Get("count"),
			"language": r.URL.Query().Get("language"),
			"format":   r.URL.Query().Get("format"),
		}
		fmt.Fprint(w, parisGeocode)
	})

	place, err := client.Geocode(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"name": "Paris", "count": "1", "language": "en", "format": "json"}, gotQuery)
	assert.Equal(t, "Paris", place.Name)
	assert.Equal(t, "France", place.Country)
	assert.Equal(t, "Europe/Paris", place.Timezone)
	assert.InDelta(t, 48.85341, place.Latitude, 1e-9)
	assert.EqualValues(t, 2138551, place.Population)
}

func TestGeocodeEscapesLocation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "São Paulo & more", r.URL.Query().Get("name"))
		fmt.Fprint(w, parisGeocode)
	})

	_, err := client.Geocode(context.Background(), "São Paulo & more")
	require.NoError(t, err)
}

func TestGeocodeLocationNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing results", body: `{"generationtime_ms":0.5}`},
		{name: "empty results", body: `{"results":[]}`},
		{name: "null results", body: `{"results":null}`},
		{name: "not json", body: `not json`},
		{name: "results not an array", body: `{"results":"oops"}`},
		{name: "truncated body", body: `{"results":"nope"`},
		{name: "candidate without coordinates", body: `{"results":[{"name":"Nowhere"}]}`},
		{name: "candidate without longitude", body: `{"results":[{"name":"Nowhere","latitude":1.5}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			})

			_, err := client.Geocode(context.Background(), "Zzznotaplace")
			assert.ErrorIs(t, err, ErrLocationNotFound)
		})
	}
}

func TestGeocodeKeepsZeroCoordinates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"name":"Null Island","latitude":0,"longitude":0}]}`)
	})

	place, err := client.Geocode(context.Background(), "Null Island")
	require.NoError(t, err)
	assert.Equal(t, 0.0, place.Latitude)
	assert.Equal(t, 0.0, place.Longitude)
}

func TestGeocodeUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":true,"reason":"Parameter count must be between 1 and 100."}`)
	})

	_, err := client.Geocode(context.Background(), "Paris")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.ErrorContains(t, err, "Parameter count must be between 1 and 100.")
}

func TestCurrent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "48.85341", q.Get("latitude"))
		assert.Equal(t, "2.3488", q.Get("longitude"))
		assert.Equal(t, "temperature_2m,wind_speed_10m", q.Get("current"))
		assert.Equal(t, "celsius", q.Get("temperature_unit"))
		fmt.Fprint(w, parisForecast)
	})

	raw, err := client.Current(context.Background(), 48.85341, 2.3488, "celsius")
	require.NoError(t, err)
	assert.JSONEq(t, parisForecast, string(raw))
}

func TestCurrentMissingConditions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"latitude": 1.0})
	})

	_, err := client.Current(context.Background(), 1, 2, "fahrenheit")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCurrentNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	client := NewClient(server.URL, server.URL, time.Second)

	_, err := client.Current(context.Background(), 1, 2, "celsius")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrLocationNotFound)
}

func TestCurrentHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Current(ctx, 1, 2, "celsius")
	assert.ErrorIs(t, err, context.Canceled)
}
