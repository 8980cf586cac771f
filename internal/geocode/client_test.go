package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsite/trial-importer/internal/config"
	apperrors "github.com/trialsite/trial-importer/internal/errors"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.GeocodeConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
	}, testLogger())
}

func TestGeocode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Paris, France", r.URL.Query().Get("address"))
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			w.Write([]byte(`{
				"status": "OK",
				"results": [{
					"address_components": [
						{"long_name": "Paris", "short_name": "Paris", "types": ["locality", "political"]},
						{"long_name": "France", "short_name": "FR", "types": ["country", "political"]},
						{"long_name": "75004", "short_name": "75004", "types": ["postal_code"]}
					],
					"geometry": {"location": {"lat": 48.8566, "lng": 2.3522}}
				}]
			}`))
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Geocode(context.Background(), "Paris, France")
		require.NoError(t, err)
		assert.Equal(t, "48.8566", result.Latitude)
		assert.Equal(t, "2.3522", result.Longitude)
		assert.Equal(t, "Paris", result.Components[ComponentLocality])
		assert.Equal(t, "France", result.Components[ComponentCountry])
		assert.Equal(t, "75004", result.Components[ComponentPostalCode])
	})

	t.Run("zero results is geocode error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Geocode(context.Background(), "nowhere")
		require.Error(t, err)
		assert.True(t, apperrors.IsGeocode(err))
	})

	t.Run("provider error message surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": "REQUEST_DENIED", "results": [], "error_message": "key invalid"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Geocode(context.Background(), "Paris")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REQUEST_DENIED")
		assert.Contains(t, err.Error(), "key invalid")
	})
}
