package registry

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
	cfg := testRegistryConfig()
	cfg.BaseURL = baseURL
	cfg.RequestTimeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	return NewClient(cfg, testLogger())
}

func TestBuildExpr(t *testing.T) {
	t.Run("conditions or-joined", func(t *testing.T) {
		expr := BuildExpr(&config.RegistryConfig{
			AllowedConditions: []string{"Melanoma", "Lymphoma"},
		})
		assert.Equal(t, "(Melanoma OR Lymphoma)", expr)
	})

	t.Run("denied conditions become not clauses", func(t *testing.T) {
		expr := BuildExpr(&config.RegistryConfig{
			AllowedConditions: []string{"Melanoma"},
			DeniedConditions:  []string{"Pediatric"},
		})
		assert.Equal(t, "(Melanoma) AND NOT Pediatric", expr)
	})

	t.Run("countries statuses and sponsor", func(t *testing.T) {
		expr := BuildExpr(&config.RegistryConfig{
			AllowedCountries: []string{"France"},
			AllowedStatuses:  []string{"Recruiting"},
			Sponsor:          "Acme Pharma",
		})
		assert.Contains(t, expr, "SEARCH[Location](AREA[LocationCountry]France)")
		assert.Contains(t, expr, `AREA[OverallStatus]"Recruiting"`)
		assert.Contains(t, expr, `AREA[LeadSponsorName]"Acme Pharma"`)
	})

	t.Run("empty config yields empty expr", func(t *testing.T) {
		assert.Empty(t, BuildExpr(&config.RegistryConfig{}))
	})
}

func TestFetchPage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "melanoma", r.URL.Query().Get("expr"))
			assert.Equal(t, "1", r.URL.Query().Get("min_rnk"))
			assert.Equal(t, "30", r.URL.Query().Get("max_rnk"))
			assert.Equal(t, "json", r.URL.Query().Get("fmt"))
			w.Write([]byte(`{"FullStudiesResponse":{"NStudiesFound":1,"FullStudies":[{"Rank":1,"Study":{"ProtocolSection":{"IdentificationModule":{"NCTId":"NCT001"}}}}]}}`))
		}))
		defer server.Close()

		resp, err := newTestClient(server.URL).FetchPage(context.Background(), "melanoma", 1, 30)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.NStudiesFound)
		require.Len(t, resp.FullStudies, 1)
		assert.Equal(t, "NCT001", resp.FullStudies[0].Study.ProtocolSection.Identification.NCTID)
	})

	t.Run("server errors retried then upstream error", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchPage(context.Background(), "melanoma", 1, 30)
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
		assert.Equal(t, 2, calls)
	})

	t.Run("client error not retried", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchPage(context.Background(), "melanoma", 1, 30)
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("missing wrapper is parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchPage(context.Background(), "melanoma", 1, 30)
		require.Error(t, err)
		assert.True(t, apperrors.IsParse(err))
	})
}

func TestFetchStudy(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "AREA[NCTId]NCT001", r.URL.Query().Get("expr"))
			w.Write([]byte(`{"FullStudiesResponse":{"NStudiesFound":1,"FullStudies":[{"Rank":1,"Study":{"ProtocolSection":{"IdentificationModule":{"NCTId":"NCT001"}}}}]}}`))
		}))
		defer server.Close()

		study, err := newTestClient(server.URL).FetchStudy(context.Background(), "NCT001")
		require.NoError(t, err)
		require.NotNil(t, study)
		assert.Equal(t, "NCT001", study.Study.ProtocolSection.Identification.NCTID)
	})

	t.Run("absent returns nil without error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"FullStudiesResponse":{"NStudiesFound":0,"FullStudies":[]}}`))
		}))
		defer server.Close()

		study, err := newTestClient(server.URL).FetchStudy(context.Background(), "NCT999")
		require.NoError(t, err)
		assert.Nil(t, study)
	})
}
