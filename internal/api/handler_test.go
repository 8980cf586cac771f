package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/geocode"
	"github.com/trialsite/trial-importer/internal/importer"
	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/internal/registry"
	"github.com/trialsite/trial-importer/internal/store"
)

type stubSweep struct {
	studies []registry.FullStudy
}

func (s *stubSweep) FetchAll(ctx context.Context, expr string) ([]registry.FullStudy, int, error) {
	return s.studies, len(s.studies), nil
}

type stubSingle struct{}

func (stubSingle) FetchStudy(ctx context.Context, nctID string) (*registry.FullStudy, error) {
	return nil, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	return &geocode.Result{Latitude: "1", Longitude: "2", Components: map[string]string{}}, nil
}

func recruitingStudy(nctID string) registry.FullStudy {
	return registry.FullStudy{Study: registry.Study{ProtocolSection: registry.ProtocolSection{
		Identification: &registry.IdentificationModule{NCTID: nctID, BriefTitle: "Study " + nctID},
		Status:         &registry.StatusModule{OverallStatus: "Recruiting"},
		Locations: &registry.ContactsLocationsModule{LocationList: &registry.LocationList{
			Location: []registry.StudyLocation{{
				LocationFacility: "Facility " + nctID,
				LocationCity:     "Lyon",
				LocationCountry:  "France",
				LocationStatus:   "Recruiting",
			}},
		}},
	}}}
}

func newTestRouter(t *testing.T, mem *store.MemStore, sweep *stubSweep) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	schemaPath := filepath.Join(t.TempDir(), "field_groups.json")
	require.NoError(t, os.WriteFile(schemaPath,
		[]byte(`{"fields":[{"name":"sponsor","type":"scalar"},{"name":"trial_status","type":"scalar"}]}`), 0o644))

	cfg := &config.Config{
		Port:               "8080",
		DBConnectionString: "test",
		CronSpec:           "0 3 * * 0",
		Registry: config.RegistryConfig{
			BaseURL:          "https://registry.example/api/query",
			PageSize:         30,
			AllowedStatuses:  []string{"Recruiting"},
			LocationStatuses: []string{"Recruiting"},
		},
		Import: config.ImportConfig{
			DiffPolicy:     config.DiffPolicyAudit,
			FieldGroupPath: schemaPath,
			RunTimeout:     time.Minute,
		},
	}

	filter := registry.NewFilterEngine(&cfg.Registry, logger)
	resolver := geocode.NewResolver(mem, stubGeocoder{}, logger)
	reporter := importer.NewReporter(cfg.Mail, logger)
	service := importer.NewService(cfg, mem, sweep, stubSingle{}, filter, resolver, reporter, logger)

	return SetupRouter(NewHandler(service, mem, logger))
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, store.NewMemStore(), &stubSweep{})
	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerImport(t *testing.T) {
	mem := store.NewMemStore()
	router := newTestRouter(t, mem, &stubSweep{studies: []registry.FullStudy{recruitingStudy("NCT001")}})

	w := doRequest(router, http.MethodPost, "/api/v1/import", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report models.ImportReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.New)

	id, err := mem.FindByExternalID(context.Background(), models.PostTypeTrial, "NCT001")
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestTriggerImportManualOverride(t *testing.T) {
	mem := store.NewMemStore()
	router := newTestRouter(t, mem, &stubSweep{studies: []registry.FullStudy{recruitingStudy("NCT003")}})

	w := doRequest(router, http.MethodPost, "/api/v1/import", `{"manual": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.ImportReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.New)
}

func TestTriggerImportBadBody(t *testing.T) {
	router := newTestRouter(t, store.NewMemStore(), &stubSweep{})
	w := doRequest(router, http.MethodPost, "/api/v1/import", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProgressIdle(t *testing.T) {
	router := newTestRouter(t, store.NewMemStore(), &stubSweep{})
	w := doRequest(router, http.MethodGet, "/api/v1/import/progress", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Active bool `json:"active"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
}

func TestGetReport(t *testing.T) {
	router := newTestRouter(t, store.NewMemStore(), &stubSweep{studies: []registry.FullStudy{recruitingStudy("NCT001")}})

	t.Run("before any run", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/import/report", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("after a run", func(t *testing.T) {
		require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/import", "").Code)

		w := doRequest(router, http.MethodGet, "/api/v1/import/report", "")
		require.Equal(t, http.StatusOK, w.Code)

		var report models.ImportReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, 1, report.New)
	})
}

func TestTrialEndpoints(t *testing.T) {
	mem := store.NewMemStore()
	router := newTestRouter(t, mem, &stubSweep{studies: []registry.FullStudy{recruitingStudy("NCT001")}})
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/import", "").Code)

	t.Run("list", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/trials", "")
		require.Equal(t, http.StatusOK, w.Code)

		var trials []TrialResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trials))
		require.Len(t, trials, 1)
		assert.Equal(t, "NCT001", trials[0].ExternalID)
		assert.Equal(t, string(models.StatusDraft), trials[0].Status)
	})

	t.Run("get by id", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/trials/NCT001", "")
		require.Equal(t, http.StatusOK, w.Code)

		var trial TrialResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trial))
		assert.Equal(t, "NCT001", trial.ExternalID)
		assert.Equal(t, []string{"Recruiting"}, trial.Terms[importer.TaxonomyStatus])
	})

	t.Run("get unknown id", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/trials/NCT999", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, "/api/v1/trials/NCT001", "")
		require.Equal(t, http.StatusNoContent, w.Code)

		ctx := context.Background()
		id, err := mem.FindByExternalID(ctx, models.PostTypeTrial, "NCT001")
		require.NoError(t, err)
		post, err := mem.GetPost(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusTrash, post.Status)

		locID, err := mem.FindByExternalID(ctx, models.PostTypeLocation, "facility-nct001")
		require.NoError(t, err)
		assert.Zero(t, locID, "last trial reference removal deletes the location")
	})
}
