package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/trialsite/trial-importer/internal/errors"
	"github.com/trialsite/trial-importer/internal/importer"
	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/internal/store"
)

// ErrorResponse is the JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ImportRequest is the body for a manual import trigger. Manual defaults
// to true; passing false makes the run behave like a scheduled one and
// send the completion report mail.
type ImportRequest struct {
	NCTID  string `json:"nct_id"`
	Manual *bool  `json:"manual"`
}

// TrialResponse is one stored trial with its meta fields and terms.
type TrialResponse struct {
	ID         int64               `json:"id"`
	ExternalID string              `json:"external_id"`
	Title      string              `json:"title"`
	Status     string              `json:"status"`
	Fields     map[string]string   `json:"fields,omitempty"`
	Terms      map[string][]string `json:"terms,omitempty"`
}

type Handler struct {
	service *importer.Service
	store   store.Store
	logger  *logrus.Logger
}

func NewHandler(service *importer.Service, s store.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		service: service,
		store:   s,
		logger:  logger,
	}
}

// TriggerImport runs an import synchronously and returns the completed
// report. A body with nct_id restricts the run to that single record.
func (h *Handler) TriggerImport(c *gin.Context) {
	var req ImportRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}
	}

	manual := true
	if req.Manual != nil {
		manual = *req.Manual
	}

	report, err := h.service.RunImport(c.Request.Context(), importer.RunOptions{
		NCTID:  req.NCTID,
		Manual: manual,
	})
	if err != nil {
		switch {
		case apperrors.IsImportInProgress(err):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case apperrors.IsConfig(err):
			h.logger.Errorf("Import aborted on configuration error: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Import configuration is invalid"})
		default:
			h.logger.Errorf("Import run failed: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Import run failed"})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetProgress returns the in-flight run's progress. A run with no update
// for three minutes is reported as inactive.
func (h *Handler) GetProgress(c *gin.Context) {
	progress, active := h.service.Progress()
	c.JSON(http.StatusOK, gin.H{
		"active":   active,
		"progress": progress,
	})
}

// GetReport returns the most recent completed run's report.
func (h *Handler) GetReport(c *gin.Context) {
	report := h.service.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No import has completed yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListTrials lists all stored trials.
func (h *Handler) ListTrials(c *gin.Context) {
	posts, err := h.store.ListPosts(c.Request.Context(), models.PostTypeTrial)
	if err != nil {
		h.logger.Errorf("Failed to list trials: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list trials"})
		return
	}

	out := make([]TrialResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, TrialResponse{
			ID:         p.ID,
			ExternalID: p.ExternalID,
			Title:      p.Title,
			Status:     string(p.Status),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetTrial returns one stored trial with its fields and term assignments.
func (h *Handler) GetTrial(c *gin.Context) {
	nctID := c.Param("nctid")

	postID, err := h.store.FindByExternalID(c.Request.Context(), models.PostTypeTrial, nctID)
	if err != nil {
		h.logger.Errorf("Failed to look up trial %s: %v", nctID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to look up trial"})
		return
	}
	if postID == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Trial not found"})
		return
	}

	post, err := h.store.GetPost(c.Request.Context(), postID)
	if err != nil || post == nil {
		h.logger.Errorf("Failed to load trial %s: %v", nctID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load trial"})
		return
	}

	fields, err := h.store.GetFields(c.Request.Context(), postID)
	if err != nil {
		h.logger.Errorf("Failed to load trial fields %s: %v", nctID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load trial"})
		return
	}

	terms := make(map[string][]string)
	for _, taxonomy := range []string{
		importer.TaxonomyCondition,
		importer.TaxonomyKeyword,
		importer.TaxonomyStatus,
		importer.TaxonomyDrug,
		importer.TaxonomyAgeRange,
	} {
		values, err := h.store.GetTerms(c.Request.Context(), postID, taxonomy)
		if err != nil {
			continue
		}
		if len(values) > 0 {
			terms[taxonomy] = values
		}
	}

	c.JSON(http.StatusOK, TrialResponse{
		ID:         post.ID,
		ExternalID: post.ExternalID,
		Title:      post.Title,
		Status:     string(post.Status),
		Fields:     fields,
		Terms:      terms,
	})
}

// DeleteTrial trashes a trial and drops its location references. Locations
// the trial was the last to reference are removed entirely.
func (h *Handler) DeleteTrial(c *gin.Context) {
	nctID := c.Param("nctid")

	if err := h.service.RemoveTrial(c.Request.Context(), nctID); err != nil {
		h.logger.Errorf("Failed to remove trial %s: %v", nctID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to remove trial"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
