package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", h.Health)

	// API v1 group
	v1 := r.Group("/api/v1")
	{
		imports := v1.Group("/import")
		{
			// @Summary Trigger an import run
			// @Description Run an import synchronously; an optional nct_id body field restricts the run to one record
			// @Tags import
			// @Accept json
			// @Produce json
			// @Param request body ImportRequest false "Import options"
			// @Success 200 {object} models.ImportReport
			// @Failure 409 {object} ErrorResponse "Import already in progress"
			// @Failure 500 {object} ErrorResponse
			// @Router /import [post]
			imports.POST("", h.TriggerImport)

			// @Summary Get import progress
			// @Description Get the current run's progress; runs stale for three minutes report inactive
			// @Tags import
			// @Produce json
			// @Success 200 {object} map[string]interface{}
			// @Router /import/progress [get]
			imports.GET("/progress", h.GetProgress)

			// @Summary Get the last import report
			// @Description Get the report of the most recent completed run
			// @Tags import
			// @Produce json
			// @Success 200 {object} models.ImportReport
			// @Failure 404 {object} ErrorResponse
			// @Router /import/report [get]
			imports.GET("/report", h.GetReport)
		}

		trials := v1.Group("/trials")
		{
			// @Summary List stored trials
			// @Tags trials
			// @Produce json
			// @Success 200 {array} TrialResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /trials [get]
			trials.GET("", h.ListTrials)

			// @Summary Get a stored trial
			// @Description Get one trial with its fields and term assignments
			// @Tags trials
			// @Produce json
			// @Param nctid path string true "Trial external id"
			// @Success 200 {object} TrialResponse
			// @Failure 404 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /trials/{nctid} [get]
			trials.GET("/:nctid", h.GetTrial)

			// @Summary Remove a stored trial
			// @Description Trash a trial and drop its location references
			// @Tags trials
			// @Produce json
			// @Param nctid path string true "Trial external id"
			// @Success 204 "No Content"
			// @Failure 500 {object} ErrorResponse
			// @Router /trials/{nctid} [delete]
			trials.DELETE("/:nctid", h.DeleteTrial)
		}
	}

	return r
}
