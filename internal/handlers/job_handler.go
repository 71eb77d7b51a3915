package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nyumba/nyumba-api/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Get statistics about background jobs and the last billing sweep
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// RunBillingSweep triggers the daily billing sweep immediately
// @Summary Run billing sweep
// @Description Generate monthly invoices, mark overdue invoices and send reminders now
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.SweepSummary
// @Router /jobs/billing/run [post]
func (h *JobHandler) RunBillingSweep(c *gin.Context) {
	summary, err := h.jobService.RunBillingSweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
