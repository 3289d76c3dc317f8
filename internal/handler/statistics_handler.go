package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/companyim/talenta-api/internal/service"
	"github.com/companyim/talenta-api/pkg/response"
)

// StatisticsHandler exposes the aggregate read views and the export.
type StatisticsHandler struct {
	statistics *service.StatisticsService
}

// NewStatisticsHandler constructs StatisticsHandler.
func NewStatisticsHandler(statistics *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statistics: statistics}
}

// Overview godoc
// @Summary Headline attendance and talent counters
// @Tags Statistics
// @Produce json
// @Param grade query string false "Scope to a grade"
// @Param departmentId query string false "Scope to a department"
// @Success 200 {object} response.Envelope
// @Router /statistics/overview [get]
func (h *StatisticsHandler) Overview(c *gin.Context) {
	overview, cached, err := h.statistics.Overview(c.Request.Context(), c.Query("grade"), c.Query("departmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil, map[string]interface{}{"cached": cached})
}

// Student godoc
// @Summary Attendance counters for a single student
// @Tags Statistics
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /statistics/student/{id} [get]
func (h *StatisticsHandler) Student(c *gin.Context) {
	stats, err := h.statistics.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Period godoc
// @Summary Attendance counters between two dates
// @Tags Statistics
// @Produce json
// @Param startDate query string true "Start date (YYYY-MM-DD)"
// @Param endDate query string true "End date (YYYY-MM-DD)"
// @Param grade query string false "Scope to a grade"
// @Param departmentId query string false "Scope to a department"
// @Success 200 {object} response.Envelope
// @Router /statistics/period [get]
func (h *StatisticsHandler) Period(c *gin.Context) {
	stats, err := h.statistics.Period(c.Request.Context(), c.Query("startDate"), c.Query("endDate"), c.Query("grade"), c.Query("departmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Trend godoc
// @Summary Per-date attendance counts
// @Tags Statistics
// @Produce json
// @Param grade query string false "Scope to a grade"
// @Param departmentId query string false "Scope to a department"
// @Success 200 {object} response.Envelope
// @Router /statistics/trend [get]
func (h *StatisticsHandler) Trend(c *gin.Context) {
	points, err := h.statistics.Trend(c.Request.Context(), c.Query("grade"), c.Query("departmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points, nil)
}

// GradeComparison godoc
// @Summary Compare attendance and balances across grades
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics/grades [get]
func (h *StatisticsHandler) GradeComparison(c *gin.Context) {
	rows, err := h.statistics.GradeComparison(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// DepartmentComparison godoc
// @Summary Compare attendance and balances across departments
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics/departments [get]
func (h *StatisticsHandler) DepartmentComparison(c *gin.Context) {
	rows, err := h.statistics.DepartmentComparison(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// TalentDistribution godoc
// @Summary Bucket the transaction log by type
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics/talent [get]
func (h *StatisticsHandler) TalentDistribution(c *gin.Context) {
	rows, err := h.statistics.TalentDistribution(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Export the full dataset as CSV or PDF
// @Tags Statistics
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /statistics/export [get]
func (h *StatisticsHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.statistics.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Body)
}
