package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/companyim/talenta-api/internal/models"
	"github.com/companyim/talenta-api/internal/service"
	"github.com/companyim/talenta-api/internal/sundays"
	appErrors "github.com/companyim/talenta-api/pkg/errors"
	"github.com/companyim/talenta-api/pkg/response"
)

// TalentHandler exposes talent ledger endpoints.
type TalentHandler struct {
	talents *service.TalentService
}

// NewTalentHandler constructs TalentHandler.
func NewTalentHandler(talents *service.TalentService) *TalentHandler {
	return &TalentHandler{talents: talents}
}

// Summary godoc
// @Summary Get a student's talent balance and history
// @Tags Talents
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /talents/student/{id} [get]
func (h *TalentHandler) Summary(c *gin.Context) {
	summary, err := h.talents.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SummaryByName godoc
// @Summary Get a student's talent balance and history by name
// @Tags Talents
// @Produce json
// @Param name path string true "Student name"
// @Success 200 {object} response.Envelope
// @Router /talents/student/name/{name} [get]
func (h *TalentHandler) SummaryByName(c *gin.Context) {
	summary, err := h.talents.SummaryByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Transactions godoc
// @Summary List talent transactions
// @Tags Talents
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param name query string false "Filter by student name"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /talents/transactions [get]
func (h *TalentHandler) Transactions(c *gin.Context) {
	var filter models.TalentTransactionFilter
	filter.StudentID = c.Query("studentId")
	filter.StudentName = strings.TrimSpace(c.Query("name"))
	for query, dest := range map[string]**time.Time{
		"dateFrom": &filter.DateFrom,
		"dateTo":   &filter.DateTo,
	} {
		raw := c.Query(query)
		if raw == "" {
			continue
		}
		parsed, err := time.ParseInLocation(sundays.DateLayout, raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+query+", expected YYYY-MM-DD"))
			return
		}
		*dest = &parsed
	}

	transactions, err := h.talents.Transactions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, nil)
}

// Leaderboard godoc
// @Summary Rank students by talent balance
// @Tags Talents
// @Produce json
// @Param grade query string false "Filter by grade"
// @Param departmentId query string false "Filter by department"
// @Param limit query int false "Result size"
// @Success 200 {object} response.Envelope
// @Router /talents/leaderboard [get]
func (h *TalentHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if raw, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		limit = raw
	}
	students, cached, err := h.talents.Leaderboard(c.Request.Context(), c.Query("grade"), c.Query("departmentId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"cached": cached})
}

// GradeAggregate godoc
// @Summary Summarise talent balances for a grade
// @Tags Talents
// @Produce json
// @Param grade path string true "Grade"
// @Success 200 {object} response.Envelope
// @Router /talents/grade/{grade} [get]
func (h *TalentHandler) GradeAggregate(c *gin.Context) {
	aggregate, err := h.talents.GradeAggregate(c.Request.Context(), c.Param("grade"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate, nil)
}

// DepartmentAggregate godoc
// @Summary Summarise talent balances for a department
// @Tags Talents
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /talents/department/{id} [get]
func (h *TalentHandler) DepartmentAggregate(c *gin.Context) {
	aggregate, err := h.talents.DepartmentAggregate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate, nil)
}

// Adjust godoc
// @Summary Manually adjust a student's talent balance
// @Tags Talents
// @Accept json
// @Produce json
// @Param payload body service.AdjustTalentRequest true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Router /talents/adjust [post]
func (h *TalentHandler) Adjust(c *gin.Context) {
	var req service.AdjustTalentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.talents.Adjust(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
