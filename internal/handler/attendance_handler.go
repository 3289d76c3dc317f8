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

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param studentId query string false "Filter by student"
// @Param name query string false "Filter by student name"
// @Param grade query string false "Filter by grade"
// @Param departmentId query string false "Filter by department"
// @Param type query string false "Filter by type (grade or department)"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Dates godoc
// @Summary List the dates attendance may be recorded on
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/available-dates [get]
func (h *AttendanceHandler) Dates(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.attendance.AvailableDates(), nil)
}

// ByGrade godoc
// @Summary List attendance for a grade
// @Tags Attendance
// @Produce json
// @Param grade path string true "Grade"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/grade/{grade} [get]
func (h *AttendanceHandler) ByGrade(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Grade = c.Param("grade")
	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ByDepartment godoc
// @Summary List attendance for a department
// @Tags Attendance
// @Produce json
// @Param id path string true "Department ID"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/department/{id} [get]
func (h *AttendanceHandler) ByDepartment(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.DepartmentID = c.Param("id")
	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ByStudentName godoc
// @Summary List attendance for a student by name
// @Tags Attendance
// @Produce json
// @Param name path string true "Student name"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{name} [get]
func (h *AttendanceHandler) ByStudentName(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.StudentName = c.Param("name")
	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Record godoc
// @Summary Record attendance for a student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateStatus godoc
// @Summary Update the status of an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body service.UpdateAttendanceRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func attendanceFilterFromQuery(c *gin.Context) (models.AttendanceFilter, error) {
	var filter models.AttendanceFilter
	filter.StudentID = c.Query("studentId")
	filter.StudentName = strings.TrimSpace(c.Query("name"))
	filter.Grade = c.Query("grade")
	filter.DepartmentID = c.Query("departmentId")
	filter.Type = c.Query("type")

	for query, dest := range map[string]**time.Time{
		"date":     &filter.Date,
		"dateFrom": &filter.DateFrom,
		"dateTo":   &filter.DateTo,
	} {
		raw := c.Query(query)
		if raw == "" {
			continue
		}
		parsed, err := time.ParseInLocation(sundays.DateLayout, raw, time.UTC)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid "+query+", expected YYYY-MM-DD")
		}
		*dest = &parsed
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}
