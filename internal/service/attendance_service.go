package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/companyim/talenta-api/internal/models"
	"github.com/companyim/talenta-api/internal/repository"
	"github.com/companyim/talenta-api/internal/sundays"
	appErrors "github.com/companyim/talenta-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error)
	FindByKey(ctx context.Context, studentID string, date time.Time, typ models.AttendanceType) (*models.Attendance, error)
	UpsertWithLedger(ctx context.Context, record *models.Attendance, entries []models.TalentTransaction, delta int) (*models.AttendanceDetail, error)
	UpdateStatusWithLedger(ctx context.Context, id string, status models.AttendanceStatus, talentGiven int, entries []models.TalentTransaction, delta int) (*models.AttendanceDetail, error)
	DeleteWithLedger(ctx context.Context, id, studentID string, entries []models.TalentTransaction, delta int) error
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type attendanceDepartmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RecordAttendanceRequest is the payload for recording weekly attendance.
type RecordAttendanceRequest struct {
	StudentID    string `json:"studentId" validate:"required"`
	DepartmentID string `json:"departmentId"`
	Date         string `json:"date" validate:"required"`
	Status       string `json:"status" validate:"required"`
	Type         string `json:"type"`
}

// UpdateAttendanceRequest changes the status of an existing record.
type UpdateAttendanceRequest struct {
	Status string `json:"status" validate:"required"`
}

// AttendanceService owns the rule linking an attendance record's status to
// the student's talent balance and the append-only transaction log. Each
// mutation computes its ledger effects up front and hands them to the
// repository, which applies everything in one database transaction.
type AttendanceService struct {
	repo        attendanceRepository
	students    attendanceStudentReader
	departments attendanceDepartmentReader
	cache       cacheInvalidator
	calendar    *sundays.Calendar
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentReader, departments attendanceDepartmentReader, cache cacheInvalidator, calendar *sundays.Calendar, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        repo,
		students:    students,
		departments: departments,
		cache:       cache,
		calendar:    calendar,
		validator:   validate,
		logger:      logger,
	}
}

// List returns attendance rows and pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AvailableDates returns every valid attendance date of the configured year.
func (s *AttendanceService) AvailableDates() []string {
	return s.calendar.Dates()
}

// Record upserts the attendance row for (student, date, type) and settles
// the talent ledger. Calling it twice with identical arguments is a no-op
// the second time: the delta computes to zero and no transaction rows are
// appended.
func (s *AttendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*models.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	typ := models.AttendanceType(req.Type)
	if req.Type == "" {
		typ = models.AttendanceTypeGrade
	}
	if !typ.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance type must be grade or department")
	}
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance status must be present or absent")
	}
	if typ == models.AttendanceTypeDepartment && req.DepartmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department attendance requires a department")
	}
	date, ok := s.calendar.Parse(req.Date)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attendance is only allowed on Sundays of %d", s.calendar.Year()))
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var departmentID *string
	targetName := string(student.Grade)
	if typ == models.AttendanceTypeDepartment {
		department, err := s.departments.FindByID(ctx, req.DepartmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		departmentID = &department.ID
		targetName = department.Name
	}

	oldStatus := models.AttendanceStatus("")
	oldAmount := 0
	existing, err := s.repo.FindByKey(ctx, req.StudentID, date, typ)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if existing != nil {
		oldStatus = existing.Status
		oldAmount = existing.TalentGiven
	}

	record := &models.Attendance{
		StudentID:    req.StudentID,
		DepartmentID: departmentID,
		Date:         date,
		Status:       status,
		Type:         typ,
		TalentGiven:  talentFor(status),
	}
	entries, delta := s.ledgerEntries(typ, targetName, oldStatus, oldAmount, status)

	detail, err := s.repo.UpsertWithLedger(ctx, record, entries, delta)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this student, date and type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.invalidateCaches(ctx)
	s.logger.Info("attendance recorded",
		zap.String("student_id", req.StudentID),
		zap.String("date", req.Date),
		zap.String("type", string(typ)),
		zap.String("status", string(status)),
		zap.Int("talent_delta", delta),
	)
	return detail, nil
}

// UpdateStatus applies the ledger algorithm against a single row located by
// id. The row must already exist.
func (s *AttendanceService) UpdateStatus(ctx context.Context, id string, req UpdateAttendanceRequest) (*models.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance status must be present or absent")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	targetName := string(existing.StudentGrade)
	if existing.Type == models.AttendanceTypeDepartment && existing.DepartmentName != nil {
		targetName = *existing.DepartmentName
	}
	entries, delta := s.ledgerEntries(existing.Type, targetName, existing.Status, existing.TalentGiven, status)

	detail, err := s.repo.UpdateStatusWithLedger(ctx, id, status, talentFor(status), entries, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}

	s.invalidateCaches(ctx)
	return detail, nil
}

// Delete removes an attendance row, reversing its point effect first when
// the row had granted talent.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	var entries []models.TalentTransaction
	delta := 0
	if existing.Status == models.AttendanceStatusPresent && existing.TalentGiven > 0 {
		delta = -existing.TalentGiven
		entries = append(entries, models.TalentTransaction{
			Type:   models.TalentTransactionSpend,
			Amount: -existing.TalentGiven,
			Reason: "attendance record deleted",
		})
	}

	if err := s.repo.DeleteWithLedger(ctx, id, existing.StudentID, entries, delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}

	s.invalidateCaches(ctx)
	return nil
}

// ledgerEntries computes the two independent adjustments the balance rule is
// made of: reverse a previously granted point when a present row stops being
// present, then grant a fresh point when the new status is present and
// nothing was granted before. The two steps stay separate so each leaves its
// own audit row; they are not folded into a net new-minus-old amount.
func (s *AttendanceService) ledgerEntries(typ models.AttendanceType, targetName string, oldStatus models.AttendanceStatus, oldAmount int, newStatus models.AttendanceStatus) ([]models.TalentTransaction, int) {
	label := "grade"
	if typ == models.AttendanceTypeDepartment {
		label = "department"
	}

	var entries []models.TalentTransaction
	delta := 0

	if oldStatus == models.AttendanceStatusPresent && newStatus != models.AttendanceStatusPresent {
		delta -= oldAmount
		entries = append(entries, models.TalentTransaction{
			Type:   models.TalentTransactionSpend,
			Amount: -oldAmount,
			Reason: fmt.Sprintf("%s attendance status change reversal (%s)", label, targetName),
		})
	}

	if newStatus == models.AttendanceStatusPresent && oldAmount == 0 {
		delta++
		entries = append(entries, models.TalentTransaction{
			Type:   models.TalentTransactionEarn,
			Amount: 1,
			Reason: fmt.Sprintf("%s attendance reward (%s)", label, targetName),
		})
	}

	return entries, delta
}

func (s *AttendanceService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"talents:*", "statistics:*"} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func talentFor(status models.AttendanceStatus) int {
	if status == models.AttendanceStatusPresent {
		return 1
	}
	return 0
}
