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
	appErrors "github.com/companyim/talenta-api/pkg/errors"
)

type talentRepository interface {
	TransactionsByStudent(ctx context.Context, studentID string, limit int) ([]models.TalentTransaction, error)
	ListTransactions(ctx context.Context, filter models.TalentTransactionFilter) ([]models.TalentTransaction, error)
	Leaderboard(ctx context.Context, grade, departmentID string, limit int) ([]models.StudentDetail, error)
	ListByGroup(ctx context.Context, grade, departmentID string) ([]models.StudentDetail, error)
	Adjust(ctx context.Context, studentID string, amount int, reason string) (*models.Student, *models.TalentTransaction, error)
}

type talentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByName(ctx context.Context, name string) (*models.StudentDetail, error)
}

type talentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AdjustTalentRequest is a manual balance correction outside the attendance
// flow. Amount is a pointer so that an explicit zero still passes the
// presence check; any signed integer is a valid adjustment.
type AdjustTalentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	Amount    *int   `json:"amount" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// AdjustTalentResponse returns the updated student and the appended entry.
type AdjustTalentResponse struct {
	Student     models.Student           `json:"student"`
	Transaction models.TalentTransaction `json:"transaction"`
}

// TalentService exposes the talent ledger read views and manual
// adjustments.
type TalentService struct {
	repo           talentRepository
	students       talentStudentReader
	cache          talentCache
	leaderboardTTL time.Duration
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewTalentService constructs the talent service.
func NewTalentService(repo talentRepository, students talentStudentReader, cache talentCache, leaderboardTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *TalentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TalentService{
		repo:           repo,
		students:       students,
		cache:          cache,
		leaderboardTTL: leaderboardTTL,
		validator:      validate,
		logger:         logger,
	}
}

// Summary returns a student's balance and full transaction history.
func (s *TalentService) Summary(ctx context.Context, studentID string) (*models.TalentSummary, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.summary(ctx, student)
}

// SummaryByName resolves the student by exact name first.
func (s *TalentService) SummaryByName(ctx context.Context, name string) (*models.TalentSummary, error) {
	student, err := s.students.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.summary(ctx, student)
}

func (s *TalentService) summary(ctx context.Context, student *models.StudentDetail) (*models.TalentSummary, error) {
	transactions, err := s.repo.TransactionsByStudent(ctx, student.ID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transactions")
	}
	return &models.TalentSummary{Student: *student, Transactions: transactions}, nil
}

// Transactions lists the transaction log for the given filter.
func (s *TalentService) Transactions(ctx context.Context, filter models.TalentTransactionFilter) ([]models.TalentTransaction, error) {
	if filter.StudentName != "" {
		student, err := s.students.FindByName(ctx, filter.StudentName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []models.TalentTransaction{}, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
		}
		filter.StudentID = student.ID
		filter.StudentName = ""
	}
	transactions, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	return transactions, nil
}

// Leaderboard returns the ranking, cache-aside. Cache failures fall back to
// the database read.
func (s *TalentService) Leaderboard(ctx context.Context, grade, departmentID string, limit int) ([]models.StudentDetail, bool, error) {
	key := fmt.Sprintf("talents:leaderboard:%s:%s:%d", grade, departmentID, limit)
	if s.cache != nil {
		var cached []models.StudentDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		}
	}

	students, err := s.repo.Leaderboard(ctx, grade, departmentID, limit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, students, s.leaderboardTTL); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return students, false, nil
}

// GradeAggregate summarises balances across a grade.
func (s *TalentService) GradeAggregate(ctx context.Context, grade string) (*models.TalentAggregate, error) {
	if !models.Grade(grade).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid grade")
	}
	students, err := s.repo.ListByGroup(ctx, grade, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade talents")
	}
	return aggregate(students), nil
}

// DepartmentAggregate summarises balances across a department.
func (s *TalentService) DepartmentAggregate(ctx context.Context, departmentID string) (*models.TalentAggregate, error) {
	students, err := s.repo.ListByGroup(ctx, "", departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department talents")
	}
	return aggregate(students), nil
}

// Adjust applies a manual correction: one balance increment plus one adjust
// transaction, atomically.
func (s *TalentService) Adjust(ctx context.Context, req AdjustTalentRequest) (*AdjustTalentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student, transaction, err := s.repo.Adjust(ctx, req.StudentID, *req.Amount, req.Reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust talent")
	}

	s.logger.Info("talent adjusted",
		zap.String("student_id", req.StudentID),
		zap.Int("amount", *req.Amount),
		zap.String("reason", req.Reason),
	)
	return &AdjustTalentResponse{Student: *student, Transaction: *transaction}, nil
}

func aggregate(students []models.StudentDetail) *models.TalentAggregate {
	total := 0
	for _, student := range students {
		total += student.Talent
	}
	agg := &models.TalentAggregate{
		Students:     students,
		TotalTalent:  total,
		StudentCount: len(students),
	}
	if len(students) > 0 {
		agg.AverageTalent = float64(total) / float64(len(students))
	}
	return agg
}
