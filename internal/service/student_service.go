package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/companyim/talenta-api/internal/models"
	appErrors "github.com/companyim/talenta-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByName(ctx context.Context, name string) (*models.StudentDetail, error)
	RanksByGrade(ctx context.Context, grade models.Grade) ([]models.StudentRank, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateDepartment(ctx context.Context, id string, departmentID *string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type studentDepartmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type studentAttendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
}

type studentTransactionReader interface {
	TransactionsByStudent(ctx context.Context, studentID string, limit int) ([]models.TalentTransaction, error)
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	Name         string  `json:"name" validate:"required"`
	BaptismName  *string `json:"baptismName"`
	Grade        string  `json:"grade" validate:"required"`
	DepartmentID *string `json:"departmentId"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	Name         string  `json:"name" validate:"required"`
	BaptismName  *string `json:"baptismName"`
	Grade        string  `json:"grade" validate:"required"`
	DepartmentID *string `json:"departmentId"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
}

// StudentProfile is the detail view: the student with their recent
// attendance and transaction history.
type StudentProfile struct {
	Student      models.StudentDetail       `json:"student"`
	Attendance   []models.AttendanceDetail  `json:"attendance"`
	Transactions []models.TalentTransaction `json:"transactions"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo         studentRepository
	departments  studentDepartmentReader
	attendance   studentAttendanceReader
	transactions studentTransactionReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, departments studentDepartmentReader, attendance studentAttendanceReader, transactions studentTransactionReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:         repo,
		departments:  departments,
		attendance:   attendance,
		transactions: transactions,
		validator:    validate,
		logger:       logger,
	}
}

// List returns students with derived student numbers and pagination
// metadata. Numbers are assigned within the fetched set, grouped by grade
// and ordered by name.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	assignStudentNumbers(students)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Search returns students whose name or baptismal name contains the query.
func (s *StudentService) Search(ctx context.Context, name string) ([]models.StudentDetail, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}
	students, _, err := s.repo.List(ctx, models.StudentFilter{Search: name, PageSize: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search students")
	}
	assignStudentNumbers(students)
	return students, nil
}

// Get returns the student profile with recent attendance and transactions.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentProfile, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.profile(ctx, student)
}

// GetByName resolves a student by exact name. The student number is derived
// from the full grade roster so it matches the list view.
func (s *StudentService) GetByName(ctx context.Context, name string) (*StudentProfile, error) {
	student, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.profile(ctx, student)
}

func (s *StudentService) profile(ctx context.Context, student *models.StudentDetail) (*StudentProfile, error) {
	number, err := s.studentNumber(ctx, student)
	if err != nil {
		s.logger.Warn("failed to derive student number", zap.String("student_id", student.ID), zap.Error(err))
	}
	student.StudentNumber = number

	attendance, _, err := s.attendance.List(ctx, models.AttendanceFilter{StudentID: student.ID, PageSize: 20})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	transactions, err := s.transactions.TransactionsByStudent(ctx, student.ID, 20)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction history")
	}
	return &StudentProfile{Student: *student, Attendance: attendance, Transactions: transactions}, nil
}

// studentNumber computes the student's position within their grade roster.
func (s *StudentService) studentNumber(ctx context.Context, student *models.StudentDetail) (string, error) {
	ranks, err := s.repo.RanksByGrade(ctx, student.Grade)
	if err != nil {
		return "", err
	}
	for i, rank := range ranks {
		if rank.ID == student.ID {
			return fmt.Sprintf("%s-%d", student.Grade.NumberPrefix(), i+1), nil
		}
	}
	return "", nil
}

// Create registers a new student with a zero talent balance.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	grade := models.Grade(req.Grade)
	if !grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid grade")
	}
	departmentID, err := s.resolveDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:         req.Name,
		BaptismName:  req.BaptismName,
		Grade:        grade,
		DepartmentID: departmentID,
		Talent:       0,
		Email:        req.Email,
		Phone:        req.Phone,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	detail, err := s.repo.FindByID(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}
	if number, err := s.studentNumber(ctx, detail); err == nil {
		detail.StudentNumber = number
	}
	return detail, nil
}

// Update modifies an existing student record. The talent balance is out of
// scope here; only the ledger changes it.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	grade := models.Grade(req.Grade)
	if !grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid grade")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	departmentID, err := s.resolveDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	student := detail.Student
	student.Name = req.Name
	student.BaptismName = req.BaptismName
	student.Grade = grade
	student.DepartmentID = departmentID
	student.Email = req.Email
	student.Phone = req.Phone
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}
	return updated, nil
}

// ChangeDepartment moves a student to another department; nil clears it.
func (s *StudentService) ChangeDepartment(ctx context.Context, id string, departmentID *string) (*models.StudentDetail, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	resolved, err := s.resolveDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDepartment(ctx, id, resolved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change department")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}
	return updated, nil
}

// Delete removes a student; attendance and transaction rows cascade away
// with them.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// DeleteAll wipes the whole roster.
func (s *StudentService) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete students")
	}
	s.logger.Info("all students deleted", zap.Int64("count", deleted))
	return deleted, nil
}

func (s *StudentService) resolveDepartment(ctx context.Context, departmentID *string) (*string, error) {
	if departmentID == nil || *departmentID == "" {
		return nil, nil
	}
	department, err := s.departments.FindByID(ctx, *departmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return &department.ID, nil
}

// assignStudentNumbers derives display numbers for a fetched set: students
// are grouped by grade, ordered by name, and numbered 1-based with the
// grade prefix.
func assignStudentNumbers(students []models.StudentDetail) {
	byGrade := make(map[models.Grade][]*models.StudentDetail)
	for i := range students {
		student := &students[i]
		byGrade[student.Grade] = append(byGrade[student.Grade], student)
	}
	for grade, group := range byGrade {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Name < group[j].Name
		})
		prefix := grade.NumberPrefix()
		for i, student := range group {
			student.StudentNumber = fmt.Sprintf("%s-%d", prefix, i+1)
		}
	}
}
