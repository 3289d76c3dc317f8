package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/companyim/talenta-api/internal/models"
)

const studentDetailSelect = `SELECT s.id, s.name, s.baptism_name, s.grade, s.department_id, s.talent, s.email, s.phone, s.created_at, s.updated_at,
        d.name AS department_name`

const studentDetailFrom = `FROM students s
LEFT JOIN departments d ON d.id = s.department_id`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters, ordered by grade then
// name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.baptism_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, pattern)
	}
	if filter.Grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.DepartmentID != "" {
		where = append(where, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s\n        %s WHERE %s\n        ORDER BY s.grade ASC, s.name ASC\n        LIMIT %d OFFSET %d",
		studentDetailSelect, studentDetailFrom, whereClause, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", studentDetailFrom, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("%s\n        %s WHERE s.id = $1", studentDetailSelect, studentDetailFrom)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByName fetches the first student with the given exact name.
func (r *StudentRepository) FindByName(ctx context.Context, name string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("%s\n        %s WHERE s.name = $1\n        ORDER BY s.created_at ASC LIMIT 1", studentDetailSelect, studentDetailFrom)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, name); err != nil {
		return nil, err
	}
	return &detail, nil
}

// RanksByGrade returns every student of a grade ordered by name; the
// position in the result is the student's number within the grade.
func (r *StudentRepository) RanksByGrade(ctx context.Context, grade models.Grade) ([]models.StudentRank, error) {
	const query = `SELECT id, name, grade FROM students WHERE grade = $1 ORDER BY name ASC`
	var ranks []models.StudentRank
	if err := r.db.SelectContext(ctx, &ranks, query, grade); err != nil {
		return nil, fmt.Errorf("rank students: %w", err)
	}
	return ranks, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, baptism_name, grade, department_id, talent, email, phone, created_at, updated_at)
        VALUES (:id, :name, :baptism_name, :grade, :department_id, :talent, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. The talent balance is never written
// here; only the ledger paths touch it.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, baptism_name = :baptism_name, grade = :grade, department_id = :department_id, email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateDepartment moves a student to another department (or none).
func (r *StudentRepository) UpdateDepartment(ctx context.Context, id string, departmentID *string) error {
	const query = `UPDATE students SET department_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, departmentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student department: %w", err)
	}
	return nil
}

// Delete removes a student; attendance and transaction rows cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// DeleteAll wipes every student together with their dependent rows.
func (r *StudentRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students`)
	if err != nil {
		return 0, fmt.Errorf("delete all students: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// CountByDepartment reports how many students reference a department.
func (r *StudentRepository) CountByDepartment(ctx context.Context, departmentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE department_id = $1`, departmentID); err != nil {
		return 0, fmt.Errorf("count department students: %w", err)
	}
	return count, nil
}

// ListByDepartment returns a department's roster ordered by name.
func (r *StudentRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error) {
	const query = `SELECT id, name, baptism_name, grade, department_id, talent, email, phone, created_at, updated_at
        FROM students WHERE department_id = $1 ORDER BY name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department students: %w", err)
	}
	return students, nil
}
