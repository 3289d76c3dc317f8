package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/companyim/talenta-api/internal/models"
)

const attendanceDetailSelect = `SELECT a.id, a.student_id, a.department_id, a.date, a.status, a.type, a.talent_given, a.created_at, a.updated_at,
        s.name AS student_name, s.grade AS student_grade, d.name AS department_name`

const attendanceDetailFrom = `FROM attendance a
JOIN students s ON s.id = a.student_id
LEFT JOIN departments d ON d.id = a.department_id`

// AttendanceRepository handles persistence for attendance rows and the
// talent ledger writes coupled to them. Every mutating method runs its full
// read-modify-write sequence inside one database transaction.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation, e.g. a concurrent insert for the same (student, date, type).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// List returns attendance rows matching the provided filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.StudentName != "" {
		where = append(where, fmt.Sprintf("s.name = $%d", len(args)+1))
		args = append(args, filter.StudentName)
	}
	if filter.Grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.DepartmentID != "" {
		where = append(where, fmt.Sprintf("a.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("a.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("a.date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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

	query := fmt.Sprintf("%s\n        %s WHERE %s\n        ORDER BY a.date DESC, a.created_at DESC\n        LIMIT %d OFFSET %d",
		attendanceDetailSelect, attendanceDetailFrom, whereClause, size, offset)

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", attendanceDetailFrom, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches a single attendance row with its student and department.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	query := fmt.Sprintf("%s\n        %s WHERE a.id = $1", attendanceDetailSelect, attendanceDetailFrom)
	var detail models.AttendanceDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByKey locates the attendance row for a (student, date, type) triple.
func (r *AttendanceRepository) FindByKey(ctx context.Context, studentID string, date time.Time, typ models.AttendanceType) (*models.Attendance, error) {
	const query = `SELECT id, student_id, department_id, date, status, type, talent_given, created_at, updated_at
        FROM attendance WHERE student_id = $1 AND date = $2 AND type = $3`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, studentID, date, typ); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertWithLedger writes the attendance row and its ledger effects as one
// atomic unit: upsert on (student_id, date, type), append the prepared
// transactions, and apply the balance delta to the student. Either every
// write commits or none do.
func (r *AttendanceRepository) UpsertWithLedger(ctx context.Context, record *models.Attendance, entries []models.TalentTransaction, delta int) (*models.AttendanceDetail, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attendance upsert: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO attendance (id, student_id, department_id, date, status, type, talent_given, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, date, type)
DO UPDATE SET status = EXCLUDED.status, talent_given = EXCLUDED.talent_given, department_id = EXCLUDED.department_id, updated_at = EXCLUDED.updated_at
RETURNING id`
	var storedID string
	if err := tx.QueryRowxContext(ctx, upsert, record.ID, record.StudentID, record.DepartmentID, record.Date, record.Status, record.Type, record.TalentGiven, record.CreatedAt, record.UpdatedAt).Scan(&storedID); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}

	if err := applyLedger(ctx, tx, record.StudentID, storedID, entries, delta); err != nil {
		return nil, err
	}

	detail, err := findDetailTx(ctx, tx, storedID)
	if err != nil {
		return nil, fmt.Errorf("reload attendance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance upsert: %w", err)
	}
	committed = true
	return detail, nil
}

// UpdateStatusWithLedger changes the status of an existing row and applies
// the prepared ledger effects in the same transaction.
func (r *AttendanceRepository) UpdateStatusWithLedger(ctx context.Context, id string, status models.AttendanceStatus, talentGiven int, entries []models.TalentTransaction, delta int) (*models.AttendanceDetail, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attendance update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const update = `UPDATE attendance SET status = $2, talent_given = $3, updated_at = $4 WHERE id = $1 RETURNING student_id`
	var studentID string
	if err := tx.QueryRowxContext(ctx, update, id, status, talentGiven, time.Now().UTC()).Scan(&studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("update attendance: %w", err)
	}

	if err := applyLedger(ctx, tx, studentID, id, entries, delta); err != nil {
		return nil, err
	}

	detail, err := findDetailTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("reload attendance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance update: %w", err)
	}
	committed = true
	return detail, nil
}

// DeleteWithLedger removes the row after reversing its point effect, all in
// one transaction.
func (r *AttendanceRepository) DeleteWithLedger(ctx context.Context, id, studentID string, entries []models.TalentTransaction, delta int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance delete: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := applyLedger(ctx, tx, studentID, id, entries, delta); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance delete: %w", err)
	}
	committed = true
	return nil
}

// applyLedger appends the transaction entries and applies the net balance
// delta inside the caller's transaction.
func applyLedger(ctx context.Context, tx *sqlx.Tx, studentID, attendanceID string, entries []models.TalentTransaction, delta int) error {
	const insert = `INSERT INTO talent_transactions (id, student_id, type, amount, reason, attendance_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.StudentID = studentID
		aid := attendanceID
		entry.AttendanceID = &aid
		if _, err := tx.ExecContext(ctx, insert, entry.ID, entry.StudentID, entry.Type, entry.Amount, entry.Reason, entry.AttendanceID, entry.CreatedAt); err != nil {
			return fmt.Errorf("insert talent transaction: %w", err)
		}
	}
	if delta != 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE students SET talent = talent + $2, updated_at = $3 WHERE id = $1`, studentID, delta, now); err != nil {
			return fmt.Errorf("apply talent delta: %w", err)
		}
	}
	return nil
}

func findDetailTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.AttendanceDetail, error) {
	query := fmt.Sprintf("%s\n        %s WHERE a.id = $1", attendanceDetailSelect, attendanceDetailFrom)
	var detail models.AttendanceDetail
	if err := tx.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Trend groups attendance counts by date for the trend chart.
func (r *AttendanceRepository) Trend(ctx context.Context, grade, departmentID string) ([]models.AttendanceTrendPoint, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, grade)
	}
	if departmentID != "" {
		where = append(where, fmt.Sprintf("a.department_id = $%d", len(args)+1))
		args = append(args, departmentID)
	}
	query := fmt.Sprintf(`SELECT a.date, COUNT(*) AS total,
        COUNT(*) FILTER (WHERE a.status = 'present') AS present
        FROM attendance a
        JOIN students s ON s.id = a.student_id
        WHERE %s
        GROUP BY a.date
        ORDER BY a.date ASC`, strings.Join(where, " AND "))

	var points []models.AttendanceTrendPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, fmt.Errorf("attendance trend: %w", err)
	}
	return points, nil
}
