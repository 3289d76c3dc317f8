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

// TalentRepository reads the talent transaction log and performs manual
// balance adjustments.
type TalentRepository struct {
	db *sqlx.DB
}

// NewTalentRepository constructs a TalentRepository.
func NewTalentRepository(db *sqlx.DB) *TalentRepository {
	return &TalentRepository{db: db}
}

// TransactionsByStudent lists a student's transactions, newest first.
func (r *TalentRepository) TransactionsByStudent(ctx context.Context, studentID string, limit int) ([]models.TalentTransaction, error) {
	query := `SELECT id, student_id, type, amount, reason, attendance_id, created_at
        FROM talent_transactions WHERE student_id = $1 ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var transactions []models.TalentTransaction
	if err := r.db.SelectContext(ctx, &transactions, query, studentID); err != nil {
		return nil, fmt.Errorf("list talent transactions: %w", err)
	}
	return transactions, nil
}

// ListTransactions returns the transaction log matching the filter, newest
// first.
func (r *TalentRepository) ListTransactions(ctx context.Context, filter models.TalentTransactionFilter) ([]models.TalentTransaction, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("t.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.StudentName != "" {
		where = append(where, fmt.Sprintf("s.name = $%d", len(args)+1))
		args = append(args, filter.StudentName)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("t.created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("t.created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	query := fmt.Sprintf(`SELECT t.id, t.student_id, t.type, t.amount, t.reason, t.attendance_id, t.created_at
        FROM talent_transactions t
        JOIN students s ON s.id = t.student_id
        WHERE %s
        ORDER BY t.created_at DESC`, strings.Join(where, " AND "))

	var transactions []models.TalentTransaction
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, fmt.Errorf("list talent transactions: %w", err)
	}
	return transactions, nil
}

// SumByStudent totals a student's transaction amounts. Used to verify the
// cached balance against the log.
func (r *TalentRepository) SumByStudent(ctx context.Context, studentID string) (int, error) {
	var sum int
	if err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM talent_transactions WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("sum talent transactions: %w", err)
	}
	return sum, nil
}

// Leaderboard returns students ordered by balance descending.
func (r *TalentRepository) Leaderboard(ctx context.Context, grade, departmentID string, limit int) ([]models.StudentDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, grade)
	}
	if departmentID != "" {
		where = append(where, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, departmentID)
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf(`%s
        %s WHERE %s
        ORDER BY s.talent DESC, s.name ASC
        LIMIT %d`, studentDetailSelect, studentDetailFrom, strings.Join(where, " AND "), limit)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("talent leaderboard: %w", err)
	}
	return students, nil
}

// ListByGroup returns every student of a grade or department ordered by
// balance descending, for the aggregate views.
func (r *TalentRepository) ListByGroup(ctx context.Context, grade, departmentID string) ([]models.StudentDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, grade)
	}
	if departmentID != "" {
		where = append(where, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, departmentID)
	}
	query := fmt.Sprintf(`%s
        %s WHERE %s
        ORDER BY s.talent DESC, s.name ASC`, studentDetailSelect, studentDetailFrom, strings.Join(where, " AND "))

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("talent by group: %w", err)
	}
	return students, nil
}

// Adjust applies a manual balance change and appends the matching adjust
// transaction in one transaction.
func (r *TalentRepository) Adjust(ctx context.Context, studentID string, amount int, reason string) (*models.Student, *models.TalentTransaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin talent adjust: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const update = `UPDATE students SET talent = talent + $2, updated_at = $3 WHERE id = $1
RETURNING id, name, baptism_name, grade, department_id, talent, email, phone, created_at, updated_at`
	var student models.Student
	if err := tx.GetContext(ctx, &student, update, studentID, amount, now); err != nil {
		return nil, nil, err
	}

	entry := models.TalentTransaction{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Type:      models.TalentTransactionAdjust,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: now,
	}
	const insert = `INSERT INTO talent_transactions (id, student_id, type, amount, reason, attendance_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insert, entry.ID, entry.StudentID, entry.Type, entry.Amount, entry.Reason, nil, entry.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("insert adjust transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit talent adjust: %w", err)
	}
	committed = true
	return &student, &entry, nil
}
