package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companyim/talenta-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceDetailRows(id string, date time.Time, status models.AttendanceStatus, talentGiven int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "student_id", "department_id", "date", "status", "type", "talent_given", "created_at", "updated_at",
		"student_name", "student_grade", "department_name",
	}).AddRow(id, "stu-1", nil, date, status, models.AttendanceTypeGrade, talentGiven, now, now, "김하늘", "4학년", nil)
}

func TestAttendanceRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "department_id", "date", "status", "type", "talent_given", "created_at", "updated_at"}).
		AddRow("att-1", "stu-1", nil, date, models.AttendanceStatusPresent, models.AttendanceTypeGrade, 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, department_id, date, status, type, talent_given, created_at, updated_at")).
		WithArgs("stu-1", date, models.AttendanceTypeGrade).
		WillReturnRows(rows)

	record, err := repo.FindByKey(context.Background(), "stu-1", date, models.AttendanceTypeGrade)
	require.NoError(t, err)
	assert.Equal(t, "att-1", record.ID)
	assert.Equal(t, 1, record.TalentGiven)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertWithLedger(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	record := &models.Attendance{
		StudentID:   "stu-1",
		Date:        date,
		Status:      models.AttendanceStatusPresent,
		Type:        models.AttendanceTypeGrade,
		TalentGiven: 1,
	}
	entries := []models.TalentTransaction{{
		Type:   models.TalentTransactionEarn,
		Amount: 1,
		Reason: "grade attendance reward (4학년)",
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("att-1"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO talent_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET talent = talent + $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.student_id")).
		WillReturnRows(attendanceDetailRows("att-1", date, models.AttendanceStatusPresent, 1))
	mock.ExpectCommit()

	detail, err := repo.UpsertWithLedger(context.Background(), record, entries, 1)
	require.NoError(t, err)
	assert.Equal(t, "att-1", detail.ID)
	assert.Equal(t, models.AttendanceStatusPresent, detail.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertZeroDeltaSkipsBalanceWrite(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	record := &models.Attendance{
		StudentID:   "stu-1",
		Date:        date,
		Status:      models.AttendanceStatusPresent,
		Type:        models.AttendanceTypeGrade,
		TalentGiven: 1,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("att-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.student_id")).
		WillReturnRows(attendanceDetailRows("att-1", date, models.AttendanceStatusPresent, 1))
	mock.ExpectCommit()

	_, err := repo.UpsertWithLedger(context.Background(), record, nil, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdateStatusWithLedger(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	entries := []models.TalentTransaction{{
		Type:   models.TalentTransactionSpend,
		Amount: -1,
		Reason: "grade attendance status change reversal (4학년)",
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE attendance SET status = $2")).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO talent_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET talent = talent + $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.student_id")).
		WillReturnRows(attendanceDetailRows("att-1", date, models.AttendanceStatusAbsent, 0))
	mock.ExpectCommit()

	detail, err := repo.UpdateStatusWithLedger(context.Background(), "att-1", models.AttendanceStatusAbsent, 0, entries, -1)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, detail.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteWithLedger(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	entries := []models.TalentTransaction{{
		Type:   models.TalentTransactionSpend,
		Amount: -1,
		Reason: "attendance record deleted",
	}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO talent_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET talent = talent + $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE id = $1")).
		WithArgs("att-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteWithLedger(context.Background(), "att-1", "stu-1", entries, -1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteMissingRowRollsBack(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteWithLedger(context.Background(), "ghost", "stu-1", nil, 0)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, IsUniqueViolation(nil))
}
