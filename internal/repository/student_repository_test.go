package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companyim/talenta-api/internal/models"
)

func studentDetailRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "baptism_name", "grade", "department_id", "talent", "email", "phone", "created_at", "updated_at",
		"department_name",
	}).AddRow("s1", "김하늘", nil, "4학년", nil, 3, nil, nil, now, now, nil)
}

func TestStudentRepositoryListFiltersAndPaginates(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.name")).
		WithArgs("%하늘%", "4학년").
		WillReturnRows(studentDetailRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%하늘%", "4학년").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Search: "하늘",
		Grade:  string(models.GradeFourth),
		Page:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "김하늘", students[0].Name)
	assert.Equal(t, 3, students[0].Talent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByName(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.name = $1")).
		WithArgs("김하늘").
		WillReturnRows(studentDetailRows())

	detail, err := repo.FindByName(context.Background(), "김하늘")
	require.NoError(t, err)
	assert.Equal(t, "s1", detail.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryRanksByGrade(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "grade"}).
		AddRow("s2", "박서준", "4학년").
		AddRow("s1", "김하늘", "4학년")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, grade FROM students WHERE grade = $1 ORDER BY name ASC")).
		WithArgs(models.GradeFourth).
		WillReturnRows(rows)

	ranks, err := repo.RanksByGrade(context.Background(), models.GradeFourth)
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, "s2", ranks[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{Name: "이도윤", Grade: models.GradeFifth}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateDepartment(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	deptID := "d1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET department_id = $2")).
		WithArgs("s1", "d1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// nil department clears the assignment
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET department_id = $2")).
		WithArgs("s1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateDepartment(context.Background(), "s1", &deptID))
	require.NoError(t, repo.UpdateDepartment(context.Background(), "s1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteAll(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students")).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
