package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/companyim/talenta-api/internal/models"
)

type mockStudentRepo struct {
	students map[string]models.StudentDetail
	nextID   int
	deleted  []string
	wiped    bool
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range m.students {
		if filter.Grade != "" && string(s.Grade) != filter.Grade {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByName(ctx context.Context, name string) (*models.StudentDetail, error) {
	for _, s := range m.students {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) RanksByGrade(ctx context.Context, grade models.Grade) ([]models.StudentRank, error) {
	var ranks []models.StudentRank
	for _, s := range m.students {
		if s.Grade == grade {
			ranks = append(ranks, models.StudentRank{ID: s.ID, Name: s.Name, Grade: s.Grade})
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].Name < ranks[j].Name })
	return ranks, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.StudentDetail)
	}
	m.nextID++
	student.ID = fmt.Sprintf("s-%d", m.nextID)
	m.students[student.ID] = models.StudentDetail{Student: *student}
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if existing, ok := m.students[student.ID]; ok {
		updated := *student
		updated.Talent = existing.Talent
		m.students[student.ID] = models.StudentDetail{Student: updated}
	}
	return nil
}

func (m *mockStudentRepo) UpdateDepartment(ctx context.Context, id string, departmentID *string) error {
	if s, ok := m.students[id]; ok {
		s.DepartmentID = departmentID
		m.students[id] = s
	}
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStudentRepo) DeleteAll(ctx context.Context) (int64, error) {
	count := int64(len(m.students))
	m.students = make(map[string]models.StudentDetail)
	m.wiped = true
	return count, nil
}

type mockDepartmentReader struct {
	departments map[string]*models.Department
}

func (m *mockDepartmentReader) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type mockAttendanceReader struct {
	rows []models.AttendanceDetail
}

func (m *mockAttendanceReader) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	return m.rows, len(m.rows), nil
}

type mockTransactionReader struct {
	transactions []models.TalentTransaction
}

func (m *mockTransactionReader) TransactionsByStudent(ctx context.Context, studentID string, limit int) ([]models.TalentTransaction, error) {
	return m.transactions, nil
}

func newStudentFixture(repo *mockStudentRepo) *StudentService {
	departments := &mockDepartmentReader{departments: map[string]*models.Department{
		"d1": {ID: "d1", Name: "성가대"},
	}}
	return NewStudentService(repo, departments, &mockAttendanceReader{}, &mockTransactionReader{}, validator.New(), zap.NewNop())
}

func TestStudentServiceCreateStartsAtZeroTalent(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentFixture(repo)

	dept := "d1"
	student, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:         "박세진",
		Grade:        string(models.GradeFifth),
		DepartmentID: &dept,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, student.Talent)
	require.NotNil(t, student.DepartmentID)
	assert.Equal(t, "d1", *student.DepartmentID)
	assert.Equal(t, "5-1", student.StudentNumber)
}

func TestStudentServiceCreateRejectsUnknownGrade(t *testing.T) {
	svc := newStudentFixture(&mockStudentRepo{})

	_, err := svc.Create(context.Background(), CreateStudentRequest{Name: "박세진", Grade: "3학년"})
	assert.Error(t, err)
}

func TestStudentServiceCreateRejectsUnknownDepartment(t *testing.T) {
	svc := newStudentFixture(&mockStudentRepo{})

	dept := "ghost"
	_, err := svc.Create(context.Background(), CreateStudentRequest{Name: "박세진", Grade: string(models.GradeFifth), DepartmentID: &dept})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "department not found")
}

func TestStudentServiceListAssignsNumbersByGradeAndName(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Name: "나윤서", Grade: models.GradeFourth}},
		"s2": {Student: models.Student{ID: "s2", Name: "강지호", Grade: models.GradeFourth}},
		"s3": {Student: models.Student{ID: "s3", Name: "김하늘", Grade: models.GradeKindergarten}},
	}}
	svc := newStudentFixture(repo)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, pagination.TotalCount)

	numbers := make(map[string]string)
	for _, s := range students {
		numbers[s.ID] = s.StudentNumber
	}
	assert.Equal(t, "4-1", numbers["s2"])
	assert.Equal(t, "4-2", numbers["s1"])
	assert.Equal(t, "유-1", numbers["s3"])
}

func TestStudentServiceGetLoadsProfile(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Name: "나윤서", Grade: models.GradeFourth, Talent: 3}},
	}}
	departments := &mockDepartmentReader{}
	attendance := &mockAttendanceReader{rows: []models.AttendanceDetail{{}}}
	transactions := &mockTransactionReader{transactions: []models.TalentTransaction{{}, {}}}
	svc := NewStudentService(repo, departments, attendance, transactions, validator.New(), zap.NewNop())

	profile, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "4-1", profile.Student.StudentNumber)
	assert.Len(t, profile.Attendance, 1)
	assert.Len(t, profile.Transactions, 2)

	_, err = svc.Get(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestStudentServiceUpdatePreservesTalent(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Name: "나윤서", Grade: models.GradeFourth, Talent: 7}},
	}}
	svc := newStudentFixture(repo)

	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{Name: "나윤서", Grade: string(models.GradeFifth)})
	require.NoError(t, err)
	assert.Equal(t, models.GradeFifth, updated.Grade)
	assert.Equal(t, 7, updated.Talent)
}

func TestStudentServiceChangeDepartment(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Name: "나윤서", Grade: models.GradeFourth}},
	}}
	svc := newStudentFixture(repo)

	dept := "d1"
	updated, err := svc.ChangeDepartment(context.Background(), "s1", &dept)
	require.NoError(t, err)
	require.NotNil(t, updated.DepartmentID)
	assert.Equal(t, "d1", *updated.DepartmentID)

	cleared, err := svc.ChangeDepartment(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.DepartmentID)
}

func TestStudentServiceDeleteAll(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Name: "나윤서", Grade: models.GradeFourth}},
		"s2": {Student: models.Student{ID: "s2", Name: "강지호", Grade: models.GradeFourth}},
	}}
	svc := newStudentFixture(repo)

	deleted, err := svc.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.True(t, repo.wiped)
}

func TestStudentRequestsDecodeCamelCase(t *testing.T) {
	var req CreateStudentRequest
	payload := `{"name":"김하늘","baptismName":"세실리아","grade":"4학년","departmentId":"d1"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.NotNil(t, req.BaptismName)
	assert.Equal(t, "세실리아", *req.BaptismName)
	require.NotNil(t, req.DepartmentID)
	assert.Equal(t, "d1", *req.DepartmentID)
}
