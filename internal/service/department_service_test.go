package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/companyim/talenta-api/internal/models"
)

type mockDepartmentRepo struct {
	departments map[string]models.Department
	nextID      int
	deleted     []string
}

func (m *mockDepartmentRepo) List(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	for _, d := range m.departments {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for _, d := range m.departments {
		if d.Name == name && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, department *models.Department) error {
	if m.departments == nil {
		m.departments = make(map[string]models.Department)
	}
	m.nextID++
	department.ID = fmt.Sprintf("d-%d", m.nextID)
	m.departments[department.ID] = *department
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, department *models.Department) error {
	m.departments[department.ID] = *department
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.departments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockDepartmentStudents struct {
	byDepartment map[string][]models.Student
}

func (m *mockDepartmentStudents) CountByDepartment(ctx context.Context, departmentID string) (int, error) {
	return len(m.byDepartment[departmentID]), nil
}

func (m *mockDepartmentStudents) ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error) {
	return m.byDepartment[departmentID], nil
}

func TestDepartmentServiceCreateRejectsDuplicateName(t *testing.T) {
	repo := &mockDepartmentRepo{departments: map[string]models.Department{
		"d1": {ID: "d1", Name: "성가대"},
	}}
	svc := NewDepartmentService(repo, &mockDepartmentStudents{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateDepartmentRequest{Name: "성가대"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already used")

	department, err := svc.Create(context.Background(), CreateDepartmentRequest{Name: "복사단"})
	require.NoError(t, err)
	assert.NotEmpty(t, department.ID)
}

func TestDepartmentServiceUpdateAllowsOwnName(t *testing.T) {
	repo := &mockDepartmentRepo{departments: map[string]models.Department{
		"d1": {ID: "d1", Name: "성가대"},
		"d2": {ID: "d2", Name: "복사단"},
	}}
	svc := NewDepartmentService(repo, &mockDepartmentStudents{}, validator.New(), zap.NewNop())

	desc := "주일 성가"
	updated, err := svc.Update(context.Background(), "d1", UpdateDepartmentRequest{Name: "성가대", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "성가대", updated.Name)
	require.NotNil(t, updated.Description)

	_, err = svc.Update(context.Background(), "d1", UpdateDepartmentRequest{Name: "복사단"})
	assert.Error(t, err)
}

func TestDepartmentServiceGetIncludesRoster(t *testing.T) {
	repo := &mockDepartmentRepo{departments: map[string]models.Department{
		"d1": {ID: "d1", Name: "성가대"},
	}}
	students := &mockDepartmentStudents{byDepartment: map[string][]models.Student{
		"d1": {{ID: "s1", Name: "김하늘"}},
	}}
	svc := NewDepartmentService(repo, students, validator.New(), zap.NewNop())

	detail, err := svc.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Len(t, detail.Students, 1)

	_, err = svc.Get(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestDepartmentServiceDeleteRefusesNonEmpty(t *testing.T) {
	repo := &mockDepartmentRepo{departments: map[string]models.Department{
		"d1": {ID: "d1", Name: "성가대"},
		"d2": {ID: "d2", Name: "복사단"},
	}}
	students := &mockDepartmentStudents{byDepartment: map[string][]models.Student{
		"d1": {{ID: "s1"}},
	}}
	svc := NewDepartmentService(repo, students, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "d1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "still has students")

	require.NoError(t, svc.Delete(context.Background(), "d2"))
	assert.Contains(t, repo.deleted, "d2")
}
