package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/companyim/talenta-api/internal/models"
	appErrors "github.com/companyim/talenta-api/pkg/errors"
)

type mockTalentRepo struct {
	transactions map[string][]models.TalentTransaction
	students     map[string]models.StudentDetail
	adjusted     []models.TalentTransaction
}

func (m *mockTalentRepo) TransactionsByStudent(ctx context.Context, studentID string, limit int) ([]models.TalentTransaction, error) {
	return m.transactions[studentID], nil
}

func (m *mockTalentRepo) ListTransactions(ctx context.Context, filter models.TalentTransactionFilter) ([]models.TalentTransaction, error) {
	if filter.StudentID != "" {
		return m.transactions[filter.StudentID], nil
	}
	var all []models.TalentTransaction
	for _, list := range m.transactions {
		all = append(all, list...)
	}
	return all, nil
}

func (m *mockTalentRepo) Leaderboard(ctx context.Context, grade, departmentID string, limit int) ([]models.StudentDetail, error) {
	var out []models.StudentDetail
	for _, s := range m.students {
		if grade != "" && string(s.Grade) != grade {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockTalentRepo) ListByGroup(ctx context.Context, grade, departmentID string) ([]models.StudentDetail, error) {
	return m.Leaderboard(ctx, grade, departmentID, 0)
}

func (m *mockTalentRepo) Adjust(ctx context.Context, studentID string, amount int, reason string) (*models.Student, *models.TalentTransaction, error) {
	s, ok := m.students[studentID]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	s.Talent += amount
	m.students[studentID] = s
	txn := models.TalentTransaction{
		ID:        "txn-adj",
		StudentID: studentID,
		Type:      models.TalentTransactionAdjust,
		Amount:    amount,
		Reason:    reason,
	}
	m.adjusted = append(m.adjusted, txn)
	return &s.Student, &txn, nil
}

type mockTalentStudents struct {
	students map[string]*models.StudentDetail
}

func (m *mockTalentStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTalentStudents) FindByName(ctx context.Context, name string) (*models.StudentDetail, error) {
	for _, s := range m.students {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

// mockTalentCache records Get/Set traffic and serves one canned hit.
type mockTalentCache struct {
	hits   int
	sets   []string
	served bool
}

func (m *mockTalentCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.served {
		m.hits++
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockTalentCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets = append(m.sets, key)
	return nil
}

func newTalentFixture() (*TalentService, *mockTalentRepo, *mockTalentCache) {
	repo := &mockTalentRepo{
		transactions: map[string][]models.TalentTransaction{
			"s1": {{ID: "t1", StudentID: "s1", Type: models.TalentTransactionEarn, Amount: 1}},
		},
		students: map[string]models.StudentDetail{
			"s1": {Student: models.Student{ID: "s1", Name: "김하늘", Grade: models.GradeFourth, Talent: 5}},
			"s2": {Student: models.Student{ID: "s2", Name: "박세진", Grade: models.GradeFifth, Talent: 2}},
		},
	}
	students := &mockTalentStudents{students: map[string]*models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Name: "김하늘", Grade: models.GradeFourth, Talent: 5}},
		"s2": {Student: models.Student{ID: "s2", Name: "박세진", Grade: models.GradeFifth, Talent: 2}},
	}}
	cache := &mockTalentCache{}
	svc := NewTalentService(repo, students, cache, time.Minute, validator.New(), zap.NewNop())
	return svc, repo, cache
}

func TestTalentServiceSummary(t *testing.T) {
	svc, _, _ := newTalentFixture()

	summary, err := svc.Summary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Student.Talent)
	assert.Len(t, summary.Transactions, 1)

	_, err = svc.Summary(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestTalentServiceSummaryByName(t *testing.T) {
	svc, _, _ := newTalentFixture()

	summary, err := svc.SummaryByName(context.Background(), "김하늘")
	require.NoError(t, err)
	assert.Equal(t, "s1", summary.Student.ID)
}

func TestTalentServiceTransactionsResolvesName(t *testing.T) {
	svc, _, _ := newTalentFixture()

	transactions, err := svc.Transactions(context.Background(), models.TalentTransactionFilter{StudentName: "김하늘"})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "s1", transactions[0].StudentID)

	// An unknown name yields an empty list, not an error.
	transactions, err = svc.Transactions(context.Background(), models.TalentTransactionFilter{StudentName: "없는사람"})
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestTalentServiceLeaderboardCachesResult(t *testing.T) {
	svc, _, cache := newTalentFixture()

	students, cached, err := svc.Leaderboard(context.Background(), "", "", 10)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, students, 2)
	require.Len(t, cache.sets, 1)
	assert.Equal(t, "talents:leaderboard:::10", cache.sets[0])

	cache.served = true
	_, cached, err = svc.Leaderboard(context.Background(), "", "", 10)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, cache.hits)
}

func TestTalentServiceGradeAggregate(t *testing.T) {
	svc, _, _ := newTalentFixture()

	agg, err := svc.GradeAggregate(context.Background(), string(models.GradeFourth))
	require.NoError(t, err)
	assert.Equal(t, 1, agg.StudentCount)
	assert.Equal(t, 5, agg.TotalTalent)
	assert.Equal(t, 5.0, agg.AverageTalent)

	_, err = svc.GradeAggregate(context.Background(), "3학년")
	assert.Error(t, err)
}

func intPtr(n int) *int { return &n }

func TestTalentServiceAdjust(t *testing.T) {
	svc, repo, _ := newTalentFixture()

	result, err := svc.Adjust(context.Background(), AdjustTalentRequest{StudentID: "s1", Amount: intPtr(-2), Reason: "간식 교환"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Student.Talent)
	assert.Equal(t, models.TalentTransactionAdjust, result.Transaction.Type)
	assert.Equal(t, -2, result.Transaction.Amount)
	assert.Len(t, repo.adjusted, 1)
}

func TestTalentServiceAdjustAcceptsZeroAmount(t *testing.T) {
	svc, repo, _ := newTalentFixture()

	result, err := svc.Adjust(context.Background(), AdjustTalentRequest{StudentID: "s1", Amount: intPtr(0), Reason: "기록 보정"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Transaction.Amount)
	assert.Len(t, repo.adjusted, 1)
}

func TestTalentServiceAdjustValidation(t *testing.T) {
	svc, _, _ := newTalentFixture()

	_, err := svc.Adjust(context.Background(), AdjustTalentRequest{StudentID: "s1", Amount: intPtr(2)})
	assert.Error(t, err)

	_, err = svc.Adjust(context.Background(), AdjustTalentRequest{StudentID: "s1", Reason: "테스트"})
	assert.Error(t, err)

	_, err = svc.Adjust(context.Background(), AdjustTalentRequest{StudentID: "ghost", Amount: intPtr(2), Reason: "테스트"})
	assert.Error(t, err)
}
