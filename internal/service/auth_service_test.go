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
	"golang.org/x/crypto/bcrypt"

	"github.com/companyim/talenta-api/internal/models"
)

type mockAuthRepo struct {
	auth *models.AdminAuth
}

func (m *mockAuthRepo) Find(ctx context.Context) (*models.AdminAuth, error) {
	if m.auth == nil {
		return nil, sql.ErrNoRows
	}
	return m.auth, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, passwordHash string) (*models.AdminAuth, error) {
	m.auth = &models.AdminAuth{ID: "admin-1", PasswordHash: passwordHash, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return m.auth, nil
}

func newAuthFixture(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "talenta-api",
	})
}

func TestAuthServiceLoginSeedsDefaultCredential(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthFixture(repo)

	result, err := svc.Login(context.Background(), models.LoginRequest{Password: "1004"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)
	require.NotNil(t, repo.auth)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.auth.PasswordHash), []byte("1004")))
}

func TestAuthServiceLoginRejectsWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{auth: &models.AdminAuth{ID: "admin-1", PasswordHash: string(hash)}}
	svc := newAuthFixture(repo)

	_, err = svc.Login(context.Background(), models.LoginRequest{Password: "wrong"})
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{})
	assert.Error(t, err)
}

func TestAuthServiceValidateToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{auth: &models.AdminAuth{ID: "admin-1", PasswordHash: string(hash)}}
	svc := newAuthFixture(repo)

	result, err := svc.Login(context.Background(), models.LoginRequest{Password: "secret"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, "talenta-api", claims.Issuer)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	other := newAuthFixture(repo)
	other.config.Secret = "other-secret"
	_, err = other.ValidateToken(result.Token)
	assert.Error(t, err)
}
