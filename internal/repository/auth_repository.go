package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/companyim/talenta-api/internal/models"
)

// AuthRepository stores the single shared admin credential.
type AuthRepository struct {
	db *sqlx.DB
}

// NewAuthRepository constructs an AuthRepository.
func NewAuthRepository(db *sqlx.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// Find returns the admin credential row. sql.ErrNoRows when none exists yet.
func (r *AuthRepository) Find(ctx context.Context) (*models.AdminAuth, error) {
	const query = `SELECT id, password_hash, created_at, updated_at FROM admin_auth ORDER BY created_at ASC LIMIT 1`
	var auth models.AdminAuth
	if err := r.db.GetContext(ctx, &auth, query); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Create seeds the admin credential.
func (r *AuthRepository) Create(ctx context.Context, passwordHash string) (*models.AdminAuth, error) {
	now := time.Now().UTC()
	auth := &models.AdminAuth{
		ID:           uuid.NewString(),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const query = `INSERT INTO admin_auth (id, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, auth.ID, auth.PasswordHash, auth.CreatedAt, auth.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create admin auth: %w", err)
	}
	return auth, nil
}
