package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminAuth stores the single shared admin credential.
type AdminAuth struct {
	ID           string    `db:"id" json:"id"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LoginRequest carries the shared admin password.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// JWTClaims is the payload of an issued admin token.
type JWTClaims struct {
	AdminID string `json:"admin_id"`
	jwt.RegisteredClaims
}

// LoginResponse carries the issued admin token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
