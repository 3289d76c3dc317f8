package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companyim/talenta-api/internal/models"
	"github.com/companyim/talenta-api/internal/service"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeAuthRepo struct {
	admin *models.AdminAuth
}

func (f *fakeAuthRepo) Find(context.Context) (*models.AdminAuth, error) {
	if f.admin == nil {
		return nil, sql.ErrNoRows
	}
	return f.admin, nil
}

func (f *fakeAuthRepo) Create(_ context.Context, hash string) (*models.AdminAuth, error) {
	f.admin = &models.AdminAuth{ID: "admin-1", PasswordHash: hash, CreatedAt: time.Now()}
	return f.admin, nil
}

func newAuthHandler() (*AuthHandler, *fakeAuthRepo) {
	repo := &fakeAuthRepo{}
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "talenta-api",
	})
	return NewAuthHandler(svc), repo
}

func TestAuthHandlerLoginRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Error)
}

func TestAuthHandlerLoginRejectsWrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader(`{"password":"wrong"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLoginIssuesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader(`{"password":"1004"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data["token"])
	assert.NotNil(t, repo.admin)
}

func TestAuthHandlerCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/check", nil)

	handler.Check(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Data["authenticated"])
}
