package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, inbound string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var captured string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) {
		captured = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, captured
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	rec, captured := serve(t, "")

	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, captured)
}

func TestRequestIDReusesValidInboundID(t *testing.T) {
	inbound := uuid.NewString()
	rec, captured := serve(t, inbound)

	assert.Equal(t, inbound, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, inbound, captured)
}

func TestRequestIDReplacesMalformedInboundID(t *testing.T) {
	rec, _ := serve(t, "not-a-uuid")

	id := rec.Header().Get("X-Request-ID")
	assert.NotEqual(t, "not-a-uuid", id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
