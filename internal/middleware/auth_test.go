// internal/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/edumarket-backend/internal/models"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	r := gin.New()
	r.GET("/protected", AuthRequired(), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	r.GET("/admin-only", AuthRequired(), AdminRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	r := newAuthTestRouter()

	w := doRequest(r, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsGarbageToken(t *testing.T) {
	r := newAuthTestRouter()

	w := doRequest(r, "/protected", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	r := newAuthTestRouter()

	token, err := utils.GenerateJWT(uuid.New(), "seller1", string(models.UserTypeSeller), 1)
	require.NoError(t, err)

	w := doRequest(r, "/protected", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRequiredRejectsSeller(t *testing.T) {
	r := newAuthTestRouter()

	token, err := utils.GenerateJWT(uuid.New(), "seller1", string(models.UserTypeSeller), 1)
	require.NoError(t, err)

	w := doRequest(r, "/admin-only", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRequiredAcceptsAdmin(t *testing.T) {
	r := newAuthTestRouter()

	token, err := utils.GenerateJWT(uuid.New(), "admin", string(models.UserTypeAdmin), 1)
	require.NoError(t, err)

	w := doRequest(r, "/admin-only", token)
	assert.Equal(t, http.StatusOK, w.Code)
}
