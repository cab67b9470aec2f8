package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/coinkong/internal/auth"
)

const secret = "test-secret"

func signed(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	group := router.Group("/", JWTAuth(auth.NewService(secret)), ActingUser())
	group.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"client": c.GetString(ContextClientID),
			"user":   UserID(c),
		})
	})
	return router
}

func request(router *gin.Engine, authorization, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	router := newRouter()
	exp := time.Now().Add(time.Hour).Unix()

	valid := signed(t, secret, jwt.MapClaims{"client_id": "gateway", "exp": exp})
	rec := request(router, "Bearer "+valid, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"client":"gateway","user":"alice"}`, rec.Body.String())

	tests := []struct {
		name string
		auth string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token " + valid},
		{"bad signature", "Bearer " + signed(t, "other", jwt.MapClaims{"client_id": "gateway", "exp": exp})},
		{"expired", "Bearer " + signed(t, secret, jwt.MapClaims{"client_id": "gateway", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"missing client", "Bearer " + signed(t, secret, jwt.MapClaims{"exp": exp})},
		{"missing exp", "Bearer " + signed(t, secret, jwt.MapClaims{"client_id": "gateway"})},
		{"garbage", "Bearer not-a-token"},
		{"empty bearer", "Bearer "},
		{"wrong algorithm", "Bearer " + func() string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"client_id": "gateway", "exp": exp}).SignedString([]byte(secret))
			require.NoError(t, err)
			return token
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(router, tt.auth, "alice")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestActingUser_Required(t *testing.T) {
	router := newRouter()
	valid := signed(t, secret, jwt.MapClaims{"client_id": "gateway", "exp": time.Now().Add(time.Hour).Unix()})

	rec := request(router, "Bearer "+valid, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), UserHeader)
}
