package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
)

func newGuardedRouter(auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(auth))
	r.GET("/schedule", func(c *gin.Context) {
		claims, _ := c.Get(ContextClaimsKey)
		c.JSON(http.StatusOK, gin.H{"subject": claims.(*models.APIClaims).Subject})
	})
	return r
}

func TestJWTAcceptsValidToken(t *testing.T) {
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret", Issuer: "timetable-sync"})
	token, _, err := auth.IssueToken("cron", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newGuardedRouter(auth).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"cron"`)
}

func TestJWTRejectsRequests(t *testing.T) {
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret", Issuer: "timetable-sync"})
	other := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "other", Issuer: "timetable-sync"})
	forged, _, err := other.IssueToken("cron", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic Zm9vOmJhcg=="},
		{"bad signature", "Bearer " + forged},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/schedule", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			newGuardedRouter(auth).ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
