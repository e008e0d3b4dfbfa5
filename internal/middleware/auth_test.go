package middleware

import (
	"edu_progress_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware("secret"))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, util.GetLearnerID(c))
	})

	token, err := util.GenerateJWT("learner-1", "secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		code   int
		body   string
	}{
		{name: "bearer header", header: "Bearer " + token, code: http.StatusOK, body: "learner-1"},
		{name: "query token", query: "?token=" + token, code: http.StatusOK, body: "learner-1"},
		{name: "missing token", code: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
