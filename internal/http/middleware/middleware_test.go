package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sessionRouter(a SessionAuth) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/sessions/:id", a.RequireSession(), func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	return r
}

func TestRequestIDEchoesHeader(t *testing.T) {
	r := sessionRouter(SessionAuth{})

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestSessionAuth(t *testing.T) {
	a := SessionAuth{Secret: []byte("test-secret"), TTL: time.Hour}
	r := sessionRouter(a)

	token, err := a.Issue("s-1", time.Now())
	require.NoError(t, err)
	other, err := a.Issue("s-2", time.Now())
	require.NoError(t, err)
	expired, err := a.Issue("s-1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	forged, err := SessionAuth{Secret: []byte("other")}.Issue("s-1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "bearer header", target: "/sessions/s-1", header: "Bearer " + token, want: http.StatusOK},
		{name: "query token", target: "/sessions/s-1?token=" + token, want: http.StatusOK},
		{name: "missing", target: "/sessions/s-1", want: http.StatusUnauthorized},
		{name: "other session", target: "/sessions/s-1", header: "Bearer " + other, want: http.StatusForbidden},
		{name: "expired", target: "/sessions/s-1", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "wrong secret", target: "/sessions/s-1", header: "Bearer " + forged, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSessionAuthDisabled(t *testing.T) {
	a := SessionAuth{}
	token, err := a.Issue("s-1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, token)

	w := httptest.NewRecorder()
	sessionRouter(a).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/s-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://book.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://book.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://book.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
