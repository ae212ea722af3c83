package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-long-enough-for-hs256"

func newJWT(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 5})
	require.NoError(t, err)
	return svc
}

func token(t *testing.T, svc auth.JWTService, scopes ...string) string {
	t.Helper()
	tok, err := svc.GenerateToken(context.Background(), "test-client", scopes)
	require.NoError(t, err)
	return tok
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTraceMiddleware(t *testing.T) {
	var logs bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seenTrace string
	var seenLogger *slog.Logger
	h := NewTraceMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		seenLogger = logger.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("generates trace id", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

		assert.Len(t, seenTrace, shared.TraceIDLength*2)
		assert.Equal(t, seenTrace, w.Header().Get(shared.TraceIDHeader))
		assert.NotNil(t, seenLogger)
		assert.Contains(t, logs.String(), seenTrace)
	})

	t.Run("reuses incoming trace id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set(shared.TraceIDHeader, "upstream-trace-0001")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "upstream-trace-0001", seenTrace)
	})
}

func TestAuthenticate(t *testing.T) {
	svc := newJWT(t)
	m := NewAuthMiddleware(svc)

	var claims *auth.Claims
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = GetClaims(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantMsg: "Authorization header required"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid authorization format"},
		{name: "garbage token", header: "Bearer not-a-token", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "valid token", header: "Bearer " + token(t, svc, auth.ScopeTasksRead), wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims = nil
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus != http.StatusOK {
				body := decodeError(t, w)
				assert.Equal(t, tc.wantMsg, body.Message)
				assert.False(t, body.Success)
				assert.Nil(t, claims)
				return
			}
			require.NotNil(t, claims)
			assert.Equal(t, "test-client", claims.Subject)
		})
	}
}

func TestRequireScope(t *testing.T) {
	svc := newJWT(t)
	m := NewAuthMiddleware(svc)
	h := m.Authenticate(RequireScope(auth.ScopeTasksWrite)(http.HandlerFunc(okHandler)))

	send := func(tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := send(token(t, svc, auth.ScopeTasksRead))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decodeError(t, w).Message, auth.ScopeTasksWrite)

	assert.Equal(t, http.StatusOK, send(token(t, svc, auth.ScopeTasksRead, auth.ScopeTasksWrite)).Code)

	unauthenticated := httptest.NewRecorder()
	RequireScope(auth.ScopeTasksRead)(http.HandlerFunc(okHandler)).
		ServeHTTP(unauthenticated, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, unauthenticated.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(config.RateLimitConfig{Requests: 3, Window: time.Minute}, nil)
	l.now = func() time.Time { return now }
	h := l.Middleware(http.HandlerFunc(okHandler))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code, "request %d", i)
	}

	limited := send("10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "20", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusTooManyRequests, decodeError(t, limited).StatusCode)

	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code, "other clients are unaffected")

	now = now.Add(20 * time.Second)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code, "one token refilled")
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5000").Code)
}

func TestRateLimiterKeysBySubject(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Hour}, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "ip:192.0.2.1", clientKey(req))

	ctx := context.WithValue(req.Context(), shared.ClaimsContextKey, &auth.Claims{Subject: "svc-a"})
	assert.Equal(t, "sub:svc-a", clientKey(req.WithContext(ctx)))

	now := time.Now()
	first := l.limiterFor("sub:svc-a", now)
	assert.Same(t, first, l.limiterFor("sub:svc-a", now.Add(time.Minute)))

	l.limiterFor("sub:svc-b", now.Add(idleLimiterTTL*3))
	l.mu.Lock()
	_, kept := l.clients["sub:svc-a"]
	l.mu.Unlock()
	assert.False(t, kept, "idle limiter swept")
}
