package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/identity"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/authenticating"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthAndRoles(t *testing.T) {
	session := identity.NewSession("")
	auth := authenticating.NewService("segredo", session)

	admin, err := auth.GenerateToken("gerente@pos.test", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)
	waiter, err := auth.GenerateToken("garcom@pos.test", domain.RoleWaiter, time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken("garcom@pos.test", domain.RoleWaiter, -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		path           string
		authorization  string
		roles          func(http.Handler) http.Handler
		expectedStatus int
	}{
		{name: "healthcheck é público", path: "/healthcheck", expectedStatus: http.StatusNoContent},
		{name: "sem cabeçalho", path: "/v1/debug", roles: AdminOnly(), expectedStatus: http.StatusUnauthorized},
		{name: "sem Bearer", path: "/v1/debug", authorization: admin, roles: AdminOnly(), expectedStatus: http.StatusUnauthorized},
		{name: "token expirado", path: "/v1/snapshots/orders", authorization: "Bearer " + expired, roles: AllRoles(), expectedStatus: http.StatusUnauthorized},
		{name: "garçom em rota de admin", path: "/v1/debug", authorization: "Bearer " + waiter, roles: AdminOnly(), expectedStatus: http.StatusForbidden},
		{name: "garçom em rota comum", path: "/v1/snapshots/orders", authorization: "Bearer " + waiter, roles: AllRoles(), expectedStatus: http.StatusNoContent},
		{name: "admin em rota de admin", path: "/v1/debug", authorization: "Bearer " + admin, roles: AdminOnly(), expectedStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handler http.Handler = okHandler()
			if tt.roles != nil {
				handler = tt.roles(handler)
			}
			handler = AuthMiddleware(auth)(handler)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}

	assert.Equal(t, "gerente@pos.test", session.Principal())
}

func TestCors(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		origin   string
		expected string
	}{
		{name: "origem liberada", allowed: []string{"http://localhost:3000"}, origin: "http://localhost:3000", expected: "http://localhost:3000"},
		{name: "origem recusada", allowed: []string{"http://localhost:3000"}, origin: "http://evil.test", expected: ""},
		{name: "curinga", allowed: []string{"*"}, origin: "http://qualquer.test", expected: "http://qualquer.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/v1/snapshots/orders", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			Cors(tt.allowed)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.expected, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestLogPanicMiddleware(t *testing.T) {
	handler := LoggingMiddleware()(LogPanicMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/debug", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Contains(t, rec.Body.String(), "SRV_001")
}
