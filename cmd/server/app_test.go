package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "github.com/Elelei/Blockchain-Land-Registry-System/internal/jwt_token"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/config"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
)

const admin = "0x5d00000000000000000000000000000000000001"

func testConfig(t *testing.T) config.Server {
	t.Helper()
	return config.Server{
		Addr:            ":0",
		ShutdownTimeout: time.Second,
		JWTSigningKey:   "test-key",
		JWTIssuer:       "test-issuer",
		StoreDriver:     config.DriverMemory,
		Superadmins:     []string{admin},
	}
}

func newTestApp(t *testing.T, cfg config.Server) *app {
	t.Helper()
	a, err := buildApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func bearer(t *testing.T, cfg config.Server, caller string) string {
	t.Helper()
	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, tokenAudience).
		GenerateAccessToken(domain.MustParseAddress(caller), time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAppServesHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	a.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestAppBootstrapsSuperadmin(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/"+admin+"/capabilities/superadmin", nil)
	req.Header.Set("Authorization", bearer(t, cfg, admin))
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"granted":true`)
}

func TestAppWithSQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = config.DriverSQLite
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "registry.db")
	cfg.SeedFile = filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(cfg.SeedFile, []byte(`
assignments:
  - identity: "0x5d00000000000000000000000000000000000002"
    role: government
    villages: [Hinjewadi]
`), 0o600))

	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/0x5d00000000000000000000000000000000000002", nil)
	req.Header.Set("Authorization", bearer(t, cfg, admin))
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"role":"government"`)
}

func TestCORS(t *testing.T) {
	cfg := testConfig(t)
	cfg.CORSOrigins = []string{"https://registry.example"}
	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/v1/properties/count", nil)
	req.Header.Set("Origin", "https://registry.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	assert.Equal(t, "https://registry.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestResolveCaller(t *testing.T) {
	a, err := resolveCaller(admin, "")
	require.NoError(t, err)
	assert.Equal(t, admin, a.String())

	seed := strings.Repeat("01", 32)
	fromKey, err := resolveCaller("", seed)
	require.NoError(t, err)
	assert.False(t, fromKey.IsZero())

	_, err = resolveCaller(admin, seed)
	require.Error(t, err)
	_, err = resolveCaller("", "abcd")
	require.Error(t, err)
	_, err = resolveCaller("", "")
	require.Error(t, err)
}

func TestKeygenCommand(t *testing.T) {
	var out strings.Builder
	cmd := newKeygenCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "address:     0x")
}
