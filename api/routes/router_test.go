package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	authsvc "github.com/avilesluna/stockroom-backend/internal/auth"
	pkgAuth "github.com/avilesluna/stockroom-backend/pkg/auth"
	"github.com/avilesluna/stockroom-backend/pkg/config"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/avilesluna/stockroom-backend/pkg/logger"
	"github.com/avilesluna/stockroom-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type allowAllSessions struct{}

func (allowAllSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(context.Context, authsvc.RegisterRequest) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{}, nil
}

func (stubAuthService) Login(context.Context, authsvc.LoginRequest) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{}, nil
}

func (stubAuthService) Refresh(context.Context, authsvc.RefreshRequest) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{}, nil
}

func (stubAuthService) Logout(context.Context, string) error {
	return nil
}

func testRouterDeps(t *testing.T) Deps {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "router-secret", Issuer: "stockroom-test", ExpirationMinutes: 15}

	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "router-test", Level: logger.ParseLevel("error"), Output: io.Discard})

	return Deps{
		Config:         cfg,
		Logger:         logg,
		DBPinger:       stubPinger{},
		SessionChecker: allowAllSessions{},
		Metrics:        metrics.NewHTTPMetrics(reg),
		Gatherer:       reg,
		AuthService:    stubAuthService{},
	}
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := NewRouter(testRouterDeps(t))

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if env := resp.Header().Get("X-Stockroom-Env"); env != "test" {
			t.Fatalf("%s: expected env header, got %q", path, env)
		}
	}
}

func TestRouterRejectsUnauthenticatedAPI(t *testing.T) {
	router := NewRouter(testRouterDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterAdminOnlyUserRoutes(t *testing.T) {
	deps := testRouterDeps(t)
	router := NewRouter(deps)

	token, err := pkgAuth.MintAccessToken(deps.Config.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "staff@example.com",
		Role:   enums.UserRoleStaff,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff on admin route, got %d", resp.Code)
	}
}

func TestRouterServesMetrics(t *testing.T) {
	router := NewRouter(testRouterDeps(t))

	// Serve one request so the counters have something to export.
	warm := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(httptest.NewRecorder(), warm)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "http_requests_total") {
		t.Fatal("expected http_requests_total in metrics exposition")
	}
}

func TestRouterAuthLoginReachable(t *testing.T) {
	router := NewRouter(testRouterDeps(t))

	body := `{"email":"user@example.com","password":"hunter22hunter22"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if len(envelope.Data) == 0 {
		t.Fatal("expected data payload from login")
	}
}
