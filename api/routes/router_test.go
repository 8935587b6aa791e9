package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/resinart/storefront-api/internal/products"
	pkgAuth "github.com/resinart/storefront-api/pkg/auth"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/enums"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/metrics"
	"github.com/resinart/storefront-api/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type roleAccounts map[uuid.UUID]enums.UserRole

func (r roleAccounts) ActiveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	return r[userID], nil
}

type stubProducts struct {
	products.Service
}

func (stubProducts) List(ctx context.Context, params products.ListParams) (types.Page[products.ProductDTO], error) {
	return types.NewPage([]products.ProductDTO{}, params.Page, params.Limit, 0), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Env: "dev"},
		JWT:    config.JWTConfig{Secret: "router-secret", Issuer: "router-test", ExpirationMinutes: 30},
		Upload: config.UploadConfig{Dir: t.TempDir(), MaxMB: 1, PublicPath: "/uploads"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, accounts roleAccounts) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	reg := prometheus.NewRegistry()
	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:          stubPinger{},
		Accounts:    accounts,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
		Products:    stubProducts{},
	})
	return handler, cfg
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role, JTI: uuid.NewString()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(h http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t, roleAccounts{})

	if resp := serve(h, http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := serve(h, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	resp := serve(h, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "storefront_http_requests_total") {
		t.Fatalf("expected http metrics exported, got %s", resp.Body.String())
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	h, _ := newTestRouter(t, roleAccounts{})
	if resp := serve(h, http.MethodGet, "/api/products", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t, roleAccounts{})
	for _, target := range []string{"/api/cart", "/api/orders/my-orders", "/api/notifications", "/api/auth/me"} {
		if resp := serve(h, http.MethodGet, target, ""); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, resp.Code)
		}
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	customerID := uuid.New()
	adminID := uuid.New()
	h, cfg := newTestRouter(t, roleAccounts{customerID: enums.UserRoleCustomer, adminID: enums.UserRoleAdmin})

	customer := bearer(t, cfg, customerID, enums.UserRoleCustomer)
	for _, target := range []string{"/api/orders", "/api/users", "/api/stock/low", "/api/reports/summary"} {
		if resp := serve(h, http.MethodGet, target, customer); resp.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 got %d", target, resp.Code)
		}
	}

	// admin passes the guard and reaches the unwired service
	admin := bearer(t, cfg, adminID, enums.UserRoleAdmin)
	if resp := serve(h, http.MethodGet, "/api/stock/low", admin); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from nil service got %d", resp.Code)
	}
}

func TestUploadsAreServed(t *testing.T) {
	h, cfg := newTestRouter(t, roleAccounts{})
	if err := os.MkdirAll(filepath.Join(cfg.Upload.Dir, "product"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Upload.Dir, "product", "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp := serve(h, http.MethodGet, "/uploads/product/a.txt", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "hello" {
		t.Fatalf("expected file body, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	h, _ := newTestRouter(t, roleAccounts{})
	if resp := serve(h, http.MethodGet, "/api/nope", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
