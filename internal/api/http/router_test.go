package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/api/http/handlers"
	"github.com/spec-kit/catalog-gate/internal/auth"
	"github.com/spec-kit/catalog-gate/internal/catalog"
	"github.com/spec-kit/catalog-gate/internal/domain"
	"github.com/spec-kit/catalog-gate/internal/gate"
	"github.com/spec-kit/catalog-gate/internal/identity"
	"github.com/spec-kit/catalog-gate/internal/observability"
	"github.com/spec-kit/catalog-gate/internal/service"
	"github.com/spec-kit/catalog-gate/internal/session"
	"github.com/spec-kit/catalog-gate/internal/store"
)

type fakeCatalog struct {
	calls int
	err   error
}

func (f *fakeCatalog) List(_ context.Context, limit, skip int) (*domain.ProductPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProductPage{
		Products: []domain.Product{{ID: 1, Title: "Essence Mascara", Price: decimal.RequireFromString("9.99")}},
		Total:    1,
		Skip:     skip,
		Limit:    limit,
	}, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int) (*domain.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if id == 404 {
		return nil, catalog.ErrNotFound
	}
	return &domain.Product{ID: id, Title: "Essence Mascara"}, nil
}

type failingStore struct {
	store.CredentialStore
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testApp struct {
	app     *fiber.App
	catalog *fakeCatalog
	clock   *time.Time
}

func newTestApp(t *testing.T, credentials store.CredentialStore, deps map[string]handlers.Pinger) *testApp {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	ta := &testApp{catalog: &fakeCatalog{}, clock: &now}
	clock := func() time.Time { return *ta.clock }

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	manager := session.NewManager(auth.NewJSONCodec(auth.WithClock(clock)), credentials, session.WithClock(clock))
	guard := gate.NewGuard(manager, "", logger, metrics)
	authService := service.NewAuthService(service.AuthDependencies{
		Sessions: manager,
		Password: identity.NewPasswordSource(nil),
		Logger:   logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("catalog-gate", "test", deps),
		Auth:    handlers.NewAuthHandler(authService),
		Screens: handlers.NewScreensHandler(service.NewCatalogService(ta.catalog, 0)),
		Guard:   guard,
	})
	ta.app = app
	return ta
}

func (ta *testApp) do(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHomeRedirectsWithoutSession(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)

	status, body := ta.do(t, nethttp.MethodGet, "/home", "")
	if status != nethttp.StatusUnauthorized || errorCode(body) != "UNAUTHENTICATED" {
		t.Fatalf("expected 401 UNAUTHENTICATED, got %d %v", status, body)
	}
	details := body["error"].(map[string]any)["details"].(map[string]any)
	if details["redirect"] != gate.DefaultLoginPath {
		t.Fatalf("expected redirect to login, got %v", details)
	}

	if status, _ := ta.do(t, nethttp.MethodGet, "/products/1", ""); status != nethttp.StatusUnauthorized {
		t.Fatalf("expected product detail to be gated, got %d", status)
	}
	if ta.catalog.calls != 0 {
		t.Fatalf("catalog fetched %d times without a session", ta.catalog.calls)
	}
}

func TestLoginThenBrowse(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)

	status, body := ta.do(t, nethttp.MethodPost, "/auth/login", `{"email":"a@b.com","password":"x"}`)
	if status != nethttp.StatusOK {
		t.Fatalf("login: %d %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["authenticated"] != true || data["subject"] != "a@b.com" {
		t.Fatalf("unexpected login payload %v", data)
	}

	status, body = ta.do(t, nethttp.MethodGet, "/home?limit=5&skip=10", "")
	if status != nethttp.StatusOK {
		t.Fatalf("home: %d %v", status, body)
	}
	home := body["data"].(map[string]any)
	if home["subject"] != "a@b.com" || home["limit"] != float64(5) || home["skip"] != float64(10) {
		t.Fatalf("unexpected home payload %v", home)
	}
	products := home["products"].([]any)
	if len(products) != 1 || products[0].(map[string]any)["price"] != "9.99" {
		t.Fatalf("unexpected products %v", products)
	}

	status, body = ta.do(t, nethttp.MethodGet, "/products/7", "")
	if status != nethttp.StatusOK || body["data"].(map[string]any)["id"] != float64(7) {
		t.Fatalf("product: %d %v", status, body)
	}

	*ta.clock = ta.clock.Add(time.Hour + time.Second)
	if status, _ := ta.do(t, nethttp.MethodGet, "/home", ""); status != nethttp.StatusUnauthorized {
		t.Fatalf("expected expired session to be redirected, got %d", status)
	}
}

func TestLoginValidation(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)

	status, body := ta.do(t, nethttp.MethodPost, "/auth/login", `{"email":"not-an-email","password":"x"}`)
	if status != nethttp.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("expected 400 VALIDATION_FAILED, got %d %v", status, body)
	}

	status, body = ta.do(t, nethttp.MethodPost, "/auth/login", `{"email":`)
	if status != nethttp.StatusBadRequest || errorCode(body) != "BAD_REQUEST" {
		t.Fatalf("expected 400 BAD_REQUEST, got %d %v", status, body)
	}
}

func TestLoginStoreFailure(t *testing.T) {
	ta := newTestApp(t, failingStore{CredentialStore: store.NewMemory()}, nil)

	status, body := ta.do(t, nethttp.MethodPost, "/auth/login", `{"email":"a@b.com","password":"x"}`)
	if status != nethttp.StatusServiceUnavailable || errorCode(body) != "SESSION_STORE_UNAVAILABLE" {
		t.Fatalf("expected 503, got %d %v", status, body)
	}
}

func TestLogoutAndSession(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)

	if status, _ := ta.do(t, nethttp.MethodPost, "/auth/login", `{"email":"a@b.com","password":"x"}`); status != nethttp.StatusOK {
		t.Fatalf("login: %d", status)
	}
	status, body := ta.do(t, nethttp.MethodGet, "/auth/session", "")
	if status != nethttp.StatusOK || body["data"].(map[string]any)["authenticated"] != true {
		t.Fatalf("session: %d %v", status, body)
	}

	for i := 0; i < 2; i++ {
		if status, _ := ta.do(t, nethttp.MethodPost, "/auth/logout", ""); status != nethttp.StatusNoContent {
			t.Fatalf("logout %d: %d", i, status)
		}
	}

	status, body = ta.do(t, nethttp.MethodGet, "/auth/session", "")
	if status != nethttp.StatusOK || body["data"].(map[string]any)["authenticated"] != false {
		t.Fatalf("expected signed out session, got %d %v", status, body)
	}
}

func TestProductErrors(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)
	if status, _ := ta.do(t, nethttp.MethodPost, "/auth/login", `{"email":"a@b.com","password":"x"}`); status != nethttp.StatusOK {
		t.Fatalf("login: %d", status)
	}

	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/products/abc", nethttp.StatusBadRequest, "BAD_REQUEST"},
		{"/products/404", nethttp.StatusNotFound, "NOT_FOUND"},
		{"/home?limit=-1", nethttp.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		status, body := ta.do(t, nethttp.MethodGet, tc.target, "")
		if status != tc.status || errorCode(body) != tc.code {
			t.Fatalf("%s: expected %d %s, got %d %v", tc.target, tc.status, tc.code, status, body)
		}
	}

	ta.catalog.err = errors.New("connection refused")
	status, body := ta.do(t, nethttp.MethodGet, "/home", "")
	if status != nethttp.StatusBadGateway || errorCode(body) != "CATALOG_UNAVAILABLE" {
		t.Fatalf("expected 502 CATALOG_UNAVAILABLE, got %d %v", status, body)
	}
}

func TestGoogleDisabled(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)
	status, body := ta.do(t, nethttp.MethodGet, "/auth/google/start", "")
	if status != nethttp.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("expected 404 when google is not configured, got %d %v", status, body)
	}
}

func TestHealthProbes(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	ta := newTestApp(t, store.NewMemory(), map[string]handlers.Pinger{"redis": down})

	if status, body := ta.do(t, nethttp.MethodGet, "/health/live", ""); status != nethttp.StatusOK || body["status"] != "alive" {
		t.Fatalf("live: %d %v", status, body)
	}
	status, body := ta.do(t, nethttp.MethodGet, "/health/ready", "")
	if status != nethttp.StatusServiceUnavailable || errorCode(body) != "DEPENDENCY_UNAVAILABLE" {
		t.Fatalf("ready: %d %v", status, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	ta := newTestApp(t, store.NewMemory(), nil)
	status, body := ta.do(t, nethttp.MethodGet, "/nope", "")
	if status != nethttp.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %v", status, body)
	}
}
