package routes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/caseflow-backend/internal/orders"
	"github.com/angelmondragon/caseflow-backend/internal/reporting"
	pkgAuth "github.com/angelmondragon/caseflow-backend/pkg/auth"
	"github.com/angelmondragon/caseflow-backend/pkg/config"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type fakeRedis struct {
	mu       sync.Mutex
	data     map[string]string
	counters map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[scope]++
	return f.counters[scope] <= limit, f.counters[scope], nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

type stubOrdersService struct {
	mu      sync.Mutex
	creates int
}

func (s *stubOrdersService) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	return &orders.CreateOrderResult{OrderID: uuid.New()}, nil
}

func (s *stubOrdersService) PreviewPrices(ctx context.Context, input orders.PreviewPricesInput) ([]orders.PricePreview, error) {
	return []orders.PricePreview{}, nil
}

func (s *stubOrdersService) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID, buyerScope *uuid.UUID) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{}, nil
}

type stubReportingService struct{}

func (stubReportingService) Profitability(ctx context.Context, filter reporting.ReportFilter) (*reporting.ProfitabilityReport, error) {
	return &reporting.ProfitabilityReport{From: filter.From, To: filter.To}, nil
}

func (stubReportingService) SalesMix(ctx context.Context, filter reporting.ReportFilter) (*reporting.SalesMixReport, error) {
	return &reporting.SalesMixReport{From: filter.From, To: filter.To}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		Orders: config.OrdersConfig{
			MaxLines:           200,
			RateLimitPerMinute: 5,
		},
		Idempotency: config.IdempotencyConfig{OrdersTTL: time.Hour},
	}
}

func newTestRouter(cfg *config.Config, redis RedisDeps, svc orders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return NewRouter(cfg, logg, stubPinger{}, redis, svc, stubReportingService{}, metrics)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole, userID uuid.UUID, buyerID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   userID,
		TenantID: uuid.New(),
		BuyerID:  buyerID,
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func orderRequest(token, key string) *http.Request {
	body := `{"lines":[{"product_id":"` + uuid.NewString() + `","granularity":"unit","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), newFakeRedis(), &stubOrdersService{})
	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/public/ping"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPrivateRoutesRequireJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newFakeRedis(), &stubOrdersService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleDistributorStaff, uuid.New(), nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestCreateOrderRequiresIdempotencyKeyAndReplays(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(cfg, newFakeRedis(), svc)
	buyerID := uuid.New()
	token := buildToken(t, cfg, enums.ActorRoleBuyer, uuid.New(), &buyerID)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, orderRequest(token, ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	first := httptest.NewRecorder()
	router.ServeHTTP(first, orderRequest(token, "cart-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}

	// The same key with the same body is served from the stored response.
	body := `{"lines":[{"product_id":"` + uuid.NewString() + `","granularity":"unit","quantity":1}]}`
	replayA := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	replayA.Header.Set("Authorization", "Bearer "+token)
	replayA.Header.Set("Idempotency-Key", "cart-2")
	router.ServeHTTP(httptest.NewRecorder(), replayA)

	replayB := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	replayB.Header.Set("Authorization", "Bearer "+token)
	replayB.Header.Set("Idempotency-Key", "cart-2")
	replayed := httptest.NewRecorder()
	router.ServeHTTP(replayed, replayB)
	if replayed.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", replayed.Code)
	}
	if replayed.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if svc.creates != 2 {
		t.Fatalf("expected 2 service calls, got %d", svc.creates)
	}
}

func TestCreateOrderIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Orders.RateLimitPerMinute = 1
	router := newTestRouter(cfg, newFakeRedis(), &stubOrdersService{})
	buyerID := uuid.New()
	token := buildToken(t, cfg, enums.ActorRoleBuyer, uuid.New(), &buyerID)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, orderRequest(token, "cart-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, orderRequest(token, "cart-2"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestReportsRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newFakeRedis(), &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/profitability?from=2026-05-01&to=2026-06-01", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleDistributorAdmin, uuid.New(), nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
