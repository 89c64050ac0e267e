package reports

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/caseflow-backend/api/middleware"
	"github.com/angelmondragon/caseflow-backend/internal/reporting"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
)

type stubReporting struct {
	lastFilter reporting.ReportFilter
	calls      int
}

func (s *stubReporting) Profitability(ctx context.Context, filter reporting.ReportFilter) (*reporting.ProfitabilityReport, error) {
	s.calls++
	s.lastFilter = filter
	return &reporting.ProfitabilityReport{From: filter.From, To: filter.To, GroupBy: filter.GroupBy}, nil
}

func (s *stubReporting) SalesMix(ctx context.Context, filter reporting.ReportFilter) (*reporting.SalesMixReport, error) {
	s.calls++
	s.lastFilter = filter
	return &reporting.SalesMixReport{From: filter.From, To: filter.To}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "reports-test", Output: io.Discard})
}

func callerRequest(target string, tenantID uuid.UUID, role enums.ActorRole, buyerID *uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithTenantID(ctx, tenantID.String())
	ctx = middleware.WithRole(ctx, string(role))
	if buyerID != nil {
		ctx = middleware.WithBuyerID(ctx, buyerID.String())
	}
	return req.WithContext(ctx)
}

func TestProfitabilityParsesFilter(t *testing.T) {
	svc := &stubReporting{}
	tenantID := uuid.New()
	productID := uuid.New()
	req := callerRequest("/api/v1/reports/profitability?from=2026-05-01&to=2026-06-01&group_by=product&product_id="+productID.String(), tenantID, enums.ActorRoleDistributorAdmin, nil)
	rec := httptest.NewRecorder()

	Profitability(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastFilter.TenantID != tenantID || svc.lastFilter.GroupBy != reporting.KeyProduct {
		t.Fatalf("unexpected filter %+v", svc.lastFilter)
	}
	if svc.lastFilter.ProductID == nil || *svc.lastFilter.ProductID != productID {
		t.Fatalf("expected product filter")
	}
	if svc.lastFilter.From.Format("2006-01-02") != "2026-05-01" {
		t.Fatalf("unexpected from %s", svc.lastFilter.From)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := envelope["data"]; !ok {
		t.Fatalf("expected data envelope, got %s", rec.Body.String())
	}
}

func TestReportsScopeBuyerCallers(t *testing.T) {
	svc := &stubReporting{}
	buyerID := uuid.New()
	req := callerRequest("/api/v1/reports/sales-mix?from=2026-05-01&to=2026-06-01", uuid.New(), enums.ActorRoleBuyer, &buyerID)
	rec := httptest.NewRecorder()

	SalesMix(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastFilter.BuyerID == nil || *svc.lastFilter.BuyerID != buyerID {
		t.Fatalf("expected buyer scope, got %+v", svc.lastFilter.BuyerID)
	}

	other := uuid.New()
	req = callerRequest("/api/v1/reports/sales-mix?from=2026-05-01&to=2026-06-01&buyer_id="+other.String(), uuid.New(), enums.ActorRoleBuyer, &buyerID)
	rec = httptest.NewRecorder()
	SalesMix(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestReportsRejectBadQuery(t *testing.T) {
	svc := &stubReporting{}
	cases := map[string]string{
		"missing from": "/r?to=2026-06-01",
		"bad date":     "/r?from=May&to=2026-06-01",
		"bad group":    "/r?from=2026-05-01&to=2026-06-01&group_by=region",
		"bad buyer":    "/r?from=2026-05-01&to=2026-06-01&buyer_id=nope",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Profitability(svc, testLogger()).ServeHTTP(rec, callerRequest(target, uuid.New(), enums.ActorRoleDistributorStaff, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}
