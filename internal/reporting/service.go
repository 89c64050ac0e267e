package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/caseflow-backend/pkg/errors"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
	"github.com/angelmondragon/caseflow-backend/pkg/metrics"
)

// MaxWindow bounds the period a single report may cover.
const MaxWindow = 366 * 24 * time.Hour

type catalogReader interface {
	FindProductsIncludingDeleted(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error)
}

// ReportFilter selects the sold lines of a report.
type ReportFilter struct {
	TenantID  uuid.UUID
	From      time.Time
	To        time.Time
	BuyerID   *uuid.UUID
	ProductID *uuid.UUID
	GroupBy   GroupKey
}

// ProfitabilityReport is the totals of the window plus the optional grouping.
type ProfitabilityReport struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	GroupBy GroupKey  `json:"group_by,omitempty"`
	Totals  Totals    `json:"totals"`
	Groups  []Group   `json:"groups,omitempty"`
}

// SalesMixReport is the per product case versus unit split of the window.
type SalesMixReport struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Products []MixRow  `json:"products"`
}

// Service builds reports from open orders and finalized invoices.
type Service interface {
	Profitability(ctx context.Context, filter ReportFilter) (*ProfitabilityReport, error)
	SalesMix(ctx context.Context, filter ReportFilter) (*SalesMixReport, error)
}

type service struct {
	repo    Repository
	catalog catalogReader
	logg    *logger.Logger
	metrics *metrics.ReportingMetrics
}

// NewService builds the reporting service.
func NewService(repo Repository, catalog catalogReader, logg *logger.Logger, m *metrics.ReportingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reporting repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, catalog: catalog, logg: logg, metrics: m}, nil
}

func (s *service) Profitability(ctx context.Context, filter ReportFilter) (*ProfitabilityReport, error) {
	lines, err := s.normalizedLines(ctx, filter)
	if err != nil {
		return nil, err
	}
	report := &ProfitabilityReport{
		From:    filter.From,
		To:      filter.To,
		GroupBy: filter.GroupBy,
		Totals:  Aggregate(lines),
	}
	if filter.GroupBy != "" {
		report.Groups = GroupBy(lines, filter.GroupBy)
	}
	return report, nil
}

func (s *service) SalesMix(ctx context.Context, filter ReportFilter) (*SalesMixReport, error) {
	lines, err := s.normalizedLines(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &SalesMixReport{
		From:     filter.From,
		To:       filter.To,
		Products: SalesMix(lines),
	}, nil
}

// normalizedLines loads both record families for the window, joins the live catalog rows
// (tombstoned ones included) and normalizes every line.
func (s *service) normalizedLines(ctx context.Context, filter ReportFilter) ([]NormalizedLine, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	window := Window{TenantID: filter.TenantID, From: filter.From, To: filter.To, BuyerID: filter.BuyerID}

	orders, err := s.repo.ListOpenOrders(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open orders")
	}
	invoices, err := s.repo.ListFinalizedInvoices(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoices")
	}

	raws := make([]RawLine, 0)
	for i := range orders {
		for j := range orders[i].Lines {
			raws = append(raws, FromOrderLine(&orders[i], &orders[i].Lines[j]))
		}
	}
	for i := range invoices {
		for j := range invoices[i].Lines {
			raws = append(raws, FromInvoiceLine(&invoices[i], &invoices[i].Lines[j]))
		}
	}
	if filter.ProductID != nil {
		raws = filterProduct(raws, *filter.ProductID)
	}

	refs, err := s.catalogRefs(ctx, filter.TenantID, raws)
	if err != nil {
		return nil, err
	}

	lines := make([]NormalizedLine, 0, len(raws))
	for _, raw := range raws {
		var ref *CatalogRef
		if raw.ProductID != nil {
			ref = refs[*raw.ProductID]
		}
		line := NormalizeLine(raw, ref)
		s.metrics.ObserveLine(string(line.Source), line.IsEstimatedCost)
		lines = append(lines, line)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"tenant_id": filter.TenantID.String(),
		"orders":    len(orders),
		"invoices":  len(invoices),
		"lines":     len(lines),
	}), "report lines normalized")
	return lines, nil
}

func (s *service) catalogRefs(ctx context.Context, tenantID uuid.UUID, raws []RawLine) (map[uuid.UUID]*CatalogRef, error) {
	ids := make([]uuid.UUID, 0)
	seen := map[uuid.UUID]struct{}{}
	for _, raw := range raws {
		if raw.ProductID == nil {
			continue
		}
		if _, ok := seen[*raw.ProductID]; ok {
			continue
		}
		seen[*raw.ProductID] = struct{}{}
		ids = append(ids, *raw.ProductID)
	}
	refs := make(map[uuid.UUID]*CatalogRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	products, err := s.catalog.FindProductsIncludingDeleted(ctx, tenantID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	for i := range products {
		refs[products[i].ID] = CatalogRefFromProduct(&products[i])
	}
	return refs, nil
}

func filterProduct(raws []RawLine, productID uuid.UUID) []RawLine {
	out := raws[:0]
	for _, raw := range raws {
		if raw.ProductID != nil && *raw.ProductID == productID {
			out = append(out, raw)
		}
	}
	return out
}

func validateFilter(filter ReportFilter) error {
	if filter.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if filter.From.IsZero() || filter.To.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !filter.To.After(filter.From) {
		return pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if filter.To.Sub(filter.From) > MaxWindow {
		return pkgerrors.New(pkgerrors.CodeValidation, "report window exceeds one year")
	}
	if _, err := ParseGroupKey(string(filter.GroupBy)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return nil
}
