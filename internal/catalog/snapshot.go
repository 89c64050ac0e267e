package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/caseflow-backend/internal/pricing"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
)

// PricingSnapshot is the catalog and override state read once for a single request.
// Every price resolved during that request comes from this value, never from a fresh read.
type PricingSnapshot struct {
	TenantID       uuid.UUID
	BuyerID        uuid.UUID
	Products       map[uuid.UUID]models.Product
	BuyerOverrides map[uuid.UUID]models.BuyerPriceOverride
	BulkOverrides  map[uuid.UUID]models.BulkPriceOverride
}

// Product returns the loaded product row.
func (s *PricingSnapshot) Product(productID uuid.UUID) (*models.Product, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.Products[productID]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Missing returns the requested ids that were not loaded, keeping request order.
func (s *PricingSnapshot) Missing(requested []uuid.UUID) []uuid.UUID {
	missing := []uuid.UUID{}
	for _, id := range requested {
		if _, ok := s.Products[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Resolve runs the price waterfall for one product against the snapshot.
func (s *PricingSnapshot) Resolve(productID uuid.UUID) (pricing.EffectivePrices, bool) {
	product, ok := s.Product(productID)
	if !ok {
		return pricing.EffectivePrices{}, false
	}
	var buyer *models.BuyerPriceOverride
	if o, found := s.BuyerOverrides[productID]; found {
		buyer = &o
	}
	var bulk *models.BulkPriceOverride
	if o, found := s.BulkOverrides[productID]; found {
		bulk = &o
	}
	return pricing.ResolveEffectivePrices(product, buyer, bulk), true
}

// SnapshotLoader builds pricing snapshots from the catalog repository.
type SnapshotLoader struct {
	repo Repository
}

// NewSnapshotLoader wires a loader around the repository.
func NewSnapshotLoader(repo Repository) (*SnapshotLoader, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &SnapshotLoader{repo: repo}, nil
}

// Load reads the live products for the tenant, then the buyer and bulk overrides of the
// products that were found. A nil buyer id skips buyer overrides.
func (l *SnapshotLoader) Load(ctx context.Context, tenantID, buyerID uuid.UUID, productIDs []uuid.UUID) (*PricingSnapshot, error) {
	snapshot := &PricingSnapshot{
		TenantID:       tenantID,
		BuyerID:        buyerID,
		Products:       map[uuid.UUID]models.Product{},
		BuyerOverrides: map[uuid.UUID]models.BuyerPriceOverride{},
		BulkOverrides:  map[uuid.UUID]models.BulkPriceOverride{},
	}

	products, err := l.repo.FindProducts(ctx, tenantID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	found := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		snapshot.Products[p.ID] = p
		found = append(found, p.ID)
	}
	if len(found) == 0 {
		return snapshot, nil
	}

	if buyerID != uuid.Nil {
		buyerRows, err := l.repo.FindBuyerOverrides(ctx, tenantID, buyerID, found)
		if err != nil {
			return nil, fmt.Errorf("load buyer overrides: %w", err)
		}
		for _, o := range buyerRows {
			snapshot.BuyerOverrides[o.ProductID] = o
		}
	}

	bulkRows, err := l.repo.FindBulkOverrides(ctx, tenantID, found)
	if err != nil {
		return nil, fmt.Errorf("load bulk overrides: %w", err)
	}
	for _, o := range bulkRows {
		snapshot.BulkOverrides[o.ProductID] = o
	}
	return snapshot, nil
}
