package orders

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/internal/catalog"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/caseflow-backend/pkg/errors"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
	"github.com/angelmondragon/caseflow-backend/pkg/metrics"
)

type stubOrdersRepo struct {
	headers      []models.Order
	lines        []models.OrderLine
	deleted      []uuid.UUID
	deleteCtxErr []error
	metadataSeen []bool
	createOrder  func(order *models.Order) error
	createLines  func(lines []models.OrderLine) error
	deleteOrder  func(orderID uuid.UUID) error
	findOrder    func(tenantID, orderID uuid.UUID) (*models.Order, error)
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order, withMetadata bool) error {
	s.metadataSeen = append(s.metadataSeen, withMetadata)
	if s.createOrder != nil {
		if err := s.createOrder(order); err != nil {
			return err
		}
	}
	s.headers = append(s.headers, *order)
	return nil
}

func (s *stubOrdersRepo) CreateOrderLines(ctx context.Context, lines []models.OrderLine) error {
	if s.createLines != nil {
		if err := s.createLines(lines); err != nil {
			return err
		}
	}
	s.lines = append(s.lines, lines...)
	return nil
}

func (s *stubOrdersRepo) DeleteOrder(ctx context.Context, tenantID, orderID uuid.UUID) error {
	s.deleteCtxErr = append(s.deleteCtxErr, ctx.Err())
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.deleteOrder != nil {
		if err := s.deleteOrder(orderID); err != nil {
			return err
		}
	}
	s.deleted = append(s.deleted, orderID)
	return nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	if s.findOrder != nil {
		return s.findOrder(tenantID, orderID)
	}
	return nil, gorm.ErrRecordNotFound
}

type stubLinks struct {
	linked bool
	err    error
	calls  int
}

func (s *stubLinks) IsLinked(ctx context.Context, tenantID, buyerID uuid.UUID) (bool, error) {
	s.calls++
	return s.linked, s.err
}

type stubLoader struct {
	snapshot *catalog.PricingSnapshot
	err      error
	calls    int
}

func (s *stubLoader) Load(ctx context.Context, tenantID, buyerID uuid.UUID, productIDs []uuid.UUID) (*catalog.PricingSnapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := &catalog.PricingSnapshot{
		TenantID:       tenantID,
		BuyerID:        buyerID,
		Products:       map[uuid.UUID]models.Product{},
		BuyerOverrides: map[uuid.UUID]models.BuyerPriceOverride{},
		BulkOverrides:  map[uuid.UUID]models.BulkPriceOverride{},
	}
	for _, id := range productIDs {
		if p, ok := s.snapshot.Products[id]; ok {
			out.Products[id] = p
		}
		if o, ok := s.snapshot.BuyerOverrides[id]; ok {
			out.BuyerOverrides[id] = o
		}
		if o, ok := s.snapshot.BulkOverrides[id]; ok {
			out.BulkOverrides[id] = o
		}
	}
	return out, nil
}

func newTestSnapshot(products ...models.Product) *catalog.PricingSnapshot {
	snap := &catalog.PricingSnapshot{
		Products:       map[uuid.UUID]models.Product{},
		BuyerOverrides: map[uuid.UUID]models.BuyerPriceOverride{},
		BulkOverrides:  map[uuid.UUID]models.BulkPriceOverride{},
	}
	for _, p := range products {
		snap.Products[p.ID] = p
	}
	return snap
}

func testProduct(name string, stock int) models.Product {
	upc := 6
	return models.Product{
		ID:           uuid.New(),
		Name:         name,
		SellPerUnit:  decimal.NewNullDecimal(decimal.RequireFromString("2.50")),
		SellPerCase:  decimal.NewNullDecimal(decimal.RequireFromString("14")),
		CostPerUnit:  decimal.NewNullDecimal(decimal.RequireFromString("1.25")),
		UnitsPerCase: &upc,
		AllowUnit:    true,
		AllowCase:    true,
		StockPieces:  stock,
	}
}

type testDeps struct {
	repo    *stubOrdersRepo
	links   *stubLinks
	loader  *stubLoader
	metrics *metrics.OrderMetrics
	svc     Service
}

func newTestService(t *testing.T, snapshot *catalog.PricingSnapshot, writeMetadata bool) testDeps {
	t.Helper()
	deps := testDeps{
		repo:    &stubOrdersRepo{},
		links:   &stubLinks{linked: true},
		loader:  &stubLoader{snapshot: snapshot},
		metrics: metrics.NewOrderMetrics(prometheus.NewRegistry()),
	}
	svc, err := NewService(ServiceParams{
		Repo:          deps.repo,
		Links:         deps.links,
		Catalog:       deps.loader,
		Logger:        logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
		Metrics:       deps.metrics,
		WriteMetadata: writeMetadata,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps.svc = svc
	return deps
}

func baseInput(lines ...LineRequest) CreateOrderInput {
	return CreateOrderInput{
		TenantID:  uuid.New(),
		BuyerID:   uuid.New(),
		Lines:     lines,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleBuyer,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%s)", code, typed.Code(), typed.Message())
	}
	return typed
}

func detailsOf(t *testing.T, err *pkgerrors.Error) OrderErrorDetails {
	t.Helper()
	details, ok := err.Details().(OrderErrorDetails)
	if !ok {
		t.Fatalf("expected order error details, got %T", err.Details())
	}
	return details
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	log := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	cases := []ServiceParams{
		{Links: &stubLinks{}, Catalog: &stubLoader{}, Logger: log},
		{Repo: &stubOrdersRepo{}, Catalog: &stubLoader{}, Logger: log},
		{Repo: &stubOrdersRepo{}, Links: &stubLinks{}, Logger: log},
		{Repo: &stubOrdersRepo{}, Links: &stubLinks{}, Catalog: &stubLoader{}},
	}
	for i, params := range cases {
		if _, err := NewService(params); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestCreateOrderRejectsBadCartBeforeIO(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	cases := map[string][]LineRequest{
		"empty cart":          nil,
		"zero quantity":       {{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 0}},
		"negative quantity":   {{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: -2}},
		"unknown granularity": {{ProductID: product.ID, Granularity: "pallet", Quantity: 1}},
		"missing product id":  {{Granularity: enums.GranularityUnit, Quantity: 1}},
		"quantity too large":  {{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: math.MaxInt/6 + 1}},
		"merged too large": {
			{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: MaxLineQuantity},
			{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1},
		},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			deps := newTestService(t, newTestSnapshot(product), true)
			_, err := deps.svc.CreateOrder(context.Background(), baseInput(lines...))
			typed := requireCode(t, err, pkgerrors.CodeValidation)
			if details := detailsOf(t, typed); details.Step != StepValidateCart {
				t.Fatalf("expected step %s, got %s", StepValidateCart, details.Step)
			}
			if deps.links.calls != 0 || deps.loader.calls != 0 {
				t.Fatalf("expected no I/O, got links=%d loader=%d", deps.links.calls, deps.loader.calls)
			}
		})
	}
}

func TestCreateOrderRejectsCartOverLineLimit(t *testing.T) {
	deps := newTestService(t, newTestSnapshot(), true)
	lines := make([]LineRequest, DefaultMaxLines+1)
	for i := range lines {
		lines[i] = LineRequest{ProductID: uuid.New(), Granularity: enums.GranularityUnit, Quantity: 1}
	}
	_, err := deps.svc.CreateOrder(context.Background(), baseInput(lines...))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateOrderRequiresBuyerLink(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)
	deps.links.linked = false

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	typed := requireCode(t, err, pkgerrors.CodeForbidden)
	if !strings.Contains(typed.Message(), "not linked") {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	if deps.loader.calls != 0 || len(deps.repo.headers) != 0 {
		t.Fatalf("expected no catalog load or writes")
	}
}

func TestCreateOrderLinkLookupFailureIsDependencyError(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)
	deps.links.err = errors.New("connection reset")

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestCreateOrderUnknownProductsWithoutRecovery(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	missing := uuid.New()
	deps := newTestService(t, newTestSnapshot(product), true)

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1},
		LineRequest{ProductID: missing, Granularity: enums.GranularityUnit, Quantity: 1},
	))
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	details := detailsOf(t, typed)
	if details.ShouldRetry {
		t.Fatalf("expected should_retry false without recovery")
	}
	if len(details.InvalidItems) != 1 || details.InvalidItems[0] != missing {
		t.Fatalf("unexpected invalid items %v", details.InvalidItems)
	}
	if len(deps.repo.headers) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestCreateOrderUnknownProductsWithRecovery(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	missing := uuid.New()
	deps := newTestService(t, newTestSnapshot(product), true)

	input := baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1},
		LineRequest{ProductID: missing, Granularity: enums.GranularityCase, Quantity: 1},
	)
	input.AllowCatalogRecovery = true
	_, err := deps.svc.CreateOrder(context.Background(), input)
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	details := detailsOf(t, typed)
	if !details.ShouldRetry {
		t.Fatalf("expected should_retry true")
	}
	if len(details.InvalidItems) != 1 || details.InvalidItems[0] != missing {
		t.Fatalf("unexpected invalid items %v", details.InvalidItems)
	}
	if len(deps.repo.headers) != 0 || len(deps.repo.lines) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestCreateOrderRecoveryWithoutSurvivorsHardFails(t *testing.T) {
	deps := newTestService(t, newTestSnapshot(), true)
	input := baseInput(LineRequest{ProductID: uuid.New(), Granularity: enums.GranularityUnit, Quantity: 1})
	input.AllowCatalogRecovery = true

	_, err := deps.svc.CreateOrder(context.Background(), input)
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	if detailsOf(t, typed).ShouldRetry {
		t.Fatalf("expected should_retry false when no line survives")
	}
}

func TestCreateOrderRecoveryReportsSurvivorRuleFailures(t *testing.T) {
	product := testProduct("Lemon Soda", 3)
	deps := newTestService(t, newTestSnapshot(product), true)
	input := baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 4},
		LineRequest{ProductID: uuid.New(), Granularity: enums.GranularityUnit, Quantity: 1},
	)
	input.AllowCatalogRecovery = true

	_, err := deps.svc.CreateOrder(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateOrderRejectsDisallowedGranularity(t *testing.T) {
	unitOnly := testProduct("Loose Gum", 100)
	unitOnly.AllowCase = false
	noCaseSize := testProduct("Bulk Mints", 100)
	noCaseSize.UnitsPerCase = nil
	caseOnly := testProduct("Crate Water", 100)
	caseOnly.AllowUnit = false

	cases := []struct {
		name    string
		product models.Product
		g       enums.Granularity
	}{
		{"case disallowed", unitOnly, enums.GranularityCase},
		{"case without units per case", noCaseSize, enums.GranularityCase},
		{"unit disallowed", caseOnly, enums.GranularityUnit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestService(t, newTestSnapshot(tc.product), true)
			_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: tc.product.ID, Granularity: tc.g, Quantity: 1}))
			typed := requireCode(t, err, pkgerrors.CodeStateConflict)
			if !strings.Contains(typed.Message(), tc.product.Name) {
				t.Fatalf("message %q does not name product", typed.Message())
			}
		})
	}
}

func TestCreateOrderRejectsUnusablePriceNamingGranularity(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	product.SellPerCase = decimal.NullDecimal{}
	product.SellPerUnit = decimal.NullDecimal{}
	snap := newTestSnapshot(product)
	snap.BuyerOverrides[product.ID] = models.BuyerPriceOverride{
		ProductID:    product.ID,
		PricePerCase: decimal.NewNullDecimal(decimal.Zero),
	}
	deps := newTestService(t, snap, true)

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: 1}))
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	if !strings.Contains(typed.Message(), "set a case price for Lemon Soda") {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	details := detailsOf(t, typed)
	if details.ProductName != "Lemon Soda" || details.Granularity != "case" {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestCreateOrderStockCountsMergedAndMixedLines(t *testing.T) {
	product := testProduct("Lemon Soda", 20)
	deps := newTestService(t, newTestSnapshot(product), true)

	// 3 cases of 6 plus 2 + 1 units needs 21 pieces.
	_, err := deps.svc.CreateOrder(context.Background(), baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: 3},
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 2},
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1},
	))
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	details := detailsOf(t, typed)
	if details.RequestedPieces == nil || *details.RequestedPieces != 21 {
		t.Fatalf("expected requested 21, got %v", details.RequestedPieces)
	}
	if details.LinePieces == nil || *details.LinePieces != 3 {
		t.Fatalf("expected line pieces 3, got %v", details.LinePieces)
	}
	if details.AvailablePieces == nil || *details.AvailablePieces != 20 {
		t.Fatalf("expected available 20, got %v", details.AvailablePieces)
	}
	if !strings.Contains(typed.Message(), "line requests 3 pieces, 21 across the cart, available 20") {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestCreateOrderStockSingleLineReportsLinePieces(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: 17},
	))
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	details := detailsOf(t, typed)
	if details.LinePieces == nil || *details.LinePieces != 102 || details.RequestedPieces == nil || *details.RequestedPieces != 102 {
		t.Fatalf("unexpected piece counts %+v", details)
	}
	if len(deps.repo.headers) != 0 {
		t.Fatalf("no header expected")
	}
}

func TestCreateOrderRejectsPieceOverflow(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	upc := math.MaxInt / 2
	product.UnitsPerCase = &upc
	deps := newTestService(t, newTestSnapshot(product), true)

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: 3},
	))
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	if details := detailsOf(t, typed); details.Step != StepLineRules {
		t.Fatalf("expected step %s, got %s", StepLineRules, details.Step)
	}
	if len(deps.repo.headers) != 0 {
		t.Fatalf("no header expected")
	}
}

func TestCreateOrderPersistsSnapshotLines(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	snap := newTestSnapshot(product)
	snap.BulkOverrides[product.ID] = models.BulkPriceOverride{
		ProductID:    product.ID,
		PricePerCase: decimal.NewNullDecimal(decimal.RequireFromString("12")),
	}
	deps := newTestService(t, snap, true)

	note := "  leave at dock  "
	input := baseInput(
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: 2},
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 5},
		LineRequest{ProductID: product.ID, Granularity: enums.GranularityCase, Quantity: 1},
	)
	input.BuyerNote = &note
	result, err := deps.svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if len(deps.repo.headers) != 1 || deps.repo.headers[0].ID != result.OrderID {
		t.Fatalf("expected one header with returned id")
	}
	header := deps.repo.headers[0]
	if header.CreatedBy == nil || *header.CreatedBy != input.ActorID {
		t.Fatalf("expected created_by metadata")
	}
	if header.Source == nil || *header.Source != enums.OrderSourceBuyerPortal {
		t.Fatalf("expected buyer portal source, got %v", header.Source)
	}
	if header.BuyerNote == nil || *header.BuyerNote != "leave at dock" {
		t.Fatalf("expected trimmed note, got %v", header.BuyerNote)
	}
	if !deps.repo.metadataSeen[0] {
		t.Fatalf("expected metadata columns written")
	}

	if len(deps.repo.lines) != 2 {
		t.Fatalf("expected merged case lines, got %d lines", len(deps.repo.lines))
	}
	caseLine := deps.repo.lines[0]
	if caseLine.OrderID != result.OrderID || caseLine.Quantity != 3 || caseLine.Position != 0 {
		t.Fatalf("unexpected case line %+v", caseLine)
	}
	if !caseLine.CasePriceSnapshot.Decimal.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected bulk case price 12, got %s", caseLine.CasePriceSnapshot.Decimal)
	}
	if !caseLine.UnitPriceSnapshot.Decimal.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected catalog unit price 2.5, got %s", caseLine.UnitPriceSnapshot.Decimal)
	}
	if !caseLine.SellingPriceAtTime.Equal(decimal.NewFromInt(12)) || !caseLine.LineTotal.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("unexpected selling price %s or total %s", caseLine.SellingPriceAtTime, caseLine.LineTotal)
	}
	if !caseLine.CostPriceAtTime.Decimal.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("expected case cost derived from unit cost, got %s", caseLine.CostPriceAtTime.Decimal)
	}
	if caseLine.UnitsPerCaseSnapshot == nil || *caseLine.UnitsPerCaseSnapshot != 6 {
		t.Fatalf("expected units per case snapshot")
	}
	unitLine := deps.repo.lines[1]
	if unitLine.Granularity != enums.GranularityUnit || !unitLine.LineTotal.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected unit line %+v", unitLine)
	}
}

func TestCreateOrderSkipsMetadataWhenSchemaLacksIt(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), false)

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if deps.repo.metadataSeen[0] {
		t.Fatalf("expected metadata omitted")
	}
	if header := deps.repo.headers[0]; header.CreatedBy != nil || header.Source != nil {
		t.Fatalf("expected mandatory fields only, got %+v", header)
	}
}

func TestCreateOrderHeaderFailureIsDependencyError(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)
	deps.repo.createOrder = func(order *models.Order) error { return errors.New("insert failed") }

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	typed := requireCode(t, err, pkgerrors.CodeDependency)
	if detailsOf(t, typed).Step != StepInsertHeader {
		t.Fatalf("expected insert_header step")
	}
	if len(deps.repo.deleted) != 0 {
		t.Fatalf("no rollback expected when header insert fails")
	}
}

func TestCreateOrderLineFailureRollsBackHeader(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)
	deps.repo.createLines = func(lines []models.OrderLine) error { return errors.New("line insert failed") }

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	typed := requireCode(t, err, pkgerrors.CodeDependency)
	details := detailsOf(t, typed)
	if details.Step != StepInsertLines || details.RolledBack == nil || !*details.RolledBack {
		t.Fatalf("unexpected details %+v", details)
	}
	if len(deps.repo.headers) != 1 || len(deps.repo.deleted) != 1 || deps.repo.deleted[0] != deps.repo.headers[0].ID {
		t.Fatalf("expected header deleted after line failure")
	}
}

func TestCreateOrderRollbackOutlivesCancelledRequest(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deps.repo.createLines = func(lines []models.OrderLine) error {
		cancel()
		return context.Canceled
	}

	_, err := deps.svc.CreateOrder(ctx, baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	typed := requireCode(t, err, pkgerrors.CodeDependency)
	if details := detailsOf(t, typed); details.RolledBack == nil || !*details.RolledBack {
		t.Fatalf("expected rolled_back true, got %+v", details)
	}
	if len(deps.repo.deleteCtxErr) != 1 || deps.repo.deleteCtxErr[0] != nil {
		t.Fatalf("expected delete to run on a live context, got %v", deps.repo.deleteCtxErr)
	}
}

func TestCreateOrderRollbackFailureCombinesErrors(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	deps := newTestService(t, newTestSnapshot(product), true)
	insertErr := errors.New("line insert failed")
	deleteErr := errors.New("delete failed")
	deps.repo.createLines = func(lines []models.OrderLine) error { return insertErr }
	deps.repo.deleteOrder = func(orderID uuid.UUID) error { return deleteErr }

	_, err := deps.svc.CreateOrder(context.Background(), baseInput(LineRequest{ProductID: product.ID, Granularity: enums.GranularityUnit, Quantity: 1}))
	typed := requireCode(t, err, pkgerrors.CodeDependency)
	if !errors.Is(err, insertErr) || !errors.Is(err, deleteErr) {
		t.Fatalf("expected both errors in chain, got %v", typed.Unwrap())
	}
	if details := detailsOf(t, typed); details.RolledBack == nil || *details.RolledBack {
		t.Fatalf("expected rolled_back false")
	}
}

func TestPreviewPricesUsesOverrides(t *testing.T) {
	product := testProduct("Lemon Soda", 100)
	product.SellPerUnit = decimal.NullDecimal{}
	snap := newTestSnapshot(product)
	snap.BuyerOverrides[product.ID] = models.BuyerPriceOverride{
		ProductID:    product.ID,
		PricePerCase: decimal.NewNullDecimal(decimal.NewFromInt(9)),
	}
	deps := newTestService(t, snap, true)

	previews, err := deps.svc.PreviewPrices(context.Background(), PreviewPricesInput{
		TenantID:   uuid.New(),
		BuyerID:    uuid.New(),
		ProductIDs: []uuid.UUID{product.ID, product.ID, uuid.New()},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("expected one preview, got %d", len(previews))
	}
	got := previews[0]
	if got.CasePrice == nil || !got.CasePrice.Equal(decimal.NewFromInt(9)) || got.CaseSource != "buyer_override" {
		t.Fatalf("unexpected case price %+v", got)
	}
	if got.UnitPrice == nil || !got.UnitPrice.Equal(decimal.NewFromFloat(1.5)) || got.UnitSource != "derived" {
		t.Fatalf("unexpected unit price %+v", got)
	}
	if !got.UnitOrderable || !got.CaseOrderable {
		t.Fatalf("expected both granularities orderable")
	}
}

func TestGetOrderScopesBuyer(t *testing.T) {
	tenantID := uuid.New()
	buyerID := uuid.New()
	orderID := uuid.New()
	deps := newTestService(t, newTestSnapshot(), true)
	deps.repo.findOrder = func(tid, oid uuid.UUID) (*models.Order, error) {
		if tid != tenantID || oid != orderID {
			return nil, gorm.ErrRecordNotFound
		}
		return &models.Order{
			ID:       orderID,
			TenantID: tenantID,
			BuyerID:  buyerID,
			Status:   enums.OrderStatusPending,
			Lines: []models.OrderLine{
				{LineTotal: decimal.NewFromInt(10)},
				{LineTotal: decimal.RequireFromString("2.5")},
			},
		}, nil
	}

	detail, err := deps.svc.GetOrder(context.Background(), tenantID, orderID, &buyerID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !detail.Total.Equal(decimal.RequireFromString("12.5")) || len(detail.Lines) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	other := uuid.New()
	_, err = deps.svc.GetOrder(context.Background(), tenantID, orderID, &other)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = deps.svc.GetOrder(context.Background(), uuid.New(), orderID, nil)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
