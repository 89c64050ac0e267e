package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/internal/catalog"
	"github.com/angelmondragon/caseflow-backend/internal/pricing"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/caseflow-backend/pkg/errors"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
	"github.com/angelmondragon/caseflow-backend/pkg/metrics"
)

// DefaultMaxLines caps the number of distinct lines accepted in one cart.
const DefaultMaxLines = 200

// MaxLineQuantity is the largest quantity order_lines.quantity can store.
const MaxLineQuantity = math.MaxInt32

// rollbackTimeout bounds the compensating delete, which runs even after the request is gone.
const rollbackTimeout = 5 * time.Second

// Service creates orders and exposes the read paths built on the same pricing snapshot.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	PreviewPrices(ctx context.Context, input PreviewPricesInput) ([]PricePreview, error)
	GetOrder(ctx context.Context, tenantID, orderID uuid.UUID, buyerScope *uuid.UUID) (*OrderDetail, error)
}

// ServiceParams wires the order service collaborators.
type ServiceParams struct {
	Repo    Repository
	Links   linkChecker
	Catalog snapshotLoader
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
	// WriteMetadata is set from the startup schema contract.
	WriteMetadata bool
	MaxLines      int
}

type service struct {
	repo          Repository
	links         linkChecker
	catalog       snapshotLoader
	logg          *logger.Logger
	metrics       *metrics.OrderMetrics
	writeMetadata bool
	maxLines      int
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Links == nil {
		return nil, fmt.Errorf("buyer link checker required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog snapshot loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxLines := params.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &service{
		repo:          params.Repo,
		links:         params.Links,
		catalog:       params.Catalog,
		logg:          params.Logger,
		metrics:       params.Metrics,
		writeMetadata: params.WriteMetadata,
		maxLines:      maxLines,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	start := time.Now()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id":  input.TenantID.String(),
		"buyer_id":   input.BuyerID.String(),
		"actor_id":   input.ActorID.String(),
		"actor_role": string(input.ActorRole),
	})

	result, err := s.createOrder(ctx, input)
	s.metrics.ObserveCreate(outcomeFor(err), time.Since(start))
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			s.logg.Warn(ctx, fmt.Sprintf("order rejected: %s", typed.Message()))
		} else {
			s.logg.Error(ctx, "order creation failed", err)
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", result.OrderID.String()), "order created")
	return result, nil
}

func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	lines, err := s.validateCart(input)
	if err != nil {
		return nil, err
	}

	linked, err := s.links.IsLinked(ctx, input.TenantID, input.BuyerID)
	if err != nil {
		return nil, stepError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check buyer link"), OrderErrorDetails{Step: StepBuyerLink})
	}
	if !linked {
		return nil, stepError(pkgerrors.New(pkgerrors.CodeForbidden, "buyer is not linked to this distributor"), OrderErrorDetails{Step: StepBuyerLink})
	}

	snapshot, err := s.catalog.Load(ctx, input.TenantID, input.BuyerID, productIDs(lines))
	if err != nil {
		return nil, stepError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog"), OrderErrorDetails{Step: StepLoadCatalog})
	}

	invalid := snapshot.Missing(productIDs(lines))
	if len(invalid) > 0 {
		return nil, s.rejectMissing(ctx, input, lines, invalid, snapshot)
	}

	orderID := uuid.New()
	snapshots, err := s.applyLineRules(input.TenantID, lines, snapshot)
	if err != nil {
		return nil, err
	}
	for i := range snapshots {
		snapshots[i].OrderID = orderID
	}

	order := &models.Order{
		ID:       orderID,
		TenantID: input.TenantID,
		BuyerID:  input.BuyerID,
		Status:   enums.OrderStatusPending,
	}
	if s.writeMetadata {
		applyMetadata(order, input)
	}

	if err := s.repo.CreateOrder(ctx, order, s.writeMetadata); err != nil {
		return nil, stepError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order header"), OrderErrorDetails{Step: StepInsertHeader})
	}

	if err := s.repo.CreateOrderLines(ctx, snapshots); err != nil {
		return nil, s.rollback(ctx, input.TenantID, orderID, err)
	}

	return &CreateOrderResult{OrderID: orderID}, nil
}

// validateCart checks cart shape before any I/O and merges repeated (product, granularity) lines.
func (s *service) validateCart(input CreateOrderInput) ([]LineRequest, error) {
	if input.TenantID == uuid.Nil {
		return nil, validationError("tenant id required", nil)
	}
	if input.BuyerID == uuid.Nil {
		return nil, validationError("buyer id required", nil)
	}
	if len(input.Lines) == 0 {
		return nil, validationError("cart is empty", nil)
	}
	if len(input.Lines) > s.maxLines {
		return nil, validationError(fmt.Sprintf("cart exceeds %d lines", s.maxLines), nil)
	}

	type lineKey struct {
		productID   uuid.UUID
		granularity enums.Granularity
	}
	merged := make([]LineRequest, 0, len(input.Lines))
	index := map[lineKey]int{}
	for i, line := range input.Lines {
		lineIndex := i
		if line.ProductID == uuid.Nil {
			return nil, validationError(fmt.Sprintf("line %d: product id required", i), &lineIndex)
		}
		if line.Quantity <= 0 {
			return nil, validationError(fmt.Sprintf("line %d: quantity must be a positive integer", i), &lineIndex)
		}
		if line.Quantity > MaxLineQuantity {
			return nil, validationError(fmt.Sprintf("line %d: quantity exceeds %d", i, MaxLineQuantity), &lineIndex)
		}
		if !line.Granularity.IsValid() {
			return nil, validationError(fmt.Sprintf("line %d: unknown granularity %q", i, line.Granularity), &lineIndex)
		}
		key := lineKey{productID: line.ProductID, granularity: line.Granularity}
		if pos, ok := index[key]; ok {
			if line.Quantity > MaxLineQuantity-merged[pos].Quantity {
				return nil, validationError(fmt.Sprintf("line %d: combined quantity exceeds %d", i, MaxLineQuantity), &lineIndex)
			}
			merged[pos].Quantity += line.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// rejectMissing builds the unknown-product error. With recovery enabled the surviving lines
// are checked first so a resubmitted trimmed cart is expected to succeed.
func (s *service) rejectMissing(ctx context.Context, input CreateOrderInput, lines []LineRequest, invalid []uuid.UUID, snapshot *catalog.PricingSnapshot) error {
	details := OrderErrorDetails{
		Step:         StepLoadCatalog,
		InvalidItems: invalid,
	}
	message := fmt.Sprintf("products not available: %s", joinIDs(invalid))
	if !input.AllowCatalogRecovery {
		return stepError(pkgerrors.New(pkgerrors.CodeNotFound, message), details)
	}

	survivors := make([]LineRequest, 0, len(lines))
	for _, line := range lines {
		if _, ok := snapshot.Product(line.ProductID); ok {
			survivors = append(survivors, line)
		}
	}
	if len(survivors) == 0 {
		return stepError(pkgerrors.New(pkgerrors.CodeNotFound, message), details)
	}
	if _, err := s.applyLineRules(input.TenantID, survivors, snapshot); err != nil {
		return err
	}

	s.logg.Warn(s.logg.WithField(ctx, "invalid_items", len(invalid)), "cart trimmed for resubmission")
	details.ShouldRetry = true
	return stepError(pkgerrors.New(pkgerrors.CodeNotFound, message+"; remove them and resubmit"), details)
}

// applyLineRules enforces granularity, price and stock rules in request order and returns
// the line snapshots. Stock is checked against the pieces required by all lines of a product.
func (s *service) applyLineRules(tenantID uuid.UUID, lines []LineRequest, snapshot *catalog.PricingSnapshot) ([]models.OrderLine, error) {
	required := map[uuid.UUID]int{}
	out := make([]models.OrderLine, 0, len(lines))
	for i, line := range lines {
		product, ok := snapshot.Product(line.ProductID)
		if !ok {
			return nil, lineError(i, line, nil, "product not loaded", stockCheck{})
		}
		prices, _ := snapshot.Resolve(line.ProductID)

		if !granularityAllowed(product, line.Granularity) {
			return nil, lineError(i, line, product,
				fmt.Sprintf("%s cannot be ordered by the %s", product.Name, line.Granularity), stockCheck{})
		}
		if !prices.Orderable(line.Granularity) {
			return nil, lineError(i, line, product,
				fmt.Sprintf("%s has no usable %s price; set a %s price for %s", product.Name, line.Granularity, line.Granularity, product.Name), stockCheck{})
		}

		pieces, err := pricing.RequiredPieces(line.Granularity, line.Quantity, product.UnitsPerCase)
		if errors.Is(err, pricing.ErrNoCaseSize) {
			return nil, lineError(i, line, product,
				fmt.Sprintf("%s has no units per case", product.Name), stockCheck{})
		}
		if err != nil {
			return nil, lineError(i, line, product,
				fmt.Sprintf("quantity for %s is out of range", product.Name), stockCheck{})
		}
		prior := required[product.ID]
		if pieces > product.StockPieces-prior {
			available := product.StockPieces
			check := stockCheck{line: &pieces, available: &available}
			message := fmt.Sprintf("insufficient stock for %s: line requests %d pieces, available %d", product.Name, pieces, product.StockPieces)
			if prior > 0 && pieces <= math.MaxInt-prior {
				total := prior + pieces
				check.total = &total
				message = fmt.Sprintf("insufficient stock for %s: line requests %d pieces, %d across the cart, available %d",
					product.Name, pieces, total, product.StockPieces)
			}
			return nil, lineError(i, line, product, message, check)
		}
		required[product.ID] = prior + pieces

		out = append(out, buildLineSnapshot(tenantID, i, line, product, prices))
	}
	return out, nil
}

// rollback deletes the header after a failed line insert so no order without lines stays visible.
// The delete is detached from the request so a cancelled caller cannot leave the header behind.
func (s *service) rollback(ctx context.Context, tenantID, orderID uuid.UUID, insertErr error) error {
	combined := insertErr
	rolledBack := true
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if delErr := s.repo.DeleteOrder(delCtx, tenantID, orderID); delErr != nil {
		rolledBack = false
		combined = multierr.Append(insertErr, fmt.Errorf("delete order header: %w", delErr))
	}
	s.metrics.IncRollback()
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{
		"order_id":    orderID.String(),
		"rolled_back": rolledBack,
	}), "order line insert failed", combined)

	return stepError(
		pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "insert order lines"),
		OrderErrorDetails{Step: StepInsertLines, RolledBack: &rolledBack},
	)
}

func (s *service) PreviewPrices(ctx context.Context, input PreviewPricesInput) ([]PricePreview, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product ids required")
	}
	if len(input.ProductIDs) > s.maxLines {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d products per preview", s.maxLines))
	}

	snapshot, err := s.catalog.Load(ctx, input.TenantID, input.BuyerID, input.ProductIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}

	previews := make([]PricePreview, 0, len(input.ProductIDs))
	seen := map[uuid.UUID]struct{}{}
	for _, id := range input.ProductIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		product, ok := snapshot.Product(id)
		if !ok {
			continue
		}
		prices, _ := snapshot.Resolve(id)
		previews = append(previews, PricePreview{
			ProductID:     product.ID,
			Name:          product.Name,
			UnitPrice:     nullablePtr(prices.UnitPrice),
			CasePrice:     nullablePtr(prices.CasePrice),
			UnitSource:    string(prices.UnitSource),
			CaseSource:    string(prices.CaseSource),
			UnitsPerCase:  copyInt(product.UnitsPerCase),
			UnitOrderable: granularityAllowed(product, enums.GranularityUnit) && prices.Orderable(enums.GranularityUnit),
			CaseOrderable: granularityAllowed(product, enums.GranularityCase) && prices.Orderable(enums.GranularityCase),
			StockPieces:   product.StockPieces,
		})
	}
	return previews, nil
}

func (s *service) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID, buyerScope *uuid.UUID) (*OrderDetail, error) {
	if tenantID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and order id required")
	}
	order, err := s.repo.FindOrder(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if buyerScope != nil && order.BuyerID != *buyerScope {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toOrderDetail(order), nil
}

func granularityAllowed(product *models.Product, g enums.Granularity) bool {
	if g == enums.GranularityCase {
		_, hasUPC := product.CaseSize()
		return product.AllowCase && hasUPC
	}
	return product.AllowUnit
}

func applyMetadata(order *models.Order, input CreateOrderInput) {
	if input.ActorID != uuid.Nil {
		actor := input.ActorID
		order.CreatedBy = &actor
	}
	if input.ActorRole.IsValid() {
		role := input.ActorRole
		order.CreatedByRole = &role
	}
	source := input.Source
	if !source.IsValid() {
		source = enums.SourceForRole(input.ActorRole)
	}
	order.Source = &source
	if input.BuyerNote != nil {
		note := strings.TrimSpace(*input.BuyerNote)
		if note != "" {
			order.BuyerNote = &note
		}
	}
}

func productIDs(lines []LineRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

func stepError(err *pkgerrors.Error, details OrderErrorDetails) *pkgerrors.Error {
	return err.WithDetails(details)
}

func validationError(message string, lineIndex *int) error {
	return stepError(pkgerrors.New(pkgerrors.CodeValidation, message), OrderErrorDetails{
		Step:      StepValidateCart,
		LineIndex: lineIndex,
	})
}

// stockCheck carries the piece counts of a failed stock rule.
type stockCheck struct {
	line      *int
	total     *int
	available *int
}

func lineError(index int, line LineRequest, product *models.Product, message string, check stockCheck) error {
	productID := line.ProductID
	details := OrderErrorDetails{
		Step:            StepLineRules,
		LineIndex:       &index,
		ProductID:       &productID,
		Granularity:     string(line.Granularity),
		LinePieces:      check.line,
		RequestedPieces: check.total,
		AvailablePieces: check.available,
	}
	if details.RequestedPieces == nil {
		details.RequestedPieces = check.line
	}
	if product != nil {
		details.ProductName = product.Name
	}
	return stepError(pkgerrors.New(pkgerrors.CodeStateConflict, message), details)
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeCreated
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeFailed
	}
	if details, ok := typed.Details().(OrderErrorDetails); ok {
		if details.ShouldRetry {
			return metrics.OutcomeRetry
		}
		if details.RolledBack != nil {
			return metrics.OutcomeRolledBack
		}
	}
	if typed.Code() == pkgerrors.CodeDependency || typed.Code() == pkgerrors.CodeInternal {
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeRejected
}
