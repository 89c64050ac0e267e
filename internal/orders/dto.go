package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// LineRequest is one requested cart line.
type LineRequest struct {
	ProductID   uuid.UUID
	Granularity enums.Granularity
	Quantity    int
}

// CreateOrderInput carries the caller identity and the cart.
type CreateOrderInput struct {
	TenantID             uuid.UUID
	BuyerID              uuid.UUID
	Lines                []LineRequest
	ActorID              uuid.UUID
	ActorRole            enums.ActorRole
	Source               enums.OrderSource
	BuyerNote            *string
	AllowCatalogRecovery bool
}

// CreateOrderResult is returned only when the order and all its lines were written.
type CreateOrderResult struct {
	OrderID uuid.UUID `json:"order_id"`
}

// Failure steps reported in OrderErrorDetails.
const (
	StepValidateCart = "validate_cart"
	StepBuyerLink    = "buyer_link"
	StepLoadCatalog  = "load_catalog"
	StepLineRules    = "line_rules"
	StepInsertHeader = "insert_header"
	StepInsertLines  = "insert_lines"
)

// OrderErrorDetails is attached to every CreateOrder error so a cart client can react to it.
type OrderErrorDetails struct {
	Step            string      `json:"step"`
	InvalidItems    []uuid.UUID `json:"invalid_items,omitempty"`
	ShouldRetry     bool        `json:"should_retry"`
	LineIndex       *int        `json:"line_index,omitempty"`
	ProductID       *uuid.UUID  `json:"product_id,omitempty"`
	ProductName     string      `json:"product_name,omitempty"`
	Granularity     string      `json:"granularity,omitempty"`
	LinePieces      *int        `json:"line_pieces,omitempty"`
	RequestedPieces *int        `json:"requested_pieces,omitempty"`
	AvailablePieces *int        `json:"available_pieces,omitempty"`
	RolledBack      *bool       `json:"rolled_back,omitempty"`
}

// StepName lets the error writer log the failing step.
func (d OrderErrorDetails) StepName() string {
	return d.Step
}

// PreviewPricesInput asks for effective prices of products as seen by a buyer.
// A zero BuyerID previews tier and catalog pricing only.
type PreviewPricesInput struct {
	TenantID   uuid.UUID
	BuyerID    uuid.UUID
	ProductIDs []uuid.UUID
}

// PricePreview is the resolved price of one product.
type PricePreview struct {
	ProductID     uuid.UUID        `json:"product_id"`
	Name          string           `json:"name"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	CasePrice     *decimal.Decimal `json:"case_price"`
	UnitSource    string           `json:"unit_source,omitempty"`
	CaseSource    string           `json:"case_source,omitempty"`
	UnitsPerCase  *int             `json:"units_per_case"`
	UnitOrderable bool             `json:"unit_orderable"`
	CaseOrderable bool             `json:"case_orderable"`
	StockPieces   int              `json:"stock_pieces"`
}

// OrderDetail is the read model of a created order.
type OrderDetail struct {
	ID            uuid.UUID          `json:"id"`
	TenantID      uuid.UUID          `json:"tenant_id"`
	BuyerID       uuid.UUID          `json:"buyer_id"`
	Status        enums.OrderStatus  `json:"status"`
	CreatedBy     *uuid.UUID         `json:"created_by,omitempty"`
	CreatedByRole *enums.ActorRole   `json:"created_by_role,omitempty"`
	Source        *enums.OrderSource `json:"source,omitempty"`
	BuyerNote     *string            `json:"buyer_note,omitempty"`
	Total         decimal.Decimal    `json:"total"`
	Lines         []OrderLineDetail  `json:"lines"`
	CreatedAt     time.Time          `json:"created_at"`
}

// OrderLineDetail exposes the stored snapshot fields of one line.
type OrderLineDetail struct {
	ID                 uuid.UUID         `json:"id"`
	Position           int               `json:"position"`
	ProductID          *uuid.UUID        `json:"product_id,omitempty"`
	ProductName        string            `json:"product_name"`
	Category           *string           `json:"category,omitempty"`
	Granularity        enums.Granularity `json:"granularity"`
	Quantity           int               `json:"quantity"`
	UnitsPerCase       *int              `json:"units_per_case,omitempty"`
	UnitPrice          *decimal.Decimal  `json:"unit_price"`
	CasePrice          *decimal.Decimal  `json:"case_price"`
	SellingPriceAtTime decimal.Decimal   `json:"selling_price_at_time"`
	CostPriceAtTime    *decimal.Decimal  `json:"cost_price_at_time,omitempty"`
	LineTotal          decimal.Decimal   `json:"line_total"`
}

func toOrderDetail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{
		ID:            order.ID,
		TenantID:      order.TenantID,
		BuyerID:       order.BuyerID,
		Status:        order.Status,
		CreatedBy:     order.CreatedBy,
		CreatedByRole: order.CreatedByRole,
		Source:        order.Source,
		BuyerNote:     order.BuyerNote,
		Total:         decimal.Zero,
		Lines:         make([]OrderLineDetail, 0, len(order.Lines)),
		CreatedAt:     order.CreatedAt,
	}
	for _, line := range order.Lines {
		detail.Total = detail.Total.Add(line.LineTotal)
		detail.Lines = append(detail.Lines, OrderLineDetail{
			ID:                 line.ID,
			Position:           line.Position,
			ProductID:          line.ProductID,
			ProductName:        line.ProductName,
			Category:           line.Category,
			Granularity:        line.Granularity,
			Quantity:           line.Quantity,
			UnitsPerCase:       line.UnitsPerCaseSnapshot,
			UnitPrice:          nullablePtr(line.UnitPriceSnapshot),
			CasePrice:          nullablePtr(line.CasePriceSnapshot),
			SellingPriceAtTime: line.SellingPriceAtTime,
			CostPriceAtTime:    nullablePtr(line.CostPriceAtTime),
			LineTotal:          line.LineTotal,
		})
	}
	return detail
}

func nullablePtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
