package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// OrderMetadataColumns are optional header columns gated by the schema contract.
var OrderMetadataColumns = []string{"created_by", "created_by_role", "source", "buyer_note"}

// Order is the header created once per purchase.
type Order struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null"`
	BuyerID       uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	Status        enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedBy     *uuid.UUID         `gorm:"column:created_by;type:uuid"`
	CreatedByRole *enums.ActorRole   `gorm:"column:created_by_role;type:text"`
	Source        *enums.OrderSource `gorm:"column:source;type:text"`
	BuyerNote     *string            `gorm:"column:buyer_note"`
	Lines         []OrderLine        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
