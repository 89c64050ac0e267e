package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// BuyerLink is the standing relationship that allows a buyer to order from a tenant.
type BuyerLink struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null"`
	BuyerID   uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	Status    enums.BuyerLinkStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}
