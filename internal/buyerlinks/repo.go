package buyerlinks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/pkg/db"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

const uniqueLinkConstraint = "ux_buyer_links_scope"

// ErrLinkExists is returned by Create when the buyer is already linked to the tenant.
var ErrLinkExists = errors.New("buyer link already exists")

// Repository reads the standing buyer relationships of a tenant.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	IsLinked(ctx context.Context, tenantID, buyerID uuid.UUID) (bool, error)
	FindLink(ctx context.Context, tenantID, buyerID uuid.UUID) (*models.BuyerLink, error)
	Create(ctx context.Context, link *models.BuyerLink) error
	UpdateStatus(ctx context.Context, tenantID, buyerID uuid.UUID, status enums.BuyerLinkStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a buyer link repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// IsLinked reports whether an active link exists. Suspended links do not count.
func (r *repository) IsLinked(ctx context.Context, tenantID, buyerID uuid.UUID) (bool, error) {
	link, err := r.FindLink(ctx, tenantID, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return link.Status == enums.BuyerLinkStatusActive, nil
}

func (r *repository) FindLink(ctx context.Context, tenantID, buyerID uuid.UUID) (*models.BuyerLink, error) {
	var link models.BuyerLink
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND buyer_id = ?", tenantID, buyerID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) Create(ctx context.Context, link *models.BuyerLink) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.Status == "" {
		link.Status = enums.BuyerLinkStatusActive
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if db.IsUniqueViolation(err, uniqueLinkConstraint) {
			return ErrLinkExists
		}
		return err
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, tenantID, buyerID uuid.UUID, status enums.BuyerLinkStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.BuyerLink{}).
		Where("tenant_id = ? AND buyer_id = ?", tenantID, buyerID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
