package repository

import (
	"context"
	"time"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtensionRepository interface {
	Create(ctx context.Context, ext *model.ClientExtension) error
	Update(ctx context.Context, ext *model.ClientExtension) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.ClientExtension, int64, error)
	// FindCandidates returns non-revoked extensions for the client/obligation
	// whose validity window contains asOf and whose tax year is either nil or
	// matches taxYear (when taxYear is nil, only year-agnostic rows qualify).
	// Ordered most recently granted first.
	FindCandidates(ctx context.Context, clientID uuid.UUID, obligationType string, taxYear *int, asOf time.Time) ([]model.ClientExtension, error)
}

type extensionRepository struct {
	db *gorm.DB
}

func NewExtensionRepository(db *gorm.DB) ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, ext *model.ClientExtension) error {
	return GetDB(ctx, r.db).Create(ext).Error
}

func (r *extensionRepository) Update(ctx context.Context, ext *model.ClientExtension) error {
	return GetDB(ctx, r.db).Save(ext).Error
}

func (r *extensionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error) {
	var ext model.ClientExtension
	if err := GetDB(ctx, r.db).First(&ext, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ext, nil
}

func (r *extensionRepository) ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.ClientExtension, int64, error) {
	var exts []model.ClientExtension
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.ClientExtension{}).Where("client_id = ?", clientID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("client_id = ?", clientID).
		Order("granted_at desc").Offset(offset).Limit(limit).Find(&exts).Error; err != nil {
		return nil, 0, err
	}

	return exts, total, nil
}

func (r *extensionRepository) FindCandidates(ctx context.Context, clientID uuid.UUID, obligationType string, taxYear *int, asOf time.Time) ([]model.ClientExtension, error) {
	query := GetDB(ctx, r.db).
		Where("client_id = ? AND tax_obligation_type = ? AND revoked = FALSE", clientID, obligationType).
		Where("granted_at <= ? AND (expiry_date IS NULL OR expiry_date >= ?)", asOf, asOf)

	if taxYear != nil {
		query = query.Where("(tax_year IS NULL OR tax_year = ?)", *taxYear)
	} else {
		query = query.Where("tax_year IS NULL")
	}

	var exts []model.ClientExtension
	if err := query.Order("granted_at DESC").Find(&exts).Error; err != nil {
		return nil, err
	}
	return exts, nil
}
