package repository

import (
	"context"

	"taxengine/internal/model"

	"gorm.io/gorm"
)

// AuditRepository is append-only: there is deliberately no update or delete
// operation, so history cannot be rewritten through this boundary.
type AuditRepository interface {
	Log(ctx context.Context, entry *model.DeadlineAuditLog) error
	List(ctx context.Context, entityType, entityID string, page, limit int) ([]model.DeadlineAuditLog, int64, error)
	// CountByEntity backs delete protection: an entity referenced by history
	// may never be hard-deleted.
	CountByEntity(ctx context.Context, entityType, entityID string) (int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.DeadlineAuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, entityType, entityID string, page, limit int) ([]model.DeadlineAuditLog, int64, error) {
	var logs []model.DeadlineAuditLog
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.DeadlineAuditLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("changed_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *auditRepository) CountByEntity(ctx context.Context, entityType, entityID string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.DeadlineAuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	return count, err
}
