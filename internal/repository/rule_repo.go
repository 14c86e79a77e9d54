package repository

import (
	"context"
	"time"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *model.DeadlineRule) error
	// UpdateVersioned persists rule only if the stored row still carries
	// expectedVersion, bumping the version on success. Returns the number of
	// rows affected; zero means the caller read stale state.
	UpdateVersioned(ctx context.Context, rule *model.DeadlineRule, expectedVersion int) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DeadlineRule, error)
	List(ctx context.Context, page, limit int) ([]model.DeadlineRule, int64, error)
	// FindActive returns active rules whose validity window contains asOf,
	// most recently created first.
	FindActive(ctx context.Context, obligationType string, asOf time.Time) ([]model.DeadlineRule, error)
}

type ruleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.DeadlineRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *ruleRepository) UpdateVersioned(ctx context.Context, rule *model.DeadlineRule, expectedVersion int) (int64, error) {
	// Map form so false booleans and zero day counts are written too.
	res := GetDB(ctx, r.db).Model(&model.DeadlineRule{}).
		Where("id = ? AND version = ?", rule.ID, expectedVersion).
		Updates(map[string]interface{}{
			"tax_obligation_type":    rule.TaxObligationType,
			"rule_name":              rule.RuleName,
			"description":            rule.Description,
			"days_from_trigger":      rule.DaysFromTrigger,
			"trigger_type":           rule.TriggerType,
			"adjust_for_weekends":    rule.AdjustForWeekends,
			"adjust_for_holidays":    rule.AdjustForHolidays,
			"statutory_minimum_days": rule.StatutoryMinimumDays,
			"is_default":             rule.IsDefault,
			"is_active":              rule.IsActive,
			"effective_from":         rule.EffectiveFrom,
			"effective_to":           rule.EffectiveTo,
			"updated_by":             rule.UpdatedBy,
			"version":                expectedVersion + 1,
		})
	return res.RowsAffected, res.Error
}

func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.DeadlineRule{}).Error
}

func (r *ruleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DeadlineRule, error) {
	var rule model.DeadlineRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context, page, limit int) ([]model.DeadlineRule, int64, error) {
	var rules []model.DeadlineRule
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.DeadlineRule{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

func (r *ruleRepository) FindActive(ctx context.Context, obligationType string, asOf time.Time) ([]model.DeadlineRule, error) {
	var rules []model.DeadlineRule
	if err := GetDB(ctx, r.db).
		Where("tax_obligation_type = ? AND is_active = TRUE AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)",
			obligationType, asOf, asOf).
		Order("created_at DESC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
