package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRuleRequest struct {
	TaxObligationType    string `json:"tax_obligation_type" binding:"required,oneof=GST PAYE INCOME_TAX FBT WITHHOLDING"`
	RuleName             string `json:"rule_name" binding:"required"`
	Description          string `json:"description"`
	DaysFromTrigger      int    `json:"days_from_trigger"`
	TriggerType          string `json:"trigger_type" binding:"required,oneof=PERIOD_END FIXED_DATE EVENT_DATE"`
	AdjustForWeekends    bool   `json:"adjust_for_weekends"`
	AdjustForHolidays    bool   `json:"adjust_for_holidays"`
	StatutoryMinimumDays int    `json:"statutory_minimum_days"`
	IsDefault            bool   `json:"is_default"`
	IsActive             bool   `json:"is_active"`
	EffectiveFrom        string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo          string `json:"effective_to"`                      // YYYY-MM-DD, nullable
}

type UpdateRuleRequest struct {
	TaxObligationType    string `json:"tax_obligation_type" binding:"required,oneof=GST PAYE INCOME_TAX FBT WITHHOLDING"`
	RuleName             string `json:"rule_name" binding:"required"`
	Description          string `json:"description"`
	DaysFromTrigger      int    `json:"days_from_trigger"`
	TriggerType          string `json:"trigger_type" binding:"required,oneof=PERIOD_END FIXED_DATE EVENT_DATE"`
	AdjustForWeekends    bool   `json:"adjust_for_weekends"`
	AdjustForHolidays    bool   `json:"adjust_for_holidays"`
	StatutoryMinimumDays int    `json:"statutory_minimum_days"`
	IsDefault            bool   `json:"is_default"`
	EffectiveFrom        string `json:"effective_from" binding:"required"`
	EffectiveTo          string `json:"effective_to"`
	Version              int    `json:"version" binding:"required"` // Version the caller last read
}

type RuleResponse struct {
	ID                   string  `json:"id"`
	TaxObligationType    string  `json:"tax_obligation_type"`
	RuleName             string  `json:"rule_name"`
	Description          string  `json:"description"`
	DaysFromTrigger      int     `json:"days_from_trigger"`
	TriggerType          string  `json:"trigger_type"`
	AdjustForWeekends    bool    `json:"adjust_for_weekends"`
	AdjustForHolidays    bool    `json:"adjust_for_holidays"`
	StatutoryMinimumDays int     `json:"statutory_minimum_days"`
	IsDefault            bool    `json:"is_default"`
	IsActive             bool    `json:"is_active"`
	EffectiveFrom        string  `json:"effective_from"`
	EffectiveTo          *string `json:"effective_to"`
	Version              int     `json:"version"`
	CreatedAt            string  `json:"created_at"`
}

// --- Interface ---

type RuleService interface {
	CreateRule(ctx context.Context, req CreateRuleRequest, actor string) (RuleResponse, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest, actor string) (RuleResponse, error)
	ActivateRule(ctx context.Context, id string, actor string) (RuleResponse, error)
	DeactivateRule(ctx context.Context, id string, actor string) (RuleResponse, error)
	DeleteRule(ctx context.Context, id string, actor string) error
	GetRule(ctx context.Context, id string) (RuleResponse, error)
	ListRules(ctx context.Context, page, limit int) ([]RuleResponse, int64, error)
	ListActiveRules(ctx context.Context, obligationType string, asOf time.Time) ([]RuleResponse, error)
}

type ruleService struct {
	ruleRepo  repository.RuleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	notifier  ChangeNotifier
}

func NewRuleService(
	ruleRepo repository.RuleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier ChangeNotifier,
) RuleService {
	return &ruleService{
		ruleRepo:  ruleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		notifier:  notifier,
	}
}

// --- Implementation ---

func (s *ruleService) CreateRule(ctx context.Context, req CreateRuleRequest, actor string) (RuleResponse, error) {
	effectiveFrom, effectiveTo, err := validateRuleFields(req.DaysFromTrigger, req.StatutoryMinimumDays, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return RuleResponse{}, err
	}

	rule := model.DeadlineRule{
		TaxObligationType:    req.TaxObligationType,
		RuleName:             req.RuleName,
		Description:          req.Description,
		DaysFromTrigger:      req.DaysFromTrigger,
		TriggerType:          req.TriggerType,
		AdjustForWeekends:    req.AdjustForWeekends,
		AdjustForHolidays:    req.AdjustForHolidays,
		StatutoryMinimumDays: req.StatutoryMinimumDays,
		IsDefault:            req.IsDefault,
		IsActive:             req.IsActive,
		EffectiveFrom:        effectiveFrom,
		EffectiveTo:          effectiveTo,
		Version:              1,
		CreatedBy:            actor,
		UpdatedBy:            actor,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.ruleRepo.Create(txCtx, &rule); createErr != nil {
			return fmt.Errorf("failed to create deadline rule: %w", createErr)
		}

		snapshot, _ := json.Marshal(req)
		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityDeadlineRule,
			EntityID:   rule.ID.String(),
			ChangedBy:  actor,
			FieldName:  model.AuditFieldCreated,
			NewValue:   string(snapshot),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RuleResponse{}, err
	}

	notifyChange(s.notifier, model.EntityDeadlineRule, rule.ID.String(), "created")

	return toRuleResponse(rule), nil
}

func (s *ruleService) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest, actor string) (RuleResponse, error) {
	rule, err := s.loadRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}

	effectiveFrom, effectiveTo, err := validateRuleFields(req.DaysFromTrigger, req.StatutoryMinimumDays, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return RuleResponse{}, err
	}

	updated := *rule
	updated.TaxObligationType = req.TaxObligationType
	updated.RuleName = req.RuleName
	updated.Description = req.Description
	updated.DaysFromTrigger = req.DaysFromTrigger
	updated.TriggerType = req.TriggerType
	updated.AdjustForWeekends = req.AdjustForWeekends
	updated.AdjustForHolidays = req.AdjustForHolidays
	updated.StatutoryMinimumDays = req.StatutoryMinimumDays
	updated.IsDefault = req.IsDefault
	updated.EffectiveFrom = effectiveFrom
	updated.EffectiveTo = effectiveTo
	updated.UpdatedBy = actor

	changes := ruleFieldChanges(rule, &updated, actor)
	if len(changes) == 0 {
		return toRuleResponse(*rule), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		affected, updateErr := s.ruleRepo.UpdateVersioned(txCtx, &updated, req.Version)
		if updateErr != nil {
			return fmt.Errorf("failed to update deadline rule: %w", updateErr)
		}
		if affected == 0 {
			return apperror.Conflict("deadline rule %s was modified concurrently (expected version %d)", id, req.Version)
		}

		for _, entry := range changes {
			if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
				return fmt.Errorf("failed to write audit log: %w", auditErr)
			}
		}

		return nil
	})
	if err != nil {
		return RuleResponse{}, err
	}

	updated.Version = req.Version + 1
	notifyChange(s.notifier, model.EntityDeadlineRule, updated.ID.String(), "updated")

	return toRuleResponse(updated), nil
}

func (s *ruleService) ActivateRule(ctx context.Context, id string, actor string) (RuleResponse, error) {
	return s.setRuleActive(ctx, id, actor, true)
}

func (s *ruleService) DeactivateRule(ctx context.Context, id string, actor string) (RuleResponse, error) {
	return s.setRuleActive(ctx, id, actor, false)
}

func (s *ruleService) setRuleActive(ctx context.Context, id string, actor string, active bool) (RuleResponse, error) {
	rule, err := s.loadRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}

	// Already in the requested state: nothing changed, nothing to audit.
	if rule.IsActive == active {
		return toRuleResponse(*rule), nil
	}

	prior := rule.IsActive
	updated := *rule
	updated.IsActive = active
	updated.UpdatedBy = actor

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		affected, updateErr := s.ruleRepo.UpdateVersioned(txCtx, &updated, rule.Version)
		if updateErr != nil {
			return fmt.Errorf("failed to update deadline rule: %w", updateErr)
		}
		if affected == 0 {
			return apperror.Conflict("deadline rule %s was modified concurrently", id)
		}

		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityDeadlineRule,
			EntityID:   rule.ID.String(),
			ChangedBy:  actor,
			FieldName:  "is_active",
			OldValue:   strconv.FormatBool(prior),
			NewValue:   strconv.FormatBool(active),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RuleResponse{}, err
	}

	updated.Version = rule.Version + 1
	action := "deactivated"
	if active {
		action = "activated"
	}
	notifyChange(s.notifier, model.EntityDeadlineRule, updated.ID.String(), action)

	return toRuleResponse(updated), nil
}

func (s *ruleService) DeleteRule(ctx context.Context, id string, actor string) error {
	rule, err := s.loadRule(ctx, id)
	if err != nil {
		return err
	}

	refs, err := s.auditRepo.CountByEntity(ctx, model.EntityDeadlineRule, rule.ID.String())
	if err != nil {
		return fmt.Errorf("failed to check audit references: %w", err)
	}
	if refs > 0 {
		return apperror.Conflict("deadline rule %s is referenced by %d audit entries and cannot be deleted", id, refs)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.ruleRepo.Delete(txCtx, rule.ID); delErr != nil {
			return fmt.Errorf("failed to delete deadline rule: %w", delErr)
		}

		snapshot, _ := json.Marshal(rule)
		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityDeadlineRule,
			EntityID:   rule.ID.String(),
			ChangedBy:  actor,
			FieldName:  model.AuditFieldRemoved,
			OldValue:   string(snapshot),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return err
	}

	notifyChange(s.notifier, model.EntityDeadlineRule, rule.ID.String(), "deleted")

	return nil
}

func (s *ruleService) GetRule(ctx context.Context, id string) (RuleResponse, error) {
	rule, err := s.loadRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}
	return toRuleResponse(*rule), nil
}

func (s *ruleService) ListRules(ctx context.Context, page, limit int) ([]RuleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	rules, total, err := s.ruleRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch deadline rules: %w", err)
	}

	res := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toRuleResponse(r))
	}

	return res, total, nil
}

func (s *ruleService) ListActiveRules(ctx context.Context, obligationType string, asOf time.Time) ([]RuleResponse, error) {
	rules, err := s.ruleRepo.FindActive(ctx, obligationType, dateOnly(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active deadline rules: %w", err)
	}

	res := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toRuleResponse(r))
	}

	return res, nil
}

// --- Helpers ---

func (s *ruleService) loadRule(ctx context.Context, id string) (*model.DeadlineRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid deadline rule id: %s", id)
	}

	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("deadline rule %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch deadline rule: %w", err)
	}

	return rule, nil
}

func validateRuleFields(daysFromTrigger, statutoryMinimumDays int, fromStr, toStr string) (time.Time, *time.Time, error) {
	if daysFromTrigger < 0 {
		return time.Time{}, nil, apperror.Validation("days_from_trigger must not be negative")
	}
	if statutoryMinimumDays < 0 {
		return time.Time{}, nil, apperror.Validation("statutory_minimum_days must not be negative")
	}
	if daysFromTrigger < statutoryMinimumDays {
		return time.Time{}, nil, apperror.Validation("days_from_trigger (%d) is below the statutory minimum of %d days", daysFromTrigger, statutoryMinimumDays)
	}

	effectiveFrom, err := parseDateField("effective_from", fromStr)
	if err != nil {
		return time.Time{}, nil, err
	}

	var effectiveTo *time.Time
	if toStr != "" {
		t, parseErr := parseDateField("effective_to", toStr)
		if parseErr != nil {
			return time.Time{}, nil, parseErr
		}
		if effectiveFrom.After(t) {
			return time.Time{}, nil, apperror.Validation("effective_from must not be after effective_to")
		}
		effectiveTo = &t
	}

	return effectiveFrom, effectiveTo, nil
}

func parseDateField(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperror.Validation("invalid %s date format (expected YYYY-MM-DD)", field)
	}
	return t.UTC(), nil
}

// ruleFieldChanges builds one audit entry per field that differs between the
// stored rule and the updated copy.
func ruleFieldChanges(prev, next *model.DeadlineRule, actor string) []*model.DeadlineAuditLog {
	var changes []*model.DeadlineAuditLog

	add := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		changes = append(changes, &model.DeadlineAuditLog{
			EntityType: model.EntityDeadlineRule,
			EntityID:   prev.ID.String(),
			ChangedBy:  actor,
			FieldName:  field,
			OldValue:   oldVal,
			NewValue:   newVal,
		})
	}

	add("tax_obligation_type", prev.TaxObligationType, next.TaxObligationType)
	add("rule_name", prev.RuleName, next.RuleName)
	add("description", prev.Description, next.Description)
	add("days_from_trigger", strconv.Itoa(prev.DaysFromTrigger), strconv.Itoa(next.DaysFromTrigger))
	add("trigger_type", prev.TriggerType, next.TriggerType)
	add("adjust_for_weekends", strconv.FormatBool(prev.AdjustForWeekends), strconv.FormatBool(next.AdjustForWeekends))
	add("adjust_for_holidays", strconv.FormatBool(prev.AdjustForHolidays), strconv.FormatBool(next.AdjustForHolidays))
	add("statutory_minimum_days", strconv.Itoa(prev.StatutoryMinimumDays), strconv.Itoa(next.StatutoryMinimumDays))
	add("is_default", strconv.FormatBool(prev.IsDefault), strconv.FormatBool(next.IsDefault))
	add("effective_from", fmtDate(prev.EffectiveFrom), fmtDate(next.EffectiveFrom))
	add("effective_to", fmtDatePtr(prev.EffectiveTo), fmtDatePtr(next.EffectiveTo))

	return changes
}

func toRuleResponse(r model.DeadlineRule) RuleResponse {
	resp := RuleResponse{
		ID:                   r.ID.String(),
		TaxObligationType:    r.TaxObligationType,
		RuleName:             r.RuleName,
		Description:          r.Description,
		DaysFromTrigger:      r.DaysFromTrigger,
		TriggerType:          r.TriggerType,
		AdjustForWeekends:    r.AdjustForWeekends,
		AdjustForHolidays:    r.AdjustForHolidays,
		StatutoryMinimumDays: r.StatutoryMinimumDays,
		IsDefault:            r.IsDefault,
		IsActive:             r.IsActive,
		EffectiveFrom:        fmtDate(r.EffectiveFrom),
		Version:              r.Version,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := fmtDate(*r.EffectiveTo)
		resp.EffectiveTo = &s
	}
	return resp
}
