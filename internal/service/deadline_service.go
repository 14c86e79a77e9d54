package service

import (
	"context"
	"fmt"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

// CalculateDeadlineResult carries the final date plus the breakdown the admin
// UI shows alongside it: which rule fired, which extension applied, and which
// adjustments moved the date.
type CalculateDeadlineResult struct {
	TaxObligationType     string  `json:"tax_obligation_type"`
	TriggerDate           string  `json:"trigger_date"`
	DeadlineDate          string  `json:"deadline_date"`
	TotalDays             int     `json:"total_days"`
	RuleID                string  `json:"rule_id"`
	RuleName              string  `json:"rule_name"`
	DaysFromTrigger       int     `json:"days_from_trigger"`
	StatutoryMinimumDays  int     `json:"statutory_minimum_days"`
	ExtensionID           *string `json:"extension_id"`
	ExtensionDays         int     `json:"extension_days"`
	WeekendAdjusted       bool    `json:"weekend_adjusted"`
	HolidayAdjusted       bool    `json:"holiday_adjusted"`
	StatutoryFloorApplied bool    `json:"statutory_floor_applied"`
}

// --- Interface ---

// DeadlineService is the read-only calculator. It never writes to any store
// and is safe for unbounded concurrent invocation.
type DeadlineService interface {
	CalculateDeadline(ctx context.Context, obligationType string, triggerDate time.Time, clientID *uuid.UUID) (*CalculateDeadlineResult, error)
}

type deadlineService struct {
	ruleRepo      repository.RuleRepository
	holidayRepo   repository.HolidayRepository
	extensionRepo repository.ExtensionRepository
	cache         *HolidayYearCache
}

func NewDeadlineService(
	ruleRepo repository.RuleRepository,
	holidayRepo repository.HolidayRepository,
	extensionRepo repository.ExtensionRepository,
	cache *HolidayYearCache,
) DeadlineService {
	return &deadlineService{
		ruleRepo:      ruleRepo,
		holidayRepo:   holidayRepo,
		extensionRepo: extensionRepo,
		cache:         cache,
	}
}

// --- Implementation ---

func (s *deadlineService) CalculateDeadline(ctx context.Context, obligationType string, triggerDate time.Time, clientID *uuid.UUID) (*CalculateDeadlineResult, error) {
	trigger := dateOnly(triggerDate)

	rules, err := s.ruleRepo.FindActive(ctx, obligationType, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active deadline rules: %w", err)
	}
	if len(rules) == 0 {
		// Never fall back to a zero-day or default deadline.
		return nil, apperror.NoApplicableRule("no active deadline rule for %s covering %s", obligationType, fmtDate(trigger))
	}

	rule := selectRule(rules)

	result := &CalculateDeadlineResult{
		TaxObligationType:    obligationType,
		TriggerDate:          fmtDate(trigger),
		RuleID:               rule.ID.String(),
		RuleName:             rule.RuleName,
		DaysFromTrigger:      rule.DaysFromTrigger,
		StatutoryMinimumDays: rule.StatutoryMinimumDays,
	}

	// Base is calendar days from the trigger, not business days.
	base := trigger.AddDate(0, 0, rule.DaysFromTrigger)

	if clientID != nil {
		ext, extErr := s.activeExtension(ctx, *clientID, obligationType, trigger)
		if extErr != nil {
			return nil, extErr
		}
		if ext != nil {
			base = base.AddDate(0, 0, ext.ExtensionDays)
			id := ext.ID.String()
			result.ExtensionID = &id
			result.ExtensionDays = ext.ExtensionDays
		}
	}

	base, err = s.adjust(ctx, rule, base, result)
	if err != nil {
		return nil, err
	}

	// Statutory floor: a rule valid at write time can go stale if the minimum
	// was later raised, so the invariant is re-checked here.
	if daysBetween(trigger, base) < rule.StatutoryMinimumDays {
		result.StatutoryFloorApplied = true
		base = trigger.AddDate(0, 0, rule.StatutoryMinimumDays)
		base, err = s.adjust(ctx, rule, base, result)
		if err != nil {
			return nil, err
		}
	}

	result.DeadlineDate = fmtDate(base)
	result.TotalDays = daysBetween(trigger, base)

	return result, nil
}

// --- Helpers ---

// selectRule picks the applicable rule among active rules ordered most
// recently created first: a non-default rule (explicit override) beats the
// default, and remaining ties go to the most recently created. The tie-break
// among overlapping defaults is a design assumption pending stakeholder
// confirmation.
func selectRule(rules []model.DeadlineRule) *model.DeadlineRule {
	for i := range rules {
		if !rules[i].IsDefault {
			return &rules[i]
		}
	}
	return &rules[0]
}

func (s *deadlineService) activeExtension(ctx context.Context, clientID uuid.UUID, obligationType string, trigger time.Time) (*model.ClientExtension, error) {
	// The tax year of a calculation is the calendar year of its trigger date.
	taxYear := trigger.Year()

	candidates, err := s.extensionRepo.FindCandidates(ctx, clientID, obligationType, &taxYear, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch extension candidates: %w", err)
	}

	return selectExtension(candidates, &taxYear), nil
}

// adjust advances base past weekends and holidays per the rule's flags. It
// loops rather than shifting once: skipping a holiday can land on a weekend
// and vice versa. Termination is guaranteed because each year's holiday set
// is finite.
func (s *deadlineService) adjust(ctx context.Context, rule *model.DeadlineRule, base time.Time, result *CalculateDeadlineResult) (time.Time, error) {
	for {
		if rule.AdjustForWeekends && isWeekend(base) {
			result.WeekendAdjusted = true
			base = base.AddDate(0, 0, 1)
			continue
		}
		if rule.AdjustForHolidays {
			holiday, err := s.isHoliday(ctx, base)
			if err != nil {
				return time.Time{}, err
			}
			if holiday {
				result.HolidayAdjusted = true
				base = base.AddDate(0, 0, 1)
				continue
			}
		}
		return base, nil
	}
}

func (s *deadlineService) isHoliday(ctx context.Context, date time.Time) (bool, error) {
	set, err := s.yearHolidaySet(ctx, date.Year())
	if err != nil {
		return false, err
	}
	_, ok := set[dateOnly(date)]
	return ok, nil
}

// yearHolidaySet reads the expanded holiday set for a year through the LRU
// cache, building it once per year per cache lifetime.
func (s *deadlineService) yearHolidaySet(ctx context.Context, year int) (map[time.Time]struct{}, error) {
	if set, ok := s.cache.get(year); ok {
		return set, nil
	}

	holidays, err := s.holidayRepo.FindForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays for %d: %w", year, err)
	}

	set := holidayDatesForYear(holidays, year)
	s.cache.add(year, set)
	return set, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// dateOnly truncates to a UTC calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b (UTC midnight dates).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func fmtDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtDate(*t)
}
