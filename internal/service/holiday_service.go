package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type AddHolidayRequest struct {
	Name           string `json:"name" binding:"required"`
	Date           string `json:"date"` // YYYY-MM-DD, one-time holidays only
	IsRecurring    bool   `json:"is_recurring"`
	RecurringMonth int    `json:"recurring_month"` // 1-12, recurring holidays only
	RecurringDay   int    `json:"recurring_day"`   // 1-31, recurring holidays only
	IsNational     bool   `json:"is_national"`
	Description    string `json:"description"`
}

type HolidayResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Date           *string `json:"date"`
	IsRecurring    bool    `json:"is_recurring"`
	RecurringMonth int     `json:"recurring_month"`
	RecurringDay   int     `json:"recurring_day"`
	IsNational     bool    `json:"is_national"`
	Description    string  `json:"description"`
}

// HolidayOccurrence is one concrete non-business date within a year.
type HolidayOccurrence struct {
	Date       string `json:"date"`
	Name       string `json:"name"`
	HolidayID  string `json:"holiday_id"`
	IsNational bool   `json:"is_national"`
}

// --- Interface ---

type HolidayService interface {
	AddHoliday(ctx context.Context, req AddHolidayRequest, actor string) (HolidayResponse, error)
	RemoveHoliday(ctx context.Context, id string, actor string) error
	GetHolidays(ctx context.Context, year int) ([]HolidayOccurrence, error)
	ListHolidays(ctx context.Context, page, limit int) ([]HolidayResponse, int64, error)
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

type holidayService struct {
	holidayRepo repository.HolidayRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    ChangeNotifier
	cache       *HolidayYearCache
}

func NewHolidayService(
	holidayRepo repository.HolidayRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier ChangeNotifier,
	cache *HolidayYearCache,
) HolidayService {
	return &holidayService{
		holidayRepo: holidayRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
		cache:       cache,
	}
}

// --- Implementation ---

func (s *holidayService) AddHoliday(ctx context.Context, req AddHolidayRequest, actor string) (HolidayResponse, error) {
	holiday := model.PublicHoliday{
		Name:        req.Name,
		IsRecurring: req.IsRecurring,
		IsNational:  req.IsNational,
		Description: req.Description,
	}

	if req.IsRecurring {
		if req.Date != "" {
			return HolidayResponse{}, apperror.Validation("a recurring holiday must not carry a concrete date")
		}
		if err := validateRecurringDay(req.RecurringMonth, req.RecurringDay); err != nil {
			return HolidayResponse{}, err
		}
		holiday.RecurringMonth = req.RecurringMonth
		holiday.RecurringDay = req.RecurringDay
	} else {
		if req.RecurringMonth != 0 || req.RecurringDay != 0 {
			return HolidayResponse{}, apperror.Validation("a one-time holiday must not carry recurring month/day")
		}
		if req.Date == "" {
			return HolidayResponse{}, apperror.Validation("a one-time holiday requires a date")
		}
		date, err := parseDateField("date", req.Date)
		if err != nil {
			return HolidayResponse{}, err
		}
		holiday.HolidayDate = &date
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.holidayRepo.Create(txCtx, &holiday); createErr != nil {
			return fmt.Errorf("failed to create holiday: %w", createErr)
		}

		snapshot, _ := json.Marshal(req)
		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityPublicHoliday,
			EntityID:   holiday.ID.String(),
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
		return HolidayResponse{}, err
	}

	s.invalidate(&holiday)
	notifyChange(s.notifier, model.EntityPublicHoliday, holiday.ID.String(), "created")

	return toHolidayResponse(holiday), nil
}

func (s *holidayService) RemoveHoliday(ctx context.Context, id string, actor string) error {
	holidayID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid holiday id: %s", id)
	}

	holiday, err := s.holidayRepo.FindByID(ctx, holidayID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("holiday %s not found", id)
		}
		return fmt.Errorf("failed to fetch holiday: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.holidayRepo.Delete(txCtx, holiday.ID); delErr != nil {
			return fmt.Errorf("failed to delete holiday: %w", delErr)
		}

		snapshot, _ := json.Marshal(holiday)
		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityPublicHoliday,
			EntityID:   holiday.ID.String(),
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

	s.invalidate(holiday)
	notifyChange(s.notifier, model.EntityPublicHoliday, holiday.ID.String(), "deleted")

	return nil
}

func (s *holidayService) GetHolidays(ctx context.Context, year int) ([]HolidayOccurrence, error) {
	holidays, err := s.holidayRepo.FindForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays: %w", err)
	}

	return occurrencesForYear(holidays, year), nil
}

func (s *holidayService) ListHolidays(ctx context.Context, page, limit int) ([]HolidayResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	holidays, total, err := s.holidayRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch holidays: %w", err)
	}

	res := make([]HolidayResponse, 0, len(holidays))
	for _, h := range holidays {
		res = append(res, toHolidayResponse(h))
	}

	return res, total, nil
}

func (s *holidayService) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	day := dateOnly(date)

	holidays, err := s.holidayRepo.FindForYear(ctx, day.Year())
	if err != nil {
		return false, fmt.Errorf("failed to fetch holidays: %w", err)
	}

	_, ok := holidayDatesForYear(holidays, day.Year())[day]
	return ok, nil
}

// --- Helpers ---

// invalidate drops cached year sets affected by a calendar write. A recurring
// holiday touches every year; a one-time holiday only its own.
func (s *holidayService) invalidate(holiday *model.PublicHoliday) {
	if holiday.IsRecurring || holiday.HolidayDate == nil {
		s.cache.InvalidateAll()
		return
	}
	s.cache.InvalidateYear(holiday.HolidayDate.Year())
}

// validateRecurringDay accepts any (month, day) pair that exists in at least
// one year, so Feb 29 is a legal recurring holiday.
func validateRecurringDay(month, day int) error {
	if month < 1 || month > 12 {
		return apperror.Validation("recurring_month must be between 1 and 12")
	}
	if day < 1 || day > 31 {
		return apperror.Validation("recurring_day must be between 1 and 31")
	}
	// Normalize against a leap year; overflow means the day never exists.
	probe := time.Date(2000, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(probe.Month()) != month || probe.Day() != day {
		return apperror.Validation("recurring day %d does not exist in month %d", day, month)
	}
	return nil
}

// concreteDate resolves a holiday to its concrete date within the given year.
// A recurring Feb 29 does not materialize in non-leap years.
func concreteDate(h model.PublicHoliday, year int) (time.Time, bool) {
	if h.IsRecurring {
		date := time.Date(year, time.Month(h.RecurringMonth), h.RecurringDay, 0, 0, 0, 0, time.UTC)
		if int(date.Month()) != h.RecurringMonth || date.Day() != h.RecurringDay {
			return time.Time{}, false // date does not exist this year
		}
		return date, true
	}
	if h.HolidayDate == nil || h.HolidayDate.Year() != year {
		return time.Time{}, false
	}
	return dateOnly(*h.HolidayDate), true
}

// occurrencesForYear expands recurring holidays into the given year's concrete
// dates and keeps one-time holidays falling within that year, sorted by date.
func occurrencesForYear(holidays []model.PublicHoliday, year int) []HolidayOccurrence {
	occurrences := make([]HolidayOccurrence, 0, len(holidays))

	for _, h := range holidays {
		date, ok := concreteDate(h, year)
		if !ok {
			continue
		}
		occurrences = append(occurrences, HolidayOccurrence{
			Date:       fmtDate(date),
			Name:       h.Name,
			HolidayID:  h.ID.String(),
			IsNational: h.IsNational,
		})
	}

	sort.Slice(occurrences, func(i, j int) bool { return occurrences[i].Date < occurrences[j].Date })

	return occurrences
}

// holidayDatesForYear is the set form of occurrencesForYear, used by the
// deadline calculator for membership checks.
func holidayDatesForYear(holidays []model.PublicHoliday, year int) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		if date, ok := concreteDate(h, year); ok {
			set[date] = struct{}{}
		}
	}
	return set
}

func toHolidayResponse(h model.PublicHoliday) HolidayResponse {
	resp := HolidayResponse{
		ID:             h.ID.String(),
		Name:           h.Name,
		IsRecurring:    h.IsRecurring,
		RecurringMonth: h.RecurringMonth,
		RecurringDay:   h.RecurringDay,
		IsNational:     h.IsNational,
		Description:    h.Description,
	}
	if h.HolidayDate != nil {
		s := fmtDate(*h.HolidayDate)
		resp.Date = &s
	}
	return resp
}
