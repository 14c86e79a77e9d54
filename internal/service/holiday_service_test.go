package service

import (
	"context"
	"testing"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHolidayServiceForTest(repo *mockHolidayRepo, cache *HolidayYearCache) (HolidayService, *mockAuditRepo, *mockNotifier) {
	auditRepo := &mockAuditRepo{}
	notifier := &mockNotifier{}
	return NewHolidayService(repo, auditRepo, &mockTxManager{}, notifier, cache), auditRepo, notifier
}

func TestAddHolidayRecurringWithConcreteDate(t *testing.T) {
	svc, _, _ := newHolidayServiceForTest(&mockHolidayRepo{}, nil)

	_, err := svc.AddHoliday(context.Background(), AddHolidayRequest{
		Name:           "Waitangi Day",
		IsRecurring:    true,
		RecurringMonth: 2,
		RecurringDay:   6,
		Date:           "2025-02-06",
	}, "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestAddHolidayOneTimeWithRecurringFields(t *testing.T) {
	svc, _, _ := newHolidayServiceForTest(&mockHolidayRepo{}, nil)

	_, err := svc.AddHoliday(context.Background(), AddHolidayRequest{
		Name:           "Royal Visit",
		Date:           "2025-11-03",
		RecurringMonth: 11,
	}, "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestAddHolidayOneTimeWithoutDate(t *testing.T) {
	svc, _, _ := newHolidayServiceForTest(&mockHolidayRepo{}, nil)

	_, err := svc.AddHoliday(context.Background(), AddHolidayRequest{Name: "Royal Visit"}, "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestAddHolidayRecurringDayValidation(t *testing.T) {
	svc, _, _ := newHolidayServiceForTest(&mockHolidayRepo{}, nil)

	cases := []struct {
		name  string
		month int
		day   int
		valid bool
	}{
		{"month out of range", 13, 1, false},
		{"day out of range", 1, 32, false},
		{"Feb 30 never exists", 2, 30, false},
		{"Feb 29 exists in leap years", 2, 29, true},
		{"Christmas", 12, 25, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddHoliday(context.Background(), AddHolidayRequest{
				Name:           "Probe",
				IsRecurring:    true,
				RecurringMonth: tc.month,
				RecurringDay:   tc.day,
			}, "admin")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.IsKind(err, apperror.KindValidation))
			}
		})
	}
}

func TestAddHolidayWritesAuditAndInvalidatesYear(t *testing.T) {
	cache := NewHolidayYearCache(4)
	cache.add(2025, map[time.Time]struct{}{date(2025, time.January, 1): {}})
	cache.add(2026, map[time.Time]struct{}{})

	svc, auditRepo, notifier := newHolidayServiceForTest(&mockHolidayRepo{}, cache)

	res, err := svc.AddHoliday(context.Background(), AddHolidayRequest{
		Name: "Royal Visit",
		Date: "2025-11-03",
	}, "admin")
	require.NoError(t, err)

	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-11-03", *res.Date)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, model.EntityPublicHoliday, auditRepo.entries[0].EntityType)
	assert.Equal(t, model.AuditFieldCreated, auditRepo.entries[0].FieldName)
	assert.Equal(t, []string{"PUBLIC_HOLIDAY:created"}, notifier.events)

	// The one-time holiday only touches its own year.
	_, hit2025 := cache.get(2025)
	_, hit2026 := cache.get(2026)
	assert.False(t, hit2025)
	assert.True(t, hit2026)
}

func TestAddHolidayRecurringInvalidatesAllYears(t *testing.T) {
	cache := NewHolidayYearCache(4)
	cache.add(2025, map[time.Time]struct{}{})
	cache.add(2026, map[time.Time]struct{}{})

	svc, _, _ := newHolidayServiceForTest(&mockHolidayRepo{}, cache)

	_, err := svc.AddHoliday(context.Background(), AddHolidayRequest{
		Name:           "Waitangi Day",
		IsRecurring:    true,
		RecurringMonth: 2,
		RecurringDay:   6,
	}, "admin")
	require.NoError(t, err)

	_, hit2025 := cache.get(2025)
	_, hit2026 := cache.get(2026)
	assert.False(t, hit2025)
	assert.False(t, hit2026)
}

func TestRemoveHolidayNotFound(t *testing.T) {
	repo := &mockHolidayRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc, _, _ := newHolidayServiceForTest(repo, nil)

	err := svc.RemoveHoliday(context.Background(), uuid.NewString(), "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestRemoveHolidayAuditsSnapshot(t *testing.T) {
	d := date(2025, time.November, 3)
	stored := &model.PublicHoliday{ID: uuid.New(), Name: "Royal Visit", HolidayDate: &d}
	repo := &mockHolidayRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error) {
			return stored, nil
		},
	}
	svc, auditRepo, notifier := newHolidayServiceForTest(repo, nil)

	err := svc.RemoveHoliday(context.Background(), stored.ID.String(), "admin")
	require.NoError(t, err)

	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, model.AuditFieldRemoved, auditRepo.entries[0].FieldName)
	assert.NotEmpty(t, auditRepo.entries[0].OldValue)
	assert.Equal(t, []string{"PUBLIC_HOLIDAY:deleted"}, notifier.events)
}

func TestGetHolidaysExpandsRecurring(t *testing.T) {
	oneTime := oneTimeHoliday("Royal Visit", date(2025, time.November, 3))
	otherYear := oneTimeHoliday("Old Event", date(2024, time.June, 1))
	recurring := model.PublicHoliday{
		ID: uuid.New(), Name: "Waitangi Day", IsRecurring: true, RecurringMonth: 2, RecurringDay: 6, IsNational: true,
	}
	repo := &mockHolidayRepo{
		findForYearFn: func(ctx context.Context, year int) ([]model.PublicHoliday, error) {
			return []model.PublicHoliday{oneTime, otherYear, recurring}, nil
		},
	}
	svc, _, _ := newHolidayServiceForTest(repo, nil)

	occ, err := svc.GetHolidays(context.Background(), 2025)
	require.NoError(t, err)

	require.Len(t, occ, 2)
	assert.Equal(t, "2025-02-06", occ[0].Date)
	assert.Equal(t, "Waitangi Day", occ[0].Name)
	assert.Equal(t, "2025-11-03", occ[1].Date)
}

func TestRecurringFebruary29SkipsNonLeapYears(t *testing.T) {
	leapDay := model.PublicHoliday{
		ID: uuid.New(), Name: "Leap Day", IsRecurring: true, RecurringMonth: 2, RecurringDay: 29,
	}
	repo := &mockHolidayRepo{
		findForYearFn: func(ctx context.Context, year int) ([]model.PublicHoliday, error) {
			return []model.PublicHoliday{leapDay}, nil
		},
	}
	svc, _, _ := newHolidayServiceForTest(repo, nil)

	occ2024, err := svc.GetHolidays(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, occ2024, 1)
	assert.Equal(t, "2024-02-29", occ2024[0].Date)

	occ2025, err := svc.GetHolidays(context.Background(), 2025)
	require.NoError(t, err)
	assert.Empty(t, occ2025)
}

func TestIsHoliday(t *testing.T) {
	repo := &mockHolidayRepo{
		findForYearFn: func(ctx context.Context, year int) ([]model.PublicHoliday, error) {
			return []model.PublicHoliday{
				{ID: uuid.New(), Name: "Waitangi Day", IsRecurring: true, RecurringMonth: 2, RecurringDay: 6},
			}, nil
		},
	}
	svc, _, _ := newHolidayServiceForTest(repo, nil)

	hit, err := svc.IsHoliday(context.Background(), date(2025, time.February, 6))
	require.NoError(t, err)
	assert.True(t, hit)

	miss, err := svc.IsHoliday(context.Background(), date(2025, time.February, 7))
	require.NoError(t, err)
	assert.False(t, miss)
}
