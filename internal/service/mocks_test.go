package service

import (
	"context"
	"time"

	"taxengine/internal/model"

	"github.com/google/uuid"
)

// mockRuleRepo implements repository.RuleRepository for testing.
type mockRuleRepo struct {
	createFn          func(ctx context.Context, rule *model.DeadlineRule) error
	updateVersionedFn func(ctx context.Context, rule *model.DeadlineRule, expectedVersion int) (int64, error)
	deleteFn          func(ctx context.Context, id uuid.UUID) error
	findByIDFn        func(ctx context.Context, id uuid.UUID) (*model.DeadlineRule, error)
	listFn            func(ctx context.Context, page, limit int) ([]model.DeadlineRule, int64, error)
	findActiveFn      func(ctx context.Context, obligationType string, asOf time.Time) ([]model.DeadlineRule, error)
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *model.DeadlineRule) error {
	if m.createFn == nil {
		rule.ID = uuid.New()
		return nil
	}
	return m.createFn(ctx, rule)
}

func (m *mockRuleRepo) UpdateVersioned(ctx context.Context, rule *model.DeadlineRule, expectedVersion int) (int64, error) {
	if m.updateVersionedFn == nil {
		return 1, nil
	}
	return m.updateVersionedFn(ctx, rule, expectedVersion)
}

func (m *mockRuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, id)
}

func (m *mockRuleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DeadlineRule, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockRuleRepo) List(ctx context.Context, page, limit int) ([]model.DeadlineRule, int64, error) {
	return m.listFn(ctx, page, limit)
}

func (m *mockRuleRepo) FindActive(ctx context.Context, obligationType string, asOf time.Time) ([]model.DeadlineRule, error) {
	return m.findActiveFn(ctx, obligationType, asOf)
}

// mockHolidayRepo implements repository.HolidayRepository for testing.
type mockHolidayRepo struct {
	createFn      func(ctx context.Context, holiday *model.PublicHoliday) error
	deleteFn      func(ctx context.Context, id uuid.UUID) error
	findByIDFn    func(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error)
	listFn        func(ctx context.Context, page, limit int) ([]model.PublicHoliday, int64, error)
	findForYearFn func(ctx context.Context, year int) ([]model.PublicHoliday, error)
}

func (m *mockHolidayRepo) Create(ctx context.Context, holiday *model.PublicHoliday) error {
	if m.createFn == nil {
		holiday.ID = uuid.New()
		return nil
	}
	return m.createFn(ctx, holiday)
}

func (m *mockHolidayRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, id)
}

func (m *mockHolidayRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockHolidayRepo) List(ctx context.Context, page, limit int) ([]model.PublicHoliday, int64, error) {
	return m.listFn(ctx, page, limit)
}

func (m *mockHolidayRepo) FindForYear(ctx context.Context, year int) ([]model.PublicHoliday, error) {
	if m.findForYearFn == nil {
		return nil, nil
	}
	return m.findForYearFn(ctx, year)
}

// mockExtensionRepo implements repository.ExtensionRepository for testing.
type mockExtensionRepo struct {
	createFn         func(ctx context.Context, ext *model.ClientExtension) error
	updateFn         func(ctx context.Context, ext *model.ClientExtension) error
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error)
	listByClientFn   func(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.ClientExtension, int64, error)
	findCandidatesFn func(ctx context.Context, clientID uuid.UUID, obligationType string, taxYear *int, asOf time.Time) ([]model.ClientExtension, error)
}

func (m *mockExtensionRepo) Create(ctx context.Context, ext *model.ClientExtension) error {
	if m.createFn == nil {
		ext.ID = uuid.New()
		return nil
	}
	return m.createFn(ctx, ext)
}

func (m *mockExtensionRepo) Update(ctx context.Context, ext *model.ClientExtension) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, ext)
}

func (m *mockExtensionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockExtensionRepo) ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.ClientExtension, int64, error) {
	return m.listByClientFn(ctx, clientID, page, limit)
}

func (m *mockExtensionRepo) FindCandidates(ctx context.Context, clientID uuid.UUID, obligationType string, taxYear *int, asOf time.Time) ([]model.ClientExtension, error) {
	if m.findCandidatesFn == nil {
		return nil, nil
	}
	return m.findCandidatesFn(ctx, clientID, obligationType, taxYear, asOf)
}

// mockAuditRepo implements repository.AuditRepository and records every
// logged entry so tests can assert on the captured history.
type mockAuditRepo struct {
	entries []*model.DeadlineAuditLog
	logErr  error
	count   int64
	listFn  func(ctx context.Context, entityType, entityID string, page, limit int) ([]model.DeadlineAuditLog, int64, error)
}

func (m *mockAuditRepo) Log(ctx context.Context, entry *model.DeadlineAuditLog) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, entityType, entityID string, page, limit int) ([]model.DeadlineAuditLog, int64, error) {
	return m.listFn(ctx, entityType, entityID, page, limit)
}

func (m *mockAuditRepo) CountByEntity(ctx context.Context, entityType, entityID string) (int64, error) {
	return m.count, nil
}

// fieldEntry returns the first recorded entry for the given field name.
func (m *mockAuditRepo) fieldEntry(field string) *model.DeadlineAuditLog {
	for _, e := range m.entries {
		if e.FieldName == field {
			return e
		}
	}
	return nil
}

// mockTxManager runs the closure directly, counting invocations.
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockNotifier records broadcast config-change events.
type mockNotifier struct {
	events []string
}

func (m *mockNotifier) NotifyConfigChange(entityType, entityID, action string) {
	m.events = append(m.events, entityType+":"+action)
}
