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

func newExtensionServiceForTest(repo *mockExtensionRepo) (ExtensionService, *mockAuditRepo, *mockTxManager, *mockNotifier) {
	auditRepo := &mockAuditRepo{}
	tx := &mockTxManager{}
	notifier := &mockNotifier{}
	return NewExtensionService(repo, auditRepo, tx, notifier), auditRepo, tx, notifier
}

func validGrantRequest() GrantExtensionRequest {
	return GrantExtensionRequest{
		ClientID:          uuid.NewString(),
		TaxObligationType: model.ObligationIncomeTax,
		ExtensionDays:     30,
		Reason:            "Agency client list extension",
		ApprovedBy:        "commissioner",
	}
}

func TestGrantExtensionInvalidClientID(t *testing.T) {
	svc, _, _, _ := newExtensionServiceForTest(&mockExtensionRepo{})

	req := validGrantRequest()
	req.ClientID = "not-a-uuid"

	_, err := svc.GrantExtension(context.Background(), req, "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestGrantExtensionNegativeDays(t *testing.T) {
	svc, _, _, _ := newExtensionServiceForTest(&mockExtensionRepo{})

	req := validGrantRequest()
	req.ExtensionDays = -5

	_, err := svc.GrantExtension(context.Background(), req, "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestGrantExtensionBlankReason(t *testing.T) {
	svc, _, _, _ := newExtensionServiceForTest(&mockExtensionRepo{})

	req := validGrantRequest()
	req.Reason = "   "

	_, err := svc.GrantExtension(context.Background(), req, "admin")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Contains(t, err.Error(), "reason")
}

func TestGrantExtensionWritesAuditWithReason(t *testing.T) {
	svc, auditRepo, tx, notifier := newExtensionServiceForTest(&mockExtensionRepo{})

	res, err := svc.GrantExtension(context.Background(), validGrantRequest(), "admin")
	require.NoError(t, err)

	assert.Equal(t, 30, res.ExtensionDays)
	assert.False(t, res.Revoked)
	assert.Equal(t, 1, tx.calls)
	require.Len(t, auditRepo.entries, 1)
	entry := auditRepo.entries[0]
	assert.Equal(t, model.EntityClientExtension, entry.EntityType)
	assert.Equal(t, model.AuditFieldCreated, entry.FieldName)
	assert.Equal(t, "Agency client list extension", entry.Reason)
	assert.Equal(t, []string{"CLIENT_EXTENSION:granted"}, notifier.events)
}

func TestRevokeExtensionNotFound(t *testing.T) {
	repo := &mockExtensionRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc, _, _, _ := newExtensionServiceForTest(repo)

	_, err := svc.RevokeExtension(context.Background(), uuid.NewString(), "admin")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestRevokeExtensionIdempotent(t *testing.T) {
	revokedAt := date(2025, time.June, 1)
	stored := &model.ClientExtension{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		Revoked:  true, RevokedAt: &revokedAt, RevokedBy: "manager",
		GrantedAt: date(2025, time.January, 10),
	}
	updates := 0
	repo := &mockExtensionRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error) {
			return stored, nil
		},
		updateFn: func(ctx context.Context, ext *model.ClientExtension) error {
			updates++
			return nil
		},
	}
	svc, auditRepo, tx, notifier := newExtensionServiceForTest(repo)

	res, err := svc.RevokeExtension(context.Background(), stored.ID.String(), "admin")
	require.NoError(t, err)

	assert.True(t, res.Revoked)
	assert.Equal(t, "manager", res.RevokedBy) // original revoker stands
	assert.Zero(t, updates)
	assert.Zero(t, tx.calls)
	assert.Empty(t, auditRepo.entries)
	assert.Empty(t, notifier.events)
}

func TestRevokeExtensionAuditsTransition(t *testing.T) {
	stored := &model.ClientExtension{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		GrantedAt: date(2025, time.January, 10),
	}
	repo := &mockExtensionRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error) {
			return stored, nil
		},
	}
	svc, auditRepo, _, notifier := newExtensionServiceForTest(repo)

	res, err := svc.RevokeExtension(context.Background(), stored.ID.String(), "admin")
	require.NoError(t, err)

	assert.True(t, res.Revoked)
	assert.Equal(t, "admin", res.RevokedBy)
	require.NotNil(t, res.RevokedAt)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, "revoked", auditRepo.entries[0].FieldName)
	assert.Equal(t, "false", auditRepo.entries[0].OldValue)
	assert.Equal(t, "true", auditRepo.entries[0].NewValue)
	assert.Equal(t, []string{"CLIENT_EXTENSION:revoked"}, notifier.events)
}

func TestGetActiveExtensionAbsenceIsNotAnError(t *testing.T) {
	svc, _, _, _ := newExtensionServiceForTest(&mockExtensionRepo{})

	res, err := svc.GetActiveExtension(context.Background(), uuid.New(), model.ObligationGST, nil, date(2025, time.March, 31))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func extWithYear(year *int, grantedAt time.Time) model.ClientExtension {
	return model.ClientExtension{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		TaxYear:   year,
		GrantedAt: grantedAt,
	}
}

func TestSelectExtensionExactYearBeatsAgnostic(t *testing.T) {
	year := 2025
	// Candidates arrive most recently granted first; the year-agnostic grant
	// is newer but the exact-year match still wins.
	agnostic := extWithYear(nil, date(2025, time.March, 1))
	exact := extWithYear(&year, date(2025, time.January, 1))

	got := selectExtension([]model.ClientExtension{agnostic, exact}, &year)
	require.NotNil(t, got)
	assert.Equal(t, exact.ID, got.ID)
}

func TestSelectExtensionMostRecentWithinSpecificity(t *testing.T) {
	year := 2025
	newer := extWithYear(&year, date(2025, time.March, 1))
	older := extWithYear(&year, date(2025, time.January, 1))

	got := selectExtension([]model.ClientExtension{newer, older}, &year)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestSelectExtensionNilYearOnlyMatchesAgnostic(t *testing.T) {
	year := 2025
	specific := extWithYear(&year, date(2025, time.March, 1))
	agnostic := extWithYear(nil, date(2025, time.January, 1))

	got := selectExtension([]model.ClientExtension{specific, agnostic}, nil)
	require.NotNil(t, got)
	assert.Equal(t, agnostic.ID, got.ID)

	assert.Nil(t, selectExtension([]model.ClientExtension{specific}, nil))
}

func TestListExtensionsInvalidClientID(t *testing.T) {
	svc, _, _, _ := newExtensionServiceForTest(&mockExtensionRepo{})

	_, _, err := svc.ListExtensions(context.Background(), "nope", 1, 20)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
