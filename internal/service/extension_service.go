package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type GrantExtensionRequest struct {
	ClientID          string `json:"client_id" binding:"required"`
	TaxObligationType string `json:"tax_obligation_type" binding:"required,oneof=GST PAYE INCOME_TAX FBT WITHHOLDING"`
	TaxYear           *int   `json:"tax_year"` // Nullable = applies to all years
	ExtensionDays     int    `json:"extension_days"`
	Reason            string `json:"reason"`
	ApprovedBy        string `json:"approved_by" binding:"required"`
	ExpiryDate        string `json:"expiry_date"` // YYYY-MM-DD, nullable
}

type ExtensionResponse struct {
	ID                string  `json:"id"`
	ClientID          string  `json:"client_id"`
	TaxObligationType string  `json:"tax_obligation_type"`
	TaxYear           *int    `json:"tax_year"`
	ExtensionDays     int     `json:"extension_days"`
	Reason            string  `json:"reason"`
	ApprovedBy        string  `json:"approved_by"`
	GrantedAt         string  `json:"granted_at"`
	ExpiryDate        *string `json:"expiry_date"`
	Revoked           bool    `json:"revoked"`
	RevokedAt         *string `json:"revoked_at"`
	RevokedBy         string  `json:"revoked_by"`
}

// --- Interface ---

type ExtensionService interface {
	GrantExtension(ctx context.Context, req GrantExtensionRequest, actor string) (ExtensionResponse, error)
	// RevokeExtension is idempotent: revoking an already-revoked extension is
	// a no-op success, not an error.
	RevokeExtension(ctx context.Context, id string, revokedBy string) (ExtensionResponse, error)
	// GetActiveExtension returns nil when no extension applies — absence is
	// not an error for this read.
	GetActiveExtension(ctx context.Context, clientID uuid.UUID, obligationType string, taxYear *int, asOf time.Time) (*ExtensionResponse, error)
	ListExtensions(ctx context.Context, clientID string, page, limit int) ([]ExtensionResponse, int64, error)
}

type extensionService struct {
	extensionRepo repository.ExtensionRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	notifier      ChangeNotifier
}

func NewExtensionService(
	extensionRepo repository.ExtensionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier ChangeNotifier,
) ExtensionService {
	return &extensionService{
		extensionRepo: extensionRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		notifier:      notifier,
	}
}

// --- Implementation ---

func (s *extensionService) GrantExtension(ctx context.Context, req GrantExtensionRequest, actor string) (ExtensionResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return ExtensionResponse{}, apperror.Validation("invalid client_id: %s", req.ClientID)
	}
	if req.ExtensionDays < 0 {
		return ExtensionResponse{}, apperror.Validation("extension_days must not be negative")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return ExtensionResponse{}, apperror.Validation("reason is required")
	}

	var expiryDate *time.Time
	if req.ExpiryDate != "" {
		t, parseErr := parseDateField("expiry_date", req.ExpiryDate)
		if parseErr != nil {
			return ExtensionResponse{}, parseErr
		}
		expiryDate = &t
	}

	ext := model.ClientExtension{
		ClientID:          clientID,
		TaxObligationType: req.TaxObligationType,
		TaxYear:           req.TaxYear,
		ExtensionDays:     req.ExtensionDays,
		Reason:            strings.TrimSpace(req.Reason),
		ApprovedBy:        req.ApprovedBy,
		GrantedAt:         time.Now().UTC(),
		ExpiryDate:        expiryDate,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.extensionRepo.Create(txCtx, &ext); createErr != nil {
			return fmt.Errorf("failed to create extension: %w", createErr)
		}

		snapshot, _ := json.Marshal(req)
		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityClientExtension,
			EntityID:   ext.ID.String(),
			ChangedBy:  actor,
			FieldName:  model.AuditFieldCreated,
			NewValue:   string(snapshot),
			Reason:     ext.Reason,
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return ExtensionResponse{}, err
	}

	notifyChange(s.notifier, model.EntityClientExtension, ext.ID.String(), "granted")

	return toExtensionResponse(ext), nil
}

func (s *extensionService) RevokeExtension(ctx context.Context, id string, revokedBy string) (ExtensionResponse, error) {
	extID, err := uuid.Parse(id)
	if err != nil {
		return ExtensionResponse{}, apperror.Validation("invalid extension id: %s", id)
	}

	ext, err := s.extensionRepo.FindByID(ctx, extID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExtensionResponse{}, apperror.NotFound("extension %s not found", id)
		}
		return ExtensionResponse{}, fmt.Errorf("failed to fetch extension: %w", err)
	}

	if ext.Revoked {
		return toExtensionResponse(*ext), nil
	}

	now := time.Now().UTC()
	ext.Revoked = true
	ext.RevokedAt = &now
	ext.RevokedBy = revokedBy

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.extensionRepo.Update(txCtx, ext); updateErr != nil {
			return fmt.Errorf("failed to revoke extension: %w", updateErr)
		}

		entry := &model.DeadlineAuditLog{
			EntityType: model.EntityClientExtension,
			EntityID:   ext.ID.String(),
			ChangedBy:  revokedBy,
			FieldName:  "revoked",
			OldValue:   strconv.FormatBool(false),
			NewValue:   strconv.FormatBool(true),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return ExtensionResponse{}, err
	}

	notifyChange(s.notifier, model.EntityClientExtension, ext.ID.String(), "revoked")

	return toExtensionResponse(*ext), nil
}

func (s *extensionService) GetActiveExtension(ctx context.Context, clientID uuid.UUID, obligationType string, taxYear *int, asOf time.Time) (*ExtensionResponse, error) {
	candidates, err := s.extensionRepo.FindCandidates(ctx, clientID, obligationType, taxYear, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch extension candidates: %w", err)
	}

	ext := selectExtension(candidates, taxYear)
	if ext == nil {
		return nil, nil // no applicable extension — not an error
	}

	resp := toExtensionResponse(*ext)
	return &resp, nil
}

func (s *extensionService) ListExtensions(ctx context.Context, clientID string, page, limit int) ([]ExtensionResponse, int64, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, 0, apperror.Validation("invalid client_id: %s", clientID)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	exts, total, err := s.extensionRepo.ListByClient(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch extensions: %w", err)
	}

	res := make([]ExtensionResponse, 0, len(exts))
	for _, e := range exts {
		res = append(res, toExtensionResponse(e))
	}

	return res, total, nil
}

// --- Helpers ---

// selectExtension picks the single applicable extension among candidates
// ordered most recently granted first: an exact tax-year match beats a
// year-agnostic grant, and within the same specificity the most recent grant
// wins. The specificity policy is an assumption of this engine, pending
// stakeholder confirmation.
func selectExtension(candidates []model.ClientExtension, taxYear *int) *model.ClientExtension {
	if taxYear != nil {
		for i := range candidates {
			if candidates[i].TaxYear != nil && *candidates[i].TaxYear == *taxYear {
				return &candidates[i]
			}
		}
	}
	for i := range candidates {
		if candidates[i].TaxYear == nil {
			return &candidates[i]
		}
	}
	return nil
}

func toExtensionResponse(e model.ClientExtension) ExtensionResponse {
	resp := ExtensionResponse{
		ID:                e.ID.String(),
		ClientID:          e.ClientID.String(),
		TaxObligationType: e.TaxObligationType,
		TaxYear:           e.TaxYear,
		ExtensionDays:     e.ExtensionDays,
		Reason:            e.Reason,
		ApprovedBy:        e.ApprovedBy,
		GrantedAt:         e.GrantedAt.Format(time.RFC3339),
		Revoked:           e.Revoked,
		RevokedBy:         e.RevokedBy,
	}
	if e.ExpiryDate != nil {
		s := fmtDate(*e.ExpiryDate)
		resp.ExpiryDate = &s
	}
	if e.RevokedAt != nil {
		s := e.RevokedAt.Format(time.RFC3339)
		resp.RevokedAt = &s
	}
	return resp
}
