package service

import (
	"context"
	"time"

	"taxengine/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ChangedBy  string `json:"changed_by"`
	ChangedAt  string `json:"changed_at"`
	FieldName  string `json:"field_name"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
	Reason     string `json:"reason"`
}

// AuditService is read-only: entries are written inside the mutating
// services' transactions, never through this surface.
type AuditService interface {
	GetAuditLogs(ctx context.Context, entityType, entityID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, entityType, entityID string, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, entityType, entityID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			ChangedBy:  l.ChangedBy,
			ChangedAt:  l.ChangedAt.Format(time.RFC3339),
			FieldName:  l.FieldName,
			OldValue:   l.OldValue,
			NewValue:   l.NewValue,
			Reason:     l.Reason,
		})
	}

	return res, total, nil
}
