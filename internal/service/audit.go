package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/logger"
	"github.com/skillmarket/escrow-backend/internal/models"
)

// AuditRepository — порт append-only журнала привилегированных мутаций.
type AuditRepository interface {
	Add(ctx context.Context, entry *models.AuditEntry) error
	ListByTarget(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AuditEntry, error)
}

const auditTargetOrder = "order"

// newOrderAudit собирает аудиторскую запись по заказу со снимками до/после.
func newOrderAudit(actorID uuid.UUID, action string, o *models.Order, before models.OrderSnapshot, details, severity string) *models.AuditEntry {
	oldJSON, _ := json.Marshal(before)
	newJSON, _ := json.Marshal(models.SnapshotOrder(o))
	return &models.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditTargetOrder,
		TargetID:   o.ID,
		Details:    details,
		OldValue:   oldJSON,
		NewValue:   newJSON,
		Severity:   severity,
	}
}

// auditRejection фиксирует отклонённый привилегированный переход.
// Запись best-effort: отказ аудита не должен маскировать исходную ошибку.
func auditRejection(ctx context.Context, audits AuditRepository, actorID uuid.UUID, action string, targetID uuid.UUID, cause error) {
	entry := &models.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditTargetOrder,
		TargetID:   targetID,
		Details:    "переход отклонён: " + cause.Error(),
		Severity:   models.AuditSeverityWarning,
	}
	if err := audits.Add(ctx, entry); err != nil && logger.Log != nil {
		logger.Log.WithError(err).Warn("audit: не удалось записать отклонённый переход")
	}
}
