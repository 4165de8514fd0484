package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Уровни важности аудиторских записей
const (
	AuditSeverityInfo     = "info"
	AuditSeverityWarning  = "warning"
	AuditSeverityHigh     = "high"
	AuditSeverityCritical = "critical"
)

// Действия админ-шлюза
const (
	AuditActionForceStatus    = "order.force_status"
	AuditActionForceRefund    = "order.force_refund"
	AuditActionProcessRefund  = "refund.process"
	AuditActionDisputeReview  = "dispute.review"
	AuditActionDisputeResolve = "dispute.resolve"
)

// AuditEntry — неизменяемая append-only запись о привилегированной мутации.
// OldValue/NewValue хранят снимки состояния до и после для сверки.
type AuditEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ActorID    uuid.UUID       `db:"actor_id" json:"actor_id"`
	Action     string          `db:"action" json:"action"`
	TargetType string          `db:"target_type" json:"target_type"`
	TargetID   uuid.UUID       `db:"target_id" json:"target_id"`
	Details    string          `db:"details" json:"details"`
	OldValue   json.RawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue   json.RawMessage `db:"new_value" json:"new_value,omitempty"`
	Severity   string          `db:"severity" json:"severity"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// OrderSnapshot — компактный снимок полей состояния заказа для old/new
// значений аудиторской записи.
type OrderSnapshot struct {
	Status        string `json:"status"`
	EscrowStatus  string `json:"escrow_status"`
	DisputeStatus string `json:"dispute_status"`
	RefundAmount  int64  `json:"refund_amount"`
}

// SnapshotOrder собирает снимок состояния заказа.
func SnapshotOrder(o *Order) OrderSnapshot {
	return OrderSnapshot{
		Status:        o.Status,
		EscrowStatus:  o.EscrowStatus,
		DisputeStatus: o.DisputeStatus,
		RefundAmount:  o.RefundAmount,
	}
}
