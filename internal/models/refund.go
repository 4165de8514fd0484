package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы возвратов
const (
	RefundStatusPending    = "pending"
	RefundStatusProcessing = "processing"
	RefundStatusCompleted  = "completed"
	RefundStatusRejected   = "rejected"
)

// Приоритеты обработки возвратов
const (
	RefundPriorityLow    = "low"
	RefundPriorityNormal = "normal"
	RefundPriorityHigh   = "high"
)

// Способы возврата
const (
	RefundMethodBalance  = "balance"
	RefundMethodOriginal = "original_payment"
)

// Refund — отдельная запись журнала возвратов. Заказ хранит только текущее
// урегулированное состояние, а журнал — всю историю попыток: возврат может
// быть запрошен, отклонён и запрошен снова. Связь с заказом только по
// order_id, жизненный цикл записи независим от заказа.
type Refund struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	OrderID      uuid.UUID  `db:"order_id" json:"order_id"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	Amount       int64      `db:"amount" json:"amount"`
	Reason       string     `db:"reason" json:"reason"`
	Description  string     `db:"description" json:"description"`
	Status       string     `db:"status" json:"status"`
	Priority     string     `db:"priority" json:"priority"`
	Method       string     `db:"method" json:"method"`
	RequestedAt  time.Time  `db:"requested_at" json:"requested_at"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy  *uuid.UUID `db:"processed_by" json:"processed_by,omitempty"`
	AdminNotes   *string    `db:"admin_notes" json:"admin_notes,omitempty"`
}

// ValidRefundStatuses список валидных статусов возвратов
var ValidRefundStatuses = map[string]struct{}{
	RefundStatusPending:    {},
	RefundStatusProcessing: {},
	RefundStatusCompleted:  {},
	RefundStatusRejected:   {},
}
