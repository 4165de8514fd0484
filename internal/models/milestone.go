package models

import (
	"time"

	"github.com/google/uuid"
)

// Milestone — оплачиваемый этап внутри заказа с поэтапным биллингом.
// Принадлежит заказу, собственного жизненного цикла вне него не имеет.
// Инвариант: сумма этапов в статусе paid никогда не превышает цену заказа.
type Milestone struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	Position    int        `db:"position" json:"position"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Amount      int64      `db:"amount" json:"amount"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Status      string     `db:"status" json:"status"`
	Feedback    *string    `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Deliverables []Deliverable `json:"deliverables,omitempty"`
}
