package models

import (
	"time"

	"github.com/google/uuid"
)

// Order описывает сделку между заказчиком и фрилансером по конкретному гигу.
// Цена фиксируется в минимальных единицах валюты на момент оформления,
// title — снимок названия гига (гиг может измениться после оформления).
type Order struct {
	ID           uuid.UUID `db:"id" json:"id"`
	GigID        uuid.UUID `db:"gig_id" json:"gig_id"`
	ClientID     uuid.UUID `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID `db:"freelancer_id" json:"freelancer_id"`
	Title        string    `db:"title" json:"title"`
	Price        int64     `db:"price" json:"price"`
	RefundAmount int64     `db:"refund_amount" json:"refund_amount"`

	// Три ортогональные оси состояния. Status всегда выводится из
	// EscrowStatus при записи (escrow.DeriveOrderStatus), хранится для
	// выборок внешних потребителей.
	Status        string `db:"status" json:"status"`
	EscrowStatus  string `db:"escrow_status" json:"escrow_status"`
	DisputeStatus string `db:"dispute_status" json:"dispute_status"`

	Revision int `db:"revision" json:"revision"`

	// Поля спора. Заполняются при открытии, резолюция — при закрытии.
	DisputeReason      *string    `db:"dispute_reason" json:"dispute_reason,omitempty"`
	DisputeDetails     *string    `db:"dispute_details" json:"dispute_details,omitempty"`
	DisputeInitiatorID *uuid.UUID `db:"dispute_initiator_id" json:"dispute_initiator_id,omitempty"`
	DisputeOpenedAt    *time.Time `db:"dispute_opened_at" json:"dispute_opened_at,omitempty"`
	ReviewStartedAt    *time.Time `db:"review_started_at" json:"review_started_at,omitempty"`
	ReviewerID         *uuid.UUID `db:"reviewer_id" json:"reviewer_id,omitempty"`
	Resolution         *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy         *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`

	PaidAt               time.Time  `db:"paid_at" json:"paid_at"`
	WorkStartedAt        *time.Time `db:"work_started_at" json:"work_started_at,omitempty"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ApprovedAt           *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ReleasedAt           *time.Time `db:"released_at" json:"released_at,omitempty"`
	AutoReleaseDate      *time.Time `db:"auto_release_date" json:"auto_release_date,omitempty"`
	ClientReviewDeadline *time.Time `db:"client_review_deadline" json:"client_review_deadline,omitempty"`

	// Version — монотонный счётчик для optimistic locking: каждая мутация
	// сравнивает прочитанную версию и отклоняет устаревшую запись.
	Version int64 `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Deliverables []Deliverable `json:"deliverables,omitempty"`
	Milestones   []Milestone   `json:"milestones,omitempty"`
}

// Deliverable — сданная работа. PreviewURL доступен сразу (ограниченный
// просмотр), FinalURL выдаётся только после одобрения заказчиком.
type Deliverable struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	MilestoneID *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`
	PreviewURL  string     `db:"preview_url" json:"preview_url"`
	FinalURL    string     `db:"final_url" json:"final_url"`
	Revision    int        `db:"revision" json:"revision"`
	SubmittedAt time.Time  `db:"submitted_at" json:"submitted_at"`
}

// DisputeEvidence — доказательство стороны спора. Хранится отдельной
// append-only коллекцией по order_id, а не внутри записи заказа.
type DisputeEvidence struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	SubmitterID uuid.UUID `db:"submitter_id" json:"submitter_id"`
	Role        string    `db:"role" json:"role"`
	Kind        string    `db:"kind" json:"kind"`
	URL         *string   `db:"url" json:"url,omitempty"`
	Comment     string    `db:"comment" json:"comment"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
