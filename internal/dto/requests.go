package dto

import "time"

// CreateOrderRequest — оформление заказа. Цена и этапы фиксируются
// на момент фондирования.
type CreateOrderRequest struct {
	GigID        string                   `json:"gig_id" binding:"required,uuid"`
	FreelancerID string                   `json:"freelancer_id" binding:"required,uuid"`
	Title        string                   `json:"title" binding:"required,max=200"`
	Price        int64                    `json:"price" binding:"required,gt=0"`
	Milestones   []CreateMilestoneRequest `json:"milestones" binding:"omitempty,dive"`
}

type CreateMilestoneRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=2000"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	DueDate     *time.Time `json:"due_date"`
}

// SubmitWorkRequest — сдача работы исполнителем.
type SubmitWorkRequest struct {
	PreviewURL string `json:"preview_url" binding:"required,url"`
	FinalURL   string `json:"final_url" binding:"required,url"`
	Version    int64  `json:"version"`
}

// RevisionRequest — запрос правок заказчиком.
type RevisionRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
	Version int64  `json:"version"`
}

// ApproveRequest — приёмка работы или этапа.
type ApproveRequest struct {
	Feedback string `json:"feedback" binding:"max=2000"`
	Version  int64  `json:"version"`
}

// VersionedRequest — мутация без дополнительных полей, только
// опциональная проверка версии.
type VersionedRequest struct {
	Version int64 `json:"version"`
}

// OpenDisputeRequest — открытие спора участником сделки.
type OpenDisputeRequest struct {
	Reason  string `json:"reason" binding:"required,max=200"`
	Details string `json:"details" binding:"max=5000"`
	Version int64  `json:"version"`
}

// AddEvidenceRequest — приобщение материала к спору.
type AddEvidenceRequest struct {
	Kind        string `json:"kind" binding:"required"`
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description" binding:"max=2000"`
}

// RequestRefundRequest — запрос возврата заказчиком. Нулевая сумма
// трактуется как полный возврат.
type RequestRefundRequest struct {
	Amount   int64  `json:"amount" binding:"gte=0"`
	Reason   string `json:"reason" binding:"required,max=200"`
	Details  string `json:"details" binding:"max=5000"`
	Priority string `json:"priority" binding:"omitempty,oneof=low normal high"`
	Method   string `json:"method" binding:"omitempty,oneof=original_payment balance"`
}

// ProcessRefundRequest — решение оператора по запросу на возврат.
type ProcessRefundRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" binding:"max=2000"`
}

// ResolveDisputeRequest — резолюция спора оператором.
type ResolveDisputeRequest struct {
	Outcome      string `json:"outcome" binding:"required,oneof=release refund"`
	RefundAmount int64  `json:"refund_amount" binding:"gte=0"`
	Resolution   string `json:"resolution" binding:"required,max=5000"`
	Version      int64  `json:"version"`
}

// ForceStatusRequest — принудительный перевод статуса оператором.
type ForceStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Reason  string `json:"reason" binding:"required,max=2000"`
	Version int64  `json:"version"`
}

// DirectRefundRequest — прямой возврат оператором без запроса заказчика.
type DirectRefundRequest struct {
	Amount  int64  `json:"amount" binding:"gte=0"`
	Reason  string `json:"reason" binding:"required,max=2000"`
	Version int64  `json:"version"`
}
