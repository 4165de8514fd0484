package escrow

import "github.com/skillmarket/escrow-backend/internal/pkg/apperror"

// EscrowStatus описывает состояние средств, удерживаемых платформой по заказу.
type EscrowStatus string

const (
	EscrowStatusFunded        EscrowStatus = "funded"
	EscrowStatusWorkSubmitted EscrowStatus = "work_submitted"
	EscrowStatusApproved      EscrowStatus = "approved"
	EscrowStatusReleased      EscrowStatus = "released"
	EscrowStatusDisputed      EscrowStatus = "disputed"
	EscrowStatusRefunded      EscrowStatus = "refunded"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusFunded, EscrowStatusWorkSubmitted, EscrowStatusApproved,
		EscrowStatusReleased, EscrowStatusDisputed, EscrowStatusRefunded:
		return true
	}
	return false
}

// IsTerminal: из released и refunded переходов нет.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

func (s EscrowStatus) CanTransitionTo(newStatus EscrowStatus) bool {
	transitions := map[EscrowStatus][]EscrowStatus{
		EscrowStatusFunded:        {EscrowStatusWorkSubmitted, EscrowStatusDisputed, EscrowStatusRefunded},
		EscrowStatusWorkSubmitted: {EscrowStatusWorkSubmitted, EscrowStatusApproved, EscrowStatusDisputed, EscrowStatusRefunded},
		EscrowStatusApproved:      {EscrowStatusReleased, EscrowStatusDisputed, EscrowStatusRefunded},
		EscrowStatusDisputed:      {EscrowStatusReleased, EscrowStatusRefunded},
		EscrowStatusReleased:      {},
		EscrowStatusRefunded:      {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewEscrowStatus(status string) (EscrowStatus, error) {
	s := EscrowStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус escrow")
	}
	return s, nil
}

// DisputeStatus описывает стадию рассмотрения спора по заказу.
type DisputeStatus string

const (
	DisputeStatusNone        DisputeStatus = "none"
	DisputeStatusPending     DisputeStatus = "pending"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusNone, DisputeStatusPending, DisputeStatusUnderReview, DisputeStatusResolved:
		return true
	}
	return false
}

func (s DisputeStatus) CanTransitionTo(newStatus DisputeStatus) bool {
	transitions := map[DisputeStatus][]DisputeStatus{
		DisputeStatusNone:        {DisputeStatusPending},
		DisputeStatusPending:     {DisputeStatusUnderReview, DisputeStatusResolved},
		DisputeStatusUnderReview: {DisputeStatusResolved},
		DisputeStatusResolved:    {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// MilestoneStatus описывает прогресс отдельного этапа внутри заказа.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusSubmitted  MilestoneStatus = "submitted"
	MilestoneStatusApproved   MilestoneStatus = "approved"
	MilestoneStatusPaid       MilestoneStatus = "paid"
)

func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusSubmitted,
		MilestoneStatusApproved, MilestoneStatusPaid:
		return true
	}
	return false
}

func (s MilestoneStatus) CanTransitionTo(newStatus MilestoneStatus) bool {
	transitions := map[MilestoneStatus][]MilestoneStatus{
		MilestoneStatusPending:    {MilestoneStatusInProgress},
		MilestoneStatusInProgress: {MilestoneStatusSubmitted},
		MilestoneStatusSubmitted:  {MilestoneStatusApproved},
		MilestoneStatusApproved:   {MilestoneStatusPaid},
		MilestoneStatusPaid:       {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// OrderStatus — огрублённая проекция состояния заказа для внешних потребителей
// (каталог, поиск, дашборды). Не хранится независимо: всегда выводится из
// escrow-состояния, чтобы несовместимые комбинации были невозможны.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusDisputed   OrderStatus = "disputed"
)

// DeriveOrderStatus выводит верхнеуровневый статус из escrow-состояния.
// workStarted различает pending и in_progress, пока средства ещё в статусе funded.
func DeriveOrderStatus(escrowStatus EscrowStatus, workStarted bool) OrderStatus {
	switch escrowStatus {
	case EscrowStatusReleased:
		return OrderStatusCompleted
	case EscrowStatusRefunded:
		return OrderStatusCancelled
	case EscrowStatusDisputed:
		return OrderStatusDisputed
	case EscrowStatusWorkSubmitted, EscrowStatusApproved:
		return OrderStatusInProgress
	default:
		if workStarted {
			return OrderStatusInProgress
		}
		return OrderStatusPending
	}
}
