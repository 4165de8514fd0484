package escrow

import (
	"fmt"
	"time"

	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// Transition переводит escrow-состояние заказа и пересчитывает производный
// верхнеуровневый статус. Любой недопустимый переход — конфликт с указанием
// фактического состояния, чтобы вызывающий мог обновиться и повторить.
func Transition(o *models.Order, to EscrowStatus) error {
	from := EscrowStatus(o.EscrowStatus)

	if from.IsTerminal() {
		return apperror.Conflict(
			fmt.Sprintf("заказ уже в терминальном состоянии %q", from), o.EscrowStatus)
	}
	if !from.CanTransitionTo(to) {
		return apperror.Conflict(
			fmt.Sprintf("переход escrow %q -> %q недопустим", from, to), o.EscrowStatus)
	}
	if to == EscrowStatusReleased && o.RefundAmount != 0 {
		return apperror.Conflict(
			"нельзя освободить средства по заказу с назначенным возвратом", o.EscrowStatus)
	}

	o.EscrowStatus = string(to)
	o.Status = string(DeriveOrderStatus(to, o.WorkStartedAt != nil))
	return nil
}

// TransitionDispute переводит стадию спора.
func TransitionDispute(o *models.Order, to DisputeStatus) error {
	from := DisputeStatus(o.DisputeStatus)
	if !from.CanTransitionTo(to) {
		return apperror.Conflict(
			fmt.Sprintf("переход спора %q -> %q недопустим", from, to), o.DisputeStatus)
	}
	o.DisputeStatus = string(to)
	return nil
}

// TransitionMilestone переводит статус этапа. Оплата дополнительно требует,
// чтобы escrow заказа не был в disputed или refunded.
func TransitionMilestone(o *models.Order, m *models.Milestone, to MilestoneStatus) error {
	if to == MilestoneStatusPaid {
		es := EscrowStatus(o.EscrowStatus)
		if es == EscrowStatusDisputed || es == EscrowStatusRefunded {
			return apperror.Conflict(
				fmt.Sprintf("этап нельзя оплатить: escrow заказа в состоянии %q", es), o.EscrowStatus)
		}
	}

	from := MilestoneStatus(m.Status)
	if !from.CanTransitionTo(to) {
		return apperror.Conflict(
			fmt.Sprintf("переход этапа %q -> %q недопустим", from, to), m.Status)
	}
	m.Status = string(to)
	m.UpdatedAt = time.Now()
	return nil
}

// IsDisputable сообщает, может ли сторона открыть спор по заказу.
// Используется внешними потребителями для гейтинга UI.
func IsDisputable(o *models.Order) bool {
	es := EscrowStatus(o.EscrowStatus)
	return !es.IsTerminal() && es != EscrowStatusDisputed
}

// IsRefundable сообщает, допустим ли возврат по заказу.
func IsRefundable(o *models.Order) bool {
	return !EscrowStatus(o.EscrowStatus).IsTerminal()
}
