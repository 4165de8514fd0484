package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// MilestoneService управляет поэтапным воркфлоу внутри заказа.
// Оплата этапа — единственный переход, который двигает деньги,
// и единственный с проверкой суммы оплаченных этапов против цены заказа.
type MilestoneService struct {
	orders OrderRepository
}

func NewMilestoneService(orders OrderRepository) *MilestoneService {
	return &MilestoneService{orders: orders}
}

// Start — исполнитель берёт этап в работу.
func (s *MilestoneService) Start(ctx context.Context, orderID, milestoneID, actorID uuid.UUID, version int64) (*models.Milestone, error) {
	o, m, err := s.load(ctx, orderID, milestoneID, version)
	if err != nil {
		return nil, err
	}
	if o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}

	if escrow.EscrowStatus(o.EscrowStatus).IsTerminal() {
		return nil, apperror.Conflict("заказ уже закрыт", o.EscrowStatus)
	}
	if err := escrow.TransitionMilestone(o, m, escrow.MilestoneStatusInProgress); err != nil {
		return nil, err
	}

	if o.WorkStartedAt == nil {
		now := time.Now()
		o.WorkStartedAt = &now
		o.Status = string(escrow.DeriveOrderStatus(escrow.EscrowStatus(o.EscrowStatus), true))
	}

	if err := s.orders.UpdateMilestone(ctx, o, m, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// Submit — исполнитель сдаёт этап, прикладывая превью и финальный файл.
// Заказ при первой сдаче переходит в work_submitted.
func (s *MilestoneService) Submit(ctx context.Context, orderID, milestoneID, actorID uuid.UUID, version int64, previewURL, finalURL string) (*models.Milestone, error) {
	if previewURL == "" || finalURL == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "ссылки на превью и финальный файл обязательны")
	}

	o, m, err := s.load(ctx, orderID, milestoneID, version)
	if err != nil {
		return nil, err
	}
	if o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}

	if err := escrow.TransitionMilestone(o, m, escrow.MilestoneStatusSubmitted); err != nil {
		return nil, err
	}
	if escrow.EscrowStatus(o.EscrowStatus) == escrow.EscrowStatusFunded {
		if err := escrow.Transition(o, escrow.EscrowStatusWorkSubmitted); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	m.SubmittedAt = &now
	if o.WorkStartedAt == nil {
		o.WorkStartedAt = &now
	}

	d := &models.Deliverable{
		OrderID:     o.ID,
		MilestoneID: &m.ID,
		PreviewURL:  previewURL,
		FinalURL:    finalURL,
		Revision:    o.Revision,
	}

	if err := s.orders.UpdateMilestone(ctx, o, m, d); err != nil {
		return nil, err
	}
	return m, nil
}

// Approve — заказчик принимает этап и оставляет отзыв.
func (s *MilestoneService) Approve(ctx context.Context, orderID, milestoneID, actorID uuid.UUID, version int64, feedback string) (*models.Milestone, error) {
	o, m, err := s.load(ctx, orderID, milestoneID, version)
	if err != nil {
		return nil, err
	}
	if o.ClientID != actorID {
		return nil, apperror.ErrForbidden
	}

	if err := escrow.TransitionMilestone(o, m, escrow.MilestoneStatusApproved); err != nil {
		return nil, err
	}

	now := time.Now()
	m.ApprovedAt = &now
	if feedback != "" {
		m.Feedback = &feedback
	}

	if err := s.orders.UpdateMilestone(ctx, o, m, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// Pay — заказчик оплачивает принятый этап. Репозиторий повторно проверяет
// сумму оплаченных этапов внутри транзакции: превышение цены заказа —
// фатальная ошибка, состояние не меняется.
func (s *MilestoneService) Pay(ctx context.Context, orderID, milestoneID, actorID uuid.UUID, version int64) (*models.Milestone, error) {
	o, m, err := s.load(ctx, orderID, milestoneID, version)
	if err != nil {
		return nil, err
	}
	if o.ClientID != actorID {
		return nil, apperror.ErrForbidden
	}

	if err := escrow.TransitionMilestone(o, m, escrow.MilestoneStatusPaid); err != nil {
		return nil, err
	}

	// Предварительная проверка по загруженному снимку; авторитетная —
	// в транзакции репозитория.
	var paidTotal int64
	for i := range o.Milestones {
		if o.Milestones[i].ID != m.ID && o.Milestones[i].Status == string(escrow.MilestoneStatusPaid) {
			paidTotal += o.Milestones[i].Amount
		}
	}
	if paidTotal+m.Amount > o.Price {
		return nil, apperror.New(apperror.ErrCodeValidation,
			"сумма оплаченных этапов превысила бы цену заказа")
	}

	now := time.Now()
	m.PaidAt = &now

	if err := s.orders.PayMilestone(ctx, o, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MilestoneService) load(ctx context.Context, orderID, milestoneID uuid.UUID, version int64) (*models.Order, *models.Milestone, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if version > 0 && version != o.Version {
		return nil, nil, apperror.ErrVersionConflict
	}
	for i := range o.Milestones {
		if o.Milestones[i].ID == milestoneID {
			return o, &o.Milestones[i], nil
		}
	}
	return nil, nil, apperror.ErrMilestoneNotFound
}
