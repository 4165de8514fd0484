package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// Исходы резолюции спора. Частичные сплиты не моделируются.
const (
	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
)

// DisputeService — админский воркфлоу рассмотрения споров. Резолюция
// всегда выводит escrow ровно в released или refunded, других исходов нет.
type DisputeService struct {
	orders  OrderRepository
	refunds RefundRepository
	audits  AuditRepository
}

func NewDisputeService(orders OrderRepository, refunds RefundRepository, audits AuditRepository) *DisputeService {
	return &DisputeService{orders: orders, refunds: refunds, audits: audits}
}

// StartReview переводит спор в формальное рассмотрение, фиксируя
// проверяющего и время старта.
func (s *DisputeService) StartReview(ctx context.Context, orderID, adminID uuid.UUID, version int64) (*models.Order, error) {
	o, err := s.load(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	before := models.SnapshotOrder(o)

	if err := escrow.TransitionDispute(o, escrow.DisputeStatusUnderReview); err != nil {
		auditRejection(ctx, s.audits, adminID, models.AuditActionDisputeReview, orderID, err)
		return nil, err
	}

	now := time.Now()
	o.ReviewStartedAt = &now
	o.ReviewerID = &adminID

	entry := newOrderAudit(adminID, models.AuditActionDisputeReview, o, before,
		"спор взят в рассмотрение", models.AuditSeverityInfo)
	if err := s.orders.ApplyWithAudit(ctx, o, entry); err != nil {
		return nil, err
	}
	return o, nil
}

// Resolve закрывает спор одним из двух исходов. Резолюция с возвратом —
// двухзаписная операция: заказ и запись журнала возвратов фиксируются
// одной транзакцией.
func (s *DisputeService) Resolve(ctx context.Context, orderID, adminID uuid.UUID, version int64, outcome string, refundAmount int64, resolution string) (*models.Order, error) {
	if resolution == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "текст резолюции обязателен")
	}
	if outcome != ResolutionRelease && outcome != ResolutionRefund {
		return nil, apperror.New(apperror.ErrCodeValidation, "исход спора: release или refund")
	}

	o, err := s.load(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	before := models.SnapshotOrder(o)

	if err := escrow.TransitionDispute(o, escrow.DisputeStatusResolved); err != nil {
		auditRejection(ctx, s.audits, adminID, models.AuditActionDisputeResolve, orderID, err)
		return nil, err
	}

	now := time.Now()
	o.Resolution = &resolution
	o.ResolvedBy = &adminID
	o.ResolvedAt = &now
	o.CompletedAt = &now

	if outcome == ResolutionRelease {
		if err := escrow.Transition(o, escrow.EscrowStatusReleased); err != nil {
			auditRejection(ctx, s.audits, adminID, models.AuditActionDisputeResolve, orderID, err)
			return nil, err
		}
		o.ReleasedAt = &now
		o.AutoReleaseDate = nil

		entry := newOrderAudit(adminID, models.AuditActionDisputeResolve, o, before,
			"спор решён в пользу исполнителя", models.AuditSeverityHigh)
		if err := s.orders.ApplyWithAudit(ctx, o, entry); err != nil {
			return nil, err
		}
		return o, nil
	}

	// Исход refund.
	if refundAmount == 0 {
		refundAmount = o.Price
	}
	if refundAmount < 0 || refundAmount > o.Price {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма возврата вне пределов цены заказа")
	}

	if err := escrow.Transition(o, escrow.EscrowStatusRefunded); err != nil {
		auditRejection(ctx, s.audits, adminID, models.AuditActionDisputeResolve, orderID, err)
		return nil, err
	}
	o.RefundAmount = refundAmount
	o.ReleasedAt = nil

	// Обновляем существующий запрос на возврат, если он есть,
	// иначе синтезируем завершённую запись ради симметрии аудита.
	ref, err := s.refunds.GetPendingByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		ref = &models.Refund{
			OrderID:      o.ID,
			ClientID:     o.ClientID,
			FreelancerID: o.FreelancerID,
			Reason:       "dispute_resolution",
			Description:  resolution,
			Priority:     models.RefundPriorityHigh,
			Method:       models.RefundMethodOriginal,
		}
	}
	ref.Amount = refundAmount
	ref.Status = models.RefundStatusCompleted
	ref.ProcessedAt = &now
	ref.ProcessedBy = &adminID
	ref.AdminNotes = &resolution

	entry := newOrderAudit(adminID, models.AuditActionDisputeResolve, o, before,
		"спор решён возвратом заказчику", models.AuditSeverityHigh)
	if err := s.orders.ResolveWithRefund(ctx, o, ref, entry); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *DisputeService) load(ctx context.Context, orderID uuid.UUID, version int64) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if version > 0 && version != o.Version {
		return nil, apperror.ErrVersionConflict
	}
	return o, nil
}
