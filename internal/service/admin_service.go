package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// AdminService — привилегированные операции над заказами. Каждая успешная
// мутация оставляет ровно одну аудиторскую запись тем же коммитом.
type AdminService struct {
	orders OrderRepository
	audits AuditRepository
}

func NewAdminService(orders OrderRepository, audits AuditRepository) *AdminService {
	return &AdminService{orders: orders, audits: audits}
}

// ForceStatus принудительно переводит эскроу заказа в указанное состояние,
// минуя ролевые проверки, но не карту переходов. Перевод в refunded
// запрещён: возврат обязан идти через журнал возвратов, иначе деньги
// потеряют след. Перевод в disputed тоже запрещён: спор без инициатора,
// причины и disputeStatus=pending застрял бы навсегда — ни StartReview,
// ни Resolve по нему невозможны.
func (s *AdminService) ForceStatus(ctx context.Context, orderID, adminID uuid.UUID, version int64, target string, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина принудительного перевода обязательна")
	}
	to := escrow.EscrowStatus(target)
	if !to.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус эскроу")
	}
	if to == escrow.EscrowStatusRefunded {
		return nil, apperror.New(apperror.ErrCodeValidation,
			"возврат выполняется только через журнал возвратов")
	}
	if to == escrow.EscrowStatusDisputed {
		return nil, apperror.New(apperror.ErrCodeValidation,
			"спор открывается только участником сделки через процедуру спора")
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if version > 0 && version != o.Version {
		return nil, apperror.ErrVersionConflict
	}
	before := models.SnapshotOrder(o)

	if err := escrow.Transition(o, to); err != nil {
		auditRejection(ctx, s.audits, adminID, models.AuditActionForceStatus, orderID, err)
		return nil, err
	}

	now := time.Now()
	switch to {
	case escrow.EscrowStatusReleased:
		o.ReleasedAt = &now
		o.CompletedAt = &now
		o.AutoReleaseDate = nil
	case escrow.EscrowStatusApproved:
		o.ApprovedAt = &now
	}

	entry := newOrderAudit(adminID, models.AuditActionForceStatus, o, before,
		reason, models.AuditSeverityHigh)
	if err := s.orders.ApplyWithAudit(ctx, o, entry); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder возвращает заказ без ролевых ограничений.
func (s *AdminService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// AuditTrail возвращает журнал привилегированных действий по заказу.
func (s *AdminService) AuditTrail(ctx context.Context, orderID uuid.UUID) ([]models.AuditEntry, error) {
	return s.audits.ListByTarget(ctx, auditTargetOrder, orderID)
}
