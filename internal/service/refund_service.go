package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// RefundRepository — порт журнала возвратов для сервисного слоя.
type RefundRepository interface {
	Create(ctx context.Context, ref *models.Refund) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Refund, error)
	GetPendingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error)
	HasPending(ctx context.Context, orderID uuid.UUID) (bool, error)
	CompleteWithOrder(ctx context.Context, ref *models.Refund, o *models.Order, entry *models.AuditEntry) error
	Reject(ctx context.Context, ref *models.Refund, entry *models.AuditEntry) error
	ListUnreconciled(ctx context.Context) ([]models.Refund, error)
}

// RefundService ведёт журнал возвратов: запросы заказчика и их обработка
// оператором. Деньги двигаются только при одобрении, и только вместе
// с переводом заказа в refunded тем же коммитом.
type RefundService struct {
	orders  OrderRepository
	refunds RefundRepository
	audits  AuditRepository
}

func NewRefundService(orders OrderRepository, refunds RefundRepository, audits AuditRepository) *RefundService {
	return &RefundService{orders: orders, refunds: refunds, audits: audits}
}

// RequestRefundInput — параметры запроса на возврат от заказчика.
type RequestRefundInput struct {
	OrderID  uuid.UUID
	ClientID uuid.UUID
	Amount   int64
	Reason   string
	Details  string
	Priority string
	Method   string
}

// Request регистрирует запрос заказчика на возврат. Сам заказ не меняется:
// деньги остаются в эскроу до решения оператора.
func (s *RefundService) Request(ctx context.Context, in RequestRefundInput) (*models.Refund, error) {
	if in.Reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина возврата обязательна")
	}

	o, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.ClientID != in.ClientID {
		return nil, apperror.ErrForbidden
	}
	if escrow.EscrowStatus(o.EscrowStatus).IsTerminal() {
		return nil, apperror.Conflict("заказ уже закрыт, возврат невозможен", o.EscrowStatus)
	}

	if in.Amount == 0 {
		in.Amount = o.Price
	}
	if in.Amount < 0 || in.Amount > o.Price {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма возврата вне пределов цены заказа")
	}

	// Один активный запрос на заказ: повторный — конфликт, а не дубль.
	pending, err := s.refunds.HasPending(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperror.Conflict("по заказу уже есть необработанный запрос на возврат", o.EscrowStatus)
	}

	if in.Priority == "" {
		in.Priority = models.RefundPriorityNormal
	}
	if in.Method == "" {
		in.Method = models.RefundMethodOriginal
	}

	ref := &models.Refund{
		OrderID:      o.ID,
		ClientID:     o.ClientID,
		FreelancerID: o.FreelancerID,
		Amount:       in.Amount,
		Reason:       in.Reason,
		Description:  in.Details,
		Status:       models.RefundStatusPending,
		Priority:     in.Priority,
		Method:       in.Method,
	}
	if err := s.refunds.Create(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Get возвращает запись возврата участнику сделки или админу.
func (s *RefundService) Get(ctx context.Context, refundID, actorID uuid.UUID, role string) (*models.Refund, error) {
	ref, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && ref.ClientID != actorID && ref.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}
	return ref, nil
}

// ListByOrder возвращает историю возвратов по заказу.
func (s *RefundService) ListByOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) ([]models.Refund, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && o.ClientID != actorID && o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}
	return s.refunds.ListByOrder(ctx, orderID)
}

// List — админская выборка возвратов, опционально по статусу.
func (s *RefundService) List(ctx context.Context, status string, limit, offset int) ([]models.Refund, error) {
	if status != "" {
		if _, ok := models.ValidRefundStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус возврата")
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.refunds.List(ctx, status, limit, offset)
}

// Process — оператор одобряет или отклоняет запрос на возврат.
// Одобрение атомарно переводит заказ в refunded; отклонение заказ не трогает.
func (s *RefundService) Process(ctx context.Context, refundID, adminID uuid.UUID, approve bool, notes string) (*models.Refund, error) {
	ref, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if ref.Status != models.RefundStatusPending && ref.Status != models.RefundStatusProcessing {
		return nil, apperror.Conflict("запрос на возврат уже обработан", ref.Status)
	}

	o, err := s.orders.GetByID(ctx, ref.OrderID)
	if err != nil {
		return nil, err
	}
	before := models.SnapshotOrder(o)

	now := time.Now()
	ref.ProcessedAt = &now
	ref.ProcessedBy = &adminID
	if notes != "" {
		ref.AdminNotes = &notes
	}

	if !approve {
		ref.Status = models.RefundStatusRejected
		entry := &models.AuditEntry{
			ActorID:    adminID,
			Action:     models.AuditActionProcessRefund,
			TargetType: auditTargetOrder,
			TargetID:   o.ID,
			Details:    "запрос на возврат отклонён",
			Severity:   models.AuditSeverityInfo,
		}
		if err := s.refunds.Reject(ctx, ref, entry); err != nil {
			return nil, err
		}
		return ref, nil
	}

	// Защита от двойного возврата: заказ уже в терминальном состоянии.
	if escrow.EscrowStatus(o.EscrowStatus).IsTerminal() {
		auditRejection(ctx, s.audits, adminID, models.AuditActionProcessRefund, o.ID,
			apperror.Conflict("заказ уже закрыт", o.EscrowStatus))
		return nil, apperror.Conflict("заказ уже закрыт, повторный возврат невозможен", o.EscrowStatus)
	}
	// Спорный заказ возвращается только резолюцией спора: иначе возврат
	// закрыл бы эскроу, оставив disputeStatus=pending навсегда.
	if escrow.EscrowStatus(o.EscrowStatus) == escrow.EscrowStatusDisputed {
		err := apperror.Conflict("по заказу открыт спор, возврат выполняется его резолюцией", o.EscrowStatus)
		auditRejection(ctx, s.audits, adminID, models.AuditActionProcessRefund, o.ID, err)
		return nil, err
	}

	if err := escrow.Transition(o, escrow.EscrowStatusRefunded); err != nil {
		auditRejection(ctx, s.audits, adminID, models.AuditActionProcessRefund, o.ID, err)
		return nil, err
	}
	o.RefundAmount = ref.Amount
	o.CompletedAt = &now

	ref.Status = models.RefundStatusCompleted

	entry := newOrderAudit(adminID, models.AuditActionProcessRefund, o, before,
		"возврат одобрен и завершён", models.AuditSeverityHigh)
	if err := s.refunds.CompleteWithOrder(ctx, ref, o, entry); err != nil {
		return nil, err
	}
	return ref, nil
}

// DirectRefund — прямой админский возврат без предварительного запроса
// заказчика. Синтезирует завершённую запись журнала, чтобы каждая
// возвращённая копейка имела след и в журнале возвратов, и в аудите.
func (s *RefundService) DirectRefund(ctx context.Context, orderID, adminID uuid.UUID, version int64, amount int64, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина возврата обязательна")
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if version > 0 && version != o.Version {
		return nil, apperror.ErrVersionConflict
	}
	before := models.SnapshotOrder(o)

	if amount == 0 {
		amount = o.Price
	}
	if amount < 0 || amount > o.Price {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма возврата вне пределов цены заказа")
	}

	// У спорного заказа ровно два выхода — резолюции спора; прямой возврат
	// оставил бы спор открытым на терминальном заказе.
	if escrow.EscrowStatus(o.EscrowStatus) == escrow.EscrowStatusDisputed {
		err := apperror.Conflict("по заказу открыт спор, возврат выполняется его резолюцией", o.EscrowStatus)
		auditRejection(ctx, s.audits, adminID, models.AuditActionForceRefund, o.ID, err)
		return nil, err
	}

	if err := escrow.Transition(o, escrow.EscrowStatusRefunded); err != nil {
		auditRejection(ctx, s.audits, adminID, models.AuditActionForceRefund, o.ID, err)
		return nil, err
	}
	now := time.Now()
	o.RefundAmount = amount
	o.CompletedAt = &now

	// Если по заказу висел запрос заказчика, закрываем его этим же возвратом.
	ref, err := s.refunds.GetPendingByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		ref = &models.Refund{
			OrderID:      o.ID,
			ClientID:     o.ClientID,
			FreelancerID: o.FreelancerID,
			Reason:       reason,
			Description:  "прямой возврат оператором",
			Priority:     models.RefundPriorityHigh,
			Method:       models.RefundMethodOriginal,
		}
	}
	ref.Amount = amount
	ref.Status = models.RefundStatusCompleted
	ref.ProcessedAt = &now
	ref.ProcessedBy = &adminID
	ref.AdminNotes = &reason

	entry := newOrderAudit(adminID, models.AuditActionForceRefund, o, before,
		"прямой возврат оператором", models.AuditSeverityHigh)
	if err := s.orders.ResolveWithRefund(ctx, o, ref, entry); err != nil {
		return nil, err
	}
	return o, nil
}
