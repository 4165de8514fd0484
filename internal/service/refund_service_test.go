package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

func TestRefundService_Request_Success(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewRefundService(orders, refunds, new(mockAuditRepo))
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	refunds.On("HasPending", ctx, o.ID).Return(false, nil)
	refunds.On("Create", ctx, mock.AnythingOfType("*models.Refund")).Return(nil)

	ref, err := svc.Request(ctx, RequestRefundInput{
		OrderID:  o.ID,
		ClientID: o.ClientID,
		Reason:   "работа не начата",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.RefundStatusPending, ref.Status)
	// Нулевая сумма — полный возврат.
	assert.Equal(t, o.Price, ref.Amount)
	assert.Equal(t, models.RefundPriorityNormal, ref.Priority)
	assert.Equal(t, models.RefundMethodOriginal, ref.Method)
	// Заказ не трогаем до решения оператора.
	orders.AssertNotCalled(t, "UpdateState")
}

func TestRefundService_Request_DuplicatePending(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewRefundService(orders, refunds, new(mockAuditRepo))
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	refunds.On("HasPending", ctx, o.ID).Return(true, nil)

	_, err := svc.Request(ctx, RequestRefundInput{OrderID: o.ID, ClientID: o.ClientID, Reason: "дубль"})
	assert.True(t, apperror.IsConflict(err))
	refunds.AssertNotCalled(t, "Create")
}

func TestRefundService_Request_TerminalOrder(t *testing.T) {
	orders := new(mockOrderRepo)
	svc := NewRefundService(orders, new(mockRefundRepo), new(mockAuditRepo))
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusReleased)
	orders.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.Request(ctx, RequestRefundInput{OrderID: o.ID, ClientID: o.ClientID, Reason: "поздно"})
	assert.True(t, apperror.IsConflict(err))
}

func TestRefundService_Request_NotClient(t *testing.T) {
	orders := new(mockOrderRepo)
	svc := NewRefundService(orders, new(mockRefundRepo), new(mockAuditRepo))
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	orders.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.Request(ctx, RequestRefundInput{OrderID: o.ID, ClientID: o.FreelancerID, Reason: "не моё"})
	assert.True(t, apperror.IsForbidden(err))
}

func TestRefundService_Process_Approve(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewRefundService(orders, refunds, new(mockAuditRepo))
	ctx := context.Background()
	adminID := uuid.New()

	o := fundedOrder(uuid.New(), uuid.New())
	ref := &models.Refund{
		ID:      uuid.New(),
		OrderID: o.ID,
		Amount:  30000,
		Status:  models.RefundStatusPending,
	}
	refunds.On("GetByID", ctx, ref.ID).Return(ref, nil)
	orders.On("GetByID", ctx, o.ID).Return(o, nil)

	var entry *models.AuditEntry
	refunds.On("CompleteWithOrder", ctx, ref, o, mock.AnythingOfType("*models.AuditEntry")).
		Run(func(args mock.Arguments) {
			entry = args.Get(3).(*models.AuditEntry)
		}).Return(nil)

	got, err := svc.Process(ctx, ref.ID, adminID, true, "одобрено")
	assert.NoError(t, err)
	assert.Equal(t, models.RefundStatusCompleted, got.Status)
	assert.Equal(t, adminID, *got.ProcessedBy)
	// Одобрение атомарно переводит заказ.
	assert.Equal(t, string(escrow.EscrowStatusRefunded), o.EscrowStatus)
	assert.Equal(t, string(escrow.OrderStatusCancelled), o.Status)
	assert.Equal(t, ref.Amount, o.RefundAmount)

	assert.Equal(t, models.AuditActionProcessRefund, entry.Action)
	assert.Equal(t, models.AuditSeverityHigh, entry.Severity)
}

func TestRefundService_Process_Reject(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewRefundService(orders, refunds, new(mockAuditRepo))
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	ref := &models.Refund{ID: uuid.New(), OrderID: o.ID, Amount: 30000, Status: models.RefundStatusPending}
	refunds.On("GetByID", ctx, ref.ID).Return(ref, nil)
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	refunds.On("Reject", ctx, ref, mock.AnythingOfType("*models.AuditEntry")).Return(nil)

	got, err := svc.Process(ctx, ref.ID, uuid.New(), false, "недостаточно оснований")
	assert.NoError(t, err)
	assert.Equal(t, models.RefundStatusRejected, got.Status)
	// Отклонение не трогает заказ.
	assert.Equal(t, string(escrow.EscrowStatusFunded), o.EscrowStatus)
	refunds.AssertNotCalled(t, "CompleteWithOrder")
}

func TestRefundService_Process_DoubleRefund(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	audits := new(mockAuditRepo)
	svc := NewRefundService(orders, refunds, audits)
	ctx := context.Background()

	// Заказ уже возвращён: повторное одобрение — конфликт, а не второй возврат.
	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusRefunded)
	o.RefundAmount = o.Price

	ref := &models.Refund{ID: uuid.New(), OrderID: o.ID, Amount: 30000, Status: models.RefundStatusPending}
	refunds.On("GetByID", ctx, ref.ID).Return(ref, nil)
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	audits.On("Add", ctx, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Severity == models.AuditSeverityWarning
	})).Return(nil)

	_, err := svc.Process(ctx, ref.ID, uuid.New(), true, "")
	assert.True(t, apperror.IsConflict(err))
	refunds.AssertNotCalled(t, "CompleteWithOrder")
	audits.AssertExpectations(t)
}

func TestRefundService_Process_DisputedOrder(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	audits := new(mockAuditRepo)
	svc := NewRefundService(orders, refunds, audits)
	ctx := context.Background()

	// Спорный заказ возвращается только резолюцией спора: одобрение запроса
	// здесь закрыло бы эскроу, оставив спор открытым навсегда.
	o := disputedOrder()
	ref := &models.Refund{ID: uuid.New(), OrderID: o.ID, Amount: 30000, Status: models.RefundStatusPending}
	refunds.On("GetByID", ctx, ref.ID).Return(ref, nil)
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	audits.On("Add", ctx, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Severity == models.AuditSeverityWarning
	})).Return(nil)

	_, err := svc.Process(ctx, ref.ID, uuid.New(), true, "")
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, string(escrow.EscrowStatusDisputed), o.EscrowStatus)
	assert.Equal(t, string(escrow.DisputeStatusPending), o.DisputeStatus)
	refunds.AssertNotCalled(t, "CompleteWithOrder")
	audits.AssertExpectations(t)
}

func TestRefundService_Process_AlreadyProcessed(t *testing.T) {
	refunds := new(mockRefundRepo)
	svc := NewRefundService(new(mockOrderRepo), refunds, new(mockAuditRepo))
	ctx := context.Background()

	ref := &models.Refund{ID: uuid.New(), Status: models.RefundStatusCompleted}
	refunds.On("GetByID", ctx, ref.ID).Return(ref, nil)

	_, err := svc.Process(ctx, ref.ID, uuid.New(), true, "")
	assert.True(t, apperror.IsConflict(err))
}

func TestRefundService_DirectRefund(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewRefundService(orders, refunds, new(mockAuditRepo))
	ctx := context.Background()
	adminID := uuid.New()

	o := fundedOrder(uuid.New(), uuid.New())
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	refunds.On("GetPendingByOrder", ctx, o.ID).Return(nil, nil)

	var ref *models.Refund
	orders.On("ResolveWithRefund", ctx, o, mock.AnythingOfType("*models.Refund"), mock.AnythingOfType("*models.AuditEntry")).
		Run(func(args mock.Arguments) {
			ref = args.Get(2).(*models.Refund)
		}).Return(nil)

	got, err := svc.DirectRefund(ctx, o.ID, adminID, 0, 10000, "жалоба в поддержку")
	assert.NoError(t, err)
	assert.Equal(t, string(escrow.EscrowStatusRefunded), got.EscrowStatus)
	assert.Equal(t, int64(10000), got.RefundAmount)

	// Журнал возвратов получает синтезированную завершённую запись.
	assert.Equal(t, uuid.Nil, ref.ID)
	assert.Equal(t, models.RefundStatusCompleted, ref.Status)
	assert.Equal(t, int64(10000), ref.Amount)
}

func TestRefundService_DirectRefund_DisputedOrder(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	audits := new(mockAuditRepo)
	svc := NewRefundService(orders, refunds, audits)
	ctx := context.Background()

	// У спорного заказа ровно два выхода — резолюции спора.
	o := disputedOrder()
	orders.On("GetByID", ctx, o.ID).Return(o, nil)
	audits.On("Add", ctx, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Severity == models.AuditSeverityWarning
	})).Return(nil)

	_, err := svc.DirectRefund(ctx, o.ID, uuid.New(), 0, 10000, "жалоба в поддержку")
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, string(escrow.EscrowStatusDisputed), o.EscrowStatus)
	assert.Equal(t, string(escrow.DisputeStatusPending), o.DisputeStatus)
	orders.AssertNotCalled(t, "ResolveWithRefund")
	audits.AssertExpectations(t)
}

func TestRefundService_List_BadStatus(t *testing.T) {
	svc := NewRefundService(new(mockOrderRepo), new(mockRefundRepo), new(mockAuditRepo))

	_, err := svc.List(context.Background(), "stuck", 20, 0)
	assert.True(t, apperror.IsValidation(err))
}
