package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/logger"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

func init() {
	logger.Init("error")
}

func TestSweepService_AutoRelease(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewSweepService(orders, refunds, time.Minute)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusApproved)
	o.AutoReleaseDate = &past

	orders.On("ListAutoReleasable", ctx, sweepBatchSize).Return([]models.Order{*o}, nil)

	var released *models.Order
	orders.On("UpdateState", ctx, mock.AnythingOfType("*models.Order")).
		Run(func(args mock.Arguments) {
			released = args.Get(1).(*models.Order)
		}).Return(nil)

	svc.AutoRelease(ctx)

	// Авторелиз идёт тем же guarded-переходом, что и ручной.
	assert.Equal(t, string(escrow.EscrowStatusReleased), released.EscrowStatus)
	assert.Equal(t, string(escrow.OrderStatusCompleted), released.Status)
	assert.NotNil(t, released.ReleasedAt)
	assert.Nil(t, released.AutoReleaseDate)
}

func TestSweepService_AutoRelease_SkipsVersionConflict(t *testing.T) {
	orders := new(mockOrderRepo)
	svc := NewSweepService(orders, new(mockRefundRepo), time.Minute)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusApproved)

	orders.On("ListAutoReleasable", ctx, sweepBatchSize).Return([]models.Order{*o}, nil)
	// Параллельная мутация: заказ пропускается до следующего обхода.
	orders.On("UpdateState", ctx, mock.AnythingOfType("*models.Order")).Return(apperror.ErrVersionConflict)

	assert.NotPanics(t, func() { svc.AutoRelease(ctx) })
	orders.AssertExpectations(t)
}

func TestSweepService_AutoRelease_SkipsRefundBlocked(t *testing.T) {
	orders := new(mockOrderRepo)
	svc := NewSweepService(orders, new(mockRefundRepo), time.Minute)
	ctx := context.Background()

	// Назначенный возврат блокирует релиз даже по истёкшему дедлайну.
	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusApproved)
	o.RefundAmount = 5000

	orders.On("ListAutoReleasable", ctx, sweepBatchSize).Return([]models.Order{*o}, nil)

	svc.AutoRelease(ctx)
	orders.AssertNotCalled(t, "UpdateState")
}

func TestSweepService_Reconcile(t *testing.T) {
	orders := new(mockOrderRepo)
	refunds := new(mockRefundRepo)
	svc := NewSweepService(orders, refunds, time.Minute)
	ctx := context.Background()

	refunds.On("ListUnreconciled", ctx).Return([]models.Refund{
		{ID: uuid.New(), OrderID: uuid.New(), Amount: 1000, Status: models.RefundStatusCompleted},
	}, nil)

	// Джоба только сигналит, состояние не меняет.
	assert.NotPanics(t, func() { svc.Reconcile(ctx) })
	orders.AssertNotCalled(t, "UpdateState")
	refunds.AssertExpectations(t)
}
