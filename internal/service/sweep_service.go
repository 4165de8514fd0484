package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/logger"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

const sweepBatchSize = 100

// SweepService — фоновые обходы: авторелиз просроченных approved заказов
// и сверка журнала возвратов с состоянием заказов.
type SweepService struct {
	orders   OrderRepository
	refunds  RefundRepository
	interval time.Duration
}

func NewSweepService(orders OrderRepository, refunds RefundRepository, interval time.Duration) *SweepService {
	return &SweepService{orders: orders, refunds: refunds, interval: interval}
}

// Run крутит обе джобы до отмены контекста.
func (s *SweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Log.WithField("interval", s.interval.String()).Info("sweep: фоновые обходы запущены")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("sweep: фоновые обходы остановлены")
			return
		case <-ticker.C:
			s.AutoRelease(ctx)
			s.Reconcile(ctx)
		}
	}
}

// AutoRelease релизит approved заказы с истёкшим окном авторелиза.
// Конфликт версии означает параллельную мутацию заказа — такой заказ
// просто пропускаем до следующего обхода.
func (s *SweepService) AutoRelease(ctx context.Context) {
	orders, err := s.orders.ListAutoReleasable(ctx, sweepBatchSize)
	if err != nil {
		logger.Log.WithError(err).Error("sweep: выборка заказов для авторелиза не удалась")
		return
	}

	for i := range orders {
		o := &orders[i]
		if err := escrow.Transition(o, escrow.EscrowStatusReleased); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"order_id": o.ID,
				"status":   o.EscrowStatus,
			}).WithError(err).Warn("sweep: заказ выпал из авторелиза")
			continue
		}
		now := time.Now()
		o.ReleasedAt = &now
		o.CompletedAt = &now
		o.AutoReleaseDate = nil

		err := s.orders.UpdateState(ctx, o)
		if errors.Is(err, apperror.ErrVersionConflict) {
			continue
		}
		if err != nil {
			logger.Log.WithField("order_id", o.ID).WithError(err).Error("sweep: авторелиз заказа не удался")
			continue
		}
		logger.Log.WithField("order_id", o.ID).Info("sweep: заказ автоматически зарелижен")
	}
}

// Reconcile ищет расхождения двухзаписной операции возврата. Найденное
// расхождение — критический сигнал: деньги помечены возвращёнными, а заказ
// об этом не знает. Исправление — ручное, джоба только сигналит.
func (s *SweepService) Reconcile(ctx context.Context) {
	refunds, err := s.refunds.ListUnreconciled(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("sweep: сверка журнала возвратов не удалась")
		return
	}

	for i := range refunds {
		ref := &refunds[i]
		logger.Integrity(logrus.Fields{
			"refund_id": ref.ID,
			"order_id":  ref.OrderID,
			"amount":    ref.Amount,
			"status":    models.RefundStatusCompleted,
		}, "возврат завершён, но заказ не переведён в refunded")
	}
}
