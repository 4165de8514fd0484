package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

type RefundRepository struct {
	db *sqlx.DB
}

func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create сохраняет запрос на возврат, инициированный заказчиком.
func (r *RefundRepository) Create(ctx context.Context, ref *models.Refund) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO refunds (order_id, client_id, freelancer_id, amount, reason, description, status, priority, method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, requested_at
	`, ref.OrderID, ref.ClientID, ref.FreelancerID, ref.Amount, ref.Reason,
		ref.Description, ref.Status, ref.Priority, ref.Method).
		Scan(&ref.ID, &ref.RequestedAt)
	if err != nil {
		return fmt.Errorf("refund repository: create %w", err)
	}
	return nil
}

func (r *RefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var ref models.Refund
	err := r.db.GetContext(ctx, &ref, `SELECT * FROM refunds WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrRefundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("refund repository: get %w", err)
	}
	return &ref, nil
}

// ListByOrder возвращает все попытки возврата по заказу, свежие первыми.
func (r *RefundRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT * FROM refunds WHERE order_id = $1 ORDER BY requested_at DESC
	`, orderID)
	return refunds, err
}

// List возвращает возвраты для админской отчётности, опционально по статусу.
func (r *RefundRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Refund, error) {
	var refunds []models.Refund
	if status != "" {
		err := r.db.SelectContext(ctx, &refunds, `
			SELECT * FROM refunds WHERE status = $1
			ORDER BY requested_at DESC LIMIT $2 OFFSET $3
		`, status, limit, offset)
		return refunds, err
	}
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT * FROM refunds ORDER BY requested_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return refunds, err
}

// GetPendingByOrder возвращает необработанный запрос на возврат по заказу,
// если он есть. Отсутствие запроса — не ошибка.
func (r *RefundRepository) GetPendingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error) {
	var ref models.Refund
	err := r.db.GetContext(ctx, &ref, `
		SELECT * FROM refunds WHERE order_id = $1 AND status IN ('pending', 'processing')
		ORDER BY requested_at DESC LIMIT 1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("refund repository: get pending %w", err)
	}
	return &ref, nil
}

// HasPending сообщает, есть ли по заказу необработанный запрос на возврат.
func (r *RefundRepository) HasPending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM refunds WHERE order_id = $1 AND status IN ('pending', 'processing'))
	`, orderID)
	return exists, err
}

// CompleteWithOrder одобряет возврат: запись журнала, заказ и аудиторская
// запись фиксируются одной транзакцией.
func (r *RefundRepository) CompleteWithOrder(ctx context.Context, ref *models.Refund, o *models.Order, entry *models.AuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertRefundTx(ctx, tx, ref); err != nil {
		return err
	}

	if err := applyOrderTx(ctx, tx, o); err != nil {
		return err
	}

	if entry != nil {
		if err := insertAuditTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Reject отклоняет возврат. Заказ не трогаем, но аудиторская запись
// обязательна и пишется тем же коммитом.
func (r *RefundRepository) Reject(ctx context.Context, ref *models.Refund, entry *models.AuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertRefundTx(ctx, tx, ref); err != nil {
		return err
	}

	if entry != nil {
		if err := insertAuditTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListUnreconciled находит расхождения двухзаписной операции: возврат
// завершён, а заказ так и не перешёл в refunded. Такие пары требуют
// ручного вмешательства оператора.
func (r *RefundRepository) ListUnreconciled(ctx context.Context) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT r.* FROM refunds r
		JOIN orders o ON o.id = r.order_id
		WHERE r.status = 'completed' AND o.escrow_status <> 'refunded'
		ORDER BY r.processed_at ASC
	`)
	return refunds, err
}

// upsertRefundTx вставляет новую запись возврата либо обновляет существующую.
// Вставка нужна админскому прямому возврату, который синтезирует завершённую
// запись ради симметрии аудита.
func upsertRefundTx(ctx context.Context, tx *sqlx.Tx, ref *models.Refund) error {
	if ref.ID == uuid.Nil {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO refunds (order_id, client_id, freelancer_id, amount, reason, description,
				status, priority, method, processed_at, processed_by, admin_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, requested_at
		`, ref.OrderID, ref.ClientID, ref.FreelancerID, ref.Amount, ref.Reason, ref.Description,
			ref.Status, ref.Priority, ref.Method, ref.ProcessedAt, ref.ProcessedBy, ref.AdminNotes).
			Scan(&ref.ID, &ref.RequestedAt)
		if err != nil {
			return fmt.Errorf("refund repository: insert %w", err)
		}
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE refunds SET status = $2, amount = $3, processed_at = $4, processed_by = $5, admin_notes = $6
		WHERE id = $1
	`, ref.ID, ref.Status, ref.Amount, ref.ProcessedAt, ref.ProcessedBy, ref.AdminNotes)
	if err != nil {
		return fmt.Errorf("refund repository: update %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrRefundNotFound
	}
	return nil
}
