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

const orderColumns = `
	id, gig_id, client_id, freelancer_id, title, price, refund_amount,
	status, escrow_status, dispute_status, revision,
	dispute_reason, dispute_details, dispute_initiator_id, dispute_opened_at,
	review_started_at, reviewer_id,
	resolution, resolved_by, resolved_at,
	paid_at, work_started_at, completed_at, approved_at, released_at,
	auto_release_date, client_review_deadline,
	version, created_at, updated_at`

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет заказ вместе с этапами. Заказ появляется только вместе с
// успешным фондированием, поэтому paid_at проставляется сразу.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			gig_id, client_id, freelancer_id, title, price,
			status, escrow_status, dispute_status,
			paid_at, auto_release_date, client_review_deadline
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		o.GigID, o.ClientID, o.FreelancerID, o.Title, o.Price,
		o.Status, o.EscrowStatus, o.DisputeStatus,
		o.PaidAt, o.AutoReleaseDate, o.ClientReviewDeadline,
	).Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}

	for i := range o.Milestones {
		m := &o.Milestones[i]
		m.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO milestones (order_id, position, title, description, amount, due_date, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`, m.OrderID, m.Position, m.Title, m.Description, m.Amount, m.DueDate, m.Status).
			Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("order repository: create milestone %w", err)
		}
	}

	return tx.Commit()
}

// GetByID возвращает заказ с этапами и сданными работами.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: get %w", err)
	}

	if err := r.db.SelectContext(ctx, &o.Milestones, `
		SELECT * FROM milestones WHERE order_id = $1 ORDER BY position ASC
	`, id); err != nil {
		return nil, fmt.Errorf("order repository: get milestones %w", err)
	}

	if err := r.db.SelectContext(ctx, &o.Deliverables, `
		SELECT * FROM deliverables WHERE order_id = $1 ORDER BY submitted_at ASC
	`, id); err != nil {
		return nil, fmt.Errorf("order repository: get deliverables %w", err)
	}

	return &o, nil
}

// ListByUser возвращает заказы, где пользователь выступает любой из сторон.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+` FROM orders
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return orders, err
}

// UpdateState сохраняет изменённые поля состояния заказа с optimistic lock по
// версии: если версия уже ушла вперёд, запись отклоняется как конфликт.
func (r *OrderRepository) UpdateState(ctx context.Context, o *models.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyOrderTx(ctx, tx, o); err != nil {
		return err
	}

	return tx.Commit()
}

// SubmitWork атомарно сохраняет новое состояние заказа и добавляет сданную работу.
func (r *OrderRepository) SubmitWork(ctx context.Context, o *models.Order, d *models.Deliverable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyOrderTx(ctx, tx, o); err != nil {
		return err
	}

	if err := insertDeliverableTx(ctx, tx, d); err != nil {
		return err
	}

	return tx.Commit()
}

// AddEvidence добавляет доказательство стороны спора, соблюдая лимит на сторону.
func (r *OrderRepository) AddEvidence(ctx context.Context, e *models.DisputeEvidence) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Лимит проверяем под блокировкой строки заказа, иначе две конкурентные
	// загрузки могли бы его пробить.
	var escrowStatus string
	err = tx.GetContext(ctx, &escrowStatus,
		`SELECT escrow_status FROM orders WHERE id = $1 FOR UPDATE`, e.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("order repository: lock order %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM dispute_evidence WHERE order_id = $1 AND role = $2
	`, e.OrderID, e.Role); err != nil {
		return fmt.Errorf("order repository: count evidence %w", err)
	}
	if count >= models.MaxEvidencePerSide {
		return apperror.New(apperror.ErrCodeValidation, "достигнут лимит доказательств для этой стороны")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO dispute_evidence (order_id, submitter_id, role, kind, url, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.OrderID, e.SubmitterID, e.Role, e.Kind, e.URL, e.Comment).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("order repository: insert evidence %w", err)
	}

	return tx.Commit()
}

// ListEvidence возвращает доказательства спора по заказу.
func (r *OrderRepository) ListEvidence(ctx context.Context, orderID uuid.UUID) ([]models.DisputeEvidence, error) {
	var evidence []models.DisputeEvidence
	err := r.db.SelectContext(ctx, &evidence, `
		SELECT * FROM dispute_evidence WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return evidence, err
}

// UpdateMilestone сохраняет этап и состояние заказа одной транзакцией.
// Опциональная сданная работа добавляется тем же коммитом.
func (r *OrderRepository) UpdateMilestone(ctx context.Context, o *models.Order, m *models.Milestone, d *models.Deliverable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyOrderTx(ctx, tx, o); err != nil {
		return err
	}

	if err := updateMilestoneTx(ctx, tx, m); err != nil {
		return err
	}

	if d != nil {
		if err := insertDeliverableTx(ctx, tx, d); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// PayMilestone переводит этап в paid. Сумма оплаченных этапов проверяется
// внутри транзакции: превышение цены заказа — фатальная ошибка валидации,
// а не усечение.
func (r *OrderRepository) PayMilestone(ctx context.Context, o *models.Order, m *models.Milestone) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyOrderTx(ctx, tx, o); err != nil {
		return err
	}

	var paidTotal int64
	if err := tx.GetContext(ctx, &paidTotal, `
		SELECT COALESCE(SUM(amount), 0) FROM milestones WHERE order_id = $1 AND status = 'paid'
	`, m.OrderID); err != nil {
		return fmt.Errorf("order repository: sum paid milestones %w", err)
	}
	if paidTotal+m.Amount > o.Price {
		return apperror.New(apperror.ErrCodeValidation,
			"сумма оплаченных этапов превысила бы цену заказа")
	}

	if err := updateMilestoneTx(ctx, tx, m); err != nil {
		return err
	}

	return tx.Commit()
}

// ResolveWithRefund закрывает спор возвратом: заказ, запись журнала возвратов
// и аудиторская запись пишутся одной транзакцией — двухзаписная операция
// не должна быть видна частично.
func (r *OrderRepository) ResolveWithRefund(ctx context.Context, o *models.Order, ref *models.Refund, entry *models.AuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyOrderTx(ctx, tx, o); err != nil {
		return err
	}

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

// ApplyWithAudit сохраняет состояние заказа вместе с аудиторской записью.
// Используется привилегированными переходами без записи в журнал возвратов.
func (r *OrderRepository) ApplyWithAudit(ctx context.Context, o *models.Order, entry *models.AuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

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

// ListAutoReleasable возвращает заказы в approved с истёкшим дедлайном
// авторелиза. Сама промоция идёт обычным guarded-переходом release.
func (r *OrderRepository) ListAutoReleasable(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+` FROM orders
		WHERE escrow_status = 'approved' AND auto_release_date IS NOT NULL AND auto_release_date <= NOW()
		ORDER BY auto_release_date ASC LIMIT $1
	`, limit)
	return orders, err
}

// applyOrderTx пишет поля состояния заказа с проверкой версии.
// 0 затронутых строк означает либо отсутствие заказа, либо устаревшую версию.
func applyOrderTx(ctx context.Context, tx *sqlx.Tx, o *models.Order) error {
	res, err := tx.NamedExecContext(ctx, `
		UPDATE orders SET
			refund_amount = :refund_amount,
			status = :status,
			escrow_status = :escrow_status,
			dispute_status = :dispute_status,
			revision = :revision,
			dispute_reason = :dispute_reason,
			dispute_details = :dispute_details,
			dispute_initiator_id = :dispute_initiator_id,
			dispute_opened_at = :dispute_opened_at,
			review_started_at = :review_started_at,
			reviewer_id = :reviewer_id,
			resolution = :resolution,
			resolved_by = :resolved_by,
			resolved_at = :resolved_at,
			work_started_at = :work_started_at,
			completed_at = :completed_at,
			approved_at = :approved_at,
			released_at = :released_at,
			auto_release_date = :auto_release_date,
			client_review_deadline = :client_review_deadline,
			version = version + 1,
			updated_at = NOW()
		WHERE id = :id AND version = :version
	`, o)
	if err != nil {
		return fmt.Errorf("order repository: update state %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order repository: rows affected %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID); err != nil {
			return fmt.Errorf("order repository: check exists %w", err)
		}
		if !exists {
			return apperror.ErrOrderNotFound
		}
		return apperror.ErrVersionConflict
	}

	o.Version++
	return nil
}

func insertDeliverableTx(ctx context.Context, tx *sqlx.Tx, d *models.Deliverable) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO deliverables (order_id, milestone_id, preview_url, final_url, revision)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, submitted_at
	`, d.OrderID, d.MilestoneID, d.PreviewURL, d.FinalURL, d.Revision).Scan(&d.ID, &d.SubmittedAt)
	if err != nil {
		return fmt.Errorf("order repository: insert deliverable %w", err)
	}
	return nil
}

func updateMilestoneTx(ctx context.Context, tx *sqlx.Tx, m *models.Milestone) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE milestones SET
			status = $2, feedback = $3, submitted_at = $4, approved_at = $5, paid_at = $6,
			updated_at = NOW()
		WHERE id = $1
	`, m.ID, m.Status, m.Feedback, m.SubmittedAt, m.ApprovedAt, m.PaidAt)
	if err != nil {
		return fmt.Errorf("order repository: update milestone %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrMilestoneNotFound
	}
	return nil
}
