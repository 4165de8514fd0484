package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillmarket/escrow-backend/internal/models"
)

// AuditRepository — append-only журнал привилегированных мутаций.
// Путь чтения нужен только админской отчётности.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Add(ctx context.Context, entry *models.AuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertAuditTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// ListByTarget возвращает записи по конкретному объекту, старые первыми.
func (r *AuditRepository) ListByTarget(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM audit_log WHERE target_type = $1 AND target_id = $2 ORDER BY created_at ASC
	`, targetType, targetID)
	return entries, err
}

func insertAuditTx(ctx context.Context, tx *sqlx.Tx, entry *models.AuditEntry) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO audit_log (actor_id, action, target_type, target_id, details, old_value, new_value, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, entry.Details,
		entry.OldValue, entry.NewValue, entry.Severity).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit repository: insert %w", err)
	}
	return nil
}
