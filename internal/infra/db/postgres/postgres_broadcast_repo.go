package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/repository"
)

var (
	_ repository.BroadcastRepository   = (*PostgresBroadcastRepo)(nil)
	_ repository.DeliveryLogRepository = (*PostgresDeliveryLogRepo)(nil)
)

type PostgresBroadcastRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBroadcastRepo(pool *pgxpool.Pool) *PostgresBroadcastRepo {
	return &PostgresBroadcastRepo{pool: pool}
}

func (r *PostgresBroadcastRepo) CreatePending(ctx context.Context, p *model.PendingBroadcast) error {
	const q = `
INSERT INTO pending_broadcasts (id, category, body, created_at, scheduled_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING;`
	var scheduledAt *time.Time
	if !p.ScheduledAt.IsZero() {
		scheduledAt = &p.ScheduledAt
	}
	tag, err := r.pool.Exec(ctx, q, p.ID, p.Category.String(), p.Text, p.CreatedAt, scheduledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *PostgresBroadcastRepo) GetPending(ctx context.Context, id string) (*model.PendingBroadcast, error) {
	const q = `
SELECT id, category, body, created_at, scheduled_at, completed_at
  FROM pending_broadcasts WHERE id=$1;`
	return scanBroadcast(r.pool.QueryRow(ctx, q, id))
}

func scanBroadcast(row pgx.Row) (*model.PendingBroadcast, error) {
	var (
		p           model.PendingBroadcast
		categoryRaw string
		scheduledAt *time.Time
	)
	if err := row.Scan(&p.ID, &categoryRaw, &p.Text, &p.CreatedAt, &scheduledAt, &p.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Category = model.Category(categoryRaw)
	if scheduledAt != nil {
		p.ScheduledAt = *scheduledAt
	}
	return &p, nil
}

func (r *PostgresBroadcastRepo) ListPending(ctx context.Context) ([]*model.PendingBroadcast, error) {
	const q = `
SELECT id, category, body, created_at, scheduled_at, completed_at
  FROM pending_broadcasts
 WHERE completed_at IS NULL
 ORDER BY created_at;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PendingBroadcast
	for rows.Next() {
		p, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresBroadcastRepo) MarkComplete(ctx context.Context, id string) error {
	const q = `UPDATE pending_broadcasts SET completed_at=now() WHERE id=$1 AND completed_at IS NULL;`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already complete; distinguish for the caller.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pending_broadcasts WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	return nil
}

// PostgresDeliveryLogRepo records (user, post) deliveries. The composite
// primary key enforces at-most-once; Record is idempotent so concurrent
// runs racing on the same pair both succeed.
type PostgresDeliveryLogRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresDeliveryLogRepo(pool *pgxpool.Pool) *PostgresDeliveryLogRepo {
	return &PostgresDeliveryLogRepo{pool: pool}
}

func (r *PostgresDeliveryLogRepo) Exists(ctx context.Context, userID int64, postID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM post_deliveries WHERE user_id=$1 AND post_id=$2);`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, userID, postID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresDeliveryLogRepo) Record(ctx context.Context, userID int64, postID string) error {
	const q = `
INSERT INTO post_deliveries (user_id, post_id)
VALUES ($1,$2)
ON CONFLICT (user_id, post_id) DO NOTHING;`
	_, err := r.pool.Exec(ctx, q, userID, postID)
	return err
}
