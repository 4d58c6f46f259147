package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

// PostgresUserRepo persists users with one flag column and one topic column
// per category. Column names come from the static category descriptors, so
// the identifiers interpolated into SQL are compile-time constants, never
// user input.
type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `
id, first_name, last_name, username, registered_at, active_category, banned,
youth_policy, psychologist_support, civic_education, legal_support,
youth_policy_topic, psychologist_support_topic, legal_support_topic`

func (r *PostgresUserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, first_name, last_name, username, registered_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING;`
	tag, err := r.pool.Exec(ctx, q, u.ID, u.FirstName, u.LastName, u.Username, u.RegisteredAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *PostgresUserRepo) Find(ctx context.Context, id int64) (*model.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id=$1;`, userColumns)
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u                            model.User
		activeRaw                    string
		youth, psych, civic, legal   bool
		youthTID, psychTID, legalTID *int
	)
	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.RegisteredAt, &activeRaw, &u.Banned,
		&youth, &psych, &civic, &legal,
		&youthTID, &psychTID, &legalTID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	u.Active = model.Category(activeRaw)
	u.Subscribed = map[model.Category]bool{
		model.CategoryYouthPolicy:    youth,
		model.CategoryPsychologist:   psych,
		model.CategoryCivicEducation: civic,
		model.CategoryLegalSupport:   legal,
	}
	u.Topics = make(map[model.Category]int)
	for c, tid := range map[model.Category]*int{
		model.CategoryYouthPolicy:  youthTID,
		model.CategoryPsychologist: psychTID,
		model.CategoryLegalSupport: legalTID,
	} {
		if tid != nil && *tid != 0 {
			u.Topics[c] = *tid
		}
	}
	return &u, nil
}

func (r *PostgresUserRepo) SetActiveCategory(ctx context.Context, id int64, c model.Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET active_category=$1 WHERE id=$2;`, c.String(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) SetFlag(ctx context.Context, id int64, c model.Category, on bool) error {
	d, ok := c.Descriptor()
	if !ok {
		return domain.ErrInvalidArgument
	}
	q := fmt.Sprintf(`UPDATE users SET %s=$1 WHERE id=$2;`, d.FlagColumn)
	tag, err := r.pool.Exec(ctx, q, on, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) SetBanned(ctx context.Context, id int64, banned bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET banned=$1 WHERE id=$2;`, banned, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BindTopic is the compare-and-set write behind "one topic per (user,
// category), forever": the update lands only while the column is still NULL.
func (r *PostgresUserRepo) BindTopic(ctx context.Context, id int64, c model.Category, threadID int) error {
	d, ok := c.Descriptor()
	if !ok || d.TopicColumn == "" {
		return domain.ErrInvalidArgument
	}
	q := fmt.Sprintf(`UPDATE users SET %s=$1 WHERE id=$2 AND %s IS NULL;`, d.TopicColumn, d.TopicColumn)
	tag, err := r.pool.Exec(ctx, q, threadID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the user is unknown or the binding already exists.
	var existing *int
	check := fmt.Sprintf(`SELECT %s FROM users WHERE id=$1;`, d.TopicColumn)
	if err := r.pool.QueryRow(ctx, check, id).Scan(&existing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return domain.ErrDuplicateBinding
}

func (r *PostgresUserRepo) FindByTopic(ctx context.Context, c model.Category, threadID int) (int64, error) {
	d, ok := c.Descriptor()
	if !ok || d.TopicColumn == "" {
		return 0, domain.ErrInvalidArgument
	}
	q := fmt.Sprintf(`SELECT id FROM users WHERE %s=$1;`, d.TopicColumn)
	var id int64
	if err := r.pool.QueryRow(ctx, q, threadID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r *PostgresUserRepo) ListSubscribers(ctx context.Context, c model.Category) ([]*model.User, error) {
	d, ok := c.Descriptor()
	if !ok {
		return nil, domain.ErrInvalidArgument
	}
	q := fmt.Sprintf(`SELECT %s FROM users WHERE %s = TRUE ORDER BY id;`, userColumns, d.FlagColumn)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
