package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("tag not found")
	ErrDuplicate = errors.New("tag name already exists")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Tag struct {
	ID         uuid.UUID
	Name       string
	Color      *string
	Category   *string
	UsageCount int
	CreatedAt  time.Time
}

func (r *Repository) Create(ctx context.Context, name string, color, category *string) (Tag, error) {
	var tag Tag
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (name, color, category) VALUES ($1, $2, $3)
		RETURNING id, name, color, category, created_at`,
		name, color, category,
	).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Category, &tag.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Tag{}, ErrDuplicate
		}
		return Tag{}, err
	}
	return tag, nil
}

// List returns all tags with their lead usage counts.
func (r *Repository) List(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.color, t.category, t.created_at, count(lt.lead_id)
		FROM tags t
		LEFT JOIN lead_tags lt ON lt.tag_id = t.id
		GROUP BY t.id, t.name, t.color, t.category, t.created_at
		ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Category, &tag.CreatedAt, &tag.UsageCount); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Tag, error) {
	var tag Tag
	err := r.pool.QueryRow(ctx, `
		SELECT t.id, t.name, t.color, t.category, t.created_at, count(lt.lead_id)
		FROM tags t
		LEFT JOIN lead_tags lt ON lt.tag_id = t.id
		WHERE t.id = $1
		GROUP BY t.id, t.name, t.color, t.category, t.created_at`,
		id,
	).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Category, &tag.CreatedAt, &tag.UsageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tag{}, ErrNotFound
	}
	return tag, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
