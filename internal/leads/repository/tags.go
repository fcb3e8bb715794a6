package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tag rows live in the tags module; this file only manages the
// lead_tags link table from the lead side.
type LeadTag struct {
	ID       uuid.UUID
	Name     string
	Color    string
	Category *string
}

func (r *Repository) AttachTag(ctx context.Context, leadID, tagID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_tags (lead_id, tag_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, tag_id) DO NOTHING
	`, leadID, tagID, time.Now())
	return err
}

func (r *Repository) DetachTag(ctx context.Context, leadID, tagID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM lead_tags WHERE lead_id = $1 AND tag_id = $2`, leadID, tagID)
	return err
}

func (r *Repository) ListTags(ctx context.Context, leadID uuid.UUID) ([]LeadTag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.color, t.category
		FROM tags t
		JOIN lead_tags lt ON lt.tag_id = t.id
		WHERE lt.lead_id = $1
		ORDER BY t.name ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]LeadTag, 0)
	for rows.Next() {
		var tag LeadTag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Category); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}
