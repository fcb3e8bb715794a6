package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Activity event types recorded on the lead timeline.
const (
	ActivityCreated       = "CREATED"
	ActivityStatusChanged = "STATUS_CHANGED"
	ActivityAssigned      = "ASSIGNED"
	ActivityConverted     = "CONVERTED"
	ActivityNoteAdded     = "NOTE_ADDED"
	ActivityTaskCompleted = "TASK_COMPLETED"
	ActivityCommunication = "COMMUNICATION"
)

// SummaryMaxLen is the maximum character length for activity summaries.
const SummaryMaxLen = 400

// TruncateSummary trims text to maxLen, appending "..." on overflow.
// Returns nil for blank input.
func TruncateSummary(text string, maxLen int) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return &trimmed
}

// Activity is one immutable entry on a lead's timeline. Rows are append-only;
// there is no update or delete path.
type Activity struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ActorID   *uuid.UUID
	ActorName string
	EventType string
	OldValue  *string
	NewValue  *string
	Summary   *string
	Metadata  map[string]any
	CreatedAt time.Time
}

type AppendActivityParams struct {
	LeadID    uuid.UUID
	ActorID   *uuid.UUID
	ActorName string
	EventType string
	OldValue  *string
	NewValue  *string
	Summary   *string
	Metadata  map[string]any
}

func (r *Repository) AppendActivity(ctx context.Context, params AppendActivityParams) (Activity, error) {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return Activity{}, err
	}

	var activity Activity
	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_activities (
			lead_id, actor_id, actor_name, event_type, old_value, new_value, summary, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, lead_id, actor_id, actor_name, event_type, old_value, new_value, summary, created_at
	`, params.LeadID, params.ActorID, params.ActorName, params.EventType,
		params.OldValue, params.NewValue, params.Summary, metadataJSON,
	).Scan(
		&activity.ID, &activity.LeadID, &activity.ActorID, &activity.ActorName,
		&activity.EventType, &activity.OldValue, &activity.NewValue,
		&activity.Summary, &activity.CreatedAt,
	)
	if err != nil {
		return Activity{}, err
	}

	activity.Metadata = params.Metadata
	return activity, nil
}

// ListActivities returns a lead's timeline, newest first.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, actor_name, event_type, old_value, new_value, summary, metadata, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		var activity Activity
		var metadataJSON []byte
		if err := rows.Scan(
			&activity.ID, &activity.LeadID, &activity.ActorID, &activity.ActorName,
			&activity.EventType, &activity.OldValue, &activity.NewValue,
			&activity.Summary, &metadataJSON, &activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &activity.Metadata); err != nil {
				return nil, err
			}
		}
		activities = append(activities, activity)
	}

	return activities, rows.Err()
}
