package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// WorkflowEventRepository is the append-only audit trail.
type WorkflowEventRepository interface {
	Append(ctx context.Context, event *domain.WorkflowEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]*domain.WorkflowEvent, error)
}

type workflowEventRepository struct {
	db DBTX
}

// NewWorkflowEventRepository builds repository.
func NewWorkflowEventRepository(db DBTX) WorkflowEventRepository {
	return &workflowEventRepository{db: db}
}

func (r *workflowEventRepository) Append(ctx context.Context, event *domain.WorkflowEvent) error {
	const query = `
        INSERT INTO workflow_events (id, ticket_id, quote_id, event_type, title, description, recipients,
            notification_channels, actor_type, actor_id, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.TicketID,
		event.QuoteID,
		event.EventType,
		event.Title,
		event.Description,
		toStrings(event.Recipients),
		toStrings(event.NotificationChannels),
		event.ActorType,
		event.ActorID,
		metadata,
		event.CreatedAt,
	)
	return err
}

func (r *workflowEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]*domain.WorkflowEvent, error) {
	const query = `
        SELECT id, ticket_id, quote_id, event_type, title, description, recipients, notification_channels,
               actor_type, actor_id, metadata, created_at
        FROM workflow_events WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.WorkflowEvent
	for rows.Next() {
		event, err := scanWorkflowEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

func scanWorkflowEvent(row pgx.Row) (*domain.WorkflowEvent, error) {
	var (
		event      domain.WorkflowEvent
		recipients []string
		channels   []string
	)
	if err := row.Scan(
		&event.ID,
		&event.TicketID,
		&event.QuoteID,
		&event.EventType,
		&event.Title,
		&event.Description,
		&recipients,
		&channels,
		&event.ActorType,
		&event.ActorID,
		&event.Metadata,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}
	event.Recipients = fromStrings[domain.Party](recipients)
	event.NotificationChannels = fromStrings[domain.Channel](channels)
	return &event, nil
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func fromStrings[T ~string](values []string) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}
