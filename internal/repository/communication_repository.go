package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// CommunicationFilter narrows a ticket's communications to one silo.
type CommunicationFilter struct {
	Audience    *domain.Party
	RecipientID *string
	Status      *domain.DeliveryStatus
}

// CommunicationRepository stores outbound messages and their delivery state.
type CommunicationRepository interface {
	Create(ctx context.Context, comm *domain.Communication) error
	Update(ctx context.Context, comm *domain.Communication) error
	GetByID(ctx context.Context, id string) (*domain.Communication, error)
	ListByTicket(ctx context.Context, ticketID string, filter CommunicationFilter) ([]*domain.Communication, error)
}

type communicationRepository struct {
	db DBTX
}

// NewCommunicationRepository builds repository.
func NewCommunicationRepository(db DBTX) CommunicationRepository {
	return &communicationRepository{db: db}
}

const communicationColumns = `id, ticket_id, quote_id, audience, recipient_id, channel, address, subject, body,
               status, last_error, attempts, created_at, updated_at, sent_at`

func (r *communicationRepository) Create(ctx context.Context, comm *domain.Communication) error {
	const query = `
        INSERT INTO communications (id, ticket_id, quote_id, audience, recipient_id, channel, address, subject, body, status, attempts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		comm.ID,
		comm.TicketID,
		comm.QuoteID,
		comm.Audience,
		comm.RecipientID,
		comm.Channel,
		comm.Address,
		comm.Subject,
		comm.Body,
		comm.Status,
		comm.Attempts,
	).Scan(&comm.CreatedAt, &comm.UpdatedAt)
}

func (r *communicationRepository) Update(ctx context.Context, comm *domain.Communication) error {
	const query = `
        UPDATE communications SET channel=$1, address=$2, status=$3, last_error=$4, attempts=$5, sent_at=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		comm.Channel,
		comm.Address,
		comm.Status,
		comm.LastError,
		comm.Attempts,
		comm.SentAt,
		comm.ID,
	).Scan(&comm.UpdatedAt)
}

func (r *communicationRepository) GetByID(ctx context.Context, id string) (*domain.Communication, error) {
	var comm domain.Communication
	if err := scanCommunication(r.db.QueryRow(ctx, `SELECT `+communicationColumns+` FROM communications WHERE id=$1`, id), &comm); err != nil {
		return nil, err
	}
	return &comm, nil
}

func (r *communicationRepository) ListByTicket(ctx context.Context, ticketID string, filter CommunicationFilter) ([]*domain.Communication, error) {
	clauses := []string{"ticket_id=$1"}
	args := []any{ticketID}
	if filter.Audience != nil {
		args = append(args, *filter.Audience)
		clauses = append(clauses, fmt.Sprintf("audience=$%d", len(args)))
	}
	if filter.RecipientID != nil {
		args = append(args, *filter.RecipientID)
		clauses = append(clauses, fmt.Sprintf("recipient_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM communications WHERE %s ORDER BY created_at ASC`,
		communicationColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Communication
	for rows.Next() {
		var comm domain.Communication
		if err := scanCommunication(rows, &comm); err != nil {
			return nil, err
		}
		result = append(result, &comm)
	}
	return result, rows.Err()
}

func scanCommunication(row pgx.Row, comm *domain.Communication) error {
	return row.Scan(
		&comm.ID,
		&comm.TicketID,
		&comm.QuoteID,
		&comm.Audience,
		&comm.RecipientID,
		&comm.Channel,
		&comm.Address,
		&comm.Subject,
		&comm.Body,
		&comm.Status,
		&comm.LastError,
		&comm.Attempts,
		&comm.CreatedAt,
		&comm.UpdatedAt,
		&comm.SentAt,
	)
}
