package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// QuoteRepository stores contractor quotes.
type QuoteRepository interface {
	Create(ctx context.Context, quote *domain.Quote) error
	Update(ctx context.Context, quote *domain.Quote) error
	GetByID(ctx context.Context, id string) (*domain.Quote, error)
	ListByTicket(ctx context.Context, ticketID string) ([]*domain.Quote, error)
	ListByContractor(ctx context.Context, contractorID string) ([]*domain.Quote, error)
}

type quoteRepository struct {
	db DBTX
}

// NewQuoteRepository builds repository.
func NewQuoteRepository(db DBTX) QuoteRepository {
	return &quoteRepository{db: db}
}

const quoteColumns = `id, ticket_id, contractor_id, status, quote_amount, available_date, scheduled_date,
               scheduled_time_slot, contractor_response, approval_notes, rejection_reason, completion_notes,
               final_amount, created_at, updated_at, quoted_at, approved_at, started_at, completed_at`

func (r *quoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	const query = `
        INSERT INTO quotes (id, ticket_id, contractor_id, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.Exec(ctx, query,
		quote.ID,
		quote.TicketID,
		quote.ContractorID,
		quote.Status,
		quote.CreatedAt,
		quote.UpdatedAt,
	)
	return err
}

func (r *quoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	const query = `
        UPDATE quotes SET status=$1, quote_amount=$2, available_date=$3, scheduled_date=$4,
            scheduled_time_slot=$5, contractor_response=$6, approval_notes=$7, rejection_reason=$8,
            completion_notes=$9, final_amount=$10, updated_at=$11, quoted_at=$12, approved_at=$13,
            started_at=$14, completed_at=$15
        WHERE id=$16`
	cmd, err := r.db.Exec(ctx, query,
		quote.Status,
		quote.QuoteAmount,
		quote.AvailableDate,
		quote.ScheduledDate,
		quote.ScheduledTimeSlot,
		quote.ContractorResponse,
		quote.ApprovalNotes,
		quote.RejectionReason,
		quote.CompletionNotes,
		quote.FinalAmount,
		quote.UpdatedAt,
		quote.QuotedAt,
		quote.ApprovedAt,
		quote.StartedAt,
		quote.CompletedAt,
		quote.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *quoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	var quote domain.Quote
	if err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id), &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) ListByTicket(ctx context.Context, ticketID string) ([]*domain.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`, ticketID)
}

func (r *quoteRepository) ListByContractor(ctx context.Context, contractorID string) ([]*domain.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE contractor_id=$1 ORDER BY updated_at DESC`, contractorID)
}

func (r *quoteRepository) list(ctx context.Context, query string, arg any) ([]*domain.Quote, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Quote
	for rows.Next() {
		var quote domain.Quote
		if err := scanQuote(rows, &quote); err != nil {
			return nil, err
		}
		result = append(result, &quote)
	}
	return result, rows.Err()
}

func scanQuote(row pgx.Row, quote *domain.Quote) error {
	var slot *string
	if err := row.Scan(
		&quote.ID,
		&quote.TicketID,
		&quote.ContractorID,
		&quote.Status,
		&quote.QuoteAmount,
		&quote.AvailableDate,
		&quote.ScheduledDate,
		&slot,
		&quote.ContractorResponse,
		&quote.ApprovalNotes,
		&quote.RejectionReason,
		&quote.CompletionNotes,
		&quote.FinalAmount,
		&quote.CreatedAt,
		&quote.UpdatedAt,
		&quote.QuotedAt,
		&quote.ApprovedAt,
		&quote.StartedAt,
		&quote.CompletedAt,
	); err != nil {
		return err
	}
	if slot != nil {
		quote.ScheduledTimeSlot = domain.TimeSlot(*slot)
	}
	return nil
}
