package service

import (
	"context"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// QuoteLedger owns quote records and their references to tickets and
// contractors. Lifecycle rules live in the workflow engine, not here.
type QuoteLedger struct {
	tickets     repository.TicketRepository
	quotes      repository.QuoteRepository
	contractors repository.ContractorRepository
}

// NewQuoteLedger binds a ledger to one set of repositories, usually those of
// the current transaction.
func NewQuoteLedger(repos repository.Repositories) *QuoteLedger {
	return &QuoteLedger{tickets: repos.Tickets, quotes: repos.Quotes, contractors: repos.Contractors}
}

// QuotesForTicket lists a ticket's quotes in creation order.
func (l *QuoteLedger) QuotesForTicket(ctx context.Context, ticketID string) ([]*domain.Quote, error) {
	if err := l.requireTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return l.quotes.ListByTicket(ctx, ticketID)
}

// Get returns the quote when it belongs to ticketID.
func (l *QuoteLedger) Get(ctx context.Context, ticketID, quoteID string) (*domain.Quote, error) {
	quote, err := l.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, mapRepoError(err, "quote")
	}
	if quote.TicketID != ticketID {
		return nil, apperrors.NewNotFound("quote", map[string]any{"quote_id": quoteID})
	}
	return quote, nil
}

// Append stores a new quote after checking its ticket and contractor.
func (l *QuoteLedger) Append(ctx context.Context, quote *domain.Quote) error {
	if err := l.requireTicket(ctx, quote.TicketID); err != nil {
		return err
	}
	if _, err := l.contractors.GetByID(ctx, quote.ContractorID); err != nil {
		return mapRepoError(err, "contractor")
	}
	return l.quotes.Create(ctx, quote)
}

// Save persists changes to an existing quote of the same ticket.
func (l *QuoteLedger) Save(ctx context.Context, quote *domain.Quote) error {
	if _, err := l.Get(ctx, quote.TicketID, quote.ID); err != nil {
		return err
	}
	return mapRepoError(l.quotes.Update(ctx, quote), "quote")
}

func (l *QuoteLedger) requireTicket(ctx context.Context, ticketID string) error {
	if _, err := l.tickets.GetByID(ctx, ticketID); err != nil {
		return mapRepoError(err, "ticket")
	}
	return nil
}
