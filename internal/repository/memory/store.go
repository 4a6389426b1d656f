// Package memory is an in-process repository.Store used by tests and by the
// API when no Postgres DSN is configured. A transaction holds the store lock
// for its whole duration and restores a snapshot on failure.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/repository"
)

// ErrInvalidID is returned when a row that needs a caller-assigned uuid
// arrives without one.
var ErrInvalidID = errors.New("memory: invalid or missing id")

// Store keeps every aggregate in maps guarded by one mutex.
type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

type dataset struct {
	tickets        map[string]*domain.Ticket
	quotes         map[string]*domain.Quote
	events         []*domain.WorkflowEvent
	communications []*domain.Communication
	tenants        map[string]*domain.Tenant
	contractors    map[string]*domain.Contractor
	users          map[string]*domain.User
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data: &dataset{
			tickets:     map[string]*domain.Ticket{},
			quotes:      map[string]*domain.Quote{},
			tenants:     map[string]*domain.Tenant{},
			contractors: map[string]*domain.Contractor{},
			users:       map[string]*domain.User{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.Store = (*Store)(nil)

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() repository.Repositories {
	return s.bind(false)
}

// WithinTx runs fn with the store locked. Writes are discarded if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.clone()
	if err := fn(ctx, s.bind(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(locked bool) repository.Repositories {
	h := &handle{store: s, locked: locked}
	return repository.Repositories{
		Tickets:        &ticketRepo{h},
		Quotes:         &quoteRepo{h},
		Events:         &eventRepo{h},
		Communications: &communicationRepo{h},
		Tenants:        &tenantRepo{h},
		Contractors:    &contractorRepo{h},
		Users:          &userRepo{h},
	}
}

type handle struct {
	store  *Store
	locked bool
}

func (h *handle) do(fn func(d *dataset) error) error {
	if !h.locked {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
	}
	return fn(h.store.data)
}

func (h *handle) now() time.Time {
	return h.store.now()
}

func (d *dataset) clone() *dataset {
	cp := &dataset{
		tickets:        make(map[string]*domain.Ticket, len(d.tickets)),
		quotes:         make(map[string]*domain.Quote, len(d.quotes)),
		events:         make([]*domain.WorkflowEvent, len(d.events)),
		communications: make([]*domain.Communication, len(d.communications)),
		tenants:        make(map[string]*domain.Tenant, len(d.tenants)),
		contractors:    make(map[string]*domain.Contractor, len(d.contractors)),
		users:          make(map[string]*domain.User, len(d.users)),
	}
	for k, v := range d.tickets {
		cp.tickets[k] = v.Clone()
	}
	for k, v := range d.quotes {
		cp.quotes[k] = v.Clone()
	}
	for i, v := range d.events {
		cp.events[i] = v.Clone()
	}
	for i, v := range d.communications {
		cp.communications[i] = v.Clone()
	}
	for k, v := range d.tenants {
		t := *v
		cp.tenants[k] = &t
	}
	for k, v := range d.contractors {
		c := *v
		cp.contractors[k] = &c
	}
	for k, v := range d.users {
		cp.users[k] = cloneUser(v)
	}
	return cp
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.PartyID != nil {
		id := *u.PartyID
		cp.PartyID = &id
	}
	return &cp
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

type ticketRepo struct{ h *handle }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.h.do(func(d *dataset) error {
		for _, existing := range d.tickets {
			if existing.Number == ticket.Number {
				return repository.ErrDuplicate
			}
		}
		now := r.h.now()
		ticket.ID = newID(ticket.ID)
		ticket.Version = 1
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.h.do(func(d *dataset) error {
		stored, ok := d.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != ticket.Version {
			return repository.ErrVersionConflict
		}
		ticket.Version++
		ticket.UpdatedAt = r.h.now()
		ticket.Number = stored.Number
		ticket.TenantID = stored.TenantID
		ticket.PropertyID = stored.PropertyID
		ticket.CreatedAt = stored.CreatedAt
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.h.do(func(d *dataset) error {
		t, ok := d.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *ticketRepo) MaxSequence(_ context.Context) (int64, error) {
	var max int64
	err := r.h.do(func(d *dataset) error {
		for _, t := range d.tickets {
			if n, ok := domain.TicketSequence(t.Number); ok && n > max {
				max = n
			}
		}
		return nil
	})
	return max, err
}

func (r *ticketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	number = strings.ToUpper(number)
	var out *domain.Ticket
	err := r.h.do(func(d *dataset) error {
		for _, t := range d.tickets {
			if t.Number == number {
				out = t.Clone()
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter = filter.Normalized()
	var matched []domain.Ticket
	err := r.h.do(func(d *dataset) error {
		for _, t := range d.tickets {
			if matchesTicket(t, filter) {
				matched = append(matched, *t.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].Number > matched[j].Number
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matchesTicket(t *domain.Ticket, f repository.TicketFilter) bool {
	if f.TenantID != nil && t.TenantID != *f.TenantID {
		return false
	}
	if f.PropertyID != nil && t.PropertyID != *f.PropertyID {
		return false
	}
	if !oneOf(t.Status, f.Statuses) || !oneOf(t.WorkflowStatus, f.WorkflowStatuses) ||
		!oneOf(t.Priority, f.Priorities) || !oneOf(t.Category, f.Categories) {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Subject), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.Number), term) {
			return false
		}
	}
	return true
}

func oneOf[T comparable](v T, allowed []T) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

type quoteRepo struct{ h *handle }

func (r *quoteRepo) Create(_ context.Context, quote *domain.Quote) error {
	return r.h.do(func(d *dataset) error {
		quote.ID = newID(quote.ID)
		if quote.CreatedAt.IsZero() {
			quote.CreatedAt = r.h.now()
			quote.UpdatedAt = quote.CreatedAt
		}
		d.quotes[quote.ID] = quote.Clone()
		return nil
	})
}

func (r *quoteRepo) Update(_ context.Context, quote *domain.Quote) error {
	return r.h.do(func(d *dataset) error {
		stored, ok := d.quotes[quote.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cp := quote.Clone()
		cp.TicketID = stored.TicketID
		cp.ContractorID = stored.ContractorID
		cp.CreatedAt = stored.CreatedAt
		d.quotes[quote.ID] = cp
		return nil
	})
}

func (r *quoteRepo) GetByID(_ context.Context, id string) (*domain.Quote, error) {
	var out *domain.Quote
	err := r.h.do(func(d *dataset) error {
		q, ok := d.quotes[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = q.Clone()
		return nil
	})
	return out, err
}

func (r *quoteRepo) ListByTicket(_ context.Context, ticketID string) ([]*domain.Quote, error) {
	return r.list(func(q *domain.Quote) bool { return q.TicketID == ticketID })
}

func (r *quoteRepo) ListByContractor(_ context.Context, contractorID string) ([]*domain.Quote, error) {
	return r.list(func(q *domain.Quote) bool { return q.ContractorID == contractorID })
}

func (r *quoteRepo) list(keep func(*domain.Quote) bool) ([]*domain.Quote, error) {
	var out []*domain.Quote
	err := r.h.do(func(d *dataset) error {
		for _, q := range d.quotes {
			if keep(q) {
				out = append(out, q.Clone())
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

type eventRepo struct{ h *handle }

func (r *eventRepo) Append(_ context.Context, event *domain.WorkflowEvent) error {
	return r.h.do(func(d *dataset) error {
		event.ID = newID(event.ID)
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.h.now()
		}
		d.events = append(d.events, event.Clone())
		return nil
	})
}

func (r *eventRepo) ListByTicket(_ context.Context, ticketID string) ([]*domain.WorkflowEvent, error) {
	var out []*domain.WorkflowEvent
	err := r.h.do(func(d *dataset) error {
		for _, ev := range d.events {
			if ev.TicketID == ticketID {
				out = append(out, ev.Clone())
			}
		}
		return nil
	})
	// append order breaks created_at ties, like the seq column does in Postgres
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type communicationRepo struct{ h *handle }

// Create requires a caller-assigned id, like the communications table.
func (r *communicationRepo) Create(_ context.Context, comm *domain.Communication) error {
	if _, err := uuid.Parse(comm.ID); err != nil {
		return ErrInvalidID
	}
	return r.h.do(func(d *dataset) error {
		now := r.h.now()
		comm.CreatedAt = now
		comm.UpdatedAt = now
		d.communications = append(d.communications, comm.Clone())
		return nil
	})
}

func (r *communicationRepo) Update(_ context.Context, comm *domain.Communication) error {
	return r.h.do(func(d *dataset) error {
		for i, stored := range d.communications {
			if stored.ID != comm.ID {
				continue
			}
			comm.UpdatedAt = r.h.now()
			cp := stored.Clone()
			cp.Channel = comm.Channel
			cp.Address = comm.Address
			cp.Status = comm.Status
			cp.LastError = comm.LastError
			cp.Attempts = comm.Attempts
			cp.SentAt = comm.SentAt
			cp.UpdatedAt = comm.UpdatedAt
			d.communications[i] = cp.Clone()
			return nil
		}
		return repository.ErrNotFound
	})
}

func (r *communicationRepo) GetByID(_ context.Context, id string) (*domain.Communication, error) {
	var out *domain.Communication
	err := r.h.do(func(d *dataset) error {
		for _, c := range d.communications {
			if c.ID == id {
				out = c.Clone()
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *communicationRepo) ListByTicket(_ context.Context, ticketID string, filter repository.CommunicationFilter) ([]*domain.Communication, error) {
	var out []*domain.Communication
	err := r.h.do(func(d *dataset) error {
		for _, c := range d.communications {
			if c.TicketID != ticketID {
				continue
			}
			if filter.Audience != nil && c.Audience != *filter.Audience {
				continue
			}
			if filter.RecipientID != nil && c.RecipientID != *filter.RecipientID {
				continue
			}
			if filter.Status != nil && c.Status != *filter.Status {
				continue
			}
			out = append(out, c.Clone())
		}
		return nil
	})
	return out, err
}

type tenantRepo struct{ h *handle }

func (r *tenantRepo) Create(_ context.Context, tenant *domain.Tenant) error {
	return r.h.do(func(d *dataset) error {
		now := r.h.now()
		tenant.ID = newID(tenant.ID)
		tenant.CreatedAt = now
		tenant.UpdatedAt = now
		cp := *tenant
		d.tenants[tenant.ID] = &cp
		return nil
	})
}

func (r *tenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	var out *domain.Tenant
	err := r.h.do(func(d *dataset) error {
		t, ok := d.tenants[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *tenantRepo) List(_ context.Context, limit, offset int) ([]domain.Tenant, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Tenant
	err := r.h.do(func(d *dataset) error {
		for _, t := range d.tenants {
			out = append(out, *t)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, err
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type contractorRepo struct{ h *handle }

func (r *contractorRepo) Create(_ context.Context, contractor *domain.Contractor) error {
	return r.h.do(func(d *dataset) error {
		now := r.h.now()
		contractor.ID = newID(contractor.ID)
		contractor.CreatedAt = now
		contractor.UpdatedAt = now
		cp := *contractor
		d.contractors[contractor.ID] = &cp
		return nil
	})
}

func (r *contractorRepo) Update(_ context.Context, contractor *domain.Contractor) error {
	return r.h.do(func(d *dataset) error {
		stored, ok := d.contractors[contractor.ID]
		if !ok {
			return repository.ErrNotFound
		}
		contractor.CreatedAt = stored.CreatedAt
		contractor.UpdatedAt = r.h.now()
		cp := *contractor
		d.contractors[contractor.ID] = &cp
		return nil
	})
}

func (r *contractorRepo) GetByID(_ context.Context, id string) (*domain.Contractor, error) {
	var out *domain.Contractor
	err := r.h.do(func(d *dataset) error {
		c, ok := d.contractors[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

func (r *contractorRepo) List(_ context.Context, activeOnly bool) ([]domain.Contractor, error) {
	var out []domain.Contractor
	err := r.h.do(func(d *dataset) error {
		for _, c := range d.contractors {
			if activeOnly && !c.Active {
				continue
			}
			out = append(out, *c)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type userRepo struct{ h *handle }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.h.do(func(d *dataset) error {
		email := strings.ToLower(user.Email)
		for _, existing := range d.users {
			if existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		now := r.h.now()
		user.ID = newID(user.ID)
		user.Email = email
		user.CreatedAt = now
		user.UpdatedAt = now
		d.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	return r.h.do(func(d *dataset) error {
		stored, ok := d.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		user.Email = strings.ToLower(user.Email)
		user.CreatedAt = stored.CreatedAt
		user.UpdatedAt = r.h.now()
		d.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.h.do(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *domain.User
	err := r.h.do(func(d *dataset) error {
		for _, u := range d.users {
			if u.Email == email {
				out = cloneUser(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}
