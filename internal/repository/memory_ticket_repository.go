package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

type memoryTicketRepository struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*domain.Ticket
}

// NewMemoryTicketRepository returns a process-local store. Tickets are deep-copied
// on the way in and out.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{namespaces: make(map[string]map[string]*domain.Ticket)}
}

func (r *memoryTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ns := ticket.Kind.Namespace()
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.namespaces[ns]
	if !ok {
		bucket = make(map[string]*domain.Ticket)
		r.namespaces[ns] = bucket
	}
	if _, exists := bucket[ticket.ID]; exists {
		return ErrAlreadyExists
	}
	bucket[ticket.ID] = ticket.Clone()
	return nil
}

func (r *memoryTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket := r.namespaces[ticket.Kind.Namespace()]
	if _, exists := bucket[ticket.ID]; !exists {
		return ErrNotFound
	}
	bucket[ticket.ID] = ticket.Clone()
	return nil
}

func (r *memoryTicketRepository) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.namespaces[kind.Namespace()][id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) Find(ctx context.Context, kind domain.Kind, filter TicketFilter) ([]*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.namespaces[kind.Namespace()]
	result := make([]*domain.Ticket, 0, len(bucket))
	for _, ticket := range bucket {
		if filter.Matches(ticket) {
			result = append(result, ticket.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
