package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NewMemoryStore returns process-local repositories for development runs and
// tests. State is lost on restart.
func NewMemoryStore() Store {
	tickets := &memoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
	return Store{
		Tickets:    tickets,
		Identities: &memoryIdentityRepository{identities: make(map[string]*domain.Identity), tickets: tickets},
		Settings:   NewMemorySettingsRepository(),
	}
}

type memoryTicketRepository struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	sequence int64
	seeded   bool
}

// NewMemoryTicketRepository returns an in-memory TicketRepository.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

func (r *memoryTicketRepository) NextSequence(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seeded {
		r.sequence = int64(len(r.tickets))
		r.seeded = true
	}
	r.sequence++
	return r.sequence, nil
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	for _, existing := range r.tickets {
		if existing.TicketID == ticket.TicketID {
			return ErrDuplicate
		}
	}
	assignMessageIDs(ticket.Messages)
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	needle := strings.ToLower(strings.TrimSpace(filter.TicketIDContains))
	for _, ticket := range r.tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.AssigneeID != nil && !ticket.IsAssignedTo(*filter.AssigneeID) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ticket.TicketID), needle) {
			continue
		}
		result = append(result, *ticket.Clone())
	}
	r.mu.Unlock()

	domain.SortTickets(result, filter.SortKey, filter.SortDirection)
	return result, nil
}

func (r *memoryTicketRepository) Mutate(_ context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	assignMessageIDs(working.Messages)
	if err := checkAppendOnly(stored.Messages, working.Messages); err != nil {
		return nil, err
	}
	working.Version = stored.Version + 1
	r.tickets[id] = working
	return working.Clone(), nil
}

// unassign clears id from every ticket it is assigned to.
func (r *memoryTicketRepository) unassign(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.IsAssignedTo(id) {
			ticket.AssigneeID = nil
			ticket.Version++
		}
	}
}

func (r *memoryTicketRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.tickets)), nil
}

type memoryIdentityRepository struct {
	mu         sync.RWMutex
	identities map[string]*domain.Identity
	// tickets, when set, has assignments cleared on Delete.
	tickets *memoryTicketRepository
}

// NewMemoryIdentityRepository returns an in-memory IdentityRepository.
func NewMemoryIdentityRepository() IdentityRepository {
	return &memoryIdentityRepository{identities: make(map[string]*domain.Identity)}
}

func (r *memoryIdentityRepository) Register(_ context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity.Role = domain.RoleForNewIdentity(int64(len(r.identities)))
	return r.insertLocked(identity)
}

func (r *memoryIdentityRepository) Create(_ context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(identity)
}

func (r *memoryIdentityRepository) insertLocked(identity *domain.Identity) error {
	for _, existing := range r.identities {
		if existing.Email == identity.Email {
			return ErrDuplicate
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	copied := *identity
	r.identities[identity.ID] = &copied
	return nil
}

func (r *memoryIdentityRepository) Update(_ context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.identities[identity.ID]; !ok {
		return ErrNotFound
	}
	copied := *identity
	r.identities[identity.ID] = &copied
	return nil
}

func (r *memoryIdentityRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.identities[id]; !ok {
		return ErrNotFound
	}
	delete(r.identities, id)
	if r.tickets != nil {
		r.tickets.unassign(id)
	}
	return nil
}

func (r *memoryIdentityRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *identity
	return &copied, nil
}

func (r *memoryIdentityRepository) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, identity := range r.identities {
		if identity.Email == email {
			copied := *identity
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryIdentityRepository) List(_ context.Context) ([]domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Identity, 0, len(r.identities))
	for _, identity := range r.identities {
		result = append(result, *identity)
	}
	domain.SortIdentities(result, domain.IdentitySortCreatedAt, domain.SortDesc)
	return result, nil
}

func (r *memoryIdentityRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.identities)), nil
}

func (r *memoryIdentityRepository) AdminExists(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, identity := range r.identities {
		if identity.IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

type memorySettingsRepository struct {
	mu       sync.Mutex
	settings *domain.Settings
}

// NewMemorySettingsRepository returns an in-memory SettingsRepository.
func NewMemorySettingsRepository() SettingsRepository {
	return &memorySettingsRepository{}
}

func (r *memorySettingsRepository) GetOrCreate(_ context.Context, defaults domain.Settings) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		stored := defaults
		r.settings = &stored
	}
	out := *r.settings
	return &out, nil
}

func (r *memorySettingsRepository) Save(_ context.Context, settings domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &settings
	return nil
}
