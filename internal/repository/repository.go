package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrNotFound is returned when a row or document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (identity email) is taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConcurrentUpdate is returned when an optimistic write kept losing.
	ErrConcurrentUpdate = errors.New("concurrent update")
	// ErrHistoryRewritten is returned when a mutation drops or reorders messages.
	ErrHistoryRewritten = errors.New("ticket messages are append-only")
)

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Status           *domain.TicketStatus
	AssigneeID       *string
	TicketIDContains string
	SortKey          domain.TicketSortKey
	SortDirection    domain.SortDirection
}

// MutateFunc applies a transition to a loaded ticket. Returning an error
// aborts the write.
type MutateFunc func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence. Mutate is the only write
// path for existing tickets and is atomic per ticket.
type TicketRepository interface {
	NextSequence(ctx context.Context) (int64, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error)
	Count(ctx context.Context) (int64, error)
}

// IdentityRepository defines persistence access for staff accounts.
type IdentityRepository interface {
	// Register inserts the identity and assigns its role: admin when no
	// identity exists yet, team_member otherwise. The check and the insert
	// are atomic.
	Register(ctx context.Context, identity *domain.Identity) error
	Create(ctx context.Context, identity *domain.Identity) error
	Update(ctx context.Context, identity *domain.Identity) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	List(ctx context.Context) ([]domain.Identity, error)
	Count(ctx context.Context) (int64, error)
	AdminExists(ctx context.Context) (bool, error)
}

// SettingsRepository stores the settings singleton.
type SettingsRepository interface {
	// GetOrCreate returns the stored settings, inserting defaults first if
	// none exist.
	GetOrCreate(ctx context.Context, defaults domain.Settings) (*domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// Store groups the repositories of one storage backend.
type Store struct {
	Tickets    TicketRepository
	Identities IdentityRepository
	Settings   SettingsRepository
}

func assignMessageIDs(messages []domain.Message) {
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = uuid.NewString()
		}
	}
}

// checkAppendOnly verifies that after still starts with before.
func checkAppendOnly(before, after []domain.Message) error {
	if len(after) < len(before) {
		return ErrHistoryRewritten
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Body != after[i].Body {
			return ErrHistoryRewritten
		}
	}
	return nil
}
