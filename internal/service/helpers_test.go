package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var epoch = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store     repository.Store
	clock     *fakeClock
	recorder  *eventRecorder
	tickets   *TicketService
	identity  *IdentityService
	settings  *SettingsService
	analytics *AnalyticsService
}

var testConfig = config.Config{
	Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := newFakeClock()
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range events.AllTicketEvents {
		dispatcher.Subscribe(eventType, recorder.handle)
	}

	settings := NewSettingsService(SettingsDependencies{SettingsRepo: store.Settings, CacheTTL: time.Minute, Clock: clock.Now})
	return &testEnv{
		store:    store,
		clock:    clock,
		recorder: recorder,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:   store.Tickets,
			IdentityRepo: store.Identities,
			Dispatcher:   dispatcher,
			Clock:        clock.Now,
		}),
		identity:  NewIdentityService(testConfig, IdentityDependencies{IdentityRepo: store.Identities, Clock: clock.Now}),
		settings:  settings,
		analytics: NewAnalyticsService(AnalyticsDependencies{TicketRepo: store.Tickets, Settings: settings, Clock: clock.Now}),
	}
}

// staff seeds an admin and two team members.
func (e *testEnv) staff(t *testing.T) (admin, alice, bob *domain.Identity) {
	t.Helper()
	ctx := context.Background()
	admin, err := e.identity.Signup(ctx, SignupInput{Name: "Root Admin", Email: "admin@helpdesk.io", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)

	alice, err = e.identity.AddTeamMember(ctx, admin, TeamMemberInput{Name: "Alice", Email: "alice@helpdesk.io"})
	require.NoError(t, err)
	bob, err = e.identity.AddTeamMember(ctx, admin, TeamMemberInput{Name: "Bob", Email: "bob@helpdesk.io"})
	require.NoError(t, err)
	return admin, alice, bob
}

func (e *testEnv) openTicket(t *testing.T, name, body string) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.CreateTicket(context.Background(), CreateTicketInput{
		Contact:        domain.ContactInfo{Name: name, Email: name + "@visitor.io", Phone: "+1-555-0100"},
		InitialMessage: body,
	})
	require.NoError(t, err)
	return ticket
}
