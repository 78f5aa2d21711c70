package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func TestCreateTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.openTicket(t, "ana", "My order is late")
	second := env.openTicket(t, "ben", "")

	assert.Equal(t, "2025-00001", first.TicketID)
	assert.Equal(t, "2025-00002", second.TicketID)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.TicketStatusUnresolved, first.Status)
	assert.Nil(t, first.AssigneeID)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, domain.SenderTypeVisitor, first.Messages[0].SenderType)
	assert.NotEmpty(t, first.Messages[0].ID)
	assert.Empty(t, second.Messages)

	created := env.recorder.ofType(events.EventTicketCreated)
	require.Len(t, created, 2)
	assert.Nil(t, created[0].Actor.IdentityID)
	assert.Equal(t, first.ID, created[0].TicketID)
	assert.Equal(t, "2025-00001", created[0].Payload.(events.TicketCreatedPayload).TicketNumber)

	tests := []struct {
		name    string
		contact domain.ContactInfo
		field   string
	}{
		{"missing name", domain.ContactInfo{Email: "a@b.io", Phone: "1"}, "name"},
		{"blank email", domain.ContactInfo{Name: "A", Email: "  ", Phone: "1"}, "email"},
		{"missing phone", domain.ContactInfo{Name: "A", Email: "a@b.io"}, "phone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.tickets.CreateTicket(ctx, CreateTicketInput{Contact: tc.contact})
			requireCode(t, err, apperrors.CodeValidation)
			assert.Equal(t, tc.field, apperrors.ToDomainError(err).Details["field"])
		})
	}

	count, err := env.store.Tickets.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "rejected creates must not consume a ticket")
}

func TestCreateTicketConcurrentIDsAreUnique(t *testing.T) {
	env := newTestEnv(t)
	const workers = 50

	var wg sync.WaitGroup
	ids := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := env.tickets.CreateTicket(context.Background(), CreateTicketInput{
				Contact: domain.ContactInfo{Name: fmt.Sprintf("v%d", i), Email: "v@x.io", Phone: "1"},
			})
			if assert.NoError(t, err) {
				ids <- ticket.TicketID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers)
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate ticket id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers)
}

func TestTicketConversationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, alice, _ := env.staff(t)

	ticket := env.openTicket(t, "ana", "Hello?")

	env.clock.Advance(time.Minute)
	ticket, err := env.tickets.AppendMessage(ctx, ticket.ID, nil, "Anyone there?")
	require.NoError(t, err)
	assert.Nil(t, ticket.FirstReplyAt, "visitor messages never count as a reply")

	ticket, err = env.tickets.AssignTicket(ctx, ticket.ID, admin, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, alice.ID, *ticket.AssigneeID)

	env.clock.Advance(2 * time.Minute)
	replyAt := env.clock.Now()
	ticket, err = env.tickets.AppendMessage(ctx, ticket.ID, alice, "Hi, I'm here")
	require.NoError(t, err)
	require.NotNil(t, ticket.FirstReplyAt)
	assert.Equal(t, replyAt, *ticket.FirstReplyAt)
	assert.Equal(t, "Alice", ticket.Messages[2].Sender)

	env.clock.Advance(time.Minute)
	ticket, err = env.tickets.AppendMessage(ctx, ticket.ID, admin, "Following up")
	require.NoError(t, err)
	assert.Equal(t, replyAt, *ticket.FirstReplyAt, "first reply is stamped once")
	assert.Len(t, ticket.Messages, 4)

	added := env.recorder.ofType(events.EventTicketMessageAdded)
	require.Len(t, added, 3)
	assert.False(t, added[0].Payload.(events.TicketMessageAddedPayload).FirstReply)
	assert.True(t, added[1].Payload.(events.TicketMessageAddedPayload).FirstReply)
	assert.False(t, added[2].Payload.(events.TicketMessageAddedPayload).FirstReply)

	ticket, err = env.tickets.ResolveTicket(ctx, ticket.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
	assert.Len(t, env.recorder.ofType(events.EventTicketResolved), 1)

	_, err = env.tickets.AppendMessage(ctx, ticket.ID, nil, "one more thing")
	requireCode(t, err, apperrors.CodeInvalidState)
	_, err = env.tickets.ResolveTicket(ctx, ticket.ID, admin)
	requireCode(t, err, apperrors.CodeInvalidState)

	stored, err := env.tickets.GetTicket(ctx, ticket.ID, nil)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 4, "resolved thread is frozen")
}

func TestTicketAccessControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, alice, bob := env.staff(t)

	assigned := env.openTicket(t, "ana", "hi")
	_, err := env.tickets.AssignTicket(ctx, assigned.ID, admin, alice.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor *domain.Identity
		code  string
	}{
		{"visitor", nil, ""},
		{"admin", admin, ""},
		{"assignee", alice, ""},
		{"other team member", bob, apperrors.CodeForbidden},
	}
	for _, tc := range tests {
		t.Run("read/"+tc.name, func(t *testing.T) {
			_, err := env.tickets.GetTicket(ctx, assigned.ID, tc.actor)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			requireCode(t, err, tc.code)
		})
		t.Run("reply/"+tc.name, func(t *testing.T) {
			_, err := env.tickets.AppendMessage(ctx, assigned.ID, tc.actor, "message from "+tc.name)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			requireCode(t, err, tc.code)
		})
	}

	t.Run("bob cannot resolve", func(t *testing.T) {
		_, err := env.tickets.ResolveTicket(ctx, assigned.ID, bob)
		requireCode(t, err, apperrors.CodeForbidden)
	})
	t.Run("visitor cannot resolve", func(t *testing.T) {
		_, err := env.tickets.ResolveTicket(ctx, assigned.ID, nil)
		requireCode(t, err, apperrors.CodeUnauthorized)
	})
	t.Run("team member cannot read unassigned", func(t *testing.T) {
		unassigned := env.openTicket(t, "cy", "hello")
		_, err := env.tickets.GetTicket(ctx, unassigned.ID, alice)
		requireCode(t, err, apperrors.CodeForbidden)
	})
	t.Run("unknown ticket", func(t *testing.T) {
		_, err := env.tickets.GetTicket(ctx, "does-not-exist", nil)
		requireCode(t, err, apperrors.CodeNotFound)
	})
	t.Run("blank body", func(t *testing.T) {
		_, err := env.tickets.AppendMessage(ctx, assigned.ID, nil, "   ")
		requireCode(t, err, apperrors.CodeValidation)
	})
}

func TestAssignTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, alice, bob := env.staff(t)
	ticket := env.openTicket(t, "ana", "hi")

	t.Run("rejections", func(t *testing.T) {
		_, err := env.tickets.AssignTicket(ctx, ticket.ID, nil, alice.ID)
		requireCode(t, err, apperrors.CodeUnauthorized)
		_, err = env.tickets.AssignTicket(ctx, ticket.ID, alice, bob.ID)
		requireCode(t, err, apperrors.CodeForbidden)
		_, err = env.tickets.AssignTicket(ctx, ticket.ID, admin, "ghost")
		requireCode(t, err, apperrors.CodeInvalidArgument)
		_, err = env.tickets.AssignTicket(ctx, ticket.ID, admin, admin.ID)
		requireCode(t, err, apperrors.CodeInvalidArgument)
		_, err = env.tickets.AssignTicket(ctx, "missing", admin, alice.ID)
		requireCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("reassignment replaces and repeats are silent", func(t *testing.T) {
		_, err := env.tickets.AssignTicket(ctx, ticket.ID, admin, alice.ID)
		require.NoError(t, err)
		_, err = env.tickets.AssignTicket(ctx, ticket.ID, admin, alice.ID)
		require.NoError(t, err)
		updated, err := env.tickets.AssignTicket(ctx, ticket.ID, admin, bob.ID)
		require.NoError(t, err)
		assert.True(t, updated.IsAssignedTo(bob.ID))

		assigned := env.recorder.ofType(events.EventTicketAssigned)
		require.Len(t, assigned, 2)
		second := assigned[1].Payload.(events.TicketAssignedPayload)
		require.NotNil(t, second.PreviousAssigneeID)
		assert.Equal(t, alice.ID, *second.PreviousAssigneeID)
		assert.Equal(t, bob.ID, second.AssigneeID)

		_, err = env.tickets.GetTicket(ctx, ticket.ID, alice)
		requireCode(t, err, apperrors.CodeForbidden)
	})
}

func TestListAndSearchTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, alice, bob := env.staff(t)

	var all []*domain.Ticket
	for i := 0; i < 4; i++ {
		env.clock.Advance(time.Minute)
		all = append(all, env.openTicket(t, fmt.Sprintf("v%d", i), "hi"))
	}
	_, err := env.tickets.AssignTicket(ctx, all[0].ID, admin, alice.ID)
	require.NoError(t, err)
	_, err = env.tickets.AssignTicket(ctx, all[1].ID, admin, alice.ID)
	require.NoError(t, err)
	_, err = env.tickets.AssignTicket(ctx, all[2].ID, admin, bob.ID)
	require.NoError(t, err)
	_, err = env.tickets.ResolveTicket(ctx, all[1].ID, alice)
	require.NoError(t, err)

	ids := func(tickets []domain.Ticket) []string {
		out := make([]string, 0, len(tickets))
		for _, ticket := range tickets {
			out = append(out, ticket.TicketID)
		}
		return out
	}

	tests := []struct {
		name  string
		actor *domain.Identity
		input ListTicketsInput
		want  []string
	}{
		{"admin sees all newest first", admin, ListTicketsInput{}, []string{"2025-00004", "2025-00003", "2025-00002", "2025-00001"}},
		{"admin status all", admin, ListTicketsInput{Status: "all"}, []string{"2025-00004", "2025-00003", "2025-00002", "2025-00001"}},
		{"admin unresolved", admin, ListTicketsInput{Status: "unresolved"}, []string{"2025-00004", "2025-00003", "2025-00001"}},
		{"admin by assignee", admin, ListTicketsInput{AssigneeID: bob.ID}, []string{"2025-00003"}},
		{"admin ascending", admin, ListTicketsInput{SortDirection: domain.SortAsc}, []string{"2025-00001", "2025-00002", "2025-00003", "2025-00004"}},
		{"team member sees own only", alice, ListTicketsInput{}, []string{"2025-00002", "2025-00001"}},
		{"team member assignee filter ignored", alice, ListTicketsInput{AssigneeID: bob.ID}, []string{"2025-00002", "2025-00001"}},
		{"team member resolved", alice, ListTicketsInput{Status: "resolved"}, []string{"2025-00002"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.tickets.ListTickets(ctx, tc.actor, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}

	t.Run("anonymous listing", func(t *testing.T) {
		_, err := env.tickets.ListTickets(ctx, nil, ListTicketsInput{})
		requireCode(t, err, apperrors.CodeUnauthorized)
	})
	t.Run("unknown status", func(t *testing.T) {
		_, err := env.tickets.ListTickets(ctx, admin, ListTicketsInput{Status: "pending"})
		requireCode(t, err, apperrors.CodeValidation)
	})
	t.Run("search", func(t *testing.T) {
		got, err := env.tickets.SearchTickets(ctx, admin, "00003", ListTicketsInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-00003"}, ids(got))

		got, err = env.tickets.SearchTickets(ctx, bob, "2025", ListTicketsInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-00003"}, ids(got))

		_, err = env.tickets.SearchTickets(ctx, admin, "  ", ListTicketsInput{})
		requireCode(t, err, apperrors.CodeValidation)
	})
}

func TestMarkMissed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, _, _ := env.staff(t)
	ticket := env.openTicket(t, "ana", "hi")

	_, err := env.tickets.MarkMissed(ctx, ticket.ID, nil)
	requireCode(t, err, apperrors.CodeUnauthorized)

	marked, err := env.tickets.MarkMissed(ctx, ticket.ID, admin)
	require.NoError(t, err)
	assert.True(t, marked.IsMissedChat)
	firstMark := *marked.MissedChatMarkedAt

	env.clock.Advance(time.Minute)
	marked, err = env.tickets.MarkMissed(ctx, ticket.ID, admin)
	require.NoError(t, err)
	assert.True(t, marked.MissedChatMarkedAt.After(firstMark))
	assert.Len(t, env.recorder.ofType(events.EventTicketMarkedMissed), 2)
}

func TestAppendMessageConcurrentNoLostWrites(t *testing.T) {
	env := newTestEnv(t)
	admin, _, _ := env.staff(t)
	ticket := env.openTicket(t, "ana", "start")
	const writers = 40

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var actor *domain.Identity
			if i%2 == 0 {
				actor = admin
			}
			_, err := env.tickets.AppendMessage(context.Background(), ticket.ID, actor, fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := env.tickets.GetTicket(context.Background(), ticket.ID, nil)
	require.NoError(t, err)
	require.Len(t, stored.Messages, writers+1)
	assert.Equal(t, "start", stored.Messages[0].Body)

	seen := make(map[string]struct{})
	for _, msg := range stored.Messages {
		seen[msg.ID] = struct{}{}
	}
	assert.Len(t, seen, writers+1)
	assert.NotNil(t, stored.FirstReplyAt)
}
