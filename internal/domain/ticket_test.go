package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestTicket(t *testing.T, initial string) *Ticket {
	t.Helper()
	ticket, err := NewTicket("tkt-1", FormatTicketID(2025, 1), ContactInfo{Name: "Ana", Email: "ana@x.com", Phone: "+1-555"}, initial, t0)
	require.NoError(t, err)
	return ticket
}

func member(id string) *Identity {
	return &Identity{ID: id, Name: "Member " + id, Role: RoleTeamMember}
}

func TestFormatTicketID(t *testing.T) {
	assert.Equal(t, "2025-00001", FormatTicketID(2025, 1))
	assert.Equal(t, "2025-00420", FormatTicketID(2025, 420))
	assert.Equal(t, "2026-12345", FormatTicketID(2026, 12345))
}

func TestNewTicket(t *testing.T) {
	t.Run("initial message from visitor", func(t *testing.T) {
		ticket := newTestTicket(t, "Help!")

		assert.Equal(t, TicketStatusUnresolved, ticket.Status)
		assert.Nil(t, ticket.AssigneeID)
		assert.Nil(t, ticket.FirstReplyAt)
		assert.Nil(t, ticket.ResolvedAt)
		assert.False(t, ticket.IsMissedChat)
		require.Len(t, ticket.Messages, 1)
		assert.Equal(t, "Ana", ticket.Messages[0].Sender)
		assert.Equal(t, SenderTypeVisitor, ticket.Messages[0].SenderType)
		assert.Equal(t, "Help!", ticket.Messages[0].Body)
	})

	t.Run("no initial message", func(t *testing.T) {
		ticket := newTestTicket(t, "")
		assert.Empty(t, ticket.Messages)
	})

	tests := []struct {
		name    string
		contact ContactInfo
		wantErr error
	}{
		{"missing name", ContactInfo{Email: "a@b.com", Phone: "1"}, ErrMissingContactName},
		{"missing email", ContactInfo{Name: "Ana", Phone: "1"}, ErrMissingContactEmail},
		{"missing phone", ContactInfo{Name: "Ana", Email: "a@b.com"}, ErrMissingContactPhone},
		{"blank phone", ContactInfo{Name: "Ana", Email: "a@b.com", Phone: "   "}, ErrMissingContactPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTicket("id", "2025-00001", tt.contact, "hi", t0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAppendMessageFirstReply(t *testing.T) {
	ticket := newTestTicket(t, "Help!")

	_, err := ticket.AppendMessage(VisitorSender("Ana"), "anyone?", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, ticket.FirstReplyAt, "visitor messages never set first reply")

	staff := &Identity{ID: "s1", Name: "Sam", Role: RoleAdmin}
	first := t0.Add(2 * time.Minute)
	_, err = ticket.AppendMessage(StaffSender(staff), "hello", first)
	require.NoError(t, err)
	require.NotNil(t, ticket.FirstReplyAt)
	assert.Equal(t, first, *ticket.FirstReplyAt)

	_, err = ticket.AppendMessage(StaffSender(staff), "again", t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first, *ticket.FirstReplyAt, "first reply is fixed once set")

	require.Len(t, ticket.Messages, 4)
	assert.Equal(t, []string{"Help!", "anyone?", "hello", "again"}, bodies(ticket))
}

func TestAppendMessageRejectsEmptyBody(t *testing.T) {
	ticket := newTestTicket(t, "")
	_, err := ticket.AppendMessage(VisitorSender("Ana"), "  \n", t0)
	assert.ErrorIs(t, err, ErrEmptyBody)
	assert.Empty(t, ticket.Messages)
}

func TestResolveIsTerminalForWrites(t *testing.T) {
	ticket := newTestTicket(t, "Help!")
	require.NoError(t, ticket.Resolve(t0.Add(time.Hour)))

	assert.Equal(t, TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)

	_, err := ticket.AppendMessage(VisitorSender("Ana"), "still there?", t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTicketResolved)
	_, err = ticket.AppendMessage(StaffSender(member("m1")), "closing", t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTicketResolved)
	assert.Len(t, ticket.Messages, 1)

	assert.ErrorIs(t, ticket.Resolve(t0.Add(3*time.Hour)), ErrTicketResolved)
	assert.Equal(t, t0.Add(time.Hour), *ticket.ResolvedAt)
}

func TestAssign(t *testing.T) {
	ticket := newTestTicket(t, "")

	changed, err := ticket.Assign(member("m1"), t0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ticket.IsAssignedTo("m1"))

	changed, err = ticket.Assign(member("m1"), t0)
	require.NoError(t, err)
	assert.False(t, changed, "same member twice is a no-op")

	changed, err = ticket.Assign(member("m2"), t0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ticket.IsAssignedTo("m2"))
	assert.False(t, ticket.IsAssignedTo("m1"))

	_, err = ticket.Assign(&Identity{ID: "a1", Role: RoleAdmin}, t0)
	assert.ErrorIs(t, err, ErrAssigneeNotTeamMember)
	_, err = ticket.Assign(nil, t0)
	assert.ErrorIs(t, err, ErrAssigneeNotTeamMember)
	assert.True(t, ticket.IsAssignedTo("m2"))
}

func TestMarkMissedRefreshesTimestamp(t *testing.T) {
	ticket := newTestTicket(t, "Help!")
	ticket.MarkMissed(t0.Add(5 * time.Minute))
	ticket.MarkMissed(t0.Add(6 * time.Minute))

	assert.True(t, ticket.IsMissedChat)
	assert.Equal(t, t0.Add(6*time.Minute), *ticket.MissedChatMarkedAt)
	assert.Len(t, ticket.Messages, 1)
}

func TestCloneIsDeep(t *testing.T) {
	ticket := newTestTicket(t, "Help!")
	_, _ = ticket.Assign(member("m1"), t0)

	c := ticket.Clone()
	_, err := c.AppendMessage(StaffSender(member("m1")), "reply", t0)
	require.NoError(t, err)
	*c.AssigneeID = "other"

	assert.Len(t, ticket.Messages, 1)
	assert.Nil(t, ticket.FirstReplyAt)
	assert.True(t, ticket.IsAssignedTo("m1"))
}

func bodies(t *Ticket) []string {
	out := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		out = append(out, m.Body)
	}
	return out
}
