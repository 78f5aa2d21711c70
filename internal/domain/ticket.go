package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnresolved TicketStatus = "unresolved"
	TicketStatusResolved   TicketStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusUnresolved || s == TicketStatusResolved
}

var (
	ErrMissingContactName    = errors.New("contact name is required")
	ErrMissingContactEmail   = errors.New("contact email is required")
	ErrMissingContactPhone   = errors.New("contact phone is required")
	ErrEmptyBody             = errors.New("message body is required")
	ErrTicketResolved        = errors.New("ticket is resolved")
	ErrAssigneeNotTeamMember = errors.New("assignee must be a team member")
)

// ContactInfo is the visitor's intake data. All fields are required.
type ContactInfo struct {
	Name  string
	Email string
	Phone string
}

// Validate trims the contact fields and reports the first missing one.
func (c *ContactInfo) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	switch {
	case c.Name == "":
		return ErrMissingContactName
	case c.Email == "":
		return ErrMissingContactEmail
	case c.Phone == "":
		return ErrMissingContactPhone
	}
	return nil
}

// Ticket is the aggregate for a support conversation. Mutations go through its
// methods so the invariants hold no matter which operation runs.
type Ticket struct {
	ID                 string
	TicketID           string
	Contact            ContactInfo
	Messages           []Message
	AssigneeID         *string
	Status             TicketStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
	FirstReplyAt       *time.Time
	ResolvedAt         *time.Time
	IsMissedChat       bool
	MissedChatMarkedAt *time.Time
	Version            int64
}

// FormatTicketID renders the human readable id, e.g. 2025-00001.
func FormatTicketID(year int, seq int64) string {
	return fmt.Sprintf("%04d-%05d", year, seq)
}

// NewTicket builds an unresolved, unassigned ticket. When initialBody is not
// blank it becomes the first visitor message.
func NewTicket(id, ticketID string, contact ContactInfo, initialBody string, now time.Time) (*Ticket, error) {
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	t := &Ticket{
		ID:        id,
		TicketID:  ticketID,
		Contact:   contact,
		Messages:  []Message{},
		Status:    TicketStatusUnresolved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if strings.TrimSpace(initialBody) != "" {
		if _, err := t.AppendMessage(VisitorSender(contact.Name), initialBody, now); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// IsResolved reports whether the ticket accepts no further writes.
func (t *Ticket) IsResolved() bool {
	return t.Status == TicketStatusResolved
}

// IsAssignedTo reports whether identityID is the current assignee.
func (t *Ticket) IsAssignedTo(identityID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == identityID
}

// AppendMessage adds a message at the end of the thread. The first staff
// message stamps FirstReplyAt; later ones leave it alone.
func (t *Ticket) AppendMessage(sender Sender, body string, now time.Time) (Message, error) {
	if t.IsResolved() {
		return Message{}, ErrTicketResolved
	}
	if strings.TrimSpace(body) == "" {
		return Message{}, ErrEmptyBody
	}
	msg := Message{
		Sender:     sender.Name,
		SenderType: sender.Type,
		Body:       body,
		CreatedAt:  now,
	}
	t.Messages = append(t.Messages, msg)
	if sender.Type == SenderTypeStaff && t.FirstReplyAt == nil {
		replied := now
		t.FirstReplyAt = &replied
	}
	t.UpdatedAt = now
	return msg, nil
}

// Assign sets the assignee, overwriting any previous one. It reports false
// when the member was already assigned.
func (t *Ticket) Assign(member *Identity, now time.Time) (bool, error) {
	if member == nil || member.Role != RoleTeamMember {
		return false, ErrAssigneeNotTeamMember
	}
	if t.IsAssignedTo(member.ID) {
		return false, nil
	}
	id := member.ID
	t.AssigneeID = &id
	t.UpdatedAt = now
	return true, nil
}

// Resolve closes the ticket. There is no way back.
func (t *Ticket) Resolve(now time.Time) error {
	if t.IsResolved() {
		return ErrTicketResolved
	}
	resolved := now
	t.Status = TicketStatusResolved
	t.ResolvedAt = &resolved
	t.UpdatedAt = now
	return nil
}

// MarkMissed flags the ticket as a missed chat. Repeated calls refresh the
// timestamp only.
func (t *Ticket) MarkMissed(now time.Time) {
	marked := now
	t.IsMissedChat = true
	t.MissedChatMarkedAt = &marked
	t.UpdatedAt = now
}

// Clone returns a deep copy.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.Messages = append([]Message(nil), t.Messages...)
	c.AssigneeID = cloneString(t.AssigneeID)
	c.FirstReplyAt = cloneTime(t.FirstReplyAt)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.MissedChatMarkedAt = cloneTime(t.MissedChatMarkedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
