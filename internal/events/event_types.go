package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketResolved     EventType = "ticket_resolved"
	EventTicketMarkedMissed EventType = "ticket_marked_missed"
)

// AllTicketEvents lists every lifecycle event, in lifecycle order.
var AllTicketEvents = []EventType{
	EventTicketCreated,
	EventTicketMessageAdded,
	EventTicketAssigned,
	EventTicketResolved,
	EventTicketMarkedMissed,
}

// Actor encapsulates actor metadata for an event. A nil IdentityID means the
// anonymous visitor.
type Actor struct {
	IdentityID *string      `json:"identity_id,omitempty"`
	Role       *domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string `json:"ticket_number"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	Sender      string            `json:"sender"`
	BodyPreview string            `json:"body_preview"`
	FirstReply  bool              `json:"first_reply"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
	AssigneeID         string  `json:"assignee_id"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ResolvedAt time.Time `json:"resolved_at"`
}

// TicketMarkedMissedPayload payload.
type TicketMarkedMissedPayload struct {
	MarkedAt time.Time `json:"marked_at"`
}
