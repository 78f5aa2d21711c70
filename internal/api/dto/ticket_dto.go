package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest is the widget intake payload.
type CreateTicketRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body string `json:"body"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ContactResponse echoes the visitor intake data.
type ContactResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// TicketSummary is one row of a ticket listing.
type TicketSummary struct {
	ID           string              `json:"id"`
	TicketID     string              `json:"ticket_id"`
	Contact      ContactResponse     `json:"contact"`
	AssigneeID   *string             `json:"assignee_id"`
	Status       domain.TicketStatus `json:"status"`
	MessageCount int                 `json:"message_count"`
	LastMessage  *MessageResponse    `json:"last_message,omitempty"`
	IsMissed     bool                `json:"is_missed"`
	IsMissedChat bool                `json:"is_missed_chat"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	FirstReplyAt *time.Time          `json:"first_reply_at"`
	ResolvedAt   *time.Time          `json:"resolved_at"`
}

// TicketDetailResponse provides full ticket info including the thread.
type TicketDetailResponse struct {
	ID                 string              `json:"id"`
	TicketID           string              `json:"ticket_id"`
	Contact            ContactResponse     `json:"contact"`
	AssigneeID         *string             `json:"assignee_id"`
	Status             domain.TicketStatus `json:"status"`
	IsMissed           bool                `json:"is_missed"`
	IsMissedChat       bool                `json:"is_missed_chat"`
	MissedChatMarkedAt *time.Time          `json:"missed_chat_marked_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	FirstReplyAt       *time.Time          `json:"first_reply_at"`
	ResolvedAt         *time.Time          `json:"resolved_at"`
	Messages           []MessageResponse   `json:"messages"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID         string            `json:"id"`
	Sender     string            `json:"sender"`
	SenderType domain.SenderType `json:"sender_type"`
	Body       string            `json:"body"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg domain.Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		Sender:     msg.Sender,
		SenderType: msg.SenderType,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
}

// NewTicketSummary maps a ticket; threshold and now drive the computed
// missed flag.
func NewTicketSummary(ticket *domain.Ticket, threshold time.Duration, now time.Time) TicketSummary {
	summary := TicketSummary{
		ID:           ticket.ID,
		TicketID:     ticket.TicketID,
		Contact:      contactResponse(ticket.Contact),
		AssigneeID:   ticket.AssigneeID,
		Status:       ticket.Status,
		MessageCount: len(ticket.Messages),
		IsMissed:     domain.IsMissedComputed(ticket, threshold, now),
		IsMissedChat: ticket.IsMissedChat,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		FirstReplyAt: ticket.FirstReplyAt,
		ResolvedAt:   ticket.ResolvedAt,
	}
	if n := len(ticket.Messages); n > 0 {
		last := NewMessageResponse(ticket.Messages[n-1])
		summary.LastMessage = &last
	}
	return summary
}

// NewTicketDetail maps a ticket with its full thread.
func NewTicketDetail(ticket *domain.Ticket, threshold time.Duration, now time.Time) TicketDetailResponse {
	msgs := make([]MessageResponse, 0, len(ticket.Messages))
	for _, msg := range ticket.Messages {
		msgs = append(msgs, NewMessageResponse(msg))
	}
	return TicketDetailResponse{
		ID:                 ticket.ID,
		TicketID:           ticket.TicketID,
		Contact:            contactResponse(ticket.Contact),
		AssigneeID:         ticket.AssigneeID,
		Status:             ticket.Status,
		IsMissed:           domain.IsMissedComputed(ticket, threshold, now),
		IsMissedChat:       ticket.IsMissedChat,
		MissedChatMarkedAt: ticket.MissedChatMarkedAt,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		FirstReplyAt:       ticket.FirstReplyAt,
		ResolvedAt:         ticket.ResolvedAt,
		Messages:           msgs,
	}
}

func contactResponse(c domain.ContactInfo) ContactResponse {
	return ContactResponse{Name: c.Name, Email: c.Email, Phone: c.Phone}
}
