package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Messages live in their own table keyed by (ticket_id, position). Rows are
// only ever inserted: a mutation writes the messages past the stored count
// and never touches earlier positions.

// loadMessages fills the threads of tickets with one query, in thread order.
func loadMessages(ctx context.Context, q queryer, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Ticket, len(tickets))
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		byID[ticket.ID] = ticket
		ids = append(ids, ticket.ID)
	}

	const query = `
        SELECT id, ticket_id, sender, sender_type, body, created_at
        FROM ticket_messages WHERE ticket_id = ANY($1)
        ORDER BY ticket_id, position`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			msg      domain.Message
			ticketID string
		)
		if err := rows.Scan(&msg.ID, &ticketID, &msg.Sender, &msg.SenderType, &msg.Body, &msg.CreatedAt); err != nil {
			return err
		}
		if ticket, ok := byID[ticketID]; ok {
			ticket.Messages = append(ticket.Messages, msg)
		}
	}
	return rows.Err()
}

// insertMessages writes messages starting at thread position offset.
func insertMessages(ctx context.Context, q queryer, ticketID string, messages []domain.Message, offset int) error {
	const query = `
        INSERT INTO ticket_messages (id, ticket_id, position, sender, sender_type, body, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	for i, msg := range messages {
		if _, err := q.Exec(ctx, query,
			msg.ID,
			ticketID,
			offset+i,
			msg.Sender,
			msg.SenderType,
			msg.Body,
			msg.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}
