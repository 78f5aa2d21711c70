package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketSequenceName = "tickets"

const ticketColumns = `id, ticket_id, contact_name, contact_email, contact_phone, assignee_id, status,
               created_at, updated_at, first_reply_at, resolved_at, is_missed_chat, missed_chat_marked_at, version`

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// NextSequence increments the shared ticket counter. The first call seeds it
// from the number of existing tickets.
func (r *ticketRepository) NextSequence(ctx context.Context) (int64, error) {
	const query = `
        INSERT INTO ticket_sequences (name, value)
        VALUES ($1, (SELECT COUNT(*) FROM tickets) + 1)
        ON CONFLICT (name) DO UPDATE SET value = ticket_sequences.value + 1
        RETURNING value`
	var value int64
	if err := r.pool.QueryRow(ctx, query, ticketSequenceName).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (id, ticket_id, contact_name, contact_email, contact_phone, assignee_id, status,
            created_at, updated_at, first_reply_at, resolved_at, is_missed_chat, missed_chat_marked_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	if _, err := tx.Exec(ctx, query,
		ticket.ID,
		ticket.TicketID,
		ticket.Contact.Name,
		ticket.Contact.Email,
		ticket.Contact.Phone,
		ticket.AssigneeID,
		ticket.Status,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.FirstReplyAt,
		ticket.ResolvedAt,
		ticket.IsMissedChat,
		ticket.MissedChatMarkedAt,
		ticket.Version,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	assignMessageIDs(ticket.Messages)
	if err := insertMessages(ctx, tx, ticket.ID, ticket.Messages, 0); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := fetchTicket(ctx, r.pool, query, id)
	if err != nil {
		return nil, err
	}
	if err := loadMessages(ctx, r.pool, []*domain.Ticket{ticket}); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if needle := strings.TrimSpace(filter.TicketIDContains); needle != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(needle))+"%")
		clauses = append(clauses, fmt.Sprintf(`LOWER(ticket_id) LIKE $%d ESCAPE '\'`, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s`,
		ticketColumns, strings.Join(clauses, " AND "), ticketOrderBy(filter.SortKey, filter.SortDirection))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}

	ptrs := make([]*domain.Ticket, len(tickets))
	for i := range tickets {
		ptrs[i] = &tickets[i]
	}
	if err := loadMessages(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Mutate locks the ticket row for the duration of fn, then writes the changed
// columns and any messages appended by fn in the same transaction.
func (r *ticketRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	ticket, err := fetchTicket(ctx, tx, query, id)
	if err != nil {
		return nil, err
	}
	if err := loadMessages(ctx, tx, []*domain.Ticket{ticket}); err != nil {
		return nil, err
	}

	before := append([]domain.Message(nil), ticket.Messages...)
	if err := fn(ticket); err != nil {
		return nil, err
	}
	assignMessageIDs(ticket.Messages)
	if err := checkAppendOnly(before, ticket.Messages); err != nil {
		return nil, err
	}
	ticket.Version++

	const update = `
        UPDATE tickets SET assignee_id=$1, status=$2, updated_at=$3, first_reply_at=$4, resolved_at=$5,
            is_missed_chat=$6, missed_chat_marked_at=$7, version=$8
        WHERE id=$9`
	cmd, err := tx.Exec(ctx, update,
		ticket.AssigneeID,
		ticket.Status,
		ticket.UpdatedAt,
		ticket.FirstReplyAt,
		ticket.ResolvedAt,
		ticket.IsMissedChat,
		ticket.MissedChatMarkedAt,
		ticket.Version,
		ticket.ID,
	)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	if err := insertMessages(ctx, tx, ticket.ID, ticket.Messages[len(before):], len(before)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func fetchTicket(ctx context.Context, q queryer, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := q.QueryRow(ctx, query, arg).Scan(ticketScanTargets(&ticket)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ticket.Messages = []domain.Message{}
	return &ticket, nil
}

func ticketScanTargets(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.TicketID,
		&ticket.Contact.Name,
		&ticket.Contact.Email,
		&ticket.Contact.Phone,
		&ticket.AssigneeID,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstReplyAt,
		&ticket.ResolvedAt,
		&ticket.IsMissedChat,
		&ticket.MissedChatMarkedAt,
		&ticket.Version,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketScanTargets(&ticket)...); err != nil {
			return nil, err
		}
		ticket.Messages = []domain.Message{}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func ticketOrderBy(key domain.TicketSortKey, dir domain.SortDirection) string {
	column := "created_at"
	switch key {
	case domain.TicketSortTicketID:
		column = "ticket_id"
	case domain.TicketSortStatus:
		column = "status"
	case domain.TicketSortContact:
		column = "LOWER(contact_name)"
	}
	direction := "DESC"
	if dir == domain.SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
