package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// StatusFilterAll disables the status filter of a listing.
const StatusFilterAll = "all"

// TicketService runs the ticket lifecycle and enforces who may do what.
type TicketService struct {
	tickets    repository.TicketRepository
	identities repository.IdentityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	IdentityRepo repository.IdentityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
}

// CreateTicketInput describes the visitor intake form.
type CreateTicketInput struct {
	Contact        domain.ContactInfo
	InitialMessage string
}

// ListTicketsInput describes listing filters. Status may be empty or "all"
// for no filter. AssigneeID is honoured for admins only.
type ListTicketsInput struct {
	Status        string
	AssigneeID    string
	SortKey       domain.TicketSortKey
	SortDirection domain.SortDirection
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		identities: deps.IdentityRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		clock:      clock,
	}
}

// CreateTicket opens an unresolved, unassigned ticket. The human ticket id
// comes from an atomic counter so concurrent creates never collide.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	contact := input.Contact
	if err := contact.Validate(); err != nil {
		return nil, mapTicketError(err)
	}

	seq, err := s.tickets.NextSequence(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock()
	ticket, err := domain.NewTicket(uuid.NewString(), domain.FormatTicketID(now.Year(), seq), contact, input.InitialMessage, now)
	if err != nil {
		return nil, mapTicketError(err)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapTicketError(err)
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.TicketID), zap.String("id", ticket.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorFor(nil),
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketID,
			ContactName:  ticket.Contact.Name,
			ContactEmail: ticket.Contact.Email,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets newest first by default. Team members only
// ever see tickets assigned to them.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Identity, input ListTicketsInput) ([]domain.Ticket, error) {
	filter, err := s.scopedFilter(actor, input)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, mapTicketError(err)
	}
	return tickets, nil
}

// SearchTickets matches query case-insensitively against the human ticket id,
// with the same role scoping as ListTickets.
func (s *TicketService) SearchTickets(ctx context.Context, actor *domain.Identity, query string, input ListTicketsInput) ([]domain.Ticket, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewMissingField("query")
	}
	filter, err := s.scopedFilter(actor, input)
	if err != nil {
		return nil, err
	}
	filter.TicketIDContains = query
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, mapTicketError(err)
	}
	return tickets, nil
}

func (s *TicketService) scopedFilter(actor *domain.Identity, input ListTicketsInput) (repository.TicketFilter, error) {
	if actor == nil {
		return repository.TicketFilter{}, apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{
		SortKey:       input.SortKey,
		SortDirection: input.SortDirection,
	}
	if filter.SortKey == "" {
		filter.SortKey = domain.TicketSortCreatedAt
	}
	if filter.SortDirection == "" {
		filter.SortDirection = domain.SortDesc
	}

	switch status := strings.ToLower(strings.TrimSpace(input.Status)); status {
	case "", StatusFilterAll:
	default:
		ts := domain.TicketStatus(status)
		if !ts.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("unknown status filter", map[string]any{"status": input.Status})
		}
		filter.Status = &ts
	}

	switch {
	case actor.IsAdmin():
		if id := strings.TrimSpace(input.AssigneeID); id != "" {
			filter.AssigneeID = &id
		}
	case actor.IsTeamMember():
		id := actor.ID
		filter.AssigneeID = &id
	default:
		return repository.TicketFilter{}, apperrors.NewForbidden("staff role required")
	}
	return filter, nil
}

// GetTicket is open to anonymous visitors holding the ticket's id. A team
// member may only read tickets assigned to them.
func (s *TicketService) GetTicket(ctx context.Context, id string, actor *domain.Identity) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketError(err)
	}
	if err := authorizeAssigneeAccess(actor, ticket); err != nil {
		return nil, mapTicketError(err)
	}
	return ticket, nil
}

// AppendMessage posts to the thread. Without an actor the message is the
// visitor's; with one it is a staff reply, and the first staff reply stamps
// FirstReplyAt.
func (s *TicketService) AppendMessage(ctx context.Context, id string, actor *domain.Identity, body string) (*domain.Ticket, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewMissingField("body")
	}

	var (
		appended   domain.Message
		firstReply bool
	)
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		if err := authorizeAssigneeAccess(actor, t); err != nil {
			return err
		}
		sender := domain.VisitorSender(t.Contact.Name)
		if actor != nil {
			sender = domain.StaffSender(actor)
		}
		hadReply := t.FirstReplyAt != nil
		msg, err := t.AppendMessage(sender, body, s.clock())
		if err != nil {
			return err
		}
		appended = msg
		firstReply = !hadReply && t.FirstReplyAt != nil
		return nil
	})
	if err != nil {
		return nil, mapTicketError(err)
	}

	last := ticket.Messages[len(ticket.Messages)-1]
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    actorFor(actor),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   last.ID,
			SenderType:  appended.SenderType,
			Sender:      appended.Sender,
			BodyPreview: stringPreview(appended.Body, 120),
			FirstReply:  firstReply,
		},
	})
	return ticket, nil
}

// AssignTicket hands the ticket to a team member, replacing any previous
// assignee. Re-assigning the current assignee is a silent no-op.
func (s *TicketService) AssignTicket(ctx context.Context, id string, actor *domain.Identity, memberID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can assign tickets")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, apperrors.NewMissingField("assigneeId")
	}

	member, err := s.identities.GetByID(ctx, memberID)
	if err != nil {
		if mapped := mapIdentityError(err); apperrors.HasCode(mapped, apperrors.CodeNotFound) {
			return nil, apperrors.NewInvalidArgument("team member not found", map[string]any{"assigneeId": memberID})
		}
		return nil, mapIdentityError(err)
	}
	if !member.IsTeamMember() {
		return nil, apperrors.NewInvalidArgument("assignee must be a team member", map[string]any{"assigneeId": memberID})
	}

	var (
		previous *string
		changed  bool
	)
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		previous = t.AssigneeID
		var err error
		changed, err = t.Assign(member, s.clock())
		return err
	})
	if err != nil {
		return nil, mapTicketError(err)
	}

	if changed {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    actorFor(actor),
			Payload: events.TicketAssignedPayload{
				PreviousAssigneeID: previous,
				AssigneeID:         member.ID,
			},
		})
	}
	return ticket, nil
}

// ResolveTicket closes the ticket for good. Admins may resolve any ticket,
// team members only their own.
func (s *TicketService) ResolveTicket(ctx context.Context, id string, actor *domain.Identity) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		if err := authorizeAssigneeAccess(actor, t); err != nil {
			return err
		}
		return t.Resolve(s.clock())
	})
	if err != nil {
		return nil, mapTicketError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    actorFor(actor),
		Payload:  events.TicketResolvedPayload{ResolvedAt: *ticket.ResolvedAt},
	})
	return ticket, nil
}

// MarkMissed records the client-side missed chat signal. It may arrive more
// than once; every call refreshes MissedChatMarkedAt.
func (s *TicketService) MarkMissed(ctx context.Context, id string, actor *domain.Identity) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsAdmin() && !actor.IsTeamMember() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		t.MarkMissed(s.clock())
		return nil
	})
	if err != nil {
		return nil, mapTicketError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMarkedMissed,
		TicketID: ticket.ID,
		Actor:    actorFor(actor),
		Payload:  events.TicketMarkedMissedPayload{MarkedAt: *ticket.MissedChatMarkedAt},
	})
	return ticket, nil
}

// authorizeAssigneeAccess applies the per-ticket rule shared by read, reply
// and resolve: visitors and admins pass, team members must be the assignee.
func authorizeAssigneeAccess(actor *domain.Identity, ticket *domain.Ticket) error {
	if actor == nil || actor.IsAdmin() {
		return nil
	}
	if actor.IsTeamMember() && ticket.IsAssignedTo(actor.ID) {
		return nil
	}
	return errNotAssignee
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorFor(identity *domain.Identity) events.Actor {
	if identity == nil {
		return events.Actor{}
	}
	id := identity.ID
	role := identity.Role
	return events.Actor{IdentityID: &id, Role: &role}
}

func stringPreview(body string, limit int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func utcNow() time.Time {
	return time.Now().UTC()
}
