package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler serves the widget and the staff inbox. Visitors reach a
// ticket through its opaque id; staff routes sit behind the auth middleware.
type TicketsHandler struct {
	service  *service.TicketService
	settings *service.SettingsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, settingsService *service.SettingsService, logger *zap.Logger) *TicketsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketsHandler{
		service:  ticketService,
		settings: settingsService,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateTicket POST /api/tickets/create.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketInput{
		Contact:        domain.ContactInfo{Name: req.Name, Email: req.Email, Phone: req.Phone},
		InitialMessage: req.Message,
	})
	if err != nil {
		return err
	}
	return h.detail(c, http.StatusCreated, ticket)
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), auth.IdentityFromContext(c), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return h.summaries(c, tickets)
}

// SearchTickets GET /api/tickets/search?q=.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	tickets, err := h.service.SearchTickets(c.UserContext(), auth.IdentityFromContext(c), c.Query("q"), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return h.summaries(c, tickets)
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"), auth.IdentityFromContext(c))
	if err != nil {
		return err
	}
	return h.detail(c, http.StatusOK, ticket)
}

// AddMessage POST /api/tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AppendMessage(c.UserContext(), c.Params("id"), auth.IdentityFromContext(c), req.Body)
	if err != nil {
		return err
	}
	return h.detail(c, http.StatusCreated, ticket)
}

// AssignTicket PUT /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), c.Params("id"), auth.IdentityFromContext(c), req.AssigneeID)
	if err != nil {
		return err
	}
	return h.detail(c, http.StatusOK, ticket)
}

// ResolveTicket PUT /api/tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	ticket, err := h.service.ResolveTicket(c.UserContext(), c.Params("id"), auth.IdentityFromContext(c))
	if err != nil {
		return err
	}
	return h.detail(c, http.StatusOK, ticket)
}

// MarkMissed PUT /api/tickets/:id/mark-missed.
func (h *TicketsHandler) MarkMissed(c *fiber.Ctx) error {
	ticket, err := h.service.MarkMissed(c.UserContext(), c.Params("id"), auth.IdentityFromContext(c))
	if err != nil {
		return err
	}
	return h.detail(c, http.StatusOK, ticket)
}

// detail renders a ticket that may already have been written, so a failed
// settings lookup degrades to the default threshold instead of an error.
func (h *TicketsHandler) detail(c *fiber.Ctx, status int, ticket *domain.Ticket) error {
	threshold, err := h.threshold(c)
	if err != nil {
		threshold = domain.DefaultMissedChatTimer().Duration()
		h.logger.Warn("missed chat threshold unavailable, using default",
			zap.String("ticket_id", ticket.TicketID),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewTicketDetail(ticket, threshold, h.now())})
}

func (h *TicketsHandler) summaries(c *fiber.Ctx, tickets []domain.Ticket) error {
	threshold, err := h.threshold(c)
	if err != nil {
		return err
	}
	now := h.now()
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i], threshold, now))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) threshold(c *fiber.Ctx) (time.Duration, error) {
	if h.settings == nil {
		return domain.DefaultMissedChatTimer().Duration(), nil
	}
	return h.settings.MissedChatThreshold(c.UserContext())
}

func parseTicketQuery(c *fiber.Ctx) service.ListTicketsInput {
	return service.ListTicketsInput{
		Status:        c.Query("status"),
		AssigneeID:    c.Query("assignee"),
		SortKey:       domain.TicketSortKey(strings.TrimSpace(c.Query("sort"))),
		SortDirection: domain.ParseSortDirection(c.Query("order")),
	}
}
