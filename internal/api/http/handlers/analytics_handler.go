package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AnalyticsHandler exposes dashboard figures.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analyticsService}
}

// Dashboard GET /api/analytics/dashboard.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	dash, err := h.analytics.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDashboard(dash)})
}

// MissedChats GET /api/analytics/missed-chats.
func (h *AnalyticsHandler) MissedChats(c *fiber.Ctx) error {
	buckets, err := h.analytics.MissedChatsByWeek(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWeekBuckets(buckets)})
}

// AvgReplyTime GET /api/analytics/avg-reply-time.
func (h *AnalyticsHandler) AvgReplyTime(c *fiber.Ctx) error {
	reply, err := h.analytics.AverageReplyTime(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyTime(reply)})
}

// ResolutionRate GET /api/analytics/resolution-rate.
func (h *AnalyticsHandler) ResolutionRate(c *fiber.Ctx) error {
	rate, err := h.analytics.ResolutionRate(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResolutionRate(rate)})
}
