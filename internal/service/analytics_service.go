package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AnalyticsService computes the admin dashboard figures.
type AnalyticsService struct {
	tickets  repository.TicketRepository
	settings *SettingsService
	logger   *zap.Logger
	clock    func() time.Time
}

// AnalyticsDependencies wires the analytics service.
type AnalyticsDependencies struct {
	TicketRepo repository.TicketRepository
	Settings   *SettingsService
	Logger     *zap.Logger
	Clock      func() time.Time
}

// ReplyTime is the mean time to first staff reply.
type ReplyTime struct {
	Minutes int64
	Display string
}

// ResolutionRate summarises resolved against total tickets.
type ResolutionRate struct {
	Total      int
	Resolved   int
	Percentage float64
}

// Dashboard bundles every analytics figure.
type Dashboard struct {
	MissedChats    []domain.WeekBucket
	AvgReplyTime   ReplyTime
	ResolutionRate ResolutionRate
}

// NewAnalyticsService builds the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &AnalyticsService{tickets: deps.TicketRepo, settings: deps.Settings, logger: logger, clock: clock}
}

// MissedChatsByWeek counts missed chats over the trailing ten weeks using the
// configured threshold.
func (s *AnalyticsService) MissedChatsByWeek(ctx context.Context) ([]domain.WeekBucket, error) {
	tickets, err := s.allTickets(ctx)
	if err != nil {
		return nil, err
	}
	return s.missedChats(ctx, tickets)
}

// AverageReplyTime averages FirstReplyAt minus CreatedAt over replied tickets.
func (s *AnalyticsService) AverageReplyTime(ctx context.Context) (ReplyTime, error) {
	tickets, err := s.allTickets(ctx)
	if err != nil {
		return ReplyTime{}, err
	}
	return averageReplyTime(tickets), nil
}

// ResolutionRate reports the share of resolved tickets.
func (s *AnalyticsService) ResolutionRate(ctx context.Context) (ResolutionRate, error) {
	tickets, err := s.allTickets(ctx)
	if err != nil {
		return ResolutionRate{}, err
	}
	return resolutionRate(tickets), nil
}

// Dashboard computes all figures from a single ticket snapshot.
func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	tickets, err := s.allTickets(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	missed, err := s.missedChats(ctx, tickets)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		MissedChats:    missed,
		AvgReplyTime:   averageReplyTime(tickets),
		ResolutionRate: resolutionRate(tickets),
	}, nil
}

func (s *AnalyticsService) missedChats(ctx context.Context, tickets []domain.Ticket) ([]domain.WeekBucket, error) {
	threshold := domain.DefaultMissedChatTimer().Duration()
	if s.settings != nil {
		var err error
		if threshold, err = s.settings.MissedChatThreshold(ctx); err != nil {
			return nil, err
		}
	}
	return domain.MissedChatsByWeek(tickets, threshold, s.clock()), nil
}

func (s *AnalyticsService) allTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

func averageReplyTime(tickets []domain.Ticket) ReplyTime {
	var (
		total   time.Duration
		replied int
	)
	for i := range tickets {
		if tickets[i].FirstReplyAt == nil {
			continue
		}
		total += tickets[i].FirstReplyAt.Sub(tickets[i].CreatedAt)
		replied++
	}
	if replied == 0 {
		return ReplyTime{Minutes: 0, Display: "0h"}
	}
	minutes := int64(math.Round((total / time.Duration(replied)).Minutes()))
	return ReplyTime{Minutes: minutes, Display: fmt.Sprintf("%.1fh", float64(minutes)/60)}
}

func resolutionRate(tickets []domain.Ticket) ResolutionRate {
	rate := ResolutionRate{Total: len(tickets)}
	for i := range tickets {
		if tickets[i].IsResolved() {
			rate.Resolved++
		}
	}
	if rate.Total > 0 {
		rate.Percentage = math.Round(float64(rate.Resolved)*1000/float64(rate.Total)) / 10
	}
	return rate
}
