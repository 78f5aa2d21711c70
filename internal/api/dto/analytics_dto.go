package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// WeekBucketResponse is one bar of the missed chats chart.
type WeekBucketResponse struct {
	Week  string    `json:"week"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

// ReplyTimeResponse reports the mean time to first reply.
type ReplyTimeResponse struct {
	AvgReplyTime        string `json:"avg_reply_time"`
	AvgReplyTimeMinutes int64  `json:"avg_reply_time_minutes"`
}

// ResolutionRateResponse reports resolved against total tickets.
type ResolutionRateResponse struct {
	TotalTickets         int     `json:"total_tickets"`
	ResolvedTickets      int     `json:"resolved_tickets"`
	ResolutionPercentage float64 `json:"resolution_percentage"`
}

// DashboardResponse bundles every figure.
type DashboardResponse struct {
	MissedChats    []WeekBucketResponse   `json:"missed_chats"`
	AvgReplyTime   ReplyTimeResponse      `json:"avg_reply_time"`
	ResolutionRate ResolutionRateResponse `json:"resolution_rate"`
}

// NewWeekBuckets maps the weekly chart.
func NewWeekBuckets(buckets []domain.WeekBucket) []WeekBucketResponse {
	out := make([]WeekBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, WeekBucketResponse{Week: b.Label, Start: b.Start, End: b.End, Count: b.Count})
	}
	return out
}

// NewReplyTime maps the reply time figure.
func NewReplyTime(r service.ReplyTime) ReplyTimeResponse {
	return ReplyTimeResponse{AvgReplyTime: r.Display, AvgReplyTimeMinutes: r.Minutes}
}

// NewResolutionRate maps the resolution figure.
func NewResolutionRate(r service.ResolutionRate) ResolutionRateResponse {
	return ResolutionRateResponse{TotalTickets: r.Total, ResolvedTickets: r.Resolved, ResolutionPercentage: r.Percentage}
}

// NewDashboard maps the full dashboard.
func NewDashboard(d service.Dashboard) DashboardResponse {
	return DashboardResponse{
		MissedChats:    NewWeekBuckets(d.MissedChats),
		AvgReplyTime:   NewReplyTime(d.AvgReplyTime),
		ResolutionRate: NewResolutionRate(d.ResolutionRate),
	}
}
