package domain

import (
	"fmt"
	"time"
)

// TrailingWeeks is the number of weekly windows reported by analytics.
const TrailingWeeks = 10

// IsMissedComputed reports whether an unanswered, unresolved ticket has waited
// longer than threshold. It is derived on every read and never persisted.
func IsMissedComputed(t *Ticket, threshold time.Duration, now time.Time) bool {
	return t.Status == TicketStatusUnresolved &&
		t.FirstReplyAt == nil &&
		now.Sub(t.CreatedAt) > threshold
}

// WeekBucket counts missed chats created in [Start, End).
type WeekBucket struct {
	Label string
	Start time.Time
	End   time.Time
	Count int
}

// MissedChatsByWeek buckets the computed missed chats into TrailingWeeks
// seven-day windows ending at now, oldest first.
func MissedChatsByWeek(tickets []Ticket, threshold time.Duration, now time.Time) []WeekBucket {
	const week = 7 * 24 * time.Hour
	buckets := make([]WeekBucket, 0, TrailingWeeks)
	for i := TrailingWeeks - 1; i >= 0; i-- {
		buckets = append(buckets, WeekBucket{
			Label: fmt.Sprintf("Week %d", TrailingWeeks-i),
			Start: now.Add(-time.Duration(i+1) * week),
			End:   now.Add(-time.Duration(i) * week),
		})
	}
	for idx := range tickets {
		t := &tickets[idx]
		if !IsMissedComputed(t, threshold, now) {
			continue
		}
		for b := range buckets {
			if !t.CreatedAt.Before(buckets[b].Start) && t.CreatedAt.Before(buckets[b].End) {
				buckets[b].Count++
				break
			}
		}
	}
	return buckets
}
