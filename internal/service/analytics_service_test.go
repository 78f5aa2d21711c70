package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestAnalyticsEmpty(t *testing.T) {
	env := newTestEnv(t)
	dash, err := env.analytics.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReplyTime{Minutes: 0, Display: "0h"}, dash.AvgReplyTime)
	assert.Equal(t, ResolutionRate{}, dash.ResolutionRate)
	require.Len(t, dash.MissedChats, domain.TrailingWeeks)
	assert.Equal(t, "Week 1", dash.MissedChats[0].Label)
	assert.Equal(t, "Week 10", dash.MissedChats[9].Label)
	for _, bucket := range dash.MissedChats {
		assert.Zero(t, bucket.Count)
	}
}

func TestAnalyticsDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, _, _ := env.staff(t)

	quick := env.openTicket(t, "ana", "hi")
	env.clock.Advance(30 * time.Minute)
	_, err := env.tickets.AppendMessage(ctx, quick.ID, admin, "hello ana")
	require.NoError(t, err)
	_, err = env.tickets.ResolveTicket(ctx, quick.ID, admin)
	require.NoError(t, err)

	slow := env.openTicket(t, "ben", "hi")
	env.clock.Advance(90 * time.Minute)
	_, err = env.tickets.AppendMessage(ctx, slow.ID, admin, "sorry for the wait")
	require.NoError(t, err)

	env.openTicket(t, "cy", "anyone?")
	env.clock.Advance(24 * time.Hour)

	reply, err := env.analytics.AverageReplyTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReplyTime{Minutes: 60, Display: "1.0h"}, reply)

	rate, err := env.analytics.ResolutionRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResolutionRate{Total: 3, Resolved: 1, Percentage: 33.3}, rate)

	missed, err := env.analytics.MissedChatsByWeek(ctx)
	require.NoError(t, err)
	require.Len(t, missed, domain.TrailingWeeks)
	assert.Equal(t, 1, missed[9].Count, "only the unanswered ticket is missed")
	total := 0
	for _, bucket := range missed {
		total += bucket.Count
	}
	assert.Equal(t, 1, total)

	dash, err := env.analytics.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, missed, dash.MissedChats)
	assert.Equal(t, reply, dash.AvgReplyTime)
	assert.Equal(t, rate, dash.ResolutionRate)
}
