package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type countingSettingsRepo struct {
	repository.SettingsRepository
	loads atomic.Int32
}

func (r *countingSettingsRepo) GetOrCreate(ctx context.Context, defaults domain.Settings) (*domain.Settings, error) {
	r.loads.Add(1)
	return r.SettingsRepository.GetOrCreate(ctx, defaults)
}

// stallingSettingsRepo holds the first GetOrCreate after it has read the
// stored settings, so a load can be left in flight across an update.
type stallingSettingsRepo struct {
	repository.SettingsRepository
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (r *stallingSettingsRepo) GetOrCreate(ctx context.Context, defaults domain.Settings) (*domain.Settings, error) {
	settings, err := r.SettingsRepository.GetOrCreate(ctx, defaults)
	if r.calls.Add(1) == 1 {
		close(r.entered)
		<-r.release
	}
	return settings, err
}

func newCountingSettings(ttl time.Duration) (*SettingsService, *countingSettingsRepo, *fakeClock) {
	repo := &countingSettingsRepo{SettingsRepository: repository.NewMemorySettingsRepository()}
	clock := newFakeClock()
	return NewSettingsService(SettingsDependencies{SettingsRepo: repo, CacheTTL: ttl, Clock: clock.Now}), repo, clock
}

func intRef(v int) *int       { return &v }
func strRef(v string) *string { return &v }

func TestGetSettingsDefaultsAndCache(t *testing.T) {
	svc, repo, clock := newCountingSettings(time.Minute)
	ctx := context.Background()

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chat Support", settings.BotName)
	assert.Equal(t, domain.MissedChatTimer{Hours: 0, Minutes: 5, Seconds: 0}, settings.MissedChatTimer)
	assert.True(t, settings.IntroForm.Enabled)

	_, err = svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.loads.Load(), "second read is served from cache")

	clock.Advance(2 * time.Minute)
	_, err = svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.loads.Load(), "expired entry is reloaded")

	threshold, err := svc.MissedChatThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, threshold)
}

func TestGetSettingsWithoutCache(t *testing.T) {
	svc, repo, _ := newCountingSettings(0)
	for i := 0; i < 3; i++ {
		_, err := svc.GetSettings(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), repo.loads.Load())
}

func TestGetSettingsConcurrentReaders(t *testing.T) {
	svc, _, _ := newCountingSettings(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			settings, err := svc.GetSettings(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "Chat Support", settings.BotName)
		}()
	}
	wg.Wait()
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, alice, _ := env.staff(t)

	_, err := env.settings.GetSettings(ctx)
	require.NoError(t, err)

	_, err = env.settings.UpdateSettings(ctx, alice, domain.SettingsPatch{BotName: strRef("Nope")})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = env.settings.UpdateSettings(ctx, nil, domain.SettingsPatch{BotName: strRef("Nope")})
	requireCode(t, err, apperrors.CodeUnauthorized)

	updated, err := env.settings.UpdateSettings(ctx, admin, domain.SettingsPatch{
		BotName:         strRef("Hubly Bot"),
		MissedChatTimer: &domain.MissedChatTimerPatch{Minutes: intRef(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hubly Bot", updated.BotName)
	assert.Equal(t, "#33475B", updated.HeaderColor, "untouched fields survive the merge")
	assert.Equal(t, 10*time.Minute, updated.MissedChatThreshold())

	read, err := env.settings.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hubly Bot", read.BotName, "update invalidates the cache")

	tests := []struct {
		name  string
		patch domain.SettingsPatch
	}{
		{"hours out of range", domain.SettingsPatch{MissedChatTimer: &domain.MissedChatTimerPatch{Hours: intRef(24)}}},
		{"negative seconds", domain.SettingsPatch{MissedChatTimer: &domain.MissedChatTimerPatch{Seconds: intRef(-1)}}},
		{"message too long", domain.SettingsPatch{Message1: strRef("This greeting is definitely longer than fifty characters")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.settings.UpdateSettings(ctx, admin, tc.patch)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}

	reset, err := env.settings.ResetMissedChatTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMissedChatTimer(), reset.MissedChatTimer)
	assert.Equal(t, "Hubly Bot", reset.BotName)

	threshold, err := env.settings.MissedChatThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, threshold)
}

func TestGetSettingsInFlightLoadDoesNotOutliveUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, _, _ := env.staff(t)

	repo := &stallingSettingsRepo{
		SettingsRepository: repository.NewMemorySettingsRepository(),
		entered:            make(chan struct{}),
		release:            make(chan struct{}),
	}
	svc := NewSettingsService(SettingsDependencies{SettingsRepo: repo, CacheTTL: time.Minute, Clock: env.clock.Now})

	staleRead := make(chan time.Duration, 1)
	go func() {
		threshold, err := svc.MissedChatThreshold(ctx)
		assert.NoError(t, err)
		staleRead <- threshold
	}()
	<-repo.entered

	_, err := svc.UpdateSettings(ctx, admin, domain.SettingsPatch{
		MissedChatTimer: &domain.MissedChatTimerPatch{Minutes: intRef(30)},
	})
	require.NoError(t, err)

	threshold, err := svc.MissedChatThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, threshold, "reads after an update do not join the older load")

	close(repo.release)
	assert.Equal(t, 5*time.Minute, <-staleRead)

	threshold, err = svc.MissedChatThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, threshold, "the older load is not cached")
}
