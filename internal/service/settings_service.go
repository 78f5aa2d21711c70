package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SettingsCacheKey is the Redis key holding the shared settings copy.
const SettingsCacheKey = "helpdesk:settings"

const settingsFlightKey = "settings"

// SettingsService serves the settings singleton through a short-lived local
// cache backed by an optional shared Redis copy.
type SettingsService struct {
	repo   repository.SettingsRepository
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	clock  func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	cached   *domain.Settings
	cachedAt time.Time
	// generation is bumped by every invalidation; loads that started under an
	// older generation must not repopulate either cache.
	generation uint64
}

// SettingsDependencies wires the settings service.
type SettingsDependencies struct {
	SettingsRepo repository.SettingsRepository
	// Redis is optional; nil keeps the cache process-local.
	Redis    *redis.Client
	CacheTTL time.Duration
	Logger   *zap.Logger
	Clock    func() time.Time
}

// NewSettingsService builds the service. A zero CacheTTL disables caching.
func NewSettingsService(deps SettingsDependencies) *SettingsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &SettingsService{
		repo:   deps.SettingsRepo,
		redis:  deps.Redis,
		ttl:    deps.CacheTTL,
		logger: logger,
		clock:  clock,
	}
}

// GetSettings returns the current settings, creating the defaults on first use.
func (s *SettingsService) GetSettings(ctx context.Context) (domain.Settings, error) {
	if cached, ok := s.fromLocal(); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(settingsFlightKey, func() (any, error) {
		generation := s.currentGeneration()
		if cached, ok := s.fromRedis(ctx); ok {
			s.storeLocal(generation, cached)
			return cached, nil
		}
		loaded, err := s.repo.GetOrCreate(ctx, domain.DefaultSettings(s.clock()))
		if err != nil {
			return domain.Settings{}, err
		}
		if s.storeLocal(generation, *loaded) {
			s.storeRedis(ctx, generation, *loaded)
		}
		return *loaded, nil
	})
	if err != nil {
		return domain.Settings{}, apperrors.NewInternalError(err)
	}
	return v.(domain.Settings), nil
}

// UpdateSettings merges patch into the stored settings. Admin only.
func (s *SettingsService) UpdateSettings(ctx context.Context, actor *domain.Identity, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Settings{}, err
	}
	current, err := s.repo.GetOrCreate(ctx, domain.DefaultSettings(s.clock()))
	if err != nil {
		return domain.Settings{}, apperrors.NewInternalError(err)
	}
	merged, err := current.Merge(patch, s.clock())
	if err != nil {
		return domain.Settings{}, apperrors.NewValidationError(err.Error(), nil)
	}
	if err := s.save(ctx, merged); err != nil {
		return domain.Settings{}, err
	}
	s.logger.Info("settings updated", zap.String("by", actor.ID))
	return merged, nil
}

// ResetMissedChatTimer restores the default 0h5m0s threshold.
func (s *SettingsService) ResetMissedChatTimer(ctx context.Context) (domain.Settings, error) {
	current, err := s.repo.GetOrCreate(ctx, domain.DefaultSettings(s.clock()))
	if err != nil {
		return domain.Settings{}, apperrors.NewInternalError(err)
	}
	next := *current
	next.MissedChatTimer = domain.DefaultMissedChatTimer()
	next.UpdatedAt = s.clock()
	if err := s.save(ctx, next); err != nil {
		return domain.Settings{}, err
	}
	return next, nil
}

// MissedChatThreshold returns the configured missed chat threshold.
func (s *SettingsService) MissedChatThreshold(ctx context.Context) (time.Duration, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.MissedChatThreshold(), nil
}

func (s *SettingsService) save(ctx context.Context, settings domain.Settings) error {
	if err := s.repo.Save(ctx, settings); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *SettingsService) invalidate(ctx context.Context) {
	s.mu.Lock()
	s.cached = nil
	s.generation++
	s.mu.Unlock()
	s.group.Forget(settingsFlightKey)
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, SettingsCacheKey).Err(); err != nil {
		s.logger.Warn("settings cache invalidation failed", zap.Error(err))
	}
}

func (s *SettingsService) fromLocal() (domain.Settings, bool) {
	if s.ttl <= 0 {
		return domain.Settings{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil || s.clock().Sub(s.cachedAt) >= s.ttl {
		return domain.Settings{}, false
	}
	return *s.cached, true
}

func (s *SettingsService) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// storeLocal caches settings unless an invalidation happened since generation
// was read. It reports whether the entry was stored.
func (s *SettingsService) storeLocal(generation uint64, settings domain.Settings) bool {
	if s.ttl <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return false
	}
	s.cached = &settings
	s.cachedAt = s.clock()
	return true
}

func (s *SettingsService) fromRedis(ctx context.Context) (domain.Settings, bool) {
	if s.redis == nil || s.ttl <= 0 {
		return domain.Settings{}, false
	}
	raw, err := s.redis.Get(ctx, SettingsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read failed", zap.Error(err))
		}
		return domain.Settings{}, false
	}
	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("settings cache entry is corrupt", zap.Error(err))
		return domain.Settings{}, false
	}
	return settings, true
}

func (s *SettingsService) storeRedis(ctx context.Context, generation uint64, settings domain.Settings) {
	if s.redis == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, SettingsCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("settings cache write failed", zap.Error(err))
		return
	}
	// An update that landed during the write may have deleted the key first.
	if s.currentGeneration() != generation {
		if err := s.redis.Del(ctx, SettingsCacheKey).Err(); err != nil {
			s.logger.Warn("settings cache invalidation failed", zap.Error(err))
		}
	}
}
