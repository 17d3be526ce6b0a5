package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/cache"
)

type dashboardRepository interface {
	Summary(ctx context.Context, dayStart, dayEnd, now time.Time) (*models.DashboardSummary, error)
}

// DashboardService builds the admin landing page counters.
type DashboardService struct {
	repo     dashboardRepository
	cache    *CacheService
	ttl      time.Duration
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(repo dashboardRepository, cacheSvc *CacheService, ttl time.Duration, loc *time.Location, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{
		repo:     repo,
		cache:    cacheSvc,
		ttl:      ttl,
		location: loc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns counters for "today" in the configured location. Results
// are cached for a short TTL.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	now := s.now()
	local := now.In(s.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	key := cache.Key("dashboard", "summary", dayStart.Format(dateLayout))
	summary, err := cached(ctx, s.cache, key, s.ttl, func() (*models.DashboardSummary, error) {
		summary, err := s.repo.Summary(ctx, dayStart.UTC(), dayEnd.UTC(), now)
		if err != nil {
			return nil, err
		}
		summary.GeneratedAt = now
		return summary, nil
	})
	if err != nil {
		return nil, internalError(err, "failed to build dashboard summary")
	}
	return summary, nil
}
