package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/medverify-api/internal/models"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
)

const recentActivityKey = "notifier:recent_activity"

// ActivityRepository caches the most recent verification snapshot. Writes
// are best-effort: a cache failure never affects the verification request
// that produced it.
type ActivityRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewActivityRepository constructs an activity cache.
func NewActivityRepository(client *redis.Client, logger *zap.Logger) *ActivityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRepository{client: client, logger: logger, ttl: 24 * time.Hour}
}

// SetLatest records the latest verification snapshot.
func (r *ActivityRepository) SetLatest(ctx context.Context, activity *models.RecentActivity) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal recent activity: %w", err)
	}
	if err := r.client.Set(ctx, recentActivityKey, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set recent activity: %w", err)
	}
	return nil
}

// Latest returns the cached snapshot or ErrCacheMiss.
func (r *ActivityRepository) Latest(ctx context.Context) (*models.RecentActivity, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, recentActivityKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get recent activity: %w", err)
	}

	var activity models.RecentActivity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return nil, fmt.Errorf("unmarshal recent activity: %w", err)
	}
	return &activity, nil
}
