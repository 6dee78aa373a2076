package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

const (
	// DefaultTTL bounds how stale a cached campaign can be after a write
	// from outside this service.
	DefaultTTL = 300 * time.Second

	campaignKeyPrefix  = "campaign::"
	activeCampaignsKey = "campaigns::active::all"
)

// CampaignKey returns the cache key of a single campaign
func CampaignKey(id uuid.UUID) string {
	return campaignKeyPrefix + id.String()
}

// ActiveCampaignsKey returns the cache key of the active campaign list
func ActiveCampaignsKey() string {
	return activeCampaignsKey
}

// CampaignReader is the read side of the campaign store. Both methods load
// ads and targeting rules eagerly.
type CampaignReader interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) ([]models.Campaign, error)
}

// CampaignCache is a read-through cache of campaigns in front of a
// CampaignReader. Cache failures are logged and counted, never returned:
// reads fall back to the reader.
type CampaignCache struct {
	store   Store
	repo    CampaignReader
	ttl     time.Duration
	logger  log.Logger
	metrics *metrics.Metrics
}

// NewCampaignCache creates a new campaign cache
func NewCampaignCache(store Store, repo CampaignReader, ttl time.Duration, logger log.Logger, m *metrics.Metrics) *CampaignCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CampaignCache{
		store:   store,
		repo:    repo,
		ttl:     ttl,
		logger:  log.With(logger, "component", "campaign_cache"),
		metrics: m,
	}
}

// GetCampaign returns the campaign with its ads and rules. A missing
// campaign surfaces the reader's not-found error.
func (cc *CampaignCache) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	key := CampaignKey(id)

	var cached models.Campaign
	if cc.load(ctx, key, &cached) {
		return &cached, nil
	}

	campaign, err := cc.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	cc.save(ctx, key, campaign)
	return campaign, nil
}

// GetActiveCampaigns returns every active campaign with ads and rules
func (cc *CampaignCache) GetActiveCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var cached []models.Campaign
	if cc.load(ctx, activeCampaignsKey, &cached) {
		return cached, nil
	}

	campaigns, err := cc.repo.GetCampaignsByStatus(ctx, models.StatusActive)
	if err != nil {
		return nil, err
	}

	cc.save(ctx, activeCampaignsKey, campaigns)
	return campaigns, nil
}

// InvalidateCampaign drops the campaign's entry and the active list in one
// delete.
func (cc *CampaignCache) InvalidateCampaign(ctx context.Context, id uuid.UUID) error {
	return cc.invalidate(ctx, CampaignKey(id), activeCampaignsKey)
}

// InvalidateAll drops the entries of the given campaigns and the active list.
func (cc *CampaignCache) InvalidateAll(ctx context.Context, ids []uuid.UUID) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, CampaignKey(id))
	}
	keys = append(keys, activeCampaignsKey)
	return cc.invalidate(ctx, keys...)
}

func (cc *CampaignCache) invalidate(ctx context.Context, keys ...string) error {
	if err := cc.store.Delete(ctx, keys...); err != nil {
		cc.metrics.RecordCacheOperation("delete", "error")
		return err
	}
	cc.metrics.RecordCacheOperation("delete", "ok")
	return nil
}

// load decodes the cached value into dst and reports whether it was usable
func (cc *CampaignCache) load(ctx context.Context, key string, dst any) bool {
	data, err := cc.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			cc.metrics.RecordCacheOperation("get", "miss")
			return false
		}
		cc.metrics.RecordCacheOperation("get", "error")
		level.Warn(cc.logger).Log("msg", "cache read failed, falling back to store", "key", key, "err", err)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		cc.metrics.RecordCacheOperation("get", "decode_error")
		level.Warn(cc.logger).Log("msg", "discarding undecodable cache entry", "key", key, "err", err)
		return false
	}

	cc.metrics.RecordCacheOperation("get", "hit")
	return true
}

func (cc *CampaignCache) save(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		cc.metrics.RecordCacheOperation("set", "encode_error")
		level.Warn(cc.logger).Log("msg", "failed to encode cache entry", "key", key, "err", err)
		return
	}

	if err := cc.store.Set(ctx, key, data, cc.ttl); err != nil {
		cc.metrics.RecordCacheOperation("set", "error")
		level.Warn(cc.logger).Log("msg", "failed to cache entry", "key", key, "err", err)
		return
	}
	cc.metrics.RecordCacheOperation("set", "ok")
}
