package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

// MemoryRepository is an in-process Repository used for local runs and
// tests. A single mutex serializes spend updates, which gives the same
// read-check-write guarantee as the row lock in Postgres.
type MemoryRepository struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]*models.Campaign
	videos    map[uuid.UUID]models.Video
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates a repository holding copies of the given data
func NewMemoryRepository(campaigns []models.Campaign, videos []models.Video) *MemoryRepository {
	r := &MemoryRepository{
		campaigns: make(map[uuid.UUID]*models.Campaign, len(campaigns)),
		videos:    make(map[uuid.UUID]models.Video, len(videos)),
	}
	for _, c := range campaigns {
		r.PutCampaign(c)
	}
	for _, v := range videos {
		r.PutVideo(v)
	}
	return r
}

// PutCampaign inserts or replaces a campaign
func (r *MemoryRepository) PutCampaign(c models.Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneCampaign(c)
	r.campaigns[c.ID] = &cp
}

// PutVideo inserts or replaces a video
func (r *MemoryRepository) PutVideo(v models.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.Embedding = append(models.Embedding(nil), v.Embedding...)
	r.videos[v.ID] = v
}

// GetCampaign returns a copy of the campaign with ads and rules
func (r *MemoryRepository) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	cp := cloneCampaign(*c)
	return &cp, nil
}

// GetCampaignsByStatus returns copies of all campaigns with the status,
// ordered by id
func (r *MemoryRepository) GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) ([]models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if c.Status == status {
			out = append(out, cloneCampaign(*c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// IncrementSpend implements Repository
func (r *MemoryRepository) IncrementSpend(ctx context.Context, id uuid.UUID, cost decimal.Decimal, at time.Time) (models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return models.Campaign{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok {
		return models.Campaign{}, ErrCampaignNotFound
	}

	spent := c.SpentToday.Add(cost)
	lifetime := c.LifetimeSpent.Add(cost)
	if !c.WithinCeilings(spent, lifetime) {
		return models.Campaign{}, ErrBudgetExceeded
	}

	c.SpentToday = spent
	c.LifetimeSpent = lifetime
	c.UpdatedAt = at
	return cloneCampaign(*c), nil
}

// ResetDailySpend implements Repository
func (r *MemoryRepository) ResetDailySpend(ctx context.Context, at time.Time) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uuid.UUID
	for id, c := range r.campaigns {
		if c.SpentToday.IsZero() {
			continue
		}
		c.SpentToday = decimal.Zero
		c.UpdatedAt = at
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// GetVideo implements Repository
func (r *MemoryRepository) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.videos[id]
	if !ok {
		return nil, ErrVideoNotFound
	}
	v.Embedding = append(models.Embedding(nil), v.Embedding...)
	return &v, nil
}

// ListVideos returns the newest videos first
func (r *MemoryRepository) ListVideos(ctx context.Context, limit int) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		v.Embedding = nil
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RankAds implements Repository with a linear cosine scan
func (r *MemoryRepository) RankAds(ctx context.Context, embedding models.Embedding, k int) ([]models.RankedAd, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ranked []models.RankedAd
	for _, c := range r.campaigns {
		for _, ad := range c.Ads {
			if len(ad.Embedding) == 0 {
				continue
			}
			ranked = append(ranked, models.RankedAd{
				Ad:    ad,
				Score: embedding.CosineSimilarity(ad.Embedding),
			})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Ad.ID.String() < ranked[j].Ad.ID.String()
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	for i := range ranked {
		ranked[i].Ad.Embedding = nil
	}
	return ranked, nil
}

// RankAdsByVideo ranks ads against the video's embedding
func (r *MemoryRepository) RankAdsByVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error) {
	video, err := r.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(video.Embedding) == 0 {
		return nil, ErrVideoNotFound
	}
	return r.RankAds(ctx, video.Embedding, k)
}

// HealthCheck always succeeds
func (r *MemoryRepository) HealthCheck(ctx context.Context) error {
	return nil
}

func cloneCampaign(c models.Campaign) models.Campaign {
	if c.Ads != nil {
		ads := make([]models.Ad, len(c.Ads))
		copy(ads, c.Ads)
		c.Ads = ads
	}
	if c.Rules != nil {
		rules := make([]models.TargetingRule, len(c.Rules))
		copy(rules, c.Rules)
		c.Rules = rules
	}
	return c
}
