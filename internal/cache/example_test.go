package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prajwalbharadwajbm/bidengine/internal/cache"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

type staticReader struct {
	campaign models.Campaign
}

func (r staticReader) GetCampaign(_ context.Context, _ uuid.UUID) (*models.Campaign, error) {
	c := r.campaign
	return &c, nil
}

func (r staticReader) GetCampaignsByStatus(_ context.Context, _ models.CampaignStatus) ([]models.Campaign, error) {
	return []models.Campaign{r.campaign}, nil
}

// Layering a campaign cache over a store and a reader. Production wiring uses
// a Redis-backed HybridStore built from config.GetCacheConfig().
func ExampleCampaignCache() {
	store, err := cache.NewHybridStore(cache.CacheConfig{
		DefaultTTL:      5 * time.Minute,
		MemoryCacheSize: 1000,
		EnableMemory:    true,
	})
	if err != nil {
		fmt.Println("cache:", err)
		return
	}
	defer store.Close()

	id := uuid.MustParse("0d7c5d3e-52cf-4a8f-9b2e-6a4b1f8a9c01")
	reader := staticReader{campaign: models.Campaign{ID: id, Name: "spring launch", Status: models.StatusActive}}
	campaigns := cache.NewCampaignCache(store, reader, cache.DefaultTTL, nil, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := campaigns.GetCampaign(ctx, id); err != nil {
			fmt.Println("get:", err)
			return
		}
	}

	if err := campaigns.InvalidateCampaign(ctx, id); err != nil {
		fmt.Println("invalidate:", err)
		return
	}

	stats := store.Stats()
	fmt.Printf("hits=%d misses=%d\n", stats.Hits, stats.Misses)
	// Output: hits=2 misses=1
}
