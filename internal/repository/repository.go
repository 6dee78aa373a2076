package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrBudgetExceeded means the increment would cross a spend ceiling.
	// Nothing was written.
	ErrBudgetExceeded = errors.New("spend would exceed budget")

	// ErrVideoNotFound is also returned for videos without an embedding
	ErrVideoNotFound = errors.New("video not found")
)

// Repository is the full storage surface of the bid engine
type Repository interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) ([]models.Campaign, error)

	// IncrementSpend adds cost to both spend counters of the campaign if
	// neither ceiling would be crossed, and returns the updated campaign.
	// Concurrent increments of one campaign are serialized.
	IncrementSpend(ctx context.Context, id uuid.UUID, cost decimal.Decimal, at time.Time) (models.Campaign, error)

	// ResetDailySpend zeroes spent_today everywhere and returns the ids of
	// the campaigns that changed.
	ResetDailySpend(ctx context.Context, at time.Time) ([]uuid.UUID, error)

	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	ListVideos(ctx context.Context, limit int) ([]models.Video, error)

	// RankAds orders ads by cosine similarity to the embedding, best first
	RankAds(ctx context.Context, embedding models.Embedding, k int) ([]models.RankedAd, error)
	RankAdsByVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error)

	HealthCheck(ctx context.Context) error
}
