package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/auction"
	reqcontext "github.com/prajwalbharadwajbm/bidengine/internal/context"
	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
)

const (
	// MaxRankedAds caps k on the search endpoints
	MaxRankedAds = 50
)

// BidService defines the interface for the bid engine
type BidService interface {
	// EvaluateBid picks a winner for the request and charges its campaign.
	// A nil response with a nil error means no bid.
	EvaluateBid(ctx context.Context, req models.BidRequest) (*models.BidResponse, error)

	// RecordClick records click telemetry. It never fails the caller.
	RecordClick(ctx context.Context, click models.ClickEvent) error

	SearchAds(ctx context.Context, embedding models.Embedding, k int) ([]models.RankedAd, error)
	SimilarToVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error)
	ListVideos(ctx context.Context, limit int) ([]models.Video, error)
	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
}

// Selector picks a winning campaign and ad
type Selector interface {
	Select(ctx context.Context, req models.BidRequest) (*auction.Selection, error)
}

// Ledger charges campaigns for impressions
type Ledger interface {
	DeductBudget(ctx context.Context, campaignID uuid.UUID, cpm decimal.Decimal) error
}

// Catalog is the read-only ad and video surface of the store
type Catalog interface {
	RankAds(ctx context.Context, embedding models.Embedding, k int) ([]models.RankedAd, error)
	RankAdsByVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error)
	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	ListVideos(ctx context.Context, limit int) ([]models.Video, error)
}

// bidService is the bid evaluation pipeline
type bidService struct {
	selector Selector
	ledger   Ledger
	catalog  Catalog
	logger   log.Logger
	metrics  *metrics.Metrics
}

// NewBidService creates a new bid service
func NewBidService(selector Selector, ledger Ledger, catalog Catalog, logger log.Logger, m *metrics.Metrics) BidService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &bidService{
		selector: selector,
		ledger:   ledger,
		catalog:  catalog,
		logger:   log.With(logger, "component", "bid_service"),
		metrics:  m,
	}
}

// EvaluateBid implements BidService
func (s *bidService) EvaluateBid(ctx context.Context, req models.BidRequest) (*models.BidResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = reqcontext.WithBidder(ctx, req.UserID, req.PlacementID)

	selection, err := s.selector.Select(ctx, req)
	if err != nil {
		level.Error(s.logger).Log(
			"msg", "bid selection failed",
			"request_id", reqcontext.GetRequestID(ctx),
			"user_id", req.UserID,
			"placement_id", req.PlacementID,
			"err", err,
		)
		return nil, fmt.Errorf("select bid: %w", err)
	}
	if selection == nil {
		level.Info(s.logger).Log(
			"msg", "no eligible bid",
			"request_id", reqcontext.GetRequestID(ctx),
			"user_id", req.UserID,
			"placement_id", req.PlacementID,
		)
		return nil, nil
	}

	if err := s.ledger.DeductBudget(ctx, selection.CampaignID, selection.BidPrice); err != nil {
		logger := level.Error(s.logger)
		if errors.Is(err, models.ErrBudgetExceeded) {
			logger = level.Warn(s.logger)
		}
		logger.Log(
			"msg", "budget deduction failed",
			"request_id", reqcontext.GetRequestID(ctx),
			"campaign_id", selection.CampaignID,
			"ad_id", selection.Ad.ID,
			"bid_price", selection.BidPrice,
			"user_id", req.UserID,
			"placement_id", req.PlacementID,
			"err", err,
		)
		return nil, err
	}

	resp := selection.Response()
	return &resp, nil
}

// RecordClick implements BidService
func (s *bidService) RecordClick(ctx context.Context, click models.ClickEvent) error {
	campaign, ad := click.Labels()
	s.metrics.RecordClick(campaign, ad)
	level.Info(s.logger).Log(
		"msg", "ad clicked",
		"request_id", reqcontext.GetRequestID(ctx),
		"campaign_id", campaign,
		"ad_id", ad,
		"user_id", click.UserID,
	)
	return nil
}

// SearchAds implements BidService
func (s *bidService) SearchAds(ctx context.Context, embedding models.Embedding, k int) ([]models.RankedAd, error) {
	if len(embedding) == 0 {
		return nil, &models.ValidationError{Field: "embedding"}
	}
	ranked, err := s.catalog.RankAds(ctx, embedding, ClampK(k))
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return ranked, nil
}

// SimilarToVideo implements BidService
func (s *bidService) SimilarToVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error) {
	if videoID == uuid.Nil {
		return nil, &models.ValidationError{Field: "videoId"}
	}
	ranked, err := s.catalog.RankAdsByVideo(ctx, videoID, ClampK(k))
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return nil, models.ErrVideoNotFound
		}
		return nil, fmt.Errorf("similar to video: %w", err)
	}
	return ranked, nil
}

// ListVideos implements BidService
func (s *bidService) ListVideos(ctx context.Context, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = 3
	}
	if limit > MaxRankedAds {
		limit = MaxRankedAds
	}
	videos, err := s.catalog.ListVideos(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// GetVideo implements BidService
func (s *bidService) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	video, err := s.catalog.GetVideo(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return nil, models.ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// ClampK bounds k to [1, MaxRankedAds]
func ClampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxRankedAds {
		return MaxRankedAds
	}
	return k
}
