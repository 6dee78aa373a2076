package auction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/experiment"
	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
)

const (
	// DefaultTopK is how many ranked ads the semantic path considers.
	DefaultTopK = 5

	// auctionConfidence is reported for CPM auction wins
	auctionConfidence = 0.95
)

// CampaignSource reads campaigns, normally through the campaign cache
type CampaignSource interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetActiveCampaigns(ctx context.Context) ([]models.Campaign, error)
}

// AdRanker ranks ads by similarity to a video's embedding. It returns
// repository.ErrVideoNotFound when the video is unknown or has no embedding.
type AdRanker interface {
	RankAdsByVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error)
}

// Selection is the winning campaign and ad of one request
type Selection struct {
	CampaignID uuid.UUID
	Ad         models.Ad
	BidPrice   decimal.Decimal
	Confidence float64
	Strategy   Strategy
	Variant    string
}

// Response converts the selection into the bid response
func (s *Selection) Response() models.BidResponse {
	return models.BidResponse{
		CampaignID: s.CampaignID,
		AdID:       s.Ad.ID,
		AdContent:  s.Ad.Content(),
		BidPrice:   s.BidPrice,
		Confidence: s.Confidence,
		Strategy:   string(s.Strategy),
	}
}

// Selector picks the winning campaign and ad for a bid request
type Selector struct {
	campaigns CampaignSource
	ranker    AdRanker
	assigner  experiment.Assigner
	matcher   *models.TargetingMatcher
	topK      int
	intN      func(n int) int
	logger    log.Logger
	metrics   *metrics.Metrics
}

// Option configures a Selector
type Option func(*Selector)

// WithIntN replaces the random source used to pick campaigns and ads.
// intN must return a value in [0,n).
func WithIntN(intN func(n int) int) Option {
	return func(s *Selector) { s.intN = intN }
}

// WithMatcher replaces the default targeting matcher
func WithMatcher(m *models.TargetingMatcher) Option {
	return func(s *Selector) { s.matcher = m }
}

// WithTopK sets how many ranked ads the semantic path considers
func WithTopK(k int) Option {
	return func(s *Selector) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(s *Selector) { s.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Selector) { s.metrics = m }
}

// NewSelector creates a selector. ranker may be nil, in which case
// requests with a video run the CPM auction.
func NewSelector(campaigns CampaignSource, ranker AdRanker, assigner experiment.Assigner, opts ...Option) *Selector {
	s := &Selector{
		campaigns: campaigns,
		ranker:    ranker,
		assigner:  assigner,
		matcher:   models.DefaultTargetingMatcher(),
		topK:      DefaultTopK,
		intN:      rand.IntN,
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.With(s.logger, "component", "auction")
	return s
}

// Select returns the winner for req, or nil with a nil error when nothing
// is eligible.
func (s *Selector) Select(ctx context.Context, req models.BidRequest) (*Selection, error) {
	variant := s.assigner.GetVariant(experiment.BidSelector, req.UserID)
	strategy := ChooseStrategy(req, variant)

	if strategy == StrategySemantic && s.ranker != nil {
		sel, err := s.semantic(ctx, req)
		switch {
		case err == nil:
			if sel != nil {
				sel.Variant = variant
			}
			return sel, nil
		case errors.Is(err, repository.ErrVideoNotFound):
			level.Debug(s.logger).Log("msg", "video has no embedding, running auction", "video_id", req.VideoID)
		default:
			return nil, err
		}
	}

	sel, err := s.auction(ctx, req, auctionStrategy(variant))
	if err != nil || sel == nil {
		return nil, err
	}
	sel.Variant = variant
	return sel, nil
}

// semantic walks the ranked ads best first and returns the first one whose
// campaign is eligible for the request
func (s *Selector) semantic(ctx context.Context, req models.BidRequest) (*Selection, error) {
	ranked, err := s.ranker.RankAdsByVideo(ctx, *req.VideoID, s.topK)
	if err != nil {
		return nil, fmt.Errorf("rank ads for video %s: %w", req.VideoID, err)
	}

	for _, candidate := range ranked {
		campaign, err := s.campaigns.GetCampaign(ctx, candidate.Ad.CampaignID)
		if err != nil {
			if errors.Is(err, repository.ErrCampaignNotFound) {
				continue
			}
			return nil, fmt.Errorf("load campaign %s: %w", candidate.Ad.CampaignID, err)
		}
		if !campaign.IsEligible(req, s.matcher) {
			continue
		}
		return &Selection{
			CampaignID: campaign.ID,
			Ad:         candidate.Ad,
			BidPrice:   campaign.CPMBid,
			Confidence: clamp01(candidate.Score),
			Strategy:   StrategySemantic,
		}, nil
	}
	return nil, nil
}

func (s *Selector) auction(ctx context.Context, req models.BidRequest, strategy Strategy) (*Selection, error) {
	active, err := s.campaigns.GetActiveCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active campaigns: %w", err)
	}

	eligible := make([]*models.Campaign, 0, len(active))
	for i := range active {
		if active[i].IsEligible(req, s.matcher) {
			eligible = append(eligible, &active[i])
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	var winner *models.Campaign
	switch strategy {
	case StrategyRandomEligible:
		winner = eligible[s.intN(len(eligible))]
	default:
		winner = HighestBid(eligible)
	}

	if len(winner.Ads) == 0 {
		s.metrics.RecordMissedOpportunity(winner.ID.String())
		level.Warn(s.logger).Log(
			"msg", "winning campaign has no ads",
			"campaign_id", winner.ID,
			"strategy", strategy,
			"placement_id", req.PlacementID,
		)
		return nil, nil
	}

	return &Selection{
		CampaignID: winner.ID,
		Ad:         winner.Ads[s.intN(len(winner.Ads))],
		BidPrice:   winner.CPMBid,
		Confidence: auctionConfidence,
		Strategy:   strategy,
	}, nil
}

// HighestBid returns the campaign with the largest CPM. Equal bids go to
// the campaign with the lowest id in byte order. Returns nil for an empty
// slice.
func HighestBid(campaigns []*models.Campaign) *models.Campaign {
	var best *models.Campaign
	for _, c := range campaigns {
		if best == nil {
			best = c
			continue
		}
		switch c.CPMBid.Cmp(best.CPMBid) {
		case 1:
			best = c
		case 0:
			if bytes.Compare(c.ID[:], best.ID[:]) < 0 {
				best = c
			}
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
