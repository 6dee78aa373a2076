package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prajwalbharadwajbm/bidengine/internal/auction"
	"github.com/prajwalbharadwajbm/bidengine/internal/budget"
	"github.com/prajwalbharadwajbm/bidengine/internal/cache"
	"github.com/prajwalbharadwajbm/bidengine/internal/experiment"
	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
)

// MockSelector is a mock implementation of Selector
type MockSelector struct {
	mock.Mock
}

func (m *MockSelector) Select(ctx context.Context, req models.BidRequest) (*auction.Selection, error) {
	args := m.Called(ctx, req)
	sel, _ := args.Get(0).(*auction.Selection)
	return sel, args.Error(1)
}

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) DeductBudget(ctx context.Context, campaignID uuid.UUID, cpm decimal.Decimal) error {
	args := m.Called(ctx, campaignID, cpm)
	return args.Error(0)
}

func validRequest() models.BidRequest {
	return models.BidRequest{UserID: "user-1", PlacementID: "sidebar"}
}

func testSelection() *auction.Selection {
	campaignID := uuid.New()
	return &auction.Selection{
		CampaignID: campaignID,
		Ad: models.Ad{
			ID:          uuid.New(),
			CampaignID:  campaignID,
			Title:       "Buy now",
			ImageURL:    "https://cdn.example.com/buy.png",
			RedirectURL: "https://example.com/buy",
		},
		BidPrice:   decimal.RequireFromString("2.00"),
		Confidence: 0.95,
		Strategy:   auction.StrategyHighestBid,
		Variant:    "A",
	}
}

func TestNewBidService(t *testing.T) {
	svc := NewBidService(&MockSelector{}, &MockLedger{}, repository.NewMemoryRepository(nil, nil), nil, nil)

	assert.NotNil(t, svc)
	assert.IsType(t, &bidService{}, svc)
}

func TestBidService_EvaluateBid_InvalidRequest(t *testing.T) {
	selector := &MockSelector{}
	svc := NewBidService(selector, &MockLedger{}, nil, nil, nil)

	tests := []struct {
		name    string
		request models.BidRequest
		field   string
	}{
		{"missing user", models.BidRequest{PlacementID: "p"}, "userId"},
		{"blank user", models.BidRequest{UserID: "  ", PlacementID: "p"}, "userId"},
		{"missing placement", models.BidRequest{UserID: "u"}, "placementId"},
		{"all missing", models.BidRequest{}, "userId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.EvaluateBid(context.Background(), tt.request)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	selector.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
}

func TestBidService_EvaluateBid_NoBid(t *testing.T) {
	selector := &MockSelector{}
	ledger := &MockLedger{}
	selector.On("Select", mock.Anything, validRequest()).Return(nil, nil)

	svc := NewBidService(selector, ledger, nil, nil, nil)
	resp, err := svc.EvaluateBid(context.Background(), validRequest())
	assert.NoError(t, err)
	assert.Nil(t, resp)

	selector.AssertExpectations(t)
	ledger.AssertNotCalled(t, "DeductBudget", mock.Anything, mock.Anything, mock.Anything)
}

func TestBidService_EvaluateBid_Committed(t *testing.T) {
	sel := testSelection()
	selector := &MockSelector{}
	ledger := &MockLedger{}
	selector.On("Select", mock.Anything, validRequest()).Return(sel, nil)
	ledger.On("DeductBudget", mock.Anything, sel.CampaignID, sel.BidPrice).Return(nil)

	svc := NewBidService(selector, ledger, nil, nil, nil)
	resp, err := svc.EvaluateBid(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, sel.CampaignID, resp.CampaignID)
	assert.Equal(t, sel.Ad.ID, resp.AdID)
	assert.Equal(t, "Buy now", resp.AdContent.Title)
	assert.Equal(t, "2.00", resp.BidPrice.StringFixed(2))

	selector.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestBidService_EvaluateBid_LedgerErrors(t *testing.T) {
	tests := []struct {
		name      string
		ledgerErr error
		want      error
	}{
		{"overspend", models.ErrBudgetExceeded, models.ErrBudgetExceeded},
		{"store down", fmt.Errorf("deduct: %w", models.ErrStoreUnavailable), models.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := testSelection()
			selector := &MockSelector{}
			ledger := &MockLedger{}
			selector.On("Select", mock.Anything, mock.Anything).Return(sel, nil)
			ledger.On("DeductBudget", mock.Anything, sel.CampaignID, sel.BidPrice).Return(tt.ledgerErr)

			svc := NewBidService(selector, ledger, nil, nil, nil)
			resp, err := svc.EvaluateBid(context.Background(), validRequest())
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBidService_EvaluateBid_SelectorError(t *testing.T) {
	selector := &MockSelector{}
	selector.On("Select", mock.Anything, mock.Anything).Return(nil, errors.New("database error"))

	svc := NewBidService(selector, &MockLedger{}, nil, nil, nil)
	_, err := svc.EvaluateBid(context.Background(), validRequest())
	assert.ErrorContains(t, err, "database error")
	assert.NotErrorIs(t, err, models.ErrBudgetExceeded)
}

func TestBidService_RecordClick(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	svc := NewBidService(&MockSelector{}, &MockLedger{}, nil, nil, m)

	campaignID, adID := uuid.New(), uuid.New()
	assert.NoError(t, svc.RecordClick(context.Background(), models.ClickEvent{CampaignID: campaignID.String(), AdID: adID.String(), UserID: "u"}))
	assert.NoError(t, svc.RecordClick(context.Background(), models.ClickEvent{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdClicksTotal.WithLabelValues(campaignID.String(), adID.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdClicksTotal.WithLabelValues("unknown", "unknown")))
}

func TestBidService_RecordClick_JunkIDsShareOneSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	svc := NewBidService(&MockSelector{}, &MockLedger{}, nil, nil, m)

	for i := 0; i < 200; i++ {
		click := models.ClickEvent{CampaignID: fmt.Sprintf("junk-%d", i), AdID: fmt.Sprintf("ad-%d", i)}
		require.NoError(t, svc.RecordClick(context.Background(), click))
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.AdClicksTotal))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.AdClicksTotal.WithLabelValues(models.UnknownLabel, models.UnknownLabel)))
}

func TestBidService_Catalog(t *testing.T) {
	svc := NewBidService(&MockSelector{}, &MockLedger{}, repository.NewSampleRepository(), nil, nil)
	ctx := context.Background()

	_, err := svc.SearchAds(ctx, nil, 5)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	ranked, err := svc.SearchAds(ctx, models.Embedding{0.9, 0.1, 0, 0.1}, 0)
	require.NoError(t, err)
	assert.Len(t, ranked, 1, "k is clamped to at least one")

	ranked, err = svc.SimilarToVideo(ctx, repository.SampleRecipeVideoID, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, repository.SampleCookingCampaignID, ranked[0].Ad.CampaignID)

	_, err = svc.SimilarToVideo(ctx, uuid.New(), 2)
	assert.ErrorIs(t, err, models.ErrVideoNotFound)

	videos, err := svc.ListVideos(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, videos, 2)

	_, err = svc.GetVideo(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrVideoNotFound)
}

func TestClampK(t *testing.T) {
	assert.Equal(t, 1, ClampK(-3))
	assert.Equal(t, 7, ClampK(7))
	assert.Equal(t, MaxRankedAds, ClampK(500))
}

// TestBidService_Pipeline runs the real selector, cache and ledger against
// the in-memory store.
func TestBidService_Pipeline(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSampleRepository()

	store, err := cache.NewHybridStore(cache.CacheConfig{EnableMemory: true, MemoryCacheSize: 100})
	require.NoError(t, err)
	defer store.Close()
	campaigns := cache.NewCampaignCache(store, repo, cache.DefaultTTL, nil, nil)

	assigner, err := experiment.NewHashAssigner(experiment.BidSelectorExperiment(100))
	require.NoError(t, err)

	selector := auction.NewSelector(campaigns, repo, assigner)
	ledger := budget.NewLedger(repo, campaigns, nil, nil)
	svc := NewBidService(selector, ledger, repo, nil, nil)

	before, err := campaigns.GetCampaign(ctx, repository.SampleRunningCampaignID)
	require.NoError(t, err)

	resp, err := svc.EvaluateBid(ctx, models.BidRequest{UserID: "u-7", PlacementID: "p", CountryCode: "us"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, repository.SampleRunningCampaignID, resp.CampaignID, "highest CPM that targets US")
	assert.Equal(t, string(auction.StrategyHighestBid), resp.Strategy)

	// the deduction invalidated the cached copy
	after, err := campaigns.GetCampaign(ctx, repository.SampleRunningCampaignID)
	require.NoError(t, err)
	assert.True(t, after.SpentToday.Equal(before.SpentToday.Add(decimal.RequireFromString("0.0045"))))

	video := repository.SampleRecipeVideoID
	resp, err = svc.EvaluateBid(ctx, models.BidRequest{UserID: "u-7", PlacementID: "p", DeviceType: "Mobile", VideoID: &video})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, repository.SampleCookingCampaignID, resp.CampaignID)
	assert.Equal(t, string(auction.StrategySemantic), resp.Strategy)

	resp, err = svc.EvaluateBid(ctx, models.BidRequest{UserID: "u-7", PlacementID: "p", CountryCode: "FR"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, repository.SampleGamingCampaignID, resp.CampaignID, "only the untargeted campaign is left")
}
