package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
)

// MockInvalidator is a mock implementation of Invalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateCampaign(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvalidator) InvalidateAll(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type failingStore struct {
	err error
}

func (s failingStore) IncrementSpend(ctx context.Context, id uuid.UUID, cost decimal.Decimal, at time.Time) (models.Campaign, error) {
	return models.Campaign{}, s.err
}

func (s failingStore) ResetDailySpend(ctx context.Context, at time.Time) ([]uuid.UUID, error) {
	return nil, s.err
}

func newCampaign(daily, spent string) models.Campaign {
	return models.Campaign{
		ID:          uuid.New(),
		Name:        "ledger test",
		Status:      models.StatusActive,
		CPMBid:      decimal.RequireFromString("2.50"),
		DailyBudget: decimal.RequireFromString(daily),
		SpentToday:  decimal.RequireFromString(spent),
	}
}

func TestCostPerImpression(t *testing.T) {
	assert.True(t, CostPerImpression(decimal.RequireFromString("2.50")).Equal(decimal.RequireFromString("0.0025")))
	assert.True(t, CostPerImpression(decimal.RequireFromString("4.50")).Equal(decimal.RequireFromString("0.0045")))
}

func TestLedger_DeductBudget(t *testing.T) {
	c := newCampaign("100.00", "10.00")
	repo := repository.NewMemoryRepository([]models.Campaign{c}, nil)
	inv := &MockInvalidator{}
	inv.On("InvalidateCampaign", mock.Anything, c.ID).Return(nil).Once()

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	ledger := NewLedger(repo, inv, nil, m, WithClock(func() time.Time { return fixed }))

	require.NoError(t, ledger.DeductBudget(context.Background(), c.ID, c.CPMBid))

	stored, err := repo.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.SpentToday.Equal(decimal.RequireFromString("10.0025")))
	assert.True(t, stored.LifetimeSpent.Equal(decimal.RequireFromString("0.0025")))
	assert.Equal(t, fixed, stored.UpdatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BudgetDeductions.WithLabelValues("committed")))
	inv.AssertExpectations(t)
}

func TestLedger_DeductBudget_FractionalCPMAccumulatesExactly(t *testing.T) {
	c := newCampaign("100.00", "0")
	c.CPMBid = decimal.RequireFromString("2.55")
	repo := repository.NewMemoryRepository([]models.Campaign{c}, nil)
	ledger := NewLedger(repo, nil, nil, nil)

	for i := 0; i < 1000; i++ {
		require.NoError(t, ledger.DeductBudget(context.Background(), c.ID, c.CPMBid))
	}

	stored, err := repo.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.SpentToday.Equal(decimal.RequireFromString("2.55")), "spent_today = %s", stored.SpentToday)
	assert.True(t, stored.SpentToday.Equal(stored.SpentToday.Truncate(models.SpendScale)))
}

func TestLedger_DeductBudget_CostBeyondSpendScaleRefused(t *testing.T) {
	c := newCampaign("100.00", "1.00")
	repo := repository.NewMemoryRepository([]models.Campaign{c}, nil)
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	ledger := NewLedger(repo, nil, nil, m)

	err := ledger.DeductBudget(context.Background(), c.ID, decimal.RequireFromString("2.55001"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrBudgetExceeded)

	stored, err := repo.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.SpentToday.Equal(decimal.RequireFromString("1.00")), "nothing persisted")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BudgetDeductions.WithLabelValues("error")))
}

func TestLedger_DeductBudget_OverspendRefused(t *testing.T) {
	c := newCampaign("100.00", "99.999")
	repo := repository.NewMemoryRepository([]models.Campaign{c}, nil)
	inv := &MockInvalidator{}
	ledger := NewLedger(repo, inv, nil, nil)

	err := ledger.DeductBudget(context.Background(), c.ID, decimal.RequireFromString("2.50"))
	assert.ErrorIs(t, err, models.ErrBudgetExceeded)

	stored, err := repo.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.SpentToday.Equal(decimal.RequireFromString("99.999")), "nothing persisted")
	inv.AssertNotCalled(t, "InvalidateCampaign", mock.Anything, mock.Anything)
}

func TestLedger_DeductBudget_CampaignGone(t *testing.T) {
	ledger := NewLedger(repository.NewMemoryRepository(nil, nil), nil, nil, nil)

	err := ledger.DeductBudget(context.Background(), uuid.New(), decimal.RequireFromString("1.00"))
	assert.ErrorIs(t, err, models.ErrBudgetExceeded)
}

func TestLedger_DeductBudget_StoreFailure(t *testing.T) {
	ledger := NewLedger(failingStore{err: errors.New("connection refused")}, nil, nil, nil)

	err := ledger.DeductBudget(context.Background(), uuid.New(), decimal.RequireFromString("1.00"))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, models.ErrBudgetExceeded)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLedger_DeductBudget_InvalidationFailureIgnored(t *testing.T) {
	c := newCampaign("100.00", "0")
	repo := repository.NewMemoryRepository([]models.Campaign{c}, nil)
	inv := &MockInvalidator{}
	inv.On("InvalidateCampaign", mock.Anything, c.ID).Return(errors.New("redis down"))

	ledger := NewLedger(repo, inv, nil, nil)
	assert.NoError(t, ledger.DeductBudget(context.Background(), c.ID, c.CPMBid))
}

func TestLedger_DeductBudget_ConcurrentNeverOverspends(t *testing.T) {
	// two impressions of headroom at 2.50 CPM
	c := newCampaign("100.00", "99.995")
	repo := repository.NewMemoryRepository([]models.Campaign{c}, nil)
	ledger := NewLedger(repo, nil, nil, nil)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.DeductBudget(context.Background(), c.ID, c.CPMBid)
		}()
	}
	wg.Wait()
	close(results)

	committed := 0
	for err := range results {
		if err == nil {
			committed++
			continue
		}
		assert.ErrorIs(t, err, models.ErrBudgetExceeded)
	}
	assert.Equal(t, 2, committed)

	stored, err := repo.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.SpentToday.Equal(c.DailyBudget))
}

func TestLedger_ResetDailyBudget(t *testing.T) {
	spent := newCampaign("50.00", "20.00")
	idle := newCampaign("50.00", "0")
	repo := repository.NewMemoryRepository([]models.Campaign{spent, idle}, nil)
	inv := &MockInvalidator{}
	inv.On("InvalidateAll", mock.Anything, []uuid.UUID{spent.ID}).Return(nil).Once()
	inv.On("InvalidateAll", mock.Anything, []uuid.UUID(nil)).Return(nil).Once()

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	ledger := NewLedger(repo, inv, nil, m)

	n, err := ledger.ResetDailyBudget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = ledger.ResetDailyBudget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BudgetResets))
	inv.AssertExpectations(t)
}

func TestLedger_ResetDailyBudget_StoreFailure(t *testing.T) {
	ledger := NewLedger(failingStore{err: errors.New("timeout")}, nil, nil, nil)

	_, err := ledger.ResetDailyBudget(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
