package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
)

var impressionsPerMille = decimal.NewFromInt(1000)

// SpendStore persists spend. IncrementSpend must serialize concurrent
// increments of one campaign and write nothing when it refuses.
type SpendStore interface {
	IncrementSpend(ctx context.Context, id uuid.UUID, cost decimal.Decimal, at time.Time) (models.Campaign, error)
	ResetDailySpend(ctx context.Context, at time.Time) ([]uuid.UUID, error)
}

// Invalidator drops cached copies of campaigns after their spend changed
type Invalidator interface {
	InvalidateCampaign(ctx context.Context, id uuid.UUID) error
	InvalidateAll(ctx context.Context, ids []uuid.UUID) error
}

// Ledger charges campaigns for impressions and resets daily spend
type Ledger struct {
	store   SpendStore
	cache   Invalidator
	now     func() time.Time
	logger  log.Logger
	metrics *metrics.Metrics
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the time source used for updated_at
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger. cache may be nil when nothing is cached.
func NewLedger(store SpendStore, cache Invalidator, logger log.Logger, m *metrics.Metrics, opts ...Option) *Ledger {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	l := &Ledger{
		store:   store,
		cache:   cache,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log.With(logger, "component", "budget_ledger"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CostPerImpression converts a CPM bid into the price of one impression
func CostPerImpression(cpm decimal.Decimal) decimal.Decimal {
	return cpm.Div(impressionsPerMille)
}

// DeductBudget charges one impression at cpm to the campaign. It returns
// models.ErrBudgetExceeded when either ceiling would be crossed or the
// campaign no longer exists, and an error wrapping models.ErrStoreUnavailable
// for any other store failure. A cost the spend columns cannot hold exactly
// is refused before anything is written.
func (l *Ledger) DeductBudget(ctx context.Context, campaignID uuid.UUID, cpm decimal.Decimal) error {
	cost := CostPerImpression(cpm)
	if !cost.Equal(cost.Truncate(models.SpendScale)) {
		l.metrics.RecordBudgetDeduction("error")
		return fmt.Errorf("deduct budget for campaign %s: cpm %s has more than %d decimal places", campaignID, cpm, models.CPMScale)
	}

	updated, err := l.store.IncrementSpend(ctx, campaignID, cost, l.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBudgetExceeded), errors.Is(err, repository.ErrCampaignNotFound):
			l.metrics.RecordBudgetDeduction("exceeded")
			level.Info(l.logger).Log("msg", "deduction refused", "campaign_id", campaignID, "cost", cost, "err", err)
			return models.ErrBudgetExceeded
		default:
			l.metrics.RecordBudgetDeduction("error")
			return fmt.Errorf("deduct budget for campaign %s: %w: %v", campaignID, models.ErrStoreUnavailable, err)
		}
	}
	l.metrics.RecordBudgetDeduction("committed")

	level.Debug(l.logger).Log(
		"msg", "budget deducted",
		"campaign_id", campaignID,
		"cost", cost,
		"spent_today", updated.SpentToday,
		"lifetime_spent", updated.LifetimeSpent,
	)

	if l.cache != nil {
		if err := l.cache.InvalidateCampaign(ctx, campaignID); err != nil {
			level.Warn(l.logger).Log("msg", "failed to invalidate campaign after deduction", "campaign_id", campaignID, "err", err)
		}
	}
	return nil
}

// ResetDailyBudget zeroes spent_today of every campaign and returns how many
// changed. Running it twice in a day is harmless.
func (l *Ledger) ResetDailyBudget(ctx context.Context) (int, error) {
	ids, err := l.store.ResetDailySpend(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("reset daily budget: %w: %v", models.ErrStoreUnavailable, err)
	}
	l.metrics.RecordBudgetReset()

	if l.cache != nil {
		if err := l.cache.InvalidateAll(ctx, ids); err != nil {
			level.Warn(l.logger).Log("msg", "failed to invalidate campaigns after reset", "count", len(ids), "err", err)
		}
	}

	level.Info(l.logger).Log("msg", "daily budgets reset", "campaigns", len(ids))
	return len(ids), nil
}
