package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

// InstrumentedRepository wraps a repository with metrics collection
type InstrumentedRepository struct {
	next    Repository
	metrics *metrics.Metrics
}

// NewInstrumentedRepository creates a new instrumented repository
func NewInstrumentedRepository(repo Repository, metrics *metrics.Metrics) Repository {
	return &InstrumentedRepository{
		next:    repo,
		metrics: metrics,
	}
}

// record counts the query and, for unexpected failures, the error. Not found
// and budget refusals are normal outcomes and are not database errors.
func (r *InstrumentedRepository) record(operation, table string, err error) {
	r.metrics.RecordDatabaseQuery(operation, table)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ErrCampaignNotFound), errors.Is(err, ErrVideoNotFound), errors.Is(err, ErrBudgetExceeded):
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		r.metrics.RecordDatabaseError(operation, "timeout")
	default:
		r.metrics.RecordDatabaseError(operation, "query_error")
	}
}

func (r *InstrumentedRepository) GetCampaign(ctx context.Context, id uuid.UUID) (campaign *models.Campaign, err error) {
	defer func() { r.record("select", "campaigns", err) }()
	return r.next.GetCampaign(ctx, id)
}

func (r *InstrumentedRepository) GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) (campaigns []models.Campaign, err error) {
	defer func() { r.record("select", "campaigns", err) }()
	return r.next.GetCampaignsByStatus(ctx, status)
}

func (r *InstrumentedRepository) IncrementSpend(ctx context.Context, id uuid.UUID, cost decimal.Decimal, at time.Time) (campaign models.Campaign, err error) {
	defer func() { r.record("update", "campaigns", err) }()
	return r.next.IncrementSpend(ctx, id, cost, at)
}

func (r *InstrumentedRepository) ResetDailySpend(ctx context.Context, at time.Time) (ids []uuid.UUID, err error) {
	defer func() { r.record("update", "campaigns", err) }()
	return r.next.ResetDailySpend(ctx, at)
}

func (r *InstrumentedRepository) GetVideo(ctx context.Context, id uuid.UUID) (video *models.Video, err error) {
	defer func() { r.record("select", "videos", err) }()
	return r.next.GetVideo(ctx, id)
}

func (r *InstrumentedRepository) ListVideos(ctx context.Context, limit int) (videos []models.Video, err error) {
	defer func() { r.record("select", "videos", err) }()
	return r.next.ListVideos(ctx, limit)
}

func (r *InstrumentedRepository) RankAds(ctx context.Context, embedding models.Embedding, k int) (ranked []models.RankedAd, err error) {
	defer func() { r.record("vector_search", "ads", err) }()
	return r.next.RankAds(ctx, embedding, k)
}

func (r *InstrumentedRepository) RankAdsByVideo(ctx context.Context, videoID uuid.UUID, k int) (ranked []models.RankedAd, err error) {
	defer func() { r.record("vector_search", "ads", err) }()
	return r.next.RankAdsByVideo(ctx, videoID, k)
}

func (r *InstrumentedRepository) HealthCheck(ctx context.Context) (err error) {
	defer func() {
		r.metrics.SetHealthCheckStatus("database", err == nil)
	}()
	return r.next.HealthCheck(ctx)
}
