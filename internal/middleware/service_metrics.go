package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/service"
)

// serviceMetricsMiddleware implements metrics collection for BidService
type serviceMetricsMiddleware struct {
	service.BidService
	metrics *metrics.Metrics
}

// NewServiceMetricsMiddleware creates a new service metrics middleware
func NewServiceMetricsMiddleware(metrics *metrics.Metrics) func(service.BidService) service.BidService {
	return func(next service.BidService) service.BidService {
		return &serviceMetricsMiddleware{
			BidService: next,
			metrics:    metrics,
		}
	}
}

// EvaluateBid counts the outcome and observes latency of every bid request
func (mw *serviceMetricsMiddleware) EvaluateBid(ctx context.Context, req models.BidRequest) (resp *models.BidResponse, err error) {
	defer func(begin time.Time) {
		mw.metrics.RecordBidRequest(bidStatus(resp, err), time.Since(begin).Seconds())
	}(time.Now())

	return mw.BidService.EvaluateBid(ctx, req)
}

// bidStatus classifies a bid outcome for the bid_requests_total label
func bidStatus(resp *models.BidResponse, err error) string {
	var verr *models.ValidationError
	switch {
	case err == nil && resp == nil:
		return metrics.BidStatusNoBid
	case err == nil:
		return metrics.BidStatusSuccess
	case errors.As(err, &verr):
		return metrics.BidStatusInvalid
	case errors.Is(err, models.ErrBudgetExceeded):
		return metrics.BidStatusBudgetError
	default:
		return metrics.BidStatusError
	}
}
