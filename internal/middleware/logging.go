package middleware

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	reqcontext "github.com/prajwalbharadwajbm/bidengine/internal/context"
	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/service"
)

// loggingMiddleware implements logging middleware for BidService
type loggingMiddleware struct {
	service.BidService
	logger log.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger log.Logger) func(service.BidService) service.BidService {
	return func(next service.BidService) service.BidService {
		return &loggingMiddleware{
			BidService: next,
			logger:     logger,
		}
	}
}

// requestFields returns the request metadata carried in ctx
func requestFields(ctx context.Context) []any {
	fields := []any{"request_id", reqcontext.GetRequestID(ctx)}
	if userAgent := reqcontext.GetUserAgent(ctx); userAgent != "" {
		fields = append(fields, "user_agent", userAgent)
	}
	if remoteAddr := reqcontext.GetRemoteAddr(ctx); remoteAddr != "" {
		fields = append(fields, "remote_addr", remoteAddr)
	}
	return fields
}

// EvaluateBid logs one line per bid request with its outcome
func (mw *loggingMiddleware) EvaluateBid(ctx context.Context, req models.BidRequest) (resp *models.BidResponse, err error) {
	defer func(begin time.Time) {
		status := bidStatus(resp, err)

		fields := []any{"method", "EvaluateBid"}
		fields = append(fields, requestFields(ctx)...)
		fields = append(fields,
			"user_id", req.UserID,
			"placement_id", req.PlacementID,
			"status", status,
			"took", time.Since(begin),
		)
		if resp != nil {
			fields = append(fields,
				"campaign_id", resp.CampaignID,
				"ad_id", resp.AdID,
				"bid_price", resp.BidPrice,
				"strategy", resp.Strategy,
			)
		}
		if err != nil {
			fields = append(fields, "err", err)
		}

		logger := level.Info(mw.logger)
		if status == metrics.BidStatusError {
			logger = level.Error(mw.logger)
		}
		logger.Log(fields...)
	}(time.Now())

	return mw.BidService.EvaluateBid(ctx, req)
}

// SearchAds logs semantic searches
func (mw *loggingMiddleware) SearchAds(ctx context.Context, embedding models.Embedding, k int) (ranked []models.RankedAd, err error) {
	defer func(begin time.Time) {
		fields := []any{"method", "SearchAds"}
		fields = append(fields, requestFields(ctx)...)
		fields = append(fields, "dims", len(embedding), "k", k, "results", len(ranked), "took", time.Since(begin))
		if err != nil {
			fields = append(fields, "err", err)
		}
		level.Debug(mw.logger).Log(fields...)
	}(time.Now())

	return mw.BidService.SearchAds(ctx, embedding, k)
}

// SimilarToVideo logs similarity lookups
func (mw *loggingMiddleware) SimilarToVideo(ctx context.Context, videoID uuid.UUID, k int) (ranked []models.RankedAd, err error) {
	defer func(begin time.Time) {
		fields := []any{"method", "SimilarToVideo"}
		fields = append(fields, requestFields(ctx)...)
		fields = append(fields, "video_id", videoID, "k", k, "results", len(ranked), "took", time.Since(begin))
		if err != nil {
			fields = append(fields, "err", err)
		}
		level.Debug(mw.logger).Log(fields...)
	}(time.Now())

	return mw.BidService.SimilarToVideo(ctx, videoID, k)
}
