package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/prajwalbharadwajbm/bidengine/internal/endpoint"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

const (
	maxBodyBytes = 1 << 20

	defaultSemanticK = 5
	defaultSimilarK  = 3
	defaultVideos    = 3
)

// health report statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthReport is the body of GET /health
type HealthReport struct {
	Status  string         `json:"status"`
	Service string         `json:"service"`
	Version string         `json:"version"`
	Checks  map[string]any `json:"checks,omitempty"`
}

// HealthFunc builds the health report on each call
type HealthFunc func(ctx context.Context) HealthReport

// badRequestError marks a request the decoder could not parse
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// NewHTTPHandler creates HTTP handlers for the bid service
func NewHTTPHandler(endpoints endpoint.BidEndpoints, health HealthFunc, logger log.Logger) *mux.Router {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(log.With(logger, "component", "http"))),
	}

	evaluateBidHandler := httptransport.NewServer(
		endpoints.EvaluateBidEndpoint,
		decodeEvaluateBidRequest,
		encodeEvaluateBidResponse,
		options...,
	)

	recordClickHandler := httptransport.NewServer(
		endpoints.RecordClickEndpoint,
		decodeRecordClickRequest,
		encodeJSONResponse,
		options...,
	)

	searchAdsHandler := httptransport.NewServer(
		endpoints.SearchAdsEndpoint,
		decodeSearchAdsRequest,
		encodeRankedAdsResponse,
		options...,
	)

	similarToVideoHandler := httptransport.NewServer(
		endpoints.SimilarToVideoEndpoint,
		decodeSimilarToVideoRequest,
		encodeRankedAdsResponse,
		options...,
	)

	listVideosHandler := httptransport.NewServer(
		endpoints.ListVideosEndpoint,
		decodeListVideosRequest,
		encodeListVideosResponse,
		options...,
	)

	getVideoHandler := httptransport.NewServer(
		endpoints.GetVideoEndpoint,
		decodeGetVideoRequest,
		encodeGetVideoResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Handle("/api/bid", evaluateBidHandler).Methods(http.MethodPost)
	r.Handle("/api/bid/User_Click_Event", recordClickHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/bid/test", liveHandler).Methods(http.MethodGet)

	r.Handle("/api/ads/semantic-search", searchAdsHandler).Methods(http.MethodPost)
	r.Handle("/api/ads/similar-to-video", similarToVideoHandler).Methods(http.MethodGet)

	r.Handle("/api/videos", listVideosHandler).Methods(http.MethodGet)
	r.Handle("/api/videos/{id}", getVideoHandler).Methods(http.MethodGet)

	r.HandleFunc("/health", healthHandler(health)).Methods(http.MethodGet)

	return r
}

func decodeEvaluateBidRequest(_ context.Context, r *http.Request) (any, error) {
	var req models.BidRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, badRequest("invalid bid request body: %v", err)
	}
	return endpoint.EvaluateBidRequest{BidRequest: req}, nil
}

func encodeEvaluateBidResponse(ctx context.Context, w http.ResponseWriter, response any) error {
	resp := response.(endpoint.EvaluateBidResponse)

	if resp.Err != nil {
		encodeError(ctx, resp.Err, w)
		return nil
	}

	if resp.Bid == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	return writeJSON(w, http.StatusOK, resp.Bid)
}

func decodeRecordClickRequest(_ context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()
	return endpoint.RecordClickRequest{
		Click: models.ClickEvent{
			CampaignID: query.Get("campaignId"),
			AdID:       query.Get("adId"),
			UserID:     query.Get("userId"),
		},
	}, nil
}

func decodeSearchAdsRequest(_ context.Context, r *http.Request) (any, error) {
	var req endpoint.SearchAdsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, badRequest("invalid search body: %v", err)
	}
	if req.K == 0 {
		req.K = defaultSemanticK
	}
	return req, nil
}

func decodeSimilarToVideoRequest(_ context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()

	videoID, err := uuid.Parse(query.Get("videoId"))
	if err != nil {
		return nil, badRequest("videoId must be a uuid")
	}
	k, err := intParam(query.Get("k"), defaultSimilarK)
	if err != nil {
		return nil, badRequest("k must be an integer")
	}
	return endpoint.SimilarToVideoRequest{VideoID: videoID, K: k}, nil
}

func encodeRankedAdsResponse(ctx context.Context, w http.ResponseWriter, response any) error {
	resp := response.(endpoint.RankedAdsResponse)
	if resp.Err != nil {
		encodeError(ctx, resp.Err, w)
		return nil
	}
	return writeJSON(w, http.StatusOK, resp.Ads)
}

func decodeListVideosRequest(_ context.Context, r *http.Request) (any, error) {
	limit, err := intParam(r.URL.Query().Get("limit"), defaultVideos)
	if err != nil {
		return nil, badRequest("limit must be an integer")
	}
	return endpoint.ListVideosRequest{Limit: limit}, nil
}

func encodeListVideosResponse(ctx context.Context, w http.ResponseWriter, response any) error {
	resp := response.(endpoint.ListVideosResponse)
	if resp.Err != nil {
		encodeError(ctx, resp.Err, w)
		return nil
	}
	return writeJSON(w, http.StatusOK, resp.Videos)
}

func decodeGetVideoRequest(_ context.Context, r *http.Request) (any, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return nil, badRequest("video id must be a uuid")
	}
	return endpoint.GetVideoRequest{ID: id}, nil
}

func encodeGetVideoResponse(ctx context.Context, w http.ResponseWriter, response any) error {
	resp := response.(endpoint.GetVideoResponse)
	if resp.Err != nil {
		encodeError(ctx, resp.Err, w)
		return nil
	}
	return writeJSON(w, http.StatusOK, resp.Video)
}

func encodeJSONResponse(_ context.Context, w http.ResponseWriter, response any) error {
	return writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, code int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(body)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// statusCode maps service errors onto HTTP status codes
func statusCode(err error) int {
	var (
		verr *models.ValidationError
		berr *badRequestError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &berr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBudgetExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// encodeError encodes error to HTTP response. Internal failures are not
// echoed to the caller.
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	code := statusCode(err)

	message := err.Error()
	switch code {
	case http.StatusServiceUnavailable:
		message = "Service temporarily unavailable"
	case http.StatusInternalServerError:
		message = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.NewErrorResponse(message))
}

// liveHandler answers the plain liveness check
func liveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "BidEngine is running!")
}

// healthHandler handles health check requests
func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := HealthReport{Status: StatusHealthy, Service: "bidengine"}
		if health != nil {
			report = health(r.Context())
		}

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}
