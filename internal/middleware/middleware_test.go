package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reqcontext "github.com/prajwalbharadwajbm/bidengine/internal/context"
	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/service"
)

// stubService answers EvaluateBid with a fixed result
type stubService struct {
	service.BidService
	resp *models.BidResponse
	err  error
}

func (s stubService) EvaluateBid(ctx context.Context, req models.BidRequest) (*models.BidResponse, error) {
	return s.resp, s.err
}

func TestBidStatus(t *testing.T) {
	tests := []struct {
		name string
		resp *models.BidResponse
		err  error
		want string
	}{
		{"success", &models.BidResponse{}, nil, metrics.BidStatusSuccess},
		{"no bid", nil, nil, metrics.BidStatusNoBid},
		{"invalid", nil, &models.ValidationError{Field: "userId"}, metrics.BidStatusInvalid},
		{"budget", nil, models.ErrBudgetExceeded, metrics.BidStatusBudgetError},
		{"store", nil, models.ErrStoreUnavailable, metrics.BidStatusError},
		{"other", nil, errors.New("boom"), metrics.BidStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bidStatus(tt.resp, tt.err))
		})
	}
}

func TestServiceMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)

	ok := NewServiceMetricsMiddleware(m)(stubService{resp: &models.BidResponse{}})
	none := NewServiceMetricsMiddleware(m)(stubService{})
	broke := NewServiceMetricsMiddleware(m)(stubService{err: models.ErrBudgetExceeded})

	ok.EvaluateBid(context.Background(), models.BidRequest{})
	ok.EvaluateBid(context.Background(), models.BidRequest{})
	none.EvaluateBid(context.Background(), models.BidRequest{})
	broke.EvaluateBid(context.Background(), models.BidRequest{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BidRequestsTotal.WithLabelValues(metrics.BidStatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BidRequestsTotal.WithLabelValues(metrics.BidStatusNoBid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BidRequestsTotal.WithLabelValues(metrics.BidStatusBudgetError)))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogfmtLogger(&buf)

	campaignID := uuid.New()
	svc := NewLoggingMiddleware(logger)(stubService{resp: &models.BidResponse{CampaignID: campaignID, Strategy: "highest_bid"}})

	ctx := reqcontext.WithRequestID(context.Background(), "req-1")
	_, err := svc.EvaluateBid(ctx, models.BidRequest{UserID: "u1", PlacementID: "p1"})
	require.NoError(t, err)

	line := buf.String()
	assert.Contains(t, line, "method=EvaluateBid")
	assert.Contains(t, line, "request_id=req-1")
	assert.Contains(t, line, "user_id=u1")
	assert.Contains(t, line, "placement_id=p1")
	assert.Contains(t, line, "status=success")
	assert.Contains(t, line, "campaign_id="+campaignID.String())
	assert.Contains(t, line, "level=info")
}

func TestLoggingMiddleware_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	svc := NewLoggingMiddleware(log.NewLogfmtLogger(&buf))(stubService{err: errors.New("db gone")})

	_, err := svc.EvaluateBid(context.Background(), models.BidRequest{UserID: "u", PlacementID: "p"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=error")
	assert.Contains(t, buf.String(), `err="db gone"`)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/bid", "/api/bid"},
		{"/api/bid/", "/api/bid"},
		{"/api/bid/User_Click_Event", "/api/bid/User_Click_Event"},
		{"/api/videos/" + uuid.New().String(), "/api/videos/{id}"},
		{"/api/videos", "/api/videos"},
		{"/health", "/health"},
		{"/wp-admin/login.php", "other"},
		{"/api/ads/" + uuid.New().String(), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeEndpoint(tt.path), tt.path)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)

	handler := NewMetricsMiddleware(m).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bid", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/bid", "204")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight.WithLabelValues("POST", "/api/bid")))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := NewRequestIDMiddleware().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = reqcontext.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "upstream-9")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-9", seen)
	assert.Equal(t, "upstream-9", rec.Header().Get(RequestIDHeader))
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	})

	NewTimeoutMiddleware(50*time.Millisecond).Middleware(inner).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/bid", nil))
	assert.True(t, deadline)

	NewTimeoutMiddleware(0).Middleware(inner).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/bid", nil))
	assert.False(t, deadline)
}
