package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestContextKey represents keys used in request context
type RequestContextKey string

const (
	RequestIDKey   RequestContextKey = "request_id"
	StartTimeKey   RequestContextKey = "start_time"
	UserAgentKey   RequestContextKey = "user_agent"
	RemoteAddrKey  RequestContextKey = "remote_addr"
	UserIDKey      RequestContextKey = "user_id"
	PlacementIDKey RequestContextKey = "placement_id"
)

// RequestInfo holds information about the current request
type RequestInfo struct {
	ID          string    `json:"request_id"`
	StartTime   time.Time `json:"start_time"`
	UserAgent   string    `json:"user_agent,omitempty"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	PlacementID string    `json:"placement_id,omitempty"`
}

func withString(ctx context.Context, key RequestContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func getString(ctx context.Context, key RequestContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// WithStartTime adds a start time to the context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, StartTimeKey, startTime)
}

// GetStartTime retrieves the start time from context
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

// WithUserAgent adds user agent to the context
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withString(ctx, UserAgentKey, userAgent)
}

// GetUserAgent retrieves the user agent from context
func GetUserAgent(ctx context.Context) string {
	return getString(ctx, UserAgentKey)
}

// WithRemoteAddr adds remote address to the context
func WithRemoteAddr(ctx context.Context, remoteAddr string) context.Context {
	return withString(ctx, RemoteAddrKey, remoteAddr)
}

// GetRemoteAddr retrieves the remote address from context
func GetRemoteAddr(ctx context.Context) string {
	return getString(ctx, RemoteAddrKey)
}

// WithBidder records who a bid is being evaluated for, so failures deeper
// in the pipeline can be logged with it.
func WithBidder(ctx context.Context, userID, placementID string) context.Context {
	ctx = withString(ctx, UserIDKey, userID)
	return withString(ctx, PlacementIDKey, placementID)
}

// GetUserID retrieves the bid request's user id from context
func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

// GetPlacementID retrieves the bid request's placement id from context
func GetPlacementID(ctx context.Context) string {
	return getString(ctx, PlacementIDKey)
}

// NewRequestContext stamps the context with a request id, the start time
// and the caller's metadata. An empty requestID is replaced by a new uuid.
func NewRequestContext(ctx context.Context, requestID, userAgent, remoteAddr string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = WithRequestID(ctx, requestID)
	ctx = WithStartTime(ctx, time.Now())
	ctx = WithUserAgent(ctx, userAgent)
	ctx = WithRemoteAddr(ctx, remoteAddr)

	return ctx
}

// GetRequestInfo extracts all request information from context
func GetRequestInfo(ctx context.Context) RequestInfo {
	return RequestInfo{
		ID:          GetRequestID(ctx),
		StartTime:   GetStartTime(ctx),
		UserAgent:   GetUserAgent(ctx),
		RemoteAddr:  GetRemoteAddr(ctx),
		UserID:      GetUserID(ctx),
		PlacementID: GetPlacementID(ctx),
	}
}
