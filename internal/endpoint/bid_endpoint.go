package endpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/google/uuid"

	"github.com/prajwalbharadwajbm/bidengine/internal/models"
	"github.com/prajwalbharadwajbm/bidengine/internal/service"
)

// BidEndpoints holds all endpoints for the bid service
type BidEndpoints struct {
	EvaluateBidEndpoint    endpoint.Endpoint
	RecordClickEndpoint    endpoint.Endpoint
	SearchAdsEndpoint      endpoint.Endpoint
	SimilarToVideoEndpoint endpoint.Endpoint
	ListVideosEndpoint     endpoint.Endpoint
	GetVideoEndpoint       endpoint.Endpoint
}

// MakeBidEndpoints creates endpoints for the bid service
func MakeBidEndpoints(s service.BidService) BidEndpoints {
	return BidEndpoints{
		EvaluateBidEndpoint:    makeEvaluateBidEndpoint(s),
		RecordClickEndpoint:    makeRecordClickEndpoint(s),
		SearchAdsEndpoint:      makeSearchAdsEndpoint(s),
		SimilarToVideoEndpoint: makeSimilarToVideoEndpoint(s),
		ListVideosEndpoint:     makeListVideosEndpoint(s),
		GetVideoEndpoint:       makeGetVideoEndpoint(s),
	}
}

// EvaluateBidRequest represents the request for a bid
type EvaluateBidRequest struct {
	BidRequest models.BidRequest
}

// EvaluateBidResponse carries the winning bid. Bid and Err both nil is a
// no-bid.
type EvaluateBidResponse struct {
	Bid *models.BidResponse `json:"bid,omitempty"`
	Err error               `json:"error,omitempty"`
}

// Failed implements the endpoint.Failer interface
func (r EvaluateBidResponse) Failed() error {
	return r.Err
}

func makeEvaluateBidEndpoint(s service.BidService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(EvaluateBidRequest)
		bid, err := s.EvaluateBid(ctx, req.BidRequest)
		return EvaluateBidResponse{Bid: bid, Err: err}, nil
	}
}

// RecordClickRequest represents a click telemetry event
type RecordClickRequest struct {
	Click models.ClickEvent
}

// RecordClickResponse is always successful
type RecordClickResponse struct {
	Status string `json:"status"`
}

func makeRecordClickEndpoint(s service.BidService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(RecordClickRequest)
		_ = s.RecordClick(ctx, req.Click)
		return RecordClickResponse{Status: "Click recorded"}, nil
	}
}

// SearchAdsRequest asks for the k ads closest to an embedding
type SearchAdsRequest struct {
	Embedding models.Embedding `json:"embedding"`
	K         int              `json:"k"`
}

// SimilarToVideoRequest asks for the k ads closest to a video
type SimilarToVideoRequest struct {
	VideoID uuid.UUID
	K       int
}

// RankedAdsResponse is the result of both similarity searches
type RankedAdsResponse struct {
	Ads []models.AdResult `json:"ads"`
	Err error             `json:"error,omitempty"`
}

// Failed implements the endpoint.Failer interface
func (r RankedAdsResponse) Failed() error {
	return r.Err
}

func makeSearchAdsEndpoint(s service.BidService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(SearchAdsRequest)
		ranked, err := s.SearchAds(ctx, req.Embedding, req.K)
		if err != nil {
			return RankedAdsResponse{Err: err}, nil
		}
		return RankedAdsResponse{Ads: models.FromRankedAds(ranked)}, nil
	}
}

func makeSimilarToVideoEndpoint(s service.BidService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(SimilarToVideoRequest)
		ranked, err := s.SimilarToVideo(ctx, req.VideoID, req.K)
		if err != nil {
			return RankedAdsResponse{Err: err}, nil
		}
		return RankedAdsResponse{Ads: models.FromRankedAds(ranked)}, nil
	}
}

// ListVideosRequest asks for the newest videos
type ListVideosRequest struct {
	Limit int
}

// ListVideosResponse lists video summaries
type ListVideosResponse struct {
	Videos []models.VideoSummary `json:"videos"`
	Err    error                 `json:"error,omitempty"`
}

// Failed implements the endpoint.Failer interface
func (r ListVideosResponse) Failed() error {
	return r.Err
}

func makeListVideosEndpoint(s service.BidService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(ListVideosRequest)
		videos, err := s.ListVideos(ctx, req.Limit)
		if err != nil {
			return ListVideosResponse{Err: err}, nil
		}
		summaries := make([]models.VideoSummary, len(videos))
		for i := range videos {
			summaries[i] = videos[i].Summary()
		}
		return ListVideosResponse{Videos: summaries}, nil
	}
}

// GetVideoRequest asks for one video
type GetVideoRequest struct {
	ID uuid.UUID
}

// GetVideoResponse carries one video summary
type GetVideoResponse struct {
	Video *models.VideoSummary `json:"video,omitempty"`
	Err   error                `json:"error,omitempty"`
}

// Failed implements the endpoint.Failer interface
func (r GetVideoResponse) Failed() error {
	return r.Err
}

func makeGetVideoEndpoint(s service.BidService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(GetVideoRequest)
		video, err := s.GetVideo(ctx, req.ID)
		if err != nil {
			return GetVideoResponse{Err: err}, nil
		}
		summary := video.Summary()
		return GetVideoResponse{Video: &summary}, nil
	}
}

// EvaluateBid is a helper method to call the endpoint
func (e BidEndpoints) EvaluateBid(ctx context.Context, req models.BidRequest) (*models.BidResponse, error) {
	response, err := e.EvaluateBidEndpoint(ctx, EvaluateBidRequest{BidRequest: req})
	if err != nil {
		return nil, err
	}
	resp := response.(EvaluateBidResponse)
	return resp.Bid, resp.Err
}
