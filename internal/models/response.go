package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorResponse represents error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// AdContent is the creative snapshot returned with a winning bid.
type AdContent struct {
	Title       string `json:"title"`
	ImageURL    string `json:"imageUrl"`
	RedirectURL string `json:"redirectUrl"`
	Description string `json:"description,omitempty"`
}

// BidResponse is the winning bid. BidPrice is the campaign's CPM and is
// serialized as a decimal string.
type BidResponse struct {
	CampaignID uuid.UUID       `json:"campaignId"`
	AdID       uuid.UUID       `json:"adId"`
	AdContent  AdContent       `json:"adContent"`
	BidPrice   decimal.Decimal `json:"bidPrice"`
	Confidence float64         `json:"confidence"`
	Strategy   string          `json:"strategy"`
}

// AdResult is one entry of a semantic search response.
type AdResult struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaignId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	RedirectURL string    `json:"redirectUrl"`
	Score       float64   `json:"score"`
}

// FromRankedAds converts ranked ads to their response form
func FromRankedAds(ranked []RankedAd) []AdResult {
	out := make([]AdResult, len(ranked))
	for i, r := range ranked {
		out[i] = AdResult{
			ID:          r.Ad.ID,
			CampaignID:  r.Ad.CampaignID,
			Title:       r.Ad.Title,
			Description: r.Ad.Description,
			ImageURL:    r.Ad.ImageURL,
			RedirectURL: r.Ad.RedirectURL,
			Score:       r.Score,
		}
	}
	return out
}

// VideoSummary is the public projection of a video.
type VideoSummary struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}

// Summary returns the public projection of the video.
func (v *Video) Summary() VideoSummary {
	return VideoSummary{ID: v.ID, Title: v.Title, Description: v.Description}
}
