package models

import (
	"strings"

	"github.com/google/uuid"
)

// BidRequest represents the incoming bid request from the ad server
type BidRequest struct {
	UserID         string         `json:"userId"`
	PlacementID    string         `json:"placementId"`
	CountryCode    string         `json:"countryCode,omitempty"`
	DeviceType     string         `json:"deviceType,omitempty"`
	UserAttributes map[string]any `json:"userAttributes,omitempty"`
	VideoID        *uuid.UUID     `json:"videoId,omitempty"`
	Age            *int           `json:"age,omitempty"`
	// AssumedGender maps a gender label to the inference confidence for it.
	AssumedGender map[string]int `json:"assumedGender,omitempty"`
}

// Validate checks if the request has all required parameters
func (r *BidRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return &ValidationError{Field: "userId"}
	}
	if strings.TrimSpace(r.PlacementID) == "" {
		return &ValidationError{Field: "placementId"}
	}
	return nil
}

// HasVideo reports whether the request carries a video for semantic matching.
func (r *BidRequest) HasVideo() bool {
	return r.VideoID != nil && *r.VideoID != uuid.Nil
}

// ClickEvent is the telemetry recorded when a user clicks a served ad.
type ClickEvent struct {
	CampaignID string `json:"campaignId"`
	AdID       string `json:"adId"`
	UserID     string `json:"userId"`
}

// UnknownLabel stands in for a missing or malformed click id
const UnknownLabel = "unknown"

// Labels returns the campaign and ad ids in canonical uuid form. Anything
// that is not a uuid becomes UnknownLabel so query strings cannot mint new
// metric series.
func (c ClickEvent) Labels() (campaign, ad string) {
	return idLabel(c.CampaignID), idLabel(c.AdID)
}

func idLabel(raw string) string {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return UnknownLabel
	}
	return id.String()
}
