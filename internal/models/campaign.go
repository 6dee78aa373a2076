package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decimal places of cpm_bid and of the spend columns. An impression costs
// cpm/1000, so spend needs three more places than the bid to stay exact.
const (
	CPMScale   = 4
	SpendScale = CPMScale + 3
)

// Campaign is an advertiser's budgeted buying unit. It owns its ads and
// targeting rules; the bid engine only ever mutates the spend counters and
// UpdatedAt.
type Campaign struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	Name           string              `json:"name" db:"name"`
	AdvertiserID   uuid.UUID           `json:"advertiser_id" db:"advertiser_id"`
	Status         CampaignStatus      `json:"status" db:"status"`
	CPMBid         decimal.Decimal     `json:"cpm_bid" db:"cpm_bid"`
	DailyBudget    decimal.Decimal     `json:"daily_budget" db:"daily_budget"`
	LifetimeBudget decimal.NullDecimal `json:"lifetime_budget" db:"lifetime_budget"`
	SpentToday     decimal.Decimal     `json:"spent_today" db:"spent_today"`
	LifetimeSpent  decimal.Decimal     `json:"lifetime_spent" db:"lifetime_spent"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`

	Ads   []Ad            `json:"ads"`
	Rules []TargetingRule `json:"targeting_rules"`
}

// CampaignStatus represents the status of a campaign
type CampaignStatus string

// enum values for CampaignStatus
const (
	StatusActive CampaignStatus = "active"
	StatusPaused CampaignStatus = "paused"
	StatusEnded  CampaignStatus = "ended"
)

// IsValid reports whether the status is one the store accepts.
func (s CampaignStatus) IsValid() bool {
	return s == StatusActive || s == StatusPaused || s == StatusEnded
}

// IsActive returns true if campaign is active
func (c *Campaign) IsActive() bool {
	return c.Status == StatusActive
}

// CanServe reports whether the campaign may win an impression right now:
// it must be active, have daily headroom and, when a lifetime budget is set,
// lifetime headroom.
func (c *Campaign) CanServe() bool {
	if !c.IsActive() {
		return false
	}
	if !c.DailyBudget.GreaterThan(c.SpentToday) {
		return false
	}
	if c.LifetimeBudget.Valid && !c.LifetimeSpent.LessThan(c.LifetimeBudget.Decimal) {
		return false
	}
	return true
}

// WithinCeilings reports whether the given prospective totals respect the
// daily and lifetime ceilings. Equality with a ceiling is allowed.
func (c *Campaign) WithinCeilings(spentToday, lifetimeSpent decimal.Decimal) bool {
	if spentToday.GreaterThan(c.DailyBudget) {
		return false
	}
	if c.LifetimeBudget.Valid && lifetimeSpent.GreaterThan(c.LifetimeBudget.Decimal) {
		return false
	}
	return true
}

// Validate checks the invariants the store enforces with CHECK constraints.
func (c *Campaign) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("campaign id is required")
	}
	if !c.Status.IsValid() {
		return errors.New("invalid campaign status")
	}
	if !c.CPMBid.IsPositive() {
		return errors.New("cpm_bid must be greater than zero")
	}
	if !c.CPMBid.Equal(c.CPMBid.Truncate(CPMScale)) {
		return fmt.Errorf("cpm_bid allows at most %d decimal places", CPMScale)
	}
	if !c.DailyBudget.IsPositive() {
		return errors.New("daily_budget must be greater than zero")
	}
	if c.SpentToday.IsNegative() || c.LifetimeSpent.IsNegative() {
		return errors.New("spend counters cannot be negative")
	}
	return nil
}

// Ad is a creative owned by exactly one campaign. It refers to its campaign
// by id only, which keeps the cached campaign projection acyclic.
type Ad struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CampaignID  uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Title       string    `json:"title" db:"title"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	RedirectURL string    `json:"redirect_url" db:"redirect_url"`
	Description string    `json:"description,omitempty" db:"description"`
	Embedding   Embedding `json:"-" db:"embedding"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Content returns the snapshot of the ad that is sent back to the caller.
func (a *Ad) Content() AdContent {
	return AdContent{
		Title:       a.Title,
		ImageURL:    a.ImageURL,
		RedirectURL: a.RedirectURL,
		Description: a.Description,
	}
}

// Video is a piece of content whose embedding seeds the semantic path.
type Video struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Embedding   Embedding `json:"-" db:"embedding"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// RankedAd is an ad returned by the similarity ranker together with its score.
type RankedAd struct {
	Ad    Ad      `json:"ad"`
	Score float64 `json:"score"`
}
