package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

// Sample ids are fixed so local requests can reference them
var (
	SampleRunningCampaignID = uuid.MustParse("8a0f5c62-3d7e-4c2a-9b1f-1f2e3d4c5b01")
	SampleCookingCampaignID = uuid.MustParse("8a0f5c62-3d7e-4c2a-9b1f-1f2e3d4c5b02")
	SampleGamingCampaignID  = uuid.MustParse("8a0f5c62-3d7e-4c2a-9b1f-1f2e3d4c5b03")
	SamplePausedCampaignID  = uuid.MustParse("8a0f5c62-3d7e-4c2a-9b1f-1f2e3d4c5b04")

	SampleMarathonVideoID = uuid.MustParse("5e1d7a90-6b2c-4f3e-8d4a-2b3c4d5e6f01")
	SampleRecipeVideoID   = uuid.MustParse("5e1d7a90-6b2c-4f3e-8d4a-2b3c4d5e6f02")
)

// NewSampleRepository creates an in-memory repository with sample data
func NewSampleRepository() *MemoryRepository {
	now := time.Now().UTC()
	advertiser := uuid.MustParse("c0ffee00-0000-4000-8000-000000000001")

	campaign := func(id uuid.UUID, name, cpm, daily string, status models.CampaignStatus) models.Campaign {
		return models.Campaign{
			ID:           id,
			Name:         name,
			AdvertiserID: advertiser,
			Status:       status,
			CPMBid:       decimal.RequireFromString(cpm),
			DailyBudget:  decimal.RequireFromString(daily),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	ad := func(campaignID uuid.UUID, n byte, title, description string, embedding models.Embedding) models.Ad {
		id := campaignID
		id[15] = 0xa0 + n
		return models.Ad{
			ID:          id,
			CampaignID:  campaignID,
			Title:       title,
			ImageURL:    "https://cdn.example.com/ads/" + id.String() + ".png",
			RedirectURL: "https://example.com/landing/" + id.String(),
			Description: description,
			Embedding:   embedding,
			CreatedAt:   now,
		}
	}
	rule := func(campaignID uuid.UUID, n byte, ruleType, value string) models.TargetingRule {
		id := campaignID
		id[15] = 0xb0 + n
		return models.TargetingRule{ID: id, CampaignID: campaignID, RuleType: ruleType, RuleValue: value, CreatedAt: now}
	}

	running := campaign(SampleRunningCampaignID, "Trail running shoes", "4.50", "250.00", models.StatusActive)
	running.LifetimeBudget = decimal.NewNullDecimal(decimal.RequireFromString("5000.00"))
	running.Ads = []models.Ad{
		ad(running.ID, 1, "Run further", "Lightweight trail shoes", models.Embedding{0.9, 0.1, 0.0, 0.1}),
		ad(running.ID, 2, "Marathon ready", "Race day cushioning", models.Embedding{0.8, 0.2, 0.1, 0.0}),
	}
	running.Rules = []models.TargetingRule{
		rule(running.ID, 1, models.RuleTypeCountry, "US"),
		rule(running.ID, 2, models.RuleTypeCountry, "CA"),
	}

	cooking := campaign(SampleCookingCampaignID, "Meal kits", "3.00", "100.00", models.StatusActive)
	cooking.Ads = []models.Ad{
		ad(cooking.ID, 1, "Dinner in 20 minutes", "Fresh ingredients delivered", models.Embedding{0.1, 0.9, 0.2, 0.0}),
	}
	cooking.Rules = []models.TargetingRule{
		rule(cooking.ID, 1, models.RuleTypeDeviceType, "mobile"),
	}

	gaming := campaign(SampleGamingCampaignID, "Puzzle game launch", "2.00", "50.00", models.StatusActive)
	gaming.Ads = []models.Ad{
		ad(gaming.ID, 1, "Play free", "Hundreds of levels", models.Embedding{0.0, 0.1, 0.9, 0.3}),
	}

	paused := campaign(SamplePausedCampaignID, "Winter coats", "9.00", "500.00", models.StatusPaused)
	paused.Ads = []models.Ad{
		ad(paused.ID, 1, "Stay warm", "Insulated parkas", models.Embedding{0.2, 0.0, 0.1, 0.9}),
	}

	videos := []models.Video{
		{
			ID:          SampleMarathonVideoID,
			Title:       "How to train for your first marathon",
			Description: "A 16 week plan",
			Embedding:   models.Embedding{0.85, 0.15, 0.05, 0.05},
			CreatedAt:   now,
		},
		{
			ID:          SampleRecipeVideoID,
			Title:       "Weeknight pasta",
			Description: "Three ingredient dinner",
			Embedding:   models.Embedding{0.05, 0.95, 0.1, 0.0},
			CreatedAt:   now.Add(-time.Hour),
		},
	}

	return NewMemoryRepository([]models.Campaign{running, cooking, gaming, paused}, videos)
}
