package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TargetingRule restricts where a campaign can run. Rules of the same type
// are alternatives; rules of different types must all hold.
type TargetingRule struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CampaignID uuid.UUID `json:"campaign_id" db:"campaign_id"`
	RuleType   string    `json:"rule_type" db:"rule_type"`
	RuleValue  string    `json:"rule_value" db:"rule_value"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// built-in rule types
const (
	RuleTypeCountry    = "country"
	RuleTypeDeviceType = "device_type"
	RuleTypeAgeGroup   = "age_group"
	RuleTypeGender     = "gender"
)

// Validate checks if targeting rule is valid
func (tr *TargetingRule) Validate() error {
	if tr.CampaignID == uuid.Nil {
		return errors.New("campaign_id is required")
	}
	if strings.TrimSpace(tr.RuleType) == "" {
		return errors.New("rule_type is required")
	}
	if strings.TrimSpace(tr.RuleValue) == "" {
		return errors.New("rule_value cannot be empty")
	}
	return nil
}

// NormalizeValue cleans a value for case-insensitive comparison
func NormalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Matches reports whether the given request value satisfies this rule.
func (tr *TargetingRule) Matches(value string) bool {
	return NormalizeValue(tr.RuleValue) == NormalizeValue(value)
}
