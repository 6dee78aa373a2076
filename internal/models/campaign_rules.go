package models

import "fmt"

// Global targeting matcher instance (can be configured)
var defaultTargetingMatcher = NewTargetingMatcher(NewAttributeRegistry())

// IsEligible reports whether the campaign can serve and targets the request.
func (c *Campaign) IsEligible(req BidRequest, matcher *TargetingMatcher) bool {
	if matcher == nil {
		matcher = defaultTargetingMatcher
	}
	return c.CanServe() && matcher.Matches(c, req)
}

// DefaultTargetingMatcher returns the package-wide matcher
func DefaultTargetingMatcher() *TargetingMatcher {
	return defaultTargetingMatcher
}

// ValidateRules validates all targeting rules for this campaign
func (c *Campaign) ValidateRules() []error {
	var errs []error
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
		}
	}
	return errs
}
