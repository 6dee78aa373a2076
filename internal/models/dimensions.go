package models

import (
	"fmt"
	"sort"
	"strings"
)

// AttributeExtractor reads one targeting attribute out of a bid request
type AttributeExtractor interface {
	// Name returns the rule type this extractor serves (e.g. "country")
	Name() string

	// Value extracts the attribute from the request. ok is false when the
	// request does not carry the attribute.
	Value(req BidRequest) (value string, ok bool)
}

// AttributeRegistry manages all available attribute extractors
type AttributeRegistry struct {
	extractors map[string]AttributeExtractor
}

// NewAttributeRegistry creates a new registry with the built-in extractors
func NewAttributeRegistry() *AttributeRegistry {
	registry := &AttributeRegistry{
		extractors: make(map[string]AttributeExtractor),
	}

	registry.Register(NewCountryExtractor())
	registry.Register(NewDeviceTypeExtractor())
	registry.Register(NewAgeGroupExtractor())
	registry.Register(NewGenderExtractor())

	return registry
}

// Register adds or replaces an extractor
func (r *AttributeRegistry) Register(extractor AttributeExtractor) {
	r.extractors[NormalizeValue(extractor.Name())] = extractor
}

// Get retrieves an extractor by rule type
func (r *AttributeRegistry) Get(ruleType string) (AttributeExtractor, bool) {
	extractor, exists := r.extractors[NormalizeValue(ruleType)]
	return extractor, exists
}

// List returns all registered rule types in sorted order
func (r *AttributeRegistry) List() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value resolves a rule type against the request. Rule types without a
// registered extractor are looked up in UserAttributes.
func (r *AttributeRegistry) Value(ruleType string, req BidRequest) (string, bool) {
	if extractor, ok := r.Get(ruleType); ok {
		return extractor.Value(req)
	}
	return userAttribute(req, ruleType)
}

func userAttribute(req BidRequest, key string) (string, bool) {
	if len(req.UserAttributes) == 0 {
		return "", false
	}
	raw, ok := req.UserAttributes[key]
	if !ok {
		// attribute keys are matched case-insensitively as a fallback
		for k, v := range req.UserAttributes {
			if strings.EqualFold(k, key) {
				raw, ok = v, true
				break
			}
		}
	}
	if !ok || raw == nil {
		return "", false
	}
	value := strings.TrimSpace(fmt.Sprint(raw))
	if value == "" {
		return "", false
	}
	return value, true
}

// TargetingMatcher decides whether a campaign's rules admit a request
type TargetingMatcher struct {
	Registry *AttributeRegistry
}

// NewTargetingMatcher creates a new matcher with the given registry
func NewTargetingMatcher(registry *AttributeRegistry) *TargetingMatcher {
	if registry == nil {
		registry = NewAttributeRegistry()
	}
	return &TargetingMatcher{Registry: registry}
}

// Matches checks a campaign's targeting rules against the request. A campaign
// with no rules matches everyone. Every rule type present on the campaign
// must be satisfied by at least one of its values.
func (m *TargetingMatcher) Matches(campaign *Campaign, req BidRequest) bool {
	if len(campaign.Rules) == 0 {
		return true
	}

	rulesByType := make(map[string][]TargetingRule)
	for _, rule := range campaign.Rules {
		ruleType := NormalizeValue(rule.RuleType)
		rulesByType[ruleType] = append(rulesByType[ruleType], rule)
	}

	for ruleType, rules := range rulesByType {
		if !m.typeMatches(ruleType, rules, req) {
			return false
		}
	}
	return true
}

func (m *TargetingMatcher) typeMatches(ruleType string, rules []TargetingRule, req BidRequest) bool {
	value, ok := m.Registry.Value(ruleType, req)
	if !ok {
		return false
	}
	for _, rule := range rules {
		if rule.Matches(value) {
			return true
		}
	}
	return false
}
