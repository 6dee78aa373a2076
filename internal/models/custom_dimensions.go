package models

import "sort"

// AgeGroupExtractor buckets the request's age into the ranges campaigns
// target on.
type AgeGroupExtractor struct{}

func NewAgeGroupExtractor() AttributeExtractor {
	return &AgeGroupExtractor{}
}

func (ae *AgeGroupExtractor) Name() string {
	return RuleTypeAgeGroup
}

func (ae *AgeGroupExtractor) Value(req BidRequest) (string, bool) {
	if req.Age == nil {
		return "", false
	}
	group := AgeGroup(*req.Age)
	return group, group != ""
}

// AgeGroup returns the targeting bucket for an age, or "" below 13.
func AgeGroup(age int) string {
	switch {
	case age < 13:
		return ""
	case age <= 17:
		return "13-17"
	case age <= 24:
		return "18-24"
	case age <= 34:
		return "25-34"
	case age <= 44:
		return "35-44"
	case age <= 54:
		return "45-54"
	case age <= 64:
		return "55-64"
	default:
		return "65+"
	}
}

// GenderExtractor picks the most confident assumed gender. Ties resolve to
// the alphabetically first label.
type GenderExtractor struct{}

func NewGenderExtractor() AttributeExtractor {
	return &GenderExtractor{}
}

func (ge *GenderExtractor) Name() string {
	return RuleTypeGender
}

func (ge *GenderExtractor) Value(req BidRequest) (string, bool) {
	if len(req.AssumedGender) == 0 {
		return "", false
	}
	labels := make([]string, 0, len(req.AssumedGender))
	for label := range req.AssumedGender {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best, bestScore := "", -1
	for _, label := range labels {
		if score := req.AssumedGender[label]; score > bestScore {
			best, bestScore = label, score
		}
	}
	return present(best)
}
