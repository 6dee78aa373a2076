package experiment

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// BidSelector is the experiment that picks the auction algorithm.
const BidSelector = "bid-selector"

const (
	// VariantControl is returned for experiments that are not configured.
	VariantControl = "control"

	anonymousIdentity = "anonymous"
	bucketCount       = 100
)

// Assigner maps an identity to a variant of a named experiment.
type Assigner interface {
	GetVariant(experiment, identity string) string
}

// Variant is one arm of an experiment. Weights are percentages.
type Variant struct {
	Label  string
	Weight int
}

// Experiment is a named set of variants whose weights sum to 100.
type Experiment struct {
	Name     string
	Variants []Variant
}

// Validate checks the experiment is usable for bucketing.
func (e Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if len(e.Variants) == 0 {
		return fmt.Errorf("experiment %s has no variants", e.Name)
	}
	total := 0
	for _, v := range e.Variants {
		if v.Weight < 0 {
			return fmt.Errorf("experiment %s: variant %s has negative weight", e.Name, v.Label)
		}
		total += v.Weight
	}
	if total != bucketCount {
		return fmt.Errorf("experiment %s: weights sum to %d, want %d", e.Name, total, bucketCount)
	}
	return nil
}

// BidSelectorExperiment returns the A/B experiment that splits traffic
// between the highest-bid (A) and random-eligible (B) algorithms. split is
// the percentage sent to A and is clamped to [0,100].
func BidSelectorExperiment(split int) Experiment {
	if split < 0 {
		split = 0
	}
	if split > bucketCount {
		split = bucketCount
	}
	return Experiment{
		Name: BidSelector,
		Variants: []Variant{
			{Label: "A", Weight: split},
			{Label: "B", Weight: bucketCount - split},
		},
	}
}

// HashAssigner assigns variants from a SHA-256 hash of experiment and
// identity, so the same identity always lands in the same variant.
type HashAssigner struct {
	experiments map[string]Experiment
}

// NewHashAssigner creates an assigner for the given experiments. Invalid
// experiments are rejected.
func NewHashAssigner(experiments ...Experiment) (*HashAssigner, error) {
	a := &HashAssigner{experiments: make(map[string]Experiment, len(experiments))}
	for _, e := range experiments {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		a.experiments[e.Name] = e
	}
	return a, nil
}

// GetVariant returns the identity's variant, or VariantControl when the
// experiment is unknown. An empty identity is bucketed as "anonymous".
func (a *HashAssigner) GetVariant(experiment, identity string) string {
	cfg, ok := a.experiments[experiment]
	if !ok {
		return VariantControl
	}
	if identity == "" {
		identity = anonymousIdentity
	}

	bucket := Bucket(experiment + ":" + identity)
	cumulative := 0
	for _, v := range cfg.Variants {
		cumulative += v.Weight
		if bucket < cumulative {
			return v.Label
		}
	}
	return cfg.Variants[len(cfg.Variants)-1].Label
}

// Bucket maps input to [0,100) using the first four bytes of its SHA-256
// digest read as a little-endian uint32.
func Bucket(input string) int {
	sum := sha256.Sum256([]byte(input))
	return int(binary.LittleEndian.Uint32(sum[:4]) % bucketCount)
}
