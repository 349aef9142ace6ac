// Package decision fuses capture quality and liveness confidence into the
// final authentication verdict.
package decision

import (
	"fmt"
	"math"
)

// DefaultThreshold is the score an authentication must exceed.
const DefaultThreshold = 0.7

// Decision is the outcome of a policy.
type Decision struct {
	Score         float64 `json:"score"`
	Authenticated bool    `json:"authenticated"`
}

// Policy turns a quality score and a liveness confidence into a decision.
type Policy interface {
	Decide(qualityScore, livenessConfidence float64) Decision
}

// MeanPolicy averages both inputs.
type MeanPolicy struct {
	Threshold float64
}

func (p MeanPolicy) Decide(qualityScore, livenessConfidence float64) Decision {
	return decide((qualityScore+livenessConfidence)/2, p.Threshold)
}

// WeightedPolicy gives QualityWeight to quality and the remainder to
// liveness.
type WeightedPolicy struct {
	Threshold     float64
	QualityWeight float64
}

func (p WeightedPolicy) Decide(qualityScore, livenessConfidence float64) Decision {
	w := math.Max(0, math.Min(1, p.QualityWeight))
	return decide(w*qualityScore+(1-w)*livenessConfidence, p.Threshold)
}

// MinimumPolicy requires both inputs to clear the threshold.
type MinimumPolicy struct {
	Threshold float64
}

func (p MinimumPolicy) Decide(qualityScore, livenessConfidence float64) Decision {
	return decide(math.Min(qualityScore, livenessConfidence), p.Threshold)
}

func decide(score, threshold float64) Decision {
	return Decision{
		Score:         score,
		Authenticated: score > threshold,
	}
}

// Policy names accepted by New.
const (
	PolicyMean     = "mean"
	PolicyWeighted = "weighted"
	PolicyMinimum  = "minimum"
)

// New builds the named policy.
func New(name string, threshold, qualityWeight float64) (Policy, error) {
	switch name {
	case "", PolicyMean:
		return MeanPolicy{Threshold: threshold}, nil
	case PolicyWeighted:
		return WeightedPolicy{Threshold: threshold, QualityWeight: qualityWeight}, nil
	case PolicyMinimum:
		return MinimumPolicy{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown decision policy %q", name)
	}
}
