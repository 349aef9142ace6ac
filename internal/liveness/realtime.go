package liveness

import (
	"math"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/signal"
)

const (
	realtimeLiveScore = 0.5
	maxFeedbackAngle  = 45.0
)

// RealTimeEvaluator gives instant single-frame feedback while the user is
// positioning for a challenge. It is advisory and never changes a session.
type RealTimeEvaluator struct{}

func NewRealTimeEvaluator() *RealTimeEvaluator {
	return &RealTimeEvaluator{}
}

// Evaluate scores eye openness, head level and expression variation. A
// frame without a face is not live with zero confidence.
func (e *RealTimeEvaluator) Evaluate(frame domain.Frame) *domain.LivenessResult {
	result := &domain.LivenessResult{
		ChallengeType: domain.ChallengeRealtime,
		Metrics:       make(map[string]float64),
	}
	if !frame.HasFace() {
		return result
	}

	_, _, openness := signal.AverageEAR(frame.Face.Landmarks)
	angle, _ := signal.Roll(frame.Face.Landmarks)
	variation := expressionVariation(frame.Face.Expressions)

	anglePart := math.Max(0, 1-math.Abs(angle)/maxFeedbackAngle)
	score := signal.Clamp01((openness + variation + anglePart) / 3)

	result.Confidence = score
	result.IsLive = score > realtimeLiveScore
	result.Metrics[domain.MetricEyeOpenness] = openness
	result.Metrics[domain.MetricFaceAngle] = angle
	result.Metrics[domain.MetricExpressionVariance] = variation
	return result
}

func expressionVariation(expressions map[string]float64) float64 {
	if len(expressions) == 0 {
		return 0
	}
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, v := range expressions {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}
