package liveness

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// Recommendations attached to comprehensive verdicts.
const (
	RecommendationHigh     = "High confidence liveness detected. Authentication can proceed."
	RecommendationModerate = "Moderate confidence liveness detected. Consider additional verification."
	RecommendationLow      = "Low confidence or potential spoofing detected. Additional verification required."
)

// ComprehensiveEvaluator runs every sub-check the supplied frames allow and
// combines them by majority vote.
//
// Texture needs one frame, blink (frame 0) and smile (frame 1) need two and
// head movement (frames 0-2) needs three. Sub-checks that cannot run are
// reported in Skipped and left out of the vote.
type ComprehensiveEvaluator struct {
	thresholds Thresholds
	blink      Evaluator
	smile      Evaluator
	head       Evaluator
	texture    Evaluator
}

func NewComprehensiveEvaluator(t Thresholds, blink, smile, head, texture Evaluator) *ComprehensiveEvaluator {
	return &ComprehensiveEvaluator{
		thresholds: t,
		blink:      blink,
		smile:      smile,
		head:       head,
		texture:    texture,
	}
}

type subCheck struct {
	challenge domain.ChallengeType
	evaluator Evaluator
	minFrames int
	frames    func([]domain.Frame) []domain.Frame
}

func (e *ComprehensiveEvaluator) plan() []subCheck {
	return []subCheck{
		{domain.ChallengeTexture, e.texture, 1, func(f []domain.Frame) []domain.Frame { return f }},
		{domain.ChallengeBlink, e.blink, 2, func(f []domain.Frame) []domain.Frame { return f[:1] }},
		{domain.ChallengeSmile, e.smile, 2, func(f []domain.Frame) []domain.Frame { return f[1:2] }},
		{domain.ChallengeHeadMovement, e.head, 3, func(f []domain.Frame) []domain.Frame { return f[:3] }},
	}
}

func (e *ComprehensiveEvaluator) Evaluate(frames []domain.Frame) (*domain.LivenessResult, error) {
	result := &domain.LivenessResult{
		ChallengeType: domain.ChallengeComprehensive,
		Metrics:       make(map[string]float64),
	}

	var (
		liveChecks int
		confSum    float64
	)

	for _, sc := range e.plan() {
		if sc.evaluator == nil || len(frames) < sc.minFrames {
			result.Skipped = append(result.Skipped, sc.challenge)
			continue
		}

		sub, err := sc.evaluator.Evaluate(sc.frames(frames))
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientData) {
				result.Skipped = append(result.Skipped, sc.challenge)
				continue
			}
			return nil, fmt.Errorf("comprehensive: %s: %w", sc.challenge, err)
		}

		result.Checks = append(result.Checks, domain.CheckOutcome{
			ChallengeType: sc.challenge,
			IsLive:        sub.IsLive,
			Confidence:    sub.Confidence,
		})
		for name, v := range sub.Metrics {
			result.Metrics[string(sc.challenge)+"."+name] = v
		}
		if sub.IsLive {
			liveChecks++
		}
		confSum += sub.Confidence
	}

	ran := len(result.Checks)
	if ran == 0 {
		return nil, insufficient("comprehensive: no sub-check could run on %d frames", len(frames))
	}

	overall := confSum / float64(ran)
	majority := liveChecks*2 >= ran

	result.Confidence = overall
	result.IsLive = majority && overall > e.thresholds.Liveness
	result.Metrics[domain.MetricOverallConfidence] = overall
	result.Metrics[domain.MetricLiveChecks] = float64(liveChecks)
	result.Metrics[domain.MetricTotalChecks] = float64(ran)
	result.Recommendation = recommendation(result.IsLive, majority, overall)

	return result, nil
}

// recommendation never reads better than the vote: a failed majority is
// always Low.
func recommendation(isLive, majority bool, confidence float64) string {
	switch {
	case isLive && confidence > 0.8:
		return RecommendationHigh
	case majority && confidence > 0.6:
		return RecommendationModerate
	default:
		return RecommendationLow
	}
}
