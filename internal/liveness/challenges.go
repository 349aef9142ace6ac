package liveness

import (
	"math"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/signal"
)

const eyeLandmarkCount = 6

// BlinkEvaluator detects closed eyes. With several frames it scores the
// first one showing both eyes.
type BlinkEvaluator struct {
	thresholds Thresholds
}

func NewBlinkEvaluator(t Thresholds) *BlinkEvaluator {
	return &BlinkEvaluator{thresholds: t}
}

func (e *BlinkEvaluator) Evaluate(frames []domain.Frame) (*domain.LivenessResult, error) {
	idx := -1
	for i, f := range frames {
		if f.HasFace() && len(f.Face.Landmarks.LeftEye) >= eyeLandmarkCount && len(f.Face.Landmarks.RightEye) >= eyeLandmarkCount {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, insufficient("blink: no frame with both eyes")
	}
	bestLeft, bestRight, bestAvg := signal.AverageEAR(frames[idx].Face.Landmarks)

	isBlink := bestAvg < e.thresholds.Blink
	confidence := signal.Clamp01(bestAvg)
	if isBlink {
		confidence = math.Max(0, (e.thresholds.Blink-bestAvg)/e.thresholds.Blink)
	}

	return &domain.LivenessResult{
		IsLive:        isBlink && confidence > e.thresholds.Liveness,
		Confidence:    confidence,
		ChallengeType: domain.ChallengeBlink,
		Metrics: map[string]float64{
			domain.MetricLeftEAR:  bestLeft,
			domain.MetricRightEAR: bestRight,
			domain.MetricAvgEAR:   bestAvg,
			domain.MetricIsBlink:  boolMetric(isBlink),
		},
	}, nil
}

// SmileEvaluator detects a smile from the "happy" expression probability,
// falling back to mouth geometry. With several frames it scores the first
// one carrying a smile signal.
type SmileEvaluator struct {
	thresholds Thresholds
}

func NewSmileEvaluator(t Thresholds) *SmileEvaluator {
	return &SmileEvaluator{thresholds: t}
}

func (e *SmileEvaluator) Evaluate(frames []domain.Frame) (*domain.LivenessResult, error) {
	found := false
	intensity := 0.0

	for _, f := range frames {
		if !f.HasFace() {
			continue
		}
		if v, ok := smileIntensity(f.Face); ok {
			intensity, found = v, true
			break
		}
	}
	if !found {
		return nil, insufficient("smile: no frame with expressions or mouth landmarks")
	}

	isSmiling := intensity > e.thresholds.Smile
	confidence := 1 - intensity
	if isSmiling {
		confidence = intensity
	}

	return &domain.LivenessResult{
		IsLive:        isSmiling && confidence > e.thresholds.Liveness,
		Confidence:    confidence,
		ChallengeType: domain.ChallengeSmile,
		Metrics: map[string]float64{
			domain.MetricSmileIntensity: intensity,
			domain.MetricIsSmiling:      boolMetric(isSmiling),
		},
	}, nil
}

func smileIntensity(face *domain.FaceObservation) (float64, bool) {
	if happy, ok := face.Expression("happy"); ok {
		return signal.Clamp01(happy), true
	}
	if len(face.Landmarks.Mouth) < 12 {
		return 0, false
	}
	return signal.MouthSmileScore(face.Landmarks.Mouth), true
}

// HeadMovementEvaluator looks for natural head motion across a temporally
// ordered sequence. Frames without a nose tip are skipped.
type HeadMovementEvaluator struct {
	thresholds Thresholds
}

func NewHeadMovementEvaluator(t Thresholds) *HeadMovementEvaluator {
	return &HeadMovementEvaluator{thresholds: t}
}

func (e *HeadMovementEvaluator) Evaluate(frames []domain.Frame) (*domain.LivenessResult, error) {
	usable := make([]domain.Landmarks, 0, len(frames))
	for _, f := range frames {
		if !f.HasFace() {
			continue
		}
		if _, ok := signal.NoseTip(f.Face.Landmarks); ok {
			usable = append(usable, f.Face.Landmarks)
		}
	}
	if len(usable) < 2 {
		return nil, insufficient("head movement: %d usable frames, need at least 2", len(usable))
	}

	magnitudes := make([]float64, 0, len(usable)-1)
	for i := 1; i < len(usable); i++ {
		magnitudes = append(magnitudes, signal.NoseDisplacement(usable[i-1], usable[i]).Magnitude)
	}

	avg, variance := signal.MeanVariance(magnitudes)
	confidence := math.Min(1, (avg+variance)/10)
	moved := avg > e.thresholds.Movement && variance > e.thresholds.MovementVariance

	return &domain.LivenessResult{
		IsLive:        moved && confidence > e.thresholds.Liveness,
		Confidence:    confidence,
		ChallengeType: domain.ChallengeHeadMovement,
		Metrics: map[string]float64{
			domain.MetricNoseDisplacement: avg,
			domain.MetricMovementVariance: variance,
			domain.MetricMovementCount:    float64(len(magnitudes)),
		},
	}, nil
}

// TextureEvaluator flags flat, low-entropy crops typical of printed photos
// and screens. It uses the first frame that carries pixels.
type TextureEvaluator struct {
	thresholds Thresholds
}

func NewTextureEvaluator(t Thresholds) *TextureEvaluator {
	return &TextureEvaluator{thresholds: t}
}

// Spoof indicators and their weights.
const (
	lowVarianceLimit = 100.0
	lowEntropyLimit  = 6.0
	lowStdDevLimit   = 10.0

	lowVarianceWeight = 0.3
	lowEntropyWeight  = 0.3
	lowStdDevWeight   = 0.4
)

func (e *TextureEvaluator) Evaluate(frames []domain.Frame) (*domain.LivenessResult, error) {
	var pixels []uint8
	for _, f := range frames {
		if len(f.Pixels) > 0 {
			pixels = f.Pixels
			break
		}
	}
	if pixels == nil {
		return nil, insufficient("texture: no frame with pixels")
	}

	stats := signal.TextureStatistics(pixels)
	score := SpoofingScore(stats)

	isLive := score < e.thresholds.Spoof
	confidence := score
	if isLive {
		confidence = 1 - score
	}

	return &domain.LivenessResult{
		IsLive:        isLive,
		Confidence:    confidence,
		ChallengeType: domain.ChallengeTexture,
		Metrics: map[string]float64{
			domain.MetricTextureMean:     stats.Mean,
			domain.MetricTextureVariance: stats.Variance,
			domain.MetricTextureStdDev:   stats.StdDev,
			domain.MetricTextureEntropy:  stats.Entropy,
			domain.MetricSpoofingScore:   score,
		},
	}, nil
}

// SpoofingScore sums the weights of the spoof indicators stats trips.
func SpoofingScore(stats signal.TextureStats) float64 {
	score := 0.0
	if stats.Variance < lowVarianceLimit {
		score += lowVarianceWeight
	}
	if stats.Entropy < lowEntropyLimit {
		score += lowEntropyWeight
	}
	if stats.StdDev < lowStdDevLimit {
		score += lowStdDevWeight
	}
	return math.Min(1, score)
}
