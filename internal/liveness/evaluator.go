// Package liveness evaluates liveness challenges over captured frames.
package liveness

import (
	"fmt"
	"sync"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// Evaluator decides whether a set of frames passes one challenge.
type Evaluator interface {
	Evaluate(frames []domain.Frame) (*domain.LivenessResult, error)
}

// Thresholds are the tunable decision boundaries of the evaluators.
type Thresholds struct {
	// Blink is the average eye aspect ratio below which the eyes count as
	// closed.
	Blink float64
	// Smile is the intensity above which a smile is detected.
	Smile float64
	// Movement is the minimum average nose displacement in pixels.
	Movement float64
	// MovementVariance is the minimum variance of the displacements; it
	// rejects constant drift.
	MovementVariance float64
	// Spoof is the spoofing score below which texture looks live.
	Spoof float64
	// Liveness is the confidence a verdict must exceed to count as live.
	Liveness float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Blink:            0.25,
		Smile:            0.6,
		Movement:         5,
		MovementVariance: 2,
		Spoof:            0.5,
		Liveness:         0.7,
	}
}

// Registry maps challenge types to their evaluators.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[domain.ChallengeType]Evaluator
}

// NewRegistry returns a registry with every built-in challenge.
func NewRegistry(t Thresholds) *Registry {
	blink := NewBlinkEvaluator(t)
	smile := NewSmileEvaluator(t)
	head := NewHeadMovementEvaluator(t)
	texture := NewTextureEvaluator(t)

	r := &Registry{evaluators: make(map[domain.ChallengeType]Evaluator)}
	r.Register(domain.ChallengeBlink, blink)
	r.Register(domain.ChallengeSmile, smile)
	r.Register(domain.ChallengeHeadMovement, head)
	r.Register(domain.ChallengeTexture, texture)
	r.Register(domain.ChallengeComprehensive, NewComprehensiveEvaluator(t, blink, smile, head, texture))
	return r
}

// Register adds or replaces the evaluator for ct.
func (r *Registry) Register(ct domain.ChallengeType, e Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[ct] = e
}

// Get returns the evaluator for ct.
func (r *Registry) Get(ct domain.ChallengeType) (Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.evaluators[ct]
	if !ok {
		return nil, domain.ErrInvalidChallengeType.WithError(fmt.Errorf("no evaluator for %q", ct))
	}
	return e, nil
}

// Evaluate dispatches frames to the evaluator registered for ct.
func (r *Registry) Evaluate(ct domain.ChallengeType, frames []domain.Frame) (*domain.LivenessResult, error) {
	e, err := r.Get(ct)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(frames)
}

func insufficient(format string, args ...any) error {
	return domain.ErrInsufficientData.WithError(fmt.Errorf(format, args...))
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
