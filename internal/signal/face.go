package signal

import (
	"math"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// EyeAspectRatio computes EAR = (|p2-p6| + |p3-p5|) / (2 |p1-p4|) over the
// six canonical eye landmarks. Returns 0 for fewer than six points or a
// degenerate eye width.
func EyeAspectRatio(points []domain.Point) float64 {
	if len(points) < 6 || !finite(points[:6]...) {
		return 0
	}

	vertical1 := Distance(points[1], points[5])
	vertical2 := Distance(points[2], points[4])
	horizontal := Distance(points[0], points[3])
	if horizontal == 0 {
		return 0
	}

	return (vertical1 + vertical2) / (2 * horizontal)
}

// AverageEAR returns the left, right and mean eye aspect ratio.
func AverageEAR(l domain.Landmarks) (left, right, avg float64) {
	left = EyeAspectRatio(l.LeftEye)
	right = EyeAspectRatio(l.RightEye)
	return left, right, (left + right) / 2
}

const mouthOuterPoints = 12

// A relaxed mouth is roughly three times wider than tall; corners raised by
// a tenth of the mouth width count as a full smile.
const (
	mouthRatioScale       = 3.0
	cornerElevationScale  = 0.1
	mouthRatioWeight      = 0.7
	cornerElevationWeight = 0.3
)

// MouthSmileScore scores how much the outer lip contour looks like a smile,
// in [0,1]. It needs at least 12 outer-lip points: corners at 0 and 6, top
// centre at 3 and bottom centre at 9.
func MouthSmileScore(points []domain.Point) float64 {
	if len(points) < mouthOuterPoints || !finite(points[:mouthOuterPoints]...) {
		return 0
	}

	leftCorner, rightCorner := points[0], points[6]
	top, bottom := points[3], points[9]

	width := Distance(leftCorner, rightCorner)
	height := Distance(top, bottom)
	if width == 0 || height == 0 {
		return 0
	}

	ratioScore := Clamp01(width / height / mouthRatioScale)

	// image y grows downwards, so raised corners sit above the lip centre
	lipCentre := Midpoint(top, bottom)
	cornerMid := Midpoint(leftCorner, rightCorner)
	elevation := (lipCentre.Y - cornerMid.Y) / width
	elevationScore := Clamp01(elevation / cornerElevationScale)

	return Clamp01(mouthRatioWeight*ratioScore + cornerElevationWeight*elevationScore)
}

// Displacement is the motion of the nose tip between two observations.
type Displacement struct {
	DX        float64 `json:"dx"`
	DY        float64 `json:"dy"`
	Magnitude float64 `json:"magnitude"`
	Angle     float64 `json:"angle"`
}

const noseTipIndex = 3

// NoseTip returns the nose tip landmark, if present.
func NoseTip(l domain.Landmarks) (domain.Point, bool) {
	if len(l.Nose) <= noseTipIndex || !finite(l.Nose[noseTipIndex]) {
		return domain.Point{}, false
	}
	return l.Nose[noseTipIndex], true
}

// NoseDisplacement measures how far the nose tip moved from prev to curr.
// Angle is in degrees. Zero when either side lacks a nose tip.
func NoseDisplacement(prev, curr domain.Landmarks) Displacement {
	a, ok := NoseTip(prev)
	if !ok {
		return Displacement{}
	}
	b, ok := NoseTip(curr)
	if !ok {
		return Displacement{}
	}

	dx := b.X - a.X
	dy := b.Y - a.Y
	return Displacement{
		DX:        dx,
		DY:        dy,
		Magnitude: math.Hypot(dx, dy),
		Angle:     Degrees(math.Atan2(dy, dx)),
	}
}
