package rekognition

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// Rekognition reports a sparse set of named landmarks. The regions below
// rebuild the point layout the signal extractors expect (six points per eye,
// nose tip at index 3, twelve outer-lip points) by interpolating between
// the named points. Coordinates are image ratios and are scaled to pixels.
type landmarkSet map[string]domain.Point

func newLandmarkSet(landmarks []types.Landmark, width, height int) landmarkSet {
	set := make(landmarkSet, len(landmarks))
	for _, lm := range landmarks {
		if lm.X == nil || lm.Y == nil {
			continue
		}
		set[string(lm.Type)] = domain.Point{
			X: float64(*lm.X) * float64(width),
			Y: float64(*lm.Y) * float64(height),
		}
	}
	return set
}

func (s landmarkSet) get(names ...string) ([]domain.Point, bool) {
	out := make([]domain.Point, len(names))
	for i, name := range names {
		p, ok := s[name]
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

func lerp(a, b domain.Point, t float64) domain.Point {
	return domain.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// leftToRight orders two points by x.
func leftToRight(a, b domain.Point) (domain.Point, domain.Point) {
	if a.X > b.X {
		return b, a
	}
	return a, b
}

// eye returns p1..p6: the corners at 0 and 3, upper lid at 1 and 2, lower
// lid at 4 and 5.
func (s landmarkSet) eye(prefix string) []domain.Point {
	pts, ok := s.get(prefix+"Left", prefix+"Up", prefix+"Right", prefix+"Down")
	if !ok {
		return nil
	}
	left, right := leftToRight(pts[0], pts[2])
	up, down := pts[1], pts[3]

	x1 := left.X + (right.X-left.X)/3
	x2 := left.X + 2*(right.X-left.X)/3
	return []domain.Point{
		left,
		{X: x1, Y: up.Y},
		{X: x2, Y: up.Y},
		right,
		{X: x2, Y: down.Y},
		{X: x1, Y: down.Y},
	}
}

func (s landmarkSet) eyebrow(prefix string) []domain.Point {
	pts, ok := s.get(prefix+"Left", prefix+"Up", prefix+"Right")
	if !ok {
		return nil
	}
	left, right := leftToRight(pts[0], pts[2])
	return []domain.Point{left, lerp(left, pts[1], 0.5), pts[1], lerp(pts[1], right, 0.5), right}
}

// nose returns four bridge points ending at the tip and five nostril points.
func (s landmarkSet) nose() []domain.Point {
	pts, ok := s.get("eyeLeft", "eyeRight", "nose", "noseLeft", "noseRight")
	if !ok {
		return nil
	}
	top := lerp(pts[0], pts[1], 0.5)
	tip := pts[2]
	left, right := leftToRight(pts[3], pts[4])

	out := make([]domain.Point, 0, 9)
	for i := 0; i < 4; i++ {
		out = append(out, lerp(top, tip, float64(i)/3))
	}
	for i := 0; i < 5; i++ {
		out = append(out, lerp(left, right, float64(i)/4))
	}
	return out
}

// mouth returns the twelve outer-lip points clockwise from the left corner.
func (s landmarkSet) mouth() []domain.Point {
	pts, ok := s.get("mouthLeft", "mouthUp", "mouthRight", "mouthDown")
	if !ok {
		return nil
	}
	left, right := leftToRight(pts[0], pts[2])
	up, down := pts[1], pts[3]

	out := make([]domain.Point, 0, 12)
	for _, seg := range [][2]domain.Point{{left, up}, {up, right}, {right, down}, {down, left}} {
		for i := 0; i < 3; i++ {
			out = append(out, lerp(seg[0], seg[1], float64(i)/3))
		}
	}
	return out
}

func (s landmarkSet) landmarks() domain.Landmarks {
	l := domain.Landmarks{
		LeftEyebrow:  s.eyebrow("leftEyeBrow"),
		RightEyebrow: s.eyebrow("rightEyeBrow"),
		Nose:         s.nose(),
		LeftEye:      s.eye("leftEye"),
		RightEye:     s.eye("rightEye"),
		Mouth:        s.mouth(),
	}

	// Regions follow image order: LeftEye is the one further left.
	if len(l.LeftEye) > 0 && len(l.RightEye) > 0 && l.LeftEye[0].X > l.RightEye[0].X {
		l.LeftEye, l.RightEye = l.RightEye, l.LeftEye
		l.LeftEyebrow, l.RightEyebrow = l.RightEyebrow, l.LeftEyebrow
	}
	return l
}

// expressions converts Rekognition emotions (0-100) into probabilities.
// CALM is reported as neutral.
func expressions(detail types.FaceDetail) map[string]float64 {
	out := make(map[string]float64, len(detail.Emotions))
	for _, e := range detail.Emotions {
		if e.Confidence == nil || e.Type == types.EmotionNameUnknown {
			continue
		}
		name := strings.ToLower(string(e.Type))
		if e.Type == types.EmotionNameCalm {
			name = "neutral"
		}
		out[name] = float64(*e.Confidence) / 100
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
