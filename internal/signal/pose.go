package signal

import (
	"math"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// Pose is the head orientation in degrees. Zero on every axis is a frontal
// face.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// neutralNoseRatio is where the nose tip sits along the eye-to-mouth axis on
// a face looking straight at the camera.
const neutralNoseRatio = 0.55

// Roll returns the in-plane tilt from the outer eye corners.
func Roll(l domain.Landmarks) (float64, bool) {
	if len(l.LeftEye) < 1 || len(l.RightEye) < 4 {
		return 0, false
	}
	a, b := l.LeftEye[0], l.RightEye[3]
	if !finite(a, b) || a == b {
		return 0, false
	}
	return Degrees(math.Atan2(b.Y-a.Y, b.X-a.X)), true
}

// HeadPose estimates yaw, pitch and roll from 2D landmarks. Roll comes from
// the outer eye corners; yaw from the eye-centre-to-nose vector and pitch
// from the nose offset along the eye-centre-to-mouth-centre vector, both
// measured after undoing the roll.
func HeadPose(l domain.Landmarks) (Pose, bool) {
	roll, ok := Roll(l)
	if !ok {
		return Pose{}, false
	}
	tip, ok := NoseTip(l)
	if !ok || len(l.Mouth) == 0 {
		return Pose{}, false
	}

	eyeCentre := Midpoint(l.LeftEye[0], l.RightEye[3])
	mouthCentre := Centroid(l.Mouth)
	if !finite(mouthCentre) {
		return Pose{}, false
	}

	theta := roll * math.Pi / 180
	derotate := func(p domain.Point) domain.Point {
		x, y := p.X-eyeCentre.X, p.Y-eyeCentre.Y
		return domain.Point{
			X: x*math.Cos(theta) + y*math.Sin(theta),
			Y: -x*math.Sin(theta) + y*math.Cos(theta),
		}
	}

	toNose := derotate(tip)
	toMouth := derotate(mouthCentre)
	if toMouth.Y <= 0 {
		return Pose{}, false
	}

	return Pose{
		Yaw:   Degrees(math.Atan2(toNose.X, toNose.Y)),
		Pitch: Degrees(math.Atan2(toNose.Y-neutralNoseRatio*toMouth.Y, toMouth.Y)),
		Roll:  roll,
	}, true
}
