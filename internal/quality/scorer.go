// Package quality scores how suitable a capture is for authentication.
package quality

import (
	"math"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/signal"
)

// Recommendation texts returned to the caller.
const (
	RecommendOverall   = "Overall image quality needs improvement"
	RecommendTooDark   = "Image is too dark - improve lighting"
	RecommendTooBright = "Image is too bright - reduce lighting"
	RecommendBlurry    = "Image is blurry - ensure camera is in focus"
	RecommendFrontal   = "Face should be more frontal - look directly at camera"
	RecommendYaw       = "Turn face more towards camera (reduce head turn)"
	RecommendPitch     = "Adjust head tilt (look straight ahead)"
	RecommendRoll      = "Keep head level (reduce head tilt)"
	RecommendTooSmall  = "Move closer to the camera"
	RecommendTooLarge  = "Move further from the camera"
	RecommendGood      = "Image quality is good for authentication"
)

// Config holds the scoring weights and advisory limits.
type Config struct {
	DetectionWeight  float64
	BrightnessWeight float64
	SharpnessWeight  float64
	PoseWeight       float64

	// MaxPoseAngle bounds |yaw|, |pitch| and |roll| of a frontal face.
	MaxPoseAngle float64
	// NonFrontalPoseScore is the pose component for non-frontal or unknown
	// poses.
	NonFrontalPoseScore float64

	MinScore     float64
	DarkLimit    float64
	BrightLimit  float64
	BlurLimit    float64
	MaxYaw       float64
	MaxPitch     float64
	MaxRoll      float64
	MinFaceRatio float64
	MaxFaceRatio float64
}

func DefaultConfig() Config {
	return Config{
		DetectionWeight:     0.4,
		BrightnessWeight:    0.2,
		SharpnessWeight:     0.2,
		PoseWeight:          0.2,
		MaxPoseAngle:        15,
		NonFrontalPoseScore: 0.5,
		MinScore:            0.7,
		DarkLimit:           0.3,
		BrightLimit:         0.7,
		BlurLimit:           0.5,
		MaxYaw:              20,
		MaxPitch:            20,
		MaxRoll:             15,
		MinFaceRatio:        0.05,
		MaxFaceRatio:        0.8,
	}
}

// Assessment is the advisory quality verdict for one capture.
type Assessment struct {
	Score               float64      `json:"score"`
	DetectionConfidence float64      `json:"detection_confidence"`
	Brightness          float64      `json:"brightness"`
	Sharpness           float64      `json:"sharpness"`
	Pose                *signal.Pose `json:"pose,omitempty"`
	Frontal             bool         `json:"frontal"`
	FaceRatio           float64      `json:"face_ratio,omitempty"`
	Recommendations     []string     `json:"recommendations"`
}

// Acceptable reports whether the capture meets the minimum score.
func (a Assessment) Acceptable(threshold float64) bool {
	return a.Score >= threshold
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Assess combines detector confidence, brightness, sharpness and pose into
// a score in [0,1]. A nil face scores on image metrics alone.
func (s *Scorer) Assess(face *domain.FaceObservation, img domain.ImageQuality) Assessment {
	a := Assessment{
		Brightness: signal.Clamp01(img.Brightness),
		Sharpness:  signal.Clamp01(img.Sharpness),
	}

	poseScore := s.cfg.NonFrontalPoseScore
	if face != nil {
		a.DetectionConfidence = signal.Clamp01(face.Confidence)
		if pose, ok := signal.HeadPose(face.Landmarks); ok {
			a.Pose = &pose
			a.Frontal = math.Abs(pose.Yaw) < s.cfg.MaxPoseAngle &&
				math.Abs(pose.Pitch) < s.cfg.MaxPoseAngle &&
				math.Abs(pose.Roll) < s.cfg.MaxPoseAngle
			if a.Frontal {
				poseScore = 1
			}
		}
		if img.Width > 0 && img.Height > 0 {
			a.FaceRatio = face.BoundingBox.Area() / float64(img.Width*img.Height)
		}
	}

	brightnessScore := 1 - math.Abs(a.Brightness-0.5)*2
	sharpnessScore := math.Min(1, a.Sharpness*2)

	a.Score = signal.Clamp01(a.DetectionConfidence*s.cfg.DetectionWeight +
		brightnessScore*s.cfg.BrightnessWeight +
		sharpnessScore*s.cfg.SharpnessWeight +
		poseScore*s.cfg.PoseWeight)
	a.Recommendations = s.recommend(a, face != nil)

	return a
}

func (s *Scorer) recommend(a Assessment, hasFace bool) []string {
	var out []string

	if a.Score < s.cfg.MinScore {
		out = append(out, RecommendOverall)
	}
	if a.Brightness < s.cfg.DarkLimit {
		out = append(out, RecommendTooDark)
	} else if a.Brightness > s.cfg.BrightLimit {
		out = append(out, RecommendTooBright)
	}
	if a.Sharpness < s.cfg.BlurLimit {
		out = append(out, RecommendBlurry)
	}

	if hasFace && a.Pose != nil {
		if !a.Frontal {
			out = append(out, RecommendFrontal)
		}
		if math.Abs(a.Pose.Yaw) > s.cfg.MaxYaw {
			out = append(out, RecommendYaw)
		}
		if math.Abs(a.Pose.Pitch) > s.cfg.MaxPitch {
			out = append(out, RecommendPitch)
		}
		if math.Abs(a.Pose.Roll) > s.cfg.MaxRoll {
			out = append(out, RecommendRoll)
		}
	}

	if a.FaceRatio > 0 {
		if a.FaceRatio < s.cfg.MinFaceRatio {
			out = append(out, RecommendTooSmall)
		} else if a.FaceRatio > s.cfg.MaxFaceRatio {
			out = append(out, RecommendTooLarge)
		}
	}

	if len(out) == 0 {
		out = append(out, RecommendGood)
	}
	return out
}
