package domain

// ChallengeType identifies the liveness challenge a session must pass.
type ChallengeType string

const (
	ChallengeBlink         ChallengeType = "blink"
	ChallengeSmile         ChallengeType = "smile"
	ChallengeHeadMovement  ChallengeType = "head_movement"
	ChallengeComprehensive ChallengeType = "comprehensive"
	// ChallengeTexture is evaluated as a sub-check and by the stateless
	// endpoint; sessions are never assigned it.
	ChallengeTexture ChallengeType = "texture"
	// ChallengeRealtime tags single-frame positioning feedback.
	ChallengeRealtime ChallengeType = "realtime"
)

// SessionChallenges lists the challenge types a session may be assigned.
var SessionChallenges = []ChallengeType{
	ChallengeBlink,
	ChallengeSmile,
	ChallengeHeadMovement,
	ChallengeComprehensive,
}

// ParseChallengeType validates a challenge type name.
func ParseChallengeType(s string) (ChallengeType, error) {
	switch ct := ChallengeType(s); ct {
	case ChallengeBlink, ChallengeSmile, ChallengeHeadMovement, ChallengeComprehensive, ChallengeTexture:
		return ct, nil
	default:
		return "", ErrInvalidChallengeType
	}
}

// IsSessionChallenge reports whether a session may be assigned ct.
func (ct ChallengeType) IsSessionChallenge() bool {
	for _, c := range SessionChallenges {
		if c == ct {
			return true
		}
	}
	return false
}

// MinFrames is the number of frames a submission must carry for the
// challenge to be evaluated.
func (ct ChallengeType) MinFrames() int {
	if ct == ChallengeHeadMovement {
		return 3
	}
	return 1
}

// Metric names recorded in LivenessResult.Metrics.
const (
	MetricLeftEAR            = "leftEAR"
	MetricRightEAR           = "rightEAR"
	MetricAvgEAR             = "avgEAR"
	MetricIsBlink            = "isBlink"
	MetricSmileIntensity     = "smileIntensity"
	MetricIsSmiling          = "isSmiling"
	MetricNoseDisplacement   = "noseDisplacementPx"
	MetricMovementVariance   = "movementVariance"
	MetricMovementCount      = "movementCount"
	MetricTextureMean        = "textureMean"
	MetricTextureVariance    = "textureVariance"
	MetricTextureStdDev      = "textureStdDev"
	MetricTextureEntropy     = "textureEntropy"
	MetricSpoofingScore      = "spoofingScore"
	MetricOverallConfidence  = "overallConfidence"
	MetricLiveChecks         = "liveChecks"
	MetricTotalChecks        = "totalChecks"
	MetricEyeOpenness        = "eyeOpenness"
	MetricFaceAngle          = "faceAngle"
	MetricExpressionVariance = "expressionVariation"
)

// CheckOutcome is one sub-check of a comprehensive evaluation.
type CheckOutcome struct {
	ChallengeType ChallengeType `json:"challenge_type"`
	IsLive        bool          `json:"is_live"`
	Confidence    float64       `json:"confidence"`
}

// LivenessResult is the verdict of a liveness evaluator.
type LivenessResult struct {
	IsLive         bool               `json:"is_live"`
	Confidence     float64            `json:"confidence"`
	ChallengeType  ChallengeType      `json:"challenge_type"`
	Metrics        map[string]float64 `json:"metrics"`
	Checks         []CheckOutcome     `json:"checks,omitempty"`
	Skipped        []ChallengeType    `json:"skipped,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
}

// Clone returns a deep copy.
func (r *LivenessResult) Clone() *LivenessResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Metrics != nil {
		c.Metrics = make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			c.Metrics[k] = v
		}
	}
	c.Checks = append([]CheckOutcome(nil), r.Checks...)
	c.Skipped = append([]ChallengeType(nil), r.Skipped...)
	return &c
}

// Instructions are the user-facing directions for a challenge.
type Instructions struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

var instructionsByChallenge = map[ChallengeType]Instructions{
	ChallengeBlink: {
		Title:       "Eye Blink Challenge",
		Description: "Please blink your eyes naturally while looking at the camera",
		Steps: []string{
			"Position your face clearly in the camera frame",
			"Look directly at the camera",
			"Blink your eyes naturally",
			"Keep your head still during the process",
		},
	},
	ChallengeSmile: {
		Title:       "Smile Challenge",
		Description: "Please smile naturally while looking at the camera",
		Steps: []string{
			"Position your face clearly in the camera frame",
			"Look directly at the camera",
			"Smile naturally",
			"Hold the smile for a moment",
		},
	},
	ChallengeHeadMovement: {
		Title:       "Head Movement Challenge",
		Description: "Please move your head slightly while looking at the camera",
		Steps: []string{
			"Position your face clearly in the camera frame",
			"Look directly at the camera",
			"Move your head slightly left and right",
			"Keep movements natural and gentle",
		},
	},
	ChallengeComprehensive: {
		Title:       "Comprehensive Liveness Check",
		Description: "Please perform natural movements while looking at the camera",
		Steps: []string{
			"Position your face clearly in the camera frame",
			"Look directly at the camera",
			"Blink naturally",
			"Smile briefly",
			"Make slight head movements",
		},
	},
}

// InstructionsFor returns a copy of the directions for ct.
func InstructionsFor(ct ChallengeType) Instructions {
	in, ok := instructionsByChallenge[ct]
	if !ok {
		return Instructions{
			Title:       "Liveness Check",
			Description: "Please look at the camera",
			Steps:       []string{"Position your face clearly in the camera frame"},
		}
	}
	in.Steps = append([]string(nil), in.Steps...)
	return in
}
