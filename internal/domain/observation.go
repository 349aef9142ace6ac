package domain

// Point is a landmark coordinate in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox represents face location in image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b BoundingBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Landmarks groups the facial landmark points by region. Each region keeps
// the conventional 68-point ordering: eyes have 6 points starting at the
// outer corner, the mouth starts with 12 outer-lip points.
type Landmarks struct {
	Jaw          []Point `json:"jaw,omitempty"`
	LeftEyebrow  []Point `json:"left_eyebrow,omitempty"`
	RightEyebrow []Point `json:"right_eyebrow,omitempty"`
	Nose         []Point `json:"nose,omitempty"`
	LeftEye      []Point `json:"left_eye,omitempty"`
	RightEye     []Point `json:"right_eye,omitempty"`
	Mouth        []Point `json:"mouth,omitempty"`
}

// Landmark68Count is the number of points in the conventional full layout.
const Landmark68Count = 68

// LandmarksFromPoints splits a flat 68-point array into regions. Shorter
// inputs yield empty regions for whatever is missing.
func LandmarksFromPoints(points []Point) Landmarks {
	region := func(from, to int) []Point {
		if len(points) < to {
			return nil
		}
		out := make([]Point, to-from)
		copy(out, points[from:to])
		return out
	}

	return Landmarks{
		Jaw:          region(0, 17),
		LeftEyebrow:  region(17, 22),
		RightEyebrow: region(22, 27),
		Nose:         region(27, 36),
		LeftEye:      region(36, 42),
		RightEye:     region(42, 48),
		Mouth:        region(48, 68),
	}
}

// Empty reports whether no region carries points.
func (l Landmarks) Empty() bool {
	return len(l.Jaw)+len(l.LeftEyebrow)+len(l.RightEyebrow)+len(l.Nose)+
		len(l.LeftEye)+len(l.RightEye)+len(l.Mouth) == 0
}

// FaceObservation is one detected face in one frame, as produced by a face
// locator.
type FaceObservation struct {
	BoundingBox BoundingBox        `json:"bounding_box"`
	Confidence  float64            `json:"confidence"`
	Landmarks   Landmarks          `json:"landmarks"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
}

// Expression returns the probability of the named expression, if present.
func (f *FaceObservation) Expression(name string) (float64, bool) {
	if f == nil || f.Expressions == nil {
		return 0, false
	}
	v, ok := f.Expressions[name]
	return v, ok
}

// Frame is one captured frame handed to the liveness engine. Face is nil
// when the locator found nobody; Pixels is an optional grayscale crop used
// by texture analysis.
type Frame struct {
	Face   *FaceObservation `json:"face,omitempty"`
	Pixels []uint8          `json:"pixels,omitempty"`
}

// HasFace reports whether the frame carries a detected face.
func (f Frame) HasFace() bool {
	return f.Face != nil
}

// ImageQuality is the image-level metadata reported by the imaging
// collaborator. Brightness and Sharpness are normalized to [0,1].
type ImageQuality struct {
	Brightness float64 `json:"brightness"`
	Sharpness  float64 `json:"sharpness"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
}

// ReferenceCapture is the still image metadata submitted for the final
// authentication step.
type ReferenceCapture struct {
	Face    *FaceObservation `json:"face,omitempty"`
	Quality ImageQuality     `json:"quality"`
}
