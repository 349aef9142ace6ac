// Package imaging decodes uploaded images and derives the image-level
// measurements the liveness and quality engines consume.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

const (
	// CropSize is the edge length of the grayscale face crop.
	CropSize = 224

	// MaxImageBytes bounds uploads accepted for decoding.
	MaxImageBytes = 10 * 1024 * 1024

	// laplacianScale maps Laplacian variance onto [0,1]; sharp webcam
	// frames sit well above it.
	laplacianScale = 500.0
)

// Decode parses a JPEG, PNG or WebP image.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidImage
	}
	if len(data) > MaxImageBytes {
		return nil, domain.ErrInvalidImage.WithError(
			fmt.Errorf("image too large (%d bytes, maximum %d)", len(data), MaxImageBytes))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("decode image: %w", err))
	}
	return img, nil
}

// Dimensions reads only the image header.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, domain.ErrInvalidImage.WithError(fmt.Errorf("decode image header: %w", err))
	}
	return cfg.Width, cfg.Height, nil
}

// Analyze measures brightness (mean luminance) and sharpness (variance of
// the 4-neighbour Laplacian), both normalized to [0,1].
func Analyze(img image.Image) domain.ImageQuality {
	gray := toGray(img)
	b := gray.Bounds()

	q := domain.ImageQuality{Width: b.Dx(), Height: b.Dy()}
	if b.Empty() {
		return q
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += float64(gray.GrayAt(x, y).Y)
		}
	}
	q.Brightness = sum / float64(b.Dx()*b.Dy()) / 255

	if b.Dx() < 3 || b.Dy() < 3 {
		return q
	}

	var n, mean, m2 float64
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			lap := 4*float64(gray.GrayAt(x, y).Y) -
				float64(gray.GrayAt(x-1, y).Y) - float64(gray.GrayAt(x+1, y).Y) -
				float64(gray.GrayAt(x, y-1).Y) - float64(gray.GrayAt(x, y+1).Y)
			n++
			d := lap - mean
			mean += d / n
			m2 += d * (lap - mean)
		}
	}
	q.Sharpness = math.Min(1, (m2/n)/laplacianScale)
	return q
}

// FaceCrop cuts the bounding box out of img and scales it to a
// CropSize×CropSize grayscale buffer in row-major order. The box is clipped
// to the image; nil is returned when nothing remains.
func FaceCrop(img image.Image, box domain.BoundingBox) []uint8 {
	rect := image.Rect(
		int(math.Floor(box.X)),
		int(math.Floor(box.Y)),
		int(math.Ceil(box.X+box.Width)),
		int(math.Ceil(box.Y+box.Height)),
	).Add(img.Bounds().Min).Intersect(img.Bounds())
	if rect.Empty() {
		return nil
	}

	dst := image.NewGray(image.Rect(0, 0, CropSize, CropSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, rect, xdraw.Src, nil)

	out := make([]uint8, len(dst.Pix))
	copy(out, dst.Pix)
	return out
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x, y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return gray
}
