package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/rwcarlsen/goexif/exif"
	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultQuality is the JPEG quality used for re-encoded uploads.
	DefaultQuality = 85

	// DefaultUploadMaxDimension bounds the longest side of optimized uploads.
	DefaultUploadMaxDimension = 2048
)

// DefaultThumbnailSizes are the square thumbnail variants generated per image.
var DefaultThumbnailSizes = []int{128, 256, 512}

// Optimize prepares an image for storage: applies the embedded EXIF
// orientation, composites any transparency onto white, downsamples so the
// longest side is at most maxDim, and re-encodes as JPEG at the given
// quality.
func Optimize(data []byte, quality, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = applyOrientation(img, readOrientation(data))
	img = flattenOnWhite(img)
	img = downsample(img, maxDim, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnails generates one square-bounded JPEG variant per requested size.
// The returned map is keyed by "{size}x{size}".
func Thumbnails(data []byte, sizes []int) (map[string][]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img = applyOrientation(img, readOrientation(data))
	img = flattenOnWhite(img)

	thumbs := make(map[string][]byte, len(sizes))
	for _, size := range sizes {
		scaled := downsample(img, size, size)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: DefaultQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode %d thumbnail: %w", size, err)
		}
		thumbs[fmt.Sprintf("%dx%d", size, size)] = buf.Bytes()
	}
	return thumbs, nil
}

// readOrientation extracts the EXIF orientation tag, defaulting to 1
// (upright) when metadata is absent or unreadable.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation normalizes an image to upright per the EXIF orientation
// values 1-8.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return flipHorizontal(img)
	case 3:
		return rotate180(img)
	case 4:
		return flipHorizontal(rotate180(img))
	case 5:
		return flipHorizontal(rotate270(img))
	case 6:
		return rotate90(img)
	case 7:
		return flipHorizontal(rotate90(img))
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

// flattenOnWhite composites a possibly-transparent image onto a white
// background, yielding an opaque RGBA image.
func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)
	return out
}

// downsample scales the image down so it fits within maxW x maxH, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func downsample(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, bounds, xdraw.Over, nil)
	return out
}

func rotate90(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(h-1-y, x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

func rotate180(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, h-1-y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

func rotate270(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(y, w-1-x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

func flipHorizontal(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}
