package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"valid png", makePNG(t, 10, 10, color.White), false},
		{"valid jpeg", makeJPEG(t, 10, 10), false},
		{"empty", nil, true},
		{"garbage", []byte("definitely not an image"), true},
		{"truncated png", makePNG(t, 10, 10, color.White)[:20], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSizeLimit(t *testing.T) {
	v := &Validator{MaxBytes: 50, MaxDimension: DefaultMaxDimension}

	err := v.Validate(makeJPEG(t, 100, 100))
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Contains(t, err.Error(), "bytes")
}

func TestValidateDimensionLimit(t *testing.T) {
	v := &Validator{MaxBytes: DefaultMaxBytes, MaxDimension: 32}

	assert.NoError(t, v.Validate(makeJPEG(t, 32, 32)))

	err := v.Validate(makeJPEG(t, 33, 10))
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Contains(t, err.Error(), "dimension")
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIME(makePNG(t, 4, 4, color.White)))
	assert.Equal(t, "image/jpeg", DetectMIME(makeJPEG(t, 4, 4)))
	assert.Equal(t, "", DetectMIME([]byte("nope")))
}

func TestOptimizeDownsamples(t *testing.T) {
	data := makeJPEG(t, 400, 200)

	out, err := Optimize(data, DefaultQuality, 100)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestOptimizeKeepsSmallImages(t *testing.T) {
	data := makeJPEG(t, 40, 30)

	out, err := Optimize(data, DefaultQuality, 100)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestOptimizeFlattensTransparency(t *testing.T) {
	data := makePNG(t, 16, 16, color.RGBA{0, 0, 0, 0}) // fully transparent

	out, err := Optimize(data, DefaultQuality, 100)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := img.At(8, 8).RGBA()
	// Transparent input composites onto white (allowing JPEG loss)
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestOptimizeRejectsGarbage(t *testing.T) {
	_, err := Optimize([]byte("garbage"), DefaultQuality, 100)
	assert.Error(t, err)
}

func TestThumbnails(t *testing.T) {
	data := makeJPEG(t, 600, 400)

	thumbs, err := Thumbnails(data, []int{128, 256})
	require.NoError(t, err)
	require.Len(t, thumbs, 2)

	for label, size := range map[string]int{"128x128": 128, "256x256": 256} {
		thumb, ok := thumbs[label]
		require.True(t, ok, "missing %s", label)

		cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
		require.NoError(t, err)
		assert.LessOrEqual(t, cfg.Width, size)
		assert.LessOrEqual(t, cfg.Height, size)
	}
}

func TestApplyOrientation(t *testing.T) {
	// 2x1 image: red on the left, blue on the right
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	img.Set(0, 0, red)
	img.Set(1, 0, blue)

	t.Run("rotate 180 swaps ends", func(t *testing.T) {
		out := applyOrientation(img, 3)
		assert.Equal(t, blue, out.At(0, 0))
		assert.Equal(t, red, out.At(1, 0))
	})

	t.Run("rotate 90 turns landscape to portrait", func(t *testing.T) {
		out := applyOrientation(img, 6)
		b := out.Bounds()
		assert.Equal(t, 1, b.Dx())
		assert.Equal(t, 2, b.Dy())
	})

	t.Run("mirror swaps ends", func(t *testing.T) {
		out := applyOrientation(img, 2)
		assert.Equal(t, blue, out.At(0, 0))
	})

	t.Run("upright is unchanged", func(t *testing.T) {
		out := applyOrientation(img, 1)
		assert.Equal(t, red, out.At(0, 0))
	})
}
