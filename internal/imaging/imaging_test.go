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

func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidJPEG(t *testing.T, c color.RGBA, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestNormalize_ShapeAndFormats(t *testing.T) {
	for name, raw := range map[string][]byte{
		"png":  gradientPNG(t, 640, 480),
		"jpeg": solidJPEG(t, color.RGBA{R: 120, G: 80, B: 40, A: 255}, 100, 100),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Normalize(raw)
			require.NoError(t, err)
			assert.Len(t, data, TensorLen)
		})
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	raw := gradientPNG(t, 300, 200)

	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same bytes must yield a bit-identical tensor")
}

func TestNormalize_MeanSubtraction(t *testing.T) {
	// A uniform image stays uniform through resampling, so every plane value
	// is its channel intensity minus the channel mean.
	raw := solidJPEG(t, color.RGBA{R: 200, G: 150, B: 100, A: 255}, 224, 224)

	data, err := Normalize(raw)
	require.NoError(t, err)

	plane := Size * Size
	// JPEG encoding may shift intensities by a point or two.
	assert.InDelta(t, 100-meanBlue, data[0], 3)
	assert.InDelta(t, 150-meanGreen, data[plane], 3)
	assert.InDelta(t, 200-meanRed, data[2*plane], 3)
}

func TestNormalize_DropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	data, err := Normalize(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, data, TensorLen)
}

func TestNormalize_RejectsNonImageBytes(t *testing.T) {
	for name, raw := range map[string][]byte{
		"text":      []byte("definitely not an image"),
		"empty":     {},
		"truncated": gradientPNG(t, 100, 100)[:40],
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Normalize(raw)
			require.ErrorIs(t, err, ErrDecode)
			assert.Nil(t, data, "no partial tensor on decode failure")
		})
	}
}
