// Package imaging converts uploaded image bytes into the input tensor of the
// classifier.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Geometry and layout of the classifier input: one 3x224x224 image, channel
// planes first (NCHW).
const (
	Size      = 224
	Channels  = 3
	TensorLen = Channels * Size * Size
)

// ErrDecode reports that the uploaded bytes are not a decodable image.
var ErrDecode = errors.New("undecodable image")

// Per-channel means of the ImageNet training set. The exported ResNet50 was
// trained with Keras "caffe" preprocessing: 0-255 intensities in B,G,R plane
// order with these means subtracted and no further scaling.
const (
	meanBlue  = 103.939
	meanGreen = 116.779
	meanRed   = 123.68
)

// Normalize decodes raw image bytes and produces the model input tensor.
// Alpha and color-profile metadata are discarded. Resampling is Lanczos3 at a
// fixed target size, so the same input bytes always yield the same tensor.
func Normalize(raw []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := resize.Resize(Size, Size, img, resize.Lanczos3)

	data := make([]float32, TensorLen)
	plane := Size * Size
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()

			i := y*Size + x
			data[i] = float32(b>>8) - meanBlue
			data[plane+i] = float32(g>>8) - meanGreen
			data[2*plane+i] = float32(r>>8) - meanRed
		}
	}

	return data, nil
}
