// Package embedding turns logo images into fixed-size vectors via ONNX and caches the results.
package embedding

import (
	"context"
	"image"
)

// Encoder produces a vector for an image that has already been flattened and
// resized to InputSize x InputSize.
type Encoder interface {
	Encode(ctx context.Context, img *image.RGBA) ([]float32, error)
	InputSize() int
	Dimensions() int
	Type() string
	Close() error
}

// CLIP image normalization constants.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// PixelValues lays img out as a CHW float tensor normalized with the CLIP mean and std.
// img must be size x size.
func PixelValues(img *image.RGBA, size int) []float32 {
	plane := size * size
	out := make([]float32, 3*plane)
	b := img.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			i := y*size + x
			out[i] = (float32(c.R)/255 - clipMean[0]) / clipStd[0]
			out[plane+i] = (float32(c.G)/255 - clipMean[1]) / clipStd[1]
			out[2*plane+i] = (float32(c.B)/255 - clipMean[2]) / clipStd[2]
		}
	}
	return out
}
