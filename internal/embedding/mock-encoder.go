package embedding

import (
	"context"
	"image"
)

// MockEncoder is a deterministic encoder for tests and for running without a model.
// It averages centered channel intensities into Dimensions buckets laid out in
// channel-major pixel order, so identical images map to identical vectors and
// visually close images map to close vectors.
type MockEncoder struct {
	dimensions int
	inputSize  int
}

// NewMockEncoder returns an encoder producing vectors of the given dimensions from size x size inputs.
func NewMockEncoder(dimensions, inputSize int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 512
	}
	if inputSize <= 0 {
		inputSize = 32
	}
	return &MockEncoder{dimensions: dimensions, inputSize: inputSize}
}

// Encode returns the bucketed channel means of img.
func (e *MockEncoder) Encode(ctx context.Context, img *image.RGBA) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	total := w * h * 3
	sums := make([]float64, e.dimensions)
	counts := make([]int, e.dimensions)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			for ch, v := range [3]uint8{c.R, c.G, c.B} {
				bucket := (ch*w*h + y*w + x) * e.dimensions / total
				sums[bucket] += float64(v)/255 - 0.5
				counts[bucket]++
			}
		}
	}
	emb := make([]float32, e.dimensions)
	for i := range emb {
		if counts[i] > 0 {
			emb[i] = float32(sums[i] / float64(counts[i]))
		}
	}
	return emb, nil
}

// InputSize returns the expected input edge length.
func (e *MockEncoder) InputSize() int {
	return e.inputSize
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Type returns "mock".
func (e *MockEncoder) Type() string {
	return "mock"
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}
