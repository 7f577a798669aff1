//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"image"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// ONNXEncoder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns an error when built without CGO (ONNX not available).
func NewONNXEncoder(_ string, _, _ int) (*ONNXEncoder, error) {
	return nil, bgerr.New(bgerr.CodeEncoderUnsupported, "ONNX encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ONNXEncoder) Encode(context.Context, *image.RGBA) ([]float32, error) {
	return nil, bgerr.New(bgerr.CodeEncoderUnsupported, "ONNX encoder unavailable")
}

func (e *ONNXEncoder) InputSize() int  { return 0 }
func (e *ONNXEncoder) Dimensions() int { return 0 }
func (e *ONNXEncoder) Type() string    { return "onnx" }
func (e *ONNXEncoder) Close() error    { return nil }
