//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// ONNX graph names for the exported CLIP vision tower.
const (
	onnxInputName  = "pixel_values"
	onnxOutputName = "image_embeds"
)

// ONNXEncoder runs a CLIP-style image model through ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXEncoder struct {
	session    *ort.AdvancedSession
	model      string
	dimensions int
	inputSize  int
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXEncoder creates an ONNX image encoder. InitializeEnvironment is called if not already done.
func NewONNXEncoder(modelPath string, dimensions, inputSize int) (*ONNXEncoder, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeEncoderUnsupported, "ONNX model not found", bgerr.FieldPath(modelPath))
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, bgerr.Wrap(err, bgerr.CodeEncoderUnsupported, "failed to initialize ONNX runtime")
		}
	}

	inputData := make([]float32, 3*inputSize*inputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(inputSize), int64(inputSize)), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{onnxInputName},
		[]string{onnxOutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, bgerr.Wrap(err, bgerr.CodeEncoderUnsupported, "failed to create ONNX session", bgerr.FieldPath(modelPath))
	}

	return &ONNXEncoder{
		session:      session,
		model:        filepath.Base(modelPath),
		dimensions:   dimensions,
		inputSize:    inputSize,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Encode runs a single forward pass. Calls are serialized on the shared tensors.
func (e *ONNXEncoder) Encode(ctx context.Context, img *image.RGBA) ([]float32, error) {
	if b := img.Bounds(); b.Dx() != e.inputSize || b.Dy() != e.inputSize {
		return nil, bgerr.Errorf(bgerr.CodeEncoderInputInvalid, "expected %dx%d input, got %dx%d",
			e.inputSize, e.inputSize, b.Dx(), b.Dy())
	}
	pixels := PixelValues(img, e.inputSize)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.session == nil {
		return nil, bgerr.New(bgerr.CodeEncoderEncodeFailure, "encoder closed")
	}

	copy(e.inputTensor.GetData(), pixels)
	if err := e.session.Run(); err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeEncoderEncodeFailure, "inference failed")
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData()[:e.dimensions])
	return embedding, nil
}

// InputSize returns the model's square input edge length.
func (e *ONNXEncoder) InputSize() int {
	return e.inputSize
}

// Dimensions returns the embedding dimension.
func (e *ONNXEncoder) Dimensions() int {
	return e.dimensions
}

// Type returns "onnx".
func (e *ONNXEncoder) Type() string {
	return "onnx"
}

// Identity names the model file along with the tensor shapes.
func (e *ONNXEncoder) Identity() string {
	return fmt.Sprintf("onnx:%s:%d:%d", e.model, e.dimensions, e.inputSize)
}

// Close destroys the session and tensors.
func (e *ONNXEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		_ = e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
