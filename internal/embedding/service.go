package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/imaging"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
	"github.com/hyperjump/brandguard/pkg/utils"
)

// Service decodes raw image bytes, runs the encoder under a timeout, and returns
// unit-length vectors. Results are cached by encoder identity plus the SHA-256
// digest of the bytes.
type Service struct {
	encoder  Encoder
	identity string
	caches   []Cache
	timeout time.Duration
	logger  *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache adds a cache layer. Layers are consulted in the order added.
func WithCache(c Cache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.caches = append(s.caches, c)
		}
	}
}

// WithTimeout bounds every encoder call. Zero disables the bound.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService wraps encoder.
func NewService(encoder Encoder, opts ...ServiceOption) *Service {
	s := &Service{encoder: encoder, identity: Identity(encoder), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Identity names the model behind enc: encoders that implement
// Identity() string report their own, others are described by type, output
// dimension and input size. Vectors are only comparable within one identity.
func Identity(enc Encoder) string {
	if id, ok := enc.(interface{ Identity() string }); ok {
		return id.Identity()
	}
	return fmt.Sprintf("%s:%d:%d", enc.Type(), enc.Dimensions(), enc.InputSize())
}

// cacheKey scopes digest to the encoder so caches shared between encoders never mix vectors.
func (s *Service) cacheKey(digest string) string {
	return s.identity + "/" + digest
}

// EncodeBytes returns the normalized embedding of an encoded PNG or JPEG image and its digest.
func (s *Service) EncodeBytes(ctx context.Context, data []byte) ([]float32, string, error) {
	digest := Digest(data)
	key := s.cacheKey(digest)
	for i, c := range s.caches {
		v, ok := c.Get(ctx, key)
		if !ok {
			continue
		}
		if !finite(v) || len(v) != s.encoder.Dimensions() {
			s.logger.Warn("discarding unusable cached embedding", zap.String("key", key), zap.Int("dimensions", len(v)))
			continue
		}
		// Backfill faster layers.
		for _, prev := range s.caches[:i] {
			prev.Set(ctx, key, v)
		}
		return v, digest, nil
	}

	img, err := imaging.Prepare(data, s.encoder.InputSize())
	if err != nil {
		return nil, digest, err
	}
	v, err := s.run(ctx, img)
	if err != nil {
		return nil, digest, err
	}
	for _, c := range s.caches {
		c.Set(ctx, key, v)
	}
	return v, digest, nil
}

func (s *Service) run(ctx context.Context, img *image.RGBA) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		v   []float32
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := s.encoder.Encode(ctx, img)
		done <- result{v, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, bgerr.New(bgerr.CodeEncoderTimeout, "encoder timed out",
				bgerr.Field("timeout", s.timeout.String()))
		}
		if bgerr.IsEncoderFailure(r.err) || errors.Is(r.err, context.Canceled) {
			return nil, r.err
		}
		return nil, bgerr.Wrap(r.err, bgerr.CodeEncoderEncodeFailure, "encoder failed", bgerr.Field("encoder", s.encoder.Type()))
	}

	v := r.v
	if len(v) != s.encoder.Dimensions() {
		return nil, bgerr.Errorf(bgerr.CodeEncoderEncodeFailure, "encoder returned %d dimensions, want %d", len(v), s.encoder.Dimensions())
	}
	if !finite(v) {
		return nil, bgerr.New(bgerr.CodeEncoderEncodeFailure, "encoder returned non-finite values")
	}
	v = append([]float32(nil), v...)
	if utils.NormalizeL2(v) == 0 {
		s.logger.Debug("encoder returned a zero vector", zap.String("encoder", s.identity))
	}
	s.logger.Debug("image encoded", zap.String("encoder", s.encoder.Type()), zap.Duration("took", time.Since(start)))
	return v, nil
}

func finite(v []float32) bool {
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}

// Identity returns the identity of the wrapped encoder.
func (s *Service) Identity() string {
	return s.identity
}

// Encoder returns the wrapped encoder.
func (s *Service) Encoder() Encoder {
	return s.encoder
}

// Dimensions returns the encoder's output dimension.
func (s *Service) Dimensions() int {
	return s.encoder.Dimensions()
}

// Close closes the encoder.
func (s *Service) Close() error {
	return s.encoder.Close()
}
