// Package indexer builds reference stores from a folder of logo images.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/embedding"
	"github.com/hyperjump/brandguard/internal/imaging"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/reference"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Builder encodes every accepted image in a folder into a reference store.
type Builder struct {
	encoder *embedding.Service
	logger  *zap.Logger // optional; when set, logs skips and progress
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for skipped files and build summaries.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder that encodes through enc.
func NewBuilder(enc *embedding.Service, opts ...BuilderOption) *Builder {
	b := &Builder{encoder: enc}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Failure records one file rejected during a build.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report summarizes a build.
type Report struct {
	Dir      string        `json:"dir"`
	Version  string        `json:"version"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Failures []Failure     `json:"failures,omitempty"`
	Took     time.Duration `json:"took"`
}

// Build scans dir and encodes each accepted file in file-name order. A file that
// cannot be read, decoded or encoded is skipped and reported; the build goes on.
// A missing directory is created and yields an empty store.
func (b *Builder) Build(ctx context.Context, dir string) (*reference.Store, *Report, error) {
	start := time.Now()
	paths, err := ScanDir(dir)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Dir: dir, Version: uuid.New().String()}
	entries := make([]*models.ReferenceEntry, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		entry, err := b.loadEntry(ctx, len(entries), path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, nil, err
			}
			report.Skipped++
			report.Failures = append(report.Failures, Failure{Path: path, Reason: failureReason(err)})
			if b.logger != nil {
				b.logger.Warn("skipping reference", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		entries = append(entries, entry)
		if b.logger != nil {
			b.logger.Debug("reference encoded", zap.String("path", path), zap.Int("id", entry.ID))
		}
	}
	report.Indexed = len(entries)

	store, err := reference.NewStore(report.Version, b.encoder.Dimensions(), entries, report.Skipped, time.Now().UTC(),
		reference.WithEncoder(b.encoder.Identity()))
	if err != nil {
		return nil, nil, err
	}
	report.Took = time.Since(start)
	if b.logger != nil {
		b.logger.Info("reference store built",
			zap.String("dir", dir),
			zap.String("version", report.Version),
			zap.Int("indexed", report.Indexed),
			zap.Int("skipped", report.Skipped),
			zap.Duration("took", report.Took))
	}
	return store, report, nil
}

// loadEntry reads and encodes one file. Any failure is a LoadError for path.
func (b *Builder) loadEntry(ctx context.Context, id int, path string) (*models.ReferenceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	vec, digest, err := b.encoder.EncodeBytes(ctx, data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, loadError(path, err)
	}
	return &models.ReferenceEntry{
		ID:        id,
		Name:      filepath.Base(path),
		Path:      path,
		Digest:    digest,
		Embedding: vec,
	}, nil
}

// loadError keeps the LoadError code outermost; the underlying code survives as a field.
func loadError(path string, cause error) error {
	fields := []bgerr.Attr{bgerr.FieldPath(path), bgerr.Field("cause", cause.Error())}
	if code := bgerr.CodeOf(cause); code != "" {
		fields = append(fields, bgerr.Field("cause_code", string(code)))
	}
	return bgerr.New(bgerr.CodeReferenceLoadFailure, "cannot load reference", fields...)
}

func failureReason(err error) string {
	if cause, ok := bgerr.FieldsOf(err)["cause"].(string); ok && cause != "" {
		return cause
	}
	return err.Error()
}

// ScanDir lists accepted image files directly inside dir, sorted by file name.
// A missing dir is created with mode 0755.
func ScanDir(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(absDir, 0755); err != nil {
			return nil, fmt.Errorf("create logos directory: %w", err)
		}
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	paths := make([]string, 0, len(dirEntries))
	for _, d := range dirEntries {
		if d.IsDir() || !imaging.IsSupported(d.Name()) {
			continue
		}
		path := filepath.Join(absDir, d.Name())
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})
	return paths, nil
}
