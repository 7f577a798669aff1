package e2e

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// SupportedFileExtensions is the list of reference image extensions used in E2E tests.
var SupportedFileExtensions = []string{".png", ".jpg", ".jpeg"}

// EncodeImage encodes img in the format implied by ext.
func EncodeImage(ext string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(ext) {
	case ".png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported extension %q", ext)
	}
	return buf.Bytes(), nil
}

// WriteCorpus writes every corpus logo into dir at ReferenceSize.
func WriteCorpus(dir string, c *Corpus) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, l := range c.Logos {
		name := FileName(l, i)
		data, err := EncodeImage(filepath.Ext(name), l.Render(ReferenceSize))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// QueryBytes renders and encodes the candidate image of tc.
func QueryBytes(tc QueryTestCase) ([]byte, error) {
	return EncodeImage(tc.Ext, tc.Source.Render(tc.Size))
}
