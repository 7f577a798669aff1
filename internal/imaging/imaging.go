// Package imaging normalizes candidate and reference images into the RGB input the encoder expects.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Extensions are the accepted reference file extensions, compared case-insensitively.
var Extensions = []string{".png", ".jpg", ".jpeg"}

// IsSupported reports whether path has an accepted image extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Decode parses PNG or JPEG bytes. Anything else is an invalid encoder input.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", bgerr.New(bgerr.CodeEncoderInputInvalid, "empty image")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", bgerr.Wrap(err, bgerr.CodeEncoderInputInvalid, "cannot decode image")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", bgerr.New(bgerr.CodeEncoderInputInvalid, "image has no pixels")
	}
	return img, format, nil
}

// Flatten converts any decoded image to opaque RGB. Alpha is dropped without
// compositing, keeping the straight (non-premultiplied) colour of each pixel.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// SquareResize center-crops img to a square on its short side and scales it to size x size
// with Catmull-Rom interpolation.
func SquareResize(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

// Prepare decodes data and returns the flattened, resized RGB image for an encoder of the given input size.
func Prepare(data []byte, size int) (*image.RGBA, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return SquareResize(Flatten(img), size), nil
}
