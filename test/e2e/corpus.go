// Package e2e provides end-to-end tests over a synthetic logo corpus and multiple queries.
package e2e

import (
	"fmt"
	"image"
	"image/color"
)

// Shape is the foreground mark drawn on a logo.
type Shape int

const (
	ShapeSquare Shape = iota
	ShapeTopBand
	ShapeBottomBand
	ShapeVerticalBar
)

// E2ELogo is a reference logo in the E2E corpus.
type E2ELogo struct {
	Name       string
	Background color.RGBA
	Foreground color.RGBA
	Shape      Shape
}

// Render draws the logo at size x size pixels.
func (l E2ELogo) Render(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := l.Background
			if l.inShape(float64(x)/float64(size), float64(y)/float64(size)) {
				c = l.Foreground
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func (l E2ELogo) inShape(fx, fy float64) bool {
	switch l.Shape {
	case ShapeSquare:
		return fx >= 0.25 && fx < 0.75 && fy >= 0.25 && fy < 0.75
	case ShapeTopBand:
		return fy < 0.35
	case ShapeBottomBand:
		return fy >= 0.65
	case ShapeVerticalBar:
		return fx >= 0.4 && fx < 0.6
	default:
		return false
	}
}

// QueryTestCase is a candidate derived from a corpus logo that must match it first.
type QueryTestCase struct {
	Source       E2ELogo
	Size         int
	Ext          string
	ExpectedName string
	Description  string
}

// Corpus holds reference logos and query test cases for E2E tests.
type Corpus struct {
	Logos        []E2ELogo
	TestCases    []QueryTestCase
	TotalLogos   int
	TotalQueries int
}

// ReferenceSize is the edge length reference logos are written at.
const ReferenceSize = 64

var palette = []struct {
	name string
	c    color.RGBA
}{
	{"crimson", color.RGBA{R: 220, G: 20, B: 60, A: 255}},
	{"forest", color.RGBA{R: 34, G: 139, B: 34, A: 255}},
	{"navy", color.RGBA{R: 0, G: 0, B: 128, A: 255}},
	{"gold", color.RGBA{R: 255, G: 215, B: 0, A: 255}},
	{"magenta", color.RGBA{R: 255, G: 0, B: 255, A: 255}},
	{"teal", color.RGBA{R: 0, G: 128, B: 128, A: 255}},
	{"orange", color.RGBA{R: 255, G: 140, B: 0, A: 255}},
	{"slate", color.RGBA{R: 112, G: 128, B: 144, A: 255}},
}

var shapeNames = map[Shape]string{
	ShapeSquare:      "square",
	ShapeTopBand:     "topband",
	ShapeBottomBand:  "bottomband",
	ShapeVerticalBar: "vbar",
}

// BuildCorpus returns one logo per palette color, each with its own shape and a
// contrasting mark, plus resized and re-encoded variants as queries.
func BuildCorpus() *Corpus {
	logos := buildLogos()
	cases := buildQueryTestCases(logos)
	return &Corpus{
		Logos:        logos,
		TestCases:    cases,
		TotalLogos:   len(logos),
		TotalQueries: len(cases),
	}
}

func buildLogos() []E2ELogo {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	logos := make([]E2ELogo, 0, len(palette))
	for i, p := range palette {
		fg := white
		if i%2 == 1 {
			fg = black
		}
		shape := Shape(i % 4)
		logos = append(logos, E2ELogo{
			Name:       fmt.Sprintf("%s_%s", p.name, shapeNames[shape]),
			Background: p.c,
			Foreground: fg,
			Shape:      shape,
		})
	}
	return logos
}

func buildQueryTestCases(logos []E2ELogo) []QueryTestCase {
	var cases []QueryTestCase
	for i, l := range logos {
		ext := ".png"
		if i%2 == 0 {
			ext = ".jpg"
		}
		size := 96
		if i%3 == 0 {
			size = 48
		}
		cases = append(cases, QueryTestCase{
			Source:       l,
			Size:         size,
			Ext:          ext,
			ExpectedName: FileName(l, i),
			Description:  fmt.Sprintf("%s rendered at %dpx as %s", l.Name, size, ext),
		})
	}
	return cases
}

// FileName is the reference file name of the i-th corpus logo. Every third logo is stored as JPEG.
func FileName(l E2ELogo, i int) string {
	if i%3 == 2 {
		return l.Name + ".jpeg"
	}
	return l.Name + ".png"
}
