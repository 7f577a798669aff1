// Package hints names well-known brands in a candidate image using Google Cloud Vision.
package hints

import (
	"context"
	"sort"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/search"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// MaxResults caps the logo annotations requested per image.
const MaxResults = 5

// annotator is the subset of the Vision client the detector calls.
type annotator interface {
	Annotate(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

type clientAnnotator struct {
	client *gvision.ImageAnnotatorClient
}

func (c *clientAnnotator) Annotate(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	return c.client.BatchAnnotateImages(ctx, req)
}

func (c *clientAnnotator) Close() error {
	return c.client.Close()
}

// VisionDetector detects logos with the Cloud Vision LOGO_DETECTION feature.
type VisionDetector struct {
	api annotator
}

var _ search.HintDetector = (*VisionDetector)(nil)

// NewVisionDetector creates a detector using Application Default Credentials.
func NewVisionDetector(ctx context.Context) (*VisionDetector, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeHintsUpstreamFailure, "failed to create vision client")
	}
	return &VisionDetector{api: &clientAnnotator{client: client}}, nil
}

// Close releases the Vision client.
func (v *VisionDetector) Close() error {
	return v.api.Close()
}

// DetectLogos returns the brands Vision recognises in imageData, most confident first.
func (v *VisionDetector) DetectLogos(ctx context.Context, imageData []byte) ([]*models.BrandHint, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_LOGO_DETECTION, MaxResults: MaxResults},
				},
			},
		},
	}

	resp, err := v.api.Annotate(ctx, req)
	if err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeHintsUpstreamFailure, "vision API request failed")
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}
	first := resp.GetResponses()[0]
	if first.GetError() != nil {
		return nil, bgerr.New(bgerr.CodeHintsUpstreamFailure, "vision API error",
			bgerr.Field("message", first.GetError().GetMessage()))
	}

	hints := make([]*models.BrandHint, 0, len(first.GetLogoAnnotations()))
	for _, logo := range first.GetLogoAnnotations() {
		if logo.GetDescription() == "" {
			continue
		}
		hints = append(hints, &models.BrandHint{
			Name:       logo.GetDescription(),
			Confidence: logo.GetScore(),
		})
	}
	sort.SliceStable(hints, func(i, j int) bool { return hints[i].Confidence > hints[j].Confidence })
	return hints, nil
}
