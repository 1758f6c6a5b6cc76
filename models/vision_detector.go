package models

import (
	"context"
	"errors"
	"fmt"
	"image"
	"landmarktracker/utils"

	"go.viam.com/rdk/services/vision"
)

// visionDetector adapts a Viam vision service to the core Detector
// contract, converting pixel-space bounding boxes to normalized regions.
type visionDetector struct {
	service vision.Service
}

func (d *visionDetector) Detect(ctx context.Context, frame image.Image) ([]utils.Region, error) {
	detections, err := d.service.Detections(ctx, frame, nil)
	if err != nil {
		return nil, fmt.Errorf("vision service detection failed: %w", err)
	}

	bounds := frame.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	if width <= 0 || height <= 0 {
		return nil, errors.New("frame has no pixels to normalize against")
	}

	regions := make([]utils.Region, 0, len(detections))
	for _, det := range detections {
		box := det.BoundingBox()
		if box == nil {
			continue
		}
		regions = append(regions, utils.Region{
			CenterX:    (float64(box.Min.X) + float64(box.Max.X)) / 2 / width,
			CenterY:    (float64(box.Min.Y) + float64(box.Max.Y)) / 2 / height,
			Width:      float64(box.Dx()) / width,
			Height:     float64(box.Dy()) / height,
			Confidence: det.Score(),
		})
	}
	return regions, nil
}
