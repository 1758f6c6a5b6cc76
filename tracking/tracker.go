package tracking

import (
	"context"
	"image"
	"landmarktracker/utils"

	"github.com/golang/geo/r3"
)

// Landmark is a single keypoint in normalized image coordinates. Z is
// relative depth with the same scale as X.
type Landmark struct {
	X float64
	Y float64
	Z float64
}

// LandmarkSet is the ordered list of landmarks extracted for one entity.
type LandmarkSet []Landmark

// WorldLandmarkSet holds the same landmarks in metric world coordinates.
type WorldLandmarkSet []r3.Vector

// Classification is a label with a confidence score in [0, 1].
type Classification struct {
	Label string
	Score float64
}

// Extraction is the result of running the extractor on a single region.
// RegionIndex refers to the position of the source region in the list
// passed to Extract; the extractor may omit entries for regions it
// failed on, so alignment is by index, not by position in the result.
type Extraction struct {
	RegionIndex     int
	Landmarks       LandmarkSet
	WorldLandmarks  WorldLandmarkSet
	Classification  Classification
	PredictedRegion utils.Region
}

// Detector finds all entities in a frame from scratch. It may return an
// empty list and must not mutate the frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]utils.Region, error)
}

// Extractor runs per-entity analysis on the given regions of a frame.
// The result is index-aligned to regions via Extraction.RegionIndex and
// may be shorter than regions when extraction fails for some entities.
type Extractor interface {
	Extract(ctx context.Context, frame image.Image, regions []utils.Region) ([]Extraction, error)
}
