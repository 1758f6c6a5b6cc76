package models

import (
	"context"
	"errors"
	"image"
	"landmarktracker/utils"
	"testing"

	"go.viam.com/rdk/resource"
	genericservice "go.viam.com/rdk/services/generic"
)

// fakeGenericResource answers DoCommand with a canned response.
type fakeGenericResource struct {
	resource.AlwaysRebuild
	name     resource.Name
	lastCmd  map[string]interface{}
	response map[string]interface{}
	err      error
}

func (f *fakeGenericResource) Name() resource.Name { return f.name }

func (f *fakeGenericResource) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	f.lastCmd = cmd
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeGenericResource) Close(ctx context.Context) error { return nil }

func extractorFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

func regionMap(cx, cy, w, h float64) map[string]interface{} {
	return map[string]interface{}{
		"center_x": cx, "center_y": cy, "width": w, "height": h,
	}
}

func TestDoCommandExtractorRequestShape(t *testing.T) {
	fake := &fakeGenericResource{
		name: resource.NewName(genericservice.API, "extractor"),
		response: map[string]interface{}{
			"extractions": []interface{}{},
		},
	}
	ext := &doCommandExtractor{client: fake}

	regions := []utils.Region{{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.2}}
	if _, err := ext.Extract(context.Background(), extractorFrame(), regions); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if fake.lastCmd["command"] != "extract" {
		t.Fatalf("expected extract command, got %v", fake.lastCmd["command"])
	}
	sent, ok := fake.lastCmd["regions"].([]interface{})
	if !ok {
		t.Fatalf("regions not sent as array: %v", fake.lastCmd["regions"])
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 region sent, got %d", len(sent))
	}
}

func TestDoCommandExtractorParsesFullEntry(t *testing.T) {
	fake := &fakeGenericResource{
		name: resource.NewName(genericservice.API, "extractor"),
		response: map[string]interface{}{
			"extractions": []interface{}{
				map[string]interface{}{
					"region_index": float64(0),
					"landmarks": []interface{}{
						map[string]interface{}{"x": 0.5, "y": 0.4, "z": -0.01},
						map[string]interface{}{"x": 0.55, "y": 0.45, "z": 0.02},
					},
					"world_landmarks": []interface{}{
						map[string]interface{}{"x": 0.01, "y": 0.02, "z": 0.3},
					},
					"classification": map[string]interface{}{
						"label": "left", "score": 0.97,
					},
					"predicted_region": regionMap(0.52, 0.41, 0.2, 0.2),
				},
			},
		},
	}
	ext := &doCommandExtractor{client: fake}

	regions := []utils.Region{{CenterX: 0.5, CenterY: 0.4, Width: 0.2, Height: 0.2}}
	extractions, err := ext.Extract(context.Background(), extractorFrame(), regions)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(extractions))
	}

	ex := extractions[0]
	if ex.RegionIndex != 0 {
		t.Fatalf("expected region index 0, got %d", ex.RegionIndex)
	}
	if len(ex.Landmarks) != 2 {
		t.Fatalf("expected 2 landmarks, got %d", len(ex.Landmarks))
	}
	if ex.Landmarks[0].X != 0.5 || ex.Landmarks[0].Y != 0.4 {
		t.Fatalf("unexpected first landmark: %+v", ex.Landmarks[0])
	}
	if len(ex.WorldLandmarks) != 1 {
		t.Fatalf("expected 1 world landmark, got %d", len(ex.WorldLandmarks))
	}
	if ex.WorldLandmarks[0].Z != 0.3 {
		t.Fatalf("unexpected world landmark: %+v", ex.WorldLandmarks[0])
	}
	if ex.Classification.Label != "left" || ex.Classification.Score != 0.97 {
		t.Fatalf("unexpected classification: %+v", ex.Classification)
	}
	if ex.PredictedRegion.CenterX != 0.52 {
		t.Fatalf("unexpected predicted region: %+v", ex.PredictedRegion)
	}
}

func TestDoCommandExtractorAllowsOmittedEntries(t *testing.T) {
	// Two regions in, one extraction out, aligned by index 1.
	fake := &fakeGenericResource{
		name: resource.NewName(genericservice.API, "extractor"),
		response: map[string]interface{}{
			"extractions": []interface{}{
				map[string]interface{}{
					"region_index": float64(1),
					"landmarks": []interface{}{
						map[string]interface{}{"x": 0.7, "y": 0.7},
					},
					"predicted_region": regionMap(0.7, 0.7, 0.1, 0.1),
				},
			},
		},
	}
	ext := &doCommandExtractor{client: fake}

	regions := []utils.Region{
		{CenterX: 0.2, CenterY: 0.2, Width: 0.1, Height: 0.1},
		{CenterX: 0.7, CenterY: 0.7, Width: 0.1, Height: 0.1},
	}
	extractions, err := ext.Extract(context.Background(), extractorFrame(), regions)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(extractions))
	}
	if extractions[0].RegionIndex != 1 {
		t.Fatalf("expected alignment to region index 1, got %d", extractions[0].RegionIndex)
	}
}

func TestDoCommandExtractorRejectsMalformedResponse(t *testing.T) {
	fake := &fakeGenericResource{
		name:     resource.NewName(genericservice.API, "extractor"),
		response: map[string]interface{}{},
	}
	ext := &doCommandExtractor{client: fake}

	if _, err := ext.Extract(context.Background(), extractorFrame(), nil); err == nil {
		t.Fatal("expected error for missing extractions field")
	}

	fake.response = map[string]interface{}{
		"extractions": []interface{}{
			map[string]interface{}{
				"region_index": float64(0),
				"landmarks":    []interface{}{},
				// predicted_region missing
			},
		},
	}
	if _, err := ext.Extract(context.Background(), extractorFrame(), nil); err == nil {
		t.Fatal("expected error for missing predicted_region")
	}
}

func TestDoCommandExtractorPropagatesFailure(t *testing.T) {
	fake := &fakeGenericResource{
		name: resource.NewName(genericservice.API, "extractor"),
		err:  errors.New("model not loaded"),
	}
	ext := &doCommandExtractor{client: fake}

	if _, err := ext.Extract(context.Background(), extractorFrame(), nil); err == nil {
		t.Fatal("expected DoCommand failure to propagate")
	}
}
