package models

import (
	"context"
	"fmt"
	"image"
	"landmarktracker/tracking"
	"landmarktracker/utils"

	"go.viam.com/rdk/resource"
)

// doCommandExtractor adapts a generic resource speaking a DoCommand map
// protocol to the core Extractor contract.
//
// Request:
//
//	{"command": "extract", "regions": [{"center_x": ..., "center_y": ...,
//	 "width": ..., "height": ..., "rotation": ..., "confidence": ...}]}
//
// Response:
//
//	{"extractions": [{"region_index": 0, "landmarks": [{"x":..,"y":..,"z":..}],
//	 "world_landmarks": [...], "classification": {"label":..,"score":..},
//	 "predicted_region": {...}}]}
//
// The response may contain fewer entries than regions; entries the
// extractor could not produce are simply absent.
type doCommandExtractor struct {
	client resource.Resource
}

func (e *doCommandExtractor) Extract(ctx context.Context, frame image.Image, regions []utils.Region) ([]tracking.Extraction, error) {
	regionMaps := make([]interface{}, len(regions))
	for i, r := range regions {
		regionMaps[i] = utils.RegionToMap(r)
	}

	response, err := e.client.DoCommand(ctx, map[string]interface{}{
		"command": "extract",
		"regions": regionMaps,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor DoCommand failed: %w", err)
	}

	entriesRaw, ok := response["extractions"]
	if !ok {
		return nil, fmt.Errorf("extractor response missing extractions field")
	}
	entries, ok := entriesRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("extractor extractions is not an array")
	}

	extractions := make([]tracking.Extraction, 0, len(entries))
	for i, entryRaw := range entries {
		entry, ok := entryRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("extraction %d is not a map", i)
		}
		ex, err := parseExtraction(entry)
		if err != nil {
			return nil, fmt.Errorf("extraction %d: %w", i, err)
		}
		extractions = append(extractions, ex)
	}
	return extractions, nil
}

func parseExtraction(entry map[string]interface{}) (tracking.Extraction, error) {
	indexRaw, ok := entry["region_index"].(float64)
	if !ok {
		return tracking.Extraction{}, fmt.Errorf("region_index is not a number")
	}

	landmarksRaw, ok := entry["landmarks"]
	if !ok {
		return tracking.Extraction{}, fmt.Errorf("missing landmarks")
	}
	landmarks, err := parseLandmarks(landmarksRaw)
	if err != nil {
		return tracking.Extraction{}, err
	}

	predictedRaw, ok := entry["predicted_region"].(map[string]interface{})
	if !ok {
		return tracking.Extraction{}, fmt.Errorf("predicted_region is not a map")
	}
	predicted, err := parseRegion(predictedRaw)
	if err != nil {
		return tracking.Extraction{}, fmt.Errorf("predicted_region: %w", err)
	}

	ex := tracking.Extraction{
		RegionIndex:     int(indexRaw),
		Landmarks:       landmarks,
		PredictedRegion: predicted,
	}

	// World landmarks and classification are optional.
	if worldRaw, ok := entry["world_landmarks"]; ok {
		world, err := parseWorldLandmarks(worldRaw)
		if err != nil {
			return tracking.Extraction{}, err
		}
		ex.WorldLandmarks = world
	}
	if classRaw, ok := entry["classification"].(map[string]interface{}); ok {
		label, ok := classRaw["label"].(string)
		if !ok {
			return tracking.Extraction{}, fmt.Errorf("classification label is not a string")
		}
		score, ok := classRaw["score"].(float64)
		if !ok {
			return tracking.Extraction{}, fmt.Errorf("classification score is not a number")
		}
		ex.Classification = tracking.Classification{Label: label, Score: score}
	}

	return ex, nil
}

func parseLandmarks(raw interface{}) (tracking.LandmarkSet, error) {
	points, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("landmarks is not an array")
	}
	landmarks := make(tracking.LandmarkSet, 0, len(points))
	for i, pointRaw := range points {
		point, ok := pointRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("landmark %d is not a map", i)
		}
		x, ok := point["x"].(float64)
		if !ok {
			return nil, fmt.Errorf("landmark %d x is not a number", i)
		}
		y, ok := point["y"].(float64)
		if !ok {
			return nil, fmt.Errorf("landmark %d y is not a number", i)
		}
		// Z is optional for 2D-only extractors.
		z, _ := point["z"].(float64)
		landmarks = append(landmarks, tracking.Landmark{X: x, Y: y, Z: z})
	}
	return landmarks, nil
}

func parseRegion(m map[string]interface{}) (utils.Region, error) {
	centerX, ok := m["center_x"].(float64)
	if !ok {
		return utils.Region{}, fmt.Errorf("center_x is not a number")
	}
	centerY, ok := m["center_y"].(float64)
	if !ok {
		return utils.Region{}, fmt.Errorf("center_y is not a number")
	}
	width, ok := m["width"].(float64)
	if !ok {
		return utils.Region{}, fmt.Errorf("width is not a number")
	}
	height, ok := m["height"].(float64)
	if !ok {
		return utils.Region{}, fmt.Errorf("height is not a number")
	}
	// Rotation and confidence default to zero when absent.
	rotation, _ := m["rotation"].(float64)
	confidence, _ := m["confidence"].(float64)

	region := utils.Region{
		CenterX:    centerX,
		CenterY:    centerY,
		Width:      width,
		Height:     height,
		Rotation:   rotation,
		Confidence: confidence,
	}
	if err := utils.ValidateRegion(region); err != nil {
		return utils.Region{}, err
	}
	return region, nil
}
