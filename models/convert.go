package models

import (
	"fmt"
	"landmarktracker/tracking"
	"landmarktracker/utils"

	"github.com/golang/geo/r3"
)

func parseWorldLandmarks(raw interface{}) (tracking.WorldLandmarkSet, error) {
	points, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("world_landmarks is not an array")
	}
	world := make(tracking.WorldLandmarkSet, 0, len(points))
	for i, pointRaw := range points {
		point, ok := pointRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("world landmark %d is not a map", i)
		}
		x, ok := point["x"].(float64)
		if !ok {
			return nil, fmt.Errorf("world landmark %d x is not a number", i)
		}
		y, ok := point["y"].(float64)
		if !ok {
			return nil, fmt.Errorf("world landmark %d y is not a number", i)
		}
		z, ok := point["z"].(float64)
		if !ok {
			return nil, fmt.Errorf("world landmark %d z is not a number", i)
		}
		world = append(world, r3.Vector{X: x, Y: y, Z: z})
	}
	return world, nil
}

func regionsToMaps(regions []utils.Region) []interface{} {
	out := make([]interface{}, len(regions))
	for i, r := range regions {
		out[i] = utils.RegionToMap(r)
	}
	return out
}

func landmarksToMaps(landmarks tracking.LandmarkSet) []interface{} {
	out := make([]interface{}, len(landmarks))
	for i, lm := range landmarks {
		out[i] = map[string]interface{}{"x": lm.X, "y": lm.Y, "z": lm.Z}
	}
	return out
}

func worldLandmarksToMaps(world tracking.WorldLandmarkSet) []interface{} {
	out := make([]interface{}, len(world))
	for i, v := range world {
		out[i] = map[string]interface{}{"x": v.X, "y": v.Y, "z": v.Z}
	}
	return out
}

func entitiesToMaps(entities []tracking.Entity) []interface{} {
	out := make([]interface{}, len(entities))
	for i, e := range entities {
		entry := map[string]interface{}{
			"region":           utils.RegionToMap(e.Region),
			"landmarks":        landmarksToMaps(e.Landmarks),
			"predicted_region": utils.RegionToMap(e.PredictedRegion),
			"classification": map[string]interface{}{
				"label": e.Classification.Label,
				"score": e.Classification.Score,
			},
		}
		if len(e.WorldLandmarks) > 0 {
			entry["world_landmarks"] = worldLandmarksToMaps(e.WorldLandmarks)
		}
		out[i] = entry
	}
	return out
}
