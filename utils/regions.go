package utils

import (
	"math"
)

// Region is a normalized bounding box: center and size are expressed as
// fractions of the frame dimensions. Rotation is in radians around the
// center. Confidence is optional and left at zero when the producer has
// no score for the region (e.g. a predicted region from extraction).
type Region struct {
	CenterX    float64
	CenterY    float64
	Width      float64
	Height     float64
	Rotation   float64
	Confidence float64
}

// Left returns the left edge of the region, ignoring rotation.
func (r Region) Left() float64 { return r.CenterX - r.Width/2 }

// Right returns the right edge of the region, ignoring rotation.
func (r Region) Right() float64 { return r.CenterX + r.Width/2 }

// Top returns the top edge of the region, ignoring rotation.
func (r Region) Top() float64 { return r.CenterY - r.Height/2 }

// Bottom returns the bottom edge of the region, ignoring rotation.
func (r Region) Bottom() float64 { return r.CenterY + r.Height/2 }

// Area returns the area of the region in normalized units.
func (r Region) Area() float64 { return r.Width * r.Height }

// OverlapSimilarity computes intersection-over-union of two regions,
// treating both as axis-aligned (rotation is ignored for overlap
// purposes). The result is in [0, 1]: 0 for disjoint regions, 1 for
// identical ones.
func OverlapSimilarity(a, b Region) float64 {
	ix := intervalOverlap(a.Left(), a.Right(), b.Left(), b.Right())
	iy := intervalOverlap(a.Top(), a.Bottom(), b.Top(), b.Bottom())
	intersection := ix * iy
	if intersection <= 0 {
		return 0
	}
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func intervalOverlap(aMin, aMax, bMin, bMax float64) float64 {
	lo := math.Max(aMin, bMin)
	hi := math.Min(aMax, bMax)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Clamp clamps a value between min and max
func Clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

// RegionToMap converts a region to a user-friendly map for DoCommand
// payloads.
func RegionToMap(r Region) map[string]interface{} {
	return map[string]interface{}{
		"center_x":   r.CenterX,
		"center_y":   r.CenterY,
		"width":      r.Width,
		"height":     r.Height,
		"rotation":   r.Rotation,
		"confidence": r.Confidence,
	}
}
