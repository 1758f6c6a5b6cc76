package utils

import (
	"errors"
	"fmt"
	"math"
)

// ValidateRegion checks that a region produced by an external
// collaborator is usable: finite coordinates and a positive size.
func ValidateRegion(r Region) error {
	for _, v := range []float64{r.CenterX, r.CenterY, r.Width, r.Height, r.Rotation, r.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("region contains non-finite values")
		}
	}
	if r.Width <= 0 {
		return fmt.Errorf("region width must be greater than 0, got %f", r.Width)
	}
	if r.Height <= 0 {
		return fmt.Errorf("region height must be greater than 0, got %f", r.Height)
	}
	return nil
}

// FilterValidRegions drops malformed regions from a collaborator result,
// preserving the order of the survivors. Returns the survivors and the
// number of regions dropped.
func FilterValidRegions(regions []Region) ([]Region, int) {
	valid := make([]Region, 0, len(regions))
	for _, r := range regions {
		if err := ValidateRegion(r); err != nil {
			continue
		}
		valid = append(valid, r)
	}
	return valid, len(regions) - len(valid)
}
