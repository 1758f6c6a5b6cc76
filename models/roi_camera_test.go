package models

import (
	"image"
	"landmarktracker/utils"
	"testing"
)

func TestROICameraConfigValidate(t *testing.T) {
	cfg := &ROICameraConfig{CameraName: "cam", TrackerName: "tracker"}
	deps, _, err := cfg.Validate("components.0")
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 required dependencies, got %v", deps)
	}
	if cfg.Padding != 0.1 {
		t.Fatalf("expected default padding 0.1, got %f", cfg.Padding)
	}

	cfg = &ROICameraConfig{TrackerName: "tracker"}
	if _, _, err := cfg.Validate("components.0"); err == nil {
		t.Fatal("expected error for missing camera_name")
	}

	cfg = &ROICameraConfig{CameraName: "cam"}
	if _, _, err := cfg.Validate("components.0"); err == nil {
		t.Fatal("expected error for missing tracker_name")
	}

	cfg = &ROICameraConfig{CameraName: "cam", TrackerName: "tracker", Padding: -0.5}
	if _, _, err := cfg.Validate("components.0"); err == nil {
		t.Fatal("expected error for negative padding")
	}
}

func TestCropRegionCentered(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	region := utils.Region{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.2}

	cropped := CropRegion(img, region, 0)
	bounds := cropped.Bounds()
	if bounds.Dx() != 20 || bounds.Dy() != 20 {
		t.Fatalf("expected 20x20 crop, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCropRegionPaddingAndClamping(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	// Padding grows the crop around the region.
	region := utils.Region{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.2}
	cropped := CropRegion(img, region, 0.5)
	bounds := cropped.Bounds()
	if bounds.Dx() != 40 || bounds.Dy() != 40 {
		t.Fatalf("expected 40x40 padded crop, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// A region hanging off the frame edge is clamped to the frame.
	region = utils.Region{CenterX: 0.0, CenterY: 0.0, Width: 0.4, Height: 0.4}
	cropped = CropRegion(img, region, 0)
	bounds = cropped.Bounds()
	if bounds.Dx() != 20 || bounds.Dy() != 20 {
		t.Fatalf("expected clamped 20x20 crop, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCropRegionDegradesToPassthrough(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	// A region entirely outside the frame yields the original image.
	region := utils.Region{CenterX: 2.0, CenterY: 2.0, Width: 0.1, Height: 0.1}
	cropped := CropRegion(img, region, 0)
	if cropped != image.Image(img) {
		t.Fatal("expected passthrough for a region with no pixel overlap")
	}
}
