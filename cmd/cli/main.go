package main

import (
	"context"
	"fmt"
	"image"
	"time"

	"landmarktracker/tracking"
	"landmarktracker/utils"

	"go.viam.com/rdk/logging"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

// stubDetector always reports one entity near the center of the frame.
type stubDetector struct {
	calls int
}

func (d *stubDetector) Detect(ctx context.Context, frame image.Image) ([]utils.Region, error) {
	d.calls++
	return []utils.Region{
		{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.2, Confidence: 0.9},
	}, nil
}

// stubExtractor echoes each region back as its own prediction with a
// fixed landmark set.
type stubExtractor struct{}

func (e *stubExtractor) Extract(ctx context.Context, frame image.Image, regions []utils.Region) ([]tracking.Extraction, error) {
	extractions := make([]tracking.Extraction, len(regions))
	for i, r := range regions {
		extractions[i] = tracking.Extraction{
			RegionIndex:     i,
			Landmarks:       tracking.LandmarkSet{{X: r.CenterX, Y: r.CenterY}},
			Classification:  tracking.Classification{Label: "stub", Score: 1.0},
			PredictedRegion: r,
		}
	}
	return extractions, nil
}

func realMain() error {
	ctx := context.Background()
	logger := logging.NewLogger("cli")

	detector := &stubDetector{}
	orchestrator, err := tracking.NewOrchestrator(detector, &stubExtractor{}, 1, 0.5, logger)
	if err != nil {
		return err
	}

	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for i := 0; i < 5; i++ {
		result, err := orchestrator.ProcessFrame(ctx, frame, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("cycle %d: %d entities, %d raw detections\n", i+1, len(result.Entities), len(result.Detections))
	}

	stats := orchestrator.Stats()
	fmt.Printf("cycles=%d detector_invocations=%d (gate skipped %d)\n",
		stats.Cycles, stats.DetectorInvocations, stats.Cycles-stats.DetectorInvocations)
	return nil
}
