package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"landmarktracker/utils"
	"sync"
	"time"

	"go.viam.com/rdk/logging"
)

// DefaultSimilarityThreshold is the association threshold used when the
// caller does not configure one.
const DefaultSimilarityThreshold = 0.5

// Entity is the result of one cycle for one tracked object. Entities
// have no identity across cycles beyond the positional continuity
// implied by association.
type Entity struct {
	Region          utils.Region
	Landmarks       LandmarkSet
	WorldLandmarks  WorldLandmarkSet
	Classification  Classification
	PredictedRegion utils.Region
}

// CycleResult is everything one cycle produced: the ordered tracked
// entities, the raw detections computed this cycle (empty when the
// detector was skipped), and the passthrough frame reference.
type CycleResult struct {
	Entities   []Entity
	Detections []utils.Region
	Image      image.Image
	Timestamp  time.Time
}

// Stats are cumulative counters for the life of the orchestrator.
type Stats struct {
	Cycles              int64
	DetectorInvocations int64
	DetectorFailures    int64
	ExtractorFailures   int64
}

// Orchestrator runs the per-frame track-or-detect cycle: it skips the
// detector while the previous cycle already tracks a full quota of
// entities, merges previous and fresh regions by greedy association,
// clips the merged set to the quota, dispatches per-entity extraction,
// and feeds the predicted regions back for the next cycle.
//
// Cycles are synchronous: ProcessFrame must not be called concurrently
// with itself, because cycle N+1 has to observe cycle N's feedback
// write.
type Orchestrator struct {
	logger    logging.Logger
	detector  Detector
	extractor Extractor

	maxEntities         int
	similarityThreshold float64

	register stateRegister

	statsMu sync.Mutex
	stats   Stats
}

// NewOrchestrator validates the configuration and builds an
// orchestrator. maxEntities must be a positive integer and
// similarityThreshold must be in [0, 1]; invalid values fail here,
// before any cycle runs.
func NewOrchestrator(detector Detector, extractor Extractor, maxEntities int, similarityThreshold float64, logger logging.Logger) (*Orchestrator, error) {
	if detector == nil {
		return nil, errors.New("detector is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if maxEntities <= 0 {
		return nil, fmt.Errorf("max entities must be a positive integer, got %d", maxEntities)
	}
	if similarityThreshold < 0 || similarityThreshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be between 0 and 1, got %f", similarityThreshold)
	}
	return &Orchestrator{
		logger:              logger,
		detector:            detector,
		extractor:           extractor,
		maxEntities:         maxEntities,
		similarityThreshold: similarityThreshold,
	}, nil
}

// ProcessFrame runs one cycle on a frame. The frame is owned by the
// caller and passed through unmodified. Collaborator failures degrade
// the cycle's output instead of aborting it: a detector failure counts
// as zero detections, a total extractor failure yields an empty entity
// list and empties the feedback slot so the next cycle re-detects.
func (o *Orchestrator) ProcessFrame(ctx context.Context, frame image.Image, timestamp time.Time) (CycleResult, error) {
	if frame == nil {
		return CycleResult{}, errors.New("frame is required")
	}

	previous := o.register.get()

	// Sufficiency gate: skip the detector entirely while the previous
	// cycle already tracks a full quota.
	sufficient := len(previous) >= o.maxEntities

	var fresh []utils.Region
	if !sufficient {
		detected, err := o.detector.Detect(ctx, frame)
		o.bumpDetector(err != nil)
		if err != nil {
			o.logger.Warnf("detector failed, continuing with zero detections: %v", err)
		} else {
			var dropped int
			fresh, dropped = utils.FilterValidRegions(detected)
			if dropped > 0 {
				o.logger.Debugf("dropped %d malformed detections", dropped)
			}
		}
	}

	merged := Associate(previous, fresh, o.similarityThreshold)
	if len(merged) > o.maxEntities {
		merged = merged[:o.maxEntities]
	}

	extractions, err := o.extractor.Extract(ctx, frame, merged)
	if err != nil {
		o.logger.Warnf("extractor failed, emitting empty cycle and forcing re-detection: %v", err)
		o.bumpExtractorFailure()
		o.register.set(nil)
		o.bumpCycle()
		return CycleResult{Detections: fresh, Image: frame, Timestamp: timestamp}, nil
	}

	entities := make([]Entity, 0, len(extractions))
	next := make([]utils.Region, 0, len(extractions))
	for _, ex := range extractions {
		if ex.RegionIndex < 0 || ex.RegionIndex >= len(merged) {
			o.logger.Warnf("extractor returned out-of-range region index %d, ignoring entry", ex.RegionIndex)
			continue
		}
		entities = append(entities, Entity{
			Region:          merged[ex.RegionIndex],
			Landmarks:       ex.Landmarks,
			WorldLandmarks:  ex.WorldLandmarks,
			Classification:  ex.Classification,
			PredictedRegion: ex.PredictedRegion,
		})
		next = append(next, ex.PredictedRegion)
	}

	// Feedback write: visible starting next cycle. Extraction omissions
	// narrow the slot, they never corrupt it, and next inherits the
	// quota bound from the clipped set.
	o.register.set(next)
	o.bumpCycle()

	return CycleResult{
		Entities:   entities,
		Detections: fresh,
		Image:      frame,
		Timestamp:  timestamp,
	}, nil
}

// Reset empties the feedback slot, forcing the next cycle to re-detect.
func (o *Orchestrator) Reset() {
	o.register.set(nil)
}

// TrackedCount returns how many regions the feedback slot currently
// holds.
func (o *Orchestrator) TrackedCount() int {
	return o.register.length()
}

// Stats returns a snapshot of the cumulative counters.
func (o *Orchestrator) Stats() Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats
}

func (o *Orchestrator) bumpDetector(failed bool) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.stats.DetectorInvocations++
	if failed {
		o.stats.DetectorFailures++
	}
}

func (o *Orchestrator) bumpExtractorFailure() {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.stats.ExtractorFailures++
}

func (o *Orchestrator) bumpCycle() {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.stats.Cycles++
}
