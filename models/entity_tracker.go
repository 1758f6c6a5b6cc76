package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"landmarktracker/tracking"
	"sync"
	"time"

	"github.com/erh/vmodutils"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/robot"
	genericservice "go.viam.com/rdk/services/generic"
	"go.viam.com/rdk/services/vision"
	rdk_utils "go.viam.com/utils"
)

var (
	ModelEntityTracker = resource.NewModel("viam", "landmark-tracker", "entity-tracker")
)

func init() {
	resource.RegisterService(genericservice.API, ModelEntityTracker,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newEntityTracker,
		},
	)
}

type Config struct {
	CameraName          string   `json:"camera_name"`
	DetectorName        string   `json:"detector_name"`
	ExtractorName       string   `json:"extractor_name"`
	MaxEntities         int      `json:"max_entities"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	UpdateRateHz        float64  `json:"update_rate_hz"`
	EnableOnStart       bool     `json:"enable_on_start"`
}

// Validate ensures all parts of the config are valid and important fields exist.
// Returns implicit required (first return) and optional (second return) dependencies based on the config.
// The path is the JSON path in your robot's config (not the `Config` struct) to the
// resource being validated; e.g. "services.0".
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.CameraName == "" {
		return nil, nil, errors.New("camera_name is required")
	}
	if cfg.DetectorName == "" {
		return nil, nil, errors.New("detector_name is required")
	}
	if cfg.ExtractorName == "" {
		return nil, nil, errors.New("extractor_name is required")
	}
	if cfg.MaxEntities <= 0 {
		return nil, nil, errors.New("max_entities must be a positive integer")
	}
	if cfg.SimilarityThreshold != nil && (*cfg.SimilarityThreshold < 0 || *cfg.SimilarityThreshold > 1) {
		return nil, nil, errors.New("similarity_threshold must be greater than or equal to 0 and less than or equal to 1 (normalized range)")
	}
	if cfg.UpdateRateHz <= 0 {
		return nil, nil, errors.New("update_rate_hz must be greater than 0")
	}
	// Dependencies are optional: resources missing from the local config
	// are resolved through the machine connection instead.
	return nil, []string{cfg.CameraName, cfg.DetectorName, cfg.ExtractorName}, nil
}

type entityTracker struct {
	resource.AlwaysRebuild
	name resource.Name

	logger logging.Logger
	cfg    *Config

	cam          camera.Camera
	orchestrator *tracking.Orchestrator

	// Machine connection, only opened when a dependency is not local.
	machine robot.Robot

	// Latest cycle snapshot for DoCommand queries.
	mu         sync.RWMutex
	lastResult *tracking.CycleResult

	worker *rdk_utils.StoppableWorkers
}

// Close implements resource.Resource.
func (s *entityTracker) Close(ctx context.Context) error {
	s.worker.Stop()
	if s.machine != nil {
		return s.machine.Close(ctx)
	}
	return nil
}

func newEntityTracker(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	return NewEntityTracker(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewEntityTracker(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *Config, logger logging.Logger) (resource.Resource, error) {
	configJSON, _ := json.MarshalIndent(conf, "", "  ")
	logger.Debugf("Creating entity tracker with the following config:\n%s", configJSON)

	s := &entityTracker{
		name:   name,
		logger: logger,
		cfg:    conf,
		worker: rdk_utils.NewBackgroundStoppableWorkers(),
	}

	camRes, err := s.lookupResource(ctx, deps, camera.Named(conf.CameraName))
	if err != nil {
		return nil, fmt.Errorf("failed to get camera %q: %w", conf.CameraName, err)
	}
	cam, ok := camRes.(camera.Camera)
	if !ok {
		return nil, fmt.Errorf("resource %q is not a camera", conf.CameraName)
	}
	s.cam = cam

	detRes, err := s.lookupResource(ctx, deps, vision.Named(conf.DetectorName))
	if err != nil {
		return nil, fmt.Errorf("failed to get detector vision service %q: %w", conf.DetectorName, err)
	}
	detSvc, ok := detRes.(vision.Service)
	if !ok {
		return nil, fmt.Errorf("resource %q is not a vision service", conf.DetectorName)
	}

	extRes, err := s.lookupResource(ctx, deps, resource.NewName(generic.API, conf.ExtractorName))
	if err != nil {
		return nil, fmt.Errorf("failed to get extractor resource %q: %w", conf.ExtractorName, err)
	}

	threshold := tracking.DefaultSimilarityThreshold
	if conf.SimilarityThreshold != nil {
		threshold = *conf.SimilarityThreshold
	}

	orchestrator, err := tracking.NewOrchestrator(
		&visionDetector{service: detSvc},
		&doCommandExtractor{client: extRes},
		conf.MaxEntities,
		threshold,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	s.orchestrator = orchestrator

	if conf.EnableOnStart {
		s.logger.Info("Starting entity tracker on start")
		s.worker.Add(s.trackingLoop)
		s.logger.Info("Entity tracker started")
	}

	return s, nil
}

// lookupResource resolves a dependency locally first, then falls back to
// the machine connection from the environment.
func (s *entityTracker) lookupResource(ctx context.Context, deps resource.Dependencies, name resource.Name) (resource.Resource, error) {
	if res, err := deps.GetResource(name); err == nil {
		return res, nil
	}
	if s.machine == nil {
		machine, err := vmodutils.ConnectToMachineFromEnv(ctx, s.logger)
		if err != nil {
			return nil, fmt.Errorf("resource not in dependencies and machine connection failed: %w", err)
		}
		s.machine = machine
	}
	return s.machine.ResourceByName(name)
}

func (s *entityTracker) Name() resource.Name {
	return s.name
}

func (s *entityTracker) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.logger.Debugf("DoCommand: %+v", cmd)
	switch cmd["command"] {
	case "get-entities":
		s.mu.RLock()
		result := s.lastResult
		s.mu.RUnlock()
		if result == nil {
			return map[string]interface{}{
				"entities":   []interface{}{},
				"detections": []interface{}{},
			}, nil
		}
		return map[string]interface{}{
			"entities":       entitiesToMaps(result.Entities),
			"detections":     regionsToMaps(result.Detections),
			"timestamp_unix": result.Timestamp.UnixNano(),
		}, nil

	case "get-stats":
		stats := s.orchestrator.Stats()
		return map[string]interface{}{
			"cycles":               stats.Cycles,
			"detector_invocations": stats.DetectorInvocations,
			"detector_failures":    stats.DetectorFailures,
			"extractor_failures":   stats.ExtractorFailures,
			"tracked_count":        s.orchestrator.TrackedCount(),
		}, nil

	case "reset-tracking":
		s.orchestrator.Reset()
		s.logger.Info("Tracking state reset, next cycle will re-detect")
		return map[string]interface{}{"status": "reset"}, nil

	default:
		return nil, fmt.Errorf("invalid command: %v", cmd["command"])
	}
}

func (s *entityTracker) trackingLoop(ctx context.Context) {
	s.logger.Info("Starting tracking loop")
	s.logger.Infof("Update rate: %f Hz", s.cfg.UpdateRateHz)
	var updateInterval time.Duration = time.Duration(1.0 / s.cfg.UpdateRateHz * float64(time.Second))
	s.logger.Infof("Update interval: %v", updateInterval)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.processOnce(ctx)
			if err != nil {
				s.logger.Errorf("Failed to process frame: %v", err)
			}
		}
	}
}

// processOnce grabs one frame from the camera and runs a full cycle.
// Cycles run back to back on the ticker, never concurrently, so each
// cycle observes the previous cycle's feedback write.
func (s *entityTracker) processOnce(ctx context.Context) error {
	imgs, _, err := s.cam.Images(ctx, []string{"color"}, nil)
	if err != nil {
		return fmt.Errorf("failed to get images from camera: %w", err)
	}
	if len(imgs) == 0 {
		return errors.New("no images returned from camera")
	}
	img, err := imgs[0].Image(ctx)
	if err != nil {
		return fmt.Errorf("failed to decode camera image: %w", err)
	}

	result, err := s.orchestrator.ProcessFrame(ctx, img, time.Now())
	if err != nil {
		return err
	}
	s.logger.Debugf("Cycle complete: %d entities, %d raw detections", len(result.Entities), len(result.Detections))

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()
	return nil
}
