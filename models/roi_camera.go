package models

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"landmarktracker/utils"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	genericservice "go.viam.com/rdk/services/generic"
	"go.viam.com/rdk/spatialmath"
)

var (
	ModelROICamera = resource.NewModel("viam", "landmark-tracker", "roi-camera")
)

func init() {
	resource.RegisterComponent(camera.API, ModelROICamera,
		resource.Registration[camera.Camera, *ROICameraConfig]{
			Constructor: newROICamera,
		},
	)
}

// ROICameraConfig configures a camera that crops the underlying image to
// the primary tracked entity's region. When nothing is tracked the image
// passes through uncropped.
type ROICameraConfig struct {
	resource.TriviallyValidateConfig
	CameraName  string  `json:"camera_name"`
	TrackerName string  `json:"tracker_name"`
	Padding     float64 `json:"padding"` // Extra margin around the region, fraction of its size
}

// Validate ensures all parts of the config are valid and important fields exist.
// Returns implicit dependencies based on the config.
func (cfg *ROICameraConfig) Validate(path string) ([]string, []string, error) {
	if cfg.CameraName == "" {
		return nil, nil, errors.New("camera_name is required")
	}
	if cfg.TrackerName == "" {
		return nil, nil, errors.New("tracker_name is required")
	}
	if cfg.Padding < 0 {
		return nil, nil, errors.New("padding must be greater than or equal to 0")
	}
	// Set defaults
	if cfg.Padding == 0 {
		cfg.Padding = 0.1
	}
	return []string{cfg.CameraName, cfg.TrackerName}, nil, nil
}

type roiCamera struct {
	name          resource.Name
	logger        logging.Logger
	cfg           *ROICameraConfig
	cancelCtx     context.Context
	cancelFunc    func()
	underlyingCam camera.Camera
	tracker       resource.Resource
}

func newROICamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*ROICameraConfig](rawConf)
	if err != nil {
		return nil, err
	}

	cam, err := camera.FromDependencies(deps, conf.CameraName)
	if err != nil {
		return nil, err
	}

	tracker, err := deps.GetResource(resource.NewName(genericservice.API, conf.TrackerName))
	if err != nil {
		return nil, err
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	s := &roiCamera{
		name:          rawConf.ResourceName(),
		logger:        logger,
		cfg:           conf,
		cancelCtx:     cancelCtx,
		cancelFunc:    cancelFunc,
		underlyingCam: cam,
		tracker:       tracker,
	}
	return s, nil
}

func (s *roiCamera) Reconfigure(ctx context.Context, deps resource.Dependencies, rawConf resource.Config) error {
	conf, err := resource.NativeConfig[*ROICameraConfig](rawConf)
	if err != nil {
		return err
	}

	cam, err := camera.FromDependencies(deps, conf.CameraName)
	if err != nil {
		return err
	}
	tracker, err := deps.GetResource(resource.NewName(genericservice.API, conf.TrackerName))
	if err != nil {
		return err
	}

	s.cfg = conf
	s.underlyingCam = cam
	s.tracker = tracker
	return nil
}

func (s *roiCamera) Name() resource.Name {
	return s.name
}

func (s *roiCamera) Close(context.Context) error {
	s.cancelFunc()
	return nil
}

func (s *roiCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}

func (s *roiCamera) GetImage(ctx context.Context) (image.Image, error) {
	imgs, _, err := s.underlyingCam.Images(ctx, []string{"color"}, nil)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, errors.New("no images returned from underlying camera")
	}
	img, err := imgs[0].Image(ctx)
	if err != nil {
		return nil, err
	}

	return s.cropToPrimaryEntity(ctx, img), nil
}

// cropToPrimaryEntity crops the image to the first tracked entity's
// region. Any failure along the way degrades to a passthrough image.
func (s *roiCamera) cropToPrimaryEntity(ctx context.Context, img image.Image) image.Image {
	region, ok := s.primaryRegion(ctx)
	if !ok {
		return img
	}
	return CropRegion(img, region, s.cfg.Padding)
}

// primaryRegion queries the tracker service for the latest cycle and
// returns the first entity's region.
func (s *roiCamera) primaryRegion(ctx context.Context) (utils.Region, bool) {
	response, err := s.tracker.DoCommand(ctx, map[string]interface{}{
		"command": "get-entities",
	})
	if err != nil {
		s.logger.Debugf("Failed to query tracker for entities: %v", err)
		return utils.Region{}, false
	}
	entitiesRaw, ok := response["entities"].([]interface{})
	if !ok || len(entitiesRaw) == 0 {
		return utils.Region{}, false
	}
	entity, ok := entitiesRaw[0].(map[string]interface{})
	if !ok {
		s.logger.Debug("Tracker entity is not a map")
		return utils.Region{}, false
	}
	regionRaw, ok := entity["region"].(map[string]interface{})
	if !ok {
		s.logger.Debug("Tracker entity region is not a map")
		return utils.Region{}, false
	}
	region, err := parseRegion(regionRaw)
	if err != nil {
		s.logger.Debugf("Tracker entity region is malformed: %v", err)
		return utils.Region{}, false
	}
	return region, true
}

// CropRegion crops an image to a normalized region plus padding,
// clamped to the image bounds. A region with no pixel overlap yields the
// original image.
func CropRegion(img image.Image, region utils.Region, padding float64) image.Image {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	padW := region.Width * padding
	padH := region.Height * padding

	x0 := int(utils.Clamp(region.Left()-padW, 0, 1) * width)
	x1 := int(utils.Clamp(region.Right()+padW, 0, 1) * width)
	y0 := int(utils.Clamp(region.Top()-padH, 0, 1) * height)
	y1 := int(utils.Clamp(region.Bottom()+padH, 0, 1) * height)

	if x1 <= x0 || y1 <= y0 {
		return img
	}

	crop := image.Rect(bounds.Min.X+x0, bounds.Min.Y+y0, bounds.Min.X+x1, bounds.Min.Y+y1)

	rgba := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, crop.Min, draw.Src)
	return rgba
}

func (s *roiCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

func (s *roiCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return nil, camera.ImageMetadata{}, nil
}

func (s *roiCamera) Images(ctx context.Context, mimeTypes []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	imgs, meta, err := s.underlyingCam.Images(ctx, mimeTypes, extra)
	if err != nil {
		return nil, resource.ResponseMetadata{}, err
	}

	resultImgs := make([]camera.NamedImage, len(imgs))
	for i, namedImg := range imgs {
		img, err := namedImg.Image(ctx)
		if err != nil {
			return nil, resource.ResponseMetadata{}, err
		}

		cropped := s.cropToPrimaryEntity(ctx, img)

		resultImg, err := camera.NamedImageFromImage(cropped, namedImg.SourceName, namedImg.MimeType())
		if err != nil {
			return nil, resource.ResponseMetadata{}, err
		}
		resultImgs[i] = resultImg
	}

	return resultImgs, meta, nil
}

func (s *roiCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	return nil, errors.New("next point cloud not implemented")
}

func (s *roiCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return s.underlyingCam.Properties(ctx)
}
