// Package inference selects and speaks to egg-detection backends. Each
// model identifier maps to one Detector capability at configuration time;
// nothing switches on model names at call sites.
package inference

import (
	"fmt"
	"sort"

	"egglytics-backend/internal/models"
)

type DetectRequest struct {
	Data     []byte
	Filename string
	// Mode is the capture type, micro or macro.
	Mode string
	// AvgPixels is only meaningful for Recalibrate.
	AvgPixels float64
}

type Detection struct {
	Points []models.Point
	// FinalImage is the rendered result image, empty when the backend
	// returns none.
	FinalImage []byte
	EggCount   int
}

type Detector interface {
	Detect(req DetectRequest) (*Detection, error)
	Recalibrate(req DetectRequest) (*Detection, error)
}

// FreeAnnotate is the no-inference backend: the image passes through
// untouched with zero detections, leaving all annotation to the human.
type FreeAnnotate struct{}

func (FreeAnnotate) Detect(req DetectRequest) (*Detection, error) {
	return &Detection{FinalImage: req.Data}, nil
}

func (FreeAnnotate) Recalibrate(req DetectRequest) (*Detection, error) {
	return &Detection{FinalImage: req.Data}, nil
}

// Registry maps model identifiers to their detectors.
type Registry struct {
	detectors map[string]Detector
}

func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

func (r *Registry) Register(model string, d Detector) {
	r.detectors[model] = d
}

func (r *Registry) Lookup(model string) (Detector, error) {
	d, ok := r.detectors[model]
	if !ok {
		return nil, fmt.Errorf("no detector registered for model %q", model)
	}
	return d, nil
}

// Models lists the registered model identifiers, sorted for stable output.
func (r *Registry) Models() []string {
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
