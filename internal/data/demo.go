package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/layer"
	"gopkg.in/yaml.v3"
)

// Sync track types.
const (
	SyncPattern = "pattern"
	SyncRocket  = "rocket"
)

// Animation is one content entry of a scene.
type Animation struct {
	Name     string                `yaml:"name"`
	Layer    layer.Layer           `yaml:"layer"`
	Start    float64               `yaml:"start"`
	Duration *float64              `yaml:"duration"`
	Effect   string                `yaml:"effect"`
	Resource string                `yaml:"resource"`
	Sync     string                `yaml:"sync"` // sync track name
	Params   map[string]expr.Value `yaml:"params"`
}

// Scene groups animations. Composition defaults to enabled.
type Scene struct {
	Name        string      `yaml:"name"`
	Composition *bool       `yaml:"composition"`
	Init        string      `yaml:"init"`
	Animations  []Animation `yaml:"animations"`
}

func (s Scene) NoComposition() bool {
	return s.Composition != nil && !*s.Composition
}

// TimelineEntry places a scene on the demo timeline.
type TimelineEntry struct {
	Scene    string      `yaml:"scene"`
	Layer    layer.Layer `yaml:"layer"`
	Start    float64     `yaml:"start"`
	Duration *float64    `yaml:"duration"`
}

// Callbacks name script functions fired on pattern transitions.
type Callbacks struct {
	OnStart string `yaml:"on_start"`
	OnRun   string `yaml:"on_run"`
	OnEnd   string `yaml:"on_end"`
}

type Pattern struct {
	Start     *float64 `yaml:"start"`
	End       *float64 `yaml:"end"`
	Duration  *float64 `yaml:"duration"`
	Callbacks `yaml:",inline"`
}

// SyncTrack is a pattern track, or a Rocket track when Type is "rocket".
type SyncTrack struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type"`
	Start     *float64  `yaml:"start"`
	End       *float64  `yaml:"end"`
	Duration  *float64  `yaml:"duration"`
	Patterns  []Pattern `yaml:"patterns"`
	Callbacks `yaml:",inline"`
}

func (s SyncTrack) IsRocket() bool { return s.Type == SyncRocket }

// Demo is a complete demo definition file.
type Demo struct {
	Name      string          `yaml:"name"`
	Scenes    []Scene         `yaml:"scenes"`
	Timeline  []TimelineEntry `yaml:"timeline"`
	Sync      []SyncTrack     `yaml:"sync"`
	Resources []string        `yaml:"resources"`
	Effects   []string        `yaml:"effects"`
}

// LoadDemo loads and validates a demo definition.
func LoadDemo(path string) (*Demo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demo definition: %w", err)
	}
	d, err := ParseDemo(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func ParseDemo(raw []byte) (*Demo, error) {
	var d Demo
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse demo definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate reports structural problems. Content problems that the player
// can degrade around (bad layers, zero durations) are left to it.
func (d *Demo) Validate() error {
	var errs []error
	scenes := make(map[string]bool, len(d.Scenes))
	for i, s := range d.Scenes {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("scene %d: missing name", i))
		}
		scenes[s.Name] = true
	}
	for i, e := range d.Timeline {
		if !scenes[e.Scene] {
			errs = append(errs, fmt.Errorf("timeline %d: unknown scene %q", i, e.Scene))
		}
	}
	for i, s := range d.Sync {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sync %d: missing name", i))
		}
		switch s.Type {
		case "", SyncPattern, SyncRocket:
		default:
			errs = append(errs, fmt.Errorf("sync %q: unknown type %q", s.Name, s.Type))
		}
	}
	return errors.Join(errs...)
}

// SceneCount returns the number of scenes defined.
func (d *Demo) SceneCount() int {
	return len(d.Scenes)
}

// AnimationCount returns the number of animations across all scenes.
func (d *Demo) AnimationCount() int {
	n := 0
	for _, s := range d.Scenes {
		n += len(s.Animations)
	}
	return n
}

// SyncCount returns the number of sync tracks defined.
func (d *Demo) SyncCount() int {
	return len(d.Sync)
}
