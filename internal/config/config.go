// Package config loads and validates the gatecount configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/gatecount/internal/detector"
	"github.com/ayusman/gatecount/internal/gate"
	"github.com/ayusman/gatecount/internal/region"
	"github.com/ayusman/gatecount/internal/tracking"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Merge modes accepted in the tracking section.
const (
	MergeLiteral = "literal"
	MergeUnion   = "union"
)

// ConfigurationError reports an invalid configuration value. It is fatal
// and raised before any frame is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config is the root of the configuration file.
type Config struct {
	// Source is a video file path. Empty means Camera.
	Source string `json:"source,omitempty"`
	Camera int    `json:"camera,omitempty"`
	// FPS throttles processing; 0 runs as fast as frames arrive.
	FPS int `json:"fps,omitempty"`

	Database   string `json:"database,omitempty"`
	HTTP       string `json:"http,omitempty"`
	PluginsDir string `json:"plugins_dir,omitempty"`
	Preview    bool   `json:"preview,omitempty"`
	Tray       bool   `json:"tray,omitempty"`

	Regions []Region `json:"regions"`
}

// Region configures one monitored zone.
type Region struct {
	Name string `json:"name"`
	// Rect is the zone in frame coordinates.
	Rect     tracking.Box    `json:"rect"`
	Line     Line            `json:"line"`
	Tracking Tracking        `json:"tracking"`
	Detector detector.Config `json:"detector"`
}

// Point is a pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) image() image.Point { return image.Pt(p.X, p.Y) }

// Line configures a gate line in zone coordinates.
type Line struct {
	From        Point  `json:"from"`
	To          Point  `json:"to"`
	Orientation string `json:"orientation"`
	Tolerance   *int   `json:"tolerance,omitempty"`
}

// Tracking holds the association tunables of a zone. Omitted fields take
// the defaults.
type Tracking struct {
	OverlapThreshold *float64 `json:"overlap_threshold,omitempty"`
	Staleness        *int     `json:"staleness,omitempty"`
	Merge            string   `json:"merge,omitempty"`
}

// GetOverlapThreshold returns the overlap threshold or the default.
func (t Tracking) GetOverlapThreshold() float64 {
	if t.OverlapThreshold == nil {
		return tracking.DefaultOverlapThreshold
	}
	return *t.OverlapThreshold
}

// GetStaleness returns the staleness or the default.
func (t Tracking) GetStaleness() int {
	if t.Staleness == nil {
		return tracking.DefaultStaleness
	}
	return *t.Staleness
}

// GetTolerance returns the tolerance or the default.
func (l Line) GetTolerance() int {
	if l.Tolerance == nil {
		return gate.DefaultTolerance
	}
	return *l.Tolerance
}

func ptrInt(v int) *int { return &v }

// Load reads a configuration file. The file must have a .json extension
// and be under 1MB. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return cfg, nil
}

// Save writes cfg as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Default returns the four-zone layout for a frame of the given size: a
// left and a right zone at a third of the height, and a top and a bottom
// zone a third of the way across. Zones are clipped to the frame.
func Default(frameSize image.Point) *Config {
	w, h := frameSize.X, frameSize.Y
	bounds := image.Rect(0, 0, w, h)
	clip := func(r image.Rectangle) tracking.Box {
		return tracking.BoxFromRect(r.Intersect(bounds))
	}

	mog := func(varThreshold float64) detector.Config {
		c := detector.DefaultConfig()
		c.VarThreshold = varThreshold
		return c
	}

	return &Config{
		Regions: []Region{
			{
				Name: "left",
				Rect: clip(image.Rect(0, h/3, 500, h/3+500)),
				Line: Line{
					From:        Point{100, 250},
					To:          Point{100, h},
					Orientation: gate.Left.String(),
				},
				Detector: mog(25),
			},
			{
				Name: "right",
				Rect: clip(image.Rect(w-500, h/3, w, h/3+500)),
				Line: Line{
					From:        Point{290, 250},
					To:          Point{290, h},
					Orientation: gate.Right.String(),
				},
				Detector: mog(120),
			},
			{
				Name: "top",
				Rect: clip(image.Rect(w/3-100, 0, w/3+500, 500)),
				Line: Line{
					From:        Point{70, 350},
					To:          Point{600, 350},
					Orientation: gate.Top.String(),
				},
				Detector: mog(25),
			},
			{
				Name: "bottom",
				Rect: clip(image.Rect(w/3-100, h-500, w/3+500, h)),
				Line: Line{
					From:        Point{150, 400},
					To:          Point{300, 400},
					Orientation: gate.Bottom.String(),
				},
				Detector: mog(200),
			},
		},
	}
}

// Validate checks every zone against a frame of the given size. A zero
// frameSize skips the bounds check.
func (c *Config) Validate(frameSize image.Point) error {
	if len(c.Regions) == 0 {
		return invalid("regions", "at least one region is required")
	}
	if c.FPS < 0 {
		return invalid("fps", "must be non-negative, got %d", c.FPS)
	}

	bounds := image.Rect(0, 0, frameSize.X, frameSize.Y)
	for i, r := range c.Regions {
		field := func(name string) string { return fmt.Sprintf("regions[%d].%s", i, name) }

		if !r.Rect.Valid() {
			return invalid(field("rect"), "empty rectangle %v", r.Rect)
		}
		if frameSize != (image.Point{}) && !r.Rect.Rect().In(bounds) {
			return invalid(field("rect"), "%v outside %dx%d frame", r.Rect, frameSize.X, frameSize.Y)
		}

		if _, err := gate.ParseOrientation(r.Line.Orientation); err != nil {
			return invalid(field("line.orientation"), "%v", err)
		}
		if r.Line.From == r.Line.To {
			return invalid(field("line"), "zero-length line at %v", r.Line.From)
		}
		if r.Line.GetTolerance() < 0 {
			return invalid(field("line.tolerance"), "must be non-negative, got %d", r.Line.GetTolerance())
		}

		if th := r.Tracking.GetOverlapThreshold(); th <= 0 || th >= 1 {
			return invalid(field("tracking.overlap_threshold"), "must be in (0, 1), got %g", th)
		}
		if s := r.Tracking.GetStaleness(); s < 1 {
			return invalid(field("tracking.staleness"), "must be at least 1, got %d", s)
		}
		if _, err := mergeFunc(r.Tracking.Merge); err != nil {
			return invalid(field("tracking.merge"), "%v", err)
		}

		if err := r.Detector.Validate(); err != nil {
			return invalid(field("detector"), "%v", err)
		}
	}

	return nil
}

func mergeFunc(mode string) (tracking.MergeFunc, error) {
	switch strings.ToLower(mode) {
	case "", MergeLiteral:
		return tracking.Merge, nil
	case MergeUnion:
		return tracking.Union, nil
	}
	return nil, fmt.Errorf("unknown merge mode %q", mode)
}

// RegionConfig converts zone i into a region.Config. The configuration
// must have passed Validate.
func (c *Config) RegionConfig(i int) (region.Config, error) {
	r := c.Regions[i]

	o, err := gate.ParseOrientation(r.Line.Orientation)
	if err != nil {
		return region.Config{}, invalid(fmt.Sprintf("regions[%d].line.orientation", i), "%v", err)
	}
	merge, err := mergeFunc(r.Tracking.Merge)
	if err != nil {
		return region.Config{}, invalid(fmt.Sprintf("regions[%d].tracking.merge", i), "%v", err)
	}

	line := gate.NewLine(r.Line.From.image(), r.Line.To.image(), o)
	line.Tolerance = r.Line.GetTolerance()

	return region.Config{
		Index: i,
		Name:  r.Name,
		Rect:  r.Rect.Rect(),
		Line:  line,
		Tracking: tracking.Config{
			OverlapThreshold: r.Tracking.GetOverlapThreshold(),
			Staleness:        r.Tracking.GetStaleness(),
			Merge:            merge,
		},
	}, nil
}

// Build creates one region, with its detector, per configured zone.
func (c *Config) Build() ([]*region.Region, error) {
	regions := make([]*region.Region, 0, len(c.Regions))
	closeAll := func() {
		for _, r := range regions {
			r.Close()
		}
	}

	for i := range c.Regions {
		rc, err := c.RegionConfig(i)
		if err != nil {
			closeAll()
			return nil, err
		}
		det, err := detector.New(c.Regions[i].Detector)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("region %d detector: %w", i, err)
		}
		r, err := region.New(rc, det)
		if err != nil {
			det.Close()
			closeAll()
			return nil, err
		}
		regions = append(regions, r)
	}

	return regions, nil
}
