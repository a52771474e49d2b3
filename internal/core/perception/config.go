package perception

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

const (
	DefaultSensorRadius        = 21.0
	DefaultVisionRange         = 21.0
	DefaultVisionHalfAngle     = 21.0
	DefaultMinFalloffPercent   = 30.0
	DefaultVisibilityThreshold = 30.0
	DefaultScanInterval        = 250 * time.Millisecond

	// MinVisionExtent is the floor for VisionRange and VisionHalfAngle; both
	// divide the falloff slopes.
	MinVisionExtent = 1.0
	MaxHalfAngle    = 180.0
)

var ErrInvalidConfig = errors.New("invalid sensor config")

//go:embed config.schema.json
var configSchema []byte

// Config is the sensor configuration. It is read-only during a tick; use
// Sensor.SetConfig to change it.
type Config struct {
	SensorRadius              float64           `json:"sensor_radius" yaml:"sensor_radius"`
	VisionRange               float64           `json:"vision_range" yaml:"vision_range"`
	VisionHalfAngle           float64           `json:"vision_half_angle" yaml:"vision_half_angle"`
	MinAngleFalloffPercent    float64           `json:"min_angle_falloff_percent" yaml:"min_angle_falloff_percent"`
	MinDistanceFalloffPercent float64           `json:"min_distance_falloff_percent" yaml:"min_distance_falloff_percent"`
	VisibilityThreshold       float64           `json:"visibility_threshold" yaml:"visibility_threshold"`
	Layers                    physics.LayerMask `json:"layers" yaml:"layers"`
	Ignore                    []physics.BodyID  `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	IgnoreSelf                bool              `json:"ignore_self" yaml:"ignore_self"`
	ScanInterval              time.Duration     `json:"scan_interval" yaml:"scan_interval"`
}

// DefaultConfig mirrors the stock character sensor.
func DefaultConfig() Config {
	return Config{
		SensorRadius:              DefaultSensorRadius,
		VisionRange:               DefaultVisionRange,
		VisionHalfAngle:           DefaultVisionHalfAngle,
		MinAngleFalloffPercent:    DefaultMinFalloffPercent,
		MinDistanceFalloffPercent: DefaultMinFalloffPercent,
		VisibilityThreshold:       DefaultVisibilityThreshold,
		Layers:                    physics.Everything,
		IgnoreSelf:                true,
		ScanInterval:              DefaultScanInterval,
	}
}

// Normalize clamps every field into its valid range. It never fails:
// degenerate values are corrected silently.
func (c Config) Normalize() Config {
	c.SensorRadius = math.Max(sanitize(c.SensorRadius), MinVisionExtent)
	c.VisionRange = clamp(sanitize(c.VisionRange), MinVisionExtent, c.SensorRadius)
	c.VisionHalfAngle = clamp(sanitize(c.VisionHalfAngle), MinVisionExtent, MaxHalfAngle)
	c.MinAngleFalloffPercent = clamp(sanitize(c.MinAngleFalloffPercent), 0, 100)
	c.MinDistanceFalloffPercent = clamp(sanitize(c.MinDistanceFalloffPercent), 0, 100)
	c.VisibilityThreshold = clamp(sanitize(c.VisibilityThreshold), 0, 100)
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if len(c.Ignore) > 0 {
		c.Ignore = append([]physics.BodyID(nil), c.Ignore...)
	}
	return c
}

// ignoreSet returns the configured exclusions plus self when requested and known.
func (c Config) ignoreSet(self physics.BodyID) map[physics.BodyID]struct{} {
	set := make(map[physics.BodyID]struct{}, len(c.Ignore)+1)
	for _, id := range c.Ignore {
		set[id] = struct{}{}
	}
	if c.IgnoreSelf && self != "" {
		set[self] = struct{}{}
	}
	return set
}

// LoadConfig reads a YAML document, validates it against the config schema,
// overlays it onto DefaultConfig and normalizes the result.
func LoadConfig(r io.Reader) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig is LoadConfig over bytes.
func ParseConfig(raw []byte) (Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validateDocument(doc); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg.Normalize(), nil
}

func validateDocument(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(configSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return nil
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
