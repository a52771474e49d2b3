package perception

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

func TestNormalizeClampsDegenerateValues(t *testing.T) {
	cfg := Config{
		SensorRadius:              -5,
		VisionRange:               50,
		VisionHalfAngle:           400,
		MinAngleFalloffPercent:    -10,
		MinDistanceFalloffPercent: 250,
		VisibilityThreshold:       math.NaN(),
		ScanInterval:              -time.Second,
	}.Normalize()

	assert.Equal(t, MinVisionExtent, cfg.SensorRadius)
	assert.Equal(t, cfg.SensorRadius, cfg.VisionRange, "range never exceeds the sensor radius")
	assert.Equal(t, MaxHalfAngle, cfg.VisionHalfAngle)
	assert.Zero(t, cfg.MinAngleFalloffPercent)
	assert.Equal(t, 100.0, cfg.MinDistanceFalloffPercent)
	assert.Zero(t, cfg.VisibilityThreshold)
	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)

	zero := Config{SensorRadius: 10, VisionRange: 0, VisionHalfAngle: math.Inf(1)}.Normalize()
	assert.Equal(t, MinVisionExtent, zero.VisionRange)
	assert.Equal(t, MinVisionExtent, zero.VisionHalfAngle)
}

func TestNormalizeCopiesIgnoreList(t *testing.T) {
	ignore := []physics.BodyID{"a"}
	cfg := Config{Ignore: ignore}.Normalize()
	ignore[0] = "b"
	assert.Equal(t, []physics.BodyID{"a"}, cfg.Ignore)
}

func TestIgnoreSet(t *testing.T) {
	cfg := Config{Ignore: []physics.BodyID{"crate"}, IgnoreSelf: true}
	assert.Len(t, cfg.ignoreSet("me"), 2)
	assert.Len(t, cfg.ignoreSet(""), 1)

	cfg.IgnoreSelf = false
	_, ok := cfg.ignoreSet("me")["me"]
	assert.False(t, ok)
}

func TestParseConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
sensor_radius: 30
vision_range: 25
vision_half_angle: 45
min_angle_falloff_percent: 10
min_distance_falloff_percent: 20
visibility_threshold: 50
layers: 3
ignore: [crate, barrel]
ignore_self: false
scan_interval: 100ms
`))
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.SensorRadius)
	assert.Equal(t, 25.0, cfg.VisionRange)
	assert.Equal(t, 45.0, cfg.VisionHalfAngle)
	assert.Equal(t, 10.0, cfg.MinAngleFalloffPercent)
	assert.Equal(t, 20.0, cfg.MinDistanceFalloffPercent)
	assert.Equal(t, 50.0, cfg.VisibilityThreshold)
	assert.Equal(t, physics.LayerMask(3), cfg.Layers)
	assert.Equal(t, []physics.BodyID{"crate", "barrel"}, cfg.Ignore)
	assert.False(t, cfg.IgnoreSelf)
	assert.Equal(t, 100*time.Millisecond, cfg.ScanInterval)
}

func TestParseConfigDefaultsAndClamps(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = ParseConfig([]byte("sensor_radius: 5\nvision_range: 12\n"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.VisionRange)
	assert.Equal(t, DefaultVisionHalfAngle, cfg.VisionHalfAngle)
}

func TestParseConfigRejectsInvalidDocuments(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":      "sight: 10\n",
		"angle too wide":   "vision_half_angle: 270\n",
		"negative percent": "visibility_threshold: -1\n",
		"wrong type":       "sensor_radius: far\n",
		"bad interval":     "scan_interval: soon\n",
		"not yaml":         "sensor_radius: [1,\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
