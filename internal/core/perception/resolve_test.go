package perception

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

func TestResolveUnobstructedTargetAhead(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "target", physics.Vec3(0, 0, 10), 0.5)

	objs, verdicts := gatherAndResolve(space, originEye, "", scenarioConfig())
	obj, v := find(t, objs, verdicts, "target")

	assert.Equal(t, Visible, v)
	assert.InDelta(t, 0, obj.Angle, 1e-9)
	assert.InDelta(t, 10, obj.Distance, 1e-9)
	assert.InDelta(t, 82.5, obj.Visibility, 1e-9)
}

func TestResolveOccludedTarget(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "target", physics.Vec3(0, 0, 10), 0.5)
	addBox(t, space, "wall", physics.Vec3(0, 0, 5), physics.Vec3(1, 1, 0.1))

	objs, verdicts := gatherAndResolve(space, originEye, "", scenarioConfig())
	obj, v := find(t, objs, verdicts, "target")
	assert.Equal(t, Occluded, v)
	assert.Zero(t, obj.Visibility)
}

func TestResolveTargetOutsideCone(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "target", physics.Vec3(10, 0, 10), 0.5)

	objs, verdicts := gatherAndResolve(space, originEye, "", scenarioConfig())
	obj, v := find(t, objs, verdicts, "target")
	assert.InDelta(t, 45, obj.Angle, 1e-9)
	assert.Equal(t, OutsideCone, v)
	assert.Zero(t, obj.Visibility)
}

func TestResolveTargetBeyondVisionRange(t *testing.T) {
	cfg := scenarioConfig()
	cfg.VisionRange = 10
	cfg = cfg.Normalize()

	space := physics.NewSpace()
	addSphere(t, space, "small", physics.Vec3(0, 0, 15), 0.5)
	addSphere(t, space, "large", physics.Vec3(3, 0, 15), 6)

	objs, verdicts := gatherAndResolve(space, originEye, "", cfg)

	small, v := find(t, objs, verdicts, "small")
	assert.Zero(t, small.Visibility)
	assert.NotEqual(t, Visible, v)

	large, v := find(t, objs, verdicts, "large")
	assert.Equal(t, OutOfRange, v)
	assert.Zero(t, large.Visibility)
}

func TestResolveSelfHitIsSkipped(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "owner", physics.Vec3(0, 0, 1), 0.5)
	addSphere(t, space, "target", physics.Vec3(0, 0, 10), 0.5)

	objs, verdicts := gatherAndResolve(space, originEye, "owner", scenarioConfig())
	require.Len(t, objs, 1)
	obj, v := find(t, objs, verdicts, "target")
	assert.Equal(t, SelfHit, v)
	assert.Zero(t, obj.Visibility)
}

func TestResolveStaleHandle(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "target", physics.Vec3(0, 0, 10), 0.5)
	addSphere(t, space, "other", physics.Vec3(0, 0, -10), 0.5)
	cfg := scenarioConfig()

	objs := Gather(space, space, originEye, cfg, nil)
	require.Len(t, objs, 2)
	require.True(t, space.Remove("target"))

	verdicts := Resolve(space, space, originEye, "", cfg, objs)
	obj, v := find(t, objs, verdicts, "target")
	assert.Equal(t, Stale, v)
	assert.Zero(t, obj.Visibility)
	assert.Equal(t, "stale", v.String())
}

func TestResolveNoHitsLeavesZero(t *testing.T) {
	w := &fakeWorld{
		overlapping: []physics.BodyID{"a"},
		positions:   map[physics.BodyID]r3.Vector{"a": physics.Vec3(0, 0, 3)},
	}
	objs := Gather(w, w, originEye, scenarioConfig(), nil)
	verdicts := Resolve(w, w, originEye, "", scenarioConfig(), objs)
	assert.Equal(t, []Verdict{NoHit}, verdicts)
	assert.Zero(t, objs[0].Visibility)
}

func TestResolveSortsUnorderedHits(t *testing.T) {
	w := &fakeWorld{
		overlapping: []physics.BodyID{"a", "b"},
		positions: map[physics.BodyID]r3.Vector{
			"a": physics.Vec3(0, 0, 8),
			"b": physics.Vec3(0, 0, 4),
		},
		hits: []physics.RayHit{{Body: "a", Distance: 7.5}, {Body: "b", Distance: 3.5}},
	}
	cfg := scenarioConfig()
	objs := Gather(w, w, originEye, cfg, nil)
	verdicts := Resolve(w, w, originEye, "", cfg, objs)

	assert.Equal(t, Occluded, verdicts[0])
	assert.Equal(t, Visible, verdicts[1])
	assert.InDelta(t, (100+(-70.0/20)*4+100)/2, objs[1].Visibility, 1e-9)
}

func TestResolveIsIdempotent(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "a", physics.Vec3(2, 0, 9), 0.5)
	addSphere(t, space, "b", physics.Vec3(-3, 1, 12), 0.5)
	addSphere(t, space, "c", physics.Vec3(0, 0, -6), 0.5)
	cfg := scenarioConfig()

	objs := Gather(space, space, originEye, cfg, nil)
	first := Resolve(space, space, originEye, "", cfg, objs)
	snapshot := append([]DetectedObject(nil), objs...)

	second := Resolve(space, space, originEye, "", cfg, objs)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, objs)
}

func TestVisibilityDecreasesWithAngle(t *testing.T) {
	cfg := scenarioConfig()
	prev := math.Inf(1)
	for deg := 0.0; deg <= cfg.VisionHalfAngle; deg += 5 {
		rad := deg * math.Pi / 180
		space := physics.NewSpace()
		addSphere(t, space, "t", physics.Vec3(10*math.Sin(rad), 0, 10*math.Cos(rad)), 0.5)

		objs, verdicts := gatherAndResolve(space, originEye, "", cfg)
		obj, v := find(t, objs, verdicts, "t")
		require.Equal(t, Visible, v, "angle %v", deg)
		assert.LessOrEqual(t, obj.Visibility, prev, "angle %v", deg)
		prev = obj.Visibility
	}
}

func TestScoreBoundsAndEdges(t *testing.T) {
	for _, minA := range []float64{0, 30, 100} {
		for _, minD := range []float64{0, 55, 100} {
			cfg := scenarioConfig()
			cfg.MinAngleFalloffPercent = minA
			cfg.MinDistanceFalloffPercent = minD
			cfg = cfg.Normalize()

			assert.InDelta(t, 100, Score(cfg, 0, 0), 1e-9)
			assert.InDelta(t, (minA+minD)/2, Score(cfg, cfg.VisionHalfAngle, cfg.VisionRange), 1e-9)

			for a := 0.0; a <= cfg.VisionHalfAngle; a += 3 {
				for d := 0.0; d <= cfg.VisionRange; d += 2 {
					v := Score(cfg, a, d)
					assert.GreaterOrEqual(t, v, 0.0)
					assert.LessOrEqual(t, v, 100.0)
				}
			}
		}
	}
}
