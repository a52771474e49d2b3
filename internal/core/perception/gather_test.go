package perception

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

func TestGatherComputesAngleAndDistance(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "ahead", physics.Vec3(0, 0, 10), 0.5)
	addSphere(t, space, "diagonal", physics.Vec3(10, 0, 10), 0.5)
	addSphere(t, space, "behind", physics.Vec3(0, 0, -4), 0.5)

	got := Gather(space, space, originEye, scenarioConfig(), nil)
	require.Len(t, got, 3)

	byID := map[physics.BodyID]DetectedObject{}
	for _, o := range got {
		byID[o.Target] = o
		assert.Zero(t, o.Visibility)
	}
	assert.InDelta(t, 0, byID["ahead"].Angle, 1e-9)
	assert.InDelta(t, 10, byID["ahead"].Distance, 1e-9)
	assert.InDelta(t, 45, byID["diagonal"].Angle, 1e-9)
	assert.InDelta(t, 14.142135, byID["diagonal"].Distance, 1e-6)
	assert.InDelta(t, 180, byID["behind"].Angle, 1e-9)
	assert.Equal(t, physics.Vec3(0, 0, -4), byID["behind"].Position)
}

func TestGatherHonoursRadiusMaskAndIgnoreSet(t *testing.T) {
	space := physics.NewSpace()
	addSphere(t, space, "in", physics.Vec3(0, 0, 5), 0.5)
	addSphere(t, space, "ignored", physics.Vec3(0, 0, 6), 0.5)
	addSphere(t, space, "far", physics.Vec3(0, 0, 40), 0.5)
	_, err := space.Add(physics.BodyDef{ID: "masked", Shape: physics.Sphere(0.5), Position: physics.Vec3(1, 0, 3), Layer: physics.Layer(5)})
	require.NoError(t, err)

	cfg := scenarioConfig()
	cfg.Layers = physics.Layer(0)
	cfg.Ignore = []physics.BodyID{"ignored"}

	got := Gather(space, space, originEye, cfg, cfg.ignoreSet(""))
	require.Len(t, got, 1)
	assert.Equal(t, physics.BodyID("in"), got[0].Target)
}

func TestGatherDropsDuplicatesAndUnknownBodies(t *testing.T) {
	w := &fakeWorld{
		overlapping: []physics.BodyID{"a", "a", "ghost", "b"},
		positions: map[physics.BodyID]r3.Vector{
			"a": physics.Vec3(0, 0, 1),
			"b": physics.Vec3(0, 0, 2),
		},
	}

	got := Gather(w, w, originEye, scenarioConfig(), nil)
	require.Len(t, got, 2)
	assert.Equal(t, physics.BodyID("a"), got[0].Target)
	assert.Equal(t, physics.BodyID("b"), got[1].Target)
}
