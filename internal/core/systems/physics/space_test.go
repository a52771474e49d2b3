package physics

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, s *Space, def BodyDef) BodyID {
	t.Helper()
	id, err := s.Add(def)
	require.NoError(t, err)
	return id
}

func TestSpaceAddValidatesShape(t *testing.T) {
	s := NewSpace()

	_, err := s.Add(BodyDef{Shape: Sphere(0)})
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = s.Add(BodyDef{Shape: Box(Vec3(1, 0, 1))})
	assert.ErrorIs(t, err, ErrInvalidShape)

	id := mustAdd(t, s, BodyDef{Shape: Sphere(1)})
	assert.NotEmpty(t, id)

	_, err = s.Add(BodyDef{ID: id, Shape: Sphere(1)})
	assert.ErrorIs(t, err, ErrBodyExists)
}

func TestSpaceDefaultsOrientation(t *testing.T) {
	s := NewSpace()
	id := mustAdd(t, s, BodyDef{ID: "a", Shape: Sphere(1), Forward: Vec3(0, 0, 5)})

	fwd, ok := s.Forward(id)
	require.True(t, ok)
	assert.InDelta(t, 1.0, fwd.Norm(), 1e-9)

	up, ok := s.Up(id)
	require.True(t, ok)
	assert.Equal(t, WorldUp, up)
}

func TestQueryOverlapping(t *testing.T) {
	s := NewSpace()
	mustAdd(t, s, BodyDef{ID: "near", Shape: Sphere(0.5), Position: Vec3(0, 0, 5)})
	mustAdd(t, s, BodyDef{ID: "edge", Shape: Sphere(1), Position: Vec3(0, 0, 10.5)})
	mustAdd(t, s, BodyDef{ID: "far", Shape: Sphere(0.5), Position: Vec3(0, 0, 30)})
	mustAdd(t, s, BodyDef{ID: "wall", Shape: Box(Vec3(5, 5, 0.5)), Position: Vec3(0, 0, -10.2)})
	mustAdd(t, s, BodyDef{ID: "other-layer", Shape: Sphere(0.5), Position: Vec3(1, 0, 1), Layer: Layer(3)})

	got := s.QueryOverlapping(Vec3(0, 0, 0), 10, Layer(0))
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []BodyID{"edge", "near", "wall"}, got)

	got = s.QueryOverlapping(Vec3(0, 0, 0), 10, Everything)
	assert.Len(t, got, 4)

	assert.Empty(t, s.QueryOverlapping(Vec3(0, 0, 0), -1, Everything))
}

func TestCastRayAllReportsEveryHitUnsortedWithinRange(t *testing.T) {
	s := NewSpace()
	mustAdd(t, s, BodyDef{ID: "target", Shape: Sphere(0.5), Position: Vec3(0, 0, 10)})
	mustAdd(t, s, BodyDef{ID: "blocker", Shape: Box(Vec3(1, 1, 0.25)), Position: Vec3(0, 0, 5)})
	mustAdd(t, s, BodyDef{ID: "beyond", Shape: Sphere(0.5), Position: Vec3(0, 0, 40)})
	mustAdd(t, s, BodyDef{ID: "aside", Shape: Sphere(0.5), Position: Vec3(3, 0, 7)})

	hits := s.CastRayAll(Vec3(0, 0, 0), Vec3(0, 0, 1), 20)
	require.Len(t, hits, 2)

	byID := map[BodyID]float64{}
	for _, h := range hits {
		byID[h.Body] = h.Distance
	}
	assert.InDelta(t, 4.75, byID["blocker"], 1e-9)
	assert.InDelta(t, 9.5, byID["target"], 1e-9)
}

func TestCastRayAllSkipsCollidersContainingOrigin(t *testing.T) {
	s := NewSpace()
	mustAdd(t, s, BodyDef{ID: "self", Shape: Sphere(1), Position: Vec3(0, 0, 0)})
	mustAdd(t, s, BodyDef{ID: "room", Shape: Box(Vec3(50, 50, 50)), Position: Vec3(0, 0, 0)})
	mustAdd(t, s, BodyDef{ID: "target", Shape: Sphere(0.5), Position: Vec3(0, 0, 10)})

	hits := s.CastRayAll(Vec3(0, 0, 0), Vec3(0, 0, 1), 20)
	require.Len(t, hits, 1)
	assert.Equal(t, BodyID("target"), hits[0].Body)
}

func TestCastRayAllIgnoresBodiesBehind(t *testing.T) {
	s := NewSpace()
	mustAdd(t, s, BodyDef{ID: "behind", Shape: Sphere(0.5), Position: Vec3(0, 0, -5)})
	mustAdd(t, s, BodyDef{ID: "box-behind", Shape: Box(Vec3(1, 1, 1)), Position: Vec3(0, 0, -8)})

	assert.Empty(t, s.CastRayAll(Vec3(0, 0, 0), Vec3(0, 0, 1), 20))
	assert.Empty(t, s.CastRayAll(Vec3(0, 0, 0), Vec3(0, 0, 0), 20))
}

func TestMoveAndRemove(t *testing.T) {
	s := NewSpace()
	id := mustAdd(t, s, BodyDef{Shape: Sphere(0.5), Position: Vec3(0, 0, 5)})

	require.NoError(t, s.Move(id, Vec3(0, 0, 50)))
	assert.Empty(t, s.QueryOverlapping(Vec3(0, 0, 0), 10, Everything))
	assert.Equal(t, []BodyID{id}, s.QueryOverlapping(Vec3(0, 0, 50), 1, Everything))

	assert.True(t, s.Remove(id))
	assert.False(t, s.Remove(id))
	_, ok := s.Position(id)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Move(id, Vec3(0, 0, 0)), ErrBodyNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestRotateAroundAndAngle(t *testing.T) {
	v := RotateAround(WorldForward, WorldUp, 90)
	assert.InDelta(t, 1.0, v.X, 1e-9)
	assert.InDelta(t, 0.0, v.Z, 1e-9)

	assert.InDelta(t, 45.0, AngleDegrees(Vec3(10, 0, 10), WorldForward), 1e-9)
	assert.InDelta(t, 180.0, AngleDegrees(Vec3(0, 0, -3), WorldForward), 1e-9)
	assert.Equal(t, 0.0, AngleDegrees(Vec3(0, 0, 0), WorldForward))

	u, w := Basis(WorldUp)
	assert.InDelta(t, 0.0, u.Dot(WorldUp), 1e-9)
	assert.InDelta(t, 0.0, w.Dot(WorldUp), 1e-9)
	assert.InDelta(t, 0.0, u.Dot(w), 1e-9)
	assert.InDelta(t, 1.0, w.Norm(), 1e-9)
	assert.False(t, math.IsNaN(u.X))
}

func TestLayerMask(t *testing.T) {
	m := Layer(1) | Layer(4)
	assert.True(t, m.Contains(Layer(1)))
	assert.False(t, m.Contains(Layer(2)))
	assert.False(t, m.Contains(0))
	assert.True(t, Everything.Contains(Layer(31)))
}
