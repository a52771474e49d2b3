package perception

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

var originEye = physics.Pose{
	Position: physics.Vec3(0, 0, 0),
	Forward:  physics.WorldForward,
	Up:       physics.WorldUp,
}

// scenarioConfig is the configuration shared by the worked examples.
func scenarioConfig() Config {
	cfg := DefaultConfig()
	cfg.VisionRange = 20
	cfg.VisionHalfAngle = 30
	cfg.MinAngleFalloffPercent = 30
	cfg.MinDistanceFalloffPercent = 30
	cfg.VisibilityThreshold = 30
	return cfg.Normalize()
}

func addSphere(t *testing.T, s *physics.Space, id physics.BodyID, pos r3.Vector, radius float64) physics.BodyID {
	t.Helper()
	got, err := s.Add(physics.BodyDef{ID: id, Shape: physics.Sphere(radius), Position: pos})
	require.NoError(t, err)
	return got
}

func addBox(t *testing.T, s *physics.Space, id physics.BodyID, pos, half r3.Vector) physics.BodyID {
	t.Helper()
	got, err := s.Add(physics.BodyDef{ID: id, Shape: physics.Box(half), Position: pos})
	require.NoError(t, err)
	return got
}

func gatherAndResolve(space *physics.Space, eye physics.Pose, self physics.BodyID, cfg Config) ([]DetectedObject, []Verdict) {
	candidates := Gather(space, space, eye, cfg, cfg.ignoreSet(self))
	verdicts := Resolve(space, space, eye, self, cfg, candidates)
	return candidates, verdicts
}

func find(t *testing.T, objs []DetectedObject, verdicts []Verdict, id physics.BodyID) (DetectedObject, Verdict) {
	t.Helper()
	for i, o := range objs {
		if o.Target == id {
			return o, verdicts[i]
		}
	}
	t.Fatalf("candidate %s not gathered", id)
	return DetectedObject{}, 0
}

// fakeWorld returns canned query and ray results.
type fakeWorld struct {
	overlapping []physics.BodyID
	hits        []physics.RayHit
	positions   map[physics.BodyID]r3.Vector
}

func (w *fakeWorld) QueryOverlapping(r3.Vector, float64, physics.LayerMask) []physics.BodyID {
	return w.overlapping
}

func (w *fakeWorld) CastRayAll(r3.Vector, r3.Vector, float64) []physics.RayHit {
	out := make([]physics.RayHit, len(w.hits))
	copy(out, w.hits)
	return out
}

func (w *fakeWorld) Position(id physics.BodyID) (r3.Vector, bool) {
	p, ok := w.positions[id]
	return p, ok
}

func (w *fakeWorld) Forward(id physics.BodyID) (r3.Vector, bool) {
	_, ok := w.positions[id]
	return physics.WorldForward, ok
}

func (w *fakeWorld) Up(id physics.BodyID) (r3.Vector, bool) {
	_, ok := w.positions[id]
	return physics.WorldUp, ok
}
