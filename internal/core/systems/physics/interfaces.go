package physics

import "github.com/golang/geo/r3"

// Collaborator contracts consumed by perception sensors.
// The engine (or Space, the in-process reference world) implements them.

// BodyID is an opaque, comparable handle to a physical body.
// Sensors never own the bodies behind it.
type BodyID string

// RayHit is a single intersection reported by CastRayAll.
type RayHit struct {
	Body     BodyID
	Distance float64
}

// World is the broad-phase physics collaborator.
// Implementations must be safe for concurrent readers.
type World interface {
	// QueryOverlapping returns all bodies whose collider overlaps the sphere and
	// whose layer is in mask.
	QueryOverlapping(center r3.Vector, radius float64, mask LayerMask) []BodyID
	// CastRayAll returns every body hit along the ray up to maxDistance, unsorted.
	CastRayAll(origin, direction r3.Vector, maxDistance float64) []RayHit
}

// Scene is the transform collaborator. ok is false for unknown or destroyed bodies.
type Scene interface {
	Position(id BodyID) (r3.Vector, bool)
	Forward(id BodyID) (r3.Vector, bool)
	Up(id BodyID) (r3.Vector, bool)
}

// Pose is a world-space eye: where it is and where it looks.
type Pose struct {
	Position r3.Vector `json:"position"`
	Forward  r3.Vector `json:"forward"`
	Up       r3.Vector `json:"up"`
}

// PoseOf resolves the pose of id through scene.
func PoseOf(scene Scene, id BodyID) (Pose, bool) {
	pos, ok := scene.Position(id)
	if !ok {
		return Pose{}, false
	}
	fwd, ok := scene.Forward(id)
	if !ok {
		return Pose{}, false
	}
	up, ok := scene.Up(id)
	if !ok {
		up = WorldUp
	}
	return Pose{Position: pos, Forward: fwd, Up: up}, true
}
