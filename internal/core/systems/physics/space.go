package physics

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

var (
	_ World = (*Space)(nil)
	_ Scene = (*Space)(nil)
)

var (
	ErrBodyExists   = errors.New("body already exists")
	ErrBodyNotFound = errors.New("body not found")
	ErrInvalidShape = errors.New("invalid body shape")
)

// ShapeKind enumerates supported collider shapes.
type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
)

// Shape is a collider. Boxes are axis aligned.
type Shape struct {
	Kind        ShapeKind
	Radius      float64
	HalfExtents r3.Vector
}

func Sphere(radius float64) Shape { return Shape{Kind: ShapeSphere, Radius: radius} }

func Box(halfExtents r3.Vector) Shape { return Shape{Kind: ShapeBox, HalfExtents: halfExtents} }

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeSphere:
		if s.Radius <= 0 {
			return fmt.Errorf("%w: sphere radius must be positive", ErrInvalidShape)
		}
	case ShapeBox:
		h := s.HalfExtents
		if h.X <= 0 || h.Y <= 0 || h.Z <= 0 {
			return fmt.Errorf("%w: box half extents must be positive", ErrInvalidShape)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidShape, s.Kind)
	}
	return nil
}

func (s Shape) extents() r3.Vector {
	if s.Kind == ShapeSphere {
		return r3.Vector{X: s.Radius, Y: s.Radius, Z: s.Radius}
	}
	return s.HalfExtents
}

// BodyDef describes a body to add to a Space.
// Zero Forward/Up default to WorldForward/WorldUp, zero Layer to Layer(0).
type BodyDef struct {
	ID       BodyID
	Shape    Shape
	Position r3.Vector
	Forward  r3.Vector
	Up       r3.Vector
	Layer    LayerMask
}

type body struct {
	id       BodyID
	shape    Shape
	position r3.Vector
	forward  r3.Vector
	up       r3.Vector
	layer    LayerMask
	rect     rtreego.Rect
}

func (b *body) Bounds() rtreego.Rect { return b.rect }

func (b *body) refreshBounds() {
	b.rect = boundsRect(b.position.Sub(b.shape.extents()), b.position.Add(b.shape.extents()))
}

// Space is an in-process physics world: an R-tree broad phase with exact
// sphere and box narrow phase. Readers may run concurrently.
type Space struct {
	mu     sync.RWMutex
	tree   *rtreego.Rtree
	bodies map[BodyID]*body
}

func NewSpace() *Space {
	return &Space{
		tree:   rtreego.NewTree(3, 4, 16),
		bodies: make(map[BodyID]*body),
	}
}

// Add inserts a body and returns its ID, generating one when def.ID is empty.
func (s *Space) Add(def BodyDef) (BodyID, error) {
	if err := def.Shape.validate(); err != nil {
		return "", err
	}
	if def.ID == "" {
		def.ID = BodyID(uuid.NewString())
	}
	if def.Forward.Norm2() == 0 {
		def.Forward = WorldForward
	}
	if def.Up.Norm2() == 0 {
		def.Up = WorldUp
	}
	if def.Layer == 0 {
		def.Layer = Layer(0)
	}

	b := &body{
		id:       def.ID,
		shape:    def.Shape,
		position: def.Position,
		forward:  def.Forward.Normalize(),
		up:       def.Up.Normalize(),
		layer:    def.Layer,
	}
	b.refreshBounds()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bodies[b.id]; exists {
		return "", fmt.Errorf("%w: %s", ErrBodyExists, b.id)
	}
	s.bodies[b.id] = b
	s.tree.Insert(b)
	return b.id, nil
}

// Remove deletes a body. Handles held elsewhere become stale.
func (s *Space) Remove(id BodyID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return false
	}
	s.tree.Delete(b)
	delete(s.bodies, id)
	return true
}

// Move teleports a body.
func (s *Space) Move(id BodyID, position r3.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBodyNotFound, id)
	}
	// bounds are the tree key, so the body must leave the tree before it changes
	s.tree.Delete(b)
	b.position = position
	b.refreshBounds()
	s.tree.Insert(b)
	return nil
}

// Turn sets a body's forward direction.
func (s *Space) Turn(id BodyID, forward r3.Vector) error {
	if forward.Norm2() == 0 {
		return errors.New("forward must be non-zero")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBodyNotFound, id)
	}
	b.forward = forward.Normalize()
	return nil
}

func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bodies)
}

func (s *Space) Position(id BodyID) (r3.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bodies[id]; ok {
		return b.position, true
	}
	return r3.Vector{}, false
}

func (s *Space) Forward(id BodyID) (r3.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bodies[id]; ok {
		return b.forward, true
	}
	return r3.Vector{}, false
}

func (s *Space) Up(id BodyID) (r3.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bodies[id]; ok {
		return b.up, true
	}
	return r3.Vector{}, false
}

func (s *Space) QueryOverlapping(center r3.Vector, radius float64, mask LayerMask) []BodyID {
	if radius < 0 {
		return nil
	}
	ext := r3.Vector{X: radius, Y: radius, Z: radius}
	query := boundsRect(center.Sub(ext), center.Add(ext))

	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.tree.SearchIntersect(query)
	out := make([]BodyID, 0, len(found))
	for _, sp := range found {
		b := sp.(*body)
		if !mask.Contains(b.layer) {
			continue
		}
		if sphereOverlaps(b, center, radius) {
			out = append(out, b.id)
		}
	}
	return out
}

func (s *Space) CastRayAll(origin, direction r3.Vector, maxDistance float64) []RayHit {
	dir := direction.Normalize()
	if dir.Norm2() == 0 || maxDistance <= 0 {
		return nil
	}
	end := origin.Add(dir.Mul(maxDistance))
	query := boundsRect(minVec(origin, end), maxVec(origin, end))

	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.tree.SearchIntersect(query)
	hits := make([]RayHit, 0, len(found))
	for _, sp := range found {
		b := sp.(*body)
		t, ok := rayEnters(b, origin, dir)
		if !ok || t > maxDistance {
			continue
		}
		hits = append(hits, RayHit{Body: b.id, Distance: t})
	}
	return hits
}

func sphereOverlaps(b *body, center r3.Vector, radius float64) bool {
	switch b.shape.Kind {
	case ShapeSphere:
		return b.position.Distance(center) <= b.shape.Radius+radius
	default:
		lo := b.position.Sub(b.shape.HalfExtents)
		hi := b.position.Add(b.shape.HalfExtents)
		closest := r3.Vector{
			X: clamp(center.X, lo.X, hi.X),
			Y: clamp(center.Y, lo.Y, hi.Y),
			Z: clamp(center.Z, lo.Z, hi.Z),
		}
		return closest.Distance(center) <= radius
	}
}

// rayEnters returns the entry distance of a unit ray into b. Colliders that
// contain the origin are not hit.
func rayEnters(b *body, origin, dir r3.Vector) (float64, bool) {
	switch b.shape.Kind {
	case ShapeSphere:
		oc := origin.Sub(b.position)
		c := oc.Norm2() - b.shape.Radius*b.shape.Radius
		if c <= 0 {
			return 0, false
		}
		half := oc.Dot(dir)
		disc := half*half - c
		if disc < 0 {
			return 0, false
		}
		t := -half - math.Sqrt(disc)
		if t < 0 {
			return 0, false
		}
		return t, true
	default:
		lo := b.position.Sub(b.shape.HalfExtents)
		hi := b.position.Add(b.shape.HalfExtents)
		tMin, tMax := math.Inf(-1), math.Inf(1)
		for _, axis := range [3][4]float64{
			{origin.X, dir.X, lo.X, hi.X},
			{origin.Y, dir.Y, lo.Y, hi.Y},
			{origin.Z, dir.Z, lo.Z, hi.Z},
		} {
			o, d, a, z := axis[0], axis[1], axis[2], axis[3]
			if math.Abs(d) < 1e-12 {
				if o < a || o > z {
					return 0, false
				}
				continue
			}
			t1, t2 := (a-o)/d, (z-o)/d
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			tMin = math.Max(tMin, t1)
			tMax = math.Min(tMax, t2)
			if tMin > tMax {
				return 0, false
			}
		}
		if tMin <= 0 {
			// origin inside, or box behind the ray
			return 0, false
		}
		return tMin, true
	}
}

const rectPadding = 1e-6

func boundsRect(lo, hi r3.Vector) rtreego.Rect {
	p := rtreego.Point{lo.X - rectPadding, lo.Y - rectPadding, lo.Z - rectPadding}
	lengths := []float64{
		hi.X - lo.X + 2*rectPadding,
		hi.Y - lo.Y + 2*rectPadding,
		hi.Z - lo.Z + 2*rectPadding,
	}
	r, err := rtreego.NewRect(p, lengths)
	if err != nil {
		// lengths are strictly positive by construction
		panic(err)
	}
	return r
}

func minVec(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
