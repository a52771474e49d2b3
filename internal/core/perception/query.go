package perception

import (
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Read-only queries over a resolved snapshot. None of them triggers a tick.

// Visible returns every object at or above the visibility threshold.
func (s *Snapshot) Visible() []DetectedObject {
	out := make([]DetectedObject, 0, len(s.objects))
	for _, o := range s.objects {
		if o.Seen(s.Threshold()) {
			out = append(out, o)
		}
	}
	return out
}

// CanSee reports whether target is in the visible set.
func (s *Snapshot) CanSee(target physics.BodyID) bool {
	for _, o := range s.objects {
		if o.Target == target && o.Seen(s.Threshold()) {
			return true
		}
	}
	return false
}

// Lookup returns the candidate entry for target, visible or not.
func (s *Snapshot) Lookup(target physics.BodyID) (DetectedObject, bool) {
	for _, o := range s.objects {
		if o.Target == target {
			return o, true
		}
	}
	return DetectedObject{}, false
}

// FindVisibleByTag returns the first visible object, in candidate order,
// whose target carries tag.
func (s *Snapshot) FindVisibleByTag(cls Classifier, tag string) (DetectedObject, bool) {
	if cls == nil {
		return DetectedObject{}, false
	}
	for _, o := range s.objects {
		if cls.HasTag(o.Target, tag) && o.Seen(s.Threshold()) {
			return o, true
		}
	}
	return DetectedObject{}, false
}

// FindVisibleWithCapability returns the capability handle of the first visible
// object exposing it.
func (s *Snapshot) FindVisibleWithCapability(cls Classifier, capability Capability) (any, bool) {
	if cls == nil {
		return nil, false
	}
	for _, o := range s.objects {
		h, ok := cls.Capability(o.Target, capability)
		if ok && o.Seen(s.Threshold()) {
			return h, true
		}
	}
	return nil, false
}

// NearestVisible returns the closest visible object accepted by match.
// A nil match accepts everything.
func (s *Snapshot) NearestVisible(match func(DetectedObject) bool) (DetectedObject, bool) {
	var (
		best  DetectedObject
		found bool
	)
	for _, o := range s.objects {
		if !o.Seen(s.Threshold()) || (match != nil && !match(o)) {
			continue
		}
		if !found || o.Distance < best.Distance {
			best, found = o, true
		}
	}
	return best, found
}

// FindVisibleAs is FindVisibleWithCapability with the handle asserted to T.
// Handles of another type are skipped.
func FindVisibleAs[T any](s *Snapshot, cls Classifier, capability Capability) (T, bool) {
	var zero T
	if cls == nil {
		return zero, false
	}
	for _, o := range s.objects {
		if !o.Seen(s.Threshold()) {
			continue
		}
		h, ok := cls.Capability(o.Target, capability)
		if !ok {
			continue
		}
		if typed, ok := h.(T); ok {
			return typed, true
		}
	}
	return zero, false
}
