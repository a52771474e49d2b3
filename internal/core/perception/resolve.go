package perception

import (
	"sort"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Verdict explains the outcome of resolving one candidate.
type Verdict uint8

const (
	Visible Verdict = iota
	Stale
	NoHit
	SelfHit
	Occluded
	OutsideCone
	OutOfRange
)

var verdictNames = [...]string{"visible", "stale", "no_hit", "self_hit", "occluded", "outside_cone", "out_of_range"}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "unknown"
}

// Resolve scores every candidate in place. A candidate becomes visible only
// when the nearest body along the eye-to-target ray is the candidate itself and
// it lies inside both the vision cone and the vision range. Everything else
// keeps visibility 0. The returned slice holds one Verdict per candidate.
func Resolve(world physics.World, scene physics.Scene, eye physics.Pose, self physics.BodyID, cfg Config, candidates []DetectedObject) []Verdict {
	verdicts := make([]Verdict, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		c.Visibility = 0
		verdicts[i] = resolveOne(world, scene, eye, self, cfg, c)
	}
	return verdicts
}

func resolveOne(world physics.World, scene physics.Scene, eye physics.Pose, self physics.BodyID, cfg Config, c *DetectedObject) Verdict {
	pos, ok := scene.Position(c.Target)
	if !ok {
		return Stale
	}
	dir := pos.Sub(eye.Position)
	if dir.Norm2() == 0 {
		return NoHit
	}

	hits := world.CastRayAll(eye.Position, dir, cfg.VisionRange)
	if len(hits) == 0 {
		return NoHit
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	nearest := hits[0].Body
	switch {
	case self != "" && nearest == self:
		return SelfHit
	case nearest != c.Target:
		return Occluded
	case c.Angle > cfg.VisionHalfAngle:
		return OutsideCone
	case c.Distance > cfg.VisionRange:
		return OutOfRange
	}

	c.Visibility = Score(cfg, c.Angle, c.Distance)
	return Visible
}

// Score blends two linear falloffs, each 100 on the cone axis / at the eye and
// the configured floor at the cone edge / range limit.
func Score(cfg Config, angle, distance float64) float64 {
	angleVisibility := ((cfg.MinAngleFalloffPercent-100)/cfg.VisionHalfAngle)*angle + 100
	distanceVisibility := ((cfg.MinDistanceFalloffPercent-100)/cfg.VisionRange)*distance + 100
	return clamp((angleVisibility+distanceVisibility)/2, 0, 100)
}
