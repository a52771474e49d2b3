package perception

import (
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Gather collects every body within cfg.SensorRadius of the eye that matches
// cfg.Layers and is not in ignore. Each candidate carries its distance and
// angle off the eye's forward axis; visibility starts at zero.
//
// Bodies whose position cannot be resolved are dropped. Order follows the
// world query and carries no meaning.
func Gather(world physics.World, scene physics.Scene, eye physics.Pose, cfg Config, ignore map[physics.BodyID]struct{}) []DetectedObject {
	if cfg.SensorRadius < 0 {
		return nil
	}
	hits := world.QueryOverlapping(eye.Position, cfg.SensorRadius, cfg.Layers)
	out := make([]DetectedObject, 0, len(hits))
	seen := make(map[physics.BodyID]struct{}, len(hits))
	for _, id := range hits {
		if _, skip := ignore[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		pos, ok := scene.Position(id)
		if !ok {
			continue
		}
		seen[id] = struct{}{}

		toTarget := pos.Sub(eye.Position)
		out = append(out, DetectedObject{
			Target:   id,
			Position: pos,
			Angle:    physics.AngleDegrees(toTarget, eye.Forward),
			Distance: toTarget.Norm(),
		})
	}
	return out
}
