package npc

import (
	"context"
	"fmt"

	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// SensorLookup resolves a perception sensor by the name used in agent configs.
type SensorLookup func(name string) (*perception.Sensor, bool)

// Blackboard keys written by VisionSensor, relative to its output prefix.
const (
	KeyVisible      = "visible"
	KeyVisibleCount = "visible_count"
	KeyNearest      = "nearest"
)

// VisionSensor copies a perception sensor's visible set onto the blackboard.
// An idle perception sensor is scanned on demand; a scanning one is read as is.
type VisionSensor struct {
	name   string
	sensor *perception.Sensor
	tag    string
	out    string
}

// NewVisionSensor writes under out. A non-empty tag restricts the visible set
// to targets carrying it.
func NewVisionSensor(name string, sensor *perception.Sensor, tag, out string) *VisionSensor {
	return &VisionSensor{name: name, sensor: sensor, tag: tag, out: out}
}

func (v *VisionSensor) Name() string { return v.name }

func (v *VisionSensor) Update(ctx context.Context, bb Blackboard) error {
	snap := v.sensor.Snapshot()
	if v.sensor.State() == perception.StateIdle {
		snap = v.sensor.Scan(ctx)
	}
	cls := v.sensor.Classifier()
	if v.tag != "" && cls == nil {
		return fmt.Errorf("vision sensor %s: tag filter without classifier", v.name)
	}

	visible := snap.Visible()
	if v.tag != "" {
		kept := visible[:0]
		for _, o := range visible {
			if cls.HasTag(o.Target, v.tag) {
				kept = append(kept, o)
			}
		}
		visible = kept
	}

	bb.Set(v.key(KeyVisible), visible)
	bb.Set(v.key(KeyVisibleCount), len(visible))
	if len(visible) == 0 {
		bb.Delete(v.key(KeyNearest))
		return nil
	}
	nearest := visible[0]
	for _, o := range visible[1:] {
		if o.Distance < nearest.Distance {
			nearest = o
		}
	}
	bb.Set(v.key(KeyNearest), nearest)
	return nil
}

func (v *VisionSensor) key(k string) string { return v.out + "." + k }

// CanSee succeeds while target is in the sensor's visible set.
func CanSee(sensor *perception.Sensor, target physics.BodyID) Condition {
	return NewConditionFunc("CanSee("+string(target)+")", func(TickContext) (bool, error) {
		return sensor.CanSee(target), nil
	})
}

// CanSeeTag succeeds when some visible target carries tag. The nearest such
// target is stored under out when out is non-empty, and removed otherwise.
func CanSeeTag(sensor *perception.Sensor, tag, out string) Condition {
	return NewConditionFunc("CanSeeTag("+tag+")", func(t TickContext) (bool, error) {
		o, ok := sensor.NearestVisibleByTag(tag)
		if out != "" {
			if ok {
				t.BB.Set(out, o)
			} else {
				t.BB.Delete(out)
			}
		}
		return ok, nil
	})
}

// RegisterVision registers VisionSensor, CanSee and CanSeeTag. Each takes a
// "sensor" param naming a perception sensor known to lookup.
func RegisterVision(r Registry, lookup SensorLookup) {
	resolve := func(kind string, params map[string]any) (*perception.Sensor, error) {
		name := stringParam(params, "sensor")
		if name == "" {
			return nil, fmt.Errorf("%s requires 'sensor'", kind)
		}
		s, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown perception sensor %q", kind, name)
		}
		return s, nil
	}

	r.RegisterSensor("VisionSensor", func(params map[string]any) (Sensor, error) {
		s, err := resolve("VisionSensor", params)
		if err != nil {
			return nil, err
		}
		out := stringParam(params, "out")
		if out == "" {
			out = "vision"
		}
		return NewVisionSensor("VisionSensor", s, stringParam(params, "tag"), out), nil
	})
	r.RegisterCondition("CanSee", func(params map[string]any) (Condition, error) {
		s, err := resolve("CanSee", params)
		if err != nil {
			return nil, err
		}
		target := stringParam(params, "target")
		if target == "" {
			return nil, fmt.Errorf("CanSee requires 'target'")
		}
		return CanSee(s, physics.BodyID(target)), nil
	})
	r.RegisterCondition("CanSeeTag", func(params map[string]any) (Condition, error) {
		s, err := resolve("CanSeeTag", params)
		if err != nil {
			return nil, err
		}
		tag := stringParam(params, "tag")
		if tag == "" {
			return nil, fmt.Errorf("CanSeeTag requires 'tag'")
		}
		return CanSeeTag(s, tag, stringParam(params, "out")), nil
	})
}
