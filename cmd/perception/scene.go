package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/perception/internal/core/npc"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// sceneFile is the demo world: bodies, which of them carry a sensor, the
// agents driven by those sensors and simple back-and-forth patrols.
type sceneFile struct {
	LogLevel string       `yaml:"log_level"`
	Sensor   yaml.Node    `yaml:"sensor"`
	Bodies   []bodySpec   `yaml:"bodies"`
	Sensors  []sensorSpec `yaml:"sensors"`
	Agents   []agentSpec  `yaml:"agents"`
	Patrols  []patrolSpec `yaml:"patrols"`
}

type vec [3]float64

func (v vec) r3() r3.Vector { return physics.Vec3(v[0], v[1], v[2]) }

type bodySpec struct {
	ID           string         `yaml:"id"`
	Shape        string         `yaml:"shape"`
	Radius       float64        `yaml:"radius"`
	HalfExtents  vec            `yaml:"half_extents"`
	Position     vec            `yaml:"position"`
	Forward      *vec           `yaml:"forward"`
	Layer        uint           `yaml:"layer"`
	Tags         []string       `yaml:"tags"`
	Capabilities map[string]any `yaml:"capabilities"`
}

type sensorSpec struct {
	Owner string `yaml:"owner"`
	Eye   string `yaml:"eye"`
}

type agentSpec struct {
	Name string     `yaml:"name"`
	Tree npc.Config `yaml:"tree"`
}

type patrolSpec struct {
	Body  string  `yaml:"body"`
	To    vec     `yaml:"to"`
	Speed float64 `yaml:"speed"`
}

// scene is a loaded sceneFile.
type scene struct {
	logLevel string
	config   perception.Config
	space    *physics.Space
	catalog  *perception.Catalog
	sensors  []sensorSpec
	agents   []agentSpec
	patrols  []*patrol
}

func loadSceneFile(path string) (*scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadScene(f)
}

func loadScene(r io.Reader) (*scene, error) {
	var doc sceneFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}

	cfg := perception.DefaultConfig()
	if !doc.Sensor.IsZero() {
		raw, err := yaml.Marshal(&doc.Sensor)
		if err != nil {
			return nil, fmt.Errorf("sensor config: %w", err)
		}
		if cfg, err = perception.ParseConfig(raw); err != nil {
			return nil, err
		}
	}

	sc := &scene{
		logLevel: doc.LogLevel,
		config:   cfg,
		space:    physics.NewSpace(),
		catalog:  perception.NewCatalog(),
		sensors:  doc.Sensors,
		agents:   doc.Agents,
	}
	for _, b := range doc.Bodies {
		if err := sc.addBody(b); err != nil {
			return nil, fmt.Errorf("body %q: %w", b.ID, err)
		}
	}
	for _, s := range doc.Sensors {
		if _, ok := sc.space.Position(physics.BodyID(s.Owner)); !ok {
			return nil, fmt.Errorf("sensor owner %q: %w", s.Owner, physics.ErrBodyNotFound)
		}
	}
	for _, p := range doc.Patrols {
		from, ok := sc.space.Position(physics.BodyID(p.Body))
		if !ok {
			return nil, fmt.Errorf("patrol %q: %w", p.Body, physics.ErrBodyNotFound)
		}
		if p.Speed <= 0 {
			return nil, fmt.Errorf("patrol %q: speed must be positive", p.Body)
		}
		sc.patrols = append(sc.patrols, &patrol{body: physics.BodyID(p.Body), from: from, to: p.To.r3(), speed: p.Speed})
	}
	return sc, nil
}

func (sc *scene) addBody(b bodySpec) error {
	var shape physics.Shape
	switch b.Shape {
	case "", "sphere":
		shape = physics.Sphere(b.Radius)
	case "box":
		shape = physics.Box(b.HalfExtents.r3())
	default:
		return fmt.Errorf("%w: unknown shape %q", physics.ErrInvalidShape, b.Shape)
	}
	def := physics.BodyDef{
		ID:       physics.BodyID(b.ID),
		Shape:    shape,
		Position: b.Position.r3(),
		Layer:    physics.Layer(b.Layer),
	}
	if b.Forward != nil {
		def.Forward = b.Forward.r3()
	}
	id, err := sc.space.Add(def)
	if err != nil {
		return err
	}
	if len(b.Tags) > 0 {
		sc.catalog.Tag(id, b.Tags...)
	}
	for name, handle := range b.Capabilities {
		sc.catalog.Provide(id, perception.Capability(name), handle)
	}
	return nil
}

// patrol moves a body between two points at constant speed.
type patrol struct {
	body     physics.BodyID
	from, to r3.Vector
	speed    float64
	t        float64 // 0..1 along the leg
	back     bool
}

var errPatrolGone = errors.New("patrolled body is gone")

// advance moves the body by dt seconds and turns it to face its heading.
func (p *patrol) advance(space *physics.Space, dt float64) error {
	leg := p.to.Sub(p.from)
	length := leg.Norm()
	if length == 0 {
		return nil
	}
	step := p.speed * dt / length
	if p.back {
		p.t -= step
	} else {
		p.t += step
	}
	if p.t >= 1 || p.t <= 0 {
		p.t = math.Max(0, math.Min(1, p.t))
		p.back = !p.back
	}

	heading := leg
	if p.back {
		heading = leg.Mul(-1)
	}
	pos := p.from.Add(leg.Mul(p.t))
	if err := space.Move(p.body, pos); err != nil {
		return fmt.Errorf("%w: %v", errPatrolGone, err)
	}
	return space.Turn(p.body, heading)
}
