package debugdraw

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/geo/r3"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Drawer is the minimal gizmo surface a snapshot is rendered onto.
type Drawer interface {
	// Begin starts a frame; Flush presents it.
	Begin()
	Flush()
	WireDisc(center, normal r3.Vector, radius float64, color tcell.Color)
	// WireArc sweeps degrees around normal starting at from.
	WireArc(center, normal, from r3.Vector, degrees, radius float64, color tcell.Color)
	Line(from, to r3.Vector, color tcell.Color)
	Label(at r3.Vector, text string, color tcell.Color)
}

var (
	ColorBounds  = tcell.ColorWhite
	ColorVisible = tcell.ColorRed
	ColorHidden  = tcell.ColorGray
)

// LabelOffset lifts target labels above the body.
var LabelOffset = physics.WorldUp.Mul(2)

// Observer renders tick snapshots. Candidate lines are always drawn; sensor
// bounds and labels only in debug mode.
type Observer struct {
	mu     sync.Mutex
	drawer Drawer
	debug  atomic.Bool
	follow atomic.Pointer[string]
	logger log.Log
}

func NewObserver(drawer Drawer, debugMode bool, logger log.Log) *Observer {
	if logger == nil {
		logger = log.Nop()
	}
	o := &Observer{drawer: drawer, logger: logger.Named("debugdraw")}
	o.debug.Store(debugMode)
	return o
}

func (o *Observer) SetDebugMode(on bool) { o.debug.Store(on) }

func (o *Observer) DebugMode() bool { return o.debug.Load() }

// Follow restricts drawing to one sensor's snapshots. An empty id draws all.
func (o *Observer) Follow(sensorID string) { o.follow.Store(&sensorID) }

func (o *Observer) follows(sensorID string) bool {
	id := o.follow.Load()
	return id == nil || *id == "" || *id == sensorID
}

// Attach draws every snapshot published on b until the subscription is cancelled.
func (o *Observer) Attach(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(perception.TickEvent, func(e bus.Event) error {
		snap, ok := e.Data().(*perception.Snapshot)
		if !ok {
			return fmt.Errorf("debugdraw: unexpected payload %T", e.Data())
		}
		o.Draw(snap)
		return nil
	})
}

// Draw renders one snapshot as a full frame.
func (o *Observer) Draw(snap *perception.Snapshot) {
	if snap == nil || !o.follows(snap.SensorID()) {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	d := o.drawer
	d.Begin()
	eye := snap.Eye()
	debug := o.DebugMode()
	if debug {
		drawBounds(d, eye, snap.Config())
	}
	for _, obj := range snap.Objects() {
		color := ColorHidden
		if obj.Visibility > 0 {
			color = ColorVisible
		}
		if debug {
			d.Label(obj.Position.Add(LabelOffset), Label(obj), color)
		}
		d.Line(eye.Position, obj.Position, color)
	}
	d.Flush()
	o.logger.Debug("frame drawn", log.Uint64("seq", snap.Seq()), log.Int("objects", snap.Len()))
}

func drawBounds(d Drawer, eye physics.Pose, cfg perception.Config) {
	d.WireDisc(eye.Position, eye.Up, cfg.SensorRadius, ColorBounds)
	d.WireArc(eye.Position, eye.Up, eye.Forward, -cfg.VisionHalfAngle, cfg.VisionRange, ColorBounds)
	d.WireArc(eye.Position, eye.Up, eye.Forward, cfg.VisionHalfAngle, cfg.VisionRange, ColorBounds)

	fwd := eye.Forward.Normalize()
	left := physics.RotateAround(fwd, eye.Up, -cfg.VisionHalfAngle)
	right := physics.RotateAround(fwd, eye.Up, cfg.VisionHalfAngle)
	d.Line(eye.Position, eye.Position.Add(left.Mul(cfg.VisionRange)), ColorBounds)
	d.Line(eye.Position, eye.Position.Add(right.Mul(cfg.VisionRange)), ColorBounds)
}

// Label is the per-target debug text.
func Label(obj perception.DetectedObject) string {
	return fmt.Sprintf("Dist: %.2f\nAngle: %.2fº\nVisibility: %.2f%%", obj.Distance, obj.Angle, obj.Visibility)
}
