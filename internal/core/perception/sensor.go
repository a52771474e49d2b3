package perception

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// TickEvent is published on the sensor's bus after every tick; Data is the *Snapshot.
const TickEvent = "perception.tick"

// State of the periodic scan driver.
type State int32

const (
	StateIdle State = iota
	StateScanning
)

func (s State) String() string {
	if s == StateScanning {
		return "scanning"
	}
	return "idle"
}

// EyeFunc resolves the eye pose for a tick.
type EyeFunc func() (physics.Pose, bool)

// Sensor answers "what can this agent see right now".
//
// A tick gathers candidates within the sensor radius, resolves their
// visibility and atomically replaces the current snapshot. At most one tick
// runs at a time; readers always observe a complete snapshot.
type Sensor struct {
	id         string
	owner      physics.BodyID
	world      physics.World
	scene      physics.Scene
	eye        EyeFunc
	classifier Classifier
	events     bus.EventBus
	logger     log.Log
	now        func() time.Time

	cfgMu sync.RWMutex
	cfg   Config

	tickMu  sync.Mutex
	seq     uint64
	current atomic.Pointer[Snapshot]

	runMu sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}
}

type Option func(*Sensor)

// WithID overrides the generated sensor ID.
func WithID(id string) Option { return func(s *Sensor) { s.id = id } }

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) Option { return func(s *Sensor) { s.cfg = cfg } }

// WithEye uses another body's transform as the eye (a head bone, a turret).
func WithEye(id physics.BodyID) Option {
	return func(s *Sensor) {
		s.eye = func() (physics.Pose, bool) { return physics.PoseOf(s.scene, id) }
	}
}

// WithEyeFunc supplies the eye pose directly.
func WithEyeFunc(fn EyeFunc) Option { return func(s *Sensor) { s.eye = fn } }

func WithClassifier(c Classifier) Option { return func(s *Sensor) { s.classifier = c } }

// WithEvents publishes every tick on b.
func WithEvents(b bus.EventBus) Option { return func(s *Sensor) { s.events = b } }

func WithLogger(l log.Log) Option { return func(s *Sensor) { s.logger = l } }

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option { return func(s *Sensor) { s.now = now } }

// New creates an idle sensor owned by owner. owner may be empty for sensors
// without a body, in which case an eye must be supplied.
func New(world physics.World, scene physics.Scene, owner physics.BodyID, opts ...Option) *Sensor {
	s := &Sensor{
		id:     uuid.NewString(),
		owner:  owner,
		world:  world,
		scene:  scene,
		cfg:    DefaultConfig(),
		logger: log.Nop(),
		now:    time.Now,
	}
	s.eye = func() (physics.Pose, bool) { return physics.PoseOf(s.scene, s.owner) }
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.Normalize()
	s.logger = s.logger.With(log.String("sensor", s.id))
	s.current.Store(emptySnapshot(s.id, s.cfg))
	return s
}

func (s *Sensor) ID() string { return s.id }

func (s *Sensor) Owner() physics.BodyID { return s.owner }

func (s *Sensor) Classifier() Classifier { return s.classifier }

func (s *Sensor) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig normalizes and stores cfg. It takes effect on the next tick.
func (s *Sensor) SetConfig(cfg Config) {
	cfg = cfg.Normalize()
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// Scan runs one tick synchronously and returns its snapshot. It is available
// in every state. A cancelled ctx skips the tick and returns the current
// snapshot.
//
// Bus handlers run on the calling goroutine after the snapshot is stored and
// outside the tick lock, so a slow handler delays its caller but not other
// scans. Concurrent scans may publish out of sequence order.
func (s *Sensor) Scan(ctx context.Context) *Snapshot {
	if ctx.Err() != nil {
		return s.Snapshot()
	}

	s.tickMu.Lock()
	s.seq++
	snap := s.tick(s.Config(), s.seq)
	s.current.Store(snap)
	s.tickMu.Unlock()

	if s.events != nil {
		if err := s.events.Publish(bus.NewEvent(TickEvent, s.id, snap)); err != nil {
			s.logger.Warn("tick observer failed", log.Uint64("seq", snap.seq), log.Error(err))
		}
	}
	return snap
}

func (s *Sensor) tick(cfg Config, seq uint64) *Snapshot {
	at := s.now()
	eye, ok := s.eye()
	if !ok {
		s.logger.Debug("eye pose unavailable, empty tick", log.Uint64("seq", seq))
		return newSnapshot(s.id, seq, at, physics.Pose{}, cfg, nil)
	}

	self := s.owner
	if cfg.IgnoreSelf && self != "" {
		if _, ok := s.scene.Position(self); !ok {
			s.logger.Debug("owner body missing, self exclusion skipped", log.String("owner", string(self)))
			self = ""
		}
	}

	candidates := Gather(s.world, s.scene, eye, cfg, cfg.ignoreSet(self))
	verdicts := Resolve(s.world, s.scene, eye, s.owner, cfg, candidates)
	for i, v := range verdicts {
		if v == Stale {
			s.logger.Debug("target vanished before resolve",
				log.String("target", string(candidates[i].Target)),
				log.Uint64("seq", seq))
		}
	}
	return newSnapshot(s.id, seq, at, eye, cfg, candidates)
}

// Snapshot returns the latest completed tick.
func (s *Sensor) Snapshot() *Snapshot { return s.current.Load() }

func (s *Sensor) Visible() []DetectedObject { return s.Snapshot().Visible() }

func (s *Sensor) CanSee(target physics.BodyID) bool { return s.Snapshot().CanSee(target) }

func (s *Sensor) FindVisibleByTag(tag string) (DetectedObject, bool) {
	return s.Snapshot().FindVisibleByTag(s.classifier, tag)
}

func (s *Sensor) FindVisibleWithCapability(capability Capability) (any, bool) {
	return s.Snapshot().FindVisibleWithCapability(s.classifier, capability)
}

func (s *Sensor) NearestVisible(match func(DetectedObject) bool) (DetectedObject, bool) {
	return s.Snapshot().NearestVisible(match)
}

// NearestVisibleByTag is the nearest visible object carrying tag.
func (s *Sensor) NearestVisibleByTag(tag string) (DetectedObject, bool) {
	if s.classifier == nil {
		return DetectedObject{}, false
	}
	return s.NearestVisible(func(o DetectedObject) bool { return s.classifier.HasTag(o.Target, tag) })
}

func (s *Sensor) State() State {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.state
}

// Start moves the sensor from Idle to Scanning: a tick runs every
// Config().ScanInterval until Stop is called or ctx ends. Starting a scanning
// sensor is a no-op.
func (s *Sensor) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.state == StateScanning {
		return
	}
	s.state = StateScanning
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	interval := s.Config().ScanInterval
	s.logger.Info("scan loop started", log.Duration("interval", interval))
	go s.loop(ctx, interval, s.stop, s.done)
}

// Stop ends the scan loop and waits for it to exit. The latest snapshot stays
// readable.
func (s *Sensor) Stop() {
	s.runMu.Lock()
	if s.state != StateScanning {
		s.runMu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.state, s.stop, s.done = StateIdle, nil, nil
	s.runMu.Unlock()

	close(stop)
	<-done
	s.logger.Info("scan loop stopped")
}

func (s *Sensor) loop(ctx context.Context, interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.runMu.Lock()
			if s.stop == stop {
				s.state, s.stop, s.done = StateIdle, nil, nil
			}
			s.runMu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Scan(ctx)
			if next := s.Config().ScanInterval; next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}
