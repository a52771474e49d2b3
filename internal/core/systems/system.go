package systems

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/perception/internal/core/observability/log"
)

// System is a per-frame processor: movement, perception consumers, agents.
type System interface {
	Name() string
	Priority() Priority
	Update(ctx context.Context, deltaTime float64) error
}

// Priority defines execution order; higher runs first.
type Priority uint16

const (
	PriorityLow    Priority = 500
	PriorityNormal Priority = 600
	PriorityHigh   Priority = 1000
)

// Metrics provides runtime metrics for a system.
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
}

var ErrSystemExists = errors.New("system already registered")

// SystemFunc adapts a function to System.
type SystemFunc struct {
	SystemName     string
	SystemPriority Priority
	Fn             func(ctx context.Context, deltaTime float64) error
}

func (f SystemFunc) Name() string       { return f.SystemName }
func (f SystemFunc) Priority() Priority { return f.SystemPriority }
func (f SystemFunc) Update(ctx context.Context, dt float64) error {
	return f.Fn(ctx, dt)
}

type entry struct {
	system  System
	order   int
	metrics Metrics
}

// Manager runs registered systems once per frame in priority order, ties
// broken by registration order. A failing system does not stop the frame.
type Manager struct {
	mu      sync.Mutex
	entries []*entry
	byName  map[string]*entry
	logger  log.Log
	now     func() time.Time
}

func NewManager(logger log.Log) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{byName: make(map[string]*entry), logger: logger.Named("systems"), now: time.Now}
}

func (m *Manager) Register(s System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}
	e := &entry{system: s, order: len(m.entries)}
	m.entries = append(m.entries, e)
	m.byName[s.Name()] = e
	sort.SliceStable(m.entries, func(i, j int) bool {
		a, b := m.entries[i], m.entries[j]
		if a.system.Priority() != b.system.Priority() {
			return a.system.Priority() > b.system.Priority()
		}
		return a.order < b.order
	})
	return nil
}

// ExecutionOrder lists system names in the order Update runs them.
func (m *Manager) ExecutionOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.system.Name()
	}
	return out
}

// Update runs one frame and returns every system error joined.
func (m *Manager) Update(ctx context.Context, deltaTime float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, e := range m.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := m.now()
		err := e.system.Update(ctx, deltaTime)
		took := m.now().Sub(start)

		mt := &e.metrics
		mt.ExecutionCount++
		mt.TotalExecutionTime += took
		mt.AverageExecutionTime = mt.TotalExecutionTime / time.Duration(mt.ExecutionCount)
		if took > mt.MaxExecutionTime {
			mt.MaxExecutionTime = took
		}
		if err != nil {
			mt.ErrorCount++
			mt.LastError = err
			m.logger.Warn("system update failed", log.String("system", e.system.Name()), log.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.system.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Metrics(name string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return Metrics{}, false
	}
	return e.metrics, true
}
