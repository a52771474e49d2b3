package npc

import (
	"context"
	"fmt"
	"time"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
)

// StepEvent is published after every agent step; Data is a StepResult.
const StepEvent = "npc.step"

type StepResult struct {
	Agent    string
	Root     string
	Status   Status
	Duration time.Duration
}

// Agent coordinates sensors, a decision tree and a blackboard.
type Agent struct {
	name    string
	bb      Blackboard
	tree    DecisionTree
	sensors []Sensor
	events  bus.EventBus
	logger  log.Log
	clock   func() time.Time
}

type AgentOption func(*Agent)

func WithBlackboard(bb Blackboard) AgentOption { return func(a *Agent) { a.bb = bb } }

func WithAgentEvents(b bus.EventBus) AgentOption { return func(a *Agent) { a.events = b } }

func WithAgentLogger(l log.Log) AgentOption { return func(a *Agent) { a.logger = l } }

func WithAgentClock(now func() time.Time) AgentOption { return func(a *Agent) { a.clock = now } }

// NewAgent constructs an agent from components.
func NewAgent(name string, tree DecisionTree, sensors []Sensor, opts ...AgentOption) *Agent {
	a := &Agent{
		name:    name,
		tree:    tree,
		sensors: sensors,
		logger:  log.Nop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bb == nil {
		a.bb = NewBlackboard()
	}
	if a.tree == nil {
		a.tree = Tree{}
	}
	a.logger = a.logger.Named("npc").With(log.String("agent", name))
	return a
}

// BuildAgent builds the tree and sensors described by cfg.
func BuildAgent(name string, cfg *Config, reg Registry, opts ...AgentOption) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("agent %s: config is nil", name)
	}
	tree, sensors, err := cfg.Build(reg)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}
	return NewAgent(name, tree, sensors, opts...), nil
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Blackboard() Blackboard { return a.bb }

// Step performs one cycle: sensors, then the tree.
func (a *Agent) Step(ctx context.Context) (Status, error) {
	for _, s := range a.sensors {
		if err := s.Update(ctx, a.bb); err != nil {
			a.logger.Warn("sensor update failed", log.String("sensor", s.Name()), log.Error(err))
			return StatusFailure, fmt.Errorf("sensor %s: %w", s.Name(), err)
		}
	}

	start := a.clock()
	st, err := a.tree.Tick(TickContext{Ctx: ctx, BB: a.bb, Clock: a.clock})
	res := StepResult{Agent: a.name, Status: st, Duration: a.clock().Sub(start)}
	if root := a.tree.Root(); root != nil {
		res.Root = root.Name()
	}
	a.logger.Debug("step", log.String("status", st.String()), log.Duration("took", res.Duration))

	if a.events != nil {
		if perr := a.events.Publish(bus.NewEvent(StepEvent, a.name, res)); perr != nil {
			a.logger.Warn("step observer failed", log.Error(perr))
		}
	}
	return st, err
}
