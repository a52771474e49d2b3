package npc

import (
	"context"
	"time"
)

// Status represents the execution result of a behavior node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Blackboard is a centralized, thread-safe storage for agent state.
// It supports namespaced keys.
type Blackboard interface {
	// Get retrieves a value by key. Returns (nil, false) if absent.
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	// Namespace returns a view of the blackboard using prefix"ns:" semantics.
	Namespace(ns string) Blackboard
	// Keys returns a sorted snapshot of existing keys.
	Keys() []string
}

// TickContext is passed into nodes during Tick.
type TickContext struct {
	Ctx   context.Context
	BB    Blackboard
	Clock func() time.Time
}

// BehaviorNode is the fundamental interface for behavior tree nodes.
// Implementations keep per-agent state in the Blackboard.
type BehaviorNode interface {
	Tick(t TickContext) (Status, error)
	// Name returns a human-readable name for debugging.
	Name() string
}

// Action performs side effects and returns status based on Blackboard state.
type Action interface {
	BehaviorNode
}

// Condition evaluates to success/failure based on Blackboard or world state.
type Condition interface {
	BehaviorNode
}

// Sensor pulls data from the external world and writes it to Blackboard.
type Sensor interface {
	Name() string
	// Update is called each agent step before the tree ticks.
	Update(ctx context.Context, bb Blackboard) error
}

// DecisionTree holds a root node and exposes Tick.
type DecisionTree interface {
	Root() BehaviorNode
	Tick(t TickContext) (Status, error)
}

// Registry allows plug-and-play modules to be registered by name.
type Registry interface {
	RegisterAction(name string, factory func(params map[string]any) (Action, error))
	RegisterCondition(name string, factory func(params map[string]any) (Condition, error))
	RegisterSensor(name string, factory func(params map[string]any) (Sensor, error))

	NewAction(name string, params map[string]any) (Action, error)
	NewCondition(name string, params map[string]any) (Condition, error)
	NewSensor(name string, params map[string]any) (Sensor, error)
}
