package npc

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrUnknownSensor    = errors.New("unknown sensor")
)

// reg is an in-memory registry for plug-and-play modules.
type reg struct {
	mu    sync.RWMutex
	acts  map[string]func(map[string]any) (Action, error)
	conds map[string]func(map[string]any) (Condition, error)
	sens  map[string]func(map[string]any) (Sensor, error)
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &reg{
		acts:  make(map[string]func(map[string]any) (Action, error)),
		conds: make(map[string]func(map[string]any) (Condition, error)),
		sens:  make(map[string]func(map[string]any) (Sensor, error)),
	}
}

func (r *reg) RegisterAction(name string, factory func(map[string]any) (Action, error)) {
	r.mu.Lock()
	r.acts[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterCondition(name string, factory func(map[string]any) (Condition, error)) {
	r.mu.Lock()
	r.conds[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterSensor(name string, factory func(map[string]any) (Sensor, error)) {
	r.mu.Lock()
	r.sens[name] = factory
	r.mu.Unlock()
}

func (r *reg) NewAction(name string, params map[string]any) (Action, error) {
	r.mu.RLock()
	f := r.acts[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return f(params)
}

func (r *reg) NewCondition(name string, params map[string]any) (Condition, error) {
	r.mu.RLock()
	f := r.conds[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCondition, name)
	}
	return f(params)
}

func (r *reg) NewSensor(name string, params map[string]any) (Sensor, error) {
	r.mu.RLock()
	f := r.sens[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, name)
	}
	return f(params)
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}
