package npc

import (
	"sort"
	"strings"
	"sync"
)

// bbMap is a thread-safe map-based blackboard implementation.
type bbMap struct {
	mu     sync.RWMutex
	data   map[string]any
	prefix string // empty for root
	root   *bbMap
}

// NewBlackboard creates a new root blackboard.
func NewBlackboard() Blackboard {
	m := &bbMap{data: make(map[string]any)}
	m.root = m
	return m
}

func (b *bbMap) fullKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

func (b *bbMap) Get(key string) (any, bool) {
	bb := b.root
	full := b.fullKey(key)
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	v, ok := bb.data[full]
	return v, ok
}

func (b *bbMap) Set(key string, value any) {
	bb := b.root
	full := b.fullKey(key)
	bb.mu.Lock()
	bb.data[full] = value
	bb.mu.Unlock()
}

func (b *bbMap) Delete(key string) {
	bb := b.root
	full := b.fullKey(key)
	bb.mu.Lock()
	delete(bb.data, full)
	bb.mu.Unlock()
}

// Namespace nests under the current prefix; ':' inside ns is replaced with '_'.
func (b *bbMap) Namespace(ns string) Blackboard {
	ns = strings.ReplaceAll(ns, ":", "_")
	return &bbMap{root: b.root, prefix: b.fullKey(ns)}
}

func (b *bbMap) Keys() []string {
	bb := b.root
	bb.mu.RLock()
	keys := make([]string, 0, len(bb.data))
	for k := range bb.data {
		keys = append(keys, k)
	}
	bb.mu.RUnlock()
	sort.Strings(keys)
	if b.prefix == "" {
		return keys
	}
	res := make([]string, 0)
	pref := b.prefix + ":"
	for _, k := range keys {
		if strings.HasPrefix(k, pref) {
			res = append(res, strings.TrimPrefix(k, pref))
		}
	}
	return res
}

// Lookup is Get with the value asserted to T.
func Lookup[T any](bb Blackboard, key string) (T, bool) {
	var zero T
	v, ok := bb.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
