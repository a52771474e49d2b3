package perception

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Capability names a component or behavior a body can expose, e.g. "health".
type Capability string

// Classifier is the host object model as seen by the query interface.
type Classifier interface {
	HasTag(id physics.BodyID, tag string) bool
	// Capability returns the handle registered for (id, capability).
	Capability(id physics.BodyID, capability Capability) (any, bool)
}

var _ Classifier = (*Catalog)(nil)

type entry struct {
	tags         map[uint64]struct{}
	capabilities map[uint64]any
}

// Catalog is an explicit registration table for tags and capabilities.
// Keys are hashed once at registration so lookups on the query path compare
// integers. Safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[physics.BodyID]*entry
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[physics.BodyID]*entry)}
}

func (c *Catalog) entryLocked(id physics.BodyID) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{tags: make(map[uint64]struct{}), capabilities: make(map[uint64]any)}
		c.entries[id] = e
	}
	return e
}

// Tag adds tags to a body.
func (c *Catalog) Tag(id physics.BodyID, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(id)
	for _, t := range tags {
		e.tags[xxhash.Sum64String(t)] = struct{}{}
	}
}

// Provide registers handle as id's implementation of capability.
func (c *Catalog) Provide(id physics.BodyID, capability Capability, handle any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryLocked(id).capabilities[xxhash.Sum64String(string(capability))] = handle
}

// Forget drops everything registered for id.
func (c *Catalog) Forget(id physics.BodyID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

func (c *Catalog) HasTag(id physics.BodyID, tag string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	_, ok = e.tags[xxhash.Sum64String(tag)]
	return ok
}

func (c *Catalog) Capability(id physics.BodyID, capability Capability) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	h, ok := e.capabilities[xxhash.Sum64String(string(capability))]
	return h, ok
}
