package lifecycle

import (
	"sync"

	"modelkeeper/pkg/types"
)

// InstanceCache holds at most one current (Available) instance and at most one
// in-progress (Training) instance for a Manager.
type InstanceCache struct {
	mu         sync.Mutex
	current    *types.Instance
	inProgress *types.Instance
}

func (c *InstanceCache) Current() (types.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return types.Instance{}, false
	}
	return *c.current, true
}

func (c *InstanceCache) InProgress() (types.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inProgress == nil {
		return types.Instance{}, false
	}
	return *c.inProgress, true
}

func (c *InstanceCache) SetCurrent(inst types.Instance) {
	c.mu.Lock()
	c.current = &inst
	c.mu.Unlock()
}

func (c *InstanceCache) SetInProgress(inst types.Instance) {
	c.mu.Lock()
	c.inProgress = &inst
	c.mu.Unlock()
}

func (c *InstanceCache) ClearInProgress() {
	c.mu.Lock()
	c.inProgress = nil
	c.mu.Unlock()
}

// Complete promotes inst to current and drops the in-progress marker.
func (c *InstanceCache) Complete(inst types.Instance) {
	c.mu.Lock()
	c.current = &inst
	c.inProgress = nil
	c.mu.Unlock()
}

// Invalidate drops the current instance so the next call re-resolves.
func (c *InstanceCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
