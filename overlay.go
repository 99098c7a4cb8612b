package prototable

import (
	"encoding/json"
	"fmt"
)

// OverlayColumn is the prototype/instance hybrid column. It holds one
// template value per loaded prototype and materializes per-instance storage
// only when an instance is individually written (copy-on-write). Until then an
// instance reads through to the template of the prototype it was spawned
// from.
//
// Three co-located structures back it: the template slice (indexed by
// prototype ID), the override map (keyed by instance ID), and a presence
// bitset with one bit per instance ID. The invariant is that for every
// instance i below the instance count, presence bit i is set iff the override
// map holds an entry for i. A set bit with no entry is internal corruption
// and panics rather than returning a wrong value.
//
// Copy-on-write clones are plain value copies, so element types must be value
// types: a T containing a slice or map would keep aliasing the template
// through its materialized override.
type OverlayColumn[T any] struct {
	templates []T
	overrides map[int]*T
	presence  bitset
	instances int
	def       T
}

// Prototypes returns the number of loaded templates.
func (c *OverlayColumn[T]) Prototypes() int {
	return len(c.templates)
}

// Instances returns the number of spawned instance slots tracked.
func (c *OverlayColumn[T]) Instances() int {
	return c.instances
}

// Template returns a pointer to the template value for a prototype ID. It
// panics if protoID is out of range.
func (c *OverlayColumn[T]) Template(protoID int) *T {
	if protoID < 0 || protoID >= len(c.templates) {
		panic(fmt.Sprintf("overlay template out of range: %d with %d prototypes", protoID, len(c.templates)))
	}
	return &c.templates[protoID]
}

// PushInstance adds one instance slot with no override; reads fall back to
// the prototype template until the slot is first written.
func (c *OverlayColumn[T]) PushInstance() {
	id := c.instances
	c.instances++
	c.presence.grow(id)
}

// HasOverride reports whether the instance has materialized its own value.
// Instance IDs beyond the tracked count report false.
func (c *OverlayColumn[T]) HasOverride(instanceID int) bool {
	if instanceID < 0 || instanceID >= c.instances {
		return false
	}
	return c.presence.test(instanceID)
}

// Get reads the value for an instance, falling back to the template at
// protoID when the instance holds no override. The caller supplies protoID
// because the overlay does not track which prototype an instance was spawned
// from; the owning table does. It panics if instanceID or protoID is out of
// range.
func (c *OverlayColumn[T]) Get(instanceID, protoID int) T {
	if instanceID < 0 || instanceID >= c.instances {
		panic(fmt.Sprintf("overlay get out of range: %d with %d instances", instanceID, c.instances))
	}
	if c.presence.test(instanceID) {
		v, ok := c.overrides[instanceID]
		if !ok {
			panic(fmt.Sprintf("overlay presence bit set for instance %d but no override entry", instanceID))
		}
		return *v
	}
	return *c.Template(protoID)
}

// GetMut returns a mutable handle to the instance's own value, cloning the
// template at protoID into the override map first if the instance has not
// been written yet. It panics if instanceID is out of range, or if the clone
// is needed and protoID is out of range.
func (c *OverlayColumn[T]) GetMut(instanceID, protoID int) *T {
	if instanceID < 0 || instanceID >= c.instances {
		panic(fmt.Sprintf("overlay get-mut out of range: %d with %d instances", instanceID, c.instances))
	}
	if !c.presence.test(instanceID) {
		base := *c.Template(protoID)
		c.insertOverride(instanceID, &base)
	}
	v, ok := c.overrides[instanceID]
	if !ok {
		panic(fmt.Sprintf("overlay presence bit set for instance %d but no override entry", instanceID))
	}
	return v
}

// Set stores an override value for the instance unconditionally, skipping the
// clone step of GetMut. It panics if instanceID is out of range.
func (c *OverlayColumn[T]) Set(instanceID int, value T) {
	if instanceID < 0 || instanceID >= c.instances {
		panic(fmt.Sprintf("overlay set out of range: %d with %d instances", instanceID, c.instances))
	}
	c.insertOverride(instanceID, &value)
}

// ClearOverride removes the instance's override, if any, reverting it to the
// prototype fallback. Clearing a non-existent slot is a silent no-op.
func (c *OverlayColumn[T]) ClearOverride(instanceID int) {
	if instanceID < 0 || instanceID >= c.instances {
		return
	}
	c.presence.unset(instanceID)
	delete(c.overrides, instanceID)
}

// SwapRemoveInstance removes an instance slot with the same O(1) swap
// semantics as DenseColumn.SwapRemove: the last slot's override state (or the
// absence of one) follows the slot into index. Templates are untouched. It
// panics if index is out of range.
func (c *OverlayColumn[T]) SwapRemoveInstance(index int) {
	if index < 0 || index >= c.instances {
		panic(fmt.Sprintf("overlay swap-remove out of range: %d with %d instances", index, c.instances))
	}

	last := c.instances - 1
	c.ClearOverride(index)

	if index != last {
		if c.presence.test(last) {
			v, ok := c.overrides[last]
			if !ok {
				panic(fmt.Sprintf("overlay presence bit set for instance %d but no override entry", last))
			}
			delete(c.overrides, last)
			c.overrides[index] = v
			c.presence.set(index)
		}
		// index's bit is already clear from ClearOverride above.
	}
	c.presence.unset(last)
	c.instances--
}

func (c *OverlayColumn[T]) insertOverride(instanceID int, v *T) {
	if c.overrides == nil {
		c.overrides = make(map[int]*T)
	}
	c.overrides[instanceID] = v
	c.presence.set(instanceID)
}

// seedFrom clones the prototype column's templates and drops all instance
// state. After seeding, reads on the derived table fall back to the cloned
// templates without any per-instance allocation.
func (c *OverlayColumn[T]) seedFrom(src column) {
	s := src.(*OverlayColumn[T])
	c.templates = make([]T, len(s.templates))
	copy(c.templates, s.templates)
	c.overrides = make(map[int]*T)
	c.presence.reset()
	c.instances = 0
}

// ingest appends to the templates: on a prototype table, ingesting a field
// value defines a new template, never an override.
func (c *OverlayColumn[T]) ingest(raw json.RawMessage) {
	c.templates = append(c.templates, decodeOrDefault(raw, c.def))
}

// spawnFrom extends the presence index by one unset bit. No prototype data is
// copied; materialization is deferred to the first write.
func (c *OverlayColumn[T]) spawnFrom(column, int) {
	c.PushInstance()
}

func (c *OverlayColumn[T]) swapRemove(index int) {
	c.SwapRemoveInstance(index)
}

func (c *OverlayColumn[T]) hasOverride(record int) bool {
	return c.HasOverride(record)
}

func (c *OverlayColumn[T]) clearOverride(record int) {
	c.ClearOverride(record)
}
