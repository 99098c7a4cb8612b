package prototable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func newOverlay(t *testing.T, templates ...string) *OverlayColumn[string] {
	t.Helper()
	c := &OverlayColumn[string]{}
	for _, v := range templates {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		c.ingest(raw)
	}
	return c
}

func TestOverlayIngestBuildsTemplates(t *testing.T) {
	c := newOverlay(t, "a", "b")
	c.ingest(nil) // absent field loads the type default
	require.Equal(t, 3, c.Prototypes())
	require.Equal(t, 0, c.Instances())
	require.Equal(t, "a", *c.Template(0))
	require.Equal(t, "b", *c.Template(1))
	require.Equal(t, "", *c.Template(2))
}

func TestOverlayReadThrough(t *testing.T) {
	c := newOverlay(t, "a", "b")
	c.PushInstance()
	c.PushInstance()
	require.Equal(t, 2, c.Instances())

	// No override yet: both instances read the template they point at.
	require.Equal(t, "b", c.Get(0, 1))
	require.Equal(t, "b", c.Get(1, 1))
	require.False(t, c.HasOverride(0))
	require.False(t, c.HasOverride(1))
}

func TestOverlayCopyOnWrite(t *testing.T) {
	c := newOverlay(t, "a", "b")
	c.PushInstance()
	c.PushInstance()

	v := c.GetMut(0, 1)
	require.Equal(t, "b", *v, "first write must clone the template")
	*v = "mine"

	require.True(t, c.HasOverride(0))
	require.Equal(t, "mine", c.Get(0, 1))
	require.Equal(t, "b", c.Get(1, 1), "other instances must be unaffected")
	require.Equal(t, "b", *c.Template(1), "the template must be unaffected")

	// A second GetMut returns the materialized value, not a fresh clone.
	require.Equal(t, "mine", *c.GetMut(0, 1))
}

func TestOverlaySet(t *testing.T) {
	c := newOverlay(t, "a")
	c.PushInstance()
	c.Set(0, "forced")
	require.True(t, c.HasOverride(0))
	require.Equal(t, "forced", c.Get(0, 0))
}

func TestOverlayClearOverride(t *testing.T) {
	c := newOverlay(t, "a")
	c.PushInstance()
	c.Set(0, "forced")
	c.ClearOverride(0)
	require.False(t, c.HasOverride(0))
	require.Equal(t, "a", c.Get(0, 0), "cleared instance reverts to the template")

	// Clearing a non-existent slot is a silent no-op.
	c.ClearOverride(99)
}

func TestOverlaySeedFrom(t *testing.T) {
	proto := newOverlay(t, "a", "b")

	inst := &OverlayColumn[string]{}
	inst.ingest(json.RawMessage(`"stale"`))
	inst.PushInstance()
	inst.Set(0, "stale override")

	inst.seedFrom(proto)
	require.Equal(t, 2, inst.Prototypes())
	require.Equal(t, 0, inst.Instances())
	require.Equal(t, "a", *inst.Template(0))

	// Slots spawned after re-seeding must not inherit presence bits from
	// the column's previous life.
	inst.PushInstance()
	require.False(t, inst.HasOverride(0), "fresh slot after seedFrom reports an override")
	require.Equal(t, "a", inst.Get(0, 0))

	// The clone is independent: mutating the seeded templates never reaches
	// the prototype column.
	*inst.Template(0) = "changed"
	require.Equal(t, "a", *proto.Template(0))
}

func TestOverlaySwapRemoveMovesOverride(t *testing.T) {
	c := newOverlay(t, "a")
	for range 3 {
		c.PushInstance()
	}
	c.Set(2, "last override")

	c.SwapRemoveInstance(0)
	require.Equal(t, 2, c.Instances())
	require.True(t, c.HasOverride(0), "the last slot's override must follow the swap")
	require.Equal(t, "last override", c.Get(0, 0))
	require.False(t, c.HasOverride(1))

	_, leftover := c.overrides[2]
	require.False(t, leftover, "removed slot must leave no override entry behind")
}

func TestOverlaySwapRemoveClearsTarget(t *testing.T) {
	c := newOverlay(t, "a")
	for range 3 {
		c.PushInstance()
	}
	c.Set(0, "doomed")

	// The last slot has no override, so slot 0 must read through again.
	c.SwapRemoveInstance(0)
	require.Equal(t, 2, c.Instances())
	require.False(t, c.HasOverride(0))
	require.Equal(t, "a", c.Get(0, 0))
}

func TestOverlaySwapRemoveLast(t *testing.T) {
	c := newOverlay(t, "a")
	c.PushInstance()
	c.PushInstance()
	c.Set(1, "tail")

	c.SwapRemoveInstance(1)
	require.Equal(t, 1, c.Instances())

	// The freed slot must come back clean when reused.
	c.PushInstance()
	require.False(t, c.HasOverride(1))
	require.Equal(t, "a", c.Get(1, 0))
}

func TestOverlayBounds(t *testing.T) {
	c := newOverlay(t, "a")
	c.PushInstance()

	require.Panics(t, func() { c.Get(1, 0) })
	require.Panics(t, func() { c.Get(0, 5) })
	require.Panics(t, func() { c.GetMut(1, 0) })
	require.Panics(t, func() { c.Set(1, "x") })
	require.Panics(t, func() { c.SwapRemoveInstance(1) })
	require.Panics(t, func() { c.Template(1) })
}

func TestOverlayInvariantViolation(t *testing.T) {
	c := newOverlay(t, "a")
	c.PushInstance()
	c.Set(0, "x")
	delete(c.overrides, 0) // corrupt: presence bit set, no entry

	require.Panics(t, func() { c.Get(0, 0) })
	require.Panics(t, func() { c.GetMut(0, 0) })
}
