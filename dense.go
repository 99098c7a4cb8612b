package prototable

import (
	"encoding/json"
	"fmt"
)

// DenseColumn is an ordered sequence of values, one slot per record. Position
// i corresponds directly to record i of the owning table.
type DenseColumn[T any] struct {
	values []T
	def    T
}

// Len returns the number of records stored.
func (c *DenseColumn[T]) Len() int {
	return len(c.values)
}

// At returns a pointer to the value at index. It panics if index is out of
// range.
func (c *DenseColumn[T]) At(index int) *T {
	if index < 0 || index >= len(c.values) {
		panic(fmt.Sprintf("dense index out of range: %d with length %d", index, len(c.values)))
	}
	return &c.values[index]
}

// Append adds a value at the next record position.
func (c *DenseColumn[T]) Append(v T) {
	c.values = append(c.values, v)
}

// SwapRemove removes the value at index by moving the last value into its
// place and shrinking by one. O(1), order-breaking. It panics if index is out
// of range.
func (c *DenseColumn[T]) SwapRemove(index int) {
	last := len(c.values) - 1
	if index < 0 || index > last {
		panic(fmt.Sprintf("dense swap-remove out of range: %d with length %d", index, len(c.values)))
	}
	c.values[index] = c.values[last]
	var zero T
	c.values[last] = zero
	c.values = c.values[:last]
}

// seedFrom resets the column; an instance-side dense column starts empty
// regardless of prototype content.
func (c *DenseColumn[T]) seedFrom(column) {
	c.values = c.values[:0]
}

// ingest appends the decoded value, or the field's default when the raw value
// is absent or does not decode as T.
func (c *DenseColumn[T]) ingest(raw json.RawMessage) {
	c.values = append(c.values, decodeOrDefault(raw, c.def))
}

// spawnFrom appends a copy of the source column's value at protoIdx.
func (c *DenseColumn[T]) spawnFrom(src column, protoIdx int) {
	s := src.(*DenseColumn[T])
	c.values = append(c.values, s.values[protoIdx])
}

func (c *DenseColumn[T]) swapRemove(index int) {
	c.SwapRemove(index)
}

// decodeOrDefault unmarshals raw into a T, substituting def when raw is nil
// or does not decode. Per-field decode problems never abort a record load.
func decodeOrDefault[T any](raw json.RawMessage, def T) T {
	if raw == nil {
		return def
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return def
	}
	return decoded
}
