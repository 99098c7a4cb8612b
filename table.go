// Package prototable provides columnar (structure-of-arrays) storage for
// prototype-driven entity tables. Template records ("prototypes") are loaded
// once from decoded JSON and may omit fields; runtime records ("instances")
// are spawned by referencing a prototype and inherit its field values through
// overlay columns until individually written (copy-on-write).
package prototable

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Record is one decoded prototype: a mapping from field name to its raw JSON
// value. A missing key or a nil value means the field is absent and loads as
// the field type's default.
type Record map[string]json.RawMessage

// Table is the per-entity-type container: one column per schema field, kept
// index-aligned across every bulk operation. The same type serves both
// regimes; a table is a prototype table when grown via LoadPrototype and an
// instance table when derived via NewInstanceTable and grown via Spawn.
type Table struct {
	schema *Schema
	cols   []column
}

// NewTable creates an empty prototype table for the schema and freezes the
// schema against further field registration.
func NewTable(s *Schema) *Table {
	s.freeze()
	cols := make([]column, len(s.defs))
	for i, d := range s.defs {
		cols[i] = d.newColumn()
	}
	return &Table{schema: s, cols: cols}
}

// NewInstanceTable derives an empty instance table from a loaded prototype
// table. Every overlay column clones the prototype's templates so instance
// reads can fall back without per-instance allocation; dense columns start
// empty. Derivation is a one-time snapshot: prototypes loaded into proto
// afterwards are invisible to the derived table, and the two tables evolve
// independently.
func NewInstanceTable(proto *Table) *Table {
	t := NewTable(proto.schema)
	for i, c := range t.cols {
		c.seedFrom(proto.cols[i])
	}
	return t
}

// Schema returns the field registry this table was built from.
func (t *Table) Schema() *Schema {
	return t.schema
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return t.protoIDs().Len()
}

// PrototypeID returns the prototype a record was spawned from (or, on a
// prototype table, the record's own auto-assigned ID). It panics if the
// record index is out of range.
func (t *Table) PrototypeID(record int) uint32 {
	return *t.protoIDs().At(record)
}

// LoadPrototype appends one prototype built from a decoded record. Every
// registered field ingests its value from rec by name; absent or undecodable
// values load as the field type's default and never abort the record. The new
// prototype's ID is auto-assigned in load order; any "prototype_id" value in
// rec is ignored. Returns the assigned ID.
func (t *Table) LoadPrototype(rec Record) int {
	for i := 1; i < len(t.cols); i++ {
		t.cols[i].ingest(rec[t.schema.defs[i].name])
	}
	id := t.protoIDs().Len()
	t.protoIDs().Append(uint32(id))
	return id
}

// LoadPrototypeJSON decodes one JSON object and loads it as a prototype.
// Input that is not a JSON object is rejected without mutating the table.
func (t *Table) LoadPrototypeJSON(data []byte) (int, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, errors.Wrap(err, "prototype record must be a JSON object")
	}
	return t.LoadPrototype(rec), nil
}

// Spawn appends one instance copied from the prototype at protoIdx: the
// prototype's ID is recorded, dense fields clone the prototype value, and
// overlay fields only extend their presence index (no data is copied until
// first write). Returns the new instance's index. It panics if protoIdx is
// out of range or the tables share no schema, before any column mutates.
func (t *Table) Spawn(proto *Table, protoIdx int) int {
	if t.schema != proto.schema {
		panic("spawn requires tables built from the same schema")
	}
	if protoIdx < 0 || protoIdx >= proto.Len() {
		panic(fmt.Sprintf("spawn prototype index out of range: %d with %d prototypes", protoIdx, proto.Len()))
	}
	id := t.Len()
	for i, c := range t.cols {
		c.spawnFrom(proto.cols[i], protoIdx)
	}
	return id
}

// Despawn removes the record at index from every column by swap-removal: the
// last record moves into index and every column shrinks by one, preserving
// cross-column alignment. Record indices are therefore not stable across
// Despawn. It panics if index is out of range, before any column mutates.
func (t *Table) Despawn(index int) {
	if index < 0 || index >= t.Len() {
		panic(fmt.Sprintf("despawn index out of range: %d with length %d", index, t.Len()))
	}
	for _, c := range t.cols {
		c.swapRemove(index)
	}
}

func (t *Table) protoIDs() *DenseColumn[uint32] {
	return t.cols[0].(*DenseColumn[uint32])
}

func (t *Table) col(f FieldID) column {
	if int(f) < 0 || int(f) >= len(t.cols) {
		panic(fmt.Sprintf("invalid field ID %d with %d registered fields", f, len(t.cols)))
	}
	return t.cols[f]
}

// Get reads a field value for a record. Overlay fields read through to the
// record's prototype template unless the record holds an override; reading an
// overlay field is only meaningful on an instance table (use Template for
// prototype-side reads). It panics if the record index is out of range or T
// does not match the field's registered type.
func Get[T any](t *Table, f FieldID, record int) T {
	switch c := t.col(f).(type) {
	case *DenseColumn[T]:
		return *c.At(record)
	case *OverlayColumn[T]:
		return c.Get(record, int(t.PrototypeID(record)))
	}
	panic(typeMismatch[T](t, f))
}

// GetMut returns a mutable handle to a record's field value. For overlay
// fields this is the copy-on-write accessor: the prototype template is cloned
// into the record's override on first use, so later mutations through the
// handle never touch the template or any other record.
func GetMut[T any](t *Table, f FieldID, record int) *T {
	switch c := t.col(f).(type) {
	case *DenseColumn[T]:
		return c.At(record)
	case *OverlayColumn[T]:
		return c.GetMut(record, int(t.PrototypeID(record)))
	}
	panic(typeMismatch[T](t, f))
}

// Set stores a field value for a record. For overlay fields this is an
// unconditional override, skipping the clone step of GetMut.
func Set[T any](t *Table, f FieldID, record int, value T) {
	switch c := t.col(f).(type) {
	case *DenseColumn[T]:
		*c.At(record) = value
	case *OverlayColumn[T]:
		c.Set(record, value)
	default:
		panic(typeMismatch[T](t, f))
	}
}

// Template reads a field's prototype-side value by prototype ID, regardless
// of storage kind. On a prototype table this is the record's own value.
func Template[T any](t *Table, f FieldID, protoID int) T {
	switch c := t.col(f).(type) {
	case *DenseColumn[T]:
		return *c.At(protoID)
	case *OverlayColumn[T]:
		return *c.Template(protoID)
	}
	panic(typeMismatch[T](t, f))
}

// HasOverride reports whether an instance has materialized its own value for
// an overlay field. It panics if the field is not overlay-backed.
func HasOverride(t *Table, f FieldID, record int) bool {
	return t.overlayCol(f).hasOverride(record)
}

// ClearOverride removes an instance's override for an overlay field,
// reverting it to the prototype fallback; a no-op for records out of range.
// It panics if the field is not overlay-backed.
func ClearOverride(t *Table, f FieldID, record int) {
	t.overlayCol(f).clearOverride(record)
}

// DenseOf returns the concrete dense column backing a field. It panics if
// the field is not dense-backed with element type T.
func DenseOf[T any](t *Table, f FieldID) *DenseColumn[T] {
	c, ok := t.col(f).(*DenseColumn[T])
	if !ok {
		panic(typeMismatch[T](t, f))
	}
	return c
}

// OverlayOf returns the concrete overlay column backing a field. It panics
// if the field is not overlay-backed with element type T.
func OverlayOf[T any](t *Table, f FieldID) *OverlayColumn[T] {
	c, ok := t.col(f).(*OverlayColumn[T])
	if !ok {
		panic(typeMismatch[T](t, f))
	}
	return c
}

// overlayer is the type-erased face of OverlayColumn for the accessors that
// need no element type.
type overlayer interface {
	hasOverride(record int) bool
	clearOverride(record int)
}

func (t *Table) overlayCol(f FieldID) overlayer {
	o, ok := t.col(f).(overlayer)
	if !ok {
		panic(fmt.Sprintf("field %q is %s-backed, not overlay", t.schema.Name(f), t.schema.Kind(f)))
	}
	return o
}

func typeMismatch[T any](t *Table, f FieldID) string {
	var zero T
	return fmt.Sprintf("field %q is backed by %T, not a %s column of %T",
		t.schema.Name(f), t.cols[f], t.schema.Kind(f), zero)
}
