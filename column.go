package prototable

import "encoding/json"

// FieldKind selects the storage backend for a registered field.
type FieldKind uint8

const (
	// Dense stores one value per record in a flat slice.
	Dense FieldKind = iota
	// Overlay stores prototype templates plus lazily materialized
	// per-instance overrides (copy-on-write).
	Overlay
)

// String returns the name of the field kind.
func (k FieldKind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Overlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// column is the uniform storage contract both column kinds satisfy. The table
// coordinator drives every field through these four operations and never cares
// which backend is behind a field.
type column interface {
	// seedFrom prepares an instance-table column from the corresponding
	// prototype-table column. Dense columns start empty; overlay columns
	// clone the prototype templates so reads can fall back without
	// per-instance allocation.
	seedFrom(src column)
	// ingest appends one decoded prototype value. A nil raw value (field
	// absent or undecodable) appends the type default. Prototype tables
	// only.
	ingest(raw json.RawMessage)
	// spawnFrom appends one instance slot copied from the prototype at
	// protoIdx. Dense columns clone the value; overlay columns only extend
	// their presence index. Instance tables only.
	spawnFrom(src column, protoIdx int)
	// swapRemove removes the record at index by moving the last record
	// into its place.
	swapRemove(index int)
}
