package prototable

import "fmt"

// FieldID identifies a registered field by its ordinal in the schema.
type FieldID int

// PrototypeIDField is the field every schema carries at ordinal 0: the
// dense uint32 column recording which prototype each instance was spawned
// from.
const PrototypeIDField FieldID = 0

// PrototypeIDName is the reserved name of the prototype-id field.
const PrototypeIDName = "prototype_id"

// fieldDef bundles a registered field's name, storage kind and column
// constructor.
type fieldDef struct {
	newColumn func() column
	name      string
	kind      FieldKind
}

// Schema is the ordered field registry for one table type. Fields are
// registered once, before the first table is built from the schema; every
// table built from it gets one column per field, in registration order. The
// prototype-id field is pre-registered at ordinal 0.
type Schema struct {
	byName map[string]int
	defs   []fieldDef
	frozen bool
}

// NewSchema creates an empty schema holding only the prototype-id field.
func NewSchema() *Schema {
	s := &Schema{byName: make(map[string]int, 16)}
	s.register(PrototypeIDName, Dense, func() column { return &DenseColumn[uint32]{} })
	return s
}

// DenseField registers a dense-backed field of type T and returns its ID.
// It panics if the name is already registered or the schema is frozen.
func DenseField[T any](s *Schema, name string) FieldID {
	return s.register(name, Dense, func() column { return &DenseColumn[T]{} })
}

// OverlayField registers an overlay-backed field of type T and returns its
// ID. It panics if the name is already registered or the schema is frozen.
func OverlayField[T any](s *Schema, name string) FieldID {
	return s.register(name, Overlay, func() column { return &OverlayColumn[T]{} })
}

// DenseFieldWithDefault registers a dense-backed field whose absent or
// undecodable values load as def instead of the zero value.
func DenseFieldWithDefault[T any](s *Schema, name string, def T) FieldID {
	return s.register(name, Dense, func() column { return &DenseColumn[T]{def: def} })
}

// OverlayFieldWithDefault registers an overlay-backed field whose absent or
// undecodable values load as def instead of the zero value.
func OverlayFieldWithDefault[T any](s *Schema, name string, def T) FieldID {
	return s.register(name, Overlay, func() column { return &OverlayColumn[T]{def: def} })
}

func (s *Schema) register(name string, kind FieldKind, newColumn func() column) FieldID {
	if s.frozen {
		panic(fmt.Sprintf("cannot register field %q: schema is frozen after first table construction", name))
	}
	if _, ok := s.byName[name]; ok {
		panic(fmt.Sprintf("cannot register field %q: name already registered", name))
	}
	id := len(s.defs)
	s.byName[name] = id
	s.defs = append(s.defs, fieldDef{name: name, kind: kind, newColumn: newColumn})
	return FieldID(id)
}

// Fields returns the number of registered fields, including prototype_id.
func (s *Schema) Fields() int {
	return len(s.defs)
}

// FieldByName returns the ID for a registered field name.
func (s *Schema) FieldByName(name string) (FieldID, bool) {
	id, ok := s.byName[name]
	return FieldID(id), ok
}

// Name returns the registered name of a field.
func (s *Schema) Name(f FieldID) string {
	return s.defs[f].name
}

// Kind returns the storage kind of a field.
func (s *Schema) Kind(f FieldID) FieldKind {
	return s.defs[f].kind
}

// freeze locks the schema against further registration once a table exists,
// so every table built from it has the same column layout.
func (s *Schema) freeze() {
	s.frozen = true
}
