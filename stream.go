package prototable

import (
	"encoding/json"
	"io"

	"github.com/bcicen/jstream"
	"github.com/pkg/errors"
)

// LoadPrototypesJSON streams a JSON array of prototype records from r and
// loads each object as one prototype, without holding the whole document in
// memory. Records are loaded in array order, so prototype IDs follow document
// order. Returns the number of prototypes loaded; on error, records decoded
// before the failure remain loaded.
func (t *Table) LoadPrototypesJSON(r io.Reader) (int, error) {
	loaded := 0
	dec := jstream.NewDecoder(r, 1)
	for mv := range dec.Stream() {
		obj, ok := mv.Value.(map[string]interface{})
		if !ok {
			return loaded, errors.Errorf("prototype %d: expected a JSON object, got %T", loaded, mv.Value)
		}
		rec := make(Record, len(obj))
		for name, v := range obj {
			raw, err := json.Marshal(v)
			if err != nil {
				return loaded, errors.Wrapf(err, "prototype %d: field %q", loaded, name)
			}
			rec[name] = raw
		}
		t.LoadPrototype(rec)
		loaded++
	}
	if err := dec.Err(); err != nil {
		return loaded, errors.Wrap(err, "decode prototype stream")
	}
	return loaded, nil
}
