package document

import "github.com/kailas-cloud/suntan/internal/domain/schema/field"

// Entry is one populated field of a Document.
type Entry struct {
	Field field.Field
	Value Value
}

// Document is a typed document built from one raw record. Entries keep
// schema order; a field appears at most once.
type Document struct {
	id      string
	entries []Entry
	index   map[string]int
}

// New creates an empty Document.
func New() *Document {
	return &Document{index: make(map[string]int)}
}

// ID returns the document id, or "" when none has been assigned.
func (d *Document) ID() string { return d.id }

// SetID assigns the document id.
func (d *Document) SetID(id string) { d.id = id }

// Set stores a value for f, replacing any previous value for the same name.
func (d *Document) Set(f field.Field, v Value) {
	if i, ok := d.index[f.Name()]; ok {
		d.entries[i] = Entry{Field: f, Value: v}
		return
	}
	d.index[f.Name()] = len(d.entries)
	d.entries = append(d.entries, Entry{Field: f, Value: v})
}

// Get returns the value stored under name.
func (d *Document) Get(name string) (Value, bool) {
	i, ok := d.index[name]
	if !ok {
		return Value{}, false
	}
	return d.entries[i].Value, true
}

// Entries returns the populated fields in insertion order.
func (d *Document) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Len returns the number of populated fields.
func (d *Document) Len() int { return len(d.entries) }

// Size estimates the document payload in bytes, used for writer buffering.
func (d *Document) Size() int {
	n := len(d.id)
	for _, e := range d.entries {
		n += len(e.Field.Name()) + e.Value.Size()
	}
	return n
}
