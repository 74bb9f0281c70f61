package csv

// Row is one decoded data row. In header mode it also carries the frozen
// header set for name-based access.
type Row struct {
	fields  []string
	headers []string
	line    int
}

// NewRow builds a row from fields and an optional header set.
func NewRow(fields, headers []string) Row {
	return Row{fields: fields, headers: headers}
}

// Get gets the field value at the specified index.
// Returns (value, false) if the index is out of bounds.
// Index is 0-based.
func (r Row) Get(index int) (string, bool) {
	if index < 0 || index >= len(r.fields) {
		return "", false
	}
	return r.fields[index], true
}

// GetByName gets the field value by header name. When a name occurs more
// than once the last column wins, matching Map.
// Returns (value, false) if the name is unknown, the row is shorter than the
// header set, or no headers are set.
//
// Example:
//
//	name, ok := row.GetByName("name")
func (r Row) GetByName(name string) (string, bool) {
	for i := len(r.headers) - 1; i >= 0; i-- {
		if r.headers[i] == name {
			return r.Get(i)
		}
	}
	return "", false
}

// Map returns the row keyed by header name, or nil without headers. Cells
// beyond the header set are dropped, missing trailing cells are omitted.
func (r Row) Map() map[string]string {
	if r.headers == nil {
		return nil
	}
	m := make(map[string]string, len(r.headers))
	for i, h := range r.headers {
		if i >= len(r.fields) {
			break
		}
		m[h] = r.fields[i]
	}
	return m
}

// Fields returns all field values in the row.
// This returns a copy of the fields slice.
func (r Row) Fields() []string {
	fields := make([]string, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// Headers returns the header set the row is keyed by, or nil.
func (r Row) Headers() []string {
	return r.headers
}

// Line returns the 1-based logical line the row was read from.
func (r Row) Line() int {
	return r.line
}

// Len returns the number of fields in the row.
func (r Row) Len() int {
	return len(r.fields)
}
