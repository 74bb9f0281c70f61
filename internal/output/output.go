// Package output writes decoded rows in the csvread output formats.
//
// Rows read in header mode are written as objects whose keys keep the header
// order; raw rows are written as arrays of strings.
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shapestone/shape-csvreader/pkg/csv"
)

// Supported formats.
const (
	FormatJSON    = "json"
	FormatNDJSON  = "ndjson"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
)

// Formats lists the supported format names.
var Formats = []string{FormatJSON, FormatNDJSON, FormatYAML, FormatMsgpack}

// Encoder writes rows one at a time. Close must be called to complete the
// output; it does not close the underlying writer.
type Encoder interface {
	Encode(row csv.Row) error
	Close() error
}

// New returns an encoder for format writing to w.
func New(format string, w io.Writer) (Encoder, error) {
	bw := bufio.NewWriter(w)
	switch format {
	case FormatJSON:
		return &jsonEncoder{w: bw}, nil
	case FormatNDJSON:
		return &ndjsonEncoder{w: bw}, nil
	case FormatYAML:
		return &yamlEncoder{w: bw}, nil
	case FormatMsgpack:
		return &msgpackEncoder{w: bw, enc: msgpack.NewEncoder(bw)}, nil
	default:
		return nil, fmt.Errorf("output: unknown format %q (want one of %v)", format, Formats)
	}
}

// field is one key/value pair of an ordered object.
type field struct {
	Key   string
	Value string
}

// object is a row keyed by header, in header order. Duplicate names keep
// their last value, at the position of their first occurrence.
type object []field

func newObject(row csv.Row) object {
	headers := row.Headers()
	obj := make(object, 0, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		v, ok := row.Get(i)
		if !ok {
			break
		}
		if j, dup := seen[h]; dup {
			obj[j].Value = v
			continue
		}
		seen[h] = len(obj)
		obj = append(obj, field{Key: h, Value: v})
	}
	return obj
}

// MarshalJSON writes the object with its keys in order.
func (o object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range o {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// value returns what a row is encoded as.
func value(row csv.Row) any {
	if row.Headers() == nil {
		return row.Fields()
	}
	return newObject(row)
}

type jsonEncoder struct {
	w     *bufio.Writer
	count int
}

func (e *jsonEncoder) Encode(row csv.Row) error {
	b, err := json.Marshal(value(row))
	if err != nil {
		return fmt.Errorf("output: encode json: %w", err)
	}
	sep := ",\n"
	if e.count == 0 {
		sep = "[\n"
	}
	e.count++
	if _, err := e.w.WriteString(sep); err != nil {
		return err
	}
	_, err = e.w.Write(b)
	return err
}

func (e *jsonEncoder) Close() error {
	end := "\n]\n"
	if e.count == 0 {
		end = "[]\n"
	}
	if _, err := e.w.WriteString(end); err != nil {
		return err
	}
	return e.w.Flush()
}

type ndjsonEncoder struct {
	w *bufio.Writer
}

func (e *ndjsonEncoder) Encode(row csv.Row) error {
	b, err := json.Marshal(value(row))
	if err != nil {
		return fmt.Errorf("output: encode json: %w", err)
	}
	b = append(b, '\n')
	_, err = e.w.Write(b)
	return err
}

func (e *ndjsonEncoder) Close() error {
	return e.w.Flush()
}

// yamlEncoder writes one sequence item per row, so the whole output is a
// single YAML list.
type yamlEncoder struct {
	w     *bufio.Writer
	count int
}

func (e *yamlEncoder) Encode(row csv.Row) error {
	var item any = row.Fields()
	if row.Headers() != nil {
		obj := newObject(row)
		ms := make(yaml.MapSlice, len(obj))
		for i, f := range obj {
			ms[i] = yaml.MapItem{Key: f.Key, Value: f.Value}
		}
		item = ms
	}

	b, err := yaml.Marshal([]any{item})
	if err != nil {
		return fmt.Errorf("output: encode yaml: %w", err)
	}
	e.count++
	_, err = e.w.Write(b)
	return err
}

func (e *yamlEncoder) Close() error {
	if e.count == 0 {
		if _, err := e.w.WriteString("[]\n"); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

// msgpackEncoder writes a stream of msgpack values, one per row. Header rows
// are maps, raw rows arrays.
type msgpackEncoder struct {
	w   *bufio.Writer
	enc *msgpack.Encoder
}

func (e *msgpackEncoder) Encode(row csv.Row) error {
	if row.Headers() == nil {
		return e.enc.Encode(row.Fields())
	}

	obj := newObject(row)
	if err := e.enc.EncodeMapLen(len(obj)); err != nil {
		return err
	}
	for _, f := range obj {
		if err := e.enc.EncodeString(f.Key); err != nil {
			return err
		}
		if err := e.enc.EncodeString(f.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *msgpackEncoder) Close() error {
	return e.w.Flush()
}
