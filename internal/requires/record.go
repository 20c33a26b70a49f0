package requires

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Field is one named value of a record.
type Field struct {
	Name  string
	Value any
}

// Fields is a Record that remembers insertion order. The zero value is an
// empty record ready to use.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewRecord returns a record holding fields in the given order. A repeated
// name keeps its first position and its last value.
func NewRecord(fields ...Field) *Fields {
	r := &Fields{}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// FromMap returns a record holding the entries of m in sorted key order.
func FromMap(m map[string]any) *Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := &Fields{keys: keys, values: make(map[string]any, len(m))}
	for k, v := range m {
		r.values[k] = v
	}
	return r
}

func (r *Fields) Set(name string, value any) {
	if r.values == nil {
		r.values = map[string]any{}
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

func (r *Fields) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r *Fields) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *Fields) Len() int {
	return len(r.keys)
}

// Map returns the fields as a plain map.
func (r *Fields) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the fields as an object in record order.
func (r *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the document's key order for
// the top-level fields. Numbers become int64 when integral and float64
// otherwise; nested objects become map[string]any.
func (r *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	*r = Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		value, err := readValue(dec)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		r.Set(name, value)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := map[string]any{}
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				name, ok := key.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected token %v", key)
				}
				if obj[name], err = readValue(dec); err != nil {
					return nil, err
				}
			}
			_, err := dec.Token()
			return obj, err
		case '[':
			arr := []any{}
			for dec.More() {
				item, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, item)
			}
			_, err := dec.Token()
			return arr, err
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case json.Number:
		return normalizeNumber(v)
	}
	return tok, nil
}

func normalizeNumber(n json.Number) (any, error) {
	if !strings.ContainsAny(string(n), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	return n.Float64()
}
