package query

import (
	"bytes"
	"encoding/json"
)

// Result is a result set: the column names reported by the driver and one
// Row per returned row, both in driver order.
type Result struct {
	Columns []string `json:"columns"`
	Data    []Row    `json:"data"`
}

// Row maps column names to values and keeps the column order when encoded
// as a JSON object. When a name repeats, the key keeps its first position
// and takes the last value.
type Row struct {
	keys   []string
	values []any
}

// NewRow zips columns with the positional values of one row. []byte values
// are converted to strings.
func NewRow(columns []string, values []any) Row {
	row := Row{
		keys:   make([]string, 0, len(columns)),
		values: make([]any, 0, len(columns)),
	}
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row.set(col, v)
	}
	return row
}

func (r *Row) set(key string, value any) {
	for i, k := range r.keys {
		if k == key {
			r.values[i] = value
			return
		}
	}
	r.keys = append(r.keys, key)
	r.values = append(r.values, value)
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return nil, false
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r Row) Len() int {
	return len(r.keys)
}

func (r Row) MarshalJSON() ([]byte, error) {
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
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
