// Package schema describes the user tables of a PostgreSQL database.
package schema

import (
	"bytes"
	"encoding/json"
)

// Info is the schema description returned by Inspect.
type Info struct {
	TotalTables int64  `json:"total_tables"`
	Tables      Tables `json:"tables"`
}

// Table lists a table's columns in physical order.
type Table struct {
	Columns []Column `json:"columns"`
}

type Column struct {
	Name     string `json:"column_name"`
	DataType string `json:"data_type"`
}

// Tables is a map of table name to Table that remembers insertion order and
// encodes as a JSON object in that order.
type Tables struct {
	names  []string
	byName map[string]*Table
}

// Append adds col to the named table, creating the table on first sight.
func (t *Tables) Append(table string, col Column) {
	if t.byName == nil {
		t.byName = make(map[string]*Table)
	}
	entry, ok := t.byName[table]
	if !ok {
		entry = &Table{Columns: []Column{}}
		t.byName[table] = entry
		t.names = append(t.names, table)
	}
	entry.Columns = append(entry.Columns, col)
}

func (t Tables) Get(name string) (*Table, bool) {
	entry, ok := t.byName[name]
	return entry, ok
}

// Names returns table names in insertion order.
func (t Tables) Names() []string {
	return append([]string(nil), t.names...)
}

func (t Tables) Len() int {
	return len(t.names)
}

func (t Tables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(t.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ColumnRow is one row of the column listing catalog query.
type ColumnRow struct {
	Table    string
	Column   string
	DataType string
}

// Assemble groups rows by table. Rows must already be ordered by table then
// attribute number; the order is kept as is.
func Assemble(totalTables int64, rows []ColumnRow) *Info {
	info := &Info{TotalTables: totalTables}
	for _, r := range rows {
		info.Tables.Append(r.Table, Column{Name: r.Column, DataType: r.DataType})
	}
	return info
}
