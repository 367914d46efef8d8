// Package table provides a small column-oriented frame used to hold normalized
// provider records. Frames are indexed by time or, for reference lists, by row position.
package table

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"kaiko/pkg/core"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindFloat Kind = iota
	KindString
)

func (k Kind) String() string {
	if k == KindFloat {
		return "float"
	}
	return "string"
}

// Column is a named series aligned with the frame index.
// Exactly one of Floats or Strings is populated, according to Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == KindFloat {
		return len(c.Floats)
	}
	return len(c.Strings)
}

func (c *Column) clone() *Column {
	return &Column{
		Name:    c.Name,
		Kind:    c.Kind,
		Floats:  slices.Clone(c.Floats),
		Strings: slices.Clone(c.Strings),
	}
}

// Frame is a table indexed by time, or by row position when the index name is empty.
// Rows keep insertion order.
type Frame struct {
	indexName string
	rows      int
	index     []time.Time
	columns   []*Column
	byName    map[string]*Column
}

// New returns an empty frame whose index is called indexName.
func New(indexName string) *Frame {
	return &Frame{
		indexName: indexName,
		byName:    make(map[string]*Column),
	}
}

// TimeFunc converts a raw index value to a time.
type TimeFunc func(v any) (time.Time, error)

// FromRecords builds a frame from raw records. The indexName field of each record
// becomes the index through toTime; every other field becomes a column, in first-seen order.
func FromRecords(records []core.Record, indexName string, toTime TimeFunc) (*Frame, error) {
	f := New(indexName)
	if len(records) == 0 {
		return f, nil
	}

	f.index = make([]time.Time, len(records))
	for i, rec := range records {
		raw, ok := rec[indexName]
		if !ok || raw == nil {
			return nil, fmt.Errorf("record %d: missing index field %q", i, indexName)
		}
		ts, err := toTime(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: index field %q: %w", i, indexName, err)
		}
		f.index[i] = ts
	}
	f.fill(records)
	return f, nil
}

// FromRows builds a frame indexed by row position. Every field becomes a column.
func FromRows(records []core.Record) *Frame {
	f := New("")
	f.fill(records)
	return f
}

func (f *Frame) fill(records []core.Record) {
	f.rows = len(records)
	var names []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, name := range recordKeys(rec) {
			if (f.indexName != "" && name == f.indexName) || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range names {
		col := buildColumn(name, records)
		f.columns = append(f.columns, col)
		f.byName[name] = col
	}
}

// recordKeys returns the record keys sorted by name.
func recordKeys(rec core.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func buildColumn(name string, records []core.Record) *Column {
	floats := make([]float64, len(records))
	numeric := true
	for i, rec := range records {
		v, ok := toFloat(rec[name])
		if !ok {
			numeric = false
			break
		}
		floats[i] = v
	}
	if numeric {
		return &Column{Name: name, Kind: KindFloat, Floats: floats}
	}

	strs := make([]string, len(records))
	for i, rec := range records {
		strs[i] = toString(rec[name])
	}
	return &Column{Name: name, Kind: KindString, Strings: strs}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return math.NaN(), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any, []any, core.Record:
		data, err := sonic.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return core.FormatValue(val)
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return f.rows == 0
}

// IndexName returns the name of the time index, or "" for a positional frame.
func (f *Frame) IndexName() string {
	return f.indexName
}

// Positional reports whether rows are indexed by position rather than time.
func (f *Frame) Positional() bool {
	return f.indexName == ""
}

// Index returns a copy of the time index. It is nil for a positional frame.
func (f *Frame) Index() []time.Time {
	return slices.Clone(f.index)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	c, ok := f.byName[name]
	if !ok {
		return nil, false
	}
	return c.clone(), true
}

// Float returns a copy of a float column.
func (f *Frame) Float(name string) ([]float64, bool) {
	c, ok := f.byName[name]
	if !ok || c.Kind != KindFloat {
		return nil, false
	}
	return slices.Clone(c.Floats), true
}

// Strings returns a copy of a string column.
func (f *Frame) Strings(name string) ([]string, bool) {
	c, ok := f.byName[name]
	if !ok || c.Kind != KindString {
		return nil, false
	}
	return slices.Clone(c.Strings), true
}

// Value returns the cell at row i as float64 or string.
func (f *Frame) Value(name string, i int) (any, bool) {
	c, ok := f.byName[name]
	if !ok || i < 0 || i >= f.Len() {
		return nil, false
	}
	if c.Kind == KindFloat {
		return c.Floats[i], true
	}
	return c.Strings[i], true
}

// AddFloat appends or replaces a float column.
func (f *Frame) AddFloat(name string, values []float64) error {
	return f.add(&Column{Name: name, Kind: KindFloat, Floats: slices.Clone(values)})
}

// AddString appends or replaces a string column.
func (f *Frame) AddString(name string, values []string) error {
	return f.add(&Column{Name: name, Kind: KindString, Strings: slices.Clone(values)})
}

func (f *Frame) add(col *Column) error {
	if f.indexName != "" && col.Name == f.indexName {
		return fmt.Errorf("column %q shadows the index", col.Name)
	}
	if col.Len() != f.Len() {
		return fmt.Errorf("column %q has %d values, frame has %d rows", col.Name, col.Len(), f.Len())
	}
	if old, ok := f.byName[col.Name]; ok {
		i := slices.Index(f.columns, old)
		f.columns[i] = col
	} else {
		f.columns = append(f.columns, col)
	}
	f.byName[col.Name] = col
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.indexName)
	out.rows = f.rows
	out.index = slices.Clone(f.index)
	for _, c := range f.columns {
		cc := c.clone()
		out.columns = append(out.columns, cc)
		out.byName[cc.Name] = cc
	}
	return out
}

// Records converts the frame back to records, with a time index rendered as time.Time.
func (f *Frame) Records() []core.Record {
	out := make([]core.Record, f.Len())
	for i := range out {
		rec := make(core.Record, len(f.columns)+1)
		if !f.Positional() {
			rec[f.indexName] = f.index[i]
		}
		for _, c := range f.columns {
			if c.Kind == KindFloat {
				rec[c.Name] = c.Floats[i]
			} else {
				rec[c.Name] = c.Strings[i]
			}
		}
		out[i] = rec
	}
	return out
}
