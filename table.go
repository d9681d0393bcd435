// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

type ColumnKind int

const (
	KindString ColumnKind = iota
	KindFloat64
	KindInt64
	KindBool
)

func (k ColumnKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat64:
		return "float64"
	case KindInt64:
		return "int64"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is an immutable, named, typed vector. Exactly one of the
// value slices is populated, according to Kind. null is either nil
// (no nulls) or has the same length as the values.
type Column struct {
	Name   string
	Kind   ColumnKind
	strs   []string
	floats []float64
	ints   []int64
	bools  []bool
	null   []bool
}

func NewStringColumn(name string, vals []string, null []bool) *Column {
	return &Column{Name: name, Kind: KindString, strs: vals, null: null}
}

func NewFloat64Column(name string, vals []float64, null []bool) *Column {
	return &Column{Name: name, Kind: KindFloat64, floats: vals, null: null}
}

func NewInt64Column(name string, vals []int64, null []bool) *Column {
	return &Column{Name: name, Kind: KindInt64, ints: vals, null: null}
}

func NewBoolColumn(name string, vals []bool, null []bool) *Column {
	return &Column{Name: name, Kind: KindBool, bools: vals, null: null}
}

func (c *Column) Len() int {
	switch c.Kind {
	case KindString:
		return len(c.strs)
	case KindFloat64:
		return len(c.floats)
	case KindInt64:
		return len(c.ints)
	default:
		return len(c.bools)
	}
}

func (c *Column) IsNull(i int) bool {
	return c.null != nil && c.null[i]
}

func (c *Column) Str(i int) string      { return c.strs[i] }
func (c *Column) Float64(i int) float64 { return c.floats[i] }
func (c *Column) Int64(i int) int64     { return c.ints[i] }
func (c *Column) Bool(i int) bool       { return c.bools[i] }

// KeyAt returns the value at row i formatted as a string, suitable
// for use as a grouping key regardless of the column kind. Null
// values return "".
func (c *Column) KeyAt(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.Kind {
	case KindString:
		return c.strs[i]
	case KindFloat64:
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	case KindInt64:
		return strconv.FormatInt(c.ints[i], 10)
	default:
		return strconv.FormatBool(c.bools[i])
	}
}

// Float64Values returns the column as float64s. Int64 columns are
// converted and string columns are parsed; a string that is not a
// number, or a bool column, is a SchemaError.
func (c *Column) Float64Values() ([]float64, []bool, error) {
	switch c.Kind {
	case KindFloat64:
		return c.floats, c.null, nil
	case KindInt64:
		out := make([]float64, len(c.ints))
		for i, v := range c.ints {
			out[i] = float64(v)
		}
		return out, c.null, nil
	case KindString:
		out := make([]float64, len(c.strs))
		for i, v := range c.strs {
			if c.IsNull(i) {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, nil, &SchemaError{Field: c.Name, Msg: fmt.Sprintf("row %d: %q is not a number", i, v)}
			}
			out[i] = f
		}
		return out, c.null, nil
	default:
		return nil, nil, &SchemaError{Field: c.Name, Msg: fmt.Sprintf("cannot use %s column as numeric", c.Kind)}
	}
}

func (c *Column) renamed(name string) *Column {
	cp := *c
	cp.Name = name
	return &cp
}

func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.null != nil {
		out.null = make([]bool, len(rows))
		for j, i := range rows {
			out.null[j] = c.null[i]
		}
	}
	switch c.Kind {
	case KindString:
		out.strs = make([]string, len(rows))
		for j, i := range rows {
			out.strs[j] = c.strs[i]
		}
	case KindFloat64:
		out.floats = make([]float64, len(rows))
		for j, i := range rows {
			out.floats[j] = c.floats[i]
		}
	case KindInt64:
		out.ints = make([]int64, len(rows))
		for j, i := range rows {
			out.ints[j] = c.ints[i]
		}
	case KindBool:
		out.bools = make([]bool, len(rows))
		for j, i := range rows {
			out.bools[j] = c.bools[i]
		}
	}
	return out
}

// Table is an ordered collection of equal-length columns. Tables are
// never modified after construction; every operation returns a new
// Table, which may share column storage with its source.
type Table struct {
	cols  []*Column
	index map[string]int
	nrows int
}

func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, &SchemaError{Field: c.Name, Msg: "duplicate column name"}
		}
		t.index[c.Name] = i
		if i == 0 {
			t.nrows = c.Len()
		} else if c.Len() != t.nrows {
			return nil, &SchemaError{Field: c.Name, Msg: fmt.Sprintf("column has %d rows, expected %d", c.Len(), t.nrows)}
		}
		if c.null != nil && len(c.null) != c.Len() {
			return nil, &SchemaError{Field: c.Name, Msg: "null mask length mismatch"}
		}
	}
	return t, nil
}

func (t *Table) NumRows() int { return t.nrows }
func (t *Table) NumCols() int { return len(t.cols) }

func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column, or nil if there is none.
func (t *Table) Column(name string) *Column {
	if i, ok := t.index[name]; ok {
		return t.cols[i]
	}
	return nil
}

// Columns returns the table's columns in order. The caller must not
// modify them.
func (t *Table) Columns() []*Column { return t.cols }

func (t *Table) require(name string) (*Column, error) {
	c := t.Column(name)
	if c == nil {
		return nil, &SchemaError{Field: name}
	}
	return c, nil
}

// StringColumn returns the values and null mask of a string column.
func (t *Table) StringColumn(name string) ([]string, []bool, error) {
	c, err := t.require(name)
	if err != nil {
		return nil, nil, err
	}
	if c.Kind != KindString {
		return nil, nil, &SchemaError{Field: name, Msg: fmt.Sprintf("want string, have %s", c.Kind)}
	}
	return c.strs, c.null, nil
}

// Float64Column returns the values and null mask of a numeric column.
// Int64 values are converted and string values are parsed.
func (t *Table) Float64Column(name string) ([]float64, []bool, error) {
	c, err := t.require(name)
	if err != nil {
		return nil, nil, err
	}
	return c.Float64Values()
}

func (t *Table) Int64Column(name string) ([]int64, []bool, error) {
	c, err := t.require(name)
	if err != nil {
		return nil, nil, err
	}
	if c.Kind != KindInt64 {
		return nil, nil, &SchemaError{Field: name, Msg: fmt.Sprintf("want int64, have %s", c.Kind)}
	}
	return c.ints, c.null, nil
}

func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := t.require(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

func (t *Table) Rename(oldname, newname string) (*Table, error) {
	return t.Replace(oldname, t.Column(oldname).renamedOrNil(newname))
}

func (c *Column) renamedOrNil(name string) *Column {
	if c == nil {
		return nil
	}
	return c.renamed(name)
}

// Replace returns a copy of t in which the column named name is
// replaced, at the same position, by col. col may have a different
// name, as long as it does not collide with another column.
func (t *Table) Replace(name string, col *Column) (*Table, error) {
	i, ok := t.index[name]
	if !ok || col == nil {
		return nil, &SchemaError{Field: name}
	}
	cols := make([]*Column, len(t.cols))
	copy(cols, t.cols)
	cols[i] = col
	return NewTable(cols...)
}

// Take returns a new table containing the given rows of t, in the
// given order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(rows)
	}
	out, err := NewTable(cols...)
	if err != nil {
		panic(err) // columns of t are consistent, so this can't happen
	}
	out.nrows = len(rows)
	return out
}

// Empty returns a table with t's schema and no rows.
func (t *Table) Empty() *Table {
	return t.Take(nil)
}

// Concat appends the rows of tables, which must all have the same
// column names and kinds, in the same order.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return NewTable()
	}
	first := tables[0]
	for _, t := range tables[1:] {
		if len(t.cols) != len(first.cols) {
			return nil, &SchemaError{Field: "*", Msg: fmt.Sprintf("cannot concat tables with %d and %d columns", len(first.cols), len(t.cols))}
		}
		for i, c := range t.cols {
			if c.Name != first.cols[i].Name || c.Kind != first.cols[i].Kind {
				return nil, &SchemaError{Field: c.Name, Msg: fmt.Sprintf("cannot concat %s column with %s column %q", c.Kind, first.cols[i].Kind, first.cols[i].Name)}
			}
		}
	}
	cols := make([]*Column, len(first.cols))
	for i, c0 := range first.cols {
		out := &Column{Name: c0.Name, Kind: c0.Kind}
		anyNull := false
		for _, t := range tables {
			anyNull = anyNull || t.cols[i].null != nil
		}
		for _, t := range tables {
			c := t.cols[i]
			out.strs = append(out.strs, c.strs...)
			out.floats = append(out.floats, c.floats...)
			out.ints = append(out.ints, c.ints...)
			out.bools = append(out.bools, c.bools...)
			if !anyNull {
				continue
			}
			if c.null != nil {
				out.null = append(out.null, c.null...)
			} else {
				out.null = append(out.null, make([]bool, c.Len())...)
			}
		}
		cols[i] = out
	}
	return NewTable(cols...)
}

// Digest returns a blake2b-256 hash of the schema and contents of t,
// in row order. Two tables with the same digest have the same rows in
// the same order.
func (t *Table) Digest() string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, c := range t.cols {
		fmt.Fprintf(h, "%q:%s\n", c.Name, c.Kind)
	}
	for row := 0; row < t.nrows; row++ {
		for _, c := range t.cols {
			if c.IsNull(row) {
				h.Write([]byte{0})
				continue
			}
			h.Write([]byte{1})
			switch c.Kind {
			case KindString:
				binary.LittleEndian.PutUint64(buf[:], uint64(len(c.strs[row])))
				h.Write(buf[:])
				h.Write([]byte(c.strs[row]))
			case KindFloat64:
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c.floats[row]))
				h.Write(buf[:])
			case KindInt64:
				binary.LittleEndian.PutUint64(buf[:], uint64(c.ints[row]))
				h.Write(buf[:])
			case KindBool:
				if c.bools[row] {
					h.Write([]byte{1})
				} else {
					h.Write([]byte{0})
				}
			}
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
