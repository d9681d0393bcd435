// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

type tableFormat int

const (
	formatParquet tableFormat = iota
	formatTSV
	formatCSV
)

func formatOf(fnm string) (format tableFormat, gz bool, err error) {
	name := strings.TrimSuffix(fnm, ".gz")
	gz = name != fnm
	switch {
	case fnm == "-":
		return formatTSV, false, nil
	case strings.HasSuffix(fnm, ".parquet"):
		return formatParquet, false, nil
	case strings.HasSuffix(name, ".tsv"), strings.HasSuffix(name, ".txt"):
		return formatTSV, gz, nil
	case strings.HasSuffix(name, ".csv"):
		return formatCSV, gz, nil
	default:
		return 0, false, fmt.Errorf("%s: don't know how to handle filename (want .parquet, .tsv[.gz], or .csv[.gz])", fnm)
	}
}

// ReadTable reads a .parquet, .tsv, .tsv.gz, .csv or .csv.gz file.
// For text formats, the columns named in numeric are parsed as
// numbers in addition to the usual score and count fields (see
// ReadDelimited).
func ReadTable(fnm string, numeric ...string) (*Table, error) {
	format, _, err := formatOf(fnm)
	if err != nil {
		return nil, err
	}
	var t *Table
	if format == formatParquet {
		t, err = readParquetFile(fnm)
	} else {
		var f io.ReadCloser
		f, err = zopen(fnm)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		comma := '\t'
		if format == formatCSV {
			comma = ','
		}
		t, err = ReadDelimited(f, comma, numeric...)
	}
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", fnm, withTable(err, fnm))
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     t.NumRows(),
		"cols":     t.NumCols(),
	}).Debug("read table")
	return t, nil
}

func readParquetFile(fnm string) (*Table, error) {
	f, err := open(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// pqarrow needs ReaderAt, which Keep files don't offer.
	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return ReadParquet(context.Background(), bytes.NewReader(buf))
}

// ReadParquet decodes a parquet file into a Table. Integer columns
// of any width become int64, floating point columns become float64,
// and string-like and other columns become strings.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) (*Table, error) {
	mem := memory.DefaultAllocator
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()
	cols := make([]*Column, 0, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := tbl.Schema().Field(i)
		col, err := columnFromArrow(field.Name, field.Type, tbl.Column(i).Data().Chunks())
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return NewTable(cols...)
}

func arrowKind(dt arrow.DataType) ColumnKind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindInt64
	case arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat64
	case arrow.BOOL:
		return KindBool
	default:
		return KindString
	}
}

func columnFromArrow(name string, dt arrow.DataType, chunks []arrow.Array) (*Column, error) {
	col := &Column{Name: name, Kind: arrowKind(dt)}
	n := 0
	for _, chunk := range chunks {
		n += chunk.Len()
	}
	var null []bool
	for _, chunk := range chunks {
		for i := 0; i < chunk.Len(); i++ {
			isnull := chunk.IsNull(i)
			if isnull && null == nil {
				null = make([]bool, col.Len(), n)
			}
			if null != nil {
				null = append(null, isnull)
			}
			switch col.Kind {
			case KindInt64:
				var v int64
				if !isnull {
					v = arrowInt(chunk, i)
				}
				col.ints = append(col.ints, v)
			case KindFloat64:
				var v float64
				if !isnull {
					v = arrowFloat(chunk, i)
				}
				col.floats = append(col.floats, v)
			case KindBool:
				col.bools = append(col.bools, !isnull && chunk.(*array.Boolean).Value(i))
			default:
				var v string
				if !isnull {
					v = arrowString(chunk, i)
				}
				col.strs = append(col.strs, v)
			}
		}
	}
	col.null = null
	return col, nil
}

func arrowInt(a arrow.Array, i int) int64 {
	switch a := a.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	}
	panic(fmt.Sprintf("arrowInt: unexpected array type %T", a))
}

func arrowFloat(a arrow.Array, i int) float64 {
	switch a := a.(type) {
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	}
	panic(fmt.Sprintf("arrowFloat: unexpected array type %T", a))
}

func arrowString(a arrow.Array, i int) string {
	switch a := a.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	default:
		// dictionary, string view, dates, decimals, ...
		return a.ValueStr(i)
	}
}

// WriteParquet encodes t as a single-row-group parquet file.
func WriteParquet(w io.Writer, t *Table) error {
	mem := memory.DefaultAllocator
	fields := make([]arrow.Field, t.NumCols())
	arrs := make([]arrow.Array, t.NumCols())
	defer func() {
		for _, a := range arrs {
			if a != nil {
				a.Release()
			}
		}
	}()
	for i, c := range t.Columns() {
		fields[i] = arrow.Field{Name: c.Name, Nullable: true}
		switch c.Kind {
		case KindString:
			fields[i].Type = arrow.BinaryTypes.String
			b := array.NewStringBuilder(mem)
			for row, v := range c.strs {
				if c.IsNull(row) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
			arrs[i] = b.NewArray()
			b.Release()
		case KindFloat64:
			fields[i].Type = arrow.PrimitiveTypes.Float64
			b := array.NewFloat64Builder(mem)
			for row, v := range c.floats {
				if c.IsNull(row) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
			arrs[i] = b.NewArray()
			b.Release()
		case KindInt64:
			fields[i].Type = arrow.PrimitiveTypes.Int64
			b := array.NewInt64Builder(mem)
			for row, v := range c.ints {
				if c.IsNull(row) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
			arrs[i] = b.NewArray()
			b.Release()
		case KindBool:
			fields[i].Type = arrow.FixedWidthTypes.Boolean
			b := array.NewBooleanBuilder(mem)
			for row, v := range c.bools {
				if c.IsNull(row) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
			arrs[i] = b.NewArray()
			b.Release()
		}
	}
	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, arrs, int64(t.NumRows()))
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()
	chunkSize := int64(t.NumRows())
	if chunkSize < 1 {
		chunkSize = 1
	}
	// pqarrow closes its sink when done; the caller owns w.
	return pqarrow.WriteTable(tbl, nopCloser{w}, chunkSize, parquet.NewWriterProperties(parquet.WithAllocator(mem)), pqarrow.DefaultWriterProps())
}

// nullLiterals are the text values read as null.
var nullLiterals = []string{"", "NA", "NaN", "nan", "null", "None", "<nil>"}

// textNumericFields are always parsed as numbers when reading text
// tables.
var textNumericFields = []string{RawScoreField, "score", NVariantsField}

// ReadDelimited reads a header row followed by data rows. Columns
// named in textNumericFields or numeric become float64 columns;
// values there that do not parse as numbers are read as null. Every
// other column is read as strings, exactly as written, so identifiers
// like "00123" and passthrough values like "0.10" are not altered.
func ReadDelimited(r io.Reader, comma rune, numeric ...string) (*Table, error) {
	buf, err := io.ReadAll(bufio.NewReaderSize(r, 1<<20))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	types := map[string]series.Type{}
	for _, name := range append(append([]string(nil), textNumericFields...), numeric...) {
		types[name] = series.Float
	}
	df := dataframe.ReadCSV(bytes.NewReader(buf),
		dataframe.WithDelimiter(comma),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues(nullLiterals))
	if df.Err != nil {
		// gota refuses a header with no data rows
		if header := readHeaderOnly(buf, comma); header != nil {
			return emptyTextTable(header, types)
		}
		return nil, df.Err
	}
	cols := make([]*Column, 0, df.Ncol())
	for _, name := range df.Names() {
		s := df.Col(name)
		null := s.IsNaN()
		if s.Type() == series.Float {
			cols = append(cols, NewFloat64Column(name, s.Float(), null))
			continue
		}
		strs := s.Records()
		for i := range strs {
			if null[i] {
				strs[i] = ""
			}
		}
		cols = append(cols, NewStringColumn(name, strs, null))
	}
	return NewTable(cols...)
}

// readHeaderOnly returns the column names if buf holds a header row
// and nothing else, otherwise nil.
func readHeaderOnly(buf []byte, comma rune) []string {
	df := dataframe.ReadCSV(bytes.NewReader(buf),
		dataframe.WithDelimiter(comma),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil))
	if df.Err != nil || df.Nrow() != 1 {
		return nil
	}
	header := make([]string, 0, df.Ncol())
	for _, name := range df.Names() {
		header = append(header, df.Col(name).Records()[0])
	}
	return header
}

func emptyTextTable(header []string, types map[string]series.Type) (*Table, error) {
	cols := make([]*Column, len(header))
	for i, name := range header {
		if types[name] == series.Float {
			cols[i] = NewFloat64Column(name, []float64{}, nil)
		} else {
			cols[i] = NewStringColumn(name, []string{}, nil)
		}
	}
	return NewTable(cols...)
}

// WriteDelimited writes a header row and one row per table row.
// Nulls are written as empty fields.
func WriteDelimited(w io.Writer, t *Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	err := cw.Write(t.Names())
	if err != nil {
		return err
	}
	rec := make([]string, t.NumCols())
	for row := 0; row < t.NumRows(); row++ {
		for i, c := range t.Columns() {
			rec[i] = c.KeyAt(row)
		}
		err = cw.Write(rec)
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes t to fnm, choosing the format from the file
// extension. "-" writes TSV to stdout.
func WriteTable(fnm string, t *Table, stdout io.Writer) error {
	format, gz, err := formatOf(fnm)
	if err != nil {
		return err
	}
	var output io.WriteCloser
	if fnm == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.Create(fnm)
		if err != nil {
			return err
		}
		defer output.Close()
	}
	bufw := bufio.NewWriterSize(output, 1<<20)
	var w io.Writer = bufw
	var gzw *pgzip.Writer
	if gz {
		gzw = pgzip.NewWriter(bufw)
		w = gzw
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     t.NumRows(),
		"cols":     t.NumCols(),
	}).Infof("writing table: %s", fnm)
	switch format {
	case formatParquet:
		err = WriteParquet(w, t)
	case formatCSV:
		err = WriteDelimited(w, t, ',')
	default:
		err = WriteDelimited(w, t, '\t')
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	if gzw != nil {
		err = gzw.Close()
		if err != nil {
			return fmt.Errorf("write %s: %w", fnm, err)
		}
	}
	err = bufw.Flush()
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	err = output.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", fnm, err)
	}
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
