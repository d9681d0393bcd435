// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	VariantIDField = "variant_id"
	GeneIDField    = "gene_id"
	RawScoreField  = "raw_score"
	NVariantsField = "n_variants"
)

// DefaultScoreFields are the score column names recognized by Dedup,
// in order of preference.
var DefaultScoreFields = []string{"raw_score", "score"}

// Dedup collapses t to one row per variant_id, keeping the row whose
// score has the largest absolute value.
//
// The score column is the first of scoreFields (DefaultScoreFields if
// empty) present in t. It is renamed to raw_score and converted to
// float64; all other columns are retained from the winning row. Rows
// with a null or NaN score, or a null variant_id, are dropped.
//
// When several rows of a variant tie on absolute score, the one that
// appears first in t wins. Output rows are ordered by the first
// appearance of each variant_id in t, so Dedup(Dedup(t)) equals
// Dedup(t).
func Dedup(t *Table, scoreFields []string) (*Table, error) {
	if len(scoreFields) == 0 {
		scoreFields = DefaultScoreFields
	}
	ids, err := t.require(VariantIDField)
	if err != nil {
		return nil, err
	}
	if _, err := t.require(GeneIDField); err != nil {
		return nil, err
	}
	var scoreCol *Column
	for _, name := range scoreFields {
		if scoreCol = t.Column(name); scoreCol != nil {
			break
		}
	}
	if scoreCol == nil {
		return nil, &SchemaError{Field: strings.Join(scoreFields, "|"), Msg: "no score column"}
	}
	scores, null, err := scoreCol.Float64Values()
	if err != nil {
		return nil, err
	}
	if scoreCol.Kind != KindFloat64 {
		t, err = t.Replace(scoreCol.Name, NewFloat64Column(scoreCol.Name, scores, null))
		if err != nil {
			return nil, err
		}
	}
	t, err = t.Rename(scoreCol.Name, RawScoreField)
	if err != nil {
		return nil, err
	}

	best := map[string]int{}
	var order []string
	for row, score := range scores {
		if (null != nil && null[row]) || math.IsNaN(score) || ids.IsNull(row) {
			continue
		}
		id := ids.KeyAt(row)
		cur, seen := best[id]
		if !seen {
			best[id] = row
			order = append(order, id)
		} else if math.Abs(score) > math.Abs(scores[cur]) {
			best[id] = row
		}
	}
	rows := make([]int, len(order))
	for i, id := range order {
		rows[i] = best[id]
	}
	return t.Take(rows), nil
}

type DedupOptions struct {
	// Label identifies the dataset in log messages.
	Label string
	// If non-nil, keep only the id, gene and score columns plus
	// these. Columns not present in the file are skipped with a
	// warning.
	Columns []string
	// Score column candidates; DefaultScoreFields if empty.
	ScoreFields []string
	// Log table shapes at info level instead of debug.
	Verbose bool
}

// DedupScoresByVariant reads the variant table at path and returns
// Dedup of it.
func DedupScoresByVariant(path string, opts DedupOptions) (*Table, error) {
	label := opts.Label
	if label == "" {
		label = path
	}
	logf := log.Debugf
	if opts.Verbose {
		logf = log.Infof
	}
	scoreFields := opts.ScoreFields
	if len(scoreFields) == 0 {
		scoreFields = DefaultScoreFields
	}
	t, err := ReadTable(path, scoreFields...)
	if err != nil {
		return nil, err
	}
	logf("loaded %s: (%d, %d)", label, t.NumRows(), t.NumCols())

	if opts.Columns != nil {
		keep := []string{VariantIDField, GeneIDField}
		for _, name := range scoreFields {
			if t.Has(name) {
				keep = append(keep, name)
				break
			}
		}
		for _, name := range opts.Columns {
			if contains(keep, name) {
				continue
			} else if t.Has(name) {
				keep = append(keep, name)
			} else {
				log.Warnf("column %s not found in %s, skipping", name, label)
			}
		}
		t, err = t.Select(keep...)
		if err != nil {
			return nil, withTable(err, path)
		}
	}

	dedup, err := Dedup(t, opts.ScoreFields)
	if err != nil {
		return nil, withTable(err, path)
	}
	logf("after dedup %s: (%d, %d)", label, dedup.NumRows(), dedup.NumCols())
	return dedup, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

type dedupcmd struct{}

func (cmd *dedupcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *dedupcmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "", "input variant table `file` (.parquet, .tsv[.gz], .csv[.gz])")
	outputFilename := flags.String("o", "-", "output `file` (format from extension, \"-\" for tsv on stdout)")
	label := flags.String("label", "", "dataset `label` for log messages")
	columns := flags.String("columns", "", "comma-separated extra `columns` to keep (default: keep all)")
	scoreFields := flags.String("score-fields", strings.Join(DefaultScoreFields, ","), "comma-separated score column `candidates`, in order of preference")
	verbose := flags.Bool("verbose", true, "log table shapes")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *inputFilename == "" {
		return fmt.Errorf("must provide -i")
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	opts := DedupOptions{
		Label:       *label,
		ScoreFields: splitList(*scoreFields),
		Verbose:     *verbose,
	}
	if *columns != "" {
		opts.Columns = splitList(*columns)
	}
	dedup, err := DedupScoresByVariant(*inputFilename, opts)
	if err != nil {
		return err
	}
	return WriteTable(*outputFilename, dedup, stdout)
}
