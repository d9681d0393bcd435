// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"flag"
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// GeneCounts maps gene_id to the number of variants wanted for that
// gene.
type GeneCounts map[string]int

// GeneCountsFromTable reads gene_id and n_variants from a gene-level
// table. Rows with a null gene or count are ignored. If a gene appears
// more than once, its last row wins.
func GeneCountsFromTable(t *Table) (GeneCounts, error) {
	genes, err := t.require(GeneIDField)
	if err != nil {
		return nil, err
	}
	counts, null, err := t.Float64Column(NVariantsField)
	if err != nil {
		return nil, err
	}
	gc := make(GeneCounts, t.NumRows())
	for row, n := range counts {
		if genes.IsNull(row) || (null != nil && null[row]) {
			continue
		}
		gc[genes.KeyAt(row)] = int(n)
	}
	return gc, nil
}

// GeneMatch records what Downsample did with one gene.
type GeneMatch struct {
	Gene      string
	Requested int
	Available int
	Taken     int
}

func (m GeneMatch) String() string {
	return fmt.Sprintf("%s requested=%d available=%d taken=%d", m.Gene, m.Requested, m.Available, m.Taken)
}

// Downsample selects, for each gene g in null, min(counts[g],
// available) rows without replacement. Genes with no positive count
// contribute nothing. When a gene has no more rows than requested,
// all of its rows are kept and no random draws are made.
//
// Genes are visited in sorted order and all draws come from a single
// generator seeded with seed, so the result depends only on null,
// counts and seed. Output rows are grouped by gene in sorted order,
// and appear in input order within each gene. If nothing is selected
// the result is an empty table with null's schema.
func Downsample(null *Table, counts GeneCounts, seed int64) (*Table, error) {
	t, _, err := DownsampleWithReport(null, counts, seed)
	return t, err
}

// DownsampleWithReport is Downsample, also returning one GeneMatch
// per gene present in null, in sorted gene order.
func DownsampleWithReport(null *Table, counts GeneCounts, seed int64) (*Table, []GeneMatch, error) {
	genes, err := null.require(GeneIDField)
	if err != nil {
		return nil, nil, err
	}
	groups := map[string][]int{}
	for row := 0; row < null.NumRows(); row++ {
		if genes.IsNull(row) {
			continue
		}
		g := genes.KeyAt(row)
		groups[g] = append(groups[g], row)
	}
	keys := make([]string, 0, len(groups))
	for g := range groups {
		keys = append(keys, g)
	}
	sort.Strings(keys)

	rng := rand.New(rand.NewSource(uint64(seed)))
	var parts []*Table
	report := make([]GeneMatch, 0, len(keys))
	for _, g := range keys {
		avail := groups[g]
		m := GeneMatch{Gene: g, Requested: counts[g], Available: len(avail)}
		var picked []int
		switch {
		case m.Requested <= 0 || len(avail) == 0:
		case len(avail) <= m.Requested:
			picked = avail
		default:
			picked = sampleRows(rng, avail, m.Requested)
		}
		if m.Taken = len(picked); m.Taken > 0 {
			parts = append(parts, null.Take(picked))
		}
		report = append(report, m)
	}
	if len(parts) == 0 {
		return null.Empty(), report, nil
	}
	out, err := Concat(parts...)
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

// DownsampleNullToReal downsamples null to the per-gene counts in
// realGenes (a gene_id/n_variants table).
func DownsampleNullToReal(null, realGenes *Table, seed int64) (*Table, error) {
	counts, err := GeneCountsFromTable(realGenes)
	if err != nil {
		return nil, err
	}
	return Downsample(null, counts, seed)
}

// sampleRows returns n of the given rows, chosen uniformly without
// replacement, sorted ascending. rows is not modified.
func sampleRows(rng *rand.Rand, rows []int, n int) []int {
	pool := append([]int(nil), rows...)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	picked := pool[:n]
	sort.Ints(picked)
	return picked
}

type downsamplecmd struct{}

func (cmd *downsamplecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *downsamplecmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	nullFilename := flags.String("i", "", "null variant table `file` (deduplicated)")
	genesFilename := flags.String("genes", "", "gene count table `file` with gene_id and n_variants columns")
	outputFilename := flags.String("o", "-", "output `file` (format from extension, \"-\" for tsv on stdout)")
	seed := flags.Int64("seed", DefaultSeed, "PRNG seed")
	reportFilename := flags.String("report", "", "write per-gene requested/available/taken counts to tsv `file`")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *nullFilename == "" || *genesFilename == "" {
		return fmt.Errorf("must provide both -i and -genes")
	}

	null, err := ReadTable(*nullFilename)
	if err != nil {
		return err
	}
	genes, err := ReadTable(*genesFilename)
	if err != nil {
		return err
	}
	counts, err := GeneCountsFromTable(genes)
	if err != nil {
		return withTable(err, *genesFilename)
	}
	sampled, report, err := DownsampleWithReport(null, counts, *seed)
	if err != nil {
		return withTable(err, *nullFilename)
	}
	log.Infof("downsampled %d null variants to %d across %d genes (seed %d)", null.NumRows(), sampled.NumRows(), len(report), *seed)
	if *reportFilename != "" {
		err = WriteTable(*reportFilename, reportTable(report), stdout)
		if err != nil {
			return err
		}
	}
	return WriteTable(*outputFilename, sampled, stdout)
}

func reportTable(report []GeneMatch) *Table {
	genes := make([]string, len(report))
	requested := make([]int64, len(report))
	available := make([]int64, len(report))
	taken := make([]int64, len(report))
	for i, m := range report {
		genes[i] = m.Gene
		requested[i] = int64(m.Requested)
		available[i] = int64(m.Available)
		taken[i] = int64(m.Taken)
	}
	t, err := NewTable(
		NewStringColumn(GeneIDField, genes, nil),
		NewInt64Column("requested", requested, nil),
		NewInt64Column("available", available, nil),
		NewInt64Column("taken", taken, nil),
	)
	if err != nil {
		panic(err) // equal-length columns with distinct names
	}
	return t
}
