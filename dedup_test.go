// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"bytes"
	"math"
	"os"

	"gopkg.in/check.v1"
)

type dedupSuite struct{}

var _ = check.Suite(&dedupSuite{})

func (s *dedupSuite) TestExample(c *check.C) {
	t := variantTable(c,
		[]string{"v1", "v1", "v2"},
		[]string{"g1", "g1", "g1"},
		[]float64{0.2, -0.9, 0.5})
	out, err := Dedup(t, nil)
	c.Assert(err, check.IsNil)
	c.Check(out.NumRows(), check.Equals, 2)
	c.Check(out.Names(), check.DeepEquals, []string{VariantIDField, GeneIDField, RawScoreField, "AF"})
	c.Check(out.Column(VariantIDField).Str(0), check.Equals, "v1")
	c.Check(out.Column(RawScoreField).Float64(0), check.Equals, -0.9)
	c.Check(out.Column("AF").Float64(0), check.Equals, 0.01)
	c.Check(out.Column(VariantIDField).Str(1), check.Equals, "v2")
	c.Check(out.Column(RawScoreField).Float64(1), check.Equals, 0.5)
}

func (s *dedupSuite) TestRenameScore(c *check.C) {
	t, err := NewTable(
		NewStringColumn(GeneIDField, []string{"g1", "g2"}, nil),
		NewInt64Column("score", []int64{-3, 2}, nil),
		NewStringColumn(VariantIDField, []string{"v1", "v1"}, nil),
	)
	c.Assert(err, check.IsNil)
	out, err := Dedup(t, nil)
	c.Assert(err, check.IsNil)
	c.Check(out.Names(), check.DeepEquals, []string{GeneIDField, RawScoreField, VariantIDField})
	c.Check(out.Column(RawScoreField).Kind, check.Equals, KindFloat64)
	c.Check(out.NumRows(), check.Equals, 1)
	c.Check(out.Column(RawScoreField).Float64(0), check.Equals, -3.0)
	c.Check(out.Column(GeneIDField).Str(0), check.Equals, "g1")
}

func (s *dedupSuite) TestMissingFields(c *check.C) {
	t, err := NewTable(
		NewStringColumn(VariantIDField, []string{"v1"}, nil),
		NewStringColumn(GeneIDField, []string{"g1"}, nil),
		NewFloat64Column("cadd", []float64{1}, nil),
	)
	c.Assert(err, check.IsNil)
	_, err = Dedup(t, nil)
	c.Check(IsSchemaError(err), check.Equals, true)
	c.Check(err, check.ErrorMatches, `.*raw_score\|score.*`)

	out, err := Dedup(t, []string{"cadd"})
	c.Assert(err, check.IsNil)
	c.Check(out.Has(RawScoreField), check.Equals, true)

	noGene, err := t.Select(VariantIDField, "cadd")
	c.Assert(err, check.IsNil)
	_, err = Dedup(noGene, []string{"cadd"})
	c.Check(IsSchemaError(err), check.Equals, true)

	strScore, err := NewTable(
		NewStringColumn(VariantIDField, []string{"v1"}, nil),
		NewStringColumn(GeneIDField, []string{"g1"}, nil),
		NewStringColumn(RawScoreField, []string{"high"}, nil),
	)
	c.Assert(err, check.IsNil)
	_, err = Dedup(strScore, nil)
	c.Check(IsSchemaError(err), check.Equals, true)
}

func (s *dedupSuite) TestNullScores(c *check.C) {
	t := variantTable(c,
		[]string{"v1", "v1", "v2", "v3"},
		[]string{"g1", "g1", "g1", "g2"},
		[]float64{math.NaN(), 0.1, math.NaN(), -0.3})
	out, err := Dedup(t, nil)
	c.Assert(err, check.IsNil)
	c.Check(out.NumRows(), check.Equals, 2)
	c.Check(out.Column(VariantIDField).Str(0), check.Equals, "v1")
	c.Check(out.Column(RawScoreField).Float64(0), check.Equals, 0.1)
	c.Check(out.Column(VariantIDField).Str(1), check.Equals, "v3")
	for row := 0; row < out.NumRows(); row++ {
		c.Check(out.Column(RawScoreField).IsNull(row), check.Equals, false)
	}
}

func (s *dedupSuite) TestTieBreakFirstRow(c *check.C) {
	t := variantTable(c,
		[]string{"v1", "v1", "v1", "v2", "v2"},
		[]string{"gA", "gB", "gC", "g1", "g2"},
		[]float64{0.5, -0.7, 0.7, -0.4, 0.4})
	out, err := Dedup(t, nil)
	c.Assert(err, check.IsNil)
	c.Check(out.NumRows(), check.Equals, 2)
	c.Check(out.Column(GeneIDField).Str(0), check.Equals, "gB")
	c.Check(out.Column(RawScoreField).Float64(0), check.Equals, -0.7)
	c.Check(out.Column(GeneIDField).Str(1), check.Equals, "g1")
	c.Check(out.Column(RawScoreField).Float64(1), check.Equals, -0.4)
}

func (s *dedupSuite) TestIdempotent(c *check.C) {
	t := variantTable(c,
		[]string{"v3", "v1", "v3", "v2", "v1", "v2"},
		[]string{"g1", "g2", "g1", "g2", "g2", "g1"},
		[]float64{1, -2, -1, 0, 2, 0})
	once, err := Dedup(t, nil)
	c.Assert(err, check.IsNil)
	twice, err := Dedup(once, nil)
	c.Assert(err, check.IsNil)
	c.Check(twice.Digest(), check.Equals, once.Digest())
	c.Check(once.NumRows(), check.Equals, 3)
}

func (s *dedupSuite) TestDedupScoresByVariant(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/variants.tsv", []byte(
		"variant_id\tgene_id\tscore\tAF\tperm_AF\n"+
			"v1\tg1\t0.2\t0.01\t0.5\n"+
			"v1\tg1\t-0.9\t0.02\t0.5\n"+
			"v2\tg1\t0.5\t0.03\t0.5\n"+
			"v3\tg2\tNA\t0.04\t0.5\n"), 0644)
	c.Assert(err, check.IsNil)

	out, err := DedupScoresByVariant(tmpdir+"/variants.tsv", DedupOptions{Label: "test", Verbose: true})
	c.Assert(err, check.IsNil)
	c.Check(out.Names(), check.DeepEquals, []string{VariantIDField, GeneIDField, RawScoreField, "AF", "perm_AF"})
	c.Check(out.NumRows(), check.Equals, 2)
	c.Check(out.Column("AF").Str(0), check.Equals, "0.02")

	out, err = DedupScoresByVariant(tmpdir+"/variants.tsv", DedupOptions{Columns: []string{"AF", "missing_col"}})
	c.Assert(err, check.IsNil)
	c.Check(out.Names(), check.DeepEquals, []string{VariantIDField, GeneIDField, RawScoreField, "AF"})

	_, err = DedupScoresByVariant(tmpdir+"/nonexistent.tsv", DedupOptions{})
	c.Check(IsNotFound(err), check.Equals, true)

	err = os.WriteFile(tmpdir+"/noscore.tsv", []byte("variant_id\tgene_id\nv1\tg1\n"), 0644)
	c.Assert(err, check.IsNil)
	_, err = DedupScoresByVariant(tmpdir+"/noscore.tsv", DedupOptions{})
	c.Check(IsSchemaError(err), check.Equals, true)
	c.Check(err, check.ErrorMatches, `.*noscore\.tsv.*`)
}

func (s *dedupSuite) TestCommand(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/variants.csv", []byte(
		"variant_id,gene_id,raw_score\n"+
			"v1,g1,0.2\n"+
			"v1,g1,-0.9\n"+
			"v2,g1,0.5\n"), 0644)
	c.Assert(err, check.IsNil)

	var stdout, stderr bytes.Buffer
	code := (&dedupcmd{}).RunCommand("varmatch dedup", []string{"-i", tmpdir + "/variants.csv"}, &bytes.Buffer{}, &stdout, &stderr)
	c.Check(code, check.Equals, 0)
	c.Check(stdout.String(), check.Equals, "variant_id\tgene_id\traw_score\nv1\tg1\t-0.9\nv2\tg1\t0.5\n")

	code = (&dedupcmd{}).RunCommand("varmatch dedup", []string{"-i", tmpdir + "/variants.csv", "-o", tmpdir + "/out.parquet"}, &bytes.Buffer{}, &stdout, &stderr)
	c.Check(code, check.Equals, 0)
	out, err := ReadTable(tmpdir + "/out.parquet")
	c.Assert(err, check.IsNil)
	c.Check(out.NumRows(), check.Equals, 2)

	stderr.Reset()
	code = (&dedupcmd{}).RunCommand("varmatch dedup", []string{"-i", tmpdir + "/missing.csv"}, &bytes.Buffer{}, &stdout, &stderr)
	c.Check(code, check.Equals, 1)
	c.Check(stderr.String(), check.Matches, `(?s).*not found.*`)

	code = (&dedupcmd{}).RunCommand("varmatch dedup", []string{"-bogus"}, &bytes.Buffer{}, &stdout, &stderr)
	c.Check(code, check.Equals, 2)
}

func (s *dedupSuite) TestCommandKeepsTextValues(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/variants.tsv", []byte(
		"variant_id\tgene_id\tscore\tAF\tsample\n"+
			"1-100-A-G\t00123\t0.2\t0.10\t007\n"+
			"1-100-A-G\t00123\t-0.9\t1e-3\t007\n"+
			"1-200-C-T\t00124\t0.5\t0.0\t010\n"), 0644)
	c.Assert(err, check.IsNil)

	var stdout, stderr bytes.Buffer
	code := (&dedupcmd{}).RunCommand("varmatch dedup", []string{"-i", tmpdir + "/variants.tsv", "-columns", "AF,sample"}, &bytes.Buffer{}, &stdout, &stderr)
	c.Check(code, check.Equals, 0, check.Commentf("stderr: %s", stderr.String()))
	c.Check(stdout.String(), check.Equals, "variant_id\tgene_id\traw_score\tAF\tsample\n"+
		"1-100-A-G\t00123\t-0.9\t1e-3\t007\n"+
		"1-200-C-T\t00124\t0.5\t0.0\t010\n")
}
