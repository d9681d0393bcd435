// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"bytes"
	"math"
	"os"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type exportNumpySuite struct{}

var _ = check.Suite(&exportNumpySuite{})

func (s *exportNumpySuite) TestExport(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/variants.tsv", []byte(
		"variant_id\tgene_id\traw_score\tAF\n"+
			"v1\tg1\t-0.5\t1\n"+
			"v2\tg1\tNA\t2\n"+
			"v3\tg2\t0.25\t3\n"), 0644)
	c.Assert(err, check.IsNil)

	var stderr bytes.Buffer
	exited := (&exportNumpy{}).RunCommand("export-numpy", []string{"-i", tmpdir + "/variants.tsv", "-o", tmpdir + "/scores.npy", "-abs"}, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Assert(exited, check.Equals, 0, check.Commentf("%s", stderr.String()))
	f, err := os.Open(tmpdir + "/scores.npy")
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{2})
	scores, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Check(scores, check.DeepEquals, []float64{0.5, 0.25})

	// text columns are parsed and exported as float64
	exited = (&exportNumpy{}).RunCommand("export-numpy", []string{"-i", tmpdir + "/variants.tsv", "-o", tmpdir + "/af.npy", "-column", "AF"}, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Assert(exited, check.Equals, 0)
	f2, err := os.Open(tmpdir + "/af.npy")
	c.Assert(err, check.IsNil)
	defer f2.Close()
	npy, err = gonpy.NewReader(f2)
	c.Assert(err, check.IsNil)
	af, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Check(af, check.DeepEquals, []float64{1, 2, 3})
}

func (s *exportNumpySuite) TestErrors(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/variants.tsv", []byte("variant_id\tgene_id\nv1\tg1\n"), 0644)
	c.Assert(err, check.IsNil)

	var stderr bytes.Buffer
	exited := (&exportNumpy{}).RunCommand("export-numpy", []string{"-i", tmpdir + "/variants.tsv", "-o", tmpdir + "/scores.npy"}, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Check(exited, check.Equals, 1)
	c.Check(stderr.String(), check.Matches, `.*variants\.tsv: missing field "raw_score"\n`)

	exited = (&exportNumpy{}).RunCommand("export-numpy", []string{"-i", tmpdir + "/variants.tsv", "-column", "gene_id", "-o", tmpdir + "/genes.npy"}, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Check(exited, check.Equals, 1)

	exited = (&exportNumpy{}).RunCommand("export-numpy", []string{"-i", tmpdir + "/variants.tsv"}, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Check(exited, check.Equals, 2)
}

func (s *exportNumpySuite) TestNumpyValues(c *check.C) {
	t := variantTable(c, []string{"a", "b", "c"}, []string{"g", "g", "g"}, []float64{-1, math.NaN(), 2})
	vals, err := numpyValues(t, RawScoreField, false)
	c.Assert(err, check.IsNil)
	c.Check(vals, check.DeepEquals, []float64{-1, 2})
	_, err = numpyValues(t, "missing", false)
	c.Check(IsSchemaError(err), check.Equals, true)
}

func (s *exportNumpySuite) TestWriteScoresNumpy(c *check.C) {
	tmpdir := c.MkDir()
	t := variantTable(c, []string{"a", "b"}, []string{"g", "g"}, []float64{-0.75, 0.5})
	c.Assert(WriteScoresNumpy(tmpdir+"/scores.npy", t), check.IsNil)
	f, err := os.Open(tmpdir + "/scores.npy")
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	scores, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Check(scores, check.DeepEquals, []float64{-0.75, 0.5})
}
