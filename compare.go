// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// jsonFloat encodes NaN and ±Inf as null, which encoding/json
// otherwise refuses to marshal.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
}

type ScoreSummary struct {
	Rows           int
	Genes          int
	MeanScore      jsonFloat
	StdScore       jsonFloat
	MeanAbsScore   jsonFloat
	StdAbsScore    jsonFloat
	MedianAbsScore jsonFloat
	Digest         string
}

// Comparison summarizes how the raw_score distributions of a real and
// a (matched) null variant set differ.
type Comparison struct {
	Real      ScoreSummary
	Null      ScoreSummary
	Threshold float64
	// Two-sample Kolmogorov-Smirnov statistic on |raw_score|.
	KSStatistic jsonFloat
	// 2x2 chi-square test: |raw_score| >= Threshold vs. real/null.
	ChiSquarePValue jsonFloat
	// Likelihood ratio test for |raw_score| predicting real/null.
	LogisticPValue jsonFloat
}

// Compare summarizes both tables and tests whether |raw_score| is
// distributed differently in realVariants than in nullVariants.
// Tests that cannot be computed (too few rows, one table empty)
// report NaN, or a p-value of 1 for the chi-square test.
func Compare(realVariants, nullVariants *Table, threshold float64) (*Comparison, error) {
	realScores, err := nonNullScores(realVariants)
	if err != nil {
		return nil, withTable(err, "real")
	}
	nullScores, err := nonNullScores(nullVariants)
	if err != nil {
		return nil, withTable(err, "null")
	}
	realAbs, nullAbs := absSorted(realScores), absSorted(nullScores)
	cmp := &Comparison{
		Real:            summarize(realVariants, realScores, realAbs),
		Null:            summarize(nullVariants, nullScores, nullAbs),
		Threshold:       threshold,
		KSStatistic:     jsonFloat(math.NaN()),
		ChiSquarePValue: 1,
	}
	if len(realAbs) > 0 && len(nullAbs) > 0 {
		cmp.KSStatistic = jsonFloat(stat.KolmogorovSmirnov(realAbs, nil, nullAbs, nil))
	}

	var ct contingency
	abs := append(append([]float64(nil), realAbs...), nullAbs...)
	isReal := make([]bool, len(abs))
	for i, x := range abs {
		isReal[i] = i < len(realAbs)
		ct.add(isReal[i], x >= threshold)
	}
	cmp.ChiSquarePValue = jsonFloat(ct.independencePValue())
	cmp.LogisticPValue = jsonFloat(logisticPValue(abs, isReal))
	return cmp, nil
}

func nonNullScores(t *Table) ([]float64, error) {
	vals, null, err := t.Float64Column(RawScoreField)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(vals))
	for i, v := range vals {
		if (null != nil && null[i]) || math.IsNaN(v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func absSorted(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	sort.Float64s(out)
	return out
}

func summarize(t *Table, scores, absSorted []float64) ScoreSummary {
	s := ScoreSummary{
		Rows:           t.NumRows(),
		MeanScore:      jsonFloat(math.NaN()),
		StdScore:       jsonFloat(math.NaN()),
		MeanAbsScore:   jsonFloat(math.NaN()),
		StdAbsScore:    jsonFloat(math.NaN()),
		MedianAbsScore: jsonFloat(math.NaN()),
		Digest:         t.Digest(),
	}
	if genes := t.Column(GeneIDField); genes != nil {
		seen := map[string]bool{}
		for row := 0; row < t.NumRows(); row++ {
			if !genes.IsNull(row) {
				seen[genes.KeyAt(row)] = true
			}
		}
		s.Genes = len(seen)
	}
	if len(scores) == 0 {
		return s
	}
	mean, std := stat.MeanStdDev(scores, nil)
	s.MeanScore, s.StdScore = jsonFloat(mean), jsonFloat(std)
	mean, std = stat.MeanStdDev(absSorted, nil)
	s.MeanAbsScore, s.StdAbsScore = jsonFloat(mean), jsonFloat(std)
	s.MedianAbsScore = jsonFloat(stat.Quantile(0.5, stat.Empirical, absSorted, nil))
	return s
}

type comparecmd struct{}

func (cmd *comparecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *comparecmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	realFilename := flags.String("real", "", "real variant table `file` (deduplicated)")
	nullFilename := flags.String("null", "", "null variant table `file` (deduplicated, matched)")
	outputFilename := flags.String("o", "-", "output `file` (JSON)")
	threshold := flags.Float64("threshold", 0.5, "|raw_score| `threshold` for the chi-square test")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *realFilename == "" || *nullFilename == "" {
		return fmt.Errorf("must provide both -real and -null")
	}

	realVariants, err := ReadTable(*realFilename)
	if err != nil {
		return err
	}
	nullVariants, err := ReadTable(*nullFilename)
	if err != nil {
		return err
	}
	cmp, err := Compare(realVariants, nullVariants, *threshold)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"real": cmp.Real.Rows,
		"null": cmp.Null.Rows,
		"ks":   float64(cmp.KSStatistic),
	}).Info("compared score distributions")

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.Create(*outputFilename)
		if err != nil {
			return err
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	err = enc.Encode(cmp)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}
