// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

type exportNumpy struct{}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "", "input table `file`")
	outputFilename := flags.String("o", "", "output `file` (e.g., ./scores.npy)")
	column := flags.String("column", RawScoreField, "numeric `column` to export")
	abs := flags.Bool("abs", false, "export absolute values")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	} else if *inputFilename == "" || *outputFilename == "" {
		err = fmt.Errorf("must provide -i and -o")
		return 2
	}

	t, err := ReadTable(*inputFilename)
	if err != nil {
		return 1
	}
	vals, err := numpyValues(t, *column, *abs)
	if err != nil {
		err = withTable(err, *inputFilename)
		return 1
	}
	err = writeNumpyFloat64(*outputFilename, vals)
	if err != nil {
		return 1
	}
	return 0
}

// numpyValues returns the non-null values of the named numeric
// column, optionally as absolute values.
func numpyValues(t *Table, column string, abs bool) ([]float64, error) {
	vals, null, err := t.Float64Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(vals))
	for i, v := range vals {
		if null != nil && null[i] {
			continue
		}
		if abs {
			v = math.Abs(v)
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteScoresNumpy writes the non-null raw_score values of t to fnm
// as a 1-D float64 .npy array.
func WriteScoresNumpy(fnm string, t *Table) error {
	vals, err := numpyValues(t, RawScoreField, false)
	if err != nil {
		return err
	}
	return writeNumpyFloat64(fnm, vals)
}

func writeNumpyFloat64(fnm string, out []float64) error {
	output, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriterSize(output, 1<<26)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     len(out),
		"bytes":    len(out) * 8,
	}).Infof("writing numpy: %s", fnm)
	npw.Shape = []int{len(out)}
	err = npw.WriteFloat64(out)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}
