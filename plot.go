// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type pythonPlot struct{}

//go:embed plot.py
var plotscript string

const (
	plotRasterizeThreshold = 10000
	plotPNGDPI             = 300
	plotMaxNameLen         = 150
)

var plotNameSanitizeRe = regexp.MustCompile(`[^0-9A-Za-z\-_\.]`)

func sanitizePlotName(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	s = plotNameSanitizeRe.ReplaceAllString(s, "")
	if s == "" {
		return "unnamed"
	}
	if len(s) > plotMaxNameLen {
		s = s[:plotMaxNameLen]
	}
	return s
}

// PlotBasename returns "{prefix}_{title}_{ddmmYYYY_HHMM}" with
// unsafe filename characters removed from prefix and title.
func PlotBasename(prefix, title string, t time.Time) string {
	return sanitizePlotName(prefix) + "_" + sanitizePlotName(title) + "_" + t.Format("02012006_1504")
}

func (cmd *pythonPlot) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	realFilename := flags.String("real", "", "real variant table `file`")
	nullFilename := flags.String("null", "", "null variant table `file`")
	outputDir := flags.String("output-dir", "./figures", "output `directory`")
	prefix := flags.String("prefix", filepath.Base(prog), "output filename `prefix`")
	title := flags.String("title", "real vs null", "plot `title`")
	formats := flags.String("formats", "pdf,svg", "comma-separated output `formats`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	} else if *realFilename == "" || *nullFilename == "" {
		err = fmt.Errorf("must provide both -real and -null")
		return 2
	}

	tmpdir, err := os.MkdirTemp("", "varmatch-plot-")
	if err != nil {
		return 1
	}
	defer os.RemoveAll(tmpdir)
	for _, in := range []struct{ src, dst string }{
		{*realFilename, tmpdir + "/real.npy"},
		{*nullFilename, tmpdir + "/null.npy"},
	} {
		var t *Table
		t, err = ReadTable(in.src)
		if err != nil {
			return 1
		}
		var vals []float64
		vals, err = numpyValues(t, RawScoreField, true)
		if err != nil {
			err = withTable(err, in.src)
			return 1
		}
		err = writeNumpyFloat64(in.dst, vals)
		if err != nil {
			return 1
		}
	}
	err = os.MkdirAll(*outputDir, 0777)
	if err != nil {
		return 1
	}
	args = []string{
		tmpdir + "/real.npy",
		tmpdir + "/null.npy",
		filepath.Join(*outputDir, PlotBasename(*prefix, *title, time.Now())),
		*formats,
		*title,
		fmt.Sprintf("%d", plotRasterizeThreshold),
		fmt.Sprintf("%d", plotPNGDPI),
	}
	py := exec.Command("python3", append([]string{"-"}, args...)...)
	py.Stdin = strings.NewReader(plotscript)
	py.Stdout = stdout
	py.Stderr = stderr
	err = py.Run()
	if err != nil {
		return 1
	}
	return 0
}
