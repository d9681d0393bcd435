// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	log "github.com/sirupsen/logrus"
)

type MatchOptions struct {
	Downsample bool
	Seed       int64
	Verbose    bool
}

func DefaultMatchOptions() MatchOptions {
	return MatchOptions{Downsample: true, Seed: DefaultSeed}
}

// LoadVariantPairsMatched loads and deduplicates the real and null
// datasets named in cfg, reading both at once. If opts.Downsample is set, the null table is
// then downsampled to the per-gene counts in the real dataset's gene
// file.
func LoadVariantPairsMatched(cfg *Config, realName, nullName string, opts MatchOptions) (realVariants, nullVariants *Table, err error) {
	thr := throttle{Max: 2}
	thr.Go(func() (err error) {
		realVariants, err = loadDataset(cfg, realName, opts.Verbose)
		return
	})
	thr.Go(func() (err error) {
		nullVariants, err = loadDataset(cfg, nullName, opts.Verbose)
		return
	})
	if err = thr.Wait(); err != nil {
		return nil, nil, err
	}
	if !opts.Downsample {
		return realVariants, nullVariants, nil
	}

	genesFile, err := cfg.GeneFile(realName)
	if err != nil {
		return nil, nil, err
	}
	genes, err := ReadTable(genesFile)
	if err != nil {
		return nil, nil, err
	}
	counts, err := GeneCountsFromTable(genes)
	if err != nil {
		return nil, nil, withTable(err, genesFile)
	}
	sampled, report, err := DownsampleWithReport(nullVariants, counts, opts.Seed)
	if err != nil {
		return nil, nil, withTable(err, nullName)
	}
	capped := 0
	for _, m := range report {
		if m.Requested > 0 && m.Taken < m.Requested {
			capped++
			log.Debugf("gene %s", m)
		}
	}
	log.WithFields(log.Fields{
		"real":        realName,
		"null":        nullName,
		"seed":        opts.Seed,
		"genes":       len(report),
		"cappedGenes": capped,
		"nullBefore":  nullVariants.NumRows(),
		"nullAfter":   sampled.NumRows(),
		"realRows":    realVariants.NumRows(),
	}).Info("downsampled null to real gene counts")
	return realVariants, sampled, nil
}

func loadDataset(cfg *Config, name string, verbose bool) (*Table, error) {
	ds, err := cfg.Dataset(name)
	if err != nil {
		return nil, err
	}
	fnm, err := cfg.VariantFile(name)
	if err != nil {
		return nil, err
	}
	return DedupScoresByVariant(fnm, DedupOptions{
		Label:   name,
		Columns: ds.Columns,
		Verbose: verbose,
	})
}

type matchcmd struct{}

func (cmd *matchcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *matchcmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	configFilename := flags.String("config", "", "YAML config `file` (default: built-in dataset registry)")
	realName := flags.String("real", DatasetClinGen, "real `dataset` name")
	nullName := flags.String("null", DatasetClinGenNull, "null `dataset` name")
	downsample := flags.Bool("downsample", true, "downsample null variants to the real dataset's per-gene counts")
	seed := flags.Int64("seed", DefaultSeed, "PRNG seed (default: seed from config, 42 if unset)")
	realOutput := flags.String("o-real", "./real.parquet", "output `file` for deduplicated real variants")
	nullOutput := flags.String("o-null", "./null.parquet", "output `file` for deduplicated, matched null variants")
	verbose := flags.Bool("verbose", true, "log table shapes")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	cfg, err := LoadConfig(*configFilename)
	if err != nil {
		return err
	}
	opts := MatchOptions{
		Downsample: *downsample,
		Seed:       cfg.Seed,
		Verbose:    *verbose,
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.Seed = *seed
		}
	})
	realVariants, nullVariants, err := LoadVariantPairsMatched(cfg, *realName, *nullName, opts)
	if err != nil {
		return err
	}
	err = WriteTable(*realOutput, realVariants, stdout)
	if err != nil {
		return err
	}
	return WriteTable(*nullOutput, nullVariants, stdout)
}
