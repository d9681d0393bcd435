// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// DatasetConfig locates the files of one logical dataset. Patterns
// are filepath.Glob patterns, relative to Config.ResultsDir unless
// absolute.
type DatasetConfig struct {
	Variants string   `yaml:"variants"`
	Genes    string   `yaml:"genes"`
	Columns  []string `yaml:"columns"` // extra passthrough columns; nil = all
}

type Config struct {
	BaseDir    string                   `yaml:"base_dir" envconfig:"BASE_DIR"`
	ResultsDir string                   `yaml:"results_dir" envconfig:"RESULTS_DIR"`
	Seed       int64                    `yaml:"seed" envconfig:"SEED"`
	Datasets   map[string]DatasetConfig `yaml:"datasets" ignored:"true"`
}

// Logical dataset names known to the default configuration.
const (
	DatasetBackground     = "background"
	DatasetBackgroundNull = "background_null"
	DatasetClinGen        = "clingen"
	DatasetClinGenNull    = "clingen_null"
)

const DefaultSeed = 42

func DefaultConfig() *Config {
	cfg := &Config{
		BaseDir:  ".",
		Seed:     DefaultSeed,
		Datasets: map[string]DatasetConfig{},
	}
	for _, name := range []string{DatasetBackground, DatasetBackgroundNull, DatasetClinGen, DatasetClinGenNull} {
		cfg.Datasets[name] = DatasetConfig{
			Variants: name + "_variants_*.parquet",
			Genes:    name + "_genes_*.parquet",
		}
	}
	return cfg
}

// LoadConfig returns the default configuration, updated by the YAML
// file at path (if path is not empty), then by VARMATCH_* environment
// variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		buf, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, &NotFoundError{What: "config file", Name: path, Err: err}
		} else if err != nil {
			return nil, err
		}
		err = yaml.UnmarshalStrict(buf, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	err := envconfig.Process("varmatch", cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = filepath.Join(cfg.BaseDir, "03_results")
	}
	return cfg, nil
}

func (cfg *Config) Dataset(name string) (DatasetConfig, error) {
	ds, ok := cfg.Datasets[name]
	if !ok {
		return DatasetConfig{}, &NotFoundError{What: "dataset", Name: name}
	}
	return ds, nil
}

// VariantFile returns the latest file matching the named dataset's
// variant pattern.
func (cfg *Config) VariantFile(name string) (string, error) {
	ds, err := cfg.Dataset(name)
	if err != nil {
		return "", err
	}
	return cfg.latest(name, ds.Variants)
}

// GeneFile returns the latest file matching the named dataset's
// gene-level pattern.
func (cfg *Config) GeneFile(name string) (string, error) {
	ds, err := cfg.Dataset(name)
	if err != nil {
		return "", err
	}
	return cfg.latest(name, ds.Genes)
}

// latest returns the lexically last match, which for date- or
// version-stamped file names is the most recent one.
func (cfg *Config) latest(name, pattern string) (string, error) {
	if pattern == "" {
		return "", &NotFoundError{What: "file pattern", Name: name}
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(cfg.ResultsDir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("dataset %s: %w", name, err)
	}
	if len(matches) == 0 {
		return "", &NotFoundError{What: "file", Name: pattern}
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
