// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"errors"
	"os"
	"strings"

	"git.arvados.org/arvados.git/lib/cmd"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	handler = cmd.Multi(map[string]cmd.Handler{
		"version":   cmd.Version,
		"-version":  cmd.Version,
		"--version": cmd.Version,

		"dedup":        &dedupcmd{},
		"downsample":   &downsamplecmd{},
		"match":        &matchcmd{},
		"compare":      &comparecmd{},
		"export-numpy": &exportNumpy{},
		"plot":         &pythonPlot{},
	})
)

// errUsage is returned by a subcommand's run method after the flag
// package has already reported the problem.
var errUsage = errors.New("usage error")

func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// splitList splits a comma-separated flag value, dropping empty
// elements.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
