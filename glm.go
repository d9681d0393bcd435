// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"io"
	"log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var glmConfig = &glm.Config{
	Family:    glm.NewFamily(glm.BinomialFamily),
	FitMethod: "IRLS",
	Log:       log.New(io.Discard, "", 0),
}

func normalize(a []float64) {
	mean, std := stat.MeanStdDev(a, nil)
	for i, x := range a {
		a[i] = (x - mean) / std
	}
}

// Logistic regression likelihood ratio test.
//
// Returns the p-value for adding x as a covariate to an
// intercept-only model of outcome, or NaN if the test cannot be
// done (one outcome class empty, x constant, or the fit fails).
func logisticPValue(x []float64, outcome []bool) (p float64) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			p = math.NaN()
		}
	}()
	ncase := 0
	for _, o := range outcome {
		if o {
			ncase++
		}
	}
	if ncase == 0 || ncase == len(outcome) {
		return math.NaN()
	}
	if _, std := stat.MeanStdDev(x, nil); std == 0 || math.IsNaN(std) {
		return math.NaN()
	}

	y := make([]statmodel.Dtype, len(outcome))
	constants := make([]statmodel.Dtype, len(outcome))
	covariate := make([]statmodel.Dtype, len(x))
	for i, o := range outcome {
		if o {
			y[i] = 1
		}
		constants[i] = 1
		covariate[i] = x[i]
	}
	normalize(covariate)

	dataset := statmodel.NewDataset([][]statmodel.Dtype{y, constants}, []string{"outcome", "constants"})
	model, err := glm.NewGLM(dataset, "outcome", []string{"constants"}, glmConfig)
	if err != nil {
		return math.NaN()
	}
	logCov := model.Fit().LogLike()

	dataset = statmodel.NewDataset([][]statmodel.Dtype{y, constants, covariate}, []string{"outcome", "constants", "score"})
	model, err = glm.NewGLM(dataset, "outcome", []string{"constants", "score"}, glmConfig)
	if err != nil {
		return math.NaN()
	}
	logComp := model.Fit().LogLike()
	return distuv.ChiSquared{K: 1}.Survival(-2 * (logCov - logComp))
}
