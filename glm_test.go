// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"math"

	"gopkg.in/check.v1"
)

type glmSuite struct{}

var _ = check.Suite(&glmSuite{})

func (s *glmSuite) TestInformative(c *check.C) {
	var x []float64
	var outcome []bool
	for i := 0; i < 30; i++ {
		x = append(x, float64(i%15))
		outcome = append(outcome, false)
		x = append(x, float64(i%15)+5)
		outcome = append(outcome, true)
	}
	p := logisticPValue(x, outcome)
	c.Check(p < 0.01, check.Equals, true, check.Commentf("p=%v", p))
}

func (s *glmSuite) TestUninformative(c *check.C) {
	var x []float64
	var outcome []bool
	for i := 0; i < 40; i++ {
		x = append(x, float64((i/2)%10))
		outcome = append(outcome, i%2 == 0)
	}
	p := logisticPValue(x, outcome)
	c.Check(p > 0.9, check.Equals, true, check.Commentf("p=%v", p))
}

func (s *glmSuite) TestDegenerate(c *check.C) {
	c.Check(math.IsNaN(logisticPValue([]float64{1, 2, 3}, []bool{true, true, true})), check.Equals, true)
	c.Check(math.IsNaN(logisticPValue([]float64{1, 2, 3}, []bool{false, false, false})), check.Equals, true)
	c.Check(math.IsNaN(logisticPValue([]float64{2, 2, 2, 2}, []bool{true, false, true, false})), check.Equals, true)
	c.Check(math.IsNaN(logisticPValue(nil, nil)), check.Equals, true)
}
