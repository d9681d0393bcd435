// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"math"

	"gopkg.in/check.v1"
)

type contingencySuite struct{}

var _ = check.Suite(&contingencySuite{})

func (s *contingencySuite) TestIndependence(c *check.C) {
	// real: 25 above, 8 below; null: 6 above, 15 below
	ct := contingency{{15, 6}, {8, 25}}
	p := ct.independencePValue()
	c.Check(p > 0.0005 && p < 0.0008, check.Equals, true, check.Commentf("p=%v", p))

	// swapping outcomes or groups does not change the statistic
	swapped := contingency{{6, 15}, {25, 8}}
	c.Check(math.Abs(swapped.independencePValue()-p) < 1e-12, check.Equals, true)
	regrouped := contingency{{8, 25}, {15, 6}}
	c.Check(math.Abs(regrouped.independencePValue()-p) < 1e-12, check.Equals, true)
}

func (s *contingencySuite) TestAdd(c *check.C) {
	var ct contingency
	ct.add(true, true)
	ct.add(true, true)
	ct.add(true, false)
	ct.add(false, true)
	c.Check(ct, check.DeepEquals, contingency{{0, 1}, {1, 2}})
}

func (s *contingencySuite) TestDegenerate(c *check.C) {
	var empty contingency
	c.Check(empty.independencePValue(), check.Equals, 1.0)
	// no null rows
	c.Check((&contingency{{0, 0}, {3, 4}}).independencePValue(), check.Equals, 1.0)
	// nothing above threshold
	c.Check((&contingency{{5, 0}, {3, 0}}).independencePValue(), check.Equals, 1.0)
	// same fraction above in both groups
	p := (&contingency{{2, 2}, {3, 3}}).independencePValue()
	c.Check(p > 0.99, check.Equals, true, check.Commentf("p=%v", p))
}
