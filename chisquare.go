// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// contingency is a 2x2 table of counts indexed by [group][outcome].
type contingency [2][2]int

func (ct *contingency) add(group, outcome bool) {
	ct[b2i(group)][b2i(outcome)]++
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// independencePValue returns the p-value of Pearson's chi-square
// test of independence (1 degree of freedom, no continuity
// correction). A table with an empty row or column gives 1.
func (ct *contingency) independencePValue() float64 {
	var rows, cols [2]float64
	var n float64
	for g := 0; g < 2; g++ {
		for o := 0; o < 2; o++ {
			x := float64(ct[g][o])
			rows[g] += x
			cols[o] += x
			n += x
		}
	}
	if rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0 {
		return 1
	}
	var stat float64
	for g := 0; g < 2; g++ {
		for o := 0; o < 2; o++ {
			want := rows[g] * cols[o] / n
			d := float64(ct[g][o]) - want
			stat += d * d / want
		}
	}
	return distuv.ChiSquared{K: 1}.Survival(stat)
}
