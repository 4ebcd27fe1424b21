// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package filter

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// binomialLog10Prob returns log10 of the probability of exactly k successes
// in n trials with success probability p.  n == 0 has probability 1 (log10
// 0), for any p.  The computation stays in log space, so large n never
// underflows; a true probability of 0 (e.g. p == 0, k > 0) yields -Inf.
func binomialLog10Prob(k, n int, p float64) float64 {
	if n == 0 {
		return 0
	}
	b := distuv.Binomial{N: float64(n), P: p}
	return b.LogProb(float64(k)) / math.Ln10
}

// relErr is the relative tolerance used to decide whether an outcome is as
// extreme as the observed one in the two-tailed test.
const relErr = 1 + 1e-7

// binomialTest returns the p-value of observing k successes in n trials
// under success probability p, with the given alternative.  The two-tailed
// p-value sums the probabilities of all outcomes no more likely than k.
// n == 0 yields 1.
func binomialTest(k, n int, p float64, tail Tail) float64 {
	if n == 0 {
		return 1
	}
	b := distuv.Binomial{N: float64(n), P: p}
	var pvalue float64
	switch tail {
	case LeftTailed:
		pvalue = b.CDF(float64(k))
	case RightTailed:
		pvalue = 1 - b.CDF(float64(k-1))
	default:
		threshold := b.LogProb(float64(k)) + math.Log(relErr)
		for i := 0; i <= n; i++ {
			if lp := b.LogProb(float64(i)); lp <= threshold {
				pvalue += math.Exp(lp)
			}
		}
	}
	return math.Max(0, math.Min(1, pvalue))
}
