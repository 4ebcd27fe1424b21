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
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tail selects which deviations of a ratio a filter excludes.
type Tail int

const (
	// LeftTailed filters exclude ratios that are too low.
	LeftTailed Tail = iota
	// RightTailed filters exclude ratios that are too high.
	RightTailed
	// TwoTailed filters exclude deviations in either direction.
	TwoTailed
)

// AnalysisType selects how a ratio filter reaches its decision.
type AnalysisType int

const (
	// PointEstimate compares the observed ratio with [Low, High].
	PointEstimate AnalysisType = iota
	// FairCoinTest runs an exact binomial test against a 0.5 ratio.
	FairCoinTest
)

var analysisNames = map[string]AnalysisType{
	"point_estimate": PointEstimate,
	"fair_coin_test": FairCoinTest,
}

// String returns the argument-string spelling of a.
func (a AnalysisType) String() string {
	switch a {
	case PointEstimate:
		return "point_estimate"
	case FairCoinTest:
		return "fair_coin_test"
	}
	return fmt.Sprintf("AnalysisType(%d)", int(a))
}

// RatioOpts configures a ratio filter.
type RatioOpts struct {
	Analysis AnalysisType
	// PValue is the significance level of FairCoinTest.
	PValue float64
	// Low and High bound the acceptable ratio for PointEstimate.
	Low  float64
	High float64
	// MinConfidence is the minimum call confidence for a site to be tested.
	MinConfidence float64
}

// DefaultRatioOpts are the ratio filter defaults.
var DefaultRatioOpts = RatioOpts{
	Analysis:      PointEstimate,
	PValue:        0.05,
	Low:           0.25,
	High:          0.75,
	MinConfidence: 5.0,
}

// Validate checks the option ranges.
func (o RatioOpts) Validate() error {
	if _, ok := analysisNames[o.Analysis.String()]; !ok {
		return errors.Errorf("invalid analysis %v", o.Analysis)
	}
	if !(o.PValue > 0 && o.PValue <= 1) {
		return errors.Errorf("pvalue %v must be in (0, 1]", o.PValue)
	}
	if !(o.Low >= 0 && o.Low <= 1) || !(o.High >= 0 && o.High <= 1) {
		return errors.Errorf("thresholds low=%v high=%v must be in [0, 1]", o.Low, o.High)
	}
	if o.Low > o.High {
		return errors.Errorf("low threshold %v is above high threshold %v", o.Low, o.High)
	}
	return nil
}

// ratioFilter holds the configuration and decision logic shared by filters
// whose statistic is a ratio of two read counts.
type ratioFilter struct {
	name string
	tail Tail
	opts RatioOpts
}

// Options returns the effective configuration.
func (rf *ratioFilter) Options() RatioOpts { return rf.opts }

// Tail returns the direction(s) the filter excludes.
func (rf *ratioFilter) Tail() Tail { return rf.tail }

// Configure applies the recognized keys of args on top of the current
// options: analysis, pvalue, low, high, confidence.  Unknown keys and
// invalid values are errors, in which case the options are unchanged.
func (rf *ratioFilter) Configure(args map[string]string) error {
	opts := rf.opts
	for key, val := range args {
		var err error
		switch key {
		case "analysis":
			a, ok := analysisNames[strings.ToLower(val)]
			if !ok {
				return errors.Errorf("%s: unknown analysis %q", rf.name, val)
			}
			opts.Analysis = a
		case "pvalue":
			opts.PValue, err = strconv.ParseFloat(val, 64)
		case "low":
			opts.Low, err = strconv.ParseFloat(val, 64)
		case "high":
			opts.High, err = strconv.ParseFloat(val, 64)
		case "confidence":
			opts.MinConfidence, err = strconv.ParseFloat(val, 64)
		default:
			return errors.Errorf("%s: unknown argument %q", rf.name, key)
		}
		if err != nil {
			return errors.Wrapf(err, "%s: argument %s", rf.name, key)
		}
	}
	if err := opts.Validate(); err != nil {
		return errors.Wrap(err, rf.name)
	}
	rf.opts = opts
	return nil
}

// decide returns whether a site with the given counts should be excluded,
// along with the test p-value (1 for PointEstimate).  ratio is
// refCount / (refCount + altCount); the total must be positive.
func (rf *ratioFilter) decide(refCount, altCount int, ratio float64) (exclude bool, pvalue float64) {
	pvalue = 1
	switch rf.opts.Analysis {
	case FairCoinTest:
		pvalue = binomialTest(refCount, refCount+altCount, 0.5, rf.tail)
		exclude = pvalue < rf.opts.PValue
	default:
		tooLow := ratio < rf.opts.Low
		tooHigh := ratio > rf.opts.High
		switch rf.tail {
		case LeftTailed:
			exclude = tooLow
		case RightTailed:
			exclude = tooHigh
		default:
			exclude = tooLow || tooHigh
		}
	}
	return
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
