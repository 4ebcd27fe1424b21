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

	"github.com/grailbio/varfilter/pileup"
	"github.com/pkg/errors"
)

// AlleleBalance excludes heterozygous calls whose reference-allele read
// fraction is implausible for a diploid het.
type AlleleBalance struct {
	ratioFilter
}

// NewAlleleBalance returns an AlleleBalance filter with DefaultRatioOpts.
func NewAlleleBalance() *AlleleBalance {
	return &AlleleBalance{ratioFilter{
		name: "AlleleBalance",
		tail: TwoTailed,
		opts: DefaultRatioOpts,
	}}
}

// Name implements Filter.
func (f *AlleleBalance) Name() string { return f.name }

// Kind implements Filter.
func (f *AlleleBalance) Kind() Kind { return KindDecision }

// Initialize parses a "key=value,..." argument string; see
// ratioFilter.Configure for the recognized keys.
func (f *AlleleBalance) Initialize(args string) error {
	kv, err := ParseArgs(args)
	if err != nil {
		return err
	}
	return f.Configure(kv)
}

// UseZeroQualityReads implements Filter.
func (f *AlleleBalance) UseZeroQualityReads() bool { return false }

// ExcludeHetsOnly returns true: homozygous calls are never tested.
func (f *AlleleBalance) ExcludeHetsOnly() bool { return true }

// RatioCounts returns the number of pileup bases matching the reference and
// the alternate allele of the diploid genotype, ignoring case, and the
// reference ratio.  The allele equal to refBase is the reference allele; if
// the first allele differs from refBase, the second one is taken as
// reference.  An empty pileup, or one without any allele bases, has ratio 0.
func (f *AlleleBalance) RatioCounts(refBase byte, bases, genotype string) (refCount, altCount int, ratio float64, err error) {
	if len(genotype) != 2 {
		err = errors.Errorf("AlleleBalance: can only handle diploid genotypes: %q", genotype)
		return
	}
	if len(bases) == 0 {
		return
	}
	a := pileup.UpperBase(genotype[0])
	b := pileup.UpperBase(genotype[1])
	var aCount, bCount int
	for i := 0; i < len(bases); i++ {
		c := pileup.UpperBase(bases[i])
		if c == a {
			aCount++
		}
		if c == b {
			bCount++
		}
	}
	if a == pileup.UpperBase(refBase) {
		refCount, altCount = aCount, bCount
	} else {
		refCount, altCount = bCount, aCount
	}
	if refCount+altCount > 0 {
		ratio = float64(refCount) / float64(refCount+altCount)
	}
	return
}

// Evaluate counts the alleles of genotype in bases and, at heterozygous
// sites with at least one allele base, decides whether to exclude the site.
// Call confidence is not consulted; Apply does that.
func (f *AlleleBalance) Evaluate(refBase byte, bases, genotype string) (Result, error) {
	r := Result{Filter: f.name, Kind: KindDecision, PValue: 1}
	var err error
	if r.RefCount, r.AltCount, r.Score, err = f.RatioCounts(refBase, bases, genotype); err != nil {
		return Result{}, err
	}
	isHet := pileup.UpperBase(genotype[0]) != pileup.UpperBase(genotype[1])
	if (isHet || !f.ExcludeHetsOnly()) && r.RefCount+r.AltCount > 0 {
		r.Tested = true
		r.Exclude, r.PValue = f.decide(r.RefCount, r.AltCount, r.Score)
	}
	r.Info = f.StudyInfo(r)
	return r, nil
}

// Apply implements Filter.  Sites whose call confidence is below the
// configured minimum are counted but not tested.
func (f *AlleleBalance) Apply(site *Site) (Result, error) {
	bases, err := sitePileup(site, f.UseZeroQualityReads())
	if err != nil {
		return Result{}, err
	}
	r, err := f.Evaluate(site.RefBase, bases, site.Call.Genotype)
	if err != nil {
		return Result{}, errors.Wrapf(err, "site %s", site.Call.Loc)
	}
	if r.Tested && site.Call.Confidence < f.opts.MinConfidence {
		r.Tested, r.Exclude, r.PValue = false, false, 1
		r.Info = f.StudyInfo(r)
	}
	return r, nil
}

// InclusionProbability returns 0 for excluded sites and 1 otherwise.
func (f *AlleleBalance) InclusionProbability(r Result) float64 {
	if r.Exclude {
		return 0
	}
	return 1
}

// VCFFilterString returns the VCF FILTER value for excluded sites.
func (f *AlleleBalance) VCFFilterString() string { return "AlleleBalance" }

// StudyHeader implements Filter.
func (f *AlleleBalance) StudyHeader() string {
	return fmt.Sprintf("AlleleBalance(%s,%s)\tRefRatio", formatThreshold(f.opts.Low), formatThreshold(f.opts.High))
}

// StudyInfo implements Filter.
func (f *AlleleBalance) StudyInfo(r Result) string {
	verdict := "pass"
	if r.Exclude {
		verdict = "fail"
	}
	return verdict + "\t" + strconv.FormatFloat(r.Score, 'g', -1, 64)
}

// ScoreString implements Filter.
func (f *AlleleBalance) ScoreString(r Result) string {
	return fmt.Sprintf("%.2f", r.Score)
}

// String describes the configuration, e.g. for logging.
func (f *AlleleBalance) String() string {
	o := f.opts
	return strings.Join([]string{
		"analysis=" + o.Analysis.String(),
		"pvalue=" + formatThreshold(o.PValue),
		"low=" + formatThreshold(o.Low),
		"high=" + formatThreshold(o.High),
		"confidence=" + formatThreshold(o.MinConfidence),
	}, ",")
}
