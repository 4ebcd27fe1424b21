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
	"strconv"
	"strings"

	"github.com/grailbio/varfilter/pileup"
	"github.com/pkg/errors"
)

// Priors holds, for each genotype, the probability that a read's base at the
// locus is not one of the genotype's alleles.
type Priors [pileup.NGenotype]float64

// DefaultPriors are the PrimaryBases priors, in canonical genotype order.
var DefaultPriors = Priors{0.933, 0.972, 0.970, 0.960, 0.945, 0.990, 0.971, 0.943, 0.978, 0.928}

// ParsePriors parses exactly pileup.NGenotype comma-separated probabilities,
// in canonical genotype order.  Every value must lie strictly between 0 and
// 1.
func ParsePriors(s string) (priors Priors, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != pileup.NGenotype {
		err = errors.Errorf("ParsePriors: expected %d comma-separated priors, got %d in %q", pileup.NGenotype, len(parts), s)
		return
	}
	for i, part := range parts {
		var p float64
		if p, err = strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
			err = errors.Wrapf(err, "ParsePriors: genotype %v", pileup.Genotype(i))
			return
		}
		if !(p > 0 && p < 1) {
			err = errors.Errorf("ParsePriors: prior %v for genotype %v must be in (0, 1)", part, pileup.Genotype(i))
			return
		}
		priors[i] = p
	}
	return
}

// PrimaryBases scores every diploid genotype by how well it explains the
// pileup's primary bases: with on-genotype bases as successes and
// off-genotype bases as failures, the genotype's log10-likelihood is the
// binomial probability of the observed number of off-genotype bases.
type PrimaryBases struct {
	priors Priors
}

// NewPrimaryBases returns a PrimaryBases filter using DefaultPriors.
func NewPrimaryBases() *PrimaryBases {
	return &PrimaryBases{priors: DefaultPriors}
}

// Name implements Filter.
func (f *PrimaryBases) Name() string { return "PrimaryBases" }

// Kind implements Filter.
func (f *PrimaryBases) Kind() Kind { return KindLikelihoods }

// Initialize replaces the whole prior table when args is nonempty; see
// ParsePriors.
func (f *PrimaryBases) Initialize(args string) error {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	priors, err := ParsePriors(args)
	if err != nil {
		return err
	}
	f.priors = priors
	return nil
}

// Priors returns the effective prior table.
func (f *PrimaryBases) Priors() Priors { return f.priors }

// UseZeroQualityReads implements Filter.
func (f *PrimaryBases) UseZeroQualityReads() bool { return false }

// Compute returns the log10-likelihood of every genotype given the pileup
// bases, in canonical genotype order.  Comparisons ignore case.  An empty
// pileup yields all zeros.  refBase does not enter the computation.
func (f *PrimaryBases) Compute(bases string, refBase byte) []float64 {
	counts := pileup.BaseCounts(bases)
	total := len(bases)
	likelihoods := make([]float64, pileup.NGenotype)
	for _, g := range pileup.Genotypes() {
		a1, a2 := g.Alleles()
		onTotal := counts[pileup.ASCIIToEnumTable[a1]]
		if a2 != a1 {
			onTotal += counts[pileup.ASCIIToEnumTable[a2]]
		}
		offTotal := total - onTotal
		likelihoods[g] = binomialLog10Prob(offTotal, total, f.priors[g])
	}
	return likelihoods
}

// Apply implements Filter.
func (f *PrimaryBases) Apply(site *Site) (Result, error) {
	bases, err := sitePileup(site, f.UseZeroQualityReads())
	if err != nil {
		return Result{}, err
	}
	r := Result{
		Filter:      f.Name(),
		Kind:        KindLikelihoods,
		Likelihoods: f.Compute(bases, site.RefBase),
		PValue:      1,
	}
	r.Info = f.StudyInfo(r)
	return r, nil
}

// StudyHeader implements Filter.  PrimaryBases has no diagnostic columns.
func (f *PrimaryBases) StudyHeader() string { return "" }

// StudyInfo implements Filter.
func (f *PrimaryBases) StudyInfo(r Result) string { return "" }

// ScoreString returns the most likely genotype; ties go to the earlier
// genotype.
func (f *PrimaryBases) ScoreString(r Result) string {
	if len(r.Likelihoods) != pileup.NGenotype {
		return "."
	}
	best := 0
	for i, l := range r.Likelihoods {
		if l > r.Likelihoods[best] {
			best = i
		}
	}
	return pileup.Genotype(best).String()
}
