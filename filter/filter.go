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

// Package filter implements per-locus statistical filters over a pileup.
// Every filter is configured once through Initialize, after which it is
// read-only and may be applied to many sites concurrently.
//
// Two kinds of filters exist: likelihood filters (e.g. PrimaryBases) return
// a log10-likelihood per diploid genotype, indexed by pileup.Genotype;
// decision filters (e.g. AlleleBalance) return an include/exclude decision
// with a score.
package filter

import (
	"sort"
	"strings"

	"github.com/grailbio/varfilter/locus"
	"github.com/grailbio/varfilter/pileup"
	"github.com/pkg/errors"
)

// Kind distinguishes the two result shapes.
type Kind int

const (
	// KindLikelihoods results carry a per-genotype log10-likelihood vector.
	KindLikelihoods Kind = iota
	// KindDecision results carry an include/exclude decision and a score.
	KindDecision
)

// Call is a prior genotype call at a site.
type Call struct {
	Loc locus.Loc
	// Genotype is the best diploid genotype, e.g. "AC".
	Genotype string
	// Confidence is the call's confidence (LOD of best genotype vs.
	// reference).
	Confidence float64
}

// Site is everything a filter needs at one locus.
type Site struct {
	Evidence *locus.Evidence
	// RefBase is the reference base at the locus.
	RefBase byte
	Call    Call
}

// Result is the output of one filter at one site.
type Result struct {
	// Filter is the name of the filter that produced the result.
	Filter string
	Kind   Kind

	// Likelihoods has pileup.NGenotype entries for KindLikelihoods results.
	Likelihoods []float64

	// The remaining fields are set for KindDecision results.

	// Tested is false when the site was not eligible for a decision (empty
	// pileup, homozygous call, low confidence); Exclude is then false as well,
	// and callers may apply their own policy.
	Tested  bool
	Exclude bool
	// Score is the filter statistic, e.g. the reference allele ratio.
	Score    float64
	RefCount int
	AltCount int
	// PValue is set by hypothesis-test analyses; it is 1 otherwise.
	PValue float64
	// Info is the diagnostic line, as returned by StudyInfo.
	Info string
}

// Filter is implemented by every statistical filter.
type Filter interface {
	// Name returns the registered name of the filter.
	Name() string
	// Kind returns the shape of the filter's results.
	Kind() Kind
	// Initialize configures the filter from an argument string.  It must be
	// called before the filter is shared between goroutines.
	Initialize(args string) error
	// UseZeroQualityReads returns true if MAPQ 0 reads contribute to the
	// filter's pileup.
	UseZeroQualityReads() bool
	// StudyHeader returns the tab-separated column names of StudyInfo.
	StudyHeader() string
	// StudyInfo returns the tab-separated diagnostic values for r.
	StudyInfo(r Result) string
	// ScoreString returns a short rendering of r's score.
	ScoreString(r Result) string
	// Apply runs the filter on one site.
	Apply(site *Site) (Result, error)
}

var registry = map[string]func() Filter{
	"primarybases":  func() Filter { return NewPrimaryBases() },
	"allelebalance": func() Filter { return NewAlleleBalance() },
}

// Names returns the registered filter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns an unconfigured filter with the given (case-insensitive) name.
func New(name string) (Filter, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("filter.New: unknown filter %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Parse creates and initializes the filters described by spec, a
// ';'-separated list of "name" or "name:args" terms, e.g.
//   PrimaryBases;AlleleBalance:analysis=fair_coin_test,pvalue=0.01
func Parse(spec string) ([]Filter, error) {
	var filters []Filter
	for _, term := range strings.Split(spec, ";") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		name, args := term, ""
		if i := strings.IndexByte(term, ':'); i >= 0 {
			name, args = term[:i], term[i+1:]
		}
		f, err := New(name)
		if err != nil {
			return nil, err
		}
		if err = f.Initialize(args); err != nil {
			return nil, errors.Wrapf(err, "filter.Parse: %s", name)
		}
		filters = append(filters, f)
	}
	if len(filters) == 0 {
		return nil, errors.Errorf("filter.Parse: no filters in %q", spec)
	}
	return filters, nil
}

// ParseArgs splits a "key=value,key=value" argument string into a map.
// Keys are lowercased; surrounding spaces are dropped.
func ParseArgs(args string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(args) == "" {
		return result, nil
	}
	for _, part := range strings.Split(args, ",") {
		eq := strings.IndexByte(part, '=')
		if eq <= 0 {
			return nil, errors.Errorf("filter.ParseArgs: expected key=value, got %q", part)
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		if _, ok := result[key]; ok {
			return nil, errors.Errorf("filter.ParseArgs: duplicate key %q", key)
		}
		result[key] = strings.TrimSpace(part[eq+1:])
	}
	return result, nil
}

// sitePileup returns the pileup string of site, after dropping MAPQ 0 reads
// unless useZeroQualityReads is set.
func sitePileup(site *Site, useZeroQualityReads bool) (string, error) {
	ev := site.Evidence
	if ev == nil || !ev.HasReads() {
		return "", nil
	}
	if !useZeroQualityReads {
		ev = ev.WithoutZeroQualityReads()
	}
	return pileup.Bases(ev.Reads(), ev.Offsets(), site.RefBase)
}
