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
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/varfilter/locus"
	"github.com/pkg/errors"
)

// RunOpts configures Run.
type RunOpts struct {
	// Coverage, if positive, downsamples every site to at most this many
	// reads before filtering.
	Coverage int
	// Seed is the run-wide downsampling seed; per-site generators are
	// derived from it with locus.Seed.
	Seed uint64
	// Parallelism is the number of concurrent jobs; 0 = runtime.NumCPU().
	Parallelism int
}

// DefaultRunOpts are the default Run options.
var DefaultRunOpts = RunOpts{
	Coverage:    0,
	Seed:        1,
	Parallelism: 0,
}

// SiteResult collects the results of all filters at one site.
type SiteResult struct {
	Site *Site
	// Depth is the number of reads after downsampling.
	Depth   int
	Results []Result
}

// RunSite downsamples one site (if coverage > 0) and applies every filter to
// it, in order.  The site's evidence is modified in place.
func RunSite(site *Site, filters []Filter, coverage int, seed uint64) (SiteResult, error) {
	sr := SiteResult{Site: site, Results: make([]Result, len(filters))}
	if ev := site.Evidence; ev != nil && ev.HasReads() {
		if coverage > 0 {
			ev.DownsampleToCoverage(coverage, locus.NewRand(locus.Seed(ev.Loc(), seed)))
		}
		sr.Depth = ev.ReadCount()
	}
	for i, f := range filters {
		r, err := f.Apply(site)
		if err != nil {
			return SiteResult{}, errors.Wrapf(err, "%s", f.Name())
		}
		sr.Results[i] = r
	}
	return sr, nil
}

// Run applies filters to every site, splitting the sites into contiguous
// chunks processed in parallel.  Results are returned in site order.
// Filters must already be initialized.  Sites are independent, and each one
// gets its own random generator, so the output does not depend on
// opts.Parallelism.
func Run(sites []*Site, filters []Filter, opts RunOpts) ([]SiteResult, error) {
	if opts.Coverage < 0 {
		return nil, errors.Errorf("filter.Run: negative coverage %d", opts.Coverage)
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(sites) {
		parallelism = len(sites)
	}
	results := make([]SiteResult, len(sites))
	if len(sites) == 0 {
		return results, nil
	}
	log.Printf("filter.Run: %d sites, %d filters (%d jobs)", len(sites), len(filters), parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		start := jobIdx * len(sites) / parallelism
		end := (jobIdx + 1) * len(sites) / parallelism
		for i := start; i < end; i++ {
			sr, err := RunSite(sites[i], filters, opts.Coverage, opts.Seed)
			if err != nil {
				return err
			}
			results[i] = sr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug.Printf("filter.Run: done")
	return results, nil
}
