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
package main

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/varfilter/filter"
	"github.com/grailbio/varfilter/locus"
	"github.com/grailbio/varfilter/reference"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Opts holds the bio-varfilter options other than the input and output
// paths.
type Opts struct {
	// SitesPath is the calls TSV; see filter.ReadCalls.
	SitesPath string
	// Filters is the filter list, in filter.Parse syntax.
	Filters string
	// Cols is the report column set descriptor.
	Cols   string
	Gather locus.GatherOpts
	Run    filter.RunOpts
}

var defaultOpts = Opts{
	Filters: "PrimaryBases;AlleleBalance",
	Cols:    "",
	Gather:  locus.DefaultGatherOpts,
	Run:     filter.DefaultRunOpts,
}

// Varfilter runs opts.Filters over every call in opts.SitesPath, using the
// reads in bamPath and the reference in faPath, and writes the report to
// outPath.
func Varfilter(ctx context.Context, bamPath, faPath, outPath string, opts *Opts) (err error) {
	filters, err := filter.Parse(opts.Filters)
	if err != nil {
		return err
	}
	calls, err := filter.LoadCalls(ctx, opts.SitesPath)
	if err != nil {
		return err
	}
	ref, err := reference.Load(ctx, faPath)
	if err != nil {
		return err
	}
	locs := make([]locus.Loc, len(calls))
	for i, c := range calls {
		locs[i] = c.Loc
	}
	gatherOpts := opts.Gather
	gatherOpts.Ref = ref
	evidence, err := gatherBAM(ctx, bamPath, locs, gatherOpts)
	if err != nil {
		return err
	}
	sites := make([]*filter.Site, len(calls))
	for i, ev := range evidence {
		sites[i] = &filter.Site{
			Evidence: ev,
			RefBase:  ev.RefBase(),
			Call:     calls[i],
		}
	}
	results, err := filter.Run(sites, filters, opts.Run)
	if err != nil {
		return err
	}
	log.Printf("bio-varfilter: %d sites filtered, writing %s", len(results), outPath)
	return writeReport(ctx, outPath, filters, opts.Cols, results)
}

func gatherBAM(ctx context.Context, bamPath string, sites []locus.Loc, opts locus.GatherOpts) (evidence []*locus.Evidence, err error) {
	var in file.File
	if in, err = file.Open(ctx, bamPath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", bamPath)
	}
	defer func() {
		if e := br.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return locus.Gather(br, sites, opts)
}

func writeReport(ctx context.Context, outPath string, filters []filter.Filter, cols string, results []filter.SiteResult) (err error) {
	var out file.File
	if out, err = file.Create(ctx, outPath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, out, &err)
	var (
		w  io.Writer = out.Writer(ctx)
		gz *gzip.Writer
	)
	if strings.HasSuffix(outPath, ".gz") {
		gz = gzip.NewWriter(w)
		w = gz
	}
	rw, err := filter.NewReportWriter(w, filters, cols)
	if err != nil {
		return err
	}
	if err = rw.WriteHeader(); err != nil {
		return err
	}
	for _, sr := range results {
		if err = rw.Write(sr); err != nil {
			return err
		}
	}
	if err = rw.Flush(); err != nil {
		return err
	}
	if gz != nil {
		err = gz.Close()
	}
	return
}
