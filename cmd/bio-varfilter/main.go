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
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/varfilter/filter"
	"github.com/grailbio/varfilter/locus"
)

var (
	sitesPath   = flag.String("sites", "", "Input TSV of candidate calls (CHROM, POS, GENOTYPE, CONFIDENCE); required")
	filters     = flag.String("filters", defaultOpts.Filters, "';'-separated filters to run, each 'name' or 'name:args'. Known filters: "+strings.Join(filter.Names(), ", "))
	cols        = flag.String("cols", defaultOpts.Cols, "Output TSV column sets. #CHROM/POS/REF/GENOTYPE are always present. Supported optional sets are 'dp', 'gl', 'info' and 'score'; default is all of them")
	coverage    = flag.Int("coverage", filter.DefaultRunOpts.Coverage, "Downsample every site to at most this many reads; 0 = no downsampling")
	seed        = flag.Uint64("seed", filter.DefaultRunOpts.Seed, "Downsampling seed")
	flagExclude = flag.Int("flag-exclude", locus.DefaultGatherOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	mapq        = flag.Int("mapq", locus.DefaultGatherOpts.MinMapQ, "Reads with MAPQ below this level are skipped")
	windowPad   = flag.Int("window-pad", locus.DefaultGatherOpts.WindowPad, "Number of reference bases kept on each side of a site")
	outPath     = flag.String("out", "bio-varfilter.tsv", "Output path; a .gz suffix selects gzip compression")
	parallelism = flag.Int("parallelism", filter.DefaultRunOpts.Parallelism, "Maximum number of simultaneous filter jobs; 0 = runtime.NumCPU()")
)

func bioVarfilterUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath fapath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioVarfilterUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if len(positionalArgs) != 2 {
		log.Fatalf("Expected bampath and fapath positional arguments; please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	if *sitesPath == "" {
		log.Fatalf("-sites is required")
	}
	ctx := vcontext.Background()
	opts := Opts{
		SitesPath: *sitesPath,
		Filters:   *filters,
		Cols:      *cols,
		Gather: locus.GatherOpts{
			FlagExclude: *flagExclude,
			MinMapQ:     *mapq,
			WindowPad:   *windowPad,
		},
		Run: filter.RunOpts{
			Coverage:    *coverage,
			Seed:        *seed,
			Parallelism: *parallelism,
		},
	}
	if err := Varfilter(ctx, positionalArgs[0], positionalArgs[1], *outPath, &opts); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
