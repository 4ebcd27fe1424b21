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

/*
bio-varfilter re-examines candidate diploid genotype calls against the reads
that cover them.  For each call it gathers the overlapping reads from a BAM,
optionally downsamples them to a fixed coverage, and runs a list of
statistical filters over the pileup: likelihood filters report a
log10-likelihood per genotype, decision filters report whether the call
should be excluded.

The calls file is a TSV with columns CHROM, POS (1-based), GENOTYPE and
CONFIDENCE; lines starting with '#' are ignored.  The output is one TSV row
per call.

Sample usage:
bio-varfilter \
    -sites calls.tsv \
    -filters 'PrimaryBases;AlleleBalance:analysis=fair_coin_test,pvalue=0.01' \
    -coverage 200 \
    -out report.tsv.gz \
    my.bam \
    ref.fa
*/
package main
