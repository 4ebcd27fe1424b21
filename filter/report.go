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
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/varfilter/pileup"
)

// These constants refer to the optional report column-sets.
//   Dp    = read depth after downsampling.
//   Gl    = comma-separated log10-likelihoods of likelihood filters.
//   Info  = StudyInfo columns of decision filters.
//   Score = ScoreString of every filter.
const (
	colBitDp = 1 << iota
	colBitGl
	colBitInfo
	colBitScore
)

// ReportColNames maps report column-set names to bits, for
// pileup.ParseCols.
var ReportColNames = map[string]int{
	"dp":    colBitDp,
	"gl":    colBitGl,
	"info":  colBitInfo,
	"score": colBitScore,
}

// DefaultReportCols is the default report column set.
const DefaultReportCols = colBitDp | colBitGl | colBitInfo | colBitScore

// ReportWriter writes one TSV row per site.  #CHROM, POS, REF and GENOTYPE
// are always present.
type ReportWriter struct {
	w         *tsv.Writer
	filters   []Filter
	colBitset int
}

// NewReportWriter creates a report for the given filters.  cols is a column
// set descriptor (see pileup.ParseCols); "" selects DefaultReportCols.
func NewReportWriter(w io.Writer, filters []Filter, cols string) (*ReportWriter, error) {
	colBitset, err := pileup.ParseCols(cols, ReportColNames, DefaultReportCols)
	if err != nil {
		return nil, err
	}
	return &ReportWriter{
		w:         tsv.NewWriter(w),
		filters:   filters,
		colBitset: colBitset,
	}, nil
}

// WriteHeader writes the column-name line.
func (rw *ReportWriter) WriteHeader() error {
	rw.w.WriteString("#CHROM\tPOS\tREF\tGENOTYPE")
	if rw.colBitset&colBitDp != 0 {
		rw.w.WriteString("DP")
	}
	for _, f := range rw.filters {
		if f.Kind() == KindLikelihoods && rw.colBitset&colBitGl != 0 {
			rw.w.WriteString(f.Name() + "_GL")
		}
		if header := f.StudyHeader(); header != "" && rw.colBitset&colBitInfo != 0 {
			rw.w.WriteString(header)
		}
		if rw.colBitset&colBitScore != 0 {
			rw.w.WriteString(f.Name() + "_SCORE")
		}
	}
	return rw.w.EndLine()
}

// Write appends the row of one site.  sr.Results must be in the same order
// as the filters given to NewReportWriter.
func (rw *ReportWriter) Write(sr SiteResult) error {
	site := sr.Site
	rw.w.WriteString(site.Call.Loc.RefName)
	rw.w.WriteString(strconv.Itoa(int(site.Call.Loc.Start)))
	rw.w.WriteString(string(pileup.UpperBase(site.RefBase)))
	rw.w.WriteString(site.Call.Genotype)
	if rw.colBitset&colBitDp != 0 {
		rw.w.WriteString(strconv.Itoa(sr.Depth))
	}
	for i, f := range rw.filters {
		r := sr.Results[i]
		if f.Kind() == KindLikelihoods && rw.colBitset&colBitGl != 0 {
			rw.w.WriteString(formatLikelihoods(r.Likelihoods))
		}
		if f.StudyHeader() != "" && rw.colBitset&colBitInfo != 0 {
			rw.w.WriteString(f.StudyInfo(r))
		}
		if rw.colBitset&colBitScore != 0 {
			rw.w.WriteString(f.ScoreString(r))
		}
	}
	return rw.w.EndLine()
}

// Flush flushes buffered rows to the underlying writer.
func (rw *ReportWriter) Flush() error {
	return rw.w.Flush()
}

// formatLikelihoods renders a likelihood vector with four decimals; -Inf is
// written as "-Inf".
func formatLikelihoods(likelihoods []float64) string {
	if len(likelihoods) == 0 {
		return "."
	}
	parts := make([]string, len(likelihoods))
	for i, l := range likelihoods {
		parts[i] = strconv.FormatFloat(l, 'f', 4, 64)
	}
	return strings.Join(parts, ",")
}
