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
package locus

import (
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varfilter/reference"
)

// Evidence is the set of reads covering one locus.  reads[i] covers the locus
// at position offsets[i] of its sequence; the two slices always have the same
// length.  Evidence is not safe for concurrent mutation.
type Evidence struct {
	loc     Loc
	reads   []*sam.Record
	offsets []int
	window  *reference.Window
}

// NewEvidence creates the evidence for loc.  reads and offsets must have the
// same length; the slices are retained, not copied.
func NewEvidence(loc Loc, reads []*sam.Record, offsets []int) (*Evidence, error) {
	if len(reads) != len(offsets) {
		return nil, fmt.Errorf("locus.NewEvidence: %s has %d reads but %d offsets", loc, len(reads), len(offsets))
	}
	return &Evidence{loc: loc, reads: reads, offsets: offsets}, nil
}

// Loc returns the locus the evidence was gathered at.
func (e *Evidence) Loc() Loc { return e.loc }

// Contig returns the name of the locus' contig.
func (e *Evidence) Contig() string { return e.loc.RefName }

// Position returns the 1-based position of the locus.
func (e *Evidence) Position() PosType { return e.loc.Start }

// Reads returns the reads covering the locus, in pileup order.  The returned
// slice shares storage with e.
func (e *Evidence) Reads() []*sam.Record { return e.reads }

// Offsets returns, for each read, the position within the read aligned to the
// locus.  The returned slice shares storage with e.
func (e *Evidence) Offsets() []int { return e.offsets }

// HasReads returns true iff reads were loaded into e (possibly zero of them).
func (e *Evidence) HasReads() bool { return e.reads != nil }

// ReadCount returns the number of reads covering the locus.  It panics if no
// reads were loaded.
func (e *Evidence) ReadCount() int {
	if e.reads == nil {
		log.Panicf("Evidence.ReadCount: no reads loaded at %s", e.loc)
	}
	return len(e.reads)
}

// ReferenceWindow returns the reference bases around the locus, or nil.
func (e *Evidence) ReferenceWindow() *reference.Window { return e.window }

// HasReferenceWindow returns true iff a reference window is attached.
func (e *Evidence) HasReferenceWindow() bool { return e.window != nil }

// SetReferenceWindow attaches reference bases to e.
func (e *Evidence) SetReferenceWindow(w *reference.Window) { e.window = w }

// RefBase returns the reference base at the locus, or 'N' when no window
// covering it is attached.
func (e *Evidence) RefBase() byte {
	if e.window == nil || e.window.SeqName != e.loc.RefName {
		return 'N'
	}
	return e.window.Base(int(e.loc.Start0()))
}

// WithoutZeroQualityReads returns evidence restricted to the reads with
// nonzero mapping quality.  Offsets stay aligned with the surviving reads.
// e is returned as is when every read passes.
func (e *Evidence) WithoutZeroQualityReads() *Evidence {
	nKeep := 0
	for _, r := range e.reads {
		if r.MapQ != 0 {
			nKeep++
		}
	}
	if nKeep == len(e.reads) {
		return e
	}
	filtered := &Evidence{
		loc:     e.loc,
		reads:   make([]*sam.Record, 0, nKeep),
		offsets: make([]int, 0, nKeep),
		window:  e.window,
	}
	for i, r := range e.reads {
		if r.MapQ != 0 {
			filtered.reads = append(filtered.reads, r)
			filtered.offsets = append(filtered.offsets, e.offsets[i])
		}
	}
	return filtered
}
