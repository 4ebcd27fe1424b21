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
package locus_test

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/varfilter/locus"
	"github.com/grailbio/varfilter/reference"
	testifyassert "github.com/stretchr/testify/assert"
)

func newReads(n int) ([]*sam.Record, []int) {
	reads := make([]*sam.Record, n)
	offsets := make([]int, n)
	for i := range reads {
		reads[i] = &sam.Record{Name: fmt.Sprintf("read%d", i), MapQ: 60}
		offsets[i] = i % 7
	}
	return reads, offsets
}

// checkDownsampled verifies that got is an order-preserving, duplicate-free
// subsequence of the original reads, with offsets still attached to the same
// reads.
func checkDownsampled(t *testing.T, ev *locus.Evidence, reads []*sam.Record, offsets []int, want int) {
	gotReads := ev.Reads()
	gotOffsets := ev.Offsets()
	assert.EQ(t, len(gotReads), want)
	assert.EQ(t, len(gotOffsets), want)
	origIdx := make(map[*sam.Record]int, len(reads))
	for i, r := range reads {
		origIdx[r] = i
	}
	prev := -1
	for i, r := range gotReads {
		idx, ok := origIdx[r]
		assert.True(t, ok, "read %s not in input", r.Name)
		assert.True(t, idx > prev, "read %s out of order or duplicated", r.Name)
		expect.EQ(t, gotOffsets[i], offsets[idx])
		prev = idx
	}
}

func TestDownsampleToCoverage(t *testing.T) {
	loc := locus.Loc{RefName: "chr1", Start: 1000}
	for _, nRead := range []int{0, 1, 10, 37, 200} {
		for _, coverage := range []int{0, 1, 3, 10, 19, 36, 100, 250} {
			for seed := uint64(0); seed < 4; seed++ {
				reads, offsets := newReads(nRead)
				ev, err := locus.NewEvidence(loc, append([]*sam.Record{}, reads...), append([]int{}, offsets...))
				assert.NoError(t, err)
				ev.DownsampleToCoverage(coverage, locus.NewRand(seed))
				want := coverage
				if nRead < want {
					want = nRead
				}
				checkDownsampled(t, ev, reads, offsets, want)
				expect.EQ(t, ev.ReadCount(), want)
			}
		}
	}
}

func TestDownsampleDeterministic(t *testing.T) {
	loc := locus.Loc{RefName: "chr1", Start: 1000}
	reads, offsets := newReads(10)
	run := func(seed uint64, coverage int) []*sam.Record {
		ev, err := locus.NewEvidence(loc, append([]*sam.Record{}, reads...), append([]int{}, offsets...))
		assert.NoError(t, err)
		ev.DownsampleToCoverage(coverage, locus.NewRand(seed))
		return ev.Reads()
	}
	for _, coverage := range []int{3, 8} {
		first := run(42, coverage)
		expect.EQ(t, run(42, coverage), first)
		checkDownsampled(t, mustEvidence(t, loc, first, pickOffsets(reads, offsets, first)), reads, offsets, coverage)
	}

	// Different seeds eventually pick different subsets.
	subsets := map[string]bool{}
	for seed := uint64(0); seed < 50; seed++ {
		var names []string
		for _, r := range run(seed, 3) {
			names = append(names, r.Name)
		}
		subsets[strings.Join(names, ",")] = true
	}
	expect.True(t, len(subsets) > 1)
}

func TestDownsampleUniform(t *testing.T) {
	// Each of 10 reads should survive downsampling to 3 (or 8) about 30% (or
	// 80%) of the time.
	loc := locus.Loc{RefName: "chr1", Start: 1000}
	const nTrial = 20000
	for _, coverage := range []int{3, 8} {
		reads, offsets := newReads(10)
		counts := make(map[*sam.Record]int)
		rng := locus.NewRand(7)
		for trial := 0; trial < nTrial; trial++ {
			ev := mustEvidence(t, loc, append([]*sam.Record{}, reads...), append([]int{}, offsets...))
			ev.DownsampleToCoverage(coverage, rng)
			for _, r := range ev.Reads() {
				counts[r]++
			}
		}
		for _, r := range reads {
			frac := float64(counts[r]) / nTrial
			testifyassert.InDelta(t, float64(coverage)/10, frac, 0.03, "read %s", r.Name)
		}
	}
}

func TestDownsampleNegativeCoverage(t *testing.T) {
	reads, offsets := newReads(3)
	ev := mustEvidence(t, locus.Loc{RefName: "chr1", Start: 1}, reads, offsets)
	testifyassert.Panics(t, func() { ev.DownsampleToCoverage(-1, locus.NewRand(0)) })
}

func TestSeed(t *testing.T) {
	a := locus.Loc{RefName: "chr1", Start: 1000}
	b := locus.Loc{RefName: "chr1", Start: 1001}
	c := locus.Loc{RefName: "chr2", Start: 1000}
	expect.EQ(t, locus.Seed(a, 1), locus.Seed(a, 1))
	expect.True(t, locus.Seed(a, 1) != locus.Seed(b, 1))
	expect.True(t, locus.Seed(a, 1) != locus.Seed(c, 1))
	expect.True(t, locus.Seed(a, 1) != locus.Seed(a, 2))
}

func TestEvidence(t *testing.T) {
	loc := locus.Loc{RefName: "chr1", Start: 11}
	_, err := locus.NewEvidence(loc, make([]*sam.Record, 2), make([]int, 3))
	expect.NotNil(t, err)

	empty := mustEvidence(t, loc, nil, nil)
	expect.False(t, empty.HasReads())
	testifyassert.Panics(t, func() { empty.ReadCount() })
	expect.EQ(t, empty.RefBase(), byte('N'))

	reads, offsets := newReads(5)
	reads[1].MapQ = 0
	reads[4].MapQ = 0
	ev := mustEvidence(t, loc, reads, offsets)
	expect.True(t, ev.HasReads())
	expect.EQ(t, ev.ReadCount(), 5)
	expect.EQ(t, ev.Contig(), "chr1")
	expect.EQ(t, ev.Position(), locus.PosType(11))

	filtered := ev.WithoutZeroQualityReads()
	expect.EQ(t, filtered.Reads(), []*sam.Record{reads[0], reads[2], reads[3]})
	expect.EQ(t, filtered.Offsets(), []int{offsets[0], offsets[2], offsets[3]})
	expect.EQ(t, ev.ReadCount(), 5)

	ref, err := reference.New(strings.NewReader(">chr1\nACGTACGTACGTAC\n"))
	assert.NoError(t, err)
	w, err := reference.NewWindow(ref, "chr1", 10, 2)
	assert.NoError(t, err)
	expect.False(t, ev.HasReferenceWindow())
	ev.SetReferenceWindow(w)
	expect.True(t, ev.HasReferenceWindow())
	expect.EQ(t, ev.RefBase(), byte('G'))
	expect.EQ(t, ev.WithoutZeroQualityReads().ReferenceWindow(), w)
}

func TestParseLoc(t *testing.T) {
	tests := []struct {
		in      string
		want    locus.Loc
		wantErr bool
	}{
		{"chr1:12345", locus.Loc{RefName: "chr1", Start: 12345}, false},
		{"HLA-A*01:01:01:01:7", locus.Loc{RefName: "HLA-A*01:01:01:01", Start: 7}, false},
		{"chr1", locus.Loc{}, true},
		{":5", locus.Loc{}, true},
		{"chr1:0", locus.Loc{}, true},
		{"chr1:x", locus.Loc{}, true},
	}
	for _, test := range tests {
		got, err := locus.ParseLoc(test.in)
		if test.wantErr {
			expect.NotNil(t, err, "input %q", test.in)
			continue
		}
		assert.NoError(t, err)
		expect.EQ(t, got, test.want)
		expect.EQ(t, got.String(), test.in)
	}
}

func mustEvidence(t *testing.T, loc locus.Loc, reads []*sam.Record, offsets []int) *locus.Evidence {
	ev, err := locus.NewEvidence(loc, reads, offsets)
	assert.NoError(t, err)
	return ev
}

func pickOffsets(reads []*sam.Record, offsets []int, picked []*sam.Record) []int {
	result := make([]int, 0, len(picked))
	for _, p := range picked {
		for i, r := range reads {
			if r == p {
				result = append(result, offsets[i])
			}
		}
	}
	return result
}

type sliceReader struct {
	recs []*sam.Record
}

func (r *sliceReader) Read() (*sam.Record, error) {
	if len(r.recs) == 0 {
		return nil, io.EOF
	}
	rec := r.recs[0]
	r.recs = r.recs[1:]
	return rec, nil
}

func TestGather(t *testing.T) {
	chr1, err := sam.NewReference("chr1", "", "", 100, nil, nil)
	assert.NoError(t, err)
	ref, err := reference.New(strings.NewReader(">chr1\n" + strings.Repeat("ACGTTGCA", 12) + "ACGT\n"))
	assert.NoError(t, err)

	r1 := &sam.Record{
		Name:  "r1",
		Ref:   chr1,
		Pos:   9,
		MapQ:  60,
		Cigar: []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 5)},
		Seq:   sam.NewSeq([]byte("ACGTA")),
	}
	r2 := &sam.Record{
		Name: "r2",
		Ref:  chr1,
		Pos:  8,
		MapQ: 0,
		Cigar: []sam.CigarOp{
			sam.NewCigarOp(sam.CigarSoftClipped, 2),
			sam.NewCigarOp(sam.CigarMatch, 3),
			sam.NewCigarOp(sam.CigarDeletion, 2),
			sam.NewCigarOp(sam.CigarMatch, 3),
		},
		Seq: sam.NewSeq([]byte("GGTTACCA")),
	}
	r3 := &sam.Record{
		Name:  "r3",
		Ref:   chr1,
		Pos:   10,
		MapQ:  60,
		Flags: sam.Duplicate,
		Cigar: []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 5)},
		Seq:   sam.NewSeq([]byte("TTTTT")),
	}
	r4 := &sam.Record{
		Name: "r4",
		Ref:  chr1,
		Pos:  12,
		MapQ: 60,
		Cigar: []sam.CigarOp{
			sam.NewCigarOp(sam.CigarMatch, 1),
			sam.NewCigarOp(sam.CigarInsertion, 2),
			sam.NewCigarOp(sam.CigarMatch, 2),
		},
		Seq: sam.NewSeq([]byte("AGGCT")),
	}
	unmapped := &sam.Record{Name: "u", Ref: nil, Pos: -1, Flags: sam.Unmapped}

	sites := []locus.Loc{
		{RefName: "chr1", Start: 11},
		{RefName: "chr1", Start: 13},
		{RefName: "chr1", Start: 16},
		{RefName: "chr1", Start: 90},
	}
	opts := locus.DefaultGatherOpts
	opts.Ref = ref
	opts.WindowPad = 2
	evidence, err := locus.Gather(&sliceReader{recs: []*sam.Record{r1, r2, r3, unmapped, r4}}, sites, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(evidence), len(sites))

	tests := []struct {
		reads   []*sam.Record
		offsets []int
	}{
		{[]*sam.Record{r1, r2}, []int{1, 4}},
		{[]*sam.Record{r1, r4}, []int{3, 0}},
		{[]*sam.Record{r2}, []int{7}},
		{[]*sam.Record{}, []int{}},
	}
	for i, test := range tests {
		ev := evidence[i]
		expect.EQ(t, ev.Loc(), sites[i])
		expect.True(t, ev.HasReads())
		expect.EQ(t, ev.Reads(), test.reads, "site %s", sites[i])
		expect.EQ(t, ev.Offsets(), test.offsets, "site %s", sites[i])
		expect.True(t, ev.HasReferenceWindow())
	}
	// ACGTTGCA repeated: 0-based position 10 is 'G', 12 is 'T'.
	expect.EQ(t, evidence[0].RefBase(), byte('G'))
	expect.EQ(t, evidence[1].RefBase(), byte('T'))

	_, err = locus.Gather(&sliceReader{}, []locus.Loc{{RefName: "chr1", Start: 0}}, opts)
	expect.NotNil(t, err)
	opts.Ref = ref
	_, err = locus.Gather(&sliceReader{}, []locus.Loc{{RefName: "chrUn", Start: 3}}, opts)
	expect.NotNil(t, err)
}
