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
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/willf/bitset"
	"golang.org/x/exp/rand"
)

// NewRand returns a generator for DownsampleToCoverage.  Generators are not
// safe for concurrent use; give each worker (or each locus) its own.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Seed derives a per-locus seed from a run-wide seed, so that downsampling
// results don't depend on which worker processes a locus, or in which order.
func Seed(loc Loc, runSeed uint64) uint64 {
	buf := make([]byte, len(loc.RefName)+4)
	copy(buf, loc.RefName)
	binary.LittleEndian.PutUint32(buf[len(loc.RefName):], uint32(loc.Start))
	return farm.Hash64WithSeed(buf, runSeed)
}

// DownsampleToCoverage keeps a uniformly random subset of coverage reads,
// preserving their relative order, and drops the rest along with their
// offsets.  It is a no-op when ReadCount() <= coverage.
func (e *Evidence) DownsampleToCoverage(coverage int, rng *rand.Rand) {
	if coverage < 0 {
		log.Panicf("Evidence.DownsampleToCoverage: negative coverage %d", coverage)
	}
	nRead := e.ReadCount()
	if nRead <= coverage {
		return
	}
	var keep *bitset.BitSet
	if coverage <= nRead/2 {
		keep = rejectionSample(nRead, coverage, rng)
	} else {
		keep = partialShuffleSample(nRead, coverage, rng)
	}
	reads := make([]*sam.Record, 0, coverage)
	offsets := make([]int, 0, coverage)
	for i, ok := keep.NextSet(0); ok; i, ok = keep.NextSet(i + 1) {
		reads = append(reads, e.reads[i])
		offsets = append(offsets, e.offsets[i])
	}
	e.reads = reads
	e.offsets = offsets
}

// rejectionSample draws indexes in [0, n) until k distinct ones have been
// seen.  Expected draws stay below 2k as long as k <= n/2.
func rejectionSample(n, k int, rng *rand.Rand) *bitset.BitSet {
	chosen := bitset.New(uint(n))
	for nChosen := 0; nChosen < k; {
		i := uint(rng.Intn(n))
		if !chosen.Test(i) {
			chosen.Set(i)
			nChosen++
		}
	}
	return chosen
}

// partialShuffleSample runs the first k steps of a Fisher-Yates shuffle of
// [0, n) and returns the k selected indexes.
func partialShuffleSample(n, k int, rng *rand.Rand) *bitset.BitSet {
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	chosen := bitset.New(uint(n))
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		idxs[i], idxs[j] = idxs[j], idxs[i]
		chosen.Set(uint(idxs[i]))
	}
	return chosen
}
