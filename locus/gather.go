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
	"io"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varfilter/reference"
	"github.com/pkg/errors"
)

// RecordReader is the subset of *bam.Reader used by Gather.
type RecordReader interface {
	// Read returns the next record, or io.EOF at the end of the stream.
	Read() (*sam.Record, error)
}

// GatherOpts configures Gather.
type GatherOpts struct {
	// FlagExclude drops reads with a FLAG bit intersecting this value.
	FlagExclude int
	// MinMapQ drops reads with MAPQ below this level.  Zero-MAPQ reads are
	// kept by default; filters decide whether to use them.
	MinMapQ int
	// Ref, if non-nil, is used to attach a reference window to every
	// Evidence.
	Ref reference.Reference
	// WindowPad is the number of reference bases kept on each side of the
	// locus.
	WindowPad int
}

// DefaultGatherOpts are the default Gather options.
var DefaultGatherOpts = GatherOpts{
	FlagExclude: 0xf00,
	MinMapQ:     0,
	WindowPad:   10,
}

// siteKey orders sites by contig name, then position.  idx disambiguates
// repeated sites.
type siteKey struct {
	refName string
	pos0    PosType
	idx     int
}

// Compare implements llrb.Comparable.
func (k siteKey) Compare(c llrb.Comparable) int {
	k2 := c.(siteKey)
	if k.refName != k2.refName {
		if k.refName < k2.refName {
			return -1
		}
		return 1
	}
	if diff := int(k.pos0) - int(k2.pos0); diff != 0 {
		return diff
	}
	return k.idx - k2.idx
}

// Gather reads every record from r and returns one Evidence per site, in
// site order.  Records need not be sorted.  A read contributes to a site iff
// it has an aligned (M/=/X) base there; reads with a deletion or skip at the
// site are left out, as are unmapped and filtered reads.
func Gather(r RecordReader, sites []Loc, opts GatherOpts) ([]*Evidence, error) {
	var index llrb.Tree
	evidence := make([]*Evidence, len(sites))
	for i, site := range sites {
		if site.Start <= 0 {
			return nil, errors.Errorf("Gather: invalid site %s", site)
		}
		index.Insert(siteKey{refName: site.RefName, pos0: site.Start0(), idx: i})
		evidence[i] = &Evidence{
			loc:     site,
			reads:   []*sam.Record{},
			offsets: []int{},
		}
	}

	var (
		overlaps []int
		targets  []PosType
		offsets  []int
		nRecord  int
		nUsed    int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Gather")
		}
		nRecord++
		if rec.Ref == nil || rec.Pos < 0 || rec.Flags&sam.Unmapped != 0 {
			continue
		}
		if int(rec.Flags)&opts.FlagExclude != 0 || int(rec.MapQ) < opts.MinMapQ {
			continue
		}
		overlaps = overlaps[:0]
		targets = targets[:0]
		refName := rec.Ref.Name()
		index.DoRange(func(c llrb.Comparable) bool {
			k := c.(siteKey)
			overlaps = append(overlaps, k.idx)
			targets = append(targets, k.pos0)
			return false
		}, siteKey{refName: refName, pos0: PosType(rec.Pos), idx: -1},
			siteKey{refName: refName, pos0: PosType(rec.End()), idx: -1})
		if len(overlaps) == 0 {
			continue
		}
		if offsets, err = alignOffsets(rec, targets, offsets); err != nil {
			return nil, err
		}
		used := false
		for i, siteIdx := range overlaps {
			if offsets[i] < 0 {
				continue
			}
			ev := evidence[siteIdx]
			ev.reads = append(ev.reads, rec)
			ev.offsets = append(ev.offsets, offsets[i])
			used = true
		}
		if used {
			nUsed++
		}
	}

	if opts.Ref != nil {
		for _, ev := range evidence {
			w, err := reference.NewWindow(opts.Ref, ev.loc.RefName, int(ev.loc.Start0()), opts.WindowPad)
			if err != nil {
				return nil, errors.Wrapf(err, "Gather: site %s", ev.loc)
			}
			ev.window = w
		}
	}
	log.Debug.Printf("locus.Gather: %d sites, %d records read, %d used", len(sites), nRecord, nUsed)
	return evidence, nil
}

// alignOffsets computes, for each 0-based reference position in targets
// (ascending, inside the read's alignment span), the read position aligned
// to it, or -1 when the read has a deletion or skip there.  result is reused
// when it has enough capacity.
func alignOffsets(rec *sam.Record, targets []PosType, result []int) ([]int, error) {
	if cap(result) < len(targets) {
		result = make([]int, len(targets))
	}
	result = result[:len(targets)]
	posInRef := PosType(rec.Pos)
	posInRead := 0
	ti := 0
	for _, co := range rec.Cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			nextPosInRef := posInRef + PosType(cLen)
			for ; ti < len(targets) && targets[ti] < nextPosInRef; ti++ {
				result[ti] = posInRead + int(targets[ti]-posInRef)
			}
			posInRef = nextPosInRef
			posInRead += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped:
			posInRead += cLen
		case sam.CigarDeletion, sam.CigarSkipped:
			nextPosInRef := posInRef + PosType(cLen)
			for ; ti < len(targets) && targets[ti] < nextPosInRef; ti++ {
				result[ti] = -1
			}
			posInRef = nextPosInRef
		case sam.CigarHardClipped, sam.CigarPadded:
			// do nothing
		default:
			return nil, errors.Errorf("alignOffsets: unexpected CIGAR code %v in read %s", co, rec.Name)
		}
	}
	for ; ti < len(targets); ti++ {
		result[ti] = -1
	}
	return result, nil
}
