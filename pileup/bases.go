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
package pileup

import (
	"fmt"

	"github.com/grailbio/hts/sam"
)

// Seq8At returns the .bam seq nibble at position pos of seq.
func Seq8At(seq sam.Seq, pos int) byte {
	doublet := byte(seq.Seq[pos>>1])
	if pos&1 == 0 {
		return doublet >> 4
	}
	return doublet & 0xf
}

// Bases returns the pileup string at a single locus: one uppercase ASCII base
// per read, in read order, where offsets[i] is the position within reads[i]
// aligned to the locus.  '=' seq entries are rendered as refBase.
func Bases(reads []*sam.Record, offsets []int, refBase byte) (string, error) {
	if len(reads) != len(offsets) {
		return "", fmt.Errorf("pileup.Bases: %d reads but %d offsets", len(reads), len(offsets))
	}
	refBase = UpperBase(refBase)
	buf := make([]byte, len(reads))
	for i, r := range reads {
		offset := offsets[i]
		if offset < 0 || offset >= r.Seq.Length {
			return "", fmt.Errorf("pileup.Bases: offset %d out of range for read %s of length %d", offset, r.Name, r.Seq.Length)
		}
		b := Seq8ToASCIITable[Seq8At(r.Seq, offset)]
		if b == '=' {
			b = refBase
		}
		buf[i] = b
	}
	return string(buf), nil
}

// BaseCounts returns the number of A, C, G, T and other (X) letters in bases,
// ignoring case.
func BaseCounts(bases string) (counts [NBaseEnum]int) {
	for i := 0; i < len(bases); i++ {
		counts[ASCIIToEnumTable[bases[i]]]++
	}
	return
}
