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
	"math"
	"strconv"
	"strings"
)

// PosType is the integer type used to represent genomic positions.
type PosType = int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Loc is a single genome coordinate.
type Loc struct {
	// RefName is the contig name.
	RefName string
	// Start is the 1-based position on RefName.
	Start PosType
}

// Start0 returns the 0-based position of l.
func (l Loc) Start0() PosType {
	return l.Start - 1
}

// String renders l as "<contig>:<1-based pos>".
func (l Loc) String() string {
	return fmt.Sprintf("%s:%d", l.RefName, l.Start)
}

// ParseLoc parses a locus string of the form
//   [contig ID]:[1-based pos]
// The contig ID may itself contain colons; the last one separates the
// position.
func ParseLoc(s string) (l Loc, err error) {
	colonPos := strings.LastIndexByte(s, ':')
	if colonPos == -1 {
		err = fmt.Errorf("locus.ParseLoc: missing position in %q", s)
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("locus.ParseLoc: empty contig ID in %q", s)
		return
	}
	var pos1 int64
	if pos1, err = strconv.ParseInt(s[colonPos+1:], 10, 32); err != nil {
		err = fmt.Errorf("locus.ParseLoc: %v", err)
		return
	}
	if pos1 <= 0 {
		err = fmt.Errorf("locus.ParseLoc: position %v out of range", s[colonPos+1:])
		return
	}
	l.RefName = s[:colonPos]
	l.Start = PosType(pos1)
	return
}
