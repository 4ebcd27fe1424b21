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
package reference

import (
	"github.com/pkg/errors"
)

// Window is a cached stretch of one reference sequence, normally centred on
// the locus whose evidence it accompanies.
type Window struct {
	// SeqName is the reference sequence the window was cut from.
	SeqName string
	// Start0 is the 0-based position of Bases[0].
	Start0 int
	// Bases holds the uppercase reference bases in [Start0, Start0+len(Bases)).
	Bases string
}

// NewWindow returns the window [pos0-pad, pos0+pad+1) of seqName, clipped to
// the sequence boundaries.  pos0 itself must lie inside the sequence.
func NewWindow(ref Reference, seqName string, pos0, pad int) (*Window, error) {
	if pad < 0 {
		return nil, errors.Errorf("reference.NewWindow: negative padding %d", pad)
	}
	seqLen, err := ref.Len(seqName)
	if err != nil {
		return nil, err
	}
	if pos0 < 0 || pos0 >= seqLen {
		return nil, errors.Errorf("reference.NewWindow: position %d outside %s (length %d)", pos0, seqName, seqLen)
	}
	start := pos0 - pad
	if start < 0 {
		start = 0
	}
	end := pos0 + pad + 1
	if end > seqLen {
		end = seqLen
	}
	bases, err := ref.Get(seqName, start, end)
	if err != nil {
		return nil, err
	}
	return &Window{SeqName: seqName, Start0: start, Bases: bases}, nil
}

// Contains returns true iff the 0-based position pos0 is inside the window.
func (w *Window) Contains(pos0 int) bool {
	return pos0 >= w.Start0 && pos0 < w.Start0+len(w.Bases)
}

// Base returns the reference base at the 0-based position pos0, or 'N' when
// pos0 is outside the window.
func (w *Window) Base(pos0 int) byte {
	if !w.Contains(pos0) {
		return 'N'
	}
	return w.Bases[pos0-w.Start0]
}
