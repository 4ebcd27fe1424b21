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

// Package reference provides access to reference-genome bases: an in-memory
// FASTA-backed Reference, and Window, a small cached slice of one contig
// around a locus of interest.
//
// FASTA data consists of a number of named sequences that may be
// interrupted by newlines, e.g.
//
// >chr7
// ACGTAC
// GAGGAC
// >chr8
// ACGT
//
// Sequence names are the stretch of characters immediately after '>', up to
// the first space.  Bases are stored uppercased.
package reference

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

const maxLineLen = 1024 * 1024 * 300 // 300 MB

// Reference is a set of named reference sequences.
type Reference interface {
	// Get returns the bases of the given sequence in the 0-based half-open
	// interval [start, end).  Get is thread-safe.
	Get(seqName string, start, end int) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (int, error)

	// SeqNames returns the names of all sequences, in the order of appearance
	// in the FASTA file.
	SeqNames() []string
}

type memReference struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all FASTA data from r into memory.
func New(r io.Reader) (Reference, error) {
	ref := &memReference{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLen)
	var (
		seqName string
		inSeq   bool
		seq     bytes.Buffer
	)
	flush := func() error {
		if !inSeq {
			if seq.Len() != 0 {
				return errors.Errorf("reference.New: bases before the first '>' line")
			}
			return nil
		}
		if _, ok := ref.seqs[seqName]; ok {
			return errors.Errorf("reference.New: duplicate sequence name %s", seqName)
		}
		ref.seqs[seqName] = string(bytes.ToUpper(seq.Bytes()))
		ref.seqNames = append(ref.seqNames, seqName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] != '>' {
			seq.Write(bytes.TrimRight(line, "\r"))
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		name := line[1:]
		if i := bytes.IndexByte(name, ' '); i >= 0 {
			name = name[:i]
		}
		if len(name) == 0 {
			return nil, errors.Errorf("reference.New: empty sequence name")
		}
		seqName = string(name)
		inSeq = true
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reference.New: couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(ref.seqNames) == 0 {
		return nil, errors.Errorf("reference.New: empty FASTA file")
	}
	return ref, nil
}

// Load reads a (possibly compressed) FASTA file into memory.
func Load(ctx context.Context, path string) (ref Reference, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if ref, err = New(reader); err != nil {
		err = errors.Wrapf(err, "reference.Load: %s", path)
	}
	return
}

// Get implements Reference.Get().
func (ref *memReference) Get(seqName string, start, end int) (string, error) {
	s, ok := ref.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	if start < 0 || end > len(s) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Reference.Len().
func (ref *memReference) Len(seqName string) (int, error) {
	s, ok := ref.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return len(s), nil
}

// SeqNames implements Reference.SeqNames().
func (ref *memReference) SeqNames() []string {
	return ref.seqNames
}
