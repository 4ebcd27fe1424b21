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
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/varfilter/locus"
	"github.com/pkg/errors"
)

// callRow is one line of a calls file:
//   CHROM  POS (1-based)  GENOTYPE  CONFIDENCE
// Lines starting with '#' are ignored.
type callRow struct {
	Chrom      string
	Pos        int
	Genotype   string
	Confidence float64
}

// ReadCalls reads prior genotype calls from r.
func ReadCalls(r io.Reader) ([]Call, error) {
	scanner := tsv.NewReader(bufio.NewReaderSize(r, 64<<10))
	scanner.Comment = '#'
	var (
		calls []Call
		row   callRow
	)
	for {
		if err := scanner.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "ReadCalls")
		}
		if row.Pos <= 0 || row.Pos > locus.PosTypeMax {
			return nil, errors.Errorf("ReadCalls: position %d out of range at %s", row.Pos, row.Chrom)
		}
		calls = append(calls, Call{
			Loc:        locus.Loc{RefName: row.Chrom, Start: locus.PosType(row.Pos)},
			Genotype:   row.Genotype,
			Confidence: row.Confidence,
		})
	}
	return calls, nil
}

// LoadCalls reads a (possibly compressed) calls file.
func LoadCalls(ctx context.Context, path string) (calls []Call, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if calls, err = ReadCalls(reader); err != nil {
		err = errors.Wrapf(err, "LoadCalls: %s", path)
	}
	return
}
