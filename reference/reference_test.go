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
package reference_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/varfilter/reference"
)

const fastaData = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "acgt\n" + "ACGT\n"

func TestGet(t *testing.T) {
	ref, err := reference.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	tests := []struct {
		seq        string
		start, end int
		want       string
		wantErr    bool
	}{
		{"seq1", 1, 2, "C", false},
		{"seq1", 1, 6, "CGTAC", false},
		{"seq1", 0, 12, "ACGTACGTACGT", false},
		{"seq2", 0, 8, "ACGTACGT", false},
		{"seq0", 0, 1, "", true},
		{"seq1", 10, 13, "", true},
		{"seq1", 4, 3, "", true},
	}
	for _, test := range tests {
		got, err := ref.Get(test.seq, test.start, test.end)
		if test.wantErr {
			expect.NotNil(t, err, "%+v", test)
			continue
		}
		assert.NoError(t, err)
		expect.EQ(t, got, test.want)
	}
	expect.EQ(t, ref.SeqNames(), []string{"seq1", "seq2"})
	n, err := ref.Len("seq2")
	assert.NoError(t, err)
	expect.EQ(t, n, 8)
}

func TestNewErrors(t *testing.T) {
	for _, data := range []string{
		"",
		"ACGT\n>seq1\nACGT\n",
		">seq1\nAC\n>seq1\nGT\n",
		">\nACGT\n",
	} {
		_, err := reference.New(strings.NewReader(data))
		expect.NotNil(t, err, "data %q", data)
	}
}

func TestWindow(t *testing.T) {
	ref, err := reference.New(strings.NewReader(fastaData))
	assert.NoError(t, err)

	w, err := reference.NewWindow(ref, "seq1", 5, 2)
	assert.NoError(t, err)
	expect.EQ(t, w.Start0, 3)
	expect.EQ(t, w.Bases, "TACGT")
	expect.EQ(t, w.Base(5), byte('C'))
	expect.EQ(t, w.Base(2), byte('N'))
	expect.False(t, w.Contains(8))

	// Clipped at both ends of the sequence.
	w, err = reference.NewWindow(ref, "seq2", 1, 10)
	assert.NoError(t, err)
	expect.EQ(t, w.Start0, 0)
	expect.EQ(t, w.Bases, "ACGTACGT")

	_, err = reference.NewWindow(ref, "seq2", 8, 1)
	expect.NotNil(t, err)
	_, err = reference.NewWindow(ref, "seq3", 0, 1)
	expect.NotNil(t, err)
}

func TestLoad(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	ctx := vcontext.Background()
	fapath := filepath.Join(tmpdir, "ref.fa")
	out, err := file.Create(ctx, fapath)
	assert.NoError(t, err)
	_, err = out.Writer(ctx).Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, out.Close(ctx))

	ref, err := reference.Load(ctx, fapath)
	assert.NoError(t, err)
	got, err := ref.Get("seq2", 2, 6)
	assert.NoError(t, err)
	expect.EQ(t, got, "GTAC")

	_, err = reference.Load(ctx, filepath.Join(tmpdir, "missing.fa"))
	expect.NotNil(t, err)
}
