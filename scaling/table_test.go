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
package scaling

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "chrom\tstart\tend\tstrand\tprob0\tprob1\tprob2\tprob3\n"

func TestReadTable(t *testing.T) {
	in := testHeader +
		"chr1\t100\t101\t+\t0.9\t0.05\t0.03\t0.02\n" +
		"chrX\t5\t6\t.\t0.25\t0.25\t0.25\t0.25\n"
	table, err := ReadTable(strings.NewReader(in), "test.tsv")
	require.NoError(t, err)
	require.Equal(t, 2, len(table.Recs))
	assert.Equal(t, Record{
		Chrom:  "chr1",
		Start:  100,
		End:    101,
		Strand: '+',
		Prob:   [NClass]float64{0.9, 0.05, 0.03, 0.02},
	}, table.Recs[0])
	assert.Equal(t, "chrX", table.Recs[1].Chrom)
	assert.Equal(t, byte('.'), table.Recs[1].Strand)
}

func TestReadTableExtraColumns(t *testing.T) {
	// Trailing columns beyond prob3 are ignored.
	in := "chrom\tstart\tend\tstrand\tprob0\tprob1\tprob2\tprob3\tmut_type\n" +
		"chr1\t100\t101\t+\t0.9\t0.05\t0.03\t0.02\t0\n"
	table, err := ReadTable(strings.NewReader(in), "test.tsv")
	require.NoError(t, err)
	assert.Equal(t, 1, len(table.Recs))
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing columns", "chrom\tstart\tend\n" + "chr1\t100\t101\n"},
		{"misnamed column", "chrom\tstart\tend\tstrand\tp0\tp1\tp2\tp3\n" + "chr1\t100\t101\t+\t0.9\t0.05\t0.03\t0.02\n"},
		{"unparsable coordinate", testHeader + "chr1\tx\t101\t+\t0.9\t0.05\t0.03\t0.02\n"},
		{"negative start", testHeader + "chr1\t-5\t101\t+\t0.9\t0.05\t0.03\t0.02\n"},
		{"empty site", testHeader + "chr1\t101\t101\t+\t0.9\t0.05\t0.03\t0.02\n"},
		{"bad strand", testHeader + "chr1\t100\t101\tfwd\t0.9\t0.05\t0.03\t0.02\n"},
		{"probability out of range", testHeader + "chr1\t100\t101\t+\t1.9\t-0.5\t-0.2\t-0.2\n"},
		{"probabilities not a distribution", testHeader + "chr1\t100\t101\t+\t0.5\t0.05\t0.03\t0.02\n"},
	}
	for _, tt := range tests {
		_, err := ReadTable(strings.NewReader(tt.in), "test.tsv")
		require.Error(t, err, tt.name)
		_, ok := err.(*FormatError)
		assert.True(t, ok, tt.name)
	}
}

func TestScaledPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"preds.tsv", "preds.scaled.tsv"},
		{"preds.tsv.gz", "preds.scaled.tsv.gz"},
		{"dir/preds.tsv.bgz", "dir/preds.scaled.tsv.bgz"},
		{"preds", "preds.scaled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScaledPath(tt.path))
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "scaling_table_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	ctx := context.Background()
	table := &Table{
		Path: "orig.tsv",
		Recs: []Record{
			{Chrom: "chr1", Start: 100, End: 101, Strand: '+', Prob: [NClass]float64{0.9, 0.05, 0.03, 0.02}},
			{Chrom: "chr2", Start: 7, End: 8, Strand: '-', Prob: [NClass]float64{0.25, 0.25, 0.25, 0.25}},
		},
	}
	outPath := filepath.Join(tempDir, "out.tsv")
	require.NoError(t, table.Write(ctx, outPath, 1))

	got, err := ReadTableFromPath(ctx, outPath)
	require.NoError(t, err)
	require.Equal(t, len(table.Recs), len(got.Recs))
	for i := range table.Recs {
		assert.Equal(t, table.Recs[i].Chrom, got.Recs[i].Chrom)
		assert.Equal(t, table.Recs[i].Start, got.Recs[i].Start)
		assert.Equal(t, table.Recs[i].Strand, got.Recs[i].Strand)
		for class := 0; class < NClass; class++ {
			assert.InDelta(t, table.Recs[i].Prob[class], got.Recs[i].Prob[class], 1e-4)
		}
	}
}
