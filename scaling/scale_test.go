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
	"testing"

	"github.com/grailbio/mutscale/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleFactor(t *testing.T) {
	// 3 sites of score 0.1 each, mu=1.2e-8, m=0.4, g=0.5:
	// (1.2e-8 * 3 * 0.4 / 0.5) / 0.3 = 9.6e-8.
	factor, err := ScaleFactor(1.2e-8, 0.4, 0.5, 3, 0.3)
	require.NoError(t, err)
	assert.InEpsilon(t, 9.6e-8, factor, 1e-12)
}

func TestScaleFactorDomainErrors(t *testing.T) {
	_, err := ScaleFactor(1.2e-8, 0.4, 0, 3, 0.3)
	require.Error(t, err)
	_, ok := err.(*DomainError)
	assert.True(t, ok)

	_, err = ScaleFactor(1.2e-8, 0.4, 0.5, 0, 0)
	require.Error(t, err)
	_, ok = err.(*DomainError)
	assert.True(t, ok)
}

func TestScaleFactorMonotonic(t *testing.T) {
	base, err := ScaleFactor(1.2e-8, 0.4, 0.5, 3, 0.3)
	require.NoError(t, err)

	up, err := ScaleFactor(2.4e-8, 0.4, 0.5, 3, 0.3)
	require.NoError(t, err)
	assert.True(t, up > base)

	up, err = ScaleFactor(1.2e-8, 0.8, 0.5, 3, 0.3)
	require.NoError(t, err)
	assert.True(t, up > base)

	down, err := ScaleFactor(1.2e-8, 0.4, 0.9, 3, 0.3)
	require.NoError(t, err)
	assert.True(t, down < base)

	down, err = ScaleFactor(1.2e-8, 0.4, 0.5, 3, 0.6)
	require.NoError(t, err)
	assert.True(t, down < base)
}

func testTable() *Table {
	return &Table{
		Path: "test.tsv",
		Recs: []Record{
			{Chrom: "chr1", Start: 100, End: 101, Strand: '+', Prob: [NClass]float64{0.9, 0.05, 0.03, 0.02}},
			{Chrom: "chr1", Start: 200, End: 201, Strand: '-', Prob: [NClass]float64{0.9, 0.04, 0.04, 0.02}},
			{Chrom: "chr2", Start: 50, End: 51, Strand: '.', Prob: [NClass]float64{0.9, 0.02, 0.03, 0.05}},
		},
	}
}

func TestRescaleIdentity(t *testing.T) {
	table := testTable()
	scaled := Rescale(table, 1.0)
	require.Equal(t, len(table.Recs), len(scaled.Recs))
	for i := range table.Recs {
		for class := 1; class < NClass; class++ {
			assert.Equal(t, table.Recs[i].Prob[class], scaled.Recs[i].Prob[class])
		}
		assert.InDelta(t, table.Recs[i].Prob[0], scaled.Recs[i].Prob[0], 1e-15)
	}
}

func TestRescaleComplement(t *testing.T) {
	table := testTable()
	for _, factor := range []float64{0.0, 1e-7, 0.5, 1.0, 5.0, 20.0} {
		scaled := Rescale(table, factor)
		for i, rec := range scaled.Recs {
			rowSum := rec.Prob[0] + rec.Prob[1] + rec.Prob[2] + rec.Prob[3]
			assert.InDelta(t, 1.0, rowSum, 1e-12)
			for class := 1; class < NClass; class++ {
				assert.InDelta(t, table.Recs[i].Prob[class]*factor, rec.Prob[class], 1e-15)
			}
		}
	}
	// A large factor legitimately drives prob0 negative; no clamping.
	scaled := Rescale(table, 20.0)
	for _, rec := range scaled.Recs {
		assert.True(t, rec.Prob[0] < 0)
	}
	// Originals are untouched.
	assert.Equal(t, 0.9, table.Recs[0].Prob[0])
}

func TestAggregate(t *testing.T) {
	nSites, probSum := Aggregate(nil)
	assert.Equal(t, 0, nSites)
	assert.Equal(t, 0.0, probSum)

	const n = 7
	const score = 0.125
	sites := make([]ScoredSite, n)
	for i := range sites {
		sites[i] = ScoredSite{Chrom: "chr1", Start: interval.PosType(i), End: interval.PosType(i + 1), Name: ".", Score: score}
	}
	nSites, probSum = Aggregate(sites)
	assert.Equal(t, n, nSites)
	assert.InDelta(t, n*score, probSum, 1e-12)
}

func TestNewScoredSites(t *testing.T) {
	sites := NewScoredSites(testTable())
	require.Equal(t, 3, len(sites))
	for i, s := range sites {
		assert.Equal(t, ".", s.Name)
		assert.InDelta(t, 0.1, s.Score, 1e-12, "site %d", i)
	}
	assert.Equal(t, interval.PosType(100), sites[0].Start)
	assert.Equal(t, byte('-'), sites[1].Strand)
}

func TestFilterScored(t *testing.T) {
	sites := NewScoredSites(testTable())

	// Nil union: identity pass.
	assert.Equal(t, len(sites), len(FilterScored(sites, nil)))

	u, err := interval.NewBEDUnionFromEntries(
		[]interval.Entry{
			// Two overlapping raw intervals both covering chr1:100; the site
			// must still be kept exactly once.
			{ChrName: "chr1", Start0: 50, End: 150},
			{ChrName: "chr1", Start0: 90, End: 120},
		},
		interval.NewBEDOpts{},
	)
	require.NoError(t, err)
	kept := FilterScored(sites, &u)
	require.Equal(t, 1, len(kept))
	assert.Equal(t, interval.PosType(100), kept[0].Start)

	nSites, probSum := Aggregate(kept)
	assert.Equal(t, 1, nSites)
	assert.InDelta(t, 0.1, probSum, 1e-12)
}
