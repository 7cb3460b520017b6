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
	"github.com/grailbio/mutscale/interval"
	"gonum.org/v1/gonum/floats"
)

// ScoredSite is the derived, read-only view of one prediction record used by
// the region-restriction and aggregation stages: a BED-style interval whose
// score is the total predicted probability that the site carries any
// non-reference allele.
type ScoredSite struct {
	Chrom  string
	Start  interval.PosType
	End    interval.PosType
	Name   string // placeholder, always "."
	Score  float64
	Strand byte
}

// NewScoredSites converts a prediction table to its scored-interval view, in
// source order.  No filtering, no deduplication.
func NewScoredSites(t *Table) []ScoredSite {
	sites := make([]ScoredSite, len(t.Recs))
	for i, rec := range t.Recs {
		sites[i] = ScoredSite{
			Chrom:  rec.Chrom,
			Start:  interval.PosType(rec.Start),
			End:    interval.PosType(rec.End),
			Name:   ".",
			Score:  rec.Prob[1] + rec.Prob[2] + rec.Prob[3],
			Strand: rec.Strand,
		}
	}
	return sites
}

// FilterScored returns the subsequence of sites overlapping the benchmark
// region union, preserving source order.  Since the union merges overlapping
// benchmark intervals, a site contributes at most once no matter how many raw
// benchmark intervals cover it.  A nil union means no region restriction was
// requested, and the input is returned unchanged.
//
// regions' search state is mutated by the queries; concurrent callers must
// pass distinct Clones.
func FilterScored(sites []ScoredSite, regions *interval.BEDUnion) []ScoredSite {
	if regions == nil {
		return sites
	}
	kept := make([]ScoredSite, 0, len(sites))
	for _, s := range sites {
		if regions.OverlapsByName(s.Chrom, s.Start, s.End) {
			kept = append(kept, s)
		}
	}
	return kept
}

// Aggregate reduces a scored-site sequence to its site count and total
// predicted probability mass.  An empty sequence aggregates to (0, 0).
func Aggregate(sites []ScoredSite) (nSites int, probSum float64) {
	scores := make([]float64, len(sites))
	for i, s := range sites {
		scores[i] = s.Score
	}
	return len(sites), floats.Sum(scores)
}
