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

// ScaleFactor combines the genome-wide per-base per-generation mutation rate
// with one mutation type's externally known proportions and the aggregate
// statistics of its evaluated region:
//
//   factor = (genomewideMu * nSites * mProportion / gProportion) / probSum
//
// The numerator is the expected absolute number of mutation events of this
// type over the evaluated sites; the denominator is the predicted probability
// mass over the same sites; the ratio converts the model's relative output
// into an absolute rate.  gProportion == 0 and probSum == 0 raise a
// DomainError instead of propagating Inf/NaN.
func ScaleFactor(genomewideMu, mProportion, gProportion float64, nSites int, probSum float64) (float64, error) {
	if gProportion == 0 {
		return 0, &DomainError{Msg: "g_proportion is zero, scale factor undefined"}
	}
	if probSum == 0 {
		return 0, &DomainError{Msg: "prob_sum is zero, scale factor undefined"}
	}
	return genomewideMu * float64(nSites) * mProportion / gProportion / probSum, nil
}

// Rescale returns a copy of t in which every substitution probability is
// multiplied by factor and prob0 is recomputed as the complement of the
// rescaled substitution probabilities, so each row sums to 1 again.  No
// clamping is applied: a large factor can legitimately drive prob0 negative,
// and that state is preserved for the caller to detect.
func Rescale(t *Table, factor float64) *Table {
	recs := make([]Record, len(t.Recs))
	for i, rec := range t.Recs {
		p1 := rec.Prob[1] * factor
		p2 := rec.Prob[2] * factor
		p3 := rec.Prob[3] * factor
		rec.Prob = [NClass]float64{1 - (p1 + p2 + p3), p1, p2, p3}
		recs[i] = rec
	}
	return &Table{Path: t.Path, Recs: recs}
}
