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

/*
Given one prediction table per mutation type (TSVs with per-site class
probabilities emitted by an external classifier), mut-scale computes the
multiplicative factor that converts each table's relative probabilities into
absolute per-generation mutation rates, anchored to the externally known
genome-wide mutation rate and per-type mutation/site proportions.

An optional benchmark BED restricts which sites contribute to the
calibration aggregate; with -do-scaling, each table is also rewritten with
rescaled probabilities (prob0 recomputed as the complement, deliberately
without clamping).

Sample usage:
mut-scale \
    -benchmark-regions high-confidence.bed \
    -genomewide-mu 1.2e-8 \
    -m-proportions 0.33,0.21 \
    -g-proportions 0.5,0.5 \
    -do-scaling \
    typeA.tsv.gz typeB.tsv.gz

One report block is printed per mutation type, in input order:

Mutation type 0:
  pred_file:     typeA.tsv.gz
  genomewide_mu: 1.2e-08
  m_proportion:  0.33
  g_proportion:  0.5
  n_sites:       184245
  prob_sum:      8.31e+03
  scale_factor:  1.76e-07
*/
package main
