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

/*Package scaling calibrates per-site mutation-probability predictions into
  absolute per-generation mutation rates.

  The input is one prediction table per mutation type: a TSV with one row per
  genomic site carrying class probabilities prob0..prob3, where prob0 is the
  reference-allele probability and prob1..prob3 are the three possible
  substitutions.  For each table, the pipeline optionally restricts the sites
  to a benchmark (high-confidence) region set, sums the non-reference
  probability mass over the surviving sites, and combines that aggregate with
  the externally known genome-wide mutation rate and per-type mutation/site
  proportions to produce one multiplicative scale factor per mutation type.
  The factor can then be applied back to the full table, with prob0 recomputed
  as the complement of the rescaled substitution probabilities.
*/
package scaling
