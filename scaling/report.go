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
	"fmt"
	"io"
)

// Result is the aggregate outcome of one mutation-type job.
type Result struct {
	NSites      int
	ProbSum     float64
	ScaleFactor float64
}

// writeReport emits the human-readable summary block for one job.  The
// format is deterministic; prob_sum and scale_factor are rendered in
// scientific notation with 3 significant digits.  Reporting is purely
// observational and never affects downstream computation.
func writeReport(w io.Writer, jobIdx int, job Job, genomewideMu float64, res Result) error {
	_, err := fmt.Fprintf(w,
		"Mutation type %d:\n"+
			"  pred_file:     %s\n"+
			"  genomewide_mu: %g\n"+
			"  m_proportion:  %g\n"+
			"  g_proportion:  %g\n"+
			"  n_sites:       %d\n"+
			"  prob_sum:      %.2e\n"+
			"  scale_factor:  %.2e\n",
		jobIdx, job.PredPath, genomewideMu, job.MProportion, job.GProportion,
		res.NSites, res.ProbSum, res.ScaleFactor)
	return err
}
