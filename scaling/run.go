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
	"fmt"
	"io"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/mutscale/interval"
	"github.com/klauspost/compress/gzip"
)

// Job pairs one prediction file with the externally known constants of its
// mutation type.
type Job struct {
	PredPath    string
	MProportion float64
	GProportion float64
}

// Opts controls a calibration run.
type Opts struct {
	// BedPath restricts calibration to sites overlapping this benchmark BED.
	// Empty means no region restriction.
	BedPath string
	// OneBasedBed interprets BedPath coordinates as one-based [start, end].
	OneBasedBed bool
	// InvertBed calibrates against the complement of BedPath instead.
	InvertBed bool
	// GenomewideMu is the genome-wide per-base per-generation mutation rate.
	GenomewideMu float64
	// DoScaling additionally rewrites each prediction table with rescaled
	// probabilities, to <input>.scaled.<ext>.
	DoScaling bool
	// Parallelism caps the number of simultaneous calibration jobs;
	// 0 = runtime.NumCPU().
	Parallelism int
}

// DefaultOpts holds the default option values.
var DefaultOpts = Opts{
	BedPath:      "",
	OneBasedBed:  false,
	InvertBed:    false,
	GenomewideMu: 0,
	DoScaling:    false,
	Parallelism:  0,
}

type jobState struct {
	res   Result
	table *Table
	err   error
}

func loadRegions(ctx context.Context, opts *Opts) (regions *interval.BEDUnion, err error) {
	var in file.File
	if in, err = file.Open(ctx, opts.BedPath); err != nil {
		return nil, errors.E(err, "open benchmark regions:", opts.BedPath)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	switch fileio.DetermineType(opts.BedPath) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return nil, errors.E(err, "decompress benchmark regions:", opts.BedPath)
		}
	}
	u, err := interval.NewBEDUnion(reader, interval.NewBEDOpts{
		Invert:        opts.InvertBed,
		OneBasedInput: opts.OneBasedBed,
	})
	if err != nil {
		return nil, &FormatError{Path: opts.BedPath, Err: err}
	}
	return &u, nil
}

func runJob(ctx context.Context, job Job, regions *interval.BEDUnion, opts *Opts) (st jobState) {
	var table *Table
	if table, st.err = ReadTableFromPath(ctx, job.PredPath); st.err != nil {
		return
	}
	sites := FilterScored(NewScoredSites(table), regions)
	st.res.NSites, st.res.ProbSum = Aggregate(sites)
	st.res.ScaleFactor, st.err = ScaleFactor(
		opts.GenomewideMu, job.MProportion, job.GProportion, st.res.NSites, st.res.ProbSum)
	if st.err == nil && opts.DoScaling {
		table.Path = job.PredPath
		st.table = table
	}
	return
}

// Run executes one calibration job per prediction file, in input order, and
// writes one report block per successful job to reportW.  Jobs are
// independent; a failing job is reported and does not abort the rest, but a
// nonzero number of failed jobs yields a non-nil error.  When opts.DoScaling
// is set, each job's rescaled table is written after (never before) its
// report block.
//
// The prediction-file and proportion lists must have equal nonzero lengths;
// a mismatch is a ConfigError, raised before any file is opened.
func Run(ctx context.Context, predPaths []string, mProportions, gProportions []float64, opts *Opts, reportW io.Writer) error {
	if opts == nil {
		opts = &DefaultOpts
	}
	nJob := len(predPaths)
	if nJob == 0 {
		return &ConfigError{Msg: "no prediction files"}
	}
	if len(mProportions) != nJob {
		return &ConfigError{Msg: fmt.Sprintf("%d prediction file(s) but %d m_proportion(s)", nJob, len(mProportions))}
	}
	if len(gProportions) != nJob {
		return &ConfigError{Msg: fmt.Sprintf("%d prediction file(s) but %d g_proportion(s)", nJob, len(gProportions))}
	}
	jobs := make([]Job, nJob)
	for i := range jobs {
		jobs[i] = Job{
			PredPath:    predPaths[i],
			MProportion: mProportions[i],
			GProportion: gProportions[i],
		}
	}

	var regions *interval.BEDUnion
	if opts.BedPath != "" {
		var err error
		if regions, err = loadRegions(ctx, opts); err != nil {
			return err
		}
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > nJob {
		parallelism = nJob
	}

	log.Printf("scaling.Run: starting %d calibration job(s) (%d at a time)", nJob, parallelism)
	states := make([]jobState, nJob)
	// The closure handles its own per-job errors, so Each cannot fail.
	_ = traverse.Each(parallelism, func(workerIdx int) error {
		startIdx := (workerIdx * nJob) / parallelism
		endIdx := ((workerIdx + 1) * nJob) / parallelism
		// Region queries cache search state, so each worker needs its own
		// clone.
		var workerRegions *interval.BEDUnion
		if regions != nil {
			c := regions.Clone()
			workerRegions = &c
		}
		for jobIdx := startIdx; jobIdx < endIdx; jobIdx++ {
			states[jobIdx] = runJob(ctx, jobs[jobIdx], workerRegions, opts)
		}
		return nil
	})

	nFailed := 0
	for jobIdx := range states {
		st := &states[jobIdx]
		if st.err != nil {
			log.Error.Printf("mutation type %d (%s): %v", jobIdx, jobs[jobIdx].PredPath, st.err)
			nFailed++
			continue
		}
		if err := writeReport(reportW, jobIdx, jobs[jobIdx], opts.GenomewideMu, st.res); err != nil {
			return errors.E(err, "write report")
		}
		if opts.DoScaling {
			outPath := ScaledPath(jobs[jobIdx].PredPath)
			scaled := Rescale(st.table, st.res.ScaleFactor)
			st.table = nil
			if err := scaled.Write(ctx, outPath, parallelism); err != nil {
				log.Error.Printf("mutation type %d (%s): %v", jobIdx, jobs[jobIdx].PredPath, err)
				nFailed++
				continue
			}
			log.Printf("scaling.Run: wrote %s", outPath)
		}
	}
	if nFailed != 0 {
		return errors.E(fmt.Sprintf("%d of %d calibration job(s) failed", nFailed, nJob))
	}
	return nil
}
