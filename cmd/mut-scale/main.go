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
package main

/*
mut-scale converts per-site mutation-probability predictions into absolute
per-generation mutation rates, reporting one calibration factor per mutation
type and optionally rewriting the prediction tables with rescaled
probabilities.
*/

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/mutscale/scaling"
)

var (
	bedPath      = flag.String("benchmark-regions", scaling.DefaultOpts.BedPath, "Optional BED of high-confidence regions; when set, only overlapping sites contribute to the calibration aggregate")
	oneBasedBed  = flag.Bool("one-based-bed", scaling.DefaultOpts.OneBasedBed, "Interpret -benchmark-regions coordinates as one-based [start, end]")
	invertBed    = flag.Bool("invert-bed", scaling.DefaultOpts.InvertBed, "Calibrate against the complement of -benchmark-regions")
	genomewideMu = flag.Float64("genomewide-mu", scaling.DefaultOpts.GenomewideMu, "Genome-wide per-base per-generation mutation rate")
	mProportions = flag.String("m-proportions", "", "Comma-separated mutation-type proportions, one per prediction file")
	gProportions = flag.String("g-proportions", "", "Comma-separated site proportions, one per prediction file")
	doScaling    = flag.Bool("do-scaling", scaling.DefaultOpts.DoScaling, "Also rewrite each prediction table with rescaled probabilities, to <input>.scaled.<ext>")
	parallelism  = flag.Int("parallelism", scaling.DefaultOpts.Parallelism, "Maximum number of simultaneous calibration jobs; 0 = runtime.NumCPU()")
)

func mutScaleUsage() {
	fmt.Printf("Usage: %s [OPTIONS] predfile [predfile...]\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func parseFloatList(flagName, s string) []float64 {
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			log.Fatalf("Invalid -%s entry '%s': %v", flagName, f, err)
		}
		vals[i] = v
	}
	return vals
}

func main() {
	flag.Usage = mutScaleUsage
	shutdown := grail.Init()
	defer shutdown()

	predPaths := flag.Args()
	if len(predPaths) == 0 {
		log.Fatalf("Missing positional arguments (at least one prediction file required); please check flag syntax")
	}
	ctx := vcontext.Background()
	opts := scaling.Opts{
		BedPath:      *bedPath,
		OneBasedBed:  *oneBasedBed,
		InvertBed:    *invertBed,
		GenomewideMu: *genomewideMu,
		DoScaling:    *doScaling,
		Parallelism:  *parallelism,
	}
	mProps := parseFloatList("m-proportions", *mProportions)
	gProps := parseFloatList("g-proportions", *gProportions)
	if err := scaling.Run(ctx, predPaths, mProps, gProps, &opts, os.Stdout); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
