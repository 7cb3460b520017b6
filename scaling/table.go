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
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/mutscale/interval"
)

// NClass is the number of probability classes per site: the reference allele
// plus the three possible substitutions.
const NClass = 4

// probSumTol bounds |prob0+prob1+prob2+prob3 - 1| on input load.  It is loose
// enough to accept tables whose probabilities were printed with 4 significant
// digits.
const probSumTol = 1e-3

// Record is one genomic site of a prediction table.  Prob[0] is the
// reference-allele probability; Prob[1..3] are the substitution
// probabilities.  Coordinates are 0-based, half-open.
type Record struct {
	Chrom  string
	Start  int
	End    int
	Strand byte
	Prob   [NClass]float64
}

// Table is the ordered contents of one prediction file.
type Table struct {
	Path string
	Recs []Record
}

// requiredCols are the prediction-table columns the calibration pipeline
// needs; additional columns (e.g. flanking-sequence annotations) are ignored.
var requiredCols = [...]string{"chrom", "start", "end", "strand", "prob0", "prob1", "prob2", "prob3"}

func (rec *Record) validate() error {
	if (rec.Start < 0) || (rec.End >= interval.PosTypeMax) {
		return fmt.Errorf("coordinate pair [%d, %d) out of range", rec.Start, rec.End)
	}
	if rec.End <= rec.Start {
		return fmt.Errorf("site [%d, %d) covers no bases", rec.Start, rec.End)
	}
	probSum := 0.0
	for _, p := range rec.Prob {
		if (p < 0) || (p > 1) {
			return fmt.Errorf("probability %v outside [0, 1]", p)
		}
		probSum += p
	}
	if (probSum < 1-probSumTol) || (probSum > 1+probSumTol) {
		return fmt.Errorf("probabilities sum to %v, not 1", probSum)
	}
	return nil
}

// ReadTable loads a prediction table from r.  The first line must be a
// tab-separated header naming at least the chrom/start/end/strand/
// prob0..prob3 columns, in any order; extra columns are ignored.  path is
// used only for error messages.
func ReadTable(r io.Reader, path string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &FormatError{Path: path, Err: fmt.Errorf("empty file, header expected")}
	}
	header := strings.Split(scanner.Text(), "\t")
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}
	var fieldIdx [len(requiredCols)]int
	for i, name := range requiredCols {
		j, found := colIdx[name]
		if !found {
			return nil, &FormatError{Path: path, Err: fmt.Errorf("missing required column %q", name)}
		}
		fieldIdx[i] = j
	}

	t := &Table{Path: path}
	nRow := 0
	for scanner.Scan() {
		nRow++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < len(header) {
			return nil, &FormatError{Path: path, Line: nRow, Err: fmt.Errorf("%d field(s), header has %d", len(fields), len(header))}
		}
		var rec Record
		rec.Chrom = fields[fieldIdx[0]]
		var err error
		if rec.Start, err = strconv.Atoi(fields[fieldIdx[1]]); err != nil {
			return nil, &FormatError{Path: path, Line: nRow, Err: err}
		}
		if rec.End, err = strconv.Atoi(fields[fieldIdx[2]]); err != nil {
			return nil, &FormatError{Path: path, Line: nRow, Err: err}
		}
		strand := fields[fieldIdx[3]]
		if (len(strand) != 1) || (strings.IndexByte("+-.", strand[0]) < 0) {
			return nil, &FormatError{Path: path, Line: nRow, Err: fmt.Errorf("bad strand %q", strand)}
		}
		rec.Strand = strand[0]
		for class := 0; class < NClass; class++ {
			if rec.Prob[class], err = strconv.ParseFloat(fields[fieldIdx[4+class]], 64); err != nil {
				return nil, &FormatError{Path: path, Line: nRow, Err: err}
			}
		}
		if err = rec.validate(); err != nil {
			return nil, &FormatError{Path: path, Line: nRow, Err: err}
		}
		t.Recs = append(t.Recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadTableFromPath is a wrapper for ReadTable that takes a path instead of
// an io.Reader, transparently decompressing .gz/.bz2/.zst inputs.
func ReadTableFromPath(ctx context.Context, path string) (t *Table, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	return ReadTable(inr, path)
}

// formatProb renders a probability with 4 significant digits.
func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', 4, 64)
}

// Write persists the table to path with the same schema as the input format.
// A path with a gzip-type extension is block-gzipped; parallelism bounds the
// number of simultaneous bgzf compression threads.
func (t *Table) Write(ctx context.Context, path string, parallelism int) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)

	w := io.Writer(dst.Writer(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		bgzfWriter := bgzf.NewWriter(w, parallelism)
		defer func() {
			if e := bgzfWriter.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w = bgzfWriter
	}
	tw := tsv.NewWriter(w)
	tw.WriteString("chrom\tstart\tend\tstrand\tprob0\tprob1\tprob2\tprob3")
	if err = tw.EndLine(); err != nil {
		return
	}
	for _, rec := range t.Recs {
		tw.WriteString(rec.Chrom)
		tw.WriteString(strconv.Itoa(rec.Start))
		tw.WriteString(strconv.Itoa(rec.End))
		tw.WriteByte(rec.Strand)
		for _, p := range rec.Prob {
			tw.WriteString(formatProb(p))
		}
		if err = tw.EndLine(); err != nil {
			return
		}
	}
	return tw.Flush()
}

// ScaledPath derives the output path for a rescaled copy of the table at
// path: ".scaled" is inserted before the extension, with any compression
// suffix preserved, so "preds.tsv.gz" becomes "preds.scaled.tsv.gz".  The
// input file is never overwritten in place.
func ScaledPath(path string) string {
	comp := ""
	base := path
	for _, suffix := range []string{".gz", ".bgz", ".zst", ".bz2"} {
		if strings.HasSuffix(base, suffix) {
			comp = suffix
			base = base[:len(base)-len(suffix)]
			break
		}
	}
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)] + ".scaled" + ext + comp
}
