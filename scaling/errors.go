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
)

// ConfigError describes an invalid combination of run parameters, e.g. a
// proportion list whose length does not match the prediction-file list.  It
// is always detected before any input file is opened.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "scaling: invalid configuration: " + e.Msg
}

// FormatError describes a malformed prediction or benchmark-region file:
// missing required columns, unparsable coordinates, or probabilities that do
// not form a distribution.  It fails the affected job only.
type FormatError struct {
	Path string
	Line int // 1-based data-row index when known, 0 otherwise
	Err  error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("scaling: malformed input %s row %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("scaling: malformed input %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DomainError describes a scale-factor computation whose result would be
// infinite or NaN.  It is raised instead of letting a zero denominator
// propagate silently.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string {
	return "scaling: " + e.Msg
}
