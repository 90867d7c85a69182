/*
Copyright © 2019 the WRFplot authors.
This file is part of WRFplot.

WRFplot is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

WRFplot is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with WRFplot.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfplot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PlotKind is the kind of comparison plot a request prepares data for.
type PlotKind int

// Plot kinds.
const (
	Timeseries PlotKind = iota
	Profiles
	TimeHeight
	ObsVsMod
	Windrose
	Histogram
	Map
)

var plotKindNames = map[PlotKind]string{
	Timeseries: "Timeseries",
	Profiles:   "Profiles",
	TimeHeight: "zt-Plot",
	ObsVsMod:   "Obs vs Mod",
	Windrose:   "Windrose",
	Histogram:  "Histogram",
	Map:        "Map",
}

func (k PlotKind) String() string {
	if s, ok := plotKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("PlotKind(%d)", int(k))
}

// ParsePlotKind parses a plot kind name as produced by String. Matching
// ignores case, spaces and dashes, so "obsvsmod" and "zt" also work.
func ParsePlotKind(s string) (PlotKind, error) {
	norm := func(s string) string {
		return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
	}
	n := norm(s)
	if n == "zt" || n == "timeheight" {
		return TimeHeight, nil
	}
	for k, name := range plotKindNames {
		if norm(name) == n {
			return k, nil
		}
	}
	return 0, &ConfigError{Field: "kind", Msg: fmt.Sprintf("unknown plot kind %q", s)}
}

// Request is the configuration of one plot. Create it with NewRequest
// and do not modify it afterwards.
type Request struct {
	Kind PlotKind

	// Var is the variable short name, e.g. "WSP".
	Var string

	// Level is the height in m at which the variable is compared, as
	// it appears in archive variable names, e.g. "82". Required for
	// Timeseries, ObsVsMod, Windrose and Histogram.
	Level string

	// Location is the station at which data are compared. Required
	// for all kinds except Map.
	Location string

	// Time is the instant of a Profiles plot. Required for Profiles.
	Time time.Time

	// Anemometer selects the wind sensor of observations.
	Anemometer Anemometer

	// Experiments and Observations are the model runs and
	// observation datasets to overlay, in plotting order.
	Experiments  []string
	Observations []string

	// Verbose logs skipped sources at the Info rather than Debug level.
	Verbose bool
}

// NewRequest validates r and returns an independent copy of it with
// defaults filled in.
func NewRequest(r Request) (*Request, error) {
	out := r
	out.Var = strings.ToUpper(strings.TrimSpace(r.Var))
	out.Level = strings.TrimSpace(r.Level)
	out.Experiments = append([]string(nil), r.Experiments...)
	out.Observations = append([]string(nil), r.Observations...)

	fail := func(field, msg string) (*Request, error) {
		return nil, &ConfigError{Source: r.Kind.String(), Field: field, Msg: msg}
	}
	if _, ok := plotKindNames[r.Kind]; !ok {
		return fail("kind", "unknown plot kind")
	}
	if out.Var == "" && r.Kind != Windrose {
		return fail("var", "a variable is required")
	}
	if r.Kind == Windrose {
		out.Var = "WSP"
	}
	if r.Kind != Map && r.Location == "" {
		return fail("location", "a location is required")
	}
	switch r.Kind {
	case Timeseries, ObsVsMod, Windrose, Histogram:
		if out.Level == "" {
			return fail("level", "a level is required")
		}
		z, err := strconv.ParseFloat(out.Level, 64)
		if err != nil {
			return fail("level", fmt.Sprintf("level %q is not a number", out.Level))
		}
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return fail("level", fmt.Sprintf("level %q is not finite", out.Level))
		}
	case Profiles:
		if r.Time.IsZero() {
			return fail("time", "a time is required")
		}
	}
	switch r.Kind {
	case Timeseries, Profiles, Histogram, Windrose:
		if len(out.Experiments)+len(out.Observations) == 0 {
			return fail("sources", "at least one experiment or observation is required")
		}
	case TimeHeight:
		if len(out.Experiments) == 0 {
			return fail("experiments", "an experiment is required")
		}
	case ObsVsMod:
		if len(out.Observations) == 0 || len(out.Experiments) == 0 {
			return fail("sources", "an observation and at least one experiment are required")
		}
	}
	return &out, nil
}

// LevelValue returns the numeric level of the request.
func (r *Request) LevelValue() float64 {
	z, _ := strconv.ParseFloat(r.Level, 64)
	return z
}

// with returns a copy of r with a different variable and level.
func (r *Request) with(v, level string) *Request {
	o := *r
	o.Var, o.Level = v, level
	return &o
}
