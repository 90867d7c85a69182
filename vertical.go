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
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// LevelSeries is a model column reduced to a single height: one time
// series per variable.
type LevelSeries struct {
	Experiment string
	Location   string
	Level      float64
	Times      []time.Time
	Vars       map[string]*Variable
}

// Variable returns the series for variable name.
func (l *LevelSeries) Variable(name string) (*Variable, bool) {
	v, ok := l.Vars[name]
	return v, ok
}

// bracket finds the pair of levels in the increasing height vector alt
// that encloses target, along with the interpolation weight of each.
// A target equal to a level returns that level with weight 1.
func bracket(alt []float64, target float64) (lo, hi int, wlo, whi float64, err error) {
	n := len(alt)
	if n == 0 {
		return 0, 0, 0, 0, ErrNoData
	}
	if floats.HasNaN(alt) {
		return 0, 0, 0, 0, noData("missing level heights")
	}
	if math.IsNaN(target) || target < alt[0] || target > alt[n-1] {
		return 0, 0, 0, 0, fmt.Errorf("%w: %g not within [%g, %g]", ErrOutOfRange, target, alt[0], alt[n-1])
	}
	i := sort.SearchFloat64s(alt, target)
	if i == n {
		return 0, 0, 0, 0, fmt.Errorf("%w: %g not within [%g, %g]", ErrOutOfRange, target, alt[0], alt[n-1])
	}
	if alt[i] == target {
		return i, i, 1, 0, nil
	}
	lo, hi = i-1, i
	dz := alt[hi] - alt[lo]
	if dz <= 0 {
		return 0, 0, 0, 0, &ConfigError{Field: "ALT", Msg: fmt.Sprintf("heights not increasing at levels %d and %d", lo, hi)}
	}
	wlo = (alt[hi] - target) / dz
	whi = (target - alt[lo]) / dz
	return lo, hi, wlo, whi, nil
}

// InterpolateColumn linearly interpolates every variable of c to the
// height target, separately at every time step using that time step's
// level heights. Surface variables are passed through. Wind direction is
// recomputed from the interpolated wind components rather than
// interpolated.
//
// A column without heights results in ErrNoData. A target below the
// lowest or above the highest level at any time step results in
// ErrOutOfRange; values are never extrapolated.
func InterpolateColumn(c *ModelColumn, target float64) (*LevelSeries, error) {
	nz := c.NumLevels()
	if nz == 0 || len(c.Times) == 0 {
		return nil, noData("no heights for %s at %s", c.Experiment, c.Location)
	}
	nt := len(c.Times)
	type weights struct {
		lo, hi   int
		wlo, whi float64
	}
	w := make([]weights, nt)
	for t := 0; t < nt; t++ {
		lo, hi, wlo, whi, err := bracket(c.AltAt(t), target)
		if err != nil {
			return nil, fmt.Errorf("wrfplot: interpolating %s at %s to %g %s at %v: %w",
				c.Experiment, c.Location, target, c.AltUnits, c.Times[t], err)
		}
		w[t] = weights{lo, hi, wlo, whi}
	}
	out := &LevelSeries{
		Experiment: c.Experiment,
		Location:   c.Location,
		Level:      target,
		Times:      append([]time.Time(nil), c.Times...),
		Vars:       make(map[string]*Variable),
	}
	for name, v := range c.Vars {
		vals := make([]float64, nt)
		switch {
		case v.IsSurface():
			copy(vals, v.Data.Elements)
		case len(v.Data.Shape) == 2 && v.Data.Shape[0] == nt && v.Data.Shape[1] == nz:
			for t, ww := range w {
				row := v.Data.Elements[t*nz : (t+1)*nz]
				vals[t] = row[ww.lo]*ww.wlo + row[ww.hi]*ww.whi
			}
		default:
			Log.WithField("var", name).Debugf("skipping variable with shape %v in column with %d levels", v.Data.Shape, nz)
			continue
		}
		out.Vars[name] = &Variable{
			Name:         name,
			Units:        v.Units,
			StandardName: v.StandardName,
			LongName:     v.LongName,
			Values:       vals,
		}
	}
	u, uok := out.Vars["U"]
	vv, vok := out.Vars["V"]
	if uok && vok {
		info, _ := LookupVar("DIR")
		out.Vars["DIR"] = &Variable{
			Name:         "DIR",
			Units:        info.Units,
			StandardName: info.StandardName,
			LongName:     info.LongName,
			Values:       WindDirections(u.Values, vv.Values),
		}
	}
	return out, nil
}
