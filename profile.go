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
	"sort"
	"time"

	"github.com/ctessum/sparse"
)

// Profile is a vertical profile from one source at one instant.
type Profile struct {
	Source  string
	Alt     []float64
	Values  []float64
	Missing bool
}

// obsProfile collects the sensors of the requested variable and device
// family at instant r.Time.
func obsProfile(obs ObsData, dataset string, r *Request) (Profile, Meta, error) {
	rec, ok := obs.Get(dataset)
	if !ok {
		return Profile{}, Meta{}, noData("observation %s not loaded", dataset)
	}
	t, ok := rec.Index(r.Time)
	if !ok {
		return Profile{}, Meta{}, noData("no observation of %s at %v", dataset, r.Time)
	}
	device := DeviceSuffix(r.Var, r.Anemometer)
	want := baseVar(r.Var)
	type point struct{ z, v float64 }
	var pts []point
	var meta Meta
	for _, n := range rec.Names() {
		o, err := ParseObsVarName(n)
		if err != nil || o.Level == "" || o.Stat != "" || o.Suffix != device {
			continue
		}
		if o.Base != r.Var && o.Base != want {
			continue
		}
		z, err := o.Height()
		if err != nil {
			continue
		}
		v := rec.Vars[n]
		vals, units, err := toCanonical(want, v.Values[t:t+1], v.Units)
		if err != nil {
			return Profile{}, Meta{}, err
		}
		pts = append(pts, point{z, vals[0]})
		meta = Meta{Units: units, Description: r.Var}
	}
	if len(pts) == 0 {
		return Profile{}, Meta{}, noData("no %s%s sensors in %s", r.Var, device, dataset)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].z < pts[j].z })
	p := Profile{Source: dataset}
	for _, pt := range pts {
		p.Alt = append(p.Alt, pt.z)
		p.Values = append(p.Values, pt.v)
	}
	return p, meta, nil
}

// modelProfile returns the requested variable at every model level of
// the column of exp at instant r.Time.
func modelProfile(mod ModelData, exp string, r *Request) (Profile, Meta, error) {
	c, ok := mod.Column(exp, r.Location)
	if !ok {
		return Profile{}, Meta{}, noData("no column for %s at %s", exp, r.Location)
	}
	if c.NumLevels() == 0 {
		return Profile{}, Meta{}, noData("no heights for %s at %s", exp, r.Location)
	}
	t := -1
	for i, tt := range c.Times {
		if tt.Equal(r.Time) {
			t = i
			break
		}
	}
	if t < 0 {
		return Profile{}, Meta{}, noData("no output of %s at %v", exp, r.Time)
	}
	name, ok := modelVarName(c, r.Var)
	if !ok {
		derived, err := DeriveColumn(c, DefaultExpressions)
		if err != nil {
			return Profile{}, Meta{}, err
		}
		if name, ok = modelVarName(derived, r.Var); !ok {
			return Profile{}, Meta{}, noData("no variable %s for %s", r.Var, exp)
		}
		c = derived
	}
	v := c.Vars[name]
	nz := c.NumLevels()
	if v.IsSurface() || v.Data.Shape[1] != nz {
		return Profile{}, Meta{}, &ConfigError{Source: exp, Field: name, Msg: "variable is not defined on model levels"}
	}
	row := append([]float64(nil), v.Data.Elements[t*nz:(t+1)*nz]...)
	vals, units, err := toCanonical(baseVar(r.Var), row, v.Units)
	if err != nil {
		return Profile{}, Meta{}, err
	}
	desc := v.StandardName
	if desc == "" {
		desc = v.Description()
	}
	return Profile{
		Source: exp,
		Alt:    append([]float64(nil), c.AltAt(t)...),
		Values: vals,
	}, Meta{Units: units, Description: desc}, nil
}

// PrepProfiles returns one vertical profile per source of r at exactly
// the instant r.Time. The profiles are not merged because each source has
// its own heights. Observation sensors of other device families are
// excluded. Sources without data at r.Time yield a Missing profile.
func PrepProfiles(obs ObsData, mod ModelData, r *Request) ([]Profile, Meta, error) {
	if r == nil {
		return nil, Meta{}, fmt.Errorf("wrfplot: nil request")
	}
	var out []Profile
	meta := noDataMeta
	for _, name := range r.Observations {
		p, m, err := obsProfile(obs, name, r)
		if err != nil {
			r.logSkip(name, err)
			out = append(out, Profile{Source: name, Missing: true})
			continue
		}
		out = append(out, p)
		meta = m
	}
	for _, exp := range r.Experiments {
		p, m, err := modelProfile(mod, exp, r)
		if err != nil {
			r.logSkip(exp, err)
			out = append(out, Profile{Source: exp, Missing: true})
			continue
		}
		out = append(out, p)
		meta = m
	}
	return out, meta, nil
}

// TimeHeightField is a variable over time and height from one column.
// Alt is the time-mean height of each model level, so the heights are
// the same at all times. Values has shape [time, level].
type TimeHeightField struct {
	Experiment string
	Location   string
	Var        string
	Units      string
	LongName   string
	AltUnits   string
	Times      []time.Time
	Alt        []float64
	Values     *sparse.DenseArray
}

// PrepTimeHeight returns the requested variable of the first requested
// experiment that has it at the requested location, with model levels
// replaced by their time-mean heights. Experiments without the column or
// the variable are logged and skipped.
func PrepTimeHeight(mod ModelData, r *Request) (*TimeHeightField, error) {
	if r == nil {
		return nil, fmt.Errorf("wrfplot: nil request")
	}
	for _, exp := range r.Experiments {
		c, ok := mod.Column(exp, r.Location)
		if !ok {
			r.logSkip(exp, noData("no column at %s", r.Location))
			continue
		}
		f, err := timeHeightField(c, r)
		if err != nil {
			if !skippable(err) {
				return nil, err
			}
			r.logSkip(exp, err)
			continue
		}
		return f, nil
	}
	return nil, noData("none of the experiments %v have %s at %s", r.Experiments, r.Var, r.Location)
}

func timeHeightField(c *ModelColumn, r *Request) (*TimeHeightField, error) {
	exp := c.Experiment
	if c.NumLevels() == 0 {
		return nil, noData("no heights for %s at %s", exp, r.Location)
	}
	name, ok := modelVarName(c, r.Var)
	if !ok {
		derived, err := DeriveColumn(c, DefaultExpressions)
		if err != nil {
			return nil, err
		}
		if name, ok = modelVarName(derived, r.Var); !ok {
			return nil, noData("no variable %s for %s at %s", r.Var, exp, r.Location)
		}
		c = derived
	}
	v := c.Vars[name]
	if v.IsSurface() || v.Data.Shape[1] != c.NumLevels() {
		return nil, &ConfigError{Source: exp, Field: name, Msg: "variable is not defined on model levels"}
	}
	longName := v.LongName
	if longName == "" {
		longName = v.StandardName
	}
	return &TimeHeightField{
		Experiment: exp,
		Location:   r.Location,
		Var:        name,
		Units:      v.Units,
		LongName:   longName,
		AltUnits:   c.AltUnits,
		Times:      append([]time.Time(nil), c.Times...),
		Alt:        c.MeanAlt(),
		Values:     v.Data.Copy(),
	}, nil
}
