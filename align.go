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
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Meta holds the units and description resolved for a prepared table.
// When sources disagree, the last source processed successfully wins.
type Meta struct {
	Units       string
	Description string
}

// noDataMeta describes a request for which no source had data.
var noDataMeta = Meta{Description: "No Data"}

// logSkip records that source was left out of the result of r.
func (r *Request) logSkip(source string, err error) {
	entry := Log.WithFields(logrus.Fields{
		"source": source,
		"var":    r.Var,
		"level":  r.Level,
		"reason": err,
	})
	switch {
	case !skippable(err):
		entry.Warn("skipping source after unexpected error")
	case r.Verbose:
		entry.Info("skipping source")
	default:
		entry.Debug("skipping source")
	}
}

// toCanonical converts values to the registry units of variable base.
// Values of unregistered variables, values without units and values in
// units that are not known are returned unchanged.
func toCanonical(base string, values []float64, units string) ([]float64, string, error) {
	target := CanonicalUnits(base)
	if target == "" {
		return values, units, nil
	}
	if units == "" {
		return values, target, nil
	}
	if _, ok := lookupUnit(units); !ok && !strings.EqualFold(strings.TrimSpace(units), target) {
		Log.WithFields(logrus.Fields{"var": base, "units": units}).Warn("unknown units; values are not converted")
		return values, units, nil
	}
	out, err := ConvertUnits(values, units, target)
	if err != nil {
		return nil, "", err
	}
	return out, target, nil
}

// baseVar returns the registry name of the requested variable.
func baseVar(v string) string {
	if v == "PRES" {
		return "P"
	}
	return v
}

// modelVarName finds the name under which variable v is stored in c.
func modelVarName(c *ModelColumn, v string) (string, bool) {
	candidates := []string{v}
	switch v {
	case "PRES":
		candidates = append(candidates, "P")
	case "P":
		candidates = append(candidates, "PRES")
	}
	for _, n := range candidates {
		if _, ok := c.Vars[n]; ok {
			return n, true
		}
	}
	return "", false
}

// obsCandidates returns the archive names to try, in order, for the
// requested variable and the description of an observation series.
func obsCandidates(r *Request) ([]string, string) {
	if r.Var == "PRES" {
		return []string{"P_" + r.Level}, "air pressure"
	}
	return []string{r.Var, ObsVarName(r.Var, r.Anemometer, r.Level)}, r.Var
}

// obsSeries returns the observation series of dataset for request r.
func obsSeries(obs ObsData, dataset string, r *Request) (Series, Meta, error) {
	rec, ok := obs.Get(dataset)
	if !ok {
		return Series{}, Meta{}, noData("observation %s not loaded", dataset)
	}
	names, desc := obsCandidates(r)
	for _, n := range names {
		v, ok := rec.Variable(n)
		if !ok {
			continue
		}
		vals, units, err := toCanonical(baseVar(r.Var), v.Values, v.Units)
		if err != nil {
			return Series{}, Meta{}, err
		}
		return Series{Name: dataset, Times: rec.Times, Values: vals}, Meta{Units: units, Description: desc}, nil
	}
	return Series{}, Meta{}, noData("none of %v in observation %s", names, dataset)
}

// modelLevelSeries interpolates the column of experiment exp to the
// requested level and returns the requested variable.
func modelLevelSeries(mod ModelData, exp string, r *Request) (Series, Meta, error) {
	c, ok := mod.Column(exp, r.Location)
	if !ok {
		return Series{}, Meta{}, noData("no column for %s at %s", exp, r.Location)
	}
	name, ok := modelVarName(c, r.Var)
	if !ok {
		derived, err := DeriveColumn(c, DefaultExpressions)
		if err != nil {
			return Series{}, Meta{}, err
		}
		if name, ok = modelVarName(derived, r.Var); !ok {
			return Series{}, Meta{}, noData("no variable %s for %s at %s", r.Var, exp, r.Location)
		}
		c = derived
	}
	ls, err := InterpolateColumn(c, r.LevelValue())
	if err != nil {
		return Series{}, Meta{}, err
	}
	v, ok := ls.Variable(name)
	if !ok {
		return Series{}, Meta{}, noData("variable %s of %s could not be interpolated", name, exp)
	}
	vals, units, err := toCanonical(baseVar(r.Var), v.Values, v.Units)
	if err != nil {
		return Series{}, Meta{}, err
	}
	desc := v.StandardName
	if desc == "" {
		desc = v.Description()
	}
	return Series{Name: exp, Times: ls.Times, Values: vals}, Meta{Units: units, Description: desc}, nil
}

// modelWindow returns the time range of the first requested experiment
// that has a column at the requested location.
func modelWindow(mod ModelData, r *Request) (time.Time, time.Time, bool) {
	for _, exp := range r.Experiments {
		if c, ok := mod.Column(exp, r.Location); ok && len(c.Times) > 0 {
			return c.Times[0], c.Times[len(c.Times)-1], true
		}
	}
	return time.Time{}, time.Time{}, false
}

func sliceSeries(s Series, start, end time.Time) Series {
	out := Series{Name: s.Name, Missing: s.Missing}
	for i, t := range s.Times {
		if t.Before(start) || t.After(end) {
			continue
		}
		out.Times = append(out.Times, t)
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// PrepTimeseries aligns the requested variable at the requested level
// from every observation and experiment of r into one table indexed by
// time. Observations are cut to the time range of the first experiment.
// Model columns are interpolated to the level. Values are converted to
// the registry units of the variable.
//
// A source without data becomes a placeholder column and is logged. If
// no source has data, the result is EmptyTable.
func PrepTimeseries(obs ObsData, mod ModelData, r *Request) (*Table, Meta, error) {
	if r == nil {
		return nil, Meta{}, fmt.Errorf("wrfplot: nil request")
	}
	start, end, windowed := modelWindow(mod, r)
	var series []Series
	meta := noDataMeta
	found := 0
	for _, name := range r.Observations {
		s, m, err := obsSeries(obs, name, r)
		if err != nil {
			r.logSkip(name, err)
			series = append(series, Series{Name: name, Missing: true})
			continue
		}
		if windowed {
			s = sliceSeries(s, start, end)
		}
		series = append(series, s)
		meta = m
		found++
	}
	for _, exp := range r.Experiments {
		s, m, err := modelLevelSeries(mod, exp, r)
		if err != nil {
			r.logSkip(exp, err)
			series = append(series, Series{Name: exp, Missing: true})
			continue
		}
		series = append(series, s)
		meta = m
		found++
	}
	if found == 0 {
		return EmptyTable(), noDataMeta, nil
	}
	return Concat(series), meta, nil
}

// PrepHistogram prepares the data of a histogram, which are the same as
// those of a time series.
func PrepHistogram(obs ObsData, mod ModelData, r *Request) (*Table, Meta, error) {
	return PrepTimeseries(obs, mod, r)
}

// ScatterPair holds the instants at which an observation and an
// experiment both have values.
type ScatterPair struct {
	Observation string
	Experiment  string
	Times       []time.Time
	Obs, Mod    []float64
}

// PrepObsVsModel aligns the requested variable as for a time series and
// pairs the first observation with each experiment on the instants where
// both have values. No pairs are returned if the observation is missing.
func PrepObsVsModel(obs ObsData, mod ModelData, r *Request) ([]ScatterPair, *Table, Meta, error) {
	tbl, meta, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		return nil, nil, Meta{}, err
	}
	if len(r.Observations) == 0 {
		return nil, tbl, meta, nil
	}
	ref := r.Observations[0]
	var refCol *Column
	for i, c := range tbl.Columns {
		if c.Source == ref && !c.Missing {
			refCol = &tbl.Columns[i]
			break
		}
	}
	if refCol == nil {
		return nil, tbl, meta, nil
	}
	var pairs []ScatterPair
	for _, exp := range r.Experiments {
		for _, c := range tbl.Columns {
			if c.Source != exp || c.Missing {
				continue
			}
			p := ScatterPair{Observation: ref, Experiment: exp}
			for i, t := range tbl.Index {
				o, m := refCol.Values[i], c.Values[i]
				if math.IsNaN(o) || math.IsNaN(m) {
					continue
				}
				p.Times = append(p.Times, t)
				p.Obs = append(p.Obs, o)
				p.Mod = append(p.Mod, m)
			}
			pairs = append(pairs, p)
			break
		}
	}
	return pairs, tbl, meta, nil
}

// directionLevel returns the level of the direction sensor nearest to
// the requested wind speed level in the first observation of r, or the
// requested level if there is no direction sensor.
func directionLevel(obs ObsData, r *Request) string {
	if len(r.Observations) == 0 {
		return r.Level
	}
	rec, ok := obs.Get(r.Observations[0])
	if !ok {
		return r.Level
	}
	suffix := DeviceSuffix("DIR", r.Anemometer)
	target := r.LevelValue()
	best, bestDist := r.Level, math.Inf(1)
	for _, n := range rec.Names() {
		o, err := ParseObsVarName(n)
		if err != nil || o.Base != "DIR" || o.Suffix != suffix || o.Level == "" || o.Stat != "" {
			continue
		}
		z, err := o.Height()
		if err != nil {
			continue
		}
		if d := math.Abs(z - target); d < bestDist {
			best, bestDist = o.Level, d
		}
	}
	return best
}

// PrepWindrose prepares wind speed at the requested level and wind
// direction at the direction sensor level nearest to it.
func PrepWindrose(obs ObsData, mod ModelData, r *Request) (speed, dir *Table, meta Meta, err error) {
	speed, _, err = PrepTimeseries(obs, mod, r.with("WSP", r.Level))
	if err != nil {
		return nil, nil, Meta{}, err
	}
	dir, _, err = PrepTimeseries(obs, mod, r.with("DIR", directionLevel(obs, r)))
	if err != nil {
		return nil, nil, Meta{}, err
	}
	return speed, dir, Meta{Units: "m s-1, degree", Description: "wind speed and wind direction"}, nil
}
