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

// Station is a measurement site.
type Station struct {
	Name      string
	Lat, Lon  float64
	Elevation float64 // m above sea level
}

// Variable is a named time series with CF metadata.
type Variable struct {
	Name         string
	Units        string
	StandardName string
	LongName     string
	Values       []float64
}

// Copy returns a deep copy of v.
func (v *Variable) Copy() *Variable {
	o := *v
	o.Values = append([]float64(nil), v.Values...)
	return &o
}

// Description returns the long name of the variable, falling back to the
// standard name.
func (v *Variable) Description() string {
	if v.LongName != "" {
		return v.LongName
	}
	return v.StandardName
}

// ObsRecord holds the observations of one dataset at one station. All
// variables share the Times index, which is sorted and free of duplicates.
type ObsRecord struct {
	Dataset string
	Station Station
	Times   []time.Time
	Vars    map[string]*Variable
	Attrs   map[string]string
}

// NewObsRecord creates an empty record for the given dataset and station.
func NewObsRecord(dataset string, s Station, times []time.Time) *ObsRecord {
	return &ObsRecord{
		Dataset: dataset,
		Station: s,
		Times:   times,
		Vars:    make(map[string]*Variable),
		Attrs:   make(map[string]string),
	}
}

// Variable returns the variable with the given name.
func (r *ObsRecord) Variable(name string) (*Variable, bool) {
	v, ok := r.Vars[name]
	return v, ok
}

// AddVariable adds v to the record, replacing any variable with the same
// name.
func (r *ObsRecord) AddVariable(v *Variable) error {
	if len(v.Values) != len(r.Times) {
		return fmt.Errorf("wrfplot: variable %s has %d values but record %s has %d times",
			v.Name, len(v.Values), r.Dataset, len(r.Times))
	}
	r.Vars[v.Name] = v
	return nil
}

// Names returns the sorted variable names of the record.
func (r *ObsRecord) Names() []string {
	names := make([]string, 0, len(r.Vars))
	for n := range r.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Index returns the position of t in the record's time index.
func (r *ObsRecord) Index(t time.Time) (int, bool) {
	i := sort.Search(len(r.Times), func(i int) bool { return !r.Times[i].Before(t) })
	if i < len(r.Times) && r.Times[i].Equal(t) {
		return i, true
	}
	return i, false
}

// Copy returns a deep copy of r.
func (r *ObsRecord) Copy() *ObsRecord {
	o := NewObsRecord(r.Dataset, r.Station, append([]time.Time(nil), r.Times...))
	for n, v := range r.Vars {
		o.Vars[n] = v.Copy()
	}
	for k, v := range r.Attrs {
		o.Attrs[k] = v
	}
	return o
}

// Slice returns the part of the record with start <= t <= end. A zero
// start or end leaves that side unbounded.
func (r *ObsRecord) Slice(start, end time.Time) *ObsRecord {
	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(r.Times), func(i int) bool { return !r.Times[i].Before(start) })
	}
	hi := len(r.Times)
	if !end.IsZero() {
		hi = sort.Search(len(r.Times), func(i int) bool { return r.Times[i].After(end) })
	}
	if hi < lo {
		hi = lo
	}
	o := NewObsRecord(r.Dataset, r.Station, append([]time.Time(nil), r.Times[lo:hi]...))
	for n, v := range r.Vars {
		vv := *v
		vv.Values = append([]float64(nil), v.Values[lo:hi]...)
		o.Vars[n] = &vv
	}
	for k, v := range r.Attrs {
		o.Attrs[k] = v
	}
	return o
}

// ObsData maps dataset names to their records.
type ObsData map[string]*ObsRecord

// Get returns the record for a dataset.
func (o ObsData) Get(dataset string) (*ObsRecord, bool) {
	r, ok := o[dataset]
	return r, ok && r != nil
}

// ModelVar is a model output field at a column location. Column
// quantities have shape [time, level]; surface quantities have shape
// [time].
type ModelVar struct {
	Name         string
	Units        string
	StandardName string
	LongName     string
	Data         *sparse.DenseArray
}

// IsSurface reports whether v has no vertical dimension.
func (v *ModelVar) IsSurface() bool { return len(v.Data.Shape) == 1 }

// Copy returns a deep copy of v.
func (v *ModelVar) Copy() *ModelVar {
	o := *v
	o.Data = v.Data.Copy()
	return &o
}

// Description returns the long name of the variable, falling back to the
// standard name.
func (v *ModelVar) Description() string {
	if v.LongName != "" {
		return v.LongName
	}
	return v.StandardName
}

// ModelColumn holds model time series at one location and experiment.
// Alt has shape [time, level] and holds the height of each model level
// above ground.
type ModelColumn struct {
	Experiment string
	Location   string
	Lat, Lon   float64
	Times      []time.Time
	Alt        *sparse.DenseArray
	AltUnits   string
	Vars       map[string]*ModelVar
}

// NewModelColumn creates an empty column.
func NewModelColumn(experiment, location string, times []time.Time) *ModelColumn {
	return &ModelColumn{
		Experiment: experiment,
		Location:   location,
		Times:      times,
		AltUnits:   "m",
		Vars:       make(map[string]*ModelVar),
	}
}

// Var returns the variable with the given name.
func (c *ModelColumn) Var(name string) (*ModelVar, bool) {
	v, ok := c.Vars[name]
	return v, ok
}

// NumLevels returns the number of model levels, or 0 if the column has
// no altitude information.
func (c *ModelColumn) NumLevels() int {
	if c.Alt == nil || len(c.Alt.Shape) != 2 {
		return 0
	}
	return c.Alt.Shape[1]
}

// AltAt returns the level heights at time index t.
func (c *ModelColumn) AltAt(t int) []float64 {
	n := c.NumLevels()
	return c.Alt.Elements[t*n : (t+1)*n]
}

// MeanAlt returns the time-averaged height of each level.
func (c *ModelColumn) MeanAlt() []float64 {
	n := c.NumLevels()
	out := make([]float64, n)
	if n == 0 || len(c.Times) == 0 {
		return out
	}
	for t := range c.Times {
		for k, z := range c.AltAt(t) {
			out[k] += z
		}
	}
	for k := range out {
		out[k] /= float64(len(c.Times))
	}
	return out
}

// Copy returns a deep copy of c.
func (c *ModelColumn) Copy() *ModelColumn {
	o := NewModelColumn(c.Experiment, c.Location, append([]time.Time(nil), c.Times...))
	o.Lat, o.Lon = c.Lat, c.Lon
	o.AltUnits = c.AltUnits
	if c.Alt != nil {
		o.Alt = c.Alt.Copy()
	}
	for n, v := range c.Vars {
		o.Vars[n] = v.Copy()
	}
	return o
}

// ModelData holds model columns by experiment and location.
type ModelData map[string]map[string]*ModelColumn

// Column returns the column for an experiment and location.
func (m ModelData) Column(experiment, location string) (*ModelColumn, bool) {
	locs, ok := m[experiment]
	if !ok {
		return nil, false
	}
	c, ok := locs[location]
	return c, ok && c != nil
}

// Add stores c under its experiment and location.
func (m ModelData) Add(c *ModelColumn) {
	if m[c.Experiment] == nil {
		m[c.Experiment] = make(map[string]*ModelColumn)
	}
	m[c.Experiment][c.Location] = c
}
