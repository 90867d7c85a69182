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

// Package mapextract extracts horizontal fields from WRF output files
// for maps, together with the terrain height and a forest mask, and
// keeps them in small intermediate NetCDF files so that maps can be
// redrawn without reopening the full model output.
package mapextract

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfplot"
)

// Surface is the model level of fields without a vertical dimension.
const Surface = -1

// Field is a horizontal field on the WRF mass grid.
type Field struct {
	Name        string
	Description string
	Units       string
	Domain      string

	// ModelLevel is the zero-based model level, or Surface.
	ModelLevel int

	Times []time.Time

	// Lat and Lon have shape [y, x].
	Lat, Lon *sparse.DenseArray

	// Data has shape [time, y, x].
	Data *sparse.DenseArray

	Projection Projection
}

// Level returns the model level as written in file names and
// attributes: "sfc" for surface fields.
func (f *Field) Level() string {
	if f.ModelLevel == Surface {
		return "sfc"
	}
	return strconv.Itoa(f.ModelLevel)
}

// At returns the values at time index t.
func (f *Field) At(t int) []float64 {
	n := f.Data.Shape[1] * f.Data.Shape[2]
	return f.Data.Elements[t*n : (t+1)*n]
}

// Index returns the time index of t.
func (f *Field) Index(t time.Time) (int, bool) {
	for i, tt := range f.Times {
		if tt.Equal(t) {
			return i, true
		}
	}
	return -1, false
}

// MapField returns time index t of f in the form used for map limits
// and labels.
func (f *Field) MapField(t int) wrfplot.MapField {
	return wrfplot.MapField{
		Name:        f.Name,
		Description: f.Description,
		Units:       f.Units,
		ModelLevel:  f.ModelLevel,
		Values:      f.At(t),
		Lon:         f.Lon.Elements,
		Lat:         f.Lat.Elements,
	}
}

// Extraction is a field together with the terrain height and forest
// mask of its domain.
type Extraction struct {
	Field   *Field
	Terrain *Field
	Forest  *Field
}

// fieldSpec describes how a map variable is computed from WRF output.
type fieldSpec struct {
	description string
	units       string
	surface     bool
	// static fields are read from the first record only.
	static  bool
	compute func(w *wrfout, rec, k int) ([]float64, error)
}

func passLevel(v string) func(w *wrfout, rec, k int) ([]float64, error) {
	return func(w *wrfout, rec, k int) ([]float64, error) { return w.level(v, rec, k) }
}

func passSurface(v string) func(w *wrfout, rec, k int) ([]float64, error) {
	return func(w *wrfout, rec, _ int) ([]float64, error) {
		d, err := w.surface(v, rec)
		if err != nil {
			return nil, err
		}
		return d.Elements, nil
	}
}

func windSpeed(w *wrfout, rec, k int) ([]float64, error) {
	u, v, err := w.winds(rec, k)
	if err != nil {
		return nil, err
	}
	return speed(u, v), nil
}

func windDir(w *wrfout, rec, k int) ([]float64, error) {
	u, v, err := w.winds(rec, k)
	if err != nil {
		return nil, err
	}
	return wrfplot.WindDirections(u, v), nil
}

func windComponent(i int) func(w *wrfout, rec, k int) ([]float64, error) {
	return func(w *wrfout, rec, k int) ([]float64, error) {
		u, v, err := w.winds(rec, k)
		if err != nil {
			return nil, err
		}
		return [][]float64{u, v}[i], nil
	}
}

func surfaceWind(f func(w *wrfout, rec, k int) ([]float64, error)) func(w *wrfout, rec, k int) ([]float64, error) {
	return func(w *wrfout, rec, _ int) ([]float64, error) { return f(w, rec, Surface) }
}

func surfaceSpec(v, description, units string) fieldSpec {
	return fieldSpec{
		description: description,
		units:       units,
		surface:     true,
		compute:     passSurface(v),
	}
}

var pressureSpec = fieldSpec{
	description: "pressure",
	units:       "Pa",
	compute:     (*wrfout).pressure,
}

// fields holds the map variables with a fixed description and units.
// Other names are read directly.
var fields = map[string]fieldSpec{
	"T": {
		description: "temperature",
		units:       "K",
		compute:     (*wrfout).temperature,
	},
	"PT": {
		description: "potential temperature (theta)",
		units:       "K",
		compute:     (*wrfout).theta,
	},
	"WSP": {
		description: "earth rotated wspd",
		units:       "m s-1",
		compute:     windSpeed,
	},
	"DIR": {
		description: "earth rotated wdir",
		units:       "degrees",
		compute:     windDir,
	},
	"U": {
		description: "destaggered u-wind component",
		units:       "m s-1",
		compute:     passLevel("U"),
	},
	"V": {
		description: "destaggered v-wind component",
		units:       "m s-1",
		compute:     passLevel("V"),
	},
	"W": {
		description: "destaggered w-wind component",
		units:       "m s-1",
		compute:     passLevel("W"),
	},
	"WSP10": {
		description: "earth rotated wspd at 10 m",
		units:       "m s-1",
		surface:     true,
		compute:     surfaceWind(windSpeed),
	},
	"DIR10": {
		description: "earth rotated wdir at 10 m",
		units:       "degrees",
		surface:     true,
		compute:     surfaceWind(windDir),
	},
	"U10": {
		description: "earth rotated u-wind component at 10 m",
		units:       "m s-1",
		surface:     true,
		compute:     surfaceWind(windComponent(0)),
	},
	"V10": {
		description: "earth rotated v-wind component at 10 m",
		units:       "m s-1",
		surface:     true,
		compute:     surfaceWind(windComponent(1)),
	},
	"P":      pressureSpec,
	"PRES":   pressureSpec,
	"HFX":    surfaceSpec("HFX", "upward heat flux at the surface", "W m-2"),
	"LH":     surfaceSpec("LH", "latent heat flux at the surface", "W m-2"),
	"GRDFLX": surfaceSpec("GRDFLX", "ground heat flux", "W m-2"),
	"PSFC":   surfaceSpec("PSFC", "surface pressure", "Pa"),
	"LU_INDEX": {
		description: "land use category",
		surface:     true,
		static:      true,
		compute:     passSurface("LU_INDEX"),
	},
	"HGT": {
		description: "Terrain Height",
		units:       "m",
		surface:     true,
		static:      true,
		compute:     passSurface("HGT"),
	},
}

// lookupField returns the field definition of v. Variables that are not in fields
// are read as they are, as surface fields if they have no vertical
// dimension.
func lookupField(w *wrfout, v string) (fieldSpec, error) {
	if s, ok := fields[v]; ok {
		return s, nil
	}
	if !w.f.Has(v) {
		return fieldSpec{}, w.missing(v)
	}
	s := fieldSpec{
		description: w.f.Attr(v, "description"),
		units:       w.f.Attr(v, "units"),
	}
	switch len(w.f.Dims(v)) {
	case 3:
		s.surface = true
		s.compute = passSurface(v)
	case 4:
		s.compute = passLevel(v)
	default:
		return fieldSpec{}, fmt.Errorf("mapextract: %s in %s is not a gridded field", v, w.f.Name)
	}
	return s, nil
}

// Extractor extracts map fields and stores them as intermediate files
// in IntermediateDir.
type Extractor struct {
	IntermediateDir string
}

// Extract reads variable v at model level k from the WRF output file at
// path. If at is the zero time, all times in the file are extracted;
// otherwise only the record at exactly that time. Surface variables
// ignore k.
func (e *Extractor) Extract(path, domain, v string, k int, at time.Time) (*Extraction, error) {
	w, err := openWRFOut(path)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	s, err := lookupField(w, v)
	if err != nil {
		return nil, err
	}
	recs := make([]int, len(w.times))
	for i := range recs {
		recs[i] = i
	}
	if !at.IsZero() {
		i, ok := w.timeIndex(at)
		if !ok {
			return nil, fmt.Errorf("mapextract: %w: time %s not in %s", wrfplot.ErrNoData, at.Format(wrfTimeFormat), path)
		}
		recs = []int{i}
	}
	if s.static {
		recs = []int{0}
	}
	level := k
	if s.surface {
		level = Surface
	} else if k < 0 {
		return nil, fmt.Errorf("mapextract: %s needs a model level", v)
	}

	f := w.newField(v, s.description, s.units, domain, level)
	f.Data = sparse.ZerosDense(len(recs), w.ny, w.nx)
	n := w.ny * w.nx
	for i, rec := range recs {
		vals, err := s.compute(w, rec, level)
		if err != nil {
			return nil, err
		}
		copy(f.Data.Elements[i*n:(i+1)*n], vals)
		f.Times = append(f.Times, w.times[rec])
	}

	terrain, err := w.staticField("HGT", fields["HGT"])
	if err != nil {
		return nil, err
	}
	terrain.Domain = domain
	forest, err := w.staticField("FOREST", fieldSpec{
		description: "forest mask",
		compute: func(w *wrfout, rec, k int) ([]float64, error) {
			codes, err := passSurface("LU_INDEX")(w, rec, k)
			if err != nil {
				return nil, err
			}
			return ForestMask(codes), nil
		},
	})
	if err != nil {
		return nil, err
	}
	forest.Domain = domain

	wrfplot.Log.WithFields(logrus.Fields{
		"file":  path,
		"var":   v,
		"level": f.Level(),
		"times": len(f.Times),
	}).Debug("extracted map field")
	return &Extraction{Field: f, Terrain: terrain, Forest: forest}, nil
}

func (w *wrfout) newField(name, description, units, domain string, level int) *Field {
	lat := sparse.ZerosDense(w.ny, w.nx)
	copy(lat.Elements, w.lat)
	lon := sparse.ZerosDense(w.ny, w.nx)
	copy(lon.Elements, w.lon)
	return &Field{
		Name:        name,
		Description: description,
		Units:       units,
		Domain:      domain,
		ModelLevel:  level,
		Lat:         lat,
		Lon:         lon,
		Projection:  w.proj,
	}
}

// staticField reads the first record of a surface field.
func (w *wrfout) staticField(name string, s fieldSpec) (*Field, error) {
	vals, err := s.compute(w, 0, Surface)
	if err != nil {
		return nil, err
	}
	f := w.newField(name, s.description, s.units, "", Surface)
	f.Times = []time.Time{w.times[0]}
	f.Data = sparse.ZerosDense(1, w.ny, w.nx)
	copy(f.Data.Elements, vals)
	return f, nil
}
