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

package mapextract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfplot"
	"github.com/spatialmodel/wrfplot/internal/ncf"
)

// TimestampFormat is the layout of the timestamp in intermediate file
// names.
const TimestampFormat = "20060102_150405"

// AllTimes requests every stored time step from Load.
const AllTimes = "*"

const (
	timesVar = "Times"
	latVar   = "XLAT"
	lonVar   = "XLONG"
)

func levelSuffix(k int) string {
	if k == Surface {
		return ""
	}
	return "_ml" + strconv.Itoa(k)
}

// IntermediateName returns the file name of the intermediate file for
// variable v at model level k starting at timestamp, which is formatted
// with TimestampFormat.
func IntermediateName(domain, v string, k int, timestamp string) string {
	return fmt.Sprintf("Interm_%s_%s_%s%s.nc", domain, v, timestamp, levelSuffix(k))
}

// TerrainName and ForestName return the names of the per-domain terrain
// and forest mask files.
func TerrainName(domain string) string { return fmt.Sprintf("hgt_%s.nc", domain) }

// ForestName returns the name of the per-domain forest mask file.
func ForestName(domain string) string { return fmt.Sprintf("ivg_%s.nc", domain) }

// Store writes the field, terrain, and forest mask of ex to the
// intermediate directory and returns the paths written.
func (e *Extractor) Store(ex *Extraction) ([]string, error) {
	f := ex.Field
	if f == nil || len(f.Times) == 0 {
		return nil, fmt.Errorf("mapextract: %w: nothing to store", wrfplot.ErrNoData)
	}
	paths := []string{
		filepath.Join(e.IntermediateDir, IntermediateName(f.Domain, f.Name, f.ModelLevel, f.Times[0].Format(TimestampFormat))),
		filepath.Join(e.IntermediateDir, TerrainName(f.Domain)),
		filepath.Join(e.IntermediateDir, ForestName(f.Domain)),
	}
	for i, ff := range []*Field{f, ex.Terrain, ex.Forest} {
		if ff == nil {
			return nil, fmt.Errorf("mapextract: missing terrain or forest mask for %s", paths[i])
		}
		if err := writeField(paths[i], f.Domain, ff); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func writeField(path, domain string, f *Field) error {
	nt, ny, nx := len(f.Times), f.Lat.Shape[0], f.Lat.Shape[1]
	h := cdf.NewHeader([]string{"Time", "south_north", "west_east"}, []int{nt, ny, nx})
	h.AddAttribute("", "dom", domain)
	attrs := f.Projection.attributes()
	for _, a := range projectionAttrs {
		h.AddAttribute("", a.interm, attrs[a.interm])
	}
	h.AddVariable(timesVar, []string{"Time"}, []float64{0})
	h.AddAttribute(timesVar, "units", ncf.TimeUnits)
	h.AddAttribute(timesVar, "standard_name", "time")
	for _, c := range []struct{ name, units, std string }{
		{latVar, "degrees_north", "latitude"},
		{lonVar, "degrees_east", "longitude"},
	} {
		h.AddVariable(c.name, []string{"south_north", "west_east"}, []float32{0})
		h.AddAttribute(c.name, "units", c.units)
		h.AddAttribute(c.name, "standard_name", c.std)
	}
	h.AddVariable(f.Name, []string{"Time", "south_north", "west_east"}, []float32{0})
	h.AddAttribute(f.Name, "model_level", f.Level())
	if f.Description != "" {
		h.AddAttribute(f.Name, "description", f.Description)
	}
	if f.Units != "" {
		h.AddAttribute(f.Name, "units", f.Units)
	}
	h.AddAttribute(f.Name, "coordinates", "XLONG XLAT")

	w, err := ncf.Create(path, h)
	if err != nil {
		return fmt.Errorf("mapextract: %w", err)
	}
	for _, d := range []struct {
		name string
		data []float64
	}{
		{timesVar, ncf.EncodeTimes(f.Times)},
		{latVar, f.Lat.Elements},
		{lonVar, f.Lon.Elements},
		{f.Name, f.Data.Elements},
	} {
		if err := w.WriteFloats(d.name, d.data); err != nil {
			w.Abort()
			return fmt.Errorf("mapextract: %w", err)
		}
	}
	return w.Close()
}

// readField reads variable v from the intermediate file at path.
func readField(path, v string) (*Field, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("mapextract: %w: %s does not exist", wrfplot.ErrNoData, path)
	}
	nf, err := ncf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	defer nf.Close()
	p, err := readProjection(nf, false)
	if err != nil {
		return nil, err
	}
	if !nf.Has(v) {
		return nil, fmt.Errorf("mapextract: %w: variable %s not in %s", wrfplot.ErrNoData, v, path)
	}
	f := &Field{
		Name:        v,
		Description: nf.Attr(v, "description"),
		Units:       nf.Attr(v, "units"),
		Domain:      nf.Attr("", "dom"),
		ModelLevel:  Surface,
		Projection:  p,
	}
	if lvl := nf.Attr(v, "model_level"); lvl != "" && lvl != "sfc" {
		if f.ModelLevel, err = strconv.Atoi(lvl); err != nil {
			return nil, fmt.Errorf("mapextract: model_level %q of %s in %s", lvl, v, path)
		}
	}
	if f.Times, err = nf.ReadTimes(timesVar); err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	if f.Lat, err = nf.Read(latVar); err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	if f.Lon, err = nf.Read(lonVar); err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	if f.Data, err = nf.Read(v); err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	return f, nil
}

// concatFields joins fields on the same grid along time.
func concatFields(fs []*Field) (*Field, error) {
	first := fs[0]
	ny, nx := first.Lat.Shape[0], first.Lat.Shape[1]
	var times []time.Time
	for _, f := range fs {
		if f.Lat.Shape[0] != ny || f.Lat.Shape[1] != nx {
			return nil, fmt.Errorf("mapextract: cannot join %s fields on %dx%d and %dx%d grids",
				first.Name, ny, nx, f.Lat.Shape[0], f.Lat.Shape[1])
		}
		times = append(times, f.Times...)
	}
	out := *first
	out.Times = times
	out.Data = sparse.ZerosDense(len(times), ny, nx)
	i := 0
	for _, f := range fs {
		i += copy(out.Data.Elements[i:], f.Data.Elements)
	}
	return &out, nil
}

// Load reads the intermediate files of variable v at model level k
// (Surface for surface fields) in domain. The timestamp selects a
// single file; AllTimes joins every matching file along time. In that
// case files with malformed projection metadata are skipped.
func (e *Extractor) Load(domain, v string, k int, timestamp string) (*Extraction, error) {
	var field *Field
	if timestamp == AllTimes {
		paths, err := e.matching(domain, v, k)
		if err != nil {
			return nil, err
		}
		var fs []*Field
		for _, p := range paths {
			f, err := readField(p, v)
			var perr *ProjectionError
			if errors.As(err, &perr) {
				wrfplot.Log.WithFields(logrus.Fields{"file": p, "reason": err}).Warn("skipping intermediate file")
				continue
			} else if err != nil {
				return nil, err
			}
			fs = append(fs, f)
		}
		if len(fs) == 0 {
			return nil, fmt.Errorf("mapextract: %w: no readable intermediate files for %s", wrfplot.ErrNoData, v)
		}
		if field, err = concatFields(fs); err != nil {
			return nil, err
		}
	} else {
		var err error
		field, err = readField(filepath.Join(e.IntermediateDir, IntermediateName(domain, v, k, timestamp)), v)
		if err != nil {
			return nil, err
		}
	}
	terrain, err := readField(filepath.Join(e.IntermediateDir, TerrainName(domain)), "HGT")
	if err != nil {
		return nil, err
	}
	forest, err := readField(filepath.Join(e.IntermediateDir, ForestName(domain)), "FOREST")
	if err != nil {
		return nil, err
	}
	return &Extraction{Field: field, Terrain: terrain, Forest: forest}, nil
}

// matching returns the intermediate files of v at level k in time order.
func (e *Extractor) matching(domain, v string, k int) ([]string, error) {
	re, err := regexp.Compile("^" + regexp.QuoteMeta(fmt.Sprintf("Interm_%s_%s_", domain, v)) +
		`\d{8}_\d{6}` + regexp.QuoteMeta(levelSuffix(k)+".nc") + "$")
	if err != nil {
		return nil, err
	}
	entries, err := filepath.Glob(filepath.Join(e.IntermediateDir, "Interm_*.nc"))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range entries {
		if re.MatchString(filepath.Base(p)) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("mapextract: %w: no intermediate files for %s at level %d in %s", wrfplot.ErrNoData, v, k, e.IntermediateDir)
	}
	sort.Strings(paths)
	return paths, nil
}
