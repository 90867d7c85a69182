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
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfplot/internal/ncf"
)

// Dimension names of time-series list files.
const (
	tsStationDim = "station"
	tsLevelDim   = "model_level"
	altVar       = "ALT"
)

// TSListPrefix returns the file prefix for an averaging window given in
// minutes: "raw" for no averaging, "Ave{N}Min" otherwise.
func TSListPrefix(window string) string {
	w := strings.TrimSpace(window)
	if w == "" || w == "0" || strings.EqualFold(w, "raw") {
		return "raw"
	}
	return "Ave" + w + "Min"
}

// TSListPath returns the path of the time-series list file of one domain
// in an experiment's working directory.
func TSListPath(workdir, prefix, domain string) string {
	return filepath.Join(workdir, "out", fmt.Sprintf("%s_tslist_%s.nc", prefix, domain))
}

// PredictionPath returns the path of a prediction-range file, which
// replaces the time-series list when a prediction range is requested.
func PredictionPath(workdir, predictionRange, domain string) string {
	return filepath.Join(workdir, "out", fmt.Sprintf("%s_%s.nc", predictionRange, domain))
}

// ReadTSList reads the columns of the requested locations from a
// time-series list file. All locations are returned if locations is
// empty. A missing file, or a file without any requested location,
// results in ErrNoData.
func ReadTSList(path, experiment string, locations []string) ([]*ModelColumn, error) {
	f, err := ncf.Open(path)
	if err != nil {
		return nil, noData("model output %s: %v", path, err)
	}
	defer f.Close()

	times, err := f.ReadTimes(timeVar)
	if err != nil {
		return nil, fmt.Errorf("wrfplot: reading times from %s: %w", path, err)
	}
	names, err := f.ReadStrings(stationVar)
	if err != nil {
		return nil, fmt.Errorf("wrfplot: reading locations from %s: %w", path, err)
	}
	want := make(map[string]bool)
	for _, l := range locations {
		want[l] = true
	}
	var lat, lon []float64
	if f.Has(latVar) && f.Has(lonVar) {
		la, err1 := f.Read(latVar)
		lo, err2 := f.Read(lonVar)
		if err1 == nil && err2 == nil {
			lat, lon = la.Elements, lo.Elements
		}
	}

	data := make(map[string]*sparse.DenseArray)
	for _, v := range f.Header.Variables() {
		dims := f.Dims(v)
		if coordinateVars[v] {
			continue
		}
		if len(dims) < 2 || !isStationDim(dims[0]) || dims[1] != timeVar {
			Log.WithFields(logrus.Fields{"file": path, "var": v, "dims": dims}).Warn("skipping variable with unexpected dimensions")
			continue
		}
		d, err := f.Read(v)
		if err != nil {
			return nil, err
		}
		data[v] = d
	}

	nt := len(times)
	var out []*ModelColumn
	for s, name := range names {
		if len(want) > 0 && !want[name] {
			continue
		}
		c := NewModelColumn(experiment, name, append([]time.Time(nil), times...))
		if lat != nil {
			c.Lat, c.Lon = lat[s], lon[s]
		}
		for v, d := range data {
			var arr *sparse.DenseArray
			if len(d.Shape) == 3 {
				nz := d.Shape[2]
				arr = sparse.ZerosDense(nt, nz)
				copy(arr.Elements, d.Elements[s*nt*nz:(s+1)*nt*nz])
			} else {
				arr = sparse.ZerosDense(nt)
				copy(arr.Elements, d.Elements[s*nt:(s+1)*nt])
			}
			if v == altVar {
				c.Alt = arr
				if u := f.Attr(v, "units"); u != "" {
					c.AltUnits = u
				}
				continue
			}
			c.Vars[v] = &ModelVar{
				Name:         v,
				Units:        f.Attr(v, "units"),
				StandardName: f.Attr(v, "standard_name"),
				LongName:     f.Attr(v, "long_name"),
				Data:         arr,
			}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, noData("none of the locations %v in %s", locations, path)
	}
	return out, nil
}

// WriteTSList writes columns that share a time index and level count to
// a time-series list file.
func WriteTSList(path string, cols []*ModelColumn) error {
	if len(cols) == 0 {
		return noData("no columns to write to %s", path)
	}
	nt, nz := len(cols[0].Times), cols[0].NumLevels()
	if nt == 0 || nz == 0 {
		return noData("empty columns for %s", path)
	}
	strlen := 1
	var names []string
	seen := make(map[string]*ModelVar)
	for _, c := range cols {
		if len(c.Times) != nt || c.NumLevels() != nz {
			return fmt.Errorf("wrfplot: column %s does not match the shape of %s", c.Location, cols[0].Location)
		}
		if len(c.Location) > strlen {
			strlen = len(c.Location)
		}
		for n, v := range c.Vars {
			if _, ok := seen[n]; !ok {
				seen[n] = v
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)

	ns := len(cols)
	h := cdf.NewHeader([]string{tsStationDim, timeVar, tsLevelDim, "name_strlen"}, []int{ns, nt, nz, strlen})
	h.AddAttribute("", "featureType", "timeSeriesProfile")
	h.AddAttribute("", "data_version", ArchiveDataVersion)
	h.AddVariable(timeVar, []string{timeVar}, []float64{0})
	h.AddAttribute(timeVar, "units", ncf.TimeUnits)
	h.AddVariable(stationVar, []string{tsStationDim, "name_strlen"}, "")
	h.AddVariable(latVar, []string{tsStationDim}, []float64{0})
	h.AddVariable(lonVar, []string{tsStationDim}, []float64{0})
	h.AddVariable(altVar, []string{tsStationDim, timeVar, tsLevelDim}, []float32{0})
	h.AddAttribute(altVar, "units", cols[0].AltUnits)
	for _, n := range names {
		v := seen[n]
		dims := []string{tsStationDim, timeVar, tsLevelDim}
		if v.IsSurface() {
			dims = dims[:2]
		}
		h.AddVariable(n, dims, []float32{0})
		for _, a := range [][2]string{{"units", v.Units}, {"standard_name", v.StandardName}, {"long_name", v.LongName}} {
			if a[1] != "" {
				h.AddAttribute(n, a[0], a[1])
			}
		}
	}
	w, err := ncf.Create(path, h)
	if err != nil {
		return err
	}
	if err := writeTSListData(w, cols, names, nt, nz); err != nil {
		w.Abort()
		return fmt.Errorf("wrfplot: writing %s: %w", path, err)
	}
	return w.Close()
}

func writeTSListData(w *ncf.Writer, cols []*ModelColumn, names []string, nt, nz int) error {
	ns := len(cols)
	if err := w.WriteFloats(timeVar, ncf.EncodeTimes(cols[0].Times)); err != nil {
		return err
	}
	locs := make([]string, ns)
	lat, lon := make([]float64, ns), make([]float64, ns)
	alt := make([]float64, 0, ns*nt*nz)
	for i, c := range cols {
		locs[i], lat[i], lon[i] = c.Location, c.Lat, c.Lon
		alt = append(alt, c.Alt.Elements...)
	}
	if err := w.WriteStrings(stationVar, locs); err != nil {
		return err
	}
	if err := w.WriteFloats(latVar, lat); err != nil {
		return err
	}
	if err := w.WriteFloats(lonVar, lon); err != nil {
		return err
	}
	if err := w.WriteFloats(altVar, alt); err != nil {
		return err
	}
	for _, n := range names {
		var data []float64
		for _, c := range cols {
			v, ok := c.Vars[n]
			if ok {
				data = append(data, v.Data.Elements...)
				continue
			}
			size := nt * nz
			if surface := w.Header.Lengths(n); len(surface) == 2 {
				size = nt
			}
			data = append(data, nanSlice(size)...)
		}
		if err := w.WriteFloats(n, data); err != nil {
			return err
		}
	}
	return nil
}

// ConcatColumns joins columns of consecutive runs of one experiment at
// one location along time. Repeated timestamps keep the first column's
// values. Variables missing from any column are dropped.
func ConcatColumns(cols ...*ModelColumn) (*ModelColumn, error) {
	if len(cols) == 0 {
		return nil, noData("no columns to join")
	}
	nz := cols[0].NumLevels()
	for _, c := range cols[1:] {
		if c.NumLevels() != nz {
			return nil, fmt.Errorf("wrfplot: can't join columns of %s with %d and %d levels", c.Location, nz, c.NumLevels())
		}
	}
	type row struct {
		col, t int
		time   time.Time
	}
	var rows []row
	for i, c := range cols {
		for t, tt := range c.Times {
			rows = append(rows, row{i, t, tt})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].time.Before(rows[j].time) })
	var keep []row
	for _, r := range rows {
		if len(keep) > 0 && keep[len(keep)-1].time.Equal(r.time) {
			continue
		}
		keep = append(keep, r)
	}
	nt := len(keep)
	out := NewModelColumn(cols[0].Experiment, cols[0].Location, make([]time.Time, nt))
	out.Lat, out.Lon, out.AltUnits = cols[0].Lat, cols[0].Lon, cols[0].AltUnits
	for i, r := range keep {
		out.Times[i] = r.time
	}
	copyRows := func(get func(c *ModelColumn) *sparse.DenseArray, width int) *sparse.DenseArray {
		var arr *sparse.DenseArray
		if width == 0 {
			arr = sparse.ZerosDense(nt)
			width = 1
		} else {
			arr = sparse.ZerosDense(nt, width)
		}
		for i, r := range keep {
			src := get(cols[r.col]).Elements[r.t*width : (r.t+1)*width]
			copy(arr.Elements[i*width:(i+1)*width], src)
		}
		return arr
	}
	if nz > 0 {
		out.Alt = copyRows(func(c *ModelColumn) *sparse.DenseArray { return c.Alt }, nz)
	}
	for n, v := range cols[0].Vars {
		complete := true
		for _, c := range cols[1:] {
			if vv, ok := c.Vars[n]; !ok || !sameShape(vv.Data.Shape[1:], v.Data.Shape[1:]) {
				complete = false
			}
		}
		if !complete {
			continue
		}
		width := 0
		if !v.IsSurface() {
			width = v.Data.Shape[1]
		}
		nv := *v
		nv.Data = copyRows(func(c *ModelColumn) *sparse.DenseArray { return c.Vars[n].Data }, width)
		out.Vars[n] = &nv
	}
	return out, nil
}
