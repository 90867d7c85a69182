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

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfplot/internal/ncf"
)

// ArchiveDataVersion is written to every archive file.
const ArchiveDataVersion = "1.0"

// Names of coordinate variables in archive files.
const (
	timeVar      = "time"
	stationVar   = "station_name"
	latVar       = "lat"
	lonVar       = "lon"
	elevationVar = "station_elevation"
)

// isStationDim reports whether d names the station dimension. Files
// written by xarray use "station_name", the name of the coordinate.
func isStationDim(d string) bool {
	return d == "station" || d == stationVar
}

var coordinateVars = map[string]bool{
	timeVar: true, stationVar: true, latVar: true, lonVar: true, elevationVar: true,
}

var reservedAttrs = map[string]bool{
	"featureType": true, "Conventions": true, "dataset": true, "data_version": true,
	stationVar: true, latVar: true, lonVar: true, elevationVar: true,
}

// readArchiveFile reads all stations from a CF timeSeries archive file.
// Files may hold a station dimension with per-station coordinate
// variables, or a single station described by global attributes.
func readArchiveFile(path, dataset string) ([]*ObsRecord, error) {
	f, err := ncf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	times, err := f.ReadTimes(timeVar)
	if err != nil {
		return nil, fmt.Errorf("wrfplot: reading times from %s: %w", path, err)
	}
	stations, err := archiveStations(f)
	if err != nil {
		return nil, err
	}
	recs := make([]*ObsRecord, len(stations))
	for i, s := range stations {
		recs[i] = NewObsRecord(dataset, s, append([]time.Time(nil), times...))
		for _, a := range f.Header.Attributes("") {
			if val, ok := f.Header.GetAttribute("", a).(string); ok && !reservedAttrs[a] {
				recs[i].Attrs[a] = val
			}
		}
	}
	nt, ns := len(times), len(stations)
	for _, name := range f.Header.Variables() {
		if coordinateVars[name] {
			continue
		}
		dims := f.Dims(name)
		var index func(t, s int) int
		switch {
		case len(dims) == 1 && dims[0] == timeVar && ns == 1:
			index = func(t, _ int) int { return t }
		case len(dims) == 2 && dims[0] == timeVar && isStationDim(dims[1]):
			index = func(t, s int) int { return t*ns + s }
		case len(dims) == 2 && isStationDim(dims[0]) && dims[1] == timeVar:
			index = func(t, s int) int { return s*nt + t }
		default:
			Log.WithFields(logrus.Fields{"file": path, "var": name, "dims": dims}).Warn("skipping variable with unexpected dimensions")
			continue
		}
		data, err := f.Read(name)
		if err != nil {
			return nil, err
		}
		fill, hasFill := f.Float(name, "_FillValue")
		for s, rec := range recs {
			vals := make([]float64, nt)
			for t := range vals {
				v := data.Elements[index(t, s)]
				if hasFill && v == fill {
					v = math.NaN()
				}
				vals[t] = v
			}
			rec.Vars[name] = &Variable{
				Name:         name,
				Units:        f.Attr(name, "units"),
				StandardName: f.Attr(name, "standard_name"),
				LongName:     f.Attr(name, "long_name"),
				Values:       vals,
			}
		}
	}
	return recs, nil
}

func archiveStations(f *ncf.File) ([]Station, error) {
	if !f.Has(stationVar) {
		name := f.Attr("", stationVar)
		if name == "" {
			return nil, &ConfigError{Source: f.Name, Field: stationVar, Msg: "no station name in file"}
		}
		s := Station{Name: name}
		s.Lat, _ = f.Float("", latVar)
		s.Lon, _ = f.Float("", lonVar)
		s.Elevation, _ = f.Float("", elevationVar)
		return []Station{s}, nil
	}
	names, err := f.ReadStrings(stationVar)
	if err != nil {
		return nil, err
	}
	coord := func(v string) []float64 {
		if !f.Has(v) {
			return make([]float64, len(names))
		}
		d, err := f.Read(v)
		if err != nil || len(d.Elements) != len(names) {
			return make([]float64, len(names))
		}
		return d.Elements
	}
	lat, lon, elev := coord(latVar), coord(lonVar), coord(elevationVar)
	out := make([]Station, len(names))
	for i, n := range names {
		out[i] = Station{Name: n, Lat: lat[i], Lon: lon[i], Elevation: elev[i]}
	}
	return out, nil
}

// writeArchiveFile writes records of one dataset to path. The records
// are joined on the union of their time indexes.
func writeArchiveFile(path, dataset string, recs []*ObsRecord) error {
	seen := make(map[int64]time.Time)
	varInfo := make(map[string]*Variable)
	var names []string
	strlen := 1
	for _, r := range recs {
		for _, t := range r.Times {
			seen[t.UnixNano()] = t
		}
		for _, n := range r.Names() {
			if _, ok := varInfo[n]; !ok {
				varInfo[n] = r.Vars[n]
				names = append(names, n)
			}
		}
		if len(r.Station.Name) > strlen {
			strlen = len(r.Station.Name)
		}
	}
	if len(seen) == 0 {
		return noData("no times to write to %s", path)
	}
	sort.Strings(names)
	times := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	nt, ns := len(times), len(recs)

	h := cdf.NewHeader([]string{timeVar, "station", "name_strlen"}, []int{nt, ns, strlen})
	h.AddAttribute("", "featureType", "timeSeries")
	h.AddAttribute("", "Conventions", "CF-1.6")
	h.AddAttribute("", "dataset", dataset)
	h.AddAttribute("", "data_version", ArchiveDataVersion)
	attrs := recs[0].Attrs
	attrNames := make([]string, 0, len(attrs))
	for a := range attrs {
		attrNames = append(attrNames, a)
	}
	sort.Strings(attrNames)
	for _, a := range attrNames {
		if !reservedAttrs[a] && attrs[a] != "" {
			h.AddAttribute("", a, attrs[a])
		}
	}
	h.AddVariable(timeVar, []string{timeVar}, []float64{0})
	h.AddAttribute(timeVar, "units", ncf.TimeUnits)
	h.AddAttribute(timeVar, "standard_name", "time")
	h.AddVariable(stationVar, []string{"station", "name_strlen"}, "")
	h.AddAttribute(stationVar, "cf_role", "timeseries_id")
	for _, c := range []struct{ name, units, std string }{
		{latVar, "degrees_north", "latitude"},
		{lonVar, "degrees_east", "longitude"},
		{elevationVar, "m", "height_above_mean_sea_level"},
	} {
		h.AddVariable(c.name, []string{"station"}, []float64{0})
		h.AddAttribute(c.name, "units", c.units)
		h.AddAttribute(c.name, "standard_name", c.std)
	}
	for _, n := range names {
		v := varInfo[n]
		h.AddVariable(n, []string{timeVar, "station"}, []float64{0})
		for _, a := range [][2]string{{"units", v.Units}, {"standard_name", v.StandardName}, {"long_name", v.LongName}} {
			if a[1] != "" {
				h.AddAttribute(n, a[0], a[1])
			}
		}
		h.AddAttribute(n, "coordinates", "time station_name lat lon")
	}

	w, err := ncf.Create(path, h)
	if err != nil {
		return err
	}
	if err := writeArchiveData(w, times, names, recs); err != nil {
		w.Abort()
		return fmt.Errorf("wrfplot: writing %s: %w", path, err)
	}
	return w.Close()
}

func writeArchiveData(w *ncf.Writer, times []time.Time, names []string, recs []*ObsRecord) error {
	nt, ns := len(times), len(recs)
	if err := w.WriteFloats(timeVar, ncf.EncodeTimes(times)); err != nil {
		return err
	}
	stationNames := make([]string, ns)
	lat, lon, elev := make([]float64, ns), make([]float64, ns), make([]float64, ns)
	for i, r := range recs {
		stationNames[i] = r.Station.Name
		lat[i], lon[i], elev[i] = r.Station.Lat, r.Station.Lon, r.Station.Elevation
	}
	if err := w.WriteStrings(stationVar, stationNames); err != nil {
		return err
	}
	for v, d := range map[string][]float64{latVar: lat, lonVar: lon, elevationVar: elev} {
		if err := w.WriteFloats(v, d); err != nil {
			return err
		}
	}
	pos := make(map[int64]int, nt)
	for i, t := range times {
		pos[t.UnixNano()] = i
	}
	for _, n := range names {
		data := nanSlice(nt * ns)
		for s, r := range recs {
			v, ok := r.Vars[n]
			if !ok {
				continue
			}
			for i, t := range r.Times {
				data[pos[t.UnixNano()]*ns+s] = v.Values[i]
			}
		}
		if err := w.WriteFloats(n, data); err != nil {
			return err
		}
	}
	return nil
}

// mergeRecords concatenates records of the same station along time and
// removes repeated timestamps, keeping the first occurrence. The result
// is sorted by time. Variables absent from some records are NaN there.
func mergeRecords(recs []*ObsRecord) *ObsRecord {
	if len(recs) == 0 {
		return nil
	}
	var times []time.Time
	info := make(map[string]*Variable)
	var names []string
	for _, r := range recs {
		times = append(times, r.Times...)
		for _, n := range r.Names() {
			if _, ok := info[n]; !ok {
				info[n] = r.Vars[n]
				names = append(names, n)
			}
		}
	}
	values := make(map[string][]float64, len(names))
	for _, n := range names {
		var vals []float64
		for _, r := range recs {
			if v, ok := r.Vars[n]; ok {
				vals = append(vals, v.Values...)
			} else {
				vals = append(vals, nanSlice(len(r.Times))...)
			}
		}
		values[n] = vals
	}

	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return times[order[i]].Before(times[order[j]]) })
	var keep []int
	for _, i := range order {
		if len(keep) > 0 && times[keep[len(keep)-1]].Equal(times[i]) {
			continue
		}
		keep = append(keep, i)
	}

	out := NewObsRecord(recs[0].Dataset, recs[0].Station, make([]time.Time, len(keep)))
	for i, k := range keep {
		out.Times[i] = times[k]
	}
	for _, n := range names {
		v := *info[n]
		v.Values = make([]float64, len(keep))
		for i, k := range keep {
			v.Values[i] = values[n][k]
		}
		out.Vars[n] = &v
	}
	for _, r := range recs {
		for k, a := range r.Attrs {
			if _, ok := out.Attrs[k]; !ok {
				out.Attrs[k] = a
			}
		}
	}
	return out
}
