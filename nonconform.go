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
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/wrfplot/internal/ncf"
)

// ImportConfig describes how to convert raw station files that do not
// follow the archive conventions. It is usually read from a TOML file.
type ImportConfig struct {
	// Dataset is the archive dataset the data are written to.
	Dataset string

	// Files are the raw NetCDF files, one per station. They can
	// include environment variables.
	Files []string

	// Stations holds the metadata of each file's station, in the same
	// order as Files.
	Stations []StationEntry

	// StationTable is an optional TOML file with further stations,
	// appended to Stations.
	StationTable string

	// Translator renames raw variables to archive names, e.g.
	// "wspd_40m" = "WSP_USA_40".
	Translator map[string]string

	// Attrs are added as global attributes.
	Attrs map[string]string

	// DropAttrs are raw global attributes that are not carried over.
	DropAttrs []string

	// Split is the archive split frequency: "", "YS" or "MS".
	Split string
}

// StationEntry is a row of the station metadata table.
type StationEntry struct {
	Name string
	Lat  float64
	Lon  float64
	Elev float64
}

// Station converts the entry.
func (s StationEntry) Station() Station {
	return Station{Name: s.Name, Lat: s.Lat, Lon: s.Lon, Elevation: s.Elev}
}

// LoadStationTable reads station metadata from a TOML file holding a
// [[Stations]] array, in the order the stations appear.
func LoadStationTable(path string) ([]StationEntry, error) {
	var t struct{ Stations []StationEntry }
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("wrfplot: problem reading station table %s: %v", path, err)
	}
	for i, s := range t.Stations {
		if s.Name == "" {
			return nil, &ConfigError{Source: path, Field: "Stations", Msg: fmt.Sprintf("station %d has no name", i)}
		}
	}
	return t.Stations, nil
}

// LoadImportConfig reads an ImportConfig from a TOML file.
func LoadImportConfig(path string) (*ImportConfig, error) {
	c := new(ImportConfig)
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("wrfplot: problem reading import configuration %s: %v", path, err)
	}
	for i, f := range c.Files {
		c.Files[i] = os.ExpandEnv(f)
	}
	if c.Dataset == "" {
		return nil, &ConfigError{Source: path, Field: "Dataset", Msg: "dataset name is required"}
	}
	if c.StationTable != "" {
		st, err := LoadStationTable(os.ExpandEnv(c.StationTable))
		if err != nil {
			return nil, err
		}
		c.Stations = append(c.Stations, st...)
	}
	return c, nil
}

// ReadNonConforming reads the raw files of c into archive records,
// renaming variables through the translator and completing CF metadata
// from the variable registry. A variable whose units can be determined
// neither from the file nor from the registry is a configuration error.
func ReadNonConforming(c *ImportConfig) ([]*ObsRecord, error) {
	if len(c.Stations) < len(c.Files) {
		return nil, &ConfigError{Source: c.Dataset, Field: "Stations",
			Msg: fmt.Sprintf("%d files but only %d stations", len(c.Files), len(c.Stations))}
	}
	drop := make(map[string]bool)
	for _, a := range c.DropAttrs {
		drop[a] = true
	}
	var out []*ObsRecord
	for i, path := range c.Files {
		rec, err := readNonConformingFile(path, c, c.Stations[i].Station(), drop)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func readNonConformingFile(path string, c *ImportConfig, s Station, drop map[string]bool) (*ObsRecord, error) {
	f, err := ncf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rename := func(n string) string {
		if t, ok := c.Translator[n]; ok {
			return t
		}
		return n
	}
	var rawTime string
	for _, n := range f.Header.Variables() {
		if rename(n) == timeVar {
			rawTime = n
		}
	}
	if rawTime == "" {
		return nil, &ConfigError{Source: path, Field: timeVar, Msg: "no time variable"}
	}
	times, err := f.ReadTimes(rawTime)
	if err != nil {
		return nil, &ConfigError{Source: path, Field: timeVar, Msg: err.Error()}
	}
	tdim := f.Dims(rawTime)[0]

	rec := NewObsRecord(c.Dataset, s, times)
	rec.Attrs["featureType"] = "timeSeries"
	for _, a := range f.Header.Attributes("") {
		if val, ok := f.Header.GetAttribute("", a).(string); ok && !drop[a] && !reservedAttrs[a] {
			rec.Attrs[a] = val
		}
	}
	for k, v := range c.Attrs {
		rec.Attrs[k] = v
	}
	for _, n := range f.Header.Variables() {
		dims := f.Dims(n)
		if n == rawTime || len(dims) != 1 || dims[0] != tdim {
			continue
		}
		name := rename(n)
		v := &Variable{
			Name:         name,
			Units:        f.Attr(n, "units"),
			StandardName: f.Attr(n, "standard_name"),
			LongName:     f.Attr(n, "long_name"),
		}
		if err := completeMetadata(v); err != nil {
			err.Source = path
			return nil, err
		}
		data, err := f.Read(n)
		if err != nil {
			return nil, err
		}
		v.Values = data.Elements
		if fill, ok := f.Float(n, "_FillValue"); ok {
			for i, x := range v.Values {
				if x == fill {
					v.Values[i] = math.NaN()
				}
			}
		}
		if err := rec.AddVariable(v); err != nil {
			return nil, err
		}
	}
	sortRecord(rec)
	return rec, nil
}

// completeMetadata fills missing CF attributes of v from the registry
// entry of its base name.
func completeMetadata(v *Variable) *ConfigError {
	o, err := ParseObsVarName(v.Name)
	if err != nil {
		return err.(*ConfigError)
	}
	info, ok := LookupVar(o.Base)
	if ok {
		if v.Units == "" {
			v.Units = info.Units
		}
		if v.StandardName == "" {
			v.StandardName = info.StandardName
		}
		if v.LongName == "" {
			v.LongName = info.LongName
			if o.Level != "" {
				v.LongName += " at " + o.Level + " m"
			}
		}
	}
	if v.Units == "" {
		return &ConfigError{Field: v.Name, Msg: "units are not defined and the variable is not registered"}
	}
	return nil
}

// sortRecord orders a freshly read record by time and removes repeated
// timestamps.
func sortRecord(rec *ObsRecord) {
	sorted := true
	for i := 1; i < len(rec.Times); i++ {
		if !rec.Times[i-1].Before(rec.Times[i]) {
			sorted = false
			break
		}
	}
	if sorted {
		return
	}
	m := mergeRecords([]*ObsRecord{rec})
	rec.Times, rec.Vars = m.Times, m.Vars
}

// timesOf is a convenience used by import code to report a range.
func timesOf(recs []*ObsRecord) (start, end time.Time) {
	for _, r := range recs {
		if len(r.Times) == 0 {
			continue
		}
		if start.IsZero() || r.Times[0].Before(start) {
			start = r.Times[0]
		}
		if e := r.Times[len(r.Times)-1]; e.After(end) {
			end = e
		}
	}
	return start, end
}

// Import reads the raw files of c and writes them to the archive under
// root. It returns the files written.
func Import(root string, c *ImportConfig, overwrite bool) ([]string, error) {
	split, err := ParseSplit(c.Split)
	if err != nil {
		return nil, err
	}
	recs, err := ReadNonConforming(c)
	if err != nil {
		return nil, err
	}
	start, end := timesOf(recs)
	Log.WithField("source", c.Dataset).Infof("importing %d stations from %v to %v", len(recs), start, end)
	return WriteArchive(root, c.Dataset, recs, split, overwrite)
}
