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

package plotutil

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/kr/pretty"
	"github.com/spatialmodel/wrfplot"
)

var testStart = time.Date(2020, 5, 17, 0, 0, 0, 0, time.UTC)

const testHours = 6

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "plotutil")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func hourly(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = testStart.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// testColumn is a model column at FINO with winds increasing with
// height and temperature decreasing with height.
func testColumn(exp string, offset float64) *wrfplot.ModelColumn {
	c := wrfplot.NewModelColumn(exp, "FINO", hourly(testHours))
	levels := []float64{10, 50, 100, 200}
	nt, nz := testHours, len(levels)
	c.Alt = sparse.ZerosDense(nt, nz)
	u := sparse.ZerosDense(nt, nz)
	v := sparse.ZerosDense(nt, nz)
	tk := sparse.ZerosDense(nt, nz)
	for i := 0; i < nt; i++ {
		for k, z := range levels {
			c.Alt.Set(z, i, k)
			u.Set(offset+z/10+float64(i), i, k)
			v.Set(offset+z/20, i, k)
			tk.Set(290-z/100+float64(i), i, k)
		}
	}
	c.Vars["U"] = &wrfplot.ModelVar{Name: "U", Units: "m s-1", StandardName: "eastward_wind", Data: u}
	c.Vars["V"] = &wrfplot.ModelVar{Name: "V", Units: "m s-1", StandardName: "northward_wind", Data: v}
	c.Vars["T"] = &wrfplot.ModelVar{Name: "T", Units: "K", StandardName: "air_temperature", Data: tk}
	return c
}

// testObs is a FINO record of dataset Testset.
func testObs() *wrfplot.ObsRecord {
	rec := wrfplot.NewObsRecord("Testset", wrfplot.Station{Name: "FINO", Lat: 54.01, Lon: 6.59, Elevation: 20}, hourly(testHours))
	add := func(name, units string, f func(i int) float64) {
		vals := make([]float64, testHours)
		for i := range vals {
			vals[i] = f(i)
		}
		if err := rec.AddVariable(&wrfplot.Variable{Name: name, Units: units, Values: vals}); err != nil {
			panic(err)
		}
	}
	add("WSP_USA_82", "m s-1", func(i int) float64 { return 8 + float64(i) })
	add("DIR_USA_82", "degree", func(i int) float64 { return 30 * float64(i) })
	add("T_30", "K", func(i int) float64 { return 289 + float64(i) })
	add("T_80", "K", func(i int) float64 { return 288 + float64(i) })
	add("P_20", "hPa", func(i int) float64 { return 1010 })
	add("P_90", "hPa", func(i int) float64 { return 1001.5 })
	return rec
}

// testObsWithoutPressure returns testObs without its pressure sensors.
func testObsWithoutPressure() *wrfplot.ObsRecord {
	rec := testObs().Copy()
	delete(rec.Vars, "P_20")
	delete(rec.Vars, "P_90")
	return rec
}

// project writes a registry with experiments exp1, exp2 and empty (which
// has no output), time series output for exp1 and exp2 and an archive
// holding Testset and Nopressure. It returns the registry path and archive root.
func project(t *testing.T, dir string) (registry, archive string) {
	registry = filepath.Join(dir, "experiments.toml")
	toml := "Project = \"Testproject\"\n"
	for i, exp := range []string{"exp1", "exp2", "empty"} {
		workdir := filepath.Join(dir, "runs", exp)
		if err := os.MkdirAll(workdir, os.ModePerm); err != nil {
			t.Fatal(err)
		}
		toml += fmt.Sprintf("[Experiments.%s]\nWorkdir = %q\nLocations = [\"FINO\"]\n", exp, workdir)
		if exp == "empty" {
			continue
		}
		path := wrfplot.TSListPath(workdir, wrfplot.TSListPrefix("raw"), "d01")
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			t.Fatal(err)
		}
		if err := wrfplot.WriteTSList(path, []*wrfplot.ModelColumn{testColumn(exp, float64(i))}); err != nil {
			t.Fatal(err)
		}
	}
	if err := ioutil.WriteFile(registry, []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	archive = filepath.Join(dir, "archive")
	if _, err := wrfplot.WriteArchive(archive, "Testset", []*wrfplot.ObsRecord{testObs()}, wrfplot.NoSplit, false); err != nil {
		t.Fatal(err)
	}
	if _, err := wrfplot.WriteArchive(archive, "Nopressure", []*wrfplot.ObsRecord{testObsWithoutPressure()}, wrfplot.NoSplit, false); err != nil {
		t.Fatal(err)
	}
	return registry, archive
}

func TestLoadModelData(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	registry, _ := project(t, dir)
	reg, err := LoadRegistry(registry)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := LoadModelData(reg, []string{"exp1", "exp2", "empty", "unregistered"}, ModelSource{Domain: "d01", Window: "raw"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mod) != 2 {
		t.Errorf("want 2 experiments, got %d", len(mod))
	}
	c, ok := mod.Column("exp2", "FINO")
	if !ok {
		t.Fatal("exp2 at FINO missing")
	}
	if len(c.Times) != testHours || c.NumLevels() != 4 {
		t.Errorf("exp2 shape: %d times, %d levels", len(c.Times), c.NumLevels())
	}
	start, end, ok := ModelSpan(mod)
	if !ok || !start.Equal(testStart) || !end.Equal(testStart.Add((testHours-1)*time.Hour)) {
		t.Errorf("model span: %v %v %v", start, end, ok)
	}

	cols, err := ConcatModelData(reg, []string{"exp1"}, ModelSource{Domain: "d01", Window: "raw"})
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := cols["FINO"]; !ok || len(cols) != 1 || c.Experiment != "exp1" {
		t.Errorf("concatenated columns: %v", cols)
	}
	if _, err := ConcatModelData(reg, []string{"exp1", "empty"}, ModelSource{Domain: "d01", Window: "raw"}); !errors.Is(err, wrfplot.ErrNoData) {
		t.Errorf("experiment without output: want ErrNoData, got %v", err)
	}
}

func TestLoadObsData(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	_, archive := project(t, dir)
	reader := wrfplot.NewObsReader(wrfplot.ArchiveConfig{Root: archive})
	start, end := YearRange(testStart)
	obs, err := LoadObsData(context.Background(), reader, []ObsSource{
		{Dataset: "Testset", Station: "FINO"},
		{Name: "other", Dataset: "Testset", Station: "nowhere"},
		{Name: "missing", Dataset: "Missing", Station: "FINO"},
	}, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 1 {
		t.Fatalf("want 1 record, got %d", len(obs))
	}
	rec, ok := obs["FINO"]
	if !ok {
		t.Fatal("record not stored under the station name")
	}
	if len(rec.Times) != testHours {
		t.Errorf("times: %v", rec.Times)
	}
	pt, ok := rec.Variable("PT_80")
	if !ok {
		t.Fatal("potential temperature not added")
	}
	// About 1002.7 hPa at 100 m above sea level.
	if v := pt.Values[0]; !(v > 287.5 && v < 288) {
		t.Errorf("PT_80: want about 287.8 K, got %g", v)
	}
	if pt.Units != "K" {
		t.Errorf("PT_80 units: %s", pt.Units)
	}
}

func TestLoadObsDataWithoutPressure(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	_, archive := project(t, dir)
	reader := wrfplot.NewObsReader(wrfplot.ArchiveConfig{Root: archive})
	start, end := YearRange(testStart)
	obs, err := LoadObsData(context.Background(), reader, []ObsSource{{Dataset: "Nopressure", Station: "FINO"}}, start, end)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := obs["FINO"]
	if !ok {
		t.Fatal("record missing")
	}
	if _, ok := rec.Variable("T_80"); !ok {
		t.Error("temperature missing")
	}
	if _, ok := rec.Variable("PT_80"); ok {
		t.Error("potential temperature added without pressure sensors")
	}
}

func TestYearRange(t *testing.T) {
	start, end := YearRange(testStart)
	if !start.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("year range: %v, %v", start, end)
	}
}

func TestRegistry(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	registry, _ := project(t, dir)
	reg, err := LoadRegistry(registry)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Project != "Testproject" {
		t.Errorf("project: %s", reg.Project)
	}
	want := map[string]Experiment{
		"exp1":  {Workdir: filepath.Join(dir, "runs", "exp1"), Locations: []string{"FINO"}},
		"exp2":  {Workdir: filepath.Join(dir, "runs", "exp2"), Locations: []string{"FINO"}},
		"empty": {Workdir: filepath.Join(dir, "runs", "empty"), Locations: []string{"FINO"}},
	}
	if diff := pretty.Diff(reg.Experiments, want); len(diff) > 0 {
		t.Errorf("experiments: %v", diff)
	}
	if !reflect.DeepEqual(reg.Names(), []string{"empty", "exp1", "exp2"}) {
		t.Errorf("names: %v", reg.Names())
	}
	wd, err := reg.Workdir("exp1")
	if err != nil || wd != filepath.Join(dir, "runs", "exp1") {
		t.Errorf("workdir: %s, %v", wd, err)
	}
	locs, err := reg.Locations("exp2")
	if err != nil || !reflect.DeepEqual(locs, []string{"FINO"}) {
		t.Errorf("locations: %v, %v", locs, err)
	}
	var cerr *wrfplot.ConfigError
	if _, err := reg.Workdir("exp3"); !errors.As(err, &cerr) {
		t.Errorf("unknown experiment: want ConfigError, got %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := ioutil.WriteFile(bad, []byte("[Experiments.x]\nLocations = [\"FINO\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistry(bad); !errors.As(err, &cerr) {
		t.Errorf("missing workdir: want ConfigError, got %v", err)
	}
}
