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
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/wrfplot"
	"github.com/spatialmodel/wrfplot/mapextract"
)

func testData() (wrfplot.ObsData, wrfplot.ModelData) {
	obs := wrfplot.ObsData{"Testset": testObs()}
	mod := make(wrfplot.ModelData)
	mod.Add(testColumn("exp1", 0))
	mod.Add(testColumn("exp2", 1))
	return obs, mod
}

func testRequest(t *testing.T, r wrfplot.Request) *wrfplot.Request {
	r.Location = "FINO"
	r.Experiments = []string{"exp1", "exp2"}
	r.Observations = []string{"Testset"}
	req, err := wrfplot.NewRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func checkSaved(t *testing.T, info wrfplot.PlotInfo, data interface{}, path string) {
	p, err := Render(info, data)
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(p, path); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Errorf("%s is empty", path)
	}
}

func TestRender(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	obs, mod := testData()

	t.Run("timeseries", func(t *testing.T) {
		r := testRequest(t, wrfplot.Request{Kind: wrfplot.Timeseries, Var: "WSP", Level: "82"})
		tbl, meta, err := wrfplot.PrepTimeseries(obs, mod, r)
		if err != nil {
			t.Fatal(err)
		}
		checkSaved(t, wrfplot.TimeseriesInfo(r.Var, tbl, meta), tbl, filepath.Join(dir, "timeseries.png"))
	})
	t.Run("histogram", func(t *testing.T) {
		r := testRequest(t, wrfplot.Request{Kind: wrfplot.Histogram, Var: "WSP", Level: "82"})
		tbl, meta, err := wrfplot.PrepHistogram(obs, mod, r)
		if err != nil {
			t.Fatal(err)
		}
		checkSaved(t, wrfplot.HistogramInfo(r.Var, meta), HistogramData{Table: tbl, Bins: 5}, filepath.Join(dir, "histogram.svg"))
	})
	t.Run("obsvsmod", func(t *testing.T) {
		r := testRequest(t, wrfplot.Request{Kind: wrfplot.ObsVsMod, Var: "WSP", Level: "82"})
		pairs, tbl, meta, err := wrfplot.PrepObsVsModel(obs, mod, r)
		if err != nil {
			t.Fatal(err)
		}
		checkSaved(t, wrfplot.ObsVsModInfo(r.Var, tbl, meta), pairs, filepath.Join(dir, "obsvsmod.png"))
	})
	t.Run("windrose", func(t *testing.T) {
		r := testRequest(t, wrfplot.Request{Kind: wrfplot.Windrose, Level: "82"})
		speed, wdir, _, err := wrfplot.PrepWindrose(obs, mod, r)
		if err != nil {
			t.Fatal(err)
		}
		checkSaved(t, wrfplot.WindroseInfo(speed), WindroseData{Speed: speed, Dir: wdir}, filepath.Join(dir, "windrose.png"))
		_, err = Render(wrfplot.WindroseInfo(speed), WindroseData{Speed: speed, Dir: wdir, Source: "nowhere"})
		if err == nil {
			t.Error("unknown source: want an error")
		}
		_, err = Render(wrfplot.WindroseInfo(speed), WindroseData{Speed: speed, Dir: wdir, Sectors: -3})
		var cerr *wrfplot.ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("negative sectors: want ConfigError, got %v", err)
		}
	})
	t.Run("profiles", func(t *testing.T) {
		r := testRequest(t, wrfplot.Request{Kind: wrfplot.Profiles, Var: "T", Time: testStart.Add(time.Hour)})
		profiles, meta, err := wrfplot.PrepProfiles(obs, mod, r)
		if err != nil {
			t.Fatal(err)
		}
		checkSaved(t, wrfplot.ProfilesInfo(r.Var, profiles, meta), profiles, filepath.Join(dir, "profiles.png"))
	})
	t.Run("timeheight", func(t *testing.T) {
		r := testRequest(t, wrfplot.Request{Kind: wrfplot.TimeHeight, Var: "T"})
		f, err := wrfplot.PrepTimeHeight(mod, r)
		if err != nil {
			t.Fatal(err)
		}
		checkSaved(t, wrfplot.TimeHeightInfo(f), f, filepath.Join(dir, "zt.png"))
	})
	t.Run("map", func(t *testing.T) {
		ex := testExtraction()
		checkSaved(t, wrfplot.MapInfo(ex.Field.MapField(0)), MapData{Extraction: ex}, filepath.Join(dir, "map.png"))
		if _, err := Render(wrfplot.MapInfo(ex.Field.MapField(0)), MapData{Extraction: ex, Time: 3}); err == nil {
			t.Error("time index out of range: want an error")
		}
	})
	t.Run("wrong type", func(t *testing.T) {
		if _, err := Render(wrfplot.PlotInfo{Kind: wrfplot.Map}, 3.0); err == nil {
			t.Error("want an error")
		}
	})
}

// testExtraction is a 3x4 map with a forest column and terrain rising
// to the east.
func testExtraction() *mapextract.Extraction {
	const ny, nx = 3, 4
	lat := sparse.ZerosDense(ny, nx)
	lon := sparse.ZerosDense(ny, nx)
	data := sparse.ZerosDense(1, ny, nx)
	hgt := sparse.ZerosDense(1, ny, nx)
	forest := sparse.ZerosDense(1, ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lat.Set(50+float64(j), j, i)
			lon.Set(6+float64(i), j, i)
			data.Set(float64(i+j), 0, j, i)
			hgt.Set(100*float64(i), 0, j, i)
			if i == 1 {
				forest.Set(1, 0, j, i)
			} else {
				forest.Set(math.NaN(), 0, j, i)
			}
		}
	}
	times := []time.Time{testStart}
	field := func(name, units string, d *sparse.DenseArray) *mapextract.Field {
		return &mapextract.Field{Name: name, Description: name, Units: units, Domain: "d01",
			ModelLevel: mapextract.Surface, Times: times, Lat: lat, Lon: lon, Data: d,
			Projection: mapextract.Projection{StandLon: 7, MoadCenLat: 51, Truelat1: 30, Truelat2: 60, PoleLat: 90}}
	}
	return &mapextract.Extraction{
		Field:   field("WSP10", "m s-1", data),
		Terrain: field("HGT", "m", hgt),
		Forest:  field("FOREST", "", forest),
	}
}

func TestRenderTimeHeightTooSmall(t *testing.T) {
	f := &wrfplot.TimeHeightField{Times: []time.Time{testStart}, Alt: []float64{10, 20},
		Values: sparse.ZerosDense(1, 2)}
	if _, err := Render(wrfplot.TimeHeightInfo(f), f); err == nil {
		t.Error("want an error for a single time")
	}
}

func TestSectorLabels(t *testing.T) {
	if l := sectorLabels(16); l[0] != "N" || l[4] != "E" || l[15] != "NNW" {
		t.Errorf("16 sectors: %v", l)
	}
	if l := sectorLabels(4); l[1] != "90°" {
		t.Errorf("4 sectors: %v", l)
	}
}
