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
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func TestConcat(t *testing.T) {
	t0 := testStart
	tbl := Concat([]Series{
		{Name: "b", Times: []time.Time{t0.Add(time.Hour), t0}, Values: []float64{2, 1}},
		{Name: "missing", Missing: true},
		{Name: "a", Times: []time.Time{t0.Add(2 * time.Hour)}, Values: []float64{3}},
	})
	if len(tbl.Index) != 3 || !tbl.Index[0].Equal(t0) {
		t.Fatalf("index: %v", tbl.Index)
	}
	if got := tbl.Columns[0].Values; got[0] != 1 || got[1] != 2 || !math.IsNaN(got[2]) {
		t.Errorf("b: %v", got)
	}
	if c := tbl.Columns[1]; !c.Missing || c.Name != MissingLabel || len(c.Values) != 3 {
		t.Errorf("placeholder: %+v", c)
	}
	if tbl.Columns[2].Name != "a" {
		t.Errorf("order: %v", tbl.Columns)
	}
}

func TestStatistics(t *testing.T) {
	tbl := &Table{
		Index: hourly(testStart, 4),
		Columns: []Column{
			MissingColumn("none", 4),
			{Name: "obs", Values: []float64{1, 2, 3, math.NaN()}},
			{Name: "mod", Values: []float64{2, 3, 4, 5}},
		},
	}
	s := Statistics(tbl)
	if len(s) != 1 {
		t.Fatalf("want 1 comparison, got %d", len(s))
	}
	got := s[0]
	if got.Reference != "obs" || got.Name != "mod" || got.Count != 3 {
		t.Errorf("%+v", got)
	}
	for name, c := range map[string][2]float64{
		"MB":        {got.MB, 1},
		"ME":        {got.ME, 1},
		"RMSE":      {got.RMSE, 1},
		"MFB":       {got.MFB, (2.0/3 + 2.0/5 + 2.0/7) / 3},
		"Slope":     {got.Slope, 1},
		"Intercept": {got.Intercept, 1},
		"R2":        {got.R2, 1},
		"Corr":      {got.Corr, 1},
		"Mean":      {got.Mean, 3},
		"RefMean":   {got.RefMean, 2},
	} {
		if different(c[0], c[1], 1e-12) {
			t.Errorf("%s: want %g, got %g", name, c[1], c[0])
		}
	}
	if s := Statistics(EmptyTable()); s != nil {
		t.Errorf("empty table: %v", s)
	}
}

func TestHistogramCounts(t *testing.T) {
	counts, dividers := HistogramCounts([]float64{0, 0.5, 1, 1.5, 2, 2, math.NaN(), 7}, 4, 0, 2)
	if want := []float64{1, 1, 1, 3}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts: want %v, got %v", want, counts)
	}
	if want := []float64{0, 0.5, 1, 1.5, 2}; !reflect.DeepEqual(dividers, want) {
		t.Errorf("dividers: want %v, got %v", want, dividers)
	}
	if c, _ := HistogramCounts(nil, 3, 1, 1); c != nil {
		t.Error("empty range should give no bins")
	}
}

func TestWindroseBins(t *testing.T) {
	speed := []float64{1, 5, 12, 3, math.NaN(), 0.1}
	dir := []float64{355, 10, 90, 185, 90, 90}
	bins, err := WindroseBins(speed, dir, 4, []float64{0.5, 4, 10})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{
		{25, 25, 0},
		{0, 0, 25},
		{25, 0, 0},
		{0, 0, 0},
	}
	if !reflect.DeepEqual(bins, want) {
		t.Errorf("want %v, got %v", want, bins)
	}
}

func TestWindroseBinsBadSectors(t *testing.T) {
	for _, sectors := range []int{0, -3} {
		_, err := WindroseBins([]float64{1}, []float64{90}, sectors, []float64{0, 3})
		var cerr *ConfigError
		if !errors.As(err, &cerr) || cerr.Field != "sectors" {
			t.Errorf("%d sectors: want sectors ConfigError, got %v", sectors, err)
		}
	}
	if _, err := WindroseBins([]float64{1}, []float64{90}, 4, nil); err == nil {
		t.Error("no speed classes should be an error")
	}
}

func TestAvailability(t *testing.T) {
	times := hourly(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), 48)
	values := make([]float64, len(times))
	for i := 0; i < 6; i++ {
		values[i] = math.NaN()
	}
	a := Availability(times, values, 2020)
	if got := a.Get(2, 0); got != 75 {
		t.Errorf("1 March: want 75, got %g", got)
	}
	if got := a.Get(2, 1); got != 100 {
		t.Errorf("2 March: want 100, got %g", got)
	}
	if got := a.Get(2, 2); !math.IsNaN(got) {
		t.Errorf("3 March: want NaN, got %g", got)
	}
	if got := Availability(times, values, 2019).Get(2, 0); !math.IsNaN(got) {
		t.Errorf("other year: want NaN, got %g", got)
	}
}

func TestMapInfo(t *testing.T) {
	info := MapInfo(MapField{Name: "HGT", Description: "terrain height", Units: "m", Values: []float64{3, 212, math.NaN()}, Lon: []float64{6, 8}, Lat: []float64{53, 55}})
	if info.CLim != [2]float64{0, 200} || info.Cmap != "terrain" || len(info.Ticks) != 10 {
		t.Errorf("HGT: %+v", info)
	}
	if info.Title != "terrain height (m) at model level 0" || info.XLim != [2]float64{6, 8} {
		t.Errorf("labels: %+v", info)
	}
	info = MapInfo(MapField{Name: "DIR", Values: []float64{10, 20}})
	if info.CLim != [2]float64{0, 360} || info.Cmap != "hsv" {
		t.Errorf("DIR: %+v", info)
	}
	info = MapInfo(MapField{Name: "T"})
	if info.CLim != [2]float64{0, 1} || info.Cmap != "viridis" {
		t.Errorf("no data: %+v", info)
	}
}

func TestTimeseriesInfo(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{Kind: Timeseries, Var: "WSP", Level: "82"})
	tbl, meta, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	info := TimeseriesInfo("WSP", tbl, meta)
	if info.YLabel != "wind_speed (m s-1)" || info.YLim != [2]float64{8, 14} {
		t.Errorf("%+v", info)
	}
	if !info.TLim[0].Equal(testStart) || !info.TLim[1].Equal(testStart.Add(2*time.Hour)) {
		t.Errorf("time limits: %v", info.TLim)
	}
}
