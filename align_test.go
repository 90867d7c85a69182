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
	"testing"
	"time"
)

// fino returns observations of dataset Testset and two experiments with
// columns at FINO, all covering 82 m at 2020-05-17T12:00.
func fino() (ObsData, ModelData) {
	obs := ObsData{"Testset": testObsRecord()}
	mod := make(ModelData)
	mod.Add(testColumn("exp1", "FINO", 3, 0))
	c := testColumn("exp2", "FINO", 3, 1)
	c.Vars["T"].Units = "degC"
	c.Vars["T"].StandardName = ""
	c.Vars["T"].LongName = "temperature from the second run"
	mod.Add(c)
	return obs, mod
}

func finoRequest(t *testing.T, r Request) *Request {
	r.Location = "FINO"
	if r.Experiments == nil {
		r.Experiments = []string{"exp1", "exp2"}
	}
	if r.Observations == nil {
		r.Observations = []string{"Testset"}
	}
	req, err := NewRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestPrepTimeseries(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{Kind: Timeseries, Var: "WSP", Level: "82"})
	tbl, meta, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("want 3 columns, got %d", len(tbl.Columns))
	}
	for i, want := range []string{"Testset", "exp1", "exp2"} {
		if c := tbl.Columns[i]; c.Name != want || c.Missing {
			t.Errorf("column %d: want %s, got %s (missing %v)", i, want, c.Name, c.Missing)
		}
	}
	for i := 1; i < len(tbl.Index); i++ {
		if !tbl.Index[i].After(tbl.Index[i-1]) {
			t.Errorf("index not increasing at %d", i)
		}
	}
	noon := time.Date(2020, 5, 17, 12, 0, 0, 0, time.UTC)
	row := -1
	for i, tt := range tbl.Index {
		if tt.Equal(noon) {
			row = i
		}
	}
	if row < 0 {
		t.Fatal("12:00 not in index")
	}
	if got := tbl.Columns[0].Values[row]; got != 9 {
		t.Errorf("observation at noon: want 9, got %g", got)
	}
	if got, want := tbl.Columns[1].Values[row], math.Sqrt2*8.2; different(got, want, 1e-12) {
		t.Errorf("exp1 at noon: want %g, got %g", want, got)
	}
	if got, want := tbl.Columns[2].Values[row], math.Sqrt2*9.2; different(got, want, 1e-12) {
		t.Errorf("exp2 at noon: want %g, got %g", want, got)
	}
	if meta.Units != "m s-1" || meta.Description != "wind_speed" {
		t.Errorf("meta: %+v", meta)
	}
}

func TestPrepTimeseriesUnknownUnits(t *testing.T) {
	obs, mod := fino()
	obs["Testset"].Vars["WSP_USA_82"].Units = "furlongs per fortnight"
	r := finoRequest(t, Request{Kind: Timeseries, Var: "WSP", Level: "82", Experiments: []string{}})
	tbl, meta, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := tbl.Column("Testset")
	if !ok || c.Missing {
		t.Fatal("observation with unknown units should be kept")
	}
	if c.Values[len(c.Values)-1] != 9 {
		t.Errorf("values should be unconverted: %v", c.Values)
	}
	if meta.Units != "furlongs per fortnight" {
		t.Errorf("units: %s", meta.Units)
	}
}

func TestToCanonical(t *testing.T) {
	for _, test := range []struct {
		base, units string
		in, want    float64
		wantUnits   string
	}{
		{"T", "degC", 15, 288.15, "K"},
		{"WSP", "m s**-1", 3, 3, "m s-1"},
		{"RH", "percent", 50, 50, "%"},
		{"HFX", "W m**-2", 120, 120, "W m-2"},
		{"WSP", "", 4, 4, "m s-1"},
		{"WSP", "furlongs", 4, 4, "furlongs"},
		{"NOSUCHVAR", "kg", 1, 1, "kg"},
	} {
		vals, units, err := toCanonical(test.base, []float64{test.in}, test.units)
		if err != nil {
			t.Errorf("%s in %s: %v", test.base, test.units, err)
			continue
		}
		if different(vals[0], test.want, 1e-9) || units != test.wantUnits {
			t.Errorf("%s in %s: want %g %s, got %g %s", test.base, test.units, test.want, test.wantUnits, vals[0], units)
		}
	}
	var cerr *ConfigError
	if _, _, err := toCanonical("T", []float64{1}, "m s-1"); !errors.As(err, &cerr) {
		t.Errorf("incompatible units: want ConfigError, got %v", err)
	}
}

func TestPrepTimeseriesLastSourceMeta(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{Kind: Timeseries, Var: "T", Level: "80"})
	tbl, meta, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	// exp2 reports degC; values are converted and its description wins.
	if meta.Units != "K" || meta.Description != "temperature from the second run" {
		t.Errorf("meta: %+v", meta)
	}
	exp2, _ := tbl.Column("exp2")
	for _, v := range exp2.Values {
		if !math.IsNaN(v) && v < 200 {
			t.Errorf("exp2 value %g not converted to K", v)
		}
	}
	testset, _ := tbl.Column("Testset")
	if testset.Values[0] != 287 {
		t.Errorf("observation: %v", testset.Values)
	}
}

func TestPrepTimeseriesMissingSources(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{
		Kind:         Timeseries,
		Var:          "WSP",
		Level:        "82",
		Experiments:  []string{"exp1", "nosuchrun"},
		Observations: []string{"Testset", "Other"},
	})
	tbl, _, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Columns) != 4 {
		t.Fatalf("want 4 columns, got %d", len(tbl.Columns))
	}
	if c := tbl.Columns[1]; !c.Missing || c.Name != MissingLabel || c.Source != "Other" {
		t.Errorf("missing observation: %+v", c)
	}
	if c := tbl.Columns[3]; !c.Missing || c.Source != "nosuchrun" {
		t.Errorf("missing experiment: %+v", c)
	}
	if len(tbl.Present()) != 2 {
		t.Errorf("want 2 present columns, got %d", len(tbl.Present()))
	}

	// Out of range everywhere.
	r = finoRequest(t, Request{Kind: Timeseries, Var: "WSP", Level: "500", Observations: []string{"Other"}})
	tbl, meta, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Index) != 2 || tbl.Index[0].Year() != 1970 || tbl.Index[1].Year() != 2020 {
		t.Errorf("want empty table, got index %v", tbl.Index)
	}
	if meta.Description != "No Data" {
		t.Errorf("meta: %+v", meta)
	}
}

func TestPrepTimeseriesAnemometer(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{Kind: Timeseries, Var: "WSP", Level: "82", Anemometer: Analog, Experiments: []string{}})
	tbl, _, err := PrepTimeseries(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl.Columns[0].Values[0]; got != 7.5 {
		t.Errorf("cup anemometer: want 7.5, got %g", got)
	}
}

func TestPrepObsVsModel(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{Kind: ObsVsMod, Var: "WSP", Level: "82"})
	pairs, tbl, meta, err := PrepObsVsModel(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 {
		t.Fatalf("want 2 pairs, got %d", len(pairs))
	}
	for _, p := range pairs {
		if p.Observation != "Testset" || len(p.Obs) != 2 || len(p.Mod) != 2 {
			t.Errorf("pair %s: %d obs, %d mod", p.Experiment, len(p.Obs), len(p.Mod))
		}
	}
	if meta.Units != "m s-1" || len(tbl.Columns) != 3 {
		t.Errorf("meta %+v, %d columns", meta, len(tbl.Columns))
	}
	info := ObsVsModInfo("WSP", tbl, meta)
	if info.XLim != info.YLim || info.XLim[0] != 8 || info.XLim[1] != 14 {
		t.Errorf("limits: %v %v", info.XLim, info.YLim)
	}
}

func TestPrepWindrose(t *testing.T) {
	obs, mod := fino()
	r := finoRequest(t, Request{Kind: Windrose, Level: "82", Experiments: []string{"exp1"}})
	if r.Var != "WSP" {
		t.Errorf("windrose variable: %s", r.Var)
	}
	speed, dir, meta, err := PrepWindrose(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := speed.Column("Testset"); c.Values[0] != 8 {
		t.Errorf("speed: %v", c.Values)
	}
	// Direction comes from the 80 m vane nearest to 82 m.
	if c, _ := dir.Column("Testset"); c.Values[0] != 200 {
		t.Errorf("direction: %v", c.Values)
	}
	if c, ok := dir.Column("exp1"); !ok || c.Missing {
		t.Error("model direction missing")
	}
	if meta.Units != "m s-1, degree" {
		t.Errorf("meta: %+v", meta)
	}
	if info := WindroseInfo(speed); info.WspMax != 12 {
		t.Errorf("WspMax: %g", info.WspMax)
	}
}

func TestPrepProfiles(t *testing.T) {
	obs, mod := fino()
	noon := time.Date(2020, 5, 17, 12, 0, 0, 0, time.UTC)
	r := finoRequest(t, Request{Kind: Profiles, Var: "T", Time: noon})
	profiles, meta, err := PrepProfiles(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 3 {
		t.Fatalf("want 3 profiles, got %d", len(profiles))
	}
	o := profiles[0]
	if o.Missing || len(o.Alt) != 2 || o.Alt[0] != 30 || o.Alt[1] != 80 {
		t.Errorf("observation profile: %+v", o)
	}
	if different(o.Values[0], 289.15, 1e-12) || o.Values[1] != 288 {
		t.Errorf("observation values: %v", o.Values)
	}
	m := profiles[1]
	if len(m.Alt) != 4 || m.Values[0] != 290-0.1+1 {
		t.Errorf("model profile: %+v", m)
	}
	if meta.Units != "K" {
		t.Errorf("meta: %+v", meta)
	}

	// No data at other times.
	r = finoRequest(t, Request{Kind: Profiles, Var: "T", Time: noon.Add(time.Minute)})
	profiles, meta, err = PrepProfiles(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range profiles {
		if !p.Missing {
			t.Errorf("%s should be missing", p.Source)
		}
	}
	if meta.Description != "No Data" {
		t.Errorf("meta: %+v", meta)
	}
	info := ProfilesInfo("T", profiles, meta)
	if info.YLim != [2]float64{} {
		t.Errorf("limits without data: %v", info.YLim)
	}
}

func TestPrepProfilesDevice(t *testing.T) {
	obs, mod := fino()
	noon := time.Date(2020, 5, 17, 12, 0, 0, 0, time.UTC)
	r := finoRequest(t, Request{Kind: Profiles, Var: "DIR", Time: noon, Anemometer: Analog, Experiments: []string{}})
	profiles, _, err := PrepProfiles(obs, mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if p := profiles[0]; len(p.Values) != 1 || p.Values[0] != 215 {
		t.Errorf("vane profile: %+v", p)
	}
}

func TestPrepTimeHeight(t *testing.T) {
	_, mod := fino()
	r := finoRequest(t, Request{Kind: TimeHeight, Var: "WSP", Experiments: []string{"nosuchrun", "exp1"}})
	f, err := PrepTimeHeight(mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if f.Experiment != "exp1" || f.Units != "m s-1" {
		t.Errorf("field: %s %s", f.Experiment, f.Units)
	}
	if len(f.Alt) != 4 || f.Alt[3] != 200 {
		t.Errorf("heights: %v", f.Alt)
	}
	if f.Values.Shape[0] != 3 || f.Values.Shape[1] != 4 {
		t.Errorf("shape: %v", f.Values.Shape)
	}
	info := TimeHeightInfo(f)
	if info.YLim != [2]float64{10, 200} || info.Title != "wind speed (m s-1)" {
		t.Errorf("info: %+v", info)
	}

	r = finoRequest(t, Request{Kind: TimeHeight, Var: "WSP", Experiments: []string{"nosuchrun"}})
	if _, err := PrepTimeHeight(mod, r); !errors.Is(err, ErrNoData) {
		t.Errorf("want ErrNoData, got %v", err)
	}
}

func TestPrepTimeHeightMissingVariable(t *testing.T) {
	_, mod := fino()
	c, _ := mod.Column("exp1", "FINO")
	delete(c.Vars, "T")
	r := finoRequest(t, Request{Kind: TimeHeight, Var: "T", Experiments: []string{"exp1", "exp2"}})
	f, err := PrepTimeHeight(mod, r)
	if err != nil {
		t.Fatal(err)
	}
	if f.Experiment != "exp2" || f.Units != "degC" {
		t.Errorf("field: %s %s", f.Experiment, f.Units)
	}

	r = finoRequest(t, Request{Kind: TimeHeight, Var: "HFX", Experiments: []string{"exp1", "exp2"}})
	_, err = PrepTimeHeight(mod, r)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("surface variable: want ErrNoData, got %v", err)
	}
}

func TestPrepTimeseriesNaNLevel(t *testing.T) {
	obs, mod := fino()
	r := &Request{Kind: Timeseries, Var: "WSP", Level: "NaN", Location: "FINO", Experiments: []string{"exp1"}}
	tbl, _, err := PrepTimeseries(obs, mod, r)
	if err != nil && !errors.Is(err, ErrNoData) {
		t.Fatal(err)
	}
	if tbl != nil {
		if c, ok := tbl.Column("exp1"); ok && !c.Missing {
			t.Error("a NaN level should not give model values")
		}
	}
}

func TestNewRequest(t *testing.T) {
	for _, r := range []Request{
		{Kind: Timeseries, Var: "WSP", Location: "FINO", Experiments: []string{"a"}},
		{Kind: Timeseries, Var: "WSP", Level: "high", Location: "FINO", Experiments: []string{"a"}},
		{Kind: Timeseries, Var: "WSP", Level: "82", Experiments: []string{"a"}},
		{Kind: Profiles, Var: "T", Location: "FINO", Experiments: []string{"a"}},
		{Kind: ObsVsMod, Var: "WSP", Level: "82", Location: "FINO", Experiments: []string{"a"}},
		{Kind: TimeHeight, Var: "WSP", Location: "FINO", Observations: []string{"a"}},
		{Kind: Histogram, Level: "82", Location: "FINO", Experiments: []string{"a"}},
		{Kind: Timeseries, Var: "WSP", Level: "NaN", Location: "FINO", Experiments: []string{"a"}},
		{Kind: Windrose, Level: "+Inf", Location: "FINO", Experiments: []string{"a"}},
		{Kind: PlotKind(99), Var: "WSP"},
	} {
		_, err := NewRequest(r)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%+v: want ConfigError, got %v", r, err)
		}
	}
	in := Request{Kind: Timeseries, Var: " wsp ", Level: "82", Location: "FINO", Experiments: []string{"a"}}
	r, err := NewRequest(in)
	if err != nil {
		t.Fatal(err)
	}
	in.Experiments[0] = "b"
	if r.Var != "WSP" || r.Experiments[0] != "a" || r.LevelValue() != 82 {
		t.Errorf("request: %+v", r)
	}
	for s, want := range map[string]PlotKind{"Obs vs Mod": ObsVsMod, "obsvsmod": ObsVsMod, "zt": TimeHeight, "zt-Plot": TimeHeight, "windrose": Windrose} {
		if got, err := ParsePlotKind(s); err != nil || got != want {
			t.Errorf("%q: want %v, got %v (%v)", s, want, got, err)
		}
	}
}
