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
)

func TestDeviceSuffix(t *testing.T) {
	for _, test := range []struct {
		v    string
		a    Anemometer
		want string
	}{
		{"WSP", Sonic, "_USA"},
		{"WSP", Analog, "_CUP"},
		{"DIR", Sonic, "_USA"},
		{"DIR", Analog, "_VANE"},
		{"wsp", Analog, "_CUP"},
		{"T", Sonic, ""},
		{"PRES", Analog, ""},
	} {
		if got := DeviceSuffix(test.v, test.a); got != test.want {
			t.Errorf("%s %v: want %q, got %q", test.v, test.a, test.want, got)
		}
	}
}

func TestObsVarName(t *testing.T) {
	if got := ObsVarName("WSP", Sonic, "82"); got != "WSP_USA_82" {
		t.Errorf("got %s", got)
	}
	if got := ObsVarName("T", Analog, "30"); got != "T_30" {
		t.Errorf("got %s", got)
	}
	if got := ObsVarName("HFX", Sonic, ""); got != "HFX" {
		t.Errorf("got %s", got)
	}
}

func TestParseObsVarName(t *testing.T) {
	for _, test := range []struct {
		name string
		want ObsVar
	}{
		{"WSP_USA_82", ObsVar{Base: "WSP", Suffix: "_USA", Level: "82"}},
		{"DIR_VANE_40.5", ObsVar{Base: "DIR", Suffix: "_VANE", Level: "40.5"}},
		{"T_30", ObsVar{Base: "T", Level: "30"}},
		{"WSP_CUP_100_std", ObsVar{Base: "WSP", Suffix: "_CUP", Level: "100", Stat: "std"}},
		{"HFX", ObsVar{Base: "HFX"}},
		{"RH_max_daily", ObsVar{Base: "RH", Stat: "max_daily"}},
	} {
		got, err := ParseObsVarName(test.name)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: want %+v, got %+v", test.name, test.want, got)
		}
		if got.String() != test.name {
			t.Errorf("%s: round trip gave %s", test.name, got.String())
		}
	}
	if _, err := ParseObsVarName(""); err == nil {
		t.Error("empty name should fail")
	}
	if _, err := ParseObsVarName("_82"); err == nil {
		t.Error("missing base should fail")
	}
}

func TestLookupVar(t *testing.T) {
	info, ok := LookupVar("wsp")
	if !ok || info.Units != "m s-1" || info.StandardName != "wind_speed" {
		t.Errorf("WSP: got %+v, %v", info, ok)
	}
	info, ok = LookupStandardName("air_pressure")
	if !ok || info.Name != "P" {
		t.Errorf("air_pressure: got %+v, %v", info, ok)
	}
	if _, ok := LookupVar("NOTAVAR"); ok {
		t.Error("unknown variable found")
	}
	if info, _ := LookupVar("HFX"); info.Kind != SurfaceVar {
		t.Error("HFX should be a surface variable")
	}
}

func TestParseAnemometer(t *testing.T) {
	for s, want := range map[string]Anemometer{"": Sonic, "Sonic": Sonic, "analog": Analog, "CUP": Analog} {
		got, err := ParseAnemometer(s)
		if err != nil || got != want {
			t.Errorf("%q: want %v, got %v (%v)", s, want, got, err)
		}
	}
	_, err := ParseAnemometer("laser")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("want ConfigError, got %v", err)
	}
}

func TestConvertUnits(t *testing.T) {
	for _, test := range []struct {
		from, to string
		in, want float64
	}{
		{"degC", "K", 10, 283.15},
		{"K", "degC", 273.15, 0},
		{"hPa", "Pa", 1013.25, 101325},
		{"km/h", "m s-1", 36, 10},
		{"knots", "m/s", 1, 0.514444},
		{"%", "1", 50, 0.5},
		{"g kg-1", "kg kg-1", 5, 0.005},
		{"m s-1", "M S-1", 3, 3},
	} {
		got, err := ConvertUnits([]float64{test.in}, test.from, test.to)
		if err != nil {
			t.Errorf("%s to %s: %v", test.from, test.to, err)
			continue
		}
		if different(got[0], test.want, 1e-6) {
			t.Errorf("%s to %s: want %g, got %g", test.from, test.to, test.want, got[0])
		}
	}
	for _, pair := range [][2]string{{"K", "Pa"}, {"furlong", "m"}, {"m", "degree"}} {
		_, err := ConvertUnits([]float64{1}, pair[0], pair[1])
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s to %s: want ConfigError, got %v", pair[0], pair[1], err)
		}
	}
	if !UnitsCompatible("hPa", "Pa") || UnitsCompatible("hPa", "K") {
		t.Error("UnitsCompatible")
	}
}

func TestPressureFactor(t *testing.T) {
	if f, err := PressureFactor("hPa"); err != nil || f != 100 {
		t.Errorf("hPa: %g, %v", f, err)
	}
	if f, err := PressureFactor("Pa"); err != nil || f != 1 {
		t.Errorf("Pa: %g, %v", f, err)
	}
	if _, err := PressureFactor("mmHg"); err == nil {
		t.Error("mmHg should fail")
	}
}

func different(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) != math.IsNaN(b)
	}
	return math.Abs(a-b) > tolerance*math.Max(1, math.Abs(b))
}
