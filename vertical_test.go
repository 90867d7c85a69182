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

	"github.com/ctessum/sparse"
)

var testStart = time.Date(2020, 5, 17, 11, 0, 0, 0, time.UTC)

// testColumn returns a column with nt hourly time steps starting at
// testStart and levels at 10, 50, 100 and 200 m. Wind blows from the
// south-west and speeds up with height; temperatures are in K.
func testColumn(exp, loc string, nt int, offset float64) *ModelColumn {
	times := make([]time.Time, nt)
	for i := range times {
		times[i] = testStart.Add(time.Duration(i) * time.Hour)
	}
	c := NewModelColumn(exp, loc, times)
	levels := []float64{10, 50, 100, 200}
	nz := len(levels)
	c.Alt = sparse.ZerosDense(nt, nz)
	u := sparse.ZerosDense(nt, nz)
	v := sparse.ZerosDense(nt, nz)
	tk := sparse.ZerosDense(nt, nz)
	hfx := sparse.ZerosDense(nt)
	for i := 0; i < nt; i++ {
		for k, z := range levels {
			c.Alt.Set(z, i, k)
			u.Set(offset+z/10, i, k)
			v.Set(offset+z/10, i, k)
			tk.Set(290-z/100+float64(i), i, k)
		}
		hfx.Set(100+float64(i), i)
	}
	c.Vars["U"] = &ModelVar{Name: "U", Units: "m s-1", StandardName: "eastward_wind", Data: u}
	c.Vars["V"] = &ModelVar{Name: "V", Units: "m s-1", StandardName: "northward_wind", Data: v}
	c.Vars["T"] = &ModelVar{Name: "T", Units: "K", StandardName: "air_temperature", Data: tk}
	c.Vars["HFX"] = &ModelVar{Name: "HFX", Units: "W m-2", StandardName: "surface_upward_sensible_heat_flux", Data: hfx}
	return c
}

func TestInterpolateColumn(t *testing.T) {
	c := testColumn("exp", "FINO", 3, 0)
	ls, err := InterpolateColumn(c, 82)
	if err != nil {
		t.Fatal(err)
	}
	if len(ls.Times) != 3 || ls.Level != 82 {
		t.Fatalf("got %d times at level %g", len(ls.Times), ls.Level)
	}
	u, _ := ls.Variable("U")
	if different(u.Values[0], 8.2, 1e-12) {
		t.Errorf("U: want 8.2, got %g", u.Values[0])
	}
	temp, _ := ls.Variable("T")
	for i, want := range []float64{289.18, 290.18, 291.18} {
		if different(temp.Values[i], want, 1e-12) {
			t.Errorf("T[%d]: want %g, got %g", i, want, temp.Values[i])
		}
	}
	hfx, ok := ls.Variable("HFX")
	if !ok || hfx.Values[2] != 102 {
		t.Errorf("surface variable not passed through: %v", hfx)
	}
	dir, ok := ls.Variable("DIR")
	if !ok || different(dir.Values[0], 225, 1e-12) {
		t.Errorf("DIR: %v", dir)
	}
}

func TestInterpolateColumnIdentity(t *testing.T) {
	c := testColumn("exp", "FINO", 2, 1)
	for k, z := range []float64{10, 50, 100, 200} {
		ls, err := InterpolateColumn(c, z)
		if err != nil {
			t.Fatalf("level %g: %v", z, err)
		}
		u, _ := ls.Variable("U")
		for i := range ls.Times {
			if want := c.Vars["U"].Data.Get(i, k); u.Values[i] != want {
				t.Errorf("level %g time %d: want %g, got %g", z, i, want, u.Values[i])
			}
		}
	}
}

func TestInterpolateColumnOutOfRange(t *testing.T) {
	c := testColumn("exp", "FINO", 2, 0)
	for _, z := range []float64{5, 200.001, -1} {
		_, err := InterpolateColumn(c, z)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("level %g: want ErrOutOfRange, got %v", z, err)
		}
	}
	if _, err := InterpolateColumn(c, math.NaN()); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("NaN level: want ErrOutOfRange, got %v", err)
	}
	c.Alt.Set(math.NaN(), 1, 3)
	if _, err := InterpolateColumn(c, 50); !errors.Is(err, ErrNoData) {
		t.Errorf("NaN height: want ErrNoData, got %v", err)
	}
	c.Alt = nil
	if _, err := InterpolateColumn(c, 50); !errors.Is(err, ErrNoData) {
		t.Errorf("want ErrNoData, got %v", err)
	}
}

func TestInterpolateColumnTimeVaryingHeights(t *testing.T) {
	c := testColumn("exp", "FINO", 2, 0)
	// Raise the second time step's levels by 10 m.
	for k := 0; k < 4; k++ {
		c.Alt.AddVal(10, 1, k)
	}
	ls, err := InterpolateColumn(c, 60)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := ls.Variable("U")
	if different(u.Values[0], 6, 1e-12) {
		t.Errorf("time 0: want 6, got %g", u.Values[0])
	}
	if different(u.Values[1], 5, 1e-12) {
		t.Errorf("time 1: want 5, got %g", u.Values[1])
	}
}

func TestWindDirection(t *testing.T) {
	for _, test := range []struct {
		u, v, want float64
	}{
		{0, -1, 0},
		{-1, 0, 90},
		{0, 1, 180},
		{1, 0, 270},
		{1, 1, 225},
	} {
		got := WindDirection(test.u, test.v)
		if different(got, test.want, 1e-12) {
			t.Errorf("(%g, %g): want %g, got %g", test.u, test.v, test.want, got)
		}
	}
	for i := 0; i < 360; i++ {
		a := float64(i) * math.Pi / 180
		d := WindDirection(math.Cos(a), math.Sin(a))
		if d < 0 || d >= 360 {
			t.Errorf("direction %g out of range", d)
		}
	}
}

func TestPotentialTemperatureK(t *testing.T) {
	if got := PotentialTemperatureK(288, P00); got != 288 {
		t.Errorf("at reference pressure: want 288, got %g", got)
	}
	if got := PotentialTemperatureK(280, 9e4); got <= 280 {
		t.Errorf("above the reference level: %g", got)
	}
	h := ScaleHeight(10, 100, 101000, 100000)
	p0 := SurfacePressure(100, 100000, h)
	if p := PressureAt(p0, h, 10); different(p, 101000, 1e-9) {
		t.Errorf("fit does not pass through lower sensor: %g", p)
	}
}

func testObsRecord() *ObsRecord {
	times := []time.Time{testStart, testStart.Add(time.Hour)}
	rec := NewObsRecord("Testset", Station{Name: "FINO", Elevation: 20}, times)
	add := func(name, units string, vals ...float64) {
		if err := rec.AddVariable(&Variable{Name: name, Units: units, Values: vals}); err != nil {
			panic(err)
		}
	}
	add("P_20", "hPa", 1010, 1011)
	add("P_90", "hPa", 1002, 1003)
	add("T_30", "degC", 15, 16)
	add("T_80", "K", 287, 288)
	add("WSP_USA_82", "m s-1", 8, 9)
	add("WSP_CUP_82", "m s-1", 7.5, 8.5)
	add("DIR_USA_80", "degree", 200, 210)
	add("DIR_VANE_80", "degree", 205, 215)
	add("U_40", "m s-1", 3, 0)
	add("V_40", "m s-1", 4, -2)
	return rec
}

func TestAddPotentialTemperature(t *testing.T) {
	rec := testObsRecord()
	out, err := AddPotentialTemperature(rec)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.Variable("PT_30"); ok {
		t.Error("input record modified")
	}
	pt30, ok := out.Variable("PT_30")
	if !ok {
		t.Fatal("PT_30 missing")
	}
	pt80, ok := out.Variable("PT_80")
	if !ok {
		t.Fatal("PT_80 missing")
	}
	if pt30.Units != "K" || pt30.StandardName != "air_potential_temperature" {
		t.Errorf("metadata: %+v", pt30)
	}
	// Invert the calculation at the first time step.
	zLow, zHigh := 20.0+20, 90.0+20
	h := ScaleHeight(zLow, zHigh, 101000, 100200)
	p0 := SurfacePressure(zHigh, 100200, h)
	p := PressureAt(p0, h, 30+20)
	tk := pt30.Values[0] / math.Pow(P00/p, Kappa)
	if different(tk, 288.15, 1e-9) {
		t.Errorf("inverted temperature: want 288.15, got %g", tk)
	}
	p = PressureAt(p0, h, 80+20)
	if want := 287 * math.Pow(P00/p, Kappa); different(pt80.Values[0], want, 1e-12) {
		t.Errorf("PT_80: want %g, got %g", want, pt80.Values[0])
	}
}

func TestAddPotentialTemperatureUnchanged(t *testing.T) {
	rec := testObsRecord()
	delete(rec.Vars, "P_90")
	out, err := AddPotentialTemperature(rec)
	if err != nil {
		t.Fatal(err)
	}
	if out != rec {
		t.Error("record with one pressure sensor should be returned unchanged")
	}

	rec = testObsRecord()
	rec.Vars["P_20"].Units = "psi"
	if _, err := AddPotentialTemperature(rec); err == nil {
		t.Error("unsupported pressure units should fail")
	}
}
