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
)

const (
	// P00 is the reference pressure for potential temperature [Pa].
	P00 = 1.0e5
	// Kappa is the ratio of the gas constant to the specific heat of dry
	// air at constant pressure, R/cp.
	Kappa = 2.0 / 7.0
)

// WindDirection returns the meteorological direction the wind blows from
// in degrees, in [0, 360), for eastward component u and northward
// component v.
func WindDirection(u, v float64) float64 {
	d := math.Mod(180/math.Pi*math.Atan2(-u, -v), 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d -= 360
	}
	return d
}

// WindDirections applies WindDirection elementwise.
func WindDirections(u, v []float64) []float64 {
	out := make([]float64, len(u))
	for i := range u {
		out[i] = WindDirection(u[i], v[i])
	}
	return out
}

// ScaleHeight returns the scale height H [m] of the exponential pressure
// profile p = p0*exp(-z/H) through pressures pLow at zLow and pHigh at
// zHigh.
func ScaleHeight(zLow, zHigh, pLow, pHigh float64) float64 {
	return (zHigh - zLow) / math.Log(pLow/pHigh)
}

// SurfacePressure returns p0, the pressure at z = 0 of the exponential
// profile with scale height h through pHigh at zHigh.
func SurfacePressure(zHigh, pHigh, h float64) float64 {
	return pHigh * math.Exp(zHigh/h)
}

// PressureAt returns the pressure at height z of the exponential profile
// with surface pressure p0 and scale height h.
func PressureAt(p0, h, z float64) float64 {
	return p0 * math.Exp(-z/h)
}

// PotentialTemperatureK returns the potential temperature [K] of air at
// temperature t [K] and pressure p [Pa].
func PotentialTemperatureK(t, p float64) float64 {
	return t * math.Pow(P00/p, Kappa)
}

type sensor struct {
	name  string
	lev   string
	level float64
	v     *Variable
}

// sensors returns the level-resolved variables of rec whose base name is
// one of bases, sorted by level.
func sensors(rec *ObsRecord, bases ...string) []sensor {
	var out []sensor
	for name, v := range rec.Vars {
		o, err := ParseObsVarName(name)
		if err != nil || o.Level == "" || o.Stat != "" || o.Suffix != "" {
			continue
		}
		match := false
		for _, b := range bases {
			if o.Base == b {
				match = true
			}
		}
		if !match {
			continue
		}
		z, err := o.Height()
		if err != nil {
			continue
		}
		out = append(out, sensor{name: name, lev: o.Level, level: z, v: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].level == out[j].level {
			return out[i].name < out[j].name
		}
		return out[i].level < out[j].level
	})
	return out
}

// AddPotentialTemperature returns a copy of rec with a potential
// temperature variable PT_{level} for every temperature sensor T_{level}.
// Pressure at the temperature sensors is estimated from an exponential
// fit through the lowest and highest pressure sensors. Sensor levels are
// heights above the station, which is at rec.Station.Elevation.
//
// Records with fewer than two pressure sensors or without temperature
// sensors are returned unchanged. Pressure units other than Pa and hPa
// are a configuration error.
func AddPotentialTemperature(rec *ObsRecord) (*ObsRecord, error) {
	ps := sensors(rec, "P", "PRES")
	ts := sensors(rec, "T")
	if len(ps) < 2 || len(ts) == 0 {
		return rec, nil
	}
	low, high := ps[0], ps[len(ps)-1]
	if low.level == high.level {
		return rec, nil
	}
	factor, err := PressureFactor(low.v.Units)
	if err != nil {
		return nil, &ConfigError{Source: rec.Dataset, Field: low.name,
			Msg: fmt.Sprintf("unsupported pressure unit %q", low.v.Units)}
	}
	elev := rec.Station.Elevation
	zLow, zHigh := low.level+elev, high.level+elev

	out := rec.Copy()
	info, _ := LookupVar("PT")
	for _, s := range ts {
		units := s.v.Units
		if units == "" {
			units = "degC"
		}
		tk, err := ConvertUnits(s.v.Values, units, "K")
		if err != nil {
			return nil, &ConfigError{Source: rec.Dataset, Field: s.name, Msg: err.Error()}
		}
		z := s.level + elev
		pt := make([]float64, len(tk))
		for i := range tk {
			pLow := low.v.Values[i] * factor
			pHigh := high.v.Values[i] * factor
			h := ScaleHeight(zLow, zHigh, pLow, pHigh)
			p0 := SurfacePressure(zHigh, pHigh, h)
			pt[i] = PotentialTemperatureK(tk[i], PressureAt(p0, h, z))
		}
		name := "PT_" + s.lev
		out.Vars[name] = &Variable{
			Name:         name,
			Units:        info.Units,
			StandardName: info.StandardName,
			LongName:     info.LongName,
			Values:       pt,
		}
	}
	return out, nil
}
