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
	"strings"

	"github.com/ctessum/unit"
)

// unitDef describes a unit by its SI dimensions and the affine transform
// that converts a value in the unit to SI: si = value*scale + offset.
type unitDef struct {
	dims   unit.Dimensions
	scale  float64
	offset float64
}

var degree = unit.Dimensions{unit.AngleDim: 1}

var wattPerMeter2 = unit.Dimensions{
	unit.MassDim: 1,
	unit.TimeDim: -3,
}

var meter2PerSecond2 = unit.Dimensions{
	unit.LengthDim: 2,
	unit.TimeDim:   -2,
}

var units = map[string]unitDef{
	"k":       {unit.Kelvin, 1, 0},
	"kelvin":  {unit.Kelvin, 1, 0},
	"degc":    {unit.Kelvin, 1, 273.15},
	"°c":      {unit.Kelvin, 1, 273.15},
	"c":       {unit.Kelvin, 1, 273.15},
	"pa":      {unit.Pascal, 1, 0},
	"hpa":     {unit.Pascal, 100, 0},
	"mbar":    {unit.Pascal, 100, 0},
	"kpa":     {unit.Pascal, 1000, 0},
	"m":       {unit.Meter, 1, 0},
	"km":      {unit.Meter, 1000, 0},
	"m s-1":   {unit.MeterPerSecond, 1, 0},
	"m s**-1": {unit.MeterPerSecond, 1, 0},
	"m/s":     {unit.MeterPerSecond, 1, 0},
	"km h-1":  {unit.MeterPerSecond, 1000.0 / 3600, 0},
	"km/h":    {unit.MeterPerSecond, 1000.0 / 3600, 0},
	"knots":   {unit.MeterPerSecond, 1852.0 / 3600, 0},
	"kt":      {unit.MeterPerSecond, 1852.0 / 3600, 0},
	"degree":  {degree, 1, 0},
	"degrees": {degree, 1, 0},
	"deg":     {degree, 1, 0},
	"%":       {unit.Dimless, 0.01, 0},
	"percent": {unit.Dimless, 0.01, 0},
	"1":       {unit.Dimless, 1, 0},
	"kg kg-1": {unit.Dimless, 1, 0},
	"g kg-1":  {unit.Dimless, 0.001, 0},
	"w m-2":   {wattPerMeter2, 1, 0},
	"w m**-2": {wattPerMeter2, 1, 0},
	"m2 s-2":  {meter2PerSecond2, 1, 0},
}

func lookupUnit(u string) (unitDef, bool) {
	d, ok := units[strings.ToLower(strings.TrimSpace(u))]
	return d, ok
}

// ConvertUnits returns a copy of values converted from unit from to unit
// to. Identical unit strings return an unconverted copy. Units that are
// unknown or have incompatible dimensions result in a *ConfigError.
func ConvertUnits(values []float64, from, to string) ([]float64, error) {
	out := make([]float64, len(values))
	copy(out, values)
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return out, nil
	}
	f, ok := lookupUnit(from)
	if !ok {
		return nil, &ConfigError{Field: "units", Msg: fmt.Sprintf("unknown unit %q", from)}
	}
	t, ok := lookupUnit(to)
	if !ok {
		return nil, &ConfigError{Field: "units", Msg: fmt.Sprintf("unknown unit %q", to)}
	}
	if err := unit.New(1, f.dims).Check(t.dims); err != nil {
		return nil, &ConfigError{Field: "units", Msg: fmt.Sprintf("can't convert %s to %s: %v", from, to, err)}
	}
	for i, v := range out {
		out[i] = (v*f.scale + f.offset - t.offset) / t.scale
	}
	return out, nil
}

// UnitsCompatible reports whether values in unit a can be converted to
// unit b.
func UnitsCompatible(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	f, ok1 := lookupUnit(a)
	t, ok2 := lookupUnit(b)
	return ok1 && ok2 && f.dims.Matches(t.dims)
}

// PressureFactor returns the factor that converts pressures in the given
// units to Pa. Only Pa and hPa are accepted.
func PressureFactor(u string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "pa":
		return 1, nil
	case "hpa":
		return 100, nil
	}
	return 0, &ConfigError{Field: "P", Msg: fmt.Sprintf("unsupported pressure unit %q", u)}
}

// CanonicalUnits returns the units a variable is reported in after
// preparation, or "" if the variable is not registered.
func CanonicalUnits(v string) string {
	info, ok := LookupVar(v)
	if !ok {
		return ""
	}
	return info.Units
}
