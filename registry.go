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
	"sort"
	"strconv"
	"strings"
)

// VarKind distinguishes quantities that vary with height from those that
// are defined only at the surface.
type VarKind int

const (
	// ColumnVar variables have one value per model level.
	ColumnVar VarKind = iota
	// SurfaceVar variables have one value per time step.
	SurfaceVar
)

// VarInfo holds the CF-style metadata for a variable name.
type VarInfo struct {
	Name         string
	StandardName string
	LongName     string
	Units        string
	Kind         VarKind
}

var registry = map[string]VarInfo{
	"T":      {"T", "air_temperature", "air temperature", "K", ColumnVar},
	"PT":     {"PT", "air_potential_temperature", "potential temperature", "K", ColumnVar},
	"P":      {"P", "air_pressure", "air pressure", "Pa", ColumnVar},
	"PRES":   {"PRES", "air_pressure", "air pressure", "Pa", ColumnVar},
	"WSP":    {"WSP", "wind_speed", "wind speed", "m s-1", ColumnVar},
	"DIR":    {"DIR", "wind_from_direction", "wind direction", "degree", ColumnVar},
	"U":      {"U", "eastward_wind", "eastward wind", "m s-1", ColumnVar},
	"V":      {"V", "northward_wind", "northward wind", "m s-1", ColumnVar},
	"W":      {"W", "upward_air_velocity", "vertical wind", "m s-1", ColumnVar},
	"RH":     {"RH", "relative_humidity", "relative humidity", "%", ColumnVar},
	"QV":     {"QV", "humidity_mixing_ratio", "water vapor mixing ratio", "kg kg-1", ColumnVar},
	"TKE":    {"TKE", "specific_turbulent_kinetic_energy_of_air", "turbulent kinetic energy", "m2 s-2", ColumnVar},
	"ALT":    {"ALT", "height", "height above ground", "m", ColumnVar},
	"UST":    {"UST", "friction_velocity", "friction velocity", "m s-1", SurfaceVar},
	"HFX":    {"HFX", "surface_upward_sensible_heat_flux", "sensible heat flux", "W m-2", SurfaceVar},
	"LH":     {"LH", "surface_upward_latent_heat_flux", "latent heat flux", "W m-2", SurfaceVar},
	"GRDFLX": {"GRDFLX", "downward_heat_flux_in_soil", "ground heat flux", "W m-2", SurfaceVar},
	"PSFC":   {"PSFC", "surface_air_pressure", "surface pressure", "Pa", SurfaceVar},
	"HGT":    {"HGT", "surface_altitude", "terrain height", "m", SurfaceVar},
}

// LookupVar returns the metadata for the base variable name, e.g. "WSP".
func LookupVar(name string) (VarInfo, bool) {
	v, ok := registry[strings.ToUpper(name)]
	return v, ok
}

// LookupStandardName finds the registry entry with the given CF standard
// name.
func LookupStandardName(standardName string) (VarInfo, bool) {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names) // PRES and P share a standard name; prefer P.
	for _, n := range names {
		if registry[n].StandardName == standardName {
			return registry[n], true
		}
	}
	return VarInfo{}, false
}

// Anemometer is the kind of wind sensor used at a measurement site.
type Anemometer int

const (
	// Sonic is an ultrasonic anemometer.
	Sonic Anemometer = iota
	// Analog is a cup anemometer paired with a wind vane.
	Analog
)

func (a Anemometer) String() string {
	switch a {
	case Sonic:
		return "Sonic"
	case Analog:
		return "Analog"
	default:
		return fmt.Sprintf("Anemometer(%d)", int(a))
	}
}

// ParseAnemometer parses a sensor kind. The empty string is Sonic.
func ParseAnemometer(s string) (Anemometer, error) {
	switch strings.ToLower(s) {
	case "", "sonic", "usa":
		return Sonic, nil
	case "analog", "cup", "vane":
		return Analog, nil
	}
	return Sonic, &ConfigError{Field: "anemometer", Msg: fmt.Sprintf("unknown anemometer %q", s)}
}

var deviceSuffixes = map[string][2]string{
	"WSP": {Sonic: "_USA", Analog: "_CUP"},
	"DIR": {Sonic: "_USA", Analog: "_VANE"},
}

// DeviceSuffix returns the sensor suffix that observation archives append
// to wind variables for the given anemometer kind. Variables that do not
// depend on the sensor have an empty suffix.
func DeviceSuffix(v string, a Anemometer) string {
	s, ok := deviceSuffixes[strings.ToUpper(v)]
	if !ok || int(a) < 0 || int(a) >= len(s) {
		return ""
	}
	return s[a]
}

// ObsVar is a parsed observation variable name of the form
// {VAR}{suffix}_{level}[_{stat}], e.g. "WSP_USA_40" or "T_10_std".
type ObsVar struct {
	Base   string
	Suffix string
	Level  string
	Stat   string
}

// String formats the name back into archive form.
func (o ObsVar) String() string {
	s := o.Base + o.Suffix
	if o.Level != "" {
		s += "_" + o.Level
	}
	if o.Stat != "" {
		s += "_" + o.Stat
	}
	return s
}

// Height returns the numeric level of the variable in meters.
func (o ObsVar) Height() (float64, error) {
	return strconv.ParseFloat(o.Level, 64)
}

// ObsVarName builds the archive name of variable v measured by anemometer
// a at the given level.
func ObsVarName(v string, a Anemometer, level string) string {
	return ObsVar{Base: v, Suffix: DeviceSuffix(v, a), Level: level}.String()
}

var knownSuffixes = []string{"_USA", "_CUP", "_VANE"}

// ParseObsVarName splits an archive variable name into its parts. Names
// without a numeric level are returned with an empty Level.
func ParseObsVarName(name string) (ObsVar, error) {
	if name == "" {
		return ObsVar{}, &ConfigError{Field: "variable", Msg: "empty variable name"}
	}
	parts := strings.Split(name, "_")
	o := ObsVar{Base: parts[0]}
	if o.Base == "" {
		return ObsVar{}, &ConfigError{Field: "variable", Msg: fmt.Sprintf("malformed variable name %q", name)}
	}
	rest := parts[1:]
	if len(rest) > 0 {
		for _, s := range knownSuffixes {
			if "_"+rest[0] == s {
				o.Suffix = s
				rest = rest[1:]
				break
			}
		}
	}
	if len(rest) > 0 {
		if _, err := strconv.ParseFloat(rest[0], 64); err == nil {
			o.Level = rest[0]
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		o.Stat = strings.Join(rest, "_")
	}
	return o, nil
}

// FormatLevel renders a height the way archive variable names do: whole
// numbers without a decimal point.
func FormatLevel(z float64) string {
	return strconv.FormatFloat(z, 'f', -1, 64)
}
