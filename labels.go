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
	"time"
)

// PlotInfo holds the axis limits and labels of a plot.
type PlotInfo struct {
	Kind   PlotKind
	Var    string
	XLim   [2]float64
	YLim   [2]float64
	CLim   [2]float64
	TLim   [2]time.Time
	XLabel string
	YLabel string
	Title  string

	FontSize int
	Ticks    []float64
	Cmap     string
	WspMax   float64
}

const defaultFontSize = 15

// valueRange returns the finite minimum and maximum of the given slices.
// ok is false if there are no finite values.
func valueRange(values ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			ok = true
		}
	}
	return lo, hi, ok
}

func tableValues(t *Table) [][]float64 {
	out := make([][]float64, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Missing {
			out = append(out, c.Values)
		}
	}
	return out
}

func label(description, units string) string {
	return fmt.Sprintf("%s (%s)", description, units)
}

// TimeseriesInfo returns the limits and labels of a time series plot.
func TimeseriesInfo(v string, t *Table, m Meta) PlotInfo {
	info := PlotInfo{Kind: Timeseries, Var: v, XLabel: "time (UTC)", YLabel: label(m.Description, m.Units), FontSize: defaultFontSize}
	if lo, hi, ok := valueRange(tableValues(t)...); ok {
		info.YLim = [2]float64{math.Floor(lo), math.Ceil(hi)}
	}
	if len(t.Index) > 0 {
		info.TLim = [2]time.Time{t.Index[0], t.Index[len(t.Index)-1]}
	}
	return info
}

// HistogramInfo returns the labels of a histogram.
func HistogramInfo(v string, m Meta) PlotInfo {
	return PlotInfo{Kind: Histogram, Var: v, XLabel: label(m.Description, m.Units), YLabel: "Count", FontSize: defaultFontSize}
}

// ProfilesInfo returns the limits and labels of a profile plot. Heights
// start at the ground.
func ProfilesInfo(v string, profiles []Profile, m Meta) PlotInfo {
	info := PlotInfo{Kind: Profiles, Var: v, XLabel: label(m.Description, m.Units), YLabel: "z (m)", FontSize: defaultFontSize}
	var alts, vals [][]float64
	for _, p := range profiles {
		alts = append(alts, p.Alt)
		vals = append(vals, p.Values)
	}
	if _, hi, ok := valueRange(alts...); ok {
		info.YLim = [2]float64{0, hi}
	}
	if lo, hi, ok := valueRange(vals...); ok {
		info.XLim = [2]float64{lo, hi}
	}
	return info
}

// WindroseInfo returns the wind speed range of a wind rose.
func WindroseInfo(speed *Table) PlotInfo {
	info := PlotInfo{Kind: Windrose, Var: "WSP", FontSize: defaultFontSize}
	if _, hi, ok := valueRange(tableValues(speed)...); ok {
		info.WspMax = math.Ceil(hi)
	}
	return info
}

// ObsVsModInfo returns square limits covering all values of t.
func ObsVsModInfo(v string, t *Table, m Meta) PlotInfo {
	info := PlotInfo{
		Kind:     ObsVsMod,
		Var:      v,
		XLabel:   fmt.Sprintf("Observation (%s)", m.Units),
		YLabel:   fmt.Sprintf("Model (%s)", m.Units),
		FontSize: defaultFontSize,
	}
	if lo, hi, ok := valueRange(tableValues(t)...); ok {
		lim := [2]float64{math.Floor(lo), math.Ceil(hi)}
		info.XLim, info.YLim = lim, lim
	}
	return info
}

// TimeHeightInfo returns the limits and labels of a time-height plot.
func TimeHeightInfo(f *TimeHeightField) PlotInfo {
	info := PlotInfo{
		Kind:     TimeHeight,
		Var:      f.Var,
		XLabel:   "time (UTC)",
		YLabel:   fmt.Sprintf("z (%s)", f.AltUnits),
		Title:    label(f.LongName, f.Units),
		FontSize: defaultFontSize,
		Cmap:     "viridis",
	}
	if lo, hi, ok := valueRange(f.Values.Elements); ok {
		info.CLim = [2]float64{math.Floor(lo), math.Ceil(hi)}
	}
	if lo, hi, ok := valueRange(f.Alt); ok {
		info.YLim = [2]float64{math.Floor(lo), math.Ceil(hi)}
	}
	if len(f.Times) > 0 {
		info.TLim = [2]time.Time{f.Times[0], f.Times[len(f.Times)-1]}
	}
	return info
}

// MapField is the minimal description of a map needed for its limits
// and labels.
type MapField struct {
	Name        string
	Description string
	Units       string
	ModelLevel  int
	Values      []float64
	Lon, Lat    []float64
}

// MapInfo returns the color limits, color map and labels of a map.
func MapInfo(f MapField) PlotInfo {
	lo, hi, ok := valueRange(f.Values)
	if !ok {
		lo, hi = 0, 1
	}
	lo, hi = math.Floor(lo), math.Ceil(hi)
	cmap := "viridis"
	switch f.Name {
	case "DIR", "dir", "dd":
		lo, hi, cmap = 0, 360, "hsv"
	case "HGT", "hgt", "terrain":
		lo = 25 * math.Round(lo/25)
		hi = 25 * math.Round(hi/25)
		cmap = "terrain"
	case "LU_INDEX":
		lo, hi, cmap = 1, 3, "jet"
	}
	info := PlotInfo{
		Kind:     Map,
		Var:      f.Name,
		CLim:     [2]float64{lo, hi},
		XLabel:   "longitude (°)",
		YLabel:   "latitude (°)",
		Title:    fmt.Sprintf("%s (%s) at model level %d", f.Description, f.Units, f.ModelLevel),
		FontSize: defaultFontSize,
		Cmap:     cmap,
		Ticks:    linspace(lo, hi, 10),
	}
	if xlo, xhi, ok := valueRange(f.Lon); ok {
		info.XLim = [2]float64{xlo, xhi}
	}
	if ylo, yhi, ok := valueRange(f.Lat); ok {
		info.YLim = [2]float64{ylo, yhi}
	}
	return info
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}
