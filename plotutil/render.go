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
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/spatialmodel/wrfplot"
	"github.com/spatialmodel/wrfplot/mapextract"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default figure size.
const (
	FigWidth  = 8 * vg.Inch
	FigHeight = 5 * vg.Inch
)

// DefaultBins is the number of histogram bins used when none is given.
const DefaultBins = 20

// DefaultSpeedEdges are the lower edges of the wind rose speed classes
// [m s-1].
var DefaultSpeedEdges = []float64{0, 3, 6, 9, 12, 15}

var lineColors = []color.Color{
	color.RGBA{R: 0, G: 0, B: 0, A: 255},
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
	color.RGBA{R: 140, G: 86, B: 75, A: 255},
}

func lineColor(i int) color.Color { return lineColors[i%len(lineColors)] }

// HistogramData is a time-series table to be binned.
type HistogramData struct {
	Table *wrfplot.Table
	Bins  int
}

// WindroseData holds aligned wind speed and direction tables. Source
// selects the column; the first present speed column is used if it is
// empty.
type WindroseData struct {
	Speed, Dir *wrfplot.Table
	Source     string
	Sectors    int
	SpeedEdges []float64
}

// MapData is time index Time of a map extraction.
type MapData struct {
	*mapextract.Extraction
	Time int
}

// Render draws data according to info. The type of data must fit the
// plot kind: *wrfplot.Table for time series and histograms (or
// HistogramData), []wrfplot.Profile, []wrfplot.ScatterPair,
// WindroseData, *wrfplot.TimeHeightField or MapData.
func Render(info wrfplot.PlotInfo, data interface{}) (*plot.Plot, error) {
	switch d := data.(type) {
	case *wrfplot.Table:
		if info.Kind == wrfplot.Histogram {
			return renderHistogram(info, HistogramData{Table: d})
		}
		return renderTimeseries(info, d)
	case HistogramData:
		return renderHistogram(info, d)
	case []wrfplot.Profile:
		return renderProfiles(info, d)
	case []wrfplot.ScatterPair:
		return renderObsVsMod(info, d)
	case WindroseData:
		return renderWindrose(info, d)
	case *wrfplot.TimeHeightField:
		return renderTimeHeight(info, d)
	case MapData:
		return renderMap(info, d)
	default:
		return nil, fmt.Errorf("plotutil: can't render %T as %s", data, info.Kind)
	}
}

// Save writes p to path in the format given by the file extension.
func Save(p *plot.Plot, path string) error {
	if err := p.Save(FigWidth, FigHeight, path); err != nil {
		return fmt.Errorf("plotutil: saving %s: %w", path, err)
	}
	return nil
}

func newPlot(info wrfplot.PlotInfo) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = info.Title
	p.X.Label.Text = info.XLabel
	p.Y.Label.Text = info.YLabel
	if info.FontSize > 0 {
		size := vg.Points(float64(info.FontSize))
		p.Title.Font.Size = size
		p.X.Label.Font.Size = size
		p.Y.Label.Font.Size = size
	}
	if info.XLim[1] > info.XLim[0] {
		p.X.Min, p.X.Max = info.XLim[0], info.XLim[1]
	}
	if info.YLim[1] > info.YLim[0] {
		p.Y.Min, p.Y.Max = info.YLim[0], info.YLim[1]
	}
	return p, nil
}

func unix(t time.Time) float64 { return float64(t.UnixNano()) / 1e9 }

// finiteXYs pairs x and y, leaving out points where either is missing.
func finiteXYs(x, y []float64) plotter.XYs {
	var out plotter.XYs
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		out = append(out, struct{ X, Y float64 }{x[i], y[i]})
	}
	return out
}

func timeAxis(p *plot.Plot, info wrfplot.PlotInfo) {
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	if !info.TLim[0].IsZero() && info.TLim[1].After(info.TLim[0]) {
		p.X.Min, p.X.Max = unix(info.TLim[0]), unix(info.TLim[1])
	}
}

func renderTimeseries(info wrfplot.PlotInfo, t *wrfplot.Table) (*plot.Plot, error) {
	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	timeAxis(p, info)
	x := make([]float64, len(t.Index))
	for i, tt := range t.Index {
		x[i] = unix(tt)
	}
	for i, c := range t.Columns {
		if c.Missing {
			continue
		}
		pts := finiteXYs(x, c.Values)
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = lineColor(i)
		p.Add(l)
		p.Legend.Add(c.Name, l)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

func renderHistogram(info wrfplot.PlotInfo, h HistogramData) (*plot.Plot, error) {
	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	bins := h.Bins
	if bins <= 0 {
		bins = DefaultBins
	}
	lo, hi := info.XLim[0], info.XLim[1]
	if !(hi > lo) {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, c := range h.Table.Present() {
			for _, v := range c.Values {
				if !math.IsNaN(v) {
					lo, hi = math.Min(lo, v), math.Max(hi, v)
				}
			}
		}
		if !(hi > lo) {
			return p, nil
		}
	}
	for i, c := range h.Table.Columns {
		if c.Missing {
			continue
		}
		counts, dividers := wrfplot.HistogramCounts(c.Values, bins, lo, hi)
		var steps plotter.XYs
		for b, n := range counts {
			steps = append(steps, struct{ X, Y float64 }{dividers[b], n}, struct{ X, Y float64 }{dividers[b+1], n})
		}
		if len(steps) == 0 {
			continue
		}
		l, err := plotter.NewLine(steps)
		if err != nil {
			return nil, err
		}
		l.Color = lineColor(i)
		p.Add(l)
		p.Legend.Add(c.Name, l)
	}
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "count"
	}
	return p, nil
}

func renderProfiles(info wrfplot.PlotInfo, profiles []wrfplot.Profile) (*plot.Plot, error) {
	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	for i, pr := range profiles {
		if pr.Missing {
			continue
		}
		pts := finiteXYs(pr.Values, pr.Alt)
		if len(pts) == 0 {
			continue
		}
		l, s, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, err
		}
		l.Color = lineColor(i)
		s.Color = lineColor(i)
		p.Add(l, s)
		p.Legend.Add(pr.Source, l, s)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

func renderObsVsMod(info wrfplot.PlotInfo, pairs []wrfplot.ScatterPair) (*plot.Plot, error) {
	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	one := plotter.NewFunction(func(x float64) float64 { return x })
	one.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(one)
	for i, pair := range pairs {
		pts := finiteXYs(pair.Obs, pair.Mod)
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.Color = lineColor(i + 1)
		s.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(pair.Experiment, s)
		if len(pts) > 1 {
			x := make([]float64, len(pts))
			y := make([]float64, len(pts))
			for j, pt := range pts {
				x[j], y[j] = pt.X, pt.Y
			}
			alpha, beta := stat.LinearRegression(x, y, nil, false)
			fit := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
			fit.Color = lineColor(i + 1)
			p.Add(fit)
		}
	}
	return p, nil
}

var compass16 = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

func sectorLabels(n int) []string {
	if n == len(compass16) {
		return compass16
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%g°", float64(i)*360/float64(n))
	}
	return out
}

// columns returns the speed and direction values of source, or
// of the first present speed column if source is empty.
func (w WindroseData) columns() (name string, speed, dir []float64, err error) {
	var sc *wrfplot.Column
	if w.Source == "" {
		present := w.Speed.Present()
		if len(present) == 0 {
			return "", nil, nil, fmt.Errorf("plotutil: %w: no wind speed for the wind rose", wrfplot.ErrNoData)
		}
		sc = &present[0]
	} else {
		c, ok := w.Speed.Column(w.Source)
		if !ok {
			return "", nil, nil, fmt.Errorf("plotutil: %w: no wind speed for %s", wrfplot.ErrNoData, w.Source)
		}
		sc = c
	}
	dc, ok := w.Dir.Column(sc.Name)
	if !ok || dc.Missing {
		return "", nil, nil, fmt.Errorf("plotutil: %w: no wind direction for %s", wrfplot.ErrNoData, sc.Name)
	}
	// Speed and direction tables may have different time indexes.
	byTime := make(map[int64]float64, len(w.Dir.Index))
	for i, t := range w.Dir.Index {
		byTime[t.UnixNano()] = dc.Values[i]
	}
	for i, t := range w.Speed.Index {
		d, ok := byTime[t.UnixNano()]
		if !ok {
			continue
		}
		speed = append(speed, sc.Values[i])
		dir = append(dir, d)
	}
	return sc.Name, speed, dir, nil
}

func renderWindrose(info wrfplot.PlotInfo, w WindroseData) (*plot.Plot, error) {
	name, speed, dir, err := w.columns()
	if err != nil {
		return nil, err
	}
	sectors := w.Sectors
	if sectors == 0 {
		sectors = len(compass16)
	}
	edges := w.SpeedEdges
	if len(edges) == 0 {
		edges = DefaultSpeedEdges
	}
	bins, err := wrfplot.WindroseBins(speed, dir, sectors, edges)
	if err != nil {
		return nil, err
	}

	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	p.Title.Text = "Wind rose " + name
	p.Y.Label.Text = "frequency (%)"
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	colors := cm.Palette(len(edges)).Colors()
	var below *plotter.BarChart
	for k := range edges {
		vals := make(plotter.Values, sectors)
		for s := range vals {
			vals[s] = bins[s][k]
		}
		b, err := plotter.NewBarChart(vals, vg.Points(12))
		if err != nil {
			return nil, err
		}
		b.Color = colors[k]
		b.LineStyle.Width = 0
		if below != nil {
			b.StackOn(below)
		}
		p.Add(b)
		label := fmt.Sprintf("≥ %g m/s", edges[k])
		if k+1 < len(edges) {
			label = fmt.Sprintf("%g-%g m/s", edges[k], edges[k+1])
		}
		p.Legend.Add(label, b)
		below = b
	}
	p.NominalX(sectorLabels(sectors)...)
	p.Legend.Top = true
	return p, nil
}

// grid is a regular grid for heat maps and contours. Values outside
// [min, max] are clamped.
type grid struct {
	x, y     []float64
	z        func(c, r int) float64
	min, max float64
}

func (g grid) Dims() (c, r int) { return len(g.x), len(g.y) }
func (g grid) X(c int) float64 { return g.x[c] }
func (g grid) Y(r int) float64 { return g.y[r] }
func (g grid) Z(c, r int) float64 { return math.Max(g.min, math.Min(g.max, g.z(c, r))) }

// colormap returns n colors of the named color map.
func colormap(name string, n int) palette.Palette {
	switch name {
	case "hsv":
		return palette.Rainbow(n, 0, 1, 1, 1, 1)
	case "jet":
		return palette.Rainbow(n, palette.Blue, palette.Red, 1, 1, 1)
	case "terrain":
		cm := moreland.ExtendedBlackBody()
		cm.SetMin(0)
		cm.SetMax(1)
		return cm.Palette(n)
	default:
		cm := moreland.ExtendedKindlmann()
		cm.SetMin(0)
		cm.SetMax(1)
		return cm.Palette(n)
	}
}

func colorRange(info wrfplot.PlotInfo, values []float64) (lo, hi float64) {
	lo, hi = info.CLim[0], info.CLim[1]
	if hi > lo {
		return lo, hi
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) {
		return 0, 1
	}
	if !(hi > lo) {
		hi = lo + 1
	}
	return lo, hi
}

func heatMap(g grid, cmap string) *plotter.HeatMap {
	h := plotter.NewHeatMap(g, colormap(cmap, 64))
	h.Min, h.Max = g.min, g.max
	return h
}

func renderTimeHeight(info wrfplot.PlotInfo, f *wrfplot.TimeHeightField) (*plot.Plot, error) {
	nt, nz := len(f.Times), len(f.Alt)
	if nt < 2 || nz < 2 {
		return nil, fmt.Errorf("plotutil: a time-height plot needs at least 2 times and 2 levels, have %d and %d", nt, nz)
	}
	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	timeAxis(p, info)
	x := make([]float64, nt)
	for i, t := range f.Times {
		x[i] = unix(t)
	}
	lo, hi := colorRange(info, f.Values.Elements)
	g := grid{x: x, y: f.Alt, min: lo, max: hi,
		z: func(c, r int) float64 { return f.Values.Get(c, r) }}
	p.Add(heatMap(g, info.Cmap))
	return p, nil
}

type solid []color.Color

func (s solid) Colors() []color.Color { return s }

func renderMap(info wrfplot.PlotInfo, m MapData) (*plot.Plot, error) {
	f := m.Field
	ny, nx := f.Lat.Shape[0], f.Lat.Shape[1]
	if ny < 2 || nx < 2 {
		return nil, fmt.Errorf("plotutil: a map needs at least 2x2 grid points, have %dx%d", ny, nx)
	}
	if m.Time < 0 || m.Time >= len(f.Times) {
		return nil, fmt.Errorf("plotutil: time index %d outside of %d map times", m.Time, len(f.Times))
	}
	p, err := newPlot(info)
	if err != nil {
		return nil, err
	}
	x := make([]float64, nx)
	for i := range x {
		x[i] = f.Lon.Get(0, i)
	}
	y := make([]float64, ny)
	for j := range y {
		y[j] = f.Lat.Get(j, 0)
	}
	values := f.At(m.Time)
	lo, hi := colorRange(info, values)
	p.Add(heatMap(grid{x: x, y: y, min: lo, max: hi,
		z: func(c, r int) float64 { return values[r*nx+c] }}, info.Cmap))

	if t := m.Terrain; t != nil && len(t.Data.Elements) == nx*ny {
		tlo, thi := colorRange(wrfplot.PlotInfo{}, t.Data.Elements)
		levels := make([]float64, 5)
		for i := range levels {
			levels[i] = tlo + (thi-tlo)*float64(i+1)/float64(len(levels)+1)
		}
		c := plotter.NewContour(grid{x: x, y: y, min: tlo, max: thi,
			z: func(c, r int) float64 { return t.Data.Elements[r*nx+c] }},
			levels, solid{color.Gray{Y: 80}})
		p.Add(c)
	}
	if fm := m.Forest; fm != nil && len(fm.Data.Elements) == nx*ny {
		var pts plotter.XYs
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				if fm.Data.Elements[j*nx+i] == 1 {
					pts = append(pts, struct{ X, Y float64 }{f.Lon.Get(j, i), f.Lat.Get(j, i)})
				}
			}
		}
		if len(pts) > 0 {
			s, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, err
			}
			s.Color = color.RGBA{G: 100, A: 255}
			s.Radius = vg.Points(1)
			p.Add(s)
			p.Legend.Add("forest", s)
		}
	}
	return p, nil
}
