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
	"time"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats compares one column of a table with the reference column.
// Only rows where both have values are used.
type ColumnStats struct {
	Name      string
	Reference string
	Count     int

	Mean, RefMean float64
	Std, RefStd   float64

	MB   float64 // mean bias
	ME   float64 // mean error
	RMSE float64
	MFB  float64 // mean fractional bias
	MFE  float64 // mean fractional error

	Corr      float64
	Slope     float64
	Intercept float64
	R2        float64
}

// Statistics compares every column of t that holds data with the first
// such column, which is usually the observation.
func Statistics(t *Table) []ColumnStats {
	present := t.Present()
	if len(present) < 2 {
		return nil
	}
	ref := present[0]
	var out []ColumnStats
	for _, c := range present[1:] {
		var a, b []float64
		for i := range ref.Values {
			if math.IsNaN(ref.Values[i]) || math.IsNaN(c.Values[i]) {
				continue
			}
			a = append(a, ref.Values[i])
			b = append(b, c.Values[i])
		}
		out = append(out, compare(ref.Name, c.Name, a, b))
	}
	return out
}

// compare computes the statistics of model values b against reference
// values a.
func compare(refName, name string, a, b []float64) ColumnStats {
	s := ColumnStats{Name: name, Reference: refName, Count: len(a)}
	if len(a) == 0 {
		nan := math.NaN()
		s.Mean, s.RefMean, s.Std, s.RefStd = nan, nan, nan, nan
		s.MB, s.ME, s.RMSE, s.MFB, s.MFE = nan, nan, nan, nan, nan
		s.Corr, s.Slope, s.Intercept, s.R2 = nan, nan, nan, nan
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(b, nil)
	s.RefMean, s.RefStd = stat.MeanStdDev(a, nil)
	diff := make([]float64, len(a))
	floats.SubTo(diff, b, a)
	s.MB = floats.Sum(diff) / float64(len(a))
	s.RMSE = floats.Norm(diff, 2) / math.Sqrt(float64(len(a)))
	for i, v1 := range a {
		v2 := b[i]
		s.ME += math.Abs(v2 - v1)
		s.MFB += 2 * (v2 - v1) / (v1 + v2)
		s.MFE += 2 * math.Abs(v2-v1) / math.Abs(v1+v2)
	}
	n := float64(len(a))
	s.ME /= n
	s.MFB /= n
	s.MFE /= n
	if len(a) > 1 {
		s.Corr = stat.Correlation(a, b, nil)
		s.Slope, s.Intercept, s.R2, _, _, _ = stats.LinearRegression(a, b)
	} else {
		s.Corr, s.Slope, s.Intercept, s.R2 = math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	return s
}

// HistogramCounts counts the finite values of x in nbins equal bins from lo to
// hi. Values outside the range are ignored; hi falls into the last bin.
func HistogramCounts(x []float64, nbins int, lo, hi float64) (counts, dividers []float64) {
	if nbins < 1 || !(hi > lo) {
		return nil, nil
	}
	dividers = make([]float64, nbins+1)
	floats.Span(dividers, lo, hi)
	dividers[nbins] = math.Nextafter(hi, math.Inf(1))
	var in []float64
	for _, v := range x {
		if v >= lo && v <= hi {
			in = append(in, v)
		}
	}
	sort.Float64s(in)
	counts = make([]float64, nbins)
	if len(in) > 0 {
		stat.Histogram(counts, dividers, in, nil)
	}
	dividers[nbins] = hi
	return counts, dividers
}

// WindroseBins returns the frequency in percent of each combination of
// direction sector and speed class. Sectors are centered on north and
// numbered clockwise. Speed class i holds speeds from speedEdges[i] up to
// speedEdges[i+1]; the last class is open-ended. Pairs with a missing
// value or a speed below speedEdges[0] are ignored.
func WindroseBins(speed, dir []float64, sectors int, speedEdges []float64) ([][]float64, error) {
	if sectors < 1 {
		return nil, &ConfigError{Field: "sectors", Msg: fmt.Sprintf("need at least one sector, got %d", sectors)}
	}
	if len(speedEdges) == 0 {
		return nil, &ConfigError{Field: "speedbins", Msg: "no speed classes"}
	}
	out := make([][]float64, sectors)
	for i := range out {
		out[i] = make([]float64, len(speedEdges))
	}
	width := 360 / float64(sectors)
	n := 0
	for i, s := range speed {
		d := dir[i]
		if math.IsNaN(s) || math.IsNaN(d) || s < speedEdges[0] {
			continue
		}
		sec := int(math.Floor(math.Mod(math.Mod(d+width/2, 360)+360, 360) / width))
		if sec >= sectors {
			sec = sectors - 1
		}
		class := sort.SearchFloat64s(speedEdges, s)
		if class == len(speedEdges) || speedEdges[class] != s {
			class--
		}
		out[sec][class]++
		n++
	}
	if n > 0 {
		for _, row := range out {
			floats.Scale(100/float64(n), row)
		}
	}
	return out, nil
}

// Availability returns a 12x31 matrix holding, for every day of the year
// (month, day of month), the percentage of samples of values that are
// not missing. Days without samples are NaN. If year is not zero, only
// samples from that year are counted.
func Availability(times []time.Time, values []float64, year int) *sparse.DenseArray {
	total := sparse.ZerosDense(12, 31)
	valid := sparse.ZerosDense(12, 31)
	for i, t := range times {
		if year != 0 && t.Year() != year {
			continue
		}
		m, d := int(t.Month())-1, t.Day()-1
		total.AddVal(1, m, d)
		if !math.IsNaN(values[i]) {
			valid.AddVal(1, m, d)
		}
	}
	out := sparse.ZerosDense(12, 31)
	for i, n := range total.Elements {
		if n == 0 {
			out.Elements[i] = math.NaN()
			continue
		}
		out.Elements[i] = valid.Elements[i] / n * 100
	}
	return out
}
