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

package mapextract

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/wrfplot"
	"github.com/spatialmodel/wrfplot/internal/ncf"
)

// wrfTimeFormat is the layout of the WRF Times character variable.
const wrfTimeFormat = "2006-01-02_15:04:05"

// wrfout is an open WRF output file.
type wrfout struct {
	f      *ncf.File
	proj   Projection
	times  []time.Time
	ny, nx int
	lat    []float64
	lon    []float64
}

func openWRFOut(path string) (*wrfout, error) {
	f, err := ncf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	w := &wrfout{f: f}
	if err := w.init(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *wrfout) init() error {
	var err error
	if w.proj, err = readProjection(w.f, true); err != nil {
		return err
	}
	ts, err := w.f.ReadStrings("Times")
	if err != nil {
		return fmt.Errorf("mapextract: %w", err)
	}
	for _, s := range ts {
		t, err := time.Parse(wrfTimeFormat, s)
		if err != nil {
			return fmt.Errorf("mapextract: parsing time in %s: %v", w.f.Name, err)
		}
		w.times = append(w.times, t)
	}
	if len(w.times) == 0 {
		return fmt.Errorf("mapextract: %w: %s has no times", wrfplot.ErrNoData, w.f.Name)
	}
	lat, err := w.surface("XLAT", 0)
	if err != nil {
		return err
	}
	lon, err := w.surface("XLONG", 0)
	if err != nil {
		return err
	}
	w.lat, w.lon = lat.Elements, lon.Elements
	w.ny, w.nx = lat.Shape[0], lat.Shape[1]
	return nil
}

func (w *wrfout) Close() error { return w.f.Close() }

// timeIndex returns the record holding time t.
func (w *wrfout) timeIndex(t time.Time) (int, bool) {
	for i, tt := range w.times {
		if tt.Equal(t) {
			return i, true
		}
	}
	return -1, false
}

func (w *wrfout) missing(v string) error {
	return fmt.Errorf("mapextract: %w: variable %s not in %s", wrfplot.ErrNoData, v, w.f.Name)
}

// surface reads record rec of the two-dimensional field v.
func (w *wrfout) surface(v string, rec int) (*sparse.DenseArray, error) {
	if !w.f.Has(v) {
		return nil, w.missing(v)
	}
	d, err := w.f.ReadRecord(v, rec)
	if err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	if len(d.Shape) != 2 {
		return nil, fmt.Errorf("mapextract: %s in %s has %d dimensions per record instead of 2", v, w.f.Name, len(d.Shape))
	}
	return d, nil
}

// level reads model level k of record rec of the three-dimensional field
// v, averaging onto mass points along staggered dimensions.
func (w *wrfout) level(v string, rec, k int) ([]float64, error) {
	if !w.f.Has(v) {
		return nil, w.missing(v)
	}
	d, err := w.f.ReadRecord(v, rec)
	if err != nil {
		return nil, fmt.Errorf("mapextract: %w", err)
	}
	if len(d.Shape) != 3 {
		return nil, fmt.Errorf("mapextract: %s in %s has %d dimensions per record instead of 3", v, w.f.Name, len(d.Shape))
	}
	staggerDim := -1
	for i, dim := range w.f.Dims(v)[1:] {
		if strings.HasSuffix(dim, "_stag") {
			staggerDim = i
		}
	}
	nz := d.Shape[0]
	if staggerDim == 0 {
		nz--
	}
	if k < 0 || k >= nz {
		return nil, fmt.Errorf("mapextract: %w: model level %d of %s outside of [0, %d)", wrfplot.ErrNoData, k, v, nz)
	}
	return unstaggerLevel(d, staggerDim, k), nil
}

// unstaggerLevel returns level k of in, averaging neighboring points
// along staggerDim, which is -1 for fields on mass points.
func unstaggerLevel(in *sparse.DenseArray, staggerDim, k int) []float64 {
	ny, nx := in.Shape[1], in.Shape[2]
	switch staggerDim {
	case 1:
		ny--
	case 2:
		nx--
	}
	out := make([]float64, ny*nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := in.Get(k, j, i)
			switch staggerDim {
			case 0: // out[j,i] = (in[k,j,i] + in[k+1,j,i])/2
				v = (v + in.Get(k+1, j, i)) / 2
			case 1: // out[j,i] = (in[k,j,i] + in[k,j+1,i])/2
				v = (v + in.Get(k, j+1, i)) / 2
			case 2: // out[j,i] = (in[k,j,i] + in[k,j,i+1])/2
				v = (v + in.Get(k, j, i+1)) / 2
			}
			out[j*nx+i] = v
		}
	}
	return out
}

// theta returns potential temperature [K] from the perturbation
// potential temperature T.
func (w *wrfout) theta(rec, k int) ([]float64, error) {
	t, err := w.level("T", rec, k)
	if err != nil {
		return nil, err
	}
	for i := range t {
		t[i] += 300
	}
	return t, nil
}

// pressure returns total pressure [Pa] as the sum of the perturbation
// and base state pressures.
func (w *wrfout) pressure(rec, k int) ([]float64, error) {
	p, err := w.level("P", rec, k)
	if err != nil {
		return nil, err
	}
	pb, err := w.level("PB", rec, k)
	if err != nil {
		return nil, err
	}
	for i := range p {
		p[i] += pb[i]
	}
	return p, nil
}

// temperature returns air temperature [K] from potential temperature
// and pressure.
func (w *wrfout) temperature(rec, k int) ([]float64, error) {
	theta, err := w.theta(rec, k)
	if err != nil {
		return nil, err
	}
	p, err := w.pressure(rec, k)
	if err != nil {
		return nil, err
	}
	for i := range theta {
		theta[i] *= math.Pow(p[i]/wrfplot.P00, wrfplot.Kappa)
	}
	return theta, nil
}

// rotation returns the cosine and sine of the grid rotation angle at
// each mass point, read from COSALPHA and SINALPHA when the file has
// them and computed from the projection otherwise.
func (w *wrfout) rotation(rec int) (cos, sin []float64, err error) {
	if w.f.Has("COSALPHA") && w.f.Has("SINALPHA") {
		c, err := w.surface("COSALPHA", rec)
		if err != nil {
			return nil, nil, err
		}
		s, err := w.surface("SINALPHA", rec)
		if err != nil {
			return nil, nil, err
		}
		return c.Elements, s.Elements, nil
	}
	cos = make([]float64, len(w.lat))
	sin = make([]float64, len(w.lat))
	for i := range w.lat {
		cos[i], sin[i] = w.proj.Rotation(w.lon[i], w.lat[i])
	}
	return cos, sin, nil
}

// earthWinds rotates grid-relative winds to earth-relative winds in
// place.
func (w *wrfout) earthWinds(u, v []float64, rec int) error {
	cos, sin, err := w.rotation(rec)
	if err != nil {
		return err
	}
	for i := range u {
		ue := u[i]*cos[i] - v[i]*sin[i]
		ve := v[i]*cos[i] + u[i]*sin[i]
		u[i], v[i] = ue, ve
	}
	return nil
}

// winds returns earth-relative winds at model level k, or the 10 m
// winds if k is Surface.
func (w *wrfout) winds(rec, k int) (u, v []float64, err error) {
	if k == Surface {
		uu, err := w.surface("U10", rec)
		if err != nil {
			return nil, nil, err
		}
		vv, err := w.surface("V10", rec)
		if err != nil {
			return nil, nil, err
		}
		u = append([]float64(nil), uu.Elements...)
		v = append([]float64(nil), vv.Elements...)
	} else {
		if u, err = w.level("U", rec, k); err != nil {
			return nil, nil, err
		}
		if v, err = w.level("V", rec, k); err != nil {
			return nil, nil, err
		}
	}
	if err := w.earthWinds(u, v, rec); err != nil {
		return nil, nil, err
	}
	return u, v, nil
}

func speed(u, v []float64) []float64 {
	out := make([]float64, len(u))
	for i := range u {
		out[i] = math.Hypot(u[i], v[i])
	}
	return out
}
