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

	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/wrfplot/internal/ncf"
)

// EarthRadius is the radius of the spherical earth assumed by WRF [m].
const EarthRadius = 6370000.0

// lambertMapProj is the WRF MAP_PROJ code for Lambert conformal grids.
const lambertMapProj = 1

// Projection holds the Lambert conformal parameters of a WRF domain.
type Projection struct {
	StandLon   float64
	MoadCenLat float64
	Truelat1   float64
	Truelat2   float64
	PoleLat    float64
	PoleLon    float64
}

// ProjectionError is returned when projection metadata is missing or
// malformed.
type ProjectionError struct {
	File string
	Msg  string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("mapextract: projection of %s: %s", e.File, e.Msg)
}

// projectionAttrs pairs the attribute names used in intermediate files
// with the corresponding wrfout global attributes.
var projectionAttrs = []struct{ interm, wrf string }{
	{"stand_lon", "STAND_LON"},
	{"moad_cen_lat", "MOAD_CEN_LAT"},
	{"truelat1", "TRUELAT1"},
	{"truelat2", "TRUELAT2"},
	{"pole_lat", "POLE_LAT"},
	{"pole_lon", "POLE_LON"},
}

func (p *Projection) fields() []*float64 {
	return []*float64{&p.StandLon, &p.MoadCenLat, &p.Truelat1, &p.Truelat2, &p.PoleLat, &p.PoleLon}
}

// readProjection reads the projection from the global attributes of f,
// using the wrfout names if wrf is true and the intermediate names
// otherwise.
func readProjection(f *ncf.File, wrf bool) (Projection, error) {
	if wrf {
		if mp, ok := f.Float("", "MAP_PROJ"); ok && int(mp) != lambertMapProj {
			return Projection{}, &ProjectionError{File: f.Name, Msg: fmt.Sprintf("unsupported MAP_PROJ %g", mp)}
		}
	}
	var p Projection
	for i, ptr := range p.fields() {
		name := projectionAttrs[i].interm
		if wrf {
			name = projectionAttrs[i].wrf
		}
		v, ok := f.Float("", name)
		if !ok {
			return Projection{}, &ProjectionError{File: f.Name, Msg: "missing attribute " + name}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Projection{}, &ProjectionError{File: f.Name, Msg: fmt.Sprintf("attribute %s is %g", name, v)}
		}
		*ptr = v
	}
	return p, nil
}

// attributes returns the projection as scalar attributes for an
// intermediate file.
func (p Projection) attributes() map[string][]float64 {
	out := make(map[string][]float64)
	for i, ptr := range p.fields() {
		out[projectionAttrs[i].interm] = []float64{*ptr}
	}
	return out
}

// Proj4 returns the projection as a proj4 string on the WRF sphere.
func (p Projection) Proj4() string {
	return fmt.Sprintf("+proj=lcc +lat_1=%f +lat_2=%f +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 +a=%f +b=%f +units=m",
		p.Truelat1, p.Truelat2, p.MoadCenLat, p.StandLon, EarthRadius, EarthRadius)
}

// SR returns the spatial reference of the projection.
func (p Projection) SR() (*proj.SR, error) {
	return proj.Parse(p.Proj4())
}

func lonLatSR() (*proj.SR, error) {
	return proj.Parse(fmt.Sprintf("+proj=longlat +a=%f +b=%f +no_defs", EarthRadius, EarthRadius))
}

// Transformers returns functions that convert longitude/latitude in
// degrees to projected coordinates in meters and back.
func (p Projection) Transformers() (forward, inverse proj.Transformer, err error) {
	sr, err := p.SR()
	if err != nil {
		return nil, nil, err
	}
	ll, err := lonLatSR()
	if err != nil {
		return nil, nil, err
	}
	if forward, err = ll.NewTransform(sr); err != nil {
		return nil, nil, err
	}
	if inverse, err = sr.NewTransform(ll); err != nil {
		return nil, nil, err
	}
	return forward, inverse, nil
}

// Cone returns the cone factor of the projection.
func (p Projection) Cone() float64 {
	const rad = math.Pi / 180
	t1, t2 := p.Truelat1, p.Truelat2
	if math.Abs(t1-t2) < 0.1 {
		return math.Sin(math.Abs(t1) * rad)
	}
	return (math.Log(math.Cos(t1*rad)) - math.Log(math.Cos(t2*rad))) /
		(math.Log(math.Tan((90-math.Abs(t1))*rad/2)) - math.Log(math.Tan((90-math.Abs(t2))*rad/2)))
}

// Rotation returns the cosine and sine of the angle between grid north
// and true north at the given point. Earth-relative winds are
// u·cos - v·sin and v·cos + u·sin.
func (p Projection) Rotation(lon, lat float64) (cos, sin float64) {
	d := lon - p.StandLon
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	alpha := d * p.Cone() * math.Pi / 180
	if lat < 0 {
		alpha = -alpha
	}
	return math.Cos(alpha), -math.Sin(alpha)
}
