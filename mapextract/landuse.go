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

import "math"

// USGSCategories holds the names of the 24-category USGS land use
// classes used by WRF, indexed by LU_INDEX-1.
var USGSCategories = []string{
	"Urban and Built-Up Land",
	"Dryland Cropland and Pasture",
	"Irrigated Cropland and Pasture",
	"Mixed Dryland/Irrigated Cropland and Pasture",
	"Cropland/Grassland Mosaic",
	"Cropland/Woodland Mosaic",
	"Grassland",
	"Shrubland",
	"Mixed Shrubland/Grassland",
	"Savanna",
	"Deciduous Broadleaf Forest",
	"Deciduous Needleleaf Forest",
	"Evergreen Broadleaf Forest",
	"Evergreen Needleleaf Forest",
	"Mixed Forest",
	"Water Bodies",
	"Herbaceous Wetland",
	"Wooded Wetland",
	"Barren or Sparsely Vegetated",
	"Herbaceous Tundra",
	"Wooded Tundra",
	"Mixed Tundra",
	"Bare Ground Tundra",
	"Snow or Ice",
}

// Forest land use codes are firstForest through lastForest.
const (
	firstForest = 11
	lastForest  = 15
)

// USGSCategory returns the name of land use code c, or "" if c is not
// a USGS category.
func USGSCategory(c float64) string {
	i := int(c)
	if float64(i) != c || i < 1 || i > len(USGSCategories) {
		return ""
	}
	return USGSCategories[i-1]
}

// IsForest reports whether land use code c is one of the forest classes.
func IsForest(c float64) bool {
	return c >= firstForest && c <= lastForest && c == math.Trunc(c)
}

// ForestMask returns 1 where codes holds a forest class and NaN
// everywhere else, for overlaying forests on maps.
func ForestMask(codes []float64) []float64 {
	out := make([]float64, len(codes))
	for i, c := range codes {
		if IsForest(c) {
			out[i] = 1
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
