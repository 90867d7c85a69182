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

// Package wrfplot prepares WRF model output and station observations for
// comparison plots. It reads observation archives and model time-series
// columns, interpolates model columns to sensor heights, derives
// quantities such as potential temperature and wind direction, and aligns
// everything into tables that a plotting layer can render directly.
package wrfplot

import "github.com/sirupsen/logrus"

// Version gives the version number.
const Version = "0.3.0"

// Log receives messages about skipped sources and other non-fatal
// conditions. It can be replaced to redirect or silence logging.
var Log logrus.FieldLogger = logrus.StandardLogger()
