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
	"math"
	"time"

	"github.com/spatialmodel/wrfplot"
	"github.com/tealeg/xlsx"
)

// Sheet names of exported workbooks.
const (
	DataSheet  = "data"
	InfoSheet  = "info"
	StatsSheet = "statistics"
)

// ExportXLSX writes the table prepared for a plot to an Excel workbook
// at path. The data sheet holds one row per time with missing values
// left empty, the info sheet holds the units and description, and the
// statistics sheet compares every column to the first one with data.
func ExportXLSX(path string, t *wrfplot.Table, m wrfplot.Meta) error {
	f := xlsx.NewFile()
	data, err := f.AddSheet(DataSheet)
	if err != nil {
		return err
	}
	header := data.AddRow()
	header.AddCell().SetString("time")
	for _, c := range t.Columns {
		header.AddCell().SetString(c.Name)
	}
	for i, tt := range t.Index {
		row := data.AddRow()
		row.AddCell().SetString(tt.UTC().Format(time.RFC3339))
		for _, c := range t.Columns {
			cell := row.AddCell()
			if v := c.Values[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				cell.SetFloat(v)
			}
		}
	}

	info, err := f.AddSheet(InfoSheet)
	if err != nil {
		return err
	}
	for _, kv := range [][2]string{
		{"description", m.Description},
		{"units", m.Units},
		{"version", "WRFplot v" + wrfplot.Version},
	} {
		row := info.AddRow()
		row.AddCell().SetString(kv[0])
		row.AddCell().SetString(kv[1])
	}
	for _, c := range t.Columns {
		row := info.AddRow()
		row.AddCell().SetString(c.Name)
		if c.Missing {
			row.AddCell().SetString("missing")
		} else {
			row.AddCell().SetString(c.Source)
		}
	}

	st, err := f.AddSheet(StatsSheet)
	if err != nil {
		return err
	}
	header = st.AddRow()
	for _, h := range []string{"name", "reference", "count", "mean", "reference mean",
		"std", "reference std", "MB", "ME", "RMSE", "MFB", "MFE", "R", "slope", "intercept", "R2"} {
		header.AddCell().SetString(h)
	}
	for _, s := range wrfplot.Statistics(t) {
		row := st.AddRow()
		row.AddCell().SetString(s.Name)
		row.AddCell().SetString(s.Reference)
		row.AddCell().SetInt(s.Count)
		for _, v := range []float64{s.Mean, s.RefMean, s.Std, s.RefStd, s.MB, s.ME,
			s.RMSE, s.MFB, s.MFE, s.Corr, s.Slope, s.Intercept, s.R2} {
			cell := row.AddCell()
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				cell.SetFloat(v)
			}
		}
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("plotutil: saving %s: %w", path, err)
	}
	return nil
}
