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
	"math"
	"sort"
	"time"
)

// MissingLabel is the name of placeholder columns for sources that have
// no data for a request.
const MissingLabel = "Data Missing"

// Series is a single named time series. A Missing series stands in for a
// source without data and contributes a placeholder column.
type Series struct {
	Name    string
	Times   []time.Time
	Values  []float64
	Missing bool
}

// Column is one column of a Table.
type Column struct {
	// Name is the display name of the column, e.g. the observation
	// dataset or the experiment, or MissingLabel.
	Name string
	// Source identifies the dataset or experiment the column came from.
	Source  string
	Values  []float64
	Missing bool
}

// Table is a prepared comparison table: columns sharing one time index.
type Table struct {
	Index   []time.Time
	Columns []Column
}

// Column returns the first column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Present returns the columns that hold data.
func (t *Table) Present() []Column {
	var out []Column
	for _, c := range t.Columns {
		if !c.Missing {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the length of the index.
func (t *Table) Len() int { return len(t.Index) }

// MissingColumn returns a placeholder column for source with one NaN per
// row of an index of length n.
func MissingColumn(source string, n int) Column {
	return Column{Name: MissingLabel, Source: source, Values: nanSlice(n), Missing: true}
}

// EmptyTable returns the table used when no source produced data. It has
// two sentinel instants and a single placeholder column so that plotting
// code can treat it like any other table.
func EmptyTable() *Table {
	return &Table{
		Index: []time.Time{
			time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Columns: []Column{MissingColumn("", 2)},
	}
}

// Concat joins series column-wise on the sorted union of their time
// indexes, keeping the order of series. Rows where a series has no value
// are NaN.
func Concat(series []Series) *Table {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, t := range s.Times {
			seen[t.UnixNano()] = t
		}
	}
	index := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[int64]int, len(index))
	for i, t := range index {
		pos[t.UnixNano()] = i
	}
	tbl := &Table{Index: index}
	for _, s := range series {
		if s.Missing {
			tbl.Columns = append(tbl.Columns, MissingColumn(s.Name, len(index)))
			continue
		}
		vals := nanSlice(len(index))
		for i, t := range s.Times {
			vals[pos[t.UnixNano()]] = s.Values[i]
		}
		tbl.Columns = append(tbl.Columns, Column{Name: s.Name, Source: s.Name, Values: vals})
	}
	return tbl
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
