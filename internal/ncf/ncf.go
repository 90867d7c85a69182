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

// Package ncf wraps github.com/ctessum/cdf with the small set of
// operations needed to read and write the NetCDF files used by WRFplot:
// whole-variable reads with record dimensions resolved, attribute lookup,
// CF time coordinates, character arrays, and atomic file creation.
package ncf

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// File is an open NetCDF file.
type File struct {
	*cdf.File
	Name string
	f    *os.File
	size int64
}

// Open opens the NetCDF file at path for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncf: opening %s: %v", path, err)
	}
	return &File{File: ff, Name: path, f: f, size: fi.Size()}, nil
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }

// Has reports whether the file contains variable v.
func (f *File) Has(v string) bool { return f.Header.Lengths(v) != nil }

// NumRecs returns the number of records along the record dimension.
func (f *File) NumRecs() int { return int(f.Header.NumRecs(f.size)) }

// Shape returns the dimension lengths of variable v, with the record
// dimension replaced by the number of records in the file.
func (f *File) Shape(v string) []int {
	l := f.Header.Lengths(v)
	if l == nil {
		return nil
	}
	shape := append([]int(nil), l...)
	if f.Header.IsRecordVariable(v) {
		shape[0] = f.NumRecs()
	}
	return shape
}

// Dims returns the dimension names of variable v.
func (f *File) Dims(v string) []string { return f.Header.Dimensions(v) }

// Read reads all of variable v.
func (f *File) Read(v string) (*sparse.DenseArray, error) {
	shape := f.Shape(v)
	if shape == nil {
		return nil, fmt.Errorf("ncf: variable %s not in file %s", v, f.Name)
	}
	return f.read(v, make([]int, len(shape)), shape)
}

// ReadRecord reads record rec of record variable v. The record dimension
// is dropped from the result.
func (f *File) ReadRecord(v string, rec int) (*sparse.DenseArray, error) {
	shape := f.Shape(v)
	if shape == nil {
		return nil, fmt.Errorf("ncf: variable %s not in file %s", v, f.Name)
	}
	if len(shape) == 0 || rec < 0 || rec >= shape[0] {
		return nil, fmt.Errorf("ncf: record %d of %s out of range in %s", rec, v, f.Name)
	}
	start := make([]int, len(shape))
	start[0] = rec
	count := append([]int{1}, shape[1:]...)
	data, err := f.read(v, start, count)
	if err != nil {
		return nil, err
	}
	if len(shape) == 1 {
		return data, nil
	}
	out := sparse.ZerosDense(shape[1:]...)
	copy(out.Elements, data.Elements)
	return out, nil
}

// read reads the hyperslab of v that starts at start and has count
// elements along each dimension.
func (f *File) read(v string, start, count []int) (*sparse.DenseArray, error) {
	dims := count
	if len(dims) == 0 {
		dims = []int{1}
	}
	n := 1
	for _, c := range dims {
		n *= c
	}
	data := sparse.ZerosDense(dims...)
	if n == 0 {
		return data, nil
	}
	var begin, end []int
	if len(count) > 0 {
		begin = start
		end = make([]int, len(count))
		for i := range count {
			end[i] = start[i] + count[i] - 1
		}
	}
	r := f.Reader(v, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ncf: reading %s from %s: %v", v, f.Name, err)
	}
	switch b := buf.(type) {
	case []float32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, b)
	case []int32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []int16:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []uint8:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("ncf: variable %s in %s has unsupported type %T", v, f.Name, buf)
	}
	return data, nil
}

// ReadStrings reads a two-dimensional character variable as one string
// per row, with trailing NUL bytes and spaces removed.
func (f *File) ReadStrings(v string) ([]string, error) {
	shape := f.Shape(v)
	if len(shape) != 2 {
		return nil, fmt.Errorf("ncf: variable %s in %s is not a 2-D character array", v, f.Name)
	}
	if shape[0] == 0 {
		return nil, nil
	}
	r := f.Reader(v, []int{0, 0}, []int{shape[0] - 1, shape[1] - 1})
	buf := make([]byte, shape[0]*shape[1])
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ncf: reading %s from %s: %v", v, f.Name, err)
	}
	out := make([]string, shape[0])
	for i := range out {
		out[i] = strings.TrimRight(string(buf[i*shape[1]:(i+1)*shape[1]]), "\x00 ")
	}
	return out, nil
}

// Attr returns string attribute a of variable v, or of the file if v is
// empty. Non-string and absent attributes return "".
func (f *File) Attr(v, a string) string {
	s, _ := f.Header.GetAttribute(v, a).(string)
	return s
}

// Float returns the first value of numeric attribute a of variable v, or
// of the file if v is empty.
func (f *File) Float(v, a string) (float64, bool) {
	switch val := f.Header.GetAttribute(v, a).(type) {
	case []float64:
		if len(val) > 0 {
			return val[0], true
		}
	case []float32:
		if len(val) > 0 {
			return float64(val[0]), true
		}
	case []int32:
		if len(val) > 0 {
			return float64(val[0]), true
		}
	case []int16:
		if len(val) > 0 {
			return float64(val[0]), true
		}
	}
	return 0, false
}

// ReadTimes reads a CF time coordinate variable.
func (f *File) ReadTimes(v string) ([]time.Time, error) {
	data, err := f.Read(v)
	if err != nil {
		return nil, err
	}
	return DecodeTimes(data.Elements, f.Attr(v, "units"))
}

// TimeUnits is the time coordinate encoding used for files written by
// this package.
const TimeUnits = "seconds since 1970-01-01 00:00:00"

var timeSteps = map[string]time.Duration{
	"seconds": time.Second,
	"second":  time.Second,
	"s":       time.Second,
	"minutes": time.Minute,
	"minute":  time.Minute,
	"hours":   time.Hour,
	"hour":    time.Hour,
	"h":       time.Hour,
	"days":    24 * time.Hour,
	"day":     24 * time.Hour,
}

var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01-02_15:04:05",
}

// ParseTimeUnits parses a CF time unit string such as
// "minutes since 2020-05-17 00:00:00".
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("ncf: invalid time units %q", units)
	}
	step, ok := timeSteps[strings.ToLower(parts[0])]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("ncf: invalid time step in %q", units)
	}
	ref := strings.TrimSuffix(strings.TrimSpace(parts[1]), " UTC")
	for _, layout := range epochLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("ncf: invalid reference time in %q", units)
}

// DecodeTimes converts numeric CF time values to times. Values are
// rounded to the nearest second.
func DecodeTimes(values []float64, units string) ([]time.Time, error) {
	step, epoch, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(values))
	for i, v := range values {
		d := time.Duration(v * float64(step))
		out[i] = epoch.Add(d).Round(time.Second).UTC()
	}
	return out, nil
}

// EncodeTimes converts times to seconds since 1970-01-01 (TimeUnits).
func EncodeTimes(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t.Unix())
	}
	return out
}
