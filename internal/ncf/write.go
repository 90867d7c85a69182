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

package ncf

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
)

// Writer writes a new NetCDF file. Data go to a temporary file in the
// destination directory, which replaces the destination on Close.
type Writer struct {
	*cdf.File
	path string
	tmp  *os.File
}

// Create starts writing a file with header h, which must not have been
// defined yet.
func Create(path string, h *cdf.Header) (*Writer, error) {
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return nil, fmt.Errorf("ncf: invalid header for %s: %v", path, errs[0])
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	tmp, err := ioutil.TempFile(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return nil, err
	}
	ff, err := cdf.Create(tmp, h)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("ncf: creating %s: %v", path, err)
	}
	return &Writer{File: ff, path: path, tmp: tmp}, nil
}

// WriteFloats writes all values of variable v, converting them to the
// variable's storage type.
func (w *Writer) WriteFloats(v string, data []float64) error {
	shape := w.Header.Lengths(v)
	if shape == nil {
		return fmt.Errorf("ncf: variable %s not in header of %s", v, w.path)
	}
	n := 1
	for _, l := range shape {
		n *= l
	}
	if len(data) != n {
		return fmt.Errorf("ncf: variable %s in %s has %d elements but data has %d", v, w.path, n, len(data))
	}
	var buf interface{}
	switch w.Header.ZeroValue(v, 0).(type) {
	case []float32:
		b := make([]float32, len(data))
		for i, e := range data {
			b[i] = float32(e)
		}
		buf = b
	case []float64:
		buf = data
	case []int32:
		b := make([]int32, len(data))
		for i, e := range data {
			b[i] = int32(e)
		}
		buf = b
	case []int16:
		b := make([]int16, len(data))
		for i, e := range data {
			b[i] = int16(e)
		}
		buf = b
	case []uint8:
		b := make([]uint8, len(data))
		for i, e := range data {
			b[i] = uint8(e)
		}
		buf = b
	default:
		return fmt.Errorf("ncf: variable %s in %s has unsupported type", v, w.path)
	}
	if n == 0 {
		return nil
	}
	var begin, end []int
	if len(shape) > 0 {
		begin = make([]int, len(shape))
		end = make([]int, len(shape))
		for i, l := range shape {
			end[i] = l - 1
		}
	}
	// The writer reports io.EOF once it reaches the end corner.
	if _, err := w.Writer(v, begin, end).Write(buf); err != nil && err != io.EOF {
		return fmt.Errorf("ncf: writing %s to %s: %v", v, w.path, err)
	}
	return nil
}

// WriteStrings writes a two-dimensional character variable, padding each
// string with NUL bytes to the length of the second dimension.
func (w *Writer) WriteStrings(v string, s []string) error {
	shape := w.Header.Lengths(v)
	if len(shape) != 2 || shape[0] != len(s) {
		return fmt.Errorf("ncf: character variable %s in %s does not hold %d strings", v, w.path, len(s))
	}
	if len(s) == 0 {
		return nil
	}
	buf := make([]byte, shape[0]*shape[1])
	for i, str := range s {
		if len(str) > shape[1] {
			return fmt.Errorf("ncf: string %q longer than %d characters", str, shape[1])
		}
		copy(buf[i*shape[1]:], str)
	}
	if _, err := w.Writer(v, []int{0, 0}, []int{shape[0] - 1, shape[1] - 1}).Write(buf); err != nil && err != io.EOF {
		return fmt.Errorf("ncf: writing %s to %s: %v", v, w.path, err)
	}
	return nil
}

// Close finishes the file and moves it to its destination.
func (w *Writer) Close() error {
	if err := cdf.UpdateNumRecs(w.tmp); err != nil {
		w.Abort()
		return err
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	return os.Rename(w.tmp.Name(), w.path)
}

// Abort discards the partially written file.
func (w *Writer) Abort() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
