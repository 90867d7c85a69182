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

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// Expression defines a variable as a function of other variables, e.g.
// WSP = "hypot(U, V)". Expressions are evaluated elementwise.
type Expression struct {
	Name         string
	Expr         string
	Units        string
	StandardName string
	LongName     string
}

// DefaultExpressions derive wind speed and direction from the wind
// components.
var DefaultExpressions = []Expression{
	{Name: "WSP", Expr: "hypot(U, V)", Units: "m s-1", StandardName: "wind_speed", LongName: "wind speed"},
	{Name: "DIR", Expr: "wdir(U, V)", Units: "degree", StandardName: "wind_from_direction", LongName: "wind direction"},
}

func argFunc(name string, n int, f func(a []float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != n {
			return nil, fmt.Errorf("wrfplot: got %d arguments for function '%s', but needs %d", len(arg), name, n)
		}
		a := make([]float64, n)
		for i, v := range arg {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("wrfplot: argument %d of '%s' is not a number", i, name)
			}
			a[i] = f
		}
		return f(a), nil
	}
}

var expressionFuncs = map[string]govaluate.ExpressionFunction{
	"hypot": argFunc("hypot", 2, func(a []float64) float64 { return math.Hypot(a[0], a[1]) }),
	"atan2": argFunc("atan2", 2, func(a []float64) float64 { return math.Atan2(a[0], a[1]) }),
	"wdir":  argFunc("wdir", 2, func(a []float64) float64 { return WindDirection(a[0], a[1]) }),
	"pow":   argFunc("pow", 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }),
	"sqrt":  argFunc("sqrt", 1, func(a []float64) float64 { return math.Sqrt(a[0]) }),
	"exp":   argFunc("exp", 1, func(a []float64) float64 { return math.Exp(a[0]) }),
	"log":   argFunc("log", 1, func(a []float64) float64 { return math.Log(a[0]) }),
	"abs":   argFunc("abs", 1, func(a []float64) float64 { return math.Abs(a[0]) }),
}

// Vars returns the sorted, unique variable names e depends on.
func (e Expression) Vars() ([]string, error) {
	ex, err := govaluate.NewEvaluableExpressionWithFunctions(e.Expr, expressionFuncs)
	if err != nil {
		return nil, &ConfigError{Field: e.Name, Msg: err.Error()}
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range ex.Vars() {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Evaluate computes e elementwise over the named input slices, which
// must all have the same length. A missing input results in ErrNoData.
func (e Expression) Evaluate(inputs map[string][]float64) ([]float64, error) {
	ex, err := govaluate.NewEvaluableExpressionWithFunctions(e.Expr, expressionFuncs)
	if err != nil {
		return nil, &ConfigError{Field: e.Name, Msg: err.Error()}
	}
	vars := ex.Vars()
	n := -1
	for _, v := range vars {
		in, ok := inputs[v]
		if !ok {
			return nil, noData("variable %s needed for %s", v, e.Name)
		}
		if n >= 0 && len(in) != n {
			return nil, fmt.Errorf("wrfplot: inputs to %s have different lengths", e.Name)
		}
		n = len(in)
	}
	if n < 0 {
		return nil, &ConfigError{Field: e.Name, Msg: "expression has no input variables"}
	}
	out := make([]float64, n)
	params := make(map[string]interface{}, len(vars))
	for i := range out {
		for _, v := range vars {
			params[v] = inputs[v][i]
		}
		r, err := ex.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("wrfplot: evaluating %s: %v", e.Name, err)
		}
		f, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("wrfplot: expression %s evaluated to %T, not a number", e.Name, r)
		}
		out[i] = f
	}
	return out, nil
}

// DeriveColumn returns a copy of c with every expression in exprs whose
// inputs are present and that is not already in c added as a new
// variable. Inputs must share a shape.
func DeriveColumn(c *ModelColumn, exprs []Expression) (*ModelColumn, error) {
	out := c.Copy()
	for _, e := range exprs {
		if _, ok := out.Vars[e.Name]; ok {
			continue
		}
		names, err := e.Vars()
		if err != nil {
			return nil, err
		}
		inputs := make(map[string][]float64, len(names))
		var shape []int
		complete := true
		for _, n := range names {
			v, ok := out.Vars[n]
			if !ok {
				complete = false
				break
			}
			if shape != nil && !sameShape(shape, v.Data.Shape) {
				complete = false
				break
			}
			shape = v.Data.Shape
			inputs[n] = v.Data.Elements
		}
		if !complete {
			continue
		}
		vals, err := e.Evaluate(inputs)
		if err != nil {
			return nil, err
		}
		data := sparse.ZerosDense(shape...)
		copy(data.Elements, vals)
		out.Vars[e.Name] = &ModelVar{
			Name:         e.Name,
			Units:        e.Units,
			StandardName: e.StandardName,
			LongName:     e.LongName,
			Data:         data,
		}
	}
	return out, nil
}

// DeriveObs returns a copy of rec with every expression in exprs added
// for each sensor level at which all of its inputs exist. Inputs are
// matched by level: an expression "hypot(U, V)" named WSP yields WSP_40
// from U_40 and V_40.
func DeriveObs(rec *ObsRecord, exprs []Expression) (*ObsRecord, error) {
	out := rec.Copy()
	for _, e := range exprs {
		names, err := e.Vars()
		if err != nil {
			return nil, err
		}
		levels := make(map[string]int)
		for name := range rec.Vars {
			o, err := ParseObsVarName(name)
			if err != nil || o.Level == "" || o.Stat != "" {
				continue
			}
			for _, n := range names {
				if o.Base+o.Suffix == n {
					levels[o.Level]++
				}
			}
		}
		for lev, count := range levels {
			if count != len(names) {
				continue
			}
			target := e.Name + "_" + lev
			if _, ok := out.Vars[target]; ok {
				continue
			}
			inputs := make(map[string][]float64, len(names))
			for _, n := range names {
				inputs[n] = rec.Vars[n+"_"+lev].Values
			}
			vals, err := e.Evaluate(inputs)
			if err != nil {
				return nil, err
			}
			out.Vars[target] = &Variable{
				Name:         target,
				Units:        e.Units,
				StandardName: e.StandardName,
				LongName:     e.LongName,
				Values:       vals,
			}
		}
	}
	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
