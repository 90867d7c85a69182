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
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/wrfplot"
)

// Registry locates the output of model experiments.
type Registry interface {
	// Workdir returns the working directory of experiment exp.
	Workdir(exp string) (string, error)

	// Locations returns the time-series locations of experiment exp.
	// An empty result means all locations in the output files.
	Locations(exp string) ([]string, error)
}

// Experiment is an entry of a project registry file.
type Experiment struct {
	Workdir     string
	Locations   []string
	Description string
}

// TOMLRegistry is a project registry read from a TOML file of the form
//
//	Project = "Testproject"
//	[Experiments.exp1]
//	Workdir = "${RUNS}/exp1"
//	Locations = ["FINO", "Mast"]
type TOMLRegistry struct {
	Project     string
	Experiments map[string]Experiment
}

// LoadRegistry reads a project registry. Environment variables in
// working directories are expanded.
func LoadRegistry(path string) (*TOMLRegistry, error) {
	var r TOMLRegistry
	if _, err := toml.DecodeFile(os.ExpandEnv(path), &r); err != nil {
		return nil, fmt.Errorf("plotutil: reading registry %s: %w", path, err)
	}
	for name, e := range r.Experiments {
		if e.Workdir == "" {
			return nil, &wrfplot.ConfigError{Source: path, Field: name, Msg: "experiment has no Workdir"}
		}
		e.Workdir = os.ExpandEnv(e.Workdir)
		r.Experiments[name] = e
	}
	return &r, nil
}

func (r *TOMLRegistry) experiment(exp string) (Experiment, error) {
	e, ok := r.Experiments[exp]
	if !ok {
		return Experiment{}, &wrfplot.ConfigError{Source: r.Project, Field: exp, Msg: "experiment not in registry"}
	}
	return e, nil
}

// Workdir implements Registry.
func (r *TOMLRegistry) Workdir(exp string) (string, error) {
	e, err := r.experiment(exp)
	return e.Workdir, err
}

// Locations implements Registry.
func (r *TOMLRegistry) Locations(exp string) ([]string, error) {
	e, err := r.experiment(exp)
	return e.Locations, err
}

// Names returns the registered experiments in alphabetical order.
func (r *TOMLRegistry) Names() []string {
	out := make([]string, 0, len(r.Experiments))
	for n := range r.Experiments {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
