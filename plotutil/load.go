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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfplot"
)

// ModelSource selects the model output files that are read.
type ModelSource struct {
	Domain string

	// Window is the averaging window in minutes, or "raw".
	Window string

	// PredictionRange, if set, selects a prediction-range file instead
	// of the time-series list.
	PredictionRange string
}

func (s ModelSource) path(workdir string) string {
	if s.PredictionRange != "" {
		return wrfplot.PredictionPath(workdir, s.PredictionRange, s.Domain)
	}
	return wrfplot.TSListPath(workdir, wrfplot.TSListPrefix(s.Window), s.Domain)
}

// LoadModelData reads the registered locations of each experiment.
// Experiments without output are logged and left out, so the result
// may be empty.
func LoadModelData(reg Registry, exps []string, src ModelSource) (wrfplot.ModelData, error) {
	out := make(wrfplot.ModelData)
	for _, exp := range exps {
		cols, err := loadExperiment(reg, exp, src)
		var cerr *wrfplot.ConfigError
		if errors.Is(err, wrfplot.ErrNoData) || errors.As(err, &cerr) {
			wrfplot.Log.WithFields(logrus.Fields{"source": exp, "reason": err}).Warn("no data for experiment")
			continue
		} else if err != nil {
			return nil, err
		}
		for _, c := range cols {
			out.Add(c)
		}
	}
	return out, nil
}

func loadExperiment(reg Registry, exp string, src ModelSource) ([]*wrfplot.ModelColumn, error) {
	workdir, err := reg.Workdir(exp)
	if err != nil {
		return nil, err
	}
	locs, err := reg.Locations(exp)
	if err != nil {
		return nil, err
	}
	path := src.path(workdir)
	wrfplot.Log.WithFields(logrus.Fields{"source": exp, "file": path}).Debug("loading model output")
	return wrfplot.ReadTSList(path, exp, locs)
}

// ConcatModelData reads every experiment and joins the runs at each
// location along time, for experiments that continue one another.
// The joined columns are labeled with the first experiment.
func ConcatModelData(reg Registry, exps []string, src ModelSource) (map[string]*wrfplot.ModelColumn, error) {
	byLoc := make(map[string][]*wrfplot.ModelColumn)
	var order []string
	for _, exp := range exps {
		cols, err := loadExperiment(reg, exp, src)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if _, ok := byLoc[c.Location]; !ok {
				order = append(order, c.Location)
			}
			byLoc[c.Location] = append(byLoc[c.Location], c)
		}
	}
	out := make(map[string]*wrfplot.ModelColumn, len(order))
	for _, loc := range order {
		c, err := wrfplot.ConcatColumns(byLoc[loc]...)
		if err != nil {
			return nil, err
		}
		out[loc] = c
	}
	return out, nil
}

// ObsSource is one observation to load: a station of an archive
// dataset, stored under Name.
type ObsSource struct {
	Name    string
	Dataset string
	Station string
}

// LoadObsData reads each observation source between start and end
// with potential temperature added. Sources without data are logged and
// left out.
func LoadObsData(ctx context.Context, reader *wrfplot.ObsReader, sources []ObsSource, start, end time.Time) (wrfplot.ObsData, error) {
	out := make(wrfplot.ObsData)
	for _, s := range sources {
		name := s.Name
		if name == "" {
			name = s.Station
		}
		rec, err := reader.ReadObs(ctx, s.Dataset, s.Station, start, end, wrfplot.ReadOptions{PotentialTemperature: true})
		if errors.Is(err, wrfplot.ErrNoData) {
			wrfplot.Log.WithFields(logrus.Fields{"source": name, "reason": err}).Warn("no data for observation")
			continue
		} else if err != nil {
			return nil, fmt.Errorf("plotutil: loading %s from %s: %w", s.Station, s.Dataset, err)
		}
		out[name] = rec
	}
	return out, nil
}

// YearRange returns the calendar year containing t, the default
// observation period of a plot at time t.
func YearRange(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// ModelSpan returns the earliest and latest time of all columns in mod.
func ModelSpan(mod wrfplot.ModelData) (start, end time.Time, ok bool) {
	for _, locs := range mod {
		for _, c := range locs {
			if len(c.Times) == 0 {
				continue
			}
			if !ok || c.Times[0].Before(start) {
				start = c.Times[0]
			}
			if last := c.Times[len(c.Times)-1]; !ok || last.After(end) {
				end = last
			}
			ok = true
		}
	}
	return start, end, ok
}
