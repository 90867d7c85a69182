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
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfplot"
	"github.com/spf13/cast"
)

// timeFormats are the accepted layouts of times given on the command
// line or in a configuration file.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02_15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime parses a time in one of timeFormats, in UTC. The empty string
// is the zero time.
func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, f := range timeFormats {
		if t, err := time.ParseInLocation(f, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &wrfplot.ConfigError{Field: field, Msg: fmt.Sprintf("can't parse time %q", s)}
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// getStringSlice returns a list from cfg, which may have been set as a
// comma separated string in a configuration file or environment variable.
func getStringSlice(varName string, cfg *viper.Viper) []string {
	i := cfg.Get(varName)
	var s []string
	if str, ok := i.(string); ok {
		s = strings.Split(str, ",")
	} else {
		s = cast.ToStringSlice(i)
	}
	var out []string
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return expandStringSlice(out)
}

// getFloatSlice parses a list of numbers from cfg.
func getFloatSlice(varName string, cfg *viper.Viper) ([]float64, error) {
	var out []float64
	for _, s := range getStringSlice(varName, cfg) {
		v, err := cast.ToFloat64E(s)
		if err != nil {
			return nil, &wrfplot.ConfigError{Field: varName, Msg: fmt.Sprintf("invalid number %q", s)}
		}
		out = append(out, v)
	}
	return out, nil
}

// setLogging configures the package logger.
func setLogging(verbose bool) {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	l.Out = os.Stderr
	if verbose {
		l.Level = logrus.DebugLevel
	} else {
		l.Level = logrus.InfoLevel
	}
	wrfplot.Log = l
}

// requestFromConfig builds a validated plot request from cfg.
func requestFromConfig(kind wrfplot.PlotKind, cfg *viper.Viper) (*wrfplot.Request, error) {
	at, err := parseTime("time", cfg.GetString("time"))
	if err != nil {
		return nil, err
	}
	an, err := wrfplot.ParseAnemometer(cfg.GetString("anemometer"))
	if err != nil {
		return nil, err
	}
	var obsNames []string
	for _, s := range observationSources(cfg) {
		obsNames = append(obsNames, s.Name)
	}
	return wrfplot.NewRequest(wrfplot.Request{
		Kind:         kind,
		Var:          cfg.GetString("var"),
		Level:        cfg.GetString("level"),
		Location:     cfg.GetString("location"),
		Time:         at,
		Anemometer:   an,
		Experiments:  getStringSlice("experiments", cfg),
		Observations: obsNames,
		Verbose:      cfg.GetBool("verbose"),
	})
}

// observationSources parses the observations option. Each entry is a
// dataset name, read at the plot location, or "dataset:station".
func observationSources(cfg *viper.Viper) []ObsSource {
	var out []ObsSource
	for _, o := range getStringSlice("observations", cfg) {
		s := ObsSource{Name: o, Dataset: o, Station: cfg.GetString("location")}
		if i := strings.Index(o, ":"); i > 0 {
			s.Dataset, s.Station = o[:i], o[i+1:]
		}
		out = append(out, s)
	}
	return out
}

// obsRange returns the period of observations to load: the start and end
// options if given, otherwise the year of the plot time, otherwise the
// period covered by the model data.
func obsRange(cfg *viper.Viper, r *wrfplot.Request, mod wrfplot.ModelData) (start, end time.Time, err error) {
	if start, err = parseTime("start", cfg.GetString("start")); err != nil {
		return
	}
	if end, err = parseTime("end", cfg.GetString("end")); err != nil {
		return
	}
	if !start.IsZero() && !end.IsZero() {
		if !end.After(start) {
			err = &wrfplot.ConfigError{Field: "end", Msg: "end must be after start"}
		}
		return
	}
	if !r.Time.IsZero() {
		start, end = YearRange(r.Time)
		return
	}
	if s, e, ok := ModelSpan(mod); ok {
		return s, e, nil
	}
	return time.Time{}, time.Time{}, &wrfplot.ConfigError{Field: "start",
		Msg: "no model data to take the observation period from; set start and end"}
}

// modelSource builds the model file selection from cfg.
func modelSource(cfg *viper.Viper) ModelSource {
	return ModelSource{
		Domain:          cfg.GetString("domain"),
		Window:          cfg.GetString("window"),
		PredictionRange: cfg.GetString("prediction"),
	}
}

// outputPath returns the output option or, if it is empty, a file in the
// outdir directory named after the request.
func outputPath(cfg *viper.Viper, prefix string, object interface{}) (string, error) {
	if out := os.ExpandEnv(cfg.GetString("output")); out != "" {
		return out, os.MkdirAll(filepath.Dir(out), os.ModePerm)
	}
	dir := os.ExpandEnv(cfg.GetString("outdir"))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	return filepath.Join(dir, keyName(prefix, object)+".png"), nil
}

// xlsxPath returns the workbook path written next to a plot.
func xlsxPath(plotPath string) string {
	return strings.TrimSuffix(plotPath, filepath.Ext(plotPath)) + ".xlsx"
}
