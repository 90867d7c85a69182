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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/wrfplot"
	"github.com/spatialmodel/wrfplot/internal/hash"
	"github.com/spatialmodel/wrfplot/mapextract"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/plot"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	plotFlags := []*pflag.FlagSet{timeseriesCmd.Flags(), profileCmd.Flags(), ztCmd.Flags(),
		obsVsModCmd.Flags(), windroseCmd.Flags(), histogramCmd.Flags()}
	withExtract := append([]*pflag.FlagSet{}, plotFlags...)
	withExtract = append(withExtract, extractCmd.Flags())

	// Options are the configuration options available to WRFplot.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose turns on debug logging, including sources that are
              skipped for lack of data.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "registry",
			usage: `
              registry is the TOML file listing the model experiments, their
              working directories and locations. It can include environment
              variables.`,
			defaultVal: "experiments.toml",
			flagsets:   plotFlags,
		},
		{
			name: "archive",
			usage: `
              archive is the root directory of the observation archive, with
              one subdirectory per dataset. It can include environment variables.`,
			defaultVal: "${HOME}/obs_archive",
			flagsets:   append(append([]*pflag.FlagSet{}, plotFlags...), importCmd.Flags()),
		},
		{
			name: "domain",
			usage: `
              domain is the WRF domain, e.g. d01.`,
			shorthand:  "d",
			defaultVal: "d01",
			flagsets:   withExtract,
		},
		{
			name: "window",
			usage: `
              window selects the time series files of a run: "raw" for the
              unaveraged time series or an averaging window such as "10min".`,
			defaultVal: "raw",
			flagsets:   plotFlags,
		},
		{
			name: "prediction",
			usage: `
              prediction is the prediction range of operational runs, e.g.
              "0-24". If set, prediction files are read instead of time series
              files.`,
			defaultVal: "",
			flagsets:   plotFlags,
		},
		{
			name: "experiments",
			usage: `
              experiments are the model runs to plot, in plotting order.`,
			shorthand:  "e",
			defaultVal: []string{},
			flagsets:   plotFlags,
		},
		{
			name: "observations",
			usage: `
              observations are the archive datasets to plot, in plotting order.
              An entry can be "dataset" to read the station named by --location
              or "dataset:station".`,
			shorthand:  "o",
			defaultVal: []string{},
			flagsets:   plotFlags,
		},
		{
			name: "location",
			usage: `
              location is the station at which data are compared.`,
			shorthand:  "l",
			defaultVal: "",
			flagsets:   plotFlags,
		},
		{
			name: "var",
			usage: `
              var is the variable short name, e.g. WSP, DIR, T or PT.`,
			defaultVal: "WSP",
			flagsets:   withExtract,
		},
		{
			name: "level",
			usage: `
              level is the height in m at which time series are compared, as it
              appears in observation variable names, e.g. 82.`,
			defaultVal: "",
			flagsets:   plotFlags,
		},
		{
			name: "time",
			usage: `
              time is the instant of a profile or map, e.g. 2018-06-01T12:00:00.
              All times are UTC.`,
			shorthand:  "t",
			defaultVal: "",
			flagsets:   withExtract,
		},
		{
			name: "start",
			usage: `
              start is the beginning of the observation period. If start or end
              is empty, the year of --time or the model period is used.`,
			defaultVal: "",
			flagsets:   plotFlags,
		},
		{
			name: "end",
			usage: `
              end is the end of the observation period.`,
			defaultVal: "",
			flagsets:   plotFlags,
		},
		{
			name: "anemometer",
			usage: `
              anemometer selects the wind sensor of observations: Sonic or Analog.`,
			defaultVal: "Sonic",
			flagsets:   plotFlags,
		},
		{
			name: "output",
			usage: `
              output is the file the plot is saved to. Its extension selects the
              format (png, pdf, svg, eps). If empty, a name is made up from the
              plot configuration and the file is put in --outdir.`,
			defaultVal: "",
			flagsets:   withExtract,
		},
		{
			name: "outdir",
			usage: `
              outdir is the directory of plots whose output file is not given.`,
			defaultVal: ".",
			flagsets:   withExtract,
		},
		{
			name: "xlsx",
			usage: `
              xlsx also writes the plotted data and statistics to an Excel
              workbook next to the plot.`,
			defaultVal: false,
			flagsets:   plotFlags,
		},
		{
			name: "bins",
			usage: `
              bins is the number of histogram bins.`,
			defaultVal: DefaultBins,
			flagsets:   []*pflag.FlagSet{histogramCmd.Flags()},
		},
		{
			name: "sectors",
			usage: `
              sectors is the number of wind rose direction sectors.`,
			defaultVal: 16,
			flagsets:   []*pflag.FlagSet{windroseCmd.Flags()},
		},
		{
			name: "speedbins",
			usage: `
              speedbins are the lower edges of the wind rose speed classes in m/s.`,
			defaultVal: []string{"0", "3", "6", "9", "12", "15"},
			flagsets:   []*pflag.FlagSet{windroseCmd.Flags()},
		},
		{
			name: "source",
			usage: `
              source is the experiment or observation shown in the wind rose.
              The first one with data is used if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{windroseCmd.Flags()},
		},
		{
			name: "wrfout",
			usage: `
              wrfout is the WRF output file to extract a map field from. If it
              is empty, the field is loaded from --intermediate.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{extractCmd.Flags()},
		},
		{
			name: "modellevel",
			usage: `
              modellevel is the zero based model level to extract. -1 is the
              surface.`,
			defaultVal: mapextract.Surface,
			flagsets:   []*pflag.FlagSet{extractCmd.Flags()},
		},
		{
			name: "intermediate",
			usage: `
              intermediate is the directory of stored map fields. It can
              include environment variables.`,
			defaultVal: "intermediate",
			flagsets:   []*pflag.FlagSet{extractCmd.Flags()},
		},
		{
			name: "store",
			usage: `
              store saves extracted fields to --intermediate.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{extractCmd.Flags()},
		},
		{
			name: "timestamp",
			usage: `
              timestamp selects the stored field to load, in the format
              20060102_150405, or "*" to load all stored times.`,
			defaultVal: mapextract.AllTimes,
			flagsets:   []*pflag.FlagSet{extractCmd.Flags()},
		},
		{
			name: "importconfig",
			usage: `
              importconfig is the TOML file describing raw station files to
              import into the archive.`,
			defaultVal: "import.toml",
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
		{
			name: "overwrite",
			usage: `
              overwrite replaces archive files that already exist.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("WRFPLOT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(timeseriesCmd)
	Root.AddCommand(profileCmd)
	Root.AddCommand(ztCmd)
	Root.AddCommand(obsVsModCmd)
	Root.AddCommand(windroseCmd)
	Root.AddCommand(histogramCmd)
	Root.AddCommand(extractCmd)
	Root.AddCommand(importCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("wrfplot: problem reading configuration file: %v", err)
		}
	}
	setLogging(Cfg.GetBool("verbose"))
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "wrfplot",
	Short: "Compare WRF model output with observations.",
	Long: `WRFplot prepares WRF time series, profiles and map fields together with
station observations and draws comparison plots.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'WRFPLOT_var' where 'var' is the
name of the variable to be set. Paths are allowed to contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of WRFplot.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("WRFplot v%s\n", wrfplot.Version)
	},
	DisableAutoGenTag: true,
}

func plotCommand(use, short, long string, kind wrfplot.PlotKind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, kind, Cfg)
		},
		DisableAutoGenTag: true,
	}
}

var timeseriesCmd = plotCommand("timeseries", "Plot time series",
	`timeseries plots a variable at one location and height for each
experiment and observation dataset.`, wrfplot.Timeseries)

var profileCmd = plotCommand("profile", "Plot vertical profiles",
	`profile plots the vertical profile of a variable at one location and
time for each experiment and observation dataset.`, wrfplot.Profiles)

var ztCmd = plotCommand("zt", "Plot a time-height cross section",
	`zt plots a variable over time and height at one location for the first
experiment.`, wrfplot.TimeHeight)

var obsVsModCmd = plotCommand("obsvsmod", "Scatter plot of observed against modeled values",
	`obsvsmod plots modeled against observed values of a variable at one
location and height, with a regression line per experiment.`, wrfplot.ObsVsMod)

var windroseCmd = plotCommand("windrose", "Plot a wind rose",
	`windrose plots the frequency of wind speed classes by direction sector
at one location and height.`, wrfplot.Windrose)

var histogramCmd = plotCommand("histogram", "Plot histograms",
	`histogram plots the distribution of a variable at one location and
height for each experiment and observation dataset.`, wrfplot.Histogram)

// keyName is the file name of a plot without extension.
func keyName(prefix string, object interface{}) string {
	return hash.Key(prefix, object)
}

// runPlot loads the data a plot needs, prepares it and saves the plot.
func runPlot(cmd *cobra.Command, kind wrfplot.PlotKind, cfg *viper.Viper) error {
	req, err := requestFromConfig(kind, cfg)
	if err != nil {
		return err
	}
	reg, err := LoadRegistry(os.ExpandEnv(cfg.GetString("registry")))
	if err != nil {
		return err
	}
	mod, err := LoadModelData(reg, req.Experiments, modelSource(cfg))
	if err != nil {
		return err
	}
	obs := make(wrfplot.ObsData)
	if sources := observationSources(cfg); len(sources) > 0 && kind != wrfplot.TimeHeight {
		start, end, err := obsRange(cfg, req, mod)
		if err != nil {
			return err
		}
		reader := wrfplot.NewObsReader(wrfplot.ArchiveConfig{Root: os.ExpandEnv(cfg.GetString("archive"))})
		if obs, err = LoadObsData(context.Background(), reader, sources, start, end); err != nil {
			return err
		}
	}

	var (
		info  wrfplot.PlotInfo
		data  interface{}
		table *wrfplot.Table
		meta  wrfplot.Meta
	)
	switch kind {
	case wrfplot.Timeseries:
		if table, meta, err = wrfplot.PrepTimeseries(obs, mod, req); err != nil {
			return err
		}
		info, data = wrfplot.TimeseriesInfo(req.Var, table, meta), table
	case wrfplot.Histogram:
		if table, meta, err = wrfplot.PrepHistogram(obs, mod, req); err != nil {
			return err
		}
		info = wrfplot.HistogramInfo(req.Var, meta)
		data = HistogramData{Table: table, Bins: cfg.GetInt("bins")}
	case wrfplot.ObsVsMod:
		var pairs []wrfplot.ScatterPair
		if pairs, table, meta, err = wrfplot.PrepObsVsModel(obs, mod, req); err != nil {
			return err
		}
		info, data = wrfplot.ObsVsModInfo(req.Var, table, meta), pairs
	case wrfplot.Windrose:
		var dir *wrfplot.Table
		if table, dir, meta, err = wrfplot.PrepWindrose(obs, mod, req); err != nil {
			return err
		}
		edges, err := getFloatSlice("speedbins", cfg)
		if err != nil {
			return err
		}
		info = wrfplot.WindroseInfo(table)
		data = WindroseData{Speed: table, Dir: dir, Source: cfg.GetString("source"),
			Sectors: cfg.GetInt("sectors"), SpeedEdges: edges}
	case wrfplot.Profiles:
		profiles, m, err := wrfplot.PrepProfiles(obs, mod, req)
		if err != nil {
			return err
		}
		info, data = wrfplot.ProfilesInfo(req.Var, profiles, m), profiles
	case wrfplot.TimeHeight:
		f, err := wrfplot.PrepTimeHeight(mod, req)
		if err != nil {
			return err
		}
		info, data = wrfplot.TimeHeightInfo(f), f
	default:
		return &wrfplot.ConfigError{Field: "kind", Msg: fmt.Sprintf("%s can't be plotted from time series", kind)}
	}

	p, err := Render(info, data)
	if err != nil {
		return err
	}
	out, err := outputPath(cfg, kind.String()+" "+req.Var, req)
	if err != nil {
		return err
	}
	if err := save(cmd, p, out); err != nil {
		return err
	}
	if cfg.GetBool("xlsx") && table != nil {
		path := xlsxPath(out)
		if err := ExportXLSX(path, table, meta); err != nil {
			return err
		}
		cmd.Printf("wrote %s\n", path)
	}
	return nil
}

func save(cmd *cobra.Command, p *plot.Plot, path string) error {
	if err := Save(p, path); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}

// extractCmd extracts and plots a map field.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and plot a map field",
	Long: `extract reads a variable at one model level from a WRF output file
(--wrfout), earth-rotating winds and destaggering as needed, optionally stores
it for later use (--store) and plots it as a map with the terrain height and
forest cover. Without --wrfout the field is loaded from the stored files in
--intermediate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, Cfg)
	},
	DisableAutoGenTag: true,
}

func runExtract(cmd *cobra.Command, cfg *viper.Viper) error {
	e := &mapextract.Extractor{IntermediateDir: os.ExpandEnv(cfg.GetString("intermediate"))}
	domain := cfg.GetString("domain")
	v := strings.ToUpper(strings.TrimSpace(cfg.GetString("var")))
	k := cfg.GetInt("modellevel")
	at, err := parseTime("time", cfg.GetString("time"))
	if err != nil {
		return err
	}

	var ex *mapextract.Extraction
	if wrfout := os.ExpandEnv(cfg.GetString("wrfout")); wrfout != "" {
		if ex, err = e.Extract(wrfout, domain, v, k, at); err != nil {
			return err
		}
		if cfg.GetBool("store") {
			files, err := e.Store(ex)
			if err != nil {
				return err
			}
			for _, f := range files {
				cmd.Printf("wrote %s\n", f)
			}
		}
	} else if ex, err = e.Load(domain, v, k, cfg.GetString("timestamp")); err != nil {
		return err
	}

	ti := 0
	if !at.IsZero() {
		i, ok := ex.Field.Index(at)
		if !ok {
			return fmt.Errorf("plotutil: %w: %s has no data at %v", wrfplot.ErrNoData, v, at)
		}
		ti = i
	}
	p, err := Render(wrfplot.MapInfo(ex.Field.MapField(ti)), MapData{Extraction: ex, Time: ti})
	if err != nil {
		return err
	}
	key := struct {
		Domain, Var string
		Level       int
		Time        time.Time
	}{domain, v, k, ex.Field.Times[ti]}
	out, err := outputPath(cfg, "Map "+v+" "+ex.Field.Level(), key)
	if err != nil {
		return err
	}
	return save(cmd, p, out)
}

// importCmd imports raw station files into the observation archive.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import observations into the archive",
	Long: `import reads raw per-station NetCDF files as described in --importconfig,
converts them to archive conventions and writes them to --archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := wrfplot.LoadImportConfig(os.ExpandEnv(Cfg.GetString("importconfig")))
		if err != nil {
			return err
		}
		files, err := wrfplot.Import(os.ExpandEnv(Cfg.GetString("archive")), c, Cfg.GetBool("overwrite"))
		if err != nil {
			return err
		}
		for _, f := range files {
			cmd.Printf("wrote %s\n", f)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
