/*
Copyright © 2021 the PoLA authors.
This file is part of PoLA.

PoLA is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

PoLA is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with PoLA.  If not, see <http://www.gnu.org/licenses/>.
*/

package polautil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/pola"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to PoLA.
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
			name: "TerrainFile",
			usage: `
              TerrainFile is the path to a netCDF file holding the Elevation [m],
              Slope [degrees], and FlowDirection (D8 code) grids, and optionally an
              Exclusion grid that is > 0 where landslides can start. It can
              include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), hazardCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "CellSize",
			usage: `
              CellSize is the grid cell edge length in meters. If it is 0, the
              cell size stored in TerrainFile is used.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), hazardCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "PredictionModel",
			usage: `
              PredictionModel is the path to the rainfall-based landslide
              prediction model table (Slope_lb, Slope_ub, k, b, Rainfall_lb, Rainfall_ub).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), hazardCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "RunoutModel",
			usage: `
              RunoutModel is the path to the landslide runout model table
              (RunoutDistance_lb, RunoutDistance_ub, then one column per volume class).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "VolumeModel",
			usage: `
              VolumeModel is the path to the landslide volume model table
              (Rainfall_lb, Rainfall_ub, then one column per volume class).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{hazardCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "VulnerabilityModel",
			usage: `
              VulnerabilityModel is the path to the human vulnerability model table
              (TravelAngle_lb, TravelAngle_ub, then one column per volume class).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "RainfallFile",
			usage: `
              RainfallFile is the path to a netCDF file holding the NormalizedRainfall
              grid, on the same grid as TerrainFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{hazardCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "PrescribedFile",
			usage: `
              PrescribedFile is the path to a netCDF file holding prescribed
              LandslideProbability and LandslideVolume [m³] grids. If it is set, the
              hazard command uses it instead of RainfallFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{hazardCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "HazardFile",
			usage: `
              HazardFile is the path of the netCDF file that the landslide hazard is
              written to by the hazard command and read from by the assess command.`,
			defaultVal: "pola_hazard.ncf",
			flagsets:   []*pflag.FlagSet{hazardCmd.Flags(), assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Catalog.Location",
			usage: `
              Catalog.Location is where the trail catalog is stored: a local directory
              or a bucket in the format 'provider://name/dir', where provider is file,
              gs, or s3.`,
			defaultVal: "trails",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Catalog.IndexFile",
			usage: `
              Catalog.IndexFile is the path to a CSV file listing the catalog partitions
              (StartRow, EndRow, FileName) after a title line. If it is empty, the index
              stored with the catalog is used, or one is created using
              Catalog.RowsPerPartition.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Catalog.RowsPerPartition",
			usage: `
              Catalog.RowsPerPartition is the number of grid rows in each catalog
              partition when no index file is given.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Catalog.Workers",
			usage: `
              Catalog.Workers is the number of catalog partitions to build at the
              same time.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Catalog.Rebuild",
			usage: `
              Catalog.Rebuild deletes the partitions of an existing trail catalog
              and builds it again.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Propagate.Workers",
			usage: `
              Propagate.Workers is the number of goroutines used to calculate landslide
              contributions within each grid row.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Propagate.Threshold",
			usage: `
              Propagate.Threshold is the landslide probability at or below which a cell
              is not considered as a landslide source.`,
			defaultVal: pola.NegligibleProbability,
			flagsets:   []*pflag.FlagSet{assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "BuildingLocations",
			usage: `
              BuildingLocations is the path to a JSON file mapping building IDs to the
              grid cells they cover: {"id": [[rows], [columns]]}. If it is empty,
              building results are not calculated.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "BuildingOutputFile",
			usage: `
              BuildingOutputFile is the path that building results are written to, as a
              spreadsheet if it ends in .xlsx and as CSV otherwise.`,
			defaultVal: "pola_buildings.csv",
			flagsets:   []*pflag.FlagSet{assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the netCDF file that the AffectedProbability and
              FatalityRate grids are written to. It can include environment variables.`,
			defaultVal: "pola_output.ncf",
			flagsets:   []*pflag.FlagSet{assessCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, the logfile will be saved in
              the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags(), hazardCmd.Flags(), assessCmd.Flags(), runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("POLA")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
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
	Root.AddCommand(catalogCmd)
	Root.AddCommand(hazardCmd)
	Root.AddCommand(assessCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("pola: problem reading configuration file: %w", err)
		}
	}
	Cfg.AutomaticEnv()
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "pola",
	Short: "Prompt landslide risk assessment.",
	Long: `PoLA estimates, for every cell of a terrain grid, the probability of being
affected by a rain-triggered landslide and the resulting fatality rate.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'POLA_var' where 'var' is the
name of the variable to be set, with '.' replaced by '_'. Many configuration variables are additionally
allowed to contain environment variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of PoLA.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("PoLA v%s\n", pola.Version)
	},
	DisableAutoGenTag: true,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Build the trail catalog.",
	Long: `catalog traces the landslide trail of every potential source cell in the
terrain and stores the trails at Catalog.Location. Nothing is done if the
catalog already exists; delete it to rebuild.`,
	RunE:              command(BuildCatalog),
	DisableAutoGenTag: true,
}

var hazardCmd = &cobra.Command{
	Use:   "hazard",
	Short: "Calculate the landslide hazard.",
	Long: `hazard calculates the probability of a landslide in each grid cell and the
probability of each landslide volume class from normalized rainfall, and writes
them to HazardFile.`,
	RunE:              command(Hazard),
	DisableAutoGenTag: true,
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess landslide consequences.",
	Long: `assess propagates the landslide hazard in HazardFile along the trail catalog
and writes the probability of each cell being affected by a landslide and the
fatality rate to OutputFile.`,
	RunE:              command(Assess),
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole assessment.",
	Long: `run builds the trail catalog if it doesn't exist yet, calculates the
landslide hazard, and assesses the consequences.`,
	RunE:              command(Run),
	DisableAutoGenTag: true,
}

// command returns a cobra run function that loads the settings, sets up
// logging to the command output and the log file, and runs f.
func command(f func(context.Context, *Settings, logrus.FieldLogger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := LoadSettings(Cfg)
		if err != nil {
			return err
		}
		logfile, err := os.Create(s.LogFile)
		if err != nil {
			return fmt.Errorf("pola: problem creating log file: %w", err)
		}
		defer logfile.Close()
		log := newLogger(io.MultiWriter(cmd.OutOrStdout(), logfile))

		start := time.Now()
		if err = f(context.Background(), s, log); err != nil {
			log.WithError(err).Error(cmd.Name() + " failed")
			return err
		}
		log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info(cmd.Name() + " finished")
		return nil
	}
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.Out = w
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	}
	return l
}
