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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/pola"
	"github.com/spf13/cast"
)

// Settings holds the configuration for a PoLA run. It is created once from
// the command line, environment and configuration file and not modified
// afterwards.
type Settings struct {
	// TerrainFile is a netCDF file holding the Elevation, Slope and
	// FlowDirection grids and optionally an Exclusion mask.
	TerrainFile string

	// CellSize [m] overrides the cell size stored in TerrainFile if > 0.
	CellSize float64

	PredictionModel    string
	RunoutModel        string
	VulnerabilityModel string
	VolumeModel        string

	// RainfallFile is a netCDF file holding the NormalizedRainfall grid.
	RainfallFile string

	// PrescribedFile is a netCDF file holding prescribed
	// LandslideProbability and LandslideVolume grids. If it is set, the
	// hazard is taken from it instead of being calculated from rainfall.
	PrescribedFile string

	// HazardFile is where the landslide hazard is written to and read from.
	HazardFile string

	CatalogLocation         string
	CatalogIndexFile        string
	CatalogRowsPerPartition int
	CatalogWorkers          int
	CatalogRebuild          bool

	Propagate pola.PropagateConfig

	BuildingLocations  string
	BuildingOutputFile string

	OutputFile string
	LogFile    string
}

// LoadSettings reads the settings from cfg, expanding environment
// variables in file paths.
func LoadSettings(cfg *viper.Viper) (*Settings, error) {
	s := &Settings{
		TerrainFile:        expand(cfg, "TerrainFile"),
		PredictionModel:    expand(cfg, "PredictionModel"),
		RunoutModel:        expand(cfg, "RunoutModel"),
		VulnerabilityModel: expand(cfg, "VulnerabilityModel"),
		VolumeModel:        expand(cfg, "VolumeModel"),
		RainfallFile:       expand(cfg, "RainfallFile"),
		PrescribedFile:     expand(cfg, "PrescribedFile"),
		HazardFile:         expand(cfg, "HazardFile"),
		CatalogLocation:    expand(cfg, "Catalog.Location"),
		CatalogIndexFile:   expand(cfg, "Catalog.IndexFile"),
		BuildingLocations:  expand(cfg, "BuildingLocations"),
		BuildingOutputFile: expand(cfg, "BuildingOutputFile"),
		OutputFile:         expand(cfg, "OutputFile"),
		LogFile:            expand(cfg, "LogFile"),
	}
	var err error
	if s.CellSize, err = getFloat(cfg, "CellSize"); err != nil {
		return nil, fmt.Errorf("polautil: reading CellSize: %w", err)
	}
	if s.CatalogRowsPerPartition, err = getInt(cfg, "Catalog.RowsPerPartition"); err != nil {
		return nil, fmt.Errorf("polautil: reading Catalog.RowsPerPartition: %w", err)
	}
	if s.CatalogWorkers, err = getInt(cfg, "Catalog.Workers"); err != nil {
		return nil, fmt.Errorf("polautil: reading Catalog.Workers: %w", err)
	}
	if s.CatalogRebuild, err = getBool(cfg, "Catalog.Rebuild"); err != nil {
		return nil, fmt.Errorf("polautil: reading Catalog.Rebuild: %w", err)
	}
	if s.Propagate.Workers, err = getInt(cfg, "Propagate.Workers"); err != nil {
		return nil, fmt.Errorf("polautil: reading Propagate.Workers: %w", err)
	}
	if s.Propagate.Threshold, err = getFloat(cfg, "Propagate.Threshold"); err != nil {
		return nil, fmt.Errorf("polautil: reading Propagate.Threshold: %w", err)
	}
	if s.CellSize < 0 {
		return nil, fmt.Errorf("polautil: CellSize must not be negative; got %g", s.CellSize)
	}
	if s.Propagate.Threshold < 0 || s.Propagate.Threshold >= 1 {
		return nil, fmt.Errorf("polautil: Propagate.Threshold must be in [0, 1); got %g", s.Propagate.Threshold)
	}
	if s.CatalogRowsPerPartition <= 0 && s.CatalogIndexFile == "" {
		return nil, fmt.Errorf("polautil: Catalog.RowsPerPartition must be > 0 when no Catalog.IndexFile is given")
	}
	if s.LogFile == "" {
		s.LogFile = checkLogFile(s.OutputFile, s.HazardFile)
	}
	return s, nil
}

// getFloat returns a numeric setting, which is zero if it is not set.
func getFloat(cfg *viper.Viper, name string) (float64, error) {
	v := cfg.Get(name)
	if v == nil {
		return 0, nil
	}
	return cast.ToFloat64E(v)
}

func getInt(cfg *viper.Viper, name string) (int, error) {
	v := cfg.Get(name)
	if v == nil {
		return 0, nil
	}
	return cast.ToIntE(v)
}

func getBool(cfg *viper.Viper, name string) (bool, error) {
	v := cfg.Get(name)
	if v == nil {
		return false, nil
	}
	return cast.ToBoolE(v)
}

func expand(cfg *viper.Viper, name string) string {
	return os.ExpandEnv(strings.TrimSpace(cfg.GetString(name)))
}

// checkLogFile returns the default log file location: next to the first
// non-empty output file, or pola.log in the working directory.
func checkLogFile(outputFiles ...string) string {
	for _, f := range outputFiles {
		if f != "" {
			return strings.TrimSuffix(f, filepath.Ext(f)) + ".log"
		}
	}
	return "pola.log"
}

// require returns an error naming the first empty setting.
func require(nameValues ...string) error {
	for i := 0; i < len(nameValues); i += 2 {
		if nameValues[i+1] == "" {
			return fmt.Errorf("polautil: you need to specify the %s configuration variable", nameValues[i])
		}
	}
	return nil
}

// checkOutputFile makes sure that the directory of an output file exists.
func checkOutputFile(name, f string) error {
	if err := require(name, f); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return fmt.Errorf("polautil: the %s directory doesn't exist: %w", name, err)
	}
	return nil
}
