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

package pola

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Names of the variables in hazard and consequence grid files.
// Prescribed landslide files hold ProbabilityVar and VolumeVar.
const (
	ProbabilityVar       = "LandslideProbability"
	VolumeVar            = "LandslideVolume"
	VolumeProbabilityVar = "LandslideVolumeProbability"
	AffectedVar          = "AffectedProbability"
	FatalityVar          = "FatalityRate"
)

// Assessment holds the state of a landslide consequence assessment.
type Assessment struct {
	Hazard      *HazardGrids
	Trails      TrailSource
	Consequence *Consequence
	Buildings   []BuildingResult

	// CellSize is the grid cell edge length [m].
	CellSize float64

	// InitFuncs are run once before RunFuncs, RunFuncs are run once in
	// order, and CleanupFuncs are run at the end even if an earlier step
	// failed.
	InitFuncs, RunFuncs, CleanupFuncs []AssessmentManipulator

	Log logrus.FieldLogger
}

// AssessmentManipulator is a step of an assessment.
type AssessmentManipulator func(a *Assessment) error

func (a *Assessment) log() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Init runs the initialization functions.
func (a *Assessment) Init() error {
	for _, f := range a.InitFuncs {
		if err := f(a); err != nil {
			return err
		}
	}
	return nil
}

// Run runs the assessment functions.
func (a *Assessment) Run() error {
	for _, f := range a.RunFuncs {
		if err := f(a); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup runs the cleanup functions and returns the first error.
func (a *Assessment) Cleanup() error {
	var first error
	for _, f := range a.CleanupFuncs {
		if err := f(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// GridFile returns the hazard as a grid file.
func (h *HazardGrids) GridFile(cellSize float64) *GridFile {
	return &GridFile{
		CellSize: cellSize,
		NoData:   h.NoData,
		Vars: map[string]*sparse.DenseArray{
			ProbabilityVar:       h.Probability,
			VolumeProbabilityVar: h.VolumeProbability,
		},
	}
}

// HazardFromGridFile extracts the hazard from a grid file.
func HazardFromGridFile(g *GridFile) (*HazardGrids, error) {
	p, err := g.Var(ProbabilityVar, 2)
	if err != nil {
		return nil, err
	}
	v, err := g.Var(VolumeProbabilityVar, 3)
	if err != nil {
		return nil, err
	}
	h := &HazardGrids{Probability: p, VolumeProbability: v, NoData: g.NoData}
	if err = h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// GridFile returns the consequence as a grid file.
func (c *Consequence) GridFile(cellSize float64) *GridFile {
	return &GridFile{
		CellSize: cellSize,
		NoData:   c.NoData,
		Vars: map[string]*sparse.DenseArray{
			AffectedVar: c.Affected,
			FatalityVar: c.Fatality,
		},
	}
}

// LoadHazard returns a function that reads the landslide hazard from
// a netCDF grid file.
func LoadHazard(filename string) AssessmentManipulator {
	return func(a *Assessment) error {
		g, err := ReadNetCDFFile(filename)
		if err != nil {
			return err
		}
		h, err := HazardFromGridFile(g)
		if err != nil {
			return fmt.Errorf("pola: loading hazard from %s: %w", filename, err)
		}
		a.Hazard = h
		if a.CellSize == 0 {
			a.CellSize = g.CellSize
		}
		a.log().WithField("file", filename).Info("loaded landslide hazard")
		return nil
	}
}

// Propagate returns a function that propagates the assessment hazard
// along the assessment trails.
func Propagate(ctx context.Context, p *Propagator) AssessmentManipulator {
	return func(a *Assessment) error {
		if a.Hazard == nil || a.Trails == nil {
			return fmt.Errorf("pola: hazard and trails must be loaded before propagation")
		}
		c, err := p.Propagate(ctx, a.Hazard, a.Trails)
		if err != nil {
			return err
		}
		a.Consequence = c
		return nil
	}
}

// Output returns a function that writes the consequence grids to a netCDF
// file.
func Output(filename string) AssessmentManipulator {
	return func(a *Assessment) error {
		if a.Consequence == nil {
			return fmt.Errorf("pola: no consequence to output")
		}
		if err := WriteNetCDFFile(filename, a.Consequence.GridFile(a.CellSize)); err != nil {
			return err
		}
		a.log().WithField("file", filename).Info("wrote landslide consequence")
		return nil
	}
}

// Buildings returns a function that aggregates the consequence to
// buildings and writes the results to filename: a spreadsheet if it ends
// in ".xlsx" and CSV otherwise.
func Buildings(locs BuildingLocations, filename string) AssessmentManipulator {
	return func(a *Assessment) error {
		if a.Consequence == nil {
			return fmt.Errorf("pola: no consequence to aggregate to buildings")
		}
		a.Buildings = BuildingRisk(a.Consequence, locs)
		w, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("pola: %w", err)
		}
		write := WriteBuildingCSV
		if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
			write = WriteBuildingXLSX
		}
		if err = write(w, a.Buildings); err != nil {
			w.Close()
			return err
		}
		if err = w.Close(); err != nil {
			return fmt.Errorf("pola: %w", err)
		}
		a.log().WithFields(logrus.Fields{
			"file":      filename,
			"buildings": len(a.Buildings),
		}).Info("wrote building results")
		return nil
	}
}

// CloseTrails returns a function that closes the assessment trail source
// if it needs closing.
func CloseTrails() AssessmentManipulator {
	return func(a *Assessment) error {
		if c, ok := a.Trails.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
}
