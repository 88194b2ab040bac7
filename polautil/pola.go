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

// Package polautil contains the PoLA command line interface and the
// functions that connect configuration settings to the pola and catalog
// packages.
package polautil

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/catalog"
	"github.com/spatialmodel/pola/cloud"
)

// IndexName is the name of the partition index stored with a catalog
// when no index file is configured.
const IndexName = "index.csv"

// readModel opens filename and reads it with read.
func readModel[T any](filename, name string, read func(f *os.File) (T, error)) (T, error) {
	var zero T
	if err := require(name, filename); err != nil {
		return zero, err
	}
	f, err := os.Open(filename)
	if err != nil {
		return zero, fmt.Errorf("polautil: opening %s: %w", name, err)
	}
	defer f.Close()
	return read(f)
}

// loadTerrain reads the terrain grids and the optional exclusion mask,
// applying the cell size override.
func loadTerrain(s *Settings) (*pola.Terrain, *sparse.DenseArray, *pola.GridFile, error) {
	if err := require("TerrainFile", s.TerrainFile); err != nil {
		return nil, nil, nil, err
	}
	g, err := pola.ReadNetCDFFile(s.TerrainFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if s.CellSize > 0 {
		g.CellSize = s.CellSize
	}
	t, exclusion, err := pola.TerrainFromGridFile(g)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, exclusion, g, nil
}

// NewTracer loads the inputs needed to trace trails.
func NewTracer(s *Settings) (*pola.Tracer, error) {
	t, exclusion, _, err := loadTerrain(s)
	if err != nil {
		return nil, err
	}
	pred, err := readModel(s.PredictionModel, "PredictionModel", func(f *os.File) (*pola.PredictionModel, error) {
		return pola.ReadPredictionModel(f)
	})
	if err != nil {
		return nil, err
	}
	runout, err := readModel(s.RunoutModel, "RunoutModel", func(f *os.File) (*pola.RunoutModel, error) {
		return pola.ReadRunoutModel(f)
	})
	if err != nil {
		return nil, err
	}
	mask, err := pola.NewPotentialMask(t.Slope, pred.SlopeLowerBound(), exclusion)
	if err != nil {
		return nil, err
	}
	return pola.NewTracer(t, mask, runout, pola.NewTraceConfig(t.CellSize, runout)), nil
}

// catalogIndex returns the partition index configured in s. If no index
// file is configured, the index stored with the catalog is used, and if
// there is none, an index is planned for nrow rows and stored with the
// catalog. nrow <= 0 means that planning is not allowed.
func catalogIndex(ctx context.Context, s *Settings, b *cloud.Bucket, nrow int) (catalog.Index, error) {
	if s.CatalogIndexFile != "" {
		return readModel(s.CatalogIndexFile, "Catalog.IndexFile", func(f *os.File) (catalog.Index, error) {
			return catalog.ReadIndex(f)
		})
	}
	data, err := b.ReadAll(ctx, IndexName)
	if err == nil {
		return catalog.ReadIndex(bytes.NewReader(data))
	}
	if !cloud.IsNotFound(err) {
		return nil, err
	}
	if nrow <= 0 {
		return nil, fmt.Errorf("polautil: trail catalog %s has no partition index", b)
	}
	idx, err := catalog.PlanIndex(nrow, s.CatalogRowsPerPartition, "trails_")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = catalog.WriteIndex(&buf, idx); err != nil {
		return nil, err
	}
	if err = b.WriteAll(ctx, IndexName, buf.Bytes()); err != nil {
		return nil, err
	}
	return idx, nil
}

// BuildCatalog builds the trail catalog unless it already exists. If
// Catalog.Rebuild is set, the existing partitions are deleted first.
// All inputs are read before anything is written.
func BuildCatalog(ctx context.Context, s *Settings, log logrus.FieldLogger) error {
	if err := require("Catalog.Location", s.CatalogLocation); err != nil {
		return err
	}
	tr, err := NewTracer(s)
	if err != nil {
		return err
	}
	log.WithField("cells", tr.PotentialCount()).Info("loaded terrain")
	b, err := cloud.OpenBucket(ctx, s.CatalogLocation)
	if err != nil {
		return err
	}
	defer b.Close()
	nrow, _ := tr.Terrain().Shape()
	idx, err := catalogIndex(ctx, s, b, nrow)
	if err != nil {
		return err
	}
	builder, err := catalog.NewBuilder(tr, idx, b)
	if err != nil {
		return err
	}
	builder.Workers = s.CatalogWorkers
	builder.Log = log
	if s.CatalogRebuild {
		log.WithField("catalog", s.CatalogLocation).Info("deleting trail catalog for rebuild")
		if err = builder.Delete(ctx); err != nil {
			return err
		}
	}
	exists, err := builder.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		log.WithField("catalog", s.CatalogLocation).Info("trail catalog already exists; skipping build")
		return nil
	}
	return builder.Build(ctx)
}

// Hazard calculates the landslide hazard from normalized rainfall and
// writes it to the hazard file.
func Hazard(ctx context.Context, s *Settings, log logrus.FieldLogger) error {
	if err := checkOutputFile("HazardFile", s.HazardFile); err != nil {
		return err
	}
	if s.PrescribedFile != "" {
		return prescribedHazard(s, log)
	}
	t, _, g, err := loadTerrain(s)
	if err != nil {
		return err
	}
	cover, err := pola.LandCoverFromGridFile(g)
	if err != nil {
		return err
	}
	if err = require("RainfallFile", s.RainfallFile); err != nil {
		return err
	}
	rg, err := pola.ReadNetCDFFile(s.RainfallFile)
	if err != nil {
		return err
	}
	rain, err := rg.Var(pola.RainfallVar, 2)
	if err != nil {
		return err
	}
	pred, err := readModel(s.PredictionModel, "PredictionModel", func(f *os.File) (*pola.PredictionModel, error) {
		return pola.ReadPredictionModel(f)
	})
	if err != nil {
		return err
	}
	vol, err := readModel(s.VolumeModel, "VolumeModel", func(f *os.File) (*pola.VolumeModel, error) {
		return pola.ReadVolumeModel(f)
	})
	if err != nil {
		return err
	}
	h, err := pola.HazardFromRainfall(t.Slope, rain, cover, g.NoData, pred, vol, t.CellSize*t.CellSize)
	if err != nil {
		return err
	}
	if err = pola.WriteNetCDFFile(s.HazardFile, h.GridFile(t.CellSize)); err != nil {
		return err
	}
	log.WithField("file", s.HazardFile).Info("wrote landslide hazard")
	return nil
}

// prescribedHazard converts the prescribed landslide probability and
// volume grids to a hazard file.
func prescribedHazard(s *Settings, log logrus.FieldLogger) error {
	g, err := pola.ReadNetCDFFile(s.PrescribedFile)
	if err != nil {
		return err
	}
	if s.CellSize > 0 {
		g.CellSize = s.CellSize
	}
	prob, err := g.Var(pola.ProbabilityVar, 2)
	if err != nil {
		return err
	}
	volume, err := g.Var(pola.VolumeVar, 2)
	if err != nil {
		return err
	}
	h, err := pola.HazardFromPrescribed(prob, volume, g.NoData, pola.DefaultVolumeBins)
	if err != nil {
		return err
	}
	if err = pola.WriteNetCDFFile(s.HazardFile, h.GridFile(g.CellSize)); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":       s.HazardFile,
		"prescribed": s.PrescribedFile,
	}).Info("wrote prescribed landslide hazard")
	return nil
}

// Assess propagates the landslide hazard along the trail catalog and
// writes the consequence grids and, if building locations are
// configured, the building results.
func Assess(ctx context.Context, s *Settings, log logrus.FieldLogger) error {
	if err := require("HazardFile", s.HazardFile, "Catalog.Location", s.CatalogLocation); err != nil {
		return err
	}
	if err := checkOutputFile("OutputFile", s.OutputFile); err != nil {
		return err
	}
	vul, err := readModel(s.VulnerabilityModel, "VulnerabilityModel", func(f *os.File) (*pola.VulnerabilityModel, error) {
		return pola.ReadVulnerabilityModel(f)
	})
	if err != nil {
		return err
	}
	var locs pola.BuildingLocations
	if s.BuildingLocations != "" {
		if err = checkOutputFile("BuildingOutputFile", s.BuildingOutputFile); err != nil {
			return err
		}
		if locs, err = readModel(s.BuildingLocations, "BuildingLocations", func(f *os.File) (pola.BuildingLocations, error) {
			return pola.ReadBuildingLocations(f)
		}); err != nil {
			return err
		}
	}
	b, err := cloud.OpenBucket(ctx, s.CatalogLocation)
	if err != nil {
		return err
	}
	defer b.Close()
	idx, err := catalogIndex(ctx, s, b, 0)
	if err != nil {
		return err
	}
	r, err := catalog.NewReader(ctx, b, idx, vul.VolumeClasses())
	if err != nil {
		return err
	}
	r.Log = log

	p := pola.NewPropagator(vul, s.Propagate)
	p.Log = log
	a := &pola.Assessment{
		Trails:    r,
		InitFuncs: []pola.AssessmentManipulator{pola.LoadHazard(s.HazardFile)},
		RunFuncs: []pola.AssessmentManipulator{
			pola.Propagate(ctx, p),
			pola.Output(s.OutputFile),
		},
		CleanupFuncs: []pola.AssessmentManipulator{pola.CloseTrails()},
		Log:          log,
	}
	if locs != nil {
		a.RunFuncs = append(a.RunFuncs, pola.Buildings(locs, s.BuildingOutputFile))
	}
	err = a.Init()
	if err == nil {
		err = a.Run()
	}
	if cerr := a.Cleanup(); err == nil {
		err = cerr
	}
	return err
}

// Run builds the trail catalog if needed, calculates the hazard and
// assesses the consequences.
func Run(ctx context.Context, s *Settings, log logrus.FieldLogger) error {
	if err := BuildCatalog(ctx, s, log); err != nil {
		return err
	}
	if err := Hazard(ctx, s, log); err != nil {
		return err
	}
	return Assess(ctx, s, log)
}
