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
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
)

type closingSource struct {
	mapSource
	closed bool
}

func (c *closingSource) Close() error {
	c.closed = true
	return nil
}

func TestAssessment(t *testing.T) {
	dir := t.TempDir()
	hazardFile := filepath.Join(dir, "hazard.nc")
	outFile := filepath.Join(dir, "out.nc")
	buildingFile := filepath.Join(dir, "buildings.csv")

	if err := WriteNetCDFFile(hazardFile, hazard(1, 2, 0.5, 0).GridFile(10)); err != nil {
		t.Fatal(err)
	}
	trails := &closingSource{mapSource: mapSource{
		{0, 0}: {Rows: []int{0, 0}, Cols: []int{0, 1}, TravelAngles: []float64{89, 45}, Runout: [][]float64{{1, 1}}},
	}}
	p := newTestPropagator(t, PropagateConfig{}, 0.2)
	a := &Assessment{
		Trails:       trails,
		Log:          quietLogger(),
		InitFuncs:    []AssessmentManipulator{LoadHazard(hazardFile)},
		RunFuncs:     []AssessmentManipulator{Propagate(context.Background(), p), Output(outFile), Buildings(BuildingLocations{"x": {Rows: []int{0}, Cols: []int{1}}}, buildingFile)},
		CleanupFuncs: []AssessmentManipulator{CloseTrails()},
	}
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	if a.CellSize != 10 {
		t.Errorf("cell size: have %g, want 10", a.CellSize)
	}
	if err := a.Run(); err != nil {
		t.Fatal(err)
	}
	if err := a.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if !trails.closed {
		t.Error("trails were not closed")
	}

	g, err := ReadNetCDFFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	affected, err := g.Var(AffectedVar, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{0.5, 0.5}; !floats.EqualApprox(affected.Elements, want, 1e-12) {
		t.Errorf("affected: have %v, want %v", affected.Elements, want)
	}
	fatality, err := g.Var(FatalityVar, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{0.1, 0.1}; !floats.EqualApprox(fatality.Elements, want, 1e-12) {
		t.Errorf("fatality: have %v, want %v", fatality.Elements, want)
	}
	if len(a.Buildings) != 1 || !floats.EqualWithinAbs(a.Buildings[0].Affected, 0.5, 1e-12) {
		t.Errorf("buildings: have %+v", a.Buildings)
	}
	if _, err = os.Stat(buildingFile); err != nil {
		t.Error(err)
	}
}

func TestAssessmentErrors(t *testing.T) {
	a := &Assessment{Log: quietLogger()}
	if err := Propagate(context.Background(), nil)(a); err == nil {
		t.Error("propagating without a hazard should be an error")
	}
	if err := Output(filepath.Join(t.TempDir(), "x.nc"))(a); err == nil {
		t.Error("output without a consequence should be an error")
	}
	if err := LoadHazard(filepath.Join(t.TempDir(), "missing.nc"))(a); err == nil {
		t.Error("loading a missing file should be an error")
	}
	if err := CloseTrails()(a); err != nil {
		t.Errorf("closing a nil trail source: %v", err)
	}

	want := fmt.Errorf("first")
	a.CleanupFuncs = []AssessmentManipulator{
		func(*Assessment) error { return want },
		func(*Assessment) error { return fmt.Errorf("second") },
	}
	if err := a.Cleanup(); err != want {
		t.Errorf("have %v, want %v", err, want)
	}
}
