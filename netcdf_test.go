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
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/kr/pretty"
	"gonum.org/v1/gonum/floats"
)

func TestNetCDFRoundTrip(t *testing.T) {
	h := &HazardGrids{
		Probability:       sparse.ZerosDense(2, 3),
		VolumeProbability: sparse.ZerosDense(2, 2, 3),
		NoData:            -9999,
	}
	copy(h.Probability.Elements, []float64{0.1, 0.2, -9999, 0, 0.5, 1})
	for i := range h.VolumeProbability.Elements {
		h.VolumeProbability.Elements[i] = float64(i) / 12
	}
	filename := filepath.Join(t.TempDir(), "hazard.nc")
	if err := WriteNetCDFFile(filename, h.GridFile(5)); err != nil {
		t.Fatal(err)
	}
	g, err := ReadNetCDFFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if g.CellSize != 5 || g.NoData != -9999 {
		t.Errorf("attributes: have cell size %g and nodata %g", g.CellSize, g.NoData)
	}
	h2, err := HazardFromGridFile(g)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(h2.Probability.Elements, h.Probability.Elements) {
		t.Errorf("probability: %v", pretty.Diff(h2.Probability.Elements, h.Probability.Elements))
	}
	if !floats.Equal(h2.VolumeProbability.Elements, h.VolumeProbability.Elements) {
		t.Errorf("volume probability: %v", pretty.Diff(h2.VolumeProbability.Elements, h.VolumeProbability.Elements))
	}
	if s := h2.VolumeProbability.Shape; len(s) != 3 || s[0] != 2 || s[1] != 2 || s[2] != 3 {
		t.Errorf("shape: have %v, want [2 2 3]", s)
	}
}

func TestWriteNetCDFErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]*GridFile{
		"empty": {Vars: map[string]*sparse.DenseArray{}},
		"shape": {Vars: map[string]*sparse.DenseArray{
			"a": sparse.ZerosDense(2, 2),
			"b": sparse.ZerosDense(2, 3),
		}},
		"classes": {Vars: map[string]*sparse.DenseArray{
			"a": sparse.ZerosDense(2, 2, 2),
			"b": sparse.ZerosDense(3, 2, 2),
		}},
		"dimensions": {Vars: map[string]*sparse.DenseArray{
			"a": sparse.ZerosDense(4),
		}},
	}
	for name, g := range tests {
		t.Run(name, func(t *testing.T) {
			w, err := os.Create(filepath.Join(dir, name+".nc"))
			if err != nil {
				t.Fatal(err)
			}
			defer w.Close()
			if err = WriteNetCDF(w, g); err == nil {
				t.Error("want an error")
			}
		})
	}
}

func TestGridFileVar(t *testing.T) {
	g := &GridFile{Vars: map[string]*sparse.DenseArray{"a": sparse.ZerosDense(2, 2)}}
	if _, err := g.Var("a", 2); err != nil {
		t.Error(err)
	}
	if _, err := g.Var("a", 3); err == nil {
		t.Error("wrong dimensions should be an error")
	}
	if _, err := g.Var("b", 2); err == nil {
		t.Error("missing variable should be an error")
	}
}

func TestTerrainFromGridFile(t *testing.T) {
	g := &GridFile{CellSize: 10, NoData: -9999, Vars: map[string]*sparse.DenseArray{
		ElevationVar:     sparse.ZerosDense(2, 2),
		SlopeVar:         sparse.ZerosDense(2, 2),
		FlowDirectionVar: sparse.ZerosDense(2, 2),
	}}
	tr, excl, err := TerrainFromGridFile(g)
	if err != nil {
		t.Fatal(err)
	}
	if excl != nil {
		t.Error("exclusion grid should be nil when missing")
	}
	if nrow, ncol := tr.Shape(); nrow != 2 || ncol != 2 {
		t.Errorf("shape: have %d×%d, want 2×2", nrow, ncol)
	}
	g.Vars[ExclusionVar] = sparse.ZerosDense(2, 2)
	if _, excl, err = TerrainFromGridFile(g); err != nil || excl == nil {
		t.Errorf("exclusion: have %v, %v", excl, err)
	}
	delete(g.Vars, SlopeVar)
	if _, _, err = TerrainFromGridFile(g); err == nil {
		t.Error("missing slope should be an error")
	}
}
