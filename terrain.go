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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Terrain holds co-registered elevation [m], slope [degrees] and D8 flow
// direction grids. All grids have shape [nrow, ncol] in row-major order,
// with square cells of edge length CellSize [m].
type Terrain struct {
	Elevation     *sparse.DenseArray
	Slope         *sparse.DenseArray
	FlowDirection *sparse.DenseArray
	CellSize      float64
}

// NewTerrain checks that the given grids are two dimensional and share
// the same shape and returns them as a Terrain.
func NewTerrain(elevation, slope, flowDirection *sparse.DenseArray, cellSize float64) (*Terrain, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("pola: terrain cell size must be > 0 but is %g", cellSize)
	}
	names := []string{"elevation", "slope", "flow direction"}
	for i, g := range []*sparse.DenseArray{elevation, slope, flowDirection} {
		if g == nil {
			return nil, fmt.Errorf("pola: missing %s grid", names[i])
		}
		if len(g.Shape) != 2 {
			return nil, fmt.Errorf("pola: %s grid has %d dimensions; it should have 2", names[i], len(g.Shape))
		}
		if g.Shape[0] != elevation.Shape[0] || g.Shape[1] != elevation.Shape[1] {
			return nil, fmt.Errorf("pola: %s grid shape %v does not match elevation grid shape %v",
				names[i], g.Shape, elevation.Shape)
		}
	}
	return &Terrain{
		Elevation:     elevation,
		Slope:         slope,
		FlowDirection: flowDirection,
		CellSize:      cellSize,
	}, nil
}

// Shape returns the number of rows and columns in the grid.
func (t *Terrain) Shape() (nrow, ncol int) {
	return t.Elevation.Shape[0], t.Elevation.Shape[1]
}

// Inside returns whether (row, col) lies within the grid.
func (t *Terrain) Inside(row, col int) bool {
	return row >= 0 && col >= 0 && row < t.Elevation.Shape[0] && col < t.Elevation.Shape[1]
}

// flowCode returns the D8 code of a cell.
func (t *Terrain) flowCode(row, col int) int {
	v := t.FlowDirection.Get(row, col)
	if math.IsNaN(v) {
		return 0
	}
	return int(v)
}

// PotentialMask marks the cells that are able to source a landslide.
type PotentialMask struct {
	ncol  int
	cells []bool
}

// NewPotentialMask returns a mask that is true where slope is greater than
// slopeLowerBound and, if exclusion is not nil, where exclusion is greater
// than zero.
func NewPotentialMask(slope *sparse.DenseArray, slopeLowerBound float64, exclusion *sparse.DenseArray) (*PotentialMask, error) {
	if exclusion != nil && len(exclusion.Elements) != len(slope.Elements) {
		return nil, fmt.Errorf("pola: exclusion mask shape %v does not match slope grid shape %v",
			exclusion.Shape, slope.Shape)
	}
	m := &PotentialMask{
		ncol:  slope.Shape[1],
		cells: make([]bool, len(slope.Elements)),
	}
	for i, s := range slope.Elements {
		m.cells[i] = s > slopeLowerBound && (exclusion == nil || exclusion.Elements[i] > 0)
	}
	return m, nil
}

// Potential returns whether a landslide can occur at (row, col).
func (m *PotentialMask) Potential(row, col int) bool {
	return m.cells[row*m.ncol+col]
}

// Count returns the number of potential landslide cells.
func (m *PotentialMask) Count() int {
	var n int
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Names of the variables in terrain grid files.
const (
	ElevationVar      = "Elevation"
	SlopeVar          = "Slope"
	FlowDirectionVar  = "FlowDirection"
	ExclusionVar      = "Exclusion"
	RainfallVar       = "NormalizedRainfall"
	NaturalTerrainVar = "NaturalTerrain"
	GeologyVar        = "Geology"
)

// TerrainFromGridFile extracts the terrain from a grid file. The cell size
// is taken from the file. The exclusion mask is nil if the file does not
// contain one.
func TerrainFromGridFile(g *GridFile) (t *Terrain, exclusion *sparse.DenseArray, err error) {
	var grids [3]*sparse.DenseArray
	for i, name := range []string{ElevationVar, SlopeVar, FlowDirectionVar} {
		if grids[i], err = g.Var(name, 2); err != nil {
			return nil, nil, err
		}
	}
	if t, err = NewTerrain(grids[0], grids[1], grids[2], g.CellSize); err != nil {
		return nil, nil, err
	}
	if _, ok := g.Vars[ExclusionVar]; ok {
		if exclusion, err = g.Var(ExclusionVar, 2); err != nil {
			return nil, nil, err
		}
	}
	return t, exclusion, nil
}
