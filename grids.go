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

// HazardGrids holds the landslide hazard for one assessment run.
type HazardGrids struct {
	// Probability [nrow, ncol] is the probability that at least one
	// landslide occurs in each cell.
	Probability *sparse.DenseArray

	// VolumeProbability [volumeClasses, nrow, ncol] is the probability that a
	// landslide in each cell belongs to each volume class.
	VolumeProbability *sparse.DenseArray

	// NoData marks cells without data.
	NoData float64
}

// Shape returns the number of rows and columns in the grid.
func (h *HazardGrids) Shape() (nrow, ncol int) {
	return h.Probability.Shape[0], h.Probability.Shape[1]
}

// VolumeClasses returns the number of volume classes.
func (h *HazardGrids) VolumeClasses() int { return h.VolumeProbability.Shape[0] }

// IsNoData returns whether v is the nodata value.
func (h *HazardGrids) IsNoData(v float64) bool { return isNoData(v, h.NoData) }

func isNoData(v, noData float64) bool {
	return v == noData || (math.IsNaN(noData) && math.IsNaN(v))
}

// Validate checks that the grids have matching shapes and that every value
// other than nodata is a probability. Out of range values are returned as
// an error wrapping ErrInvalidProbability rather than clamped.
func (h *HazardGrids) Validate() error {
	if h.Probability == nil || len(h.Probability.Shape) != 2 {
		return fmt.Errorf("pola: landslide probability must be a two dimensional grid")
	}
	if h.VolumeProbability == nil || len(h.VolumeProbability.Shape) != 3 {
		return fmt.Errorf("pola: landslide volume probability must be a three dimensional grid")
	}
	nrow, ncol := h.Shape()
	if s := h.VolumeProbability.Shape; s[1] != nrow || s[2] != ncol {
		return fmt.Errorf("pola: landslide volume probability shape %v does not match probability shape %v",
			s, h.Probability.Shape)
	}
	for i, v := range h.Probability.Elements {
		if !h.IsNoData(v) && !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: landslide probability %g at row %d, column %d",
				ErrInvalidProbability, v, i/ncol, i%ncol)
		}
	}
	n := nrow * ncol
	for i, v := range h.VolumeProbability.Elements {
		if !h.IsNoData(v) && !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: volume class %d probability %g at row %d, column %d",
				ErrInvalidProbability, i/n, v, (i%n)/ncol, i%ncol)
		}
	}
	return nil
}

// Consequence holds the results of propagating a landslide hazard along
// the trail catalog.
type Consequence struct {
	// Affected is the probability that each cell is reached by at least
	// one landslide.
	Affected *sparse.DenseArray

	// Fatality is the probability that a person in each cell is killed
	// by a landslide.
	Fatality *sparse.DenseArray

	NoData float64
}
