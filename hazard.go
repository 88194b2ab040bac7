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

// Frequency returns the expected number of landslides in a cell with
// the given slope [degrees] and normalized rainfall. cellArea is the
// cell area in m². Later slope classes take precedence over earlier ones
// where they overlap. Frequency is zero where no class applies.
func (m *PredictionModel) Frequency(slope, rainfall, cellArea float64) float64 {
	a := cellArea / 1e6 // landslide densities are per km².
	var freq float64
	for _, c := range m.Classes {
		if !(slope > c.SlopeLower && slope <= c.SlopeUpper &&
			rainfall > c.RainfallLower && rainfall <= c.RainfallUpper) {
			continue
		}
		max := a * math.Pow(10, c.K*c.RainfallUpper+c.B)
		freq = math.Min(a*math.Pow(10, c.K*rainfall+c.B), max)
	}
	return freq
}

// volumeProbability returns the volume class probabilities for the given
// normalized rainfall, or nil if no rainfall class applies.
func (m *VolumeModel) volumeProbability(rainfall float64) []float64 {
	var o []float64
	for i, lb := range m.RainfallLower {
		if rainfall >= lb && rainfall < m.RainfallUpper[i] {
			o = m.Probability[i]
		}
	}
	return o
}

// LandCover holds the optional grids that adjust landslide frequency.
// Either grid may be nil.
type LandCover struct {
	// NaturalTerrain is zero where the terrain is not natural, for
	// example in urban areas. No landslides start in those cells.
	NaturalTerrain *sparse.DenseArray

	// Geology holds integer geology classes. Volcanic (1) and
	// sedimentary (2) cells have 1.5 times the predicted frequency,
	// intrusive (3) cells half of it, and reclaimed or reservoir
	// cells (6 and above) none.
	Geology *sparse.DenseArray
}

// LandCoverFromGridFile reads the NaturalTerrain and Geology variables
// from g. Variables that are not in the file are left nil.
func LandCoverFromGridFile(g *GridFile) (*LandCover, error) {
	c := new(LandCover)
	for _, v := range []struct {
		name string
		dst  **sparse.DenseArray
	}{{NaturalTerrainVar, &c.NaturalTerrain}, {GeologyVar, &c.Geology}} {
		if _, ok := g.Vars[v.name]; !ok {
			continue
		}
		d, err := g.Var(v.name, 2)
		if err != nil {
			return nil, err
		}
		*v.dst = d
	}
	return c, nil
}

func (c *LandCover) check(nrow, ncol int) error {
	if c == nil {
		return nil
	}
	for name, d := range map[string]*sparse.DenseArray{NaturalTerrainVar: c.NaturalTerrain, GeologyVar: c.Geology} {
		if d != nil && (len(d.Shape) != 2 || d.Shape[0] != nrow || d.Shape[1] != ncol) {
			return fmt.Errorf("pola: %s shape %v does not match slope shape [%d %d]", name, d.Shape, nrow, ncol)
		}
	}
	return nil
}

// adjust returns the landslide frequency in cell i after the land cover
// adjustments.
func (c *LandCover) adjust(i int, freq float64) float64 {
	if c == nil {
		return freq
	}
	if c.NaturalTerrain != nil && c.NaturalTerrain.Elements[i] == 0 {
		return 0
	}
	if c.Geology == nil {
		return freq
	}
	switch g := c.Geology.Elements[i]; {
	case g == 1 || g == 2:
		return 1.5 * freq
	case g == 3:
		return 0.5 * freq
	case g >= 6:
		return 0
	}
	return freq
}

// HazardFromRainfall calculates the landslide hazard from a slope grid
// [degrees] and a normalized rainfall grid of the same shape. The
// predicted frequency is adjusted by cover, which may be nil, and the
// landslide probability assumes landslides follow a Poisson process.
// Cells where either grid is nodata are nodata in the result.
func HazardFromRainfall(slope, rainfall *sparse.DenseArray, cover *LandCover, noData float64, pred *PredictionModel, vol *VolumeModel, cellArea float64) (*HazardGrids, error) {
	if len(slope.Shape) != 2 || len(rainfall.Shape) != 2 {
		return nil, fmt.Errorf("pola: slope and rainfall must be two dimensional grids")
	}
	if slope.Shape[0] != rainfall.Shape[0] || slope.Shape[1] != rainfall.Shape[1] {
		return nil, fmt.Errorf("pola: slope shape %v does not match rainfall shape %v", slope.Shape, rainfall.Shape)
	}
	if err := cover.check(slope.Shape[0], slope.Shape[1]); err != nil {
		return nil, err
	}
	if len(pred.Classes) == 0 {
		return nil, fmt.Errorf("pola: landslide prediction model has no slope classes")
	}
	if cellArea <= 0 {
		return nil, fmt.Errorf("pola: cell area must be positive; got %g", cellArea)
	}
	nrow, ncol := slope.Shape[0], slope.Shape[1]
	nClass := vol.VolumeClasses()
	h := &HazardGrids{
		Probability:       sparse.ZerosDense(nrow, ncol),
		VolumeProbability: sparse.ZerosDense(nClass, nrow, ncol),
		NoData:            noData,
	}
	n := nrow * ncol
	for i, s := range slope.Elements {
		r := rainfall.Elements[i]
		if isNoData(s, noData) || isNoData(r, noData) {
			h.Probability.Elements[i] = noData
			for k := 0; k < nClass; k++ {
				h.VolumeProbability.Elements[k*n+i] = noData
			}
			continue
		}
		h.Probability.Elements[i] = 1 - math.Exp(-cover.adjust(i, pred.Frequency(s, r, cellArea)))
		if p := vol.volumeProbability(r); p != nil {
			for k, v := range p {
				h.VolumeProbability.Elements[k*n+i] = v
			}
		}
	}
	return h, nil
}

// DefaultVolumeBins are the landslide volume class boundaries [m³] used
// for prescribed landslides.
var DefaultVolumeBins = []float64{0, 20, 50, 500, 2000, 10000, 50000}

// HazardFromPrescribed builds the hazard for prescribed landslides from
// a probability grid and a volume grid [m³] of the same shape. Each cell
// belongs entirely to volume class k where bins[k] < volume <= bins[k+1],
// so there are len(bins)-1 classes. Cells with zero volume or a volume
// outside the bins belong to no class. Cells where either grid is nodata
// are nodata in the result.
func HazardFromPrescribed(prob, volume *sparse.DenseArray, noData float64, bins []float64) (*HazardGrids, error) {
	if len(prob.Shape) != 2 || len(volume.Shape) != 2 {
		return nil, fmt.Errorf("pola: probability and volume must be two dimensional grids")
	}
	if prob.Shape[0] != volume.Shape[0] || prob.Shape[1] != volume.Shape[1] {
		return nil, fmt.Errorf("pola: probability shape %v does not match volume shape %v", prob.Shape, volume.Shape)
	}
	if len(bins) < 2 {
		return nil, fmt.Errorf("pola: need at least two volume bin boundaries; got %d", len(bins))
	}
	for k := 1; k < len(bins); k++ {
		if !(bins[k] > bins[k-1]) {
			return nil, fmt.Errorf("pola: volume bins %v are not increasing", bins)
		}
	}
	nrow, ncol := prob.Shape[0], prob.Shape[1]
	nClass := len(bins) - 1
	h := &HazardGrids{
		Probability:       sparse.ZerosDense(nrow, ncol),
		VolumeProbability: sparse.ZerosDense(nClass, nrow, ncol),
		NoData:            noData,
	}
	n := nrow * ncol
	for i, p := range prob.Elements {
		v := volume.Elements[i]
		if isNoData(p, noData) || isNoData(v, noData) {
			h.Probability.Elements[i] = noData
			for k := 0; k < nClass; k++ {
				h.VolumeProbability.Elements[k*n+i] = noData
			}
			continue
		}
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("pola: prescribed probability %g in cell %d: %w", p, i, ErrInvalidProbability)
		}
		h.Probability.Elements[i] = p
		if v == 0 {
			continue
		}
		for k := 0; k < nClass; k++ {
			if v > bins[k] && v <= bins[k+1] {
				h.VolumeProbability.Elements[k*n+i] = 1
				break
			}
		}
	}
	return h, nil
}
