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

import "fmt"

// RunoutModel holds the probability that a landslide of each volume class
// travels at least a given number of cells.
type RunoutModel struct {
	// DistanceLower and DistanceUpper are the bounds [m] of each runout
	// distance bin.
	DistanceLower, DistanceUpper []float64

	// Classes are the names of the volume classes.
	Classes []string

	// survival[k][j] is the probability that debris of volume class k
	// reaches at least the j-th cell of its trail.
	survival [][]float64
}

// NewRunoutModel creates a runout model from a table of runout distance
// bins. prob[i][k] is the probability that debris of volume class k stops
// within distance bin i. The survival probability of each bin is the sum of
// the probabilities of that bin and all bins beyond it.
func NewRunoutModel(lower, upper []float64, classes []string, prob [][]float64) (*RunoutModel, error) {
	if len(lower) != len(upper) || len(lower) != len(prob) {
		return nil, fmt.Errorf("pola: runout model has %d lower bounds, %d upper bounds and %d probability rows",
			len(lower), len(upper), len(prob))
	}
	if len(prob) == 0 {
		return nil, fmt.Errorf("pola: runout model is empty")
	}
	m := &RunoutModel{
		DistanceLower: lower,
		DistanceUpper: upper,
		Classes:       classes,
		survival:      make([][]float64, len(classes)),
	}
	for k := range classes {
		m.survival[k] = make([]float64, len(prob))
		var sum float64
		for i := len(prob) - 1; i >= 0; i-- {
			if len(prob[i]) != len(classes) {
				return nil, fmt.Errorf("pola: runout model row %d has %d values but there are %d volume classes",
					i, len(prob[i]), len(classes))
			}
			if prob[i][k] < 0 {
				return nil, fmt.Errorf("pola: runout model row %d, class %s: %w", i, classes[k], ErrInvalidProbability)
			}
			sum += prob[i][k]
			m.survival[k][i] = sum
		}
	}
	return m, nil
}

// VolumeClasses returns the number of volume classes.
func (m *RunoutModel) VolumeClasses() int { return len(m.Classes) }

// MaxDistance returns the largest runout distance [m] in the model.
func (m *RunoutModel) MaxDistance() float64 {
	var max float64
	for _, u := range m.DistanceUpper {
		if u > max {
			max = u
		}
	}
	return max
}

// Survival returns, for each volume class, the probability of reaching at
// least each of the first n cells of a trail. Cells beyond the last
// distance bin have a probability of zero.
func (m *RunoutModel) Survival(n int) [][]float64 {
	o := make([][]float64, len(m.survival))
	for k, s := range m.survival {
		o[k] = make([]float64, n)
		copy(o[k], s)
	}
	return o
}
