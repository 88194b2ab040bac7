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
	"sort"
)

// VulnerabilityModel gives the probability that a person struck by a
// landslide is killed, by travel angle interval and volume class.
type VulnerabilityModel struct {
	lower, upper []float64
	values       [][]float64
}

type vulnerabilityRows VulnerabilityModel

func (v vulnerabilityRows) Len() int           { return len(v.lower) }
func (v vulnerabilityRows) Less(i, j int) bool { return v.lower[i] < v.lower[j] }
func (v vulnerabilityRows) Swap(i, j int) {
	v.lower[i], v.lower[j] = v.lower[j], v.lower[i]
	v.upper[i], v.upper[j] = v.upper[j], v.upper[i]
	v.values[i], v.values[j] = v.values[j], v.values[i]
}

// NewVulnerabilityModel creates a vulnerability model where values[i][k]
// is the vulnerability for travel angles in [lower[i], upper[i]) and volume
// class k. The intervals are sorted and must be contiguous. The arguments
// are copied and not modified.
func NewVulnerabilityModel(lower, upper []float64, values [][]float64) (*VulnerabilityModel, error) {
	if len(lower) != len(upper) || len(lower) != len(values) || len(lower) == 0 {
		return nil, fmt.Errorf("pola: vulnerability model has %d lower bounds, %d upper bounds and %d rows",
			len(lower), len(upper), len(values))
	}
	m := &VulnerabilityModel{
		lower:  append([]float64(nil), lower...),
		upper:  append([]float64(nil), upper...),
		values: make([][]float64, len(values)),
	}
	for i, v := range values {
		m.values[i] = append([]float64(nil), v...)
	}
	sort.Stable(vulnerabilityRows(*m))
	for i := range m.lower {
		if len(m.values[i]) != len(m.values[0]) {
			return nil, fmt.Errorf("pola: vulnerability model row %d has %d classes; want %d",
				i, len(m.values[i]), len(m.values[0]))
		}
		if !(m.lower[i] < m.upper[i]) {
			return nil, fmt.Errorf("pola: vulnerability interval [%g, %g) is empty", m.lower[i], m.upper[i])
		}
		if i > 0 && m.lower[i] != m.upper[i-1] {
			return nil, fmt.Errorf("pola: vulnerability intervals [%g, %g) and [%g, %g) are not contiguous",
				m.lower[i-1], m.upper[i-1], m.lower[i], m.upper[i])
		}
		for _, v := range m.values[i] {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("pola: vulnerability model row %d: %w", i, ErrInvalidProbability)
			}
		}
	}
	return m, nil
}

// VolumeClasses returns the number of volume classes.
func (m *VulnerabilityModel) VolumeClasses() int { return len(m.values[0]) }

// At returns the per-volume-class vulnerability for the interval
// containing angle. Angles below the first interval use the first interval
// and angles at or above the last upper bound use the last interval.
// The returned slice must not be modified.
func (m *VulnerabilityModel) At(angle float64) []float64 {
	i := sort.SearchFloat64s(m.upper, angle)
	// upper[i] >= angle; the interval is [lower, upper) so an angle equal
	// to an upper bound belongs to the next interval.
	if i < len(m.upper) && m.upper[i] == angle {
		i++
	}
	if i >= len(m.values) {
		i = len(m.values) - 1
	}
	return m.values[i]
}
