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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// table is a numeric CSV table.
type table struct {
	header []string
	rows   [][]float64
}

// readTable reads a CSV table whose first line is a free-text title,
// whose second line holds column names and whose remaining lines hold
// numbers.
func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("reading title line: %w", err)
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	t := &table{header: make([]string, len(header))}
	for i, h := range header {
		t.header[i] = strings.TrimSpace(h)
	}
	for line := 3; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != len(t.header) {
			return nil, fmt.Errorf("line %d has %d fields; want %d", line, len(rec), len(t.header))
		}
		row := make([]float64, len(rec))
		for i, s := range rec {
			row[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %v", line, t.header[i], err)
			}
		}
		t.rows = append(t.rows, row)
	}
	if len(t.rows) == 0 {
		return nil, fmt.Errorf("table has no data rows")
	}
	return t, nil
}

// column returns the values of the named column.
func (t *table) column(name string) ([]float64, error) {
	for i, h := range t.header {
		if h == name {
			o := make([]float64, len(t.rows))
			for j, r := range t.rows {
				o[j] = r[i]
			}
			return o, nil
		}
	}
	return nil, fmt.Errorf("missing column %s", name)
}

// bounds returns the first two columns, which must be named lower and
// upper, and the names and values of the remaining columns.
func (t *table) bounds(lower, upper string) (lb, ub []float64, names []string, values [][]float64, err error) {
	if len(t.header) < 3 || t.header[0] != lower || t.header[1] != upper {
		return nil, nil, nil, nil, fmt.Errorf("columns must begin with %s, %s and be followed by at least one volume class; have %v",
			lower, upper, t.header)
	}
	names = t.header[2:]
	for _, r := range t.rows {
		lb = append(lb, r[0])
		ub = append(ub, r[1])
		values = append(values, r[2:])
	}
	return lb, ub, names, values, nil
}

// SlopeClass is one row of the rainfall-based landslide prediction model:
// log10(landslide density [1/km²]) = K × rainfall + B, valid for slopes in
// (SlopeLower, SlopeUpper] and normalized rainfall in
// (RainfallLower, RainfallUpper].
type SlopeClass struct {
	SlopeLower, SlopeUpper       float64
	K, B                         float64
	RainfallLower, RainfallUpper float64
}

// PredictionModel relates normalized rainfall to landslide density
// by slope class.
type PredictionModel struct {
	Classes []SlopeClass
}

// SlopeLowerBound returns the lowest slope [degrees] at which the model
// predicts landslides.
func (m *PredictionModel) SlopeLowerBound() float64 {
	lb := m.Classes[0].SlopeLower
	for _, c := range m.Classes[1:] {
		if c.SlopeLower < lb {
			lb = c.SlopeLower
		}
	}
	return lb
}

// ReadPredictionModel reads a landslide prediction model table with the
// columns Slope_lb, Slope_ub, k, b, Rainfall_lb and Rainfall_ub.
func ReadPredictionModel(r io.Reader) (*PredictionModel, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("pola: reading landslide prediction model: %w", err)
	}
	names := []string{"Slope_lb", "Slope_ub", "k", "b", "Rainfall_lb", "Rainfall_ub"}
	cols := make([][]float64, len(names))
	for i, n := range names {
		if cols[i], err = t.column(n); err != nil {
			return nil, fmt.Errorf("pola: reading landslide prediction model: %w", err)
		}
	}
	m := new(PredictionModel)
	for i := range t.rows {
		m.Classes = append(m.Classes, SlopeClass{
			SlopeLower:    cols[0][i],
			SlopeUpper:    cols[1][i],
			K:             cols[2][i],
			B:             cols[3][i],
			RainfallLower: cols[4][i],
			RainfallUpper: cols[5][i],
		})
	}
	return m, nil
}

// ReadRunoutModel reads a landslide runout model table with the columns
// RunoutDistance_lb and RunoutDistance_ub followed by one column of
// probabilities for each volume class.
func ReadRunoutModel(r io.Reader) (*RunoutModel, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("pola: reading landslide runout model: %w", err)
	}
	lb, ub, names, values, err := t.bounds("RunoutDistance_lb", "RunoutDistance_ub")
	if err != nil {
		return nil, fmt.Errorf("pola: reading landslide runout model: %w", err)
	}
	return NewRunoutModel(lb, ub, names, values)
}

// ReadVulnerabilityModel reads a human vulnerability model table with the
// columns TravelAngle_lb and TravelAngle_ub followed by one column of
// vulnerabilities for each volume class.
func ReadVulnerabilityModel(r io.Reader) (*VulnerabilityModel, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("pola: reading human vulnerability model: %w", err)
	}
	lb, ub, _, values, err := t.bounds("TravelAngle_lb", "TravelAngle_ub")
	if err != nil {
		return nil, fmt.Errorf("pola: reading human vulnerability model: %w", err)
	}
	return NewVulnerabilityModel(lb, ub, values)
}

// VolumeModel gives the probability of each landslide volume class
// for normalized rainfall in [RainfallLower[i], RainfallUpper[i]).
type VolumeModel struct {
	RainfallLower, RainfallUpper []float64
	Classes                      []string
	Probability                  [][]float64
}

// VolumeClasses returns the number of volume classes.
func (m *VolumeModel) VolumeClasses() int { return len(m.Classes) }

// ReadVolumeModel reads a landslide volume model table with the columns
// Rainfall_lb and Rainfall_ub followed by one column of probabilities
// for each volume class.
func ReadVolumeModel(r io.Reader) (*VolumeModel, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("pola: reading landslide volume model: %w", err)
	}
	lb, ub, names, values, err := t.bounds("Rainfall_lb", "Rainfall_ub")
	if err != nil {
		return nil, fmt.Errorf("pola: reading landslide volume model: %w", err)
	}
	for i, row := range values {
		for _, v := range row {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("pola: landslide volume model row %d: %w", i, ErrInvalidProbability)
			}
		}
	}
	return &VolumeModel{
		RainfallLower: lb,
		RainfallUpper: ub,
		Classes:       names,
		Probability:   values,
	}, nil
}
