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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/tealeg/xlsx"
)

// BuildingCells holds the grid cells that a building covers.
type BuildingCells struct {
	Rows, Cols []int
}

// BuildingLocations maps building identifiers to the cells they cover.
type BuildingLocations map[string]BuildingCells

// UnmarshalJSON decodes {"<id>": [[rows], [cols]], ...}.
func (b *BuildingLocations) UnmarshalJSON(data []byte) error {
	var raw map[string][][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o := make(BuildingLocations, len(raw))
	for id, rc := range raw {
		if len(rc) != 2 || len(rc[0]) != len(rc[1]) {
			return fmt.Errorf("pola: building %s: location must be [[rows], [columns]] of equal length", id)
		}
		o[id] = BuildingCells{Rows: rc[0], Cols: rc[1]}
	}
	*b = o
	return nil
}

// ReadBuildingLocations reads building locations in JSON format.
func ReadBuildingLocations(r io.Reader) (BuildingLocations, error) {
	var b BuildingLocations
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("pola: reading building locations: %w", err)
	}
	return b, nil
}

// BuildingResult is the landslide consequence for a single building.
type BuildingResult struct {
	ID       string
	Affected float64 // probability of being affected by at least one landslide
	Fatality float64 // fatality rate of an occupant
}

// BuildingRisk combines the cell consequences covered by each building,
// treating cells as independent. Nodata and out of grid cells contribute
// nothing. Results are sorted by building ID.
func BuildingRisk(c *Consequence, locs BuildingLocations) []BuildingResult {
	nrow, ncol := c.Affected.Shape[0], c.Affected.Shape[1]
	o := make([]BuildingResult, 0, len(locs))
	for id, cells := range locs {
		nonAffected, nonFatal := 1.0, 1.0
		for i, row := range cells.Rows {
			col := cells.Cols[i]
			if row < 0 || row >= nrow || col < 0 || col >= ncol {
				continue
			}
			if a := c.Affected.Get(row, col); !isNoData(a, c.NoData) {
				nonAffected *= 1 - a
			}
			if f := c.Fatality.Get(row, col); !isNoData(f, c.NoData) {
				nonFatal *= 1 - f
			}
		}
		o = append(o, BuildingResult{
			ID:       id,
			Affected: math.Max(1-nonAffected, 0),
			Fatality: math.Max(1-nonFatal, 0),
		})
	}
	sort.Slice(o, func(i, j int) bool { return o[i].ID < o[j].ID })
	return o
}

var buildingHeader = []string{"BuildingID", "AffectedProbability", "FatalityRate"}

// WriteBuildingCSV writes building results as CSV.
func WriteBuildingCSV(w io.Writer, results []BuildingResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(buildingHeader); err != nil {
		return fmt.Errorf("pola: writing building results: %w", err)
	}
	for _, r := range results {
		rec := []string{
			r.ID,
			strconv.FormatFloat(r.Affected, 'g', -1, 64),
			strconv.FormatFloat(r.Fatality, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("pola: writing building results: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("pola: writing building results: %w", err)
	}
	return nil
}

// WriteBuildingXLSX writes building results to a spreadsheet.
func WriteBuildingXLSX(w io.Writer, results []BuildingResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Buildings")
	if err != nil {
		return fmt.Errorf("pola: writing building spreadsheet: %w", err)
	}
	row := sheet.AddRow()
	for _, h := range buildingHeader {
		row.AddCell().SetString(h)
	}
	for _, r := range results {
		row = sheet.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetFloat(r.Affected)
		row.AddCell().SetFloat(r.Fatality)
	}
	if err = f.Write(w); err != nil {
		return fmt.Errorf("pola: writing building spreadsheet: %w", err)
	}
	return nil
}
