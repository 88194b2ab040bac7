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

// Package catalog builds and reads trail catalogs: the landslide trails of
// every potential source cell in a terrain grid, stored in row-windowed
// partitions.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// PartitionInfo describes one partition of a trail catalog: the trails
// starting in rows StartRow through EndRow (inclusive) are stored in the
// blob called Name.
type PartitionInfo struct {
	StartRow, EndRow int
	Name             string
}

// Contains returns whether row falls within the partition.
func (p PartitionInfo) Contains(row int) bool {
	return row >= p.StartRow && row <= p.EndRow
}

// Index is the list of partitions in a catalog, sorted by StartRow.
type Index []PartitionInfo

var indexHeader = []string{"StartRow", "EndRow", "FileName"}

const indexTitle = "Landslide trail catalog partitions"

// ReadIndex reads a partition index. The first line is a free-text title
// and the second is the header StartRow,EndRow,FileName.
func ReadIndex(r io.Reader) (Index, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("catalog: reading index title: %w", err)
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: reading index header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, h := range indexHeader {
		if _, ok := cols[h]; !ok {
			return nil, fmt.Errorf("catalog: index is missing column %s", h)
		}
	}
	var idx Index
	for line := 3; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: reading index: %w", err)
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("catalog: index line %d has %d fields; want %d", line, len(rec), len(header))
		}
		var p PartitionInfo
		if p.StartRow, err = strconv.Atoi(strings.TrimSpace(rec[cols["StartRow"]])); err != nil {
			return nil, fmt.Errorf("catalog: index line %d: %w", line, err)
		}
		if p.EndRow, err = strconv.Atoi(strings.TrimSpace(rec[cols["EndRow"]])); err != nil {
			return nil, fmt.Errorf("catalog: index line %d: %w", line, err)
		}
		p.Name = strings.TrimSpace(rec[cols["FileName"]])
		idx = append(idx, p)
	}
	if err := idx.sortAndCheck(); err != nil {
		return nil, err
	}
	return idx, nil
}

// sortAndCheck sorts the index by StartRow and checks that the windows are
// valid and do not overlap.
func (idx Index) sortAndCheck() error {
	if len(idx) == 0 {
		return fmt.Errorf("catalog: index has no partitions")
	}
	sort.SliceStable(idx, func(i, j int) bool { return idx[i].StartRow < idx[j].StartRow })
	names := make(map[string]bool)
	for i, p := range idx {
		if p.StartRow < 0 || p.EndRow < p.StartRow {
			return fmt.Errorf("catalog: partition %s has invalid rows %d to %d", p.Name, p.StartRow, p.EndRow)
		}
		if p.Name == "" {
			return fmt.Errorf("catalog: partition for rows %d to %d has no file name", p.StartRow, p.EndRow)
		}
		if names[p.Name] {
			return fmt.Errorf("catalog: partition file name %s is used more than once", p.Name)
		}
		names[p.Name] = true
		if i > 0 && p.StartRow <= idx[i-1].EndRow {
			return fmt.Errorf("catalog: partition %s (rows %d to %d) overlaps partition %s (rows %d to %d)",
				p.Name, p.StartRow, p.EndRow, idx[i-1].Name, idx[i-1].StartRow, idx[i-1].EndRow)
		}
	}
	return nil
}

// WriteIndex writes idx in the format read by ReadIndex.
func WriteIndex(w io.Writer, idx Index) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{indexTitle})
	cw.Write(indexHeader)
	for _, p := range idx {
		cw.Write([]string{strconv.Itoa(p.StartRow), strconv.Itoa(p.EndRow), p.Name})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("catalog: writing index: %w", err)
	}
	return nil
}

// PlanIndex divides nrow rows into partitions of rowsPerPartition rows
// each, named "<prefix><n>.json".
func PlanIndex(nrow, rowsPerPartition int, prefix string) (Index, error) {
	if nrow <= 0 || rowsPerPartition <= 0 {
		return nil, fmt.Errorf("catalog: cannot plan index for %d rows with %d rows per partition", nrow, rowsPerPartition)
	}
	var idx Index
	for start := 0; start < nrow; start += rowsPerPartition {
		end := start + rowsPerPartition - 1
		if end > nrow-1 {
			end = nrow - 1
		}
		idx = append(idx, PartitionInfo{
			StartRow: start,
			EndRow:   end,
			Name:     fmt.Sprintf("%s%d.json", prefix, len(idx)),
		})
	}
	return idx, nil
}

// Find returns the position of the partition that contains row, or -1
// if no partition does.
func (idx Index) Find(row int) int {
	i := sort.Search(len(idx), func(i int) bool { return idx[i].EndRow >= row })
	if i < len(idx) && idx[i].Contains(row) {
		return i
	}
	return -1
}
