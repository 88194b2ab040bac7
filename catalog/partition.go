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

package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/cloud"
)

// Partition holds the trails of one catalog partition, keyed by source
// row and then source column.
type Partition struct {
	Info PartitionInfo
	Rows map[int]map[int]*pola.Trail
}

// Lookup returns the trail starting at (row, col).
func (p *Partition) Lookup(row, col int) (*pola.Trail, bool) {
	t, ok := p.Rows[row][col]
	return t, ok
}

// Stored precision of travel angles and runout probabilities.
const (
	angleDecimals       = 1
	probabilityDecimals = 3
)

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// encodeTrail returns the stored form of a trail:
// [[rows], [cols], [angles], [[class 0 probabilities], ...]].
func encodeTrail(t *pola.Trail) ([]byte, error) {
	angles := make([]float64, len(t.TravelAngles))
	for i, a := range t.TravelAngles {
		angles[i] = round(a, angleDecimals)
	}
	runout := make([][]float64, len(t.Runout))
	for k, r := range t.Runout {
		runout[k] = make([]float64, len(r))
		for i, v := range r {
			runout[k][i] = round(v, probabilityDecimals)
		}
	}
	return json.Marshal([]interface{}{t.Rows, t.Cols, angles, runout})
}

// partitionWriter streams one partition to a blob. It is owned by a single
// partition and must be either closed or aborted.
type partitionWriter struct {
	info     PartitionInfo
	w        *cloud.Writer
	buf      *bufio.Writer
	nRows    int
	nTrails  int
	finished bool
}

func newPartitionWriter(ctx context.Context, b *cloud.Bucket, info PartitionInfo) (*partitionWriter, error) {
	w, err := b.NewWriter(ctx, info.Name)
	if err != nil {
		return nil, err
	}
	pw := &partitionWriter{info: info, w: w, buf: bufio.NewWriter(w)}
	if _, err = pw.buf.WriteString("{"); err != nil {
		pw.Abort()
		return nil, err
	}
	return pw, nil
}

// WriteRow writes the trails that start in row, keyed by column.
// Rows without trails are skipped.
func (pw *partitionWriter) WriteRow(row int, trails map[int]*pola.Trail) error {
	if len(trails) == 0 {
		return nil
	}
	if !pw.info.Contains(row) {
		return fmt.Errorf("catalog: row %d is outside of partition %s", row, pw.info.Name)
	}
	cols := make(map[string]json.RawMessage, len(trails))
	for col, t := range trails {
		b, err := encodeTrail(t)
		if err != nil {
			return fmt.Errorf("catalog: encoding trail at row %d, column %d: %w", row, col, err)
		}
		cols[strconv.Itoa(col)] = b
	}
	b, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("catalog: encoding row %d: %w", row, err)
	}
	if pw.nRows > 0 {
		pw.buf.WriteString(", ")
	}
	pw.buf.WriteString(strconv.Quote(strconv.Itoa(row)))
	pw.buf.WriteString(": ")
	if _, err = pw.buf.Write(b); err != nil {
		return fmt.Errorf("catalog: writing partition %s: %w", pw.info.Name, err)
	}
	pw.nRows++
	pw.nTrails += len(trails)
	return nil
}

// Close finishes the partition and makes it visible in the bucket.
func (pw *partitionWriter) Close() error {
	if pw.finished {
		return nil
	}
	pw.finished = true
	if _, err := pw.buf.WriteString("}"); err != nil {
		pw.w.Abort()
		return fmt.Errorf("catalog: writing partition %s: %w", pw.info.Name, err)
	}
	if err := pw.buf.Flush(); err != nil {
		pw.w.Abort()
		return fmt.Errorf("catalog: writing partition %s: %w", pw.info.Name, err)
	}
	return pw.w.Close()
}

// Abort discards the partition. It has no effect after Close.
func (pw *partitionWriter) Abort() {
	if pw.finished {
		return
	}
	pw.finished = true
	pw.w.Abort()
}

// decodePartition decodes a stored partition. Any structural problem is
// reported as an error wrapping pola.ErrMalformedTrail.
func decodePartition(info PartitionInfo, data []byte, volumeClasses int) (*Partition, error) {
	var raw map[string]map[string][4]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: partition %s: %v", pola.ErrMalformedTrail, info.Name, err)
	}
	p := &Partition{Info: info, Rows: make(map[int]map[int]*pola.Trail, len(raw))}
	for rowKey, cols := range raw {
		row, err := strconv.Atoi(rowKey)
		if err != nil || !info.Contains(row) {
			return nil, fmt.Errorf("%w: partition %s: invalid row %q", pola.ErrMalformedTrail, info.Name, rowKey)
		}
		trails := make(map[int]*pola.Trail, len(cols))
		for colKey, v := range cols {
			col, err := strconv.Atoi(colKey)
			if err != nil {
				return nil, fmt.Errorf("%w: partition %s: row %d has invalid column %q",
					pola.ErrMalformedTrail, info.Name, row, colKey)
			}
			t, err := decodeTrail(v)
			if err == nil {
				err = t.Check(volumeClasses)
			}
			if err == nil && (t.Len() < 2 || t.Rows[0] != row || t.Cols[0] != col) {
				err = fmt.Errorf("%w: trail does not start at its source", pola.ErrMalformedTrail)
			}
			if err != nil {
				return nil, fmt.Errorf("catalog: partition %s, row %d, column %d: %w", info.Name, row, col, err)
			}
			trails[col] = t
		}
		p.Rows[row] = trails
	}
	return p, nil
}

func decodeTrail(v [4]json.RawMessage) (*pola.Trail, error) {
	t := new(pola.Trail)
	for i, dst := range []interface{}{&t.Rows, &t.Cols, &t.TravelAngles, &t.Runout} {
		if err := json.Unmarshal(v[i], dst); err != nil {
			return nil, fmt.Errorf("%w: %v", pola.ErrMalformedTrail, err)
		}
	}
	return t, nil
}
