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
	"context"
	"io"
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/cloud"
	"gonum.org/v1/gonum/floats"
)

// testTracer returns a tracer over a 4×3 grid where every cell drains
// east. Cells in the first two columns have three-cell or two-cell trails
// and cells in the last column have none.
func testTracer(t *testing.T, cellSize float64) *pola.Tracer {
	const nrow, ncol = 4, 3
	elev := sparse.ZerosDense(nrow, ncol)
	slope := sparse.ZerosDense(nrow, ncol)
	flow := sparse.ZerosDense(nrow, ncol)
	for row := 0; row < nrow; row++ {
		for col := 0; col < ncol; col++ {
			elev.Set(float64(10-col), row, col)
			slope.Set(30, row, col)
			if col < ncol-1 {
				flow.Set(1, row, col)
			}
		}
	}
	terrain, err := pola.NewTerrain(elev, slope, flow, cellSize)
	if err != nil {
		t.Fatal(err)
	}
	mask, err := pola.NewPotentialMask(slope, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	runout, err := pola.NewRunoutModel(
		[]float64{0, 10, 20},
		[]float64{10, 20, 100},
		[]string{"small", "large"},
		[][]float64{{0.5, 0.1}, {0.3, 0.3}, {0.2, 0.6}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return pola.NewTracer(terrain, mask, runout, pola.NewTraceConfig(cellSize, runout))
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func memBucket(t *testing.T) *cloud.Bucket {
	b, err := cloud.OpenBucket(context.Background(), "mem://catalog")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// sameTrail reports whether a stored trail matches the traced one within
// the stored precision.
func sameTrail(have, want *pola.Trail) bool {
	if have == nil || want == nil {
		return have == want
	}
	if !intsEqual(have.Rows, want.Rows) || !intsEqual(have.Cols, want.Cols) {
		return false
	}
	if !floats.EqualApprox(have.TravelAngles, want.TravelAngles, 0.05+1e-9) {
		return false
	}
	if len(have.Runout) != len(want.Runout) {
		return false
	}
	for k := range have.Runout {
		if !floats.EqualApprox(have.Runout[k], want.Runout[k], 5e-4+1e-9) {
			return false
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRound(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     float64
	}{
		{v: 44.999, decimals: 1, want: 45},
		{v: 26.5651, decimals: 1, want: 26.6},
		{v: 0.12345, decimals: 3, want: 0.123},
		{v: 0.9996, decimals: 3, want: 1},
	}
	for _, test := range tests {
		if have := round(test.v, test.decimals); math.Abs(have-test.want) > 1e-12 {
			t.Errorf("round(%g, %d): have %g, want %g", test.v, test.decimals, have, test.want)
		}
	}
}
