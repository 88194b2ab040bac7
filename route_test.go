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
	"math"
	"testing"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		code             int
		wantRow, wantCol int
		wantDist         float64
	}{
		{code: East, wantRow: 5, wantCol: 6, wantDist: 1},
		{code: SouthEast, wantRow: 6, wantCol: 6, wantDist: math.Sqrt2},
		{code: South, wantRow: 6, wantCol: 5, wantDist: 1},
		{code: SouthWest, wantRow: 6, wantCol: 4, wantDist: math.Sqrt2},
		{code: West, wantRow: 5, wantCol: 4, wantDist: 1},
		{code: NorthWest, wantRow: 4, wantCol: 4, wantDist: math.Sqrt2},
		{code: North, wantRow: 4, wantCol: 5, wantDist: 1},
		{code: NorthEast, wantRow: 4, wantCol: 6, wantDist: math.Sqrt2},
		{code: 0, wantRow: -1, wantCol: -1},
		{code: 3, wantRow: -1, wantCol: -1},
		{code: 255, wantRow: -1, wantCol: -1},
		{code: -9999, wantRow: -1, wantCol: -1},
	}
	for _, test := range tests {
		r, c, d := Route(test.code, 5, 5)
		if r != test.wantRow || c != test.wantCol || d != test.wantDist {
			t.Errorf("code %d: have (%d, %d, %g), want (%d, %d, %g)",
				test.code, r, c, d, test.wantRow, test.wantCol, test.wantDist)
		}
	}
}
