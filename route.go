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

import "math"

// D8 flow direction codes. Each code points to one of the eight neighbors
// of a cell, clockwise starting from the east.
const (
	East      = 1
	SouthEast = 2
	South     = 4
	SouthWest = 8
	West      = 16
	NorthWest = 32
	North     = 64
	NorthEast = 128
)

// Route returns the row and column of the cell downstream of (row, col)
// according to the D8 flow direction code, along with the distance to
// that cell in units of cell edge length. Codes other than the eight
// valid ones (including nodata) return (-1, -1, 0).
// The returned cell is not checked against the grid extent.
func Route(code, row, col int) (nextRow, nextCol int, dist float64) {
	switch code {
	case East:
		return row, col + 1, 1
	case SouthEast:
		return row + 1, col + 1, math.Sqrt2
	case South:
		return row + 1, col, 1
	case SouthWest:
		return row + 1, col - 1, math.Sqrt2
	case West:
		return row, col - 1, 1
	case NorthWest:
		return row - 1, col - 1, math.Sqrt2
	case North:
		return row - 1, col, 1
	case NorthEast:
		return row - 1, col + 1, math.Sqrt2
	default:
		return -1, -1, 0
	}
}
