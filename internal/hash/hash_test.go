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

package hash

import (
	"math"
	"testing"
)

type stringer int

func (s stringer) String() string { return "stringer" }

func TestHash(t *testing.T) {
	a := Hash([]float64{1, 2, 3}, "x")
	if a != Hash([]float64{1, 2, 3}, "x") {
		t.Error("hash is not repeatable")
	}
	if a == Hash([]float64{1, 2, 4}, "x") {
		t.Error("different inputs have the same hash")
	}
	if a == Hash("x", []float64{1, 2, 3}) {
		t.Error("hash does not depend on order")
	}
	if Hash(stringer(1)) != Hash(stringer(2)) {
		t.Error("stringers should be hashed by their string form")
	}
	if n := Hash(math.NaN()); n != Hash(math.NaN()) {
		t.Error("NaN hash is not repeatable")
	}
	if Hash(func() {}) == "" {
		t.Error("unencodable object should still hash")
	}
}
