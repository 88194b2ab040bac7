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

// Package hash creates fingerprints of build inputs so that stale
// outputs can be detected.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer is used for objects that gob cannot encode.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a hash key for the specified objects, taken in order.
// Objects that implement fmt.Stringer are hashed by their string form.
func Hash(objects ...interface{}) string {
	h := fnv.New128a()
	for i, o := range objects {
		fmt.Fprintf(h, "%d:", i)
		write(h, o)
	}
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

func write(h hash.Hash, object interface{}) {
	if s, ok := object.(fmt.Stringer); ok {
		fmt.Fprint(h, s.String())
		return
	}
	if err := gob.NewEncoder(h).Encode(object); err == nil {
		return
	}
	// If there is an error (e.g., unsupported types) use spew instead.
	printer.Fprintf(h, "%#v", object)
}
