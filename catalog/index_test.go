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
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func TestReadIndex(t *testing.T) {
	const in = `Landslide trail catalog partitions
StartRow,EndRow,FileName
100,199,b.json
0,99,a.json
200,250, c.json
`
	idx, err := ReadIndex(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := Index{
		{StartRow: 0, EndRow: 99, Name: "a.json"},
		{StartRow: 100, EndRow: 199, Name: "b.json"},
		{StartRow: 200, EndRow: 250, Name: "c.json"},
	}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("%v", pretty.Diff(idx, want))
	}

	var buf bytes.Buffer
	if err = WriteIndex(&buf, idx); err != nil {
		t.Fatal(err)
	}
	idx2, err := ReadIndex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(idx2, want) {
		t.Errorf("round trip: %v", pretty.Diff(idx2, want))
	}
}

func TestReadIndexErrors(t *testing.T) {
	tests := map[string]string{
		"empty":          "title\nStartRow,EndRow,FileName\n",
		"missing column": "title\nStartRow,FileName\n0,a\n",
		"not a number":   "title\nStartRow,EndRow,FileName\n0,x,a\n",
		"overlap":        "title\nStartRow,EndRow,FileName\n0,10,a\n10,20,b\n",
		"inverted":       "title\nStartRow,EndRow,FileName\n10,0,a\n",
		"negative":       "title\nStartRow,EndRow,FileName\n-1,5,a\n",
		"duplicate name": "title\nStartRow,EndRow,FileName\n0,5,a\n6,10,a\n",
		"no name":        "title\nStartRow,EndRow,FileName\n0,5,\n",
		"short line":     "title\nStartRow,EndRow,FileName\n0,5\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadIndex(strings.NewReader(in)); err == nil {
				t.Error("want an error")
			}
		})
	}
}

func TestPlanIndex(t *testing.T) {
	idx, err := PlanIndex(250, 100, "part")
	if err != nil {
		t.Fatal(err)
	}
	want := Index{
		{StartRow: 0, EndRow: 99, Name: "part0.json"},
		{StartRow: 100, EndRow: 199, Name: "part1.json"},
		{StartRow: 200, EndRow: 249, Name: "part2.json"},
	}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("%v", pretty.Diff(idx, want))
	}
	if _, err = PlanIndex(0, 100, ""); err == nil {
		t.Error("zero rows should be an error")
	}
	if _, err = PlanIndex(10, 0, ""); err == nil {
		t.Error("zero rows per partition should be an error")
	}
}

func TestIndexFind(t *testing.T) {
	idx := Index{
		{StartRow: 0, EndRow: 9, Name: "a"},
		{StartRow: 20, EndRow: 29, Name: "b"},
	}
	tests := []struct{ row, want int }{
		{row: 0, want: 0},
		{row: 9, want: 0},
		{row: 10, want: -1},
		{row: 20, want: 1},
		{row: 29, want: 1},
		{row: 30, want: -1},
		{row: -1, want: -1},
	}
	for _, test := range tests {
		if have := idx.Find(test.row); have != test.want {
			t.Errorf("row %d: have %d, want %d", test.row, have, test.want)
		}
	}
}
