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
	"errors"
	"io"
	"testing"

	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/cloud"
)

func newTestReader(t *testing.T, bd *Builder, idx Index) *Reader {
	r, err := NewReader(context.Background(), bd.bucket, idx, bd.tracer.VolumeClasses())
	if err != nil {
		t.Fatal(err)
	}
	r.Log = quietLogger()
	return r
}

func TestReader(t *testing.T) {
	bd, idx := buildTestCatalog(t, 2)
	r := newTestReader(t, bd, idx)
	for row := 0; row < 4; row++ {
		for col := 0; col < 3; col++ {
			have, ok, err := r.Lookup(row, col)
			if err != nil {
				t.Fatal(err)
			}
			want := bd.tracer.Trace(row, col)
			if ok != (want != nil) {
				t.Errorf("row %d, column %d: have ok %v, want %v", row, col, ok, want != nil)
				continue
			}
			if !sameTrail(have, want) {
				t.Errorf("row %d, column %d: have %+v, want %+v", row, col, have, want)
			}
		}
	}
	// Rows past the end of the index have no trails.
	if _, ok, err := r.Lookup(10, 0); ok || err != nil {
		t.Errorf("have ok %v and error %v, want false and nil", ok, err)
	}
}

func TestReaderRewind(t *testing.T) {
	bd, idx := buildTestCatalog(t, 1)
	r := newTestReader(t, bd, idx)
	if _, _, err := r.Lookup(2, 0); err != nil {
		t.Fatal(err)
	}
	// Rows within the current partition can be requested again.
	if _, ok, err := r.Lookup(2, 0); err != nil || !ok {
		t.Errorf("have ok %v and error %v", ok, err)
	}
	if _, _, err := r.Lookup(1, 0); !errors.Is(err, ErrRewind) {
		t.Errorf("have %v, want ErrRewind", err)
	}
}

func TestReaderSkipPartition(t *testing.T) {
	bd, idx := buildTestCatalog(t, 1)
	r := newTestReader(t, bd, idx)
	// The first partition is never loaded.
	if err := bd.bucket.Delete(context.Background(), idx[0].Name); err != nil {
		t.Fatal(err)
	}
	tr, ok, err := r.Lookup(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || tr.Len() != 3 {
		t.Errorf("have %+v, want a three cell trail", tr)
	}
}

func TestReaderMissingPartition(t *testing.T) {
	ctx := context.Background()
	bd, idx := buildTestCatalog(t, 1)
	if err := bd.bucket.Delete(ctx, idx[1].Name); err != nil {
		t.Fatal(err)
	}
	r := newTestReader(t, bd, idx)
	if _, _, err := r.Lookup(0, 0); err != nil {
		t.Fatal(err)
	}
	_, _, err := r.Lookup(2, 0)
	if err == nil {
		t.Fatal("want an error")
	}
	if !cloud.IsNotFound(err) {
		t.Errorf("have %v, want a not found error", err)
	}
	// The failure is not cached as a success.
	if _, _, err = r.Lookup(3, 0); err == nil {
		t.Error("want an error")
	}
}

func TestReaderMalformedPartition(t *testing.T) {
	ctx := context.Background()
	bd, idx := buildTestCatalog(t, 1)
	if err := bd.bucket.WriteAll(ctx, idx[0].Name, []byte(`{"0": {"0": [[0], [0], [89], [[1], [1]]]}}`)); err != nil {
		t.Fatal(err)
	}
	r := newTestReader(t, bd, idx)
	if _, _, err := r.Lookup(0, 0); !errors.Is(err, pola.ErrMalformedTrail) {
		t.Errorf("have %v, want ErrMalformedTrail", err)
	}
}

func TestReaderSingleRowPartitions(t *testing.T) {
	ctx := context.Background()
	tr := testTracer(t, 1)
	idx, err := PlanIndex(4, 1, "p")
	if err != nil {
		t.Fatal(err)
	}
	bd, err := NewBuilder(tr, idx, memBucket(t))
	if err != nil {
		t.Fatal(err)
	}
	bd.Log = quietLogger()
	if err = bd.Build(ctx); err != nil {
		t.Fatal(err)
	}
	// Every lookup of a new row moves to a new partition.
	for i := 0; i < 50; i++ {
		r := newTestReader(t, bd, idx)
		for row := 0; row < 4; row++ {
			have, ok, err := r.Lookup(row, 0)
			if err != nil {
				t.Fatal(err)
			}
			if !ok || !sameTrail(have, tr.Trace(row, 0)) {
				t.Fatalf("run %d, row %d: have %+v", i, row, have)
			}
		}
		if err = r.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReaderClose(t *testing.T) {
	bd, idx := buildTestCatalog(t, 1)
	r := newTestReader(t, bd, idx)
	if _, _, err := r.Lookup(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if r.part != nil {
		t.Error("the current partition was not released")
	}
	if _, _, err := r.Lookup(0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("have %v, want ErrClosed", err)
	}

	// The assessment cleanup step closes the reader.
	r = newTestReader(t, bd, idx)
	a := &pola.Assessment{Trails: r}
	if err := pola.CloseTrails()(a); err != nil {
		t.Fatal(err)
	}
	if !r.closed {
		t.Error("CloseTrails did not close the reader")
	}
}

// Lookup satisfies the interface the propagator reads trails through.
var _ pola.TrailSource = (*Reader)(nil)

var _ io.Closer = (*Reader)(nil)
