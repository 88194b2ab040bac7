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

package cloud

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	locations := map[string]string{
		"mem":   "mem://test/dir",
		"file":  "file://" + filepath.ToSlash(filepath.Join(dir, "file")),
		"local": filepath.Join(dir, "local"),
	}
	for name, loc := range locations {
		t.Run(name, func(t *testing.T) {
			b, err := OpenBucket(ctx, loc)
			if err != nil {
				t.Fatal(err)
			}
			defer b.Close()
			if b.String() != loc {
				t.Errorf("have %s, want %s", b.String(), loc)
			}
			testBucket(ctx, t, b)
		})
	}
}

func testBucket(ctx context.Context, t *testing.T, b *Bucket) {
	ok, err := b.Exists(ctx, "x.json")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("blob should not exist yet")
	}
	if _, err = b.ReadAll(ctx, "x.json"); !IsNotFound(err) {
		t.Errorf("have %v, want a not found error", err)
	}
	if err = b.WriteAll(ctx, "x.json", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if ok, err = b.Exists(ctx, "x.json"); err != nil || !ok {
		t.Errorf("have exists %v and error %v", ok, err)
	}
	data, err := b.ReadAll(ctx, "x.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("have %s, want hello", data)
	}

	w, err := b.NewWriter(ctx, "y.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = io.WriteString(w, "aborted"); err != nil {
		t.Fatal(err)
	}
	w.Abort()
	if ok, err = b.Exists(ctx, "y.json"); err != nil || ok {
		t.Errorf("aborted blob: have exists %v and error %v", ok, err)
	}

	if err = b.Delete(ctx, "x.json"); err != nil {
		t.Fatal(err)
	}
	if ok, _ = b.Exists(ctx, "x.json"); ok {
		t.Error("blob should have been deleted")
	}
	if err = b.Delete(ctx, "x.json"); err != nil {
		t.Errorf("deleting a missing blob: %v", err)
	}
}

func TestBucketLocalDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "a", "b")
	b, err := OpenBucket(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err = b.WriteAll(ctx, "z.txt", []byte("z")); err != nil {
		t.Fatal(err)
	}
	if _, err = os.Stat(filepath.Join(dir, "z.txt")); err != nil {
		t.Error(err)
	}
}

func TestNewBucketPrefix(t *testing.T) {
	ctx := context.Background()
	mb := memblob.OpenBucket(nil)
	b := NewBucket(mb, "/catalogs/one/")
	if err := b.WriteAll(ctx, "p.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	ok, err := mb.Exists(ctx, "catalogs/one/p.json")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("blob should be stored under the prefix")
	}
}

func TestOpenBucketInvalid(t *testing.T) {
	if _, err := OpenBucket(context.Background(), "ftp://x/y"); err == nil {
		t.Error("unknown provider should be an error")
	}
}
