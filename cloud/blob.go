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
	"bytes"
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ReadAll reads the named blob.
func (b *Bucket) ReadAll(ctx context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	r, err := b.b.NewReader(ctx, b.key(name), nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", name, err)
	}
	defer r.Close()
	if _, err = io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// WriteAll writes data to the named blob.
func (b *Bucket) WriteAll(ctx context.Context, name string, data []byte) error {
	w, err := b.NewWriter(ctx, name)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Abort()
		return fmt.Errorf("cloud: copying blob %s: %w", name, err)
	}
	return w.Close()
}

// Writer writes a blob. The blob only becomes visible once Close returns
// without error; Abort discards it.
type Writer struct {
	w      *blob.Writer
	name   string
	cancel context.CancelFunc
}

// NewWriter returns a writer for the named blob.
func (b *Bucket) NewWriter(ctx context.Context, name string) (*Writer, error) {
	ctx, cancel := context.WithCancel(ctx)
	w, err := b.b.NewWriter(ctx, b.key(name), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("cloud: creating writer for blob %s: %w", name, err)
	}
	return &Writer{w: w, name: name, cancel: cancel}, nil
}

func (w *Writer) Write(p []byte) (int, error) { return w.w.Write(p) }

// Close finishes writing the blob.
func (w *Writer) Close() error {
	defer w.cancel()
	if err := w.w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %w", w.name, err)
	}
	return nil
}

// Abort discards the blob. Cancelling the context before closing the
// writer leaves no blob behind.
func (w *Writer) Abort() {
	w.cancel()
	w.w.Close()
}

// Exists reports whether the named blob exists.
func (b *Bucket) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := b.b.Exists(ctx, b.key(name))
	if err != nil {
		return false, fmt.Errorf("cloud: checking blob %s: %w", name, err)
	}
	return ok, nil
}

// Delete deletes the named blob. Deleting a blob that does not exist is
// not an error.
func (b *Bucket) Delete(ctx context.Context, name string) error {
	if err := b.b.Delete(ctx, b.key(name)); err != nil && !IsNotFound(err) {
		return fmt.Errorf("cloud: deleting blob %s: %w", name, err)
	}
	return nil
}

// IsNotFound reports whether err was caused by a missing blob.
func IsNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
