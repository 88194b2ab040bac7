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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/cloud"
	"golang.org/x/sync/errgroup"
)

// Builder traces the trail of every cell in a terrain grid and stores
// the trails in the partitions of a catalog.
type Builder struct {
	tracer *pola.Tracer
	index  Index
	bucket *cloud.Bucket

	// Workers is the number of partitions built at the same time.
	// Values < 2 build partitions one at a time.
	Workers int

	Log logrus.FieldLogger
}

// NewBuilder returns a Builder that writes the partitions in idx to b.
func NewBuilder(tr *pola.Tracer, idx Index, b *cloud.Bucket) (*Builder, error) {
	if err := idx.sortAndCheck(); err != nil {
		return nil, err
	}
	return &Builder{
		tracer: tr,
		index:  idx,
		bucket: b,
		Log:    logrus.StandardLogger(),
	}, nil
}

// Exists reports whether the catalog has already been built, judging by
// whether the first partition is present. A warning is logged if the
// catalog was built from different inputs; call Delete before Build to
// rebuild it.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	ok, err := b.bucket.Exists(ctx, b.index[0].Name)
	if err != nil || !ok {
		return false, err
	}
	m, err := ReadManifest(ctx, b.bucket)
	if err != nil {
		return true, err
	}
	switch {
	case m == nil:
		b.Log.WithField("catalog", b.bucket.String()).Warn("trail catalog has no manifest; it may be incomplete")
	case m.Fingerprint != Fingerprint(b.tracer, b.index):
		b.Log.WithField("catalog", b.bucket.String()).Warn(
			"trail catalog was built from different inputs; delete it to rebuild")
	}
	return true, nil
}

// Delete removes the manifest and every partition in the index from the
// bucket. Partitions that are not there are skipped. The manifest goes
// first so that an interrupted Delete never leaves a catalog that looks
// complete.
func (b *Builder) Delete(ctx context.Context) error {
	if err := b.bucket.Delete(ctx, ManifestName); err != nil {
		return err
	}
	for _, info := range b.index {
		if err := b.bucket.Delete(ctx, info.Name); err != nil {
			return err
		}
	}
	b.Log.WithFields(logrus.Fields{
		"catalog":    b.bucket.String(),
		"partitions": len(b.index),
	}).Info("deleted trail catalog")
	return nil
}

// Build traces every cell in the rows covered by the index and writes
// the catalog. Rows outside of every partition are not traced.
func (b *Builder) Build(ctx context.Context) error {
	nrow, ncol := b.tracer.Terrain().Shape()
	b.warnUncovered(nrow)

	start := time.Now()
	m := &Manifest{
		Version:       pola.Version,
		Rows:          nrow,
		Cols:          ncol,
		CellSize:      b.tracer.Config().CellSize,
		VolumeClasses: b.tracer.VolumeClasses(),
		Fingerprint:   Fingerprint(b.tracer, b.index),
	}
	trails := make([]int, len(b.index))

	g, gctx := errgroup.WithContext(ctx)
	if b.Workers > 1 {
		g.SetLimit(b.Workers)
	} else {
		g.SetLimit(1)
	}
	for i, info := range b.index {
		if info.StartRow >= nrow {
			b.Log.WithField("partition", info.Name).Warn("partition starts beyond the last grid row; skipping")
			continue
		}
		i, info := i, info
		g.Go(func() error {
			n, err := b.buildPartition(gctx, info, nrow, ncol)
			trails[i] = n
			return err
		})
		m.Partitions++
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, n := range trails {
		m.Trails += n
	}
	if err := writeManifest(ctx, b.bucket, m); err != nil {
		return err
	}
	b.Log.WithFields(logrus.Fields{
		"partitions": m.Partitions,
		"trails":     m.Trails,
		"elapsed":    time.Since(start).Round(time.Millisecond),
	}).Info("trail catalog complete")
	return nil
}

// buildPartition traces the rows of one partition and writes them. The
// partition is discarded if anything goes wrong.
func (b *Builder) buildPartition(ctx context.Context, info PartitionInfo, nrow, ncol int) (n int, err error) {
	start := time.Now()
	pw, err := newPartitionWriter(ctx, b.bucket, info)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			pw.Abort()
		}
	}()
	end := info.EndRow
	if end > nrow-1 {
		end = nrow - 1
	}
	for row := info.StartRow; row <= end; row++ {
		if err = ctx.Err(); err != nil {
			return 0, err
		}
		trails := make(map[int]*pola.Trail)
		for col := 0; col < ncol; col++ {
			if t := b.tracer.Trace(row, col); t != nil {
				trails[col] = t
			}
		}
		if err = pw.WriteRow(row, trails); err != nil {
			return 0, err
		}
	}
	if err = pw.Close(); err != nil {
		return 0, fmt.Errorf("catalog: closing partition %s: %w", info.Name, err)
	}
	b.Log.WithFields(logrus.Fields{
		"partition": info.Name,
		"rows":      fmt.Sprintf("%d-%d", info.StartRow, end),
		"trails":    pw.nTrails,
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Info("wrote trail catalog partition")
	return pw.nTrails, nil
}

// warnUncovered logs the grid rows that are not in any partition.
func (b *Builder) warnUncovered(nrow int) {
	next := 0
	warn := func(from, to int) {
		if to >= from {
			b.Log.WithFields(logrus.Fields{
				"from": from,
				"to":   to,
			}).Warn("grid rows are not in any trail catalog partition and will not be traced")
		}
	}
	for _, p := range b.index {
		if p.StartRow >= nrow {
			break
		}
		warn(next, p.StartRow-1)
		next = p.EndRow + 1
	}
	warn(next, nrow-1)
}
