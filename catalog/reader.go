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
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/cloud"
)

// ErrRewind is returned when a trail is requested from a row before the
// partition the reader has already moved on to.
var ErrRewind = errors.New("catalog: trail requested from a row before the current partition")

// ErrClosed is returned by lookups on a closed Reader.
var ErrClosed = errors.New("catalog: reader is closed")

// DefaultMaxRetries is the number of times a failed partition load is
// retried.
const DefaultMaxRetries = 5

// Reader looks up trails in a catalog. Rows must be requested in
// non-decreasing order. Partitions are loaded lazily, once each, on the
// goroutine that calls Lookup. Reader is not safe for concurrent use.
type Reader struct {
	ctx           context.Context
	bucket        *cloud.Bucket
	index         Index
	volumeClasses int

	cache *requestcache.Cache

	part   *Partition // current partition
	closed bool

	// MaxRetries is the number of times a failed partition load is
	// retried before giving up.
	MaxRetries uint64

	Log logrus.FieldLogger
}

// NewReader returns a reader for the catalog stored in b with the given
// index. Trails must have volumeClasses runout rows. ctx bounds all
// partition loads.
func NewReader(ctx context.Context, b *cloud.Bucket, idx Index, volumeClasses int) (*Reader, error) {
	if err := idx.sortAndCheck(); err != nil {
		return nil, err
	}
	r := &Reader{
		ctx:           ctx,
		bucket:        b,
		index:         idx,
		volumeClasses: volumeClasses,
		MaxRetries:    DefaultMaxRetries,
		Log:           logrus.StandardLogger(),
	}
	// The processor never returns an error so that a failed load is cached
	// like a successful one and not repeated. Requests are only ever made
	// from Lookup, one at a time.
	r.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		p, err := r.load(ctx, request.(PartitionInfo))
		return loadResult{p: p, err: err}, nil
	}, 1, requestcache.Memory(1))
	return r, nil
}

type loadResult struct {
	p   *Partition
	err error
}

// Lookup returns the trail that starts at (row, col). ok is false if there
// is no such trail.
func (r *Reader) Lookup(row, col int) (t *pola.Trail, ok bool, err error) {
	if r.closed {
		return nil, false, ErrClosed
	}
	if r.part != nil && row < r.part.Info.StartRow {
		return nil, false, fmt.Errorf("%w: row %d < %d", ErrRewind, row, r.part.Info.StartRow)
	}
	if r.part == nil || !r.part.Info.Contains(row) {
		i := r.index.Find(row)
		if i < 0 {
			return nil, false, nil
		}
		if err = r.advance(i); err != nil {
			return nil, false, err
		}
	}
	t, ok = r.part.Lookup(row, col)
	return t, ok, nil
}

// advance releases the current partition and moves to partition i.
func (r *Reader) advance(i int) error {
	r.part = nil
	p, err := r.request(i)
	if err != nil {
		return err
	}
	r.part = p
	return nil
}

// Close releases the current partition. Lookups after Close return
// ErrClosed.
func (r *Reader) Close() error {
	r.part = nil
	r.closed = true
	return nil
}

func (r *Reader) request(i int) (*Partition, error) {
	info := r.index[i]
	res, err := r.cache.NewRequest(r.ctx, info, info.Name).Result()
	if err != nil {
		return nil, err
	}
	lr := res.(loadResult)
	return lr.p, lr.err
}

// load reads and decodes a partition, retrying failed reads. Missing and
// malformed partitions are not retried.
func (r *Reader) load(ctx context.Context, info PartitionInfo) (*Partition, error) {
	start := time.Now()
	var data []byte
	var permanent error
	err := backoff.RetryNotify(
		func() error {
			var err error
			data, err = r.bucket.ReadAll(ctx, info.Name)
			if err != nil && (cloud.IsNotFound(err) || ctx.Err() != nil) {
				permanent = err
				return nil
			}
			return err
		},
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.MaxRetries),
		func(err error, d time.Duration) {
			r.Log.WithField("partition", info.Name).Warnf("%v: retrying in %v", err, d)
		},
	)
	if permanent != nil {
		err = permanent
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: loading partition %s: %w", info.Name, err)
	}
	p, err := decodePartition(info, data, r.volumeClasses)
	if err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"partition": info.Name,
		"rows":      len(p.Rows),
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Debug("loaded trail catalog partition")
	return p, nil
}
