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
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// NegligibleProbability is the landslide probability at or below which a
// source cell is skipped. It is below the precision that risk is tracked to.
const NegligibleProbability = 1e-6

// TrailSource finds the trail that starts at a cell. ok is false when no
// trail starts there, which is not an error.
type TrailSource interface {
	Lookup(row, col int) (t *Trail, ok bool, err error)
}

// PropagateConfig holds the settings for hazard propagation.
type PropagateConfig struct {
	// Threshold is the landslide probability at or below which source cells
	// are skipped. NegligibleProbability is used if it is zero.
	Threshold float64

	// Workers is the number of goroutines computing source cell
	// contributions within a row. Values < 2 compute them serially.
	Workers int
}

// Propagator spreads the landslide hazard at each source cell along the
// cell's trail.
type Propagator struct {
	vulnerability *VulnerabilityModel
	cfg           PropagateConfig

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// NewPropagator returns a new Propagator.
func NewPropagator(v *VulnerabilityModel, cfg PropagateConfig) *Propagator {
	if cfg.Threshold == 0 {
		cfg.Threshold = NegligibleProbability
	}
	return &Propagator{
		vulnerability: v,
		cfg:           cfg,
		Log:           logrus.StandardLogger(),
	}
}

// contribution is the non-occurrence factor that one source cell
// contributes to each cell of its trail.
type contribution struct {
	trail                 *Trail
	nonAffected, nonFatal []float64
}

// source is a cell with a non-negligible landslide probability and a trail.
type source struct {
	row, col int
	trail    *Trail
}

// Propagate calculates the probability of each cell being affected by a
// landslide and the resulting fatality rate. Rows are processed in
// increasing order, as required by trail sources that can only move
// forward.
func (p *Propagator) Propagate(ctx context.Context, h *HazardGrids, trails TrailSource) (*Consequence, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if nc := h.VolumeClasses(); nc != p.vulnerability.VolumeClasses() {
		return nil, fmt.Errorf("pola: hazard has %d volume classes but the vulnerability model has %d",
			nc, p.vulnerability.VolumeClasses())
	}
	nrow, ncol := h.Shape()
	nonAffected := ones(nrow, ncol)
	nonFatal := ones(nrow, ncol)

	start := time.Now()
	var nSources int
	for row := 0; row < nrow; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sources, err := p.rowSources(h, trails, row, ncol)
		if err != nil {
			return nil, err
		}
		contribs, err := p.contributions(ctx, h, sources)
		if err != nil {
			return nil, err
		}
		for _, c := range contribs {
			for i := range c.trail.Rows {
				idx := c.trail.Rows[i]*ncol + c.trail.Cols[i]
				nonAffected.Elements[idx] *= c.nonAffected[i]
				nonFatal.Elements[idx] *= c.nonFatal[i]
			}
		}
		nSources += len(sources)
		if (row+1)%1000 == 0 {
			p.Log.WithFields(logrus.Fields{
				"row":     row + 1,
				"of":      nrow,
				"sources": nSources,
				"elapsed": time.Since(start).Round(time.Second),
			}).Info("propagating landslide hazard")
		}
	}
	p.Log.WithFields(logrus.Fields{
		"sources": nSources,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("landslide hazard propagation complete")

	o := &Consequence{Affected: nonAffected, Fatality: nonFatal, NoData: h.NoData}
	for i, v := range h.Probability.Elements {
		if h.IsNoData(v) {
			o.Affected.Elements[i] = h.NoData
			o.Fatality.Elements[i] = h.NoData
			continue
		}
		o.Affected.Elements[i] = 1 - o.Affected.Elements[i]
		o.Fatality.Elements[i] = 1 - o.Fatality.Elements[i]
	}
	return o, nil
}

// rowSources looks up, in column order, the trails of the cells in row
// whose landslide probability exceeds the threshold.
func (p *Propagator) rowSources(h *HazardGrids, trails TrailSource, row, ncol int) ([]source, error) {
	var o []source
	for col := 0; col < ncol; col++ {
		prob := h.Probability.Get(row, col)
		if h.IsNoData(prob) || !(prob > p.cfg.Threshold) {
			continue
		}
		t, ok, err := trails.Lookup(row, col)
		if err != nil {
			return nil, fmt.Errorf("pola: looking up trail at row %d, column %d: %w", row, col, err)
		}
		if !ok {
			continue
		}
		if err := t.Check(h.VolumeClasses()); err != nil {
			return nil, fmt.Errorf("pola: trail at row %d, column %d: %w", row, col, err)
		}
		o = append(o, source{row: row, col: col, trail: t})
	}
	return o, nil
}

// contributions calculates the contribution of each source. The result is
// in the same order as sources regardless of the number of workers.
func (p *Propagator) contributions(ctx context.Context, h *HazardGrids, sources []source) ([]contribution, error) {
	o := make([]contribution, len(sources))
	if p.cfg.Workers < 2 || len(sources) < 2 {
		for i, s := range sources {
			o[i] = p.contribution(h, s)
		}
		return o, nil
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, s := range sources {
		i, s := i, s
		g.Go(func() error {
			o[i] = p.contribution(h, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return o, nil
}

// contribution calculates the non-occurrence factors of a single source.
func (p *Propagator) contribution(h *HazardGrids, s source) contribution {
	nClass := h.VolumeClasses()
	prob := h.Probability.Get(s.row, s.col)
	vol := make([]float64, nClass)
	for k := range vol {
		v := h.VolumeProbability.Get(k, s.row, s.col)
		if !h.IsNoData(v) {
			vol[k] = v
		}
	}
	n := s.trail.Len()
	c := contribution{
		trail:       s.trail,
		nonAffected: make([]float64, n),
		nonFatal:    make([]float64, n),
	}
	w := make([]float64, nClass)
	for i := 0; i < n; i++ {
		for k := range w {
			w[k] = prob * s.trail.Runout[k][i] * vol[k]
		}
		vul := p.vulnerability.At(s.trail.TravelAngles[i])
		// Volume class probabilities can sum to slightly more than one.
		c.nonAffected[i] = 1 - math.Min(floats.Sum(w), 1)
		c.nonFatal[i] = 1 - math.Min(floats.Dot(w, vul), 1)
	}
	return c
}

func ones(dims ...int) *sparse.DenseArray {
	a := sparse.ZerosDense(dims...)
	for i := range a.Elements {
		a.Elements[i] = 1
	}
	return a
}
