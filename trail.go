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
	"fmt"
	"math"
)

const (
	// SourceTravelAngle [degrees] is the travel angle assigned to the source
	// cell of every trail, representing near-vertical detachment.
	SourceTravelAngle = 89.0

	// LowSlopeThreshold [degrees] is the slope below which terrain is
	// considered flat enough for debris to come to rest.
	LowSlopeThreshold = 15.0

	// LowSlopeRunoutDistance [m] is the distance beyond which landslides
	// rarely continue after reaching terrain flatter than LowSlopeThreshold
	// (GEO Report No. 337).
	LowSlopeRunoutDistance = 50.0
)

// Trail is the downhill path that debris from a landslide at the first
// cell is expected to follow.
type Trail struct {
	Rows, Cols []int

	// TravelAngles [degrees] holds the angle of reach from the source to
	// each cell. The first element is SourceTravelAngle.
	TravelAngles []float64

	// Runout[k][i] is the probability that debris of volume class k reaches
	// at least cell i.
	Runout [][]float64
}

// Len returns the number of cells in the trail, including the source.
func (t *Trail) Len() int { return len(t.Rows) }

// Check returns an error wrapping ErrMalformedTrail if the trail's arrays
// have inconsistent lengths or if the trail does not have volumeClasses
// runout rows.
func (t *Trail) Check(volumeClasses int) error {
	n := len(t.Rows)
	if len(t.Cols) != n || len(t.TravelAngles) != n {
		return fmt.Errorf("%w: %d rows, %d columns and %d travel angles",
			ErrMalformedTrail, n, len(t.Cols), len(t.TravelAngles))
	}
	if len(t.Runout) != volumeClasses {
		return fmt.Errorf("%w: %d runout volume classes; want %d", ErrMalformedTrail, len(t.Runout), volumeClasses)
	}
	for k, r := range t.Runout {
		if len(r) != n {
			return fmt.Errorf("%w: volume class %d has %d runout probabilities for %d cells",
				ErrMalformedTrail, k, len(r), n)
		}
	}
	return nil
}

// TraceConfig holds the limits that apply when tracing trails.
type TraceConfig struct {
	// CellSize [m] is the grid cell edge length.
	CellSize float64

	// MaxRunoutDistance [m] is the longest distance a trail may reach.
	MaxRunoutDistance float64

	// MaxLowSlopeRunLength is the number of steps after which a trail
	// stops once it has reached low-slope terrain.
	MaxLowSlopeRunLength float64
}

// NewTraceConfig returns the trace limits for the given cell size [m] and
// runout model.
func NewTraceConfig(cellSize float64, runout *RunoutModel) TraceConfig {
	return TraceConfig{
		CellSize:             cellSize,
		MaxRunoutDistance:    runout.MaxDistance(),
		MaxLowSlopeRunLength: LowSlopeRunoutDistance / cellSize,
	}
}

// Tracer finds landslide trails on a terrain grid.
// It does not modify its inputs and is safe for concurrent use.
type Tracer struct {
	terrain   *Terrain
	potential *PotentialMask
	runout    *RunoutModel
	cfg       TraceConfig
}

// NewTracer returns a new Tracer.
func NewTracer(t *Terrain, potential *PotentialMask, runout *RunoutModel, cfg TraceConfig) *Tracer {
	return &Tracer{
		terrain:   t,
		potential: potential,
		runout:    runout,
		cfg:       cfg,
	}
}

// Config returns the trace limits used by tr.
func (tr *Tracer) Config() TraceConfig { return tr.cfg }

// Terrain returns the terrain that tr traces over.
func (tr *Tracer) Terrain() *Terrain { return tr.terrain }

// PotentialCount returns the number of cells a landslide can start in.
func (tr *Tracer) PotentialCount() int { return tr.potential.Count() }

// Runout returns the runout model used by tr.
func (tr *Tracer) Runout() *RunoutModel { return tr.runout }

// VolumeClasses returns the number of volume classes in the runout model.
func (tr *Tracer) VolumeClasses() int { return tr.runout.VolumeClasses() }

// Trace follows the flow directions downhill from (row, col) and returns
// the resulting trail, or nil if a landslide cannot start at (row, col) or
// cannot leave it.
func (tr *Tracer) Trace(row, col int) *Trail {
	if !tr.potential.Potential(row, col) {
		return nil
	}
	elev := tr.terrain.Elevation
	t := &Trail{
		Rows:         []int{row},
		Cols:         []int{col},
		TravelAngles: []float64{SourceTravelAngle},
	}
	z0 := elev.Get(row, col)
	var units float64 // distance traveled in cell units
	var lowSlope int
	r, c := row, col
	for {
		nr, nc, d := Route(tr.terrain.flowCode(r, c), r, c)
		if !tr.terrain.Inside(nr, nc) || !(elev.Get(nr, nc) < elev.Get(r, c)) || !tr.potential.Potential(nr, nc) {
			break
		}
		dist := (units + d) * tr.cfg.CellSize
		if dist > tr.cfg.MaxRunoutDistance {
			break
		}
		if lowSlope > 0 || tr.terrain.Slope.Get(nr, nc) < LowSlopeThreshold {
			lowSlope++
		}
		if float64(lowSlope) >= tr.cfg.MaxLowSlopeRunLength {
			break
		}
		t.Rows = append(t.Rows, nr)
		t.Cols = append(t.Cols, nc)
		t.TravelAngles = append(t.TravelAngles, math.Atan((z0-elev.Get(nr, nc))/dist)*180/math.Pi)
		units += d
		r, c = nr, nc
	}
	if len(t.Rows) == 1 {
		return nil
	}
	t.Runout = tr.runout.Survival(len(t.Rows))
	return t
}
