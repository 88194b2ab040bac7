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

// Package pola traces landslide debris trails over a terrain grid and
// propagates rain-triggered landslide probabilities along those trails to
// estimate, for every grid cell, the probability of being affected by a
// landslide and the resulting fatality rate.
package pola

import "errors"

// Version gives the version number.
const Version = "1.2.0"

var (
	// ErrMalformedTrail is returned when a trail's row, column, travel angle
	// and runout probability arrays do not agree in length, or when a
	// catalog partition cannot be decoded. The trail catalog needs to
	// be regenerated when this happens.
	ErrMalformedTrail = errors.New("pola: malformed landslide trail")

	// ErrInvalidProbability is returned when a probability input lies outside
	// of [0, 1].
	ErrInvalidProbability = errors.New("pola: probability outside of [0, 1]")
)
