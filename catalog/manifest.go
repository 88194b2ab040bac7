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
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/pola"
	"github.com/spatialmodel/pola/cloud"
	"github.com/spatialmodel/pola/internal/hash"
)

// ManifestName is the name of the blob that describes a finished catalog.
const ManifestName = "manifest.toml"

// Manifest describes the inputs a catalog was built from.
type Manifest struct {
	Version       string
	Rows, Cols    int
	CellSize      float64
	VolumeClasses int
	Partitions    int
	Trails        int

	// Fingerprint identifies the terrain, runout model, trace limits and
	// partition index the catalog was built from.
	Fingerprint string
}

// Fingerprint returns a fingerprint of the inputs that determine the
// contents of a catalog.
func Fingerprint(tr *pola.Tracer, idx Index) string {
	t := tr.Terrain()
	r := tr.Runout()
	return hash.Hash(
		t.Elevation.Shape, t.Elevation.Elements, t.Slope.Elements, t.FlowDirection.Elements, t.CellSize,
		r.DistanceLower, r.DistanceUpper, r.Survival(len(r.DistanceLower)),
		tr.Config(), tr.PotentialCount(), idx,
	)
}

// ReadManifest reads the catalog manifest from b. It returns nil and no
// error if the catalog has no manifest.
func ReadManifest(ctx context.Context, b *cloud.Bucket) (*Manifest, error) {
	data, err := b.ReadAll(ctx, ManifestName)
	if cloud.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	m := new(Manifest)
	if _, err = toml.Decode(string(data), m); err != nil {
		return nil, fmt.Errorf("catalog: decoding manifest: %w", err)
	}
	return m, nil
}

func writeManifest(ctx context.Context, b *cloud.Bucket, m *Manifest) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("catalog: encoding manifest: %w", err)
	}
	return b.WriteAll(ctx, ManifestName, buf.Bytes())
}
