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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// GridDataVersion is the version of the netCDF grid file format.
const GridDataVersion = "1.0.0"

// GridFile is a set of named grids that share a row/column layout,
// stored as a netCDF file. Two dimensional variables have dimensions
// (y, x) and three dimensional variables have dimensions (class, y, x).
type GridFile struct {
	CellSize float64
	NoData   float64
	Vars     map[string]*sparse.DenseArray
}

// Var returns the named variable or an error if it is missing or does
// not have the given number of dimensions.
func (g *GridFile) Var(name string, ndims int) (*sparse.DenseArray, error) {
	v, ok := g.Vars[name]
	if !ok {
		return nil, fmt.Errorf("pola: grid file is missing variable `%s`", name)
	}
	if len(v.Shape) != ndims {
		return nil, fmt.Errorf("pola: grid variable `%s` has %d dimensions; want %d", name, len(v.Shape), ndims)
	}
	return v, nil
}

// ReadNetCDF reads a grid file.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*GridFile, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("pola: reading netcdf grid: %w", err)
	}
	o := &GridFile{Vars: make(map[string]*sparse.DenseArray)}
	if v, ok := f.Header.GetAttribute("", "cell_size").([]float64); ok && len(v) == 1 {
		o.CellSize = v[0]
	}
	if v, ok := f.Header.GetAttribute("", "nodata").([]float64); ok && len(v) == 1 {
		o.NoData = v[0]
	}
	for _, name := range f.Header.Variables() {
		dims := f.Header.Lengths(name)
		d := sparse.ZerosDense(dims...)
		r := f.Reader(name, nil, nil)
		buf := r.Zero(len(d.Elements))
		if _, err = r.Read(buf); err != nil {
			return nil, fmt.Errorf("pola: reading netcdf variable %s: %w", name, err)
		}
		switch t := buf.(type) {
		case []float64:
			copy(d.Elements, t)
		case []float32:
			for i, v := range t {
				d.Elements[i] = float64(v)
			}
		case []int32:
			for i, v := range t {
				d.Elements[i] = float64(v)
			}
		default:
			return nil, fmt.Errorf("pola: netcdf variable %s has unsupported type %T", name, buf)
		}
		o.Vars[name] = d
	}
	return o, nil
}

// ReadNetCDFFile reads a grid file from the local file system.
func ReadNetCDFFile(filename string) (*GridFile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("pola: %w", err)
	}
	defer f.Close()
	return ReadNetCDF(f)
}

// WriteNetCDF writes g to w. All variables must have the same number of
// rows and columns and all three dimensional variables must have the same
// number of classes.
func WriteNetCDF(w *os.File, g *GridFile) error {
	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(g.Vars))
	for n := range g.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("pola: no variables to write to netcdf file")
	}

	var ny, nx, nclass int
	for i, name := range names {
		s := g.Vars[name].Shape
		var y, x int
		switch len(s) {
		case 2:
			y, x = s[0], s[1]
		case 3:
			if nclass != 0 && nclass != s[0] {
				return fmt.Errorf("pola: netcdf variable %s has %d classes; want %d", name, s[0], nclass)
			}
			nclass = s[0]
			y, x = s[1], s[2]
		default:
			return fmt.Errorf("pola: netcdf variable %s has %d dimensions", name, len(s))
		}
		if i == 0 {
			ny, nx = y, x
		} else if y != ny || x != nx {
			return fmt.Errorf("pola: netcdf variable %s has shape %v; want [%d %d]", name, s, ny, nx)
		}
	}

	dims, lengths := []string{"y", "x"}, []int{ny, nx}
	if nclass > 0 {
		dims, lengths = append(dims, "class"), append(lengths, nclass)
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "comment", "PoLA grid data file")
	h.AddAttribute("", "cell_size", []float64{g.CellSize})
	h.AddAttribute("", "nodata", []float64{g.NoData})
	h.AddAttribute("", "data_version", GridDataVersion)
	for _, name := range names {
		if len(g.Vars[name].Shape) == 3 {
			h.AddVariable(name, []string{"class", "y", "x"}, []float64{0})
		} else {
			h.AddVariable(name, []string{"y", "x"}, []float64{0})
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("pola: creating netcdf file: %w", err)
	}
	for _, name := range names {
		if _, err = f.Writer(name, nil, nil).Write(g.Vars[name].Elements); err != nil {
			return fmt.Errorf("pola: writing variable %s to netcdf file: %w", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// WriteNetCDFFile creates filename and writes g to it.
func WriteNetCDFFile(filename string, g *GridFile) error {
	w, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("pola: %w", err)
	}
	if err = WriteNetCDF(w, g); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
