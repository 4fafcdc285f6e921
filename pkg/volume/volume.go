// Package volume provides the volumetric data model shared by every stage of
// the feature extraction pipeline: a 3D intensity array with physical voxel
// spacing, and a co-registered binary region-of-interest mask.
//
// Volumes are stored as 1D row-major arrays (X fastest, then Y, then Z) so
// that stage functions can iterate them with flat indices. All derived
// artifacts produced from a Volume/Mask pair are value objects without
// back-references, which keeps every pipeline stage referentially
// transparent.
package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Dims holds the grid dimensions of a volume in voxels.
type Dims struct {
	X, Y, Z int
}

// Count returns the total number of voxels on the grid.
func (d Dims) Count() int { return d.X * d.Y * d.Z }

// Spacing holds the physical voxel spacing in millimetres along each axis.
type Spacing struct {
	X, Y, Z float64
}

// Valid reports whether all spacing components are strictly positive.
func (s Spacing) Valid() bool { return s.X > 0 && s.Y > 0 && s.Z > 0 }

// GeometryError reports a spacing or shape mismatch detected before or
// during a pipeline stage.
type GeometryError struct {
	Op     string
	Detail string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry error in %s: %s", e.Op, e.Detail)
}

// Volume is a 3D intensity array with physical spacing and origin metadata.
// Data is row-major with X varying fastest.
type Volume struct {
	Data    []float64
	Dims    Dims
	Spacing Spacing
	Origin  [3]float64
}

// Mask is a 3D boolean array co-registered with a Volume.
type Mask struct {
	Data    []bool
	Dims    Dims
	Spacing Spacing
}

// NewVolume creates a volume on the given grid. When data is nil a zeroed
// array is allocated; otherwise its length must match the grid.
func NewVolume(dims Dims, spacing Spacing, data []float64) (*Volume, error) {
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, &GeometryError{Op: "NewVolume", Detail: fmt.Sprintf("non-positive dimensions %dx%dx%d", dims.X, dims.Y, dims.Z)}
	}
	if !spacing.Valid() {
		return nil, &GeometryError{Op: "NewVolume", Detail: fmt.Sprintf("non-positive spacing %+v", spacing)}
	}
	if data == nil {
		data = make([]float64, dims.Count())
	} else if len(data) != dims.Count() {
		return nil, &GeometryError{Op: "NewVolume", Detail: fmt.Sprintf("data length %d does not match %dx%dx%d", len(data), dims.X, dims.Y, dims.Z)}
	}
	return &Volume{Data: data, Dims: dims, Spacing: spacing}, nil
}

// NewMask creates a mask on the given grid. When data is nil an all-false
// array is allocated; otherwise its length must match the grid.
func NewMask(dims Dims, spacing Spacing, data []bool) (*Mask, error) {
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, &GeometryError{Op: "NewMask", Detail: fmt.Sprintf("non-positive dimensions %dx%dx%d", dims.X, dims.Y, dims.Z)}
	}
	if !spacing.Valid() {
		return nil, &GeometryError{Op: "NewMask", Detail: fmt.Sprintf("non-positive spacing %+v", spacing)}
	}
	if data == nil {
		data = make([]bool, dims.Count())
	} else if len(data) != dims.Count() {
		return nil, &GeometryError{Op: "NewMask", Detail: fmt.Sprintf("data length %d does not match %dx%dx%d", len(data), dims.X, dims.Y, dims.Z)}
	}
	return &Mask{Data: data, Dims: dims, Spacing: spacing}, nil
}

// Index converts voxel coordinates to a flat array index.
func (d Dims) Index(x, y, z int) int { return (z*d.Y+y)*d.X + x }

// Coords converts a flat array index back to voxel coordinates.
func (d Dims) Coords(i int) (x, y, z int) {
	x = i % d.X
	y = (i / d.X) % d.Y
	z = i / (d.X * d.Y)
	return
}

// Inside reports whether the voxel coordinates lie on the grid.
func (d Dims) Inside(x, y, z int) bool {
	return x >= 0 && x < d.X && y >= 0 && y < d.Y && z >= 0 && z < d.Z
}

// At returns the intensity at the given voxel coordinates.
func (v *Volume) At(x, y, z int) float64 { return v.Data[v.Dims.Index(x, y, z)] }

// Set stores an intensity at the given voxel coordinates.
func (v *Volume) Set(x, y, z int, val float64) { v.Data[v.Dims.Index(x, y, z)] = val }

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Dims: v.Dims, Spacing: v.Spacing, Origin: v.Origin}
}

// At returns the mask value at the given voxel coordinates.
func (m *Mask) At(x, y, z int) bool { return m.Data[m.Dims.Index(x, y, z)] }

// Set stores a mask value at the given voxel coordinates.
func (m *Mask) Set(x, y, z int, val bool) { m.Data[m.Dims.Index(x, y, z)] = val }

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	data := make([]bool, len(m.Data))
	copy(data, m.Data)
	return &Mask{Data: data, Dims: m.Dims, Spacing: m.Spacing}
}

// Count returns the number of voxels set in the mask.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether no voxel is set.
func (m *Mask) Empty() bool { return m.Count() == 0 }

// BoundingBox returns the inclusive voxel bounds of the masked region.
// ok is false when the mask is empty.
func (m *Mask) BoundingBox() (min, max [3]int, ok bool) {
	min = [3]int{m.Dims.X, m.Dims.Y, m.Dims.Z}
	max = [3]int{-1, -1, -1}
	for i, set := range m.Data {
		if !set {
			continue
		}
		x, y, z := m.Dims.Coords(i)
		if x < min[0] {
			min[0] = x
		}
		if y < min[1] {
			min[1] = y
		}
		if z < min[2] {
			min[2] = z
		}
		if x > max[0] {
			max[0] = x
		}
		if y > max[1] {
			max[1] = y
		}
		if z > max[2] {
			max[2] = z
		}
	}
	return min, max, max[0] >= 0
}

// Stats holds descriptive statistics of the masked intensities.
type Stats struct {
	Min, Max, Mean, Stdev float64
	Count                 int
}

// MaskedStats computes min/max/mean/stdev over the voxels selected by the
// mask. A GeometryError is returned when volume and mask grids differ.
func MaskedStats(v *Volume, m *Mask) (Stats, error) {
	if err := CheckGeometry(v, m); err != nil {
		return Stats{}, err
	}
	vals := MaskedValues(v, m)
	if len(vals) == 0 {
		return Stats{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), Stdev: math.NaN()}, nil
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1), Count: len(vals)}
	for _, x := range vals {
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	s.Mean, s.Stdev = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		s.Stdev = 0
	}
	return s, nil
}

// MaskedValues collects the intensities of all masked voxels in grid order.
func MaskedValues(v *Volume, m *Mask) []float64 {
	vals := make([]float64, 0, len(v.Data))
	for i, set := range m.Data {
		if set {
			vals = append(vals, v.Data[i])
		}
	}
	return vals
}

// CheckGeometry verifies that a volume and mask share the same grid and that
// both carry valid spacing. It returns a GeometryError describing the first
// mismatch found.
func CheckGeometry(v *Volume, m *Mask) error {
	if v.Dims != m.Dims {
		return &GeometryError{Op: "CheckGeometry", Detail: fmt.Sprintf("volume grid %+v differs from mask grid %+v", v.Dims, m.Dims)}
	}
	if !v.Spacing.Valid() {
		return &GeometryError{Op: "CheckGeometry", Detail: fmt.Sprintf("non-positive volume spacing %+v", v.Spacing)}
	}
	if !m.Spacing.Valid() {
		return &GeometryError{Op: "CheckGeometry", Detail: fmt.Sprintf("non-positive mask spacing %+v", m.Spacing)}
	}
	if math.Abs(v.Spacing.X-m.Spacing.X) > 1e-9 ||
		math.Abs(v.Spacing.Y-m.Spacing.Y) > 1e-9 ||
		math.Abs(v.Spacing.Z-m.Spacing.Z) > 1e-9 {
		return &GeometryError{Op: "CheckGeometry", Detail: fmt.Sprintf("volume spacing %+v differs from mask spacing %+v", v.Spacing, m.Spacing)}
	}
	return nil
}
