// Package pointcloud defines a 3D point cloud and the preprocessing
// operations the room pipeline runs on one.
//
// The implementation is a flat arena of points addressed by integer index.
// Indices into a given Cloud are stable for its lifetime; filtering
// operations build a new Cloud rather than reordering the old one, so index
// sets recorded against a cloud (plane inliers, cluster members) stay valid.
package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNoPoints is returned when a loaded or derived point cloud has no points.
var ErrNoPoints = errors.New("point cloud is empty")

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor   bool
	HasNormals bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}
	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
}

// BoundingBox is the axis-aligned box enclosing all points seen so far.
type BoundingBox struct {
	Min r3.Vector
	Max r3.Vector
}

// Extents returns the edge lengths of the box along each axis.
func (bb BoundingBox) Extents() r3.Vector {
	return bb.Max.Sub(bb.Min)
}

// Center returns the center of the box.
func (bb BoundingBox) Center() r3.Vector {
	return bb.Min.Add(bb.Max).Mul(0.5)
}

// Volume returns the volume of the box.
func (bb BoundingBox) Volume() float64 {
	e := bb.Extents()
	return e.X * e.Y * e.Z
}

// Cloud is a collection of 3D points with optional per-point normals and
// colors. The zero value is not usable; construct with New or NewWithPrealloc.
type Cloud struct {
	positions []r3.Vector
	normals   []r3.Vector
	colors    []color.NRGBA
	meta      MetaData
}

// New returns an empty Cloud.
func New() *Cloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty Cloud with capacity for size points.
func NewWithPrealloc(size int) *Cloud {
	return &Cloud{
		positions: make([]r3.Vector, 0, size),
		meta:      NewMetaData(),
	}
}

// Size returns the number of points in the cloud.
func (cloud *Cloud) Size() int {
	return len(cloud.positions)
}

// MetaData returns meta data about the cloud contents and bounds.
func (cloud *Cloud) MetaData() MetaData {
	return cloud.meta
}

// Append adds a point to the cloud. If the cloud carries colors or normals,
// the new point gets zero values for them.
func (cloud *Cloud) Append(p r3.Vector) {
	cloud.positions = append(cloud.positions, p)
	if cloud.meta.HasColor {
		cloud.colors = append(cloud.colors, color.NRGBA{})
	}
	if cloud.meta.HasNormals {
		cloud.normals = append(cloud.normals, r3.Vector{})
	}
	cloud.meta.Merge(p)
}

// AppendColored adds a point with a color. Earlier uncolored points get zero
// colors.
func (cloud *Cloud) AppendColored(p r3.Vector, c color.NRGBA) {
	if !cloud.meta.HasColor {
		cloud.colors = make([]color.NRGBA, len(cloud.positions))
		cloud.meta.HasColor = true
	}
	cloud.positions = append(cloud.positions, p)
	cloud.colors = append(cloud.colors, c)
	if cloud.meta.HasNormals {
		cloud.normals = append(cloud.normals, r3.Vector{})
	}
	cloud.meta.Merge(p)
}

// Position returns the position of point i.
func (cloud *Cloud) Position(i int) r3.Vector {
	return cloud.positions[i]
}

// Positions returns the backing position slice. Callers must not mutate it.
func (cloud *Cloud) Positions() []r3.Vector {
	return cloud.positions
}

// Normal returns the normal of point i, or the zero vector if the cloud has
// no normals.
func (cloud *Cloud) Normal(i int) r3.Vector {
	if !cloud.meta.HasNormals {
		return r3.Vector{}
	}
	return cloud.normals[i]
}

// SetNormals attaches one normal per point.
func (cloud *Cloud) SetNormals(normals []r3.Vector) error {
	if len(normals) != len(cloud.positions) {
		return errors.Errorf("have %d normals for %d points", len(normals), len(cloud.positions))
	}
	cloud.normals = normals
	cloud.meta.HasNormals = true
	return nil
}

// Color returns the color of point i, or the zero color if the cloud is not
// colored.
func (cloud *Cloud) Color(i int) color.NRGBA {
	if !cloud.meta.HasColor {
		return color.NRGBA{}
	}
	return cloud.colors[i]
}

// Iterate calls fn for every point until fn returns false.
func (cloud *Cloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range cloud.positions {
		if !fn(i, p) {
			return
		}
	}
}

// BoundingBox returns the axis-aligned bounding box of the cloud. An empty
// cloud yields a zero box.
func (cloud *Cloud) BoundingBox() BoundingBox {
	if cloud.Size() == 0 {
		return BoundingBox{}
	}
	return BoundingBox{
		Min: r3.Vector{X: cloud.meta.MinX, Y: cloud.meta.MinY, Z: cloud.meta.MinZ},
		Max: r3.Vector{X: cloud.meta.MaxX, Y: cloud.meta.MaxY, Z: cloud.meta.MaxZ},
	}
}

// Centroid returns the mean position of all points in the cloud.
func (cloud *Cloud) Centroid() r3.Vector {
	if cloud.Size() == 0 {
		return r3.Vector{}
	}
	sum := r3.Vector{}
	for _, p := range cloud.positions {
		sum = sum.Add(p)
	}
	return sum.Mul(1. / float64(cloud.Size()))
}

// Select returns a new cloud containing the points at the given indices, in
// order, carrying over normals and colors.
func (cloud *Cloud) Select(indices []int) *Cloud {
	out := NewWithPrealloc(len(indices))
	for _, i := range indices {
		if cloud.meta.HasColor {
			out.AppendColored(cloud.positions[i], cloud.colors[i])
		} else {
			out.Append(cloud.positions[i])
		}
	}
	if cloud.meta.HasNormals {
		normals := make([]r3.Vector, 0, len(indices))
		for _, i := range indices {
			normals = append(normals, cloud.normals[i])
		}
		// lengths match by construction
		if err := out.SetNormals(normals); err != nil {
			panic(err)
		}
	}
	return out
}

// Without returns a new cloud with the points at the given indices removed.
func (cloud *Cloud) Without(indices []int) *Cloud {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	keep := make([]int, 0, cloud.Size()-len(drop))
	for i := 0; i < cloud.Size(); i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return cloud.Select(keep)
}
