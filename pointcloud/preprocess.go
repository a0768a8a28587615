package pointcloud

import (
	"image/color"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// VoxelCoords stores voxel coordinates in voxel grid axes.
type VoxelCoords struct {
	I, J, K int64
}

// GetVoxelCoordinates returns the voxel coordinates of a point, given the
// minimum corner of the cloud and the voxel edge length.
func GetVoxelCoordinates(pt, ptMin r3.Vector, voxelSize float64) VoxelCoords {
	u := pt.Sub(ptMin).Mul(1. / voxelSize)
	return VoxelCoords{I: int64(u.X), J: int64(u.Y), K: int64(u.Z)}
}

// RemoveStatisticalOutliers filters out points whose mean distance to their
// numNeighbors nearest neighbours exceeds the global mean of those distances
// by more than stdRatio standard deviations. Clouds too small to have
// neighbours are returned unchanged.
func RemoveStatisticalOutliers(cloud *Cloud, numNeighbors int, stdRatio float64) *Cloud {
	n := cloud.Size()
	if n <= 2 || numNeighbors < 1 {
		return cloud
	}
	k := numNeighbors
	if k > n-1 {
		k = n - 1
	}

	tree := NewKDTree(cloud)
	meanDists := make([]float64, n)
	for i := 0; i < n; i++ {
		indices, dists := tree.KNN(cloud.Position(i), k+1)
		sum := 0.0
		count := 0
		for j, idx := range indices {
			if idx == i {
				continue
			}
			sum += dists[j]
			count++
		}
		if count > 0 {
			meanDists[i] = sum / float64(count)
		}
	}

	mean, stddev := stat.MeanStdDev(meanDists, nil)
	threshold := mean + stdRatio*stddev

	keep := make([]int, 0, n)
	for i, d := range meanDists {
		if d <= threshold {
			keep = append(keep, i)
		}
	}
	return cloud.Select(keep)
}

// VoxelDownsample buckets the cloud into cubic voxels of the given edge
// length and replaces each occupied voxel's points with their centroid.
// Colors are averaged per voxel; normals are dropped (estimate them after
// downsampling). Output ordering does not follow input ordering.
func VoxelDownsample(cloud *Cloud, voxelSize float64) *Cloud {
	if voxelSize <= 0 || cloud.Size() == 0 {
		return cloud
	}
	meta := cloud.MetaData()
	ptMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}

	type accum struct {
		sum     r3.Vector
		r, g, b int
		count   int
	}
	grid := make(map[VoxelCoords]*accum)
	for i := 0; i < cloud.Size(); i++ {
		p := cloud.Position(i)
		coords := GetVoxelCoordinates(p, ptMin, voxelSize)
		vox, ok := grid[coords]
		if !ok {
			vox = &accum{}
			grid[coords] = vox
		}
		vox.sum = vox.sum.Add(p)
		if meta.HasColor {
			c := cloud.Color(i)
			vox.r += int(c.R)
			vox.g += int(c.G)
			vox.b += int(c.B)
		}
		vox.count++
	}

	// deterministic output ordering
	keys := make([]VoxelCoords, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.I != b.I {
			return a.I < b.I
		}
		if a.J != b.J {
			return a.J < b.J
		}
		return a.K < b.K
	})

	out := NewWithPrealloc(len(keys))
	for _, k := range keys {
		vox := grid[k]
		center := vox.sum.Mul(1. / float64(vox.count))
		if meta.HasColor {
			out.AppendColored(center, averageColor(vox.r, vox.g, vox.b, vox.count))
		} else {
			out.Append(center)
		}
	}
	return out
}

// EstimateNormals attaches a unit surface normal to every point, estimated
// from the neighbourhood within the given radius capped at maxNeighbors
// points. Normals are oriented to have a non-negative vertical component.
func EstimateNormals(cloud *Cloud, radius float64, maxNeighbors int) error {
	n := cloud.Size()
	if n == 0 {
		return cloud.SetNormals(nil)
	}
	tree := NewKDTree(cloud)
	normals := make([]r3.Vector, n)
	hood := make([]r3.Vector, 0, maxNeighbors+1)
	for i := 0; i < n; i++ {
		p := cloud.Position(i)
		indices, dists := tree.KNN(p, maxNeighbors+1)
		hood = hood[:0]
		for j, idx := range indices {
			if dists[j] > radius {
				break
			}
			hood = append(hood, cloud.Position(idx))
		}
		normals[i] = estimateNormalFromPoints(hood)
	}
	return cloud.SetNormals(normals)
}

// estimateNormalFromPoints returns the unit normal of the best-fit plane
// through the points: the eigenvector of the neighbourhood covariance with
// the smallest eigenvalue. Degenerate neighbourhoods default to vertical.
func estimateNormalFromPoints(points []r3.Vector) r3.Vector {
	up := r3.Vector{Z: 1}
	if len(points) < 3 {
		return up
	}
	centroid := r3.Vector{}
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1. / float64(len(points)))

	var xx, xy, xz, yy, yz, zz float64
	for _, p := range points {
		d := p.Sub(centroid)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}
	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return up
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// eigenvalues come out in ascending order; column 0 spans the thinnest
	// direction of the neighbourhood
	normal := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if normal.Norm() == 0 {
		return up
	}
	normal = normal.Normalize()
	if normal.Z < 0 {
		normal = normal.Mul(-1)
	}
	return normal
}

func averageColor(r, g, b, count int) color.NRGBA {
	return color.NRGBA{
		R: uint8(r / count),
		G: uint8(g / count),
		B: uint8(b / count),
		A: 255,
	}
}
