package texture

import (
	"fmt"

	"radiomica/pkg/discretize"
)

// distanceMap computes, for every ROI voxel, the city-block distance to the
// nearest voxel outside the ROI, counting the voxel itself: voxels on the
// ROI border have distance 1. The map is a multi-source breadth-first fill
// seeded from every non-ROI voxel and from the virtual border outside the
// volume; 2D scopes measure distance in-plane only.
//
// roi marks the region the distance refers to. Texture exclusion does not
// shrink it: the distance is measured against the morphological ROI, which
// may include voxels that lost their gray level during re-segmentation.
func distanceMap(roi []bool, d *discretize.Discrete, z0, z1 int, twoD bool) []int {
	dims := d.Dims
	dist := make([]int, dims.Count())
	queue := make([]int, 0, dims.Count())

	const unvisited = -1
	for i := range dist {
		dist[i] = unvisited
	}

	// Seed: ROI voxels adjacent (6-connected, in-scope) to a non-ROI voxel
	// or to the volume border are at distance 1.
	steps := [][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	if twoD {
		steps = steps[:4]
	}
	for z := z0; z < z1; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				i := dims.Index(x, y, z)
				if !roi[i] {
					dist[i] = 0
					continue
				}
				for _, s := range steps {
					nx, ny, nz := x+s[0], y+s[1], z+s[2]
					outside := nx < 0 || nx >= dims.X || ny < 0 || ny >= dims.Y || nz < z0 || nz >= z1
					if outside || !roi[dims.Index(nx, ny, nz)] {
						dist[i] = 1
						queue = append(queue, i)
						break
					}
				}
			}
		}
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		cx, cy, cz := dims.Coords(cur)
		for _, s := range steps {
			nx, ny, nz := cx+s[0], cy+s[1], cz+s[2]
			if nx < 0 || nx >= dims.X || ny < 0 || ny >= dims.Y || nz < z0 || nz >= z1 {
				continue
			}
			ni := dims.Index(nx, ny, nz)
			if dist[ni] != unvisited {
				continue
			}
			dist[ni] = dist[cur] + 1
			queue = append(queue, ni)
		}
	}
	return dist
}

// GLDZMFeatures computes the distance-zone feature set. Zones are the same
// connected regions as GLSZM but keyed by the minimum distance of the zone
// to the ROI boundary. roi is the morphological mask the distances refer
// to; pass nil to derive it from the valid gray levels.
func GLDZMFeatures(d *discretize.Discrete, conn Connectivity, agg Aggregation, roi []bool) (map[string]float64, error) {
	if err := checkInput(d); err != nil {
		return nil, err
	}
	if !conn.Valid() {
		return nil, fmt.Errorf("texture: invalid connectivity %d", int(conn))
	}
	if roi == nil {
		roi = make([]bool, d.Dims.Count())
		for i, l := range d.Levels {
			roi[i] = l >= 0
		}
	} else if len(roi) != d.Dims.Count() {
		return nil, fmt.Errorf("texture: ROI length %d does not match grid %+v", len(roi), d.Dims)
	}

	var mats []*szMatrix
	for _, zr := range sliceRange(d, agg.is2D()) {
		dist := distanceMap(roi, d, zr[0], zr[1], agg.is2D())
		m := newSZMatrix(d.Ng, validVoxels(d, zr[0], zr[1]))
		for _, zn := range labelZones(d, zr[0], zr[1], conn, agg.is2D()) {
			minDist := 0
			for _, vi := range zn.voxels {
				if dv := dist[vi]; minDist == 0 || (dv > 0 && dv < minDist) {
					minDist = dv
				}
			}
			if minDist <= 0 {
				// A zone fully outside the morphological ROI cannot occur
				// on consistent inputs; guard the matrix key anyway.
				minDist = 1
			}
			m.addEntry(zn.level, minDist)
		}
		mats = append(mats, m)
	}
	return reduceSZ(mats, agg, "gldzm", "distance")
}
