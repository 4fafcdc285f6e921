package texture

import (
	"fmt"

	"radiomica/pkg/discretize"
)

// zone is one connected same-gray-level region.
type zone struct {
	level  int
	size   int
	voxels []int // flat indices, kept for distance-zone keying
}

// labelZones finds connected same-level regions within a z range using an
// explicit worklist flood fill, so large volumes cannot exhaust the call
// stack.
func labelZones(d *discretize.Discrete, z0, z1 int, conn Connectivity, twoD bool) []zone {
	dims := d.Dims
	offs := neighborOffsets(conn, twoD)
	visited := make([]bool, dims.Count())
	var zones []zone
	var stack []int

	for z := z0; z < z1; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				seed := dims.Index(x, y, z)
				level := d.Levels[seed]
				if level < 0 || visited[seed] {
					continue
				}
				zn := zone{level: level}
				visited[seed] = true
				stack = append(stack[:0], seed)
				for len(stack) > 0 {
					cur := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					zn.size++
					zn.voxels = append(zn.voxels, cur)
					cx, cy, cz := dims.Coords(cur)
					for _, o := range offs {
						nx, ny, nz := cx+o[0], cy+o[1], cz+o[2]
						if nx < 0 || nx >= dims.X || ny < 0 || ny >= dims.Y || nz < z0 || nz >= z1 {
							continue
						}
						ni := dims.Index(nx, ny, nz)
						if visited[ni] || d.Levels[ni] != level {
							continue
						}
						visited[ni] = true
						stack = append(stack, ni)
					}
				}
				zones = append(zones, zn)
			}
		}
	}
	return zones
}

// szMatrix is the shared count structure of the size-zone and distance-zone
// families: gray level against a positive integer key (zone size or zone
// distance). Counts are kept sparse since zone sizes can reach the ROI
// voxel count.
type szMatrix struct {
	c      map[[2]int]float64 // key: {level, size or distance}
	ng     int
	maxKey int
	nv     int
}

func newSZMatrix(ng, nv int) *szMatrix {
	return &szMatrix{c: make(map[[2]int]float64), ng: ng, nv: nv}
}

func (m *szMatrix) addEntry(level, key int) {
	m.c[[2]int{level, key}]++
	if key > m.maxKey {
		m.maxKey = key
	}
}

func (m *szMatrix) add(o *szMatrix) {
	for k, v := range o.c {
		m.c[k] += v
		if k[1] > m.maxKey {
			m.maxKey = k[1]
		}
	}
}

func (m *szMatrix) total() float64 {
	var t float64
	for _, v := range m.c {
		t += v
	}
	return t
}

// GLSZMFeatures computes the size-zone feature set. Zones are connected
// same-gray-level regions under the configured connectivity; 2D scopes use
// the in-plane restriction of that connectivity.
func GLSZMFeatures(d *discretize.Discrete, conn Connectivity, agg Aggregation) (map[string]float64, error) {
	if err := checkInput(d); err != nil {
		return nil, err
	}
	if !conn.Valid() {
		return nil, fmt.Errorf("texture: invalid connectivity %d", int(conn))
	}

	var mats []*szMatrix
	for _, zr := range sliceRange(d, agg.is2D()) {
		m := newSZMatrix(d.Ng, validVoxels(d, zr[0], zr[1]))
		for _, zn := range labelZones(d, zr[0], zr[1], conn, agg.is2D()) {
			m.addEntry(zn.level, zn.size)
		}
		mats = append(mats, m)
	}
	return reduceSZ(mats, agg, "glszm", "zone")
}

// reduceSZ applies the aggregation policy over size/distance matrices and
// renders the feature names of the family.
func reduceSZ(mats []*szMatrix, agg Aggregation, family, kind string) (map[string]float64, error) {
	if agg == Slice2DAveraged {
		var maps []map[string]float64
		for _, m := range mats {
			if m.total() == 0 {
				continue
			}
			maps = append(maps, szFeatureMap(m, family, kind))
		}
		if len(maps) == 0 {
			return nil, &InsufficientDataError{Detail: "no zones in scope"}
		}
		return averageMaps(maps), nil
	}

	merged := newSZMatrix(mats[0].ng, 0)
	for _, m := range mats {
		merged.add(m)
		merged.nv += m.nv
	}
	if merged.total() == 0 {
		return nil, &InsufficientDataError{Detail: "no zones in scope"}
	}
	return szFeatureMap(merged, family, kind), nil
}

// szFeatureMap reduces a size-zone-shaped matrix. The same formula set
// serves GLSZM (key = zone size) and GLDZM (key = zone distance), with the
// family's conventional feature names.
func szFeatureMap(m *szMatrix, family, kind string) map[string]float64 {
	ns := m.total()

	rowSum := make(map[int]float64)
	colSum := make(map[int]float64)
	for k, v := range m.c {
		rowSum[k[0]] += v
		colSum[k[1]] += v
	}

	var (
		smallEmph, largeEmph, lowGL, highGL float64
		slge, shge, llge, lhge              float64
		glnu, keyNU                         float64
		muG, muK, ent                       float64
	)
	for lvl, v := range rowSum {
		g := float64(lvl + 1)
		lowGL += v / (g * g)
		highGL += v * g * g
		glnu += v * v
	}
	for key, v := range colSum {
		s := float64(key)
		smallEmph += v / (s * s)
		largeEmph += v * s * s
		keyNU += v * v
	}
	for k, v := range m.c {
		g := float64(k[0] + 1)
		s := float64(k[1])
		p := v / ns
		slge += v / (g * g * s * s)
		shge += v * g * g / (s * s)
		llge += v * s * s / (g * g)
		lhge += v * g * g * s * s
		muG += g * p
		muK += s * p
		ent -= plog2p(p)
	}
	var glVar, keyVar float64
	for k, v := range m.c {
		g := float64(k[0] + 1)
		s := float64(k[1])
		p := v / ns
		glVar += (g - muG) * (g - muG) * p
		keyVar += (s - muK) * (s - muK) * p
	}

	pfx := family + "_"
	var small, large, keyName string
	if kind == "zone" {
		small, large, keyName = "small_zone", "large_zone", "zone_size"
	} else {
		small, large, keyName = "small_distance", "large_distance", "zone_distance"
	}

	f := map[string]float64{
		pfx + small + "_emphasis":                    smallEmph / ns,
		pfx + large + "_emphasis":                    largeEmph / ns,
		pfx + "low_grey_level_zone_emphasis":         lowGL / ns,
		pfx + "high_grey_level_zone_emphasis":        highGL / ns,
		pfx + small + "_low_grey_level_emphasis":     slge / ns,
		pfx + small + "_high_grey_level_emphasis":    shge / ns,
		pfx + large + "_low_grey_level_emphasis":     llge / ns,
		pfx + large + "_high_grey_level_emphasis":    lhge / ns,
		pfx + "grey_level_non_uniformity":            glnu / ns,
		pfx + "grey_level_non_uniformity_normalized": glnu / (ns * ns),
		pfx + keyName + "_non_uniformity":            keyNU / ns,
		pfx + keyName + "_non_uniformity_normalized": keyNU / (ns * ns),
		pfx + "grey_level_variance":                  glVar,
		pfx + keyName + "_variance":                  keyVar,
		pfx + keyName + "_entropy":                   ent,
	}
	if m.nv > 0 {
		f[pfx+"zone_percentage"] = ns / float64(m.nv)
	} else {
		f[pfx+"zone_percentage"] = 0
	}
	return f
}
