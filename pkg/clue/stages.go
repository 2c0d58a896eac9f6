package clue

import (
	"sync/atomic"

	"github.com/hep-clue/clue/pkg/bvec"
)

// stageFill assigns each point to its tile.
func (e *Engine) stageFill(n int) {
	e.dispatch(n, func(i int) {
		if !e.tiles.Fill(e.buf.Coords(i), uint32(i)) {
			atomic.AddUint64(&e.sat.Tiles, 1)
		}
	})
}

// stageDensity computes each point's local density as the weighted sum
// of its neighbors within DC. Self-contribution (j == i) is included.
func (e *Engine) stageDensity(n int) {
	dc := e.params.DC
	dc2 := dc * dc
	k := e.params.Kernel
	grid := e.preset.Grid
	e.dispatch(n, func(i int) {
		var rho float32
		coordsI := e.buf.Coords(i)
		e.tiles.Visit(coordsI, dc, func(j uint32) {
			d2 := grid.SquaredDistance(coordsI, e.buf.Coords(int(j)))
			if d2 <= dc2 {
				rho += k.Weight(sqrtf32(d2)) * e.buf.Weight(int(j))
			}
		})
		e.buf.SetRho(i, rho)
	})
}

// stageNearestHigher finds, for each point, the closest point of
// strictly greater density within outlier_factor*DC. The tie-break
// rho[j]==rho[i]>0 && j>i keeps the nh graph acyclic and must not be
// relaxed.
func (e *Engine) stageNearestHigher(n int) {
	dm := e.params.OutlierFactor * e.params.DC
	dm2 := dm * dm
	grid := e.preset.Grid
	e.dispatch(n, func(i int) {
		delta := positiveInfinity
		nh := -1
		rhoI := e.buf.Rho(i)
		coordsI := e.buf.Coords(i)

		e.tiles.Visit(coordsI, dm, func(j uint32) {
			jj := int(j)
			rhoJ := e.buf.Rho(jj)
			higher := rhoJ > rhoI || (rhoJ == rhoI && rhoJ > 0 && jj > i)
			if !higher {
				return
			}
			d2 := grid.SquaredDistance(coordsI, e.buf.Coords(jj))
			if d2 <= dm2 && d2 < delta {
				delta = d2
				nh = jj
			}
		})

		if nh == -1 {
			e.buf.SetDelta(i, positiveInfinity)
		} else {
			e.buf.SetDelta(i, sqrtf32(delta))
		}
		e.buf.SetNearestHigher(i, nh)
	})
}

// stageClassify splits points into seeds, followers and outliers, and
// links followers into their nearest-higher's adjacency list.
func (e *Engine) stageClassify(n int) {
	dc := e.params.DC
	dm := e.params.OutlierFactor * e.params.DC
	rhoc := e.params.RhoC
	e.dispatch(n, func(i int) {
		e.buf.SetClusterIndex(i, -1)
		delta := e.buf.Delta(i)
		rho := e.buf.Rho(i)

		isSeed := delta > dc && rho >= rhoc
		isOutlier := delta > dm && rho < rhoc

		if isSeed {
			e.buf.SetIsSeed(i, true)
			if e.seeds.PushBack(int32(i)) == bvec.Overflow {
				atomic.AddUint64(&e.sat.Seeds, 1)
			}
			return
		}

		e.buf.SetIsSeed(i, false)
		if !isOutlier {
			nh := e.buf.NearestHigher(i)
			if nh >= 0 {
				if e.followers[nh].PushBack(int32(i)) == bvec.Overflow {
					atomic.AddUint64(&e.sat.Followers, 1)
				}
			}
		}
	})
}

// maxDFSStack is the hard cap on follower-chain depth during cluster
// assignment. Deeper chains drop their tail and count a saturation.
const maxDFSStack = 256

// stageAssign propagates each seed's cluster id through its follower
// tree via a bounded-depth iterative DFS, one worker per seed.
func (e *Engine) stageAssign() {
	nSeeds := e.seeds.Size()
	e.dispatch(nSeeds, func(idx int) {
		seed := int(e.seeds.At(idx))
		e.buf.SetClusterIndex(seed, idx)

		var stack [maxDFSStack]int
		size := 0
		stack[size] = seed
		size++

		for size > 0 {
			node := stack[size-1]
			size--
			clusterID := e.buf.ClusterIndex(node)

			f := e.followers[node]
			fn := f.Size()
			for j := 0; j < fn; j++ {
				follower := int(f.At(j))
				e.buf.SetClusterIndex(follower, clusterID)
				if size < maxDFSStack {
					stack[size] = follower
					size++
				} else {
					atomic.AddUint64(&e.sat.DFSStack, 1)
				}
			}
		}
	})
}
