package strategystore

import (
	"math"
	"sort"
)

// No ecosystem Go k-means/scikit-equivalent package appears anywhere in the
// example pack, so MinMax scaling and k-means run directly on plain
// []float64 vectors here, mirroring the precedent the teacher itself sets
// in internal/regime/detector.go for its own from-scratch HMM math.

// minMaxNormalize scales every column of data independently into [0, 1],
// matching sklearn.preprocessing.MinMaxScaler's fit_transform.
func minMaxNormalize(data [][]float64) [][]float64 {
	if len(data) == 0 {
		return data
	}
	dims := len(data[0])
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	for d := 0; d < dims; d++ {
		mins[d] = math.Inf(1)
		maxs[d] = math.Inf(-1)
	}
	for _, row := range data {
		for d, v := range row {
			if v < mins[d] {
				mins[d] = v
			}
			if v > maxs[d] {
				maxs[d] = v
			}
		}
	}

	out := make([][]float64, len(data))
	for i, row := range data {
		scaled := make([]float64, dims)
		for d, v := range row {
			span := maxs[d] - mins[d]
			if span == 0 {
				scaled[d] = 0
				continue
			}
			scaled[d] = (v - mins[d]) / span
		}
		out[i] = scaled
	}
	return out
}

// kMeans runs Lloyd's algorithm to convergence (or maxIterations) and
// returns each row's assigned cluster index. Centroids are seeded
// deterministically from the data itself (rows spaced evenly through the
// data sorted by their first coordinate) so results are reproducible
// without an injected RNG, unlike sklearn's randomized k-means++ default.
func kMeans(data [][]float64, k int) []int {
	n := len(data)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return data[order[i]][0] < data[order[j]][0] })

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		idx := order[c*(n-1)/maxInt(k-1, 1)]
		centroids[c] = append([]float64(nil), data[idx]...)
	}

	assignments := make([]int, n)
	const maxIterations = 100
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, row := range data {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				dist := sqDistance(row, centroid)
				if dist < bestDist {
					best, bestDist = c, dist
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, len(data[0]))
		}
		for i, row := range data {
			c := assignments[i]
			counts[c]++
			for d, v := range row {
				sums[c][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return assignments
}

func sqDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// updateClusters recomputes every stored entry's cluster id from the full
// current set of performance vectors. Callers must hold s.mu.
func (s *Store) updateClusters() {
	keys := make([]Key, 0, len(s.entries))
	matrix := make([][]float64, 0, len(s.entries))
	for k, e := range s.entries {
		keys = append(keys, k)
		v := e.vector
		matrix = append(matrix, []float64{v[0], v[1], v[2], v[3]})
	}

	normalized := minMaxNormalize(matrix)
	clusters := kMeans(normalized, s.nClusters)
	for i, k := range keys {
		s.entries[k].clusterID = clusters[i]
	}
}
