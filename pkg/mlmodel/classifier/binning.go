package classifier

import (
	"sort"
)

// maxBins caps the number of candidate thresholds per feature
const maxBins = 64

// binner discretises each feature into at most maxBins ordered bins. Bin b
// holds values v with edges[b-1] < v <= edges[b], so splitting after bin k
// is the rule x <= edges[k].
type binner struct {
	edges [][]float64
	// codes is column-major: codes[feature][row]
	codes [][]uint8
}

func newBinner(X [][]float64) *binner {
	n, p := len(X), len(X[0])
	b := &binner{edges: make([][]float64, p), codes: make([][]uint8, p)}

	column := make([]float64, n)
	for f := 0; f < p; f++ {
		for i := range X {
			column[i] = X[i][f]
		}
		b.edges[f] = featureEdges(column)

		codes := make([]uint8, n)
		for i, v := range column {
			codes[i] = uint8(sort.SearchFloat64s(b.edges[f], v))
		}
		b.codes[f] = codes
	}
	return b
}

// featureEdges returns split thresholds: midpoints between consecutive
// distinct values, thinned to quantiles when there are too many
func featureEdges(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	if len(unique) <= maxBins {
		edges := make([]float64, len(unique)-1)
		for i := range edges {
			edges[i] = (unique[i] + unique[i+1]) / 2
		}
		return edges
	}

	// Quantile edges over the full (non-unique) distribution
	edges := make([]float64, 0, maxBins-1)
	for q := 1; q < maxBins; q++ {
		pos := q * len(sorted) / maxBins
		hi := sorted[pos]
		// Place the edge between hi and the next smaller distinct value
		j := sort.SearchFloat64s(unique, hi)
		if j == 0 {
			continue
		}
		edge := (unique[j-1] + unique[j]) / 2
		if len(edges) == 0 || edge > edges[len(edges)-1] {
			edges = append(edges, edge)
		}
	}
	return edges
}

func (b *binner) numBins(f int) int {
	return len(b.edges[f]) + 1
}
