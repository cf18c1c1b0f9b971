package classifier

import (
	"math/rand"
	"sort"
)

// Node is one node of a flattened binary tree. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree is a binary decision tree stored as a node slice rooted at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Eval walks x down to a leaf and returns the leaf value
func (t *Tree) Eval(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Left < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// nodeStats accumulates per-row statistics over a node or histogram bin.
// For gini trees sum is the positive weight and weight the total weight;
// for gradient trees sum is the gradient and weight the split hessian.
type nodeStats struct {
	sum    float64
	weight float64
	hess   float64
	count  int
}

func (s *nodeStats) add(o nodeStats) {
	s.sum += o.sum
	s.weight += o.weight
	s.hess += o.hess
	s.count += o.count
}

func (s nodeStats) minus(o nodeStats) nodeStats {
	return nodeStats{s.sum - o.sum, s.weight - o.weight, s.hess - o.hess, s.count - o.count}
}

// criterion scores candidate splits and computes leaf values
type criterion interface {
	gain(parent, left, right nodeStats) float64
	leaf(s nodeStats) float64
	admissible(left, right nodeStats) bool
}

// giniCriterion grows classification trees on weighted gini impurity
type giniCriterion struct{}

func giniImpurity(s nodeStats) float64 {
	if s.weight <= 0 {
		return 0
	}
	// weight * 2p(1-p)
	return 2 * s.sum * (s.weight - s.sum) / s.weight
}

func (giniCriterion) gain(parent, left, right nodeStats) float64 {
	return giniImpurity(parent) - giniImpurity(left) - giniImpurity(right)
}

func (giniCriterion) leaf(s nodeStats) float64 {
	if s.weight <= 0 {
		return 0
	}
	return s.sum / s.weight
}

func (giniCriterion) admissible(left, right nodeStats) bool {
	return left.weight > 0 && right.weight > 0
}

// newtonCriterion grows regression trees on gradient statistics:
// split gain G_L²/(W_L+λ) + G_R²/(W_R+λ) − G²/(W+λ), leaf −G/(H+λ).
// With negateLeaf false the leaf is G/H, for residual-based boosting.
type newtonCriterion struct {
	lambda         float64
	minChildWeight float64
	negateLeaf     bool
}

func (c newtonCriterion) score(s nodeStats) float64 {
	return s.sum * s.sum / (s.weight + c.lambda)
}

func (c newtonCriterion) gain(parent, left, right nodeStats) float64 {
	return c.score(left) + c.score(right) - c.score(parent)
}

func (c newtonCriterion) leaf(s nodeStats) float64 {
	den := s.hess + c.lambda
	if den < 1e-150 {
		return 0
	}
	if c.negateLeaf {
		return -s.sum / den
	}
	return s.sum / den
}

func (c newtonCriterion) admissible(left, right nodeStats) bool {
	return left.weight >= c.minChildWeight && right.weight >= c.minChildWeight &&
		left.weight+c.lambda > 0 && right.weight+c.lambda > 0
}

// treeParams bounds tree growth
type treeParams struct {
	// maxDepth <= 0 grows until leaves are pure
	maxDepth       int
	minSamplesLeaf int
	// maxFeatures > 0 samples that many candidate features at every node
	maxFeatures int
}

// treeBuilder grows one tree over binned data
type treeBuilder struct {
	bins   *binner
	rows   []nodeStats
	crit   criterion
	params treeParams
	// features restricts candidates for the whole tree; nil means all
	features []int
	rng      *rand.Rand

	nodes []Node
	hist  []nodeStats
}

func growTree(bins *binner, rows []nodeStats, idx []int, crit criterion, params treeParams, features []int, rng *rand.Rand) *Tree {
	if features == nil {
		features = make([]int, len(bins.edges))
		for f := range features {
			features[f] = f
		}
	}
	b := &treeBuilder{
		bins:     bins,
		rows:     rows,
		crit:     crit,
		params:   params,
		features: features,
		rng:      rng,
		hist:     make([]nodeStats, maxBins),
	}
	work := append([]int(nil), idx...)
	b.build(work, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	var total nodeStats
	for _, i := range idx {
		total.add(b.rows[i])
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: b.crit.leaf(total)})

	if (b.params.maxDepth > 0 && depth >= b.params.maxDepth) || total.count < 2*max(1, b.params.minSamplesLeaf) {
		return self
	}

	bestGain := 1e-12
	bestFeature, bestBin := -1, -1
	for _, f := range b.candidates() {
		nb := b.bins.numBins(f)
		if nb < 2 {
			continue
		}
		hist := b.hist[:nb]
		for k := range hist {
			hist[k] = nodeStats{}
		}
		codes := b.bins.codes[f]
		for _, i := range idx {
			hist[codes[i]].add(b.rows[i])
		}

		var left nodeStats
		for k := 0; k < nb-1; k++ {
			left.add(hist[k])
			if left.count < max(1, b.params.minSamplesLeaf) {
				continue
			}
			right := total.minus(left)
			if right.count < max(1, b.params.minSamplesLeaf) {
				break
			}
			if !b.crit.admissible(left, right) {
				continue
			}
			if g := b.crit.gain(total, left, right); g > bestGain {
				bestGain, bestFeature, bestBin = g, f, k
			}
		}
	}
	if bestFeature < 0 {
		return self
	}

	// Partition idx in place: codes <= bestBin go left
	codes := b.bins.codes[bestFeature]
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		if int(codes[idx[lo]]) <= bestBin {
			lo++
		} else {
			idx[lo], idx[hi] = idx[hi], idx[lo]
			hi--
		}
	}

	b.nodes[self].Feature = bestFeature
	b.nodes[self].Threshold = b.bins.edges[bestFeature][bestBin]
	left := b.build(idx[:lo], depth+1)
	right := b.build(idx[lo:], depth+1)
	b.nodes[self].Left = left
	b.nodes[self].Right = right
	return self
}

// candidates returns the features considered at one node
func (b *treeBuilder) candidates() []int {
	k := b.params.maxFeatures
	if k <= 0 || k >= len(b.features) || b.rng == nil {
		return b.features
	}
	perm := b.rng.Perm(len(b.features))[:k]
	out := make([]int, k)
	for i, p := range perm {
		out[i] = b.features[p]
	}
	return out
}

// sampleFeatures draws a sorted subset of round(fraction * p) features, at least one
func sampleFeatures(p int, fraction float64, rng *rand.Rand) []int {
	if fraction >= 1 {
		return nil
	}
	k := int(fraction*float64(p) + 0.5)
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(p)[:k]
	out := append([]int(nil), perm...)
	sort.Ints(out)
	return out
}
