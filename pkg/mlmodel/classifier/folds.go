package classifier

import (
	"fmt"
	"math/rand"
)

// StratifiedFolds assigns row indices to k folds so each fold keeps the
// class proportions of y. Rows of each class are dealt round-robin, after
// shuffling when rng is non-nil.
func StratifiedFolds(y []float64, k int, rng *rand.Rand) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}

	var byClass [2][]int
	for i, v := range y {
		c := 0
		if v == 1 {
			c = 1
		}
		byClass[c] = append(byClass[c], i)
	}
	for c, members := range byClass {
		if len(members) < k {
			return nil, fmt.Errorf("class %d has %d rows, fewer than %d folds", c, len(members), k)
		}
	}

	folds := make([][]int, k)
	offset := 0
	for _, members := range byClass {
		order := members
		if rng != nil {
			order = make([]int, len(members))
			for i, p := range rng.Perm(len(members)) {
				order[i] = members[p]
			}
		}
		for j, idx := range order {
			f := (offset + j) % k
			folds[f] = append(folds[f], idx)
		}
		// Continue dealing where the previous class stopped so fold sizes stay balanced
		offset = (offset + len(order)) % k
	}
	return folds, nil
}

// FoldSplit returns the training and validation indices for fold f
func FoldSplit(folds [][]int, f int) (train, valid []int) {
	for i, fold := range folds {
		if i == f {
			valid = append(valid, fold...)
		} else {
			train = append(train, fold...)
		}
	}
	return train, valid
}

// Rows gathers the rows and labels at idx
func Rows(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for j, i := range idx {
		xs[j] = X[i]
		ys[j] = y[i]
	}
	return xs, ys
}
