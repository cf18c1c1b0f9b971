package preprocess

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

// StratifiedSplit partitions table into train and test so each class of
// target keeps its proportion. The total test size is ceil(n * testFraction)
// and per-class sizes are rounded with the largest-remainder rule.
func StratifiedSplit(table *dataset.Table, target string, testFraction float64, seed int64) (train, test *dataset.Table, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}
	labels, ok := table.Column(target)
	if !ok {
		return nil, nil, fmt.Errorf("target column %s not found", target)
	}

	classes, members := groupByClass(labels)
	n := table.Len()
	for _, c := range classes {
		if len(members[c]) < 2 {
			return nil, nil, fmt.Errorf("class %q of %s has %d rows, need at least 2", c, target, len(members[c]))
		}
	}

	totalTest := int(math.Ceil(float64(n)*testFraction - 1e-9))
	if totalTest < len(classes) {
		return nil, nil, fmt.Errorf("test size %d is smaller than the number of classes %d", totalTest, len(classes))
	}
	if n-totalTest < len(classes) {
		return nil, nil, fmt.Errorf("train size %d is smaller than the number of classes %d", n-totalTest, len(classes))
	}

	alloc := allocate(classes, members, totalTest, testFraction)

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, c := range classes {
		idx := members[c]
		shuffled := make([]int, len(idx))
		for i, p := range rng.Perm(len(idx)) {
			shuffled[i] = idx[p]
		}
		testIdx = append(testIdx, shuffled[:alloc[c]]...)
		trainIdx = append(trainIdx, shuffled[alloc[c]:]...)
	}
	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	return table.Take(trainIdx), table.Take(testIdx), nil
}

// groupByClass returns the sorted class labels and the row indices of each
func groupByClass(labels *dataset.Series) ([]string, map[string][]int) {
	members := make(map[string][]int)
	for i := 0; i < labels.Len(); i++ {
		key := labels.Text(i)
		members[key] = append(members[key], i)
	}
	classes := make([]string, 0, len(members))
	for c := range members {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes, members
}

// allocate assigns floor(n_c * f) test rows per class, then hands the
// remaining rows to the classes with the largest fractional parts. Each
// class keeps at least one training row.
func allocate(classes []string, members map[string][]int, totalTest int, f float64) map[string]int {
	type share struct {
		class     string
		remainder float64
	}

	alloc := make(map[string]int, len(classes))
	shares := make([]share, len(classes))
	assigned := 0
	for i, c := range classes {
		ideal := float64(len(members[c])) * f
		base := int(math.Floor(ideal))
		if base > len(members[c])-1 {
			base = len(members[c]) - 1
		}
		alloc[c] = base
		assigned += base
		shares[i] = share{class: c, remainder: ideal - float64(base)}
	}

	sort.SliceStable(shares, func(i, j int) bool { return shares[i].remainder > shares[j].remainder })
	for assigned < totalTest {
		progressed := false
		for _, s := range shares {
			if assigned == totalTest {
				break
			}
			if alloc[s.class] < len(members[s.class])-1 {
				alloc[s.class]++
				assigned++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return alloc
}

// Labels extracts a 0/1 target column
func Labels(table *dataset.Table, target string) ([]float64, error) {
	y, err := table.Floats(target)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", target, err)
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("target %s row %d: expected 0 or 1, got %v", target, i, v)
		}
	}
	return y, nil
}
