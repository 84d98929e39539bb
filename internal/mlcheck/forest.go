package mlcheck

import (
	"math/rand"
	"sort"
)

// ForestParams are the tree-ensemble hyperparameters. Seed fixes every
// random choice (bootstrap draws, feature subsets, fold assignment) so a
// re-run on identical inputs reproduces identical results.
type ForestParams struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Folds    int
	Seed     int64
}

// node is one split or leaf of a regression tree
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// forest is a bagged ensemble of regression trees
type forest struct {
	trees      []*node
	importance []float64 // summed SSE reduction per feature
}

// fitForest trains the ensemble on the given matrix. Each tree gets its own
// generator derived from the base seed, so tree t is identical across runs
// independent of how many trees precede it.
func fitForest(X [][]float64, y []float64, numFeatures int, params ForestParams) *forest {
	f := &forest{
		trees:      make([]*node, params.Trees),
		importance: make([]float64, numFeatures),
	}

	for t := 0; t < params.Trees; t++ {
		rng := rand.New(rand.NewSource(params.Seed + int64(t)))
		indices := make([]int, len(y))
		for i := range indices {
			indices[i] = rng.Intn(len(y))
		}
		f.trees[t] = buildTree(X, y, indices, numFeatures, params, rng, 0, f.importance)
	}

	return f
}

func (f *forest) predict(row []float64) float64 {
	sum := 0.0
	for _, tree := range f.trees {
		sum += predictTree(tree, row)
	}
	return sum / float64(len(f.trees))
}

func predictTree(n *node, row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// buildTree grows one regression tree by recursive variance-reduction splits
// over a random feature subset at each node
func buildTree(X [][]float64, y []float64, indices []int, numFeatures int, params ForestParams, rng *rand.Rand, depth int, importance []float64) *node {
	if depth >= params.MaxDepth || len(indices) < 2*params.MinLeaf {
		return &node{leaf: true, value: meanAt(y, indices)}
	}

	feature, threshold, gain, ok := bestSplit(X, y, indices, numFeatures, params.MinLeaf, rng)
	if !ok {
		return &node{leaf: true, value: meanAt(y, indices)}
	}
	importance[feature] += gain

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(X, y, left, numFeatures, params, rng, depth+1, importance),
		right:     buildTree(X, y, right, numFeatures, params, rng, depth+1, importance),
	}
}

// bestSplit searches a random subset of roughly one third of the features
// for the threshold with the largest SSE reduction
func bestSplit(X [][]float64, y []float64, indices []int, numFeatures, minLeaf int, rng *rand.Rand) (feature int, threshold, gain float64, ok bool) {
	mtry := numFeatures / 3
	if mtry < 1 {
		mtry = 1
	}
	candidates := rng.Perm(numFeatures)[:mtry]
	sort.Ints(candidates) // evaluation order independent of Perm order

	parentSSE := sseAt(y, indices)
	bestGain := 0.0

	for _, f := range candidates {
		values := make([]float64, 0, len(indices))
		for _, i := range indices {
			values = append(values, X[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			thr := (values[v] + values[v-1]) / 2

			var leftY, rightY []int
			for _, i := range indices {
				if X[i][f] <= thr {
					leftY = append(leftY, i)
				} else {
					rightY = append(rightY, i)
				}
			}
			if len(leftY) < minLeaf || len(rightY) < minLeaf {
				continue
			}

			g := parentSSE - sseAt(y, leftY) - sseAt(y, rightY)
			if g > bestGain {
				bestGain = g
				feature = f
				threshold = thr
				ok = true
			}
		}
	}

	return feature, threshold, bestGain, ok
}

func meanAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range indices {
		sum += y[i]
	}
	return sum / float64(len(indices))
}

func sseAt(y []float64, indices []int) float64 {
	m := meanAt(y, indices)
	sse := 0.0
	for _, i := range indices {
		d := y[i] - m
		sse += d * d
	}
	return sse
}
