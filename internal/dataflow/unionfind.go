package dataflow

// disjointSets is a union-find over dense value IDs with path halving.
// The smaller ID always becomes the representative so buffer identity does
// not depend on union order.
type disjointSets struct {
	parent []int64
}

func newDisjointSets(n int) *disjointSets {
	parent := make([]int64, n)
	for i := range parent {
		parent[i] = int64(i)
	}
	return &disjointSets{parent: parent}
}

func (d *disjointSets) find(x int64) int64 {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSets) union(a, b int64) {
	ra, rb := d.find(a), d.find(b)
	switch {
	case ra == rb:
	case ra < rb:
		d.parent[rb] = ra
	default:
		d.parent[ra] = rb
	}
}
