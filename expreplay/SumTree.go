package expreplay

import "math"

// SumTree is a complete binary tree over a fixed number of leaves in
// which every internal node stores the sum of its subtree. It supports
// O(log n) point updates and O(log n) sampling of a leaf proportional
// to its value.
//
// The tree is stored as a flat array of 2*capacity - 1 nodes with leaf
// i at position capacity - 1 + i, so no allocation happens after
// construction.
type SumTree struct {
	capacity int
	nodes    []float64
}

// NewSumTree returns a new SumTree with the given number of leaves,
// all initialized to zero
func NewSumTree(capacity int) *SumTree {
	if capacity < 1 {
		panic("newsumtree: capacity must be positive")
	}
	return &SumTree{
		capacity: capacity,
		nodes:    make([]float64, 2*capacity-1),
	}
}

// Update sets leaf i to value and propagates the change to all
// ancestors
func (s *SumTree) Update(i int, value float64) {
	index := s.capacity - 1 + i

	delta := value - s.nodes[index]
	s.nodes[index] = value

	for index > 0 {
		index = (index - 1) / 2
		s.nodes[index] += delta
	}
}

// Get returns the value stored at leaf i
func (s *SumTree) Get(i int) float64 {
	return s.nodes[s.capacity-1+i]
}

// Total returns the sum over all leaves
func (s *SumTree) Total() float64 {
	return s.nodes[0]
}

// FindPrefixSum maps a value v in [0, Total()) to a leaf. Each leaf
// owns a half-open interval of the cumulative mass whose width equals
// its value, so leaves are found with probability proportional to
// their values when v is drawn uniformly. Descent takes the left child
// only while v is strictly below the left subtree sum, so a v landing
// exactly on a boundary belongs to the right interval. Values at or
// above Total() are clamped just below it so the descent cannot run
// off the last leaf.
func (s *SumTree) FindPrefixSum(v float64) int {
	if v >= s.nodes[0] {
		v = math.Nextafter(s.nodes[0], 0)
	}

	index := 0
	for index < s.capacity-1 {
		left := 2*index + 1
		if v < s.nodes[left] {
			index = left
		} else {
			v -= s.nodes[left]
			index = left + 1
		}
	}

	return index - (s.capacity - 1)
}
