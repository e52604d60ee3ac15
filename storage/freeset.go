package storage

import "github.com/google/btree"

const freeSetDegree = 32

// freeSet is the ordered set of slot indexes whose on-disk header reads 0
type freeSet struct {
	tree *btree.BTreeG[uint32]
}

func newFreeSet() *freeSet {
	return &freeSet{tree: btree.NewOrderedG[uint32](freeSetDegree)}
}

func (fs *freeSet) insert(idx uint32) {
	fs.tree.ReplaceOrInsert(idx)
}

func (fs *freeSet) remove(idx uint32) {
	fs.tree.Delete(idx)
}

func (fs *freeSet) has(idx uint32) bool {
	return fs.tree.Has(idx)
}

func (fs *freeSet) len() int {
	return fs.tree.Len()
}

// ascend calls fn for every free index in ascending order until fn returns false
func (fs *freeSet) ascend(fn func(idx uint32) bool) {
	fs.tree.Ascend(fn)
}

func (fs *freeSet) slice() []uint32 {
	out := make([]uint32, 0, fs.len())
	fs.ascend(func(idx uint32) bool {
		out = append(out, idx)
		return true
	})
	return out
}
