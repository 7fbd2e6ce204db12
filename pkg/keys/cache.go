package keys

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Klingon-tech/ldpos-client/pkg/mss"
)

// DefaultCacheSize is the number of derived trees a domain keeps.
const DefaultCacheSize = 8

// treeCache holds derived trees of one domain by tree index.
type treeCache struct {
	trees *lru.Cache[uint64, *mss.Tree]
}

func newTreeCache(size int) (*treeCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[uint64, *mss.Tree](size)
	if err != nil {
		return nil, err
	}
	return &treeCache{trees: c}, nil
}

func (c *treeCache) get(treeIndex uint64, derive func(uint64) *mss.Tree) *mss.Tree {
	if t, ok := c.trees.Get(treeIndex); ok {
		return t
	}
	t := derive(treeIndex)
	c.trees.Add(treeIndex, t)
	return t
}

// wipe zeroes the secrets of every cached tree and empties the cache.
func (c *treeCache) wipe() {
	for _, t := range c.trees.Values() {
		t.Wipe()
	}
	c.trees.Purge()
}
