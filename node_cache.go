package cowtrie

import lru "github.com/hashicorp/golang-lru"

// NodeCache caches the immutable nodes of persisted versions, by name.
// It is also used to avoid re-storing nodes, so care should be taken
// to switch/invalidate NodeCache when the Persist is changed. Versions
// loaded through one cache share the cached nodes, so a cache should only
// be shared by configs with the same ValuesLike.
type NodeCache interface {
	// Add adds a freshly-persisted or loaded node to the cache.
	Add(key, value interface{})
	// Contains indicates the node with the given name has already been persisted.
	Contains(key interface{}) bool
	// Get retrieves the already-deserialized node with the given name, if cached.
	Get(key interface{}) (value interface{}, ok bool)
}

// NewNodeCache creates a new ARC-based node cache of the given size. One cache
// can be shared by any number of versions.
func NewNodeCache(size int) NodeCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}
