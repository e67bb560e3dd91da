/*
Package cowtrie provides an immutable, versioned, string-keyed trie.
Every Put or Remove returns a new version; all earlier versions remain
valid, readable and unchanged. Versions are cheap handles and can be
shared between goroutines without locks.

Uses

- Snapshots of a key/value index inside a multi-version store

- Diffing of versions, e.g. for change feeds

- Copy-on-write alternative to a Go builtin map keyed by strings


Path copying

A trie node is never modified once it is reachable from a published
version. A write clones only the nodes on the path from the root to
the key it touches, one per key byte plus the root, and grafts that
path onto the untouched rest of the tree. Everything off the path is
shared by pointer with the version the write started from.

	v1 := cowtrie.Put(cowtrie.New(), "cat", 1)
	v2 := cowtrie.Put(v1, "car", 2) // shares nothing but untouched subtrees
	v3 := v2.Remove("cat")          // v1 and v2 still see "cat"

	n, ok := cowtrie.Get[int](v3, "car")

Removal prunes nodes that are left with neither a value nor children,
so a removed branch leaves no residue in the new version.

Values

Any type can be stored. Get[T] only finds values that were stored as
exactly T; a value stored as another type reads as absent. Put
replaces whatever was stored at the key, whatever its type.

Persistence

A version can be saved into any Persist (files, S3, memory) with
MakeRoot and loaded again with Root.LoadTrie. Nodes are named by the
hash of their content, so versions that share subtrees in memory also
share them in the store, and a NodeCache lets loaded versions share
them in memory again.

Inspiration

The persistent collections of Clojure and friends, and the copy-on-write
trie at the heart of many multi-version storage engines.
*/
package cowtrie
