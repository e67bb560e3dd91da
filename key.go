package cowtrie

import "sort"

// A key is addressed one symbol (byte) at a time. Position -1 is the root,
// i.e. the node reached after consuming none of the key; position i is the
// node reached after consuming key[0..i].

func sortedSymbols(children map[byte]*node) []byte {
	symbols := make([]byte, 0, len(children))
	for symbol := range children {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

// mergedSymbols returns the ordered union of the symbols of two child maps.
func mergedSymbols(a, b map[byte]*node) []byte {
	seen := make(map[byte]*node, len(a)+len(b))
	for symbol := range a {
		seen[symbol] = nil
	}
	for symbol := range b {
		seen[symbol] = nil
	}
	return sortedSymbols(seen)
}

// walk follows key from n and returns the node reached, or nil.
func walk(n *node, key string) *node {
	for i := 0; i < len(key) && n != nil; i++ {
		n = n.child(key[i])
	}
	return n
}
