package cowtrie

import "fmt"

// entry represents a key and value in the trie.
type entry struct {
	Key   string
	Value interface{}
}

// Iter invokes f for every entry of the trie, in byte-wise key order. The
// iteration stops at the first error returned by f.
func (t Trie) Iter(f func(key string, value interface{}) error) error {
	if t.root == nil {
		return nil
	}
	return t.root.iter(make([]byte, 0, 16), f)
}

// IterPrefix is like Iter, but visits only keys starting with prefix.
func (t Trie) IterPrefix(prefix string, f func(key string, value interface{}) error) error {
	n := walk(t.root, prefix)
	if n == nil {
		return nil
	}
	return n.iter(append(make([]byte, 0, len(prefix)+16), prefix...), f)
}

func (n *node) iter(path []byte, f func(string, interface{}) error) error {
	if n.hasValue {
		err := f(string(path), n.value)
		if err != nil {
			return fmt.Errorf("callback %q: %w", path, err)
		}
	}
	for _, symbol := range sortedSymbols(n.children) {
		err := n.children[symbol].iter(append(path, symbol), f)
		if err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys of the trie's entries, in order.
func (t Trie) Keys() []string {
	keys := make([]string, 0, t.size)
	_ = t.Iter(func(key string, _ interface{}) error {
		keys = append(keys, key)
		return nil
	})
	return keys
}

// toSlice returns the trie's entries, in order.
func (t Trie) toSlice() []entry {
	entries := make([]entry, 0, t.size)
	_ = t.Iter(func(key string, value interface{}) error {
		entries = append(entries, entry{key, value})
		return nil
	})
	return entries
}

func (t Trie) dump() {
	if t.root == nil {
		fmt.Printf("NIL\n")
		return
	}
	t.root.dump()
}
