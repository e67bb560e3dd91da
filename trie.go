package cowtrie

// Trie is a handle to one immutable version of a string-keyed trie. It is
// cheap to copy. The zero value is an empty trie. Put and Remove return new
// versions and never modify the receiver, so a Trie may be read by any
// number of goroutines while others derive new versions from it.
type Trie struct {
	root *node
	size uint64
}

// New returns an empty trie.
func New() Trie {
	return Trie{}
}

// Size returns the number of values stored in the trie.
func (t Trie) Size() uint64 {
	return t.size
}

// IsEmpty reports whether the trie stores no values.
func (t Trie) IsEmpty() bool {
	return t.root == nil
}

// Get returns the value stored at key. It reports false if there is no
// value at key or if the value was stored as a type other than T.
func Get[T any](t Trie, key string) (T, bool) {
	var zero T
	n := walk(t.root, key)
	if n == nil || !n.hasValue || n.valueType != typeTag[T]() {
		return zero, false
	}
	if n.value == nil {
		// a nil interface stored as an interface type T
		return zero, true
	}
	return n.value.(T), true
}

// Lookup returns the value stored at key, whatever its type.
func (t Trie) Lookup(key string) (interface{}, bool) {
	n := walk(t.root, key)
	if n == nil || !n.hasValue {
		return nil, false
	}
	return n.value, true
}

// Put returns a new version of t in which key maps to value. Any value
// previously stored at key, of any type, is replaced; nodes below key are
// kept.
func Put[T any](t Trie, key string, value T) Trie {
	var (
		newRoot *node
		parent  *node
		newNode *node
	)
	old := t.root
	for i := -1; i < len(key); i++ {
		if i >= 0 {
			old = old.child(key[i])
		}
		if i == len(key)-1 {
			newNode = old.withValue(typeTag[T](), value)
		} else {
			newNode = old.clone()
		}
		if parent == nil {
			newRoot = newNode
		} else {
			parent.children[key[i]] = newNode
		}
		parent = newNode
	}
	size := t.size
	if old == nil || !old.hasValue {
		size++
	}
	return Trie{root: newRoot, size: size}
}

// noTruncation marks a Remove whose terminal node must be kept.
const noTruncation = -2

// truncationPoint finds the shallowest position from which every node on
// key's path is dead once the value at key is removed. found is false if
// key holds no value.
func truncationPoint(root *node, key string) (cut int, found bool) {
	cut = noTruncation
	n := root
	for i := -1; i < len(key); i++ {
		if i >= 0 {
			n = n.child(key[i])
		}
		if n == nil {
			return noTruncation, false
		}
		var removable bool
		if i == len(key)-1 {
			if !n.hasValue {
				return noTruncation, false
			}
			removable = len(n.children) == 0
		} else {
			removable = !n.hasValue && len(n.children) == 1
		}
		if !removable {
			cut = noTruncation
		} else if cut == noTruncation {
			cut = i
		}
	}
	return cut, true
}

// Remove returns a new version of t without a value at key. Nodes left with
// neither a value nor children are pruned. If key holds no value, t is
// returned unchanged.
func (t Trie) Remove(key string) Trie {
	cut, found := truncationPoint(t.root, key)
	if !found {
		return t
	}
	if cut == -1 {
		return Trie{}
	}
	var (
		newRoot *node
		parent  *node
		newNode *node
	)
	old := t.root
	for i := -1; i < len(key); i++ {
		if i == cut {
			delete(parent.children, key[i])
			break
		}
		if i >= 0 {
			old = old.child(key[i])
		}
		if i == len(key)-1 {
			newNode = old.withoutValue()
		} else {
			newNode = old.clone()
		}
		if parent == nil {
			newRoot = newNode
		} else {
			parent.children[key[i]] = newNode
		}
		parent = newNode
	}
	return Trie{root: newRoot, size: t.size - 1}
}
