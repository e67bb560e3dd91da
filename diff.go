package cowtrie

import (
	"errors"
	"fmt"
	"reflect"
)

// errStop ends a diff early when a callback asks to stop.
var errStop = errors.New("stop")

// DiffIter invokes the given callback for every entry that is different from
// the given old version. The iteration will stop if the callback returns
// keepGoing==false or an error. Callback invocation with added==removed==false
// signifies entries whose values have changed.
//
// Subtrees shared by both versions are skipped without being visited, so
// the cost of a diff follows the size of the change, not of the trie.
func (t Trie) DiffIter(
	old Trie,
	f func(added, removed bool,
		key string, addedValue, removedValue interface{},
	) (bool, error),
) error {
	err := diffNodes(old.root, t.root, make([]byte, 0, 16), f)
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func diffNodes(
	o, n *node,
	path []byte,
	f func(added, removed bool, key string, addedValue, removedValue interface{}) (bool, error),
) error {
	if o == n {
		return nil
	}
	var keepGoing bool
	var err error
	switch {
	case o != nil && o.hasValue && (n == nil || !n.hasValue):
		keepGoing, err = f(false, true, string(path), nil, o.value)
	case n != nil && n.hasValue && (o == nil || !o.hasValue):
		keepGoing, err = f(true, false, string(path), n.value, nil)
	case o != nil && n != nil && o.hasValue && n.hasValue &&
		(o.valueType != n.valueType || !valuesEqual(o.value, n.value)):
		keepGoing, err = f(false, false, string(path), n.value, o.value)
	default:
		keepGoing = true
	}
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	if !keepGoing {
		return errStop
	}
	var oc, nc map[byte]*node
	if o != nil {
		oc = o.children
	}
	if n != nil {
		nc = n.children
	}
	for _, symbol := range mergedSymbols(oc, nc) {
		err = diffNodes(oc[symbol], nc[symbol], append(path, symbol), f)
		if err != nil {
			return err
		}
	}
	return nil
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// DiffNodes invokes the given callback for every node that belongs to only
// one of the two versions: removed==true for nodes only in old, false for
// nodes only in t. The iteration will stop if the callback returns
// keepGoing==false or an error.
func (t Trie) DiffNodes(old Trie, f func(removed bool) (bool, error)) error {
	err := diffIdentities(old.root, t.root, f)
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func diffIdentities(o, n *node, f func(removed bool) (bool, error)) error {
	if o == n {
		return nil
	}
	for _, side := range []struct {
		n       *node
		removed bool
	}{{o, true}, {n, false}} {
		if side.n == nil {
			continue
		}
		keepGoing, err := f(side.removed)
		if err != nil {
			return fmt.Errorf("callback: %w", err)
		}
		if !keepGoing {
			return errStop
		}
	}
	var oc, nc map[byte]*node
	if o != nil {
		oc = o.children
	}
	if n != nil {
		nc = n.children
	}
	for _, symbol := range mergedSymbols(oc, nc) {
		err := diffIdentities(oc[symbol], nc[symbol], f)
		if err != nil {
			return err
		}
	}
	return nil
}
