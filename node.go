package cowtrie

import (
	"fmt"
	"reflect"
)

// node is one vertex of a trie version. Once a node is reachable from a
// published Trie it is never modified; writers clone it instead.
type node struct {
	children map[byte]*node
	hasValue bool
	value    interface{}
	// valueType is the static type the value was stored as, so that
	// Get[T] can tell a stored T apart from a stored U.
	valueType reflect.Type
}

func typeTag[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (n *node) child(symbol byte) *node {
	if n == nil {
		return nil
	}
	return n.children[symbol]
}

func (n *node) isEmpty() bool {
	return !n.hasValue && len(n.children) == 0
}

// clone returns a shallow copy of n that is safe to modify until it is
// published. A nil receiver yields a fresh, empty inner node.
func (n *node) clone() *node {
	if n == nil {
		return &node{children: map[byte]*node{}}
	}
	newNode := node{
		children:  make(map[byte]*node, len(n.children)+1),
		hasValue:  n.hasValue,
		value:     n.value,
		valueType: n.valueType,
	}
	for symbol, child := range n.children {
		newNode.children[symbol] = child
	}
	return &newNode
}

// withValue is a clone of n that carries the given value in place of any
// previous one, keeping n's children.
func (n *node) withValue(valueType reflect.Type, value interface{}) *node {
	newNode := n.clone()
	newNode.hasValue = true
	newNode.value = value
	newNode.valueType = valueType
	return newNode
}

// withoutValue is a clone of n demoted to an inner node.
func (n *node) withoutValue() *node {
	newNode := n.clone()
	newNode.hasValue = false
	newNode.value = nil
	newNode.valueType = nil
	return newNode
}

func (n *node) dump() {
	fmt.Printf("{\n%s}\n", n.string("   "))
}

func (n *node) string(indent string) string {
	if n == nil {
		return indent + "NIL\n"
	}
	res := ""
	if n.hasValue {
		res += fmt.Sprintf("%s= %v (%v)\n", indent, n.value, n.valueType)
	}
	for _, symbol := range sortedSymbols(n.children) {
		res += fmt.Sprintf("%s%q {\n", indent, symbol)
		res += n.children[symbol].string(indent + "   ")
		res += indent + "}\n"
	}
	return res
}

func validateNode(n *node) {
	if n.isEmpty() {
		panic(fmt.Sprintf("node %p has neither value nor children", n))
	}
	if n.hasValue && n.valueType == nil {
		panic(fmt.Sprintf("node %p has a value but no value type", n))
	}
	for symbol, child := range n.children {
		if child == nil {
			panic(fmt.Sprintf("node %p has nil child for %q", n, symbol))
		}
	}
}
