package cowtrie

import (
	"context"
	"encoding/base64"
	"fmt"
	"reflect"

	"github.com/minio/blake2b-simd"
	"golang.org/x/sync/errgroup"
)

// storeConcurrency bounds the number of in-flight Persist.Store calls.
const storeConcurrency = 40

// MakeRoot writes every node of t to the persistent store and returns a
// Root from which the same version can be loaded. Nodes are named by the
// hash of their content, so subtrees shared with earlier saved versions
// map to the same names.
func (t Trie) MakeRoot(ctx context.Context, cfg *RemoteConfig) (*Root, error) {
	if cfg.StoreImmutablePartsWith == nil {
		return nil, ErrNoPersist
	}
	format := cfg.nodeFormat()
	if t.root == nil {
		return &Root{Size: 0, NodeFormat: format}, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(storeConcurrency)
	f := flusher{
		ctx:     gctx,
		cfg:     cfg,
		format:  format,
		marshal: cfg.marshal(),
		group:   g,
		named:   map[*node]string{},
	}
	link, err := f.store(t.root)
	waitErr := g.Wait()
	if err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, fmt.Errorf("persist store: %w", waitErr)
	}
	cfg.logger().Debug().
		Str("root", link).
		Uint64("size", t.size).
		Int("nodes", len(f.named)).
		Int("stored", f.stored).
		Msg("made root")
	return &Root{Link: &link, Size: t.size, NodeFormat: format}, nil
}

type flusher struct {
	ctx     context.Context
	cfg     *RemoteConfig
	format  NodeFormat
	marshal func(interface{}) ([]byte, error)
	group   *errgroup.Group
	named   map[*node]string
	stored  int
}

func (f *flusher) store(n *node) (string, error) {
	if name, ok := f.named[n]; ok {
		return name, nil
	}
	validateNode(n)
	sn := storedNode{HasValue: n.hasValue}
	if n.hasValue {
		b, err := f.marshal(n.value)
		if err != nil {
			return "", fmt.Errorf("marshal value: %w", err)
		}
		sn.Value = b
	}
	if len(n.children) > 0 {
		sn.Children = make(map[byte]string, len(n.children))
		for symbol, child := range n.children {
			name, err := f.store(child)
			if err != nil {
				return "", err
			}
			sn.Children[symbol] = name
		}
	}
	encoded, err := encodeNode(f.format, &sn)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	name := nameOf(encoded)
	f.named[n] = name
	cache := f.cfg.NodeCache
	if cache != nil && cache.Contains(name) {
		return name, nil
	}
	f.stored++
	persist := f.cfg.StoreImmutablePartsWith
	f.group.Go(func() error {
		err := persist.Store(f.ctx, name, encoded)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if cache != nil {
			cache.Add(name, n)
		}
		return nil
	})
	return name, nil
}

// nameOf is the content address of an encoded node.
func nameOf(encoded []byte) string {
	hashBytes := blake2b.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

// LoadTrie loads the version identified by r. All nodes are loaded and
// checked; nodes already in the NodeCache are reused rather than loaded.
func (r *Root) LoadTrie(ctx context.Context, cfg *RemoteConfig) (Trie, error) {
	if r.Link == nil {
		if r.Size != 0 {
			return Trie{}, fmt.Errorf("root without link has size %d", r.Size)
		}
		return Trie{}, nil
	}
	if cfg.StoreImmutablePartsWith == nil {
		return Trie{}, ErrNoPersist
	}
	valueType := reflect.TypeOf(cfg.ValuesLike)
	if valueType == nil {
		valueType = typeTag[interface{}]()
	}
	l := loader{
		ctx:       ctx,
		cfg:       cfg,
		format:    r.NodeFormat,
		unmarshal: cfg.unmarshal(),
		valueType: valueType,
		loaded:    map[string]*node{},
		typed:     map[*node]bool{},
	}
	root, err := l.load(*r.Link)
	if err != nil {
		return Trie{}, fmt.Errorf("load root: %w", err)
	}
	size := countValues(root, map[*node]uint64{})
	if size != r.Size {
		return Trie{}, fmt.Errorf("root %s has %d values, expected %d", *r.Link, size, r.Size)
	}
	cfg.logger().Debug().
		Str("root", *r.Link).
		Uint64("size", size).
		Int("loaded", l.fetched).
		Msg("loaded root")
	return Trie{root: root, size: size}, nil
}

type loader struct {
	ctx       context.Context
	cfg       *RemoteConfig
	format    NodeFormat
	unmarshal func([]byte, interface{}) error
	valueType reflect.Type
	loaded    map[string]*node
	typed     map[*node]bool
	fetched   int
}

func (l *loader) load(name string) (*node, error) {
	if n, ok := l.loaded[name]; ok {
		return n, nil
	}
	if n, ok := l.cached(name); ok {
		l.loaded[name] = n
		return n, nil
	}
	b, err := l.cfg.StoreImmutablePartsWith.Load(l.ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", name, err)
	}
	l.fetched++
	if nameOf(b) != name {
		return nil, fmt.Errorf("node %s does not match its content", name)
	}
	sn, err := decodeNode(l.format, b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if !sn.HasValue && len(sn.Children) == 0 {
		return nil, fmt.Errorf("node %s has neither value nor children", name)
	}
	n := &node{children: make(map[byte]*node, len(sn.Children))}
	if sn.HasValue {
		v := reflect.New(l.valueType)
		err = l.unmarshal(sn.Value, v.Interface())
		if err != nil {
			return nil, fmt.Errorf("unmarshal value in %s: %w", name, err)
		}
		n.hasValue = true
		n.value = v.Elem().Interface()
		n.valueType = l.valueType
	}
	for symbol, link := range sn.Children {
		child, err := l.load(link)
		if err != nil {
			return nil, fmt.Errorf("child %q of %s: %w", symbol, name, err)
		}
		n.children[symbol] = child
	}
	l.loaded[name] = n
	if l.cfg.NodeCache != nil {
		l.cfg.NodeCache.Add(name, n)
	}
	return n, nil
}

// cached returns the cached node for name if its whole subtree holds
// values of the loader's type. Nodes cached by MakeRoot carry the types
// they were put with, which may differ.
func (l *loader) cached(name string) (*node, bool) {
	if l.cfg.NodeCache == nil {
		return nil, false
	}
	cached, ok := l.cfg.NodeCache.Get(name)
	if !ok {
		return nil, false
	}
	n := cached.(*node)
	if !l.typedAs(n) {
		return nil, false
	}
	return n, true
}

func (l *loader) typedAs(n *node) bool {
	if ok, seen := l.typed[n]; seen {
		return ok
	}
	ok := !n.hasValue || n.valueType == l.valueType
	for _, child := range n.children {
		if !ok {
			break
		}
		ok = l.typedAs(child)
	}
	l.typed[n] = ok
	return ok
}

func countValues(n *node, counted map[*node]uint64) uint64 {
	if c, ok := counted[n]; ok {
		return c
	}
	var c uint64
	if n.hasValue {
		c++
	}
	for _, child := range n.children {
		c += countValues(child, counted)
	}
	counted[n] = c
	return c
}
