package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jrhy/cowtrie"
	"github.com/jrhy/cowtrie/persist/file"
	"github.com/rs/zerolog"
)

var validVersion = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

// errNoVersion is returned for a version that was never saved.
var errNoVersion = errors.New("no such version")

// store keeps trie nodes under <dir>/nodes and named roots under
// <dir>/versions.
type store struct {
	versions string
	cfg      *cowtrie.RemoteConfig
}

func openStore(dir string, format string, logger *zerolog.Logger) (*store, error) {
	nodes, err := file.NewPersistForPath(filepath.Join(dir, "nodes"))
	if err != nil {
		return nil, err
	}
	versions := filepath.Join(dir, "versions")
	if err := os.MkdirAll(versions, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", versions, err)
	}
	return &store{
		versions: versions,
		cfg: &cowtrie.RemoteConfig{
			ValuesLike:              "",
			StoreImmutablePartsWith: nodes,
			NodeFormat:              cowtrie.NodeFormat(format),
			NodeCache:               cowtrie.NewNodeCache(10_000),
			Logger:                  logger,
		},
	}, nil
}

func (s *store) rootPath(version string) (string, error) {
	if !validVersion.MatchString(version) {
		return "", fmt.Errorf("invalid version name %q", version)
	}
	return filepath.Join(s.versions, version+".json"), nil
}

// load returns the named version. A missing version is errNoVersion.
func (s *store) load(ctx context.Context, version string) (cowtrie.Trie, error) {
	path, err := s.rootPath(version)
	if err != nil {
		return cowtrie.Trie{}, err
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cowtrie.Trie{}, fmt.Errorf("%s: %w", version, errNoVersion)
	}
	if err != nil {
		return cowtrie.Trie{}, err
	}
	var root cowtrie.Root
	if err := json.Unmarshal(b, &root); err != nil {
		return cowtrie.Trie{}, fmt.Errorf("parse %s: %w", path, err)
	}
	t, err := root.LoadTrie(ctx, s.cfg)
	if err != nil {
		return cowtrie.Trie{}, fmt.Errorf("load %s: %w", version, err)
	}
	return t, nil
}

// loadOrEmpty is like load, but a missing version is an empty trie.
func (s *store) loadOrEmpty(ctx context.Context, version string) (cowtrie.Trie, error) {
	t, err := s.load(ctx, version)
	if errors.Is(err, errNoVersion) {
		return cowtrie.New(), nil
	}
	return t, err
}

// save stores t and points the named version at it.
func (s *store) save(ctx context.Context, version string, t cowtrie.Trie) error {
	path, err := s.rootPath(version)
	if err != nil {
		return err
	}
	root, err := t.MakeRoot(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("save %s: %w", version, err)
	}
	b, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
