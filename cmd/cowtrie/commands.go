package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jrhy/cowtrie"
	"github.com/rs/zerolog"
)

// Context is passed to every command's Run.
type Context struct {
	store  *store
	out    io.Writer
	logger zerolog.Logger
}

// CLI is the kong grammar of the cowtrie command.
type CLI struct {
	Dir    string `help:"Directory holding nodes and versions" default:"." env:"COWTRIE_DIR" type:"path"`
	Format string `help:"Encoding of newly stored nodes" enum:"json,binary" default:"json"`
	Debug  bool   `help:"Log persistence details"`

	Put  PutCmd  `cmd:"" help:"Set a key in a new version"`
	Get  GetCmd  `cmd:"" help:"Print the value of a key"`
	Rm   RmCmd   `cmd:"" help:"Remove a key in a new version"`
	Ls   LsCmd   `cmd:"" help:"List the entries of a version"`
	Diff DiffCmd `cmd:"" help:"Show what changed between two versions"`
}

// PutCmd writes one key.
type PutCmd struct {
	Version string `arg:"" help:"Version to write"`
	Key     string `arg:""`
	Value   string `arg:""`
	From    string `help:"Version to start from, defaults to the written version"`
}

func (cmd *PutCmd) Run(ctx *Context) error {
	return update(ctx, cmd.Version, cmd.From, func(t cowtrie.Trie) (cowtrie.Trie, error) {
		return cowtrie.Put(t, cmd.Key, cmd.Value), nil
	})
}

// RmCmd removes one key.
type RmCmd struct {
	Version string `arg:"" help:"Version to write"`
	Key     string `arg:""`
	From    string `help:"Version to start from, defaults to the written version"`
}

func (cmd *RmCmd) Run(ctx *Context) error {
	return update(ctx, cmd.Version, cmd.From, func(t cowtrie.Trie) (cowtrie.Trie, error) {
		if _, ok := t.Lookup(cmd.Key); !ok {
			return t, fmt.Errorf("key %q not found", cmd.Key)
		}
		return t.Remove(cmd.Key), nil
	})
}

func update(ctx *Context, version, from string, f func(cowtrie.Trie) (cowtrie.Trie, error)) error {
	c := context.Background()
	var base cowtrie.Trie
	var err error
	if from != "" {
		base, err = ctx.store.load(c, from)
	} else {
		base, err = ctx.store.loadOrEmpty(c, version)
	}
	if err != nil {
		return err
	}
	t, err := f(base)
	if err != nil {
		return err
	}
	err = ctx.store.save(c, version, t)
	if err != nil {
		return err
	}
	ctx.logger.Info().Str("version", version).Uint64("size", t.Size()).Msg("saved")
	return nil
}

// GetCmd prints one value.
type GetCmd struct {
	Version string `arg:""`
	Key     string `arg:""`
}

func (cmd *GetCmd) Run(ctx *Context) error {
	t, err := ctx.store.load(context.Background(), cmd.Version)
	if err != nil {
		return err
	}
	v, ok := cowtrie.Get[string](t, cmd.Key)
	if !ok {
		return fmt.Errorf("key %q not found", cmd.Key)
	}
	fmt.Fprintln(ctx.out, v)
	return nil
}

// LsCmd lists entries in key order.
type LsCmd struct {
	Version string `arg:""`
	Prefix  string `help:"Only list keys starting with prefix"`
}

func (cmd *LsCmd) Run(ctx *Context) error {
	t, err := ctx.store.load(context.Background(), cmd.Version)
	if err != nil {
		return err
	}
	return t.IterPrefix(cmd.Prefix, func(key string, value interface{}) error {
		_, err := fmt.Fprintf(ctx.out, "%s\t%v\n", key, value)
		return err
	})
}

// DiffCmd prints one line per changed key: "+" added, "-" removed, "~" changed.
type DiffCmd struct {
	Old string `arg:""`
	New string `arg:""`
}

func (cmd *DiffCmd) Run(ctx *Context) error {
	c := context.Background()
	older, err := ctx.store.load(c, cmd.Old)
	if err != nil {
		return err
	}
	newer, err := ctx.store.load(c, cmd.New)
	if err != nil {
		return err
	}
	var writeErr error
	err = newer.DiffIter(older, func(added, removed bool, key string, addedValue, removedValue interface{}) (bool, error) {
		switch {
		case added:
			_, writeErr = fmt.Fprintf(ctx.out, "+ %s\t%v\n", key, addedValue)
		case removed:
			_, writeErr = fmt.Fprintf(ctx.out, "- %s\t%v\n", key, removedValue)
		default:
			_, writeErr = fmt.Fprintf(ctx.out, "~ %s\t%v -> %v\n", key, removedValue, addedValue)
		}
		return writeErr == nil, nil
	})
	return errors.Join(err, writeErr)
}
