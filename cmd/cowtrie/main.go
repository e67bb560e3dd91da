// Command cowtrie keeps named versions of a string-keyed trie in a
// directory. Every write creates a new version from an existing one;
// unchanged subtrees are stored once and shared by all versions.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(os.Args[1:], os.Stdout, logger, func(code int) { os.Exit(code) }); err != nil {
		logger.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

// run parses args and runs the selected command, printing results to out.
func run(args []string, out io.Writer, logger zerolog.Logger, exit func(int)) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("cowtrie"),
		kong.Description("Versioned copy-on-write trie kept in a directory."),
		kong.UsageOnError(),
		kong.Exit(exit),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	logger = logger.Level(zerolog.InfoLevel)
	if cli.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	}
	store, err := openStore(cli.Dir, cli.Format, &logger)
	if err != nil {
		return err
	}
	return kctx.Run(&Context{store: store, out: out, logger: logger})
}
