package cowtrie

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNoPersist is returned when a version is saved or loaded without
// RemoteConfig.StoreImmutablePartsWith.
var ErrNoPersist = errors.New("no persistence mechanism set; set RemoteConfig.StoreImmutablePartsWith")

// Persist is the interface for loading and storing (serialized) trie nodes.
// The given string identity corresponds to the content which is immutable
// (never modified).
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// NodeFormat selects how nodes are encoded in the persistent store.
type NodeFormat string

const (
	// JSONNodes encodes nodes as JSON objects.
	JSONNodes NodeFormat = "json"
	// BinaryNodes encodes nodes in protobuf wire format.
	BinaryNodes NodeFormat = "binary"
)

// RemoteConfig controls how nodes are persisted and loaded.
type RemoteConfig struct {
	// ValuesLike is an instance of the type values will be deserialized
	// as. If nil, values load as interface{} and are read back with
	// Get[interface{}].
	ValuesLike interface{}

	// StoreImmutablePartsWith is used to store and load serialized nodes.
	StoreImmutablePartsWith Persist

	// Unmarshal function for values, defaults to JSON
	Unmarshal func([]byte, interface{}) error

	// Marshal function for values, defaults to JSON
	Marshal func(interface{}) ([]byte, error)

	// NodeFormat is used for newly-saved roots; loading follows the
	// format recorded in the Root. Defaults to JSONNodes.
	NodeFormat NodeFormat

	// NodeCache caches deserialized nodes and may be shared across
	// multiple versions, which then share the cached nodes in memory.
	NodeCache NodeCache

	// Logger receives persistence events. Nil disables logging.
	Logger *zerolog.Logger
}

// Root identifies a version of a trie whose nodes are accessible in the
// persistent store.
type Root struct {
	Link       *string    `json:"link,omitempty"`
	Size       uint64     `json:"size"`
	NodeFormat NodeFormat `json:"nodeFormat,omitempty"`
}

func (cfg *RemoteConfig) logger() *zerolog.Logger {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return cfg.Logger
}

func (cfg *RemoteConfig) marshal() func(interface{}) ([]byte, error) {
	if cfg.Marshal == nil {
		return defaultMarshal
	}
	return cfg.Marshal
}

func (cfg *RemoteConfig) unmarshal() func([]byte, interface{}) error {
	if cfg.Unmarshal == nil {
		return defaultUnmarshal
	}
	return cfg.Unmarshal
}

func (cfg *RemoteConfig) nodeFormat() NodeFormat {
	if cfg.NodeFormat == "" {
		return JSONNodes
	}
	return cfg.NodeFormat
}
