package cowtrie

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	defaultUnmarshal = json.Unmarshal
	defaultMarshal   = json.Marshal
)

// storedNode is the serialized shape of a node: the marshaled value and
// the names of the children.
type storedNode struct {
	HasValue bool            `json:"h,omitempty"`
	Value    []byte          `json:"v,omitempty"`
	Children map[byte]string `json:"c,omitempty"`
}

// Field numbers of the binary node format.
const (
	fieldHasValue protowire.Number = 1
	fieldValue    protowire.Number = 2
	fieldChild    protowire.Number = 3

	fieldChildSymbol protowire.Number = 1
	fieldChildLink   protowire.Number = 2
)

func encodeNode(format NodeFormat, sn *storedNode) ([]byte, error) {
	switch format {
	case JSONNodes, "":
		return json.Marshal(sn)
	case BinaryNodes:
		return marshalBinaryNode(sn), nil
	default:
		return nil, fmt.Errorf("unknown node format %q", format)
	}
}

func decodeNode(format NodeFormat, buf []byte) (*storedNode, error) {
	var sn storedNode
	switch format {
	case JSONNodes, "":
		err := json.Unmarshal(buf, &sn)
		if err != nil {
			return nil, err
		}
	case BinaryNodes:
		err := unmarshalBinaryNode(buf, &sn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown node format %q", format)
	}
	return &sn, nil
}

func marshalBinaryNode(sn *storedNode) []byte {
	var buf []byte
	if sn.HasValue {
		buf = protowire.AppendTag(buf, fieldHasValue, protowire.VarintType)
		buf = protowire.AppendVarint(buf, 1)
		buf = protowire.AppendTag(buf, fieldValue, protowire.BytesType)
		buf = protowire.AppendBytes(buf, sn.Value)
	}
	symbols := make([]int, 0, len(sn.Children))
	for symbol := range sn.Children {
		symbols = append(symbols, int(symbol))
	}
	sort.Ints(symbols)
	for _, symbol := range symbols {
		var child []byte
		child = protowire.AppendTag(child, fieldChildSymbol, protowire.VarintType)
		child = protowire.AppendVarint(child, uint64(symbol))
		child = protowire.AppendTag(child, fieldChildLink, protowire.BytesType)
		child = protowire.AppendString(child, sn.Children[byte(symbol)])
		buf = protowire.AppendTag(buf, fieldChild, protowire.BytesType)
		buf = protowire.AppendBytes(buf, child)
	}
	return buf
}

func unmarshalBinaryNode(buf []byte, sn *storedNode) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		switch {
		case num == fieldHasValue && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fmt.Errorf("has value: %w", protowire.ParseError(n))
			}
			sn.HasValue = v != 0
			buf = buf[n:]
		case num == fieldValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("value: %w", protowire.ParseError(n))
			}
			sn.Value = append([]byte(nil), v...)
			buf = buf[n:]
		case num == fieldChild && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("child: %w", protowire.ParseError(n))
			}
			symbol, link, err := unmarshalBinaryChild(v)
			if err != nil {
				return fmt.Errorf("child: %w", err)
			}
			if sn.Children == nil {
				sn.Children = map[byte]string{}
			}
			sn.Children[symbol] = link
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return nil
}

func unmarshalBinaryChild(buf []byte) (byte, string, error) {
	var symbol uint64
	var link string
	haveSymbol := false
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return 0, "", protowire.ParseError(n)
		}
		buf = buf[n:]
		switch {
		case num == fieldChildSymbol && typ == protowire.VarintType:
			symbol, n = protowire.ConsumeVarint(buf)
			haveSymbol = true
		case num == fieldChildLink && typ == protowire.BytesType:
			link, n = protowire.ConsumeString(buf)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return 0, "", protowire.ParseError(n)
		}
		buf = buf[n:]
	}
	if !haveSymbol || symbol > 0xff {
		return 0, "", errors.New("bad symbol")
	}
	if link == "" {
		return 0, "", errors.New("missing link")
	}
	return byte(symbol), link, nil
}
