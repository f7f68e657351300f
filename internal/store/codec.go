package store

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// Codec encodes and decodes the record list.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// GoJSON is a JSON codec backed by github.com/goccy/go-json.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }

// StdJSON is the standard-library JSON codec.
type StdJSON struct{}

func (StdJSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (StdJSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (StdJSON) Name() string                       { return "json" }

// CodecByName returns a built-in codec.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "go-json":
		return GoJSON{}, true
	case "json":
		return StdJSON{}, true
	default:
		return nil, false
	}
}

// DefaultCodec is used by file persisters created without WithCodec.
var DefaultCodec Codec = GoJSON{}
