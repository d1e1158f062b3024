// Package api defines the tabkeeper RPC surface: request and response
// messages and Connect handler/client constructors for the auth, ledger and
// catalog services.
//
// Messages are plain Go structs carried by a JSON codec, so the services can
// be called from a browser with fetch and Content-Type: application/json.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

const (
	codecJSON        = "json"
	codecJSONCharset = "json; charset=utf-8"
)

type jsonCodec struct {
	name string
}

func (c jsonCodec) Name() string { return c.name }

func (c jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal treats an empty body as an empty message.
func (c jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// handlerOptions prepends the JSON codecs to caller options.
func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{name: codecJSON}),
		connect.WithCodec(jsonCodec{name: codecJSONCharset}),
	}, opts...)
}

// clientOptions prepends the JSON codec to caller options.
func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{
		connect.WithCodec(jsonCodec{name: codecJSON}),
	}, opts...)
}
