package server

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// The service messages are plain structs, so both codecs replace
// connect's protobuf-based defaults.

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// cborCodec is the binary codec, served as application/cbor (Connect) or
// application/grpc+cbor (gRPC).
type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(msg any) ([]byte, error) {
	return cborEncMode.Marshal(msg)
}

func (cborCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return cbor.Unmarshal(data, msg)
}

// jsonCodec serves application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
