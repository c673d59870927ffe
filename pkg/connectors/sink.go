// Package connectors implements the sinks generated events are published to.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sandboxws/adsim/pkg/event"
)

// Sink receives generated records. Publish is fire-and-forget: delivery
// failures are logged and counted, never returned. Flush blocks until every
// record published so far is acknowledged or ctx is done. Close releases the
// underlying connection and may be called more than once.
type Sink interface {
	Publish(ctx context.Context, topic, key string, rec event.Record)
	Flush(ctx context.Context) error
	Close() error
}

// Codec serializes records into message values.
type Codec interface {
	Name() string
	Encode(rec event.Record) ([]byte, error)
}

// JSONCodec encodes records as JSON objects.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(rec event.Record) ([]byte, error) {
	return json.Marshal(rec)
}

// ProtoCodec encodes records in protobuf wire format.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "protobuf" }

func (ProtoCodec) Encode(rec event.Record) ([]byte, error) {
	return rec.AppendProto(nil), nil
}

// CodecByName resolves a codec from its configured name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "protobuf":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}
