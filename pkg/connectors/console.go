package connectors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/sandboxws/adsim/pkg/event"
)

// Console writes records as "topic key value" lines. It is used for dry runs
// without a broker.
type Console struct {
	mu     sync.Mutex
	codec  Codec
	writer *bufio.Writer
	count  int64
	closed bool
}

// NewConsole creates a Console sink writing to stdout.
func NewConsole(codec Codec) *Console {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Console{codec: codec, writer: bufio.NewWriter(os.Stdout)}
}

// SetWriter overrides the output writer (default: os.Stdout).
func (c *Console) SetWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer = bufio.NewWriter(w)
}

func (c *Console) Publish(_ context.Context, topic, key string, rec event.Record) {
	value, err := c.codec.Encode(rec)
	if err != nil {
		slog.Error("console sink: encode record", "topic", topic, "key", key, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.codec.Name() == "json" {
		fmt.Fprintf(c.writer, "%s %s %s\n", topic, key, value)
	} else {
		fmt.Fprintf(c.writer, "%s %s %x\n", topic, key, value)
	}
	c.count++
}

// Count returns the number of records written.
func (c *Console) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Console) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("console sink: flush: %w", err)
	}
	return nil
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.writer.Flush()
}
