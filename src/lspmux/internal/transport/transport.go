// Package transport implements Content-Length framed JSON-RPC messaging over
// a language server's stdio pipes. It is purely mechanical: any failure here
// is a transport fault, never a protocol decision.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
	"github.com/lspmux/lspmux/src/lspmux/model"
)

const (
	_headerContentLength = "Content-Length"
	_headerSeparator     = "\r\n"
)

// Channel frames and deframes JSON-RPC envelopes on a byte stream.
type Channel interface {
	// Send serializes one envelope and writes it as a single frame. Writes
	// are serialized internally so concurrent senders never interleave bytes.
	Send(ctx context.Context, msg *model.Message) error
	// Receive blocks until the next complete frame is available and returns
	// its parsed envelope. It returns io.EOF when the peer closes the stream
	// at a frame boundary, and an error wrapping errors.ErrFraming for
	// malformed headers or truncated frames.
	Receive(ctx context.Context) (*model.Message, error)
	// Close closes the write side of the channel.
	Close() error
}

type channel struct {
	writeMu sync.Mutex
	w       io.WriteCloser
	r       *bufio.Reader
}

// New returns a Channel over the given subprocess pipes.
func New(w io.WriteCloser, r io.Reader) Channel {
	return &channel{
		w: w,
		r: bufio.NewReader(r),
	}
}

func (c *channel) Send(ctx context.Context, msg *model.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	header := fmt.Sprintf("%s: %d%s%s", _headerContentLength, len(body), _headerSeparator, _headerSeparator)
	if _, err := io.WriteString(c.w, header); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := c.w.Write(body); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

func (c *channel) Receive(ctx context.Context) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	length, err := c.readHeaders()
	if err != nil {
		return nil, err
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, fmt.Errorf("%w: frame truncated after %d byte header: %v", errors.ErrFraming, length, err)
	}

	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: decoding frame body: %v", errors.ErrFraming, err)
	}
	return &msg, nil
}

func (c *channel) Close() error {
	return c.w.Close()
}

// readHeaders consumes header lines up to the blank separator and returns the
// announced body length. Unknown headers (e.g. Content-Type) are skipped.
func (c *channel) readHeaders() (int, error) {
	length := -1
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && length == -1 {
				// Clean close at a frame boundary.
				return 0, io.EOF
			}
			return 0, fmt.Errorf("%w: reading frame header: %v", errors.ErrFraming, err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if length < 0 {
				return 0, fmt.Errorf("%w: frame separator before %s header", errors.ErrFraming, _headerContentLength)
			}
			return length, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return 0, fmt.Errorf("%w: header line %q", errors.ErrFraming, line)
		}
		if !strings.EqualFold(name, _headerContentLength) {
			continue
		}

		length, err = strconv.Atoi(strings.TrimSpace(value))
		if err != nil || length < 0 {
			return 0, fmt.Errorf("%w: %s value %q", errors.ErrFraming, _headerContentLength, strings.TrimSpace(value))
		}
	}
}
