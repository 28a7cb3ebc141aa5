// Package codec frames chat messages on a byte stream: one JSON object
// per line, newline-delimited. The explicit delimiter keeps decoding
// correct when the transport splits a message across reads or packs
// several into one.
package codec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/preetjindal555-coder/what-sapp/domain"
)

// MaxMessageSize bounds a single frame. A peer exceeding it is
// malfunctioning and its stream cannot be resynchronized.
const MaxMessageSize = 64 * 1024

// Encode marshals msg and appends the frame delimiter.
func Encode(msg *domain.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", msg.Type, err)
	}
	return append(data, '\n'), nil
}

// Decode parses a single frame. Failure means the frame was malformed;
// callers drop the frame and keep the connection open.
func Decode(data []byte) (*domain.Message, error) {
	msg := &domain.Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("codec: malformed message: %w", err)
	}
	return msg, nil
}

// Decoder splits an incoming byte stream into frames.
type Decoder struct {
	sc *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxMessageSize)
	return &Decoder{sc: sc}
}

// Next returns the next raw frame without its delimiter. It returns
// io.EOF on clean end of stream and the transport error otherwise.
// The returned slice is only valid until the next call.
func (d *Decoder) Next() ([]byte, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return nil, fmt.Errorf("codec: frame over %d bytes: %w", MaxMessageSize, err)
			}
			return nil, err
		}
		return nil, io.EOF
	}
	return d.sc.Bytes(), nil
}
