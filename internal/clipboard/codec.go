// Package clipboard encodes rectangular blocks of grid values into one or
// more named clipboard formats and writes them in a single operation.
//
// Decoding pasted data is the host's job; this package only hands the raw
// Reader through. DecodeTSV is provided as a convenience for hosts that
// accept spreadsheet pastes.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/gridcore/internal/log"
)

// ErrNoPayload is returned by Export when every encoder was skipped.
var ErrNoPayload = errors.New("clipboard: no format produced a payload")

// Matrix is a rows×cols block of cell values.
type Matrix [][]any

// Payload is the encoded content of one format: Text or Blob.
type Payload interface {
	Bytes() []byte
	isPayload()
}

// Text is a string payload.
type Text string

// Bytes returns the UTF-8 bytes of the text.
func (t Text) Bytes() []byte { return []byte(t) }
func (Text) isPayload() {}

// Blob is a binary payload with its media type.
type Blob struct {
	MediaType string
	Data      []byte
}

// Bytes returns the raw blob data.
func (b Blob) Bytes() []byte { return b.Data }
func (Blob) isPayload() {}

// Format is a named encoder. Encode may return a nil payload to opt out for
// a given matrix.
type Format struct {
	Name   string
	Encode func(m Matrix) (Payload, error)
}

// Item is one format's payload inside a clipboard write.
type Item struct {
	Format  string
	Payload Payload
}

// Writer performs one atomic clipboard write of all items.
type Writer interface {
	Write(ctx context.Context, items []Item) error
}

// Reader exposes clipboard content to paste handlers.
type Reader interface {
	ReadText(ctx context.Context) (string, error)
	Read(ctx context.Context, format string) (Payload, bool)
}

// Result describes what an export wrote and what it skipped.
type Result struct {
	Written []string
	Skipped []string
}

// Export encodes m with every format in order and writes the surviving
// payloads with a single call to w. A format whose encoder errors, panics or
// returns nil is skipped; it never blocks the others.
func Export(ctx context.Context, w Writer, m Matrix, formats []Format) (Result, error) {
	var (
		res   Result
		items = make([]Item, 0, len(formats))
	)
	for _, f := range formats {
		p, err := encode(f, m)
		if err != nil {
			log.Warn(log.CatClipboard, "Skipping clipboard format", "format", f.Name, "error", err)
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		if p == nil {
			log.Debug(log.CatClipboard, "Format produced no payload", "format", f.Name)
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		items = append(items, Item{Format: f.Name, Payload: p})
		res.Written = append(res.Written, f.Name)
	}

	if len(items) == 0 {
		return res, ErrNoPayload
	}
	if err := w.Write(ctx, items); err != nil {
		return res, fmt.Errorf("writing clipboard: %w", err)
	}
	log.Debug(log.CatClipboard, "Clipboard written", "formats", len(items), "rows", len(m))
	return res, nil
}

// encode runs one encoder, turning a panic into an error.
func encode(f Format, m Matrix) (p Payload, err error) {
	if f.Encode == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("encoder panicked: %v", r)
		}
	}()
	return f.Encode(m)
}
