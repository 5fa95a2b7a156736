package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/muesli/termenv"

	"github.com/zjrosen/gridcore/internal/log"
)

// Memory is an in-process clipboard that keeps every format of the last
// write. It is both a Writer and a Reader.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Payload
	order []string
}

// NewMemory creates an empty in-process clipboard.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]Payload)}
}

// Write replaces the stored content with items.
func (m *Memory) Write(_ context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]Payload, len(items))
	m.order = m.order[:0]
	for _, it := range items {
		m.items[it.Format] = it.Payload
		m.order = append(m.order, it.Format)
	}
	return nil
}

// Read returns the payload stored for a format.
func (m *Memory) Read(_ context.Context, format string) (Payload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[format]
	return p, ok
}

// ReadText returns the plain-text payload.
func (m *Memory) ReadText(ctx context.Context) (string, error) {
	p, ok := m.Read(ctx, FormatTSV)
	if !ok {
		return "", nil
	}
	return string(p.Bytes()), nil
}

// Formats lists the stored format names in write order.
func (m *Memory) Formats() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// System writes the plain-text item to the OS clipboard. When no OS
// clipboard tool is available it falls back to an OSC 52 escape sequence,
// which most terminals forward to the local clipboard even over SSH.
type System struct {
	// Out receives the OSC 52 sequence. Defaults to os.Stdout.
	Out io.Writer

	// NoOSC52 reports OS clipboard failures instead of falling back.
	NoOSC52 bool
}

// Write copies the text/plain item. Other formats have no OS clipboard
// target from a terminal and are ignored.
func (s System) Write(_ context.Context, items []Item) error {
	text, ok := textItem(items)
	if !ok {
		return errors.New("no text/plain item to copy")
	}

	if !clipboard.Unsupported {
		err := clipboard.WriteAll(text)
		if err == nil {
			return nil
		}
		if s.NoOSC52 {
			return fmt.Errorf("writing system clipboard: %w", err)
		}
		log.Warn(log.CatClipboard, "System clipboard write failed, using OSC 52", "error", err)
	} else if s.NoOSC52 {
		return errors.New("system clipboard unsupported")
	}

	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	termenv.NewOutput(out).Copy(text)
	return nil
}

// ReadText reads the OS clipboard.
func (System) ReadText(_ context.Context) (string, error) {
	if clipboard.Unsupported {
		return "", errors.New("system clipboard unsupported")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("reading system clipboard: %w", err)
	}
	return text, nil
}

// Read only knows the text/plain format of the OS clipboard.
func (s System) Read(ctx context.Context, format string) (Payload, bool) {
	if format != FormatTSV {
		return nil, false
	}
	text, err := s.ReadText(ctx)
	if err != nil {
		return nil, false
	}
	return Text(text), true
}

func textItem(items []Item) (string, bool) {
	for _, it := range items {
		if it.Format == FormatTSV {
			return string(it.Payload.Bytes()), true
		}
	}
	return "", false
}

// Shared writes to an in-process clipboard and the OS clipboard together,
// and reads back rich formats from the in-process copy while it still
// matches the OS clipboard text.
type Shared struct {
	Local  *Memory
	System System
}

// NewShared creates a Shared clipboard backed by the given terminal output.
func NewShared(out io.Writer) *Shared {
	return &Shared{Local: NewMemory(), System: System{Out: out}}
}

// Write pushes text to the OS clipboard, then stores all items locally. A
// failed OS write leaves the local copy untouched.
func (s *Shared) Write(ctx context.Context, items []Item) error {
	if err := s.System.Write(ctx, items); err != nil {
		return err
	}
	return s.Local.Write(ctx, items)
}

// ReadText prefers the OS clipboard so pastes from other programs work.
func (s *Shared) ReadText(ctx context.Context) (string, error) {
	text, err := s.System.ReadText(ctx)
	if err != nil {
		log.Debug(log.CatClipboard, "Falling back to local clipboard", "error", err)
		return s.Local.ReadText(ctx)
	}
	return text, nil
}

// Read returns a rich format only when the OS clipboard still holds the
// text this process wrote; otherwise the local copy is stale.
func (s *Shared) Read(ctx context.Context, format string) (Payload, bool) {
	if format == FormatTSV {
		text, err := s.ReadText(ctx)
		return Text(text), err == nil
	}
	local, _ := s.Local.ReadText(ctx)
	if sys, err := s.System.ReadText(ctx); err == nil && sys != local {
		return nil, false
	}
	return s.Local.Read(ctx, format)
}
