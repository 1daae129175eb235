// Package handoff delivers confirmed destinations to the booking side.
package handoff

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"destination_assistant/internal/config"
	"destination_assistant/pkg"
)

// Publisher hands a confirmed payload to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, payload pkg.HandoffPayload) error
	Close() error
}

// Record is one published handoff as written by WriterPublisher.
type Record struct {
	SessionID   string             `json:"session_id"`
	Handoff     pkg.HandoffPayload `json:"handoff"`
	PublishedAt time.Time          `json:"published_at"`
}

// WriterPublisher appends one JSON line per handoff.
type WriterPublisher struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewWriterPublisher(w io.Writer) *WriterPublisher {
	return &WriterPublisher{w: w}
}

// NewFilePublisher appends to path, creating it and its directory if needed.
func NewFilePublisher(path string) (*WriterPublisher, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create handoff directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open handoff file: %w", err)
	}
	return &WriterPublisher{w: f, closer: f}, nil
}

func (p *WriterPublisher) Publish(_ context.Context, sessionID string, payload pkg.HandoffPayload) error {
	data, err := sonic.Marshal(Record{SessionID: sessionID, Handoff: payload, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal handoff: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write handoff: %w", err)
	}
	return nil
}

func (p *WriterPublisher) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// New builds the publisher selected by cfg.Sink.
func New(ctx context.Context, cfg config.HandoffConfig) (Publisher, error) {
	switch cfg.Sink {
	case "stdout":
		return NewWriterPublisher(os.Stdout), nil
	case "file":
		return NewFilePublisher(cfg.Path)
	case "postgres":
		return NewPostgresPublisher(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown handoff sink %q", cfg.Sink)
}
