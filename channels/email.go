package channels

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
)

const defaultPollInterval = 30 * time.Second

// MboxWorker polls an mbox spool file for new mail and stages every
// attachment for processing. The mail system appends incoming messages to
// the spool; already-seen messages are skipped by Message-Id (or a content
// hash when the header is absent), so the worker tolerates re-reading the
// whole file on every poll.
type MboxWorker struct {
	path     string
	staging  string
	handler  Handler
	interval time.Duration
	logger   *slog.Logger
	seen     map[string]bool
}

// MboxOption configures an MboxWorker.
type MboxOption func(*MboxWorker)

// WithPollInterval sets the spool polling frequency. Default: 30s.
func WithPollInterval(d time.Duration) MboxOption {
	return func(m *MboxWorker) { m.interval = d }
}

// WithMboxLogger sets the logger. Default: slog.Default().
func WithMboxLogger(l *slog.Logger) MboxOption {
	return func(m *MboxWorker) { m.logger = l }
}

// NewMboxWorker creates a worker reading the mbox file at path and staging
// attachments under staging.
func NewMboxWorker(path, staging string, handler Handler, opts ...MboxOption) *MboxWorker {
	m := &MboxWorker{
		path:     path,
		staging:  staging,
		handler:  handler,
		interval: defaultPollInterval,
		logger:   slog.Default(),
		seen:     make(map[string]bool),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *MboxWorker) Name() string { return "email-mbox" }

// Run polls the spool until ctx is cancelled. A missing spool file is not
// an error; mail may simply not have arrived yet.
func (m *MboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("email worker started", "mbox", m.path, "interval", m.interval)
	for {
		if n, err := m.pollOnce(ctx); err != nil {
			m.logger.Warn("mbox poll failed", "error", err)
		} else if n > 0 {
			m.logger.Info("email attachments staged", "count", n)
		}
		select {
		case <-ctx.Done():
			m.logger.Info("email worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollOnce reads the whole spool and processes unseen messages. It returns
// the number of attachments staged.
func (m *MboxWorker) pollOnce(ctx context.Context) (int, error) {
	f, err := os.Open(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer f.Close()

	staged := 0
	r := mbox.NewReader(f)
	for {
		if ctx.Err() != nil {
			return staged, ctx.Err()
		}
		msg, err := r.NextMessage()
		if err == io.EOF {
			return staged, nil
		}
		if err != nil {
			return staged, fmt.Errorf("read mbox message: %w", err)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			m.logger.Warn("mbox message unreadable, skipping", "error", err)
			continue
		}
		n, err := m.processMessage(ctx, raw)
		if err != nil {
			m.logger.Warn("mail message not processed", "error", err)
			continue
		}
		staged += n
	}
}

func (m *MboxWorker) processMessage(ctx context.Context, raw []byte) (int, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("parse message: %w", err)
	}
	id := env.GetHeader("Message-Id")
	if id == "" {
		sum := sha256.Sum256(raw)
		id = hex.EncodeToString(sum[:])
	}
	if m.seen[id] {
		return 0, nil
	}
	m.seen[id] = true

	staged := 0
	for _, part := range append(env.Attachments, env.Inlines...) {
		if part.FileName == "" {
			continue
		}
		dst, err := stageBytes(m.staging, part.FileName, part.Content)
		if err != nil {
			m.logger.Warn("attachment not staged", "filename", part.FileName, "error", err)
			continue
		}
		ev := FileEvent{Path: dst, Channel: ChannelEmail, Source: id}
		if err := m.handler(ctx, ev); err != nil {
			m.logger.Warn("attachment not processed", "path", dst, "error", err)
			continue
		}
		staged++
	}
	return staged, nil
}
