// CLAUDE:SUMMARY Pipeline dispatcher — detect, extract, classify, persist one file; batch and channel entry points.
// Package dispatch runs the processing pipeline for incoming documents:
// format detection, text extraction, department classification and
// persistence, with a per-document audit trail. It is the glue between the
// intake channels and the extraction layer.
package dispatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/metrorail/docflow/channels"
	"github.com/metrorail/docflow/classify"
	"github.com/metrorail/docflow/detect"
	"github.com/metrorail/docflow/extract"
	"github.com/metrorail/docflow/store"
)

// Dispatcher processes files end to end.
type Dispatcher struct {
	detector detect.Detector
	registry *extract.Registry
	store    *store.Store
	events   *store.EventLogger
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher over the given extraction registry and store.
func New(registry *extract.Registry, st *store.Store, events *store.EventLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		store:    st,
		events:   events,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ProcessFile runs the pipeline for one file and returns the stored
// document. It returns an error only when the file cannot enter the
// pipeline at all (unknown or unsupported format, or the store itself
// failing); extraction failures are recorded on the document instead.
func (d *Dispatcher) ProcessFile(ctx context.Context, path, channel, source string) (*store.Document, error) {
	filename := filepath.Base(path)

	tag, mime, err := d.detector.Detect(path)
	if err != nil {
		d.logger.Warn("file rejected", "filename", filename, "error", err)
		return nil, fmt.Errorf("dispatch: %s: %w", filename, err)
	}

	strategy, err := d.registry.Get(tag)
	if err != nil {
		d.logger.Warn("file rejected", "filename", filename, "format", tag, "error", err)
		return nil, fmt.Errorf("dispatch: %s: %w", filename, err)
	}

	result := strategy.Extract(ctx, path)
	errMsg, failed := result.Err()

	cls := classify.Classify(result.Text, filename)

	doc := &store.Document{
		Filename:   filename,
		Path:       path,
		FileType:   string(tag),
		MIME:       mime,
		Channel:    channel,
		Department: string(cls.Department),
		Confidence: cls.Confidence,
		Text:       result.Text,
		Metadata:   result.Metadata,
		Status:     deriveStatus(result.Text, failed),
		Error:      errMsg,
	}
	id, err := d.store.Save(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %s: %w", filename, err)
	}

	d.trail(ctx, id, tag, cls, errMsg, failed, source)
	d.logger.Info("document processed",
		"id", id, "filename", filename, "format", tag, "channel", channel,
		"department", doc.Department, "status", doc.Status)
	return doc, nil
}

// deriveStatus maps an extraction outcome to a document status. A failed
// extraction that still yielded real text (partial pages, entity counts) is
// PARTIAL; a synthesized placeholder does not count as text.
func deriveStatus(text string, failed bool) string {
	if !failed {
		return store.StatusProcessed
	}
	if strings.TrimSpace(text) == "" || extract.Placeholder(text) {
		return store.StatusError
	}
	return store.StatusPartial
}

func (d *Dispatcher) trail(ctx context.Context, id string, tag extract.Format, cls classify.Classification, errMsg string, failed bool, source string) {
	if d.events == nil {
		return
	}
	d.events.Record(ctx, id, "detect", "success", string(tag))
	if failed {
		d.events.Record(ctx, id, "extract", "error", errMsg)
	} else {
		d.events.Record(ctx, id, "extract", "success", "")
	}
	d.events.Record(ctx, id, "classify", "success",
		fmt.Sprintf("%s (%.2f)", cls.Department, cls.Confidence))
	d.events.Record(ctx, id, "store", "success", source)
}

// ProcessDir walks dir and processes every regular file. Rejected files are
// logged and skipped. It returns the number of documents stored.
func (d *Dispatcher) ProcessDir(ctx context.Context, dir, channel string) (int, error) {
	processed := 0
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		if _, err := d.ProcessFile(ctx, path, channel, dir); err != nil {
			// Already logged; keep walking.
			return nil
		}
		processed++
		return nil
	})
	if err != nil {
		return processed, fmt.Errorf("dispatch: walk %s: %w", dir, err)
	}
	return processed, nil
}

// Handler adapts the dispatcher to the intake channel contract.
func (d *Dispatcher) Handler() channels.Handler {
	return func(ctx context.Context, ev channels.FileEvent) error {
		_, err := d.ProcessFile(ctx, ev.Path, ev.Channel, ev.Source)
		return err
	}
}
