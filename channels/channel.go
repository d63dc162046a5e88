// CLAUDE:SUMMARY Intake channel workers — directory watcher, mbox email drop, HTTP upload, SharePoint stub.
// Package channels contains the intake workers that feed documents into the
// processing pipeline. Each worker materializes incoming files into a
// staging directory and emits a FileEvent to a shared Handler. Workers run
// as goroutines parented by a lifecycle context and stop when it is
// cancelled.
package channels

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/metrorail/docflow/idgen"
)

// Channel names as recorded on stored documents.
const (
	ChannelEmail      = "email"
	ChannelFolder     = "folder"
	ChannelUpload     = "upload"
	ChannelSharePoint = "sharepoint"
)

// FileEvent describes one file ready for processing.
type FileEvent struct {
	Path    string // location of the materialized file
	Channel string // which worker produced it
	Source  string // origin hint: watch dir, message id, client filename
}

// Handler consumes a FileEvent. Workers log handler errors and keep going;
// one bad file must not stop the channel.
type Handler func(ctx context.Context, ev FileEvent) error

// Worker is a long-running intake channel.
type Worker interface {
	Name() string
	// Run blocks until ctx is cancelled or the channel fails permanently.
	Run(ctx context.Context) error
}

// stageNames generates collision-free staging file names.
var stageNames = idgen.NanoID(8)

// stageBytes writes data into dir under a uniquified variant of name and
// returns the staged path.
func stageBytes(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("channels: mkdir staging: %w", err)
	}
	dst := filepath.Join(dir, stageNames()+"_"+safeBase(name, "attachment"))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("channels: stage %s: %w", name, err)
	}
	return dst, nil
}

// stageReader streams r into dir under a uniquified variant of name.
func stageReader(dir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("channels: mkdir staging: %w", err)
	}
	dst := filepath.Join(dir, stageNames()+"_"+safeBase(name, "upload"))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("channels: stage %s: %w", name, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("channels: stage %s: %w", name, err)
	}
	return dst, nil
}

// safeBase strips any client-supplied directory components.
func safeBase(name, fallback string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}
