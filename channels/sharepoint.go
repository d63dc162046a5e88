package channels

import (
	"context"
	"errors"
	"log/slog"
)

// ErrSharePointNotConfigured is returned when the worker starts without a
// site URL.
var ErrSharePointNotConfigured = errors.New("channels: sharepoint site URL not configured")

// SharePointWorker is a stub for the SharePoint document-library channel.
// Polling a real library needs tenant credentials and the Graph API; until
// that lands, the worker only validates its configuration so the rest of
// the pipeline can be wired and tested against the channel name.
type SharePointWorker struct {
	SiteURL string
	Library string
	Logger  *slog.Logger
}

func (s *SharePointWorker) Name() string { return "sharepoint" }

// Run validates configuration, logs that the channel is inactive and waits
// for cancellation.
func (s *SharePointWorker) Run(ctx context.Context) error {
	if s.SiteURL == "" {
		return ErrSharePointNotConfigured
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("sharepoint channel configured but not implemented, ignoring",
		"site", s.SiteURL, "library", s.Library)
	<-ctx.Done()
	return ctx.Err()
}
