package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/metrorail/docflow/store"
)

// maxUploadBytes caps a single manual upload at 100 MiB.
const maxUploadBytes = 100 << 20

// DocumentQueries is the read side the HTTP API needs from the store.
type DocumentQueries interface {
	Search(ctx context.Context, f store.Filter) ([]*store.Document, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// UploadServer is the manual-upload intake channel plus a small query API
// over the stored documents.
//
//	POST /upload          multipart form, field "file"
//	GET  /documents       ?q=&department=&type=&status=&limit=
//	GET  /stats
//	GET  /health
type UploadServer struct {
	addr    string
	staging string
	handler Handler
	queries DocumentQueries
	logger  *slog.Logger
}

// UploadOption configures an UploadServer.
type UploadOption func(*UploadServer)

// WithUploadLogger sets the logger. Default: slog.Default().
func WithUploadLogger(l *slog.Logger) UploadOption {
	return func(s *UploadServer) { s.logger = l }
}

// NewUploadServer creates the HTTP intake channel listening on addr.
// Uploaded files are staged under staging before handler is invoked.
func NewUploadServer(addr, staging string, handler Handler, queries DocumentQueries, opts ...UploadOption) *UploadServer {
	s := &UploadServer{
		addr:    addr,
		staging: staging,
		handler: handler,
		queries: queries,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *UploadServer) Name() string { return "http-upload" }

// Router builds the chi router. Exposed separately from Run so tests can
// drive it with httptest.
func (s *UploadServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/upload", s.handleUpload)
	r.Get("/documents", s.handleDocuments)
	r.Get("/stats", s.handleStats)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *UploadServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("upload server started", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.logger.Info("upload server stopped")
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("upload server: %w", err)
	}
}

func (s *UploadServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' required")
		return
	}
	defer file.Close()

	dst, err := stageReader(s.staging, header.Filename, file)
	if err != nil {
		s.logger.Error("upload staging failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}

	ev := FileEvent{Path: dst, Channel: ChannelUpload, Source: header.Filename}
	if err := s.handler(r.Context(), ev); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"staged":   dst,
		"filename": header.Filename,
	})
}

func (s *UploadServer) handleDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Query:      q.Get("q"),
		Department: q.Get("department"),
		FileType:   q.Get("type"),
		Status:     q.Get("status"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	docs, err := s.queries.Search(r.Context(), f)
	if err != nil {
		s.logger.Error("document search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if docs == nil {
		docs = []*store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *UploadServer) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.queries.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
