package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/metrorail/docflow/store"
)

// collector is a Handler that records every event.
type collector struct {
	mu     sync.Mutex
	events []FileEvent
	err    error
}

func (c *collector) handle(ctx context.Context, ev FileEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *collector) snapshot() []FileEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FileEvent(nil), c.events...)
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", false},
		{".hidden", true},
		{"~lockfile.docx", true},
		{"partial.tmp", true},
		{"download.crdownload", true},
		{"data.part", true},
		{"normal.txt", false},
	}
	for _, tt := range tests {
		if got := ignored(tt.name); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStageBytes(t *testing.T) {
	dir := t.TempDir()
	dst, err := stageBytes(dir, "report.pdf", []byte("content"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(dst, "_report.pdf") {
		t.Errorf("staged name should keep the original basename: %s", dst)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("staged content = %q", data)
	}

	// Client-supplied paths must not escape the staging dir.
	dst, err = stageBytes(dir, "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(dst) != dir {
		t.Errorf("traversal name escaped staging dir: %s", dst)
	}
}

const testMessage = `From sender@example.com Thu Jan  1 00:00:00 2026
From: clerk@example.com
To: intake@example.com
Subject: scanned invoice
Message-Id: <msg-1@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="BOUNDARY"

--BOUNDARY
Content-Type: text/plain

Please find the invoice attached.
--BOUNDARY
Content-Type: application/octet-stream
Content-Disposition: attachment; filename="invoice.txt"

Invoice INV-42, amount 1200
--BOUNDARY--
`

func TestMboxPollOnce(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "intake.mbox")
	if err := os.WriteFile(spool, []byte(testMessage), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &collector{}
	w := NewMboxWorker(spool, filepath.Join(dir, "staging"), c.handle)

	n, err := w.pollOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("staged = %d, want 1", n)
	}
	events := c.snapshot()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Channel != ChannelEmail {
		t.Errorf("channel = %q", ev.Channel)
	}
	if ev.Source != "<msg-1@example.com>" {
		t.Errorf("source = %q", ev.Source)
	}
	data, err := os.ReadFile(ev.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "INV-42") {
		t.Errorf("attachment content = %q", data)
	}

	// Re-polling the same spool stages nothing new.
	n, err = w.pollOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second poll staged %d, want 0", n)
	}
}

func TestMboxMissingSpool(t *testing.T) {
	c := &collector{}
	w := NewMboxWorker(filepath.Join(t.TempDir(), "nope.mbox"), t.TempDir(), c.handle)
	n, err := w.pollOnce(context.Background())
	if err != nil {
		t.Fatalf("missing spool should not be an error: %v", err)
	}
	if n != 0 {
		t.Errorf("staged = %d", n)
	}
}

func TestDirWatcher(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "already-there.txt")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &collector{}
	w := NewDirWatcher([]string{dir}, c.handle, WithSettleDelay(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Give the watcher a moment to register, then drop a new file.
	time.Sleep(100 * time.Millisecond)
	fresh := filepath.Join(dir, "incoming.pdf")
	if err := os.WriteFile(fresh, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := c.snapshot()
		if hasPath(events, existing) && hasPath(events, fresh) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done

	events := c.snapshot()
	if !hasPath(events, existing) {
		t.Error("pre-existing file was not swept")
	}
	if !hasPath(events, fresh) {
		t.Error("new file was not emitted")
	}
	for _, ev := range events {
		if ev.Channel != ChannelFolder {
			t.Errorf("channel = %q", ev.Channel)
		}
	}
}

func hasPath(events []FileEvent, path string) bool {
	for _, ev := range events {
		if ev.Path == path {
			return true
		}
	}
	return false
}

// fakeQueries satisfies DocumentQueries for router tests.
type fakeQueries struct {
	docs []*store.Document
}

func (f *fakeQueries) Search(ctx context.Context, _ store.Filter) ([]*store.Document, error) {
	return f.docs, nil
}

func (f *fakeQueries) Stats(ctx context.Context) (*store.Stats, error) {
	return &store.Stats{Total: len(f.docs)}, nil
}

func TestUploadServer(t *testing.T) {
	c := &collector{}
	q := &fakeQueries{docs: []*store.Document{{ID: "doc_1", Filename: "a.pdf"}}}
	s := NewUploadServer("127.0.0.1:0", t.TempDir(), c.handle, q)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "minutes.docx")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("payload"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	events := c.snapshot()
	if len(events) != 1 || events[0].Channel != ChannelUpload || events[0].Source != "minutes.docx" {
		t.Fatalf("events = %+v", events)
	}

	resp, err = http.Get(ts.URL + "/documents?q=a")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 {
		t.Errorf("count = %d", out.Count)
	}

	resp, err = http.Get(ts.URL + "/documents?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stats status = %d", resp.StatusCode)
	}
}

func TestUploadServerMissingFile(t *testing.T) {
	s := NewUploadServer("127.0.0.1:0", t.TempDir(), (&collector{}).handle, &fakeQueries{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/upload", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSharePointWorker(t *testing.T) {
	w := &SharePointWorker{}
	if err := w.Run(context.Background()); err != ErrSharePointNotConfigured {
		t.Errorf("err = %v", err)
	}

	w = &SharePointWorker{SiteURL: "https://example.sharepoint.com/sites/docs"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
