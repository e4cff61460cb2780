package watch_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	confstore "github.com/goliatone/go-confstore"
	"github.com/goliatone/go-confstore/pkg/inidoc"
	"github.com/goliatone/go-confstore/pkg/watch"
)

type site struct {
	Title *string `conf:"title"`
}

func siteSchema() confstore.Schema {
	return confstore.Schema{Name: "site", Fields: []confstore.Field{{Name: "title"}}}
}

func writeSite(t *testing.T, path, title string) {
	t.Helper()
	doc := confstore.NewDocument()
	doc.EnsureSection("site").Set("title", title)
	if err := inidoc.WriteFile(path, doc); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.ini")
	writeSite(t, path, "old title")

	target := &site{Title: ptrTo("old title")}
	events := make(chan confstore.ChangeEvent, 4)
	store, err := confstore.NewStore(siteSchema(), target, confstore.WithHooks(confstore.HookFunc(func(event confstore.ChangeEvent) error {
		events <- event
		return nil
	})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	watcher, err := watch.New(path, store, watch.WithErrorHandler(func(err error) {
		t.Errorf("unexpected watch error: %v", err)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer watcher.Close()

	// Give the watcher a moment to register before replacing the file.
	time.Sleep(100 * time.Millisecond)
	writeSite(t, path, "new title")

	select {
	case event := <-events:
		if len(event.Changes) != 1 || event.Changes[0].Fields[0] != "title" {
			t.Fatalf("expected title change, got %+v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
	if target.Title == nil || *target.Title != "new title" {
		t.Fatalf("expected target updated, got %v", target.Title)
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.ini")
	writeSite(t, path, "title")

	target := &site{Title: ptrTo("title")}
	events := make(chan confstore.ChangeEvent, 4)
	store, err := confstore.NewStore(siteSchema(), target, confstore.WithHooks(confstore.HookFunc(func(event confstore.ChangeEvent) error {
		events <- event
		return nil
	})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	watcher, err := watch.New(path, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer watcher.Close()

	time.Sleep(100 * time.Millisecond)
	writeSite(t, filepath.Join(dir, "other.ini"), "changed")

	select {
	case event := <-events:
		t.Fatalf("expected no reload for unrelated file, got %+v", event)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherRequiresPathAndLoader(t *testing.T) {
	if _, err := watch.New("", nil); err == nil {
		t.Fatalf("expected missing path to fail")
	}
	if _, err := watch.New("site.ini", nil); err == nil {
		t.Fatalf("expected missing loader to fail")
	}
}

func TestWatcherStartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.ini")
	writeSite(t, path, "title")

	store, err := confstore.NewStore(siteSchema(), &site{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	watcher, err := watch.New(path, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}
}

func ptrTo[T any](value T) *T {
	return &value
}
