package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pxs/internal/config"
	"pxs/internal/model"
	"pxs/internal/px"
	"pxs/internal/testutil"
)

// newTestApp builds an App over a temp base dir with no console output.
func newTestApp(t *testing.T, clock px.Clock, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	if mutate != nil {
		mutate(cfg)
	}
	a, err := newApp(context.Background(), cfg, "Test", nil, clock, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return a
}

func writeResource(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestApp_AttachmentRoundTrip(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), nil)

	id, err := a.SaveAttachment([]byte("hello"), "a.txt", "")
	if err != nil {
		t.Fatalf("SaveAttachment() error = %v", err)
	}
	if want := testutil.ContentID([]byte("hello")); id != want {
		t.Errorf("SaveAttachment() id = %q, want %q", id, want)
	}

	info, err := a.GetAttachment(id)
	if err != nil {
		t.Fatalf("GetAttachment() error = %v", err)
	}
	if info.MimeType != "text/plain" {
		t.Errorf("MimeType = %q, want inferred text/plain", info.MimeType)
	}
	if !strings.HasPrefix(info.Path, a.Config().Attachments.Dir) {
		t.Errorf("Path = %q, want under %q", info.Path, a.Config().Attachments.Dir)
	}

	content, err := a.GetAttachmentContent(id)
	if err != nil {
		t.Fatalf("GetAttachmentContent() error = %v", err)
	}
	if content != "hello" {
		t.Errorf("GetAttachmentContent() = %q, want %q", content, "hello")
	}

	if err := a.DeleteAttachment(id); err != nil {
		t.Fatalf("DeleteAttachment() error = %v", err)
	}
	if _, err := a.GetAttachment(id); !errors.Is(err, px.ErrNotFound) {
		t.Errorf("GetAttachment() after delete error = %v, want ErrNotFound", err)
	}
	if !a.Operation().Failed() {
		t.Error("operation should record the failed lookup")
	}
}

func TestApp_SaveAttachmentFile(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), func(c *config.Config) {
		c.Metadata.Type = "sqlite"
		c.Metadata.Path = ""
	})
	src := writeResource(t, t.TempDir(), "notes.md", "# Notes")

	id, err := a.SaveAttachmentFile(src, "")
	if err != nil {
		t.Fatalf("SaveAttachmentFile() error = %v", err)
	}
	info, err := a.GetAttachment(id)
	if err != nil {
		t.Fatalf("GetAttachment() error = %v", err)
	}
	if info.Name != "notes.md" || info.Ext != ".md" {
		t.Errorf("record = %+v, want name notes.md ext .md", info.AttachmentRecord)
	}
	if a.Operation().Parameters != src {
		t.Errorf("Parameters = %q, want %q", a.Operation().Parameters, src)
	}
}

func TestApp_CleanupOldFiles(t *testing.T) {
	clock := testutil.FixedClock()
	a := newTestApp(t, clock, func(c *config.Config) {
		c.Attachments.MaxAgeDays = 7
	})

	oldID, err := a.SaveAttachment([]byte("old"), "old.txt", "text/plain")
	if err != nil {
		t.Fatalf("SaveAttachment() error = %v", err)
	}
	clock.Advance(8 * 24 * time.Hour)
	newID, err := a.SaveAttachment([]byte("new"), "new.txt", "text/plain")
	if err != nil {
		t.Fatalf("SaveAttachment() error = %v", err)
	}

	n, err := a.CleanupOldFiles()
	if err != nil {
		t.Fatalf("CleanupOldFiles() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupOldFiles() = %d, want 1", n)
	}
	if _, err := a.GetAttachment(oldID); !errors.Is(err, px.ErrNotFound) {
		t.Errorf("old attachment error = %v, want ErrNotFound", err)
	}
	if _, err := a.GetAttachment(newID); err != nil {
		t.Errorf("new attachment error = %v", err)
	}
}

func TestApp_EncryptedAttachments(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), func(c *config.Config) {
		c.Encryption.Type = "test"
	})
	if !a.EncryptionEnabled() {
		t.Fatal("EncryptionEnabled() = false")
	}
	if err := a.SetupKeys("secret"); err != nil {
		t.Fatalf("SetupKeys() error = %v", err)
	}

	id, err := a.SaveAttachment([]byte("classified"), "c.txt", "text/plain")
	if err != nil {
		t.Fatalf("SaveAttachment() error = %v", err)
	}
	if _, err := a.GetAttachmentContent(id); !errors.Is(err, px.ErrLocked) {
		t.Fatalf("GetAttachmentContent() before unlock error = %v, want ErrLocked", err)
	}
	if err := a.Unlock("secret"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	got, err := a.GetAttachmentContent(id)
	if err != nil {
		t.Fatalf("GetAttachmentContent() error = %v", err)
	}
	if got != "classified" {
		t.Errorf("GetAttachmentContent() = %q, want %q", got, "classified")
	}
}

func TestApp_SetupKeysWithoutEncryption(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), nil)
	if err := a.SetupKeys("secret"); !errors.Is(err, ErrEncryptionDisabled) {
		t.Errorf("SetupKeys() error = %v, want ErrEncryptionDisabled", err)
	}
	if err := a.Unlock("anything"); err != nil {
		t.Errorf("Unlock() without encryption error = %v", err)
	}
}

func TestApp_Resources(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), func(c *config.Config) {
		c.Resources.DisplayNames = map[string]string{"tool": "Toolbox"}
	})
	root := a.Config().Resources.Root
	writeResource(t, root, "role/architect/architect.role.md", "---\ndescription: Designs systems\n---\n# Architect")
	writeResource(t, root, "role/architect/execution/plan.md", "# Plan\nStep by step")
	writeResource(t, root, "tool/web-search/manual.md", "How to search")
	writeResource(t, root, "tool/web-search/draft.md.swp", "swap")
	writeResource(t, root, "README.md", "Top level")

	records, err := a.ScanResources(model.CategoryPromptX)
	if err != nil {
		t.Fatalf("ScanResources() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("ScanResources() returned %d records, want 4 (swap file ignored)", len(records))
	}

	byName := map[string]*model.ResourceRecord{}
	for _, r := range records {
		byName[r.Name] = r
	}
	if got := byName["plan.md"].Protocol; got != model.ProtocolExecution {
		t.Errorf("plan.md protocol = %q, want execution", got)
	}
	if got := byName["manual.md"].Protocol; got != model.ProtocolManual {
		t.Errorf("manual.md protocol = %q, want manual", got)
	}
	if got := byName["architect.role.md"].Description; got != "Designs systems" {
		t.Errorf("architect description = %q, want frontmatter description", got)
	}

	none, err := a.ScanResources("other")
	if err != nil {
		t.Fatalf("ScanResources(other) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ScanResources(other) = %d records, want 0", len(none))
	}

	tree, err := a.BuildResourceTree(model.CategoryPromptX)
	if err != nil {
		t.Fatalf("BuildResourceTree() error = %v", err)
	}
	if len(tree) != 3 {
		t.Fatalf("tree has %d top-level nodes, want 3", len(tree))
	}
	if tree[0].Title != "Roles" || len(tree[0].Children) != 2 {
		t.Errorf("first node = %q with %d children, want Roles with 2", tree[0].Title, len(tree[0].Children))
	}
	if tree[1].Title != "Toolbox" {
		t.Errorf("second node title = %q, want configured Toolbox", tree[1].Title)
	}
	if !tree[2].IsLeaf || tree[2].Title != "README.md" {
		t.Errorf("third node = %+v, want README.md leaf", tree[2])
	}

	stats, err := a.GetResourceStats()
	if err != nil {
		t.Fatalf("GetResourceStats() error = %v", err)
	}
	if stats.Total != 4 || stats.ByFolder["role"] != 2 || stats.ByProtocol[model.ProtocolRole] != 2 {
		t.Errorf("GetResourceStats() = %+v", stats)
	}

	id := byName["manual.md"].ID
	if err := a.UpdateResourceContent(id, "Updated manual"); err != nil {
		t.Fatalf("UpdateResourceContent() error = %v", err)
	}
	got, err := a.ReadResourceContent(id)
	if err != nil {
		t.Fatalf("ReadResourceContent() error = %v", err)
	}
	if got != "Updated manual" {
		t.Errorf("ReadResourceContent() = %q, want %q", got, "Updated manual")
	}

	var verr *px.ValidationError
	if err := a.UpdateResourceContent("missing", "x"); !errors.As(err, &verr) {
		t.Errorf("UpdateResourceContent(missing) error = %v, want ValidationError", err)
	}
}

func TestApp_MissingResourceRoot(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), nil)

	records, err := a.ScanResources("")
	if err != nil {
		t.Fatalf("ScanResources() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ScanResources() = %d records, want 0", len(records))
	}
	tree, err := a.BuildResourceTree("")
	if err != nil {
		t.Fatalf("BuildResourceTree() error = %v", err)
	}
	if len(tree) != 0 {
		t.Errorf("BuildResourceTree() = %d nodes, want 0", len(tree))
	}
}

func TestApp_WatchResources(t *testing.T) {
	a := newTestApp(t, testutil.FixedClock(), nil)
	root := a.Config().Resources.Root
	writeResource(t, root, "role/writer/writer.role.md", "# Writer")

	ctx, cancel := context.WithCancel(context.Background())
	scans := make(chan int, 8)
	done := make(chan error, 1)
	go func() {
		done <- a.WatchResources(ctx, model.CategoryPromptX, 20*time.Millisecond, func(records []*model.ResourceRecord, err error) {
			if err == nil {
				scans <- len(records)
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	writeResource(t, root, "role/writer/writer.thought.md", "thinking")

	select {
	case n := <-scans:
		if n != 2 {
			t.Errorf("rescan found %d records, want 2", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rescan")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("WatchResources() error = %v", err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Metadata.Type = "mongo"
	if _, err := newApp(context.Background(), cfg, "Test", nil, px.RealClock{}, px.UUIDGenerator{}); err == nil {
		t.Fatal("newApp() expected error for unknown metadata type")
	}
}

func TestNewApp_LogsOperationID(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	a, err := newApp(context.Background(), cfg, "SaveAttachment", nil, testutil.FixedClock(), testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	if _, err := a.SaveAttachment([]byte("x"), "x.txt", ""); err != nil {
		t.Fatalf("SaveAttachment() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "\top-1\tattachment saved") {
		t.Errorf("log missing tagged save line:\n%s", data)
	}
	if !strings.Contains(string(data), "operation finished") {
		t.Errorf("log missing operation summary:\n%s", data)
	}
}
