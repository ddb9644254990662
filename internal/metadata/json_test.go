package metadata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pxs/internal/model"
	"pxs/internal/px"
)

func newTestJSONStore(t *testing.T, path string) *JSONMetadataStore {
	t.Helper()
	s := NewJSONMetadataStore(path, px.NewNopLogger())
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return s
}

func TestJSONMetadataStore(t *testing.T) {
	runMetadataStoreContract(t, func(t *testing.T) px.MetadataStore {
		return newTestJSONStore(t, filepath.Join(t.TempDir(), "metadata.json"))
	})
}

func TestJSONMetadataStore_InitializeCreatesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attachments", "metadata.json")
	newTestJSONStore(t, path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	var doc map[string][]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	if got, ok := doc["attachments"]; !ok || len(got) != 0 {
		t.Errorf("document = %s, want empty attachments array", data)
	}
}

func TestJSONMetadataStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")

	s := newTestJSONStore(t, path)
	if err := s.Insert(record("aaaa", 1000)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert(record("bbbb", 2000)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := s.Delete(px.ByID("aaaa")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	reloaded := newTestJSONStore(t, path)
	all, _ := reloaded.FindMany(px.Query{})
	if len(all) != 1 || all[0].ID != "bbbb" {
		t.Errorf("reloaded records = %v, want [bbbb]", ids(all))
	}
}

func TestJSONMetadataStore_DocumentFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	s := newTestJSONStore(t, path)
	s.Insert(&model.AttachmentRecord{
		ID: "2cf24dba5fb0a30e", Name: "a.txt", Size: 3,
		MimeType: "text/plain", Ext: ".txt", CreatedAt: 1741597200000,
	})

	data, _ := os.ReadFile(path)
	var doc struct {
		Attachments []map[string]any `json:"attachments"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(doc.Attachments) != 1 {
		t.Fatalf("len(attachments) = %d, want 1", len(doc.Attachments))
	}
	row := doc.Attachments[0]
	for _, key := range []string{"id", "name", "size", "mimeType", "ext", "createdAt"} {
		if _, ok := row[key]; !ok {
			t.Errorf("row missing key %q: %v", key, row)
		}
	}
	if _, ok := row["encrypted"]; ok {
		t.Errorf("plaintext row has encrypted key: %v", row)
	}
}

func TestJSONMetadataStore_FailedPersistKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	s := newTestJSONStore(t, path)
	if err := s.Insert(record("aaaa", 1000)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	diskFull := errors.New("no space left on device")
	s.writeFile = func(string, []byte) error { return diskFull }

	if err := s.Insert(record("bbbb", 2000)); !errors.Is(err, diskFull) {
		t.Fatalf("Insert() error = %v, want wrapped disk error", err)
	}
	if got, _ := s.FindOne(px.ByID("bbbb")); got != nil {
		t.Error("failed Insert() left record in memory")
	}

	if _, err := s.Delete(px.ByID("aaaa")); !errors.Is(err, diskFull) {
		t.Fatalf("Delete() error = %v, want wrapped disk error", err)
	}
	if got, _ := s.FindOne(px.ByID("aaaa")); got == nil {
		t.Error("failed Delete() removed record from memory")
	}

	// Memory and disk still agree.
	reloaded := newTestJSONStore(t, path)
	all, _ := reloaded.FindMany(px.Query{})
	if len(all) != 1 || all[0].ID != "aaaa" {
		t.Errorf("on-disk records = %v, want [aaaa]", ids(all))
	}
}

func TestJSONMetadataStore_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := newTestJSONStore(t, path)
	all, _ := s.FindMany(px.Query{})
	if len(all) != 0 {
		t.Errorf("FindMany() = %v, want empty after corrupt document", ids(all))
	}

	aside, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("corrupt document not kept: %v", err)
	}
	if string(aside) != "{not json" {
		t.Errorf("kept document = %q", aside)
	}
}

func TestJSONMetadataStore_DeleteMissingDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	s := newTestJSONStore(t, path)

	writes := 0
	s.writeFile = func(p string, data []byte) error {
		writes++
		return writeFileAtomic(p, data)
	}
	n, err := s.Delete(px.ByID("nothing"))
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 0 || writes != 0 {
		t.Errorf("Delete() = %d with %d writes, want 0 and 0", n, writes)
	}
}
