package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"pxs/internal/model"
	"pxs/internal/px"
)

// document is the on-disk shape of the JSON store.
type document struct {
	Attachments []*model.AttachmentRecord `json:"attachments"`
}

// JSONMetadataStore keeps every attachment record in one JSON document and
// rewrites the whole document on each mutation. Mutations are serialized;
// the in-memory collection only changes after the new document is on disk.
type JSONMetadataStore struct {
	path   string
	logger px.Logger

	mu      sync.Mutex
	records []*model.AttachmentRecord

	// writeFile persists the encoded document. Replaced in tests.
	writeFile func(path string, data []byte) error
}

// NewJSONMetadataStore creates a store backed by the document at path.
// Call Initialize before use.
func NewJSONMetadataStore(path string, logger px.Logger) *JSONMetadataStore {
	return &JSONMetadataStore{
		path:      path,
		logger:    logger,
		writeFile: writeFileAtomic,
	}
}

// Initialize loads the document. A missing document starts an empty
// collection. A document that cannot be parsed is moved aside to
// <path>.corrupt and replaced with an empty one.
func (s *JSONMetadataStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("metadata document not found, starting empty", "path", s.path)
		return s.commit([]*model.AttachmentRecord{})
	case err != nil:
		return fmt.Errorf("reading metadata document: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		aside := s.path + ".corrupt"
		s.logger.Warn("metadata document unreadable, starting empty", "path", s.path, "moved_to", aside, "error", err)
		if err := os.Rename(s.path, aside); err != nil {
			return fmt.Errorf("moving unreadable metadata document aside: %w", err)
		}
		return s.commit([]*model.AttachmentRecord{})
	}

	records := make([]*model.AttachmentRecord, 0, len(doc.Attachments))
	for _, r := range doc.Attachments {
		if r != nil {
			records = append(records, r)
		}
	}
	s.records = records
	s.logger.Debug("metadata document loaded", "path", s.path, "records", len(records))
	return nil
}

func (s *JSONMetadataStore) Insert(rec *model.AttachmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*model.AttachmentRecord, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, cloneRecord(rec))
	return s.commit(next)
}

func (s *JSONMetadataStore) FindOne(q px.Query) (*model.AttachmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findOne(s.records, q), nil
}

func (s *JSONMetadataStore) FindMany(q px.Query) ([]*model.AttachmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findMany(s.records, q), nil
}

func (s *JSONMetadataStore) Delete(q px.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := without(s.records, q)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Close is a no-op; every mutation is already on disk.
func (s *JSONMetadataStore) Close() error {
	return nil
}

// commit persists next and, only on success, makes it the live collection.
// Callers hold s.mu.
func (s *JSONMetadataStore) commit(next []*model.AttachmentRecord) error {
	data, err := json.MarshalIndent(document{Attachments: next}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata document: %w", err)
	}
	if err := s.writeFile(s.path, data); err != nil {
		return fmt.Errorf("writing metadata document: %w", err)
	}
	s.records = next
	return nil
}

// writeFileAtomic writes data to path using a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that JSONMetadataStore implements px.MetadataStore
var _ px.MetadataStore = (*JSONMetadataStore)(nil)
