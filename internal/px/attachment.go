package px

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pxs/internal/model"
)

// DefaultMaxAge is the retention used by CleanupOldFiles when none is given.
const DefaultMaxAge = 30 * 24 * time.Hour

// idLength is the number of hex characters of the digest kept as the id.
const idLength = 16

// ContentID returns the attachment id for content: the first 16 hex
// characters of its SHA-256 digest.
func ContentID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:idLength]
}

// AttachmentMeta is the caller-supplied description of an upload.
type AttachmentMeta struct {
	Name     string
	MimeType string
}

// AttachmentInfo is a record together with the resolved blob location.
type AttachmentInfo struct {
	model.AttachmentRecord
	Filename string // blob name inside the blob store
	Path     string // physical location reported by the blob store
}

// AttachmentOptions tunes AttachmentStore behavior.
type AttachmentOptions struct {
	// AllowDuplicates writes a second blob and row when identical content
	// is saved again. By default the existing id is returned instead.
	AllowDuplicates bool
}

// AttachmentStore is content-addressed storage for attachment blobs.
// Metadata lives in a MetadataStore, bytes in a BlobStore.
type AttachmentStore struct {
	metadata  MetadataStore
	blobs     BlobStore
	encryptor Encryptor // nil when blobs are stored in plaintext
	logger    Logger
	clock     Clock
	opts      AttachmentOptions

	mu         sync.RWMutex
	decryption DecryptionContext
}

// NewAttachmentStore creates an AttachmentStore. encryptor may be nil.
func NewAttachmentStore(metadata MetadataStore, blobs BlobStore, encryptor Encryptor, logger Logger, clock Clock, opts AttachmentOptions) *AttachmentStore {
	return &AttachmentStore{
		metadata:  metadata,
		blobs:     blobs,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		opts:      opts,
	}
}

// Unlock unlocks the encryptor's private key so encrypted blobs can be read.
func (s *AttachmentStore) Unlock(passphrase string) error {
	if s.encryptor == nil {
		return nil
	}
	ctx, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking encryption key: %w", err)
	}
	s.mu.Lock()
	s.decryption = ctx
	s.mu.Unlock()
	return nil
}

// SaveAttachment stores content and returns its content-derived id.
func (s *AttachmentStore) SaveAttachment(content []byte, meta AttachmentMeta) (string, error) {
	id := ContentID(content)

	if !s.opts.AllowDuplicates {
		existing, err := s.metadata.FindOne(ByID(id))
		if err != nil {
			return "", fmt.Errorf("checking for existing attachment: %w", err)
		}
		if existing != nil {
			s.logger.Debug("attachment already stored", "id", id, "name", meta.Name)
			return id, nil
		}
	}

	now := s.clock.Now().UnixMilli()
	rec := &model.AttachmentRecord{
		ID:        id,
		Name:      meta.Name,
		Size:      int64(len(content)),
		MimeType:  meta.MimeType,
		Ext:       ResolveExt(meta.Name, meta.MimeType),
		CreatedAt: now,
	}
	filename := fmt.Sprintf("%d_%s%s", now, id, rec.Ext)

	payload := content
	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(content), &buf); err != nil {
			return "", fmt.Errorf("encrypting attachment: %w", err)
		}
		payload = buf.Bytes()
		rec.Encrypted = true
	}

	if err := s.blobs.Put(filename, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return "", fmt.Errorf("writing attachment blob: %w", err)
	}
	if err := s.metadata.Insert(rec); err != nil {
		return "", fmt.Errorf("recording attachment metadata: %w", err)
	}

	s.logger.Info("attachment saved", "id", id, "name", meta.Name, "size", rec.Size, "file", filename)
	return id, nil
}

// GetAttachment returns the record for id and the location of its blob.
// A record whose blob has gone missing is reported as not found.
func (s *AttachmentStore) GetAttachment(id string) (*AttachmentInfo, error) {
	if id == "" {
		return nil, notFound("attachment", id)
	}
	rec, err := s.metadata.FindOne(ByID(id))
	if err != nil {
		return nil, fmt.Errorf("finding attachment: %w", err)
	}
	if rec == nil {
		return nil, notFound("attachment", id)
	}

	names, err := s.blobNames(id)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		s.logger.Warn("attachment metadata has no blob", "id", id, "name", rec.Name)
		return nil, notFound("attachment", id)
	}

	return &AttachmentInfo{
		AttachmentRecord: *rec,
		Filename:         names[0],
		Path:             s.blobs.Locate(names[0]),
	}, nil
}

// GetAttachmentContent returns the attachment as text, as a base64 data URI
// for images, or as a one-line description for other binary content.
func (s *AttachmentStore) GetAttachmentContent(id string) (string, error) {
	info, err := s.GetAttachment(id)
	if err != nil {
		return "", err
	}

	switch {
	case isText(info.MimeType, info.Ext):
		data, err := s.readBlob(info)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case isImage(info.MimeType):
		data, err := s.readBlob(info)
		if err != nil {
			return "", err
		}
		return "data:" + baseMime(info.MimeType) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	default:
		return fmt.Sprintf("[Binary file: %s (%s, %s)]", info.Name, info.MimeType, FormatSize(info.Size)), nil
	}
}

// DeleteAttachment removes every blob and row for id.
// Deleting an unknown id is a no-op.
func (s *AttachmentStore) DeleteAttachment(id string) error {
	if id == "" {
		return nil
	}
	rec, err := s.metadata.FindOne(ByID(id))
	if err != nil {
		return fmt.Errorf("finding attachment: %w", err)
	}
	if rec == nil {
		return nil
	}

	names, err := s.blobNames(id)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.blobs.Remove(name); err != nil {
			return fmt.Errorf("removing blob %s: %w", name, err)
		}
	}

	removed, err := s.metadata.Delete(ByID(id))
	if err != nil {
		return fmt.Errorf("deleting attachment metadata: %w", err)
	}

	s.logger.Info("attachment deleted", "id", id, "blobs", len(names), "rows", removed)
	return nil
}

// CleanupOldFiles deletes attachments created more than maxAge ago.
// A failure on one attachment is logged and the sweep continues.
// Returns the number of attachments removed.
func (s *AttachmentStore) CleanupOldFiles(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	threshold := s.clock.Now().Add(-maxAge).UnixMilli()

	old, err := s.metadata.FindMany(CreatedBefore(threshold))
	if err != nil {
		return 0, fmt.Errorf("finding expired attachments: %w", err)
	}

	removed := 0
	seen := make(map[string]bool, len(old))
	for _, rec := range old {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		if err := s.DeleteAttachment(rec.ID); err != nil {
			s.logger.Error("cleanup failed for attachment", "id", rec.ID, "error", err)
			continue
		}
		removed++
	}

	s.logger.Info("attachment cleanup finished", "removed", removed, "candidates", len(seen), "max_age", maxAge.String())
	return removed, nil
}

// blobNames scans the blob store for blobs named {ts}_{id}{ext}.
func (s *AttachmentStore) blobNames(id string) ([]string, error) {
	all, err := s.blobs.List()
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	var names []string
	for _, name := range all {
		if blobIDOf(name) == id {
			names = append(names, name)
		}
	}
	return names, nil
}

// blobIDOf returns the id part of a blob name, or "" when name is not
// shaped like {ts}_{id}{ext}.
func blobIDOf(name string) string {
	ts, rest, ok := strings.Cut(name, "_")
	if !ok || ts == "" || strings.Trim(ts, "0123456789") != "" {
		return ""
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// readBlob returns the plaintext bytes of an attachment.
func (s *AttachmentStore) readBlob(info *AttachmentInfo) ([]byte, error) {
	r, err := s.blobs.Open(info.Filename)
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	defer r.Close()

	if !info.Encrypted {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading blob: %w", err)
		}
		return data, nil
	}

	s.mu.RLock()
	dec := s.decryption
	s.mu.RUnlock()
	if dec == nil {
		return nil, fmt.Errorf("attachment %s: %w", info.ID, ErrLocked)
	}

	var buf bytes.Buffer
	if err := dec.Decrypt(r, &buf); err != nil {
		return nil, fmt.Errorf("decrypting blob: %w", err)
	}
	return buf.Bytes(), nil
}
