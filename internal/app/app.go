package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pxs/internal/blobstore"
	"pxs/internal/config"
	"pxs/internal/encryption"
	"pxs/internal/fs"
	"pxs/internal/metadata"
	"pxs/internal/model"
	"pxs/internal/px"
	"pxs/internal/watch"
)

// ErrEncryptionDisabled is returned by key operations when encryption.type
// is "none".
var ErrEncryptionDisabled = errors.New("encryption is not enabled")

// App is the application layer between the CLI and the core components.
// It constructs all dependencies from config, exposes high-level operations,
// and releases the metadata store and log file on Close.
type App struct {
	cfg         *config.Config
	metadata    px.MetadataStore
	blobs       px.BlobStore
	encryptor   px.Encryptor
	attachments *px.AttachmentStore
	indexer     *px.ResourceIndexer
	ignorer     *fs.IgnoreMatcher
	logger      px.Logger
	clock       px.Clock
	op          *Operation
	logFile     *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "SaveAttachment").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	return newApp(ctx, cfg, operation, os.Stderr, px.RealClock{}, px.UUIDGenerator{})
}

func newApp(ctx context.Context, cfg *config.Config, operation string, console *os.File, clock px.Clock, ids px.IDGenerator) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := NewOperation(ids.New(), operation, "", clock.Now())
	sl, logFile, err := newLogger(cfg.LogDir, op.ID, cfg.LogLevel, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	a := &App{cfg: cfg, logger: logger, clock: clock, op: op, logFile: logFile}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug("operation started", "operation", operation)
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	store, err := metadata.NewMetadataStoreFromConfig(cfg.Metadata, cfg.Attachments.Dir, a.logger)
	if err != nil {
		return fmt.Errorf("creating metadata store: %w", err)
	}
	a.metadata = store
	if err := store.Initialize(); err != nil {
		return fmt.Errorf("initializing metadata store: %w", err)
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(ctx, cfg.Blobs, cfg.Attachments.Dir)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	if err := blobs.ValidateSetup(); err != nil {
		return fmt.Errorf("blob store not usable: %w", err)
	}
	a.blobs = blobs

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	a.attachments = px.NewAttachmentStore(store, blobs, enc, a.logger, a.clock, px.AttachmentOptions{
		AllowDuplicates: cfg.Attachments.AllowDuplicates,
	})

	ignorer, err := fs.LoadIgnoreMatcher(cfg.Resources.Root, cfg.Resources.Ignore)
	if err != nil {
		return fmt.Errorf("loading ignore patterns: %w", err)
	}
	a.ignorer = ignorer
	a.indexer = px.NewResourceIndexer(fs.NewOSFilesystemManager(), cfg.Resources.Root, ignorer, a.logger)
	return nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Operation returns the operation this App is running.
func (a *App) Operation() *Operation {
	return a.op
}

// SaveAttachment stores content and returns its id. An empty mimeType is
// inferred from name.
func (a *App) SaveAttachment(content []byte, name, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = px.MimeTypeForName(name)
	}
	id, err := a.attachments.SaveAttachment(content, px.AttachmentMeta{Name: name, MimeType: mimeType})
	return id, a.op.Record(err)
}

// SaveAttachmentFile reads the file at rawPath and stores it under its base name.
func (a *App) SaveAttachmentFile(rawPath, mimeType string) (string, error) {
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return "", a.op.Record(fmt.Errorf("resolving path: %w", err))
	}
	content, err := os.ReadFile(p)
	if err != nil {
		return "", a.op.Record(fmt.Errorf("reading %s: %w", p, err))
	}
	a.op.Parameters = p
	return a.SaveAttachment(content, filepath.Base(p), mimeType)
}

// GetAttachment returns the record and blob location for id.
func (a *App) GetAttachment(id string) (*px.AttachmentInfo, error) {
	info, err := a.attachments.GetAttachment(id)
	return info, a.op.Record(err)
}

// GetAttachmentContent returns the attachment as text, data URI or a
// binary placeholder.
func (a *App) GetAttachmentContent(id string) (string, error) {
	content, err := a.attachments.GetAttachmentContent(id)
	return content, a.op.Record(err)
}

// DeleteAttachment removes an attachment. Unknown ids are a no-op.
func (a *App) DeleteAttachment(id string) error {
	return a.op.Record(a.attachments.DeleteAttachment(id))
}

// CleanupOldFiles removes attachments older than attachments.max_age_days.
func (a *App) CleanupOldFiles() (int, error) {
	n, err := a.attachments.CleanupOldFiles(a.cfg.Attachments.MaxAge())
	return n, a.op.Record(err)
}

// Unlock unlocks the private key so encrypted attachments can be read.
func (a *App) Unlock(passphrase string) error {
	return a.op.Record(a.attachments.Unlock(passphrase))
}

// EncryptionEnabled reports whether attachments are encrypted at rest.
func (a *App) EncryptionEnabled() bool {
	return a.encryptor != nil
}

// SetupKeys generates the encryption key pair protected by passphrase.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return a.op.Record(ErrEncryptionDisabled)
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return a.op.Record(fmt.Errorf("setting up keys: %w", err))
	}
	a.logger.Info("encryption keys created",
		"public_key", a.cfg.Encryption.PublicKeyPath,
		"private_key", a.cfg.Encryption.PrivateKeyPath)
	return nil
}

// ScanResources returns the resources of the given category. An empty
// category returns everything.
func (a *App) ScanResources(category string) ([]*model.ResourceRecord, error) {
	records, err := a.indexer.ScanResources(category)
	if err != nil {
		return nil, a.op.Record(err)
	}
	a.logger.Info("resources scanned", "root", a.indexer.Root(), "category", category, "count", len(records))
	return records, nil
}

// BuildResourceTree scans and groups resources into the two-level tree,
// titled with the configured display names.
func (a *App) BuildResourceTree(category string) ([]*model.ResourceTreeNode, error) {
	records, err := a.ScanResources(category)
	if err != nil {
		return nil, err
	}
	return px.BuildResourceTree(records, a.cfg.Resources.DisplayNames), nil
}

// BuildNestedResourceTree is BuildResourceTree without the depth cap.
func (a *App) BuildNestedResourceTree(category string) ([]*model.ResourceTreeNode, error) {
	records, err := a.ScanResources(category)
	if err != nil {
		return nil, err
	}
	return px.BuildNestedResourceTree(records, a.cfg.Resources.DisplayNames), nil
}

// GetResourceStats summarizes every resource under the root.
func (a *App) GetResourceStats() (model.ResourceStats, error) {
	records, err := a.ScanResources("")
	if err != nil {
		return model.ResourceStats{}, err
	}
	return a.indexer.Stats(records), nil
}

// ReadResourceContent returns the text of the resource with the given id.
func (a *App) ReadResourceContent(id string) (string, error) {
	content, err := a.indexer.ReadResourceContent(id)
	return content, a.op.Record(err)
}

// UpdateResourceContent overwrites the resource with the given id.
func (a *App) UpdateResourceContent(id, text string) error {
	return a.op.Record(a.indexer.UpdateResourceContent(id, text))
}

// WatchResources rescans whenever files under the resource root change and
// passes each fresh result to onScan. It blocks until ctx is done.
func (a *App) WatchResources(ctx context.Context, category string, debounce time.Duration, onScan func([]*model.ResourceRecord, error)) error {
	w := watch.New(a.indexer.Root(), a.ignorer, debounce, a.logger)
	err := w.Run(ctx, func() {
		onScan(a.ScanResources(category))
	})
	return a.op.Record(err)
}

// Close releases the metadata store and log file. The operation outcome is
// logged before the log file closes.
func (a *App) Close() error {
	var errs []error
	if a.metadata != nil {
		if err := a.metadata.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing metadata store: %w", err))
		}
	}

	if a.logger != nil && a.op != nil {
		a.logger.Debug("operation finished",
			"operation", a.op.Name,
			"status", a.op.Status,
			"elapsed", a.clock.Now().Sub(a.op.StartedAt).String())
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
