package px

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"pxs/internal/model"
)

// resourceNamespace seeds the name-based UUIDs used as resource ids.
var resourceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pxs:resource"))

// ResourceID derives a resource id from its filesystem path.
// Two files with identical content get different ids; moving a file
// changes its id.
func ResourceID(path string) string {
	return uuid.NewSHA1(resourceNamespace, []byte(path)).String()
}

// Ignorer decides whether a root-relative path is left out of the catalog.
type Ignorer interface {
	Match(relativePath string) bool
}

// ResourceIndexer turns the directory tree under root into a flat list of
// classified resources. Every call re-scans; nothing is cached.
type ResourceIndexer struct {
	fsmgr   FilesystemManager
	root    string
	ignorer Ignorer // may be nil
	logger  Logger
}

// NewResourceIndexer creates an indexer over root. ignorer may be nil.
func NewResourceIndexer(fsmgr FilesystemManager, root string, ignorer Ignorer, logger Logger) *ResourceIndexer {
	return &ResourceIndexer{
		fsmgr:   fsmgr,
		root:    filepath.Clean(root),
		ignorer: ignorer,
		logger:  logger,
	}
}

// Root returns the directory being indexed.
func (x *ResourceIndexer) Root() string {
	return x.root
}

// Scan walks the resource root depth-first. A missing root yields an empty
// list. Unreadable subdirectories and files are logged and skipped.
func (x *ResourceIndexer) Scan() ([]*model.ResourceRecord, error) {
	info, err := x.fsmgr.Stat(x.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			x.logger.Debug("resource root does not exist", "root", x.root)
			return []*model.ResourceRecord{}, nil
		}
		return nil, fmt.Errorf("stat resource root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resource root is not a directory: %s", x.root)
	}

	records := []*model.ResourceRecord{}
	x.scanDir(x.root, nil, &records)
	x.logger.Debug("resource scan finished", "root", x.root, "count", len(records))
	return records, nil
}

// ScanResources scans and keeps only records of the given category.
// An empty category keeps everything.
func (x *ResourceIndexer) ScanResources(category string) ([]*model.ResourceRecord, error) {
	records, err := x.Scan()
	if err != nil {
		return nil, err
	}
	if category == "" {
		return records, nil
	}
	filtered := make([]*model.ResourceRecord, 0, len(records))
	for _, r := range records {
		if r.Category == category {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (x *ResourceIndexer) scanDir(dir string, folderPath []string, out *[]*model.ResourceRecord) {
	entries, err := x.fsmgr.ReadDir(dir)
	if err != nil {
		x.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if x.ignored(folderPath, name) {
			continue
		}
		full := filepath.Join(dir, name)

		if entry.IsDir() {
			x.scanDir(full, append(slicesClone(folderPath), name), out)
			continue
		}

		rec, err := x.buildRecord(full, folderPath, name)
		if err != nil {
			x.logger.Warn("skipping unreadable file", "path", full, "error", err)
			continue
		}
		*out = append(*out, rec)
	}
}

func (x *ResourceIndexer) ignored(folderPath []string, name string) bool {
	if x.ignorer == nil {
		return false
	}
	rel := path.Join(append(slicesClone(folderPath), name)...)
	return x.ignorer.Match(filepath.FromSlash(rel))
}

func (x *ResourceIndexer) buildRecord(full string, folderPath []string, name string) (*model.ResourceRecord, error) {
	info, err := x.fsmgr.Stat(full)
	if err != nil {
		return nil, err
	}
	times := x.fsmgr.ExtractTimes(info)
	protocol := ClassifyProtocol(folderPath, name)

	rec := &model.ResourceRecord{
		ID:         ResourceID(full),
		Name:       name,
		Path:       full,
		Size:       info.Size(),
		CreatedAt:  times.CreatedAt,
		UpdatedAt:  times.UpdatedAt,
		Type:       MimeTypeForName(name),
		Category:   model.CategoryPromptX,
		Protocol:   protocol,
		Source:     ClassifySource(folderPath),
		Reference:  ReferenceURI(protocol, folderPath, name),
		FolderPath: slicesClone(folderPath),
		Depth:      len(folderPath),
		IsLeaf:     true,
	}
	if len(folderPath) > 0 {
		rec.ParentFolder = folderPath[len(folderPath)-1]
	}

	if data, err := x.fsmgr.ReadFile(full); err != nil {
		x.logger.Debug("no description for resource", "path", full, "error", err)
	} else {
		rec.Description = ExtractDescription(string(data))
	}
	return rec, nil
}

// Stats summarizes a list of resources.
func (x *ResourceIndexer) Stats(records []*model.ResourceRecord) model.ResourceStats {
	stats := model.ResourceStats{
		ByProtocol: make(map[model.Protocol]int),
		BySource:   make(map[model.Source]int),
		ByFolder:   make(map[string]int),
	}
	for _, r := range records {
		stats.Total++
		stats.TotalSize += r.Size
		stats.ByProtocol[r.Protocol]++
		stats.BySource[r.Source]++
		if top := r.TopFolder(); top != "" {
			stats.ByFolder[top]++
		}
	}
	return stats
}

// Find re-scans and returns the resource with the given id, or nil.
func (x *ResourceIndexer) Find(id string) (*model.ResourceRecord, error) {
	records, err := x.Scan()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

// ReadResourceContent returns the text of the resource with the given id.
func (x *ResourceIndexer) ReadResourceContent(id string) (string, error) {
	rec, err := x.Find(id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", notFound("resource", id)
	}
	data, err := x.fsmgr.ReadFile(rec.Path)
	if err != nil {
		return "", fmt.Errorf("reading resource %s: %w", id, err)
	}
	return string(data), nil
}

// UpdateResourceContent overwrites the resource with the given id in place.
func (x *ResourceIndexer) UpdateResourceContent(id string, text string) error {
	rec, err := x.Find(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return &ValidationError{ID: id, Reason: "no resource with this id"}
	}
	if err := x.fsmgr.WriteFile(rec.Path, []byte(text)); err != nil {
		return fmt.Errorf("writing resource %s: %w", id, err)
	}
	x.logger.Info("resource updated", "id", id, "path", rec.Path, "size", len(text))
	return nil
}

func slicesClone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
