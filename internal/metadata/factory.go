package metadata

import (
	"fmt"
	"path/filepath"

	"pxs/internal/config"
	"pxs/internal/px"
)

// NewMetadataStoreFromConfig creates a MetadataStore based on the metadata
// config type. Without an explicit path the store lives in attachmentsDir.
func NewMetadataStoreFromConfig(cfg config.MetadataConfig, attachmentsDir string, logger px.Logger) (px.MetadataStore, error) {
	switch cfg.Type {
	case "json", "":
		path := cfg.Path
		if path == "" {
			if attachmentsDir == "" {
				return nil, fmt.Errorf("json metadata store requires a path")
			}
			path = filepath.Join(attachmentsDir, "metadata.json")
		}
		return NewJSONMetadataStore(path, logger), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			if attachmentsDir == "" {
				return nil, fmt.Errorf("sqlite metadata store requires a path")
			}
			path = filepath.Join(attachmentsDir, "metadata.db")
		}
		return NewSQLiteMetadataStore(path)
	case "memory":
		return NewMemoryMetadataStore(), nil
	default:
		return nil, fmt.Errorf("unknown metadata store type: %s", cfg.Type)
	}
}
