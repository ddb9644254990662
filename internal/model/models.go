package model

import "time"

// CategoryPromptX is the only category the resource indexer produces.
const CategoryPromptX = "promptx"

// AttachmentRecord describes one stored blob.
// The ID is derived from the content, not generated.
type AttachmentRecord struct {
	ID        string `json:"id"`        // first 16 hex chars of SHA-256(content)
	Name      string `json:"name"`      // original filename as supplied
	Size      int64  `json:"size"`      // plaintext byte length
	MimeType  string `json:"mimeType"`  // caller-supplied content type
	Ext       string `json:"ext"`       // resolved extension, with leading dot
	CreatedAt int64  `json:"createdAt"` // ms since epoch
	Encrypted bool   `json:"encrypted,omitempty"`
}

// Created returns CreatedAt as a time.Time.
func (r *AttachmentRecord) Created() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Protocol is the functional category of a resource.
type Protocol string

const (
	ProtocolRole      Protocol = "role"
	ProtocolThought   Protocol = "thought"
	ProtocolExecution Protocol = "execution"
	ProtocolTool      Protocol = "tool"
	ProtocolManual    Protocol = "manual"
)

// Source is the provenance tier of a resource.
type Source string

const (
	SourceSystem  Source = "system"
	SourceProject Source = "project"
	SourceUser    Source = "user"
)

// ResourceRecord is one classified file found under the resource root.
type ResourceRecord struct {
	ID           string    `json:"id"` // derived from Path, not content
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Type         string    `json:"type"`
	Category     string    `json:"category"`
	Protocol     Protocol  `json:"protocol"`
	Source       Source    `json:"source"`
	Reference    string    `json:"reference"`
	FolderPath   []string  `json:"folderPath"`
	ParentFolder string    `json:"parentFolder,omitempty"`
	Depth        int       `json:"depth"`
	IsLeaf       bool      `json:"isLeaf"`
	Description  string    `json:"description,omitempty"`
}

// TopFolder returns the first FolderPath segment, or "" for files
// directly under the root.
func (r *ResourceRecord) TopFolder() string {
	if len(r.FolderPath) == 0 {
		return ""
	}
	return r.FolderPath[0]
}

// NodeType distinguishes folder nodes from file nodes in a resource tree.
type NodeType string

const (
	NodeFolder NodeType = "folder"
	NodeFile   NodeType = "file"
)

// ResourceTreeNode is a presentation-oriented grouping of resources.
type ResourceTreeNode struct {
	Key      string              `json:"key"`
	Title    string              `json:"title"`
	IsLeaf   bool                `json:"isLeaf"`
	Type     NodeType            `json:"type"`
	Children []*ResourceTreeNode `json:"children,omitempty"`

	// Leaf-only fields.
	Protocol    Protocol        `json:"protocol,omitempty"`
	Size        int64           `json:"size,omitempty"`
	CreatedAt   time.Time       `json:"createdAt,omitzero"`
	UpdatedAt   time.Time       `json:"updatedAt,omitzero"`
	Description string          `json:"description,omitempty"`
	Resource    *ResourceRecord `json:"resource,omitempty"`
}

// ResourceStats summarizes a scan.
type ResourceStats struct {
	Total      int              `json:"total"`
	TotalSize  int64            `json:"totalSize"`
	ByProtocol map[Protocol]int `json:"byProtocol"`
	BySource   map[Source]int   `json:"bySource"`
	ByFolder   map[string]int   `json:"byFolder"`
}
