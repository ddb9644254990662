package px

import (
	"strings"

	"pxs/internal/model"
)

// DefaultDisplayNames maps top-level folder names to display titles.
var DefaultDisplayNames = map[string]string{
	"role":      "Roles",
	"thought":   "Thoughts",
	"execution": "Executions",
	"tool":      "Tools",
	"manual":    "Manuals",
	"system":    "System",
	"user":      "User",
	"project":   "Project",
}

// BuildResourceTree groups records under one folder node per distinct
// first folder segment. Deeper nesting is flattened: every record is a
// direct child of its top-level folder. Records at the root follow the
// folders as top-level leaves. titles overrides DefaultDisplayNames.
func BuildResourceTree(records []*model.ResourceRecord, titles map[string]string) []*model.ResourceTreeNode {
	return buildTree(records, titles, 1)
}

// BuildNestedResourceTree builds one folder node per distinct folder path
// prefix, mirroring the directory hierarchy.
func BuildNestedResourceTree(records []*model.ResourceRecord, titles map[string]string) []*model.ResourceTreeNode {
	return buildTree(records, titles, 0)
}

// buildTree folds records into an arena of folder nodes keyed by joined
// path. maxDepth <= 0 means unlimited.
func buildTree(records []*model.ResourceRecord, titles map[string]string, maxDepth int) []*model.ResourceTreeNode {
	folders := make(map[string]*model.ResourceTreeNode)
	var roots, rootLeaves []*model.ResourceTreeNode

	for _, rec := range records {
		segments := rec.FolderPath
		if maxDepth > 0 && len(segments) > maxDepth {
			segments = segments[:maxDepth]
		}

		var parent *model.ResourceTreeNode
		for i := range segments {
			key := strings.Join(segments[:i+1], "/")
			node, ok := folders[key]
			if !ok {
				node = &model.ResourceTreeNode{
					Key:   key,
					Title: displayName(segments[i], titles),
					Type:  model.NodeFolder,
				}
				folders[key] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}

		leaf := leafNode(rec)
		if parent == nil {
			rootLeaves = append(rootLeaves, leaf)
		} else {
			parent.Children = append(parent.Children, leaf)
		}
	}

	return append(roots, rootLeaves...)
}

func leafNode(rec *model.ResourceRecord) *model.ResourceTreeNode {
	return &model.ResourceTreeNode{
		Key:         rec.ID,
		Title:       rec.Name,
		IsLeaf:      true,
		Type:        model.NodeFile,
		Protocol:    rec.Protocol,
		Size:        rec.Size,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Description: rec.Description,
		Resource:    rec,
	}
}

func displayName(segment string, titles map[string]string) string {
	if t, ok := titles[segment]; ok && t != "" {
		return t
	}
	if t, ok := DefaultDisplayNames[segment]; ok {
		return t
	}
	return segment
}
