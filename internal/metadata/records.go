package metadata

import (
	"pxs/internal/model"
	"pxs/internal/px"
)

// Helpers shared by the slice-backed stores. Records handed out are copies
// so callers cannot mutate stored state.

func cloneRecord(r *model.AttachmentRecord) *model.AttachmentRecord {
	c := *r
	return &c
}

func findOne(records []*model.AttachmentRecord, q px.Query) *model.AttachmentRecord {
	for _, r := range records {
		if q.Match(r) {
			return cloneRecord(r)
		}
	}
	return nil
}

func findMany(records []*model.AttachmentRecord, q px.Query) []*model.AttachmentRecord {
	var out []*model.AttachmentRecord
	for _, r := range records {
		if q.Match(r) {
			out = append(out, cloneRecord(r))
		}
	}
	return out
}

// without returns a new slice lacking the records matching q.
func without(records []*model.AttachmentRecord, q px.Query) ([]*model.AttachmentRecord, int) {
	kept := make([]*model.AttachmentRecord, 0, len(records))
	for _, r := range records {
		if !q.Match(r) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}
