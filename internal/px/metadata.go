package px

import "pxs/internal/model"

// Query describes which attachment records an operation targets.
// The zero Query matches every record.
type Query struct {
	// ID, when set, matches records with exactly this id.
	ID string

	// byID is set by ByID so that an empty id matches nothing.
	byID bool

	// CreatedBefore, when positive, matches records whose CreatedAt is
	// strictly less than this value (ms since epoch).
	CreatedBefore int64
}

// ByID returns a Query matching a single attachment id.
func ByID(id string) Query {
	return Query{ID: id, byID: true}
}

// CreatedBefore returns a Query matching records older than threshold.
func CreatedBefore(threshold int64) Query {
	return Query{CreatedBefore: threshold}
}

// HasID reports whether the query is restricted to a single id.
func (q Query) HasID() bool {
	return q.ID != "" || q.byID
}

// Match reports whether rec satisfies the query.
func (q Query) Match(rec *model.AttachmentRecord) bool {
	if q.HasID() && rec.ID != q.ID {
		return false
	}
	if q.CreatedBefore > 0 && rec.CreatedAt >= q.CreatedBefore {
		return false
	}
	return true
}

// MetadataStore is a minimal document store of AttachmentRecord rows.
type MetadataStore interface {
	// Initialize loads persisted state. A missing backing document is a valid
	// empty store and is created on the spot.
	Initialize() error

	// Insert appends one record and persists the collection.
	Insert(rec *model.AttachmentRecord) error

	// FindOne returns the first record matching q, or nil if none does.
	FindOne(q Query) (*model.AttachmentRecord, error)

	// FindMany returns every record matching q, in insertion order.
	FindMany(q Query) ([]*model.AttachmentRecord, error)

	// Delete removes every record matching q and persists the collection.
	// Returns the number of records removed.
	Delete(q Query) (int, error)

	// Close releases any underlying resources.
	Close() error
}
