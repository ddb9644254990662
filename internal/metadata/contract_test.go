package metadata

import (
	"fmt"
	"sync"
	"testing"

	"pxs/internal/model"
	"pxs/internal/px"
)

func record(id string, createdAt int64) *model.AttachmentRecord {
	return &model.AttachmentRecord{
		ID:        id,
		Name:      id + ".txt",
		Size:      3,
		MimeType:  "text/plain",
		Ext:       ".txt",
		CreatedAt: createdAt,
	}
}

// runMetadataStoreContract exercises the behavior every px.MetadataStore
// must share. newStore returns an initialized, empty store.
func runMetadataStoreContract(t *testing.T, newStore func(t *testing.T) px.MetadataStore) {
	t.Run("find on empty store", func(t *testing.T) {
		s := newStore(t)
		got, err := s.FindOne(px.ByID("missing"))
		if err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindOne() = %+v, want nil", got)
		}
		many, err := s.FindMany(px.Query{})
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(many) != 0 {
			t.Errorf("FindMany() returned %d records, want 0", len(many))
		}
	})

	t.Run("empty id matches nothing", func(t *testing.T) {
		s := newStore(t)
		for _, r := range []*model.AttachmentRecord{record("aaaa", 1000), record("bbbb", 2000)} {
			if err := s.Insert(r); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
		}
		got, err := s.FindOne(px.ByID(""))
		if err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindOne(ByID(\"\")) = %+v, want nil", got)
		}
		many, err := s.FindMany(px.ByID(""))
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(many) != 0 {
			t.Errorf("FindMany(ByID(\"\")) returned %d records, want 0", len(many))
		}
		n, err := s.Delete(px.ByID(""))
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if n != 0 {
			t.Errorf("Delete(ByID(\"\")) = %d, want 0", n)
		}
		all, err := s.FindMany(px.Query{})
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("records after Delete(ByID(\"\")) = %d, want 2", len(all))
		}
	})

	t.Run("insert then find by id", func(t *testing.T) {
		s := newStore(t)
		want := record("aaaa", 1000)
		want.Encrypted = true
		if err := s.Insert(want); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		got, err := s.FindOne(px.ByID("aaaa"))
		if err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindOne() = nil, want record")
		}
		if *got != *want {
			t.Errorf("FindOne() = %+v, want %+v", got, want)
		}
	})

	t.Run("find one returns first inserted", func(t *testing.T) {
		s := newStore(t)
		first := record("dup", 1000)
		second := record("dup", 2000)
		second.Name = "second.txt"
		s.Insert(first)
		s.Insert(second)

		got, err := s.FindOne(px.ByID("dup"))
		if err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if got.Name != first.Name {
			t.Errorf("FindOne().Name = %q, want %q", got.Name, first.Name)
		}
	})

	t.Run("find many is strictly before", func(t *testing.T) {
		s := newStore(t)
		s.Insert(record("old", 999))
		s.Insert(record("edge", 1000))
		s.Insert(record("new", 1001))

		got, err := s.FindMany(px.CreatedBefore(1000))
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "old" {
			t.Errorf("FindMany(CreatedBefore(1000)) = %v, want only old", ids(got))
		}

		all, err := s.FindMany(px.Query{})
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(all) != 3 {
			t.Errorf("FindMany(zero query) returned %d records, want 3", len(all))
		}
		if all[0].ID != "old" || all[2].ID != "new" {
			t.Errorf("FindMany() order = %v, want insertion order", ids(all))
		}
	})

	t.Run("delete removes all matching rows", func(t *testing.T) {
		s := newStore(t)
		s.Insert(record("dup", 1000))
		s.Insert(record("keep", 1000))
		s.Insert(record("dup", 2000))

		n, err := s.Delete(px.ByID("dup"))
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if n != 2 {
			t.Errorf("Delete() = %d, want 2", n)
		}
		if got, _ := s.FindOne(px.ByID("dup")); got != nil {
			t.Error("record still present after Delete()")
		}
		if got, _ := s.FindOne(px.ByID("keep")); got == nil {
			t.Error("unrelated record removed by Delete()")
		}

		n, err = s.Delete(px.ByID("dup"))
		if err != nil {
			t.Fatalf("second Delete() error = %v", err)
		}
		if n != 0 {
			t.Errorf("second Delete() = %d, want 0", n)
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := newStore(t)
		rec := record("aaaa", 1000)
		s.Insert(rec)
		rec.Name = "mutated-after-insert"

		got, _ := s.FindOne(px.ByID("aaaa"))
		if got.Name != "aaaa.txt" {
			t.Errorf("stored Name = %q, want %q", got.Name, "aaaa.txt")
		}
		got.Name = "mutated-after-find"
		again, _ := s.FindOne(px.ByID("aaaa"))
		if again.Name != "aaaa.txt" {
			t.Errorf("stored Name = %q after mutating result", again.Name)
		}
	})

	t.Run("concurrent inserts are all kept", func(t *testing.T) {
		s := newStore(t)
		const n = 25
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Insert(record(fmt.Sprintf("id-%02d", i), int64(i))); err != nil {
					t.Errorf("Insert() error = %v", err)
				}
			}()
		}
		wg.Wait()

		all, err := s.FindMany(px.Query{})
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(all) != n {
			t.Errorf("FindMany() returned %d records, want %d", len(all), n)
		}
	})
}

func ids(records []*model.AttachmentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
