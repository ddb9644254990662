package blobstore

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"pxs/internal/px"
)

// runBlobStoreContract exercises the behavior every px.BlobStore must share.
func runBlobStoreContract(t *testing.T, newStore func(t *testing.T) px.BlobStore) {
	t.Run("put then open", func(t *testing.T) {
		s := newStore(t)
		name := "1741597200000_2cf24dba5fb0a30e.txt"
		if err := s.Put(name, strings.NewReader("hello"), 5); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		r, err := s.Open(name)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer r.Close()
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(got) != "hello" {
			t.Errorf("Open() content = %q, want %q", got, "hello")
		}
	})

	t.Run("size mismatch is rejected", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("1_abc.txt", strings.NewReader("hello"), 100); err == nil {
			t.Fatal("Put() expected size mismatch error")
		}
		names, err := s.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(names) != 0 {
			t.Errorf("List() = %v after failed Put, want empty", names)
		}
	})

	t.Run("empty blob", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("1_empty.bin", bytes.NewReader(nil), 0); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		r, err := s.Open("1_empty.bin")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer r.Close()
		got, _ := io.ReadAll(r)
		if len(got) != 0 {
			t.Errorf("Open() returned %d bytes, want 0", len(got))
		}
	})

	t.Run("open missing wraps ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Open("1_missing.txt")
		if !errors.Is(err, px.ErrNotFound) {
			t.Errorf("Open() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"3_c.txt", "1_a.txt", "2_b.txt"} {
			if err := s.Put(name, strings.NewReader("x"), 1); err != nil {
				t.Fatalf("Put(%s) error = %v", name, err)
			}
		}
		names, err := s.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := []string{"1_a.txt", "2_b.txt", "3_c.txt"}
		if strings.Join(names, ",") != strings.Join(want, ",") {
			t.Errorf("List() = %v, want %v", names, want)
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("1_a.txt", strings.NewReader("x"), 1); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Remove("1_a.txt"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if err := s.Remove("1_a.txt"); err != nil {
			t.Fatalf("second Remove() error = %v", err)
		}
		names, _ := s.List()
		if len(names) != 0 {
			t.Errorf("List() = %v after Remove, want empty", names)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		s := newStore(t)
		s.Put("1_a.txt", strings.NewReader("old"), 3)
		if err := s.Put("1_a.txt", strings.NewReader("newer"), 5); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		r, err := s.Open("1_a.txt")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer r.Close()
		got, _ := io.ReadAll(r)
		if string(got) != "newer" {
			t.Errorf("content = %q, want %q", got, "newer")
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		s := newStore(t)
		if err := s.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
