package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestFS_Conformance(t *testing.T) {
	testProvider(t, tempStore(t))
}

func TestFS_ShardedLayout(t *testing.T) {
	s := tempStore(t)
	addr, err := s.Put(context.Background(), models.Entry{Type: "task", Content: []byte(`{"title":"x"}`)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := filepath.Join(s.root, string(addr)[:2], string(addr)+".json")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("entry file missing at %s: %v", want, err)
	}
}

func TestFS_MalformedAddressRejected(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	cases := []models.Address{
		"../../etc/passwd",
		"",
		"zz",
	}
	for _, a := range cases {
		if _, err := s.Get(ctx, a); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Get(%q) err = %v, want ErrValidation", a, err)
		}
		if err := s.Remove(ctx, a); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Remove(%q) err = %v, want ErrValidation", a, err)
		}
	}
}

func TestFS_AtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	addr, err := s.Put(context.Background(), models.Entry{Type: "task", Content: []byte(`{"title":"atomic"}`)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, string(addr)[:2], ".othala-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/othala-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "othala-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
