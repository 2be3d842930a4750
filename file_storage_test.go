package main

import (
	"context"
	"strings"
	"testing"
)

func TestPersistFileUpsert(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	first, err := s.files.PersistFile(ctx, "user-1", "main.py", "", "print('v1')", "manual")
	if err != nil {
		t.Fatalf("first persist: %v", err)
	}
	if first.Language != "python" {
		t.Fatalf("language = %q, want python", first.Language)
	}
	if first.Size != int64(len("print('v1')")) {
		t.Fatalf("size = %d", first.Size)
	}

	second, err := s.files.PersistFile(ctx, "user-1", "main.py", "", "print('version two')", "generated")
	if err != nil {
		t.Fatalf("second persist: %v", err)
	}

	// Same record, replaced in place.
	if second.ID != first.ID {
		t.Fatalf("upsert created a new record: %s != %s", second.ID, first.ID)
	}
	if second.Content != "print('version two')" {
		t.Fatalf("content not replaced: %q", second.Content)
	}
	if second.Origin != "generated" {
		t.Fatalf("origin = %q, want generated", second.Origin)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed on upsert")
	}

	files, err := s.files.ListFiles(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(files))
	}
	if files[0].Content != "" {
		t.Fatalf("list must omit content")
	}
	if files[0].Size != int64(len("print('version two')")) {
		t.Fatalf("listed size = %d", files[0].Size)
	}
}

func TestPersistFileMultibyteSize(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	// Size is UTF-8 byte length, not rune count.
	content := "print('héllo → 世界')"
	doc, err := s.files.PersistFile(context.Background(), "user-1", "hello.py", "", content, "manual")
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if doc.Size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", doc.Size, len(content))
	}
	if doc.Size == int64(len([]rune(content))) {
		t.Fatalf("size must count bytes, not runes")
	}
}

func TestPersistFileValidation(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := s.files.PersistFile(ctx, "", "main.py", "", "x", "manual"); err == nil || !strings.Contains(err.Error(), "User ID is required") {
		t.Fatalf("missing user: %v", err)
	}
	if _, err := s.files.PersistFile(ctx, "u", "", "", "x", "manual"); err == nil || !strings.Contains(err.Error(), "Filename is required") {
		t.Fatalf("missing filename: %v", err)
	}
	if _, err := s.files.PersistFile(ctx, "u", "main.py", "", "", "manual"); err == nil || !strings.Contains(err.Error(), "File content is required") {
		t.Fatalf("missing content: %v", err)
	}
	if _, err := s.files.PersistFile(ctx, "u", "notes.txt", "", "x", "manual"); err == nil || !strings.Contains(err.Error(), "Unable to determine language") {
		t.Fatalf("unknown extension: %v", err)
	}
}

func TestGetFileScopedToOwner(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	doc, err := s.files.PersistFile(ctx, "owner", "main.go", "", "package main", "manual")
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, err := s.files.GetFile(ctx, "owner", doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "package main" {
		t.Fatalf("content = %q", got.Content)
	}

	if _, err := s.files.GetFile(ctx, "intruder", doc.ID); err == nil {
		t.Fatalf("expected cross-user lookup to fail")
	}
}
