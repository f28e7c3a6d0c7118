package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestPutAndGet(t *testing.T) {
	store := NewInMemoryBlobStore()
	ctx := context.Background()

	hash, err := store.Put(ctx, "doc-1", bytes.NewReader([]byte("lab report contents")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if hash == "" {
		t.Error("expected non-empty hash")
	}

	rc, size, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "lab report contents" {
		t.Errorf("content = %q", data)
	}
	if size != int64(len(data)) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
}

func TestGet_Missing(t *testing.T) {
	store := NewInMemoryBlobStore()
	if _, _, err := store.Get(context.Background(), "absent"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("err = %v, want ErrBlobNotFound", err)
	}
}

func TestPut_Replaces(t *testing.T) {
	store := NewInMemoryBlobStore()
	ctx := context.Background()

	if _, err := store.Put(ctx, "doc-1", bytes.NewReader([]byte("v1"))); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if _, err := store.Put(ctx, "doc-1", bytes.NewReader([]byte("v2"))); err != nil {
		t.Fatalf("Put v2: %v", err)
	}

	rc, _, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
}

func TestDelete(t *testing.T) {
	store := NewInMemoryBlobStore()
	ctx := context.Background()

	if _, err := store.Put(ctx, "doc-1", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Get(ctx, "doc-1"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("err after delete = %v, want ErrBlobNotFound", err)
	}
	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Errorf("double delete should not error, got %v", err)
	}
}
