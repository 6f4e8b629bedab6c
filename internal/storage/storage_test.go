package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ahrdadan/snapq/internal/storage"
)

func TestDeriveKeyFromFilename(t *testing.T) {
	if key := storage.DeriveKey("report"); key != "report.png" {
		t.Errorf("Expected report.png, got %s", key)
	}
}

func TestDeriveKeyGenerated(t *testing.T) {
	a := storage.DeriveKey("")
	b := storage.DeriveKey("")

	if !strings.HasSuffix(a, ".png") {
		t.Errorf("Expected generated key to end in .png, got %s", a)
	}
	if a == b {
		t.Errorf("Expected generated keys to be unique, got %s twice", a)
	}
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()

	store, err := storage.NewLocalStore(dir, "http://localhost:8000/screenshots")
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}

	url, err := store.Put(context.Background(), "shot.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if url != "http://localhost:8000/screenshots/shot.png" {
		t.Errorf("Unexpected URL: %s", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "shot.png"))
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("Unexpected file contents: %q", data)
	}
}

func TestLocalStoreRequiresDir(t *testing.T) {
	if _, err := storage.NewLocalStore("", "http://localhost:8000"); err == nil {
		t.Error("Expected an error for an empty base directory")
	}
}

func TestLocalStoreCancelledContext(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "shot.png", []byte("x"), "image/png"); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}
