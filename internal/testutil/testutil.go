// Package testutil provides shared test helpers for source trees, output
// trees, ledgers and renderers.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdorg/internal/ledger"
	"github.com/starford/mdorg/internal/render"
	"github.com/starford/mdorg/internal/storage"
)

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	db, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary directory with a storage provider over it.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFiles writes name → content pairs under dir, creating parents.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// EchoRenderer returns its input unchanged. It stands in for pandoc.
func EchoRenderer() render.Renderer {
	return render.Func(func(_ context.Context, markdown string, _ render.Options) (string, error) {
		return markdown, nil
	})
}
