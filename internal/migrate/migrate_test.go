package migrate

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSourceURL(t *testing.T) {
	got, err := SourceURL("../../migrations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, "/migrations") {
		t.Fatalf("unexpected source url %q", got)
	}

	def, err := SourceURL("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(def) != "migrations" {
		t.Fatalf("expected default migrations dir, got %q", def)
	}
}

func TestMigrationFilesArePaired(t *testing.T) {
	ups, err := filepath.Glob("../../migrations/*.up.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("expected migrations")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if matches, _ := filepath.Glob(down); len(matches) != 1 {
			t.Fatalf("missing down migration for %s", up)
		}
	}
}
