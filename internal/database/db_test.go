package database

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_entries.up.sql":  {Data: []byte("SELECT 2")},
		"001_init.up.sql":     {Data: []byte("SELECT 1")},
		"001_init.down.sql":   {Data: []byte("SELECT 0")},
		"003_index.up.sql":    {Data: []byte("SELECT 3")},
		"README.md":           {Data: []byte("notes")},
		"nested/004_x.up.sql": {Data: []byte("SELECT 4")},
	}

	got, err := pendingMigrations(fsys, map[string]bool{"002_entries.up.sql": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"001_init.up.sql", "003_index.up.sql"}
	if !slices.Equal(got, want) {
		t.Errorf("pendingMigrations() = %v, want %v", got, want)
	}
}

func TestPendingMigrationsAllApplied(t *testing.T) {
	fsys := fstest.MapFS{"001_init.up.sql": {Data: []byte("SELECT 1")}}

	got, err := pendingMigrations(fsys, map[string]bool{"001_init.up.sql": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("pendingMigrations() = %v, want none", got)
	}
}
