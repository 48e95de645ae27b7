package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema.sql", true, "0001", "init_schema"},
		{"0012_add_quality_log.sql", true, "0012", "add_quality_log"},
		{"001_invalid.sql", false, "", ""},       // wrong number format
		{"0001_test", false, "", ""},             // missing .sql
		{"0001.sql", false, "", ""},              // missing name
		{"invalid_0001_test.sql", false, "", ""}, // wrong order
		{"README.md", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if tt.valid {
				if matches == nil {
					t.Fatalf("%s should match", tt.filename)
				}
				if matches[1] != tt.version || matches[2] != tt.name {
					t.Errorf("got version %q name %q", matches[1], matches[2])
				}
			} else if matches != nil {
				t.Errorf("%s should not match", tt.filename)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Written out of order to exercise version sorting.
	write("0002_dimensions.sql", "CREATE TABLE nyc_taxi.dim_location ();")
	write("0001_schema.sql", "CREATE SCHEMA nyc_taxi;")
	write("notes.txt", "not a migration")

	migrations, err := readMigrations(dir)
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("versions = %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "schema" {
		t.Errorf("name = %q", migrations[0].Name)
	}
	if len(migrations[0].Checksum) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(migrations[0].Checksum))
	}
}

func TestReadMigrations_ChecksumTracksContent(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(dirA, "0001_x.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dirB, "0001_x.sql"), []byte("SELECT 2;"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := readMigrations(dirA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := readMigrations(dirB)
	if err != nil {
		t.Fatal(err)
	}
	if a[0].Checksum == b[0].Checksum {
		t.Error("different content must produce different checksums")
	}
}

func TestReadMigrations_MissingDir(t *testing.T) {
	if _, err := readMigrations(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
