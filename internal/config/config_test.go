package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 10000 {
		t.Errorf("ChunkSize = %d, want 10000", cfg.ChunkSize)
	}
	if cfg.Schema != "nyc_taxi" {
		t.Errorf("Schema = %q, want nyc_taxi", cfg.Schema)
	}
	if cfg.BackfillSpec != "all" {
		t.Errorf("BackfillSpec = %q, want all", cfg.BackfillSpec)
	}
	if cfg.TripDataBaseURL == "" || cfg.ZoneLookupURL == "" || cfg.ZoneShapesURL == "" {
		t.Error("expected non-empty source URL defaults")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("BACKFILL_MONTHS", "2024-01,2024-02")
	t.Setenv("DB_PORT", "5433")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.ChunkSize)
	}
	if cfg.BackfillSpec != "2024-01,2024-02" {
		t.Errorf("BackfillSpec = %q", cfg.BackfillSpec)
	}
	if cfg.DBPort != 5433 {
		t.Errorf("DBPort = %d, want 5433", cfg.DBPort)
	}
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric CHUNK_SIZE")
	}
}

func TestLoad_NonPositiveChunkSize(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero CHUNK_SIZE")
	}
}

func TestConnString(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: 5432, DBName: "nyc_taxi", DBUser: "etl", DBPassword: "secret"}
	want := "postgres://etl:secret@db:5432/nyc_taxi"
	if got := cfg.ConnString(); got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}

	cfg.DatabaseURL = "postgres://other"
	if got := cfg.ConnString(); got != "postgres://other" {
		t.Errorf("ConnString() = %q, want DATABASE_URL to win", got)
	}
}
