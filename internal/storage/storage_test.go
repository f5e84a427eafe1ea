package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"umlreg/internal/diag"
	"umlreg/internal/slogutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store", "registry.db"), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	db := setupTestDB(t)

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	// a version 1 database without the fingerprint column
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := conn.Begin()
	if err != nil {
		t.Fatal(err)
	}
	for _, create := range []func(*sql.Tx) error{createSchemaVersionTable, createModelMetaDataTable, createLoadAttemptsTable, createLoadMessagesTable} {
		if err := create(tx); err != nil {
			t.Fatal(err)
		}
	}
	if err := setSchemaVersion(tx, 1); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()

	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() on v1 database: %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version after migration = %d, want %d", version, currentSchemaVersion)
	}

	attempts := NewAttemptRepository(db)
	if err := attempts.Record(context.Background(), &LoadAttempt{ModelName: "m", Fingerprint: "abc"}, nil); err != nil {
		t.Fatalf("Record() after migration: %v", err)
	}
}

func TestMetaDataRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetaDataRepository(db)
	ctx := context.Background()

	meta := &ModelMetaData{
		Name:          "sample",
		Resource:      "testdata/xmi/v2/sample.xmi",
		ParserVersion: "v2",
		Description:   "Sample model",
		Origin:        OriginManifest,
	}
	if err := repo.Save(ctx, meta); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	created := meta.CreatedAt

	got, err := repo.Get(ctx, "sample")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for saved model")
	}
	if got.Resource != meta.Resource || got.ParserVersion != "v2" || got.Origin != OriginManifest {
		t.Errorf("Get() = %+v, want %+v", got, meta)
	}

	// update keeps the creation time
	meta.ParserVersion = "v1"
	meta.CreatedAt = time.Time{}
	if err := repo.Save(ctx, meta); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}
	got, _ = repo.Get(ctx, "sample")
	if got.ParserVersion != "v1" {
		t.Errorf("ParserVersion = %q, want v1", got.ParserVersion)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created, got.CreatedAt)
	}

	if err := repo.Save(ctx, &ModelMetaData{Name: "bad", Resource: "x", ParserVersion: "v9", Origin: OriginCLI}); err == nil {
		t.Error("Save() should reject an unknown parser version")
	}

	if err := repo.Save(ctx, &ModelMetaData{Name: "another", Resource: "y", ParserVersion: "v2", Origin: OriginAPI}); err != nil {
		t.Fatal(err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "another" || list[1].Name != "sample" {
		t.Errorf("List() = %v, want [another sample]", names(list))
	}

	missing, err := repo.Get(ctx, "missing")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}

	deleted, err := repo.Delete(ctx, "another")
	if err != nil || !deleted {
		t.Errorf("Delete() = %v, %v", deleted, err)
	}
	deleted, _ = repo.Delete(ctx, "another")
	if deleted {
		t.Error("second Delete() should report nothing deleted")
	}
}

func names(list []*ModelMetaData) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.Name
	}
	return out
}

func TestAttemptRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	msgs := []diag.Message{
		{Severity: diag.Warning, Code: "IGNORED_REFERENCE", ElementID: "a3", Text: "legacyCode is typed NONE"},
		{Severity: diag.Error, Code: "CLASS_NOT_FOUND", ElementID: "a9", Text: "no class named Foo"},
	}

	first := &LoadAttempt{
		ModelName:     "sample",
		Resource:      "sample.xmi",
		ParserVersion: "v2",
		StartedAt:     base,
		Duration:      150 * time.Millisecond,
		Success:       true,
		Elements:      12,
		Errors:        1,
		Warnings:      1,
	}
	if err := repo.Record(ctx, first, msgs); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("Record() should assign an ID")
	}

	second := &LoadAttempt{
		ModelName:     "sample",
		Resource:      "sample.xmi",
		ParserVersion: "v2",
		StartedAt:     base.Add(time.Hour),
		Failure:       "[PROJECTION_FAILED] no uml:Model",
	}
	if err := repo.Record(ctx, second, []diag.Message{{Severity: diag.Error, Code: "PROJECTION_FAILED", Text: "no uml:Model"}}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	list, err := repo.List(ctx, "sample", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d attempts, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("List()[0] = %s, want newest attempt %s", list[0].ID, second.ID)
	}
	if list[0].Success || list[0].Failure == "" {
		t.Errorf("failed attempt read back as %+v", list[0])
	}
	if !list[1].Success || list[1].Duration != 150*time.Millisecond || list[1].Elements != 12 {
		t.Errorf("successful attempt read back as %+v", list[1])
	}

	latest, err := repo.Latest(ctx, "sample")
	if err != nil || latest == nil || latest.ID != second.ID {
		t.Errorf("Latest() = %v, %v", latest, err)
	}
	none, err := repo.Latest(ctx, "other")
	if err != nil || none != nil {
		t.Errorf("Latest(other) = %v, %v; want nil, nil", none, err)
	}

	got, err := repo.Messages(ctx, first.ID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 || got[0] != msgs[0] || got[1] != msgs[1] {
		t.Errorf("Messages() = %+v, want %+v", got, msgs)
	}

	removed, err := repo.Prune(ctx, "sample", 1)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
	got, _ = repo.Messages(ctx, first.ID)
	if len(got) != 0 {
		t.Errorf("messages of pruned attempt survived: %+v", got)
	}
}
