package stores

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestStore creates a temp-file SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(id string) *Run {
	now := time.Now()
	return &Run{
		ID:            id,
		InstanceAlias: "contact-center",
		Status:        RunStatusPending,
		StartedAt:     now,
		Summary:       `{"resources":0}`,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tables := []string{"runs", "resource_identities", "bot_versions", "bot_aliases"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-001")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	retrieved, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if retrieved.InstanceAlias != run.InstanceAlias {
		t.Errorf("expected InstanceAlias %s, got %s", run.InstanceAlias, retrieved.InstanceAlias)
	}
	if retrieved.Status != RunStatusPending {
		t.Errorf("expected Status %s, got %s", RunStatusPending, retrieved.Status)
	}

	errMsg := "provider unreachable"
	if err := store.UpdateRunStatus(ctx, run.ID, RunStatusFailed, &errMsg); err != nil {
		t.Fatalf("failed to update run status: %v", err)
	}

	updated, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get updated run: %v", err)
	}
	if updated.Status != RunStatusFailed {
		t.Errorf("expected Status %s, got %s", RunStatusFailed, updated.Status)
	}
	if updated.Error == nil || *updated.Error != errMsg {
		t.Errorf("expected Error %q, got %v", errMsg, updated.Error)
	}
	if updated.CompletedAt == nil {
		t.Error("expected CompletedAt to be set on terminal status")
	}

	if err := store.UpdateRunSummary(ctx, run.ID, `{"resources":5}`); err != nil {
		t.Fatalf("failed to update run summary: %v", err)
	}
	withSummary, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if withSummary.Summary != `{"resources":5}` {
		t.Errorf("unexpected summary: %s", withSummary.Summary)
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := store.GetRun(ctx, run.ID); err == nil {
		t.Error("expected error getting deleted run")
	}
}

func TestListRunsFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i, alias := range []string{"contact-center", "contact-center", "sandbox"} {
		run := testRun("run-00" + string(rune('1'+i)))
		run.InstanceAlias = alias
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	all, err := store.ListRuns(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}

	alias := "contact-center"
	filtered, err := store.ListRuns(ctx, &alias, 10, 0)
	if err != nil {
		t.Fatalf("failed to list filtered runs: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("expected 2 runs for alias %s, got %d", alias, len(filtered))
	}
}

func TestIdentityUpsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	identity := &ResourceIdentity{
		Kind:         "queue",
		ResourceName: "billing",
		ResourceID:   "q-123",
		ARN:          "arn:aws:connect:::queue/q-123",
		RunID:        "run-001",
		AppliedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.UpsertIdentity(ctx, identity); err != nil {
		t.Fatalf("failed to upsert identity: %v", err)
	}

	identity.ResourceID = "q-456"
	identity.RunID = "run-002"
	if err := store.UpsertIdentity(ctx, identity); err != nil {
		t.Fatalf("failed to re-upsert identity: %v", err)
	}

	retrieved, err := store.GetIdentity(ctx, "queue", "billing")
	if err != nil {
		t.Fatalf("failed to get identity: %v", err)
	}
	if retrieved.ResourceID != "q-456" {
		t.Errorf("expected ResourceID q-456, got %s", retrieved.ResourceID)
	}
	if retrieved.RunID != "run-002" {
		t.Errorf("expected RunID run-002, got %s", retrieved.RunID)
	}

	kind := "queue"
	identities, err := store.ListIdentities(ctx, &kind, 10, 0)
	if err != nil {
		t.Fatalf("failed to list identities: %v", err)
	}
	if len(identities) != 1 {
		t.Errorf("expected 1 identity, got %d", len(identities))
	}

	if err := store.DeleteIdentity(ctx, "queue", "billing"); err != nil {
		t.Fatalf("failed to delete identity: %v", err)
	}
	if err := store.DeleteIdentity(ctx, "queue", "billing"); err == nil {
		t.Error("expected error deleting missing identity")
	}
}

func TestBotVersionLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, version := range []string{"1", "2", "10"} {
		record := &BotVersionRecord{
			BotName:   "booking",
			Version:   version,
			Model:     `{"name":"booking"}`,
			CreatedAt: now,
		}
		if err := store.SaveBotVersion(ctx, record); err != nil {
			t.Fatalf("failed to save bot version %s: %v", version, err)
		}
	}

	versions, err := store.ListBotVersions(ctx, "booking")
	if err != nil {
		t.Fatalf("failed to list bot versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if versions[2].Version != "10" {
		t.Errorf("expected numeric ordering with 10 last, got %s", versions[2].Version)
	}

	record, err := store.GetBotVersion(ctx, "booking", "2")
	if err != nil {
		t.Fatalf("failed to get bot version: %v", err)
	}
	if record.Model != `{"name":"booking"}` {
		t.Errorf("unexpected model payload: %s", record.Model)
	}

	if err := store.DeleteBotVersion(ctx, "booking", "1"); err != nil {
		t.Fatalf("failed to delete bot version: %v", err)
	}
	if _, err := store.GetBotVersion(ctx, "booking", "1"); err == nil {
		t.Error("expected error getting deleted version")
	}
}

func TestBindAliasRequiresVersion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.BindAlias(ctx, "booking", "live", "1")
	if err == nil {
		t.Fatal("expected error binding alias to missing version")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBindAliasRepoint(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, version := range []string{"1", "2"} {
		record := &BotVersionRecord{
			BotName:   "booking",
			Version:   version,
			Model:     `{}`,
			CreatedAt: now,
		}
		if err := store.SaveBotVersion(ctx, record); err != nil {
			t.Fatalf("failed to save bot version: %v", err)
		}
	}

	if err := store.BindAlias(ctx, "booking", "live", "1"); err != nil {
		t.Fatalf("failed to bind alias: %v", err)
	}
	if err := store.BindAlias(ctx, "booking", "live", "2"); err != nil {
		t.Fatalf("failed to repoint alias: %v", err)
	}

	record, err := store.GetAlias(ctx, "booking", "live")
	if err != nil {
		t.Fatalf("failed to get alias: %v", err)
	}
	if record.Version != "2" {
		t.Errorf("expected alias at version 2, got %s", record.Version)
	}

	// A failed bind must leave the previous binding in place.
	if err := store.BindAlias(ctx, "booking", "live", "99"); err == nil {
		t.Fatal("expected error binding to missing version")
	}
	record, err = store.GetAlias(ctx, "booking", "live")
	if err != nil {
		t.Fatalf("failed to get alias after failed bind: %v", err)
	}
	if record.Version != "2" {
		t.Errorf("expected alias still at version 2, got %s", record.Version)
	}
}

func TestDeleteVersionRefusedWhileAliased(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := &BotVersionRecord{
		BotName:   "booking",
		Version:   "1",
		Model:     `{}`,
		CreatedAt: time.Now(),
	}
	if err := store.SaveBotVersion(ctx, record); err != nil {
		t.Fatalf("failed to save bot version: %v", err)
	}
	if err := store.BindAlias(ctx, "booking", "live", "1"); err != nil {
		t.Fatalf("failed to bind alias: %v", err)
	}

	if err := store.DeleteBotVersion(ctx, "booking", "1"); err == nil {
		t.Fatal("expected deletion to be refused while aliased")
	}

	if err := store.DeleteAlias(ctx, "booking", "live"); err != nil {
		t.Fatalf("failed to delete alias: %v", err)
	}
	if err := store.DeleteBotVersion(ctx, "booking", "1"); err != nil {
		t.Fatalf("failed to delete unaliased version: %v", err)
	}
}

func TestListAliases(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := &BotVersionRecord{
		BotName:   "booking",
		Version:   "1",
		Model:     `{}`,
		CreatedAt: time.Now(),
	}
	if err := store.SaveBotVersion(ctx, record); err != nil {
		t.Fatalf("failed to save bot version: %v", err)
	}

	for _, alias := range []string{"live", "staging"} {
		if err := store.BindAlias(ctx, "booking", alias, "1"); err != nil {
			t.Fatalf("failed to bind alias %s: %v", alias, err)
		}
	}

	aliases, err := store.ListAliases(ctx, "booking")
	if err != nil {
		t.Fatalf("failed to list aliases: %v", err)
	}
	if len(aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(aliases))
	}
	if aliases[0].Alias != "live" || aliases[1].Alias != "staging" {
		t.Errorf("expected sorted aliases, got %s, %s", aliases[0].Alias, aliases[1].Alias)
	}
}
