package dialog

import (
	"testing"
)

func draftModel(t *testing.T) *Model {
	t.Helper()
	return compileBooking(t, bookingBot())
}

func TestCutVersionIsImmutable(t *testing.T) {
	reg := NewVersionRegistry()
	draft := draftModel(t)

	v1 := reg.CutVersion(draft)
	if v1 != "1" {
		t.Fatalf("first cut should be version 1, got %q", v1)
	}

	// Mutate the draft after the cut.
	draft.Intents["BookRoom"].ConfirmationPrompt = "changed"
	draft.Intents["BookRoom"].Slots["RoomType"].MaxRetries = 99
	delete(draft.Intents, "CheckBalance")

	cut, err := reg.Version(v1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cut.Intents["BookRoom"].ConfirmationPrompt == "changed" {
		t.Error("cut version should not see draft edits")
	}
	if cut.Intents["BookRoom"].Slots["RoomType"].MaxRetries == 99 {
		t.Error("cut version slots should be deep copies")
	}
	if _, ok := cut.Intents["CheckBalance"]; !ok {
		t.Error("cut version should keep intents deleted from the draft")
	}
}

func TestVersionNumbersIncrement(t *testing.T) {
	reg := NewVersionRegistry()
	draft := draftModel(t)

	if v := reg.CutVersion(draft); v != "1" {
		t.Errorf("got %q, want 1", v)
	}
	if v := reg.CutVersion(draft); v != "2" {
		t.Errorf("got %q, want 2", v)
	}
	got := reg.Versions()
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("Versions() = %v", got)
	}
}

func TestBindAliasAtomic(t *testing.T) {
	reg := NewVersionRegistry()
	draft := draftModel(t)
	v1 := reg.CutVersion(draft)

	if err := reg.BindAlias("live", v1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A failed repoint must leave the previous binding intact.
	if err := reg.BindAlias("live", "7"); err == nil {
		t.Fatal("binding a missing version should fail")
	}
	target, err := reg.AliasTarget("live")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target != v1 {
		t.Errorf("alias should keep its previous target, got %q", target)
	}
}

func TestBindAliasRejectsDraft(t *testing.T) {
	reg := NewVersionRegistry()
	if err := reg.BindAlias("live", DraftVersion); err == nil {
		t.Fatal("aliases must not target the draft")
	}
}

func TestAliasRepoint(t *testing.T) {
	reg := NewVersionRegistry()
	draft := draftModel(t)

	v1 := reg.CutVersion(draft)
	draft.Intents["BookRoom"].ClosingMessage = "updated"
	v2 := reg.CutVersion(draft)

	if err := reg.BindAlias("live", v1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.BindAlias("live", v2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := reg.AliasModel("live")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Intents["BookRoom"].ClosingMessage != "updated" {
		t.Error("alias should serve the repointed version")
	}
}

func TestDeleteVersionRefusesWhileAliased(t *testing.T) {
	reg := NewVersionRegistry()
	draft := draftModel(t)
	v1 := reg.CutVersion(draft)

	if err := reg.BindAlias("live", v1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.DeleteVersion(v1); err == nil {
		t.Fatal("deleting an aliased version should fail")
	}

	v2 := reg.CutVersion(draft)
	if err := reg.BindAlias("live", v2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.DeleteVersion(v1); err != nil {
		t.Fatalf("unaliased version should delete: %v", err)
	}
	if _, err := reg.Version(v1); err == nil {
		t.Error("deleted version should be gone")
	}
}
