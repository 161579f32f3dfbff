package compose

import (
	"errors"
	"testing"
)

func TestRegistry_Register_AssignsDeclarationOrder(t *testing.T) {
	r := NewRegistry()

	h1, err := r.Register(Declaration{Kind: KindQueue, Name: "support"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	h2, err := r.Register(Declaration{Kind: KindQueue, Name: "sales"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if h1.Index != 0 || h2.Index != 1 {
		t.Errorf("Expected indices 0 and 1, got %d and %d", h1.Index, h2.Index)
	}
}

func TestRegistry_Register_DuplicateNameFails(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(Declaration{Kind: KindQueue, Name: "support"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, err := r.Register(Declaration{Kind: KindQueue, Name: "support"})
	if err == nil {
		t.Fatal("Expected duplicate name error, got nil")
	}
	if !HasCode(err, ErrCodeDuplicateName) {
		t.Errorf("Expected code %s, got: %v", ErrCodeDuplicateName, err)
	}
}

func TestRegistry_Register_SameNameDifferentKinds(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(Declaration{Kind: KindQueue, Name: "morgan"}); err != nil {
		t.Fatalf("Expected no error registering queue, got: %v", err)
	}
	if _, err := r.Register(Declaration{Kind: KindUser, Name: "morgan"}); err != nil {
		t.Fatalf("Expected no collision across kinds, got: %v", err)
	}

	q, err := r.Resolve(KindQueue, "morgan")
	if err != nil {
		t.Fatalf("Expected queue to resolve, got: %v", err)
	}
	u, err := r.Resolve(KindUser, "morgan")
	if err != nil {
		t.Fatalf("Expected user to resolve, got: %v", err)
	}
	if q.ID() == u.ID() {
		t.Errorf("Expected distinct identities, both resolved to %s", q.ID())
	}
}

func TestRegistry_Resolve_UnknownNameFails(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve(KindQueue, "missing")
	if err == nil {
		t.Fatal("Expected unresolved reference error, got nil")
	}
	if !HasCode(err, ErrCodeUnresolvedReference) {
		t.Errorf("Expected code %s, got: %v", ErrCodeUnresolvedReference, err)
	}

	var cerr *ComposeError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *ComposeError, got %T", err)
	}
	if cerr.Class != ErrorClassFatal {
		t.Errorf("Expected fatal class, got %s", cerr.Class)
	}
}

func TestRegistry_Resolve_KindMismatchFails(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(Declaration{Kind: KindQueue, Name: "support"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := r.Resolve(KindRoutingProfile, "support"); err == nil {
		t.Fatal("Expected kind mismatch to fail resolution, got nil")
	}
}

func TestRegistry_Resolve_StableAcrossLaterRegistrations(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(Declaration{Kind: KindQueue, Name: "support"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	before, err := r.Resolve(KindQueue, "support")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Unrelated registrations must not perturb earlier resolutions.
	for _, name := range []string{"sales", "billing", "escalations"} {
		if _, err := r.Register(Declaration{Kind: KindQueue, Name: name}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	after, err := r.Resolve(KindQueue, "support")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if before != after {
		t.Errorf("Expected stable handle, got %+v then %+v", before, after)
	}
}

func TestRegistry_ResolveRefs_ReportsReferrer(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(Declaration{
		Kind: KindQueue,
		Name: "support",
		Refs: []Ref{{Kind: KindHoursOfOperation, Name: "weekdays"}},
	}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, err := r.ResolveRefs()
	if err == nil {
		t.Fatal("Expected unresolved reference error, got nil")
	}

	var cerr *ComposeError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *ComposeError, got %T", err)
	}
	if cerr.Kind != KindQueue || cerr.Resource != "support" {
		t.Errorf("Expected error to name the referrer, got kind=%s resource=%s", cerr.Kind, cerr.Resource)
	}
}
