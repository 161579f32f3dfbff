package dialog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/dialtone/dialtone/pkg/config"
)

func testCompiler() *Compiler {
	return NewCompiler(zerolog.Nop())
}

func TestCompileBookingBot(t *testing.T) {
	model, err := testCompiler().Compile(bookingBot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent, ok := model.Intents["BookRoom"]
	if !ok {
		t.Fatal("BookRoom intent missing")
	}

	want := []string{"RoomType", "CheckInDate"}
	if len(intent.ElicitationOrder) != len(want) {
		t.Fatalf("elicitation order = %v, want %v", intent.ElicitationOrder, want)
	}
	for i, name := range want {
		if intent.ElicitationOrder[i] != name {
			t.Errorf("elicitation order[%d] = %q, want %q", i, intent.ElicitationOrder[i], name)
		}
	}

	if intent.Slots["RoomType"].Type.Strategy != TopResolution {
		t.Error("RoomType should use TopResolution")
	}
	if intent.Slots["Nights"].Type.Parser == nil {
		t.Error("Nights should carry a built-in parser")
	}
}

func TestCompileSlotLocaleMismatch(t *testing.T) {
	cfg := bookingBot()
	slot := cfg.Slots["RoomType"]
	slot.Locale = "fr_FR"
	cfg.Slots["RoomType"] = slot

	if _, err := testCompiler().Compile(cfg); err == nil {
		t.Fatal("expected an error for slot/intent locale mismatch")
	}
}

func TestCompileUnknownSlotType(t *testing.T) {
	cfg := bookingBot()
	slot := cfg.Slots["RoomType"]
	slot.SlotType = "Nonexistent"
	cfg.Slots["RoomType"] = slot

	if _, err := testCompiler().Compile(cfg); err == nil {
		t.Fatal("expected an error for unresolvable slot type")
	}
}

func TestCompileUnknownPrioritizedSlot(t *testing.T) {
	cfg := bookingBot()
	intent := cfg.Intents["BookRoom"]
	intent.SlotPriorities = append(intent.SlotPriorities, config.SlotPriority{Priority: 9, SlotID: "Ghost"})
	cfg.Intents["BookRoom"] = intent

	if _, err := testCompiler().Compile(cfg); err == nil {
		t.Fatal("expected an error for prioritizing an undeclared slot")
	}
}

func TestCompileConfirmationNeedsPrompt(t *testing.T) {
	cfg := bookingBot()
	intent := cfg.Intents["BookRoom"]
	intent.ConfirmationPrompt = ""
	cfg.Intents["BookRoom"] = intent

	if _, err := testCompiler().Compile(cfg); err == nil {
		t.Fatal("expected an error for confirmation without a prompt")
	}
}

func TestCompileSlotForUnknownIntent(t *testing.T) {
	cfg := bookingBot()
	cfg.Slots["Orphan"] = config.SlotConfig{
		Intent:        "Ghost",
		Locale:        "en_GB",
		SlotType:      "AMAZON.FreeFormInput",
		PromptMessage: "?",
	}

	if _, err := testCompiler().Compile(cfg); err == nil {
		t.Fatal("expected an error for slot on undeclared intent")
	}
}
