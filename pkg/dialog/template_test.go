package dialog

import (
	"strings"
	"testing"

	"github.com/dialtone/dialtone/pkg/compose"
)

func TestRenderTemplate(t *testing.T) {
	got, err := RenderTemplate("Booked a {RoomType} room for {Nights} nights.",
		map[string]string{"RoomType": "double", "Nights": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Booked a double room for 2 nights." {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	got, err := RenderTemplate("Thanks, goodbye.", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Thanks, goodbye." {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderTemplateUnknownSlot(t *testing.T) {
	_, err := RenderTemplate("Your number is {BookingNumber}.", map[string]string{"RoomType": "double"})
	if err == nil {
		t.Fatal("expected an error for unknown placeholder")
	}
	if !compose.IsFatal(err) {
		t.Errorf("expected a configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "BookingNumber") {
		t.Errorf("error should name the missing placeholder: %v", err)
	}
}

func TestTemplateValuesSlotShadowsAttribute(t *testing.T) {
	values := templateValues(
		map[string]*SlotValue{"Name": {Interpreted: "from-slot"}, "Empty": nil},
		map[string]string{"Name": "from-attr", "Other": "kept"},
	)
	if values["Name"] != "from-slot" {
		t.Errorf("slot value should shadow attribute, got %q", values["Name"])
	}
	if values["Other"] != "kept" {
		t.Errorf("attributes should pass through, got %q", values["Other"])
	}
	if _, ok := values["Empty"]; ok {
		t.Error("unfilled slots should not contribute values")
	}
}
