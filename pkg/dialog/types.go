// Package dialog compiles bot declarations into an executable conversation
// model and runs slot-filling sessions against it.
package dialog

import "context"

// State is the conversational state of a session.
type State string

const (
	// StateIdle means no intent is active yet.
	StateIdle State = "Idle"

	// StateElicitingSlot means the session is prompting for a slot value.
	StateElicitingSlot State = "ElicitingSlot"

	// StateConfirming means the session is awaiting intent confirmation.
	StateConfirming State = "Confirming"

	// StateDialogHook means a dialog code hook is deciding the next step.
	StateDialogHook State = "DialogHook"

	// StateFulfillmentHook means the fulfillment code hook is running.
	StateFulfillmentHook State = "FulfillmentHook"

	// StateClosed means the intent completed successfully.
	StateClosed State = "Closed"

	// StateDeclined means the user declined at confirmation.
	StateDeclined State = "Declined"

	// StateBlocked means the session gave up after exhausting retries.
	StateBlocked State = "Blocked"

	// StateFulfillmentFailed means the fulfillment hook reported failure.
	StateFulfillmentFailed State = "FulfillmentFailed"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	switch s {
	case StateClosed, StateDeclined, StateBlocked, StateFulfillmentFailed:
		return true
	}
	return false
}

// ResolutionStrategy selects how custom slot type matches resolve.
type ResolutionStrategy string

const (
	// TopResolution resolves matched input to the canonical value.
	TopResolution ResolutionStrategy = "TopResolution"

	// OriginalValue keeps the user's literal input once matched.
	OriginalValue ResolutionStrategy = "OriginalValue"
)

// Model is a compiled, runnable bot definition. Once compiled it is never
// mutated by sessions; version cuts deep-copy it.
type Model struct {
	// Name is the bot name.
	Name string

	// IdleSessionTTLSeconds bounds idle time between turns.
	IdleSessionTTLSeconds int

	// Locales maps locale ids to their settings.
	Locales map[string]Locale

	// Intents maps intent names to compiled intents.
	Intents map[string]*Intent
}

// Locale is the compiled per-locale configuration.
type Locale struct {
	// ID is the locale identifier.
	ID string

	// NLUConfidenceThreshold is the intent-match confidence cutoff.
	NLUConfidenceThreshold float64

	// VoiceID selects the synthesis voice.
	VoiceID string

	// VoiceEngine selects the synthesis engine.
	VoiceEngine string
}

// Intent is a compiled conversational goal with its slots in elicitation
// order.
type Intent struct {
	// Name is the intent name.
	Name string

	// Locale is the locale the intent belongs to.
	Locale string

	// SampleUtterances seed utterance matching.
	SampleUtterances []string

	// Slots maps slot names to their compiled declarations.
	Slots map[string]*Slot

	// ElicitationOrder lists slot names in elicitation order: explicit
	// priorities first, remaining required slots after in name order.
	ElicitationOrder []string

	// EnableConfirmation turns on the confirmation step.
	EnableConfirmation bool

	// ConfirmationPrompt is the confirmation template.
	ConfirmationPrompt string

	// DeclinationResponse is rendered when the user declines.
	DeclinationResponse string

	// ClosingMessage is rendered on success without a fulfillment hook.
	ClosingMessage string

	// EnableDialogCodeHook invokes the dialog hook during slot filling.
	EnableDialogCodeHook bool

	// EnableFulfillmentCodeHook invokes the fulfillment hook.
	EnableFulfillmentCodeHook bool

	// FulfillmentSuccessResponse is the success template.
	FulfillmentSuccessResponse string

	// FulfillmentFailureResponse is rendered when fulfillment fails.
	FulfillmentFailureResponse string
}

// Slot is a compiled intent input.
type Slot struct {
	// Name is the slot name.
	Name string

	// Intent is the owning intent.
	Intent string

	// Locale is the slot's locale.
	Locale string

	// Type is the compiled slot type.
	Type *SlotType

	// Required marks the slot as mandatory.
	Required bool

	// PromptMessage elicits the slot.
	PromptMessage string

	// MaxRetries bounds re-prompts after the initial one.
	MaxRetries int

	// AllowInterrupt permits switching intents mid-elicitation.
	AllowInterrupt bool

	// DefaultValues apply when the slot goes unfilled.
	DefaultValues []string
}

// SlotType resolves raw input to slot values. Built-in types carry a Parser;
// custom types carry enumerated values.
type SlotType struct {
	// Name is the type name.
	Name string

	// Locale is the type's locale, empty for built-ins.
	Locale string

	// Strategy selects resolution for custom types.
	Strategy ResolutionStrategy

	// Values enumerates the custom type's values and synonyms.
	Values []TypeValue

	// Parser resolves input for built-in types.
	Parser SlotParser
}

// TypeValue is one enumerated value with its synonyms.
type TypeValue struct {
	// Value is the canonical value.
	Value string

	// Synonyms are alternative surface forms.
	Synonyms []string
}

// SlotValue is a filled slot: what the user said and what it resolved to.
type SlotValue struct {
	// Original is the raw user input.
	Original string

	// Interpreted is the resolved value.
	Interpreted string
}

// SlotParser resolves free-form input for a built-in slot type.
type SlotParser interface {
	// Parse resolves input to a canonical value. A false return means the
	// input was not understood.
	Parse(input string) (string, bool)
}

// HookRequest carries session state to a code hook.
type HookRequest struct {
	// Intent is the active intent name.
	Intent string

	// Locale is the session locale.
	Locale string

	// Slots holds the filled slot values, nil for unfilled slots.
	Slots map[string]*SlotValue

	// SessionAttributes are cross-turn key-value attributes.
	SessionAttributes map[string]string

	// InputTranscript is the user's latest input.
	InputTranscript string
}

// HookAction is what a code hook tells the session to do next.
type HookAction string

const (
	// ActionDelegate lets the session proceed normally.
	ActionDelegate HookAction = "Delegate"

	// ActionElicitSlot re-elicits a named slot.
	ActionElicitSlot HookAction = "ElicitSlot"

	// ActionClose ends the intent with a message.
	ActionClose HookAction = "Close"
)

// HookResponse is a code hook's decision.
type HookResponse struct {
	// Action is the next step.
	Action HookAction

	// SlotToElicit names the slot to re-elicit for ActionElicitSlot.
	SlotToElicit string

	// Message is spoken to the user, when set.
	Message string

	// SessionAttributes replace the session's attributes when non-nil.
	SessionAttributes map[string]string

	// ClearSlot empties the elicited slot so the user can retry it.
	ClearSlot bool
}

// DialogHook runs during slot filling when the intent enables it.
type DialogHook interface {
	OnTurn(ctx context.Context, req *HookRequest) (*HookResponse, error)
}

// FulfillmentHook runs after confirmation when the intent enables it. The
// returned error marks the fulfillment as failed.
type FulfillmentHook interface {
	Fulfill(ctx context.Context, req *HookRequest) (*HookResponse, error)
}

// Response is the session's reply to one turn of input.
type Response struct {
	// State is the session state after the turn.
	State State

	// Message is the reply to speak to the user.
	Message string

	// Intent is the active intent, if any.
	Intent string

	// SlotToElicit names the slot being prompted for, if any.
	SlotToElicit string
}
