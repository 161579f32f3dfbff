package dialog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dialtone/dialtone/pkg/compose"
)

// confirmationMaxRetries bounds ambiguous confirmation answers: the initial
// ask plus this many re-asks, then the session blocks.
const confirmationMaxRetries = 2

// Session runs one conversation against a compiled model. Sessions are not
// safe for concurrent use; each conversation gets its own.
type Session struct {
	id     string
	model  *Model
	locale string
	logger zerolog.Logger
	now    func() time.Time

	dialogHook  DialogHook
	fulfillment FulfillmentHook

	state       State
	intent      *Intent
	slots       map[string]*SlotValue
	attributes  map[string]string
	queue       []string
	current     string
	prompts     int
	confirmAsks int
	lastTurn    time.Time
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithDialogHook wires the dialog code hook.
func WithDialogHook(h DialogHook) SessionOption {
	return func(s *Session) { s.dialogHook = h }
}

// WithFulfillmentHook wires the fulfillment code hook.
func WithFulfillmentHook(h FulfillmentHook) SessionOption {
	return func(s *Session) { s.fulfillment = h }
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithClock overrides the session clock.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession starts a conversation in the given locale.
func NewSession(model *Model, locale string, opts ...SessionOption) (*Session, error) {
	if _, ok := model.Locales[locale]; !ok {
		return nil, compose.NewFatalError(
			fmt.Sprintf("locale %q is not declared by bot %q", locale, model.Name), nil).WithCode(compose.ErrCodeValidation)
	}

	s := &Session{
		id:         uuid.New().String(),
		model:      model,
		locale:     locale,
		logger:     zerolog.Nop(),
		now:        time.Now,
		state:      StateIdle,
		attributes: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastTurn = s.now()
	s.logger = s.logger.With().Str("session", s.id).Str("locale", locale).Logger()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Slots returns the filled slot values of the active intent.
func (s *Session) Slots() map[string]*SlotValue {
	return s.slots
}

// Attributes returns the session attributes.
func (s *Session) Attributes() map[string]string {
	return s.attributes
}

// Recognize processes one turn of user input and returns the reply. Calling
// it after the session reached a terminal state is an error.
func (s *Session) Recognize(ctx context.Context, input string) (*Response, error) {
	if s.state.Terminal() {
		return nil, compose.NewFatalError(
			fmt.Sprintf("session is already %s", s.state), nil).WithCode(compose.ErrCodeValidation)
	}

	if s.expired() {
		s.logger.Debug().Msg("Idle session expired, resetting")
		s.reset()
	}
	s.lastTurn = s.now()

	switch s.state {
	case StateIdle:
		return s.recognizeIntent(ctx, input)
	case StateElicitingSlot:
		return s.fillSlot(ctx, input)
	case StateConfirming:
		return s.confirm(ctx, input)
	default:
		return nil, compose.NewFatalError(
			fmt.Sprintf("unexpected session state %s", s.state), nil).WithCode(compose.ErrCodeInternal)
	}
}

// expired reports whether the idle TTL elapsed since the last turn.
func (s *Session) expired() bool {
	ttl := s.model.IdleSessionTTLSeconds
	if ttl <= 0 || s.intent == nil {
		return false
	}
	return s.now().Sub(s.lastTurn) > time.Duration(ttl)*time.Second
}

// reset abandons the active intent.
func (s *Session) reset() {
	s.state = StateIdle
	s.intent = nil
	s.slots = nil
	s.queue = nil
	s.current = ""
	s.prompts = 0
	s.confirmAsks = 0
}

// recognizeIntent matches input against sample utterances of the locale's
// intents. Candidates are scanned in name order so ties resolve the same way
// every run.
func (s *Session) recognizeIntent(ctx context.Context, input string) (*Response, error) {
	intent := s.matchIntent(input)
	if intent == nil {
		return &Response{
			State:   StateIdle,
			Message: "Sorry, I didn't understand that.",
		}, nil
	}

	s.logger.Debug().Str("intent", intent.Name).Msg("Intent recognized")
	s.startIntent(intent)
	return s.advance(ctx)
}

func (s *Session) matchIntent(input string) *Intent {
	norm := normalize(input)

	names := make([]string, 0, len(s.model.Intents))
	for name := range s.model.Intents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		intent := s.model.Intents[name]
		if intent.Locale != s.locale {
			continue
		}
		for _, u := range intent.SampleUtterances {
			if normalize(u) == norm {
				return intent
			}
		}
	}
	return nil
}

func (s *Session) startIntent(intent *Intent) {
	s.intent = intent
	s.slots = make(map[string]*SlotValue)
	s.queue = append([]string(nil), intent.ElicitationOrder...)
	s.current = ""
	s.prompts = 0
	s.confirmAsks = 0
}

// fillSlot interprets input for the slot being elicited.
func (s *Session) fillSlot(ctx context.Context, input string) (*Response, error) {
	slot := s.intent.Slots[s.current]

	if slot.AllowInterrupt {
		if next := s.matchIntent(input); next != nil && next.Name != s.intent.Name {
			s.logger.Debug().
				Str("from", s.intent.Name).
				Str("to", next.Name).
				Msg("Interrupting to new intent")
			s.startIntent(next)
			return s.advance(ctx)
		}
	}

	value, ok := slot.Type.Resolve(input)
	if !ok {
		return s.retrySlot(ctx, slot)
	}

	s.slots[slot.Name] = &value
	s.logger.Debug().
		Str("slot", slot.Name).
		Str("value", value.Interpreted).
		Msg("Slot filled")

	if s.intent.EnableDialogCodeHook && s.dialogHook != nil {
		resp, err := s.runDialogHook(ctx, input)
		if err != nil || resp != nil {
			return resp, err
		}
	}

	return s.advance(ctx)
}

// retrySlot re-prompts within the retry budget, then falls back to the
// slot's defaults or blocks.
func (s *Session) retrySlot(ctx context.Context, slot *Slot) (*Response, error) {
	if s.prompts < slot.MaxRetries+1 {
		s.prompts++
		s.logger.Debug().
			Str("slot", slot.Name).
			Int("prompts", s.prompts).
			Msg("Re-prompting slot")
		msg, err := s.render(slot.PromptMessage)
		if err != nil {
			return nil, err
		}
		return &Response{
			State:        StateElicitingSlot,
			Message:      msg,
			Intent:       s.intent.Name,
			SlotToElicit: slot.Name,
		}, nil
	}

	if len(slot.DefaultValues) > 0 {
		s.slots[slot.Name] = &SlotValue{Interpreted: slot.DefaultValues[0]}
		s.logger.Debug().
			Str("slot", slot.Name).
			Str("default", slot.DefaultValues[0]).
			Msg("Retries exhausted, applying default")
		return s.advance(ctx)
	}

	if slot.Required {
		s.logger.Warn().Str("slot", slot.Name).Msg("Retries exhausted on required slot")
		s.state = StateBlocked
		return &Response{
			State:   StateBlocked,
			Message: "Sorry, I'm unable to continue.",
			Intent:  s.intent.Name,
		}, nil
	}

	s.slots[slot.Name] = nil
	return s.advance(ctx)
}

// runDialogHook invokes the dialog code hook. A nil response with nil error
// means the hook delegated and slot filling continues.
func (s *Session) runDialogHook(ctx context.Context, input string) (*Response, error) {
	s.state = StateDialogHook
	hookResp, err := s.dialogHook.OnTurn(ctx, s.hookRequest(input))
	if err != nil {
		s.state = StateBlocked
		return nil, compose.NewProvisionError("dialog hook failed", err).
			WithResource(compose.KindBot, s.model.Name)
	}
	if hookResp.SessionAttributes != nil {
		s.attributes = hookResp.SessionAttributes
	}

	switch hookResp.Action {
	case ActionElicitSlot:
		slot, ok := s.intent.Slots[hookResp.SlotToElicit]
		if !ok {
			s.state = StateBlocked
			return nil, compose.NewFatalError(
				fmt.Sprintf("dialog hook elicited unknown slot %q", hookResp.SlotToElicit), nil).WithCode(compose.ErrCodeValidation)
		}
		if hookResp.ClearSlot {
			delete(s.slots, slot.Name)
		}
		s.current = slot.Name
		s.prompts = 1
		s.state = StateElicitingSlot
		msg := hookResp.Message
		if msg == "" {
			var err error
			if msg, err = s.render(slot.PromptMessage); err != nil {
				return nil, err
			}
		}
		return &Response{
			State:        StateElicitingSlot,
			Message:      msg,
			Intent:       s.intent.Name,
			SlotToElicit: slot.Name,
		}, nil

	case ActionClose:
		s.state = StateClosed
		return &Response{
			State:   StateClosed,
			Message: hookResp.Message,
			Intent:  s.intent.Name,
		}, nil

	case ActionDelegate:
		s.state = StateElicitingSlot
		return nil, nil

	default:
		s.state = StateBlocked
		return nil, compose.NewFatalError(
			fmt.Sprintf("dialog hook returned unknown action %q", hookResp.Action), nil).WithCode(compose.ErrCodeValidation)
	}
}

// advance prompts for the next unfilled slot, or moves on to confirmation
// and fulfillment once the queue is drained.
func (s *Session) advance(ctx context.Context) (*Response, error) {
	for len(s.queue) > 0 {
		name := s.queue[0]
		s.queue = s.queue[1:]
		if v, filled := s.slots[name]; filled && v != nil {
			continue
		}

		slot := s.intent.Slots[name]
		s.current = name
		s.prompts = 1
		s.state = StateElicitingSlot
		msg, err := s.render(slot.PromptMessage)
		if err != nil {
			return nil, err
		}
		return &Response{
			State:        StateElicitingSlot,
			Message:      msg,
			Intent:       s.intent.Name,
			SlotToElicit: name,
		}, nil
	}

	s.applyDefaults()

	if s.intent.EnableConfirmation {
		s.state = StateConfirming
		s.confirmAsks = 1
		msg, err := s.render(s.intent.ConfirmationPrompt)
		if err != nil {
			return nil, err
		}
		return &Response{
			State:   StateConfirming,
			Message: msg,
			Intent:  s.intent.Name,
		}, nil
	}

	return s.fulfill(ctx)
}

// applyDefaults fills every unfilled slot that declares defaults, covering
// optional slots that were never prompted.
func (s *Session) applyDefaults() {
	for name, slot := range s.intent.Slots {
		if v, filled := s.slots[name]; filled && v != nil {
			continue
		}
		if len(slot.DefaultValues) > 0 {
			s.slots[name] = &SlotValue{Interpreted: slot.DefaultValues[0]}
		}
	}
}

// confirm classifies a confirmation answer. Ambiguous answers re-ask within
// a bounded budget.
func (s *Session) confirm(ctx context.Context, input string) (*Response, error) {
	switch classifyConfirmation(input) {
	case confirmYes:
		return s.fulfill(ctx)

	case confirmNo:
		s.state = StateDeclined
		msg, err := s.render(s.intent.DeclinationResponse)
		if err != nil {
			return nil, err
		}
		return &Response{
			State:   StateDeclined,
			Message: msg,
			Intent:  s.intent.Name,
		}, nil

	default:
		if s.confirmAsks < confirmationMaxRetries+1 {
			s.confirmAsks++
			msg, err := s.render(s.intent.ConfirmationPrompt)
			if err != nil {
				return nil, err
			}
			return &Response{
				State:   StateConfirming,
				Message: msg,
				Intent:  s.intent.Name,
			}, nil
		}
		s.state = StateBlocked
		return &Response{
			State:   StateBlocked,
			Message: "Sorry, I'm unable to continue.",
			Intent:  s.intent.Name,
		}, nil
	}
}

type confirmation int

const (
	confirmAmbiguous confirmation = iota
	confirmYes
	confirmNo
)

func classifyConfirmation(input string) confirmation {
	switch normalize(input) {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay", "confirm", "correct", "that's right":
		return confirmYes
	case "no", "n", "nope", "cancel", "no thanks", "do not", "don't":
		return confirmNo
	default:
		return confirmAmbiguous
	}
}

// fulfill closes the intent, through the fulfillment hook when enabled.
func (s *Session) fulfill(ctx context.Context) (*Response, error) {
	if !s.intent.EnableFulfillmentCodeHook {
		s.state = StateClosed
		msg, err := s.render(s.intent.ClosingMessage)
		if err != nil {
			return nil, err
		}
		return &Response{
			State:   StateClosed,
			Message: msg,
			Intent:  s.intent.Name,
		}, nil
	}

	if s.fulfillment == nil {
		s.state = StateBlocked
		return nil, compose.NewFatalError(
			fmt.Sprintf("intent %q enables fulfillment but no hook is wired", s.intent.Name), nil).WithCode(compose.ErrCodeValidation)
	}

	s.state = StateFulfillmentHook
	hookResp, err := s.fulfillment.Fulfill(ctx, s.hookRequest(""))
	if err != nil {
		s.logger.Warn().Err(err).Str("intent", s.intent.Name).Msg("Fulfillment failed")
		s.state = StateFulfillmentFailed
		msg := s.intent.FulfillmentFailureResponse
		if msg != "" {
			var rerr error
			if msg, rerr = s.render(msg); rerr != nil {
				return nil, rerr
			}
		} else {
			msg = "Sorry, something went wrong completing your request."
		}
		return &Response{
			State:   StateFulfillmentFailed,
			Message: msg,
			Intent:  s.intent.Name,
		}, nil
	}

	if hookResp.SessionAttributes != nil {
		s.attributes = hookResp.SessionAttributes
	}

	s.state = StateClosed
	msg := hookResp.Message
	if s.intent.FulfillmentSuccessResponse != "" {
		var rerr error
		if msg, rerr = s.render(s.intent.FulfillmentSuccessResponse); rerr != nil {
			return nil, rerr
		}
	}
	return &Response{
		State:   StateClosed,
		Message: msg,
		Intent:  s.intent.Name,
	}, nil
}

func (s *Session) hookRequest(input string) *HookRequest {
	return &HookRequest{
		Intent:            s.intent.Name,
		Locale:            s.locale,
		Slots:             s.slots,
		SessionAttributes: s.attributes,
		InputTranscript:   input,
	}
}

// render substitutes slot values and session attributes into a template.
func (s *Session) render(template string) (string, error) {
	return RenderTemplate(template, templateValues(s.slots, s.attributes))
}
