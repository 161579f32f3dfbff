package dialog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dialtone/dialtone/pkg/compose"
	"github.com/dialtone/dialtone/pkg/config"
)

// Compiler turns a bot declaration into a runnable model.
type Compiler struct {
	logger  zerolog.Logger
	parsers map[string]SlotParser
}

// NewCompiler creates a compiler with the built-in slot type parsers
// registered.
func NewCompiler(logger zerolog.Logger) *Compiler {
	return &Compiler{
		logger: logger.With().Str("component", "dialog-compiler").Logger(),
		parsers: map[string]SlotParser{
			"AMAZON.FreeFormInput": freeFormParser{},
			"AMAZON.Number":        numberParser{},
			"AMAZON.Date":          dateParser{},
		},
	}
}

// RegisterParser registers or replaces a built-in slot type parser.
func (c *Compiler) RegisterParser(typeName string, parser SlotParser) {
	c.parsers[typeName] = parser
}

// Compile validates a bot declaration and produces its model. All slot and
// type references must resolve within the declaring locale.
func (c *Compiler) Compile(cfg *config.BotConfig) (*Model, error) {
	model := &Model{
		Name:                  cfg.Name,
		IdleSessionTTLSeconds: cfg.IdleSessionTTLSeconds,
		Locales:               make(map[string]Locale),
		Intents:               make(map[string]*Intent),
	}

	for id, lc := range cfg.Locales {
		model.Locales[id] = Locale{
			ID:                     id,
			NLUConfidenceThreshold: lc.NLUConfidenceThreshold,
			VoiceID:                lc.VoiceID,
			VoiceEngine:            lc.VoiceEngine,
		}
	}

	types, err := c.compileTypes(cfg)
	if err != nil {
		return nil, err
	}

	for name, ic := range cfg.Intents {
		if _, ok := model.Locales[ic.Locale]; !ok {
			return nil, compose.NewFatalError(
				fmt.Sprintf("intent %q declares undeclared locale %q", name, ic.Locale), nil).WithCode(compose.ErrCodeValidation)
		}
		if ic.EnableConfirmation && ic.ConfirmationPrompt == "" {
			return nil, compose.NewFatalError(
				fmt.Sprintf("intent %q enables confirmation without a confirmation prompt", name), nil).WithCode(compose.ErrCodeValidation)
		}

		model.Intents[name] = &Intent{
			Name:                       name,
			Locale:                     ic.Locale,
			SampleUtterances:           append([]string(nil), ic.SampleUtterances...),
			Slots:                      make(map[string]*Slot),
			EnableConfirmation:         ic.EnableConfirmation,
			ConfirmationPrompt:         ic.ConfirmationPrompt,
			DeclinationResponse:        ic.DeclinationResponse,
			ClosingMessage:             ic.ClosingMessage,
			EnableDialogCodeHook:       ic.EnableDialogCodeHook,
			EnableFulfillmentCodeHook:  ic.EnableFulfillmentCodeHook,
			FulfillmentSuccessResponse: ic.FulfillmentSuccessResponse,
			FulfillmentFailureResponse: ic.FulfillmentFailureResponse,
		}
	}

	for name, sc := range cfg.Slots {
		intent, ok := model.Intents[sc.Intent]
		if !ok {
			return nil, compose.NewFatalError(
				fmt.Sprintf("slot %q declares unknown intent %q", name, sc.Intent), nil).WithCode(compose.ErrCodeValidation)
		}
		if sc.Locale != intent.Locale {
			return nil, compose.NewFatalError(
				fmt.Sprintf("slot %q locale %q does not match intent %q locale %q",
					name, sc.Locale, sc.Intent, intent.Locale), nil).WithCode(compose.ErrCodeValidation)
		}

		st, err := c.resolveType(sc.SlotType, sc.Locale, types)
		if err != nil {
			return nil, compose.NewFatalError(
				fmt.Sprintf("slot %q: %v", name, err), nil).WithCode(compose.ErrCodeValidation)
		}

		intent.Slots[name] = &Slot{
			Name:           name,
			Intent:         sc.Intent,
			Locale:         sc.Locale,
			Type:           st,
			Required:       sc.IsRequired,
			PromptMessage:  sc.PromptMessage,
			MaxRetries:     sc.PromptMaxRetries,
			AllowInterrupt: sc.PromptAllowInterrupt,
			DefaultValues:  append([]string(nil), sc.DefaultValues...),
		}
	}

	for name, ic := range cfg.Intents {
		intent := model.Intents[name]
		order, err := elicitationOrder(intent, ic.SlotPriorities)
		if err != nil {
			return nil, err
		}
		intent.ElicitationOrder = order
	}

	c.logger.Debug().
		Str("bot", model.Name).
		Int("locales", len(model.Locales)).
		Int("intents", len(model.Intents)).
		Msg("Compiled bot model")

	return model, nil
}

// compileTypes compiles the custom slot types, keyed by locale then name.
func (c *Compiler) compileTypes(cfg *config.BotConfig) (map[string]map[string]*SlotType, error) {
	types := make(map[string]map[string]*SlotType)
	for name, tc := range cfg.CustomSlotTypes {
		if _, ok := cfg.Locales[tc.Locale]; !ok {
			return nil, compose.NewFatalError(
				fmt.Sprintf("custom slot type %q declares undeclared locale %q", name, tc.Locale), nil).WithCode(compose.ErrCodeValidation)
		}

		st := &SlotType{
			Name:     name,
			Locale:   tc.Locale,
			Strategy: ResolutionStrategy(tc.ResolutionStrategy),
		}
		for _, v := range tc.Values {
			st.Values = append(st.Values, TypeValue{
				Value:    v.Value,
				Synonyms: append([]string(nil), v.Synonyms...),
			})
		}

		if types[tc.Locale] == nil {
			types[tc.Locale] = make(map[string]*SlotType)
		}
		types[tc.Locale][name] = st
	}
	return types, nil
}

// resolveType resolves a slot type name to a built-in parser type or a
// custom type declared in the same locale.
func (c *Compiler) resolveType(name, locale string, types map[string]map[string]*SlotType) (*SlotType, error) {
	if parser, ok := c.parsers[name]; ok {
		return &SlotType{Name: name, Parser: parser}, nil
	}
	if st, ok := types[locale][name]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("slot type %q is neither built-in nor declared in locale %q", name, locale)
}

// elicitationOrder computes the slot prompting order: explicit priorities
// first, then the remaining required slots in name order. Optional slots
// without a priority are never prompted; their defaults apply at the end of
// slot filling.
func elicitationOrder(intent *Intent, priorities []config.SlotPriority) ([]string, error) {
	sorted := append([]config.SlotPriority(nil), priorities...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	var order []string
	listed := make(map[string]bool)
	for _, p := range sorted {
		if _, ok := intent.Slots[p.SlotID]; !ok {
			return nil, compose.NewFatalError(
				fmt.Sprintf("intent %q prioritizes unknown slot %q", intent.Name, p.SlotID), nil).WithCode(compose.ErrCodeValidation)
		}
		if listed[p.SlotID] {
			continue
		}
		listed[p.SlotID] = true
		order = append(order, p.SlotID)
	}

	var rest []string
	for name, slot := range intent.Slots {
		if slot.Required && !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	return order, nil
}

// normalize lowercases and collapses input for utterance and value matching.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
