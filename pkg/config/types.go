// Package config loads and validates contact-center declarations from YAML
// and CUE sources, and converts them into compose declarations.
package config

import (
	"fmt"
)

// Declarations is the full declarative input: contact-center resources plus
// the conversational bot definition.
type Declarations struct {
	// Instance names the provisioned instance.
	Instance InstanceConfig `json:"instance" yaml:"instance"`

	// HoursOfOperations are the operating-hours definitions queues refer to.
	HoursOfOperations []HoursOfOperationConfig `json:"hours_of_operations,omitempty" yaml:"hours_of_operations,omitempty"`

	// Queues are the contact queues.
	Queues []QueueConfig `json:"queues,omitempty" yaml:"queues,omitempty"`

	// RoutingProfiles route contacts from queues to users.
	RoutingProfiles []RoutingProfileConfig `json:"routing_profiles,omitempty" yaml:"routing_profiles,omitempty"`

	// SecurityProfiles are permission sets users refer to.
	SecurityProfiles []SecurityProfileConfig `json:"security_profiles,omitempty" yaml:"security_profiles,omitempty"`

	// Users are the agents and admins of the instance.
	Users []UserConfig `json:"users,omitempty" yaml:"users,omitempty"`

	// QuickConnects are transfer destinations referenced by queues.
	QuickConnects []QuickConnectConfig `json:"quick_connects,omitempty" yaml:"quick_connects,omitempty"`

	// LambdaFunctions are hook targets for the bot.
	LambdaFunctions []LambdaFunctionConfig `json:"lambda_functions,omitempty" yaml:"lambda_functions,omitempty"`

	// LambdaLayers are shared dependency layers for the functions.
	LambdaLayers []LambdaLayerConfig `json:"lambda_layers,omitempty" yaml:"lambda_layers,omitempty"`

	// Bot is the conversational bot definition, if any.
	Bot *BotConfig `json:"bot,omitempty" yaml:"bot,omitempty"`
}

// InstanceConfig names the instance being composed.
type InstanceConfig struct {
	// Alias is the instance alias.
	Alias string `json:"alias" yaml:"alias" validate:"required"`
}

// HoursOfOperationConfig is an operating-hours definition.
type HoursOfOperationConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// TimeZone is an IANA time zone name.
	TimeZone string `json:"time_zone" yaml:"time_zone" validate:"required"`

	// Config lists the open intervals per weekday.
	Config []HoursInterval `json:"config" yaml:"config" validate:"min=1,dive"`
}

// HoursInterval is one open interval on one weekday.
type HoursInterval struct {
	// Day is the weekday (MONDAY..SUNDAY).
	Day string `json:"day" yaml:"day" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`

	// Start is the opening time.
	Start TimeOfDay `json:"start" yaml:"start"`

	// End is the closing time.
	End TimeOfDay `json:"end" yaml:"end"`
}

// TimeOfDay is an hour/minute pair.
type TimeOfDay struct {
	Hours   int `json:"hours" yaml:"hours" validate:"gte=0,lte=23"`
	Minutes int `json:"minutes" yaml:"minutes" validate:"gte=0,lte=59"`
}

// QueueConfig is a contact queue. References are by logical name.
type QueueConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// HoursOfOperationName names the hours definition this queue uses.
	HoursOfOperationName string `json:"hours_of_operation_name" yaml:"hours_of_operation_name" validate:"required"`

	// MaxContacts caps concurrent contacts; 0 means unlimited.
	MaxContacts int `json:"max_contacts,omitempty" yaml:"max_contacts,omitempty" validate:"gte=0"`

	// Status is the queue status.
	Status string `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=ENABLED DISABLED"`

	// QuickConnectKeys names quick connects attached to the queue.
	QuickConnectKeys []string `json:"quick_connect_keys,omitempty" yaml:"quick_connect_keys,omitempty"`
}

// RoutingProfileConfig routes contacts to users.
type RoutingProfileConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// DefaultOutboundQueueName names the outbound queue.
	DefaultOutboundQueueName string `json:"default_outbound_queue_name" yaml:"default_outbound_queue_name" validate:"required"`

	// MediaConcurrencies caps concurrent contacts per channel.
	MediaConcurrencies []MediaConcurrency `json:"media_concurrencies" yaml:"media_concurrencies" validate:"min=1,dive"`

	// QueueConfigs attach queues with per-channel delay and priority.
	QueueConfigs []RoutingQueueConfig `json:"queue_configs,omitempty" yaml:"queue_configs,omitempty" validate:"dive"`
}

// MediaConcurrency caps concurrency for one channel.
type MediaConcurrency struct {
	Channel     string `json:"channel" yaml:"channel" validate:"required,oneof=VOICE CHAT TASK"`
	Concurrency int    `json:"concurrency" yaml:"concurrency" validate:"gte=1"`
}

// RoutingQueueConfig attaches one queue to a routing profile.
type RoutingQueueConfig struct {
	Channel   string `json:"channel" yaml:"channel" validate:"required,oneof=VOICE CHAT TASK"`
	Delay     int    `json:"delay" yaml:"delay" validate:"gte=0"`
	Priority  int    `json:"priority" yaml:"priority" validate:"gte=1"`
	QueueName string `json:"queue_name" yaml:"queue_name" validate:"required"`
}

// SecurityProfileConfig is a named permission set.
type SecurityProfileConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Permissions lists granted permissions.
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// UserConfig is an agent or admin.
type UserConfig struct {
	// Username is the logical name.
	Username string `json:"username" yaml:"username" validate:"required"`

	// Email is the user's email address.
	Email string `json:"email" yaml:"email" validate:"required,email"`

	// RoutingProfileName names the user's routing profile.
	RoutingProfileName string `json:"routing_profile_name" yaml:"routing_profile_name" validate:"required"`

	// SecurityProfileNames names the user's security profiles.
	SecurityProfileNames []string `json:"security_profile_names" yaml:"security_profile_names" validate:"min=1"`
}

// QuickConnectConfig is a transfer destination.
type QuickConnectConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Type is the destination type.
	Type string `json:"type" yaml:"type" validate:"required,oneof=PHONE_NUMBER QUEUE USER"`

	// Target is the phone number, queue name, or username.
	Target string `json:"target" yaml:"target" validate:"required"`
}

// LambdaFunctionConfig is a hook target.
type LambdaFunctionConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Handler is the function entry point.
	Handler string `json:"handler" yaml:"handler" validate:"required"`

	// Runtime is the function runtime.
	Runtime string `json:"runtime" yaml:"runtime" validate:"required"`

	// Filename is the local deployment package path.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`

	// LayerNames names the lambda layers the function uses.
	LayerNames []string `json:"layer_names,omitempty" yaml:"layer_names,omitempty"`

	// TimeoutSeconds is the invocation timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gte=0,lte=900"`
}

// LambdaLayerConfig is a shared dependency layer. Exactly one of Filename
// (local content) and S3Key (remote object) must be set.
type LambdaLayerConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Filename is the local archive path.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`

	// S3Key is the remote object key.
	S3Key string `json:"s3_key,omitempty" yaml:"s3_key,omitempty"`

	// CompatibleRuntimes lists runtimes the layer supports.
	CompatibleRuntimes []string `json:"compatible_runtimes,omitempty" yaml:"compatible_runtimes,omitempty"`
}

// BotConfig is the conversational bot definition.
type BotConfig struct {
	// Name is the logical name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// IdleSessionTTLSeconds is the idle session timeout enforced by the
	// bot runtime.
	IdleSessionTTLSeconds int `json:"idle_session_ttl_seconds,omitempty" yaml:"idle_session_ttl_seconds,omitempty" validate:"gte=0,lte=86400"`

	// Locales maps locale ids to their settings.
	Locales map[string]BotLocaleConfig `json:"bot_locales" yaml:"bot_locales" validate:"min=1,dive"`

	// Intents maps intent names to their declarations.
	Intents map[string]IntentConfig `json:"intents,omitempty" yaml:"intents,omitempty" validate:"dive"`

	// Slots maps slot names to their declarations.
	Slots map[string]SlotConfig `json:"slots,omitempty" yaml:"slots,omitempty" validate:"dive"`

	// CustomSlotTypes maps slot type names to their declarations.
	CustomSlotTypes map[string]CustomSlotTypeConfig `json:"custom_slot_types,omitempty" yaml:"custom_slot_types,omitempty" validate:"dive"`

	// Aliases maps alias names to their settings.
	Aliases map[string]BotAliasConfig `json:"bot_aliases,omitempty" yaml:"bot_aliases,omitempty" validate:"dive"`
}

// BotLocaleConfig is one language-scoped configuration grouping.
type BotLocaleConfig struct {
	// NLUConfidenceThreshold is the intent-match confidence cutoff.
	NLUConfidenceThreshold float64 `json:"nlu_confidence_threshold" yaml:"nlu_confidence_threshold" validate:"gte=0,lte=1"`

	// VoiceID selects the synthesis voice.
	VoiceID string `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`

	// VoiceEngine selects the synthesis engine.
	VoiceEngine string `json:"voice_engine,omitempty" yaml:"voice_engine,omitempty" validate:"omitempty,oneof=standard neural"`
}

// IntentConfig declares a conversational goal.
type IntentConfig struct {
	// Locale is the locale this intent belongs to.
	Locale string `json:"locale" yaml:"locale" validate:"required"`

	// SampleUtterances seed utterance matching.
	SampleUtterances []string `json:"sample_utterances" yaml:"sample_utterances" validate:"min=1"`

	// SlotPriorities orders slot elicitation.
	SlotPriorities []SlotPriority `json:"slot_priorities,omitempty" yaml:"slot_priorities,omitempty" validate:"dive"`

	// EnableConfirmation turns on the confirmation step.
	EnableConfirmation bool `json:"enable_confirmation,omitempty" yaml:"enable_confirmation,omitempty"`

	// ConfirmationPrompt is asked before fulfillment.
	ConfirmationPrompt string `json:"confirmation_prompt,omitempty" yaml:"confirmation_prompt,omitempty"`

	// DeclinationResponse is rendered when the user declines.
	DeclinationResponse string `json:"declination_response,omitempty" yaml:"declination_response,omitempty"`

	// ClosingMessage is rendered on success without a fulfillment hook.
	ClosingMessage string `json:"closing_message,omitempty" yaml:"closing_message,omitempty"`

	// EnableDialogCodeHook invokes the dialog hook during slot filling.
	EnableDialogCodeHook bool `json:"enable_dialog_code_hook,omitempty" yaml:"enable_dialog_code_hook,omitempty"`

	// EnableFulfillmentCodeHook invokes the fulfillment hook after closing.
	EnableFulfillmentCodeHook bool `json:"enable_fulfillment_code_hook,omitempty" yaml:"enable_fulfillment_code_hook,omitempty"`

	// FulfillmentSuccessResponse is the success template; {SlotName}
	// placeholders are substituted with resolved slot values.
	FulfillmentSuccessResponse string `json:"fulfillment_success_response,omitempty" yaml:"fulfillment_success_response,omitempty"`

	// FulfillmentFailureResponse is rendered when fulfillment fails.
	FulfillmentFailureResponse string `json:"fulfillment_failure_response,omitempty" yaml:"fulfillment_failure_response,omitempty"`
}

// SlotPriority orders one slot within an intent.
type SlotPriority struct {
	Priority int    `json:"priority" yaml:"priority" validate:"gte=1"`
	SlotID   string `json:"slot_id" yaml:"slot_id" validate:"required"`
}

// SlotConfig declares one input of an intent.
type SlotConfig struct {
	// Intent names the owning intent.
	Intent string `json:"intent" yaml:"intent" validate:"required"`

	// Locale is the locale this slot belongs to; it must match the
	// owning intent's locale.
	Locale string `json:"locale" yaml:"locale" validate:"required"`

	// SlotType is a built-in type name or a declared custom type name.
	SlotType string `json:"slot_type" yaml:"slot_type" validate:"required"`

	// IsRequired marks the slot as mandatory.
	IsRequired bool `json:"is_required,omitempty" yaml:"is_required,omitempty"`

	// PromptMessage elicits the slot.
	PromptMessage string `json:"prompt_message" yaml:"prompt_message" validate:"required"`

	// PromptMaxRetries bounds re-prompts after the initial one.
	PromptMaxRetries int `json:"prompt_max_retries,omitempty" yaml:"prompt_max_retries,omitempty" validate:"gte=0,lte=5"`

	// PromptAllowInterrupt permits switching intents mid-elicitation.
	PromptAllowInterrupt bool `json:"prompt_allow_interrupt,omitempty" yaml:"prompt_allow_interrupt,omitempty"`

	// DefaultValues apply when an optional slot goes unfilled.
	DefaultValues []string `json:"default_values,omitempty" yaml:"default_values,omitempty"`
}

// CustomSlotTypeConfig declares an enumerated slot type.
type CustomSlotTypeConfig struct {
	// Locale is the locale this type belongs to.
	Locale string `json:"locale" yaml:"locale" validate:"required"`

	// ResolutionStrategy selects how matches resolve.
	ResolutionStrategy string `json:"resolution_strategy" yaml:"resolution_strategy" validate:"required,oneof=TopResolution OriginalValue"`

	// Values enumerates the type's values and synonyms.
	Values []SlotTypeValue `json:"values" yaml:"values" validate:"min=1,dive"`
}

// SlotTypeValue is one value with its synonyms.
type SlotTypeValue struct {
	Value    string   `json:"value" yaml:"value" validate:"required"`
	Synonyms []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// BotAliasConfig binds a published version with per-locale wiring.
type BotAliasConfig struct {
	// LocaleSettings maps locale ids to alias-level settings. Keys must be
	// a subset of the declared bot locales.
	LocaleSettings map[string]AliasLocaleSettings `json:"locale_settings" yaml:"locale_settings" validate:"min=1,dive"`

	// EnableConversationLogs turns on conversation logging.
	EnableConversationLogs bool `json:"enable_conversation_logs,omitempty" yaml:"enable_conversation_logs,omitempty"`

	// EnableSentimentAnalysis turns on sentiment analysis.
	EnableSentimentAnalysis bool `json:"enable_sentiment_analysis,omitempty" yaml:"enable_sentiment_analysis,omitempty"`
}

// AliasLocaleSettings is the per-locale alias wiring.
type AliasLocaleSettings struct {
	// Enabled activates the locale under this alias.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// FulfillmentTarget names the lambda function invoked for
	// fulfillment, if any.
	FulfillmentTarget string `json:"fulfillment_target,omitempty" yaml:"fulfillment_target,omitempty"`
}

// ValidationError is a validation finding with source location.
type ValidationError struct {
	// File is the source file, when known.
	File string `json:"file,omitempty"`

	// Path locates the finding within the declarations (e.g. "queues[2]").
	Path string `json:"path,omitempty"`

	// Message describes the finding.
	Message string `json:"message"`

	// Severity is error, warning, or info.
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (v ValidationError) Error() string {
	if v.Path != "" {
		return fmt.Sprintf("%s: %s", v.Path, v.Message)
	}
	return v.Message
}
