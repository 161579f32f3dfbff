package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema("hours_of_operation", builtinHoursSchema)
	sr.RegisterSchema("queue", builtinQueueSchema)
	sr.RegisterSchema("routing_profile", builtinRoutingProfileSchema)
	sr.RegisterSchema("user", builtinUserSchema)
	sr.RegisterSchema("bot", builtinBotSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := definitionValue(schema).Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// definitionValue unwraps a schema written as a single #Definition so data
// unifies against the definition's constraints rather than the file scope.
func definitionValue(schema cue.Value) cue.Value {
	it, err := schema.Fields(cue.Definitions(true))
	if err != nil {
		return schema
	}
	for it.Next() {
		if it.Selector().IsDefinition() {
			return it.Value()
		}
	}
	return schema
}

// Built-in schema definitions

const builtinHoursSchema = `
// Hours of operation schema
#HoursOfOperation: {
	// Name is the unique resource name
	name: string & =~"^[a-zA-Z0-9 _-]+$"

	// Description is an optional human-readable summary
	description?: string

	// TimeZone is an IANA time zone identifier
	time_zone: string

	// Config lists the open intervals per day
	config: [...{
		day: "MONDAY" | "TUESDAY" | "WEDNESDAY" | "THURSDAY" | "FRIDAY" | "SATURDAY" | "SUNDAY"
		start: {hours: int & >=0 & <=23, minutes: int & >=0 & <=59}
		end: {hours: int & >=0 & <=23, minutes: int & >=0 & <=59}
	}]
}
`

const builtinQueueSchema = `
// Queue schema
#Queue: {
	// Name is the unique resource name
	name: string & =~"^[a-zA-Z0-9 _-]+$"

	// Description is an optional human-readable summary
	description?: string

	// HoursOfOperationName references an hours_of_operation declaration
	hours_of_operation_name: string

	// MaxContacts caps concurrent contacts; omit for unlimited
	max_contacts?: int & >=0

	// Status toggles whether the queue accepts new contacts
	status?: "ENABLED" | "DISABLED"

	// QuickConnectKeys references quick_connect declarations
	quick_connect_keys?: [...string]
}
`

const builtinRoutingProfileSchema = `
// Routing profile schema
#RoutingProfile: {
	// Name is the unique resource name
	name: string & =~"^[a-zA-Z0-9 _-]+$"

	// Description is an optional human-readable summary
	description?: string

	// DefaultOutboundQueueName references a queue declaration
	default_outbound_queue_name: string

	// MediaConcurrencies declares per-channel concurrency
	media_concurrencies: [...{
		channel: "VOICE" | "CHAT" | "TASK"
		concurrency: int & >=1
	}]

	// QueueConfigs associates queues with this profile
	queue_configs?: [...{
		queue_name: string
		channel:    "VOICE" | "CHAT" | "TASK"
		delay:      int & >=0
		priority:   int & >=1
	}]
}
`

const builtinUserSchema = `
// User schema
#User: {
	// Username is the unique login name
	username: string & =~"^[a-zA-Z0-9._@-]+$"

	// Email is the user's address
	email: string & =~"^[^@]+@[^@]+$"

	// FirstName and LastName are identity fields
	first_name?: string
	last_name?:  string

	// RoutingProfileName references a routing_profile declaration
	routing_profile_name: string

	// SecurityProfileNames references security_profile declarations
	security_profile_names: [...string] & [_, ...]
}
`

const builtinBotSchema = `
// Bot schema
#Bot: {
	// Name is the unique bot name
	name: string & =~"^[a-zA-Z0-9_-]+$"

	// Description is an optional human-readable summary
	description?: string

	// IdleSessionTTLSeconds bounds session lifetime between turns
	idle_session_ttl_seconds: int & >=60 & <=86400

	// ChildDirected flags COPPA applicability
	child_directed?: bool

	// Locales maps locale IDs to their NLU settings
	bot_locales: {[string]: {
		nlu_confidence_threshold: number & >=0 & <=1
		voice_id?:                string
		voice_engine?:            "standard" | "neural"
	}}
}
`

// ValidateHoursOfOperation validates an hours configuration against its schema.
func (sr *SchemaRegistry) ValidateHoursOfOperation(ctx context.Context, hours HoursOfOperationConfig) error {
	return sr.ValidateAgainstSchema(ctx, "hours_of_operation", hours)
}

// ValidateQueue validates a queue configuration against its schema.
func (sr *SchemaRegistry) ValidateQueue(ctx context.Context, queue QueueConfig) error {
	return sr.ValidateAgainstSchema(ctx, "queue", queue)
}

// ValidateRoutingProfile validates a routing profile configuration against its schema.
func (sr *SchemaRegistry) ValidateRoutingProfile(ctx context.Context, profile RoutingProfileConfig) error {
	return sr.ValidateAgainstSchema(ctx, "routing_profile", profile)
}

// ValidateUser validates a user configuration against its schema.
func (sr *SchemaRegistry) ValidateUser(ctx context.Context, user UserConfig) error {
	return sr.ValidateAgainstSchema(ctx, "user", user)
}
