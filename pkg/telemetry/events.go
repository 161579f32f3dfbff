package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RunID is the associated apply run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Resource is the associated resource handle (kind/name), if applicable.
	Resource string `json:"resource,omitempty"`

	// SessionID is the associated dialog session, if applicable.
	SessionID string `json:"session_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeRunStarted          = "run.started"
	EventTypeRunCompleted        = "run.completed"
	EventTypeRunFailed           = "run.failed"
	EventTypeResourceProvisioned = "resource.provisioned"
	EventTypeResourceFailed      = "resource.failed"
	EventTypePolicyViolation     = "policy.violation"
	EventTypeBotPublished        = "bot.published"
	EventTypeSessionStarted      = "session.started"
	EventTypeSessionClosed       = "session.closed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishRunStarted publishes an apply run started event.
func (ep *EventPublisher) PublishRunStarted(runID, instance string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunStarted,
		Source:  "compose",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s started for instance %s", runID, instance),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"instance": instance,
		},
	})
}

// PublishRunCompleted publishes an apply run completed event.
func (ep *EventPublisher) PublishRunCompleted(runID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeRunCompleted,
		Source:  "compose",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s completed with status: %s", runID, status),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishRunFailed publishes an apply run failed event.
func (ep *EventPublisher) PublishRunFailed(runID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunFailed,
		Source:  "compose",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s failed: %s", runID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishResourceProvisioned publishes a resource provisioned event.
func (ep *EventPublisher) PublishResourceProvisioned(runID, resource, resourceID string) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceProvisioned,
		Source:   "compose",
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("Resource %s provisioned as %s", resource, resourceID),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"resource_id": resourceID,
		},
	})
}

// PublishResourceFailed publishes a resource provisioning failure event.
func (ep *EventPublisher) PublishResourceFailed(runID, resource, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceFailed,
		Source:   "compose",
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("Resource %s failed: %s", resource, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(resource, policyName, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypePolicyViolation,
		Source:   "policy",
		Resource: resource,
		Message:  fmt.Sprintf("Policy violation on %s: %s - %s", resource, policyName, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// PublishBotPublished publishes a bot version publication event.
func (ep *EventPublisher) PublishBotPublished(bot, version, alias string) error {
	return ep.Publish(Event{
		Type:    EventTypeBotPublished,
		Source:  "dialog",
		Message: fmt.Sprintf("Bot %s version %s bound to alias %s", bot, version, alias),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"bot":     bot,
			"version": version,
			"alias":   alias,
		},
	})
}

// PublishSessionStarted publishes a dialog session started event.
func (ep *EventPublisher) PublishSessionStarted(sessionID, bot, locale string) error {
	return ep.Publish(Event{
		Type:      EventTypeSessionStarted,
		Source:    "dialog",
		SessionID: sessionID,
		Message:   fmt.Sprintf("Session %s started for bot %s (%s)", sessionID, bot, locale),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"bot":    bot,
			"locale": locale,
		},
	})
}

// PublishSessionClosed publishes a dialog session closed event.
func (ep *EventPublisher) PublishSessionClosed(sessionID, state string) error {
	return ep.Publish(Event{
		Type:      EventTypeSessionClosed,
		Source:    "dialog",
		SessionID: sessionID,
		Message:   fmt.Sprintf("Session %s closed in state %s", sessionID, state),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"state": state,
		},
	})
}

// Subscribe adds a new event subscriber with an optional filter.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			// Drain remaining buffered events
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRunID creates a filter that only allows events for a specific run.
func FilterByRunID(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID == runID
	}
}
