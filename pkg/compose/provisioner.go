package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Provisioner is the external provisioning API. Calls are opaque: the engine
// passes attributes and resolved prerequisite identities, the provider
// returns a concrete identity. Retry policy for provider calls belongs to
// the provider, not this engine.
type Provisioner interface {
	// Create provisions one logical resource. deps maps the handle ID of
	// each prerequisite to its resolved identity.
	Create(ctx context.Context, unit PlanUnit, deps map[string]Identity) (Identity, error)

	// Read fetches the identity of an existing resource, if any.
	Read(ctx context.Context, kind Kind, name string) (Identity, bool, error)

	// Delete retires a resource that was removed from configuration.
	Delete(ctx context.Context, kind Kind, name string) error
}

// EventSink receives apply lifecycle events. Implementations must be safe
// for concurrent use.
type EventSink interface {
	UnitStarted(runID string, unit PlanUnit)
	UnitSucceeded(runID string, unit PlanUnit, identity Identity)
	UnitFailed(runID string, unit PlanUnit, err error)
	UnitSkipped(runID string, unit PlanUnit, reason string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) UnitStarted(string, PlanUnit)            {}
func (NopSink) UnitSucceeded(string, PlanUnit, Identity) {}
func (NopSink) UnitFailed(string, PlanUnit, error)      {}
func (NopSink) UnitSkipped(string, PlanUnit, string)    {}

// ApplyOptions controls plan application.
type ApplyOptions struct {
	// MaxParallel caps concurrent provisioning calls within a level.
	MaxParallel int

	// FailFast stops scheduling new levels after the first failure.
	// Dependents of a failed unit are always skipped either way.
	FailFast bool

	// InstanceAlias names the provisioned instance in the summary and test
	// command.
	InstanceAlias string
}

// unitOutcome is the per-unit result tracked during a run.
type unitOutcome struct {
	status   string
	identity Identity
	err      error
}

const (
	outcomePending   = "pending"
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

// Applier executes a composed plan against a provisioner, level by level.
// Independent subgraphs run concurrently; a dependent unit blocks on its
// prerequisites' resolved identifiers, which is the only suspension point.
type Applier struct {
	provisioner Provisioner
	sink        EventSink
	logger      zerolog.Logger

	mu       sync.RWMutex
	outcomes map[string]*unitOutcome
}

// NewApplier creates an applier for the given provisioner.
func NewApplier(p Provisioner, sink EventSink, logger zerolog.Logger) *Applier {
	if sink == nil {
		sink = NopSink{}
	}
	return &Applier{
		provisioner: p,
		sink:        sink,
		logger:      logger.With().Str("component", "applier").Logger(),
	}
}

// Apply provisions every unit of the plan and returns the resolved outputs.
// Provider failures are reported with the identity of the failing logical
// resource; sibling subgraphs keep running unless FailFast is set.
func (a *Applier) Apply(ctx context.Context, plan *Plan, opts ApplyOptions) (*Outputs, error) {
	if plan == nil || plan.Graph == nil {
		return nil, NewFatalError("plan has no dependency graph", nil).
			WithCode(ErrCodeValidation)
	}

	runID := uuid.New().String()
	a.outcomes = make(map[string]*unitOutcome, len(plan.Units))
	for _, u := range plan.Units {
		a.outcomes[u.ID] = &unitOutcome{status: outcomePending}
	}

	unitsByID := make(map[string]*PlanUnit, len(plan.Units))
	for i := range plan.Units {
		unitsByID[plan.Units[i].ID] = &plan.Units[i]
	}

	started := time.Now()
	var firstErr error

	for level, ids := range plan.Graph.Levels {
		if err := a.applyLevel(ctx, runID, ids, unitsByID, opts); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if opts.FailFast {
				a.logger.Warn().Int("level", level).Err(err).Msg("Stopping after failed level")
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	outputs := a.collectOutputs(plan, opts, time.Since(started))
	return outputs, firstErr
}

// applyLevel runs all units of one level through a bounded worker pool.
func (a *Applier) applyLevel(
	ctx context.Context,
	runID string,
	ids []string,
	unitsByID map[string]*PlanUnit,
	opts ApplyOptions,
) error {
	workers := opts.MaxParallel
	if workers <= 0 {
		workers = 8
	}
	if len(ids) < workers {
		workers = len(ids)
	}

	work := make(chan *PlanUnit, len(ids))
	for _, id := range ids {
		work <- unitsByID[id]
	}
	close(work)

	var wg sync.WaitGroup
	errCh := make(chan error, len(ids))

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range work {
				if reason, ok := a.blockedBy(unit); ok {
					a.markSkipped(runID, unit, reason)
					continue
				}
				if err := a.applyUnit(ctx, runID, unit); err != nil {
					errCh <- err
				}
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// applyUnit provisions a single unit with its prerequisites' identities.
func (a *Applier) applyUnit(ctx context.Context, runID string, unit *PlanUnit) error {
	a.sink.UnitStarted(runID, *unit)

	deps := make(map[string]Identity, len(unit.Requires))
	a.mu.RLock()
	for _, req := range unit.Requires {
		deps[req.ID()] = a.outcomes[req.ID()].identity
	}
	a.mu.RUnlock()

	identity, err := a.provisioner.Create(ctx, *unit, deps)
	if err != nil {
		perr := NewProvisionError(
			fmt.Sprintf("provisioning failed for %s %q", unit.Kind, unit.Name), err).
			WithResource(unit.Kind, unit.Name)
		a.setOutcome(unit.ID, &unitOutcome{status: outcomeFailed, err: perr})
		a.sink.UnitFailed(runID, *unit, perr)
		a.logger.Error().
			Str("run_id", runID).
			Str("kind", string(unit.Kind)).
			Str("name", unit.Name).
			Err(err).
			Msg("Unit failed")
		return perr
	}

	a.setOutcome(unit.ID, &unitOutcome{status: outcomeSucceeded, identity: identity})
	a.sink.UnitSucceeded(runID, *unit, identity)
	a.logger.Debug().
		Str("run_id", runID).
		Str("kind", string(unit.Kind)).
		Str("name", unit.Name).
		Str("id", identity.ID).
		Msg("Unit provisioned")
	return nil
}

// blockedBy reports whether any prerequisite did not succeed.
func (a *Applier) blockedBy(unit *PlanUnit) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, req := range unit.Requires {
		if out, ok := a.outcomes[req.ID()]; !ok || out.status != outcomeSucceeded {
			return fmt.Sprintf("prerequisite %s did not succeed", req.ID()), true
		}
	}
	return "", false
}

func (a *Applier) markSkipped(runID string, unit *PlanUnit, reason string) {
	a.setOutcome(unit.ID, &unitOutcome{status: outcomeSkipped})
	a.sink.UnitSkipped(runID, *unit, reason)
	a.logger.Warn().
		Str("kind", string(unit.Kind)).
		Str("name", unit.Name).
		Str("reason", reason).
		Msg("Unit skipped")
}

func (a *Applier) setOutcome(id string, out *unitOutcome) {
	a.mu.Lock()
	a.outcomes[id] = out
	a.mu.Unlock()
}

// collectOutputs assembles the id/arn maps, the summary, and the test
// command string.
func (a *Applier) collectOutputs(plan *Plan, opts ApplyOptions, elapsed time.Duration) *Outputs {
	a.mu.RLock()
	defer a.mu.RUnlock()

	outputs := &Outputs{
		Identities: make(map[Kind]map[string]Identity),
	}

	succeeded, failed, skipped := 0, 0, 0
	var failures []string

	for _, unit := range plan.Units {
		out := a.outcomes[unit.ID]
		switch out.status {
		case outcomeSucceeded:
			succeeded++
			byName, ok := outputs.Identities[unit.Kind]
			if !ok {
				byName = make(map[string]Identity)
				outputs.Identities[unit.Kind] = byName
			}
			byName[unit.Name] = out.identity
		case outcomeFailed:
			failed++
			failures = append(failures, fmt.Sprintf("%s %q: %v", unit.Kind, unit.Name, out.err))
		case outcomeSkipped:
			skipped++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Provisioned %d of %d resources in %s", succeeded, len(plan.Units), elapsed.Round(time.Millisecond))
	if failed > 0 {
		fmt.Fprintf(&sb, " (%d failed, %d skipped)", failed, skipped)
	}
	sb.WriteString("\n")

	kinds := make([]Kind, 0, len(outputs.Identities))
	for k := range outputs.Identities {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		names := make([]string, 0, len(outputs.Identities[k]))
		for n := range outputs.Identities[k] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(&sb, "  %s %q -> %s\n", k, n, outputs.Identities[k][n].ID)
		}
	}
	for _, f := range failures {
		fmt.Fprintf(&sb, "  failed: %s\n", f)
	}
	outputs.Summary = sb.String()

	if opts.InstanceAlias != "" {
		outputs.TestCommand = testCommand(opts.InstanceAlias, outputs)
	}

	return outputs
}

// testCommand builds a ready-to-invoke command for exercising the
// provisioned bot, when one was created.
func testCommand(alias string, outputs *Outputs) string {
	bots := outputs.Identities[KindBot]
	if len(bots) == 0 {
		return ""
	}
	names := make([]string, 0, len(bots))
	for n := range bots {
		names = append(names, n)
	}
	sort.Strings(names)
	bot := bots[names[0]]
	return fmt.Sprintf(
		"dialtone bot simulate --bot-id %s --alias %s --text \"hello\"",
		bot.ID, alias)
}
