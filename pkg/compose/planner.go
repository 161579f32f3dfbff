package compose

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Composer turns caller-supplied declarations into a validated provisioning
// plan. Composition is a single-pass, stateless computation: register every
// declaration into the name table, resolve all references, then order the
// result. All validation happens before the first provisioning call.
type Composer struct {
	logger zerolog.Logger
}

// NewComposer creates a composer.
func NewComposer(logger zerolog.Logger) *Composer {
	return &Composer{
		logger: logger.With().Str("component", "composer").Logger(),
	}
}

// Compose builds a provisioning plan from declarations. Declaration order is
// preserved: independent resources keep their relative input order in the
// plan.
func (c *Composer) Compose(decls []Declaration) (*Plan, error) {
	registry := NewRegistry()

	// First pass: every declaration enters the name table before any
	// reference is resolved.
	for _, d := range decls {
		if err := validateDeclaration(d); err != nil {
			return nil, err
		}
		if _, err := registry.Register(d); err != nil {
			return nil, err
		}
	}

	// Second pass: resolve every reference.
	resolved, err := registry.ResolveRefs()
	if err != nil {
		return nil, err
	}

	units := make([]PlanUnit, 0, registry.Len())
	for _, h := range registry.Handles() {
		decl, err := registry.Declaration(h)
		if err != nil {
			return nil, err
		}
		units = append(units, PlanUnit{
			ID:         h.ID(),
			Kind:       decl.Kind,
			Name:       decl.Name,
			Attributes: decl.Attributes,
			Requires:   resolved[h.ID()],
		})
	}

	graph, err := NewGraphBuilder().Build(units)
	if err != nil {
		return nil, err
	}

	// Reorder units into topological sequence.
	byID := make(map[string]PlanUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	ordered := make([]PlanUnit, 0, len(units))
	for _, id := range graph.Ordered() {
		u := byID[id]
		u.Level = graph.Nodes[id].Level
		ordered = append(ordered, u)
	}

	plan := &Plan{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Units:     ordered,
		Graph:     graph,
	}

	c.logger.Debug().
		Str("plan_id", plan.ID).
		Int("units", len(plan.Units)).
		Int("depth", graph.Depth).
		Msg("Plan composed")

	return plan, nil
}

// layerSource is the subset of lambda layer attributes subject to the
// mutually-exclusive source rule.
type layerSource struct {
	Filename string `json:"filename"`
	S3Key    string `json:"s3_key"`
}

// validateDeclaration enforces kind-specific attribute invariants.
func validateDeclaration(d Declaration) error {
	if d.Kind != KindLambdaLayer {
		return nil
	}

	var src layerSource
	if len(d.Attributes) > 0 {
		if err := json.Unmarshal(d.Attributes, &src); err != nil {
			return NewFatalError("layer attributes are not valid JSON", err).
				WithCode(ErrCodeValidation).
				WithResource(d.Kind, d.Name)
		}
	}

	// Exactly one of the local-content and remote-object sources must be set.
	switch {
	case src.Filename == "" && src.S3Key == "":
		return NewFatalError(
			fmt.Sprintf("layer %q declares neither filename nor s3_key", d.Name), nil).
			WithCode(ErrCodeValidation).
			WithResource(d.Kind, d.Name)
	case src.Filename != "" && src.S3Key != "":
		return NewFatalError(
			fmt.Sprintf("layer %q declares both filename and s3_key", d.Name), nil).
			WithCode(ErrCodeValidation).
			WithResource(d.Kind, d.Name)
	}

	return nil
}
