package policy

import (
	"encoding/json"
	"time"

	"github.com/dialtone/dialtone/pkg/compose"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that block an apply.
	SeverityError Severity = "error"
)

// Policy is a named rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation is a single policy violation.
type Violation struct {
	// Policy is the name of the violated policy.
	Policy string `json:"policy"`

	// Resource is the plan unit ID that violated the policy.
	Resource string `json:"resource,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating a plan against the loaded policies.
type Result struct {
	// Allowed indicates whether the plan may be applied.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations, warnings included.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists evaluation problems that did not block the plan.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Input is the document handed to Rego. Unit-scoped rules see one plan unit
// at a time; plan-scoped rules see the whole plan.
type Input struct {
	// Unit is the plan unit under evaluation, if unit-scoped.
	Unit *UnitInput `json:"unit,omitempty"`

	// Plan is the whole plan, if plan-scoped.
	Plan *PlanInput `json:"plan,omitempty"`

	// Context provides evaluation context.
	Context *Context `json:"context"`
}

// UnitInput is a plan unit with its attributes decoded for Rego.
type UnitInput struct {
	// ID is the plan unit ID.
	ID string `json:"id"`

	// Kind is the resource kind.
	Kind string `json:"kind"`

	// Name is the logical resource name.
	Name string `json:"name"`

	// Attributes is the decoded configuration payload.
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	// Requires lists the prerequisite resources by kind and name.
	Requires []RequirementInput `json:"requires"`
}

// RequirementInput names one prerequisite of a plan unit.
type RequirementInput struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// PlanInput is the whole plan for plan-scoped rules.
type PlanInput struct {
	// ID is the plan ID.
	ID string `json:"id"`

	// Units are the plan units in execution order.
	Units []UnitInput `json:"units"`
}

// Context provides evaluation context information.
type Context struct {
	// Instance is the instance alias being composed.
	Instance string `json:"instance,omitempty"`

	// Operation is the operation under evaluation (e.g. "plan", "apply").
	Operation string `json:"operation,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`
}

// newUnitInput converts a plan unit, decoding its attribute payload so Rego
// rules can address individual fields.
func newUnitInput(unit *compose.PlanUnit) UnitInput {
	in := UnitInput{
		ID:       unit.ID,
		Kind:     string(unit.Kind),
		Name:     unit.Name,
		Requires: make([]RequirementInput, 0, len(unit.Requires)),
	}
	if len(unit.Attributes) > 0 {
		var attrs map[string]interface{}
		if err := json.Unmarshal(unit.Attributes, &attrs); err == nil {
			in.Attributes = attrs
		}
	}
	for _, h := range unit.Requires {
		in.Requires = append(in.Requires, RequirementInput{Kind: string(h.Kind), Name: h.Name})
	}
	return in
}
