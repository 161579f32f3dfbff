package compose

import (
	"encoding/json"
	"time"
)

// Kind identifies a logical resource namespace. Names are unique per kind,
// never globally: the same string may be a queue name and a username.
type Kind string

const (
	KindHoursOfOperation Kind = "hours_of_operation"
	KindQueue            Kind = "queue"
	KindRoutingProfile   Kind = "routing_profile"
	KindSecurityProfile  Kind = "security_profile"
	KindUser             Kind = "user"
	KindQuickConnect     Kind = "quick_connect"
	KindLambdaFunction   Kind = "lambda_function"
	KindLambdaLayer      Kind = "lambda_layer"
	KindLogGroup         Kind = "log_group"
	KindBot              Kind = "bot"
)

// Ref names another logical resource by kind and name.
type Ref struct {
	// Kind is the referenced resource kind.
	Kind Kind `json:"kind"`

	// Name is the referenced logical name.
	Name string `json:"name"`
}

// Declaration is a caller-supplied logical resource: identity, flat
// attributes, and the names of the resources it requires identifiers of.
type Declaration struct {
	// Kind is the resource kind.
	Kind Kind `json:"kind"`

	// Name is the logical name, unique within the kind.
	Name string `json:"name"`

	// Attributes is the kind-specific configuration payload.
	Attributes json.RawMessage `json:"attributes,omitempty"`

	// Refs lists the resources whose identifiers this declaration needs.
	Refs []Ref `json:"refs,omitempty"`
}

// Handle is a resolved reference to a registered declaration.
type Handle struct {
	// Kind is the resource kind.
	Kind Kind `json:"kind"`

	// Name is the logical name.
	Name string `json:"name"`

	// Index is the declaration order, assigned at registration. Independent
	// resources are provisioned in ascending index order so repeated
	// resolutions of identical input produce identical plans.
	Index int `json:"index"`
}

// ID returns the per-kind namespaced identity of the handle.
func (h Handle) ID() string {
	return string(h.Kind) + "/" + h.Name
}

// PlanUnit is one provisioning operation in a plan.
type PlanUnit struct {
	// ID is the unique identifier for this plan unit.
	ID string `json:"id"`

	// Kind is the kind of the resource being provisioned.
	Kind Kind `json:"kind"`

	// Name is the logical name of the resource being provisioned.
	Name string `json:"name"`

	// Attributes is the configuration passed to the provisioner.
	Attributes json.RawMessage `json:"attributes,omitempty"`

	// Requires lists the handles whose identifiers must exist first.
	Requires []Handle `json:"requires,omitempty"`

	// Level is the topological execution level assigned by the graph.
	Level int `json:"level"`
}

// Plan is a validated, dependency-ordered provisioning plan.
type Plan struct {
	// ID is the unique identifier for this plan.
	ID string `json:"id"`

	// CreatedAt is when the plan was composed.
	CreatedAt time.Time `json:"created_at"`

	// Units are the provisioning operations in topological order.
	Units []PlanUnit `json:"units"`

	// Graph is the dependency graph over the units.
	Graph *Graph `json:"graph,omitempty"`
}

// Identity is the concrete identity returned by the provisioning API for a
// logical resource.
type Identity struct {
	// ID is the provider-assigned identifier.
	ID string `json:"id"`

	// ARN is the provider-assigned resource name.
	ARN string `json:"arn"`
}

// Outputs is the result of applying a plan: resolved identities keyed by
// logical name within each kind, plus the human-readable artifacts exposed
// to collaborators.
type Outputs struct {
	// Identities maps kind to logical name to resolved identity.
	Identities map[Kind]map[string]Identity `json:"identities"`

	// Summary is a human-readable provisioning summary.
	Summary string `json:"summary"`

	// TestCommand is a ready-to-invoke command string for exercising the
	// provisioned instance.
	TestCommand string `json:"test_command,omitempty"`
}

// IDs returns the id map for one kind, keyed by logical name. Absent kinds
// yield an empty map, never nil lookup errors.
func (o *Outputs) IDs(kind Kind) map[string]string {
	ids := make(map[string]string)
	for name, ident := range o.Identities[kind] {
		ids[name] = ident.ID
	}
	return ids
}

// ARNs returns the arn map for one kind, keyed by logical name.
func (o *Outputs) ARNs(kind Kind) map[string]string {
	arns := make(map[string]string)
	for name, ident := range o.Identities[kind] {
		arns[name] = ident.ARN
	}
	return arns
}

// Graph is the dependency graph over plan units. An edge A->B means A
// requires B's identifier to exist.
type Graph struct {
	// Nodes maps unit IDs to their graph nodes.
	Nodes map[string]*GraphNode `json:"nodes"`

	// Edges lists all dependency edges.
	Edges []GraphEdge `json:"edges"`

	// Roots are the unit IDs with no prerequisites.
	Roots []string `json:"roots"`

	// Depth is the number of execution levels.
	Depth int `json:"depth"`

	// Levels holds unit IDs per execution level, each level in declaration
	// order.
	Levels [][]string `json:"levels"`
}

// GraphNode is a node in the dependency graph.
type GraphNode struct {
	// ID is the plan unit ID.
	ID string `json:"id"`

	// Level is the topological level (distance from the roots).
	Level int `json:"level"`

	// Requires are the unit IDs this node depends on.
	Requires []string `json:"requires"`

	// RequiredBy are the unit IDs that depend on this node.
	RequiredBy []string `json:"required_by"`
}

// GraphEdge is a directed dependency edge between plan units.
type GraphEdge struct {
	// From is the dependent unit ID.
	From string `json:"from"`

	// To is the prerequisite unit ID.
	To string `json:"to"`
}
