// Package policy provides Open Policy Agent (OPA) integration for plan
// governance.
//
// Plans are evaluated against Rego policies before they are applied. Rules
// are either unit-scoped (they see one plan unit with its decoded attributes
// and requirements) or plan-scoped (they see the whole plan). A rule blocks
// the apply when it denies with "error" severity; "warning" and "info"
// denials surface in the result without blocking.
//
// # Usage
//
// Creating an engine and evaluating a plan:
//
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	result, err := engine.EvaluatePlan(ctx, plan, &policy.Context{Instance: "prod"})
//	if err != nil {
//	    return err
//	}
//	if !result.Allowed {
//	    // report result.Violations and refuse to apply
//	}
//
// Custom policies load from .rego or .json files:
//
//	if err := engine.LoadPolicies(ctx, []string{"./policies"}); err != nil {
//	    return err
//	}
//
// The Loader can also watch policy paths and hand freshly loaded sets to
// Engine.ReplacePolicies on change.
//
// # Writing Policies
//
// Unit-scoped rules guard on input.unit:
//
//	package dialtone.policies.example
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.unit.kind == "queue"
//	    input.unit.attributes.max_contacts > 100
//	    violation := {
//	        "message": "queue cap too high",
//	        "severity": "warning",
//	        "resource": input.unit.id,
//	    }
//	}
//
// Plan-scoped rules guard on input.plan and may correlate units, for
// example requiring a log group whenever a bot is provisioned.
package policy
