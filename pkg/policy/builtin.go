package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		queueHoursPolicy(),
		userSecurityProfilesPolicy(),
		queueMaxContactsPolicy(),
		lambdaTimeoutPolicy(),
		botLoggingPolicy(),
	}
}

// queueHoursPolicy requires every queue to depend on an hours definition.
func queueHoursPolicy() Policy {
	return Policy{
		Name:        "queue-hours",
		Description: "Every queue must reference an hours of operation definition",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"queues", "references"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package dialtone.policies.queue_hours

import rego.v1

deny contains violation if {
	input.unit.kind == "queue"
	not has_hours
	violation := {
		"message": sprintf("Queue %s does not reference an hours of operation definition", [input.unit.name]),
		"severity": "error",
		"resource": input.unit.id,
	}
}

has_hours if {
	some req in input.unit.requires
	req.kind == "hours_of_operation"
}
`,
	}
}

// userSecurityProfilesPolicy requires every user to carry a security profile.
func userSecurityProfilesPolicy() Policy {
	return Policy{
		Name:        "user-security-profiles",
		Description: "Every user must reference at least one security profile",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"users", "references"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package dialtone.policies.user_security

import rego.v1

deny contains violation if {
	input.unit.kind == "user"
	not has_security_profile
	violation := {
		"message": sprintf("User %s does not reference any security profile", [input.unit.name]),
		"severity": "error",
		"resource": input.unit.id,
	}
}

has_security_profile if {
	some req in input.unit.requires
	req.kind == "security_profile"
}
`,
	}
}

// queueMaxContactsPolicy warns about queues with very large contact caps.
func queueMaxContactsPolicy() Policy {
	return Policy{
		Name:        "queue-max-contacts",
		Description: "Queues with a max_contacts cap above 1000 should be reviewed",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"queues", "capacity"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package dialtone.policies.queue_capacity

import rego.v1

deny contains violation if {
	input.unit.kind == "queue"
	input.unit.attributes.max_contacts > 1000
	violation := {
		"message": sprintf("Queue %s caps contacts at %d, above the review threshold of 1000", [input.unit.name, input.unit.attributes.max_contacts]),
		"severity": "warning",
		"resource": input.unit.id,
	}
}
`,
	}
}

// lambdaTimeoutPolicy warns about hook functions with long timeouts.
func lambdaTimeoutPolicy() Policy {
	return Policy{
		Name:        "lambda-timeout",
		Description: "Hook functions with timeouts above 300 seconds should be reviewed",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"lambda", "capacity"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package dialtone.policies.lambda_timeout

import rego.v1

deny contains violation if {
	input.unit.kind == "lambda_function"
	input.unit.attributes.timeout_seconds > 300
	violation := {
		"message": sprintf("Function %s sets a %d second timeout, above the review threshold of 300", [input.unit.name, input.unit.attributes.timeout_seconds]),
		"severity": "warning",
		"resource": input.unit.id,
	}
}
`,
	}
}

// botLoggingPolicy warns when a plan provisions a bot without a log group.
func botLoggingPolicy() Policy {
	return Policy{
		Name:        "bot-logging",
		Description: "Plans that provision a bot without a conversation log group should be reviewed",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"bots", "observability"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package dialtone.policies.bot_logging

import rego.v1

deny contains violation if {
	some unit in input.plan.units
	unit.kind == "bot"
	not has_log_group
	violation := {
		"message": sprintf("Bot %s is provisioned without a conversation log group", [unit.name]),
		"severity": "warning",
		"resource": unit.id,
	}
}

has_log_group if {
	some unit in input.plan.units
	unit.kind == "log_group"
}
`,
	}
}
