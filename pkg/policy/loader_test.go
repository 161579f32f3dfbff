package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const sampleRego = `# Queues must not disable themselves at creation time.

package dialtone.policies.sample

import rego.v1

deny contains violation if {
	input.unit.kind == "queue"
	input.unit.attributes.status == "DISABLED"
	violation := {
		"message": "queue is created disabled",
		"severity": "warning",
		"resource": input.unit.id,
	}
}
`

func writePolicy(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadRegoFile(t *testing.T) {
	dir := t.TempDir()
	path := writePolicy(t, dir, "disabled-queue.rego", sampleRego)

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(t.Context(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(policies))
	}

	p := policies[0]
	if p.Name != "disabled-queue" {
		t.Errorf("name should come from the filename, got %q", p.Name)
	}
	if p.Description != "Queues must not disable themselves at creation time." {
		t.Errorf("description should come from leading comments, got %q", p.Description)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("rego files default to warning severity, got %s", p.Severity)
	}
	if !p.Enabled {
		t.Error("loaded policies should be enabled")
	}
}

func TestLoadJSONPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writePolicy(t, dir, "cap.json", `{
		"name": "contact-cap",
		"severity": "error",
		"enabled": true,
		"rego": "package dialtone.policies.cap\n\nimport rego.v1\n\ndeny contains \"capped\" if { input.unit.kind == \"queue\" }"
	}`)

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(t.Context(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policies) != 1 || policies[0].Name != "contact-cap" {
		t.Fatalf("unexpected policies: %+v", policies)
	}
	if policies[0].Severity != SeverityError {
		t.Errorf("severity should come from the document, got %s", policies[0].Severity)
	}
}

func TestLoadDirectorySkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "a.rego", sampleRego)
	writePolicy(t, dir, "notes.txt", "not a policy")

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(t.Context(), []string{dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policies) != 1 {
		t.Errorf("expected only the .rego file to load, got %d policies", len(policies))
	}
}

func TestLoadMissingPath(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	if _, err := loader.LoadFromPaths(t.Context(), []string{"/nonexistent/policies"}); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "a.rego", sampleRego)

	loader := NewLoader(zerolog.Nop())
	defer func() { _ = loader.StopWatching() }()

	reloaded := make(chan []Policy, 1)
	err := loader.Watch(t.Context(), []string{dir}, func(policies []Policy) error {
		select {
		case reloaded <- policies:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writePolicy(t, dir, "b.rego", sampleRego)

	select {
	case policies := <-reloaded:
		if len(policies) != 2 {
			t.Errorf("expected both policies after reload, got %d", len(policies))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
