package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
instance:
  alias: test-center
hours_of_operations:
  - name: Weekdays
    time_zone: Europe/London
    config:
      - day: MONDAY
        start: {hours: 9, minutes: 0}
        end: {hours: 17, minutes: 0}
queues:
  - name: Support
    hours_of_operation_name: Weekdays
    max_contacts: 10
    status: ENABLED
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "decls.yaml", minimalYAML)

	loader := NewLoader()
	decls, findings := loader.Load([]string{path})
	if hasErrors(findings) {
		t.Fatalf("unexpected findings: %v", findings)
	}
	if decls.Instance.Alias != "test-center" {
		t.Errorf("expected alias test-center, got %q", decls.Instance.Alias)
	}
	if len(decls.HoursOfOperations) != 1 {
		t.Fatalf("expected 1 hours definition, got %d", len(decls.HoursOfOperations))
	}
	if decls.HoursOfOperations[0].Config[0].End.Hours != 17 {
		t.Errorf("expected end hour 17, got %d", decls.HoursOfOperations[0].Config[0].End.Hours)
	}
	if len(decls.Queues) != 1 || decls.Queues[0].MaxContacts != 10 {
		t.Errorf("queue not parsed: %+v", decls.Queues)
	}
}

func TestLoadCUE(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "decls.cue", `
instance: alias: "cue-center"
queues: [{
	name: "Sales"
	hours_of_operation_name: "Weekdays"
}]
hours_of_operations: [{
	name: "Weekdays"
	time_zone: "UTC"
	config: [{
		day: "TUESDAY"
		start: {hours: 8, minutes: 30}
		end: {hours: 18, minutes: 0}
	}]
}]
`)

	loader := NewLoader()
	decls, findings := loader.Load([]string{path})
	if hasErrors(findings) {
		t.Fatalf("unexpected findings: %v", findings)
	}
	if decls.Instance.Alias != "cue-center" {
		t.Errorf("expected alias cue-center, got %q", decls.Instance.Alias)
	}
	if len(decls.Queues) != 1 || decls.Queues[0].Name != "Sales" {
		t.Errorf("queue not parsed: %+v", decls.Queues)
	}
}

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", minimalYAML)
	writeFile(t, dir, "extra.yaml", `
queues:
  - name: Sales
    hours_of_operation_name: Weekdays
`)

	loader := NewLoader()
	decls, findings := loader.Load([]string{dir})
	if hasErrors(findings) {
		t.Fatalf("unexpected findings: %v", findings)
	}
	if len(decls.Queues) != 2 {
		t.Fatalf("expected 2 queues after merge, got %d", len(decls.Queues))
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
instance:
  alias: test
  not_a_field: true
`)

	loader := NewLoader()
	_, findings := loader.Load([]string{path})
	if !hasErrors(findings) {
		t.Fatal("expected an error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewLoader()
	_, findings := loader.Load([]string{"/nonexistent/decls.yaml"})
	if !hasErrors(findings) {
		t.Fatal("expected an error for missing file")
	}
}

func TestValidateEmail(t *testing.T) {
	loader := NewLoader()
	decls := &Declarations{
		Instance: InstanceConfig{Alias: "test"},
		Users: []UserConfig{{
			Username:             "agent1",
			Email:                "not-an-email",
			RoutingProfileName:   "Basic",
			SecurityProfileNames: []string{"Agent"},
		}},
	}
	findings := loader.Validate(decls)
	if !hasErrors(findings) {
		t.Fatal("expected a validation error for malformed email")
	}
}

func TestValidateLayerSources(t *testing.T) {
	tests := []struct {
		name    string
		layer   LambdaLayerConfig
		wantErr bool
	}{
		{"local only", LambdaLayerConfig{Name: "deps", Filename: "deps.zip"}, false},
		{"remote only", LambdaLayerConfig{Name: "deps", S3Key: "layers/deps.zip"}, false},
		{"neither", LambdaLayerConfig{Name: "deps"}, true},
		{"both", LambdaLayerConfig{Name: "deps", Filename: "deps.zip", S3Key: "layers/deps.zip"}, true},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls := &Declarations{
				Instance:     InstanceConfig{Alias: "test"},
				LambdaLayers: []LambdaLayerConfig{tt.layer},
			}
			findings := loader.Validate(decls)
			if tt.wantErr && !hasErrors(findings) {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && hasErrors(findings) {
				t.Errorf("unexpected findings: %v", findings)
			}
		})
	}
}

func TestValidateAliasLocaleSubset(t *testing.T) {
	loader := NewLoader()
	decls := &Declarations{
		Instance: InstanceConfig{Alias: "test"},
		Bot: &BotConfig{
			Name: "booking",
			Locales: map[string]BotLocaleConfig{
				"en_GB": {NLUConfidenceThreshold: 0.4},
			},
			Aliases: map[string]BotAliasConfig{
				"live": {
					LocaleSettings: map[string]AliasLocaleSettings{
						"fr_FR": {Enabled: true},
					},
				},
			},
		},
	}

	findings := loader.Validate(decls)
	if !hasErrors(findings) {
		t.Fatal("expected a validation error for undeclared alias locale")
	}
	found := false
	for _, f := range findings {
		if strings.Contains(f.Message, "fr_FR") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the finding to name the undeclared locale, got %v", findings)
	}
}

func TestSchemaRegistryValidatesQueue(t *testing.T) {
	sr := NewSchemaRegistry()

	good := QueueConfig{Name: "Support", HoursOfOperationName: "Weekdays", Status: "ENABLED"}
	if err := sr.ValidateQueue(t.Context(), good); err != nil {
		t.Errorf("expected valid queue, got %v", err)
	}

	bad := QueueConfig{Name: "Support", HoursOfOperationName: "Weekdays", Status: "PAUSED"}
	if err := sr.ValidateQueue(t.Context(), bad); err == nil {
		t.Error("expected schema rejection for unknown status")
	}
}
