package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader parses declaration files and validates the merged result. YAML and
// CUE sources may be mixed; later files merge into earlier ones by
// appending resource lists.
type Loader struct {
	validator *validator.Validate
	schemas   *SchemaRegistry
}

// NewLoader creates a loader with built-in schemas registered.
func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(),
		schemas:   NewSchemaRegistry(),
	}
}

// Load reads declarations from files or directories. Parse and validation
// findings are accumulated rather than failing on the first; the returned
// declarations are only usable when the error slice carries no "error"
// severity entries.
func (l *Loader) Load(sources []string) (*Declarations, []ValidationError) {
	if len(sources) == 0 {
		return nil, []ValidationError{{Message: "no sources provided", Severity: "error"}}
	}

	merged := &Declarations{}
	var findings []ValidationError

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			findings = append(findings, ValidationError{
				File:     source,
				Message:  fmt.Sprintf("failed to stat source: %v", err),
				Severity: "error",
			})
			continue
		}

		files := []string{source}
		if info.IsDir() {
			files, err = declarationFiles(source)
			if err != nil {
				findings = append(findings, ValidationError{
					File:     source,
					Message:  err.Error(),
					Severity: "error",
				})
				continue
			}
		}

		for _, file := range files {
			decls, errs := l.loadFile(file)
			findings = append(findings, errs...)
			if decls != nil {
				merge(merged, decls)
			}
		}
	}

	if hasErrors(findings) {
		return nil, findings
	}

	findings = append(findings, l.Validate(merged)...)
	if hasErrors(findings) {
		return nil, findings
	}

	return merged, findings
}

// loadFile parses a single YAML or CUE file.
func (l *Loader) loadFile(path string) (*Declarations, []ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to read file: %v", err),
			Severity: "error",
		}}
	}

	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return parseYAML(path, data)
	case strings.HasSuffix(path, ".cue"):
		return parseCUE(path, data)
	default:
		return nil, []ValidationError{{
			File:     path,
			Message:  "unsupported file type (want .yaml, .yml, or .cue)",
			Severity: "error",
		}}
	}
}

func parseYAML(path string, data []byte) (*Declarations, []ValidationError) {
	var decls Declarations
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&decls); err != nil {
		return nil, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to parse YAML: %v", err),
			Severity: "error",
		}}
	}
	return &decls, nil
}

func parseCUE(path string, data []byte) (*Declarations, []ValidationError) {
	ctx := cuecontext.New()
	val := ctx.CompileString(string(data))
	if err := val.Err(); err != nil {
		return nil, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to compile CUE: %v", err),
			Severity: "error",
		}}
	}

	var decls Declarations
	if err := val.Decode(&decls); err != nil {
		return nil, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to decode CUE: %v", err),
			Severity: "error",
		}}
	}
	return &decls, nil
}

// Validate runs struct-tag validation plus the cross-field rules that tags
// cannot express.
func (l *Loader) Validate(decls *Declarations) []ValidationError {
	var findings []ValidationError

	if err := l.validator.Struct(decls); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				findings = append(findings, ValidationError{
					Path:     fe.Namespace(),
					Message:  fmt.Sprintf("failed %q validation", fe.Tag()),
					Severity: "error",
				})
			}
		} else {
			findings = append(findings, ValidationError{
				Message:  err.Error(),
				Severity: "error",
			})
		}
	}

	findings = append(findings, validateLayers(decls)...)
	findings = append(findings, validateBot(decls)...)

	return findings
}

// validateLayers enforces the mutually exclusive layer source rule.
func validateLayers(decls *Declarations) []ValidationError {
	var findings []ValidationError
	for i, layer := range decls.LambdaLayers {
		path := fmt.Sprintf("lambda_layers[%d]", i)
		switch {
		case layer.Filename == "" && layer.S3Key == "":
			findings = append(findings, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("layer %q must set exactly one of filename and s3_key; neither is set", layer.Name),
				Severity: "error",
			})
		case layer.Filename != "" && layer.S3Key != "":
			findings = append(findings, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("layer %q must set exactly one of filename and s3_key; both are set", layer.Name),
				Severity: "error",
			})
		}
	}
	return findings
}

// validateBot enforces the bot-level rules: alias locale keys must be a
// subset of the declared locales.
func validateBot(decls *Declarations) []ValidationError {
	if decls.Bot == nil {
		return nil
	}

	var findings []ValidationError
	for alias, cfg := range decls.Bot.Aliases {
		for locale := range cfg.LocaleSettings {
			if _, ok := decls.Bot.Locales[locale]; !ok {
				findings = append(findings, ValidationError{
					Path:     fmt.Sprintf("bot_aliases.%s.locale_settings.%s", alias, locale),
					Message:  fmt.Sprintf("alias %q configures undeclared locale %q", alias, locale),
					Severity: "error",
				})
			}
		}
	}
	return findings
}

// Schemas returns the CUE schema registry.
func (l *Loader) Schemas() *SchemaRegistry {
	return l.schemas
}

// declarationFiles lists the declaration files under a directory.
func declarationFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"), strings.HasSuffix(path, ".cue"):
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return files, nil
}

// merge appends b's resource lists into a. The bot definition is
// last-writer-wins.
func merge(a, b *Declarations) {
	if b.Instance.Alias != "" {
		a.Instance = b.Instance
	}
	a.HoursOfOperations = append(a.HoursOfOperations, b.HoursOfOperations...)
	a.Queues = append(a.Queues, b.Queues...)
	a.RoutingProfiles = append(a.RoutingProfiles, b.RoutingProfiles...)
	a.SecurityProfiles = append(a.SecurityProfiles, b.SecurityProfiles...)
	a.Users = append(a.Users, b.Users...)
	a.QuickConnects = append(a.QuickConnects, b.QuickConnects...)
	a.LambdaFunctions = append(a.LambdaFunctions, b.LambdaFunctions...)
	a.LambdaLayers = append(a.LambdaLayers, b.LambdaLayers...)
	if b.Bot != nil {
		a.Bot = b.Bot
	}
}

func hasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == "error" {
			return true
		}
	}
	return false
}
