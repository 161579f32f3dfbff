package dialog

import (
	"fmt"
	"regexp"

	"github.com/dialtone/dialtone/pkg/compose"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// RenderTemplate substitutes {Name} placeholders from the given values. A
// placeholder with no matching value is a configuration error, raised at
// render time so templates are only as strict as the sessions that reach
// them.
func RenderTemplate(template string, values map[string]string) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := values[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return v
	})

	if missing != "" {
		return "", compose.NewFatalError(
			fmt.Sprintf("template references unknown slot %q", missing), nil).WithCode(compose.ErrCodeValidation)
	}
	return rendered, nil
}

// templateValues flattens filled slots and session attributes for template
// rendering. Slot values shadow attributes of the same name.
func templateValues(slots map[string]*SlotValue, attributes map[string]string) map[string]string {
	values := make(map[string]string, len(slots)+len(attributes))
	for k, v := range attributes {
		values[k] = v
	}
	for name, sv := range slots {
		if sv != nil {
			values[name] = sv.Interpreted
		}
	}
	return values
}
