package dialog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Resolve interprets raw input against the slot type. Exact value matches
// win over case-insensitive value matches, which win over synonym matches.
// TopResolution yields the canonical value; OriginalValue keeps the user's
// input once any match is found. A false return means the input did not
// resolve.
func (t *SlotType) Resolve(input string) (SlotValue, bool) {
	if t.Parser != nil {
		interpreted, ok := t.Parser.Parse(input)
		if !ok {
			return SlotValue{}, false
		}
		return SlotValue{Original: input, Interpreted: interpreted}, true
	}

	canonical, ok := t.match(input)
	if !ok {
		return SlotValue{}, false
	}

	interpreted := canonical
	if t.Strategy == OriginalValue {
		interpreted = input
	}
	return SlotValue{Original: input, Interpreted: interpreted}, true
}

// match finds the canonical value for input, scoring exact value matches
// above case-insensitive ones and value matches above synonym matches.
func (t *SlotType) match(input string) (string, bool) {
	norm := normalize(input)

	const (
		scoreExactValue = 4
		scoreFoldValue  = 3
		scoreExactSyn   = 2
		scoreFoldSyn    = 1
	)

	best := 0
	var bestValue string
	consider := func(score int, value string) {
		if score > best {
			best = score
			bestValue = value
		}
	}

	for _, v := range t.Values {
		if input == v.Value {
			consider(scoreExactValue, v.Value)
		} else if normalize(v.Value) == norm {
			consider(scoreFoldValue, v.Value)
		}
		for _, syn := range v.Synonyms {
			if input == syn {
				consider(scoreExactSyn, v.Value)
			} else if normalize(syn) == norm {
				consider(scoreFoldSyn, v.Value)
			}
		}
	}

	return bestValue, best > 0
}

// freeFormParser accepts any non-empty input verbatim.
type freeFormParser struct{}

func (freeFormParser) Parse(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	return trimmed, trimmed != ""
}

// numberParser accepts integers.
type numberParser struct{}

func (numberParser) Parse(input string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

// dateParser resolves common date phrasings to ISO 8601 dates. Inputs
// without a year resolve within the current year.
type dateParser struct{}

func (dateParser) Parse(input string) (string, bool) {
	cleaned := stripOrdinals(strings.TrimSpace(input))

	layouts := []string{
		"2006-01-02",
		"02/01/2006",
		"January 2 2006",
		"2 January 2006",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts.Format("2006-01-02"), true
		}
	}

	yearless := []string{"January 2", "2 January"}
	for _, layout := range yearless {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return fmt.Sprintf("%04d-%02d-%02d", time.Now().Year(), ts.Month(), ts.Day()), true
		}
	}

	return "", false
}

// stripOrdinals rewrites "15th March" as "15 March".
func stripOrdinals(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		for _, suffix := range []string{"st", "nd", "rd", "th"} {
			digits := strings.TrimSuffix(f, suffix)
			if digits != f && digits != "" && isDigits(digits) {
				fields[i] = digits
				break
			}
		}
	}
	return strings.Join(fields, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
