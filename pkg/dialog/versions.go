package dialog

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/dialtone/dialtone/pkg/compose"
)

// DraftVersion is the mutable working version aliases must never target.
const DraftVersion = "DRAFT"

// VersionRegistry holds immutable numbered snapshots of a bot model and the
// alias bindings that point at them. Cutting a version deep-copies the
// draft, so later edits to the draft never leak into published versions.
type VersionRegistry struct {
	mu       sync.RWMutex
	next     int
	versions map[string]*Model
	aliases  map[string]string
}

// NewVersionRegistry creates an empty registry.
func NewVersionRegistry() *VersionRegistry {
	return &VersionRegistry{
		next:     1,
		versions: make(map[string]*Model),
		aliases:  make(map[string]string),
	}
}

// CutVersion snapshots the draft model as the next numbered version and
// returns the version label.
func (r *VersionRegistry) CutVersion(draft *Model) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	version := strconv.Itoa(r.next)
	r.next++
	r.versions[version] = draft.clone()
	return version
}

// Version returns the immutable model for a version label.
func (r *VersionRegistry) Version(version string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.versions[version]
	if !ok {
		return nil, compose.NewFatalError(
			fmt.Sprintf("bot version %q does not exist", version), nil).WithCode(compose.ErrCodeUnresolvedReference)
	}
	return m, nil
}

// Versions returns the cut version labels in numeric order.
func (r *VersionRegistry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.versions))
	for v := range r.versions {
		labels = append(labels, v)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, _ := strconv.Atoi(labels[i])
		b, _ := strconv.Atoi(labels[j])
		return a < b
	})
	return labels
}

// BindAlias points an alias at a cut version. The bind is atomic: when the
// version does not exist the alias keeps its previous target. Aliases never
// target the draft.
func (r *VersionRegistry) BindAlias(alias, version string) error {
	if version == DraftVersion {
		return compose.NewFatalError(
			fmt.Sprintf("alias %q cannot target the draft version", alias), nil).WithCode(compose.ErrCodeValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.versions[version]; !ok {
		return compose.NewFatalError(
			fmt.Sprintf("alias %q cannot bind missing version %q", alias, version), nil).WithCode(compose.ErrCodeUnresolvedReference)
	}
	r.aliases[alias] = version
	return nil
}

// AliasTarget returns the version an alias points at.
func (r *VersionRegistry) AliasTarget(alias string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.aliases[alias]
	if !ok {
		return "", compose.NewFatalError(
			fmt.Sprintf("alias %q is not bound", alias), nil).WithCode(compose.ErrCodeUnresolvedReference)
	}
	return v, nil
}

// AliasModel returns the immutable model an alias points at.
func (r *VersionRegistry) AliasModel(alias string) (*Model, error) {
	version, err := r.AliasTarget(alias)
	if err != nil {
		return nil, err
	}
	return r.Version(version)
}

// DeleteVersion removes a cut version. Versions still targeted by an alias
// cannot be deleted.
func (r *VersionRegistry) DeleteVersion(version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.versions[version]; !ok {
		return compose.NewFatalError(
			fmt.Sprintf("bot version %q does not exist", version), nil).WithCode(compose.ErrCodeUnresolvedReference)
	}
	for alias, target := range r.aliases {
		if target == version {
			return compose.NewFatalError(
				fmt.Sprintf("bot version %q is still targeted by alias %q", version, alias), nil).WithCode(compose.ErrCodeValidation)
		}
	}
	delete(r.versions, version)
	return nil
}

// clone deep-copies a model.
func (m *Model) clone() *Model {
	out := &Model{
		Name:                  m.Name,
		IdleSessionTTLSeconds: m.IdleSessionTTLSeconds,
		Locales:               make(map[string]Locale, len(m.Locales)),
		Intents:               make(map[string]*Intent, len(m.Intents)),
	}
	for id, lc := range m.Locales {
		out.Locales[id] = lc
	}
	for name, intent := range m.Intents {
		out.Intents[name] = intent.clone()
	}
	return out
}

func (i *Intent) clone() *Intent {
	out := *i
	out.SampleUtterances = append([]string(nil), i.SampleUtterances...)
	out.ElicitationOrder = append([]string(nil), i.ElicitationOrder...)
	out.Slots = make(map[string]*Slot, len(i.Slots))
	for name, slot := range i.Slots {
		out.Slots[name] = slot.clone()
	}
	return &out
}

func (s *Slot) clone() *Slot {
	out := *s
	out.DefaultValues = append([]string(nil), s.DefaultValues...)
	if s.Type != nil {
		t := *s.Type
		t.Values = make([]TypeValue, len(s.Type.Values))
		for i, v := range s.Type.Values {
			t.Values[i] = TypeValue{
				Value:    v.Value,
				Synonyms: append([]string(nil), v.Synonyms...),
			}
		}
		out.Type = &t
	}
	return &out
}
