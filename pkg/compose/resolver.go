package compose

import (
	"fmt"
	"sort"
)

// Registry is the name table built in the first composition pass. Every
// declaration is registered before any reference is resolved, which removes
// the forward-reference ordering hazards of flat declarative input.
//
// Namespacing is strictly per kind: registering queue "support" never
// collides with user "support".
type Registry struct {
	// entries maps kind to logical name to the registered declaration.
	entries map[Kind]map[string]*entry

	// next is the declaration index assigned to the next registration.
	next int
}

type entry struct {
	decl   Declaration
	handle Handle
}

// NewRegistry creates an empty name registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Kind]map[string]*entry),
	}
}

// Register adds a declaration to the name table and returns its handle.
// Registering the same (kind, name) pair twice is a fatal configuration
// error.
func (r *Registry) Register(decl Declaration) (Handle, error) {
	if decl.Name == "" {
		return Handle{}, NewFatalError("declaration has empty name", nil).
			WithCode(ErrCodeValidation).
			WithResource(decl.Kind, decl.Name)
	}

	byName, ok := r.entries[decl.Kind]
	if !ok {
		byName = make(map[string]*entry)
		r.entries[decl.Kind] = byName
	}

	if _, exists := byName[decl.Name]; exists {
		return Handle{}, NewFatalError(
			fmt.Sprintf("duplicate declaration of %s %q", decl.Kind, decl.Name), nil).
			WithCode(ErrCodeDuplicateName).
			WithResource(decl.Kind, decl.Name)
	}

	h := Handle{Kind: decl.Kind, Name: decl.Name, Index: r.next}
	r.next++
	byName[decl.Name] = &entry{decl: decl, handle: h}

	return h, nil
}

// Resolve looks up a handle by kind and name. Resolution is stable: the
// returned handle is unaffected by later, unrelated registrations.
func (r *Registry) Resolve(kind Kind, name string) (Handle, error) {
	if e, ok := r.entries[kind][name]; ok {
		return e.handle, nil
	}
	return Handle{}, NewFatalError(
		fmt.Sprintf("reference to undeclared %s %q", kind, name), nil).
		WithCode(ErrCodeUnresolvedReference).
		WithResource(kind, name)
}

// Declaration returns the registered declaration for a handle.
func (r *Registry) Declaration(h Handle) (Declaration, error) {
	if e, ok := r.entries[h.Kind][h.Name]; ok {
		return e.decl, nil
	}
	return Declaration{}, NewFatalError(
		fmt.Sprintf("no declaration for handle %s", h.ID()), nil).
		WithCode(ErrCodeInternal)
}

// Handles returns all registered handles in declaration order.
func (r *Registry) Handles() []Handle {
	handles := make([]Handle, 0, r.next)
	for _, byName := range r.entries {
		for _, e := range byName {
			handles = append(handles, e.handle)
		}
	}
	sort.Slice(handles, func(i, j int) bool {
		return handles[i].Index < handles[j].Index
	})
	return handles
}

// Len returns the number of registered declarations.
func (r *Registry) Len() int {
	return r.next
}

// ResolveRefs resolves every reference of every registered declaration,
// failing on the first unresolved one. Validation runs fully before any
// provisioning call is issued.
func (r *Registry) ResolveRefs() (map[string][]Handle, error) {
	resolved := make(map[string][]Handle)

	for _, h := range r.Handles() {
		e := r.entries[h.Kind][h.Name]
		for _, ref := range e.decl.Refs {
			target, err := r.Resolve(ref.Kind, ref.Name)
			if err != nil {
				return nil, NewFatalError(
					fmt.Sprintf("%s %q references undeclared %s %q",
						h.Kind, h.Name, ref.Kind, ref.Name), nil).
					WithCode(ErrCodeUnresolvedReference).
					WithResource(h.Kind, h.Name)
			}
			resolved[h.ID()] = append(resolved[h.ID()], target)
		}
	}

	return resolved, nil
}
