package api

import (
	"context"
	"strings"
)

// Module is a named API resource handler set. A module supports a verb
// by additionally implementing the matching capability interface; the
// dispatcher answers 405 for verbs a module does not implement.
type Module interface {
	Name() string
}

// Getter handles GET requests for a module.
type Getter interface {
	Get(ctx context.Context, c *Context) error
}

// Poster handles POST requests for a module.
type Poster interface {
	Post(ctx context.Context, c *Context) error
}

// Putter handles PUT requests for a module.
type Putter interface {
	Put(ctx context.Context, c *Context) error
}

// Deleter handles DELETE requests for a module.
type Deleter interface {
	Delete(ctx context.Context, c *Context) error
}

// ModuleResolver resolves module names at request time. The dispatcher
// depends on this interface so tests can observe lookups.
type ModuleResolver interface {
	Lookup(name string) (Module, bool)
}

// Registry is the static module table, built once at startup and
// read-only afterwards.
type Registry struct {
	modules map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module under its lower-cased name. Registering two
// modules with the same name is a programming error and panics.
func (r *Registry) Register(m Module) {
	name := strings.ToLower(m.Name())
	if _, ok := r.modules[name]; ok {
		panic("api: duplicate module " + name)
	}
	r.modules[name] = m
}

// Lookup resolves a module by name, case-insensitively.
func (r *Registry) Lookup(name string) (Module, bool) {
	m, ok := r.modules[strings.ToLower(name)]
	return m, ok
}
