package tunable

import "github.com/conduit-lang/tunables/runtime/registry"

// Option configures a declaration.
type Option func(*options)

type options struct {
	apps          []string
	include       []string
	exclude       []string
	qualifiedName string
	registry      *registry.Registry
}

// Apps tags the declaration with app names used by tag composition.
func Apps(tags ...string) Option {
	return func(o *options) { o.apps = append(o.apps, tags...) }
}

// Include restricts the tunable parameters to the named ones. The other
// fields keep their default values.
func Include(names ...string) Option {
	return func(o *options) { o.include = append(o.include, names...) }
}

// Exclude removes the named parameters from the tunable set.
func Exclude(names ...string) Option {
	return func(o *options) { o.exclude = append(o.exclude, names...) }
}

// QualifiedName overrides the source-level name the call-graph resolver
// matches the function by.
func QualifiedName(name string) Option {
	return func(o *options) { o.qualifiedName = name }
}

// InRegistry registers into r instead of the process-wide registry.
func InRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}
