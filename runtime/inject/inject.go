// Package inject makes a validated configuration visible to declared
// functions for the duration of a scope.
//
// Scopes travel in a context.Context. Enter returns a derived context
// whose top-most scope holds the configuration; nested Enter calls shadow
// outer scopes until they exit. Because the stack lives in the context,
// goroutines running with unrelated contexts never observe each other's
// configuration.
package inject

import (
	"context"
	"sync/atomic"

	"github.com/conduit-lang/tunables/runtime/compose"
	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type scopeKey struct{}

// Scope is one activation of a configuration.
type Scope struct {
	ID     uuid.UUID
	config *compose.Config
	parent *Scope
	depth  int
	exited atomic.Bool
}

// Config returns the configuration the scope activates.
func (s *Scope) Config() *compose.Config { return s.config }

// Depth returns the nesting level, 1 for an outermost scope.
func (s *Scope) Depth() int { return s.depth }

// Active reports whether Exit has not been called yet.
func (s *Scope) Active() bool { return !s.exited.Load() }

// Exit deactivates the scope, making the enclosing scope visible again.
// Calling Exit more than once has no effect.
func (s *Scope) Exit() {
	if s.exited.Swap(true) {
		return
	}
	logging.Named("inject").Debug("exited scope",
		zap.Stringer("scope", s.ID),
		zap.Int("depth", s.depth),
	)
}

// Enter checks cfg against the declarations it was composed from and
// activates it in a context derived from ctx.
//
// It fails with a ConfigMismatchError when a participating declaration is
// no longer registered, or when a namespace whose declaration has required
// parameters is absent from cfg.
func Enter(ctx context.Context, cfg *compose.Config) (context.Context, *Scope, error) {
	if err := check(cfg); err != nil {
		return ctx, nil, err
	}

	parent, _ := Current(ctx)
	s := &Scope{ID: uuid.New(), config: cfg, parent: parent, depth: 1}
	if parent != nil {
		s.depth = parent.depth + 1
	}

	logging.Named("inject").Debug("entered scope",
		zap.Stringer("scope", s.ID),
		zap.Int("depth", s.depth),
		zap.String("model", cfg.Model().Title()),
	)
	return context.WithValue(ctx, scopeKey{}, s), s, nil
}

// With runs fn with cfg active. The scope exits when fn returns, fails or
// panics.
func With(ctx context.Context, cfg *compose.Config, fn func(ctx context.Context) error) error {
	scoped, s, err := Enter(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Exit()
	return fn(scoped)
}

// Current returns the innermost scope of ctx that has not exited.
func Current(ctx context.Context) (*Scope, bool) {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	for s != nil && !s.Active() {
		s = s.parent
	}
	return s, s != nil
}

// Active reports whether ctx carries an active scope.
func Active(ctx context.Context) bool {
	_, ok := Current(ctx)
	return ok
}

// Section returns the values for a namespace from the innermost active
// scope. It reports false when there is no active scope or the namespace
// is absent from its configuration; callers then use their own defaults.
func Section(ctx context.Context, path registry.Path) (map[string]any, bool) {
	s, ok := Current(ctx)
	if !ok {
		return nil, false
	}
	return s.config.Section(path)
}

func check(cfg *compose.Config) error {
	model := cfg.Model()
	reg := model.Registry()

	for _, d := range model.Declarations() {
		current, ok := reg.Lookup(d.ID)
		if !ok || !current.Namespace.Equal(d.Namespace) {
			return &terrors.ConfigMismatchError{
				Namespace: d.Namespace.String(),
				Owner:     d.Location(),
				Reason:    "declaration is no longer registered",
			}
		}

		required := d.RequiredParams()
		if len(required) == 0 {
			continue
		}
		section, ok := cfg.Section(d.Namespace)
		if !ok {
			return &terrors.ConfigMismatchError{
				Namespace: d.Namespace.String(),
				Missing:   required,
				Owner:     d.Location(),
				Reason:    "namespace with required parameters is absent",
			}
		}
		var missing []string
		for _, name := range required {
			if v, present := section[name]; !present || v == nil {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return &terrors.ConfigMismatchError{
				Namespace: d.Namespace.String(),
				Missing:   missing,
				Owner:     d.Location(),
				Reason:    "required parameters are absent",
			}
		}
	}
	return nil
}
