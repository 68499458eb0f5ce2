// Package tunable declares functions whose parameters are supplied by the
// active configuration instead of by their callers.
//
// A function owns a params struct. Its exported fields are the tunable
// parameters, and the value passed to Declare holds their defaults:
//
//	type TrainParams struct {
//		Epochs int     `help:"passes over the data" validate:"min=1"`
//		LR     float64 `tunable:"learning_rate" validate:"gt=0"`
//	}
//
//	var train *tunable.Tunable[TrainParams]
//
//	func init() {
//		train = tunable.MustDeclare(Train, "train", TrainParams{Epochs: 10, LR: 0.01}, tunable.Apps("train"))
//	}
//
//	func Train(ctx context.Context) {
//		p := train.Params(ctx)
//		...
//	}
//
// Declarations are made in init functions because a package-level
// initializer that refers to Train while Train refers to the variable is
// an initialization cycle.
package tunable

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/inject"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/conduit-lang/tunables/runtime/schema"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

// Tunable is a declared function's handle on its parameters.
type Tunable[P any] struct {
	decl     *registry.Declaration
	defaults P
	fields   []field

	once      sync.Once
	validator schema.Validator
	derr      error
}

// Declare registers fn under namespace with the given defaults. An empty
// namespace means "main".
func Declare[P any](fn any, namespace string, defaults P, opts ...Option) (*Tunable[P], error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	reg := o.registry
	if reg == nil {
		reg = registry.Default()
	}

	id, loc, err := registry.SymbolOf(fn)
	if err != nil {
		return nil, &terrors.InvalidDeclarationError{Function: "<unknown>", Reason: err.Error()}
	}

	path, err := registry.ParsePath(namespace)
	if err != nil {
		return nil, &terrors.InvalidDeclarationError{Function: loc.QualifiedName, Reason: err.Error()}
	}

	fields, err := paramFields(loc.QualifiedName, reflect.ValueOf(defaults), o)
	if err != nil {
		return nil, err
	}
	specs := make([]registry.ParameterSpec, len(fields))
	for i, f := range fields {
		specs[i] = f.spec
	}

	qualified := o.qualifiedName
	if qualified != "" {
		loc.QualifiedName = qualified
	}

	decl, err := reg.Register(registry.Declaration{
		ID:            id,
		QualifiedName: qualified,
		Namespace:     path,
		Params:        specs,
		Apps:          o.apps,
		Source:        loc,
	})
	if err != nil {
		return nil, err
	}

	return &Tunable[P]{decl: decl, defaults: defaults, fields: fields}, nil
}

// MustDeclare is like Declare but panics on error.
func MustDeclare[P any](fn any, namespace string, defaults P, opts ...Option) *Tunable[P] {
	t, err := Declare(fn, namespace, defaults, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Declaration returns the registered declaration.
func (t *Tunable[P]) Declaration() *registry.Declaration { return t.decl }

// Defaults returns a copy of the intrinsic defaults.
func (t *Tunable[P]) Defaults() P { return clone(t.defaults) }

// Resolve returns the effective parameters for ctx. Without an active
// scope, or when the scope's configuration has no section for the
// namespace, the intrinsic defaults are returned; otherwise every
// parameter present in the section overrides its default.
func (t *Tunable[P]) Resolve(ctx context.Context) (P, error) {
	section, ok := inject.Section(ctx, t.decl.Namespace)
	if !ok {
		if required := t.decl.RequiredParams(); len(required) > 0 {
			return t.Defaults(), &terrors.ConfigMismatchError{
				Namespace: t.decl.Namespace.String(),
				Missing:   required,
				Owner:     t.decl.Location(),
				Reason:    "no active configuration provides required parameters",
			}
		}
		return t.Defaults(), nil
	}
	return t.decode(section)
}

// ResolveWith is Resolve with explicit values for some parameters, keyed
// by parameter name. Overrides take precedence over the active scope and
// are checked against the parameter rules.
func (t *Tunable[P]) ResolveWith(ctx context.Context, overrides map[string]any) (P, error) {
	if len(overrides) == 0 {
		return t.Resolve(ctx)
	}

	verr := &terrors.ValidationError{}
	for k, v := range overrides {
		if _, ok := t.decl.Param(k); !ok {
			verr.Add(t.decl.Namespace.Child(k).String(), "unknown", "is not a parameter of "+t.decl.QualifiedName, v)
		}
	}
	if err := verr.Err(); err != nil {
		return t.Defaults(), err
	}

	section, _ := inject.Section(ctx, t.decl.Namespace)
	merged := make(map[string]any, len(section)+len(overrides))
	for k, v := range section {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	v, err := t.sectionValidator()
	if err != nil {
		return t.Defaults(), err
	}
	normalized, err := v.Validate(nest(t.decl.Namespace, merged))
	if err != nil {
		return t.Defaults(), err
	}
	return t.decode(unnest(t.decl.Namespace, normalized))
}

// sectionValidator derives a validator for this declaration alone.
func (t *Tunable[P]) sectionValidator() (schema.Validator, error) {
	t.once.Do(func() {
		tree, err := namespace.Build([]*registry.Declaration{t.decl})
		if err != nil {
			t.derr = err
			return
		}
		res, err := schema.NewDeriver().Derive(tree, t.decl.QualifiedName)
		if err != nil {
			t.derr = err
			return
		}
		t.validator = res.Validator
	})
	return t.validator, t.derr
}

// decode lays the parameters present in section over a copy of the
// defaults.
func (t *Tunable[P]) decode(section map[string]any) (P, error) {
	input := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		if v, present := section[f.spec.Name]; present && v != nil {
			input[f.key] = v
		}
	}

	out := clone(t.defaults)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "tunable",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return t.Defaults(), err
	}
	if err := dec.Decode(input); err != nil {
		return t.Defaults(), fmt.Errorf("failed to decode parameters of %s: %w", t.decl.QualifiedName, err)
	}
	return out, nil
}

// clone copies p with fresh backing storage for its slice and map fields,
// so callers cannot change the declared defaults through a result.
func clone[P any](p P) P {
	out := p
	v := reflect.ValueOf(&out).Elem()
	if v.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.Slice:
			if f.IsNil() {
				continue
			}
			cp := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
			reflect.Copy(cp, f)
			f.Set(cp)
		case reflect.Map:
			if f.IsNil() {
				continue
			}
			cp := reflect.MakeMapWithSize(f.Type(), f.Len())
			iter := f.MapRange()
			for iter.Next() {
				cp.SetMapIndex(iter.Key(), iter.Value())
			}
			f.Set(cp)
		}
	}
	return out
}

func nest(path registry.Path, section map[string]any) map[string]any {
	out := section
	for i := len(path) - 1; i >= 0; i-- {
		out = map[string]any{path[i]: out}
	}
	return out
}

func unnest(path registry.Path, values map[string]any) map[string]any {
	for _, seg := range path {
		next, ok := values[seg].(map[string]any)
		if !ok {
			return nil
		}
		values = next
	}
	return values
}

// Params is Resolve for callers that cannot handle an error. Failures are
// logged and the intrinsic defaults are returned.
func (t *Tunable[P]) Params(ctx context.Context) P {
	p, err := t.Resolve(ctx)
	if err != nil {
		logging.Named("tunable").Warn("using defaults",
			zap.String("function", t.decl.QualifiedName),
			zap.Error(err),
		)
	}
	return p
}
