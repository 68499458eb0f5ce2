package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// Validator checks a value tree against a derived schema.
type Validator interface {
	// Validate coerces every known leaf to its parameter kind, checks the
	// parameter rules and returns the normalized copy. Failures are
	// reported as a *errors.ValidationError. Unknown keys are kept as-is.
	Validate(values map[string]any) (map[string]any, error)
}

type treeValidator struct {
	tree     *namespace.Tree
	validate *validator.Validate
}

func (v *treeValidator) Validate(values map[string]any) (map[string]any, error) {
	out := deepCopy(values)
	verr := &terrors.ValidationError{}
	v.check(v.tree.Root, out, verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// check validates the params of n against section and recurses into
// children present in section. Absent child sections are optional here;
// the injection context decides whether their absence is acceptable.
func (v *treeValidator) check(n *namespace.Node, section map[string]any, verr *terrors.ValidationError) {
	for _, p := range n.Params {
		key := n.Path.Child(p.Name).String()
		raw, ok := section[p.Name]
		if !ok || raw == nil {
			if p.Required {
				verr.Add(key, "required", "is required", nil)
			}
			delete(section, p.Name)
			continue
		}

		val, err := coerce(p, raw)
		if err != nil {
			verr.Add(key, "type", err.Error(), raw)
			continue
		}
		if tag, msg, ok := v.apply(p, val); !ok {
			verr.Add(key, tag, msg, val)
			continue
		}
		section[p.Name] = val
	}

	for _, name := range n.ChildNames() {
		raw, ok := section[name]
		if !ok || raw == nil {
			continue
		}
		child, ok := asMap(raw)
		if !ok {
			verr.Add(n.Path.Child(name).String(), "type", fmt.Sprintf("expected an object, got %T", raw), raw)
			continue
		}
		section[name] = child
		v.check(n.Children[name], child, verr)
	}
}

// apply checks val against the parameter rules. Choices are matched on
// coerced values here; validator's oneof only compares strings and
// integers, so it is stripped from the tag.
func (v *treeValidator) apply(p registry.ParameterSpec, val any) (tag, msg string, ok bool) {
	rules := p.Rules
	if len(p.Enum) > 0 {
		if !inEnum(p, val) {
			return "oneof", "must be one of [" + strings.Join(p.Enum, ", ") + "]", false
		}
		rules = withoutRule(rules, "oneof")
	}
	if rules == "" {
		return "", "", true
	}
	if err := v.validate.Var(ruleValue(p, val), rules); err != nil {
		tag, msg := describe(err)
		return tag, msg, false
	}
	return "", "", true
}

// inEnum reports whether val, or every element of a list val, is one of
// the parameter's choices.
func inEnum(p registry.ParameterSpec, val any) bool {
	elem := p
	elem.Kind = p.Kind.Elem()

	choices := make([]any, 0, len(p.Enum))
	for _, e := range p.Enum {
		c, err := coerce(elem, e)
		if err != nil {
			continue
		}
		choices = append(choices, c)
	}

	values := []any{val}
	if p.Kind.IsList() {
		values = elements(val)
	}
	for _, x := range values {
		found := false
		for _, c := range choices {
			if c == x {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func withoutRule(rules, name string) string {
	var kept []string
	for _, r := range strings.Split(rules, ",") {
		if r == name || strings.HasPrefix(r, name+"=") {
			continue
		}
		kept = append(kept, r)
	}
	return strings.Join(kept, ",")
}

// coerce converts raw into the canonical Go value for the parameter kind:
// bool, int, float64, string, []string, []int, []float64, or a duration
// string.
func coerce(p registry.ParameterSpec, raw any) (any, error) {
	switch p.Kind {
	case registry.KindBool:
		return cast.ToBoolE(raw)
	case registry.KindInt:
		switch f := raw.(type) {
		case float64:
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("expected an integer, got %v", f)
			}
		case float32:
			if float64(f) != math.Trunc(float64(f)) {
				return nil, fmt.Errorf("expected an integer, got %v", f)
			}
		case bool:
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %v", raw)
		}
		return n, nil
	case registry.KindFloat:
		if _, ok := raw.(bool); ok {
			return nil, fmt.Errorf("expected a number, got %v", raw)
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %v", raw)
		}
		return f, nil
	case registry.KindString:
		switch raw.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("expected a string, got %T", raw)
		}
		return cast.ToStringE(raw)
	case registry.KindStringList:
		if s, ok := raw.(string); ok {
			return splitList(s), nil
		}
		list, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a list of strings, got %T", raw)
		}
		return list, nil
	case registry.KindIntList:
		return coerceList[int](p, raw, "integers")
	case registry.KindFloatList:
		return coerceList[float64](p, raw, "numbers")
	case registry.KindDuration:
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a duration, got %v", raw)
		}
		return d.String(), nil
	default:
		return raw, nil
	}
}

// coerceList converts each element of raw, a slice or a comma separated
// string, with the scalar rules of the element kind.
func coerceList[T int | float64](p registry.ParameterSpec, raw any, what string) ([]T, error) {
	var items []any
	if s, ok := raw.(string); ok {
		for _, part := range splitList(s) {
			items = append(items, part)
		}
	} else {
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("expected a list of %s, got %T", what, raw)
		}
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	}

	elem := p
	elem.Kind = p.Kind.Elem()
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := coerce(elem, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v.(T))
	}
	return out, nil
}

// elements returns the items of a coerced list value.
func elements(v any) []any {
	var out []any
	switch t := v.(type) {
	case []string:
		for _, x := range t {
			out = append(out, x)
		}
	case []int:
		for _, x := range t {
			out = append(out, x)
		}
	case []float64:
		for _, x := range t {
			out = append(out, x)
		}
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ruleValue returns the value rules are checked against. Durations are
// stored as strings but compared as time.Duration.
func ruleValue(p registry.ParameterSpec, v any) any {
	if p.Kind == registry.KindDuration {
		if d, err := time.ParseDuration(v.(string)); err == nil {
			return d
		}
	}
	return v
}

func describe(err error) (string, string) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid", err.Error()
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Tag(), "is required"
	case "min", "gte":
		return fe.Tag(), "must be at least " + fe.Param()
	case "max", "lte":
		return fe.Tag(), "must be at most " + fe.Param()
	case "gt":
		return fe.Tag(), "must be greater than " + fe.Param()
	case "lt":
		return fe.Tag(), "must be less than " + fe.Param()
	default:
		if fe.Param() != "" {
			return fe.Tag(), fmt.Sprintf("failed rule %s=%s", fe.Tag(), fe.Param())
		}
		return fe.Tag(), "failed rule " + fe.Tag()
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// deepCopy copies nested maps and slices of a value tree.
func deepCopy(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case map[any]any:
		m, _ := asMap(t)
		return deepCopy(m)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

// Copy returns a deep copy of a value tree.
func Copy(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	return deepCopy(values)
}
