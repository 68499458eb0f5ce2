package tunable

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	casing "github.com/conduit-lang/tunables/internal/util/strings"
	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/go-playground/validator/v10"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	rules        = validator.New()
)

// field links a parameter to the params struct field it decodes into.
type field struct {
	spec registry.ParameterSpec
	key  string // mapstructure key: the tunable tag, or the field name
}

// paramFields extracts parameter specs from the exported fields of a
// params struct.
func paramFields(fn string, defaults reflect.Value, o *options) ([]field, error) {
	t := defaults.Type()
	if t.Kind() != reflect.Struct {
		return nil, &terrors.InvalidDeclarationError{Function: fn, Reason: fmt.Sprintf("params must be a struct, got %s", t)}
	}

	var fields []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		tag, tagged := sf.Tag.Lookup("tunable")
		if tag == "-" {
			continue
		}
		name := casing.ToSnakeCase(sf.Name)
		key := sf.Name
		if tagged && tag != "" {
			name, key = tag, tag
		}

		p, err := paramSpec(fn, name, sf, defaults.Field(i))
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{spec: p, key: key})
	}

	return filterFields(fn, fields, o)
}

func paramSpec(fn, name string, sf reflect.StructField, v reflect.Value) (registry.ParameterSpec, error) {
	p := registry.ParameterSpec{
		Name:        name,
		Field:       sf.Name,
		Description: sf.Tag.Get("help"),
	}

	switch {
	case sf.Type == durationType:
		p.Kind = registry.KindDuration
		p.Default = time.Duration(v.Int()).String()
	case sf.Type.Kind() == reflect.Bool:
		p.Kind = registry.KindBool
		p.Default = v.Bool()
	case v.CanInt():
		p.Kind = registry.KindInt
		p.Default = int(v.Int())
	case v.CanUint():
		p.Kind = registry.KindInt
		p.Default = int(v.Uint())
	case v.CanFloat():
		p.Kind = registry.KindFloat
		p.Default = v.Float()
	case sf.Type.Kind() == reflect.String:
		p.Kind = registry.KindString
		p.Default = v.String()
	case sf.Type.Kind() == reflect.Slice:
		kind, def, ok := listDefault(v)
		if !ok {
			return p, &terrors.InvalidDeclarationError{Function: fn, Reason: fmt.Sprintf("parameter %q has unsupported type %s", name, sf.Type)}
		}
		p.Kind, p.Default = kind, def
	default:
		return p, &terrors.InvalidDeclarationError{Function: fn, Reason: fmt.Sprintf("parameter %q has unsupported type %s", name, sf.Type)}
	}

	tag := sf.Tag.Get("validate")
	if err := p.ApplyRules(tag); err != nil {
		return p, &terrors.InvalidDeclarationError{Function: fn, Reason: fmt.Sprintf("parameter %q: %v", name, err)}
	}
	if err := checkRules(v.Interface(), tag); err != nil {
		return p, &terrors.InvalidDeclarationError{Function: fn, Reason: fmt.Sprintf("parameter %q: %v", name, err)}
	}
	if p.Required {
		p.Default = nil
	}
	return p, nil
}

// listDefault reads a slice of strings, integers or floats. []byte is
// not a list parameter.
func listDefault(v reflect.Value) (registry.Kind, any, bool) {
	if v.Type().Elem() == durationType {
		return "", nil, false
	}
	switch v.Type().Elem().Kind() {
	case reflect.String:
		list := make([]string, v.Len())
		for i := range list {
			list[i] = v.Index(i).String()
		}
		return registry.KindStringList, list, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		list := make([]int, v.Len())
		for i := range list {
			list[i] = int(v.Index(i).Int())
		}
		return registry.KindIntList, list, true
	case reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		list := make([]int, v.Len())
		for i := range list {
			list[i] = int(v.Index(i).Uint())
		}
		return registry.KindIntList, list, true
	case reflect.Float32, reflect.Float64:
		list := make([]float64, v.Len())
		for i := range list {
			list[i] = v.Index(i).Float()
		}
		return registry.KindFloatList, list, true
	}
	return "", nil, false
}

// checkRules rejects rule strings the validator cannot run. The validator
// panics on unknown tags; constraint failures are left to composition.
// oneof is matched by the schema for every kind, so it is not run here.
func checkRules(v any, tag string) (err error) {
	var kept []string
	for _, r := range strings.Split(tag, ",") {
		if r != "" && !strings.HasPrefix(r, "oneof=") {
			kept = append(kept, r)
		}
	}
	tag = strings.Join(kept, ",")
	if tag == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid validate tag %q: %v", tag, r)
		}
	}()
	_ = rules.Var(v, tag)
	return nil
}

func filterFields(fn string, fields []field, o *options) ([]field, error) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.spec.Name] = true
	}
	for _, name := range append(append([]string(nil), o.include...), o.exclude...) {
		if !known[name] {
			return nil, &terrors.InvalidDeclarationError{Function: fn, Reason: fmt.Sprintf("unknown parameter %q in include/exclude", name)}
		}
	}

	keep := func(name string) bool {
		if len(o.include) > 0 && !contains(o.include, name) {
			return false
		}
		return !contains(o.exclude, name)
	}

	out := fields[:0:0]
	for _, f := range fields {
		if keep(f.spec.Name) {
			out = append(out, f)
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
