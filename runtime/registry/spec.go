package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a parameter. Scalar values match JSON
// Schema type names. KindDuration is a string with format "duration" and
// the list kinds are arrays of their element kind.
type Kind string

const (
	KindBool       Kind = "boolean"
	KindInt        Kind = "integer"
	KindFloat      Kind = "number"
	KindString     Kind = "string"
	KindStringList Kind = "array"
	KindIntList    Kind = "integer_array"
	KindFloatList  Kind = "number_array"
	KindDuration   Kind = "duration"
)

// IsList reports whether k is one of the list kinds.
func (k Kind) IsList() bool {
	return k == KindStringList || k == KindIntList || k == KindFloatList
}

// Elem returns the element kind of a list kind, or k itself.
func (k Kind) Elem() Kind {
	switch k {
	case KindStringList:
		return KindString
	case KindIntList:
		return KindInt
	case KindFloatList:
		return KindFloat
	default:
		return k
	}
}

// ParameterSpec describes one tunable parameter. It is immutable once the
// owning declaration is registered.
type ParameterSpec struct {
	Name        string `json:"name"`
	Field       string `json:"field,omitempty"` // Go struct field backing the parameter
	Kind        Kind   `json:"kind"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`

	// Rules is the go-playground validator tag checked against values.
	Rules string `json:"rules,omitempty"`

	// Constraints parsed from Rules, used for schema documents and help text.
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	ExclusiveMin bool     `json:"exclusive_min,omitempty"`
	ExclusiveMax bool     `json:"exclusive_max,omitempty"`
	Enum         []string `json:"enum,omitempty"`
}

// HasDefault reports whether the parameter can be left out of a
// configuration.
func (p ParameterSpec) HasDefault() bool {
	return !p.Required
}

var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ValidParamName reports whether name is usable as a parameter name and
// flag segment.
func ValidParamName(name string) bool {
	return paramNamePattern.MatchString(name)
}

// ApplyRules parses a validator tag into p.Rules and the constraint
// fields. Unknown rules are kept in Rules and ignored for constraints.
func (p *ParameterSpec) ApplyRules(rules string) error {
	p.Rules = rules
	if rules == "" {
		return nil
	}

	for _, rule := range strings.Split(rules, ",") {
		rule = strings.TrimSpace(rule)
		name, arg, _ := strings.Cut(rule, "=")
		switch name {
		case "required":
			p.Required = true
		case "min", "gte":
			v, err := p.parseBound(rule, arg)
			if err != nil {
				return err
			}
			p.Min, p.ExclusiveMin = &v, false
		case "gt":
			v, err := p.parseBound(rule, arg)
			if err != nil {
				return err
			}
			p.Min, p.ExclusiveMin = &v, true
		case "max", "lte":
			v, err := p.parseBound(rule, arg)
			if err != nil {
				return err
			}
			p.Max, p.ExclusiveMax = &v, false
		case "lt":
			v, err := p.parseBound(rule, arg)
			if err != nil {
				return err
			}
			p.Max, p.ExclusiveMax = &v, true
		case "oneof":
			p.Enum = strings.Fields(arg)
			if len(p.Enum) == 0 {
				return fmt.Errorf("rule %q: empty choice list", rule)
			}
		}
	}
	return nil
}

// parseBound reads a numeric bound. Duration bounds ("1s") are stored in
// seconds.
func (p *ParameterSpec) parseBound(rule, arg string) (float64, error) {
	if p.Kind == KindDuration {
		d, err := time.ParseDuration(arg)
		if err != nil {
			return 0, fmt.Errorf("rule %q: bound is not a duration", rule)
		}
		return d.Seconds(), nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("rule %q: bound is not a number", rule)
	}
	return v, nil
}
