// Package flags exposes a configuration model as command-line flags and
// merges flags, a config file and the model defaults into a configuration.
package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

// NegationPrefix is prepended to a boolean flag name to form its negation.
const NegationPrefix = "no-"

// Name returns the flag name of a leaf: its dotted key.
func Name(leaf namespace.Leaf) string {
	return leaf.Key()
}

// AddFlags defines one flag per leaf of m on fs, plus a negation flag per
// boolean leaf.
func AddFlags(fs *pflag.FlagSet, m *compose.Model) error {
	for _, leaf := range m.Leaves() {
		if err := addFlag(fs, leaf); err != nil {
			return err
		}
	}
	return nil
}

func addFlag(fs *pflag.FlagSet, leaf namespace.Leaf) error {
	p := leaf.Spec
	name := Name(leaf)
	if fs.Lookup(name) != nil {
		return fmt.Errorf("flag --%s is already defined", name)
	}
	usage := usageOf(p)

	switch p.Kind {
	case registry.KindBool:
		fs.Bool(name, cast.ToBool(p.Default), usage)
		fs.Bool(NegationPrefix+name, false, "set --"+name+" to false")
	case registry.KindInt:
		fs.Int(name, cast.ToInt(p.Default), usage)
	case registry.KindFloat:
		fs.Float64(name, cast.ToFloat64(p.Default), usage)
	case registry.KindStringList:
		fs.StringSlice(name, cast.ToStringSlice(p.Default), usage)
	case registry.KindIntList:
		fs.IntSlice(name, cast.ToIntSlice(p.Default), usage)
	case registry.KindFloatList:
		fs.Float64Slice(name, cast.ToFloat64Slice(p.Default), usage)
	case registry.KindDuration:
		d, _ := time.ParseDuration(cast.ToString(p.Default))
		fs.Duration(name, d, usage)
	case registry.KindString:
		if len(p.Enum) > 0 {
			fs.Var(newEnumValue(cast.ToString(p.Default), p.Enum), name, usage)
			return nil
		}
		fs.String(name, cast.ToString(p.Default), usage)
	default:
		return fmt.Errorf("parameter %s has unsupported kind %q", name, p.Kind)
	}
	return nil
}

func usageOf(p registry.ParameterSpec) string {
	var parts []string
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if len(p.Enum) > 0 {
		parts = append(parts, "one of: "+strings.Join(p.Enum, ", "))
	}
	if p.Required {
		parts = append(parts, "(required)")
	}
	return strings.Join(parts, " ")
}

// enumValue is a string flag restricted to a set of choices.
type enumValue struct {
	value   string
	choices []string
}

func newEnumValue(def string, choices []string) *enumValue {
	return &enumValue{value: def, choices: choices}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(s string) error {
	for _, c := range e.choices {
		if c == s {
			e.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.choices, ", "))
}

func (e *enumValue) Type() string { return "string" }
