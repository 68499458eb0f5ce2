package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/conduit-lang/tunables/compiler/callgraph"
	"github.com/conduit-lang/tunables/internal/artifact"
	"github.com/conduit-lang/tunables/internal/cli/ui"
	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// UnknownAppError is returned when no declaration carries a requested tag
type UnknownAppError struct {
	Tag   string
	Known []string
}

func (e *UnknownAppError) Error() string {
	return fmt.Sprintf("unknown app %q (known: %s)", e.Tag, strings.Join(e.Known, ", "))
}

// entryError keeps the indexed names around for suggestions
type entryError struct {
	err        error
	candidates []string
}

func (e *entryError) Error() string { return e.err.Error() }

func (e *entryError) Unwrap() error { return e.err }

// selection is the --apps / --entry pair shared by the model commands
type selection struct {
	apps   []string
	entry  string
	source string
}

func (s *selection) addFlags(cmd *cobra.Command, withEntry bool) {
	cmd.Flags().StringSliceVar(&s.apps, "apps", nil, "App tags to compose (comma separated)")
	if withEntry {
		cmd.Flags().StringVar(&s.entry, "entry", "", "Qualified name of the entrypoint, e.g. example.com/app/pipeline.Train")
		cmd.Flags().StringVar(&s.source, "source", "", "Source root to analyze (default: source_root from tunables.yml)")
	}
}

func (a *app) composeApps(tags []string) (*compose.Model, error) {
	reg := a.registry()
	known := reg.Apps()
	for _, tag := range tags {
		if !contains(known, tag) {
			return nil, &UnknownAppError{Tag: tag, Known: known}
		}
	}
	return compose.New(reg, nil).ComposeByTags(tags...)
}

func (a *app) composeEntry(entry, source string) (*compose.Model, error) {
	if source == "" {
		source = a.settings.SourceRoot
	}
	ix, err := callgraph.LoadIndex(source)
	if err != nil {
		return nil, err
	}

	reg := a.registry()
	id := registry.FuncID(entry)
	if declared, ok := reg.ResolveIdentity(entry); ok {
		id = declared
	}

	m, err := compose.New(reg, callgraph.NewResolver(reg, ix)).ComposeByEntry(id)
	if err != nil {
		return nil, &entryError{err: err, candidates: ix.Names()}
	}
	return m, nil
}

func (a *app) compose(s *selection) (*compose.Model, error) {
	switch {
	case s.entry != "" && len(s.apps) > 0:
		return nil, fmt.Errorf("--apps and --entry are mutually exclusive")
	case s.entry != "":
		return a.composeEntry(s.entry, s.source)
	case len(s.apps) > 0:
		return a.composeApps(s.apps)
	}
	return nil, fmt.Errorf("one of --apps or --entry is required")
}

// modelOutput is the JSON printed when no --out prefix is given
type modelOutput struct {
	Schema   json.RawMessage `json:"schema"`
	Defaults json.RawMessage `json:"defaults"`
	Touched  []string        `json:"touched,omitempty"`
}

func printModel(w io.Writer, m *compose.Model, withTouched bool) error {
	schema, err := m.SchemaJSON()
	if err != nil {
		return err
	}
	defaults, err := m.DefaultsJSON()
	if err != nil {
		return err
	}
	out := modelOutput{Schema: schema, Defaults: defaults}
	if withTouched {
		out.Touched = m.Touched()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeModel writes artifacts under prefix. A bare file name is placed in
// the configured output directory.
func (a *app) writeModel(cmd *cobra.Command, m *compose.Model, prefix, format string) error {
	if !cmd.Flags().Changed("format") {
		format = a.settings.Output.Format
	}
	if filepath.Base(prefix) == prefix && a.settings.Output.Dir != "" {
		prefix = filepath.Join(a.settings.Output.Dir, prefix)
	}

	f, err := artifact.ParseFormat(format)
	if err != nil {
		return err
	}
	paths, err := artifact.Write(prefix, m, f)
	if err != nil {
		return err
	}
	ui.WriteSuccess(cmd.OutOrStdout(), "wrote "+paths.Schema, color.NoColor)
	ui.WriteSuccess(cmd.OutOrStdout(), "wrote "+paths.Defaults, color.NoColor)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
