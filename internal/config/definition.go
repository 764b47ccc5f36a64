package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	tabulaErrors "github.com/harunnryd/tabula/internal/errors"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Definition binds slash commands to sheets. It is read once per catalog build
// and never mutated afterwards.
type Definition struct {
	Sheets   map[string]SheetDefinition   `koanf:"sheets" yaml:"sheets" json:"sheets"`
	Commands map[string]CommandDefinition `koanf:"commands" yaml:"commands" json:"commands"`
}

// SheetDefinition locates one table. URL may be a Google Sheets URL, a path to a
// CSV file, or empty, in which case MockRows are used.
type SheetDefinition struct {
	URL      string     `koanf:"url" yaml:"url" json:"url"`
	Columns  []string   `koanf:"columns" yaml:"columns" json:"columns"`
	Sheet    int        `koanf:"sheet" yaml:"sheet" json:"sheet"`
	MockRows [][]string `koanf:"mock_rows" yaml:"mock_rows,omitempty" json:"mock_rows,omitempty"`
}

type CommandDefinition struct {
	Sheet         string           `koanf:"sheet" yaml:"sheet" json:"sheet"`
	LookupColumn  string           `koanf:"lookup_column" yaml:"lookup_column" json:"lookup_column"`
	Random        bool             `koanf:"random" yaml:"random" json:"random"`
	CaseSensitive bool             `koanf:"case_sensitive" yaml:"case_sensitive" json:"case_sensitive"`
	SlackToken    string           `koanf:"slack_token" yaml:"slack_token" json:"slack_token"`
	Format        FormatDefinition `koanf:"format" yaml:"format" json:"format"`
}

type FormatDefinition struct {
	Title    string `koanf:"title" yaml:"title,omitempty" json:"title,omitempty"`
	Result   string `koanf:"result" yaml:"result" json:"result"`
	NoResult string `koanf:"no_result" yaml:"no_result,omitempty" json:"no_result,omitempty"`
}

// LoadDefinition returns the definition referenced by cfg: the file at
// cfg.DefinitionFile when set, otherwise the inline definition section.
func LoadDefinition(cfg *Config) (*Definition, error) {
	if cfg == nil {
		return nil, tabulaErrors.Validation("config is not loaded")
	}
	if strings.TrimSpace(cfg.DefinitionFile) == "" {
		def := cfg.Definition
		return &def, nil
	}
	return LoadDefinitionFile(cfg.DefinitionFile)
}

// DefinitionBaseDir is the directory relative CSV locators resolve against:
// the definition file's directory, or the working directory for an inline
// definition.
func DefinitionBaseDir(cfg *Config) string {
	if cfg == nil || strings.TrimSpace(cfg.DefinitionFile) == "" {
		return ""
	}
	return filepath.Dir(cfg.DefinitionFile)
}

// LoadDefinitionFile reads a YAML (or JSON) definition file.
func LoadDefinitionFile(path string) (*Definition, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load definition %s: %w", path, err)
	}

	var def Definition
	if err := k.Unmarshal("", &def); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", path, err)
	}
	return &def, nil
}

// Validate enforces the structural rules every catalog build depends on.
func (d *Definition) Validate() error {
	if d == nil {
		return tabulaErrors.Validation("definition object cannot be empty")
	}
	if len(d.Sheets) == 0 {
		return tabulaErrors.Validation("definition must include at least one sheet")
	}
	if len(d.Commands) == 0 {
		return tabulaErrors.Validation("definition must include at least one command")
	}

	var dangling []string
	for _, name := range d.CommandNames() {
		ref := d.Commands[name].Sheet
		if _, ok := d.Sheets[ref]; !ok {
			dangling = append(dangling, fmt.Sprintf("command %q references unknown sheet %q", name, ref))
		}
	}
	if len(dangling) > 0 {
		return tabulaErrors.Initialization(strings.Join(dangling, "; "))
	}
	return nil
}

// Lint reports problems that do not prevent construction but will surface as
// request-time errors (missing result format, unknown lookup column).
func (d *Definition) Lint() []string {
	if d == nil {
		return nil
	}

	var warnings []string
	for _, id := range d.SheetIDs() {
		sheet := d.Sheets[id]
		if len(sheet.Columns) == 0 {
			warnings = append(warnings, fmt.Sprintf("sheet %q defines no columns", id))
		}
		seen := make(map[string]bool, len(sheet.Columns))
		for _, col := range sheet.Columns {
			if seen[col] {
				warnings = append(warnings, fmt.Sprintf("sheet %q repeats column %q", id, col))
			}
			seen[col] = true
		}
	}

	for _, name := range d.CommandNames() {
		cmd := d.Commands[name]
		if strings.TrimSpace(cmd.Format.Result) == "" {
			warnings = append(warnings, fmt.Sprintf("command %q has no format.result", name))
		}
		if strings.TrimSpace(cmd.SlackToken) == "" {
			warnings = append(warnings, fmt.Sprintf("command %q has no slack_token", name))
		}
		if cmd.Random {
			continue
		}
		sheet, ok := d.Sheets[cmd.Sheet]
		if !ok {
			continue
		}
		if !slices.Contains(sheet.Columns, cmd.LookupColumn) {
			warnings = append(warnings, fmt.Sprintf("command %q looks up column %q which sheet %q does not define", name, cmd.LookupColumn, cmd.Sheet))
		}
	}
	return warnings
}

func (d *Definition) SheetIDs() []string {
	ids := make([]string, 0, len(d.Sheets))
	for id := range d.Sheets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Definition) CommandNames() []string {
	names := make([]string, 0, len(d.Commands))
	for name := range d.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
