// Package command binds slash command names to tables and resolves lookup
// input into result rows.
package command

import (
	"fmt"
	"sort"
	"strings"

	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/table"
)

// Mode selects how a command turns its input into rows.
type Mode int

const (
	// ModeCaseInsensitive matches the lookup column with case folding.
	ModeCaseInsensitive Mode = iota
	// ModeExact matches the lookup column byte for byte.
	ModeExact
	// ModeRandom ignores the input and draws one row.
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeCaseInsensitive:
		return "case-insensitive"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ModeOf maps definition flags to a Mode. Random wins over case sensitivity.
func ModeOf(random, caseSensitive bool) Mode {
	switch {
	case random:
		return ModeRandom
	case caseSensitive:
		return ModeExact
	default:
		return ModeCaseInsensitive
	}
}

// ResultRow maps column name to cell value for one matched row.
type ResultRow map[string]string

// Binding describes how a command queries its table.
type Binding struct {
	LookupColumn string
	Mode         Mode
	Token        string
}

// Command is immutable after New and safe for concurrent use.
type Command struct {
	name    string
	table   *table.Table
	binding Binding
}

func New(name string, tbl *table.Table, binding Binding) (*Command, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, tabulaErrors.Validation("command name cannot be empty")
	}
	if tbl == nil {
		return nil, tabulaErrors.Initialization(fmt.Sprintf("command %q has no table", name))
	}
	return &Command{name: name, table: tbl, binding: binding}, nil
}

func (c *Command) Name() string { return c.name }

func (c *Command) Mode() Mode { return c.binding.Mode }

func (c *Command) Table() *table.Table { return c.table }

func (c *Command) LookupColumn() string { return c.binding.LookupColumn }

// IsRandom reports whether the command ignores its input.
func (c *Command) IsRandom() bool { return c.binding.Mode == ModeRandom }

// IsAuthorized compares token with the configured token.
func (c *Command) IsAuthorized(token string) bool {
	return c.binding.Token == token
}

// Resolve returns the rows input selects. An empty result is not an error.
func (c *Command) Resolve(input string) ([]ResultRow, error) {
	if c.IsRandom() {
		row, err := c.table.RandomRow()
		if err != nil {
			return nil, tabulaErrors.Wrap(err, fmt.Sprintf("command %q", c.name))
		}
		return []ResultRow{c.table.Record(row)}, nil
	}

	rows, err := c.table.RowsMatching(c.binding.LookupColumn, input, c.binding.Mode == ModeExact)
	if err != nil {
		return nil, tabulaErrors.Wrap(err, fmt.Sprintf("command %q", c.name))
	}

	results := make([]ResultRow, 0, len(rows))
	for _, row := range rows {
		results = append(results, c.table.Record(row))
	}
	return results, nil
}

// Registry is a read-only name index over commands.
type Registry struct {
	commands map[string]*Command
}

func NewRegistry(commands ...*Command) (*Registry, error) {
	r := &Registry{commands: make(map[string]*Command, len(commands))}
	for _, cmd := range commands {
		if cmd == nil {
			continue
		}
		if _, exists := r.commands[cmd.name]; exists {
			return nil, tabulaErrors.Validation(fmt.Sprintf("command %q registered twice", cmd.name))
		}
		r.commands[cmd.name] = cmd
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

func (r *Registry) Len() int { return len(r.commands) }

// Names returns registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
