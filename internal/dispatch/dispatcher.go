// Package dispatch routes normalized slash command requests to commands and
// composes the Slack response.
package dispatch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/harunnryd/tabula/internal/command"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/format"
	"github.com/harunnryd/tabula/internal/logger"
)

const (
	ParamCommand = "command"
	ParamToken   = "token"
	ParamText    = "text"
)

// Parameters are raw request fields. Values may be strings or singleton
// sequences of strings.
type Parameters map[string]any

// ParametersFromForm adapts a decoded form body.
func ParametersFromForm(form url.Values) Parameters {
	params := make(Parameters, len(form))
	for k, v := range form {
		params[k] = []string(v)
	}
	return params
}

// Request is the normalized form of Parameters.
type Request struct {
	Command string
	Token   string
	Text    string
}

func NormalizeRequest(params Parameters) Request {
	return Request{
		Command: NormalizeCommand(params[ParamCommand]),
		Token:   Scalar(params[ParamToken]),
		Text:    NormalizeValue(params[ParamText]),
	}
}

// Dispatcher is stateless per call and shares read-only commands.
type Dispatcher struct {
	commands   *command.Registry
	formatters map[string]*format.Formatter
}

// New pairs every registered command with its formatter.
func New(commands *command.Registry, formatters map[string]*format.Formatter) (*Dispatcher, error) {
	if commands == nil {
		return nil, tabulaErrors.Initialization("dispatcher requires a command registry")
	}
	owned := make(map[string]*format.Formatter, commands.Len())
	for _, name := range commands.Names() {
		f, ok := formatters[name]
		if !ok || f == nil {
			return nil, tabulaErrors.Initialization(fmt.Sprintf("command %q has no formatter", name))
		}
		owned[name] = f
	}
	return &Dispatcher{commands: commands, formatters: owned}, nil
}

// Commands exposes the registry the dispatcher routes to.
func (d *Dispatcher) Commands() *command.Registry { return d.commands }

// Handle answers one slash command invocation.
func (d *Dispatcher) Handle(ctx context.Context, params Parameters) (*Response, error) {
	return d.HandleRequest(ctx, NormalizeRequest(params))
}

func (d *Dispatcher) HandleRequest(ctx context.Context, req Request) (*Response, error) {
	cmd, ok := d.commands.Get(req.Command)
	if !ok {
		return nil, tabulaErrors.UnknownCommand(req.Command)
	}
	if !cmd.IsAuthorized(req.Token) {
		return nil, tabulaErrors.Unauthorized(req.Command)
	}
	if req.Text == "" && !cmd.IsRandom() {
		return nil, tabulaErrors.MissingParameter(req.Command)
	}

	rows, err := cmd.Resolve(req.Text)
	if err != nil {
		return nil, err
	}

	msg, err := d.formatters[req.Command].Render(req.Text, rows)
	if err != nil {
		return nil, err
	}

	logger.FromContext(logger.WithCommand(ctx, req.Command)).Debug("Command resolved",
		"mode", cmd.Mode().String(),
		"results", len(rows),
	)
	return NewResponse(msg), nil
}
