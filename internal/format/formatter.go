// Package format renders resolved rows into Slack attachment messages.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/tabula/internal/command"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"

	"github.com/slack-go/slack"
)

const (
	// Color marks the header attachment.
	Color = "#36a64f"

	TermKey = "term"

	DefaultTitle    = `Found results for "%term%"`
	DefaultNoResult = `No results found for "%term%"`
)

var markdownFields = []string{"text"}

// Templates are the per-command template strings. Result is mandatory.
type Templates struct {
	Title    string
	Result   string
	NoResult string
}

// Attachment is one rendered block. A header carries a title, a body carries text.
type Attachment struct {
	Header bool
	Title  string
	Text   string
}

type headerWire struct {
	MarkdownIn []string `json:"mrkdwn_in"`
	Color      string   `json:"color"`
	Pretext    string   `json:"pretext"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
}

type bodyWire struct {
	MarkdownIn []string `json:"mrkdwn_in"`
	Text       string   `json:"text"`
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	if a.Header {
		return json.Marshal(headerWire{
			MarkdownIn: markdownFields,
			Color:      Color,
			Title:      a.Title,
			Text:       a.Text,
		})
	}
	return json.Marshal(bodyWire{MarkdownIn: markdownFields, Text: a.Text})
}

// Message is the rendered output: one header followed by zero or more bodies.
type Message struct {
	Attachments []Attachment `json:"attachments"`
}

// Title returns the header title, or "" for an empty message.
func (m Message) Title() string {
	if len(m.Attachments) == 0 {
		return ""
	}
	return m.Attachments[0].Title
}

// Lines returns the body texts in order.
func (m Message) Lines() []string {
	var lines []string
	for _, a := range m.Attachments {
		if !a.Header {
			lines = append(lines, a.Text)
		}
	}
	return lines
}

// SlackAttachments converts the message for delivery through the Slack API.
func (m Message) SlackAttachments() []slack.Attachment {
	out := make([]slack.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		att := slack.Attachment{
			MarkdownIn: append([]string(nil), markdownFields...),
			Text:       a.Text,
		}
		if a.Header {
			att.Color = Color
			att.Title = a.Title
		}
		out = append(out, att)
	}
	return out
}

// Formatter renders results for one command.
type Formatter struct {
	command   string
	templates Templates
	link      string
}

// New builds a formatter. link, when set, is offered to the user when nothing
// matches under the default no-result template.
func New(commandName string, templates Templates, link string) *Formatter {
	return &Formatter{command: commandName, templates: templates, link: strings.TrimSpace(link)}
}

func (f *Formatter) Render(term string, rows []command.ResultRow) (Message, error) {
	if strings.TrimSpace(f.templates.Result) == "" {
		return Message{}, tabulaErrors.MissingFormat(f.command)
	}

	termOnly := map[string]string{TermKey: term}

	if len(rows) == 0 {
		return Message{Attachments: []Attachment{{
			Header: true,
			Title:  f.noResultTitle(termOnly),
		}}}, nil
	}

	title := f.templates.Title
	if title == "" {
		title = DefaultTitle
	}

	attachments := make([]Attachment, 0, len(rows)+1)
	attachments = append(attachments, Attachment{Header: true, Title: Substitute(title, termOnly)})
	for _, row := range rows {
		values := make(map[string]string, len(row)+1)
		for k, v := range row {
			values[k] = v
		}
		values[TermKey] = term
		attachments = append(attachments, Attachment{Text: Substitute(f.templates.Result, values)})
	}
	return Message{Attachments: attachments}, nil
}

func (f *Formatter) noResultTitle(values map[string]string) string {
	if f.templates.NoResult != "" {
		return Substitute(f.templates.NoResult, values)
	}
	title := Substitute(DefaultNoResult, values)
	if f.link != "" {
		title += fmt.Sprintf(" <%s|Add it?>", f.link)
	}
	return title
}
