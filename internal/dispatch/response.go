package dispatch

import "github.com/harunnryd/tabula/internal/format"

const (
	ResponseInChannel = "in_channel"
	ResponseEphemeral = "ephemeral"
)

// Response is the payload returned to Slack for a slash command.
type Response struct {
	ResponseType string              `json:"response_type"`
	Attachments  []format.Attachment `json:"attachments"`
}

// NewResponse wraps msg for delivery to the whole channel. The delivery mode
// is always in_channel regardless of what msg carries.
func NewResponse(msg format.Message) *Response {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []format.Attachment{}
	}
	return &Response{
		ResponseType: ResponseInChannel,
		Attachments:  attachments,
	}
}

// Message returns the formatter view of the response.
func (r *Response) Message() format.Message {
	return format.Message{Attachments: r.Attachments}
}

// ErrorResponse is shown only to the user who ran the command.
type ErrorResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func NewErrorResponse(text string) *ErrorResponse {
	return &ErrorResponse{ResponseType: ResponseEphemeral, Text: text}
}
