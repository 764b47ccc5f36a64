package dispatch

import (
	"fmt"
	"strings"
)

// CommandSeparator prefixes slash command names as Slack sends them.
const CommandSeparator = "/"

// Scalar accepts a bare value or a singleton sequence, as produced by
// url.Values or decoded JSON, and returns its string form untouched.
func Scalar(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case []any:
		if len(v) == 0 {
			return ""
		}
		return Scalar(v[0])
	default:
		return fmt.Sprint(v)
	}
}

// NormalizeValue returns the trimmed scalar form of raw.
func NormalizeValue(raw any) string {
	return strings.TrimSpace(Scalar(raw))
}

// NormalizeCommand normalizes raw and strips exactly one leading separator.
func NormalizeCommand(raw any) string {
	return strings.TrimPrefix(NormalizeValue(raw), CommandSeparator)
}
