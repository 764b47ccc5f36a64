package format

import "regexp"

var placeholderPattern = regexp.MustCompile(`%([^%\s]+)%`)

// Substitute replaces every %key% in template with values[key]. Keys missing
// from values become the empty string.
func Substitute(template string, values map[string]string) string {
	if template == "" {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		return values[match[1:len(match)-1]]
	})
}

// Placeholders lists the keys referenced by template in order of appearance,
// without duplicates.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		keys = append(keys, m[1])
	}
	return keys
}
