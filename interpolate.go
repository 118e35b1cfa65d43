package golokal

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\s*\w+\s*)\}\}`)

// Interpolate replaces {{ name }} placeholders in text with values from vars.
// Placeholders without a matching variable are left as they are. A nil vars
// map returns text unchanged.
func Interpolate(text string, vars map[string]any) string {
	if vars == nil || !strings.Contains(text, "{{") {
		return text
	}

	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := vars[name]
		if !ok {
			return match
		}
		if value == nil {
			return "null"
		}
		return fmt.Sprint(value)
	})
}

// Placeholders returns the distinct variable names referenced by text, in order of appearance.
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
