package server

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// RenderPrompt fills {placeholder} slots in the prompt template with data
// values:
//
//	Template: "Analyze: {user_input}"
//	Data:     {"user_input": "Python vs Rust"}
//	Result:   "Analyze: Python vs Rust"
//
// When the template references a key absent from data, the template is kept
// as-is and the full data map is appended as a JSON block, so no request
// information is silently dropped.
func RenderPrompt(template string, data map[string]any) string {
	names := placeholderRe.FindAllStringSubmatch(template, -1)
	for _, m := range names {
		if _, ok := data[m[1]]; !ok {
			raw, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				raw = []byte("{}")
			}
			return fmt.Sprintf("%s\n\nData:\n%s", template, raw)
		}
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.Trim(match, "{}")
		return formatValue(data[name])
	})
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
