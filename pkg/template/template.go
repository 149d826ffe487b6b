// Package template renders run reports from text templates.
package template

import (
	"strings"
	"text/template"
	"time"
)

// Render executes a template against data with the shared helper functions.
func Render(name, templateStr string, data any) (string, error) {
	tmpl, err := template.
		New(name).
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"join": func(items []string, sep string) string {
				return strings.Join(items, sep)
			},
			"truncate": func(input string, max int) string {
				runes := []rune(input)
				if len(runes) <= max {
					return input
				}

				return string(runes[:max]) + "…"
			},
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
		}).
		Parse(templateStr)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", err
	}

	return out.String(), nil
}
