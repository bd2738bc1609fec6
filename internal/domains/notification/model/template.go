package model

import (
	"fmt"
	"regexp"
	"rental/internal/events"
	"rental/shared/failure"
	"slices"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}\}`)

// Placeholders returns the distinct field names tmpl references, in order of first use.
func Placeholders(tmpl string) []string {
	var names []string

	for _, match := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		if !slices.Contains(names, match[1]) {
			names = append(names, match[1])
		}
	}

	return names
}

// Render substitutes every {{name}} in tmpl with the snapshot field of that name. A
// placeholder the snapshot does not carry is a template failure listing every such name.
func Render(tmpl string, snapshot events.Snapshot) (string, error) {
	var missing []string

	for _, name := range Placeholders(tmpl) {
		if _, ok := snapshot.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return "", failure.Template(fmt.Sprintf("template references fields the booking does not carry: %s", strings.Join(missing, ", "))) //nolint:wrapcheck
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		value, _ := snapshot.Lookup(placeholder.FindStringSubmatch(match)[1])

		return value
	}), nil
}
