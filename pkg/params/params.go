// Package params extracts and validates {{name}} placeholders in SQL text.
package params

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingParameters is returned when a placeholder has no usable value.
var ErrMissingParameters = errors.New("missing parameter values")

var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Extract returns the placeholder names found in sql, trimmed,
// de-duplicated and in order of first appearance.
func Extract(sql string) []string {
	matches := placeholderRe.FindAllStringSubmatch(sql, -1)
	names := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Has reports whether sql contains at least one placeholder.
func Has(sql string) bool {
	return placeholderRe.MatchString(sql)
}

// Missing returns the placeholder names without a non-blank value.
func Missing(sql string, values map[string]string) []string {
	var missing []string
	for _, name := range Extract(sql) {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Validate reports whether every placeholder in sql has a non-blank value.
func Validate(sql string, values map[string]string) bool {
	return len(Missing(sql, values)) == 0
}

// Check is Validate in error form. The error wraps ErrMissingParameters and
// names the missing placeholders.
func Check(sql string, values map[string]string) error {
	missing := Missing(sql, values)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingParameters, strings.Join(missing, ", "))
}

// Substitute replaces every placeholder that has a value. Placeholders
// without a value are left untouched.
func Substitute(sql string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(sql, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}

// Parse turns "name=value" pairs into a value map.
func Parse(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected name=value)", p)
		}
		values[name] = value
	}
	return values, nil
}
