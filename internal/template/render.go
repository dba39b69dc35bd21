// Package template implements the small mustache-style language used by
// notification rule authors: {{path}} substitution and {{#if path}} blocks.
//
// Templates are written by non-engineers, so rendering never fails:
// unresolved variables produce an empty string and malformed blocks render
// as-is. Render is a pure function.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	varPattern  = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)
	condPattern = regexp.MustCompile(`(?s)\{\{#if\s+([\w.]+)\s*\}\}(.*?)\{\{/if\}\}`)
)

// Render substitutes {{dot.path}} variables from data and evaluates
// {{#if dot.path}}...{{/if}} blocks. A block is kept when the path resolves
// to a truthy value (non-empty string, non-zero number, true, non-nil) and
// dropped otherwise. Conditionals are resolved first so variables inside a
// dropped block are never evaluated.
func Render(tmpl string, data map[string]any) string {
	out := condPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := condPattern.FindStringSubmatch(match)
		if truthy(lookup(data, groups[1])) {
			return groups[2]
		}
		return ""
	})

	return varPattern.ReplaceAllStringFunc(out, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		return stringify(lookup(data, groups[1]))
	})
}

// lookup walks a dot-addressed path through nested maps.
// Returns nil when any segment is missing or not a map.
func lookup(data map[string]any, path string) any {
	segments := strings.Split(path, ".")
	var current any = data
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return current
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing ".00".
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
