package rules

import (
	"encoding/json"
	"reflect"
	"strings"
)

// matchesFilter evaluates a rule filter against an event payload.
//
// The filter language is deliberately restricted: a flat JSON object whose
// keys are dot-addressed paths into the payload and whose values are
// compared for equality, e.g. {"status": "delivered"}. No operators, no
// nesting, no expressions.
//
// A nil, empty, or malformed filter matches unconditionally. Failing open
// is a product decision: a misconfigured rule should still notify rather
// than silently suppress deliveries.
func matchesFilter(filter json.RawMessage, payload map[string]any) bool {
	if len(filter) == 0 {
		return true
	}

	var predicate map[string]any
	if err := json.Unmarshal(filter, &predicate); err != nil {
		return true
	}

	for path, want := range predicate {
		got, ok := lookupPath(payload, path)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// lookupPath walks a dot-addressed path through nested maps.
func lookupPath(payload map[string]any, path string) (any, bool) {
	var current any = payload
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
