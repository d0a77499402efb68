// Package query clamps and defaults list query parameters before they reach handlers.
package query

import (
	"slices"
	"strconv"
	"strings"
)

// Rule normalizes one parameter. It reports false when the parameter should be dropped.
type Rule func(raw string, present bool) (string, bool)

// Rules maps parameter names to their rule. Parameters without a rule are dropped.
type Rules map[string]Rule

// Normalize applies rules to raw query values. Rules whose parameter is absent
// still run so defaults are filled in.
func Normalize(values map[string]string, rules Rules) map[string]string {
	out := make(map[string]string, len(rules))
	for name, rule := range rules {
		raw, present := values[name]
		if v, keep := rule(raw, present); keep {
			out[name] = v
		}
	}
	return out
}

// IntRange parses an integer, falling back to def when absent or malformed, and
// clamps it to [min, max]. A max of 0 leaves the upper end open.
func IntRange(def, min, max int) Rule {
	return func(raw string, present bool) (string, bool) {
		n := def
		if present {
			if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				n = parsed
			}
		}
		if n < min {
			n = min
		}
		if max > 0 && n > max {
			n = max
		}
		return strconv.Itoa(n), true
	}
}

// OneOf restricts the value to allowed. Anything else becomes def, or is
// dropped when def is empty.
func OneOf(def string, allowed ...string) Rule {
	return func(raw string, _ bool) (string, bool) {
		v := strings.TrimSpace(raw)
		if slices.Contains(allowed, v) {
			return v, true
		}
		return def, def != ""
	}
}

// MultiValue splits a comma-separated list, trims and drops empty entries, and
// rejoins. An empty result drops the parameter.
func MultiValue() Rule {
	return func(raw string, _ bool) (string, bool) {
		parts := strings.Split(raw, ",")
		kept := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return "", false
		}
		return strings.Join(kept, ","), true
	}
}

// Text keeps a present value trimmed, including an explicit empty one.
func Text() Rule {
	return func(raw string, present bool) (string, bool) {
		return strings.TrimSpace(raw), present
	}
}

// MPListRules guards the member-of-parliament directory listing.
var MPListRules = Rules{
	"limit":  IntRange(24, 1, 100),
	"page":   IntRange(1, 1, 0),
	"sort":   OneOf("latest-term", "latest-term", "az", "cabinet", "default"),
	"status": OneOf("", "current", "historical"),
	"party":  MultiValue(),
	"state":  MultiValue(),
	"term":   MultiValue(),
	"search": Text(),
}

// TicketListRules guards the incident, change request and maintenance task listings.
var TicketListRules = Rules{
	"page":       IntRange(1, 1, 0),
	"sortBy":     OneOf("createdAt", "createdAt", "updatedAt", "priority", "scheduledStart", "scheduledDate"),
	"sortOrder":  OneOf("desc", "asc", "desc"),
	"search":     Text(),
	"state":      Text(),
	"status":     Text(),
	"priority":   Text(),
	"assignedTo": Text(),
	"category":   Text(),
	"type":       Text(),
	"from":       Text(),
	"to":         Text(),
}
