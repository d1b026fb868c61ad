// Package langtag handles the trailing @xx language tag convention used by
// catalog literals ("인터넷@ko", "internet@en"). Some snapshots carry the
// language in a dedicated column, others embed it in the text; every
// component that needs to strip or compare labels goes through this package
// so there is exactly one copy of the rule.
package langtag

import (
	"regexp"
	"strings"
)

// tagRE matches a trailing language tag: two or three letters preceded by '@',
// anchored at the end of the string.
var tagRE = regexp.MustCompile(`@([A-Za-z]{2,3})$`)

// Split separates a label from its trailing language tag.
// "internet@en" -> ("internet", "en"); "인터넷" -> ("인터넷", "").
// The returned tag is lowercased.
func Split(s string) (base, tag string) {
	s = strings.TrimSpace(s)
	m := tagRE.FindStringSubmatchIndex(s)
	if m == nil {
		return s, ""
	}
	return strings.TrimSpace(s[:m[0]]), strings.ToLower(s[m[2]:m[3]])
}

// Strip removes a trailing language tag, if any.
func Strip(s string) string {
	base, _ := Split(s)
	return base
}

// Rank orders languages for preferred-label selection: Korean first, then
// English, then everything else.
func Rank(tag string) int {
	switch strings.ToLower(tag) {
	case "ko":
		return 0
	case "en":
		return 1
	default:
		return 2
	}
}

// Dedup collapses labels that denote the same term once the language tag is
// stripped and case is folded. When two labels share a key, the variant
// tagged @fr wins; otherwise the first-seen variant is kept. Returned labels
// keep their original form (tag included), in first-seen key order.
func Dedup(labels []string) []string {
	chosen := make(map[string]string, len(labels))
	order := make([]string, 0, len(labels))

	for _, l := range labels {
		if l == "" {
			continue
		}
		key := strings.ToLower(Strip(l))
		cur, ok := chosen[key]
		if !ok {
			chosen[key] = l
			order = append(order, key)
			continue
		}
		if isFrench(l) && !isFrench(cur) {
			chosen[key] = l
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, chosen[key])
	}
	return out
}

func isFrench(label string) bool {
	_, tag := Split(label)
	return tag == "fr"
}
