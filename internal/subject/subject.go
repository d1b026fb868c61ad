// Package subject formats concepts as the ▼a…▼0…▲ subject tokens consumed by
// downstream cataloging tools. The same grammar is used for a result's own
// subject and for every related/broader/narrower neighbor, so the token
// logic lives in one place.
package subject

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/chajda/internal/langtag"
)

var (
	codeRE    = regexp.MustCompile(`(?i)([A-Z]+\d+)`)
	tokenRE   = regexp.MustCompile(`▼a([^▼▲]+)▼0([^▼▲]+)▲`)
	parenRE   = regexp.MustCompile(`\([^)]*\)`)
	bracketRE = regexp.MustCompile(`\[[^\]]*\]`)

	parenContentRE   = regexp.MustCompile(`\(([^)]*)\)`)
	bracketContentRE = regexp.MustCompile(`\[([^\]]*)\]`)
)

// ShortCode derives the compact code from a concept id: the part after the
// last namespace separator, with the first letters-then-digits token
// preferred and uppercased ("nlk:KSH0000001234" -> "KSH0000001234"). When
// no such token exists the whole post-separator substring is returned
// verbatim.
func ShortCode(conceptID string) string {
	if conceptID == "" {
		return ""
	}
	local := conceptID
	if i := strings.LastIndex(conceptID, ":"); i >= 0 {
		local = conceptID[i+1:]
	}
	if m := codeRE.FindString(local); m != "" {
		return strings.ToUpper(m)
	}
	return local
}

// Format renders the canonical subject token for a label and concept id.
func Format(prefLabel, conceptID string) string {
	return fmt.Sprintf("▼a%s▼0%s▲", prefLabel, ShortCode(conceptID))
}

// Labels extracts the label parts from a string containing one or more
// subject tokens. Returns nil when the string carries no token markup.
func Labels(s string) []string {
	matches := tokenRE.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		if l := strings.TrimSpace(m[1]); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// Clean strips round-bracket and square-bracket qualifiers and any trailing
// language tag, leaving the bare subject text used for ranking comparisons.
// "눈 (snow)@ko" -> "눈".
func Clean(text string) string {
	s := parenRE.ReplaceAllString(text, "")
	s = bracketRE.ReplaceAllString(s, "")
	return strings.TrimSpace(langtag.Strip(s))
}

// lodBase is the linked-open-data page prefix for published concepts.
const lodBase = "https://lod.nl.go.kr/page/concept/"

// LinkURL returns the public LOD page for a concept id, or "" when no short
// code can be derived.
func LinkURL(conceptID string) string {
	code := ShortCode(conceptID)
	if code == "" {
		return ""
	}
	return lodBase + code
}

// Qualifiers returns the first round-bracket and square-bracket contents of
// the raw label, for the parenthetical ranking tier.
func Qualifiers(text string) (paren, bracket string) {
	if m := parenContentRE.FindStringSubmatch(text); m != nil {
		paren = m[1]
	}
	if m := bracketContentRE.FindStringSubmatch(text); m != nil {
		bracket = m[1]
	}
	return paren, bracket
}
