package browser

import (
	"strings"
	"unicode"
)

// TextXPath returns an XPath selecting elements in the document body whose
// own text contains text, ignoring case and collapsing whitespace. Head
// content (such as the title) and script, style and noscript bodies never match.
func TextXPath(text string) string {
	needle := strings.ToLower(strings.Join(strings.Fields(text), " "))

	upper, lower := caseFoldTables(needle)
	own := "normalize-space(.)"
	if upper != "" {
		own = "translate(" + own + ", " + xpathLiteral(upper) + ", " + xpathLiteral(lower) + ")"
	}

	return "//body/descendant-or-self::*[not(self::script) and not(self::style) and not(self::noscript)][text()[contains(" + own + ", " + xpathLiteral(needle) + ")]]"
}

// caseFoldTables builds translate() tables mapping the upper-case form of each
// letter in needle to its lower-case form.
func caseFoldTables(needle string) (string, string) {
	var upper, lower strings.Builder
	seen := make(map[rune]bool)

	for _, r := range needle {
		u := unicode.ToUpper(r)
		if u == r || seen[u] {
			continue
		}
		seen[u] = true
		upper.WriteRune(u)
		lower.WriteRune(r)
	}

	return upper.String(), lower.String()
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so text holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
