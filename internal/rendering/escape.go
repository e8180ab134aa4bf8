package rendering

import "strings"

// EscapeHTML escapes the characters that are special in HTML text and attribute values.
// Special characters: & < > "
func EscapeHTML(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) + len(text)/4)

	for _, r := range text {
		switch r {
		case '&':
			result.WriteString("&amp;")
		case '<':
			result.WriteString("&lt;")
		case '>':
			result.WriteString("&gt;")
		case '"':
			result.WriteString("&quot;")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// escapeMultiline escapes text and turns newlines into <br> tags.
func escapeMultiline(text string) string {
	return strings.ReplaceAll(EscapeHTML(text), "\n", "<br>\n")
}

// inline flattens text onto one line for Markdown list items.
func inline(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
