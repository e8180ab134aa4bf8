package rendering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML_EmptyString(t *testing.T) {
	assert.Equal(t, "", EscapeHTML(""))
}

func TestEscapeHTML_NoSpecialCharacters(t *testing.T) {
	text := "Spicy Tuna Roll — $8.50"
	assert.Equal(t, text, EscapeHTML(text))
}

func TestEscapeHTML_Ampersand(t *testing.T) {
	assert.Equal(t, "Surf &amp; Turf", EscapeHTML("Surf & Turf"))
}

func TestEscapeHTML_AngleBrackets(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", EscapeHTML("<script>alert(1)</script>"))
}

func TestEscapeHTML_Quotes(t *testing.T) {
	assert.Equal(t, `&quot;Chef&quot;'s choice`, EscapeHTML(`"Chef"'s choice`))
}

func TestEscapeHTML_AlreadyEscapedIsEscapedAgain(t *testing.T) {
	assert.Equal(t, "&amp;amp;", EscapeHTML("&amp;"))
}

func TestEscapeMultiline(t *testing.T) {
	assert.Equal(t, "Mon: 11 &amp; 5<br>\nTue", escapeMultiline("Mon: 11 & 5\nTue"))
}

func TestInline(t *testing.T) {
	assert.Equal(t, "eel avocado", inline("  eel\n  avocado "))
}
