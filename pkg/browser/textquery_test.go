package browser

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decoyPage = `<!DOCTYPE html>
<html>
<head>
<title>Sign Up</title>
<style>.welcome-back { color: red; }</style>
</head>
<body>
<noscript>Welcome Back, enable JavaScript to run this app.</noscript>
<script>window.marker = "Create Account";</script>
<div id="root">
  <h1>Welcome
    Back</h1>
  <span>sign up</span>
  <p>Don't have an account? <b>CREATE ACCOUNT</b></p>
</div>
</body>
</html>`

func TestTextXPath(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "mixed case",
			text: "Sign Up",
			want: `//body/descendant-or-self::*[not(self::script) and not(self::style) and not(self::noscript)][text()[contains(translate(normalize-space(.), 'SIGNUP', 'signup'), 'sign up')]]`,
		},
		{
			name: "collapses whitespace",
			text: "  Welcome \n  Back ",
			want: `//body/descendant-or-self::*[not(self::script) and not(self::style) and not(self::noscript)][text()[contains(translate(normalize-space(.), 'WELCOMBAK', 'welcombak'), 'welcome back')]]`,
		},
		{
			name: "no letters",
			text: "42",
			want: `//body/descendant-or-self::*[not(self::script) and not(self::style) and not(self::noscript)][text()[contains(normalize-space(.), '42')]]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TextXPath(tt.text))
		})
	}
}

func TestTextXPathMatchesVisibleText(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(decoyPage))
	require.NoError(t, err)

	tests := []struct {
		text string
		want string
	}{
		{"Sign Up", "span"},
		{"Welcome Back", "h1"},
		{"create account", "b"},
		{"don't have", "p"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			node, err := htmlquery.Query(doc, TextXPath(tt.text))
			require.NoError(t, err)
			require.NotNil(t, node, "no element matched %q", tt.text)
			assert.Equal(t, tt.want, node.Data)
		})
	}

	node, err := htmlquery.Query(doc, TextXPath("Forgot Password"))
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`create account`, `'create account'`},
		{`don't`, `"don't"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat('it', "'", 's "x"')`},
		{`'"`, `concat("'", '"')`},
		{`"'`, `concat('"', "'")`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, xpathLiteral(tt.in))
		})
	}
}
