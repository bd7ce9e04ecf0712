package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHTMLMinificationKeepsTemplateActions checks Go template actions survive minification
func TestHTMLMinificationKeepsTemplateActions(t *testing.T) {
	m := newMinifier()

	input := `{{ define "practice-content" }}
<div class="letters">
	{{ range .view.Letters }}
	<span class="letter letter-{{ .State }}">  {{ .Symbol }}  </span>
	{{ end }}
</div>
{{ end }}`

	got, err := m.String(mediaHTML, input)
	if err != nil {
		t.Fatalf("HTML minification failed: %v", err)
	}
	for _, action := range []string{`{{ define "practice-content" }}`, "{{ range .view.Letters }}", "letter-{{ .State }}", "{{ .Symbol }}", "{{ end }}"} {
		if !strings.Contains(got, action) {
			t.Errorf("minified HTML lost %q:\n%s", action, got)
		}
	}
	if len(got) >= len(input) {
		t.Errorf("HTML was not reduced: %d >= %d bytes", len(got), len(input))
	}
}

// TestCSSMinification checks that CSS is minified as expected
func TestCSSMinification(t *testing.T) {
	input := `
		.letter-current {
			color: #fff;
			margin: 0  ;
		}
	`
	expected := `.letter-current{color:#fff;margin:0}`

	got, err := newMinifier().String(mediaCSS, input)
	if err != nil {
		t.Fatalf("CSS minification failed: %v", err)
	}
	if got != expected {
		t.Errorf("CSS minification mismatch:\nGot:      %q\nExpected: %q", got, expected)
	}
}

// TestJSMinification checks that JavaScript is minified as expected
func TestJSMinification(t *testing.T) {
	input := `
		function add(a, b) {
			return a + b;
		}
	`
	expected := `function add(e,t){return e+t}`

	got, err := newMinifier().String(mediaJS, input)
	if err != nil {
		t.Fatalf("JS minification failed: %v", err)
	}
	if got != expected {
		t.Errorf("JS minification mismatch:\nGot:      %q\nExpected: %q", got, expected)
	}
}

func TestMediaTypeFor(t *testing.T) {
	cases := map[string]string{
		"templates/index.html": mediaHTML,
		"static/style.CSS":     mediaCSS,
		"static/app.js":        mediaJS,
		"static/logo.png":      "",
		"README":               "",
	}
	for path, want := range cases {
		assert.Equal(t, want, mediaTypeFor(path), path)
	}
}

func TestMinifyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dist")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "style.css"), []byte("body {  margin: 0 ; }\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "img", "icon.png"), []byte{0x89, 'P', 'N', 'G'}, 0644))

	require.NoError(t, minifyTree(newMinifier(), src, dst))

	css, err := os.ReadFile(filepath.Join(dst, "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", string(css))

	png, err := os.ReadFile(filepath.Join(dst, "img", "icon.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png)
}

func TestMinifyTreeMissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, minifyTree(newMinifier(), filepath.Join(t.TempDir(), "nope"), dst))
	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}
