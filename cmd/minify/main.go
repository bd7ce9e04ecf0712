// Command minify writes minified copies of templates/ and static/ into dist/,
// which the server prefers in production.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const (
	mediaHTML = "text/html"
	mediaCSS  = "text/css"
	mediaJS   = "application/javascript"
)

func main() {
	var (
		srcRoot  = flag.String("src", ".", "Project root containing templates/ and static/")
		distRoot = flag.String("dist", "dist", "Output directory")
	)
	flag.Parse()

	m := newMinifier()
	for _, dir := range []string{"templates", "static"} {
		if err := minifyTree(m, filepath.Join(*srcRoot, dir), filepath.Join(*distRoot, dir)); err != nil {
			log.Fatalf("Error minifying %s: %v", dir, err)
		}
	}

	fmt.Printf("Minification complete, output in %s\n", *distRoot)
}

// newMinifier returns a minifier that leaves Go template actions intact.
func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaJS, js.Minify)
	m.Add(mediaHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
		TemplateDelims:   html.GoTemplateDelims,
	})
	return m
}

// mediaTypeFor maps a file extension to the minifier media type, or "" for
// files that are copied unchanged.
func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return mediaHTML
	case ".css":
		return mediaCSS
	case ".js":
		return mediaJS
	default:
		return ""
	}
}

// minifyTree mirrors src into dst, minifying the files it knows how to.
// A missing src is skipped.
func minifyTree(m *minify.M, src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		log.Printf("[WARN] %s does not exist, skipping", src)
		return nil
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return minifyFile(m, path, filepath.Join(dst, rel), mediaTypeFor(path))
	})
}

func minifyFile(m *minify.M, srcPath, dstPath, mediaType string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	out := src
	if mediaType != "" {
		if out, err = m.Bytes(mediaType, src); err != nil {
			return fmt.Errorf("minify %s: %w", srcPath, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, out, 0644); err != nil {
		return err
	}

	if mediaType != "" && len(src) > 0 {
		ratio := float64(len(src)-len(out)) / float64(len(src)) * 100
		fmt.Printf("%s: %d bytes -> %d bytes (%.1f%% reduction)\n", srcPath, len(src), len(out), ratio)
	}
	return nil
}
