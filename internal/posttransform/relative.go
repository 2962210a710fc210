package posttransform

import (
	"path"
	"regexp"
	"strings"
)

// <link ...rel="stylesheet"... href="/x"> in either attribute order. The href
// must be root-absolute: a single slash followed by a non-slash.
var (
	stylesheetHrefAfterRel = regexp.MustCompile(
		`(<link\b[^>]*?\srel=["']?stylesheet["']?[^>]*?\shref=["'])/([^/"'][^"']*)`)
	stylesheetHrefBeforeRel = regexp.MustCompile(
		`(<link\b[^>]*?\shref=["'])/([^/"'][^"']*)(["'][^>]*?\srel=["']?stylesheet\b)`)
	scriptSrc = regexp.MustCompile(
		`(<script\b[^>]*?\ssrc=["'])/([^/"'][^"']*)`)
)

// RelativeStylesheets rewrites root-absolute stylesheet hrefs to paths
// relative to the page's directory, so the site can be served from any
// prefix or opened from disk. Query strings are kept.
func RelativeStylesheets(outputPath string, content []byte) []byte {
	prefix := relativePrefix(outputPath)
	out := stylesheetHrefAfterRel.ReplaceAll(content, []byte("${1}"+escape(prefix)+"${2}"))
	return stylesheetHrefBeforeRel.ReplaceAll(out, []byte("${1}"+escape(prefix)+"${2}${3}"))
}

// RelativeScripts does the same for <script src>.
func RelativeScripts(outputPath string, content []byte) []byte {
	prefix := relativePrefix(outputPath)
	return scriptSrc.ReplaceAll(content, []byte("${1}"+escape(prefix)+"${2}"))
}

// relativePrefix is the path from the page's directory back to the output
// root: "" for index.html, "../" for blog/index.html.
func relativePrefix(outputPath string) string {
	dir := path.Dir(path.Clean("/" + strings.TrimPrefix(outputPath, "/")))
	depth := 0
	if dir != "/" {
		depth = strings.Count(dir, "/")
	}
	if depth == 0 {
		return "./"
	}
	return strings.Repeat("../", depth)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
