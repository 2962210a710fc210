package fsutil

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// HasMeta reports whether p contains glob syntax.
func HasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// StaticPrefix returns the leading directories of pattern that contain no
// glob syntax. Matches are mapped to destinations relative to it.
func StaticPrefix(pattern string) string {
	segs := strings.Split(ToSlash(pattern), "/")
	static := make([]string, 0, len(segs))
	for _, seg := range segs[:len(segs)-1] {
		if HasMeta(seg) {
			break
		}
		static = append(static, seg)
	}
	if len(static) == 0 {
		return "."
	}
	return path.Join(static...)
}

// CompileGlob compiles a slash-separated glob. `*` stops at slashes and `**`
// crosses them. A `**/` segment also matches zero directories, so
// src/**/*.png matches src/top.png.
func CompileGlob(pattern string) (glob.Glob, error) {
	variants := zeroDirVariants(ToSlash(pattern))
	set := make(anyGlob, 0, len(variants))
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, err
		}
		set = append(set, g)
	}
	if len(set) == 1 {
		return set[0], nil
	}
	return set, nil
}

type anyGlob []glob.Glob

func (a anyGlob) Match(s string) bool {
	for _, g := range a {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// zeroDirVariants expands every `**/` segment of pattern into a copy that
// keeps it and a copy that drops it.
func zeroDirVariants(pattern string) []string {
	variants := []string{""}
	for {
		i := doubleStarSegment(pattern)
		if i < 0 {
			break
		}
		head := pattern[:i]
		next := make([]string, 0, 2*len(variants))
		for _, v := range variants {
			next = append(next, v+head+"**/", v+head)
		}
		variants = next
		pattern = pattern[i+len("**/"):]
	}
	for i := range variants {
		variants[i] += pattern
	}
	return variants
}

// doubleStarSegment returns the index of the first `**/` that starts a path
// segment, or -1.
func doubleStarSegment(p string) int {
	for from := 0; from < len(p); {
		j := strings.Index(p[from:], "**/")
		if j < 0 {
			return -1
		}
		j += from
		if j == 0 || p[j-1] == '/' {
			return j
		}
		from = j + 1
	}
	return -1
}

// Glob returns every regular file on fs matching pattern, sorted. Patterns
// follow CompileGlob. A pattern whose static prefix does not exist matches
// nothing.
func Glob(fs afero.Fs, pattern string) ([]string, error) {
	pattern = ToSlash(pattern)
	g, err := CompileGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	root := StaticPrefix(pattern)
	if _, err := fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var matches []string
	err = afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		p = ToSlash(p)
		if g.Match(p) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(matches)
	return matches, nil
}

// Files returns every regular file under dir, sorted.
func Files(fs afero.Fs, dir string) ([]string, error) {
	var files []string
	err := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, ToSlash(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Rel returns target relative to base, both slash-separated.
func Rel(base, target string) string {
	base = path.Clean(ToSlash(base))
	target = path.Clean(ToSlash(target))
	if base == "." {
		return target
	}
	return strings.TrimPrefix(strings.TrimPrefix(target, base), "/")
}
