package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuiltinOptions configures the builtin filters.
type BuiltinOptions struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Hasher backs assetHash. When nil, assetHash is not registered.
	Hasher *AssetHasher
}

// Builtins returns the standard filter set in registration order.
func Builtins(opts BuiltinOptions) []Entry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	entries := []Entry{
		{Name: "cacheBust", Fn: CacheBust(now)},
		{Name: "year", Fn: Year(now)},
		{Name: "title", Fn: Title},
		{Name: "excerpt", Fn: Excerpt},
	}
	if opts.Hasher != nil {
		entries = append(entries, Entry{Name: "assetHash", Fn: opts.Hasher.Filter})
	}
	return entries
}

// CacheBust returns the current time in Unix milliseconds, for appending to
// asset URLs as a query string.
func CacheBust(now func() time.Time) Func {
	return func(...any) (any, error) {
		return now().UnixMilli(), nil
	}
}

// Year returns the current year.
func Year(now func() time.Time) Func {
	return func(...any) (any, error) {
		return now().Year(), nil
	}
}

// Title title-cases its argument using English rules.
func Title(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("title: want 1 argument, got %d", len(args))
	}
	return cases.Title(language.English).String(toString(args[0])), nil
}

// Excerpt returns the first n words of the text content of an HTML
// fragment, with an ellipsis when anything was cut. Script and style bodies
// are not text.
func Excerpt(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("excerpt: want 2 arguments (html, words), got %d", len(args))
	}
	n, err := toInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("excerpt: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("excerpt: word count must not be negative, got %d", n)
	}

	words := strings.Fields(textContent(toString(args[0])))
	if len(words) <= n {
		return strings.Join(words, " "), nil
	}
	return strings.Join(words[:n], " ") + "…", nil
}

func textContent(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawText(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawText(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawText(tag []byte) bool {
	s := string(tag)
	return s == "script" || s == "style"
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}
