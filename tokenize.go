package datalayer

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// Tokenize replaces :name tokens in the given URL with like-named entries
// from params, then appends any unconsumed entries as a query string.
//
// A token whose name has no entry in params is left verbatim. Query value
// semantics follow the wire conventions of the descriptors this package
// resolves: false serializes as key=false, a nil value as a bare key, and
// absent keys are omitted. Keys serialize in sorted order so output is
// deterministic.
func Tokenize(rawURL string, params map[string]any) string {
	remaining := make(map[string]any, len(params))
	for k, v := range params {
		remaining[k] = v
	}

	out := tokenPattern.ReplaceAllStringFunc(rawURL, func(token string) string {
		name := token[1:]
		v, ok := remaining[name]
		if !ok {
			return token
		}
		delete(remaining, name)
		return url.QueryEscape(stringify(v))
	})

	if len(remaining) == 0 {
		return strings.TrimRight(out, "?&")
	}

	keys := make([]string, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var query strings.Builder
	for i, k := range keys {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(k))
		if v := remaining[k]; v != nil {
			query.WriteByte('=')
			query.WriteString(url.QueryEscape(stringify(v)))
		}
	}

	sep := "?"
	if strings.Contains(out, "?") {
		sep = "&"
	}
	return out + sep + query.String()
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
