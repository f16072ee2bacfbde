package pipeline

import (
	"strings"

	"github.com/DeusData/importglob/internal/expr"
)

// stringifyQuery serializes query parameters as key=value pairs joined by
// "&", in declaration order. Numbers and booleans use their JavaScript
// string form; null and empty strings produce a bare key.
func stringifyQuery(params []QueryParam) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		key := encodeQueryKey(p.Key)
		var value string
		switch v := p.Value.(type) {
		case nil:
			parts = append(parts, key)
			continue
		case string:
			value = v
		default:
			value = expr.String(v)
		}
		if value == "" {
			parts = append(parts, key)
			continue
		}
		parts = append(parts, key+"="+encodeQueryValue(value))
	}
	return strings.Join(parts, "&")
}

func encodeQueryKey(s string) string {
	return escapeQuery(s, true)
}

func encodeQueryValue(s string) string {
	return escapeQuery(s, false)
}

const upperhex = "0123456789ABCDEF"

// escapeQuery percent-encodes like encodeURI, then escapes the bytes that
// are significant inside a query string. Spaces become "+".
func escapeQuery(s string, key bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case c == '=' && key:
			b.WriteString("%3D")
		case queryUnreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}

func queryUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(";,/?:@=$-_.!~*'()|`^", c) >= 0
}
