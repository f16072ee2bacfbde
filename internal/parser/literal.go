package parser

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/DeusData/importglob/internal/expr"
)

// decodeString returns the value of a quoted JavaScript string literal.
func decodeString(raw string) string {
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch esc := raw[i]; esc {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '9' {
				b.WriteByte(esc)
			} else {
				b.WriteByte(0)
			}
		case '\r':
			// line continuation, \r\n counts as one break
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+2 < len(raw) {
				if v, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(v))
					i += 2
					continue
				}
			}
			b.WriteByte(esc)
		case 'u':
			r, n := decodeUnicodeEscape(raw[i+1:])
			if n == 0 {
				b.WriteByte(esc)
				continue
			}
			i += n
			if utf16.IsSurrogate(r) && strings.HasPrefix(raw[i+1:], `\u`) {
				if r2, n2 := decodeUnicodeEscape(raw[i+3:]); n2 > 0 {
					if pair := utf16.DecodeRune(r, r2); pair != utf8.RuneError {
						r = pair
						i += 2 + n2
					}
				}
			}
			b.WriteRune(r)
		default:
			// covers \\ \' \" and the identity escapes
			r, size := utf8.DecodeRuneInString(raw[i:])
			if r == '\u2028' || r == '\u2029' {
				i += size - 1
				continue
			}
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}

// decodeUnicodeEscape decodes the part after "\u": either four hex digits or
// a braced code point. It returns the rune and the number of bytes consumed.
func decodeUnicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, 0
		}
		return rune(v), end + 1
	}
	if len(s) < 4 {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0
	}
	return rune(v), 4
}

// decodeNumber returns the value of a JavaScript numeric literal.
func decodeNumber(raw string) any {
	s := strings.ReplaceAll(raw, "_", "")
	if strings.HasSuffix(s, "n") {
		digits := strings.TrimSuffix(s, "n")
		if v, err := strconv.ParseInt(digits, 0, 64); err == nil {
			return expr.BigInt(strconv.FormatInt(v, 10))
		}
		return expr.BigInt(digits)
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return float64(0)
}

// decodeRegex splits a /pattern/flags literal.
func decodeRegex(raw string) expr.RegExp {
	end := strings.LastIndexByte(raw, '/')
	if end <= 0 {
		return expr.RegExp{Pattern: raw}
	}
	return expr.RegExp{Pattern: raw[1:end], Flags: raw[end+1:]}
}
