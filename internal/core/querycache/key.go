package querycache

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Key identifies a cacheable query. Elements are strings, integers or
// booleans; two keys with equal elements are the same key. Integers of
// any width compare by value, but the string "7" never equals 7.
type Key []any

// K builds a Key.
func K(parts ...any) Key {
	return Key(parts)
}

// String returns the canonical form, elements joined with "/".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = element(p)
	}
	return strings.Join(parts, "/")
}

// HasPrefix reports whether the leading elements of k equal prefix.
// Matching is per element: K("tournament") is not a prefix of
// K("tournament-results", 7). An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if element(k[i]) != element(prefix[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether both keys have the same elements.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// ParseKey splits a canonical key string back into elements. Numeric
// elements come back as int64 (uint64 past the int64 range), true and
// false as bool, and quoted segments as strings.
func ParseKey(s string) Key {
	if s == "" {
		return Key{}
	}
	parts := strings.Split(s, "/")
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = parseElement(p)
	}
	return k
}

func parseElement(p string) any {
	if len(p) >= 2 && p[0] == '\'' && p[len(p)-1] == '\'' {
		return unescape(p[1 : len(p)-1])
	}
	if n, err := strconv.ParseInt(p, 10, 64); err == nil {
		return n
	}
	if n, err := strconv.ParseUint(p, 10, 64); err == nil {
		return n
	}
	switch p {
	case "true":
		return true
	case "false":
		return false
	}
	return unescape(p)
}

func unescape(p string) string {
	if u, err := url.PathUnescape(p); err == nil {
		return u
	}
	return p
}

func element(v any) string {
	switch x := v.(type) {
	case string:
		return stringElement(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return stringElement(x.String())
	default:
		return stringElement(fmt.Sprint(x))
	}
}

// stringElement escapes s and quotes it when the bare form would read
// back as a number or a bool. PathEscape encodes a literal quote, so a
// segment wrapped in quotes is always a string.
func stringElement(s string) string {
	escaped := url.PathEscape(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return "'" + escaped + "'"
	}
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return "'" + escaped + "'"
	}
	if s == "true" || s == "false" {
		return "'" + escaped + "'"
	}
	return escaped
}
