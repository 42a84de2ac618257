package nvpair

import (
	"fmt"
	"net/url"
	"strings"
)

// ContentType is the media type of an encoded set.
const ContentType = "application/x-www-form-urlencoded"

// Encode renders s as name=value pairs joined by '&', each side query-escaped.
// Unlike url.Values the order and duplicates of s are preserved.
func Encode(s *Set) string {
	if s.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range s.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Decode parses the output of Encode. An empty string is an empty set.
func Decode(data string) (*Set, error) {
	s := New()
	if data == "" {
		return s, nil
	}
	for i, field := range strings.Split(data, "&") {
		rawName, rawValue, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("decoding pair %d: missing '='", i)
		}
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return nil, fmt.Errorf("decoding name of pair %d: %w", i, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decoding value of %q: %w", name, err)
		}
		s.Add(name, value)
	}
	return s, nil
}
