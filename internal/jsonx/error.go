package jsonx

import "strings"

// IsParseError returns true if err indicates a JSON parse failure of some
// kind.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "json:"):
		return true
	case strings.Contains(msg, "invalid character"):
		return true
	case strings.Contains(msg, "unexpected end of JSON input"):
		return true
	case strings.Contains(msg, "cannot unmarshal"):
		return true
	default:
		return false
	}
}
