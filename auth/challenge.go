package auth

import (
	"net/http"
	"strings"
)

// Challenge is one parsed entry from a WWW-Authenticate or Proxy-Authenticate
// header: a scheme name plus its auth parameters.
//
// Example header carrying two challenges:
//
//	Digest realm="api", qop="auth", Basic realm="api"
type Challenge struct {
	// Scheme is the authentication scheme token, original case preserved.
	Scheme string

	// Params holds the challenge's auth parameters, keys lowercased and
	// values unquoted.
	Params map[string]string

	// Token68 holds the challenge's data when the scheme carries a single
	// base64-style blob instead of key/value parameters (e.g. Negotiate).
	Token68 string
}

// ParseChallenges parses a single WWW-Authenticate/Proxy-Authenticate header
// value into zero or more challenges. Multiple challenges in one header are
// separated by commas, which also separate the parameters of a single
// challenge; a new challenge starts wherever a scheme token appears in place
// of a key=value parameter.
//
// Malformed fragments are skipped rather than failing the whole header.
func ParseChallenges(header string) []Challenge {
	var out []Challenge
	cur := -1

	for _, part := range splitUnquoted(header, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		head, rest := part, ""
		if i := strings.IndexAny(part, " \t"); i >= 0 {
			head, rest = part[:i], strings.TrimSpace(part[i+1:])
		}

		if isToken(head) && rest == "" && !strings.Contains(part, "=") {
			// Bare scheme, e.g. "Basic" in "Negotiate, Basic realm=..."
			out = append(out, Challenge{Scheme: head, Params: map[string]string{}})
			cur = len(out) - 1
			continue
		}

		if isToken(head) && rest != "" {
			// Scheme followed by its first parameter or token68 data.
			out = append(out, Challenge{Scheme: head, Params: map[string]string{}})
			cur = len(out) - 1
			if k, v, ok := parseAuthParam(rest); ok {
				out[cur].Params[k] = v
			} else {
				out[cur].Token68 = rest
			}
			continue
		}

		// Continuation parameter of the current challenge.
		if k, v, ok := parseAuthParam(part); ok && cur >= 0 {
			out[cur].Params[k] = v
		}
	}

	return out
}

// ChallengesFromResponse collects the challenges advertised by a response in
// the named header, across repeated header lines. A nil response or an absent
// header yields no challenges.
func ChallengesFromResponse(resp *http.Response, header string) []Challenge {
	if resp == nil {
		return nil
	}
	var out []Challenge
	for _, value := range resp.Header.Values(header) {
		out = append(out, ParseChallenges(value)...)
	}
	return out
}

// parseAuthParam parses one key=value auth parameter. The value may be a
// quoted string with backslash escapes or a bare token. Returns ok=false for
// anything that is not a parameter (e.g. token68 data).
func parseAuthParam(s string) (key, value string, ok bool) {
	i := strings.IndexByte(s, '=')
	if i <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(s[:i])
	raw := strings.TrimSpace(s[i+1:])
	if !isToken(key) {
		return "", "", false
	}
	if strings.HasPrefix(raw, `"`) {
		if len(raw) < 2 || !strings.HasSuffix(raw, `"`) {
			return "", "", false
		}
		return strings.ToLower(key), unquote(raw[1 : len(raw)-1]), true
	}
	if raw == "" || !isToken(raw) {
		// Trailing '=' without a token value is token68 padding, not a
		// parameter ("Negotiate YII=").
		return "", "", false
	}
	return strings.ToLower(key), raw, true
}

// splitUnquoted splits s on sep, ignoring separators inside quoted strings.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			b.WriteByte(c)
		case c == '\\' && inQuotes && i+1 < len(s):
			b.WriteByte(c)
			i++
			b.WriteByte(s[i])
		case c == sep && !inQuotes:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	return append(parts, b.String())
}

// unquote removes backslash escapes from a quoted-string body.
func unquote(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// isToken reports whether s is a valid RFC 7230 token.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
