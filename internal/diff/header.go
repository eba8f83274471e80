package diff

import (
	"strconv"
	"strings"
)

// parseGitHeaderPaths reads the two paths of a "diff --git" line (with the
// "diff --git " prefix already removed). Unquoted paths may contain spaces;
// when both sides name the same file the split is unambiguous.
func parseGitHeaderPaths(rest string) (string, string) {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, `"`) || strings.HasSuffix(rest, `"`) {
		left, tail, ok := consumeToken(rest)
		if !ok {
			return "", ""
		}
		right, _, ok := consumeToken(tail)
		if !ok {
			return "", ""
		}
		from, _ := decodePath(left, "a/")
		to, _ := decodePath(right, "b/")
		return from, to
	}

	if strings.HasPrefix(rest, "a/") {
		// Same-name split: "a/<p> b/<p>" has its midpoint at len/2.
		if len(rest)%2 == 1 {
			mid := len(rest) / 2
			if rest[mid] == ' ' && strings.HasPrefix(rest[mid+1:], "b/") && rest[2:mid] == rest[mid+3:] {
				return rest[2:mid], rest[mid+3:]
			}
		}
		if idx := strings.LastIndex(rest, " b/"); idx > 0 {
			return rest[2:idx], rest[idx+3:]
		}
	}

	left, tail, ok := consumeToken(rest)
	if !ok {
		return "", ""
	}
	right, _, _ := consumeToken(tail)
	from, _ := decodePath(left, "a/")
	to, _ := decodePath(right, "b/")
	return from, to
}

// consumeToken splits off one whitespace-delimited or double-quoted token.
func consumeToken(raw string) (string, string, bool) {
	trimmed := strings.TrimLeft(raw, " \t")
	if trimmed == "" {
		return "", "", false
	}
	if trimmed[0] != '"' {
		if idx := strings.IndexAny(trimmed, " \t"); idx >= 0 {
			return trimmed[:idx], trimmed[idx:], true
		}
		return trimmed, "", true
	}
	escaped := false
	for i := 1; i < len(trimmed); i++ {
		switch {
		case escaped:
			escaped = false
		case trimmed[i] == '\\':
			escaped = true
		case trimmed[i] == '"':
			return trimmed[:i+1], trimmed[i+1:], true
		}
	}
	return "", "", false
}

// decodePath unquotes a C-style quoted path and strips the expected git
// prefix ("a/" or "b/"). An empty prefix leaves the path as written, which is
// what rename/copy headers need.
func decodePath(raw, prefix string) (string, bool) {
	token := strings.TrimSpace(raw)
	if token == "" || token == devNull {
		return "", false
	}
	if strings.HasPrefix(token, `"`) {
		unquoted, err := strconv.Unquote(token)
		if err != nil {
			return "", false
		}
		token = unquoted
	}
	switch {
	case prefix != "" && strings.HasPrefix(token, prefix):
		token = token[len(prefix):]
	case prefix == "":
	case strings.HasPrefix(token, "a/") || strings.HasPrefix(token, "b/"):
		token = token[2:]
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// QuotePath quotes a path the way git does when it contains characters
// that would otherwise be ambiguous in a patch header.
func QuotePath(path string) string {
	for _, r := range path {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return strconv.Quote(path)
		}
	}
	return path
}
