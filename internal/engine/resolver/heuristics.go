package resolver

import (
	"path"
	"regexp"
	"strings"
)

var aliasPrefix = regexp.MustCompile(`^[@~#]/?`)

// normalizeToken rewrites a raw import token into root-relative path
// candidates, most specific first. fromDir is the importing file's
// directory relative to the scan root ("." for root). An empty result
// means the token cannot name anything inside the tree.
func normalizeToken(token, fromDir string) []string {
	token = strings.TrimSpace(token)
	if token == "" || token == "node_modules" {
		return nil
	}

	// Relative references resolve against the importing file.
	if strings.HasPrefix(token, ".") && (strings.HasPrefix(token, "./") || strings.HasPrefix(token, "../") || token == "." || token == "..") {
		joined := path.Join(fromDir, strings.ReplaceAll(token, "\\", "/"))
		if joined == "" || strings.HasPrefix(joined, "..") {
			// Escapes the scanned tree.
			return nil
		}
		return []string{joined}
	}

	// Rust paths: crate::graph::build -> graph/build; std:: style
	// externals keep their first segment and fail resolution naturally.
	if strings.Contains(token, "::") {
		parts := strings.Split(token, "::")
		if parts[0] == "crate" || parts[0] == "self" || parts[0] == "super" {
			parts = parts[1:]
		}
		if len(parts) == 0 {
			return nil
		}
		joined := path.Join(parts...)
		return dedupe([]string{joined, parts[0]})
	}

	// Path-like: strip common JS/TS bundler aliases (@/, ~/, #/).
	if strings.ContainsAny(token, "/\\") {
		cleaned := aliasPrefix.ReplaceAllString(token, "")
		cleaned = strings.Trim(strings.ReplaceAll(cleaned, "\\", "/"), "/")
		if cleaned == "" {
			return nil
		}
		candidates := []string{path.Clean(cleaned)}
		// Also try relative to the importing file, for includes written
		// without a leading "./".
		joined := path.Join(fromDir, cleaned)
		if joined != "" && !strings.HasPrefix(joined, "..") {
			candidates = append(candidates, joined)
		}
		return dedupe(candidates)
	}

	// Dotted (Python, Java, C#): try the full dotted path as a file
	// path, then fall back to the first component for a folder match.
	if strings.Contains(token, ".") {
		parts := strings.Split(token, ".")
		joined := path.Join(parts...)
		return dedupe([]string{joined, path.Join(fromDir, joined), parts[0]})
	}

	// Single name: local module folder or sibling file.
	return dedupe([]string{token, path.Join(fromDir, token)})
}

func dedupe(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c == "" || c == "." || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// lastSegment returns the trailing path segment of a candidate, with
// any extension removed, for the package-root heuristic.
func lastSegment(p string) string {
	base := path.Base(p)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
