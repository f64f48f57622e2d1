package authz

import "strings"

// MatchGlob reports whether path matches pattern, where pattern is a
// '/'-separated sequence of segments, each either a literal, "*"
// (matches exactly one segment), or "**" (matches zero or more
// segments). This extends path.Match, which has no multi-segment
// wildcard, to support spec.md §3's "/cal/<principal>/<collection>/**"
// transitive-grant glob shape.
func MatchGlob(pattern, path string) bool {
	return matchSegments(splitPath(pattern), splitPath(path))
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

func matchSegments(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	head := pat[0]
	if head == "**" {
		if len(path) == 0 {
			return false
		}
		if matchSegments(pat[1:], path[1:]) {
			return true
		}
		return matchSegments(pat, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	if head != "*" && head != path[0] {
		return false
	}
	return matchSegments(pat[1:], path[1:])
}
