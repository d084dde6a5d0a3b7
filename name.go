package etree

import "strings"

// A universal name is either a plain local name or "{uri}local". Prefixes
// are resolved to URIs at parse time and never stored.

// SplitName splits a universal name into its namespace URI and local
// part. Plain names return an empty namespace.
func SplitName(name string) (space, local string) {
	if strings.HasPrefix(name, "{") {
		if i := strings.IndexByte(name, '}'); i >= 0 {
			return name[1:i], name[i+1:]
		}
	}
	return "", name
}

// JoinName builds a universal name from a namespace URI and local part.
func JoinName(space, local string) string {
	if space == "" {
		return local
	}
	return "{" + space + "}" + local
}

// needsPathEngine reports whether path contains xpath metacharacters
// outside of a {...} namespace block. Plain child tags take the direct
// scan fast path instead.
func needsPathEngine(path string) bool {
	check := true
	for i := 0; i < len(path); i++ {
		switch c := path[i]; {
		case c == '{':
			check = false
		case c == '}':
			check = true
		case check && (c == '/' || c == '*' || c == '[' || c == '@' || c == '.'):
			return true
		}
	}
	return false
}
