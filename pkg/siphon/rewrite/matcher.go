package rewrite

import "strings"

// Match finds the first enabled rule in l matching host and path, per spec:
// first-match-wins, domain equality or subdomain-suffix match, then a
// path-glob match. It returns ok=false if no rule matches or the list
// itself is disabled.
func (l *List) Match(host, path string) (rule Rule, idx int, ok bool) {
	if l == nil || !l.Enabled {
		return Rule{}, -1, false
	}
	for i, r := range l.Rules {
		if !r.Enabled {
			continue
		}
		if !domainMatches(r.Domain, host) {
			continue
		}
		if !pathMatches(r.PathGlob, path) {
			continue
		}
		return r, i, true
	}
	return Rule{}, -1, false
}

// domainMatches implements the Open Question resolution: an empty rule
// domain matches any host; otherwise the host must equal the rule domain
// case-insensitively, or end with "." + domain (subdomain match).
func domainMatches(ruleDomain, host string) bool {
	if ruleDomain == "" {
		return true
	}
	host = strings.ToLower(host)
	ruleDomain = strings.ToLower(ruleDomain)
	if host == ruleDomain {
		return true
	}
	return strings.HasSuffix(host, "."+ruleDomain)
}

// pathMatches implements the glob language from the spec: literal bytes
// match themselves; '*' matches any run (including empty) of non-'/'
// bytes, unless it is the last character of the pattern, in which case it
// matches to the end of the path regardless of further slashes.
func pathMatches(glob, path string) bool {
	return matchGlob(glob, path)
}

func matchGlob(glob, path string) bool {
	for len(glob) > 0 {
		switch glob[0] {
		case '*':
			if len(glob) == 1 {
				return true
			}
			rest := glob[1:]
			// Try every split point in path up to (not including) the next
			// '/', since a non-trailing '*' must not cross a path segment.
			limit := strings.IndexByte(path, '/')
			if limit < 0 {
				limit = len(path)
			}
			for i := 0; i <= limit; i++ {
				if matchGlob(rest, path[i:]) {
					return true
				}
			}
			return false
		default:
			if len(path) == 0 || path[0] != glob[0] {
				return false
			}
			glob = glob[1:]
			path = path[1:]
		}
	}
	return len(path) == 0
}
