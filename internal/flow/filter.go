package flow

import (
	"path"
	"strings"
)

// FilterChains selects chains whose name, or any scenario name, matches
// pattern. Matching is case-insensitive substring, or a glob when pattern
// contains metacharacters; globs are tried against both the chain name and
// "chain/scenario". A chain is always kept whole: scenarios depend on their
// predecessors, so cherry-picking one out of the middle would verify against
// state that was never established.
func FilterChains(chains []Chain, pattern string) []Chain {
	if pattern == "" {
		return chains
	}
	var kept []Chain
	for _, c := range chains {
		if chainMatches(c, pattern) {
			kept = append(kept, c)
		}
	}
	return kept
}

func chainMatches(c Chain, pattern string) bool {
	if nameMatches(c.Name, pattern) {
		return true
	}
	for _, sc := range c.Scenarios {
		if nameMatches(sc.Name, pattern) || nameMatches(c.Name+"/"+sc.Name, pattern) {
			return true
		}
	}
	return false
}

func nameMatches(name, pattern string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(name))
		return err == nil && ok
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}
