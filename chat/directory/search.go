package directory

import (
	"strings"

	"github.com/jklein/kleinchat/chat/session"
)

// Filter keeps the entries whose title or message text matches query,
// preserving the input order. An empty query matches everything.
func Filter(entries []session.DirectoryEntry, query string) []session.DirectoryEntry {
	if query == "" {
		return entries
	}
	matched := make([]session.DirectoryEntry, 0, len(entries))
	for _, entry := range entries {
		if Matches(entry.SearchText(), query) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// Matches reports whether every character of query appears in haystack in the
// same relative order, not necessarily contiguously. Case-insensitive, single
// left-to-right scan, no backtracking, no scoring.
func Matches(haystack, query string) bool {
	q := []rune(strings.ToLower(query))
	if len(q) == 0 {
		return true
	}
	qi := 0
	for _, r := range strings.ToLower(haystack) {
		if r == q[qi] {
			qi++
			if qi == len(q) {
				return true
			}
		}
	}
	return false
}
