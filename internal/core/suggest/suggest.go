// Package suggest computes autocomplete suggestions from the name index.
package suggest

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 8

// Suggest returns up to MaxSuggestions names that start with the lower-cased
// query, in index order. A blank query or an empty index yields nothing.
func Suggest(query string, names []string) []string {
	if strings.TrimSpace(query) == "" || len(names) == 0 {
		return []string{}
	}

	prefix := strings.ToLower(query)
	out := make([]string, 0, MaxSuggestions)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, name)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// Match is a ranked fuzzy hit.
type Match struct {
	Name  string
	Score int
}

type nameSource []string

func (s nameSource) String(i int) string { return s[i] }
func (s nameSource) Len() int            { return len(s) }

// Fuzzy ranks names by fuzzy similarity to query, best first. It tolerates
// typos and gaps and is only used for command-line exploration; interactive
// suggestions always use Suggest.
func Fuzzy(query string, names []string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(names) == 0 {
		return nil
	}

	found := fuzzy.FindFrom(query, nameSource(names))
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	out := make([]Match, 0, len(found))
	for _, m := range found {
		out = append(out, Match{Name: m.Str, Score: m.Score})
	}
	return out
}
