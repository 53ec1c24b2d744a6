// Package engine drives lookups: the search controller state machine, the
// session runtime that executes its commands, and upstream rate limiting.
package engine

import (
	"math/rand/v2"
	"strings"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/suggest"
)

// QuickPicks are the fixed shortcut names. They also back random picks while
// the name index is empty.
var QuickPicks = []string{"pikachu", "bulbasaur", "charmander", "squirtle", "snorlax", "mewtwo"}

// State is everything a surface needs to render.
type State struct {
	QueryText string
	// Committed is the normalized name of the latest submission.
	Committed string
	Record    *core.Pokemon
	Request   core.RequestState

	Suggestions        []string
	SuggestionsVisible bool
	// Highlight indexes Suggestions, or -1.
	Highlight          int

	Seq       uint64
	DarkMode  bool
	IndexSize int
}

// CanPlaySound reports whether the displayed record has a sound clip.
func (s State) CanPlaySound() bool {
	return s.Record.HasSound()
}

// Command is a side effect requested by a transition.
type Command interface {
	command()
}

// FetchDetail asks for the detail record of Name. Its settlement must be
// reported with the same Seq.
type FetchDetail struct {
	Seq  uint64
	Name string
}

// PlaySound asks the audio player to play Record's cry.
type PlaySound struct {
	Record *core.Pokemon
}

// ResetSound asks the audio player to stop and rewind the current clip.
type ResetSound struct{}

func (FetchDetail) command() {}
func (PlaySound) command()   {}
func (ResetSound) command()  {}

// Controller is the search state machine. Transitions only change State and
// return commands; they never perform I/O. A Controller is not safe for
// concurrent use; Session serializes access.
type Controller struct {
	state      State
	names      []string
	quickPicks []string
	rng        *rand.Rand
}

// NewController returns an idle controller. rng drives random picks; nil
// uses the process-wide source.
func NewController(rng *rand.Rand) *Controller {
	return &Controller{
		state:      State{Highlight: -1, Suggestions: []string{}},
		quickPicks: QuickPicks,
		rng:        rng,
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	out := c.state
	out.Suggestions = append([]string(nil), c.state.Suggestions...)
	return out
}

// OnNamesLoaded installs the name index. Suggestions for the current query
// are recomputed but their visibility is left alone.
func (c *Controller) OnNamesLoaded(names []string) []Command {
	c.names = names
	c.state.IndexSize = len(names)
	c.state.Suggestions = suggest.Suggest(c.state.QueryText, c.names)
	c.clampHighlight()
	if len(c.state.Suggestions) == 0 {
		c.state.SuggestionsVisible = false
	}
	return nil
}

// OnInputChange records new query text and recomputes suggestions.
func (c *Controller) OnInputChange(text string) []Command {
	c.state.QueryText = text
	c.state.Suggestions = suggest.Suggest(text, c.names)
	c.state.SuggestionsVisible = len(c.state.Suggestions) > 0
	c.state.Highlight = -1
	return nil
}

// OnFocus re-shows suggestions for the current text, if any.
func (c *Controller) OnFocus() []Command {
	c.state.SuggestionsVisible = len(c.state.Suggestions) > 0
	return nil
}

// DismissSuggestions hides the suggestion list.
func (c *Controller) DismissSuggestions() []Command {
	c.state.SuggestionsVisible = false
	c.state.Highlight = -1
	return nil
}

// MoveHighlight moves the suggestion cursor by delta, wrapping around.
func (c *Controller) MoveHighlight(delta int) []Command {
	n := len(c.state.Suggestions)
	if n == 0 || !c.state.SuggestionsVisible {
		return nil
	}
	next := c.state.Highlight + delta
	if c.state.Highlight < 0 && delta < 0 {
		next = n - 1
	}
	c.state.Highlight = ((next % n) + n) % n
	return nil
}

// Highlighted returns the highlighted suggestion, if any.
func (c *Controller) Highlighted() (string, bool) {
	h := c.state.Highlight
	if !c.state.SuggestionsVisible || h < 0 || h >= len(c.state.Suggestions) {
		return "", false
	}
	return c.state.Suggestions[h], true
}

// OnSubmit starts a lookup of explicit, or of the query text when explicit is
// empty. The previous record and error are cleared and suggestions hidden
// before the fetch command is issued. A blank name fails validation without a
// fetch; it still supersedes any fetch in flight.
func (c *Controller) OnSubmit(explicit string) []Command {
	name := explicit
	if name == "" {
		name = c.state.QueryText
	}
	normalized := strings.ToLower(strings.TrimSpace(name))

	c.state.Seq++
	c.state.Record = nil
	c.state.SuggestionsVisible = false
	c.state.Highlight = -1
	c.state.Committed = normalized

	if normalized == "" {
		kind, reason := core.Classify(core.ErrEmptyQuery)
		c.state.Request = core.RequestState{Status: core.StatusFailed, Kind: kind, Reason: reason}
		return nil
	}

	c.state.Request = core.RequestState{Status: core.StatusLoading}
	return []Command{FetchDetail{Seq: c.state.Seq, Name: normalized}}
}

// OnSuggestionPick fills the query with name and submits it.
func (c *Controller) OnSuggestionPick(name string) []Command {
	c.state.QueryText = name
	c.state.SuggestionsVisible = false
	return c.OnSubmit(name)
}

// OnQuickPick submits name without touching the query text.
func (c *Controller) OnQuickPick(name string) []Command {
	return c.OnSubmit(name)
}

// OnRandomPick chooses a name uniformly from the index, or from QuickPicks
// while the index is empty, writes it into the query and submits it.
func (c *Controller) OnRandomPick() []Command {
	pool := c.names
	if len(pool) == 0 {
		pool = c.quickPicks
	}
	name := pool[c.intN(len(pool))]
	c.state.QueryText = name
	return c.OnSubmit(name)
}

// OnPlaySoundRequest plays the displayed record's cry when it has one.
func (c *Controller) OnPlaySoundRequest() []Command {
	if !c.state.Record.HasSound() {
		return nil
	}
	return []Command{PlaySound{Record: c.state.Record}}
}

// OnFetchSettled applies the outcome of the fetch issued with seq. Outcomes
// of superseded fetches are ignored and reported as not applied.
func (c *Controller) OnFetchSettled(seq uint64, rec *core.Pokemon, err error) ([]Command, bool) {
	if seq != c.state.Seq || c.state.Request.Status != core.StatusLoading {
		return nil, false
	}

	if err == nil && rec == nil {
		err = &core.FetchError{Kind: core.FailureTransport, Name: c.state.Committed}
	}
	if err != nil {
		kind, reason := core.Classify(err)
		c.state.Record = nil
		c.state.Request = core.RequestState{Status: core.StatusFailed, Kind: kind, Reason: reason}
		return nil, true
	}

	c.state.Record = rec
	c.state.Request = core.RequestState{Status: core.StatusSuccess}
	return []Command{ResetSound{}}, true
}

// ToggleTheme flips between light and dark display.
func (c *Controller) ToggleTheme() []Command {
	c.state.DarkMode = !c.state.DarkMode
	return nil
}

func (c *Controller) clampHighlight() {
	if c.state.Highlight >= len(c.state.Suggestions) {
		c.state.Highlight = -1
	}
}

func (c *Controller) intN(n int) int {
	if c.rng != nil {
		return c.rng.IntN(n)
	}
	return rand.IntN(n)
}
