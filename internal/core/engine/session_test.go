package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/audio"
	"github.com/pokedexplorer/pokedex/internal/core/names"
)

// gatedFetcher holds every fetch until its name is released.
type gatedFetcher struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	calls  atomic.Int32
	result func(name string) (*core.Pokemon, error)
}

func newGatedFetcher(result func(string) (*core.Pokemon, error)) *gatedFetcher {
	return &gatedFetcher{gates: map[string]chan struct{}{}, result: result}
}

func (f *gatedFetcher) gate(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[name]
	if !ok {
		ch = make(chan struct{})
		f.gates[name] = ch
	}
	return ch
}

func (f *gatedFetcher) release(name string) {
	close(f.gate(name))
}

func (f *gatedFetcher) Fetch(ctx context.Context, name string) (*core.Pokemon, error) {
	f.calls.Add(1)
	select {
	case <-f.gate(name):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.result(name)
}

func found(name string) (*core.Pokemon, error) {
	return &core.Pokemon{Name: name, Cries: core.Cries{Latest: "https://cry.example/" + name + ".ogg"}}, nil
}

func TestSessionClearsSynchronouslyBeforeFetchSettles(t *testing.T) {
	fetcher := newGatedFetcher(found)
	s := NewSession(context.Background(), SessionConfig{Fetcher: fetcher})

	s.Submit("pikachu")
	fetcher.release("pikachu")
	s.Wait()
	require.Equal(t, "pikachu", s.State().Record.Name)

	st := s.Submit("bulbasaur")
	require.Equal(t, core.StatusLoading, st.Request.Status)
	require.Nil(t, st.Record)
	require.Empty(t, st.Request.Reason)

	fetcher.release("bulbasaur")
	s.Wait()
}

func TestSessionLatestSubmissionWins(t *testing.T) {
	for _, first := range []string{"a", "b"} {
		t.Run(first+" settles first", func(t *testing.T) {
			fetcher := newGatedFetcher(found)
			s := NewSession(context.Background(), SessionConfig{Fetcher: fetcher})

			s.Submit("a")
			s.Submit("b")
			if first == "a" {
				fetcher.release("a")
				require.Eventually(t, func() bool { return fetcher.calls.Load() == 2 }, time.Second, time.Millisecond)
				fetcher.release("b")
			} else {
				fetcher.release("b")
				require.Eventually(t, func() bool { return s.State().Request.Status == core.StatusSuccess }, time.Second, time.Millisecond)
				fetcher.release("a")
			}
			s.Wait()

			st := s.State()
			require.Equal(t, core.StatusSuccess, st.Request.Status)
			require.Equal(t, "b", st.Record.Name)
			require.Equal(t, "b", st.Committed)
		})
	}
}

func TestSessionEmptySubmitMakesNoFetch(t *testing.T) {
	fetcher := newGatedFetcher(found)
	s := NewSession(context.Background(), SessionConfig{Fetcher: fetcher})

	s.InputChange("   ")
	st := s.Submit("")
	s.Wait()

	require.Zero(t, fetcher.calls.Load())
	require.Equal(t, core.StatusFailed, st.Request.Status)
	require.Equal(t, core.FailureValidation, st.Request.Kind)
	require.Equal(t, core.MsgEmptyQuery, st.Request.Reason)
	require.Nil(t, st.Record)

	after := s.State()
	require.Equal(t, core.FailureValidation, after.Request.Kind)
	require.Zero(t, fetcher.calls.Load())
}

func TestSessionAgainstHTTPDetailSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pokemon/pikachu" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":25,"name":"pikachu","types":[{"slot":1,"type":{"name":"electric"}}]}`))
	}))
	defer server.Close()

	s := NewSession(context.Background(), SessionConfig{Fetcher: httpFetcher{base: server.URL, client: server.Client()}})

	s.Submit("pikachu")
	s.Wait()
	st := s.State()
	require.Equal(t, core.StatusSuccess, st.Request.Status)
	require.Equal(t, "pikachu", st.Record.Name)

	s.Submit("notapokemon123")
	s.Wait()
	st = s.State()
	require.Equal(t, core.StatusFailed, st.Request.Status)
	require.NotEmpty(t, st.Request.Reason)
	require.Nil(t, st.Record)
}

func TestSessionDoublePlayNeverOverlaps(t *testing.T) {
	gate := make(chan struct{})
	var opened atomic.Int32
	backend := &audio.MemoryBackend{Gate: func(string) <-chan struct{} {
		if opened.Add(1) == 1 {
			return gate
		}
		return nil
	}}
	player := audio.NewPlayer(backend, nil)

	fetcher := newGatedFetcher(found)
	s := NewSession(context.Background(), SessionConfig{Fetcher: fetcher, Player: player})
	s.Submit("pikachu")
	fetcher.release("pikachu")
	s.Wait()

	s.PlaySound()
	require.Eventually(t, func() bool { return len(backend.Handles()) == 1 }, time.Second, time.Millisecond)
	s.PlaySound()
	require.Eventually(t, func() bool { return len(backend.Handles()) == 2 }, time.Second, time.Millisecond)
	close(gate)
	s.Wait()

	handles := backend.Handles()
	require.True(t, handles[0].Released())
	require.Zero(t, handles[0].Plays())
	require.Equal(t, 1, handles[1].Plays())
	require.Equal(t, 1, backend.MaxActive())
}

func TestSessionSuccessResetsPlayback(t *testing.T) {
	backend := &audio.MemoryBackend{}
	player := audio.NewPlayer(backend, nil)
	fetcher := newGatedFetcher(found)
	s := NewSession(context.Background(), SessionConfig{Fetcher: fetcher, Player: player})

	s.Submit("pikachu")
	fetcher.release("pikachu")
	s.Wait()
	s.PlaySound()
	s.Wait()
	require.True(t, player.Active())

	s.Submit("raichu")
	fetcher.release("raichu")
	s.Wait()
	require.False(t, player.Active())
	require.Equal(t, 1, backend.Handles()[0].Rewinds())
}

func TestSessionLoadNamesFeedsSuggestions(t *testing.T) {
	var states atomic.Int32
	s := NewSession(context.Background(), SessionConfig{Observer: func(State) { states.Add(1) }})
	s.InputChange("pi")

	s.LoadNames(names.NewIndex(nil), staticNames{"pidgey", "pikachu", "raichu"})
	s.Wait()

	st := s.State()
	require.Equal(t, 3, st.IndexSize)
	require.Equal(t, []string{"pidgey", "pikachu"}, st.Suggestions)
	require.GreaterOrEqual(t, states.Load(), int32(2))
}

func TestSessionEnterPicksHighlighted(t *testing.T) {
	fetcher := newGatedFetcher(found)
	s := NewSession(context.Background(), SessionConfig{Fetcher: fetcher})
	s.Dispatch(func(c *Controller) []Command { return c.OnNamesLoaded([]string{"pidgey", "pikachu"}) })
	s.InputChange("pi")
	s.MoveHighlight(1)
	s.MoveHighlight(1)

	st := s.Enter()
	require.Equal(t, "pikachu", st.QueryText)
	require.Equal(t, "pikachu", st.Committed)

	fetcher.release("pikachu")
	s.Wait()
}

func TestSessionWithoutFetcherFails(t *testing.T) {
	s := NewSession(context.Background(), SessionConfig{})
	st := s.Submit("pikachu")
	require.Equal(t, core.StatusFailed, st.Request.Status)
	require.NotEmpty(t, st.Request.Reason)
}

type staticNames []string

func (s staticNames) FetchNames(context.Context) ([]string, error) { return s, nil }

type httpFetcher struct {
	base   string
	client *http.Client
}

func (f httpFetcher) Fetch(ctx context.Context, name string) (*core.Pokemon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/api/pokemon/"+name, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // test helper
	if resp.StatusCode != http.StatusOK {
		return nil, &core.FetchError{Kind: core.FailureNotFound, Name: name, Status: resp.StatusCode}
	}
	return &core.Pokemon{Name: name}, nil
}
