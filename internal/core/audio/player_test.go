package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/core"
)

func withCry(name, url string) *core.Pokemon {
	return &core.Pokemon{Name: name, Cries: core.Cries{Latest: url}}
}

func TestPlayLatestNoSoundIsNoop(t *testing.T) {
	backend := &MemoryBackend{}
	player := NewPlayer(backend, nil)

	player.PlayLatest(context.Background(), &core.Pokemon{Name: "missingno"})
	player.PlayLatest(context.Background(), nil)

	require.Empty(t, backend.Handles())
	require.False(t, player.Active())
}

func TestPlayLatestReplacesPreviousHandle(t *testing.T) {
	backend := &MemoryBackend{}
	player := NewPlayer(backend, nil)

	player.PlayLatest(context.Background(), withCry("pikachu", "a.ogg"))
	player.PlayLatest(context.Background(), withCry("pikachu", "a.ogg"))

	handles := backend.Handles()
	require.Len(t, handles, 2)
	require.True(t, handles[0].Released())
	require.GreaterOrEqual(t, handles[0].Stops(), 1)
	require.GreaterOrEqual(t, handles[0].Rewinds(), 1)
	require.True(t, handles[1].Active())
	require.Equal(t, 1, backend.ActiveCount())
	require.Equal(t, 1, backend.MaxActive())
}

func TestPlayLatestSupersededBeforeReady(t *testing.T) {
	gates := map[string]chan struct{}{
		"slow.ogg": make(chan struct{}),
	}
	backend := &MemoryBackend{Gate: func(url string) <-chan struct{} {
		if ch, ok := gates[url]; ok {
			return ch
		}
		return nil
	}}
	player := NewPlayer(backend, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		player.PlayLatest(context.Background(), withCry("snorlax", "slow.ogg"))
	}()

	require.Eventually(t, func() bool { return len(backend.Handles()) == 1 }, time.Second, time.Millisecond)

	player.PlayLatest(context.Background(), withCry("mewtwo", "fast.ogg"))
	close(gates["slow.ogg"])
	wg.Wait()

	handles := backend.Handles()
	require.Len(t, handles, 2)
	require.Zero(t, handles[0].Plays())
	require.Equal(t, 1, handles[1].Plays())
	require.Equal(t, 1, backend.MaxActive())
}

func TestConcurrentPlayNeverOverlaps(t *testing.T) {
	backend := &MemoryBackend{}
	player := NewPlayer(backend, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			player.PlayLatest(context.Background(), withCry("pikachu", "cry.ogg"))
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, backend.MaxActive(), 1)
	require.Equal(t, 1, backend.ActiveCount())
}

func TestPlayLatestOpenFailureIsSilent(t *testing.T) {
	backend := &MemoryBackend{OpenErr: errors.New("no device")}
	player := NewPlayer(backend, nil)

	require.NotPanics(t, func() {
		player.PlayLatest(context.Background(), withCry("pikachu", "cry.ogg"))
	})
	require.False(t, player.Active())
}

func TestPlayLatestReadyFailureReleasesHandle(t *testing.T) {
	never := make(chan struct{})
	backend := &MemoryBackend{Gate: func(string) <-chan struct{} { return never }}
	player := NewPlayer(backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	player.PlayLatest(ctx, withCry("pikachu", "cry.ogg"))

	handles := backend.Handles()
	require.Len(t, handles, 1)
	require.True(t, handles[0].Released())
	require.False(t, player.Active())
}

func TestResetStopsAndRewinds(t *testing.T) {
	backend := &MemoryBackend{}
	player := NewPlayer(backend, nil)
	player.PlayLatest(context.Background(), withCry("pikachu", "cry.ogg"))

	player.Reset()

	h := backend.Handles()[0]
	require.False(t, h.Active())
	require.Equal(t, 1, h.Rewinds())
	require.False(t, h.Released())

	player.Close()
	require.True(t, h.Released())
}

func TestExecBackendMissingBinary(t *testing.T) {
	backend := &ExecBackend{Command: []string{"pokedex-no-such-player-binary"}}
	_, err := backend.Open("https://cry.example/25.ogg")
	require.Error(t, err)
}

func TestExecHandleDownloadsAndReleases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OggS"))
	}))
	defer server.Close()

	dir := t.TempDir()
	h := &execHandle{url: server.URL + "/25.ogg", bin: "true", client: server.Client(), tempDir: dir}

	require.NoError(t, h.Ready(context.Background()))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ".ogg", filepath.Ext(entries[0].Name()))

	require.NoError(t, h.Release())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.ErrorIs(t, h.Ready(context.Background()), ErrReleased)
}
