package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"sync"
	"time"
)

// DefaultCommand plays a file without a window and exits when done.
var DefaultCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}

// ExecBackend downloads clips to temporary files and plays them with an
// external command. The clip path is appended to Command.
type ExecBackend struct {
	Command []string
	Client  *http.Client
	TempDir string
}

// Open implements Backend. It fails fast when the player binary is missing.
func (b *ExecBackend) Open(url string) (Handle, error) {
	command := b.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	bin, err := exec.LookPath(command[0])
	if err != nil {
		return nil, fmt.Errorf("audio player %q not found: %w", command[0], err)
	}

	client := b.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &execHandle{
		url:     url,
		bin:     bin,
		args:    append([]string(nil), command[1:]...),
		client:  client,
		tempDir: b.TempDir,
	}, nil
}

type execHandle struct {
	url     string
	bin     string
	args    []string
	client  *http.Client
	tempDir string

	mu       sync.Mutex
	file     string
	cmd      *exec.Cmd
	done     chan struct{}
	released bool
}

// Ready downloads the clip once.
func (h *execHandle) Ready(ctx context.Context) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrReleased
	}
	if h.file != "" {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	file, err := h.download(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		_ = os.Remove(file)
		return ErrReleased
	}
	h.file = file
	return nil
}

func (h *execHandle) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download clip: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download clip: unexpected status %d", resp.StatusCode)
	}

	out, err := os.CreateTemp(h.tempDir, "pokedex-cry-*"+path.Ext(h.url))
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("write clip file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

// Play starts the external player from the beginning of the clip.
func (h *execHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	if h.file == "" {
		return fmt.Errorf("clip not loaded")
	}
	h.stopLocked()

	cmd := exec.Command(h.bin, append(h.args, h.file)...) // nolint:gosec // player binary comes from configuration
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start audio player: %w", err)
	}
	done := make(chan struct{})
	h.cmd = cmd
	h.done = done
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	return nil
}

func (h *execHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	return nil
}

// Rewind is implicit: every Play restarts the external player.
func (h *execHandle) Rewind() error {
	return nil
}

func (h *execHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	h.released = true
	if h.file != "" {
		err := os.Remove(h.file)
		h.file = ""
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (h *execHandle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *execHandle) stopLocked() {
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}
	select {
	case <-h.done:
	default:
		_ = h.cmd.Process.Kill()
		<-h.done
	}
	h.cmd = nil
	h.done = nil
}
