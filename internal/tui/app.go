// Package tui is the full-screen browser: a bubbletea program that forwards
// key presses to an engine.Session and redraws whenever the session state
// changes.
package tui

import (
	"context"
	"image"
	"net/http"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/core/names"
	"github.com/pokedexplorer/pokedex/internal/output"
)

const spriteWidth = 24

// Config wires the browser.
type Config struct {
	Fetcher  engine.Fetcher
	Player   engine.SoundPlayer
	Names    names.Source
	Logger   core.Logger
	DarkMode bool
	// Sprites enables still-image rendering. ImageClient fetches them.
	Sprites     bool
	ImageClient *http.Client
}

// stateChanged tells the program the session has a new state to render.
type stateChanged struct{}

type spriteLoaded struct {
	name   string
	sprite string
}

// App is the bubbletea model.
type App struct {
	ctx     context.Context
	session *engine.Session
	index   *names.Index
	source  names.Source
	updates chan struct{}
	logger  core.Logger

	sprites     bool
	imageClient *http.Client
	spriteCache map[string]string
	fetchImage  func(ctx context.Context, client *http.Client, url string) (image.Image, error)

	input   textinput.Model
	spinner spinner.Model
	state   engine.State
	width   int
}

// NewApp builds the model and its session. Background work stops when ctx
// is cancelled.
func NewApp(ctx context.Context, cfg Config) App {
	logger := cfg.Logger
	if logger == nil {
		logger = core.NopLogger()
	}
	updates := make(chan struct{}, 1)

	session := engine.NewSession(ctx, engine.SessionConfig{
		Fetcher: cfg.Fetcher,
		Player:  cfg.Player,
		Logger:  logger,
		Observer: func(engine.State) {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	})
	if cfg.DarkMode {
		session.ToggleTheme()
	}

	ti := textinput.New()
	ti.Placeholder = "Search Pokémon by name…"
	ti.Prompt = "› "
	ti.CharLimit = 64
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return App{
		ctx:         ctx,
		session:     session,
		index:       names.NewIndex(logger),
		source:      cfg.Names,
		updates:     updates,
		logger:      logger,
		sprites:     cfg.Sprites,
		imageClient: cfg.ImageClient,
		spriteCache: map[string]string{},
		fetchImage:  output.FetchImage,
		input:       ti,
		spinner:     s,
		state:       session.State(),
		width:       80,
	}
}

// Session exposes the session driving the app.
func (a App) Session() *engine.Session {
	return a.session
}

func (a App) Init() tea.Cmd {
	a.session.LoadNames(a.index, a.source)
	return tea.Batch(textinput.Blink, a.spinner.Tick, a.waitForChange())
}

func (a App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.updates:
			return stateChanged{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil
	case stateChanged:
		a = a.apply(a.session.State())
		return a, tea.Batch(a.waitForChange(), a.loadSprite())
	case spriteLoaded:
		a.spriteCache[msg.name] = msg.sprite
		return a, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "up":
		return a.apply(a.session.MoveHighlight(-1)), nil
	case "down":
		if !a.state.SuggestionsVisible {
			return a.apply(a.session.Focus()), nil
		}
		return a.apply(a.session.MoveHighlight(1)), nil
	case "tab":
		return a.apply(a.session.Focus()), nil
	case "esc":
		return a.apply(a.session.DismissSuggestions()), nil
	case "enter":
		return a.apply(a.session.Enter()), nil
	case "ctrl+r":
		return a.apply(a.session.RandomPick()), nil
	case "ctrl+p":
		if !a.state.CanPlaySound() {
			return a, nil
		}
		return a.apply(a.session.PlaySound()), nil
	case "ctrl+t":
		return a.apply(a.session.ToggleTheme()), nil
	}

	if i, ok := quickPickIndex(msg); ok {
		return a.apply(a.session.QuickPick(engine.QuickPicks[i])), nil
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if value := a.input.Value(); value != before {
		a = a.apply(a.session.InputChange(value))
	}
	return a, cmd
}

// quickPickIndex maps alt+1 … alt+6 onto the quick pick list.
func quickPickIndex(msg tea.KeyMsg) (int, bool) {
	if !msg.Alt || msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0, false
	}
	i := int(msg.Runes[0] - '1')
	if i < 0 || i >= len(engine.QuickPicks) {
		return 0, false
	}
	return i, true
}

// apply adopts state and keeps the text field in step with QueryText, which
// suggestion picks and random picks rewrite.
func (a App) apply(state engine.State) App {
	a.state = state
	if a.input.Value() != state.QueryText {
		a.input.SetValue(state.QueryText)
		a.input.CursorEnd()
	}
	return a
}

func (a App) loadSprite() tea.Cmd {
	rec := a.state.Record
	if !a.sprites || rec == nil || rec.ImageURL() == "" {
		return nil
	}
	if _, ok := a.spriteCache[rec.Name]; ok {
		return nil
	}

	ctx, client, fetch, logger := a.ctx, a.imageClient, a.fetchImage, a.logger
	name, url := rec.Name, rec.ImageURL()
	return func() tea.Msg {
		img, err := fetch(ctx, client, url)
		if err != nil {
			logger.Warn("sprite unavailable", zap.String("name", name), zap.Error(err))
			return spriteLoaded{name: name}
		}
		return spriteLoaded{name: name, sprite: output.Sprite(img, spriteWidth)}
	}
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := NewApp(ctx, cfg)
	_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	cancel()
	app.Session().Wait()
	return err
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	chipStyle  = lipgloss.NewStyle().Padding(0, 1)
)
