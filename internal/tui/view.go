package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/output"
)

const (
	loadingText = "Catching Pokémon data…"
	playHint    = "ctrl+p to play sound"
)

func (a App) View() string {
	theme := output.Theme{Dark: a.state.DarkMode}
	subtle := lipgloss.NewStyle().Foreground(theme.Subtle())

	sections := []string{
		titleStyle.Foreground(theme.Accent()).Render("Pokédex Explorer"),
		a.input.View(),
	}
	if list := a.renderSuggestions(theme); list != "" {
		sections = append(sections, list)
	}
	sections = append(sections, a.renderQuickPicks(theme))

	switch a.state.Request.Status {
	case core.StatusLoading:
		sections = append(sections, fmt.Sprintf("%s %s", a.spinner.View(), subtle.Render(loadingText)))
	case core.StatusFailed:
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Error()).Render(a.state.Request.Reason))
	case core.StatusSuccess:
		if rec := a.state.Record; rec != nil {
			sections = append(sections, output.Card(rec, theme, output.CardOptions{
				Width:     min(max(a.width-2, 40), 90),
				Sprite:    a.spriteCache[rec.Name],
				SoundHint: playHint,
			}))
		}
	}

	help := "↑/↓ select • enter search • tab/esc show/hide • ctrl+r random • ctrl+t theme • ctrl+c quit"
	if a.state.IndexSize > 0 {
		help = fmt.Sprintf("%d names • %s", a.state.IndexSize, help)
	}
	sections = append(sections, subtle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (a App) renderSuggestions(theme output.Theme) string {
	if !a.state.SuggestionsVisible || len(a.state.Suggestions) == 0 {
		return ""
	}
	normal := lipgloss.NewStyle().Foreground(theme.Text()).PaddingLeft(2)
	selected := lipgloss.NewStyle().Foreground(theme.Accent()).Bold(true).PaddingLeft(2)

	lines := make([]string, 0, len(a.state.Suggestions))
	for i, name := range a.state.Suggestions {
		if i == a.state.Highlight {
			lines = append(lines, selected.Render("▸ "+name))
			continue
		}
		lines = append(lines, normal.Render("  "+name))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderQuickPicks(theme output.Theme) string {
	chips := make([]string, 0, len(engine.QuickPicks))
	for i, name := range engine.QuickPicks {
		chips = append(chips, chipStyle.Foreground(theme.Text()).Render(fmt.Sprintf("alt+%d %s", i+1, name)))
	}
	return lipgloss.NewStyle().Foreground(theme.Subtle()).Render("Try:") + " " + strings.Join(chips, "")
}
