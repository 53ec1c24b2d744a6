package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// typeColors is the badge palette keyed by type name.
var typeColors = map[string]string{
	"normal":   "#A8A77A",
	"fire":     "#EE8130",
	"water":    "#6390F0",
	"electric": "#F7D02C",
	"grass":    "#7AC74C",
	"ice":      "#96D9D6",
	"fighting": "#C22E28",
	"poison":   "#A33EA1",
	"ground":   "#E2BF65",
	"flying":   "#A98FF3",
	"psychic":  "#F95587",
	"bug":      "#A6B91A",
	"rock":     "#B6A136",
	"ghost":    "#735797",
	"dragon":   "#6F35FC",
	"dark":     "#705746",
	"steel":    "#B7B7CE",
	"fairy":    "#D685AD",
}

const fallbackTypeColor = "#9CA3AF"

// TypeColor returns the badge color for a type name.
func TypeColor(typeName string) string {
	if c, ok := typeColors[strings.ToLower(typeName)]; ok {
		return c
	}
	return fallbackTypeColor
}

// Theme is the browser color scheme.
type Theme struct {
	Dark bool
}

func (t Theme) pick(light, dark string) lipgloss.Color {
	if t.Dark {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

// Text is the primary foreground color.
func (t Theme) Text() lipgloss.Color { return t.pick("#1F2937", "#F3F4F6") }

// Subtle is the secondary foreground color.
func (t Theme) Subtle() lipgloss.Color { return t.pick("#6B7280", "#9CA3AF") }

// Accent highlights the selection and headings.
func (t Theme) Accent() lipgloss.Color { return t.pick("#DC2626", "#F87171") }

// Border is the card frame color.
func (t Theme) Border() lipgloss.Color { return t.pick("#D1D5DB", "#4B5563") }

// Error colors the failure line.
func (t Theme) Error() lipgloss.Color { return t.pick("#B91C1C", "#FCA5A5") }

// CardOptions controls optional card sections.
type CardOptions struct {
	Width int
	// Sprite is a pre-rendered image block placed beside the header.
	Sprite string
	// SoundHint is shown when the record has a playable clip.
	SoundHint string
}

// Card renders a record as a framed lipgloss card.
func Card(p *core.Pokemon, theme Theme, opts CardOptions) string {
	if p == nil {
		return ""
	}
	width := opts.Width
	if width <= 0 {
		width = 60
	}

	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.Text())
	subtle := lipgloss.NewStyle().Foreground(theme.Subtle())
	section := lipgloss.NewStyle().Bold(true).Foreground(theme.Accent()).MarginTop(1)

	header := []string{
		heading.Render(DisplayName(p.Name)) + " " + subtle.Render(Number(p.ID)),
		TypeBadges(p.TypeNames()),
		subtle.Render(profileLine(p)),
	}
	if p.HasSound() && opts.SoundHint != "" {
		header = append(header, subtle.Render("🔊 "+opts.SoundHint))
	}
	top := lipgloss.JoinVertical(lipgloss.Left, header...)
	if opts.Sprite != "" {
		top = lipgloss.JoinHorizontal(lipgloss.Top, top, "  ", opts.Sprite)
	}

	body := []string{top}
	if abilities := Abilities(p); len(abilities) > 0 {
		body = append(body, section.Render("Abilities"), strings.Join(abilities, " · "))
	}
	if len(p.Stats) > 0 {
		body = append(body, section.Render("Base Stats"), statLines(p, theme))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border()).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

// TypeBadges renders each type as a colored badge.
func TypeBadges(types []string) string {
	badges := make([]string, 0, len(types))
	for _, name := range types {
		badges = append(badges, lipgloss.NewStyle().
			Background(lipgloss.Color(TypeColor(name))).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Render(name))
	}
	return strings.Join(badges, " ")
}

func statLines(p *core.Pokemon, theme Theme) string {
	label := lipgloss.NewStyle().Width(16).Foreground(theme.Text())
	bar := lipgloss.NewStyle().Foreground(theme.Accent())
	highest := p.MaxStat()

	lines := make([]string, 0, len(p.Stats))
	for _, s := range p.Stats {
		lines = append(lines, fmt.Sprintf("%s %3d %s",
			label.Render(s.Stat.Name),
			s.BaseStat,
			bar.Render(StatBar(s.BaseStat, highest, statBarWidth))))
	}
	return strings.Join(lines, "\n")
}
