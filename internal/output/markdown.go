package output

import (
	"fmt"
	"strings"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// MarkdownFormatter renders records as markdown.
type MarkdownFormatter struct{}

// FormatPokemon renders a heading, a profile line and a stats table.
func (f *MarkdownFormatter) FormatPokemon(p *core.Pokemon) (string, error) {
	if p == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s %s\n\n", escapeMarkdownCell(DisplayName(p.Name)), Number(p.ID))
	fmt.Fprintf(&sb, "**Types**: %s\n\n", strings.Join(p.TypeNames(), ", "))
	sb.WriteString(profileLine(p) + "\n\n")
	if abilities := Abilities(p); len(abilities) > 0 {
		fmt.Fprintf(&sb, "**Abilities**: %s\n\n", strings.Join(abilities, ", "))
	}
	if img := p.ImageURL(); img != "" {
		fmt.Fprintf(&sb, "![%s](%s)\n\n", p.Name, img)
	}

	if len(p.Stats) > 0 {
		sb.WriteString("| Stat | Base |\n")
		sb.WriteString("|------|-----:|\n")
		for _, s := range p.Stats {
			fmt.Fprintf(&sb, "| %s | %d |\n", escapeMarkdownCell(s.Stat.Name), s.BaseStat)
		}
	}
	return sb.String(), nil
}

// FormatResults renders a batch as one markdown table.
func (f *MarkdownFormatter) FormatResults(results []Result) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Query | # | Name | Types | Status |\n")
	sb.WriteString("|-------|---|------|-------|--------|\n")

	found := 0
	for _, r := range results {
		if r.Pokemon == nil {
			fmt.Fprintf(&sb, "| %s | | | | %s |\n", escapeMarkdownCell(r.Query), escapeMarkdownCell(r.Error))
			continue
		}
		found++
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | found |\n",
			escapeMarkdownCell(r.Query),
			Number(r.Pokemon.ID),
			escapeMarkdownCell(DisplayName(r.Pokemon.Name)),
			escapeMarkdownCell(strings.Join(r.Pokemon.TypeNames(), ", ")),
		)
	}
	fmt.Fprintf(&sb, "\n**Found**: %s\n", summary(found, len(results)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}

func summary(found, total int) string {
	return fmt.Sprintf("%d/%d found", found, total)
}
