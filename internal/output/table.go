package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pokedexplorer/pokedex/internal/core"
)

const statBarWidth = 20

// TableFormatter renders records as rounded ASCII tables.
type TableFormatter struct{}

// FormatPokemon renders the profile followed by the base stats.
func (f *TableFormatter) FormatPokemon(p *core.Pokemon) (string, error) {
	if p == nil {
		return "", nil
	}

	profile := table.NewWriter()
	profile.SetStyle(table.StyleRounded)
	profile.SetTitle("%s %s", DisplayName(p.Name), Number(p.ID))
	profile.AppendRows([]table.Row{
		{"Types", strings.Join(p.TypeNames(), ", ")},
		{"Height", p.Height},
		{"Weight", p.Weight},
		{"Base XP", p.BaseExperience},
		{"Abilities", strings.Join(Abilities(p), ", ")},
	})
	if p.HasSound() {
		profile.AppendRow(table.Row{"Cry", p.SoundURL()})
	}

	stats := table.NewWriter()
	stats.SetStyle(table.StyleRounded)
	stats.AppendHeader(table.Row{"Stat", "Base", ""})
	stats.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	highest := p.MaxStat()
	for _, s := range p.Stats {
		stats.AppendRow(table.Row{s.Stat.Name, s.BaseStat, StatBar(s.BaseStat, highest, statBarWidth)})
	}

	return profile.Render() + "\n" + stats.Render(), nil
}

// FormatResults renders one row per lookup.
func (f *TableFormatter) FormatResults(results []Result) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// Keep the summary in the same case as the markdown and JSON renderings.
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Query", "#", "Name", "Types", "Status"})

	found := 0
	for _, r := range results {
		if r.Pokemon == nil {
			t.AppendRow(table.Row{r.Query, "", "", "", r.Error})
			continue
		}
		found++
		t.AppendRow(table.Row{
			r.Query,
			Number(r.Pokemon.ID),
			DisplayName(r.Pokemon.Name),
			strings.Join(r.Pokemon.TypeNames(), ", "),
			"found",
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", summary(found, len(results))})
	return t.Render(), nil
}
