// Package output renders detail records for the terminal: go-pretty tables,
// markdown, JSON and YAML for commands, and a lipgloss card for the browser.
package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// Result is one lookup outcome in a batch. Exactly one of Pokemon and Error
// is set.
type Result struct {
	Query   string        `json:"query" yaml:"query"`
	Pokemon *core.Pokemon `json:"pokemon,omitempty" yaml:"pokemon,omitempty"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Formatter renders records.
type Formatter interface {
	FormatPokemon(p *core.Pokemon) (string, error)
	FormatResults(results []Result) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

var titleCaser = cases.Title(language.English)

// DisplayName turns an identifier such as "mr-mime" into "Mr Mime".
func DisplayName(name string) string {
	return titleCaser.String(strings.ReplaceAll(strings.TrimSpace(name), "-", " "))
}

// Number renders a record id as #025.
func Number(id int) string {
	return fmt.Sprintf("#%03d", id)
}

// Abilities lists ability names, marking hidden ones.
func Abilities(p *core.Pokemon) []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Abilities))
	for _, a := range p.Abilities {
		label := a.Ability.Name
		if a.IsHidden {
			label += " (hidden)"
		}
		out = append(out, label)
	}
	return out
}

// StatBar draws value relative to highest using width cells.
func StatBar(value, highest, width int) string {
	if width <= 0 {
		return ""
	}
	if highest <= 0 {
		highest = 1
	}
	filled := value * width / highest
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func profileLine(p *core.Pokemon) string {
	return fmt.Sprintf("Height: %d • Weight: %d • Base XP: %d", p.Height, p.Weight, p.BaseExperience)
}
