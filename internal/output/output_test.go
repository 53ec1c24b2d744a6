package output

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pokedexplorer/pokedex/internal/core"
)

func pikachu() *core.Pokemon {
	return &core.Pokemon{
		ID:             25,
		Name:           "pikachu",
		Height:         4,
		Weight:         60,
		BaseExperience: 112,
		Types:          []core.TypeSlot{{Slot: 1, Type: core.NamedResource{Name: "electric"}}},
		Abilities: []core.AbilitySlot{
			{Slot: 1, Ability: core.NamedResource{Name: "static"}},
			{Slot: 3, IsHidden: true, Ability: core.NamedResource{Name: "lightning-rod"}},
		},
		Stats: []core.StatEntry{
			{BaseStat: 35, Stat: core.NamedResource{Name: "hp"}},
			{BaseStat: 90, Stat: core.NamedResource{Name: "speed"}},
		},
		Cries: core.Cries{Latest: "https://example.test/25.ogg"},
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":         FormatTable,
		"table":    FormatTable,
		"JSON":     FormatJSON,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
		"yml":      FormatYAML,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("csv")
	require.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Pikachu", DisplayName("pikachu"))
	assert.Equal(t, "Mr Mime", DisplayName("mr-mime"))
	assert.Equal(t, "#025", Number(25))
	assert.Equal(t, "#1025", Number(1025))
}

func TestStatBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", StatBar(50, 100, 10))
	assert.Equal(t, "██████████", StatBar(200, 100, 10))
	assert.Equal(t, "██████████", StatBar(5, 0, 10))
	assert.Equal(t, "░░░░░░░░░░", StatBar(-3, 100, 10))
	assert.Empty(t, StatBar(10, 10, 0))
}

func TestTableFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatPokemon(pikachu())
	require.NoError(t, err)

	assert.Contains(t, rendered, "Pikachu #025")
	assert.Contains(t, rendered, "electric")
	assert.Contains(t, rendered, "lightning-rod (hidden)")
	assert.Contains(t, rendered, "speed")
	assert.Contains(t, rendered, strings.Repeat("█", statBarWidth))
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatPokemon(pikachu())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, "## Pikachu #025"))
	assert.Contains(t, rendered, "| hp | 35 |")
	assert.Contains(t, rendered, "Base XP: 112")
}

func TestStructuredFormatters(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatPokemon(pikachu())
	require.NoError(t, err)
	var decoded core.Pokemon
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, "pikachu", decoded.Name)

	rendered, err = NewFormatter(FormatYAML).FormatPokemon(pikachu())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &doc))
	assert.Equal(t, "pikachu", doc["name"])
	assert.Contains(t, rendered, "base_experience: 112")
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{Query: "pikachu", Pokemon: pikachu()},
		{Query: "notapokemon123", Error: core.MsgNotFound},
	}

	for _, format := range []Format{FormatTable, FormatMarkdown} {
		rendered, err := NewFormatter(format).FormatResults(results)
		require.NoError(t, err)
		assert.Contains(t, rendered, "notapokemon123")
		assert.Contains(t, rendered, "1/2 found")
		assert.NotContains(t, rendered, "FOUND", "%s footer must not be upper-cased", format)
	}

	rendered, err := NewFormatter(FormatJSON).FormatResults(results)
	require.NoError(t, err)
	var decoded []Result
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded, 2)
	assert.Nil(t, decoded[1].Pokemon)
	assert.Equal(t, core.MsgNotFound, decoded[1].Error)

	rendered, err = NewFormatter(FormatJSON).FormatResults(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", rendered)
}

func TestNilRecordRendersNothing(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatMarkdown, FormatYAML} {
		rendered, err := NewFormatter(format).FormatPokemon(nil)
		require.NoError(t, err)
		assert.Empty(t, rendered)
	}
	assert.Empty(t, Card(nil, Theme{}, CardOptions{}))
}

func TestCard(t *testing.T) {
	card := Card(pikachu(), Theme{Dark: true}, CardOptions{Width: 70, SoundHint: "ctrl+p to play"})

	assert.Contains(t, card, "Pikachu")
	assert.Contains(t, card, "#025")
	assert.Contains(t, card, "Base Stats")
	assert.Contains(t, card, "ctrl+p to play")

	silent := pikachu()
	silent.Cries = core.Cries{}
	assert.NotContains(t, Card(silent, Theme{}, CardOptions{SoundHint: "ctrl+p to play"}), "ctrl+p to play")
}

func TestTypeColor(t *testing.T) {
	assert.Equal(t, "#F7D02C", TypeColor("electric"))
	assert.Equal(t, "#F7D02C", TypeColor("Electric"))
	assert.Equal(t, fallbackTypeColor, TypeColor("shadow"))
}

func square(size int, fill color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			img.Set(x, y, fill)
		}
	}
	return img
}

func TestSprite(t *testing.T) {
	rendered := Sprite(square(8, color.NRGBA{R: 255, A: 255}), 4)
	lines := strings.Split(rendered, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, rendered, "▀")

	assert.Empty(t, Sprite(square(8, color.NRGBA{}), 4))
	assert.Empty(t, Sprite(nil, 4))
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/25.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, square(4, color.NRGBA{G: 200, A: 255}))
	}))
	t.Cleanup(srv.Close)

	img, err := FetchImage(context.Background(), srv.Client(), srv.URL+"/25.png")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = FetchImage(context.Background(), srv.Client(), srv.URL+"/missing.png")
	require.Error(t, err)
}
