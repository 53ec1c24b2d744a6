package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// JSONFormatter renders records as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatPokemon renders the decoded record as JSON.
func (f *JSONFormatter) FormatPokemon(p *core.Pokemon) (string, error) {
	if p == nil {
		return "", nil
	}
	return f.marshal(p)
}

// FormatResults renders the batch as a JSON array.
func (f *JSONFormatter) FormatResults(results []Result) (string, error) {
	if results == nil {
		results = []Result{}
	}
	return f.marshal(results)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// YAMLFormatter renders records as YAML using the JSON field names.
type YAMLFormatter struct{}

// FormatPokemon renders the decoded record as YAML.
func (f *YAMLFormatter) FormatPokemon(p *core.Pokemon) (string, error) {
	if p == nil {
		return "", nil
	}
	return toYAML(p)
}

// FormatResults renders the batch as a YAML sequence.
func (f *YAMLFormatter) FormatResults(results []Result) (string, error) {
	return toYAML(results)
}

// toYAML goes through JSON so nested records keep their wire names.
func toYAML(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
