package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"pikachu", "mr-mime", "porygon2", "ho-oh"} {
		assert.NoError(t, validateName(name), name)
	}
	for _, name := range []string{"", "-eevee", "eevee-", "Mr Mime", "farfetch'd", strings.Repeat("a", maxNameLength+1)} {
		assert.Error(t, validateName(name), name)
	}
}

func TestResolveNamesPositional(t *testing.T) {
	names, err := resolveNames([]string{" Pikachu ", "", "EEVEE"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pikachu", "eevee"}, names)

	_, err = resolveNames([]string{"  "}, "")
	assert.Error(t, err)

	_, err = resolveNames([]string{"mr mime"}, "")
	assert.Error(t, err)
}

func TestResolveNamesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.txt")
	require.NoError(t, os.WriteFile(path, []byte("# my team\nPikachu\n\n  snorlax  \n"), 0o644))

	names, err := resolveNames(nil, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pikachu", "snorlax"}, names)

	_, err = resolveNames([]string{"eevee"}, path)
	assert.Error(t, err, "positional names and --file are exclusive")
}

func TestParseNamesReportsLine(t *testing.T) {
	_, err := parseNames(strings.NewReader("pikachu\n\nnot valid!\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	_, err = parseNames(strings.NewReader("# only comments\n"))
	assert.Error(t, err)
}

func TestNameListDedupesAndSplitsCommas(t *testing.T) {
	names, err := parseNames(strings.NewReader("pikachu, eevee\nPIKACHU\nsnorlax,,\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pikachu", "eevee", "snorlax"}, names)

	names, err = resolveNames([]string{"bulbasaur,ivysaur", "Bulbasaur"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bulbasaur", "ivysaur"}, names)
}
