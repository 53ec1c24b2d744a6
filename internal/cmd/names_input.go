package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const maxNameLength = 64

var (
	validName = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

	errNoNames = errors.New("at least one name is required")
)

// validateName checks an already lower-cased name.
func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("name must be 1-%d characters", maxNameLength)
	}
	if !validName.MatchString(name) {
		return errors.New("name must be lowercase letters, digits and inner hyphens")
	}
	return nil
}

// nameList collects normalized names in first-seen order, dropping repeats.
type nameList struct {
	names []string
	seen  map[string]bool
}

// add splits field on commas and adds each non-empty part.
func (l *nameList) add(field string) error {
	for _, part := range strings.Split(field, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if err := validateName(name); err != nil {
			return fmt.Errorf("%q: %w", strings.TrimSpace(part), err)
		}
		if l.seen == nil {
			l.seen = map[string]bool{}
		}
		if !l.seen[name] {
			l.seen[name] = true
			l.names = append(l.names, name)
		}
	}
	return nil
}

func (l *nameList) result() ([]string, error) {
	if len(l.names) == 0 {
		return nil, errNoNames
	}
	return l.names, nil
}

// resolveNames takes names from the command line or from --file, never both.
func resolveNames(positional []string, namesFile string) ([]string, error) {
	if path := strings.TrimSpace(namesFile); path != "" {
		if len(positional) > 0 {
			return nil, errors.New("cannot combine positional names with --file")
		}
		return readNamesFile(path)
	}

	var list nameList
	for _, arg := range positional {
		if err := list.add(arg); err != nil {
			return nil, err
		}
	}
	return list.result()
}

// readNamesFile reads names from path; "-" reads stdin.
func readNamesFile(path string) ([]string, error) {
	if path == "-" {
		return parseNames(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() // nolint:errcheck
	return parseNames(file)
}

// parseNames reads one or more comma-separated names per line. Blank lines
// and # comments are skipped.
func parseNames(r io.Reader) ([]string, error) {
	var list nameList
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := list.add(text); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return list.result()
}
