package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/output"
)

// outputTarget is where a command's rendered output goes: stdout, a single
// file, or one file per item inside a directory.
type outputTarget struct {
	File string
	Dir  string
}

func addOutputTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", "", "Write output to this file instead of stdout")
	cmd.Flags().String("out-dir", "", "Write output into this directory")
}

func readOutputTarget(cmd *cobra.Command) (outputTarget, error) {
	file, err := cmd.Flags().GetString("out")
	if err != nil {
		return outputTarget{}, err
	}
	dir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return outputTarget{}, err
	}
	target := outputTarget{File: strings.TrimSpace(file), Dir: strings.TrimSpace(dir)}
	if target.File != "" && target.Dir != "" {
		return outputTarget{}, fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return target, nil
}

// path resolves where stem should be written; "" means stdout.
func (t outputTarget) path(stem string, format output.Format) string {
	switch {
	case t.File != "" && t.File != "-":
		return t.File
	case t.Dir != "":
		return filepath.Join(t.Dir, sanitizeFilename(stem)+"."+outputExtension(format))
	}
	return ""
}

// sink is an open output destination. Closing a stdout sink is a no-op.
type sink struct {
	io.Writer
	file *os.File
}

func (s *sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Path is the file being written, or "" for stdout.
func (s *sink) Path() string {
	if s.file == nil {
		return ""
	}
	return s.file.Name()
}

func (t outputTarget) open(stdout io.Writer, stem string, format output.Format) (*sink, error) {
	path := t.path(stem, format)
	if path == "" {
		return &sink{Writer: stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &sink{Writer: file, file: file}, nil
}

// write renders body to the target and returns the file written, if any.
func (t outputTarget) write(stdout io.Writer, stem string, format output.Format, body string) (string, error) {
	s, err := t.open(stdout, stem, format)
	if err != nil {
		return "", err
	}
	_, werr := fmt.Fprintln(s, body)
	cerr := s.Close()
	if werr != nil {
		return "", werr
	}
	return s.Path(), cerr
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatYAML:
		return "yaml"
	case output.FormatMarkdown:
		return "md"
	}
	return "txt"
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns a species name into a safe file stem.
func sanitizeFilename(value string) string {
	clean := unsafeFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}
