package main

import "github.com/pokedexplorer/pokedex/internal/cmd"

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(); err != nil {
		// cobra already printed err; only the exit status is left to set.
		cmd.ExitWithCodeStderr(cmd.ExitCodeFor(err), "pokedex failed", err)
	}
}
