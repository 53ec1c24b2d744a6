package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/appid"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		name := appid.BinaryName
		if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
			name = identity.BinaryName
		}

		fmt.Fprintf(w, "%s %s\n", name, versionInfo.Version) // nolint:errcheck
		if !extended {
			return nil
		}

		fmt.Fprintf(w, "Commit: %s\n", versionInfo.Commit)    // nolint:errcheck
		fmt.Fprintf(w, "Built: %s\n", versionInfo.BuildDate)  // nolint:errcheck
		fmt.Fprintf(w, "Go: %s\n\n", runtime.Version())       // nolint:errcheck

		version := crucible.GetVersion()
		fmt.Fprintf(w, "Gofulmen: %s\n", version.Gofulmen) // nolint:errcheck
		fmt.Fprintf(w, "Crucible: %s\n", version.Crucible) // nolint:errcheck
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
