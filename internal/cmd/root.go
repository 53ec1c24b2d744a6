package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/appid"
	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/server/handlers"
)

var (
	cfgFile string
	verbose bool

	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
// SetVersionInfo records build metadata for `version` and the proxy's
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

// GetAppIdentity returns the compiled-in app identity.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   appid.BinaryName,
	Short: appid.Description,
	Long: appid.BinaryName + ` - ` + appid.Description + `

Run "browse" for the interactive explorer, "lookup" for one-shot queries and
"serve" for the caching detail proxy the client talks to by default.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep telemetry quiet until serve installs the real system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil {
		appIdentity = identity
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is %s)", displayConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func displayConfigPath() string {
	if path := config.DefaultConfigPath(); path != "" {
		return path
	}
	return "$XDG_CONFIG_HOME/" + appid.ConfigName + "/config.yaml"
}

// initConfig reads the config file and environment into the global viper.
func initConfig() {
	observability.InitCLILogger(appid.BinaryName, verbose)

	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if path := config.DefaultConfigPath(); path != "" {
			v.AddConfigPath(strings.TrimSuffix(path, "config.yaml"))
		} else if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		} else {
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
		}
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// POKEDEX_SERVER_PORT → server.port; short aliases are handled in config.Load.
	v.SetEnvPrefix(strings.TrimSuffix(appid.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	} else {
		observability.CLILogger.Warn("Error reading config file", zap.Error(err))
	}
}

var errConfigLoad = errors.New("load config")

// loadConfig decodes the global viper state, with optional runtime overrides
// such as command-line flags.
func loadConfig(overrides ...map[string]any) (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), overrides...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfigLoad, err)
	}
	return cfg, nil
}
