// Package appid carries the application identity shared by the CLI, config
// loader and HTTP handlers.
package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName  = "pokedex"
	ConfigName  = "pokedex"
	EnvPrefix   = "POKEDEX_"
	Vendor      = "pokedexplorer"
	Description = "Look up creatures by name, browse suggestions and play their cries"
)

// Get returns the compiled-in identity. The context is accepted for parity
// with identity sources that read from disk.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	_ = ctx
	return &appidentity.Identity{
		Vendor:      Vendor,
		BinaryName:  BinaryName,
		ConfigName:  ConfigName,
		EnvPrefix:   EnvPrefix,
		Description: Description,
	}, nil
}
