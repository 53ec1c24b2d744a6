package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/pokedexplorer/pokedex/internal/appid"
	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/core/store"
)

// Build metadata, injected from main via SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"
	appIdentity  *appidentity.Identity
)

func SetVersionInfo(version, commit, buildDate string) {
	AppVersion, AppCommit, AppBuildDate = version, commit, buildDate
}

// SetAppIdentity overrides the embedded identity; nil restores it.
func SetAppIdentity(identity *appidentity.Identity) {
	appIdentity = identity
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Version     string `json:"version"`
		Commit      string `json:"git_commit"`
		BuildDate   string `json:"build_date"`
		GoVersion   string `json:"go_version"`
		Platform    string `json:"platform"`
	} `json:"app"`
	Proxy struct {
		Upstream      string `json:"upstream,omitempty"`
		CacheEnabled  bool   `json:"cache_enabled"`
		CacheTTL      string `json:"cache_ttl,omitempty"`
		SchemaVersion int    `json:"schema_version"`
	} `json:"proxy"`
	Dependencies struct {
		Gofulmen string `json:"gofulmen"`
		Crucible string `json:"crucible"`
	} `json:"dependencies"`
}

func buildVersionResponse(identity *appidentity.Identity, cfg *config.Config) VersionResponse {
	var resp VersionResponse
	if identity != nil {
		resp.App.Name = identity.BinaryName
		resp.App.Description = identity.Description
	}
	resp.App.Version = AppVersion
	resp.App.Commit = AppCommit
	resp.App.BuildDate = AppBuildDate
	resp.App.GoVersion = runtime.Version()
	resp.App.Platform = runtime.GOOS + "/" + runtime.GOARCH

	resp.Proxy.SchemaVersion = store.SchemaVersion()
	if cfg != nil {
		resp.Proxy.Upstream = cfg.Upstream.BaseURL + cfg.Upstream.PathPrefix
		resp.Proxy.CacheEnabled = cfg.Cache.Enabled
		if cfg.Cache.Enabled {
			resp.Proxy.CacheTTL = cfg.Cache.TTL.String()
		}
	}

	deps := crucible.GetVersion()
	resp.Dependencies.Gofulmen = deps.Gofulmen
	resp.Dependencies.Crucible = deps.Crucible
	return resp
}

// VersionHandler reports build metadata and the proxy's upstream and cache
// settings.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	identity := appIdentity
	if identity == nil {
		identity, _ = appid.Get(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(buildVersionResponse(identity, config.GetConfig()))
}
