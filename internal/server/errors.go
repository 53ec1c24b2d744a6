package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/pokedexplorer/pokedex/internal/errors"
	"github.com/pokedexplorer/pokedex/internal/observability"
)

// HandleError renders err as a JSON envelope. Requests whose client has
// already gone away get no body.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if r != nil && errors.Is(r.Context().Err(), context.Canceled) {
		observability.ServerLog().Debug("client disconnected before error response",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return
	}
	apperrors.RespondWithError(w, r, err)
}
