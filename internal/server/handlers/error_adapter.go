package handlers

import (
	"net/http"

	apperrors "github.com/pokedexplorer/pokedex/internal/errors"
)

// errorResponder renders non-lookup failures. The server installs its
// central handler at startup.
var errorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the responder; nil restores the default.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	errorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}

// respondLookupError classifies a detail lookup failure for name so unknown
// species map to 404 and upstream trouble to 502.
func respondLookupError(w http.ResponseWriter, r *http.Request, name string, err error) {
	apperrors.RespondWithEnvelope(w, r, apperrors.FromLookup(r.Context(), name, err))
}
