package main

import (
	"net/http"

	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// @Summary		Health check
// @Description	returns the status of the service and whether a refresh token has been bootstrapped
// @Tags			Health
// @Produce		json
// @Success		200	{object}	map[string]string
// @Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	tokens := "ready"
	if _, err := app.credentials.Get(r.Context(), credentials.RefreshTokenKey); err != nil {
		tokens = "missing"
		if !ierr.IsNotFound(err) {
			tokens = "unavailable"
		}
	}

	data := map[string]string{
		"status":  "available",
		"version": "0.1.0",
		"tokens":  tokens,
	}

	if err := writeJSON(w, http.StatusOK, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
