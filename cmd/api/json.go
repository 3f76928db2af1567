package main

import (
	"encoding/json"
	"net/http"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/response"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &response.ErrorResponse{Error: message})
}

// writeError picks the status from the error's mark and includes its hints.
func writeError(w http.ResponseWriter, err error) error {
	return writeJSON(w, ierr.HTTPStatusFromErr(err), &response.ErrorResponse{
		Error: err.Error(),
		Hints: ierr.Hints(err),
	})
}
