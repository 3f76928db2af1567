package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farxc/accurate-sales-etl/internal/response"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

type GetIngestionHistoryResponse = response.APIResponse[[]store.IngestionHistory]

// @Summary		Get ingestion history
// @Description	Get a list of the latest stage records, newest first.
// @Tags			Ingestion
// @Produce		json
// @Param			limit	query		int							false	"Limit the number of results"	default(10)
// @Success		200		{object}	GetIngestionHistoryResponse	"Successfully retrieved latest ingestion records"
// @Failure		400		{object}	response.ErrorResponse		"Invalid limit"
// @Failure		500		{object}	response.ErrorResponse		"Failed to get ingestion history"
// @Router			/ingestion/history [get]
func (app *application) handleGetIngestionHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), 10, 500)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := app.store.IngestionHistory.GetLatest(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	response := &GetIngestionHistoryResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved latest ingestion records",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Get one run
// @Description	Get the stage records of a single run in execution order.
// @Tags			Ingestion
// @Produce		json
// @Param			runID	path		string						true	"Run id (uuid)"
// @Success		200		{object}	GetIngestionHistoryResponse	"Successfully retrieved the run"
// @Failure		400		{object}	response.ErrorResponse		"Invalid run id"
// @Failure		404		{object}	response.ErrorResponse		"Run not found"
// @Router			/ingestion/runs/{runID} [get]
func (app *application) handleGetIngestionRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	data, err := app.store.IngestionHistory.GetByRunID(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := &GetIngestionHistoryResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved the run",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
