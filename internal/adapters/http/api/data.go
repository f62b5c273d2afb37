// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/app1/pkg/logger"
	"github.com/okian/app1/pkg/metrics"
)

// allowedDataMethods is advertised on 405 responses.
var allowedDataMethods = strings.Join([]string{http.MethodGet, http.MethodHead, http.MethodPost}, ", ")

// DataHandler serves the data resource.
type DataHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(deps Dependencies) *DataHandler {
	return &DataHandler{deps: deps, logger: logger.Nop()}
}

// HandleGetData handles GET <base>/data. Query parameters and bodies are ignored.
func (h *DataHandler) HandleGetData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Fetch(r.Context()))
}

// HandlePostData handles POST <base>/data, echoing all request input.
func (h *DataHandler) HandlePostData(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_data"
	input, size, err := readInput(w, r, h.maxBodyBytes)
	if err != nil {
		h.logger.Warn(r.Context(), "rejected request body", logger.Error(err), logger.Int64("bytes", size))
		if errors.Is(err, ErrPayloadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", Wrap(op, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	metrics.RecordReceivedPayload(len(input), size)
	writeJSON(w, http.StatusCreated, h.deps.Receive(r.Context(), input))
}

// HandleMethodNotAllowed answers any other method on the data resource.
func (h *DataHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", allowedDataMethods)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind("api.data", ErrMethodNotAllowed))
}
