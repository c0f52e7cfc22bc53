package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/models"
)

func (api *RestAPI) sendStatus(w http.ResponseWriter, r *http.Request, code int, text string) {
	setJSONResponseType(w)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(models.NewResponse(code, nil, text)); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode error response", err,
			slog.Int("status", code))
	}
}

// invalidAPIKeyResponse sends a 401 Unauthorized response with the required format
// for invalid API key errors
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendStatus(w, r, http.StatusUnauthorized, "permission denied")
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("path", r.URL.Path))
	api.sendStatus(w, r, http.StatusInternalServerError, "internal server error")
}

// datasetUnavailableResponse is sent when a mode's static schedule cannot be
// loaded. The next request retries the load.
func (api *RestAPI) datasetUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogWarning(logging.FromContext(r.Context()), "transit dataset unavailable", err,
		slog.String("path", r.URL.Path))
	w.Header().Set("Retry-After", "30")
	api.sendStatus(w, r, http.StatusServiceUnavailable, "transit dataset unavailable")
}

// requestCanceledResponse answers a request whose context ended before the
// static schedule finished loading. The load itself carries on for the next
// caller, so this is not reported as a dataset outage.
func (api *RestAPI) requestCanceledResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Info("request ended before schedule load",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	api.sendStatus(w, r, http.StatusGatewayTimeout, "request canceled")
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendStatus(w, r, http.StatusNotFound, "resource not found")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		Code        int                 `json:"code"`
		CurrentTime int64               `json:"currentTime"`
		Text        string              `json:"text"`
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		Code:        http.StatusBadRequest,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "invalid request",
		FieldErrors: fieldErrors,
	}

	setJSONResponseType(w)
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode validation error response", err)
	}
}
