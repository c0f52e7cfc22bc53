package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/models"
)

// sendResponse encodes before writing so an encoding failure can still
// become a 500.
func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	setJSONResponseType(w)
	if response.Code != 0 && response.Code != http.StatusOK {
		w.WriteHeader(response.Code)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to write response", err)
	}
}

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}
