package restapi

import (
	"net/http"

	"nexttrain.transitnyc.org/internal/models"
)

type healthStatus struct {
	Status      string   `json:"status"`
	Environment string   `json:"environment"`
	Modes       []string `json:"modes"`
	LoadedModes []string `json:"loadedModes"`
}

// healthHandler reports liveness. Modes whose schedule has not loaded yet
// are listed but do not fail the check, since loading is lazy.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:      "ok",
		Environment: string(api.Config.Env),
		Modes:       api.Engine.Modes(),
		LoadedModes: []string{},
	}
	if api.GtfsManager != nil {
		status.LoadedModes = api.GtfsManager.LoadedModes()
	}
	api.sendResponse(w, r, models.NewOKResponse(status))
}
