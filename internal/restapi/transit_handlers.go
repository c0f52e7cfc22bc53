package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"nexttrain.transitnyc.org/internal/arrivals"
	"nexttrain.transitnyc.org/internal/models"
	"nexttrain.transitnyc.org/internal/modes"
	"nexttrain.transitnyc.org/internal/utils"
)

// modeParam validates the :mode path parameter against the configured
// profiles, writing a 400 when it fails.
func (api *RestAPI) modeParam(w http.ResponseWriter, r *http.Request) (*modes.Profile, bool) {
	mode := utils.ExtractIDFromParams(r, "mode")
	if err := utils.ValidateID(mode); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"mode": {err.Error()}})
		return nil, false
	}
	profile, ok := api.Engine.Profile(mode)
	if !ok {
		api.validationErrorResponse(w, r, map[string][]string{
			"mode": {fmt.Sprintf("unknown transit mode %q", mode)},
		})
		return nil, false
	}
	return profile, true
}

func (api *RestAPI) engineErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.requestCanceledResponse(w, r, err)
	case errors.Is(err, arrivals.ErrDatasetUnavailable):
		api.datasetUnavailableResponse(w, r, err)
	case errors.Is(err, arrivals.ErrUnknownMode):
		api.validationErrorResponse(w, r, map[string][]string{"mode": {err.Error()}})
	default:
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) modesHandler(w http.ResponseWriter, r *http.Request) {
	keys := api.Engine.Modes()
	list := make([]models.Mode, 0, len(keys))
	for _, key := range keys {
		profile, _ := api.Engine.Profile(key)
		list = append(list, models.NewMode(profile))
	}
	api.sendResponse(w, r, models.NewListResponse(list, models.NewEmptyReferences()))
}

func (api *RestAPI) modeHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := api.modeParam(w, r)
	if !ok {
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(models.NewMode(profile), models.NewEmptyReferences()))
}

func (api *RestAPI) stopsForRouteHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := api.modeParam(w, r)
	if !ok {
		return
	}
	routeID := utils.ExtractIDFromParams(r, "routeId")
	if fieldErrors := utils.ValidateIDs(map[string]string{"routeId": routeID}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	ctx := r.Context()
	stops, err := api.Engine.StopsForRoute(ctx, profile.Key, routeID)
	if err != nil {
		api.engineErrorResponse(w, r, err)
		return
	}
	dataset, err := api.Engine.Dataset(ctx, profile.Key)
	if err != nil {
		api.engineErrorResponse(w, r, err)
		return
	}

	references := models.NewEmptyReferences()
	if _, known := dataset.Route(routeID); known {
		references.Routes = models.NewRoutes(dataset, []string{routeID})
	}
	api.sendResponse(w, r, models.NewListResponse(models.NewStops(stops), references))
}

func (api *RestAPI) routesForStopHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := api.modeParam(w, r)
	if !ok {
		return
	}
	stopID := utils.ExtractIDFromParams(r, "stopId")
	if fieldErrors := utils.ValidateIDs(map[string]string{"stopId": stopID}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	ctx := r.Context()
	routeIDs, err := api.Engine.RoutesForStop(ctx, profile.Key, stopID)
	if err != nil {
		api.engineErrorResponse(w, r, err)
		return
	}
	dataset, err := api.Engine.Dataset(ctx, profile.Key)
	if err != nil {
		api.engineErrorResponse(w, r, err)
		return
	}

	references := models.NewEmptyReferences()
	if stop, known := dataset.Stop(stopID); known {
		references.Stops = []models.Stop{models.NewStop(stop)}
	}
	api.sendResponse(w, r, models.NewListResponse(models.NewRoutes(dataset, routeIDs), references))
}

const maxArrivalsLimit = 50

func (api *RestAPI) arrivalsHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := api.modeParam(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	stopID := utils.ExtractIDFromParams(r, "stopId")
	routeID := query.Get("route")

	fieldErrors := utils.ValidateIDs(map[string]string{"stopId": stopID, "route": routeID}, "route")
	includeDeparted, fieldErrors := utils.ParseBoolParam(query, "includeDeparted", fieldErrors)
	limit, fieldErrors := utils.ParseIntParam(query, "limit", 1, maxArrivalsLimit, fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	ctx := r.Context()
	board, err := api.Engine.Arrivals(ctx, profile.Key, stopID, arrivals.Options{
		RouteID:         routeID,
		IncludeDeparted: includeDeparted,
		Limit:           limit,
	})
	if board == nil {
		api.engineErrorResponse(w, r, err)
		return
	}
	if err != nil && !errors.Is(err, arrivals.ErrFeedUnavailable) {
		api.serverErrorResponse(w, r, err)
		return
	}
	if board.Stop == nil {
		api.sendNotFound(w, r)
		return
	}

	dataset, dsErr := api.Engine.Dataset(ctx, profile.Key)
	if dsErr != nil {
		api.engineErrorResponse(w, r, dsErr)
		return
	}
	references := models.NewEmptyReferences()
	references.Routes = models.NewRoutes(dataset, board.RouteIDs)
	references.Stops = []models.Stop{models.NewStop(*board.Stop)}

	api.sendResponse(w, r, models.NewEntryResponse(models.NewBoard(board, err), references))
}
