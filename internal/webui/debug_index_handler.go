// Package webui serves a plain HTML dump of the loaded schedules and live
// feeds for debugging. It is not mounted in production.
package webui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/julienschmidt/httprouter"

	"nexttrain.transitnyc.org/internal/app"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Modes []string
	Pre   string
}

type WebUI struct {
	*app.Application
}

func New(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

func (webUI *WebUI) SetRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/debug/", webUI.debugIndexHandler)
}

func (webUI *WebUI) writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Modes: webUI.Engine.Modes(),
		Pre:   spew.Sdump(data),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("mode")
	dataType := query.Get("dataType")

	profile, ok := webUI.Engine.Profile(mode)
	if !ok {
		webUI.writeDebugData(w, "Choose a mode", map[string]interface{}{"modes": webUI.Engine.Modes()})
		return
	}

	ctx := r.Context()
	dataset, err := webUI.Engine.Dataset(ctx, mode)
	if err != nil {
		webUI.writeDebugData(w, "Schedule unavailable", err.Error())
		return
	}

	var data interface{}
	var title string

	switch dataType {
	case "stops":
		data = dataset.Stops
		title = fmt.Sprintf("%s static - Stops", profile.Name)
	case "routes":
		data = dataset.Routes
		title = fmt.Sprintf("%s static - Routes", profile.Name)
	case "trips":
		data = dataset.Trips
		title = fmt.Sprintf("%s static - Trips", profile.Name)
	case "index":
		index := make(map[string][]string, len(dataset.Routes))
		for routeID := range dataset.Routes {
			stops, err := webUI.Engine.StopsForRoute(ctx, mode, routeID)
			if err != nil {
				continue
			}
			ids := make([]string, 0, len(stops))
			for _, s := range stops {
				ids = append(ids, s.ID)
			}
			index[routeID] = ids
		}
		data = index
		title = fmt.Sprintf("%s - Stops by route", profile.Name)
	case "feed":
		routeID := query.Get("route")
		url, ok := profile.FeedURL(routeID)
		if !ok {
			data = map[string]string{"error": fmt.Sprintf("no live feed for route %q", routeID)}
			title = "Live feed"
			break
		}
		feed, err := webUI.GtfsManager.Feed(ctx, url)
		if err != nil {
			data = map[string]string{"error": err.Error()}
		} else {
			data = feed
		}
		title = fmt.Sprintf("%s realtime - %s", profile.Name, url)
	default:
		data = map[string]string{
			"error": "Please use one of the following: stops, routes, trips, index, feed.",
		}
		title = "Choose a data type"
	}

	webUI.writeDebugData(w, title, data)
}
