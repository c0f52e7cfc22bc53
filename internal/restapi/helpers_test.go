package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gtfsrt "github.com/jamespfennell/gtfs/proto"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"nexttrain.transitnyc.org/internal/app"
	"nexttrain.transitnyc.org/internal/appconf"
	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/models"
	"nexttrain.transitnyc.org/internal/modes"
)

// subwaySchedule has the 1 and 2 through Times Sq, the 3 sharing the
// station with a feed that always fails, and the A alone at 42 St-Port
// Authority.
var subwaySchedule = map[string]string{
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
		"103,238 St,40.884667,-73.90087,1,\n103N,238 St,40.884667,-73.90087,,103\n103S,238 St,40.884667,-73.90087,,103\n" +
		"104,231 St,40.878856,-73.904834,1,\n104N,231 St,40.878856,-73.904834,,104\n104S,231 St,40.878856,-73.904834,,104\n" +
		"127,Times Sq-42 St,40.75529,-73.987495,1,\n127N,Times Sq-42 St,40.75529,-73.987495,,127\n127S,Times Sq-42 St,40.75529,-73.987495,,127\n" +
		"142,South Ferry,40.702068,-74.013664,1,\n142N,South Ferry,40.702068,-74.013664,,142\n142S,South Ferry,40.702068,-74.013664,,142\n" +
		"A27,42 St-Port Authority Bus Terminal,40.757308,-73.989735,1,\nA27N,42 St-Port Authority Bus Terminal,40.757308,-73.989735,,A27\n",
	"routes.txt": "route_id,route_short_name,route_long_name,route_color,route_text_color\n" +
		"1,1,Broadway - 7 Avenue Local,EE352E,\n" +
		"2,2,7 Avenue Express,EE352E,\n" +
		"3,3,7 Avenue Express,EE352E,\n" +
		"A,A,8 Avenue Express,0039A6,FFFFFF\n",
	"trips.txt": "route_id,trip_id,service_id,trip_headsign,direction_id\n" +
		"1,t1,Weekday,,0\n" +
		"2,t2,Weekday,,1\n" +
		"3,t3,Weekday,Harlem-148 St,0\n" +
		"A,a1,Weekday,Inwood-207 St,0\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"t1,08:00:00,08:00:00,142N,1\nt1,08:20:00,08:20:00,127N,2\nt1,08:40:00,08:40:00,104N,3\nt1,08:42:00,08:42:00,103N,4\n" +
		"t2,09:00:00,09:00:00,127S,1\nt2,09:10:00,09:10:00,142S,2\n" +
		"t3,09:00:00,09:00:00,127N,1\n" +
		"a1,09:00:00,09:00:00,A27N,1\n",
}

var lirrSchedule = map[string]string{
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
		"8,NY Penn,40.750046,-73.992358\n" +
		"237,Woodside,40.74585,-73.90297\n" +
		"132,Port Washington,40.829117,-73.687545\n",
	"routes.txt": "route_id,route_short_name,route_long_name,route_color,route_text_color\n" +
		"9,,Port Washington Branch,00985F,\n",
	"trips.txt": "route_id,trip_id,service_id,trip_headsign,direction_id\n" +
		"9,pw1,Weekday,,1\n" +
		"9,pw2,Weekday,Port Washington,0\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"pw1,08:00:00,08:00:00,132,1\npw1,08:40:00,08:40:00,237,2\npw1,08:55:00,08:55:00,8,3\n" +
		"pw2,09:00:00,09:00:00,8,1\npw2,09:15:00,09:15:00,237,2\npw2,09:50:00,09:50:00,132,3\n",
}

func writeScheduleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func stopUpdate(stopID string, at time.Time) *gtfsrt.TripUpdate_StopTimeUpdate {
	return &gtfsrt.TripUpdate_StopTimeUpdate{
		StopId:  proto.String(stopID),
		Arrival: &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(at.Unix())},
	}
}

func tripEntity(tripID, routeID string, updates ...*gtfsrt.TripUpdate_StopTimeUpdate) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(tripID),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip: &gtfsrt.TripDescriptor{
				TripId:  proto.String(tripID),
				RouteId: proto.String(routeID),
			},
			StopTimeUpdate: updates,
		},
	}
}

func encodeFeed(t *testing.T, now time.Time, entities ...*gtfsrt.FeedEntity) []byte {
	t.Helper()
	b, err := proto.Marshal(&gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: entities,
	})
	require.NoError(t, err)
	return b
}

// newFeedServer serves the subway feed at /nyct, the railroad feed at /lirr
// and a 503 at /broken. Arrival times are relative to the real clock since
// the engine under test uses it.
func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now()

	subway := encodeFeed(t, now,
		tripEntity("t1", "1",
			stopUpdate("127N", now.Add(150*time.Second)),
			stopUpdate("104N", now.Add(5*time.Minute)),
			stopUpdate("103N", now.Add(7*time.Minute))),
		tripEntity("t2", "2",
			stopUpdate("127S", now.Add(200*time.Second)),
			stopUpdate("142S", now.Add(10*time.Minute))),
	)
	lirr := encodeFeed(t, now,
		tripEntity("pw1", "9",
			stopUpdate("237", now.Add(4*time.Minute)),
			stopUpdate("8", now.Add(15*time.Minute))),
		tripEntity("pw2", "9",
			stopUpdate("237", now.Add(-2*time.Minute)),
			stopUpdate("132", now.Add(30*time.Minute))),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/nyct", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(subway) })
	mux.HandleFunc("/lirr", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(lirr) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, feeds *httptest.Server) appconf.Config {
	t.Helper()
	cfg := appconf.Default()
	cfg.Env = appconf.EnvFlagToEnvironment("test")
	cfg.ApiKeys = []string{"TEST"}
	cfg.RateLimit = -1
	cfg.EnabledModes = []string{modes.Subway, modes.LIRR, modes.MetroNorth}
	cfg.Modes = map[string]modes.Profile{
		modes.Subway: {
			StaticSource: writeScheduleDir(t, subwaySchedule),
			FeedURLs: map[string]string{
				"1": feeds.URL + "/nyct",
				"2": feeds.URL + "/nyct",
				"3": feeds.URL + "/broken",
				"A": feeds.URL + "/broken",
			},
		},
		modes.LIRR: {
			StaticSource:   writeScheduleDir(t, lirrSchedule),
			DefaultFeedURL: feeds.URL + "/lirr",
		},
		// An empty directory: every load fails.
		modes.MetroNorth: {StaticSource: t.TempDir()},
	}
	return cfg
}

// createTestApi creates a RestAPI wired to fixture schedules and the given
// feed server.
func createTestApi(t *testing.T, cfg appconf.Config) *RestAPI {
	t.Helper()
	application, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func newTestServer(t *testing.T) (*RestAPI, *httptest.Server) {
	t.Helper()
	api := createTestApi(t, testConfig(t, newFeedServer(t)))
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return api, server
}

// getJSON requests endpoint and decodes the body into a generic map.
func getJSON(t *testing.T, server *httptest.Server, endpoint string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func getModel(t *testing.T, server *httptest.Server, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

func dataOf(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "response data should be an object")
	return data
}
