package main

import (
	"bytes"
	"context"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"google.golang.org/protobuf/proto"

	"nexttrain.transitnyc.org/internal/appconf"
	"nexttrain.transitnyc.org/internal/arrivals"
	"nexttrain.transitnyc.org/internal/modes"
)

// runWithServeFlags parses args against the global and serve flags and
// returns the assembled config.
func runWithServeFlags(t *testing.T, args ...string) (appconf.Config, error) {
	t.Helper()
	var (
		cfg     appconf.Config
		loadErr error
	)
	application := newCLI()
	application.Commands = []*cli.Command{{
		Name:  "serve",
		Flags: serveCommand().Flags,
		Action: func(c *cli.Context) error {
			cfg, loadErr = loadConfig(c)
			return nil
		},
	}}
	require.NoError(t, application.Run(append([]string{"nexttrain"}, args...)))
	return cfg, loadErr
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := runWithServeFlags(t, "serve")
	require.NoError(t, err)
	assert.Equal(t, appconf.DefaultPort, cfg.Port)
	assert.Equal(t, appconf.Development, cfg.Env)
	assert.Equal(t, appconf.DefaultRateLimit, cfg.RateLimit)
	assert.False(t, cfg.WarmOnStart)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 5000\nrateLimit: 20\nlogFormat: json\n"), 0o600))

	cfg, err := runWithServeFlags(t,
		"--config", path, "--log-level", "debug",
		"serve", "--port", "6000", "--env", "prod", "--api-keys", "a, b", "--warm")
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, appconf.Production, cfg.Env)
	assert.Equal(t, []string{"a", "b"}, cfg.ApiKeys)
	assert.True(t, cfg.WarmOnStart)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	_, err := runWithServeFlags(t, "--log-format", "xml", "serve")
	assert.ErrorContains(t, err, "LogFormat")

	_, err = runWithServeFlags(t, "serve", "--rate-limit", "-5")
	assert.ErrorContains(t, err, "RateLimit")
}

func TestPrintArrivals(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
			"L08,Bedford Av,40.717304,-73.956872,1,\nL08N,Bedford Av,40.717304,-73.956872,,L08\nL08S,Bedford Av,40.717304,-73.956872,,L08\n" +
			"L01,8 Av,40.739777,-74.002578,1,\nL01N,8 Av,40.739777,-74.002578,,L01\n",
		"routes.txt": "route_id,route_short_name,route_long_name,route_color,route_text_color\nL,L,14 St-Canarsie Local,A7A9AC,FFFFFF\n",
		"trips.txt":  "route_id,trip_id,service_id,trip_headsign,direction_id\nL,l1,Weekday,,0\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"l1,08:00:00,08:00:00,L08N,1\nl1,08:10:00,08:10:00,L01N,2\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	now := time.Now()
	feed, err := proto.Marshal(&gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfsrt.FeedEntity{{
			Id: proto.String("l1"),
			TripUpdate: &gtfsrt.TripUpdate{
				Trip: &gtfsrt.TripDescriptor{TripId: proto.String("l1"), RouteId: proto.String("L")},
				StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{
					{StopId: proto.String("L08N"), Arrival: &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(now.Add(4 * time.Minute).Unix())}},
					{StopId: proto.String("L01N"), Arrival: &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(now.Add(14 * time.Minute).Unix())}},
				},
			},
		}},
	})
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(feed)
	}))
	defer server.Close()

	cfg := appconf.Default()
	cfg.EnabledModes = []string{modes.Subway}
	cfg.Modes = map[string]modes.Profile{
		modes.Subway: {StaticSource: dir, FeedURLs: map[string]string{"L": server.URL}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	require.NoError(t, printArrivals(context.Background(), &out, cfg, logger, modes.Subway, "L08", arrivals.Options{}))

	var board map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &board))
	assert.Equal(t, "L08", board["stopId"])
	assert.Equal(t, true, board["liveDataAvailable"])
	groups := board["groups"].([]interface{})
	require.Len(t, groups, 2)
	uptown := groups[0].(map[string]interface{})["arrivals"].([]interface{})
	require.Len(t, uptown, 1)
	assert.Equal(t, "8 Av", uptown[0].(map[string]interface{})["destination"])

	err = printArrivals(context.Background(), &out, cfg, logger, modes.Subway, "Z99", arrivals.Options{})
	assert.ErrorContains(t, err, "not found")

	err = printArrivals(context.Background(), &out, cfg, logger, "ferry", "L08", arrivals.Options{})
	assert.ErrorIs(t, err, arrivals.ErrUnknownMode)
}
