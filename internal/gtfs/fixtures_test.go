package gtfs

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	gtfsrt "github.com/jamespfennell/gtfs/proto"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// scheduleFiles is a tiny subway schedule: the 1 train between South Ferry
// and 238 St, a shuttle trip with no stop times, and a stop time whose trip
// does not exist.
var scheduleFiles = map[string]string{
	"stops.txt": "\ufeffstop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
		"103,238 St,40.884667,-73.90087,1,\n" +
		"103N,238 St,40.884667,-73.90087,,103\n" +
		"103S,238 St,40.884667,-73.90087,,103\n" +
		"104,231 St,40.878856,-73.904834,1,\n" +
		"104N,231 St,40.878856,-73.904834,,104\n" +
		"104S,231 St,40.878856,-73.904834,,104\n" +
		"142,South Ferry,40.702068,-74.013664,1,\n" +
		"142N,South Ferry,40.702068,-74.013664,,142\n" +
		"142S,South Ferry,40.702068,-74.013664,,142\n",
	"routes.txt": "agency_id,route_id,route_short_name,route_long_name,route_type,route_color,route_text_color\n" +
		"MTA NYCT,1,1,\"Broadway - 7 Avenue Local\",1,EE352E,\n" +
		"MTA NYCT,GS,S,\"42 St Shuttle\",1,,\n",
	"trips.txt": "route_id,trip_id,service_id,trip_headsign,direction_id\n" +
		"1,t1,Weekday,,0\n" +
		"1,t2,Weekday,South Ferry,1\n" +
		"GS,gs1,Weekday,Grand Central,\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"t1,08:00:00,08:00:00,142N,1\n" +
		"t1,08:40:00,08:40:00,104N,2\n" +
		"t1,08:42:00,08:42:00,103N,3\n" +
		"t2,09:00:00,09:00:00,103S,1\n" +
		"t2,09:02:00,09:02:00,104S,2\n" +
		"t2,09:40:00,09:40:00,142S,3\n" +
		"ghost,10:00:00,10:00:00,999N,1\n",
}

func writeScheduleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

// zipSchedule archives the files one directory deep, the way some agencies
// publish them.
func zipSchedule(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create("google_transit/" + name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func stopUpdate(stopID string, arrival int64) *gtfsrt.TripUpdate_StopTimeUpdate {
	stu := &gtfsrt.TripUpdate_StopTimeUpdate{StopId: proto.String(stopID)}
	if arrival != 0 {
		stu.Arrival = &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(arrival)}
	}
	return stu
}

func tripEntity(id, tripID, routeID string, updates ...*gtfsrt.TripUpdate_StopTimeUpdate) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip: &gtfsrt.TripDescriptor{
				TripId:  proto.String(tripID),
				RouteId: proto.String(routeID),
			},
			StopTimeUpdate: updates,
		},
	}
}

func encodeFeed(t *testing.T, timestamp uint64, entities ...*gtfsrt.FeedEntity) []byte {
	t.Helper()
	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(timestamp),
		},
		Entity: entities,
	}
	b, err := proto.MarshalOptions{AllowPartial: true}.Marshal(msg)
	require.NoError(t, err)
	return b
}

// railroadBytes encodes the MTA railroad stop time extension the way the
// LIRR and Metro-North feeds carry it.
func railroadBytes(track, status string) []byte {
	var inner []byte
	if track != "" {
		inner = protowire.AppendTag(inner, mtaRailroadTrack, protowire.BytesType)
		inner = protowire.AppendString(inner, track)
	}
	if status != "" {
		inner = protowire.AppendTag(inner, mtaRailroadStatus, protowire.BytesType)
		inner = protowire.AppendString(inner, status)
	}
	b := protowire.AppendTag(nil, mtaRailroadExtension, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}
