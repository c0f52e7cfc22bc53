package gtfs

import (
	"fmt"
	"math"

	gtfsrt "github.com/jamespfennell/gtfs/proto"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// mtaRailroadExtension is the StopTimeUpdate extension field carried by the
// LIRR and Metro-North feeds. It holds track (1) and trainStatus (2).
const (
	mtaRailroadExtension protowire.Number = 1005
	mtaRailroadTrack     protowire.Number = 1
	mtaRailroadStatus    protowire.Number = 2
)

// Feed is a decoded live feed.
type Feed struct {
	Timestamp   int64
	TripUpdates []TripUpdate
}

// TripUpdate is the live prediction for one trip.
type TripUpdate struct {
	TripID          string
	RouteID         string
	DirectionID     DirectionID
	Headsign        string
	Canceled        bool
	StopTimeUpdates []StopTimeUpdate
}

// StopTimeUpdate is one stop of a live trip. Entries without a predicted
// time are kept so the trip's last stop stays known; HasTime tells them
// apart.
type StopTimeUpdate struct {
	StopID      string
	Sequence    uint32
	HasSequence bool
	// Position is the entry's index in the feed's own list.
	Position  int
	Arrival   int64
	Departure int64
	Track     string
	Status    string
}

// HasTime reports whether the feed predicted an arrival or a departure.
func (u StopTimeUpdate) HasTime() bool {
	return u.Arrival != 0 || u.Departure != 0
}

// ArrivalTime is the predicted arrival, falling back to departure.
func (u StopTimeUpdate) ArrivalTime() int64 {
	if u.Arrival != 0 {
		return u.Arrival
	}
	return u.Departure
}

// DepartureTime is the predicted departure, falling back to arrival.
func (u StopTimeUpdate) DepartureTime() int64 {
	if u.Departure != 0 {
		return u.Departure
	}
	return u.Arrival
}

// LastStop returns the update the trip reaches last: the highest sequence
// number, with feed position breaking ties and standing in when sequences
// are absent.
func (t TripUpdate) LastStop() (StopTimeUpdate, bool) {
	if len(t.StopTimeUpdates) == 0 {
		return StopTimeUpdate{}, false
	}
	last := t.StopTimeUpdates[0]
	for _, u := range t.StopTimeUpdates[1:] {
		if laterThan(u, last) {
			last = u
		}
	}
	return last, true
}

func laterThan(a, b StopTimeUpdate) bool {
	if a.HasSequence && b.HasSequence && a.Sequence != b.Sequence {
		return a.Sequence > b.Sequence
	}
	return a.Position > b.Position
}

// DecodeFeed decodes a GTFS-realtime FeedMessage into trip updates.
func DecodeFeed(b []byte) (*Feed, error) {
	var msg gtfsrt.FeedMessage
	opts := proto.UnmarshalOptions{AllowPartial: true}
	if err := opts.Unmarshal(b, &msg); err != nil {
		return nil, fmt.Errorf("error decoding feed message: %w", err)
	}

	feed := &Feed{Timestamp: headerTimestamp(msg.GetHeader().GetTimestamp())}

	for _, entity := range msg.GetEntity() {
		if entity.GetIsDeleted() {
			continue
		}
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		feed.TripUpdates = append(feed.TripUpdates, decodeTripUpdate(tu))
	}

	return feed, nil
}

func decodeTripUpdate(tu *gtfsrt.TripUpdate) TripUpdate {
	trip := tu.GetTrip()
	update := TripUpdate{
		TripID:      trip.GetTripId(),
		RouteID:     trip.GetRouteId(),
		DirectionID: tripDirection(trip),
		Headsign:    liveHeadsign(tu),
		Canceled:    trip.GetScheduleRelationship() == gtfsrt.TripDescriptor_CANCELED,
	}

	for i, stu := range tu.GetStopTimeUpdate() {
		if stu == nil || stu.GetStopId() == "" {
			continue
		}
		if stu.GetScheduleRelationship() == gtfsrt.TripUpdate_StopTimeUpdate_SKIPPED {
			continue
		}

		u := StopTimeUpdate{
			StopID:    stu.GetStopId(),
			Position:  i,
			Arrival:   stu.GetArrival().GetTime(),
			Departure: stu.GetDeparture().GetTime(),
		}
		if stu.StopSequence != nil {
			u.Sequence = stu.GetStopSequence()
			u.HasSequence = true
		}
		u.Track = nyctTrack(stu)
		if track, status := railroadExtension(stu); track != "" || status != "" {
			if u.Track == "" {
				u.Track = track
			}
			u.Status = status
		}
		update.StopTimeUpdates = append(update.StopTimeUpdates, u)
	}

	return update
}

func tripDirection(trip *gtfsrt.TripDescriptor) DirectionID {
	if trip.DirectionId != nil {
		switch trip.GetDirectionId() {
		case 0:
			return DirectionZero
		case 1:
			return DirectionOne
		}
	}
	if proto.HasExtension(trip, gtfsrt.E_NyctTripDescriptor) {
		nyctTrip, _ := proto.GetExtension(trip, gtfsrt.E_NyctTripDescriptor).(*gtfsrt.NyctTripDescriptor)
		if nyctTrip != nil && nyctTrip.Direction != nil {
			if nyctTrip.GetDirection() == gtfsrt.NyctTripDescriptor_NORTH {
				return DirectionZero
			}
			return DirectionOne
		}
	}
	return DirectionUnspecified
}

// headerTimestamp converts the unsigned feed header timestamp. Values that do
// not fit a signed epoch read as unset.
func headerTimestamp(v uint64) int64 {
	if v > math.MaxInt64 {
		return 0
	}
	return int64(v)
}

// liveHeadsign reads trip_headsign from the trip descriptor or the trip
// properties, whichever the bindings in use define.
func liveHeadsign(tu *gtfsrt.TripUpdate) string {
	if h := stringField(tu.GetTrip().ProtoReflect(), "trip_headsign"); h != "" {
		return h
	}
	msg := tu.ProtoReflect()
	fd := msg.Descriptor().Fields().ByName("trip_properties")
	if fd == nil || fd.Kind() != protoreflect.MessageKind || !msg.Has(fd) {
		return ""
	}
	return stringField(msg.Get(fd).Message(), "trip_headsign")
}

func stringField(msg protoreflect.Message, name protoreflect.Name) string {
	if !msg.IsValid() {
		return ""
	}
	fd := msg.Descriptor().Fields().ByName(name)
	if fd == nil || fd.Kind() != protoreflect.StringKind || !msg.Has(fd) {
		return ""
	}
	return msg.Get(fd).String()
}

func nyctTrack(stu *gtfsrt.TripUpdate_StopTimeUpdate) string {
	if !proto.HasExtension(stu, gtfsrt.E_NyctStopTimeUpdate) {
		return ""
	}
	nyctUpdate, _ := proto.GetExtension(stu, gtfsrt.E_NyctStopTimeUpdate).(*gtfsrt.NyctStopTimeUpdate)
	if nyctUpdate == nil {
		return ""
	}
	if nyctUpdate.ActualTrack != nil {
		return nyctUpdate.GetActualTrack()
	}
	return nyctUpdate.GetScheduledTrack()
}

// railroadExtension reads the MTA railroad StopTimeUpdate extension. It is
// taken from a registered extension type when one is linked in, and from the
// raw unknown fields otherwise.
func railroadExtension(stu *gtfsrt.TripUpdate_StopTimeUpdate) (track, status string) {
	msg := stu.ProtoReflect()

	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if !fd.IsExtension() || fd.Number() != mtaRailroadExtension || fd.Kind() != protoreflect.MessageKind {
			return true
		}
		ext := v.Message()
		track = stringField(ext, "track")
		status = stringField(ext, "trainStatus")
		if status == "" {
			status = stringField(ext, "train_status")
		}
		return false
	})
	if track != "" || status != "" {
		return track, status
	}

	return parseRailroadUnknown(msg.GetUnknown())
}

func parseRailroadUnknown(b []byte) (track, status string) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return track, status
		}
		b = b[n:]

		if num == mtaRailroadExtension && typ == protowire.BytesType {
			inner, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return track, status
			}
			track, status = parseRailroadFields(inner)
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return track, status
		}
		b = b[m:]
	}
	return track, status
}

func parseRailroadFields(b []byte) (track, status string) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return track, status
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == mtaRailroadTrack || num == mtaRailroadStatus) {
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return track, status
			}
			if num == mtaRailroadTrack {
				track = v
			} else {
				status = v
			}
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return track, status
		}
		b = b[m:]
	}
	return track, status
}
