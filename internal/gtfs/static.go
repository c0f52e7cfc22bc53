package gtfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/tabular"
)

// ErrStaticLoad marks a dataset that could not be fetched or parsed.
var ErrStaticLoad = errors.New("static dataset unavailable")

type stopRow struct {
	ID            string `csv:"stop_id"`
	Name          string `csv:"stop_name"`
	Lat           string `csv:"stop_lat"`
	Lon           string `csv:"stop_lon"`
	LocationType  string `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
}

type routeRow struct {
	ID        string `csv:"route_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

type tripRow struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID string `csv:"direction_id"`
}

// LoadOptions carries mode data that is not present in the schedule files.
type LoadOptions struct {
	RouteAcronyms map[string]string
}

// LoadDataset reads and parses the four schedule files of a source.
func LoadDataset(ctx context.Context, key string, source StaticSource, opts LoadOptions) (*Dataset, error) {
	logger := logging.FromContext(ctx).With(
		slog.String("component", "gtfs_static_loader"),
		slog.String("mode", key))
	start := time.Now()

	files, err := source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStaticLoad, key, err)
	}

	tables := make(map[string]*tabular.Table, len(StaticFiles))
	for _, name := range StaticFiles {
		b, err := files.ReadFile(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStaticLoad, key, err)
		}
		table, err := tabular.Parse(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: error parsing %s: %w", ErrStaticLoad, key, name, err)
		}
		if table.Skipped() > 0 {
			logger.Warn("skipped malformed rows",
				slog.String("file", name),
				slog.Int("rows", table.Skipped()))
		}
		tables[name] = table
	}

	dataset, err := buildDataset(key, tables, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStaticLoad, key, err)
	}

	logging.LogOperation(logger, "gtfs_static_loaded",
		slog.Int("stops", len(dataset.Stops)),
		slog.Int("routes", len(dataset.Routes)),
		slog.Int("trips", len(dataset.Trips)),
		slog.Int("stop_times", len(dataset.StopTimes)),
		slog.Duration("duration", time.Since(start)))

	return dataset, nil
}

func buildDataset(key string, tables map[string]*tabular.Table, opts LoadOptions) (*Dataset, error) {
	var stops []stopRow
	if err := tables["stops.txt"].Unmarshal(&stops); err != nil {
		return nil, fmt.Errorf("stops.txt: %w", err)
	}
	var routes []routeRow
	if err := tables["routes.txt"].Unmarshal(&routes); err != nil {
		return nil, fmt.Errorf("routes.txt: %w", err)
	}
	var trips []tripRow
	if err := tables["trips.txt"].Unmarshal(&trips); err != nil {
		return nil, fmt.Errorf("trips.txt: %w", err)
	}

	dataset := &Dataset{
		Key:    key,
		Stops:  make(map[string]Stop, len(stops)),
		Routes: make(map[string]Route, len(routes)),
		Trips:  make(map[string]Trip, len(trips)),
	}

	for _, row := range stops {
		if row.ID == "" {
			continue
		}
		dataset.Stops[row.ID] = Stop{
			ID:            row.ID,
			Name:          row.Name,
			Latitude:      parseFloat(row.Lat),
			Longitude:     parseFloat(row.Lon),
			LocationType:  parseInt(row.LocationType),
			ParentStation: row.ParentStation,
		}
	}

	for _, row := range routes {
		if row.ID == "" {
			continue
		}
		dataset.Routes[row.ID] = Route{
			ID:        row.ID,
			ShortName: row.ShortName,
			LongName:  row.LongName,
			Color:     normalizeColor(row.Color, DefaultRouteColor),
			TextColor: normalizeColor(row.TextColor, DefaultRouteTextColor),
			Acronym:   opts.RouteAcronyms[row.ID],
		}
	}

	for _, row := range trips {
		if row.ID == "" {
			continue
		}
		dataset.Trips[row.ID] = Trip{
			ID:          row.ID,
			RouteID:     row.RouteID,
			ServiceID:   row.ServiceID,
			Headsign:    row.Headsign,
			DirectionID: parseDirectionID(row.DirectionID),
		}
	}

	dataset.StopTimes = readStopTimes(tables["stop_times.txt"])

	return dataset, nil
}

// readStopTimes walks stop_times.txt by column name. It is the largest file by
// far, so rows are read straight off the table rather than bound to structs.
func readStopTimes(table *tabular.Table) []StopTime {
	stopTimes := make([]StopTime, 0, table.Len())
	table.Each(func(r tabular.Record) {
		tripID, stopID := r.Get("trip_id"), r.Get("stop_id")
		if tripID == "" || stopID == "" {
			return
		}
		stopTimes = append(stopTimes, StopTime{
			TripID:        tripID,
			StopID:        stopID,
			ArrivalTime:   r.Get("arrival_time"),
			DepartureTime: r.Get("departure_time"),
			StopSequence:  parseInt(r.Get("stop_sequence")),
		})
	})

	return stopTimes
}
